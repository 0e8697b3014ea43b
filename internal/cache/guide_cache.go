package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// GuideCache 患者最后位置与最新路线缓存
// 位置用于重启后恢复追踪器，路线供查询接口读取
type GuideCache struct {
	kv     KVStore
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewGuideCache 创建缓存；prefix 为空时使用 "guide"
func NewGuideCache(kv KVStore, prefix string, ttl time.Duration, logger *zap.Logger) *GuideCache {
	if prefix == "" {
		prefix = "guide"
	}
	return &GuideCache{
		kv:     kv,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// LocationKey guide:location:{patient_id}:current
func (c *GuideCache) LocationKey(patientID string) string {
	return fmt.Sprintf("%s:location:%s:current", c.prefix, patientID)
}

// RouteKey guide:route:{patient_id}:latest
func (c *GuideCache) RouteKey(patientID string) string {
	return fmt.Sprintf("%s:route:%s:latest", c.prefix, patientID)
}

// SaveLocation 写入当前位置
func (c *GuideCache) SaveLocation(ctx context.Context, patientID string, sample models.LocationSample) error {
	return c.setJSON(ctx, c.LocationKey(patientID), sample)
}

// LoadLocation 读取最后位置；不存在时返回 ErrCacheMiss
func (c *GuideCache) LoadLocation(ctx context.Context, patientID string) (*models.LocationSample, error) {
	var sample models.LocationSample
	if err := c.getJSON(ctx, c.LocationKey(patientID), &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// SaveRoute 写入最新路线
func (c *GuideCache) SaveRoute(ctx context.Context, record models.RouteRecord) error {
	return c.setJSON(ctx, c.RouteKey(record.PatientID), record)
}

// LoadRoute 读取最新路线
func (c *GuideCache) LoadRoute(ctx context.Context, patientID string) (*models.RouteRecord, error) {
	var record models.RouteRecord
	if err := c.getJSON(ctx, c.RouteKey(patientID), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Forget 删除患者的全部缓存（就诊结束）
func (c *GuideCache) Forget(ctx context.Context, patientID string) error {
	return c.kv.Del(ctx, c.LocationKey(patientID), c.RouteKey(patientID))
}

func (c *GuideCache) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := c.kv.Set(ctx, key, string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	c.logger.Debug("Updated guide cache", zap.String("key", key))
	return nil
}

func (c *GuideCache) getJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to unmarshal cache value %s: %w", key, err)
	}
	return nil
}
