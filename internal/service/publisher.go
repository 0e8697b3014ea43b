package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/cache"
	rediscommon "github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/redis"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/metrics"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/route"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/syncbus"
)

// 事件类型
const (
	EventRouteUpdated = "route.updated"
	EventMapReload    = "map.reload"
)

// 错误码
const (
	ErrorCodeMissingStart       = "missing_start"
	ErrorCodeMissingDestination = "missing_destination"
	ErrorCodePlannerUnavailable = "planner_unavailable"
	ErrorCodeRouteFailed        = "route_failed"
)

// StreamPublisher 事件流发布
type StreamPublisher interface {
	PublishJSON(ctx context.Context, stream string, data interface{}) (string, error)
}

// RedisStreamPublisher 基于 Redis Streams 的发布实现
// GuideEvent 额外写入 event_type / patient_id 平铺字段
type RedisStreamPublisher struct {
	client *redis.Client
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, maxLen: rediscommon.DefaultStreamMaxLen}
}

func (p *RedisStreamPublisher) PublishJSON(ctx context.Context, stream string, data interface{}) (string, error) {
	var fields map[string]string
	if ev, ok := data.(GuideEvent); ok {
		fields = map[string]string{"event_type": ev.EventType, "patient_id": ev.PatientID}
	}
	return rediscommon.PublishJSON(ctx, p.client, stream, p.maxLen, data, fields)
}

// GuideEvent 发布到路线流的事件
type GuideEvent struct {
	EventID   string              `json:"event_id"`
	EventType string              `json:"event_type"`
	PatientID string              `json:"patient_id"`
	Timestamp int64               `json:"timestamp"`
	Route     *models.RouteRecord `json:"route,omitempty"`
	Map       *syncbus.MapKey     `json:"map,omitempty"`
}

// Publisher 同步总线的输出端：写缓存、发事件流、记指标
type Publisher struct {
	cache   *cache.GuideCache
	streams StreamPublisher
	stream  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPublisher 创建发布者；cache / streams 可为 nil
func NewPublisher(guideCache *cache.GuideCache, streams StreamPublisher, stream string, logger *zap.Logger) *Publisher {
	return &Publisher{
		cache:   guideCache,
		streams: streams,
		stream:  stream,
		timeout: 3 * time.Second,
		logger:  logger,
	}
}

// RouteUpdated 实现 syncbus.Listener
func (p *Publisher) RouteUpdated(u syncbus.RouteUpdate) {
	rec := ToRecord(u)
	switch {
	case rec.Route != nil:
		metrics.RoutesTotal.WithLabelValues(string(rec.Route.Mode)).Inc()
	case rec.ErrorCode != "":
		metrics.RouteFailuresTotal.WithLabelValues(rec.ErrorCode).Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if p.cache != nil {
		if err := p.cache.SaveRoute(ctx, rec); err != nil {
			p.logger.Warn("Failed to cache route", zap.String("patient_id", rec.PatientID), zap.Error(err))
		}
	}
	p.publish(ctx, GuideEvent{
		EventType: EventRouteUpdated,
		PatientID: rec.PatientID,
		Route:     &rec,
	})
}

// MapReloadRequested 实现 syncbus.Listener
func (p *Publisher) MapReloadRequested(patientID string, key syncbus.MapKey) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	p.logger.Info("Map reload requested",
		zap.String("patient_id", patientID),
		zap.String("building", key.Building),
		zap.String("floor", key.Floor),
	)
	p.publish(ctx, GuideEvent{
		EventType: EventMapReload,
		PatientID: patientID,
		Map:       &key,
	})
}

func (p *Publisher) publish(ctx context.Context, ev GuideEvent) {
	if p.streams == nil || p.stream == "" {
		return
	}
	ev.EventID = uuid.New().String()
	ev.Timestamp = time.Now().Unix()

	streamID, err := p.streams.PublishJSON(ctx, p.stream, ev)
	if err != nil {
		p.logger.Error("Failed to publish guide event",
			zap.String("stream", p.stream),
			zap.String("event_type", ev.EventType),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("Published guide event",
		zap.String("event_type", ev.EventType),
		zap.String("patient_id", ev.PatientID),
		zap.String("stream_id", streamID),
	)
}

// ToRecord 总线结果转为对外记录
func ToRecord(u syncbus.RouteUpdate) models.RouteRecord {
	rec := models.RouteRecord{
		PatientID:   u.PatientID,
		Generation:  u.Generation,
		Trigger:     u.Trigger,
		State:       u.State,
		Sample:      u.Sample,
		Destination: u.Destination,
		Route:       u.Route,
		ComputedAt:  u.ComputedAt,
	}
	if u.Err != nil {
		rec.Error = u.Err.Error()
		rec.ErrorCode = errorCode(u.Err)
	}
	return rec
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, route.ErrMissingStart):
		return ErrorCodeMissingStart
	case errors.Is(err, route.ErrMissingDestination):
		return ErrorCodeMissingDestination
	case errors.Is(err, route.ErrPlannerUnavailable):
		return ErrorCodePlannerUnavailable
	}
	return ErrorCodeRouteFailed
}
