package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	mqttcommon "github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/mqtt"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// Subscriber MQTT 订阅接口（*mqttcommon.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// ScanHandler 扫描事件处理
type ScanHandler interface {
	HandleScan(ctx context.Context, patientID string, raw models.RawScanEvent) (models.LocationSample, error)
}

// ScanConsumer NFC 扫描消费者
// 主题格式: guide/{patient_id}/scan
type ScanConsumer struct {
	subscriber Subscriber
	handler    ScanHandler
	topic      string
	qos        byte
	logger     *zap.Logger
}

// NewScanConsumer 创建扫描消费者
func NewScanConsumer(subscriber Subscriber, handler ScanHandler, topic string, qos byte, logger *zap.Logger) *ScanConsumer {
	return &ScanConsumer{
		subscriber: subscriber,
		handler:    handler,
		topic:      topic,
		qos:        qos,
		logger:     logger,
	}
}

// Start 订阅并阻塞到 ctx 取消
func (c *ScanConsumer) Start(ctx context.Context) error {
	if err := c.subscriber.Subscribe(c.topic, c.qos, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to scan topic: %w", err)
	}

	c.logger.Info("Scan consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *ScanConsumer) Stop(ctx context.Context) error {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("Scan consumer stopped")
	return nil
}

func (c *ScanConsumer) handleMessage(topic string, payload []byte) error {
	patientID, err := patientFromTopic(topic)
	if err != nil {
		return err
	}

	var raw models.RawScanEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal scan: %w", err)
	}

	sample, err := c.handler.HandleScan(context.Background(), patientID, raw)
	if err != nil {
		return fmt.Errorf("scan rejected for patient %s: %w", patientID, err)
	}

	c.logger.Debug("Scan accepted",
		zap.String("patient_id", patientID),
		zap.String("tag_code", sample.TagCode),
		zap.Uint64("seq", sample.Seq),
	)
	return nil
}

func patientFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[1], nil
}
