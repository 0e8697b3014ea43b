package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/redis"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// Refresher 触发某位患者的数据刷新
type Refresher interface {
	Refresh(ctx context.Context, patientID string) error
}

// QueueEventConsumer 叫号系统排队事件消费者（Redis Streams）
type QueueEventConsumer struct {
	redisClient  *redis.Client
	refresher    Refresher
	logger       *zap.Logger
	stream       string
	groupName    string
	consumerName string
	batchSize    int64
}

// NewQueueEventConsumer 创建排队事件消费者
func NewQueueEventConsumer(
	redisClient *redis.Client,
	refresher Refresher,
	logger *zap.Logger,
	stream string,
	groupName string,
	consumerName string,
	batchSize int64,
) *QueueEventConsumer {
	return &QueueEventConsumer{
		redisClient:  redisClient,
		refresher:    refresher,
		logger:       logger,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		batchSize:    batchSize,
	}
}

// Start 消费到 ctx 取消（失败时指数退避）
func (c *QueueEventConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.groupName); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Queue event consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.groupName),
		zap.String("consumer_name", c.consumerName),
	)

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume queue events",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = time.Second
	}
}

func (c *QueueEventConsumer) consume(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(ctx, c.redisClient, c.stream, c.groupName, c.consumerName, c.batchSize, 2*time.Second)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process queue event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if err := rediscommon.Ack(ctx, c.redisClient, c.stream, c.groupName, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (c *QueueEventConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	event, err := parseQueueEvent(msg)
	if err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}

	c.logger.Info("Processing queue event",
		zap.String("patient_id", event.PatientID),
		zap.String("queue_id", event.QueueID),
		zap.String("state", string(event.State)),
	)
	return c.refresher.Refresh(ctx, event.PatientID)
}

// parseQueueEvent 优先解析 data 字段（PublishJSON 格式），否则读取平铺字段
func parseQueueEvent(msg rediscommon.StreamMessage) (*models.QueueEvent, error) {
	if data, err := rediscommon.PayloadData(msg); err == nil {
		var event models.QueueEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		if event.PatientID == "" {
			return nil, fmt.Errorf("invalid event: missing patient_id")
		}
		return &event, nil
	}

	event := &models.QueueEvent{
		PatientID: msg.Field("patient_id"),
		QueueID:   msg.Field("queue_id"),
	}
	if v := msg.Field("state"); v != "" {
		event.State = models.NormalizeQueueState(v)
	}
	if event.PatientID == "" {
		return nil, fmt.Errorf("invalid event: missing patient_id")
	}
	return event, nil
}
