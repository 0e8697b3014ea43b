package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultStreamMaxLen 输出流近似保留条数
const DefaultStreamMaxLen = 10000

// StreamMessage 消费者组读到的一条消息
type StreamMessage struct {
	Stream string
	ID     string
	Values map[string]interface{}
}

// Field 取字符串字段；缺失或类型不符时返回空串
func (m StreamMessage) Field(name string) string {
	switch v := m.Values[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// PublishJSON 写入 {"data": <json>, "timestamp": <unix 秒>}，maxLen > 0 时近似裁剪
// fields 作为平铺字段一并写入
func PublishJSON(ctx context.Context, client *redis.Client, stream string, maxLen int64, data interface{}, fields map[string]string) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stream payload: %w", err)
	}

	values := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		values[k] = v
	}
	values["data"] = string(payload)
	values["timestamp"] = strconv.FormatInt(time.Now().Unix(), 10)

	args := &redis.XAddArgs{Stream: stream, Values: values}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return client.XAdd(ctx, args).Result()
}

// ReadFromStream XREADGROUP 读取新消息；block 超时无消息时返回空切片
func ReadFromStream(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	res, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	messages := make([]StreamMessage, 0, count)
	for _, s := range res {
		for _, msg := range s.Messages {
			messages = append(messages, StreamMessage{Stream: s.Stream, ID: msg.ID, Values: msg.Values})
		}
	}
	return messages, nil
}

// Ack XACK；ids 为空时不发请求
func Ack(ctx context.Context, client *redis.Client, stream, consumerGroup string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return client.XAck(ctx, stream, consumerGroup, ids...).Err()
}

// CreateConsumerGroup 从流起点建组，流不存在时创建；组已存在不是错误
func CreateConsumerGroup(ctx context.Context, client *redis.Client, stream string, groupName string) error {
	err := client.XGroupCreateMkStream(ctx, stream, groupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// PayloadData 取出 data 字段
func PayloadData(msg StreamMessage) ([]byte, error) {
	raw, ok := msg.Values["data"]
	if !ok {
		return nil, fmt.Errorf("stream message %s has no data field", msg.ID)
	}
	switch v := raw.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	return nil, fmt.Errorf("stream message %s has unexpected data type %T", msg.ID, raw)
}
