package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStreamRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStreams_PublishReadAck(t *testing.T) {
	client := setupStreamRedis(t)
	ctx := context.Background()
	const stream, group = "guide:route:stream", "guide-group"

	require.NoError(t, CreateConsumerGroup(ctx, client, stream, group))
	// 组已存在不是错误
	require.NoError(t, CreateConsumerGroup(ctx, client, stream, group))

	id, err := PublishJSON(ctx, client, stream, 100, map[string]string{"route_id": "r-1"},
		map[string]string{"event_type": "route.updated", "patient_id": "p-1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs, err := ReadFromStream(ctx, client, stream, group, "guide-1", 10, -1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, id, msg.ID)
	assert.Equal(t, stream, msg.Stream)
	assert.Equal(t, "route.updated", msg.Field("event_type"))
	assert.Equal(t, "p-1", msg.Field("patient_id"))
	assert.NotEmpty(t, msg.Field("timestamp"))

	data, err := PayloadData(msg)
	require.NoError(t, err)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "r-1", payload["route_id"])

	require.NoError(t, Ack(ctx, client, stream, group, msg.ID))
	pending, err := client.XPending(ctx, stream, group).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	msgs, err = ReadFromStream(ctx, client, stream, group, "guide-1", 10, -1)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPublishJSON_Unmarshalable(t *testing.T) {
	client := setupStreamRedis(t)
	_, err := PublishJSON(context.Background(), client, "s", 0, make(chan int), nil)
	assert.Error(t, err)
}
