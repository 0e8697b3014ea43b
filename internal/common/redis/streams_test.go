package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamMessage_Field(t *testing.T) {
	msg := StreamMessage{ID: "1-0", Values: map[string]interface{}{
		"patient_id": "p-1",
		"queue_id":   []byte("q-1"),
		"priority":   3,
	}}
	assert.Equal(t, "p-1", msg.Field("patient_id"))
	assert.Equal(t, "q-1", msg.Field("queue_id"))
	assert.Empty(t, msg.Field("priority"))
	assert.Empty(t, msg.Field("missing"))
}

func TestPayloadData(t *testing.T) {
	data, err := PayloadData(StreamMessage{ID: "1-0", Values: map[string]interface{}{"data": `{"a":1}`}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	_, err = PayloadData(StreamMessage{ID: "2-0", Values: map[string]interface{}{}})
	assert.Error(t, err)

	_, err = PayloadData(StreamMessage{ID: "3-0", Values: map[string]interface{}{"data": 42}})
	assert.Error(t, err)
}
