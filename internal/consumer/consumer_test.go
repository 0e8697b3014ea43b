package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqttcommon "github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/mqtt"
	rediscommon "github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/redis"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]mqttcommon.MessageHandler
	removed  []string
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string]mqttcommon.MessageHandler)
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, topics...)
	return nil
}

func (f *fakeSubscriber) handler(topic string) mqttcommon.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

type recordingScanHandler struct {
	mu    sync.Mutex
	calls map[string][]models.RawScanEvent
	err   error
}

func (r *recordingScanHandler) HandleScan(ctx context.Context, patientID string, raw models.RawScanEvent) (models.LocationSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string][]models.RawScanEvent)
	}
	r.calls[patientID] = append(r.calls[patientID], raw)
	if r.err != nil {
		return models.LocationSample{}, r.err
	}
	return models.LocationSample{Seq: 1, TagCode: raw.TagCode}, nil
}

func TestScanConsumer_DispatchesByTopic(t *testing.T) {
	sub := &fakeSubscriber{}
	h := &recordingScanHandler{}
	c := NewScanConsumer(sub, h, "guide/+/scan", 1, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return sub.handler("guide/+/scan") != nil }, time.Second, 5*time.Millisecond)
	handle := sub.handler("guide/+/scan")

	require.NoError(t, handle("guide/p-7/scan", []byte(`{"tag_code":"TAG-A","node_id":"n-1","floor":"2F"}`)))
	assert.Error(t, handle("guide/p-7/scan", []byte(`{"tag_code":`)))
	assert.Error(t, handle("guide", []byte(`{}`)))

	require.Len(t, h.calls["p-7"], 1)
	assert.Equal(t, "TAG-A", h.calls["p-7"][0].TagCode)
	assert.Equal(t, "2F", h.calls["p-7"][0].Floor)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, []string{"guide/+/scan"}, sub.removed)
}

func TestScanConsumer_HandlerErrorIsReturned(t *testing.T) {
	h := &recordingScanHandler{err: errors.New("invalid scan")}
	c := NewScanConsumer(&fakeSubscriber{}, h, "guide/+/scan", 1, zap.NewNop())

	err := c.handleMessage("guide/p-1/scan", []byte(`{}`))
	assert.Error(t, err)
}

func TestPatientFromTopic(t *testing.T) {
	id, err := patientFromTopic("guide/p-1/scan")
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)

	_, err = patientFromTopic("guide//scan")
	assert.Error(t, err)
}

type recordingRefresher struct {
	patients []string
}

func (r *recordingRefresher) Refresh(ctx context.Context, patientID string) error {
	r.patients = append(r.patients, patientID)
	return nil
}

func TestParseQueueEvent(t *testing.T) {
	event, err := parseQueueEvent(rediscommon.StreamMessage{ID: "1-0", Values: map[string]interface{}{
		"data": `{"patient_id":"p-1","queue_id":"q-1","state":"ONGOING","timestamp":1772442000}`,
	}})
	require.NoError(t, err)
	assert.Equal(t, "p-1", event.PatientID)
	assert.Equal(t, models.QueueInProgress, event.State)

	event, err = parseQueueEvent(rediscommon.StreamMessage{ID: "2-0", Values: map[string]interface{}{
		"patient_id": "p-2", "queue_id": "q-9", "state": "Called",
	}})
	require.NoError(t, err)
	assert.Equal(t, "p-2", event.PatientID)
	assert.Equal(t, models.QueueCalled, event.State)

	_, err = parseQueueEvent(rediscommon.StreamMessage{ID: "3-0", Values: map[string]interface{}{"queue_id": "q-1"}})
	assert.Error(t, err)

	_, err = parseQueueEvent(rediscommon.StreamMessage{ID: "4-0", Values: map[string]interface{}{"data": `{"queue_id":"q-1"}`}})
	assert.Error(t, err)
}

func TestQueueEventConsumer_ProcessMessage(t *testing.T) {
	r := &recordingRefresher{}
	c := NewQueueEventConsumer(nil, r, zap.NewNop(), "guide:queue:events", "guide-group", "guide-1", 10)

	err := c.processMessage(context.Background(), rediscommon.StreamMessage{ID: "1-0", Values: map[string]interface{}{
		"data": `{"patient_id":"p-3","queue_id":"q-1","state":"called"}`,
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-3"}, r.patients)
}
