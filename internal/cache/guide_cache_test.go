package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

func TestGuideCache_Location(t *testing.T) {
	kv := newFakeKVStore()
	c := NewGuideCache(kv, "", time.Hour, zap.NewNop())
	ctx := context.Background()

	_, err := c.LoadLocation(ctx, "p-1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, c.SaveLocation(ctx, "p-1", models.LocationSample{
		Seq: 3, TagCode: "TAG-A", Floor: "2F", Position: &models.Point{X: 1, Y: 2}, Timestamp: ts,
	}))

	raw, err := kv.Get(ctx, "guide:location:p-1:current")
	require.NoError(t, err)
	var decoded models.LocationSample
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "TAG-A", decoded.TagCode)

	loaded, err := c.LoadLocation(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, ts, loaded.Timestamp.UTC())
	assert.Equal(t, &models.Point{X: 1, Y: 2}, loaded.Position)
}

func TestGuideCache_RouteAndForget(t *testing.T) {
	kv := newFakeKVStore()
	c := NewGuideCache(kv, "test", 0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.SaveRoute(ctx, models.RouteRecord{
		PatientID: "p-1",
		State:     models.JourneyWaiting,
		Route:     &models.RouteResult{Mode: models.RouteModeOffline, Nodes: []models.RouteNode{{ID: "a"}, {ID: "b"}}},
	}))
	assert.Equal(t, "test:route:p-1:latest", c.RouteKey("p-1"))

	rec, err := c.LoadRoute(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.RouteModeOffline, rec.Route.Mode)
	assert.Equal(t, models.JourneyWaiting, rec.State)

	require.NoError(t, c.Forget(ctx, "p-1"))
	_, err = c.LoadRoute(ctx, "p-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGuideCache_CorruptValue(t *testing.T) {
	kv := newFakeKVStore()
	c := NewGuideCache(kv, "", time.Hour, zap.NewNop())
	require.NoError(t, kv.Set(context.Background(), c.LocationKey("p-1"), "{not json", 0))

	_, err := c.LoadLocation(context.Background(), "p-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestGuideCache_EntriesExpireAfterTTL(t *testing.T) {
	kv := newFakeKVStore()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	c := NewGuideCache(kv, "", 12*time.Hour, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.SaveLocation(ctx, "p-1", models.LocationSample{Seq: 1, TagCode: "TAG-A", Timestamp: now}))
	assert.Equal(t, 12*time.Hour, kv.ttl(c.LocationKey("p-1")))

	now = now.Add(11 * time.Hour)
	_, err := c.LoadLocation(ctx, "p-1")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = c.LoadLocation(ctx, "p-1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
