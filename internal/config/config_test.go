package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, 5, cfg.Guide.Tracker.HistorySize)
	assert.Equal(t, 0.1, cfg.Guide.Route.MetersPerUnit)
	assert.Equal(t, 60, cfg.Guide.Route.FloorChangePenalty)
	assert.Equal(t, 15*time.Second, cfg.Guide.Route.ComputeTimeout)
	assert.Equal(t, DataSourceLive, cfg.Guide.Feed.DataSource)
	assert.Equal(t, 30*time.Second, cfg.Guide.Feed.PollInterval)
	assert.Equal(t, "guide:route:stream", cfg.Guide.Stream.RouteStream)
	assert.Equal(t, "guide:queue:events", cfg.Guide.Stream.QueueEvents)
	assert.Equal(t, "guide/+/scan", cfg.Guide.ScanTopic)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("GUIDE_DATA_SOURCE", "fixture")
	t.Setenv("GUIDE_POLL_INTERVAL", "5")
	t.Setenv("GUIDE_ROUTE_TIMEOUT", "750ms")
	t.Setenv("GUIDE_WALKING_SPEED", "1.4")
	t.Setenv("GUIDE_PLANNER_URL", "http://planner:8000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, DataSourceFixture, cfg.Guide.Feed.DataSource)
	assert.Equal(t, 5*time.Second, cfg.Guide.Feed.PollInterval)
	assert.Equal(t, 750*time.Millisecond, cfg.Guide.Route.ComputeTimeout)
	assert.Equal(t, 1.4, cfg.Guide.Route.WalkingSpeed)
	assert.Equal(t, "http://planner:8000", cfg.Guide.Planner.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("GUIDE_DATA_SOURCE", "demo")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("GUIDE_DATA_SOURCE", "live")
	t.Setenv("MQTT_QOS", "3")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("MQTT_QOS", "1")
	t.Setenv("GUIDE_WALKING_SPEED", "0")
	_, err = Load()
	assert.Error(t, err)

	// 数据库端口只在 live 数据源下校验
	t.Setenv("GUIDE_WALKING_SPEED", "1.2")
	t.Setenv("DB_PORT", "70000")
	_, err = Load()
	assert.Error(t, err)
	t.Setenv("GUIDE_DATA_SOURCE", "fixture")
	_, err = Load()
	assert.NoError(t, err)
}

func TestGetEnvDuration_FallsBack(t *testing.T) {
	t.Setenv("GUIDE_TEST_DURATION", "soon")
	assert.Equal(t, time.Minute, getEnvDuration("GUIDE_TEST_DURATION", time.Minute))
	t.Setenv("GUIDE_TEST_DURATION", "-5s")
	assert.Equal(t, time.Minute, getEnvDuration("GUIDE_TEST_DURATION", time.Minute))
}
