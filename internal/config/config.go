package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/config"
)

// 数据源
const (
	DataSourceLive    = "live"
	DataSourceFixture = "fixture"
)

// Config 导诊服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	Guide struct {
		// 位置追踪
		Tracker struct {
			HistorySize    int
			StaleThreshold time.Duration // 超过该时长未扫描视为位置过期
		}

		// 路线引擎
		Route struct {
			MetersPerUnit      float64
			WalkingSpeed       float64 // 米/秒
			FloorChangePenalty int     // 秒
			ComputeTimeout     time.Duration
			ManualRoutesPath   string // .json 或 .xlsx，留空表示不使用人工路线
			CatalogPath        string // 固定设施覆盖文件，留空使用默认值
		}

		// 外部路线规划服务
		Planner struct {
			BaseURL    string // 留空时直接使用离线直线
			Path       string
			Timeout    time.Duration
			RetryCount int
		}

		// 患者数据来源
		Feed struct {
			DataSource   string // live / fixture
			FixturePath  string
			PollInterval time.Duration
		}

		// Redis Streams
		Stream struct {
			RouteStream   string // 路线更新输出
			QueueEvents   string // 叫号系统排队事件输入
			ConsumerGroup string
			ConsumerName  string
			BatchSize     int
		}

		// 最后位置 / 最新路线缓存
		Cache struct {
			KeyPrefix string
			TTL       time.Duration
		}

		// NFC 扫描 MQTT 主题，{patient_id} 位于第二段
		ScanTopic string
	}

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "hospital")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)
	cfg.Database.ConnTimeout = getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second)
	cfg.Database.AppName = "wisefido-guide"

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", 20)
	cfg.Redis.DialTimeout = getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-guide")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.ConnectTimeout = getEnvDuration("MQTT_CONNECT_TIMEOUT", 10*time.Second)

	cfg.Guide.Tracker.HistorySize = getEnvInt("GUIDE_HISTORY_SIZE", 5)
	cfg.Guide.Tracker.StaleThreshold = getEnvDuration("GUIDE_STALE_THRESHOLD", 10*time.Minute)

	cfg.Guide.Route.MetersPerUnit = getEnvFloat("GUIDE_METERS_PER_UNIT", 0.1)
	cfg.Guide.Route.WalkingSpeed = getEnvFloat("GUIDE_WALKING_SPEED", 1.0)
	cfg.Guide.Route.FloorChangePenalty = getEnvInt("GUIDE_FLOOR_CHANGE_PENALTY", 60)
	cfg.Guide.Route.ComputeTimeout = getEnvDuration("GUIDE_ROUTE_TIMEOUT", 15*time.Second)
	cfg.Guide.Route.ManualRoutesPath = getEnv("GUIDE_MANUAL_ROUTES", "")
	cfg.Guide.Route.CatalogPath = getEnv("GUIDE_FACILITY_CATALOG", "")

	cfg.Guide.Planner.BaseURL = getEnv("GUIDE_PLANNER_URL", "")
	cfg.Guide.Planner.Path = getEnv("GUIDE_PLANNER_PATH", "/api/navigation/path")
	cfg.Guide.Planner.Timeout = getEnvDuration("GUIDE_PLANNER_TIMEOUT", 10*time.Second)
	cfg.Guide.Planner.RetryCount = getEnvInt("GUIDE_PLANNER_RETRY", 1)

	cfg.Guide.Feed.DataSource = getEnv("GUIDE_DATA_SOURCE", DataSourceLive)
	cfg.Guide.Feed.FixturePath = getEnv("GUIDE_FIXTURE_PATH", "")
	cfg.Guide.Feed.PollInterval = getEnvDuration("GUIDE_POLL_INTERVAL", 30*time.Second)

	cfg.Guide.Stream.RouteStream = getEnv("GUIDE_ROUTE_STREAM", "guide:route:stream")
	cfg.Guide.Stream.QueueEvents = getEnv("GUIDE_QUEUE_STREAM", "guide:queue:events")
	cfg.Guide.Stream.ConsumerGroup = getEnv("GUIDE_CONSUMER_GROUP", "guide-group")
	cfg.Guide.Stream.ConsumerName = getEnv("GUIDE_CONSUMER_NAME", "guide-1")
	cfg.Guide.Stream.BatchSize = getEnvInt("GUIDE_BATCH_SIZE", 10)

	cfg.Guide.Cache.KeyPrefix = getEnv("GUIDE_CACHE_PREFIX", "guide")
	cfg.Guide.Cache.TTL = getEnvDuration("GUIDE_CACHE_TTL", 12*time.Hour)

	cfg.Guide.ScanTopic = getEnv("GUIDE_SCAN_TOPIC", "guide/+/scan")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Guide.Feed.DataSource {
	case DataSourceLive, DataSourceFixture:
	default:
		return fmt.Errorf("invalid GUIDE_DATA_SOURCE %q (want %s or %s)", c.Guide.Feed.DataSource, DataSourceLive, DataSourceFixture)
	}
	if c.Guide.Feed.DataSource == DataSourceLive {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if c.Guide.Route.WalkingSpeed <= 0 {
		return fmt.Errorf("GUIDE_WALKING_SPEED must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

// getEnvDuration 支持 "30s" 形式，纯数字按秒计
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
