package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/cache"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/database"
	mqttcommon "github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/mqtt"
	rediscommon "github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/common/redis"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/config"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/consumer"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/destination"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/repository"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/route"
)

// GuideService 导诊服务：装配数据源、缓存、路线引擎与消费者
type GuideService struct {
	config        *config.Config
	logger        *zap.Logger
	db            *sql.DB
	redisClient   *redis.Client
	mqttClient    *mqttcommon.Client
	guide         *Guide
	scanConsumer  *consumer.ScanConsumer
	queueConsumer *consumer.QueueEventConsumer
}

// NewGuideService 创建导诊服务
func NewGuideService(cfg *config.Config, logger *zap.Logger) (*GuideService, error) {
	s := &GuideService{config: cfg, logger: logger}

	source, err := s.openDataSource()
	if err != nil {
		return nil, err
	}

	// Redis：位置 / 路线缓存、路线事件流、排队事件流
	s.redisClient = rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), s.redisClient); err != nil {
		s.closeStores()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	guideCache := cache.NewGuideCache(
		cache.NewRedisKVStore(s.redisClient),
		cfg.Guide.Cache.KeyPrefix,
		cfg.Guide.Cache.TTL,
		logger,
	)
	publisher := NewPublisher(guideCache, NewRedisStreamPublisher(s.redisClient), cfg.Guide.Stream.RouteStream, logger)

	catalog := destination.DefaultCatalog()
	if cfg.Guide.Route.CatalogPath != "" {
		if catalog, err = destination.LoadCatalog(cfg.Guide.Route.CatalogPath); err != nil {
			s.closeStores()
			return nil, err
		}
	}

	engine, err := newRouteEngine(cfg, logger)
	if err != nil {
		s.closeStores()
		return nil, err
	}

	s.guide = NewGuide(source, destination.NewResolver(catalog), engine, publisher, guideCache, Options{
		HistorySize:    cfg.Guide.Tracker.HistorySize,
		StaleThreshold: cfg.Guide.Tracker.StaleThreshold,
		ComputeTimeout: cfg.Guide.Route.ComputeTimeout,
	}, logger)

	s.mqttClient, err = mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		s.closeStores()
		return nil, fmt.Errorf("failed to connect to mqtt: %w", err)
	}
	s.scanConsumer = consumer.NewScanConsumer(s.mqttClient, s.guide, cfg.Guide.ScanTopic, cfg.MQTT.QoS, logger)
	s.queueConsumer = consumer.NewQueueEventConsumer(
		s.redisClient,
		s.guide,
		logger,
		cfg.Guide.Stream.QueueEvents,
		cfg.Guide.Stream.ConsumerGroup,
		cfg.Guide.Stream.ConsumerName,
		int64(cfg.Guide.Stream.BatchSize),
	)

	return s, nil
}

func (s *GuideService) openDataSource() (repository.DataSource, error) {
	switch s.config.Guide.Feed.DataSource {
	case config.DataSourceFixture:
		if s.config.Guide.Feed.FixturePath == "" {
			return repository.NewFixtureDataSource(), nil
		}
		return repository.LoadFixtureDataSource(s.config.Guide.Feed.FixturePath)
	default:
		db, err := database.NewPostgresDB(&s.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		return repository.NewSnapshotRepository(db, s.logger), nil
	}
}

func newRouteEngine(cfg *config.Config, logger *zap.Logger) (*route.Engine, error) {
	var manual route.ManualRouteSource
	if cfg.Guide.Route.ManualRoutesPath != "" {
		table, err := route.LoadManualRoutes(cfg.Guide.Route.ManualRoutesPath)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded manual routes", zap.Int("count", table.Len()))
		manual = table
	}

	var planner route.Planner
	if cfg.Guide.Planner.BaseURL != "" {
		planner = route.NewHTTPPlanner(
			cfg.Guide.Planner.BaseURL,
			cfg.Guide.Planner.Path,
			cfg.Guide.Planner.Timeout,
			cfg.Guide.Planner.RetryCount,
			logger,
		)
	} else {
		logger.Warn("Route planner not configured, using offline straight-line routes")
	}

	return route.NewEngine(manual, planner, route.Options{
		MetersPerUnit:      cfg.Guide.Route.MetersPerUnit,
		WalkingSpeed:       cfg.Guide.Route.WalkingSpeed,
		FloorChangePenalty: cfg.Guide.Route.FloorChangePenalty,
	}, logger), nil
}

// Guide 导诊核心（供 HTTP 层使用）
func (s *GuideService) Guide() *Guide {
	return s.guide
}

// Start 启动扫描消费者、排队事件消费者与快照轮询，阻塞到 ctx 取消或任一组件失败
func (s *GuideService) Start(ctx context.Context) error {
	s.logger.Info("Starting guide service",
		zap.String("data_source", s.config.Guide.Feed.DataSource),
		zap.String("scan_topic", s.config.Guide.ScanTopic),
		zap.String("route_stream", s.config.Guide.Stream.RouteStream),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 3)
	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errChan <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}
	run("scan consumer", s.scanConsumer.Start)
	run("queue consumer", s.queueConsumer.Start)
	run("feed poller", s.pollSnapshots)

	var err error
	select {
	case <-ctx.Done():
	case err = <-errChan:
	}
	cancel()
	wg.Wait()
	return err
}

// pollSnapshots 定时刷新全部会话的快照（排队事件之外的兜底）
func (s *GuideService) pollSnapshots(ctx context.Context) error {
	interval := s.config.Guide.Feed.PollInterval
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting snapshot polling", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.guide.RefreshAll(ctx)
		}
	}
}

// Stop 停止服务
func (s *GuideService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping guide service")

	if s.scanConsumer != nil {
		if err := s.scanConsumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping scan consumer", zap.Error(err))
		}
	}
	if s.guide != nil {
		s.guide.Shutdown()
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	s.closeStores()

	s.logger.Info("Guide service stopped")
	return nil
}

func (s *GuideService) closeStores() {
	if s.redisClient != nil {
		if err := rediscommon.Close(s.redisClient); err != nil {
			s.logger.Error("Error closing redis connection", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Error closing database connection", zap.Error(err))
		}
	}
}
