package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/cache"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/destination"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/journey"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/location"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/metrics"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/repository"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/syncbus"
)

var (
	// ErrUnknownFacility route-to 指定的设施不存在或不可导航
	ErrUnknownFacility = errors.New("unknown facility")
	// ErrNoRoute 尚无路线结果
	ErrNoRoute = errors.New("no route computed yet")
)

// Options 导诊核心参数
type Options struct {
	HistorySize    int
	StaleThreshold time.Duration
	ComputeTimeout time.Duration
}

// Session 单个患者的导诊会话
type Session struct {
	PatientID string
	Tracker   *location.Tracker
	Machine   *journey.Machine
	Bus       *syncbus.Bus
}

// JourneyView 流程状态与下一目的地
type JourneyView struct {
	PatientID   string              `json:"patient_id"`
	State       models.JourneyState `json:"state"`
	Destination *models.Destination `json:"destination"`
	ExploreMode bool                `json:"explore_mode"`
}

// LocationView 当前位置与历史
type LocationView struct {
	PatientID string                  `json:"patient_id"`
	Current   *models.LocationSample  `json:"current"`
	History   []models.LocationSample `json:"history"`
	Stale     bool                    `json:"stale"`
}

// Guide 管理患者会话，连接数据源、追踪器、状态机与同步总线
type Guide struct {
	source   repository.DataSource
	resolver *destination.Resolver
	engine   syncbus.RouteComputer
	listener syncbus.Listener
	cache    *cache.GuideCache
	opts     Options
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewGuide 创建导诊核心；guideCache 可为 nil
func NewGuide(
	source repository.DataSource,
	resolver *destination.Resolver,
	engine syncbus.RouteComputer,
	listener syncbus.Listener,
	guideCache *cache.GuideCache,
	opts Options,
	logger *zap.Logger,
) *Guide {
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = 10 * time.Minute
	}
	return &Guide{
		source:   source,
		resolver: resolver,
		engine:   engine,
		listener: listener,
		cache:    guideCache,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Session 获取或创建会话：首次接触时加载快照并从缓存恢复最后位置
// 快照与缓存读取不持有 g.mu，并发首次接触时以先登记者为准
func (g *Guide) Session(ctx context.Context, patientID string) (*Session, error) {
	if s, ok := g.lookup(patientID); ok {
		return s, nil
	}

	snapshot, err := g.source.Snapshot(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient %s: %w", patientID, err)
	}
	var cached *models.LocationSample
	if g.cache != nil {
		cached, err = g.cache.LoadLocation(ctx, patientID)
		if err != nil {
			if !errors.Is(err, cache.ErrCacheMiss) {
				g.logger.Warn("Failed to restore last location", zap.String("patient_id", patientID), zap.Error(err))
			}
			cached = nil
		}
	}

	tracker := location.NewTracker(patientID, g.opts.HistorySize, g.logger)
	machine := journey.NewMachine(g.logger.With(zap.String("patient_id", patientID)))
	bus := syncbus.NewBus(patientID, g.resolver, machine, g.engine, tracker, g.listener, g.opts.ComputeTimeout, g.logger)
	tracker.SetListener(bus)
	s := &Session{PatientID: patientID, Tracker: tracker, Machine: machine, Bus: bus}
	state := bus.UpdateSnapshot(snapshot)

	g.mu.Lock()
	if existing, ok := g.sessions[patientID]; ok {
		g.mu.Unlock()
		bus.Stop()
		return existing, nil
	}
	g.sessions[patientID] = s
	g.mu.Unlock()
	metrics.ActiveSessions.Inc()

	g.logger.Info("Guide session created",
		zap.String("patient_id", patientID),
		zap.String("state", string(state)),
	)
	if cached != nil {
		tracker.Restore(*cached)
	}
	return s, nil
}

func (g *Guide) lookup(patientID string) (*Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[patientID]
	return s, ok
}

// HandleScan 记录扫描；位置变化经同步总线触发路线计算
func (g *Guide) HandleScan(ctx context.Context, patientID string, raw models.RawScanEvent) (models.LocationSample, error) {
	s, err := g.Session(ctx, patientID)
	if err != nil {
		return models.LocationSample{}, err
	}

	sample, err := s.Tracker.RecordScan(raw)
	if err != nil {
		metrics.ScansTotal.WithLabelValues("rejected").Inc()
		g.logger.Warn("Rejected scan",
			zap.String("patient_id", patientID),
			zap.String("tag_code", raw.TagCode),
			zap.Error(err),
		)
		return models.LocationSample{}, err
	}
	metrics.ScansTotal.WithLabelValues("accepted").Inc()

	if g.cache != nil {
		if err := g.cache.SaveLocation(ctx, patientID, sample); err != nil {
			g.logger.Warn("Failed to cache location", zap.String("patient_id", patientID), zap.Error(err))
		}
	}
	return sample, nil
}

// Refresh 重新读取快照；未建立会话的患者忽略
func (g *Guide) Refresh(ctx context.Context, patientID string) error {
	s, ok := g.lookup(patientID)
	if !ok {
		return nil
	}
	return g.refresh(ctx, s)
}

// RefreshAll 刷新全部会话，单个失败不影响其他
func (g *Guide) RefreshAll(ctx context.Context) {
	for _, s := range g.activeSessions() {
		if err := g.refresh(ctx, s); err != nil {
			g.logger.Warn("Snapshot refresh failed", zap.String("patient_id", s.PatientID), zap.Error(err))
		}
	}
}

func (g *Guide) refresh(ctx context.Context, s *Session) error {
	start := time.Now()
	snapshot, err := g.source.Snapshot(ctx, s.PatientID)
	metrics.FeedRefreshSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to refresh patient %s: %w", s.PatientID, err)
	}
	s.Bus.UpdateSnapshot(snapshot)
	return nil
}

// SetExploreMode 切换浏览模式
func (g *Guide) SetExploreMode(ctx context.Context, patientID string, on bool) error {
	s, err := g.Session(ctx, patientID)
	if err != nil {
		return err
	}
	s.Bus.SetExploreMode(on)
	return nil
}

// RouteTo 手动导航到固定设施
func (g *Guide) RouteTo(ctx context.Context, patientID, facilityID string) error {
	dest := g.resolver.Catalog().Lookup(facilityID)
	if dest == nil {
		return fmt.Errorf("%w: %s", ErrUnknownFacility, facilityID)
	}
	s, err := g.Session(ctx, patientID)
	if err != nil {
		return err
	}
	s.Bus.RouteTo(dest)
	return nil
}

// Journey 当前状态与目的地
func (g *Guide) Journey(ctx context.Context, patientID string) (*JourneyView, error) {
	s, err := g.Session(ctx, patientID)
	if err != nil {
		return nil, err
	}
	state, dest := s.Bus.CurrentDestination()
	return &JourneyView{
		PatientID:   patientID,
		State:       state,
		Destination: dest,
		ExploreMode: s.Bus.ExploreMode(),
	}, nil
}

// LatestRoute 最新路线；会话内无结果时读取缓存
func (g *Guide) LatestRoute(ctx context.Context, patientID string) (*models.RouteRecord, error) {
	s, err := g.Session(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if u, ok := s.Bus.Latest(); ok {
		rec := ToRecord(u)
		return &rec, nil
	}
	if g.cache != nil {
		rec, err := g.cache.LoadRoute(ctx, patientID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			return nil, err
		}
	}
	return nil, ErrNoRoute
}

// Location 当前位置视图
func (g *Guide) Location(ctx context.Context, patientID string) (*LocationView, error) {
	s, err := g.Session(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return &LocationView{
		PatientID: patientID,
		Current:   s.Tracker.Current(),
		History:   s.Tracker.History(),
		Stale:     s.Tracker.IsStale(g.opts.StaleThreshold),
	}, nil
}

// EndSession 结束会话并清除缓存
func (g *Guide) EndSession(ctx context.Context, patientID string) error {
	g.mu.Lock()
	s, ok := g.sessions[patientID]
	delete(g.sessions, patientID)
	g.mu.Unlock()
	if !ok {
		return nil
	}

	s.Bus.Stop()
	metrics.ActiveSessions.Dec()
	if g.cache != nil {
		return g.cache.Forget(ctx, patientID)
	}
	return nil
}

// Wait 等待全部会话的进行中计算
func (g *Guide) Wait() {
	for _, s := range g.activeSessions() {
		s.Bus.Wait()
	}
}

// Shutdown 停止全部会话（保留缓存供重启恢复）
func (g *Guide) Shutdown() {
	g.mu.Lock()
	sessions := g.sessions
	g.sessions = make(map[string]*Session)
	g.mu.Unlock()

	for _, s := range sessions {
		s.Bus.Stop()
		metrics.ActiveSessions.Dec()
	}
}

func (g *Guide) activeSessions() []*Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		out = append(out, s)
	}
	return out
}
