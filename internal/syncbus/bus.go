package syncbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/destination"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/journey"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/location"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/metrics"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/route"
)

// 触发原因
const (
	TriggerLocation       = "location"
	TriggerSnapshot       = "snapshot"
	TriggerExploreCleared = "explore_cleared"
	TriggerManual         = "manual"
)

// RouteComputer 路线计算
type RouteComputer interface {
	ComputeRoute(ctx context.Context, start route.Start, dest *models.Destination) (*models.RouteResult, error)
}

// Reconciler 回填当前样本坐标（由位置追踪器实现）
type Reconciler interface {
	Reconcile(seq uint64, position models.Point) error
}

// RouteUpdate 发布给订阅者的计算结果
// Destination 为 nil 表示无法导航；Err 为前置条件或规划失败
type RouteUpdate struct {
	PatientID   string                `json:"patient_id"`
	Generation  uint64                `json:"generation"`
	Trigger     string                `json:"trigger"`
	Sample      models.LocationSample `json:"sample"`
	State       models.JourneyState   `json:"state"`
	Destination *models.Destination   `json:"destination,omitempty"`
	Route       *models.RouteResult   `json:"route,omitempty"`
	Err         error                 `json:"-"`
	ComputedAt  time.Time             `json:"computed_at"`
}

// Listener 总线输出
type Listener interface {
	RouteUpdated(u RouteUpdate)
	MapReloadRequested(patientID string, key MapKey)
}

// Bus 位置变化 -> 目的地 -> 路线 的响应式传播
type Bus struct {
	patientID  string
	resolver   *destination.Resolver
	machine    *journey.Machine
	engine     RouteComputer
	reconciler Reconciler
	listener   Listener
	guard      *FeedbackGuard
	timeout    time.Duration
	logger     *zap.Logger

	mu         sync.Mutex
	snapshot   *models.PatientSnapshot
	lastSeen   *models.LocationSample
	lastKnown  *models.Point
	knownSeq   uint64
	loadedMap  *MapKey
	explore    bool
	generation uint64
	cancel     context.CancelFunc
	lastDestID string
	latest     *RouteUpdate

	deliverMu sync.Mutex
	wg        sync.WaitGroup
}

// NewBus 创建同步总线
func NewBus(
	patientID string,
	resolver *destination.Resolver,
	machine *journey.Machine,
	engine RouteComputer,
	reconciler Reconciler,
	listener Listener,
	timeout time.Duration,
	logger *zap.Logger,
) *Bus {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Bus{
		patientID:  patientID,
		resolver:   resolver,
		machine:    machine,
		engine:     engine,
		reconciler: reconciler,
		listener:   listener,
		guard:      NewFeedbackGuard(),
		timeout:    timeout,
		logger:     logger.With(zap.String("patient_id", patientID)),
	}
}

type job struct {
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	trigger string
	sample  models.LocationSample
	start   route.Start
	state   models.JourneyState
	dest    *models.Destination
}

// OnLocationChanged 实现 location.Listener，是追踪器唯一的订阅者
func (b *Bus) OnLocationChanged(ev location.ChangeEvent) {
	b.mu.Lock()
	b.rememberPositionLocked(ev.Current)
	b.mu.Unlock()

	if b.guard.Swallow(ev) {
		b.logger.Debug("Ignored self-originated location update",
			zap.String("origin", string(ev.Origin)),
			zap.Uint64("seq", ev.Current.Seq),
		)
		return
	}

	b.mu.Lock()
	if !LocationChanged(b.lastSeen, ev.Current) {
		b.mu.Unlock()
		return
	}
	cur := ev.Current
	b.lastSeen = &cur
	if b.explore {
		b.mu.Unlock()
		b.logger.Debug("Explore mode active, skipping recomputation", zap.Uint64("seq", cur.Seq))
		return
	}
	key := MapKeyOf(cur)
	reload := NeedsMapReload(b.loadedMap, key)
	if reload {
		b.loadedMap = &key
	}
	j := b.prepareLocked(TriggerLocation, cur, nil)
	b.mu.Unlock()

	if reload {
		metrics.MapReloadsTotal.Inc()
		b.listener.MapReloadRequested(b.patientID, key)
	}
	b.launch(j)
}

// UpdateSnapshot 数据刷新：解析流程状态，目的地变化或上次计算失败时重新计算路线
func (b *Bus) UpdateSnapshot(s *models.PatientSnapshot) models.JourneyState {
	resolved := journey.ResolveSnapshot(s)
	state, err := b.machine.Advance(resolved)
	if err != nil {
		b.logger.Warn("Rejected journey transition",
			zap.String("resolved", string(resolved)),
			zap.String("kept", string(state)),
			zap.Error(err),
		)
	}

	b.mu.Lock()
	b.snapshot = s
	if b.explore || b.lastSeen == nil {
		b.mu.Unlock()
		return state
	}
	dest := b.resolver.ForSnapshot(state, s)
	if destKey(dest) == b.lastDestID && !b.retryableLocked(dest) {
		b.mu.Unlock()
		return state
	}
	j := b.prepareLocked(TriggerSnapshot, *b.lastSeen, nil)
	b.mu.Unlock()

	b.launch(j)
	return state
}

// SetExploreMode 进入浏览模式时暂停自动计算；退出时按最后位置重新计算
func (b *Bus) SetExploreMode(on bool) {
	b.mu.Lock()
	changed := b.explore != on
	b.explore = on
	if !changed {
		b.mu.Unlock()
		return
	}
	if on {
		// 丢弃进行中的计算
		b.generation++
		if b.cancel != nil {
			b.cancel()
			b.cancel = nil
		}
		b.mu.Unlock()
		b.logger.Info("Explore mode enabled")
		return
	}
	if b.lastSeen == nil {
		b.mu.Unlock()
		b.logger.Info("Explore mode cleared")
		return
	}
	sample := *b.lastSeen
	key := MapKeyOf(sample)
	reload := NeedsMapReload(b.loadedMap, key)
	if reload {
		b.loadedMap = &key
	}
	j := b.prepareLocked(TriggerExploreCleared, sample, nil)
	b.mu.Unlock()

	b.logger.Info("Explore mode cleared, recomputing route")
	if reload {
		metrics.MapReloadsTotal.Inc()
		b.listener.MapReloadRequested(b.patientID, key)
	}
	b.launch(j)
}

// ExploreMode 是否处于浏览模式
func (b *Bus) ExploreMode() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.explore
}

// RouteTo 手动指定目的地（浏览模式下查看某设施路线）
func (b *Bus) RouteTo(dest *models.Destination) {
	b.mu.Lock()
	var sample models.LocationSample
	if b.lastSeen != nil {
		sample = *b.lastSeen
	}
	j := b.prepareLocked(TriggerManual, sample, dest)
	b.mu.Unlock()

	b.launch(j)
}

// Latest 最近一次发布的结果
func (b *Bus) Latest() (RouteUpdate, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return RouteUpdate{}, false
	}
	return *b.latest, true
}

// CurrentDestination 按最新快照与已采纳状态求目的地
func (b *Bus) CurrentDestination() (models.JourneyState, *models.Destination) {
	state := b.machine.State()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snapshot == nil {
		return state, nil
	}
	return state, b.resolver.ForSnapshot(state, b.snapshot)
}

// Wait 等待进行中的计算结束
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Stop 取消进行中的计算并等待其退出
func (b *Bus) Stop() {
	b.mu.Lock()
	b.generation++
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.mu.Unlock()
	b.wg.Wait()
}

// prepareLocked 新建一代计算并取消上一代；调用方持有 b.mu
func (b *Bus) prepareLocked(trigger string, sample models.LocationSample, override *models.Destination) job {
	b.generation++
	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	b.cancel = cancel

	state := b.machine.State()
	dest := override
	if dest == nil && b.snapshot != nil {
		dest = b.resolver.ForSnapshot(state, b.snapshot)
	}
	if override == nil {
		b.lastDestID = destKey(dest)
	}

	start := route.StartFromSample(sample)
	if start.Position == nil && b.lastKnown != nil {
		p := *b.lastKnown
		start.LastKnown = &p
	}

	return job{
		gen:     b.generation,
		ctx:     ctx,
		cancel:  cancel,
		trigger: trigger,
		sample:  sample,
		start:   start,
		state:   state,
		dest:    dest,
	}
}

// rememberPositionLocked 记录最近一次带坐标的样本；调用方持有 b.mu
func (b *Bus) rememberPositionLocked(s models.LocationSample) {
	if s.Position == nil || (b.lastKnown != nil && s.Seq < b.knownSeq) {
		return
	}
	p := *s.Position
	b.lastKnown = &p
	b.knownSeq = s.Seq
}

func (b *Bus) launch(j job) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer j.cancel()
		b.run(j)
	}()
}

func (b *Bus) run(j job) {
	u := RouteUpdate{
		PatientID:   b.patientID,
		Generation:  j.gen,
		Trigger:     j.trigger,
		Sample:      j.sample,
		State:       j.state,
		Destination: j.dest,
	}
	if j.dest != nil {
		u.Route, u.Err = b.engine.ComputeRoute(j.ctx, j.start, j.dest)
	}
	u.ComputedAt = time.Now()
	b.deliver(j, u)
}

// deliver 仅发布最新一代的结果（后写者胜）
func (b *Bus) deliver(j job, u RouteUpdate) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	superseded := j.gen != b.generation
	b.mu.Unlock()
	if superseded || errors.Is(u.Err, context.Canceled) {
		metrics.RoutesDiscardedTotal.Inc()
		b.logger.Debug("Discarded superseded route result", zap.Uint64("generation", j.gen))
		return
	}

	if u.Route != nil && u.Route.Mode == models.RouteModeComputed && j.sample.Position == nil && len(u.Route.Nodes) > 0 {
		b.reconcileStart(j.sample.Seq, models.Point{X: u.Route.Nodes[0].X, Y: u.Route.Nodes[0].Y})
	}

	b.mu.Lock()
	latest := u
	b.latest = &latest
	b.mu.Unlock()

	if u.Err != nil {
		b.logger.Warn("Route computation failed",
			zap.String("trigger", u.Trigger),
			zap.Bool("precondition", route.IsPrecondition(u.Err)),
			zap.Error(u.Err),
		)
	}
	b.listener.RouteUpdated(u)
}

// reconcileStart 用规划结果起点回填缺少坐标的样本；回填引发的位置事件被守卫吞掉
func (b *Bus) reconcileStart(seq uint64, p models.Point) {
	if b.reconciler == nil {
		return
	}
	b.guard.Arm(seq)
	err := b.reconciler.Reconcile(seq, p)
	b.guard.Disarm(seq)
	if err != nil {
		b.logger.Debug("Skipped start reconciliation", zap.Error(err))
		return
	}

	b.mu.Lock()
	if b.lastSeen != nil && b.lastSeen.Seq == seq && b.lastSeen.Position == nil {
		pos := p
		b.lastSeen.Position = &pos
	}
	b.rememberPositionLocked(models.LocationSample{Seq: seq, Position: &p})
	b.mu.Unlock()
}

// retryableLocked 同一目的地的上次结果为非前置条件失败（如规划服务不可用）时允许重算
func (b *Bus) retryableLocked(dest *models.Destination) bool {
	if b.latest == nil || b.latest.Err == nil || route.IsPrecondition(b.latest.Err) {
		return false
	}
	return destKey(b.latest.Destination) == destKey(dest)
}

func destKey(d *models.Destination) string {
	if d == nil {
		return ""
	}
	return d.ID + "|" + d.LocationTagRef
}
