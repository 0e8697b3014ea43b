package location

import (
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// DefaultHistorySize 默认历史长度
const DefaultHistorySize = 5

// ChangeEvent 位置变更事件
type ChangeEvent struct {
	PatientID string
	Origin    models.LocationOrigin
	Current   models.LocationSample
}

// Listener 位置变更的唯一订阅者
type Listener interface {
	OnLocationChanged(ev ChangeEvent)
}

// ListenerFunc 函数适配器
type ListenerFunc func(ev ChangeEvent)

// OnLocationChanged 实现 Listener
func (f ListenerFunc) OnLocationChanged(ev ChangeEvent) { f(ev) }

// Tracker 患者当前位置的唯一数据源
type Tracker struct {
	mu          sync.Mutex
	patientID   string
	current     *models.LocationSample
	history     []models.LocationSample // 最新在前
	historySize int
	seq         uint64
	listener    Listener
	now         func() time.Time
	logger      *zap.Logger
}

// NewTracker 创建位置追踪器
func NewTracker(patientID string, historySize int, logger *zap.Logger) *Tracker {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Tracker{
		patientID:   patientID,
		historySize: historySize,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock 替换时钟（测试用）
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// SetListener 注册唯一监听者（重复调用覆盖）
func (t *Tracker) SetListener(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = l
}

// RecordScan 记录一次扫描并设为当前位置
// 同一位置重复扫描同样刷新时间戳
func (t *Tracker) RecordScan(raw models.RawScanEvent) (models.LocationSample, error) {
	nodeID := strings.TrimSpace(raw.NodeID)
	if nodeID == "" && raw.Position == nil {
		return models.LocationSample{}, &LocationError{Code: CodeInvalidScan, Reason: "missing node id and coordinates"}
	}
	if raw.Position != nil && !finite(*raw.Position) {
		return models.LocationSample{}, &LocationError{Code: CodeInvalidScan, Reason: "non-finite coordinates"}
	}

	t.mu.Lock()
	ts := t.now()
	if t.current != nil && ts.Before(t.current.Timestamp) {
		// 时钟回拨时保持单调不减
		ts = t.current.Timestamp
	}
	t.seq++
	sample := models.LocationSample{
		Seq:         t.seq,
		NodeID:      nodeID,
		MapID:       strings.TrimSpace(raw.MapID),
		Building:    strings.TrimSpace(raw.Building),
		Floor:       strings.TrimSpace(raw.Floor),
		SourceLabel: raw.SourceLabel,
		TagCode:     strings.TrimSpace(raw.TagCode),
		Timestamp:   ts,
	}
	if raw.Position != nil {
		p := *raw.Position
		sample.Position = &p
	}
	t.pushLocked(sample)
	listener := t.listener
	t.mu.Unlock()

	t.logger.Debug("Recorded location scan",
		zap.String("patient_id", t.patientID),
		zap.String("tag_code", sample.TagCode),
		zap.String("node_id", sample.NodeID),
		zap.Uint64("seq", sample.Seq),
	)

	if listener != nil {
		listener.OnLocationChanged(ChangeEvent{PatientID: t.patientID, Origin: models.OriginScan, Current: cloneSample(sample)})
	}
	return cloneSample(sample), nil
}

// Restore 用缓存的最后位置重新初始化（仅在当前位置为空或更旧时生效）
func (t *Tracker) Restore(sample models.LocationSample) bool {
	t.mu.Lock()
	if t.current != nil && !sample.Timestamp.After(t.current.Timestamp) {
		t.mu.Unlock()
		return false
	}
	t.seq++
	sample.Seq = t.seq
	t.pushLocked(cloneSample(sample))
	listener := t.listener
	t.mu.Unlock()

	if listener != nil {
		listener.OnLocationChanged(ChangeEvent{PatientID: t.patientID, Origin: models.OriginRestore, Current: cloneSample(sample)})
	}
	return true
}

// Reconcile 用路线起点的权威坐标回填当前样本（仅当样本仍是 seq 且缺少坐标）
// 时间戳不变
func (t *Tracker) Reconcile(seq uint64, position models.Point) error {
	t.mu.Lock()
	if t.current == nil || t.current.Seq != seq {
		t.mu.Unlock()
		return &LocationError{Code: CodeStaleSeq, Reason: "current sample has been superseded"}
	}
	if t.current.Position != nil {
		t.mu.Unlock()
		return nil
	}
	p := position
	t.current.Position = &p
	updated := cloneSample(*t.current)
	listener := t.listener
	t.mu.Unlock()

	if listener != nil {
		listener.OnLocationChanged(ChangeEvent{PatientID: t.patientID, Origin: models.OriginRouteSync, Current: updated})
	}
	return nil
}

// Current 当前位置；无样本时返回 nil
func (t *Tracker) Current() *models.LocationSample {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	s := cloneSample(*t.current)
	return &s
}

// History 历史样本（最新在前，不含当前）
func (t *Tracker) History() []models.LocationSample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.LocationSample, len(t.history))
	for i, s := range t.history {
		out[i] = cloneSample(s)
	}
	return out
}

// IsStale 无样本或样本时间超过阈值
func (t *Tracker) IsStale(threshold time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return true
	}
	return t.now().Sub(t.current.Timestamp) > threshold
}

// TagCode 当前样本的物理标签编号，作为路线计算起点
func (t *Tracker) TagCode() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || t.current.TagCode == "" {
		return "", false
	}
	return t.current.TagCode, true
}

func (t *Tracker) pushLocked(sample models.LocationSample) {
	if t.current != nil {
		t.history = append([]models.LocationSample{*t.current}, t.history...)
		if len(t.history) > t.historySize {
			t.history = t.history[:t.historySize]
		}
	}
	t.current = &sample
}

func cloneSample(s models.LocationSample) models.LocationSample {
	if s.Position != nil {
		p := *s.Position
		s.Position = &p
	}
	return s
}

func finite(p models.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
