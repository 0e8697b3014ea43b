package journey

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// ErrIllegalTransition 解析结果无法沿流程图到达
var ErrIllegalTransition = errors.New("illegal journey transition")

// Machine 维护某位患者已采纳的流程状态
type Machine struct {
	mu     sync.Mutex
	state  models.JourneyState
	logger *zap.Logger
}

// NewMachine 创建状态机（初始无状态，首个解析结果直接采纳）
func NewMachine(logger *zap.Logger) *Machine {
	return &Machine{logger: logger}
}

// State 当前采纳的状态
func (m *Machine) State() models.JourneyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Advance 采纳新的解析结果
// 直接后继或图上可达（跳过中间状态）时采纳；不可达时保持原状态并返回 ErrIllegalTransition
func (m *Machine) Advance(next models.JourneyState) (models.JourneyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !next.Valid() {
		return m.state, fmt.Errorf("%w: unknown state %q", ErrIllegalTransition, next)
	}
	if m.state == "" || m.state == next {
		m.state = next
		return m.state, nil
	}
	if m.state.CanTransitionTo(next) {
		m.state = next
		return m.state, nil
	}
	if m.state.Reachable(next) {
		m.logger.Debug("Journey state skipped intermediate states",
			zap.String("from", string(m.state)),
			zap.String("to", string(next)),
		)
		m.state = next
		return m.state, nil
	}
	return m.state, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, next)
}
