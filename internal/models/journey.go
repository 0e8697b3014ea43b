package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JourneyState 患者就诊流程状态
type JourneyState string

const (
	JourneyUnregistered JourneyState = "UNREGISTERED" // 未挂号
	JourneyArrived      JourneyState = "ARRIVED"      // 已到院
	JourneyRegistered   JourneyState = "REGISTERED"   // 已挂号
	JourneyWaiting      JourneyState = "WAITING"      // 候诊
	JourneyCalled       JourneyState = "CALLED"       // 已叫号
	JourneyInProgress   JourneyState = "IN_PROGRESS"  // 检查中
	JourneyPayment      JourneyState = "PAYMENT"      // 待缴费
	JourneyFinished     JourneyState = "FINISHED"     // 已完成
)

// AllJourneyStates 按流程顺序排列的全部状态
var AllJourneyStates = []JourneyState{
	JourneyUnregistered,
	JourneyArrived,
	JourneyRegistered,
	JourneyWaiting,
	JourneyCalled,
	JourneyInProgress,
	JourneyPayment,
	JourneyFinished,
}

// journeyGraph 合法迁移表；IN_PROGRESS 是唯一有两个后继的状态
var journeyGraph = map[JourneyState][]JourneyState{
	JourneyUnregistered: {JourneyArrived},
	JourneyArrived:      {JourneyRegistered},
	JourneyRegistered:   {JourneyWaiting},
	JourneyWaiting:      {JourneyCalled},
	JourneyCalled:       {JourneyInProgress},
	JourneyInProgress:   {JourneyWaiting, JourneyPayment},
	JourneyPayment:      {JourneyFinished},
	JourneyFinished:     {},
}

// ParseJourneyState 解析服务端上报的状态字符串（忽略大小写与首尾空白）
func ParseJourneyState(s string) (JourneyState, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	state := JourneyState(v)
	if _, ok := journeyGraph[state]; !ok {
		return "", fmt.Errorf("unknown journey state: %q", s)
	}
	return state, nil
}

// Valid 是否为已定义状态
func (s JourneyState) Valid() bool {
	_, ok := journeyGraph[s]
	return ok
}

// Successors 直接后继状态
func (s JourneyState) Successors() []JourneyState {
	next := journeyGraph[s]
	out := make([]JourneyState, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo 是否存在 s -> next 的直接迁移
func (s JourneyState) CanTransitionTo(next JourneyState) bool {
	for _, candidate := range journeyGraph[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Reachable 沿迁移图能否从 s 到达 target（至少一步）
func (s JourneyState) Reachable(target JourneyState) bool {
	visited := map[JourneyState]bool{}
	queue := append([]JourneyState(nil), journeyGraph[s]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		queue = append(queue, journeyGraph[cur]...)
	}
	return false
}

// IsPreRegistration 挂号前状态（此时忽略排队数据）
func (s JourneyState) IsPreRegistration() bool {
	return s == JourneyUnregistered || s == JourneyArrived
}

// IsTerminal 缴费/完成状态，以服务端为准
func (s JourneyState) IsTerminal() bool {
	return s == JourneyPayment || s == JourneyFinished
}

// UnmarshalJSON 入口处统一规范化
func (s *JourneyState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*s = ""
		return nil
	}
	parsed, err := ParseJourneyState(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
