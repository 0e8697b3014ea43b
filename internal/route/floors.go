package route

import (
	"strings"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// FloorSegment 单一楼层上的子路径
type FloorSegment struct {
	Floor string             `json:"floor"`
	Nodes []models.RouteNode `json:"nodes"`
}

// FloorsInvolved 按经过顺序去重后的楼层列表
func FloorsInvolved(nodes []models.RouteNode) []string {
	seen := make(map[string]bool)
	floors := []string{}
	for _, n := range nodes {
		if n.Floor == "" || seen[n.Floor] {
			continue
		}
		seen[n.Floor] = true
		floors = append(floors, n.Floor)
	}
	return floors
}

// markTransitions 为换层节点打标签（该节点之后的节点位于另一楼层）
// hints 为节点 ID 到换层方式的提示（来自规划服务），缺省按名称推断
func markTransitions(nodes []models.RouteNode, hints map[string]string) {
	for i := 0; i+1 < len(nodes); i++ {
		cur, next := nodes[i].Floor, nodes[i+1].Floor
		if cur == "" || next == "" || cur == next {
			continue
		}
		nodes[i].Transition = &models.FloorTransition{
			Type:        transitionType(hints[nodes[i].ID], nodes[i].Name),
			TargetFloor: next,
		}
	}
}

func transitionType(hint, name string) models.TransitionType {
	for _, s := range []string{hint, name} {
		v := strings.ToLower(s)
		if strings.Contains(v, "stair") || strings.Contains(v, "계단") || strings.Contains(v, "楼梯") {
			return models.TransitionStairs
		}
	}
	return models.TransitionElevator
}

// FloorSegments 按楼层切分路线，展示层无需再推导楼层边界
// 带换层标签的节点即本段最后一个节点
func FloorSegments(r *models.RouteResult) []FloorSegment {
	var segments []FloorSegment
	for _, n := range r.Nodes {
		if len(segments) == 0 || segments[len(segments)-1].Floor != n.Floor {
			segments = append(segments, FloorSegment{Floor: n.Floor})
		}
		last := &segments[len(segments)-1]
		last.Nodes = append(last.Nodes, n)
	}
	return segments
}
