package models

// RouteMode 路线来源
type RouteMode string

const (
	RouteModeManual   RouteMode = "manual"
	RouteModeComputed RouteMode = "computed"
	RouteModeOffline  RouteMode = "offline"
)

// TransitionType 跨楼层方式
type TransitionType string

const (
	TransitionElevator TransitionType = "elevator"
	TransitionStairs   TransitionType = "stairs"
)

// FloorTransition 标记该节点为换层点
type FloorTransition struct {
	Type        TransitionType `json:"type"`
	TargetFloor string         `json:"target_floor"`
}

// RouteNode 路线节点
type RouteNode struct {
	ID         string           `json:"id"`
	X          float64          `json:"x"`
	Y          float64          `json:"y"`
	Name       string           `json:"name,omitempty"`
	Floor      string           `json:"floor,omitempty"`
	Transition *FloorTransition `json:"transition,omitempty"`
}

// RouteResult 路线结果；Mode 必填，展示层据此决定提示文案
type RouteResult struct {
	RouteID        string      `json:"route_id"`
	MapID          string      `json:"map_id,omitempty"`
	Nodes          []RouteNode `json:"nodes"`
	Edges          [][2]string `json:"edges"`
	TotalDistance  float64     `json:"total_distance"`
	EstimatedTime  int         `json:"estimated_time"` // 秒
	FloorsInvolved []string    `json:"floors_involved"`
	Mode           RouteMode   `json:"mode"`
	Advisory       string      `json:"advisory,omitempty"`
}

// Points 节点坐标序列
func (r *RouteResult) Points() []Point {
	pts := make([]Point, len(r.Nodes))
	for i, n := range r.Nodes {
		pts[i] = Point{X: n.X, Y: n.Y}
	}
	return pts
}
