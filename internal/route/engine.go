package route

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// Start 路线起点：标签编号为必填键，坐标用于离线降级
// Position 缺失时离线降级使用 LastKnown（历史中最近一次带坐标的位置）
type Start struct {
	TagCode   string
	NodeID    string
	Position  *models.Point
	LastKnown *models.Point
	Floor     string
	MapID     string
}

// StartFromSample 由位置样本构造起点
func StartFromSample(s models.LocationSample) Start {
	return Start{
		TagCode:  s.TagCode,
		NodeID:   s.NodeID,
		Position: s.Position,
		Floor:    s.Floor,
		MapID:    s.MapID,
	}
}

// Options 路线引擎参数
type Options struct {
	MetersPerUnit      float64 // 地图单位换算为米
	WalkingSpeed       float64 // 米/秒
	FloorChangePenalty int     // 每次换层附加秒数
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		MetersPerUnit:      0.1,
		WalkingSpeed:       1.0,
		FloorChangePenalty: 60,
	}
}

// Engine 路线引擎：人工路线 > 规划服务 > 离线直线
type Engine struct {
	manual  ManualRouteSource
	planner Planner
	opts    Options
	logger  *zap.Logger
}

// NewEngine 创建路线引擎；manual / planner 可为 nil
func NewEngine(manual ManualRouteSource, planner Planner, opts Options, logger *zap.Logger) *Engine {
	if opts.MetersPerUnit <= 0 {
		opts.MetersPerUnit = DefaultOptions().MetersPerUnit
	}
	if opts.WalkingSpeed <= 0 {
		opts.WalkingSpeed = DefaultOptions().WalkingSpeed
	}
	return &Engine{
		manual:  manual,
		planner: planner,
		opts:    opts,
		logger:  logger,
	}
}

// ComputeRoute 计算从当前位置到目的地的路线
func (e *Engine) ComputeRoute(ctx context.Context, start Start, dest *models.Destination) (*models.RouteResult, error) {
	if strings.TrimSpace(start.TagCode) == "" {
		return nil, ErrMissingStart
	}
	if dest == nil || strings.TrimSpace(dest.LocationTagRef) == "" {
		return nil, ErrMissingDestination
	}

	// 1. 人工路线
	if e.manual != nil {
		manual, ok, err := e.manual.Lookup(ctx, dest.Title)
		if err == nil && !ok && dest.ID != "" && dest.ID != dest.Title {
			manual, ok, err = e.manual.Lookup(ctx, dest.ID)
		}
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.logger.Warn("Manual route lookup failed, falling back to planner",
				zap.String("destination", dest.Title),
				zap.Error(err),
			)
		case ok:
			return e.manualResult(manual), nil
		}
	}

	// 2. 规划服务
	var planErr error
	if e.planner != nil {
		plan, err := e.planner.Plan(ctx, start.TagCode, dest.LocationTagRef)
		if err == nil {
			return e.computedResult(plan), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		planErr = err
	} else {
		planErr = &PlannerError{Kind: PlannerNetwork, Err: errors.New("no planner configured")}
	}

	// 3. 离线降级
	if offline := e.offlineResult(start, dest, planErr); offline != nil {
		e.logger.Warn("Planner failed, using offline straight route",
			zap.String("start", start.TagCode),
			zap.String("destination", dest.LocationTagRef),
			zap.Error(planErr),
		)
		return offline, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrPlannerUnavailable, planErr)
}

func (e *Engine) manualResult(m *ManualRoute) *models.RouteResult {
	nodes := m.Nodes
	markTransitions(nodes, nil)
	return e.finish(&models.RouteResult{
		MapID: m.MapID,
		Nodes: nodes,
		Edges: m.Edges,
		Mode:  models.RouteModeManual,
	}, 0, 0)
}

func (e *Engine) computedResult(plan *Plan) *models.RouteResult {
	nodes := make([]models.RouteNode, len(plan.Coordinates))
	hints := make(map[string]string)
	for i, w := range plan.Coordinates {
		id := w.NodeID
		if id == "" {
			id = fmt.Sprintf("wp-%d", i)
		}
		nodes[i] = models.RouteNode{ID: id, X: w.X, Y: w.Y, Name: w.Name, Floor: w.Floor}
		if w.Type != "" {
			hints[id] = w.Type
		}
	}
	nodes = orthogonalizeNodes(nodes)
	markTransitions(nodes, hints)

	return e.finish(&models.RouteResult{
		MapID: plan.MapID,
		Nodes: nodes,
		Edges: chainEdges(nodes),
		Mode:  models.RouteModeComputed,
	}, plan.Distance, plan.EstimatedTime)
}

// origin 离线起点坐标：当前样本优先，其次最后已知坐标
func (s Start) origin() *models.Point {
	if s.Position != nil {
		return s.Position
	}
	return s.LastKnown
}

// offlineResult 两点直线；缺少任一端坐标时返回 nil
func (e *Engine) offlineResult(start Start, dest *models.Destination, cause error) *models.RouteResult {
	from := start.origin()
	if from == nil || dest.Coordinates == nil {
		return nil
	}
	startID := start.NodeID
	if startID == "" {
		startID = start.TagCode
	}
	nodes := []models.RouteNode{
		{ID: startID, X: from.X, Y: from.Y, Floor: start.Floor, Name: "current"},
		{ID: dest.LocationTagRef, X: dest.Coordinates.X, Y: dest.Coordinates.Y, Floor: dest.Floor, Name: dest.Title},
	}
	markTransitions(nodes, nil)

	return e.finish(&models.RouteResult{
		MapID:    start.MapID,
		Nodes:    nodes,
		Edges:    chainEdges(nodes),
		Mode:     models.RouteModeOffline,
		Advisory: offlineAdvisory(cause),
	}, 0, 0)
}

func offlineAdvisory(cause error) string {
	var pe *PlannerError
	if errors.As(cause, &pe) {
		switch pe.Kind {
		case PlannerTimeout, PlannerNetwork:
			return "route service unreachable; showing approximate direction"
		case PlannerNotFound:
			return "no indoor path found; showing approximate direction"
		}
	}
	return "route service unavailable; showing approximate direction"
}

// finish 补齐楼层、距离与预计时间
func (e *Engine) finish(r *models.RouteResult, distance float64, estimated int) *models.RouteResult {
	r.RouteID = uuid.New().String()
	r.FloorsInvolved = FloorsInvolved(r.Nodes)
	if distance <= 0 {
		distance = pathLength(r.Nodes) * e.opts.MetersPerUnit
	}
	r.TotalDistance = math.Round(distance*10) / 10
	if estimated <= 0 {
		estimated = int(math.Ceil(r.TotalDistance / e.opts.WalkingSpeed))
		if changes := len(r.FloorsInvolved) - 1; changes > 0 {
			estimated += changes * e.opts.FloorChangePenalty
		}
	}
	r.EstimatedTime = estimated
	if r.Edges == nil {
		r.Edges = [][2]string{}
	}
	return r
}
