package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Waypoint 规划服务返回的路径点
type Waypoint struct {
	NodeID string  `json:"node_id,omitempty"`
	Name   string  `json:"name,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Floor  string  `json:"floor"`
	Type   string  `json:"type,omitempty"` // elevator / stairs（换层点）
}

// Plan 规划结果
type Plan struct {
	MapID         string     `json:"map_id,omitempty"`
	Coordinates   []Waypoint `json:"coordinates"`
	Distance      float64    `json:"distance"`       // 米
	EstimatedTime int        `json:"estimated_time"` // 秒
}

// Planner 外部路线规划服务
type Planner interface {
	Plan(ctx context.Context, startNodeID, endNodeID string) (*Plan, error)
}

// HTTPPlanner 基于 HTTP 的规划服务客户端
type HTTPPlanner struct {
	httpClient *resty.Client
	path       string
	logger     *zap.Logger
}

// NewHTTPPlanner 创建规划服务客户端；超时由传输层负责
func NewHTTPPlanner(baseURL, path string, timeout time.Duration, retryCount int, logger *zap.Logger) *HTTPPlanner {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(1 * time.Second).
		SetHeader("Accept", "application/json")

	return &HTTPPlanner{
		httpClient: client,
		path:       path,
		logger:     logger,
	}
}

// Plan 调用规划服务
func (p *HTTPPlanner) Plan(ctx context.Context, startNodeID, endNodeID string) (*Plan, error) {
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"start": startNodeID,
			"end":   endNodeID,
		}).
		Get(p.path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, classifyTransportError(err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, &PlannerError{Kind: PlannerNotFound, StatusCode: resp.StatusCode(), Err: fmt.Errorf("no route from %s to %s", startNodeID, endNodeID)}
	case resp.StatusCode() >= 500:
		return nil, &PlannerError{Kind: PlannerServer, StatusCode: resp.StatusCode(), Err: fmt.Errorf("planner returned %s", resp.Status())}
	case resp.StatusCode() < 200 || resp.StatusCode() >= 300:
		return nil, &PlannerError{Kind: PlannerMalformed, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unexpected status %s", resp.Status())}
	}

	var plan Plan
	if err := json.Unmarshal(resp.Body(), &plan); err != nil {
		return nil, &PlannerError{Kind: PlannerMalformed, StatusCode: resp.StatusCode(), Err: err}
	}
	if err := validatePlan(&plan); err != nil {
		return nil, &PlannerError{Kind: PlannerMalformed, StatusCode: resp.StatusCode(), Err: err}
	}

	p.logger.Debug("Planner returned route",
		zap.String("start", startNodeID),
		zap.String("end", endNodeID),
		zap.Int("waypoints", len(plan.Coordinates)),
		zap.Float64("distance", plan.Distance),
	)
	return &plan, nil
}

func classifyTransportError(err error) *PlannerError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &PlannerError{Kind: PlannerTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &PlannerError{Kind: PlannerTimeout, Err: err}
	}
	return &PlannerError{Kind: PlannerNetwork, Err: err}
}

func validatePlan(plan *Plan) error {
	if len(plan.Coordinates) < 2 {
		return fmt.Errorf("plan has %d waypoints", len(plan.Coordinates))
	}
	for i, w := range plan.Coordinates {
		if math.IsNaN(w.X) || math.IsNaN(w.Y) || math.IsInf(w.X, 0) || math.IsInf(w.Y, 0) {
			return fmt.Errorf("waypoint %d has non-finite coordinates", i)
		}
	}
	if plan.Distance < 0 || plan.EstimatedTime < 0 {
		return fmt.Errorf("plan has negative distance or time")
	}
	return nil
}
