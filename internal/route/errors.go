package route

import (
	"errors"
	"fmt"
)

// 前置条件错误：立即上报，不重试，不走离线降级
var (
	ErrMissingStart       = errors.New("route: missing start location tag")
	ErrMissingDestination = errors.New("route: missing destination identifier")
)

// ErrPlannerUnavailable 规划服务失败且无法离线降级
var ErrPlannerUnavailable = errors.New("route: planner unavailable")

// PlannerErrorKind 规划服务错误分类
type PlannerErrorKind string

const (
	PlannerNetwork   PlannerErrorKind = "network"
	PlannerTimeout   PlannerErrorKind = "timeout"
	PlannerNotFound  PlannerErrorKind = "not_found"
	PlannerServer    PlannerErrorKind = "server"
	PlannerMalformed PlannerErrorKind = "malformed"
)

// PlannerError 外部路线规划调用失败
type PlannerError struct {
	Kind       PlannerErrorKind
	StatusCode int
	Err        error
}

func (e *PlannerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("planner %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("planner %s: %v", e.Kind, e.Err)
}

func (e *PlannerError) Unwrap() error { return e.Err }

// Transient 网络 / 超时 / 服务端错误
func (e *PlannerError) Transient() bool {
	return e.Kind == PlannerNetwork || e.Kind == PlannerTimeout || e.Kind == PlannerServer
}

// IsPrecondition 是否为前置条件错误
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrMissingStart) || errors.Is(err, ErrMissingDestination)
}
