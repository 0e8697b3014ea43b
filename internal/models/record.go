package models

import "time"

// RouteRecord 对外发布 / 缓存的路线更新
type RouteRecord struct {
	PatientID   string         `json:"patient_id"`
	Generation  uint64         `json:"generation"`
	Trigger     string         `json:"trigger"`
	State       JourneyState   `json:"state"`
	Sample      LocationSample `json:"sample"`
	Destination *Destination   `json:"destination,omitempty"`
	Route       *RouteResult   `json:"route,omitempty"`
	Error       string         `json:"error,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"` // missing_start / missing_destination / planner_unavailable
	ComputedAt  time.Time      `json:"computed_at"`
}
