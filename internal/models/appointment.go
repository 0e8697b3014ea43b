package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus 预约（检查）状态
type AppointmentStatus string

const (
	AppointmentScheduled  AppointmentStatus = "scheduled"
	AppointmentPending    AppointmentStatus = "pending"
	AppointmentWaiting    AppointmentStatus = "waiting"
	AppointmentCalled     AppointmentStatus = "called"
	AppointmentInProgress AppointmentStatus = "in_progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentExamined   AppointmentStatus = "examined"
	AppointmentDone       AppointmentStatus = "done"
	AppointmentDelayed    AppointmentStatus = "delayed"
	AppointmentNoShow     AppointmentStatus = "no_show"
	AppointmentCancelled  AppointmentStatus = "cancelled"
)

// normalizeToken 统一大小写、连字符与旧值 ongoing
func normalizeToken(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	switch v {
	case "ongoing":
		return "in_progress"
	case "noshow":
		return "no_show"
	case "canceled":
		return "cancelled"
	}
	return v
}

// NormalizeAppointmentStatus 规范化状态字符串；重复调用结果不变
func NormalizeAppointmentStatus(s string) AppointmentStatus {
	return AppointmentStatus(normalizeToken(s))
}

// IsCompleted completed / examined / done 都视为检查已完成
func (s AppointmentStatus) IsCompleted() bool {
	switch s {
	case AppointmentCompleted, AppointmentExamined, AppointmentDone:
		return true
	}
	return false
}

// IsVoid 取消或爽约，不计入检查总数
func (s AppointmentStatus) IsVoid() bool {
	return s == AppointmentCancelled || s == AppointmentNoShow
}

// IsOpen 仍需前往的检查
func (s AppointmentStatus) IsOpen() bool {
	return !s.IsCompleted() && !s.IsVoid()
}

// UnmarshalJSON 入口处规范化
func (s *AppointmentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeAppointmentStatus(raw)
	return nil
}

// Scan 实现 sql.Scanner，数据库读取时规范化
func (s *AppointmentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = ""
	case string:
		*s = NormalizeAppointmentStatus(v)
	case []byte:
		*s = NormalizeAppointmentStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AppointmentStatus", src)
	}
	return nil
}

// Value 实现 driver.Valuer
func (s AppointmentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Exam 检查项目及其所在位置
type Exam struct {
	ExamID           string   `json:"exam_id"`
	Title            string   `json:"title"`
	Department       string   `json:"department"`
	Building         string   `json:"building"`
	Floor            string   `json:"floor"`
	Room             string   `json:"room"`
	X                *float64 `json:"x,omitempty"`
	Y                *float64 `json:"y,omitempty"`
	LocationTagRef   string   `json:"location_tag_ref"`
	AverageDuration  int      `json:"average_duration"` // 分钟
	PreparationItems []string `json:"preparation_items,omitempty"`
	Description      string   `json:"description,omitempty"`
}

// Coordinates 静态坐标（未配置时为 nil）
func (e Exam) Coordinates() *Point {
	if e.X == nil || e.Y == nil {
		return nil
	}
	return &Point{X: *e.X, Y: *e.Y}
}

// Appointment 当日预约
type Appointment struct {
	AppointmentID string            `json:"appointment_id"`
	Exam          Exam              `json:"exam"`
	Status        AppointmentStatus `json:"status"`
	ScheduledAt   time.Time         `json:"scheduled_at"`
}
