package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// QueueState 排队记录状态
type QueueState string

const (
	QueueWaiting    QueueState = "waiting"
	QueueCalled     QueueState = "called"
	QueueInProgress QueueState = "in_progress"
	QueueCompleted  QueueState = "completed"
	QueueDelayed    QueueState = "delayed"
	QueueNoShow     QueueState = "no_show"
	QueueCancelled  QueueState = "cancelled"
)

// NormalizeQueueState 规范化排队状态（ongoing -> in_progress）
func NormalizeQueueState(s string) QueueState {
	return QueueState(normalizeToken(s))
}

// IsActive waiting / called / in_progress 为活动记录
func (s QueueState) IsActive() bool {
	return s == QueueWaiting || s == QueueCalled || s == QueueInProgress
}

// AppointmentStatus 排队状态在预约上的对应值
func (s QueueState) AppointmentStatus() AppointmentStatus {
	return AppointmentStatus(s)
}

// UnmarshalJSON 入口处规范化
func (s *QueueState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeQueueState(raw)
	return nil
}

// Scan 实现 sql.Scanner
func (s *QueueState) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = ""
	case string:
		*s = NormalizeQueueState(v)
	case []byte:
		*s = NormalizeQueueState(string(v))
	default:
		return fmt.Errorf("cannot scan %T into QueueState", src)
	}
	return nil
}

// Value 实现 driver.Valuer
func (s QueueState) Value() (driver.Value, error) {
	return string(s), nil
}

// QueueEntry 实时排队记录
type QueueEntry struct {
	QueueID       string     `json:"queue_id"`
	AppointmentID string     `json:"appointment_id"`
	Exam          *Exam      `json:"exam,omitempty"`
	State         QueueState `json:"state"`
	QueueNumber   int        `json:"queue_number"`
	EstimatedWait int        `json:"estimated_wait"` // 分钟
	UpdatedAt     time.Time  `json:"updated_at"`
}

// QueueEvent 排队状态变更事件（来自叫号系统）
type QueueEvent struct {
	PatientID string     `json:"patient_id"`
	QueueID   string     `json:"queue_id"`
	State     QueueState `json:"state"`
	Timestamp int64      `json:"timestamp"`
}
