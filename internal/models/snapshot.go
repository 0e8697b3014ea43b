package models

import "time"

// PatientSnapshot 某一时刻的患者数据快照（一次解析内只读）
type PatientSnapshot struct {
	PatientID    string        `json:"patient_id"`
	ProfileState JourneyState  `json:"profile_state"`
	Appointments []Appointment `json:"appointments"`
	QueueEntries []QueueEntry  `json:"queue_entries"`
	FetchedAt    time.Time     `json:"fetched_at"`
}
