package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// FixtureDataSource 固定快照数据源（演示与测试用，由配置显式选择）
type FixtureDataSource struct {
	mu        sync.RWMutex
	snapshots map[string]models.PatientSnapshot
	now       func() time.Time
}

// NewFixtureDataSource 使用给定快照；未登记的患者返回默认的两项检查数据
func NewFixtureDataSource(snapshots ...models.PatientSnapshot) *FixtureDataSource {
	f := &FixtureDataSource{
		snapshots: make(map[string]models.PatientSnapshot),
		now:       time.Now,
	}
	for _, s := range snapshots {
		f.snapshots[s.PatientID] = s
	}
	return f
}

// LoadFixtureDataSource 从 JSON 文件加载快照数组；路径为空时仅使用默认数据
func LoadFixtureDataSource(path string) (*FixtureDataSource, error) {
	if path == "" {
		return NewFixtureDataSource(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var snapshots []models.PatientSnapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return NewFixtureDataSource(snapshots...), nil
}

// Put 替换某位患者的快照
func (f *FixtureDataSource) Put(s models.PatientSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[s.PatientID] = s
}

// Snapshot 实现 DataSource；返回深拷贝
func (f *FixtureDataSource) Snapshot(ctx context.Context, patientID string) (*models.PatientSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	s, ok := f.snapshots[patientID]
	f.mu.RUnlock()
	if !ok {
		s = DefaultFixture(patientID)
	}

	out := s
	out.Appointments = append([]models.Appointment(nil), s.Appointments...)
	out.QueueEntries = append([]models.QueueEntry(nil), s.QueueEntries...)
	out.FetchedAt = f.now()
	return &out, nil
}

// DefaultFixture 两项待做检查（抽血、X 光），已挂号
func DefaultFixture(patientID string) models.PatientSnapshot {
	coord := func(v float64) *float64 { return &v }
	return models.PatientSnapshot{
		PatientID:    patientID,
		ProfileState: models.JourneyRegistered,
		Appointments: []models.Appointment{
			{
				AppointmentID: patientID + "-blood",
				Status:        models.AppointmentPending,
				Exam: models.Exam{
					ExamID: "blood_test", Title: "Blood Test", Department: "Laboratory",
					Building: "main", Floor: "1F", Room: "105",
					X: coord(380), Y: coord(300), LocationTagRef: "TAG-MAIN-1F-LAB",
					AverageDuration: 10, PreparationItems: []string{"fasting"},
				},
			},
			{
				AppointmentID: patientID + "-xray",
				Status:        models.AppointmentPending,
				Exam: models.Exam{
					ExamID: "xray", Title: "X-ray", Department: "Radiology",
					Building: "main", Floor: "2F", Room: "201",
					X: coord(300), Y: coord(200), LocationTagRef: "TAG-MAIN-2F-XRAY",
					AverageDuration: 15,
				},
			},
		},
		QueueEntries: []models.QueueEntry{},
	}
}
