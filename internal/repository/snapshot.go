package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// SnapshotRepository 从 PostgreSQL 读取患者当日快照
type SnapshotRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSnapshotRepository 创建快照仓库
func NewSnapshotRepository(db *sql.DB, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot 实现 DataSource
func (r *SnapshotRepository) Snapshot(ctx context.Context, patientID string) (*models.PatientSnapshot, error) {
	state, err := r.GetProfileState(ctx, patientID)
	if err != nil {
		return nil, err
	}

	day := r.now().Format("2006-01-02")
	appointments, err := r.GetAppointments(ctx, patientID, day)
	if err != nil {
		return nil, err
	}
	entries, err := r.GetQueueEntries(ctx, patientID, day)
	if err != nil {
		return nil, err
	}

	return &models.PatientSnapshot{
		PatientID:    patientID,
		ProfileState: state,
		Appointments: appointments,
		QueueEntries: entries,
		FetchedAt:    r.now(),
	}, nil
}

// GetProfileState 服务端记录的流程状态
func (r *SnapshotRepository) GetProfileState(ctx context.Context, patientID string) (models.JourneyState, error) {
	query := `
		SELECT current_state
		FROM patient_profiles
		WHERE patient_id = $1
	`

	var raw string
	if err := r.db.QueryRowContext(ctx, query, patientID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrPatientNotFound
		}
		return "", fmt.Errorf("failed to query patient profile: %w", err)
	}

	state, err := models.ParseJourneyState(raw)
	if err != nil {
		return "", fmt.Errorf("patient %s: %w", patientID, err)
	}
	return state, nil
}

// GetAppointments 当日预约（含检查位置），按预约时间排序
func (r *SnapshotRepository) GetAppointments(ctx context.Context, patientID, day string) ([]models.Appointment, error) {
	query := `
		SELECT
			a.appointment_id,
			a.status,
			a.scheduled_at,
			e.exam_id,
			e.title,
			COALESCE(e.department, ''),
			COALESCE(e.building, ''),
			COALESCE(e.floor, ''),
			COALESCE(e.room, ''),
			e.x_coord,
			e.y_coord,
			COALESCE(e.location_tag_ref, ''),
			COALESCE(e.average_duration, 0),
			COALESCE(e.description, '')
		FROM appointments a
		INNER JOIN exams e ON e.exam_id = a.exam_id
		WHERE a.patient_id = $1
		  AND a.scheduled_at::date = $2::date
		ORDER BY a.scheduled_at, a.appointment_id
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	appointments := []models.Appointment{}
	for rows.Next() {
		var a models.Appointment
		var x, y sql.NullFloat64
		if err := rows.Scan(
			&a.AppointmentID,
			&a.Status,
			&a.ScheduledAt,
			&a.Exam.ExamID,
			&a.Exam.Title,
			&a.Exam.Department,
			&a.Exam.Building,
			&a.Exam.Floor,
			&a.Exam.Room,
			&x,
			&y,
			&a.Exam.LocationTagRef,
			&a.Exam.AverageDuration,
			&a.Exam.Description,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		if x.Valid && y.Valid {
			a.Exam.X = &x.Float64
			a.Exam.Y = &y.Float64
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}
	return appointments, nil
}

// GetQueueEntries 当日排队记录
func (r *SnapshotRepository) GetQueueEntries(ctx context.Context, patientID, day string) ([]models.QueueEntry, error) {
	query := `
		SELECT
			q.queue_id,
			COALESCE(q.appointment_id, ''),
			q.state,
			COALESCE(q.queue_number, 0),
			COALESCE(q.estimated_wait, 0),
			q.updated_at
		FROM queue_entries q
		WHERE q.patient_id = $1
		  AND q.created_at::date = $2::date
		ORDER BY q.queue_number, q.queue_id
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue entries: %w", err)
	}
	defer rows.Close()

	entries := []models.QueueEntry{}
	for rows.Next() {
		var e models.QueueEntry
		if err := rows.Scan(
			&e.QueueID,
			&e.AppointmentID,
			&e.State,
			&e.QueueNumber,
			&e.EstimatedWait,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entries: %w", err)
	}
	return entries, nil
}
