package repository

import (
	"context"
	"errors"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// ErrPatientNotFound 患者档案不存在
var ErrPatientNotFound = errors.New("patient not found")

// DataSource 患者快照来源（live: 数据库；fixture: 固定数据）
type DataSource interface {
	Snapshot(ctx context.Context, patientID string) (*models.PatientSnapshot, error)
}
