package destination

import (
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/journey"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// Resolver 由流程状态推导下一目的地
type Resolver struct {
	catalog *Catalog
}

// NewResolver 创建目的地解析器
func NewResolver(catalog *Catalog) *Resolver {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Resolver{catalog: catalog}
}

// Catalog 设施目录
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// NextDestination 下一目的地；返回 nil 表示无法导航，调用方不得自行猜测
func (r *Resolver) NextDestination(state models.JourneyState, appointments []models.Appointment, active *models.QueueEntry) *models.Destination {
	switch state {
	case models.JourneyUnregistered:
		return r.catalog.Lookup(FacilityEntrance)
	case models.JourneyArrived:
		return r.catalog.Lookup(FacilityRegistration)
	case models.JourneyRegistered:
		for _, a := range appointments {
			if a.Status.IsVoid() {
				continue
			}
			return fromExam(a.AppointmentID, a.Exam)
		}
		return nil
	case models.JourneyWaiting, models.JourneyCalled, models.JourneyInProgress:
		if active != nil {
			if exam, ok := journey.ExamForEntry(*active, appointments); ok {
				return fromExam(active.AppointmentID, exam)
			}
		}
		if next := firstOpen(appointments); next != nil {
			return fromExam(next.AppointmentID, next.Exam)
		}
		if len(appointments) > 0 && allDone(appointments) {
			return r.catalog.Lookup(FacilityPayment)
		}
		return nil
	case models.JourneyPayment:
		return r.catalog.Lookup(FacilityPayment)
	case models.JourneyFinished:
		return r.catalog.Lookup(FacilityExit)
	}
	return nil
}

// ForSnapshot 对快照做同步、解析、选活动记录后求目的地
func (r *Resolver) ForSnapshot(state models.JourneyState, s *models.PatientSnapshot) *models.Destination {
	appointments := journey.SyncAppointmentStatuses(s.Appointments, s.QueueEntries)
	return r.NextDestination(state, appointments, journey.SelectActiveEntry(s.QueueEntries))
}

// firstOpen 列表顺序中第一个尚未完成的预约
func firstOpen(appointments []models.Appointment) *models.Appointment {
	for i := range appointments {
		if appointments[i].Status.IsOpen() {
			return &appointments[i]
		}
	}
	return nil
}

func allDone(appointments []models.Appointment) bool {
	relevant := 0
	for _, a := range appointments {
		if a.Status.IsVoid() {
			continue
		}
		relevant++
		if !a.Status.IsCompleted() {
			return false
		}
	}
	return relevant > 0
}

func fromExam(id string, exam models.Exam) *models.Destination {
	if exam.LocationTagRef == "" {
		return nil
	}
	if exam.ExamID != "" {
		id = exam.ExamID
	}
	return &models.Destination{
		ID:             id,
		Title:          exam.Title,
		Building:       exam.Building,
		Floor:          exam.Floor,
		Room:           exam.Room,
		Coordinates:    exam.Coordinates(),
		LocationTagRef: exam.LocationTagRef,
		Description:    exam.Description,
	}
}
