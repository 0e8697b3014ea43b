package journey

import "github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"

// SyncAppointmentStatuses 单向同步：排队记录状态覆盖对应预约的状态，反向不成立
// 返回新切片，不修改入参
func SyncAppointmentStatuses(appointments []models.Appointment, entries []models.QueueEntry) []models.Appointment {
	out := make([]models.Appointment, len(appointments))
	copy(out, appointments)
	if len(entries) == 0 {
		return out
	}

	byAppointment := make(map[string]models.QueueEntry, len(entries))
	for _, e := range entries {
		if e.AppointmentID == "" || e.State == "" {
			continue
		}
		// 同一预约多条记录时取活动优先级更高者
		if prev, ok := byAppointment[e.AppointmentID]; ok && stateRank(prev.State) <= stateRank(e.State) {
			continue
		}
		byAppointment[e.AppointmentID] = e
	}

	for i := range out {
		if e, ok := byAppointment[out[i].AppointmentID]; ok {
			out[i].Status = e.State.AppointmentStatus()
		}
	}
	return out
}

// ExamForEntry 排队记录对应的检查：优先使用记录自带的 exam，否则按预约 ID 查找
func ExamForEntry(entry models.QueueEntry, appointments []models.Appointment) (models.Exam, bool) {
	if entry.Exam != nil {
		return *entry.Exam, true
	}
	for _, a := range appointments {
		if a.AppointmentID == entry.AppointmentID {
			return a.Exam, true
		}
	}
	return models.Exam{}, false
}
