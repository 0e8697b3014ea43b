package journey

import "github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"

// Resolve 根据服务端状态、当日预约与实时排队记录解析规范流程状态
// 纯函数：相同输入恒得相同输出；数据不完整时返回服务端原状态
func Resolve(profileState models.JourneyState, appointments []models.Appointment, entries []models.QueueEntry) models.JourneyState {
	// 挂号前忽略排队数据（即使存在过期记录）
	if profileState.IsPreRegistration() {
		return profileState
	}
	// 缴费 / 完成以服务端为准
	if profileState.IsTerminal() {
		return profileState
	}
	if len(appointments) == 0 && len(entries) == 0 {
		return profileState
	}

	if active := SelectActiveEntry(entries); active != nil {
		switch active.State {
		case models.QueueInProgress:
			return models.JourneyInProgress
		case models.QueueCalled:
			return models.JourneyCalled
		default:
			return models.JourneyWaiting
		}
	}

	if len(entries) > 0 && allCompleted(entries) {
		total := countRelevant(appointments)
		if len(entries) < total {
			// 仍有检查尚未签到排队
			return models.JourneyWaiting
		}
		return models.JourneyPayment
	}

	synced := SyncAppointmentStatuses(appointments, entries)
	total := countRelevant(synced)
	if total == 0 {
		return profileState
	}
	completed := 0
	for _, a := range synced {
		if a.Status.IsCompleted() {
			completed++
		}
	}
	switch {
	case completed == 0:
		return models.JourneyRegistered
	case completed < total:
		return models.JourneyWaiting
	default:
		return models.JourneyPayment
	}
}

// ResolveSnapshot Resolve 的快照形式
func ResolveSnapshot(s *models.PatientSnapshot) models.JourneyState {
	return Resolve(s.ProfileState, s.Appointments, s.QueueEntries)
}

func allCompleted(entries []models.QueueEntry) bool {
	for _, e := range entries {
		if e.State != models.QueueCompleted {
			return false
		}
	}
	return true
}

// countRelevant 取消 / 爽约的预约不计入总数
func countRelevant(appointments []models.Appointment) int {
	n := 0
	for _, a := range appointments {
		if !a.Status.IsVoid() {
			n++
		}
	}
	return n
}
