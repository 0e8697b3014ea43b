package journey

import (
	"sort"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// stateRank 活动记录优先级：in_progress > called > waiting
func stateRank(s models.QueueState) int {
	switch s {
	case models.QueueInProgress:
		return 0
	case models.QueueCalled:
		return 1
	case models.QueueWaiting:
		return 2
	}
	return 3
}

// SelectActiveEntry 选出当前活动排队记录
// 同级别按排号升序（未排号的排在最后），再按 queue_id 保证确定性
func SelectActiveEntry(entries []models.QueueEntry) *models.QueueEntry {
	active := make([]models.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.State.IsActive() {
			active = append(active, e)
		}
	}
	if len(active) == 0 {
		return nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if ra, rb := stateRank(a.State), stateRank(b.State); ra != rb {
			return ra < rb
		}
		if a.QueueNumber != b.QueueNumber {
			if a.QueueNumber <= 0 {
				return false
			}
			if b.QueueNumber <= 0 {
				return true
			}
			return a.QueueNumber < b.QueueNumber
		}
		return a.QueueID < b.QueueID
	})

	selected := active[0]
	return &selected
}
