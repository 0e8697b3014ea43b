package syncbus

import (
	"sync"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/location"
	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// FeedbackGuard 防止路线计算自身的副作用（坐标回填）再次触发计算
type FeedbackGuard struct {
	mu    sync.Mutex
	armed map[uint64]int
}

// NewFeedbackGuard 创建防回环守卫
func NewFeedbackGuard() *FeedbackGuard {
	return &FeedbackGuard{armed: make(map[uint64]int)}
}

// Arm 在执行副作用前登记样本序号
func (g *FeedbackGuard) Arm(seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed[seq]++
}

// Disarm 副作用结束后撤销登记
func (g *FeedbackGuard) Disarm(seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.armed[seq] <= 1 {
		delete(g.armed, seq)
		return
	}
	g.armed[seq]--
}

// Swallow 事件是否应被吞掉：route_sync 来源或序号已登记
// 真实扫描会生成新序号，不受登记影响
func (g *FeedbackGuard) Swallow(ev location.ChangeEvent) bool {
	if ev.Origin == models.OriginRouteSync {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed[ev.Current.Seq] > 0
}

// MapKey 已加载地图的楼栋 + 楼层
type MapKey struct {
	Building string `json:"building"`
	Floor    string `json:"floor"`
	MapID    string `json:"map_id,omitempty"`
}

// MapKeyOf 位置样本所在地图
func MapKeyOf(s models.LocationSample) MapKey {
	return MapKey{Building: s.Building, Floor: s.Floor, MapID: s.MapID}
}

// NeedsMapReload 楼栋或楼层与已加载地图不同时才需要重新加载
// 样本未携带楼栋楼层时退化为比较 map_id；两者都没有时不重新加载
func NeedsMapReload(loaded *MapKey, next MapKey) bool {
	if next.Building == "" && next.Floor == "" {
		if next.MapID == "" {
			return false
		}
		return loaded == nil || loaded.MapID != next.MapID
	}
	if loaded == nil {
		return true
	}
	return loaded.Building != next.Building || loaded.Floor != next.Floor
}

// LocationChanged 与总线持有的上一样本相比是否为新位置
// 同一位置的重新扫描会产生新序号，同样视为变化
func LocationChanged(lastSeen *models.LocationSample, next models.LocationSample) bool {
	if lastSeen == nil {
		return true
	}
	if next.Seq != lastSeen.Seq {
		return next.Seq > lastSeen.Seq
	}
	return next.Timestamp.After(lastSeen.Timestamp)
}
