package models

import "time"

// Point 平面坐标（地图像素坐标系）
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LocationOrigin 位置变更来源
type LocationOrigin string

const (
	OriginScan      LocationOrigin = "scan"       // NFC 扫描
	OriginRestore   LocationOrigin = "restore"    // 重启后从缓存恢复
	OriginRouteSync LocationOrigin = "route_sync" // 路线计算回填坐标
)

// RawScanEvent 原始扫描事件（NFC 标签）
type RawScanEvent struct {
	TagCode     string `json:"tag_code"`
	SourceLabel string `json:"source_label"`
	NodeID      string `json:"node_id,omitempty"`
	Position    *Point `json:"position,omitempty"`
	MapID       string `json:"map_id,omitempty"`
	Building    string `json:"building,omitempty"`
	Floor       string `json:"floor,omitempty"`
}

// LocationSample 规范化后的位置样本
type LocationSample struct {
	Seq         uint64    `json:"seq"`
	NodeID      string    `json:"node_id,omitempty"`
	Position    *Point    `json:"position,omitempty"`
	MapID       string    `json:"map_id,omitempty"`
	Building    string    `json:"building,omitempty"`
	Floor       string    `json:"floor,omitempty"`
	SourceLabel string    `json:"source_label"`
	TagCode     string    `json:"tag_code,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
