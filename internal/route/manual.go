package route

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// ManualRoute 人工标注的路线（节点、边、地图）
type ManualRoute struct {
	Name  string             `json:"name"`
	MapID string             `json:"map_id"`
	Nodes []models.RouteNode `json:"nodes"`
	Edges [][2]string        `json:"edges"`
}

// ManualRouteSource 人工路线查询；未找到不是错误
type ManualRouteSource interface {
	Lookup(ctx context.Context, facilityName string) (*ManualRoute, bool, error)
}

// ManualRouteTable 以设施名称为键的人工路线表
type ManualRouteTable struct {
	mu     sync.RWMutex
	routes map[string]ManualRoute
}

// NewManualRouteTable 创建路线表
func NewManualRouteTable(routes ...ManualRoute) *ManualRouteTable {
	t := &ManualRouteTable{routes: make(map[string]ManualRoute)}
	for _, r := range routes {
		t.Put(r)
	}
	return t
}

// Put 新增或覆盖一条路线；缺少边时按节点顺序连接
func (t *ManualRouteTable) Put(r ManualRoute) {
	if len(r.Edges) == 0 {
		r.Edges = chainEdges(r.Nodes)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[tableKey(r.Name)] = r
}

// Len 路线数量
func (t *ManualRouteTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

// Lookup 实现 ManualRouteSource
func (t *ManualRouteTable) Lookup(ctx context.Context, facilityName string) (*ManualRoute, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.routes[tableKey(facilityName)]
	if !ok {
		return nil, false, nil
	}
	out := ManualRoute{
		Name:  r.Name,
		MapID: r.MapID,
		Nodes: append([]models.RouteNode(nil), r.Nodes...),
		Edges: append([][2]string(nil), r.Edges...),
	}
	return &out, true, nil
}

func tableKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LoadManualRoutes 按扩展名加载路线表（.json / .xlsx）；路径为空时返回空表
func LoadManualRoutes(path string) (*ManualRouteTable, error) {
	if path == "" {
		return NewManualRouteTable(), nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadManualRoutesJSON(path)
	case ".xlsx":
		return LoadManualRoutesExcel(path)
	default:
		return nil, fmt.Errorf("unsupported manual route file: %s", path)
	}
}

// LoadManualRoutesJSON 从 JSON 加载路线表
// 格式：{"<设施名称>": {"map_id": "...", "nodes": [...], "edges": [["a","b"], ...]}}
func LoadManualRoutesJSON(path string) (*ManualRouteTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manual routes: %w", err)
	}
	var raw map[string]ManualRoute
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manual routes: %w", err)
	}

	table := NewManualRouteTable()
	for name, r := range raw {
		r.Name = name
		if err := validateManualRoute(r); err != nil {
			return nil, err
		}
		table.Put(r)
	}
	return table, nil
}

// LoadManualRoutesExcel 从工作簿加载路线表：每个工作表一条路线，表名即设施名称
// 表头：map_id | node_id | x | y | name | floor，行顺序即行走顺序
func LoadManualRoutesExcel(path string) (*ManualRouteTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manual route workbook: %w", err)
	}
	defer f.Close()

	table := NewManualRouteTable()
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		r, err := parseManualRouteRows(sheet, rows)
		if err != nil {
			return nil, err
		}
		if len(r.Nodes) == 0 {
			continue
		}
		table.Put(r)
	}
	return table, nil
}

func parseManualRouteRows(sheet string, rows [][]string) (ManualRoute, error) {
	r := ManualRoute{Name: sheet}
	if len(rows) < 2 {
		return r, nil
	}
	for i, row := range rows[1:] {
		line := i + 2
		cell := func(idx int) string {
			if idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		if cell(1) == "" {
			continue
		}
		if r.MapID == "" {
			r.MapID = cell(0)
		}
		x, err := strconv.ParseFloat(cell(2), 64)
		if err != nil {
			return r, fmt.Errorf("sheet %s row %d: invalid x: %w", sheet, line, err)
		}
		y, err := strconv.ParseFloat(cell(3), 64)
		if err != nil {
			return r, fmt.Errorf("sheet %s row %d: invalid y: %w", sheet, line, err)
		}
		r.Nodes = append(r.Nodes, models.RouteNode{
			ID:    cell(1),
			X:     x,
			Y:     y,
			Name:  cell(4),
			Floor: cell(5),
		})
	}
	r.Edges = chainEdges(r.Nodes)
	return r, nil
}

func validateManualRoute(r ManualRoute) error {
	ids := make(map[string]bool, len(r.Nodes))
	for _, n := range r.Nodes {
		if n.ID == "" {
			return fmt.Errorf("manual route %s: node without id", r.Name)
		}
		ids[n.ID] = true
	}
	for _, e := range r.Edges {
		if !ids[e[0]] || !ids[e[1]] {
			return fmt.Errorf("manual route %s: edge %s-%s references unknown node", r.Name, e[0], e[1])
		}
	}
	return nil
}
