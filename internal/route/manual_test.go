package route

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

func TestManualRouteTable_Lookup(t *testing.T) {
	table := NewManualRouteTable(ManualRoute{
		Name:  "Payment Desk",
		MapID: "main_1f",
		Nodes: []models.RouteNode{{ID: "a", X: 0, Y: 0}, {ID: "b", X: 10, Y: 0}},
	})
	require.Equal(t, 1, table.Len())

	r, ok, err := table.Lookup(context.Background(), "  payment desk ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [][2]string{{"a", "b"}}, r.Edges)

	// 返回副本
	r.Nodes[0].X = 99
	again, _, _ := table.Lookup(context.Background(), "Payment Desk")
	assert.Equal(t, 0.0, again.Nodes[0].X)

	_, ok, err = table.Lookup(context.Background(), "MRI")
	require.NoError(t, err)
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = table.Lookup(ctx, "Payment Desk")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadManualRoutesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"X-ray": {
			"map_id": "main_2f",
			"nodes": [{"id":"e1","x":10,"y":10,"floor":"1F","name":"Elevator"},{"id":"e2","x":10,"y":10,"floor":"2F"},{"id":"xr","x":80,"y":10,"floor":"2F"}],
			"edges": [["e1","e2"],["e2","xr"]]
		}
	}`), 0o644))

	table, err := LoadManualRoutes(path)
	require.NoError(t, err)
	r, ok, err := table.Lookup(context.Background(), "x-ray")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "main_2f", r.MapID)
	assert.Len(t, r.Nodes, 3)
	assert.Len(t, r.Edges, 2)
}

func TestLoadManualRoutesJSON_RejectsDanglingEdge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"CT":{"nodes":[{"id":"a"}],"edges":[["a","zz"]]}}`), 0o644))

	_, err := LoadManualRoutesJSON(path)
	assert.Error(t, err)
}

func TestLoadManualRoutesExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Blood Test"))
	rows := [][]interface{}{
		{"map_id", "node_id", "x", "y", "name", "floor"},
		{"main_1f", "n1", 10, 20, "Lobby", "1F"},
		{"main_1f", "n2", 10, 80, "Corridor", "1F"},
		{"main_1f", "n3", 60, 80, "Lab", "1F"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Blood Test", cell, &row))
	}
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := LoadManualRoutes(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	r, ok, err := table.Lookup(context.Background(), "blood test")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "main_1f", r.MapID)
	require.Len(t, r.Nodes, 3)
	assert.Equal(t, models.RouteNode{ID: "n3", X: 60, Y: 80, Name: "Lab", Floor: "1F"}, r.Nodes[2])
	assert.Equal(t, [][2]string{{"n1", "n2"}, {"n2", "n3"}}, r.Edges)
}

func TestParseManualRouteRows_InvalidCoordinate(t *testing.T) {
	_, err := parseManualRouteRows("CT", [][]string{
		{"map_id", "node_id", "x", "y"},
		{"m", "n1", "abc", "1"},
	})
	assert.Error(t, err)
}

func TestLoadManualRoutes_EmptyPathAndUnknownExt(t *testing.T) {
	table, err := LoadManualRoutes("")
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	_, err = LoadManualRoutes("routes.csv")
	assert.Error(t, err)
}
