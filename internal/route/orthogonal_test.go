package route

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

func TestOrthogonalize_AxisAlignedUnchanged(t *testing.T) {
	path := []models.Point{{X: 100, Y: 50}, {X: 100, Y: 200}, {X: 300, Y: 200}}
	assert.Equal(t, path, Orthogonalize(path))
}

func TestOrthogonalize_Diagonal(t *testing.T) {
	got := Orthogonalize([]models.Point{{X: 100, Y: 50}, {X: 300, Y: 200}})
	assert.Equal(t, []models.Point{{X: 100, Y: 50}, {X: 300, Y: 50}, {X: 300, Y: 200}}, got)
}

func TestOrthogonalize_Idempotent(t *testing.T) {
	inputs := [][]models.Point{
		{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 0}, {X: 20.5, Y: 30}},
		{{X: 5, Y: 5}},
		{},
	}
	for _, in := range inputs {
		once := Orthogonalize(in)
		assert.Equal(t, once, Orthogonalize(once))
	}
}

func TestOrthogonalize_WithinEpsilon(t *testing.T) {
	// 小于阈值的偏移视为单轴移动
	path := []models.Point{{X: 0, Y: 0}, {X: 0.6, Y: 40}}
	assert.Equal(t, path, Orthogonalize(path))
}

func TestOrthogonalize_DoesNotMutateInput(t *testing.T) {
	in := []models.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}
	_ = Orthogonalize(in)
	assert.Len(t, in, 2)
}

func TestOrthogonalizeNodes_SkipsFloorChanges(t *testing.T) {
	nodes := []models.RouteNode{
		{ID: "a", X: 0, Y: 0, Floor: "1F"},
		{ID: "b", X: 10, Y: 10, Floor: "1F"},
		{ID: "c", X: 50, Y: 80, Floor: "2F"},
	}
	out := orthogonalizeNodes(nodes)
	assert.Len(t, out, 4)
	assert.Equal(t, "a~b", out[1].ID)
	assert.Equal(t, models.RouteNode{ID: "a~b", X: 10, Y: 0, Floor: "1F"}, out[1])
	assert.Equal(t, "c", out[3].ID)
}

func TestChainEdges(t *testing.T) {
	nodes := []models.RouteNode{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Equal(t, [][2]string{{"a", "b"}, {"b", "c"}}, chainEdges(nodes))
	assert.Empty(t, chainEdges(nodes[:1]))
}
