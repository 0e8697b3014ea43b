package route

import (
	"math"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

// AxisEpsilon 判断某轴是否移动的阈值（地图单位）
const AxisEpsilon = 1.0

// Orthogonalize 将斜线段改写为先水平后垂直的两段直角线
// (x0,y0)->(x1,y1) 变为 (x0,y0)->(x1,y0)->(x1,y1)；只在一个轴上移动的线段保持不变
// 纯函数且幂等：对已正交的路径不做任何修改
func Orthogonalize(points []models.Point) []models.Point {
	if len(points) == 0 {
		return []models.Point{}
	}
	out := make([]models.Point, 0, len(points)*2)
	out = append(out, points[0])
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if isDiagonal(prev, cur) {
			out = append(out, models.Point{X: cur.X, Y: prev.Y})
		}
		out = append(out, cur)
	}
	return out
}

func isDiagonal(a, b models.Point) bool {
	return math.Abs(b.X-a.X) > AxisEpsilon && math.Abs(b.Y-a.Y) > AxisEpsilon
}

// orthogonalizeNodes 对同一楼层内的相邻节点做直角化，拐点继承前一节点的楼层
// 跨楼层的相邻节点不插入拐点
func orthogonalizeNodes(nodes []models.RouteNode) []models.RouteNode {
	if len(nodes) == 0 {
		return nodes
	}
	out := make([]models.RouteNode, 0, len(nodes)*2)
	out = append(out, nodes[0])
	for i := 1; i < len(nodes); i++ {
		prev, cur := nodes[i-1], nodes[i]
		if prev.Floor == cur.Floor && isDiagonal(models.Point{X: prev.X, Y: prev.Y}, models.Point{X: cur.X, Y: cur.Y}) {
			out = append(out, models.RouteNode{
				ID:    prev.ID + "~" + cur.ID,
				X:     cur.X,
				Y:     prev.Y,
				Floor: prev.Floor,
			})
		}
		out = append(out, cur)
	}
	return out
}

// chainEdges 按节点顺序生成简单路径的边
func chainEdges(nodes []models.RouteNode) [][2]string {
	if len(nodes) < 2 {
		return [][2]string{}
	}
	edges := make([][2]string, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		edges = append(edges, [2]string{nodes[i-1].ID, nodes[i].ID})
	}
	return edges
}

// pathLength 节点序列的折线长度（地图单位）
func pathLength(nodes []models.RouteNode) float64 {
	total := 0.0
	for i := 1; i < len(nodes); i++ {
		total += math.Hypot(nodes[i].X-nodes[i-1].X, nodes[i].Y-nodes[i-1].Y)
	}
	return total
}
