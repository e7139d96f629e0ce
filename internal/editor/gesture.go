package editor

import (
	"math"

	"certengine/internal/certificate"
)

// Canvas 是编辑器画布的当前渲染尺寸（像素）。
// 字段坐标始终以百分比存储，画布尺寸只用于指针增量换算。
type Canvas struct {
	Width  float64
	Height float64
}

// 吸附参数：5% 网格，中轴 ±3 个百分点内吸附到 50。
const (
	gridStep         = 5.0
	centerSnapRadius = 3.0
	pxPerPoint       = 2.0
)

// SnapPercent 对单轴百分比做收敛与吸附。
// 中轴吸附优先于网格吸附：原始值落在 50±3 内时直接取 50。
func SnapPercent(v float64) float64 {
	v = certificate.ClampPercent(v)
	if math.Abs(v-50) < centerSnapRadius {
		return 50
	}
	return certificate.ClampPercent(math.Round(v/gridStep) * gridStep)
}

// DragGesture 表示一次进行中的拖拽：
// pointer-down 时记录指针起点与字段起始像素位置，pointer-move 换算回百分比。
type DragGesture struct {
	canvas  Canvas
	startX  float64
	startY  float64
	originX float64
	originY float64
}

// BeginDrag 在字段上按下指针时开始拖拽。
func BeginDrag(canvas Canvas, f certificate.Field, pointerX, pointerY float64) *DragGesture {
	return &DragGesture{
		canvas:  canvas,
		startX:  pointerX,
		startY:  pointerY,
		originX: f.X / 100 * canvas.Width,
		originY: f.Y / 100 * canvas.Height,
	}
}

// Move 根据当前指针位置计算吸附后的百分比坐标。
func (g *DragGesture) Move(pointerX, pointerY float64) (x, y float64) {
	dx := pointerX - g.startX
	dy := pointerY - g.startY
	x = SnapPercent((g.originX + dx) / g.canvas.Width * 100)
	y = SnapPercent((g.originY + dy) / g.canvas.Height * 100)
	return x, y
}

// ResizeGesture 表示一次进行中的缩放：垂直指针增量按 2px/pt 映射到字号。
type ResizeGesture struct {
	startY      float64
	initialSize int
}

// BeginResize 在缩放手柄上按下指针时开始缩放。
func BeginResize(f certificate.Field, pointerY float64) *ResizeGesture {
	return &ResizeGesture{startY: pointerY, initialSize: f.FontSize}
}

// Move 根据当前指针位置计算新字号，下限 8pt。
func (g *ResizeGesture) Move(pointerY float64) int {
	dy := pointerY - g.startY
	return certificate.ClampFontSize(g.initialSize + int(math.Round(dy/pxPerPoint)))
}
