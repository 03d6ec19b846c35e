// Package geometry 提供预览视口与传感器像素空间之间的几何类型与坐标换算。
//
// 坐标空间说明:
//   1. 视口空间 (viewport)  — 屏幕上预览区域的 UI 像素，浮点
//   2. 原始传感器空间 (raw)  — 捕获硬件输出的原始像素，未经旋转
//   3. 有效传感器空间 (effective) — 原始像素按 RotationDegrees 转正后的像素
//
// 本包所有裁剪区域均在有效 (转正后) 传感器空间内表达。裁剪执行方
// 需要先把原始帧旋转到正向，再按 CropRegion 裁剪。
package geometry

import "image"

// Viewport 预览视口尺寸 (UI 像素)
// 零值表示"尚未测量"，与测量结果为 0 是不同的状态
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewViewport 创建视口
func NewViewport(width, height float64) Viewport {
	return Viewport{Width: width, Height: height}
}

// Measured 视口是否已完成测量 (两个维度均为正)
func (v Viewport) Measured() bool {
	return v.Width > 0 && v.Height > 0
}

// Rotation 传感器帧转正所需的旋转角度
type Rotation int

const (
	Rotation0   Rotation = 0
	Rotation90  Rotation = 90
	Rotation180 Rotation = 180
	Rotation270 Rotation = 270
)

// Valid 是否为合法旋转角度
func (r Rotation) Valid() bool {
	switch r {
	case Rotation0, Rotation90, Rotation180, Rotation270:
		return true
	default:
		return false
	}
}

// Swapped 旋转后宽高是否互换
func (r Rotation) Swapped() bool {
	return r == Rotation90 || r == Rotation270
}

// SensorFrame 传感器帧几何信息
// Width/Height 为捕获 API 报告的原始尺寸，Rotation 为转正所需旋转角度
type SensorFrame struct {
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Rotation Rotation `json:"rotation_degrees"`
}

// Effective 有效 (转正后) 尺寸，旋转 90/270 时宽高互换
func (s SensorFrame) Effective() (width, height int) {
	if s.Rotation.Swapped() {
		return s.Height, s.Width
	}
	return s.Width, s.Height
}

// FitMode 视口显示传感器画面的缩放方式
type FitMode int

const (
	// FitCover 放大至铺满视口，溢出部分被裁掉 (全屏预览的典型方式)
	FitCover FitMode = iota
	// FitContain 缩小至完整显示，视口内留黑边
	FitContain
)

func (f FitMode) String() string {
	switch f {
	case FitCover:
		return "cover"
	case FitContain:
		return "contain"
	default:
		return "unknown"
	}
}

// ParseFitMode 解析缩放方式字符串，无法识别时返回 FitCover
func ParseFitMode(s string) FitMode {
	switch s {
	case "contain", "CONTAIN", "Contain":
		return FitContain
	default:
		return FitCover
	}
}

// RectOfInterest 视口上的感兴趣区域
// 支持两种输入形式: 归一化矩形 ([0,1] 相对坐标) 或视口像素矩形，
// 内部统一按已知视口尺寸换算为像素。Padding 为对称外扩比例。
type RectOfInterest struct {
	x1, y1, x2, y2 float64
	normalized     bool
	padding        float64
}

// NormalizedRect 以归一化角点创建感兴趣区域
// 角点自动排序，保证 x1<=x2, y1<=y2
func NormalizedRect(x1, y1, x2, y2 float64) RectOfInterest {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return RectOfInterest{x1: x1, y1: y1, x2: x2, y2: y2, normalized: true}
}

// PixelRect 以视口像素矩形创建感兴趣区域
func PixelRect(x, y, width, height float64) RectOfInterest {
	x2 := x + width
	y2 := y + height
	if x > x2 {
		x, x2 = x2, x
	}
	if y > y2 {
		y, y2 = y2, y
	}
	return RectOfInterest{x1: x, y1: y, x2: x2, y2: y2}
}

// FullViewportRect 覆盖整个视口的感兴趣区域
func FullViewportRect() RectOfInterest {
	return NormalizedRect(0, 0, 1, 1)
}

// WithPadding 设置对称外扩比例 (相对区域自身宽高)，负值视为 0
func (r RectOfInterest) WithPadding(fraction float64) RectOfInterest {
	if fraction < 0 {
		fraction = 0
	}
	r.padding = fraction
	return r
}

// Normalized 是否为归一化输入
func (r RectOfInterest) Normalized() bool {
	return r.normalized
}

// Padding 当前外扩比例
func (r RectOfInterest) Padding() float64 {
	return r.padding
}

// resolve 将感兴趣区域换算为视口像素角点并应用外扩
func (r RectOfInterest) resolve(vp Viewport) (x1, y1, x2, y2 float64) {
	x1, y1, x2, y2 = r.x1, r.y1, r.x2, r.y2
	if r.normalized {
		x1 *= vp.Width
		x2 *= vp.Width
		y1 *= vp.Height
		y2 *= vp.Height
	}

	if r.padding > 0 {
		padX := r.padding * (x2 - x1)
		padY := r.padding * (y2 - y1)
		x1 -= padX
		x2 += padX
		y1 -= padY
		y2 += padY
	}
	return x1, y1, x2, y2
}

// CropRegion 有效传感器空间内的整数裁剪区域
type CropRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ToImageRect 转换为 image.Rectangle
func (c CropRegion) ToImageRect() image.Rectangle {
	return image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height)
}

// Within 区域是否完整落在给定尺寸内
func (c CropRegion) Within(width, height int) bool {
	return c.X >= 0 && c.Y >= 0 &&
		c.Width >= 1 && c.Height >= 1 &&
		c.X+c.Width <= width && c.Y+c.Height <= height
}
