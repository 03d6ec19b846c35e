package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry 几何参数非法 (视口未测量或尺寸非正)
var ErrInvalidGeometry = errors.New("无效的几何参数")

// ComputeCropRegion 计算视口感兴趣区域对应的传感器裁剪区域。
//
// 返回的 CropRegion 在有效 (转正后) 传感器空间内，满足:
// X,Y >= 0, X+Width <= 有效宽, Y+Height <= 有效高, Width,Height >= 1。
//
// 缩放系数 (视口像素 → 传感器像素):
//   - FitCover:   scale = min(sw/vw, sh/vh)，预览溢出的部分是隐藏边距
//   - FitContain: scale = max(sw/vw, sh/vh)，黑边对应的偏移被钳为 0
//
// 视口未测量、传感器尺寸非正或旋转角度非法时返回 ErrInvalidGeometry。
func ComputeCropRegion(sensor SensorFrame, vp Viewport, rect RectOfInterest, fit FitMode) (CropRegion, error) {
	if !vp.Measured() {
		return CropRegion{}, fmt.Errorf("%w: 视口未测量 (%gx%g)", ErrInvalidGeometry, vp.Width, vp.Height)
	}
	if sensor.Width <= 0 || sensor.Height <= 0 {
		return CropRegion{}, fmt.Errorf("%w: 传感器尺寸非正 (%dx%d)", ErrInvalidGeometry, sensor.Width, sensor.Height)
	}
	if !sensor.Rotation.Valid() {
		return CropRegion{}, fmt.Errorf("%w: 非法旋转角度 %d", ErrInvalidGeometry, int(sensor.Rotation))
	}

	sensW, sensH := sensor.Effective()
	sw, sh := float64(sensW), float64(sensH)
	vw, vh := vp.Width, vp.Height

	// 感兴趣区域换算为视口像素并外扩
	x1, y1, x2, y2 := rect.resolve(vp)

	// 视口 → 传感器缩放系数
	scaleX := sw / vw
	scaleY := sh / vh
	var scale float64
	if fit == FitContain {
		scale = math.Max(scaleX, scaleY)
	} else {
		scale = math.Min(scaleX, scaleY)
	}

	// 视口在传感器画面中的居中偏移
	offsetX := math.Max(0, (sw-vw*scale)/2)
	offsetY := math.Max(0, (sh-vh*scale)/2)

	// 角点映射到传感器空间
	sx1 := offsetX + x1*scale
	sy1 := offsetY + y1*scale
	sx2 := offsetX + x2*scale
	sy2 := offsetY + y2*scale

	return clampRegion(sx1, sy1, sx2, sy2, sensW, sensH), nil
}

// FullRegion 覆盖整个有效传感器画面的裁剪区域，作为几何异常时的安全回退
func FullRegion(sensor SensorFrame) CropRegion {
	w, h := sensor.Effective()
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return CropRegion{X: 0, Y: 0, Width: w, Height: h}
}

// clampRegion 将浮点角点钳入传感器边界并整数化。
// 原点向下取整，边长四舍五入；边长被取整压成 0 时向内部扩为 1。
func clampRegion(sx1, sy1, sx2, sy2 float64, sensW, sensH int) CropRegion {
	x0 := clampFloat(sx1, 0, float64(sensW-1))
	y0 := clampFloat(sy1, 0, float64(sensH-1))
	xe := clampFloat(sx2, 0, float64(sensW))
	ye := clampFloat(sy2, 0, float64(sensH))

	originX := int(math.Floor(x0))
	originY := int(math.Floor(y0))
	width := int(math.Round(xe - x0))
	height := int(math.Round(ye - y0))

	if originX+width > sensW {
		width = sensW - originX
	}
	if originY+height > sensH {
		height = sensH - originY
	}

	// originX <= sensW-1 已由钳制保证，扩为 1 不会越界
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	return CropRegion{X: originX, Y: originY, Width: width, Height: height}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
