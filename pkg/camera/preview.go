package camera

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/lumiscan/scanworker/pkg/geometry"
)

// RenderViewport 把转正后的传感器画面渲染成视口大小的预览帧，
// 与 UI 的 cover/contain 显示方式一致。检测谓词在预览帧上工作，
// 这样谓词看到的画面与用户看到的完全相同。
func RenderViewport(upright image.Image, vp geometry.Viewport, fit geometry.FitMode) (*image.RGBA, error) {
	if upright == nil {
		return nil, fmt.Errorf("图像为空")
	}
	if !vp.Measured() {
		return nil, fmt.Errorf("%w: 视口未测量", geometry.ErrInvalidGeometry)
	}

	vw := int(math.Round(vp.Width))
	vh := int(math.Round(vp.Height))
	if vw < 1 || vh < 1 {
		return nil, fmt.Errorf("%w: 视口尺寸过小 (%gx%g)", geometry.ErrInvalidGeometry, vp.Width, vp.Height)
	}

	bounds := upright.Bounds()
	sw := float64(bounds.Dx())
	sh := float64(bounds.Dy())
	if sw <= 0 || sh <= 0 {
		return nil, fmt.Errorf("%w: 源图像为空", geometry.ErrInvalidGeometry)
	}

	// 与 geometry.ComputeCropRegion 相同的缩放系数 (视口 → 传感器)
	scaleX := sw / vp.Width
	scaleY := sh / vp.Height
	var scale float64
	if fit == geometry.FitContain {
		scale = math.Max(scaleX, scaleY)
	} else {
		scale = math.Min(scaleX, scaleY)
	}

	dst := image.NewRGBA(image.Rect(0, 0, vw, vh))

	if fit == geometry.FitCover {
		// 只取画面中与视口对应的可见部分，溢出边距被裁掉
		offsetX := math.Max(0, (sw-vp.Width*scale)/2)
		offsetY := math.Max(0, (sh-vp.Height*scale)/2)
		srcRect := image.Rect(
			bounds.Min.X+int(math.Round(offsetX)),
			bounds.Min.Y+int(math.Round(offsetY)),
			bounds.Min.X+int(math.Round(offsetX+vp.Width*scale)),
			bounds.Min.Y+int(math.Round(offsetY+vp.Height*scale)),
		)
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), upright, srcRect.Intersect(bounds), xdraw.Src, nil)
		return dst, nil
	}

	// contain: 完整画面缩入视口，四周留黑边
	dstW := int(math.Round(sw / scale))
	dstH := int(math.Round(sh / scale))
	dx := (vw - dstW) / 2
	dy := (vh - dstH) / 2
	dstRect := image.Rect(dx, dy, dx+dstW, dy+dstH)
	xdraw.ApproxBiLinear.Scale(dst, dstRect, upright, bounds, xdraw.Src, nil)
	return dst, nil
}
