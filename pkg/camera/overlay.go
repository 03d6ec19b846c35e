package camera

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// 叠加层绘制参数
const (
	overlayBorder   = 2
	overlayFontSize = 14.0
	overlayFontDPI  = 72.0
)

var (
	overlayFontOnce sync.Once
	overlayFont     *truetype.Font
	overlayFontErr  error
)

func loadOverlayFont() (*truetype.Font, error) {
	overlayFontOnce.Do(func() {
		overlayFont, overlayFontErr = freetype.ParseFont(goregular.TTF)
	})
	return overlayFont, overlayFontErr
}

// Annotate 在预览帧上绘制感兴趣区域边框与状态文字，用于调试快照。
// box 为帧内像素矩形，label 通常为当前阶段名。
func Annotate(img image.Image, box image.Rectangle, label string, c color.Color) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("图像为空")
	}

	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	box = box.Intersect(bounds)
	if !box.Empty() {
		drawBorder(dst, box, c)
	}

	if label != "" {
		if err := drawLabel(dst, box, label, c); err != nil {
			// 字体不可用时只画边框
			return dst, err
		}
	}

	return dst, nil
}

// drawBorder 绘制矩形边框
func drawBorder(dst *image.RGBA, box image.Rectangle, c color.Color) {
	for t := 0; t < overlayBorder; t++ {
		inner := box.Inset(t)
		if inner.Empty() {
			break
		}
		for x := inner.Min.X; x < inner.Max.X; x++ {
			dst.Set(x, inner.Min.Y, c)
			dst.Set(x, inner.Max.Y-1, c)
		}
		for y := inner.Min.Y; y < inner.Max.Y; y++ {
			dst.Set(inner.Min.X, y, c)
			dst.Set(inner.Max.X-1, y, c)
		}
	}
}

// drawLabel 在边框上方绘制状态文字
func drawLabel(dst *image.RGBA, box image.Rectangle, label string, c color.Color) error {
	f, err := loadOverlayFont()
	if err != nil {
		return fmt.Errorf("解析叠加层字体失败: %w", err)
	}

	fc := freetype.NewContext()
	fc.SetDPI(overlayFontDPI)
	fc.SetFont(f)
	fc.SetFontSize(overlayFontSize)
	fc.SetClip(dst.Bounds())
	fc.SetDst(dst)
	fc.SetSrc(image.NewUniform(c))
	fc.SetHinting(font.HintingNone)

	x := box.Min.X
	y := box.Min.Y - 6
	if y < int(overlayFontSize) {
		y = box.Min.Y + int(overlayFontSize) + 6
	}

	pt := freetype.Pt(x, y)
	if _, err := fc.DrawString(label, pt); err != nil {
		return fmt.Errorf("绘制文字失败: %w", err)
	}
	return nil
}
