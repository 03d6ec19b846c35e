package detect

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/lumiscan/scanworker/internal/logger"
)

// ContourConfig 轮廓检测配置
type ContourConfig struct {
	// MinAreaFraction 候选四边形面积占画面面积的下限
	MinAreaFraction float64
	// MaxAreaFraction 候选四边形面积占画面面积的上限
	MaxAreaFraction float64
	// CannyLow Canny 边缘检测低阈值
	CannyLow float32
	// CannyHigh Canny 边缘检测高阈值
	CannyHigh float32
	// ApproxEpsilonRatio 多边形逼近精度 (相对轮廓周长)
	ApproxEpsilonRatio float64
}

// DefaultContourConfig 默认轮廓检测配置
func DefaultContourConfig() ContourConfig {
	return ContourConfig{
		MinAreaFraction:    0.15,
		MaxAreaFraction:    0.98,
		CannyLow:           50,
		CannyHigh:          150,
		ApproxEpsilonRatio: 0.02,
	}
}

// ContourPredicate 四边形轮廓谓词
// 在画面中寻找占比合适的凸四边形轮廓 (证件、票据、相纸等)
type ContourPredicate struct {
	cfg ContourConfig
	log *logger.Logger
}

// NewContourPredicate 创建轮廓谓词
func NewContourPredicate(cfg ContourConfig) *ContourPredicate {
	if cfg.MinAreaFraction <= 0 {
		cfg.MinAreaFraction = DefaultContourConfig().MinAreaFraction
	}
	if cfg.MaxAreaFraction <= 0 || cfg.MaxAreaFraction > 1 {
		cfg.MaxAreaFraction = DefaultContourConfig().MaxAreaFraction
	}
	if cfg.ApproxEpsilonRatio <= 0 {
		cfg.ApproxEpsilonRatio = DefaultContourConfig().ApproxEpsilonRatio
	}
	return &ContourPredicate{
		cfg: cfg,
		log: logger.Default().With("contour"),
	}
}

// Match 检测画面中是否存在凸四边形候选
func (p *ContourPredicate) Match(img image.Image) (bool, error) {
	if img == nil {
		return false, fmt.Errorf("图像为空")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return false, fmt.Errorf("图像转换失败: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, p.cfg.CannyLow, p.cfg.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	frameArea := float64(mat.Cols() * mat.Rows())
	if frameArea <= 0 {
		return false, nil
	}

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		area := gocv.ContourArea(contour)
		fraction := area / frameArea
		if fraction < p.cfg.MinAreaFraction || fraction > p.cfg.MaxAreaFraction {
			continue
		}

		perimeter := gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, p.cfg.ApproxEpsilonRatio*perimeter, true)

		quad := approx.Size() == 4 && gocv.IsContourConvex(approx)
		approx.Close()
		if quad {
			p.log.Debug("发现四边形候选: 面积占比 %.2f", fraction)
			return true, nil
		}
	}

	return false, nil
}
