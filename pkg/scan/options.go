package scan

import (
	"github.com/lumiscan/scanworker/internal/logger"
	"github.com/lumiscan/scanworker/pkg/geometry"
)

// Option 控制器配置选项函数类型
type Option func(*Options)

// Options 控制器配置
type Options struct {
	cropper      Cropper
	log          *logger.Logger
	rect         geometry.RectOfInterest
	fit          geometry.FitMode
	onPhase      func(Phase)
	resultBuffer int
}

// defaultOptions 默认控制器配置
func defaultOptions() *Options {
	return &Options{
		log:          logger.Default().With("scan"),
		rect:         geometry.FullViewportRect(),
		fit:          geometry.FitCover,
		resultBuffer: 4,
	}
}

// applyOptions 应用配置选项
func applyOptions(opts ...Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.resultBuffer < 1 {
		o.resultBuffer = 1
	}
	return o
}

// WithCropper 设置裁剪执行协作方
func WithCropper(cropper Cropper) Option {
	return func(o *Options) {
		o.cropper = cropper
	}
}

// WithLogger 设置日志记录器
func WithLogger(log *logger.Logger) Option {
	return func(o *Options) {
		o.log = log
	}
}

// WithRect 设置感兴趣区域
func WithRect(rect geometry.RectOfInterest) Option {
	return func(o *Options) {
		o.rect = rect
	}
}

// WithFitMode 设置视口缩放方式
func WithFitMode(fit geometry.FitMode) Option {
	return func(o *Options) {
		o.fit = fit
	}
}

// WithPhaseListener 设置阶段变化回调 (UI 用于着色取景框/显示状态文字)
func WithPhaseListener(fn func(Phase)) Option {
	return func(o *Options) {
		o.onPhase = fn
	}
}

// WithResultBuffer 设置结果通道缓冲大小
func WithResultBuffer(n int) Option {
	return func(o *Options) {
		o.resultBuffer = n
	}
}
