package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumiscan/scanworker/internal/logger"
	"github.com/lumiscan/scanworker/pkg/camera"
	"github.com/lumiscan/scanworker/pkg/geometry"
)

// ErrCaptureInFlight 已有捕获进行中
var ErrCaptureInFlight = errors.New("已有捕获进行中")

// ErrClosed 控制器已关闭
var ErrClosed = errors.New("控制器已关闭")

// Capturer 捕获操作 (外部协作方，可能阻塞数百毫秒)
type Capturer interface {
	Capture(ctx context.Context) (*camera.Photo, error)
}

// Cropper 裁剪执行协作方
type Cropper interface {
	Crop(photo *camera.Photo, region geometry.CropRegion) (image.Image, error)
}

// Outcome 一次捕获尝试的结果
type Outcome struct {
	// Photo 原始照片，捕获成功时非空
	Photo *camera.Photo
	// Image 转正并裁剪后的图像，裁剪成功时非空
	Image image.Image
	// Region 使用的裁剪区域 (有效传感器空间)
	Region geometry.CropRegion
	// Manual 是否由手动捕获触发
	Manual bool
	// Err 捕获或裁剪失败原因
	Err error
	// Elapsed 本次尝试耗时
	Elapsed time.Duration
}

// Controller 自动捕获控制器。
//
// 检测事件通过互斥锁串行进入状态机，Step 与在途守卫检查构成一个
// 原子临界区；捕获本身在独立 goroutine 上执行，不阻塞检测路径。
// 每个 Ready 只触发一次捕获，尝试结束后无论成败都复位状态机。
type Controller struct {
	machine  *StateMachine
	capturer Capturer
	cropper  Cropper
	log      *logger.Logger

	mu        sync.Mutex
	closed    bool
	viewport  geometry.Viewport
	rect      geometry.RectOfInterest
	fit       geometry.FitMode
	lastPhase Phase

	inFlight atomic.Bool
	onPhase  func(Phase)
	results  chan Outcome

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController 创建控制器，状态机与控制器同生命周期 (一个扫描会话)
func NewController(machine *StateMachine, capturer Capturer, opts ...Option) *Controller {
	o := applyOptions(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		machine:   machine,
		capturer:  capturer,
		cropper:   o.cropper,
		log:       o.log,
		rect:      o.rect,
		fit:       o.fit,
		lastPhase: machine.Current(),
		onPhase:   o.onPhase,
		results:   make(chan Outcome, o.resultBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetViewport 更新视口几何 (UI 布局协作方在预览重新测量时调用)
func (c *Controller) SetViewport(vp geometry.Viewport) {
	c.mu.Lock()
	c.viewport = vp
	c.mu.Unlock()
}

// SetRect 更新感兴趣区域
func (c *Controller) SetRect(rect geometry.RectOfInterest) {
	c.mu.Lock()
	c.rect = rect
	c.mu.Unlock()
}

// Phase 当前阶段
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// Results 捕获结果通道
func (c *Controller) Results() <-chan Outcome {
	return c.results
}

// OnDetectionEvent 输入一帧检测信号。
// 进入 Ready 且没有捕获在途时恰好触发一次捕获；捕获在途期间的
// 重复 Ready 通知是空操作。关闭后的事件被丢弃。
func (c *Controller) OnDetectionEvent(ev DetectionEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	phase := c.machine.Step(ev.Matched, ev.At)
	changed := phase != c.lastPhase
	c.lastPhase = phase

	trigger := phase == PhaseReady && c.inFlight.CompareAndSwap(false, true)
	c.mu.Unlock()

	if changed {
		c.notifyPhase(phase)
	}
	if trigger {
		go c.runCapture(false)
	}
}

// CaptureManually 手动触发捕获，绕过阶段要求但遵守在途守卫
func (c *Controller) CaptureManually() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrCaptureInFlight
	}

	go c.runCapture(true)
	return nil
}

// Close 结束扫描会话: 停止接收检测事件并取消在途捕获的上下文。
// 在途捕获结束后不再复位状态机、不再投递结果。
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
}

// runCapture 执行一次捕获尝试，始终在独立 goroutine 上运行
func (c *Controller) runCapture(manual bool) {
	start := time.Now()
	out := Outcome{Manual: manual}

	photo, err := c.capturer.Capture(c.ctx)
	if err != nil {
		out.Err = fmt.Errorf("捕获失败: %w", err)
	} else {
		out.Photo = photo
		out.Region = c.resolveRegion(photo.Frame)

		if c.cropper != nil {
			img, cerr := c.cropper.Crop(photo, out.Region)
			if cerr != nil {
				out.Err = fmt.Errorf("裁剪失败: %w", cerr)
			} else {
				out.Image = img
			}
		}
	}

	out.Elapsed = time.Since(start)
	c.finish(out)
}

// resolveRegion 计算裁剪区域；几何异常时回退为整幅传感器画面
func (c *Controller) resolveRegion(frame geometry.SensorFrame) geometry.CropRegion {
	c.mu.Lock()
	vp, rect, fit := c.viewport, c.rect, c.fit
	c.mu.Unlock()

	region, err := geometry.ComputeCropRegion(frame, vp, rect, fit)
	if err != nil {
		c.log.Warn("坐标换算失败，回退为整幅画面: %v", err)
		return geometry.FullRegion(frame)
	}
	return region
}

// finish 复位状态机、清除在途守卫并投递结果
func (c *Controller) finish(out Outcome) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.inFlight.Store(false)
		return
	}

	phase := c.machine.Reset()
	changed := phase != c.lastPhase
	c.lastPhase = phase
	c.mu.Unlock()

	// 先复位再放开守卫，期间到达的事件只会从 Scanning 重新开始
	c.inFlight.Store(false)

	if changed {
		c.notifyPhase(phase)
	}

	elapsedMs := float64(out.Elapsed.Milliseconds())
	if out.Err != nil {
		c.log.LogScan("cap", false, elapsedMs, out.Err.Error())
	} else {
		c.log.LogScan("cap", true, elapsedMs, fmt.Sprintf("id=%s region=%+v", out.Photo.ID, out.Region))
	}

	select {
	case c.results <- out:
	default:
		c.log.Warn("结果通道已满，丢弃一次捕获结果")
	}
}

func (c *Controller) notifyPhase(phase Phase) {
	if c.onPhase != nil {
		c.onPhase(phase)
	}
}
