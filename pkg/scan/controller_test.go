package scan

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/lumiscan/scanworker/pkg/camera"
	"github.com/lumiscan/scanworker/pkg/geometry"
)

// fakeCapturer 可阻塞、可注入失败的捕获器
type fakeCapturer struct {
	mu    sync.Mutex
	count int
	err   error
	block chan struct{} // 非 nil 时捕获阻塞到通道关闭
	frame geometry.SensorFrame
}

func newFakeCapturer() *fakeCapturer {
	return &fakeCapturer{
		frame: geometry.SensorFrame{Width: 100, Height: 80, Rotation: geometry.Rotation0},
	}
}

func (f *fakeCapturer) Capture(ctx context.Context) (*camera.Photo, error) {
	f.mu.Lock()
	f.count++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &camera.Photo{
		ID:      "test-photo",
		Image:   image.NewRGBA(image.Rect(0, 0, f.frame.Width, f.frame.Height)),
		Frame:   f.frame,
		TakenAt: time.Now(),
	}, nil
}

func (f *fakeCapturer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// fakeCropper 直接返回原图或注入的错误
type fakeCropper struct {
	err error
}

func (f *fakeCropper) Crop(photo *camera.Photo, region geometry.CropRegion) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return photo.Image, nil
}

func waitOutcome(t *testing.T, ctrl *Controller) Outcome {
	t.Helper()
	select {
	case out := <-ctrl.Results():
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("等待捕获结果超时")
		return Outcome{}
	}
}

func expectNoOutcome(t *testing.T, ctrl *Controller, d time.Duration) {
	t.Helper()
	select {
	case out := <-ctrl.Results():
		t.Fatalf("不应有捕获结果，got %+v", out)
	case <-time.After(d):
	}
}

// driveToReady 连续输入匹配事件直到状态机进入 Ready
func driveToReady(ctrl *Controller, startMs int64) {
	ctrl.OnDetectionEvent(DetectionEvent{Matched: true, At: at(startMs)})
	ctrl.OnDetectionEvent(DetectionEvent{Matched: true, At: at(startMs + 100)})
}

func newTestController(cap Capturer, opts ...Option) *Controller {
	machine := newTestMachine(100, 50)
	return NewController(machine, cap, opts...)
}

func TestControllerCapturesOncePerReadyEpisode(t *testing.T) {
	cap := newFakeCapturer()
	cap.block = make(chan struct{})

	ctrl := newTestController(cap)
	defer ctrl.Close()

	driveToReady(ctrl, 0)

	// 捕获在途期间，重复的 Ready 通知应是空操作
	for i := int64(0); i < 5; i++ {
		ctrl.OnDetectionEvent(DetectionEvent{Matched: true, At: at(200 + i*10)})
	}
	if got := cap.calls(); got != 1 {
		t.Fatalf("捕获次数 = %d, want 1", got)
	}

	close(cap.block)
	out := waitOutcome(t, ctrl)
	if out.Err != nil {
		t.Fatalf("捕获结果错误: %v", out.Err)
	}
	if out.Manual {
		t.Error("自动捕获的 Manual 应为 false")
	}
	if ctrl.Phase() != PhaseScanning {
		t.Errorf("捕获完成后阶段 = %v, want PhaseScanning", ctrl.Phase())
	}

	// 新一轮 Ready 应再次触发捕获
	cap.mu.Lock()
	cap.block = nil
	cap.mu.Unlock()
	driveToReady(ctrl, 1000)
	waitOutcome(t, ctrl)
	if got := cap.calls(); got != 2 {
		t.Errorf("捕获次数 = %d, want 2", got)
	}
}

func TestControllerFailureResetsAndResumesScanning(t *testing.T) {
	cap := newFakeCapturer()
	cap.err = errors.New("硬件故障")

	ctrl := newTestController(cap)
	defer ctrl.Close()

	driveToReady(ctrl, 0)
	out := waitOutcome(t, ctrl)

	if out.Err == nil {
		t.Fatal("应返回捕获失败")
	}
	if out.Photo != nil {
		t.Error("失败时不应有照片")
	}
	if ctrl.Phase() != PhaseScanning {
		t.Errorf("失败后阶段 = %v, want PhaseScanning", ctrl.Phase())
	}

	// 失败后可以继续扫描重试
	cap.err = nil
	driveToReady(ctrl, 1000)
	out = waitOutcome(t, ctrl)
	if out.Err != nil {
		t.Errorf("重试应成功: %v", out.Err)
	}
}

func TestControllerRegionFallbackWithoutViewport(t *testing.T) {
	cap := newFakeCapturer()
	ctrl := newTestController(cap)
	defer ctrl.Close()

	// 未设置视口，坐标换算应回退为整幅画面
	driveToReady(ctrl, 0)
	out := waitOutcome(t, ctrl)

	want := geometry.CropRegion{X: 0, Y: 0, Width: 100, Height: 80}
	if out.Region != want {
		t.Errorf("Region = %+v, want %+v", out.Region, want)
	}
	if out.Image != nil {
		t.Error("未配置裁剪器时 Image 应为 nil")
	}
}

func TestControllerMappedRegionAndCrop(t *testing.T) {
	cap := newFakeCapturer()
	ctrl := newTestController(cap,
		WithCropper(&fakeCropper{}),
		WithRect(geometry.PixelRect(0, 0, 25, 20)),
		WithFitMode(geometry.FitContain),
	)
	defer ctrl.Close()
	ctrl.SetViewport(geometry.NewViewport(50, 40))

	driveToReady(ctrl, 0)
	out := waitOutcome(t, ctrl)

	if out.Err != nil {
		t.Fatalf("捕获结果错误: %v", out.Err)
	}
	// 视口 50x40 → 传感器 100x80, contain 缩放系数 2
	want := geometry.CropRegion{X: 0, Y: 0, Width: 50, Height: 40}
	if out.Region != want {
		t.Errorf("Region = %+v, want %+v", out.Region, want)
	}
	if out.Image == nil {
		t.Error("配置裁剪器后 Image 不应为 nil")
	}
}

func TestControllerCropFailureReported(t *testing.T) {
	cap := newFakeCapturer()
	ctrl := newTestController(cap, WithCropper(&fakeCropper{err: errors.New("裁剪越界")}))
	defer ctrl.Close()

	driveToReady(ctrl, 0)
	out := waitOutcome(t, ctrl)

	if out.Err == nil {
		t.Fatal("应返回裁剪失败")
	}
	if ctrl.Phase() != PhaseScanning {
		t.Errorf("裁剪失败后阶段 = %v, want PhaseScanning", ctrl.Phase())
	}
}

func TestControllerManualCapture(t *testing.T) {
	cap := newFakeCapturer()
	cap.block = make(chan struct{})

	ctrl := newTestController(cap)
	defer ctrl.Close()

	// 手动捕获绕过阶段要求
	if err := ctrl.CaptureManually(); err != nil {
		t.Fatalf("CaptureManually() error = %v", err)
	}

	// 在途期间的手动捕获被拒绝
	if err := ctrl.CaptureManually(); !errors.Is(err, ErrCaptureInFlight) {
		t.Errorf("error = %v, want ErrCaptureInFlight", err)
	}

	close(cap.block)
	out := waitOutcome(t, ctrl)
	if !out.Manual {
		t.Error("手动捕获的 Manual 应为 true")
	}
	if got := cap.calls(); got != 1 {
		t.Errorf("捕获次数 = %d, want 1", got)
	}
}

func TestControllerCloseStopsEvents(t *testing.T) {
	cap := newFakeCapturer()
	ctrl := newTestController(cap)

	ctrl.Close()

	driveToReady(ctrl, 0)
	if got := cap.calls(); got != 0 {
		t.Errorf("关闭后捕获次数 = %d, want 0", got)
	}
	if err := ctrl.CaptureManually(); !errors.Is(err, ErrClosed) {
		t.Errorf("error = %v, want ErrClosed", err)
	}
	expectNoOutcome(t, ctrl, 100*time.Millisecond)
}

func TestControllerCloseDuringInFlightSuppressesResult(t *testing.T) {
	cap := newFakeCapturer()
	cap.block = make(chan struct{})

	ctrl := newTestController(cap)
	driveToReady(ctrl, 0)
	if got := cap.calls(); got != 1 {
		t.Fatalf("捕获次数 = %d, want 1", got)
	}

	ctrl.Close()
	close(cap.block)

	// 会话已结束，在途捕获不应再投递结果或复位状态机
	expectNoOutcome(t, ctrl, 200*time.Millisecond)
}

func TestControllerPhaseListener(t *testing.T) {
	var mu sync.Mutex
	var phases []Phase

	cap := newFakeCapturer()
	ctrl := newTestController(cap, WithPhaseListener(func(p Phase) {
		mu.Lock()
		phases = append(phases, p)
		mu.Unlock()
	}))
	defer ctrl.Close()

	driveToReady(ctrl, 0)
	waitOutcome(t, ctrl)

	mu.Lock()
	defer mu.Unlock()
	want := []Phase{PhaseHolding, PhaseReady, PhaseScanning}
	if len(phases) != len(want) {
		t.Fatalf("阶段通知 = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("阶段通知 = %v, want %v", phases, want)
		}
	}
}
