package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lumiscan/scanworker/internal/logger"
	"github.com/lumiscan/scanworker/pkg/camera"
	"github.com/lumiscan/scanworker/pkg/config"
	"github.com/lumiscan/scanworker/pkg/detect"
	"github.com/lumiscan/scanworker/pkg/diag"
	"github.com/lumiscan/scanworker/pkg/gallery"
	"github.com/lumiscan/scanworker/pkg/geometry"
	"github.com/lumiscan/scanworker/pkg/scan"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configDir   = flag.String("config-dir", "", "配置目录 (默认 ~/.scanworker)")
		holdMs      = flag.Uint("hold", 0, "匹配保持毫秒数 (覆盖配置)")
		graceMs     = flag.Uint("grace", 0, "中断容忍毫秒数 (覆盖配置)")
		fitMode     = flag.String("fit", "", "缩放方式: cover 或 contain (覆盖配置)")
		detector    = flag.String("detector", "", "检测方式: contour, text 或 always (覆盖配置)")
		keywords    = flag.String("keywords", "", "文字检测关键字，逗号分隔 (覆盖配置)")
		outputDir   = flag.String("output", "", "输出目录 (覆盖配置)")
		once        = flag.Bool("once", false, "立即手动捕获一次后退出")
		overlay     = flag.Bool("overlay", false, "同时保存带取景框标注的预览快照")
		saveConfig  = flag.Bool("save", false, "保存生效配置到本地")
		logLevel    = flag.String("log-level", "", "日志级别 (覆盖配置)")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}
	if *showHelp {
		printHelp()
		return
	}

	// 加载配置
	mgr := config.NewManager()
	if *configDir != "" {
		mgr = config.NewManagerWithDir(*configDir)
	}
	cfg, err := mgr.Load()
	if err != nil {
		fmt.Printf("[WARN] 加载配置失败: %v\n", err)
	}

	// 命令行参数优先级高于配置文件
	if *holdMs > 0 {
		cfg.HoldDurationMs = uint32(*holdMs)
	}
	if *graceMs > 0 {
		cfg.GraceDurationMs = uint32(*graceMs)
	}
	if *fitMode != "" {
		cfg.FitMode = *fitMode
	}
	if *detector != "" {
		cfg.Detector = *detector
	}
	if *keywords != "" {
		cfg.Keywords = splitKeywords(*keywords)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("[ERROR] 配置非法: %v\n", err)
		os.Exit(1)
	}

	if *saveConfig {
		if err := mgr.Save(cfg); err != nil {
			fmt.Printf("[WARN] 保存配置失败: %v\n", err)
		}
	}

	logger.Default().SetLevel(logger.ParseLevel(cfg.LogLevel))

	if err := run(cfg, *once, *overlay); err != nil {
		logger.Error("运行失败: %v", err)
		os.Exit(1)
	}
}

// run 构建扫描会话并运行检测循环
func run(cfg *config.ScanConfig, once, overlay bool) error {
	// 捕获器: 屏幕区域充当传感器
	var cam camera.Camera
	if cfg.CaptureRegion != [4]int{} {
		cam = camera.NewScreenRegionCamera(camera.Region{
			X:      cfg.CaptureRegion[0],
			Y:      cfg.CaptureRegion[1],
			Width:  cfg.CaptureRegion[2],
			Height: cfg.CaptureRegion[3],
		})
	} else {
		cam = camera.NewScreenCamera()
	}

	// 检测谓词
	pred, cleanup, err := buildPredicate(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// 输出图库
	store, err := gallery.NewStore(cfg.OutputDir, cfg.OutputFormat, cfg.JPEGQuality)
	if err != nil {
		return err
	}

	viewport := geometry.NewViewport(cfg.ViewportWidth, cfg.ViewportHeight)
	rect := geometry.NormalizedRect(cfg.Rect[0], cfg.Rect[1], cfg.Rect[2], cfg.Rect[3]).
		WithPadding(cfg.PaddingFraction)
	fit := geometry.ParseFitMode(cfg.FitMode)

	machine := scan.NewStateMachine(scan.Config{
		HoldDuration:  time.Duration(cfg.HoldDurationMs) * time.Millisecond,
		GraceDuration: time.Duration(cfg.GraceDurationMs) * time.Millisecond,
	})

	ctrl := scan.NewController(machine, cam,
		scan.WithCropper(camera.NewCropper()),
		scan.WithRect(rect),
		scan.WithFitMode(fit),
		scan.WithPhaseListener(func(p scan.Phase) {
			logger.Info("阶段切换: %s", p)
		}),
	)
	ctrl.SetViewport(viewport)
	defer ctrl.Close()

	// 结果消费
	done := make(chan struct{}, 1)
	go consumeResults(ctrl, store, done)

	if once {
		if err := ctrl.CaptureManually(); err != nil {
			return err
		}
		<-done
		return nil
	}

	logger.Info("开始扫描: detector=%s fit=%s hold=%dms grace=%dms interval=%dms",
		cfg.Detector, cfg.FitMode, cfg.HoldDurationMs, cfg.GraceDurationMs, cfg.FrameIntervalMs)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.FrameIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			logger.Info("收到退出信号，结束扫描会话")
			return nil
		case <-ticker.C:
			stepOnce(cam, pred, ctrl, viewport, rect, fit, store, overlay)
		}
	}
}

// stepOnce 采集一帧预览、运行谓词并把检测事件送入控制器
func stepOnce(cam camera.Camera, pred detect.Predicate, ctrl *scan.Controller,
	viewport geometry.Viewport, rect geometry.RectOfInterest, fit geometry.FitMode,
	store *gallery.Store, overlay bool) {

	start := time.Now()

	photo, err := cam.Capture(context.Background())
	if err != nil {
		logger.Warn("预览帧捕获失败: %v", err)
		return
	}

	upright, err := camera.Upright(photo.Image, photo.Frame.Rotation)
	if err != nil {
		logger.Warn("预览帧转正失败: %v", err)
		return
	}

	preview, err := camera.RenderViewport(upright, viewport, fit)
	if err != nil {
		logger.Warn("预览渲染失败: %v", err)
		return
	}

	matched, err := pred.Match(preview)
	if err != nil {
		logger.Warn("检测失败: %v", err)
		matched = false
	}

	ctrl.OnDetectionEvent(scan.DetectionEvent{Matched: matched, At: time.Now()})
	logger.Debug("det | matched=%v phase=%s elapsed=%.1fms",
		matched, ctrl.Phase(), float64(time.Since(start).Microseconds())/1000)

	if overlay && matched {
		saveOverlaySnapshot(preview, viewport, rect, ctrl.Phase(), store)
	}
}

// saveOverlaySnapshot 保存带取景框标注的预览快照
func saveOverlaySnapshot(preview image.Image, viewport geometry.Viewport,
	rect geometry.RectOfInterest, phase scan.Phase, store *gallery.Store) {

	box := viewportBox(rect, viewport)
	annotated, err := camera.Annotate(preview, box, phase.String(), phaseColor(phase))
	if err != nil {
		logger.Debug("标注预览失败: %v", err)
	}
	if annotated == nil {
		return
	}
	if _, err := store.Save(annotated, "preview"); err != nil {
		logger.Warn("保存预览快照失败: %v", err)
	}
}

// viewportBox 把归一化感兴趣区域换算为预览帧内的像素矩形
func viewportBox(rect geometry.RectOfInterest, vp geometry.Viewport) image.Rectangle {
	region, err := geometry.ComputeCropRegion(
		geometry.SensorFrame{Width: int(math.Round(vp.Width)), Height: int(math.Round(vp.Height))},
		vp, rect, geometry.FitCover)
	if err != nil {
		return image.Rectangle{}
	}
	return region.ToImageRect()
}

func phaseColor(phase scan.Phase) color.Color {
	switch phase {
	case scan.PhaseReady:
		return color.RGBA{G: 200, A: 255}
	case scan.PhaseHolding:
		return color.RGBA{R: 255, G: 200, A: 255}
	default:
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
}

// consumeResults 消费捕获结果: 落盘并记录进程资源占用
func consumeResults(ctrl *scan.Controller, store *gallery.Store, done chan<- struct{}) {
	for out := range ctrl.Results() {
		if out.Err != nil {
			logger.Error("捕获尝试失败: %v", out.Err)
		} else {
			path, err := store.Save(out.Image, out.Photo.ID)
			if err != nil {
				logger.Error("保存捕获结果失败: %v", err)
			} else {
				logger.LogScan("save", true, float64(out.Elapsed.Milliseconds()),
					fmt.Sprintf("%s region=%+v", path, out.Region))
			}
		}

		if stats, err := diag.Sample(); err == nil {
			logger.Debug("进程状态: %s", stats)
		}

		select {
		case done <- struct{}{}:
		default:
		}
	}
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildPredicate 按配置构建检测谓词，返回资源清理函数
func buildPredicate(cfg *config.ScanConfig) (detect.Predicate, func(), error) {
	noop := func() {}

	switch cfg.Detector {
	case "contour":
		return detect.NewContourPredicate(detect.DefaultContourConfig()), noop, nil
	case "text":
		rec, err := detect.NewRecognizer(detect.OCRConfig{})
		if err != nil {
			return nil, noop, err
		}
		pred, err := detect.NewTextPredicate(rec, cfg.Keywords, cfg.Pattern)
		if err != nil {
			rec.Close()
			return nil, noop, err
		}
		return pred, func() { rec.Close() }, nil
	case "always":
		return detect.Always(true), noop, nil
	default:
		return nil, noop, fmt.Errorf("非法检测方式: %s", cfg.Detector)
	}
}

func printVersion() {
	fmt.Printf("scanworker %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git 提交: %s\n", GitCommit)
}

func printHelp() {
	fmt.Println("scanworker - 自动检测捕获工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  scanworker [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  scanworker -detector contour -fit cover -hold 1000 -grace 300")
	fmt.Println("  scanworker -detector text -keywords 发票,合计")
	fmt.Println("  scanworker -once -output ./captures")
}
