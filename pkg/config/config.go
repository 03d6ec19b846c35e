// Package config 提供扫描会话配置的加载与保存
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ScanConfig 扫描会话配置
type ScanConfig struct {
	// HoldDurationMs 匹配信号需要持续的毫秒数
	HoldDurationMs uint32 `json:"hold_duration_ms"`
	// GraceDurationMs 匹配中断的容忍毫秒数
	GraceDurationMs uint32 `json:"grace_duration_ms"`

	// FitMode 视口缩放方式: "cover" 或 "contain"
	FitMode string `json:"fit_mode"`
	// Rect 归一化感兴趣区域 [x1, y1, x2, y2]
	Rect [4]float64 `json:"rect"`
	// PaddingFraction 感兴趣区域对称外扩比例
	PaddingFraction float64 `json:"padding_fraction"`

	// Detector 检测方式: "contour"、"text" 或 "always"
	Detector string `json:"detector"`
	// Keywords 文字检测关键字
	Keywords []string `json:"keywords,omitempty"`
	// Pattern 文字检测正则
	Pattern string `json:"pattern,omitempty"`

	// CaptureRegion 屏幕捕获区域 [x, y, w, h]，全零表示全屏
	CaptureRegion [4]int `json:"capture_region"`
	// ViewportWidth/ViewportHeight 预览视口尺寸 (UI 像素)
	ViewportWidth  float64 `json:"viewport_width"`
	ViewportHeight float64 `json:"viewport_height"`

	// FrameIntervalMs 检测帧间隔毫秒数
	FrameIntervalMs uint32 `json:"frame_interval_ms"`
	// OutputDir 捕获结果输出目录
	OutputDir string `json:"output_dir"`
	// OutputFormat 输出格式: "png" 或 "jpeg"
	OutputFormat string `json:"output_format"`
	// JPEGQuality JPEG 质量 1-100
	JPEGQuality int `json:"jpeg_quality"`

	// LogLevel 日志级别
	LogLevel string `json:"log_level"`
}

// DefaultScanConfig 默认扫描配置
func DefaultScanConfig() *ScanConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &ScanConfig{
		HoldDurationMs:  1000,
		GraceDurationMs: 300,
		FitMode:         "cover",
		Rect:            [4]float64{0.1, 0.2, 0.9, 0.8},
		PaddingFraction: 0.02,
		Detector:        "contour",
		ViewportWidth:   480,
		ViewportHeight:  640,
		FrameIntervalMs: 66, // 约 15 Hz
		OutputDir:       filepath.Join(home, ".scanworker", "captures"),
		OutputFormat:    "png",
		JPEGQuality:     85,
		LogLevel:        "INFO",
	}
}

// Validate 校验配置
func (c *ScanConfig) Validate() error {
	switch c.FitMode {
	case "cover", "contain":
	default:
		return fmt.Errorf("非法缩放方式: %s", c.FitMode)
	}
	switch c.Detector {
	case "contour", "text", "always":
	default:
		return fmt.Errorf("非法检测方式: %s", c.Detector)
	}
	if c.Detector == "text" && len(c.Keywords) == 0 && c.Pattern == "" {
		return fmt.Errorf("文字检测缺少关键字或正则")
	}
	if c.PaddingFraction < 0 {
		return fmt.Errorf("外扩比例不能为负: %g", c.PaddingFraction)
	}
	if c.FrameIntervalMs == 0 {
		return fmt.Errorf("帧间隔不能为 0")
	}
	return nil
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器 (默认目录 ~/.scanworker)
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := filepath.Join(homeDir, ".scanworker")
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// ensureDir 确保配置目录存在
func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置，文件不存在时返回默认配置
func (m *Manager) Load() (*ScanConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return DefaultScanConfig(), nil
	}

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return DefaultScanConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := DefaultScanConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultScanConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}

	return cfg, nil
}

// Save 保存配置
func (m *Manager) Save(cfg *ScanConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置文件
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(m.configFile)
}

// GetConfigFile 配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// 全局配置管理器
var defaultManager = NewManager()

// Load 使用默认管理器加载配置
func Load() (*ScanConfig, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(cfg *ScanConfig) error {
	return defaultManager.Save(cfg)
}
