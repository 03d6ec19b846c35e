// Package scan 提供检测信号去抖状态机与自动捕获控制器。
//
// 检测器 (外部) 每帧产出一个带时间戳的布尔匹配信号，StateMachine 将其
// 收敛为稳定的阶段 (Scanning/Holding/Ready)，Controller 在进入 Ready 时
// 恰好触发一次捕获，完成后复位状态机继续扫描。
package scan

import "time"

// Phase 扫描阶段
type Phase int

const (
	// PhaseScanning 正在扫描，尚未出现持续匹配
	PhaseScanning Phase = iota
	// PhaseHolding 匹配信号持续中，等待满足保持时长
	PhaseHolding
	// PhaseReady 满足保持时长，可以触发捕获；粘滞，仅 Reset 可退出
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseScanning:
		return "scanning"
	case PhaseHolding:
		return "holding"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// DetectionEvent 一帧检测结果
// At 应来自单调时钟；时间戳回退的事件按零时长处理
type DetectionEvent struct {
	Matched bool      `json:"matched"`
	At      time.Time `json:"at"`
}
