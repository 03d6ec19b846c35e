package scan

import "time"

// Config 去抖配置
type Config struct {
	// HoldDuration 匹配信号需要持续多久才进入 Ready
	HoldDuration time.Duration
	// GraceDuration 匹配中断多久以内仍视为持续 (抗闪烁)
	GraceDuration time.Duration
}

// DefaultConfig 默认去抖配置
func DefaultConfig() Config {
	return Config{
		HoldDuration:  1000 * time.Millisecond,
		GraceDuration: 300 * time.Millisecond,
	}
}

// StateMachine 检测信号去抖状态机。
//
// 纯被动: 仅在 Step 调用时推进，不依赖后台定时器；帧源停止供帧时
// 状态机原地停住。非并发安全，调用方需保证串行调用 (见 Controller)。
type StateMachine struct {
	cfg   Config
	phase Phase

	holdStart time.Time // 本轮持续匹配的起点
	lastTrue  time.Time // 最近一次匹配为真的时刻
	lastSeen  time.Time // 最近一次 Step 的时刻，用于钳制乱序时间戳
}

// NewStateMachine 创建状态机，负的时长按 0 处理
func NewStateMachine(cfg Config) *StateMachine {
	if cfg.HoldDuration < 0 {
		cfg.HoldDuration = 0
	}
	if cfg.GraceDuration < 0 {
		cfg.GraceDuration = 0
	}
	return &StateMachine{cfg: cfg, phase: PhaseScanning}
}

// Step 输入一帧检测信号，返回推进后的阶段。
//
// 时长比较使用 >=，恰好到达阈值即触发转移。时间戳早于上一次 Step 的
// 输入被钳制为上一次的时刻，不产生负时长。
func (m *StateMachine) Step(matched bool, now time.Time) Phase {
	if !m.lastSeen.IsZero() && now.Before(m.lastSeen) {
		now = m.lastSeen
	}
	m.lastSeen = now

	switch m.phase {
	case PhaseReady:
		// 粘滞，等待显式 Reset

	case PhaseScanning:
		if matched {
			m.phase = PhaseHolding
			m.holdStart = now
			m.lastTrue = now
		}

	case PhaseHolding:
		if matched {
			if now.Sub(m.holdStart) >= m.cfg.HoldDuration {
				m.phase = PhaseReady
			} else {
				m.lastTrue = now
			}
		} else if now.Sub(m.lastTrue) >= m.cfg.GraceDuration {
			// 宽限期耗尽，放弃本轮保持
			m.phase = PhaseScanning
			m.holdStart = time.Time{}
			m.lastTrue = time.Time{}
		}
	}

	return m.phase
}

// Reset 清空计时并回到 Scanning，是离开 Ready 的唯一途径
func (m *StateMachine) Reset() Phase {
	m.phase = PhaseScanning
	m.holdStart = time.Time{}
	m.lastTrue = time.Time{}
	m.lastSeen = time.Time{}
	return m.phase
}

// Current 当前阶段
func (m *StateMachine) Current() Phase {
	return m.phase
}

// Config 当前配置
func (m *StateMachine) Config() Config {
	return m.cfg
}
