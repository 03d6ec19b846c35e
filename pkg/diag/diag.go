// Package diag 提供进程自身的资源占用采样，供长会话观测
package diag

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// Stats 进程资源占用快照
type Stats struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	NumThreads int32   `json:"num_threads"`
}

func (s *Stats) String() string {
	return fmt.Sprintf("cpu=%.1f%% rss=%.1fMB threads=%d",
		s.CPUPercent, float64(s.RSSBytes)/(1024*1024), s.NumThreads)
}

// Sample 采样当前进程的资源占用
func Sample() (*Stats, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("获取进程信息失败: %w", err)
	}

	stats := &Stats{}

	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if threads, err := proc.NumThreads(); err == nil {
		stats.NumThreads = threads
	}

	return stats, nil
}
