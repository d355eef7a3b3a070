package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

const (
	cpuSampleInterval = 100 * time.Millisecond

	cpuWarnPercent    = 80
	memoryWarnPercent = 90
)

// System são os recursos da máquina, no formato do relatório de saúde.
type System struct {
	CPUPercent        float64 `json:"cpu_usage_percent"`
	MemoryPercent     float64 `json:"memory_usage_percent"`
	MemoryAvailableMB uint64  `json:"memory_available_mb"`
	DiskPercent       float64 `json:"disk_usage_percent"`
	DiskFreeGB        uint64  `json:"disk_free_gb"`
}

// SystemReader lê os recursos da máquina.
type SystemReader func(ctx context.Context) (System, error)

// HostReader amostra CPU por 100ms e lê memória e o disco que contém diskPath.
func HostReader(diskPath string) SystemReader {
	return func(ctx context.Context) (System, error) {
		cpus, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false)
		if err != nil {
			return System{}, fmt.Errorf("cpu: %w", err)
		}
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return System{}, fmt.Errorf("memory: %w", err)
		}
		du, err := disk.UsageWithContext(ctx, diskPath)
		if err != nil {
			return System{}, fmt.Errorf("disk %s: %w", diskPath, err)
		}

		var cpuPct float64
		if len(cpus) > 0 {
			cpuPct = cpus[0]
		}
		return System{
			CPUPercent:        cpuPct,
			MemoryPercent:     vm.UsedPercent,
			MemoryAvailableMB: vm.Available / 1024 / 1024,
			DiskPercent:       du.UsedPercent,
			DiskFreeGB:        du.Free / 1024 / 1024 / 1024,
		}, nil
	}
}

func statusFor(sys System) string {
	if sys.CPUPercent < cpuWarnPercent && sys.MemoryPercent < memoryWarnPercent {
		return StatusHealthy
	}
	return StatusWarning
}
