package measure

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// EnvInfo is the machine context a report was measured under. Throughput
// numbers from an emulated network depend on the scheduler and CPU headroom,
// so every report records where it ran.
type EnvInfo struct {
	GOOS       string  `yaml:"goos" json:"goos"`
	CPUs       int     `yaml:"cpus" json:"cpus"`
	Load1      float64 `yaml:"load1" json:"load1"`
	MemTotalMB uint64  `yaml:"memTotalMb" json:"memTotalMb"`
	MemUsedPct float64 `yaml:"memUsedPct" json:"memUsedPct"`
}

// CaptureEnv snapshots the local machine. Probe failures leave the affected
// fields zero; a partially filled snapshot is still worth recording.
func CaptureEnv() *EnvInfo {
	info := &EnvInfo{GOOS: runtime.GOOS}

	if n, err := cpu.Counts(true); err == nil {
		info.CPUs = n
	}
	if avg, err := load.Avg(); err == nil {
		info.Load1 = avg.Load1
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemTotalMB = vm.Total / (1024 * 1024)
		info.MemUsedPct = vm.UsedPercent
	}
	return info
}
