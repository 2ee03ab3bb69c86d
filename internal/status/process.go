package status

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// GatewayStats describes the gateway process itself, included in status
// snapshots so the dashboard can show relay health at a glance.
type GatewayStats struct {
	PID           int32   `json:"pid"`
	CPUPercent    float64 `json:"cpuPercent"`
	RSSBytes      uint64  `json:"rssBytes"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
}

type processStats struct {
	proc  *process.Process
	start time.Time
}

// newProcessStats samples the current process. If the process handle cannot
// be opened, stats degrade to uptime only.
func newProcessStats() *processStats {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	return &processStats{proc: proc, start: time.Now()}
}

func (p *processStats) stats() GatewayStats {
	gs := GatewayStats{
		UptimeSeconds: int64(time.Since(p.start).Seconds()),
	}
	if p.proc == nil {
		return gs
	}
	gs.PID = p.proc.Pid
	if cpu, err := p.proc.CPUPercent(); err == nil {
		gs.CPUPercent = cpu
	}
	if mi, err := p.proc.MemoryInfo(); err == nil && mi != nil {
		gs.RSSBytes = mi.RSS
	}
	return gs
}
