package stats

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// DefaultProcessLimit is how many processes a ranking returns when the
// caller does not ask for a specific count.
const DefaultProcessLimit = 10

const procWalkTimeout = 30 * time.Second

// procSample is one process observation: cumulative busy CPU seconds
// and resident memory at a point in time.
type procSample struct {
	pid      int32
	name     string
	cpuTotal float64
	rss      uint64
}

// TopProcesses ranks running processes by CPU utilization since the
// previous call. Utilization is the busy-time delta over elapsed wall
// time, normalized by core count, so the first call reports zeros.
func (c *Collector) TopProcesses(ctx context.Context, limit int) ([]ProcessEntry, error) {
	if limit <= 0 {
		limit = DefaultProcessLimit
	}

	samples, err := c.procSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("processes: %w", err)
	}

	cores := 0
	if n, err := c.cpuCounts(ctx, true); err == nil {
		cores = n
	}
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	if cores <= 0 {
		cores = 1
	}

	var memTotal uint64
	if vm, err := c.virtualMem(); err == nil && vm != nil {
		memTotal = vm.Total
	}

	now := c.now()

	c.procMu.Lock()
	elapsed := now.Sub(c.lastProcAt).Seconds()
	prev := c.prevProc
	next := make(map[int32]float64, len(samples))

	entries := make([]ProcessEntry, 0, len(samples))
	for _, s := range samples {
		next[s.pid] = s.cpuTotal

		var cpuPct float64
		if prevTotal, ok := prev[s.pid]; ok && elapsed > 0 {
			delta := s.cpuTotal - prevTotal
			if delta < 0 {
				delta = 0
			}
			cpuPct = math.Min(delta/elapsed*100/float64(cores), 100)
		}

		var memPct float64
		if memTotal > 0 {
			memPct = float64(s.rss) / float64(memTotal) * 100
		}

		entries = append(entries, ProcessEntry{
			PID:           int(s.pid),
			Name:          s.name,
			CPUPercent:    cpuPct,
			Memory:        FormatSize(s.rss),
			MemoryPercent: memPct,
		})
	}

	c.prevProc = next
	c.lastProcAt = now
	c.procMu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CPUPercent != entries[j].CPUPercent {
			return entries[i].CPUPercent > entries[j].CPUPercent
		}
		return entries[i].MemoryPercent > entries[j].MemoryPercent
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// gopsutilProcSamples walks the live process table. Processes that
// vanish or deny access mid-walk are skipped, not fatal.
func gopsutilProcSamples(ctx context.Context) ([]procSample, error) {
	ctx, cancel := context.WithTimeout(ctx, procWalkTimeout)
	defer cancel()

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	samples := make([]procSample, 0, len(procs))
	for _, p := range procs {
		if p == nil {
			continue
		}
		times, err := p.TimesWithContext(ctx)
		if err != nil || times == nil {
			continue
		}

		s := procSample{
			pid:      p.Pid,
			cpuTotal: times.User + times.System,
		}
		s.name, _ = p.NameWithContext(ctx)
		if memInfo, err := p.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			s.rss = memInfo.RSS
		}
		samples = append(samples, s)
	}
	return samples, nil
}
