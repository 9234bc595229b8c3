package stats

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// timeLayout is the timestamp format the dashboard renders verbatim.
const timeLayout = "2006-01-02 15:04:05"

// sampleWindow is the blocking interval over which CPU utilization is
// measured; usage is only meaningful as a rate over a non-zero window.
const sampleWindow = 1 * time.Second

// Collector samples the host on demand and owns the rolling history.
// The OS probes are struct fields so tests can swap in a deterministic
// layer instead of live gopsutil calls.
type Collector struct {
	history *History

	window time.Duration
	now    func() time.Time

	cpuPercent  func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	cpuFreq     func(ctx context.Context) (current, max float64)
	cpuInfo     func(ctx context.Context) ([]cpu.InfoStat, error)
	cpuCounts   func(ctx context.Context, logical bool) (int, error)
	hostInfo    func(ctx context.Context) (*host.InfoStat, error)
	virtualMem  func() (*mem.VirtualMemoryStat, error)
	swapMem     func() (*mem.SwapMemoryStat, error)
	partitions  func(all bool) ([]disk.PartitionStat, error)
	diskUsage   func(path string) (*disk.UsageStat, error)
	ioCounters  func(pernic bool) ([]net.IOCountersStat, error)
	gpuMetrics  func(ctx context.Context) ([]GPUEntry, error)
	gpuCards    func() ([]GPUDevice, error)
	sensors     func() ([]host.TemperatureStat, error)
	procSamples func(ctx context.Context) ([]procSample, error)

	// Per-PID cumulative CPU times from the previous TopProcesses
	// call, kept under their own lock.
	procMu     sync.Mutex
	prevProc   map[int32]float64
	lastProcAt time.Time
}

func NewCollector() *Collector {
	return &Collector{
		history:     NewHistory(),
		window:      sampleWindow,
		now:         time.Now,
		cpuPercent:  cpu.PercentWithContext,
		cpuFreq:     cpuFreqMHz,
		cpuInfo:     cpu.InfoWithContext,
		cpuCounts:   cpu.CountsWithContext,
		hostInfo:    host.InfoWithContext,
		virtualMem:  mem.VirtualMemory,
		swapMem:     mem.SwapMemory,
		partitions:  disk.Partitions,
		diskUsage:   disk.Usage,
		ioCounters:  net.IOCounters,
		gpuMetrics:  nvidiaSMIMetrics,
		gpuCards:    ghwGraphicsCards,
		sensors:     host.SensorsTemperatures,
		procSamples: gopsutilProcSamples,
	}
}

// Collect runs every sampler, appends exactly one (cpu%, ram%) pair to
// the rolling history, and assembles the stats payload. A failed
// section is reported in Errors and left zero-valued; its siblings are
// unaffected, and the history is appended either way.
func (c *Collector) Collect(ctx context.Context) Response {
	var errs SectionErrors

	cpuSnap, err := c.sampleCPU(ctx)
	if err != nil {
		errs.CPU = err.Error()
	}
	memSnap, err := c.sampleMemory()
	if err != nil {
		errs.Memory = err.Error()
	}
	diskEntries, err := c.sampleDisk()
	if err != nil {
		errs.Disk = err.Error()
	}
	netSnap, err := c.sampleNetwork()
	if err != nil {
		errs.Network = err.Error()
	}

	c.history.Append(cpuSnap.Usage, memSnap.Percent)

	resp := Response{
		CPU:         cpuSnap,
		Memory:      memSnap,
		Disk:        diskEntries,
		Network:     netSnap,
		GPU:         c.sampleGPU(ctx),
		Temperature: c.sampleTemperature(),
		History:     c.history.Snapshot(),
		Timestamp:   c.now().Format(timeLayout),
	}
	if errs != (SectionErrors{}) {
		resp.Errors = &errs
	}
	return resp
}
