package stats

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBootTime = time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC)

// newTestCollector returns a Collector with every OS probe replaced by
// a deterministic fake describing a small 4-thread linux box.
func newTestCollector() *Collector {
	c := NewCollector()
	c.window = 0
	c.now = func() time.Time { return time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC) }

	c.cpuPercent = func(_ context.Context, _ time.Duration, percpu bool) ([]float64, error) {
		if percpu {
			return []float64{10, 20, 30, 40}, nil
		}
		return []float64{25}, nil
	}
	c.cpuFreq = func(context.Context) (float64, float64) { return 2400, 3200 }
	c.cpuInfo = func(context.Context) ([]cpu.InfoStat, error) {
		return []cpu.InfoStat{{ModelName: " Example CPU @ 3.20GHz "}}, nil
	}
	c.cpuCounts = func(_ context.Context, logical bool) (int, error) {
		if logical {
			return 4, nil
		}
		return 2, nil
	}
	c.hostInfo = func(context.Context) (*host.InfoStat, error) {
		return &host.InfoStat{
			Hostname:        "testbox",
			OS:              "linux",
			PlatformVersion: "24.04",
			KernelVersion:   "6.8.0-40-generic",
			KernelArch:      "x86_64",
			BootTime:        uint64(testBootTime.Unix()),
		}, nil
	}
	c.virtualMem = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{
			Total:       8 << 30,
			Available:   6 << 30,
			Used:        2 << 30,
			UsedPercent: 25,
		}, nil
	}
	c.swapMem = func() (*mem.SwapMemoryStat, error) {
		return &mem.SwapMemoryStat{Total: 2 << 30, Used: 1 << 29, UsedPercent: 25}, nil
	}
	c.partitions = func(bool) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{
			{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
			{Device: "/dev/sdb1", Mountpoint: "/data", Fstype: "xfs"},
		}, nil
	}
	c.diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{
			Total:       100 << 30,
			Used:        40 << 30,
			Free:        60 << 30,
			UsedPercent: 40,
		}, nil
	}
	c.ioCounters = func(bool) ([]net.IOCountersStat, error) {
		return []net.IOCountersStat{
			{BytesSent: 1536, BytesRecv: 2048, PacketsSent: 10, PacketsRecv: 20},
		}, nil
	}
	c.gpuMetrics = func(context.Context) ([]GPUEntry, error) {
		return nil, errors.New("nvidia-smi not found")
	}
	c.gpuCards = func() ([]GPUDevice, error) {
		return nil, errors.New("pci probe unavailable")
	}
	c.sensors = func() ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{
			{SensorKey: "coretemp_package_id_0", Temperature: 45.5},
			{SensorKey: "coretemp_core_0", Temperature: 43},
		}, nil
	}
	c.procSamples = func(context.Context) ([]procSample, error) {
		return []procSample{}, nil
	}
	return c
}

func TestCollectAssemblesAllSections(t *testing.T) {
	c := newTestCollector()

	resp := c.Collect(context.Background())

	assert.Equal(t, 25.0, resp.CPU.Usage)
	assert.Equal(t, []float64{10, 20, 30, 40}, resp.CPU.PerCore)
	assert.Equal(t, 2400.0, resp.CPU.FreqCurrent)
	assert.Equal(t, 3200.0, resp.CPU.FreqMax)

	assert.Equal(t, "8.00GB", resp.Memory.Total)
	assert.Equal(t, "6.00GB", resp.Memory.Available)
	assert.Equal(t, "2.00GB", resp.Memory.Used)
	assert.Equal(t, 25.0, resp.Memory.Percent)
	assert.Equal(t, "2.00GB", resp.Memory.SwapTotal)
	assert.Equal(t, "512.00MB", resp.Memory.SwapUsed)

	require.Len(t, resp.Disk, 2)
	assert.Equal(t, "/dev/sda1", resp.Disk[0].Device)
	assert.Equal(t, "100.00GB", resp.Disk[0].Total)
	assert.Equal(t, 40.0, resp.Disk[0].Percent)

	assert.Equal(t, "1.50KB", resp.Network.BytesSent)
	assert.Equal(t, "2.00KB", resp.Network.BytesRecv)
	assert.Equal(t, uint64(10), resp.Network.PacketsSent)
	assert.Equal(t, uint64(20), resp.Network.PacketsRecv)

	assert.NotNil(t, resp.GPU)
	assert.Empty(t, resp.GPU)

	require.Contains(t, resp.Temperature, "coretemp")
	assert.Len(t, resp.Temperature["coretemp"], 2)

	assert.Equal(t, "2024-05-17 10:30:00", resp.Timestamp)
	assert.Nil(t, resp.Errors)
}

func TestCollectAppendsHistoryOncePerCall(t *testing.T) {
	c := newTestCollector()

	for i := 0; i < 3; i++ {
		c.Collect(context.Background())
	}

	snap := c.history.Snapshot()
	assert.Equal(t, []float64{25, 25, 25}, snap.CPU)
	assert.Equal(t, []float64{25, 25, 25}, snap.RAM)
}

func TestCollectReportsHistoryInResponse(t *testing.T) {
	c := newTestCollector()

	first := c.Collect(context.Background())
	second := c.Collect(context.Background())

	assert.Len(t, first.History.CPU, 1)
	assert.Len(t, second.History.CPU, 2)
	assert.Len(t, second.History.RAM, 2)
}

func TestCollectDegradedCPUSection(t *testing.T) {
	c := newTestCollector()
	c.cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
		return nil, errors.New("proc unreadable")
	}

	resp := c.Collect(context.Background())

	require.NotNil(t, resp.Errors)
	assert.Contains(t, resp.Errors.CPU, "cpu usage")
	assert.Contains(t, resp.Errors.CPU, "per-core usage")
	assert.Zero(t, resp.CPU.Usage)
	assert.Empty(t, resp.CPU.PerCore)

	// Memory is untouched and the degraded sample still lands in the
	// history as a zero.
	assert.Empty(t, resp.Errors.Memory)
	assert.Equal(t, 25.0, resp.Memory.Percent)
	snap := c.history.Snapshot()
	assert.Equal(t, []float64{0}, snap.CPU)
	assert.Equal(t, []float64{25}, snap.RAM)
}

func TestCollectDegradedMemorySection(t *testing.T) {
	c := newTestCollector()
	c.virtualMem = func() (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("sysctl failed")
	}

	resp := c.Collect(context.Background())

	require.NotNil(t, resp.Errors)
	assert.Contains(t, resp.Errors.Memory, "virtual memory")
	assert.Equal(t, MemorySnapshot{}, resp.Memory)

	assert.Equal(t, 25.0, resp.CPU.Usage)
	snap := c.history.Snapshot()
	assert.Equal(t, []float64{25}, snap.CPU)
	assert.Equal(t, []float64{0}, snap.RAM)
}

func TestCollectPartialCPUWarningKeepsAggregate(t *testing.T) {
	c := newTestCollector()
	c.cpuPercent = func(_ context.Context, _ time.Duration, percpu bool) ([]float64, error) {
		if percpu {
			return nil, errors.New("percpu stats unavailable")
		}
		return []float64{25}, nil
	}

	resp := c.Collect(context.Background())

	require.NotNil(t, resp.Errors)
	assert.Contains(t, resp.Errors.CPU, "per-core usage")
	assert.NotContains(t, resp.Errors.CPU, "cpu usage:")
	assert.Equal(t, 25.0, resp.CPU.Usage)
	assert.Empty(t, resp.CPU.PerCore)
	assert.NotNil(t, resp.CPU.PerCore)
}

func TestCollectErrorsKeyOmittedWhenHealthy(t *testing.T) {
	c := newTestCollector()

	raw, err := json.Marshal(c.Collect(context.Background()))
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded, "errors")

	c.ioCounters = func(bool) ([]net.IOCountersStat, error) {
		return nil, errors.New("netlink down")
	}
	raw, err = json.Marshal(c.Collect(context.Background()))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "errors")
}

func TestCollectConcurrentCallsStayBounded(t *testing.T) {
	c := newTestCollector()

	const goroutines = 8
	const perGoroutine = 10

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				resp := c.Collect(context.Background())
				assert.LessOrEqual(t, len(resp.History.CPU), MaxHistory)
			}
		}()
	}
	wg.Wait()

	snap := c.history.Snapshot()
	assert.Len(t, snap.CPU, MaxHistory)
	assert.Len(t, snap.RAM, MaxHistory)
}

func TestPerCoreLengthMatchesThreadCount(t *testing.T) {
	c := newTestCollector()

	raw, err := json.Marshal(c.Collect(context.Background()))
	require.NoError(t, err)

	var decoded struct {
		CPU struct {
			PerCore []float64 `json:"per_core"`
		} `json:"cpu"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	info, err := c.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Len(t, decoded.CPU.PerCore, info.CPUThreads)
}

func TestStatsResponseWireShape(t *testing.T) {
	c := newTestCollector()

	raw, err := json.Marshal(c.Collect(context.Background()))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{"cpu", "memory", "disk", "network", "gpu", "temperature", "history", "timestamp"} {
		assert.Contains(t, decoded, key)
	}

	network, ok := decoded["network"].(map[string]any)
	require.True(t, ok)
	assert.IsType(t, "", network["bytes_sent"])
	assert.IsType(t, float64(0), network["packets_sent"])

	ts, ok := decoded["timestamp"].(string)
	require.True(t, ok)
	_, err = time.Parse("2006-01-02 15:04:05", ts)
	assert.NoError(t, err)
}
