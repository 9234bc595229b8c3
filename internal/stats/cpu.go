package stats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

const sysfsCPURoot = "/sys/devices/system/cpu"

// sampleCPU measures aggregate and per-core utilization over the same
// window. Running the two measurements concurrently keeps the request
// cost at one window instead of two.
func (c *Collector) sampleCPU(ctx context.Context) (CPUSnapshot, error) {
	snap := CPUSnapshot{PerCore: []float64{}}

	var perCore []float64
	var perCoreErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		perCore, perCoreErr = c.cpuPercent(ctx, c.window, true)
	}()
	total, totalErr := c.cpuPercent(ctx, c.window, false)
	<-done

	var warnings []string
	if totalErr != nil {
		warnings = append(warnings, fmt.Sprintf("cpu usage: %v", totalErr))
	} else if len(total) > 0 {
		snap.Usage = total[0]
	}
	if perCoreErr != nil {
		warnings = append(warnings, fmt.Sprintf("per-core usage: %v", perCoreErr))
	} else if len(perCore) > 0 {
		snap.PerCore = perCore
	}

	snap.FreqCurrent, snap.FreqMax = c.cpuFreq(ctx)

	if len(warnings) > 0 {
		return snap, fmt.Errorf("%s", strings.Join(warnings, "; "))
	}
	return snap, nil
}

// cpuFreqMHz reads the current and maximum CPU frequency in MHz. On
// Linux the sysfs cpufreq interface is authoritative; elsewhere fall
// back to the frequencies gopsutil reports. Unsupported values are 0.
func cpuFreqMHz(ctx context.Context) (current, max float64) {
	if runtime.GOOS == "linux" {
		if cur, top, err := linuxCPUFreq(sysfsCPURoot); err == nil {
			return cur, top
		}
	}

	info, err := cpu.InfoWithContext(ctx)
	if err != nil || len(info) == 0 {
		return 0, 0
	}
	var sum float64
	var n int
	for _, entry := range info {
		if entry.Mhz <= 0 {
			continue
		}
		sum += entry.Mhz
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), 0
}

// linuxCPUFreq aggregates per-thread cpufreq readings under root
// (normally /sys/devices/system/cpu): current is the mean across
// threads, max the highest rated frequency of any thread. Values in
// sysfs are kHz.
func linuxCPUFreq(root string) (float64, float64, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, 0, err
	}

	var curSumKHz, maxKHz int64
	var curCount int64
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, "cpu") {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimPrefix(name, "cpu")); err != nil {
			continue
		}
		base := filepath.Join(root, name, "cpufreq")

		cur, err := readSysfsInt(filepath.Join(base, "scaling_cur_freq"))
		if err != nil || cur <= 0 {
			cur, err = readSysfsInt(filepath.Join(base, "cpuinfo_cur_freq"))
		}
		if err == nil && cur > 0 {
			curSumKHz += cur
			curCount++
		}

		top, err := readSysfsInt(filepath.Join(base, "cpuinfo_max_freq"))
		if err != nil || top <= 0 {
			top, err = readSysfsInt(filepath.Join(base, "scaling_max_freq"))
		}
		if err == nil && top > maxKHz {
			maxKHz = top
		}
	}

	if curCount == 0 && maxKHz == 0 {
		return 0, 0, fmt.Errorf("no cpufreq data under %s", root)
	}

	var current float64
	if curCount > 0 {
		current = float64(curSumKHz) / float64(curCount) / 1000
	}
	return current, float64(maxKHz) / 1000, nil
}

func readSysfsInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, fmt.Errorf("%s is empty", path)
	}
	return strconv.ParseInt(text, 10, 64)
}
