package stats

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SystemInfo gathers the slowly-changing host facts. Only the host
// info query can fail the call as a whole; every other field degrades
// independently to its zero value.
func (c *Collector) SystemInfo(ctx context.Context) (SystemInfo, error) {
	hi, err := c.hostInfo(ctx)
	if err != nil {
		return SystemInfo{}, fmt.Errorf("host info: %w", err)
	}

	info := SystemInfo{
		Platform:        platformName(hi.OS),
		PlatformRelease: hi.KernelVersion,
		PlatformVersion: hi.PlatformVersion,
		Architecture:    hi.KernelArch,
		Hostname:        hi.Hostname,
		BootTime:        time.Unix(int64(hi.BootTime), 0).Format(timeLayout),
		Displays:        listDisplays(),
	}

	if cpus, err := c.cpuInfo(ctx); err == nil && len(cpus) > 0 {
		info.Processor = strings.TrimSpace(cpus[0].ModelName)
	}
	if physical, err := c.cpuCounts(ctx, false); err == nil {
		info.CPUCores = physical
	}
	if logical, err := c.cpuCounts(ctx, true); err == nil {
		info.CPUThreads = logical
	}
	if vm, err := c.virtualMem(); err == nil && vm != nil {
		info.RAMTotal = FormatSize(vm.Total)
	}
	info.GPUList = c.gpuInventory(ctx)

	return info, nil
}

// gpuInventory merges the PCI card list with nvidia-smi memory totals.
// Both probes are optional and an empty result is normal.
func (c *Collector) gpuInventory(ctx context.Context) []GPUDevice {
	cards, err := c.gpuCards()
	if err != nil {
		cards = nil
	}
	metrics, _ := c.gpuMetrics(ctx)

	merged := mergeGPUInventory(cards, metrics)
	if merged == nil {
		return []GPUDevice{}
	}
	return merged
}

// platformName renders gopsutil's lowercase OS identifiers the way the
// dashboard labels them.
func platformName(osName string) string {
	switch osName {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	case "openbsd":
		return "OpenBSD"
	case "netbsd":
		return "NetBSD"
	case "":
		return ""
	}
	return strings.ToUpper(osName[:1]) + osName[1:]
}
