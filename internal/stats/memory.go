package stats

import "fmt"

// sampleMemory reads point-in-time RAM and swap usage. Totals travel
// pre-formatted; only the percentages stay numeric for the charts.
func (c *Collector) sampleMemory() (MemorySnapshot, error) {
	vm, err := c.virtualMem()
	if err != nil {
		return MemorySnapshot{}, fmt.Errorf("virtual memory: %w", err)
	}
	if vm == nil {
		return MemorySnapshot{}, fmt.Errorf("virtual memory: no data")
	}

	snap := MemorySnapshot{
		Total:     FormatSize(vm.Total),
		Available: FormatSize(vm.Available),
		Used:      FormatSize(vm.Used),
		Percent:   vm.UsedPercent,
	}

	sm, err := c.swapMem()
	if err != nil {
		return snap, fmt.Errorf("swap memory: %w", err)
	}
	if sm != nil {
		snap.SwapTotal = FormatSize(sm.Total)
		snap.SwapUsed = FormatSize(sm.Used)
		snap.SwapPercent = sm.UsedPercent
	}
	return snap, nil
}
