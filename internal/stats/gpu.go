package stats

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jaypipes/ghw"
)

// nvidiaSMITimeout bounds the external query so a wedged driver cannot
// stall a stats request.
const nvidiaSMITimeout = 2 * time.Second

// sampleGPU is best-effort: hosts without an NVIDIA stack simply get
// an empty list.
func (c *Collector) sampleGPU(ctx context.Context) []GPUEntry {
	entries, err := c.gpuMetrics(ctx)
	if err != nil || entries == nil {
		return []GPUEntry{}
	}
	return entries
}

// nvidiaSMIMetrics shells out to nvidia-smi for load, temperature and
// memory figures. ghw exposes the PCI inventory but no utilization, so
// the CLI query is the only source for live numbers.
func nvidiaSMIMetrics(ctx context.Context) ([]GPUEntry, error) {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, nvidiaSMITimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path,
		"--query-gpu=name,utilization.gpu,memory.used,memory.total,temperature.gpu",
		"--format=csv,noheader,nounits",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("nvidia-smi: %w", ctx.Err())
		}
		return nil, fmt.Errorf("nvidia-smi: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return parseNvidiaSMI(string(out)), nil
}

// parseNvidiaSMI converts the CSV query output into wire entries. The
// dashboard contract carries the readings as pre-formatted strings;
// memory figures are MiB.
func parseNvidiaSMI(out string) []GPUEntry {
	text := strings.TrimSpace(out)
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	entries := make([]GPUEntry, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 5 {
			continue
		}

		load, _ := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		memUsed, _ := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		memTotal, _ := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		temp, _ := strconv.ParseFloat(strings.TrimSpace(parts[4]), 64)

		var memPercent float64
		if memTotal > 0 {
			memPercent = memUsed / memTotal * 100
		}

		entries = append(entries, GPUEntry{
			ID:            len(entries),
			Name:          strings.TrimSpace(parts[0]),
			Load:          fmt.Sprintf("%.1f", load),
			Temp:          fmt.Sprintf("%.1f", temp),
			MemoryUsed:    fmt.Sprintf("%.0f", memUsed),
			MemoryTotal:   fmt.Sprintf("%.0f", memTotal),
			MemoryPercent: fmt.Sprintf("%.1f", memPercent),
		})
	}
	return entries
}

// ghwGraphicsCards maps the PCI inventory into system-info entries.
// Memory totals are unknown at the PCI level and stay "0MB" until
// mergeGPUInventory fills them from nvidia-smi.
func ghwGraphicsCards() ([]GPUDevice, error) {
	info, err := ghw.GPU()
	if err != nil {
		return nil, err
	}

	cards := make([]GPUDevice, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		dev := GPUDevice{Memory: "0MB"}
		if card.DeviceInfo != nil {
			dev.Driver = strings.TrimSpace(card.DeviceInfo.Driver)
			if card.DeviceInfo.Product != nil {
				dev.Name = strings.TrimSpace(card.DeviceInfo.Product.Name)
			}
			if dev.Name == "" && card.DeviceInfo.Vendor != nil {
				dev.Name = strings.TrimSpace(card.DeviceInfo.Vendor.Name)
			}
		}
		cards = append(cards, dev)
	}
	return cards, nil
}

// mergeGPUInventory fills the PCI card list with nvidia-smi memory
// totals, pairing metrics to NVIDIA-flagged cards by order. When the
// PCI probe saw nothing usable the metric entries stand alone.
func mergeGPUInventory(cards []GPUDevice, metrics []GPUEntry) []GPUDevice {
	nvidiaIdx := make([]int, 0, len(cards))
	for i, card := range cards {
		name := strings.ToLower(card.Name)
		driver := strings.ToLower(card.Driver)
		if strings.Contains(name, "nvidia") || strings.Contains(driver, "nvidia") {
			nvidiaIdx = append(nvidiaIdx, i)
		}
	}

	if len(nvidiaIdx) == 0 {
		for _, m := range metrics {
			cards = append(cards, GPUDevice{
				Name:   m.Name,
				Memory: m.MemoryTotal + "MB",
				Driver: "nvidia",
			})
		}
		return cards
	}

	for i, m := range metrics {
		if i >= len(nvidiaIdx) {
			break
		}
		pos := nvidiaIdx[i]
		if cards[pos].Name == "" {
			cards[pos].Name = m.Name
		}
		cards[pos].Memory = m.MemoryTotal + "MB"
	}
	return cards
}
