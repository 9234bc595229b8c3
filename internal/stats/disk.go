package stats

import "fmt"

// sampleDisk enumerates physical partitions and sizes each mountpoint.
// A partition whose usage query fails (commonly a permission error on
// another user's mount) is skipped; the sweep itself still succeeds.
func (c *Collector) sampleDisk() ([]DiskEntry, error) {
	parts, err := c.partitions(false)
	if err != nil {
		return []DiskEntry{}, fmt.Errorf("partitions: %w", err)
	}

	entries := make([]DiskEntry, 0, len(parts))
	for _, p := range parts {
		usage, err := c.diskUsage(p.Mountpoint)
		if err != nil || usage == nil {
			continue
		}
		entries = append(entries, DiskEntry{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Fstype:     p.Fstype,
			Total:      FormatSize(usage.Total),
			Used:       FormatSize(usage.Used),
			Free:       FormatSize(usage.Free),
			Percent:    usage.UsedPercent,
		})
	}
	return entries, nil
}
