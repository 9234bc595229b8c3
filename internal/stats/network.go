package stats

import "fmt"

// sampleNetwork reports the system-wide cumulative counters since boot.
// Rates are the caller's business: the dashboard diffs across polls.
func (c *Collector) sampleNetwork() (NetworkSnapshot, error) {
	counters, err := c.ioCounters(false)
	if err != nil {
		return NetworkSnapshot{}, fmt.Errorf("io counters: %w", err)
	}
	if len(counters) == 0 {
		return NetworkSnapshot{
			BytesSent: FormatSize(0),
			BytesRecv: FormatSize(0),
		}, nil
	}

	total := counters[0]
	return NetworkSnapshot{
		BytesSent:   FormatSize(total.BytesSent),
		BytesRecv:   FormatSize(total.BytesRecv),
		PacketsSent: total.PacketsSent,
		PacketsRecv: total.PacketsRecv,
	}, nil
}
