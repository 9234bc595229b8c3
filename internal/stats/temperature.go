package stats

import (
	"math"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// sampleTemperature is best-effort: platforms without sensor support
// yield an empty map, never an error.
func (c *Collector) sampleTemperature() map[string][]SensorTemp {
	readings, err := c.sensors()
	if err != nil {
		return map[string][]SensorTemp{}
	}
	return groupSensorTemps(readings)
}

// groupSensorTemps arranges flat sensor readings by chip. gopsutil
// joins chip and label into one key with an underscore; splitting at
// the first underscore restores the grouping the dashboard renders.
func groupSensorTemps(readings []host.TemperatureStat) map[string][]SensorTemp {
	out := make(map[string][]SensorTemp, len(readings))
	for _, r := range readings {
		if !isFinite(r.Temperature) {
			continue
		}
		chip, label := splitSensorKey(r.SensorKey)
		if chip == "" {
			continue
		}
		out[chip] = append(out[chip], SensorTemp{Label: label, Current: r.Temperature})
	}
	return out
}

func splitSensorKey(key string) (chip, label string) {
	key = strings.TrimSpace(key)
	if i := strings.Index(key, "_"); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

// isFinite filters the NaN and Inf readings some drivers report; they
// are not representable in JSON.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
