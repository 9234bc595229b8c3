package stats

import "sync"

// MaxHistory bounds the rolling CPU/RAM series kept for the dashboard
// charts. One sample is appended per stats collection; the client polls
// every 2 seconds, so 60 points cover roughly the last two minutes.
const MaxHistory = 60

// History holds the only shared mutable state in the process: two
// parallel rolling series, appended once per collection and trimmed
// oldest-first. Every mutation and read goes through the mutex.
type History struct {
	mu  sync.Mutex
	cpu []float64
	ram []float64
}

func NewHistory() *History {
	return &History{}
}

// Append pushes one sample onto both series, evicting the oldest entry
// of each once the capacity is exceeded.
func (h *History) Append(cpuPct, ramPct float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cpu = appendAndTrim(h.cpu, cpuPct)
	h.ram = appendAndTrim(h.ram, ramPct)
}

// Snapshot returns copies of both series. The slices are never nil so
// an empty history still marshals as [].
func (h *History) Snapshot() HistorySnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HistorySnapshot{
		CPU: append([]float64{}, h.cpu...),
		RAM: append([]float64{}, h.ram...),
	}
}

func appendAndTrim(series []float64, value float64) []float64 {
	series = append(series, value)
	if len(series) > MaxHistory {
		series = series[len(series)-MaxHistory:]
	}
	return series
}
