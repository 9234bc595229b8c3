package stats

// SystemInfo holds the slowly-changing host facts served by /api/system.
// It is gathered fresh on every request.
type SystemInfo struct {
	Platform        string      `json:"platform"`
	PlatformRelease string      `json:"platform_release"`
	PlatformVersion string      `json:"platform_version"`
	Architecture    string      `json:"architecture"`
	Hostname        string      `json:"hostname"`
	Processor       string      `json:"processor"`
	CPUCores        int         `json:"cpu_cores"`
	CPUThreads      int         `json:"cpu_threads"`
	RAMTotal        string      `json:"ram_total"`
	GPUList         []GPUDevice `json:"gpu_list"`
	Displays        []Display   `json:"displays"`
	BootTime        string      `json:"boot_time"`
}

// GPUDevice is one inventory entry in SystemInfo. Memory is a "NNNNMB"
// string ("0MB" when the card exposes no memory figure).
type GPUDevice struct {
	Name   string `json:"name"`
	Memory string `json:"memory"`
	Driver string `json:"driver"`
}

type Display struct {
	Resolution string `json:"resolution"`
	Primary    bool   `json:"primary"`
}

// Response is the /api/stats payload. Slices and maps are always
// non-nil so absent capabilities render as [] / {} rather than null.
type Response struct {
	CPU         CPUSnapshot             `json:"cpu"`
	Memory      MemorySnapshot          `json:"memory"`
	Disk        []DiskEntry             `json:"disk"`
	Network     NetworkSnapshot         `json:"network"`
	GPU         []GPUEntry              `json:"gpu"`
	Temperature map[string][]SensorTemp `json:"temperature"`
	History     HistorySnapshot         `json:"history"`
	Timestamp   string                  `json:"timestamp"`
	Errors      *SectionErrors          `json:"errors,omitempty"`
}

// SectionErrors carries per-section failure messages. A missing
// optional capability (GPU, sensors) is not a failure and never lands
// here.
type SectionErrors struct {
	CPU     string `json:"cpu,omitempty"`
	Memory  string `json:"memory,omitempty"`
	Disk    string `json:"disk,omitempty"`
	Network string `json:"network,omitempty"`
}

type CPUSnapshot struct {
	Usage       float64   `json:"usage"`
	FreqCurrent float64   `json:"freq_current"`
	FreqMax     float64   `json:"freq_max"`
	PerCore     []float64 `json:"per_core"`
}

type MemorySnapshot struct {
	Total       string  `json:"total"`
	Available   string  `json:"available"`
	Used        string  `json:"used"`
	Percent     float64 `json:"percent"`
	SwapTotal   string  `json:"swap_total"`
	SwapUsed    string  `json:"swap_used"`
	SwapPercent float64 `json:"swap_percent"`
}

type DiskEntry struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	Fstype     string  `json:"fstype"`
	Total      string  `json:"total"`
	Used       string  `json:"used"`
	Free       string  `json:"free"`
	Percent    float64 `json:"percent"`
}

type NetworkSnapshot struct {
	BytesSent   string `json:"bytes_sent"`
	BytesRecv   string `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

// GPUEntry mirrors the dashboard wire contract: the numeric readings
// travel as pre-formatted strings (one decimal for percents and
// temperature, whole MiB for memory).
type GPUEntry struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Load          string `json:"load"`
	Temp          string `json:"temp"`
	MemoryUsed    string `json:"memory_used"`
	MemoryTotal   string `json:"memory_total"`
	MemoryPercent string `json:"memory_percent"`
}

type SensorTemp struct {
	Label   string  `json:"label"`
	Current float64 `json:"current"`
}

type HistorySnapshot struct {
	CPU []float64 `json:"cpu"`
	RAM []float64 `json:"ram"`
}

// ProcessEntry is one row of /api/processes, ranked by CPU percent.
type ProcessEntry struct {
	PID           int     `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	Memory        string  `json:"memory"`
	MemoryPercent float64 `json:"memory_percent"`
}
