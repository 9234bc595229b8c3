package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomek7667/sysmon/internal/stats"
)

func TestStatsTopic(t *testing.T) {
	tests := []struct {
		prefix   string
		hostname string
		want     string
	}{
		{"fleet", "office-box", "fleet/office-box/stats"},
		{"sysmon", "nas", "sysmon/nas/stats"},
		{"", "nas", "sysmon/nas/stats"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statsTopic(tt.prefix, tt.hostname))
	}
}

func TestNewPayload(t *testing.T) {
	resp := stats.Response{
		CPU:       stats.CPUSnapshot{Usage: 42.5},
		Memory:    stats.MemorySnapshot{Percent: 61.2},
		Timestamp: "2024-05-17 10:30:00",
	}

	p := newPayload("office-box", resp)
	assert.Equal(t, "office-box", p.Hostname)
	assert.Equal(t, 42.5, p.CPU)
	assert.Equal(t, 61.2, p.Memory)
	assert.Equal(t, "2024-05-17 10:30:00", p.Timestamp)
}

func TestPayloadWireKeys(t *testing.T) {
	raw, err := json.Marshal(payload{Hostname: "h", CPU: 1, Memory: 2, Timestamp: "t"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"hostname", "cpu", "memory", "timestamp"} {
		assert.Contains(t, decoded, key)
	}
}
