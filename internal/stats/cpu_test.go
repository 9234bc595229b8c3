package stats

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFreqFiles(t *testing.T, root, cpuDir string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, cpuDir, "cpufreq")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, value := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(value+"\n"), 0o644))
	}
}

func TestLinuxCPUFreqAveragesThreads(t *testing.T) {
	root := t.TempDir()
	writeFreqFiles(t, root, "cpu0", map[string]string{
		"scaling_cur_freq": "2000000",
		"cpuinfo_max_freq": "3600000",
	})
	writeFreqFiles(t, root, "cpu1", map[string]string{
		"scaling_cur_freq": "3000000",
		"cpuinfo_max_freq": "3600000",
	})
	// Non-thread entries must be ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cpufreq"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cpuidle"), 0o755))

	cur, max, err := linuxCPUFreq(root)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, cur)
	assert.Equal(t, 3600.0, max)
}

func TestLinuxCPUFreqFallsBackToScalingMax(t *testing.T) {
	root := t.TempDir()
	writeFreqFiles(t, root, "cpu0", map[string]string{
		"scaling_cur_freq": "1800000",
		"scaling_max_freq": "4200000",
	})

	cur, max, err := linuxCPUFreq(root)
	require.NoError(t, err)
	assert.Equal(t, 1800.0, cur)
	assert.Equal(t, 4200.0, max)
}

func TestLinuxCPUFreqCurrentFallback(t *testing.T) {
	root := t.TempDir()
	writeFreqFiles(t, root, "cpu0", map[string]string{
		"cpuinfo_cur_freq": "2200000",
		"cpuinfo_max_freq": "3000000",
	})

	cur, max, err := linuxCPUFreq(root)
	require.NoError(t, err)
	assert.Equal(t, 2200.0, cur)
	assert.Equal(t, 3000.0, max)
}

func TestLinuxCPUFreqNoData(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cpu0"), 0o755))

	_, _, err := linuxCPUFreq(root)
	assert.Error(t, err)
}

func TestLinuxCPUFreqMissingRoot(t *testing.T) {
	_, _, err := linuxCPUFreq(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSampleCPUMeasuresBothGranularitiesOnce(t *testing.T) {
	c := newTestCollector()

	var mu sync.Mutex
	var calls []bool
	c.cpuPercent = func(_ context.Context, interval time.Duration, percpu bool) ([]float64, error) {
		mu.Lock()
		calls = append(calls, percpu)
		mu.Unlock()
		assert.Equal(t, c.window, interval)
		if percpu {
			return []float64{50, 60}, nil
		}
		return []float64{55}, nil
	}

	snap, err := c.sampleCPU(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 55.0, snap.Usage)
	assert.Equal(t, []float64{50, 60}, snap.PerCore)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 2)
	assert.NotEqual(t, calls[0], calls[1])
}

func TestSampleCPUJoinsWarnings(t *testing.T) {
	c := newTestCollector()
	c.cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
		return nil, errors.New("denied")
	}

	_, err := c.sampleCPU(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "; ")
}

func TestSampleCPUFreqIndependentOfUsageFailure(t *testing.T) {
	c := newTestCollector()
	c.cpuPercent = func(context.Context, time.Duration, bool) ([]float64, error) {
		return nil, errors.New("denied")
	}

	snap, err := c.sampleCPU(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2400.0, snap.FreqCurrent)
	assert.Equal(t, 3200.0, snap.FreqMax)
}
