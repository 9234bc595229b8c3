package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupSensorTempsByChip(t *testing.T) {
	readings := []host.TemperatureStat{
		{SensorKey: "coretemp_package_id_0", Temperature: 45.5},
		{SensorKey: "coretemp_core_0", Temperature: 43},
		{SensorKey: "coretemp_core_1", Temperature: 44},
		{SensorKey: "nvme_composite", Temperature: 38},
	}

	grouped := groupSensorTemps(readings)
	require.Len(t, grouped, 2)

	require.Len(t, grouped["coretemp"], 3)
	assert.Equal(t, "package_id_0", grouped["coretemp"][0].Label)
	assert.Equal(t, 45.5, grouped["coretemp"][0].Current)
	assert.Equal(t, "core_0", grouped["coretemp"][1].Label)

	require.Len(t, grouped["nvme"], 1)
	assert.Equal(t, "composite", grouped["nvme"][0].Label)
}

func TestGroupSensorTempsFiltersNonFinite(t *testing.T) {
	readings := []host.TemperatureStat{
		{SensorKey: "acpitz_0", Temperature: math.NaN()},
		{SensorKey: "acpitz_1", Temperature: math.Inf(1)},
		{SensorKey: "acpitz_2", Temperature: 27},
	}

	grouped := groupSensorTemps(readings)
	require.Len(t, grouped["acpitz"], 1)
	assert.Equal(t, 27.0, grouped["acpitz"][0].Current)
}

func TestGroupSensorTempsKeyWithoutUnderscore(t *testing.T) {
	grouped := groupSensorTemps([]host.TemperatureStat{
		{SensorKey: "acpitz", Temperature: 30},
	})

	require.Len(t, grouped["acpitz"], 1)
	assert.Equal(t, "", grouped["acpitz"][0].Label)
}

func TestGroupSensorTempsDropsEmptyKeys(t *testing.T) {
	grouped := groupSensorTemps([]host.TemperatureStat{
		{SensorKey: "", Temperature: 30},
		{SensorKey: "   ", Temperature: 31},
	})
	assert.Empty(t, grouped)
}

func TestSampleTemperatureProbeFailure(t *testing.T) {
	c := newTestCollector()
	c.sensors = func() ([]host.TemperatureStat, error) {
		return nil, errors.New("sensors unsupported")
	}

	temps := c.sampleTemperature()
	assert.NotNil(t, temps)
	assert.Empty(t, temps)
}
