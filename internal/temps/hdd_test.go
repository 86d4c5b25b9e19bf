package temps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/afancontrol/afancontrol/internal/configuration"
)

func createHddTemp(t *testing.T, output string) (*hddTemp, *string) {
	t.Helper()
	source, err := newHddTemp(configuration.SensorConfig{
		ID:  "hdds",
		Min: float(35),
		Max: float(48),
		Hdd: &configuration.HddSensorConfig{Path: "/dev/sd?"},
	})
	assert.NoError(t, err)

	var executed string
	source.execFn = func(command string, timeout time.Duration) (string, error) {
		executed = command
		return output, nil
	}
	return source, &executed
}

func TestHddTempReportsHottestDisk(t *testing.T) {
	// GIVEN
	source, executed := createHddTemp(t, "38\n41\n36\n")

	// WHEN
	temp, min, max, err := source.read()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 41.0, temp)
	assert.Equal(t, 35.0, min)
	assert.Equal(t, 48.0, max)
	assert.Equal(t, "hddtemp -n -u C -- /dev/sd?", *executed)
}

func TestHddTempSkipsSleepingDisks(t *testing.T) {
	// GIVEN a disk in standby yields a non-numeric line
	source, _ := createHddTemp(t, "38\ndrive is sleeping\n40\n")

	// WHEN
	temp, _, _, err := source.read()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 40.0, temp)
}

func TestHddTempErrorsWhenNoDiskResponds(t *testing.T) {
	// GIVEN
	source, _ := createHddTemp(t, "\n")

	// WHEN
	_, _, _, err := source.read()

	// THEN
	assert.Error(t, err)
}

func TestHddTempRequiresConfiguredBounds(t *testing.T) {
	// WHEN
	_, err := newHddTemp(configuration.SensorConfig{
		ID:  "hdds",
		Hdd: &configuration.HddSensorConfig{Path: "/dev/sd?"},
	})

	// THEN
	assert.Error(t, err)
}
