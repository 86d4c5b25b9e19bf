package temps

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/afancontrol/afancontrol/internal/configuration"
)

func createCmdTemp(t *testing.T, config configuration.SensorConfig, output string, execErr error) *cmdTemp {
	t.Helper()
	source, err := newCmdTemp(config)
	assert.NoError(t, err)
	source.execFn = func(command string, timeout time.Duration) (string, error) {
		return output, execErr
	}
	return source
}

func TestCmdTempSingleLineUsesConfiguredBounds(t *testing.T) {
	// GIVEN
	source := createCmdTemp(t, configuration.SensorConfig{
		ID:  "gpu",
		Min: float(35),
		Max: float(55),
		Cmd: &configuration.CmdSensorConfig{Command: "nvidia-temp"},
	}, "42.5\n", nil)

	// WHEN
	temp, min, max, err := source.read()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 42.5, temp)
	assert.Equal(t, 35.0, min)
	assert.Equal(t, 55.0, max)
}

func TestCmdTempOutputBoundsWinOverConfig(t *testing.T) {
	// GIVEN
	source := createCmdTemp(t, configuration.SensorConfig{
		ID:  "gpu",
		Min: float(35),
		Max: float(55),
		Cmd: &configuration.CmdSensorConfig{Command: "nvidia-temp"},
	}, "42\n30\n60\n", nil)

	// WHEN
	temp, min, max, err := source.read()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 42.0, temp)
	assert.Equal(t, 30.0, min)
	assert.Equal(t, 60.0, max)
}

func TestCmdTempErrorsWithoutAnyBounds(t *testing.T) {
	// GIVEN
	source := createCmdTemp(t, configuration.SensorConfig{
		ID:  "gpu",
		Cmd: &configuration.CmdSensorConfig{Command: "nvidia-temp"},
	}, "42\n", nil)

	// WHEN
	_, _, _, err := source.read()

	// THEN
	assert.Error(t, err)
}

func TestCmdTempRejectsTooManyValues(t *testing.T) {
	// GIVEN
	source := createCmdTemp(t, configuration.SensorConfig{
		ID:  "gpu",
		Cmd: &configuration.CmdSensorConfig{Command: "nvidia-temp"},
	}, "42\n30\n60\n99\n", nil)

	// WHEN
	_, _, _, err := source.read()

	// THEN
	assert.Error(t, err)
}

func TestCmdTempRejectsGarbage(t *testing.T) {
	// GIVEN
	source := createCmdTemp(t, configuration.SensorConfig{
		ID:  "gpu",
		Min: float(35),
		Max: float(55),
		Cmd: &configuration.CmdSensorConfig{Command: "nvidia-temp"},
	}, "not-a-number\n", nil)

	// WHEN
	_, _, _, err := source.read()

	// THEN
	assert.Error(t, err)
}

func TestCmdTempPropagatesExecError(t *testing.T) {
	// GIVEN
	source := createCmdTemp(t, configuration.SensorConfig{
		ID:  "gpu",
		Min: float(35),
		Max: float(55),
		Cmd: &configuration.CmdSensorConfig{Command: "nvidia-temp"},
	}, "", errors.New("exit status 1"))

	// WHEN
	_, _, _, err := source.read()

	// THEN
	assert.Error(t, err)
}
