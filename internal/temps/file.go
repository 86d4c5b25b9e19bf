package temps

import (
	"fmt"
	"os"
	"strings"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/util"
)

// fileTemp reads a hwmon-style tempN_input file containing integer
// millidegrees Celsius.
type fileTemp struct {
	path string

	min *float64
	max *float64
}

func newFileTemp(config configuration.SensorConfig) (*fileTemp, error) {
	path, err := util.ExpandGlob(config.File.Path)
	if err != nil {
		return nil, fmt.Errorf("sensor %s: %w", config.ID, err)
	}
	return &fileTemp{
		path: path,
		min:  config.Min,
		max:  config.Max,
	}, nil
}

func (t *fileTemp) read() (float64, float64, float64, error) {
	temp, err := readMillidegrees(t.path)
	if err != nil {
		return 0, 0, 0, err
	}

	min, err := t.bound(t.min, "_min")
	if err != nil {
		return 0, 0, 0, err
	}
	max, err := t.bound(t.max, "_max")
	if err != nil {
		return 0, 0, 0, err
	}
	return temp, min, max, nil
}

// bound resolves a mapping bound from the config, falling back to the
// companion tempN_min / tempN_max file next to the input file.
func (t *fileTemp) bound(configured *float64, suffix string) (float64, error) {
	if configured != nil {
		return *configured, nil
	}
	companion := strings.TrimSuffix(t.path, "_input") + suffix
	if companion == t.path {
		return 0, fmt.Errorf("no %s temperature for %s", strings.TrimPrefix(suffix, "_"), t.path)
	}
	if _, err := os.Stat(companion); err != nil {
		return 0, fmt.Errorf("no %s temperature for %s", strings.TrimPrefix(suffix, "_"), t.path)
	}
	return readMillidegrees(companion)
}

func readMillidegrees(path string) (float64, error) {
	value, err := util.ReadIntFromFile(path)
	if err != nil {
		return 0, err
	}
	return float64(value) / 1000.0, nil
}
