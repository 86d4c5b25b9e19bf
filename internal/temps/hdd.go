package temps

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/util"
)

const hddtempTimeout = 10 * time.Second

// hddTemp polls spinning disks via the hddtemp utility and reports the
// hottest one. Disks that are asleep are skipped by hddtemp itself, so
// a partial answer is fine as long as at least one disk responds.
type hddTemp struct {
	globPattern string
	hddtempBin  string

	min float64
	max float64

	execFn func(command string, timeout time.Duration) (string, error)
}

func newHddTemp(config configuration.SensorConfig) (*hddTemp, error) {
	if config.Min == nil || config.Max == nil {
		return nil, fmt.Errorf("sensor %s: hdd sensors require min and max temperatures", config.ID)
	}
	bin := config.Hdd.HddtempBin
	if bin == "" {
		bin = "hddtemp"
	}
	return &hddTemp{
		globPattern: config.Hdd.Path,
		hddtempBin:  bin,
		min:         *config.Min,
		max:         *config.Max,
		execFn:      util.ExecShellCommand,
	}, nil
}

func (t *hddTemp) read() (float64, float64, float64, error) {
	command := fmt.Sprintf("%s -n -u C -- %s", t.hddtempBin, t.globPattern)
	out, err := t.execFn(command, hddtempTimeout)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("hddtemp failed: %w", err)
	}

	max, ok := maxTemperature(out)
	if !ok {
		return 0, 0, 0, fmt.Errorf("hddtemp returned no valid temperatures for %s", t.globPattern)
	}
	return max, t.min, t.max, nil
}

func maxTemperature(out string) (float64, bool) {
	var max float64
	found := false
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		temp, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		if !found || temp > max {
			max = temp
			found = true
		}
	}
	return max, found
}
