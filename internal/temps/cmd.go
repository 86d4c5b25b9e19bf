package temps

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/util"
)

const cmdTimeout = 2 * time.Second

// cmdTemp shells out to an arbitrary command printing one to three
// lines: the temperature, optionally followed by the min and max
// bounds. Bounds printed by the command win over the configured ones.
type cmdTemp struct {
	command string

	min *float64
	max *float64

	execFn func(command string, timeout time.Duration) (string, error)
}

func newCmdTemp(config configuration.SensorConfig) (*cmdTemp, error) {
	return &cmdTemp{
		command: config.Cmd.Command,
		min:     config.Min,
		max:     config.Max,
		execFn:  util.ExecShellCommand,
	}, nil
}

func (t *cmdTemp) read() (float64, float64, float64, error) {
	out, err := t.execFn(t.command, cmdTimeout)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("sensor command failed: %w", err)
	}

	var values []float64
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		value, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("unable to parse sensor command output line '%s': %w", line, err)
		}
		values = append(values, value)
	}

	if len(values) < 1 || len(values) > 3 {
		return 0, 0, 0, fmt.Errorf("sensor command printed %d values, expected 1 to 3", len(values))
	}

	temp := values[0]

	min := t.min
	if len(values) >= 2 {
		min = &values[1]
	}
	max := t.max
	if len(values) >= 3 {
		max = &values[2]
	}
	if min == nil {
		return 0, 0, 0, fmt.Errorf("sensor command printed no min temperature and none is configured")
	}
	if max == nil {
		return 0, 0, 0, fmt.Errorf("sensor command printed no max temperature and none is configured")
	}
	return temp, *min, *max, nil
}
