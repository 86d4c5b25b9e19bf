package fans

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/util"
)

const (
	DefaultIpmiSensorsBin = "/usr/sbin/ipmi-sensors"

	ipmiSensorsTimeout = 2 * time.Second
)

// IpmiFanSpeed reads the speed of a chassis fan through the freeipmi
// ipmi-sensors utility. There is no PWM control over IPMI, so this is a
// speed-only capability.
type IpmiFanSpeed struct {
	Name           string `json:"name"`
	IpmiSensorsBin string `json:"ipmiSensorsBin"`
	ExtraArgs      string `json:"extraArgs"`

	execFn func(executable string, args []string, timeout time.Duration) (string, error)
}

func NewIpmiFanSpeed(config configuration.IpmiFanConfig) *IpmiFanSpeed {
	bin := config.IpmiSensorsBin
	if len(bin) <= 0 {
		bin = DefaultIpmiSensorsBin
	}
	return &IpmiFanSpeed{
		Name:           config.Name,
		IpmiSensorsBin: bin,
		ExtraArgs:      config.ExtraArgs,
		execFn:         util.SafeCmdExecution,
	}
}

func (s *IpmiFanSpeed) Acquire() error { return nil }
func (s *IpmiFanSpeed) Release() error { return nil }

func (s *IpmiFanSpeed) GetRpm() (int, error) {
	out, err := s.callIpmiSensors()
	if err != nil {
		return 0, err
	}
	return s.parseRpm(out)
}

// callIpmiSensors executes the binary directly, no shell features are
// needed and the binary's permissions are verified before every run.
func (s *IpmiFanSpeed) callIpmiSensors() (string, error) {
	args := strings.Fields(s.ExtraArgs)
	args = append(args, "--sensor-types", "Fan", "--comma-separated-output")
	return s.execFn(s.IpmiSensorsBin, args, ipmiSensorsTimeout)
}

// parseRpm extracts this fan's reading from the CSV table printed by
// ipmi-sensors (Name,Reading,Units columns).
func (s *IpmiFanSpeed) parseRpm(out string) (int, error) {
	reader := csv.NewReader(strings.NewReader(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("unable to parse ipmi-sensors output: %w", err)
	}
	if len(records) < 1 {
		return 0, fmt.Errorf("empty ipmi-sensors output")
	}

	header := records[0]
	nameIdx, readingIdx, unitsIdx := -1, -1, -1
	for i, column := range header {
		switch column {
		case "Name":
			nameIdx = i
		case "Reading":
			readingIdx = i
		case "Units":
			unitsIdx = i
		}
	}
	if nameIdx < 0 || readingIdx < 0 || unitsIdx < 0 {
		return 0, fmt.Errorf("unexpected ipmi-sensors header: %v", header)
	}

	for _, row := range records[1:] {
		if len(row) <= nameIdx || row[nameIdx] != s.Name {
			continue
		}
		if len(row) <= unitsIdx || row[unitsIdx] != "RPM" {
			return 0, fmt.Errorf("ipmi sensor '%s' has unexpected units '%s', expected RPM", s.Name, row[unitsIdx])
		}
		reading, err := strconv.ParseFloat(row[readingIdx], 64)
		if err != nil {
			return 0, fmt.Errorf("ipmi sensor '%s' has non-numeric reading '%s'", s.Name, row[readingIdx])
		}
		return int(reading), nil
	}

	return 0, fmt.Errorf("ipmi-sensors output doesn't contain the '%s' fan", s.Name)
}
