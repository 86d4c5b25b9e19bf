package fans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/afancontrol/afancontrol/internal/configuration"
)

const ipmiSensorsOutput = `ID,Name,Type,Reading,Units,Event
370,FAN1,Fan,4800.00,RPM,'OK'
371,FAN2,Fan,5000.00,RPM,'OK'
372,FAN3,Fan,N/A,RPM,N/A
406,PS Status,Power Supply,N/A,N/A,'Presence detected'
`

type ipmiCall struct {
	executable string
	args       []string
}

func createIpmiFanSpeed(name string, output string, execErr error) (*IpmiFanSpeed, *[]ipmiCall) {
	calls := make([]ipmiCall, 0)
	fan := NewIpmiFanSpeed(configuration.IpmiFanConfig{
		Name:      name,
		ExtraArgs: "--host 192.168.1.10",
	})
	fan.execFn = func(executable string, args []string, timeout time.Duration) (string, error) {
		calls = append(calls, ipmiCall{executable: executable, args: args})
		return output, execErr
	}
	return fan, &calls
}

func TestIpmiGetRpmReadsNamedSensor(t *testing.T) {
	// GIVEN
	fan, _ := createIpmiFanSpeed("FAN2", ipmiSensorsOutput, nil)

	// WHEN
	rpm, err := fan.GetRpm()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 5000, rpm)
}

func TestIpmiGetRpmBuildsExpectedCommand(t *testing.T) {
	// GIVEN
	fan, calls := createIpmiFanSpeed("FAN1", ipmiSensorsOutput, nil)

	// WHEN
	_, err := fan.GetRpm()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t,
		[]ipmiCall{{
			executable: "/usr/sbin/ipmi-sensors",
			args:       []string{"--host", "192.168.1.10", "--sensor-types", "Fan", "--comma-separated-output"},
		}},
		*calls,
	)
}

func TestIpmiGetRpmHonorsCustomBin(t *testing.T) {
	// GIVEN
	fan := NewIpmiFanSpeed(configuration.IpmiFanConfig{
		Name:           "FAN1",
		IpmiSensorsBin: "/opt/freeipmi/sbin/ipmi-sensors",
	})
	var call ipmiCall
	fan.execFn = func(executable string, args []string, timeout time.Duration) (string, error) {
		call = ipmiCall{executable: executable, args: args}
		return ipmiSensorsOutput, nil
	}

	// WHEN
	_, err := fan.GetRpm()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, "/opt/freeipmi/sbin/ipmi-sensors", call.executable)
	assert.Equal(t, []string{"--sensor-types", "Fan", "--comma-separated-output"}, call.args)
}

func TestIpmiGetRpmRejectsUnknownSensor(t *testing.T) {
	// GIVEN
	fan, _ := createIpmiFanSpeed("FAN9", ipmiSensorsOutput, nil)

	// WHEN
	_, err := fan.GetRpm()

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "FAN9")
}

func TestIpmiGetRpmRejectsNonRpmUnits(t *testing.T) {
	// GIVEN
	fan, _ := createIpmiFanSpeed("PS Status", ipmiSensorsOutput, nil)

	// WHEN
	_, err := fan.GetRpm()

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "units")
}

func TestIpmiGetRpmRejectsNonNumericReading(t *testing.T) {
	// GIVEN a sensor present but not currently reporting
	fan, _ := createIpmiFanSpeed("FAN3", ipmiSensorsOutput, nil)

	// WHEN
	_, err := fan.GetRpm()

	// THEN
	assert.Error(t, err)
}

func TestIpmiGetRpmRejectsUnexpectedHeader(t *testing.T) {
	// GIVEN
	fan, _ := createIpmiFanSpeed("FAN1", "ID,Label,Value\n370,FAN1,4800\n", nil)

	// WHEN
	_, err := fan.GetRpm()

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestIpmiGetRpmPropagatesExecError(t *testing.T) {
	// GIVEN
	fan, _ := createIpmiFanSpeed("FAN1", "", assert.AnError)

	// WHEN
	_, err := fan.GetRpm()

	// THEN
	assert.Error(t, err)
}
