package fans

import (
	"fmt"

	"github.com/afancontrol/afancontrol/internal/arduino"
	"github.com/afancontrol/afancontrol/internal/configuration"
	cmap "github.com/orcaman/concurrent-map/v2"
)

const (
	MaxPwmValue = 255
	MinPwmValue = 0
)

var (
	FanMap         = cmap.New[*PwmFanNorm]()
	ReadonlyFanMap = cmap.New[*ReadonlyFan]()
)

// The three fan capabilities. A fan backend implements one or more of
// them, a usable fan is composed of independently swappable capability
// values. Each capability is a scoped resource: Acquire hands control of
// the underlying hardware to this process, Release hands it back.
//
// A failing Release must never be swallowed: it can leave a fan stuck at
// an arbitrary duty cycle.

type FanSpeed interface {
	Acquire() error
	Release() error

	// GetRpm returns the current tachometer reading
	GetRpm() (int, error)
}

type PwmReader interface {
	Acquire() error
	Release() error

	// GetPwm returns the current raw PWM value
	GetPwm() (int, error)
}

type PwmWriter interface {
	Acquire() error
	Release() error

	// SetPwm writes the given raw PWM value, failing with a range error
	// when it is outside [MinPwmValue..MaxPwmValue]
	SetPwm(pwm int) error
	SetFullSpeed() error
}

// IsPwmStopped reports whether the given raw PWM value means "not spinning".
func IsPwmStopped(pwm int) bool {
	return pwm <= 0
}

func validatePwm(pwm int) error {
	if pwm < MinPwmValue || pwm > MaxPwmValue {
		return fmt.Errorf("invalid pwm value %d: it must be within [%d..%d]", pwm, MinPwmValue, MaxPwmValue)
	}
	return nil
}

// NewPwmFanNorm builds a read-write fan from its configuration.
func NewPwmFanNorm(
	config configuration.FanConfig,
	connections map[string]*arduino.Connection,
) (*PwmFanNorm, error) {
	if config.HwMon != nil {
		speed := &HwMonFanSpeed{RpmInput: config.HwMon.RpmInput}
		pwmRead := &HwMonPwmRead{Pwm: config.HwMon.Pwm}
		pwmWrite := NewHwMonPwmWrite(config.HwMon.Pwm)
		return newPwmFanNorm(config, speed, pwmRead, pwmWrite)
	}

	if config.Arduino != nil {
		connection, ok := connections[config.Arduino.Arduino]
		if !ok {
			return nil, fmt.Errorf("fan %s: unknown arduino connection '%s'", config.ID, config.Arduino.Arduino)
		}
		speed := &ArduinoFanSpeed{Connection: connection, TachoPin: config.Arduino.TachoPin}
		pwmRead := &ArduinoPwmRead{Connection: connection, PwmPin: config.Arduino.PwmPin}
		pwmWrite := &ArduinoPwmWrite{Connection: connection, PwmPin: config.Arduino.PwmPin}
		return newPwmFanNorm(config, speed, pwmRead, pwmWrite)
	}

	return nil, fmt.Errorf("no matching writable fan type for fan: %s", config.ID)
}

// NewReadonlyFan builds a fan which is only ever observed.
func NewReadonlyFan(
	config configuration.FanConfig,
	connections map[string]*arduino.Connection,
) (*ReadonlyFan, error) {
	if config.HwMon != nil {
		speed := &HwMonFanSpeed{RpmInput: config.HwMon.RpmInput}
		var pwmRead PwmReader
		if len(config.HwMon.Pwm) > 0 {
			pwmRead = &HwMonPwmRead{Pwm: config.HwMon.Pwm}
		}
		return &ReadonlyFan{Config: config, speed: speed, pwmRead: pwmRead}, nil
	}

	if config.Arduino != nil {
		connection, ok := connections[config.Arduino.Arduino]
		if !ok {
			return nil, fmt.Errorf("fan %s: unknown arduino connection '%s'", config.ID, config.Arduino.Arduino)
		}
		speed := &ArduinoFanSpeed{Connection: connection, TachoPin: config.Arduino.TachoPin}
		pwmRead := &ArduinoPwmRead{Connection: connection, PwmPin: config.Arduino.PwmPin}
		return &ReadonlyFan{Config: config, speed: speed, pwmRead: pwmRead}, nil
	}

	if config.Ipmi != nil {
		speed := NewIpmiFanSpeed(*config.Ipmi)
		return &ReadonlyFan{Config: config, speed: speed}, nil
	}

	return nil, fmt.Errorf("no matching readonly fan type for fan: %s", config.ID)
}
