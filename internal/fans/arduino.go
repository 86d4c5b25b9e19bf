package fans

import (
	"errors"
	"fmt"

	"github.com/afancontrol/afancontrol/internal/arduino"
)

// Arduino backed fan capabilities. All capabilities of all fans attached
// to the same board share one arduino.Connection, which is reference
// counted, so the serial port stays open from the first Acquire to the
// last Release.

type ArduinoFanSpeed struct {
	Connection *arduino.Connection `json:"-"`
	TachoPin   int                 `json:"tachoPin"`
}

func (s ArduinoFanSpeed) Acquire() error {
	return s.Connection.Acquire()
}

func (s ArduinoFanSpeed) Release() error {
	return s.Connection.Release()
}

func (s ArduinoFanSpeed) GetRpm() (int, error) {
	return s.Connection.GetRpm(s.TachoPin)
}

type ArduinoPwmRead struct {
	Connection *arduino.Connection `json:"-"`
	PwmPin     int                 `json:"pwmPin"`
}

func (r ArduinoPwmRead) Acquire() error {
	return r.Connection.Acquire()
}

func (r ArduinoPwmRead) Release() error {
	return r.Connection.Release()
}

func (r ArduinoPwmRead) GetPwm() (int, error) {
	return r.Connection.GetPwm(r.PwmPin)
}

type ArduinoPwmWrite struct {
	Connection *arduino.Connection `json:"-"`
	PwmPin     int                 `json:"pwmPin"`
}

func (w ArduinoPwmWrite) Acquire() error {
	if err := w.Connection.Acquire(); err != nil {
		return err
	}
	return w.SetFullSpeed()
}

// Release spins the fan up to full speed and verifies through a fresh
// status line that the board applied it before dropping the connection
// reference.
func (w ArduinoPwmWrite) Release() error {
	verifyErr := w.releaseToFullSpeed()
	releaseErr := w.Connection.Release()
	return errors.Join(verifyErr, releaseErr)
}

func (w ArduinoPwmWrite) releaseToFullSpeed() error {
	if err := w.SetFullSpeed(); err != nil {
		return err
	}
	if err := w.Connection.WaitForStatus(); err != nil {
		return err
	}

	pwm, err := w.Connection.GetPwm(w.PwmPin)
	if err != nil {
		return err
	}
	if pwm < MaxPwmValue {
		return fmt.Errorf("couldn't release pwm control of arduino pin %d, pwm is stuck at %d", w.PwmPin, pwm)
	}
	return nil
}

func (w ArduinoPwmWrite) SetPwm(pwm int) error {
	if err := validatePwm(pwm); err != nil {
		return err
	}
	return w.Connection.SetPwm(w.PwmPin, pwm)
}

func (w ArduinoPwmWrite) SetFullSpeed() error {
	return w.SetPwm(MaxPwmValue)
}
