package fans

import (
	"fmt"
	"os"

	"github.com/afancontrol/afancontrol/internal/ui"
	"github.com/afancontrol/afancontrol/internal/util"
)

// Sysfs backed fan capabilities. The pwmN_enable semantics follow the
// lm-sensors fancontrol script: "1" means manual (we own the fan),
// "0" means automatic (results in full speed on most boards).

type HwMonFanSpeed struct {
	// RpmInput is the fanN_input sysfs path
	RpmInput string `json:"rpmInput"`
}

func (s HwMonFanSpeed) Acquire() error { return nil }
func (s HwMonFanSpeed) Release() error { return nil }

func (s HwMonFanSpeed) GetRpm() (int, error) {
	return util.ReadIntFromFile(s.RpmInput)
}

type HwMonPwmRead struct {
	// Pwm is the pwmN sysfs path
	Pwm string `json:"pwm"`
}

func (r HwMonPwmRead) Acquire() error { return nil }
func (r HwMonPwmRead) Release() error { return nil }

func (r HwMonPwmRead) GetPwm() (int, error) {
	return util.ReadIntFromFile(r.Pwm)
}

type HwMonPwmWrite struct {
	Pwm string `json:"pwm"`
	// PwmEnable is the derived pwmN_enable path. Boards without one
	// cannot be switched between manual and automatic control.
	PwmEnable string `json:"pwmEnable"`
}

func NewHwMonPwmWrite(pwmPath string) *HwMonPwmWrite {
	return &HwMonPwmWrite{
		Pwm:       pwmPath,
		PwmEnable: pwmPath + "_enable",
	}
}

func (w *HwMonPwmWrite) hasPwmEnable() bool {
	_, err := os.Stat(w.PwmEnable)
	return err == nil
}

// Acquire switches the fan to manual PWM control and spins it up to full
// speed, so a crash before the first tick leaves the system cool.
func (w *HwMonPwmWrite) Acquire() error {
	if w.hasPwmEnable() {
		if err := util.WriteIntToFile(1, w.PwmEnable); err != nil {
			return fmt.Errorf("unable to enable manual pwm control on %s: %w", w.Pwm, err)
		}
	}
	return w.SetFullSpeed()
}

// Release hands the fan back to automatic control, verified by a
// read-back. When the device refuses, it is forced to manual full speed
// instead. Failing both is reported loudly: the fan may be stuck at an
// arbitrary duty cycle.
func (w *HwMonPwmWrite) Release() error {
	if !w.hasPwmEnable() {
		return w.SetFullSpeed()
	}

	if err := util.WriteIntToFile(0, w.PwmEnable); err == nil {
		if value, err := util.ReadIntFromFile(w.PwmEnable); err == nil && value == 0 {
			return nil
		}
	}

	if err := util.WriteIntToFile(1, w.PwmEnable); err != nil {
		return fmt.Errorf("unable to release pwm control of %s: %w", w.Pwm, err)
	}
	if err := w.SetFullSpeed(); err != nil {
		return fmt.Errorf("unable to release pwm control of %s: %w", w.Pwm, err)
	}

	enabled, err := util.ReadIntFromFile(w.PwmEnable)
	if err == nil && enabled == 1 {
		if pwm, err := util.ReadIntFromFile(w.Pwm); err == nil && pwm >= MaxPwmValue {
			return nil
		}
	}

	return fmt.Errorf("couldn't release pwm control of fan %s", w.Pwm)
}

func (w *HwMonPwmWrite) SetPwm(pwm int) error {
	if err := validatePwm(pwm); err != nil {
		return err
	}
	ui.Debug("Writing pwm %d to %s", pwm, w.Pwm)
	return util.WriteIntToFile(pwm, w.Pwm)
}

func (w *HwMonPwmWrite) SetFullSpeed() error {
	return w.SetPwm(MaxPwmValue)
}
