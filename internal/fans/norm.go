package fans

import (
	"errors"
	"fmt"
	"math"

	"github.com/afancontrol/afancontrol/internal/configuration"
)

// PwmFanNorm drives a fan through a normalized [0..1] duty cycle request,
// mapped onto the usable linear zone [pwmLineStart..pwmLineEnd] of the
// physical PWM range.
type PwmFanNorm struct {
	Config configuration.FanConfig `json:"config"`

	speed    FanSpeed
	pwmRead  PwmReader
	pwmWrite PwmWriter

	// LastSetPwm is the raw value written by the most recent Set call
	LastSetPwm *int `json:"lastSetPwm"`
}

func newPwmFanNorm(
	config configuration.FanConfig,
	speed FanSpeed,
	pwmRead PwmReader,
	pwmWrite PwmWriter,
) (*PwmFanNorm, error) {
	if config.PwmLineStart < MinPwmValue || config.PwmLineStart > config.PwmLineEnd {
		return nil, fmt.Errorf(
			"fan %s: invalid pwmLineStart, expected %d <= %d <= pwmLineEnd",
			config.ID, MinPwmValue, config.PwmLineStart,
		)
	}
	if config.PwmLineEnd > MaxPwmValue {
		return nil, fmt.Errorf(
			"fan %s: invalid pwmLineEnd, expected %d <= %d",
			config.ID, config.PwmLineEnd, MaxPwmValue,
		)
	}

	return &PwmFanNorm{
		Config:   config,
		speed:    speed,
		pwmRead:  pwmRead,
		pwmWrite: pwmWrite,
	}, nil
}

func (f *PwmFanNorm) GetId() string {
	return f.Config.ID
}

func (f *PwmFanNorm) ShouldNeverStop() bool {
	return f.Config.NeverStop
}

func (f *PwmFanNorm) PwmLineStart() int {
	return f.Config.PwmLineStart
}

func (f *PwmFanNorm) PwmLineEnd() int {
	return f.Config.PwmLineEnd
}

// Acquire takes control of all capabilities, releasing the already
// acquired ones when one of them fails.
func (f *PwmFanNorm) Acquire() error {
	resources := []interface {
		Acquire() error
		Release() error
	}{f.speed, f.pwmRead, f.pwmWrite}

	var acquired []interface{ Release() error }
	for _, resource := range resources {
		if err := resource.Acquire(); err != nil {
			for i := len(acquired) - 1; i >= 0; i-- {
				if releaseErr := acquired[i].Release(); releaseErr != nil {
					err = errors.Join(err, releaseErr)
				}
			}
			return fmt.Errorf("fan %s: %w", f.GetId(), err)
		}
		acquired = append(acquired, resource)
	}
	return nil
}

// Release hands control back in reverse acquisition order. Errors are
// collected, not short-circuited: every capability gets its chance to
// release.
func (f *PwmFanNorm) Release() error {
	err := errors.Join(
		f.pwmWrite.Release(),
		f.pwmRead.Release(),
		f.speed.Release(),
	)
	if err != nil {
		return fmt.Errorf("fan %s: %w", f.GetId(), err)
	}
	return nil
}

func (f *PwmFanNorm) GetRpm() (int, error) {
	return f.speed.GetRpm()
}

// GetRaw returns the current raw PWM value of the device.
func (f *PwmFanNorm) GetRaw() (int, error) {
	return f.pwmRead.GetPwm()
}

// Get returns the current duty cycle as a normalized value.
func (f *PwmFanNorm) Get() (float64, error) {
	raw, err := f.GetRaw()
	if err != nil {
		return 0, err
	}
	return float64(raw) / MaxPwmValue, nil
}

func (f *PwmFanNorm) IsStopped(pwm int) bool {
	return IsPwmStopped(pwm)
}

// SetRaw writes a raw PWM value, bypassing the line zone mapping.
// Used by the measurement sweep, not the control loop.
func (f *PwmFanNorm) SetRaw(pwm int) error {
	if err := f.pwmWrite.SetPwm(pwm); err != nil {
		return err
	}
	f.LastSetPwm = &pwm
	return nil
}

func (f *PwmFanNorm) SetFullSpeed() error {
	err := f.pwmWrite.SetFullSpeed()
	if err == nil {
		full := MaxPwmValue
		f.LastSetPwm = &full
	}
	return err
}

// Set maps the normalized request onto the device range and writes it:
//
//  1. the request is clamped to [0..1] and scaled by pwmLineEnd
//  2. values in the dead zone below pwmLineStart are snapped up to it
//  3. zero is replaced by pwmLineStart when the fan must never stop
//  4. a request of 1.0 bypasses the line-end cap and yields full speed
//
// Returns the raw PWM value actually written.
func (f *PwmFanNorm) Set(pwmNorm float64) (int, error) {
	pwmNorm = math.Max(pwmNorm, 0.0)
	pwmNorm = math.Min(pwmNorm, 1.0)

	pwm := pwmNorm * float64(f.Config.PwmLineEnd)
	if 0 < pwm && pwm < float64(f.Config.PwmLineStart) {
		pwm = float64(f.Config.PwmLineStart)
	}
	if pwm <= 0 && f.Config.NeverStop {
		pwm = float64(f.Config.PwmLineStart)
	}
	if pwmNorm >= 1.0 {
		pwm = MaxPwmValue
	}

	target := int(math.Ceil(pwm))
	if err := f.pwmWrite.SetPwm(target); err != nil {
		return 0, err
	}
	f.LastSetPwm = &target
	return target, nil
}

// ReadonlyFan is observed through metrics and the API but never driven.
type ReadonlyFan struct {
	Config configuration.FanConfig `json:"config"`

	speed   FanSpeed
	pwmRead PwmReader
}

func (f *ReadonlyFan) GetId() string {
	return f.Config.ID
}

func (f *ReadonlyFan) Acquire() error {
	if err := f.speed.Acquire(); err != nil {
		return fmt.Errorf("fan %s: %w", f.GetId(), err)
	}
	if f.pwmRead != nil {
		if err := f.pwmRead.Acquire(); err != nil {
			releaseErr := f.speed.Release()
			return fmt.Errorf("fan %s: %w", f.GetId(), errors.Join(err, releaseErr))
		}
	}
	return nil
}

func (f *ReadonlyFan) Release() error {
	var err error
	if f.pwmRead != nil {
		err = f.pwmRead.Release()
	}
	err = errors.Join(err, f.speed.Release())
	if err != nil {
		return fmt.Errorf("fan %s: %w", f.GetId(), err)
	}
	return nil
}

func (f *ReadonlyFan) GetRpm() (int, error) {
	return f.speed.GetRpm()
}

// GetRaw returns the current raw PWM value, or false when this fan has
// no pwm read capability.
func (f *ReadonlyFan) GetRaw() (int, bool, error) {
	if f.pwmRead == nil {
		return 0, false, nil
	}
	pwm, err := f.pwmRead.GetPwm()
	return pwm, true, err
}
