package fantest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/afancontrol/afancontrol/internal/fans"
	"github.com/afancontrol/afancontrol/internal/persistence"
	"github.com/afancontrol/afancontrol/internal/ui"
	"github.com/afancontrol/afancontrol/internal/util"
)

const (
	settleWindowSize = 10
	// RPM readings this close to each other count as settled
	settleRpmDiff = 20.0
	measureDelay  = 2 * time.Second
	// single tacho readings jitter by up to one pulse period, so each
	// curve point averages a few of them
	rpmSamples     = 3
	rpmSampleDelay = 100 * time.Millisecond
)

// Options control a single measurement sweep.
type Options struct {
	// PwmStep is the PWM increment between measurements.
	PwmStep int
	// Save persists the measured curve when true.
	Save bool
}

// MeasureFan sweeps the fan through its PWM range and records the
// resulting RPM at each step. The fan must already be acquired. The
// fan is left at full speed when the sweep finishes.
func MeasureFan(fan *fans.PwmFanNorm, pers persistence.Persistence, options Options) (map[int]float64, error) {
	step := options.PwmStep
	if step < 1 {
		step = 1
	}

	curve := map[int]float64{}

	ui.Info("Measuring fan %s, this will take a while...", fan.GetId())
	defer func() {
		if err := fan.SetFullSpeed(); err != nil {
			ui.Warning("Unable to restore fan %s to full speed: %v", fan.GetId(), err)
		}
	}()

	initialMeasurement := true
	for pwm := fans.MinPwmValue; pwm <= fans.MaxPwmValue; pwm += step {
		if err := fan.SetRaw(pwm); err != nil {
			return nil, fmt.Errorf("unable to set fan %s to pwm %d: %w", fan.GetId(), pwm, err)
		}

		// verify that the device accepted our value, otherwise skip
		// this step
		actualPwm, err := fan.GetRaw()
		if err != nil {
			return nil, err
		}
		if actualPwm != pwm {
			ui.Warning("Actual PWM value differs from requested one, skipping. Requested: %d Actual: %d", pwm, actualPwm)
			continue
		}

		if initialMeasurement {
			initialMeasurement = false
			waitForFanToSettle(fan)
		} else {
			time.Sleep(measureDelay)
		}

		rpm, err := measureRpm(fan)
		if err != nil {
			return nil, err
		}
		ui.Debug("Measured RPM of %f at PWM %d for fan %s", rpm, pwm, fan.GetId())
		curve[pwm] = rpm
	}

	if options.Save {
		if err := pers.SaveFanRpmCurve(fan.GetId(), curve); err != nil {
			ui.Error("Failed to save fan curve for %s: %v", fan.GetId(), err)
		}
	}
	return curve, nil
}

func measureRpm(fan *fans.PwmFanNorm) (float64, error) {
	samples := make([]float64, 0, rpmSamples)
	for i := 0; i < rpmSamples; i++ {
		rpm, err := fan.GetRpm()
		if err != nil {
			return 0, err
		}
		samples = append(samples, float64(rpm))
		time.Sleep(rpmSampleDelay)
	}
	return util.Avg(samples), nil
}

// waitForFanToSettle blocks until consecutive RPM readings stop
// moving more than the settle threshold.
func waitForFanToSettle(fan *fans.PwmFanNorm) {
	measuredRpmDiffWindow := util.CreateRollingWindow(settleWindowSize)
	util.FillWindow(measuredRpmDiffWindow, settleWindowSize, 2*settleRpmDiff)
	measuredRpmDiffMax := 2 * settleRpmDiff
	oldRpm := 0
	for !(measuredRpmDiffMax < settleRpmDiff) {
		ui.Debug("Waiting for fan %s to settle (current RPM max diff: %f)...", fan.GetId(), measuredRpmDiffMax)
		currentRpm, err := fan.GetRpm()
		if err != nil {
			ui.Warning("Unable to read fan %s speed while settling: %v", fan.GetId(), err)
			return
		}
		measuredRpmDiffWindow.Append(math.Abs(float64(currentRpm - oldRpm)))
		oldRpm = currentRpm
		measuredRpmDiffMax = math.Ceil(util.GetWindowMax(measuredRpmDiffWindow))
		time.Sleep(1 * time.Second)
	}
	ui.Debug("Fan %s has settled (current RPM max diff: %f)", fan.GetId(), measuredRpmDiffMax)
}

// PlotCurve renders a PWM to RPM curve as an ascii graph.
func PlotCurve(curve map[int]float64) string {
	keys := make([]int, 0, len(curve))
	for k := range curve {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	values := make([]float64, 0, len(keys))
	for _, k := range keys {
		values = append(values, curve[k])
	}

	caption := "RPM / PWM"
	return asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
}
