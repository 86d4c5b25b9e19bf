package fans

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/afancontrol/afancontrol/internal/report"
	"github.com/afancontrol/afancontrol/internal/ui"
)

// Fans owns every configured fan, keeps track of which ones look
// broken or intentionally stopped, and applies computed speeds.
type Fans struct {
	fans         map[string]*PwmFanNorm
	readonlyFans map[string]*ReadonlyFan
	reporter     report.Reporter

	checkInterval time.Duration
	lastCheck     time.Time

	// protects failedFans and stoppedFans, which are read by the
	// metrics collectors and the API while the control loop mutates
	// them
	mu          sync.Mutex
	failedFans  map[string]struct{}
	stoppedFans map[string]struct{}
}

func NewFans(
	fans map[string]*PwmFanNorm,
	readonlyFans map[string]*ReadonlyFan,
	reporter report.Reporter,
	checkInterval time.Duration,
) *Fans {
	return &Fans{
		fans:          fans,
		readonlyFans:  readonlyFans,
		reporter:      reporter,
		checkInterval: checkInterval,
		failedFans:    map[string]struct{}{},
		stoppedFans:   map[string]struct{}{},
	}
}

func (f *Fans) Fan(id string) (*PwmFanNorm, bool) {
	fan, ok := f.fans[id]
	return fan, ok
}

func (f *Fans) Acquire() error {
	var acquired []interface{ Release() error }
	for _, fan := range f.orderedFans() {
		if err := fan.Acquire(); err != nil {
			for i := len(acquired) - 1; i >= 0; i-- {
				if releaseErr := acquired[i].Release(); releaseErr != nil {
					err = errors.Join(err, releaseErr)
				}
			}
			return err
		}
		acquired = append(acquired, fan)
	}
	for _, fan := range f.orderedReadonlyFans() {
		if err := fan.Acquire(); err != nil {
			for i := len(acquired) - 1; i >= 0; i-- {
				if releaseErr := acquired[i].Release(); releaseErr != nil {
					err = errors.Join(err, releaseErr)
				}
			}
			return err
		}
		acquired = append(acquired, fan)
	}
	return nil
}

func (f *Fans) Release() error {
	var err error
	readonly := f.orderedReadonlyFans()
	for i := len(readonly) - 1; i >= 0; i-- {
		err = errors.Join(err, readonly[i].Release())
	}
	writable := f.orderedFans()
	for i := len(writable) - 1; i >= 0; i-- {
		err = errors.Join(err, writable[i].Release())
	}
	return err
}

func (f *Fans) IsFanFailing(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.failedFans[id]
	return ok
}

func (f *Fans) IsFanStopped(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stoppedFans[id]
	return ok
}

// Writable returns all driven fans in stable order.
func (f *Fans) Writable() []*PwmFanNorm {
	return f.orderedFans()
}

// Readonly returns all observed-only fans in stable order.
func (f *Fans) Readonly() []*ReadonlyFan {
	return f.orderedReadonlyFans()
}

// MaybeCheckSpeeds verifies that every driven fan which should be
// spinning actually is. The check is rate limited by the configured
// interval so slow tachometers don't get flagged on every tick.
func (f *Fans) MaybeCheckSpeeds() {
	now := time.Now()
	if !f.lastCheck.IsZero() && now.Sub(f.lastCheck) < f.checkInterval {
		return
	}
	f.lastCheck = now

	for _, fan := range f.orderedFans() {
		id := fan.GetId()
		if f.IsFanStopped(id) {
			continue
		}

		rpm, err := fan.GetRpm()
		if err != nil || rpm <= 0 {
			f.ensureFailing(fan, rpm, err)
		} else {
			f.ensureRecovered(fan, rpm)
		}
	}
}

func (f *Fans) ensureFailing(fan *PwmFanNorm, rpm int, err error) {
	id := fan.GetId()
	if f.IsFanFailing(id) {
		return
	}
	f.mu.Lock()
	f.failedFans[id] = struct{}{}
	f.mu.Unlock()

	message := fmt.Sprintf("fan %s reported %d RPM", id, rpm)
	if err != nil {
		message = fmt.Sprintf("fan %s speed read failed: %v", id, err)
	}
	ui.ErrorAndNotify("Fan failure", message)
	f.reporter.Report("fan failure", message)

	// kick the fan, it might just need a stronger start
	if kickErr := fan.SetFullSpeed(); kickErr != nil {
		ui.Warning("Unable to set fan %s to full speed: %v", id, kickErr)
	}
}

func (f *Fans) ensureRecovered(fan *PwmFanNorm, rpm int) {
	id := fan.GetId()
	if !f.IsFanFailing(id) {
		return
	}
	f.mu.Lock()
	delete(f.failedFans, id)
	f.mu.Unlock()

	message := fmt.Sprintf("fan %s is spinning again at %d RPM", id, rpm)
	ui.Info("%s", message)
	f.reporter.Report("fan recovered", message)
}

// SetAllToFullSpeed is the alert response: every driven fan that is
// not known to be broken goes to maximum.
func (f *Fans) SetAllToFullSpeed() {
	for _, fan := range f.orderedFans() {
		if f.IsFanFailing(fan.GetId()) {
			continue
		}
		if err := fan.SetFullSpeed(); err != nil {
			ui.Warning("Unable to set fan %s to full speed: %v", fan.GetId(), err)
		}
	}
	f.mu.Lock()
	f.stoppedFans = map[string]struct{}{}
	f.mu.Unlock()
}

// SetFanSpeeds applies one normalized speed per fan and rebuilds the
// stopped set from the raw values actually written. A write failure is
// logged but never aborts the remaining fans.
func (f *Fans) SetFanSpeeds(speeds map[string]float64) {
	stopped := map[string]struct{}{}
	for _, fan := range f.orderedFans() {
		id := fan.GetId()
		speed, ok := speeds[id]
		if !ok {
			ui.Warning("No speed computed for fan %s, setting full speed", id)
			speed = 1.0
		}
		pwm, err := fan.Set(speed)
		if err != nil {
			ui.Warning("Unable to set fan %s speed to %.3f: %v", id, speed, err)
			continue
		}
		if fan.IsStopped(pwm) {
			stopped[id] = struct{}{}
		}
	}
	f.mu.Lock()
	f.stoppedFans = stopped
	f.mu.Unlock()
}

func (f *Fans) orderedFans() []*PwmFanNorm {
	ids := make([]string, 0, len(f.fans))
	for id := range f.fans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	result := make([]*PwmFanNorm, 0, len(ids))
	for _, id := range ids {
		result = append(result, f.fans[id])
	}
	return result
}

func (f *Fans) orderedReadonlyFans() []*ReadonlyFan {
	ids := make([]string, 0, len(f.readonlyFans))
	for id := range f.readonlyFans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	result := make([]*ReadonlyFan, 0, len(ids))
	for _, id := range ids {
		result = append(result, f.readonlyFans[id])
	}
	return result
}

func (f *Fans) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var failing []string
	for id := range f.failedFans {
		failing = append(failing, id)
	}
	sort.Strings(failing)
	return fmt.Sprintf("Fans(failing=[%s])", strings.Join(failing, ", "))
}
