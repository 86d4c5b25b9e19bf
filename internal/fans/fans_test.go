package fans

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/afancontrol/afancontrol/internal/configuration"
)

type recordingReporter struct {
	reasons []string
}

func (r *recordingReporter) Report(reason string, message string) {
	r.reasons = append(r.reasons, reason)
}

func createTrackedFan(id string, speed *mockFanSpeed, write *mockPwmWrite) *PwmFanNorm {
	fan, err := newPwmFanNorm(
		configuration.FanConfig{
			ID:           id,
			NeverStop:    true,
			PwmLineStart: 100,
			PwmLineEnd:   240,
		},
		speed,
		&mockPwmRead{},
		write,
	)
	if err != nil {
		panic(err)
	}
	return fan
}

func TestCheckSpeedsFlagsDeadFan(t *testing.T) {
	// GIVEN
	speed := &mockFanSpeed{rpm: 0}
	write := &mockPwmWrite{}
	fan := createTrackedFan("fan1", speed, write)
	reporter := &recordingReporter{}
	tracker := NewFans(
		map[string]*PwmFanNorm{"fan1": fan},
		nil,
		reporter,
		time.Nanosecond,
	)

	// WHEN
	tracker.MaybeCheckSpeeds()

	// THEN
	assert.True(t, tracker.IsFanFailing("fan1"))
	assert.Equal(t, []string{"fan failure"}, reporter.reasons)
	// the fan got a full speed kick
	assert.Equal(t, []int{MaxPwmValue}, write.written)
}

func TestCheckSpeedsFlagsFanWithBrokenTacho(t *testing.T) {
	// GIVEN
	speed := &mockFanSpeed{rpmErr: errors.New("read failed")}
	fan := createTrackedFan("fan1", speed, &mockPwmWrite{})
	tracker := NewFans(
		map[string]*PwmFanNorm{"fan1": fan},
		nil,
		&recordingReporter{},
		time.Nanosecond,
	)

	// WHEN
	tracker.MaybeCheckSpeeds()

	// THEN
	assert.True(t, tracker.IsFanFailing("fan1"))
}

func TestCheckSpeedsReportsRecovery(t *testing.T) {
	// GIVEN
	speed := &mockFanSpeed{rpm: 0}
	fan := createTrackedFan("fan1", speed, &mockPwmWrite{})
	reporter := &recordingReporter{}
	tracker := NewFans(
		map[string]*PwmFanNorm{"fan1": fan},
		nil,
		reporter,
		time.Nanosecond,
	)
	tracker.MaybeCheckSpeeds()
	assert.True(t, tracker.IsFanFailing("fan1"))

	// WHEN
	speed.rpm = 900
	time.Sleep(time.Millisecond)
	tracker.MaybeCheckSpeeds()

	// THEN
	assert.False(t, tracker.IsFanFailing("fan1"))
	assert.Equal(t, []string{"fan failure", "fan recovered"}, reporter.reasons)
}

func TestCheckSpeedsSkipsIntentionallyStoppedFan(t *testing.T) {
	// GIVEN
	speed := &mockFanSpeed{rpm: 0}
	write := &mockPwmWrite{}
	fan, err := newPwmFanNorm(
		configuration.FanConfig{
			ID:           "fan1",
			NeverStop:    false,
			PwmLineStart: 100,
			PwmLineEnd:   240,
		},
		speed, &mockPwmRead{}, write,
	)
	assert.NoError(t, err)
	tracker := NewFans(
		map[string]*PwmFanNorm{"fan1": fan},
		nil,
		&recordingReporter{},
		time.Nanosecond,
	)
	tracker.SetFanSpeeds(map[string]float64{"fan1": 0.0})
	assert.True(t, tracker.IsFanStopped("fan1"))

	// WHEN
	tracker.MaybeCheckSpeeds()

	// THEN
	assert.False(t, tracker.IsFanFailing("fan1"))
}

func TestCheckSpeedsIsRateLimited(t *testing.T) {
	// GIVEN
	speed := &mockFanSpeed{rpm: 0}
	fan := createTrackedFan("fan1", speed, &mockPwmWrite{})
	tracker := NewFans(
		map[string]*PwmFanNorm{"fan1": fan},
		nil,
		&recordingReporter{},
		time.Hour,
	)
	tracker.MaybeCheckSpeeds()
	assert.True(t, tracker.IsFanFailing("fan1"))

	// WHEN
	speed.rpm = 900
	tracker.MaybeCheckSpeeds()

	// THEN
	// the second check is within the interval and must not run
	assert.True(t, tracker.IsFanFailing("fan1"))
}

func TestSetFanSpeedsRebuildsStoppedSet(t *testing.T) {
	// GIVEN
	writeA := &mockPwmWrite{}
	writeB := &mockPwmWrite{}
	fanA, _ := newPwmFanNorm(
		configuration.FanConfig{ID: "a", PwmLineStart: 100, PwmLineEnd: 240},
		&mockFanSpeed{rpm: 900}, &mockPwmRead{}, writeA,
	)
	fanB, _ := newPwmFanNorm(
		configuration.FanConfig{ID: "b", PwmLineStart: 100, PwmLineEnd: 240},
		&mockFanSpeed{rpm: 900}, &mockPwmRead{}, writeB,
	)
	tracker := NewFans(
		map[string]*PwmFanNorm{"a": fanA, "b": fanB},
		nil,
		&recordingReporter{},
		time.Hour,
	)

	// WHEN
	tracker.SetFanSpeeds(map[string]float64{"a": 0.0, "b": 0.5})

	// THEN
	assert.True(t, tracker.IsFanStopped("a"))
	assert.False(t, tracker.IsFanStopped("b"))

	// WHEN the stopped fan spins up again
	tracker.SetFanSpeeds(map[string]float64{"a": 0.5, "b": 0.5})

	// THEN
	assert.False(t, tracker.IsFanStopped("a"))
}

func TestSetFanSpeedsDefaultsMissingFanToFullSpeed(t *testing.T) {
	// GIVEN
	write := &mockPwmWrite{}
	fan := createTrackedFan("fan1", &mockFanSpeed{rpm: 900}, write)
	tracker := NewFans(
		map[string]*PwmFanNorm{"fan1": fan},
		nil,
		&recordingReporter{},
		time.Hour,
	)

	// WHEN
	tracker.SetFanSpeeds(map[string]float64{})

	// THEN
	assert.Equal(t, []int{MaxPwmValue}, write.written)
}

func TestSetAllToFullSpeedSkipsFailedFans(t *testing.T) {
	// GIVEN
	deadWrite := &mockPwmWrite{}
	okWrite := &mockPwmWrite{}
	deadFan := createTrackedFan("dead", &mockFanSpeed{rpm: 0}, deadWrite)
	okFan := createTrackedFan("ok", &mockFanSpeed{rpm: 900}, okWrite)
	tracker := NewFans(
		map[string]*PwmFanNorm{"dead": deadFan, "ok": okFan},
		nil,
		&recordingReporter{},
		time.Nanosecond,
	)
	tracker.MaybeCheckSpeeds()
	assert.True(t, tracker.IsFanFailing("dead"))
	kicks := len(deadWrite.written)

	// WHEN
	tracker.SetAllToFullSpeed()

	// THEN
	assert.Equal(t, []int{MaxPwmValue}, okWrite.written)
	// the failed fan got its kick from the health check but nothing more
	assert.Equal(t, kicks, len(deadWrite.written))
}
