package fans

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/afancontrol/afancontrol/internal/configuration"
)

type mockFanSpeed struct {
	rpm      int
	rpmErr   error
	acquired int
	released int
}

func (m *mockFanSpeed) Acquire() error { m.acquired++; return nil }
func (m *mockFanSpeed) Release() error { m.released++; return nil }
func (m *mockFanSpeed) GetRpm() (int, error) {
	return m.rpm, m.rpmErr
}

type mockPwmRead struct {
	pwm      int
	acquired int
	released int
}

func (m *mockPwmRead) Acquire() error { m.acquired++; return nil }
func (m *mockPwmRead) Release() error { m.released++; return nil }
func (m *mockPwmRead) GetPwm() (int, error) {
	return m.pwm, nil
}

type mockPwmWrite struct {
	written    []int
	writeErr   error
	acquireErr error
	acquired   int
	released   int
}

func (m *mockPwmWrite) Acquire() error {
	m.acquired++
	return m.acquireErr
}
func (m *mockPwmWrite) Release() error { m.released++; return nil }
func (m *mockPwmWrite) SetPwm(pwm int) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, pwm)
	return nil
}
func (m *mockPwmWrite) SetFullSpeed() error {
	return m.SetPwm(MaxPwmValue)
}

func createNormFan(neverStop bool, lineStart int, lineEnd int) (*PwmFanNorm, *mockPwmWrite) {
	write := &mockPwmWrite{}
	fan, err := newPwmFanNorm(
		configuration.FanConfig{
			ID:           "fan1",
			NeverStop:    neverStop,
			PwmLineStart: lineStart,
			PwmLineEnd:   lineEnd,
		},
		&mockFanSpeed{rpm: 1200},
		&mockPwmRead{pwm: 120},
		write,
	)
	if err != nil {
		panic(err)
	}
	return fan, write
}

func TestSetScalesByLineEnd(t *testing.T) {
	// GIVEN
	fan, write := createNormFan(false, 100, 240)

	// WHEN
	pwm, err := fan.Set(0.5)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 120, pwm)
	assert.Equal(t, []int{120}, write.written)
}

func TestSetRoundsUp(t *testing.T) {
	// GIVEN
	fan, _ := createNormFan(false, 100, 240)

	// WHEN
	pwm, err := fan.Set(0.51)

	// THEN
	assert.NoError(t, err)
	// 0.51 * 240 = 122.4
	assert.Equal(t, 123, pwm)
}

func TestSetSnapsDeadZoneToLineStart(t *testing.T) {
	// GIVEN
	fan, _ := createNormFan(false, 100, 240)

	// WHEN
	pwm, err := fan.Set(0.1)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 100, pwm)
}

func TestSetZeroStopsStoppableFan(t *testing.T) {
	// GIVEN
	fan, _ := createNormFan(false, 100, 240)

	// WHEN
	pwm, err := fan.Set(0.0)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 0, pwm)
	assert.True(t, fan.IsStopped(pwm))
}

func TestSetZeroKeepsNeverStopFanSpinning(t *testing.T) {
	// GIVEN
	fan, _ := createNormFan(true, 100, 240)

	// WHEN
	pwm, err := fan.Set(0.0)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 100, pwm)
	assert.False(t, fan.IsStopped(pwm))
}

func TestSetFullDemandBypassesLineEnd(t *testing.T) {
	// GIVEN
	fan, _ := createNormFan(false, 100, 240)

	// WHEN
	pwm, err := fan.Set(1.0)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, MaxPwmValue, pwm)
}

func TestSetClampsOutOfRangeInput(t *testing.T) {
	// GIVEN
	fan, _ := createNormFan(false, 100, 240)

	// WHEN
	over, errOver := fan.Set(1.5)
	under, errUnder := fan.Set(-0.5)

	// THEN
	assert.NoError(t, errOver)
	assert.Equal(t, MaxPwmValue, over)
	assert.NoError(t, errUnder)
	assert.Equal(t, 0, under)
}

func TestSetRemembersLastWrittenPwm(t *testing.T) {
	// GIVEN
	fan, _ := createNormFan(false, 100, 240)

	// WHEN
	_, err := fan.Set(0.5)

	// THEN
	assert.NoError(t, err)
	assert.NotNil(t, fan.LastSetPwm)
	assert.Equal(t, 120, *fan.LastSetPwm)
}

func TestSetPropagatesWriteError(t *testing.T) {
	// GIVEN
	fan, write := createNormFan(false, 100, 240)
	write.writeErr = errors.New("broken")

	// WHEN
	_, err := fan.Set(0.5)

	// THEN
	assert.Error(t, err)
	assert.Nil(t, fan.LastSetPwm)
}

func TestNewPwmFanNormRejectsInvalidLineZone(t *testing.T) {
	// GIVEN
	config := configuration.FanConfig{
		ID:           "fan1",
		PwmLineStart: 200,
		PwmLineEnd:   100,
	}

	// WHEN
	_, err := newPwmFanNorm(config, &mockFanSpeed{}, &mockPwmRead{}, &mockPwmWrite{})

	// THEN
	assert.Error(t, err)
}

func TestAcquireUnwindsOnFailure(t *testing.T) {
	// GIVEN
	speed := &mockFanSpeed{}
	read := &mockPwmRead{}
	write := &mockPwmWrite{acquireErr: errors.New("no pwm control")}
	fan, err := newPwmFanNorm(
		configuration.FanConfig{ID: "fan1", PwmLineStart: 100, PwmLineEnd: 240},
		speed, read, write,
	)
	assert.NoError(t, err)

	// WHEN
	err = fan.Acquire()

	// THEN
	assert.Error(t, err)
	assert.Equal(t, 1, speed.released)
	assert.Equal(t, 1, read.released)
	assert.Equal(t, 0, write.released)
}

func TestReleaseHandsBackInReverseOrder(t *testing.T) {
	// GIVEN
	speed := &mockFanSpeed{}
	read := &mockPwmRead{}
	write := &mockPwmWrite{}
	fan, err := newPwmFanNorm(
		configuration.FanConfig{ID: "fan1", PwmLineStart: 100, PwmLineEnd: 240},
		speed, read, write,
	)
	assert.NoError(t, err)
	assert.NoError(t, fan.Acquire())

	// WHEN
	err = fan.Release()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 1, speed.released)
	assert.Equal(t, 1, read.released)
	assert.Equal(t, 1, write.released)
}
