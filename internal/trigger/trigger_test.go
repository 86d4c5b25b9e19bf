package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/temps"
)

type commandLog struct {
	commands []string
}

func (l *commandLog) exec(command string, timeout time.Duration) (string, error) {
	l.commands = append(l.commands, command)
	return "", nil
}

type nullReporter struct{}

func (r *nullReporter) Report(reason string, message string) {}

func createTriggers(t *testing.T, config configuration.TriggerConfig) (*Triggers, *commandLog) {
	t.Helper()
	log := &commandLog{}
	triggers := NewTriggers(config, &nullReporter{})
	triggers.Panic.execFn = log.exec
	triggers.Threshold.execFn = log.exec
	return triggers, log
}

func panicStatus(isPanic bool) *temps.TempStatus {
	return &temps.TempStatus{Temp: 40, Min: 30, Max: 50, IsPanic: isPanic}
}

func thresholdStatus(isThreshold bool) *temps.TempStatus {
	return &temps.TempStatus{Temp: 40, Min: 30, Max: 50, IsThreshold: isThreshold}
}

func TestPanicTriggerFiresCommandsOnEdges(t *testing.T) {
	// GIVEN
	triggers, log := createTriggers(t, configuration.TriggerConfig{
		Global: configuration.TriggerActions{
			Panic: configuration.AlertCommands{
				EnterCmd: "panic-enter",
				LeaveCmd: "panic-leave",
			},
		},
		Temps: map[string]configuration.TriggerActions{
			"cpu": {
				Panic: configuration.AlertCommands{
					EnterCmd: "cpu-panic-enter",
					LeaveCmd: "cpu-panic-leave",
				},
			},
		},
	})

	// WHEN the sensor enters the panic zone
	triggers.Check(map[string]*temps.TempStatus{"cpu": panicStatus(true)})

	// THEN
	assert.True(t, triggers.IsPanic())
	assert.True(t, triggers.IsAlerting())
	assert.Equal(t, []string{"cpu-panic-enter", "panic-enter"}, log.commands)

	// WHEN it stays there
	triggers.Check(map[string]*temps.TempStatus{"cpu": panicStatus(true)})

	// THEN no commands fire again
	assert.Equal(t, []string{"cpu-panic-enter", "panic-enter"}, log.commands)

	// WHEN it cools down
	triggers.Check(map[string]*temps.TempStatus{"cpu": panicStatus(false)})

	// THEN
	assert.False(t, triggers.IsAlerting())
	assert.Equal(t,
		[]string{"cpu-panic-enter", "panic-enter", "cpu-panic-leave", "panic-leave"},
		log.commands,
	)
}

func TestPanicTriggerTreatsMissingReadingAsAlerting(t *testing.T) {
	// GIVEN
	triggers, _ := createTriggers(t, configuration.TriggerConfig{})

	// WHEN
	triggers.Check(map[string]*temps.TempStatus{"cpu": nil})

	// THEN
	assert.True(t, triggers.IsPanic())
	assert.False(t, triggers.IsThreshold())
}

func TestThresholdTriggerIgnoresMissingReading(t *testing.T) {
	// GIVEN
	triggers, _ := createTriggers(t, configuration.TriggerConfig{})

	// WHEN
	triggers.Threshold.Check(map[string]*temps.TempStatus{"cpu": nil})

	// THEN
	assert.False(t, triggers.IsThreshold())
}

func TestThresholdTriggerTracksItsOwnZone(t *testing.T) {
	// GIVEN
	triggers, log := createTriggers(t, configuration.TriggerConfig{
		Global: configuration.TriggerActions{
			Threshold: configuration.AlertCommands{EnterCmd: "threshold-enter"},
		},
	})

	// WHEN
	triggers.Check(map[string]*temps.TempStatus{"cpu": thresholdStatus(true)})

	// THEN
	assert.True(t, triggers.IsThreshold())
	assert.False(t, triggers.IsPanic())
	assert.Equal(t, []string{"threshold-enter"}, log.commands)
}

func TestGlobalCommandsFireOnAggregateEdgeOnly(t *testing.T) {
	// GIVEN two sensors
	triggers, log := createTriggers(t, configuration.TriggerConfig{
		Global: configuration.TriggerActions{
			Panic: configuration.AlertCommands{
				EnterCmd: "panic-enter",
				LeaveCmd: "panic-leave",
			},
		},
	})

	// WHEN both enter in sequence
	triggers.Panic.Check(map[string]*temps.TempStatus{
		"cpu": panicStatus(true),
		"hdd": panicStatus(false),
	})
	triggers.Panic.Check(map[string]*temps.TempStatus{
		"cpu": panicStatus(true),
		"hdd": panicStatus(true),
	})

	// THEN the global enter fires once
	assert.Equal(t, []string{"panic-enter"}, log.commands)

	// WHEN one of them leaves
	triggers.Panic.Check(map[string]*temps.TempStatus{
		"cpu": panicStatus(false),
		"hdd": panicStatus(true),
	})

	// THEN the aggregate is still alerting, no leave yet
	assert.Equal(t, []string{"panic-enter"}, log.commands)

	// WHEN the last one leaves
	triggers.Panic.Check(map[string]*temps.TempStatus{
		"cpu": panicStatus(false),
		"hdd": panicStatus(false),
	})

	// THEN
	assert.Equal(t, []string{"panic-enter", "panic-leave"}, log.commands)
}

func TestReleaseFiresPendingLeaveCommands(t *testing.T) {
	// GIVEN an active alert
	triggers, log := createTriggers(t, configuration.TriggerConfig{
		Global: configuration.TriggerActions{
			Panic: configuration.AlertCommands{
				EnterCmd: "panic-enter",
				LeaveCmd: "panic-leave",
			},
		},
		Temps: map[string]configuration.TriggerActions{
			"cpu": {
				Panic: configuration.AlertCommands{LeaveCmd: "cpu-panic-leave"},
			},
		},
	})
	triggers.Check(map[string]*temps.TempStatus{"cpu": panicStatus(true)})

	// WHEN
	assert.NoError(t, triggers.Release())

	// THEN the per-sensor and global leave commands ran
	assert.Equal(t, []string{"panic-enter", "cpu-panic-leave", "panic-leave"}, log.commands)
	assert.False(t, triggers.IsAlerting())
}

func TestBrokenAlertCommandDoesNotPropagate(t *testing.T) {
	// GIVEN
	triggers := NewTriggers(configuration.TriggerConfig{
		Global: configuration.TriggerActions{
			Panic: configuration.AlertCommands{EnterCmd: "broken"},
		},
	}, &nullReporter{})
	triggers.Panic.execFn = func(command string, timeout time.Duration) (string, error) {
		return "", assert.AnError
	}

	// WHEN / THEN: no panic, the alert state is still tracked
	triggers.Check(map[string]*temps.TempStatus{"cpu": panicStatus(true)})
	assert.True(t, triggers.IsPanic())
}
