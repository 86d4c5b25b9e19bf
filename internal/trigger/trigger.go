package trigger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/report"
	"github.com/afancontrol/afancontrol/internal/temps"
	"github.com/afancontrol/afancontrol/internal/ui"
	"github.com/afancontrol/afancontrol/internal/util"
)

const alertCmdTimeout = 10 * time.Second

type triggerKind string

const (
	kindPanic     triggerKind = "panic"
	kindThreshold triggerKind = "threshold"
)

// Trigger tracks one alert level (panic or threshold) across all
// sensors. It fires per-sensor enter/leave commands on each sensor's
// own edges and the global enter/leave commands on the aggregate edge.
type Trigger struct {
	kind     triggerKind
	global   configuration.AlertCommands
	perTemp  map[string]configuration.AlertCommands
	reporter report.Reporter

	// protects alertingTemps, which the metrics collectors and the
	// API read while the control loop mutates it
	mu            sync.Mutex
	alertingTemps map[string]struct{}

	execFn func(command string, timeout time.Duration) (string, error)
}

func newTrigger(
	kind triggerKind,
	global configuration.AlertCommands,
	perTemp map[string]configuration.AlertCommands,
	reporter report.Reporter,
) *Trigger {
	return &Trigger{
		kind:          kind,
		global:        global,
		perTemp:       perTemp,
		reporter:      reporter,
		alertingTemps: map[string]struct{}{},
		execFn:        util.ExecShellCommand,
	}
}

func (t *Trigger) IsAlerting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.alertingTemps) > 0
}

// Check feeds one tick of filtered sensor statuses into the trigger.
func (t *Trigger) Check(statuses map[string]*temps.TempStatus) {
	wasAlerting := t.IsAlerting()

	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if t.isTempAlerting(statuses[id]) {
			t.enterTemp(id)
		} else {
			t.leaveTemp(id)
		}
	}

	isAlerting := t.IsAlerting()
	if !wasAlerting && isAlerting {
		message := fmt.Sprintf("%s alert entered, alerting sensors: %s", t.kind, t.alertingList())
		ui.ErrorAndNotify("Alert", message)
		t.reporter.Report(fmt.Sprintf("%s enter", t.kind), message)
		t.run(t.global.EnterCmd)
	} else if wasAlerting && !isAlerting {
		message := fmt.Sprintf("%s alert resolved", t.kind)
		ui.Info("%s", message)
		t.reporter.Report(fmt.Sprintf("%s leave", t.kind), message)
		t.run(t.global.LeaveCmd)
	}
}

// isTempAlerting decides how a missing reading counts. Panic treats a
// sensor it cannot read as alerting: a dead sensor must not silently
// disarm the last line of defense. Threshold is informational and
// stays quiet on missing readings.
func (t *Trigger) isTempAlerting(status *temps.TempStatus) bool {
	if status == nil {
		return t.kind == kindPanic
	}
	if t.kind == kindPanic {
		return status.IsPanic
	}
	return status.IsThreshold
}

func (t *Trigger) enterTemp(id string) {
	t.mu.Lock()
	if _, ok := t.alertingTemps[id]; ok {
		t.mu.Unlock()
		return
	}
	t.alertingTemps[id] = struct{}{}
	t.mu.Unlock()
	ui.Warning("Sensor %s entered the %s zone", id, t.kind)
	if cmds, ok := t.perTemp[id]; ok {
		t.run(cmds.EnterCmd)
	}
}

func (t *Trigger) leaveTemp(id string) {
	t.mu.Lock()
	if _, ok := t.alertingTemps[id]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.alertingTemps, id)
	t.mu.Unlock()
	ui.Info("Sensor %s left the %s zone", id, t.kind)
	if cmds, ok := t.perTemp[id]; ok {
		t.run(cmds.LeaveCmd)
	}
}

// Release fires the pending leave commands for everything still
// alerting, so a daemon shutdown during an alert doesn't leave the
// enter commands unbalanced.
func (t *Trigger) Release() error {
	wasAlerting := t.IsAlerting()

	for _, id := range t.alertingIds() {
		t.leaveTemp(id)
	}

	if wasAlerting {
		t.run(t.global.LeaveCmd)
	}
	return nil
}

// run executes an alert command. Failures are logged and swallowed:
// a broken hook script must never break the control loop.
func (t *Trigger) run(command string) {
	if command == "" {
		return
	}
	if _, err := t.execFn(command, alertCmdTimeout); err != nil {
		ui.Warning("Alert command '%s' failed: %v", command, err)
	}
}

func (t *Trigger) alertingIds() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.alertingTemps))
	for id := range t.alertingTemps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *Trigger) alertingList() string {
	return strings.Join(t.alertingIds(), ", ")
}

// Triggers bundles the panic and threshold triggers of the daemon.
type Triggers struct {
	Panic     *Trigger
	Threshold *Trigger
}

func NewTriggers(config configuration.TriggerConfig, reporter report.Reporter) *Triggers {
	panicPerTemp := map[string]configuration.AlertCommands{}
	thresholdPerTemp := map[string]configuration.AlertCommands{}
	for id, actions := range config.Temps {
		panicPerTemp[id] = actions.Panic
		thresholdPerTemp[id] = actions.Threshold
	}
	return &Triggers{
		Panic:     newTrigger(kindPanic, config.Global.Panic, panicPerTemp, reporter),
		Threshold: newTrigger(kindThreshold, config.Global.Threshold, thresholdPerTemp, reporter),
	}
}

func (t *Triggers) Check(statuses map[string]*temps.TempStatus) {
	t.Panic.Check(statuses)
	t.Threshold.Check(statuses)
}

// IsAlerting reports whether any trigger currently demands full speed.
func (t *Triggers) IsAlerting() bool {
	return t.Panic.IsAlerting() || t.Threshold.IsAlerting()
}

func (t *Triggers) IsPanic() bool {
	return t.Panic.IsAlerting()
}

func (t *Triggers) IsThreshold() bool {
	return t.Threshold.IsAlerting()
}

func (t *Triggers) Release() error {
	thresholdErr := t.Threshold.Release()
	panicErr := t.Panic.Release()
	if thresholdErr != nil {
		return thresholdErr
	}
	return panicErr
}
