package report

import (
	"strings"
	"time"

	"github.com/afancontrol/afancontrol/internal/ui"
	"github.com/afancontrol/afancontrol/internal/util"
)

const commandTimeout = 10 * time.Second

// Reporter delivers noteworthy events (failed fans, recovered fans,
// alert transitions) to the outside world.
type Reporter interface {
	Report(reason string, message string)
}

// CommandReporter runs a user-supplied shell command for each report,
// substituting %REASON% and %MESSAGE% placeholders.
type CommandReporter struct {
	command string
	execFn  func(command string, timeout time.Duration) (string, error)
}

func NewCommandReporter(command string) *CommandReporter {
	return &CommandReporter{
		command: command,
		execFn:  util.ExecShellCommand,
	}
}

func (r *CommandReporter) Report(reason string, message string) {
	ui.Info("Report: %s: %s", reason, message)

	cmd := strings.ReplaceAll(r.command, "%REASON%", reason)
	cmd = strings.ReplaceAll(cmd, "%MESSAGE%", message)
	if _, err := r.execFn(cmd, commandTimeout); err != nil {
		ui.Warning("Report command failed for '%s': %v", reason, err)
	}
}

// NullReporter drops every report. Used when no report command is
// configured.
type NullReporter struct{}

func (r *NullReporter) Report(reason string, message string) {
	ui.Info("Report: %s: %s", reason, message)
}
