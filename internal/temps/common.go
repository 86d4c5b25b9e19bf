package temps

import (
	"fmt"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/ui"
)

var TempMap = cmap.New[*Temp]()

// TempStatus is a single evaluated reading of a temperature source.
type TempStatus struct {
	Temp float64 `json:"temp"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`

	Panic     *float64 `json:"panic"`
	Threshold *float64 `json:"threshold"`

	IsPanic     bool `json:"isPanic"`
	IsThreshold bool `json:"isThreshold"`
}

// ObservedTempStatus carries both the raw reading and the reading after
// the configured filter. Alerting and speed mapping work on Filtered;
// Raw is kept for observability.
type ObservedTempStatus struct {
	Raw      *TempStatus `json:"raw"`
	Filtered *TempStatus `json:"filtered"`
}

type tempSource interface {
	// read returns the current temperature along with the min/max
	// bounds of the speed mapping zone. Implementations may shadow
	// the configured bounds with device-provided ones.
	read() (temp float64, min float64, max float64, err error)
}

// Temp evaluates a temperature source against its panic and threshold
// levels and runs the configured filter over the readings.
type Temp struct {
	Config configuration.SensorConfig `json:"config"`

	source tempSource
	filter TempFilter
}

func NewTemp(config configuration.SensorConfig) (*Temp, error) {
	var source tempSource
	var err error
	switch {
	case config.File != nil:
		source, err = newFileTemp(config)
	case config.Hdd != nil:
		source, err = newHddTemp(config)
	case config.Cmd != nil:
		source, err = newCmdTemp(config)
	default:
		return nil, fmt.Errorf("sensor %s has no backend configured", config.ID)
	}
	if err != nil {
		return nil, err
	}

	filter, err := newFilter(config.Filter)
	if err != nil {
		return nil, fmt.Errorf("sensor %s: %w", config.ID, err)
	}

	return &Temp{
		Config: config,
		source: source,
		filter: filter,
	}, nil
}

func (t *Temp) GetId() string {
	return t.Config.ID
}

func (t *Temp) Acquire() error {
	return t.filter.Acquire()
}

func (t *Temp) Release() error {
	return t.filter.Release()
}

// Get reads the source once and returns the raw and the filtered
// status. A failed read still runs through the filter (as a missing
// value), so the filter window keeps moving.
func (t *Temp) Get() *ObservedTempStatus {
	raw, err := t.get()
	if err != nil {
		ui.Warning("Sensor %s read failed: %v", t.GetId(), err)
		raw = nil
	}
	return &ObservedTempStatus{
		Raw:      raw,
		Filtered: t.filter.Apply(raw),
	}
}

func (t *Temp) get() (*TempStatus, error) {
	temp, min, max, err := t.source.read()
	if err != nil {
		return nil, err
	}
	if min >= max {
		return nil, fmt.Errorf(
			"sensor %s: min temperature %.1f must be less than max %.1f",
			t.GetId(), min, max,
		)
	}

	status := &TempStatus{
		Temp:      temp,
		Min:       min,
		Max:       max,
		Panic:     t.Config.Panic,
		Threshold: t.Config.Threshold,
	}
	if status.Panic != nil && temp >= *status.Panic {
		status.IsPanic = true
	}
	if status.Threshold != nil && temp >= *status.Threshold {
		status.IsThreshold = true
	}
	return status, nil
}
