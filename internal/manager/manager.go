package manager

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/fans"
	"github.com/afancontrol/afancontrol/internal/temps"
	"github.com/afancontrol/afancontrol/internal/trigger"
	"github.com/afancontrol/afancontrol/internal/ui"
	"github.com/afancontrol/afancontrol/internal/util"
)

// Manager runs the control loop: read temperatures, verify fan health,
// evaluate alerts and translate temperatures into fan speeds.
type Manager struct {
	fans     *fans.Fans
	temps    *temps.Temps
	mappings []configuration.MappingConfig
	triggers *trigger.Triggers

	mu           sync.Mutex
	lastStatuses map[string]*temps.ObservedTempStatus
	lastTick     time.Duration
}

func NewManager(
	fans *fans.Fans,
	temps *temps.Temps,
	mappings []configuration.MappingConfig,
	triggers *trigger.Triggers,
) *Manager {
	return &Manager{
		fans:     fans,
		temps:    temps,
		mappings: mappings,
		triggers: triggers,
	}
}

// Acquire prepares sensors first, then takes control of the fans.
// Connections behind arduino fans are opened through the fan
// capabilities, which refcount them.
func (m *Manager) Acquire() error {
	if err := m.temps.Acquire(); err != nil {
		return err
	}
	if err := m.fans.Acquire(); err != nil {
		releaseErr := m.temps.Release()
		return errors.Join(err, releaseErr)
	}
	return nil
}

// Release tears everything down in reverse order. Pending alert leave
// commands fire before the fans are handed back to the hardware.
func (m *Manager) Release() error {
	return errors.Join(
		m.triggers.Release(),
		m.fans.Release(),
		m.temps.Release(),
	)
}

// Tick executes one control loop iteration.
func (m *Manager) Tick() {
	start := time.Now()

	observed := m.temps.GetTemps()
	m.fans.MaybeCheckSpeeds()

	filtered := make(map[string]*temps.TempStatus, len(observed))
	for id, status := range observed {
		filtered[id] = status.Filtered
	}
	m.triggers.Check(filtered)

	if m.triggers.IsAlerting() {
		ui.Warning("Alert active, all fans at full speed")
		m.fans.SetAllToFullSpeed()
	} else {
		m.fans.SetFanSpeeds(m.mapTempsToFanSpeeds(filtered))
	}

	m.mu.Lock()
	m.lastStatuses = observed
	m.lastTick = time.Since(start)
	m.mu.Unlock()
}

// mapTempsToFanSpeeds computes one normalized speed per driven fan.
// Each mapping contributes the demand of its hottest sensor scaled by
// the per-fan modifier; a fan shared between mappings gets the highest
// demand of them all.
func (m *Manager) mapTempsToFanSpeeds(filtered map[string]*temps.TempStatus) map[string]float64 {
	speeds := map[string]float64{}
	for _, mapping := range m.mappings {
		speed := 0.0
		for _, tempId := range mapping.Temps {
			speed = math.Max(speed, tempSpeed(filtered[tempId]))
		}
		for _, fanModifier := range mapping.Fans {
			duty := util.Coerce(speed*fanModifier.Modifier, 0, 1)
			if current, ok := speeds[fanModifier.Fan]; !ok || duty > current {
				speeds[fanModifier.Fan] = duty
			}
		}
	}
	return speeds
}

// tempSpeed converts one filtered reading into a normalized demand.
// A sensor that could not be read demands full speed.
func tempSpeed(status *temps.TempStatus) float64 {
	if status == nil {
		return 1.0
	}
	return util.Coerce(util.Ratio(status.Temp, status.Min, status.Max), 0, 1)
}

// Snapshot returns the most recent tick's sensor statuses and the time
// the tick took. Used by the metrics collectors and the API.
func (m *Manager) Snapshot() (map[string]*temps.ObservedTempStatus, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStatuses, m.lastTick
}

func (m *Manager) IsAlerting() bool {
	return m.triggers.IsAlerting()
}

func (m *Manager) IsPanic() bool {
	return m.triggers.IsPanic()
}

func (m *Manager) IsThreshold() bool {
	return m.triggers.IsThreshold()
}
