package temps

import (
	"fmt"
	"math"
	"sort"

	"github.com/afancontrol/afancontrol/internal/configuration"
)

// TempFilter smooths a stream of readings. Filters hold state between
// ticks, hence the Acquire/Release pair framing the daemon lifetime.
type TempFilter interface {
	Acquire() error
	Release() error

	// Apply consumes one reading (nil when the read failed) and
	// returns the filtered one.
	Apply(status *TempStatus) *TempStatus
}

func newFilter(config *configuration.FilterConfig) (TempFilter, error) {
	if config == nil {
		return &NullFilter{}, nil
	}
	switch config.Type {
	case configuration.FilterTypeMedian:
		return newMovingQuantileFilter(0.5, config.WindowSize), nil
	case configuration.FilterTypeQuantile:
		return newMovingQuantileFilter(config.Quantile, config.WindowSize), nil
	default:
		return nil, fmt.Errorf("unsupported filter type '%s'", config.Type)
	}
}

// NullFilter passes readings through unchanged.
type NullFilter struct{}

func (f *NullFilter) Acquire() error { return nil }

func (f *NullFilter) Release() error { return nil }

func (f *NullFilter) Apply(status *TempStatus) *TempStatus {
	return status
}

// MovingQuantileFilter keeps a sliding window of readings and returns
// the one at the requested quantile. Missing readings participate in
// the window and sort as hotter than everything else, so a flaky
// sensor drifts the filter towards its fail-safe side instead of
// hiding behind old values.
type MovingQuantileFilter struct {
	quantile   float64
	windowSize int

	history []*TempStatus
}

func newMovingQuantileFilter(quantile float64, windowSize int) *MovingQuantileFilter {
	return &MovingQuantileFilter{
		quantile:   quantile,
		windowSize: windowSize,
	}
}

func (f *MovingQuantileFilter) Acquire() error {
	f.history = make([]*TempStatus, 0, f.windowSize)
	return nil
}

func (f *MovingQuantileFilter) Release() error {
	f.history = nil
	return nil
}

func (f *MovingQuantileFilter) Apply(status *TempStatus) *TempStatus {
	f.history = append(f.history, status)
	if len(f.history) > f.windowSize {
		f.history = f.history[1:]
	}

	sorted := make([]*TempStatus, len(f.history))
	copy(sorted, f.history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sortKey(sorted[i]) < sortKey(sorted[j])
	})

	idx := int(float64(len(sorted)) * f.quantile)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func sortKey(status *TempStatus) float64 {
	if status == nil {
		return math.Inf(1)
	}
	return status.Temp
}
