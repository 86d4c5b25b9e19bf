package temps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/afancontrol/afancontrol/internal/configuration"
)

func status(temp float64) *TempStatus {
	return &TempStatus{Temp: temp, Min: 30, Max: 50}
}

func TestNullFilterPassesReadingsThrough(t *testing.T) {
	// GIVEN
	filter := &NullFilter{}
	assert.NoError(t, filter.Acquire())

	// WHEN
	result := filter.Apply(status(42))

	// THEN
	assert.Equal(t, 42.0, result.Temp)
	assert.Nil(t, filter.Apply(nil))
}

func TestMovingMedianFilter(t *testing.T) {
	// GIVEN
	filter, err := newFilter(&configuration.FilterConfig{
		Type:       configuration.FilterTypeMedian,
		WindowSize: 3,
	})
	assert.NoError(t, err)
	assert.NoError(t, filter.Acquire())

	// WHEN a spike passes through a window of 3
	input := []float64{42, 45, 47, 123, 46, 49, 51}
	var output []float64
	for _, temp := range input {
		output = append(output, filter.Apply(status(temp)).Temp)
	}

	// THEN the spike never surfaces
	assert.Equal(t, []float64{42, 45, 45, 47, 47, 49, 49}, output)
}

func TestMovingQuantileFilterTreatsMissingAsHottest(t *testing.T) {
	// GIVEN
	filter := newMovingQuantileFilter(0.5, 3)
	assert.NoError(t, filter.Acquire())

	// WHEN the sensor fails on every second read
	filter.Apply(status(40))
	filter.Apply(nil)
	result := filter.Apply(status(41))

	// THEN the missing reading sorts above all real ones, pushing the
	// median to the hotter side
	assert.NotNil(t, result)
	assert.Equal(t, 41.0, result.Temp)
}

func TestMovingQuantileFilterAllMissing(t *testing.T) {
	// GIVEN
	filter := newMovingQuantileFilter(0.5, 3)
	assert.NoError(t, filter.Acquire())

	// WHEN
	filter.Apply(nil)
	result := filter.Apply(nil)

	// THEN
	assert.Nil(t, result)
}

func TestMovingQuantileFilterWindowSlides(t *testing.T) {
	// GIVEN
	filter := newMovingQuantileFilter(0.5, 2)
	assert.NoError(t, filter.Acquire())

	// WHEN
	filter.Apply(status(10))
	filter.Apply(status(20))
	result := filter.Apply(status(30))

	// THEN the oldest reading has left the window
	assert.Equal(t, 30.0, result.Temp)
	assert.Len(t, filter.history, 2)
}

func TestFilterReleaseDropsHistory(t *testing.T) {
	// GIVEN
	filter := newMovingQuantileFilter(0.5, 3)
	assert.NoError(t, filter.Acquire())
	filter.Apply(status(40))

	// WHEN
	assert.NoError(t, filter.Release())

	// THEN
	assert.Nil(t, filter.history)
}

func TestNewFilterRejectsUnknownType(t *testing.T) {
	// WHEN
	_, err := newFilter(&configuration.FilterConfig{Type: "bogus"})

	// THEN
	assert.Error(t, err)
}
