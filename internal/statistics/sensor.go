package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/afancontrol/afancontrol/internal/manager"
)

const sensorSubsystem = "sensor"

// SensorCollector exposes the readings of the most recent control loop
// tick. Scrapes don't touch the hardware, they report what the loop
// last saw.
type SensorCollector struct {
	manager *manager.Manager

	temp        *prometheus.Desc
	tempRaw     *prometheus.Desc
	min         *prometheus.Desc
	max         *prometheus.Desc
	isPanic     *prometheus.Desc
	isThreshold *prometheus.Desc
}

func NewSensorCollector(manager *manager.Manager) *SensorCollector {
	return &SensorCollector{
		manager: manager,
		temp: prometheus.NewDesc(prometheus.BuildFQName(namespace, sensorSubsystem, "temp"),
			"Filtered temperature of the sensor in degrees Celsius",
			[]string{"id"}, nil,
		),
		tempRaw: prometheus.NewDesc(prometheus.BuildFQName(namespace, sensorSubsystem, "temp_raw"),
			"Unfiltered temperature of the sensor in degrees Celsius",
			[]string{"id"}, nil,
		),
		min: prometheus.NewDesc(prometheus.BuildFQName(namespace, sensorSubsystem, "temp_min"),
			"Lower bound of the fan speed mapping zone",
			[]string{"id"}, nil,
		),
		max: prometheus.NewDesc(prometheus.BuildFQName(namespace, sensorSubsystem, "temp_max"),
			"Upper bound of the fan speed mapping zone",
			[]string{"id"}, nil,
		),
		isPanic: prometheus.NewDesc(prometheus.BuildFQName(namespace, sensorSubsystem, "is_panic"),
			"Whether the sensor is in the panic zone",
			[]string{"id"}, nil,
		),
		isThreshold: prometheus.NewDesc(prometheus.BuildFQName(namespace, sensorSubsystem, "is_threshold"),
			"Whether the sensor is in the threshold zone",
			[]string{"id"}, nil,
		),
	}
}

func (collector *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.temp
	ch <- collector.tempRaw
	ch <- collector.min
	ch <- collector.max
	ch <- collector.isPanic
	ch <- collector.isThreshold
}

// Collect implements required collect function for all prometheus collectors
func (collector *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	statuses, _ := collector.manager.Snapshot()
	for id, observed := range statuses {
		if raw := observed.Raw; raw != nil {
			ch <- prometheus.MustNewConstMetric(collector.tempRaw, prometheus.GaugeValue, raw.Temp, id)
		}
		status := observed.Filtered
		if status == nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(collector.temp, prometheus.GaugeValue, status.Temp, id)
		ch <- prometheus.MustNewConstMetric(collector.min, prometheus.GaugeValue, status.Min, id)
		ch <- prometheus.MustNewConstMetric(collector.max, prometheus.GaugeValue, status.Max, id)
		ch <- prometheus.MustNewConstMetric(collector.isPanic, prometheus.GaugeValue, boolToFloat(status.IsPanic), id)
		ch <- prometheus.MustNewConstMetric(collector.isThreshold, prometheus.GaugeValue, boolToFloat(status.IsThreshold), id)
	}
}
