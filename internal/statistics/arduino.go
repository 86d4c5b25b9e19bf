package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/afancontrol/afancontrol/internal/arduino"
)

const arduinoSubsystem = "arduino"

type ArduinoCollector struct {
	connections []*arduino.Connection

	isConnected *prometheus.Desc
	statusAge   *prometheus.Desc
}

func NewArduinoCollector(connections []*arduino.Connection) *ArduinoCollector {
	return &ArduinoCollector{
		connections: connections,
		isConnected: prometheus.NewDesc(prometheus.BuildFQName(namespace, arduinoSubsystem, "is_connected"),
			"Whether the serial connection to the board is open",
			[]string{"id"}, nil,
		),
		statusAge: prometheus.NewDesc(prometheus.BuildFQName(namespace, arduinoSubsystem, "status_age_seconds"),
			"Age of the most recent status message from the board",
			[]string{"id"}, nil,
		),
	}
}

func (collector *ArduinoCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.isConnected
	ch <- collector.statusAge
}

// Collect implements required collect function for all prometheus collectors
func (collector *ArduinoCollector) Collect(ch chan<- prometheus.Metric) {
	for _, connection := range collector.connections {
		name := connection.Name()
		ch <- prometheus.MustNewConstMetric(collector.isConnected, prometheus.GaugeValue, boolToFloat(connection.IsConnected()), name)
		if age, ok := connection.StatusAge(); ok {
			ch <- prometheus.MustNewConstMetric(collector.statusAge, prometheus.GaugeValue, age.Seconds(), name)
		}
	}
}
