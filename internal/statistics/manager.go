package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/afancontrol/afancontrol/internal/manager"
)

const managerSubsystem = "manager"

type ManagerCollector struct {
	manager *manager.Manager

	tickDuration *prometheus.Desc
	isPanic      *prometheus.Desc
	isThreshold  *prometheus.Desc
}

func NewManagerCollector(manager *manager.Manager) *ManagerCollector {
	return &ManagerCollector{
		manager: manager,
		tickDuration: prometheus.NewDesc(prometheus.BuildFQName(namespace, managerSubsystem, "tick_duration_seconds"),
			"Duration of the most recent control loop tick",
			nil, nil,
		),
		isPanic: prometheus.NewDesc(prometheus.BuildFQName(namespace, managerSubsystem, "is_panic"),
			"Whether the panic alert is active",
			nil, nil,
		),
		isThreshold: prometheus.NewDesc(prometheus.BuildFQName(namespace, managerSubsystem, "is_threshold"),
			"Whether the threshold alert is active",
			nil, nil,
		),
	}
}

func (collector *ManagerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.tickDuration
	ch <- collector.isPanic
	ch <- collector.isThreshold
}

// Collect implements required collect function for all prometheus collectors
func (collector *ManagerCollector) Collect(ch chan<- prometheus.Metric) {
	_, tickDuration := collector.manager.Snapshot()
	ch <- prometheus.MustNewConstMetric(collector.tickDuration, prometheus.GaugeValue, tickDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(collector.isPanic, prometheus.GaugeValue, boolToFloat(collector.manager.IsPanic()))
	ch <- prometheus.MustNewConstMetric(collector.isThreshold, prometheus.GaugeValue, boolToFloat(collector.manager.IsThreshold()))
}
