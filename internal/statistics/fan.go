package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/afancontrol/afancontrol/internal/fans"
)

const fanSubsystem = "fan"

type FanCollector struct {
	fans *fans.Fans

	pwm       *prometheus.Desc
	pwmNorm   *prometheus.Desc
	lineStart *prometheus.Desc
	lineEnd   *prometheus.Desc
	rpm       *prometheus.Desc
	failing   *prometheus.Desc
	stopped   *prometheus.Desc
}

func NewFanCollector(fans *fans.Fans) *FanCollector {
	return &FanCollector{
		fans: fans,
		pwm: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "pwm"),
			"Current PWM value of the fan",
			[]string{"id"}, nil,
		),
		pwmNorm: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "pwm_norm"),
			"Current PWM value of the fan, normalized to [0..1]",
			[]string{"id"}, nil,
		),
		lineStart: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "pwm_line_start"),
			"Lower bound of the fan's linear PWM response zone",
			[]string{"id"}, nil,
		),
		lineEnd: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "pwm_line_end"),
			"Upper bound of the fan's linear PWM response zone",
			[]string{"id"}, nil,
		),
		rpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "rpm"),
			"Current RPM value of the fan",
			[]string{"id"}, nil,
		),
		failing: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "failing"),
			"Whether the fan is currently considered failing",
			[]string{"id"}, nil,
		),
		stopped: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "stopped"),
			"Whether the fan is currently intentionally stopped",
			[]string{"id"}, nil,
		),
	}
}

func (collector *FanCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.pwm
	ch <- collector.pwmNorm
	ch <- collector.lineStart
	ch <- collector.lineEnd
	ch <- collector.rpm
	ch <- collector.failing
	ch <- collector.stopped
}

// Collect implements required collect function for all prometheus collectors
func (collector *FanCollector) Collect(ch chan<- prometheus.Metric) {
	for _, fan := range collector.fans.Writable() {
		fanId := fan.GetId()
		if rpm, err := fan.GetRpm(); err == nil {
			ch <- prometheus.MustNewConstMetric(collector.rpm, prometheus.GaugeValue, float64(rpm), fanId)
		}
		if pwm, err := fan.GetRaw(); err == nil {
			ch <- prometheus.MustNewConstMetric(collector.pwm, prometheus.GaugeValue, float64(pwm), fanId)
		}
		if pwmNorm, err := fan.Get(); err == nil {
			ch <- prometheus.MustNewConstMetric(collector.pwmNorm, prometheus.GaugeValue, pwmNorm, fanId)
		}
		ch <- prometheus.MustNewConstMetric(collector.lineStart, prometheus.GaugeValue, float64(fan.PwmLineStart()), fanId)
		ch <- prometheus.MustNewConstMetric(collector.lineEnd, prometheus.GaugeValue, float64(fan.PwmLineEnd()), fanId)
		ch <- prometheus.MustNewConstMetric(collector.failing, prometheus.GaugeValue, boolToFloat(collector.fans.IsFanFailing(fanId)), fanId)
		ch <- prometheus.MustNewConstMetric(collector.stopped, prometheus.GaugeValue, boolToFloat(collector.fans.IsFanStopped(fanId)), fanId)
	}
	for _, fan := range collector.fans.Readonly() {
		fanId := fan.GetId()
		if rpm, err := fan.GetRpm(); err == nil {
			ch <- prometheus.MustNewConstMetric(collector.rpm, prometheus.GaugeValue, float64(rpm), fanId)
		}
		if pwm, ok, err := fan.GetRaw(); ok && err == nil {
			ch <- prometheus.MustNewConstMetric(collector.pwm, prometheus.GaugeValue, float64(pwm), fanId)
		}
	}
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
