package configuration

type SensorConfig struct {
	// ID is the unique identifier of this sensor, referenced by mappings
	// and triggers
	ID string `json:"id"`

	// Min and Max define the temperature range mapped to fan duty 0..1.
	// When omitted for hwmon style file sensors, the companion
	// temp*_min/temp*_max sysfs files are used instead.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
	// Panic and Threshold are the alerting tiers of this sensor
	Panic     *float64 `json:"panic,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`

	Filter *FilterConfig `json:"filter,omitempty"`

	File *FileSensorConfig `json:"file,omitempty"`
	Hdd  *HddSensorConfig  `json:"hdd,omitempty"`
	Cmd  *CmdSensorConfig  `json:"cmd,omitempty"`
}

const (
	FilterTypeMedian   = "median"
	FilterTypeQuantile = "quantile"
)

type FilterConfig struct {
	Type       string  `json:"type"`
	WindowSize int     `json:"windowSize"`
	Quantile   float64 `json:"quantile"`
}

type FileSensorConfig struct {
	// Path of a sysfs temperature file (millidegrees celsius), may
	// contain a glob which must expand to exactly one path
	Path string `json:"path"`
}

type HddSensorConfig struct {
	// Path (glob) of the disk devices, f.ex. /dev/sd?
	Path       string `json:"path"`
	HddtempBin string `json:"hddtempBin"`
}

type CmdSensorConfig struct {
	// Command is executed through a shell and must print one to three
	// lines: temp, min (optional), max (optional)
	Command string `json:"command"`
}
