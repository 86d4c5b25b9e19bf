package configuration

type FanConfig struct {
	// ID is the unique identifier of this fan, referenced by mappings
	ID string `json:"id"`
	// NeverStop ensures that this fan is always spinning at least at
	// its pwmLineStart value
	NeverStop bool `json:"neverStop"`
	// PwmLineStart is the lowest PWM value at which the fan responds
	// linearly to PWM changes
	PwmLineStart int `json:"pwmLineStart"`
	// PwmLineEnd is the highest PWM value of the linear response zone
	PwmLineEnd int `json:"pwmLineEnd"`
	// Readonly fans are monitored but never driven
	Readonly bool `json:"readonly"`

	HwMon   *HwMonFanConfig   `json:"hwMon,omitempty"`
	Arduino *ArduinoFanConfig `json:"arduino,omitempty"`
	Ipmi    *IpmiFanConfig    `json:"ipmi,omitempty"`
}

type HwMonFanConfig struct {
	// Pwm is the sysfs path of the pwm file, f.ex.
	// /sys/class/hwmon/hwmon4/pwm1. The corresponding pwm1_enable
	// path is derived from it.
	Pwm string `json:"pwm"`
	// RpmInput is the sysfs path of the tachometer file, f.ex.
	// /sys/class/hwmon/hwmon4/fan1_input
	RpmInput string `json:"rpmInput"`
}

type ArduinoFanConfig struct {
	// Arduino references an entry of the `arduinos` config section by id
	Arduino  string `json:"arduino"`
	PwmPin   int    `json:"pwmPin"`
	TachoPin int    `json:"tachoPin"`
}

type IpmiFanConfig struct {
	// Name of the sensor as printed by ipmi-sensors
	Name           string `json:"name"`
	IpmiSensorsBin string `json:"ipmiSensorsBin"`
	ExtraArgs      string `json:"extraArgs"`
}
