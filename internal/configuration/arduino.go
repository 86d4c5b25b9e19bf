package configuration

import "time"

type ArduinoConfig struct {
	ID string `json:"id"`
	// Port is the serial port, f.ex. /dev/ttyACM0
	Port     string `json:"port"`
	BaudRate int    `json:"baudRate"`
	// StatusTtl is the maximum age of the last received status before
	// readings are considered stale
	StatusTtl time.Duration `json:"statusTtl"`
}

// Equal compares two arduino sections by value. Identical duplicate
// sections are tolerated (and deduplicated), conflicting ones are a
// configuration error.
func (c ArduinoConfig) Equal(other ArduinoConfig) bool {
	return c.ID == other.ID &&
		c.Port == other.Port &&
		c.BaudRate == other.BaudRate &&
		c.StatusTtl == other.StatusTtl
}
