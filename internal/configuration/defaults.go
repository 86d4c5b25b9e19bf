package configuration

import (
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

const (
	DefaultBaudRate  = 115200
	DefaultStatusTtl = 5 * time.Second

	DefaultPwmLineStart = 100
	DefaultPwmLineEnd   = 240
)

// sectionDefaultsHookFunc fills in per-section defaults for fan and
// arduino blocks before they are decoded. Viper cannot default keys
// inside list sections, so the defaults are injected into the raw maps:
// an omitted key receives its default while an explicit zero survives.
func sectionDefaultsHookFunc() mapstructure.DecodeHookFuncType {
	fanType := reflect.TypeOf(FanConfig{})
	arduinoType := reflect.TypeOf(ArduinoConfig{})

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		section, ok := data.(map[string]interface{})
		if !ok {
			return data, nil
		}
		switch to {
		case fanType:
			setKeyDefault(section, "neverStop", true)
			setKeyDefault(section, "pwmLineStart", DefaultPwmLineStart)
			setKeyDefault(section, "pwmLineEnd", DefaultPwmLineEnd)
		case arduinoType:
			setKeyDefault(section, "baudRate", DefaultBaudRate)
			setKeyDefault(section, "statusTtl", DefaultStatusTtl)
		}
		return section, nil
	}
}

// setKeyDefault sets the given key unless the section already carries it.
// Viper lowercases keys while reading, so the lookup is case insensitive.
func setKeyDefault(section map[string]interface{}, key string, value interface{}) {
	for existing := range section {
		if strings.EqualFold(existing, key) {
			return
		}
	}
	section[key] = value
}
