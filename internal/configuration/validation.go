package configuration

import (
	"errors"
	"fmt"

	"github.com/afancontrol/afancontrol/internal/ui"
	"github.com/afancontrol/afancontrol/internal/util"
	"golang.org/x/exp/slices"
)

const (
	MinPwmValue = 0
	MaxPwmValue = 255
)

func Validate(configPath string) error {
	return validateConfig(&CurrentConfig, configPath)
}

func validateConfig(config *Configuration, path string) error {
	err := validateArduinos(config)
	if err != nil {
		return err
	}
	err = validateSensors(config)
	if err != nil {
		return err
	}
	err = validateFans(config)
	if err != nil {
		return err
	}
	err = validateMappings(config)
	if err != nil {
		return err
	}
	err = validateTriggers(config)
	if err != nil {
		return err
	}

	if containsCmdSensors(config) {
		if _, err := util.CheckFilePermissionsForExecution(path); err != nil {
			return fmt.Errorf("config file '%s' has invalid permissions: %s", path, err)
		}
	}

	return nil
}

func containsCmdSensors(config *Configuration) bool {
	for _, sensorConfig := range config.Sensors {
		if sensorConfig.Cmd != nil {
			return true
		}
	}

	return false
}

func validateArduinos(config *Configuration) error {
	var deduplicated []ArduinoConfig
	for _, arduinoConfig := range config.Arduinos {
		if len(arduinoConfig.Port) <= 0 {
			return fmt.Errorf("arduino %s: missing port", arduinoConfig.ID)
		}
		if arduinoConfig.BaudRate <= 0 {
			return fmt.Errorf("arduino %s: baud rate must be > 0", arduinoConfig.ID)
		}
		if arduinoConfig.StatusTtl <= 0 {
			return fmt.Errorf("arduino %s: status ttl must be > 0", arduinoConfig.ID)
		}

		duplicate := false
		for _, seen := range deduplicated {
			if seen.ID != arduinoConfig.ID {
				continue
			}
			if seen.Equal(arduinoConfig) {
				ui.Warning("Duplicate arduino configuration: %s", arduinoConfig.ID)
				duplicate = true
				break
			}
			return fmt.Errorf("arduino %s: conflicting duplicate definition", arduinoConfig.ID)
		}
		if !duplicate {
			deduplicated = append(deduplicated, arduinoConfig)
		}
	}
	config.Arduinos = deduplicated

	return nil
}

func validateSensors(config *Configuration) error {
	var ids []string
	for _, sensorConfig := range config.Sensors {
		if slices.Contains(ids, sensorConfig.ID) {
			return fmt.Errorf("duplicate sensor id: %s", sensorConfig.ID)
		}
		ids = append(ids, sensorConfig.ID)

		subConfigs := 0
		if sensorConfig.File != nil {
			subConfigs++
		}
		if sensorConfig.Hdd != nil {
			subConfigs++
		}
		if sensorConfig.Cmd != nil {
			subConfigs++
		}
		if subConfigs > 1 {
			return fmt.Errorf("sensor %s: only one sensor type can be used per sensor definition block", sensorConfig.ID)
		}
		if subConfigs <= 0 {
			return fmt.Errorf("sensor %s: sub-configuration for sensor is missing, use one of: file | hdd | cmd", sensorConfig.ID)
		}

		if sensorConfig.Min != nil && sensorConfig.Max != nil && *sensorConfig.Min >= *sensorConfig.Max {
			return fmt.Errorf("sensor %s: min temperature must be strictly less than max", sensorConfig.ID)
		}

		if sensorConfig.Hdd != nil && (sensorConfig.Min == nil || sensorConfig.Max == nil) {
			return fmt.Errorf("sensor %s: hdd sensors require explicit min and max temperatures", sensorConfig.ID)
		}

		if err := validateFilter(sensorConfig); err != nil {
			return err
		}

		if !isSensorConfigInUse(sensorConfig, config.Mappings) {
			ui.Warning("Unused sensor configuration: %s", sensorConfig.ID)
		}
	}

	return nil
}

func validateFilter(sensorConfig SensorConfig) error {
	filter := sensorConfig.Filter
	if filter == nil {
		return nil
	}

	supportedTypes := []string{FilterTypeMedian, FilterTypeQuantile}
	if !slices.Contains(supportedTypes, filter.Type) {
		return fmt.Errorf("sensor %s: unsupported filter type '%s', use one of: median | quantile", sensorConfig.ID, filter.Type)
	}
	if filter.WindowSize <= 0 {
		return fmt.Errorf("sensor %s: filter window size must be > 0", sensorConfig.ID)
	}
	if filter.Type == FilterTypeQuantile && (filter.Quantile < 0 || filter.Quantile > 1) {
		return fmt.Errorf("sensor %s: filter quantile must be within [0..1]", sensorConfig.ID)
	}

	return nil
}

func isSensorConfigInUse(config SensorConfig, mappings []MappingConfig) bool {
	for _, mappingConfig := range mappings {
		if slices.Contains(mappingConfig.Temps, config.ID) {
			return true
		}
	}

	return false
}

func validateFans(config *Configuration) error {
	var ids []string
	for _, fanConfig := range config.Fans {
		if slices.Contains(ids, fanConfig.ID) {
			return fmt.Errorf("duplicate fan id: %s", fanConfig.ID)
		}
		ids = append(ids, fanConfig.ID)

		subConfigs := 0
		if fanConfig.HwMon != nil {
			subConfigs++
		}
		if fanConfig.Arduino != nil {
			subConfigs++
		}
		if fanConfig.Ipmi != nil {
			subConfigs++
		}
		if subConfigs > 1 {
			return fmt.Errorf("fan %s: only one fan type can be used per fan definition block", fanConfig.ID)
		}
		if subConfigs <= 0 {
			return fmt.Errorf("fan %s: sub-configuration for fan is missing, use one of: hwMon | arduino | ipmi", fanConfig.ID)
		}

		if fanConfig.Ipmi != nil && !fanConfig.Readonly {
			return fmt.Errorf("fan %s: ipmi fans are speed-only and must be marked readonly", fanConfig.ID)
		}

		if fanConfig.Arduino != nil {
			if !arduinoIdExists(fanConfig.Arduino.Arduino, config) {
				return fmt.Errorf("fan %s: no arduino definition with id '%s' found", fanConfig.ID, fanConfig.Arduino.Arduino)
			}
			for _, pin := range []int{fanConfig.Arduino.PwmPin, fanConfig.Arduino.TachoPin} {
				if pin < 0 || pin > 255 {
					return fmt.Errorf("fan %s: arduino pin %d out of range [0..255]", fanConfig.ID, pin)
				}
			}
		}

		if !fanConfig.Readonly {
			lineStart := fanConfig.PwmLineStart
			lineEnd := fanConfig.PwmLineEnd
			if lineStart < MinPwmValue || lineStart >= lineEnd {
				return fmt.Errorf("fan %s: expected %d <= pwmLineStart < pwmLineEnd, got pwmLineStart=%d", fanConfig.ID, MinPwmValue, lineStart)
			}
			if lineEnd > MaxPwmValue {
				return fmt.Errorf("fan %s: expected pwmLineEnd <= %d, got %d", fanConfig.ID, MaxPwmValue, lineEnd)
			}

			// every writable fan must be driven by at least one mapping,
			// otherwise it would silently stay at its acquisition speed
			if !isFanConfigInUse(fanConfig, config.Mappings) {
				return fmt.Errorf("fan %s: not referenced by any mapping", fanConfig.ID)
			}
		}
	}

	return nil
}

func isFanConfigInUse(config FanConfig, mappings []MappingConfig) bool {
	for _, mappingConfig := range mappings {
		for _, fanModifier := range mappingConfig.Fans {
			if fanModifier.Fan == config.ID {
				return true
			}
		}
	}

	return false
}

func validateMappings(config *Configuration) error {
	var ids []string
	for _, mappingConfig := range config.Mappings {
		if slices.Contains(ids, mappingConfig.ID) {
			return fmt.Errorf("duplicate mapping id: %s", mappingConfig.ID)
		}
		ids = append(ids, mappingConfig.ID)

		if len(mappingConfig.Temps) <= 0 {
			return fmt.Errorf("mapping %s: no temps referenced", mappingConfig.ID)
		}
		if len(mappingConfig.Fans) <= 0 {
			return fmt.Errorf("mapping %s: no fans referenced", mappingConfig.ID)
		}

		for _, tempName := range mappingConfig.Temps {
			if !sensorIdExists(tempName, config) {
				return fmt.Errorf("mapping %s: no sensor definition with id '%s' found", mappingConfig.ID, tempName)
			}
		}

		for _, fanModifier := range mappingConfig.Fans {
			fanConfig, found := findFanConfig(fanModifier.Fan, config)
			if !found {
				return fmt.Errorf("mapping %s: no fan definition with id '%s' found", mappingConfig.ID, fanModifier.Fan)
			}
			if fanConfig.Readonly {
				return fmt.Errorf("mapping %s: fan '%s' is readonly and cannot be driven", mappingConfig.ID, fanModifier.Fan)
			}
			if fanModifier.Modifier <= 0 || fanModifier.Modifier > 1 {
				return fmt.Errorf("mapping %s: fan '%s' modifier must be within (0..1], got %v", mappingConfig.ID, fanModifier.Fan, fanModifier.Modifier)
			}
		}
	}

	return nil
}

func validateTriggers(config *Configuration) error {
	for tempName := range config.Triggers.Temps {
		if !sensorIdExists(tempName, config) {
			return errors.New(fmt.Sprintf("trigger commands reference unknown sensor '%s'", tempName))
		}
	}

	return nil
}

func sensorIdExists(sensorId string, config *Configuration) bool {
	for _, sensorConfig := range config.Sensors {
		if sensorConfig.ID == sensorId {
			return true
		}
	}

	return false
}

func arduinoIdExists(arduinoId string, config *Configuration) bool {
	for _, arduinoConfig := range config.Arduinos {
		if arduinoConfig.ID == arduinoId {
			return true
		}
	}

	return false
}

func findFanConfig(fanId string, config *Configuration) (FanConfig, bool) {
	for _, fanConfig := range config.Fans {
		if fanConfig.ID == fanId {
			return fanConfig, true
		}
	}

	return FanConfig{}, false
}
