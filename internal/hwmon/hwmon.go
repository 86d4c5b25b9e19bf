package hwmon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/md14454/gosensors"

	"github.com/afancontrol/afancontrol/internal/util"
)

const (
	BusTypeIsa  = 1
	BusTypePci  = 2
	BusTypeAcpi = 5
)

// Chip is a hwmon device offering fans and/or temperature sensors,
// ready to be referenced from the configuration file.
type Chip struct {
	Name     string
	Modalias string
	Path     string

	Fans    []*FanFeature
	Sensors []*SensorFeature
}

// FanFeature is a fan detected on a chip. PwmOutput is empty when the
// fan has a tachometer but no PWM control.
type FanFeature struct {
	Label     string
	Index     int
	RpmInput  string
	PwmOutput string
	Rpm       int
}

// SensorFeature is a temperature input detected on a chip. Min and Max
// are the device-provided bounds in degrees Celsius, -1 when absent.
type SensorFeature struct {
	Label string
	Index int
	Input string
	Min   int
	Max   int
	Temp  float64
}

func GetChips() []*Chip {
	gosensors.Init()
	defer gosensors.Cleanup()
	chips := gosensors.GetDetectedChips()

	var list []*Chip

	for i := 0; i < len(chips); i++ {
		chip := chips[i]

		identifier := computeIdentifier(chip)
		modalias := util.GetDeviceModalias(chip.Path)

		fansList := getFans(chip)
		sensorsList := getTempSensors(chip)

		if len(fansList) <= 0 && len(sensorsList) <= 0 {
			continue
		}

		c := &Chip{
			Name:     identifier,
			Modalias: modalias,
			Path:     chip.Path,
			Fans:     fansList,
			Sensors:  sensorsList,
		}
		list = append(list, c)
	}

	return list
}

func getTempSensors(chip gosensors.Chip) []*SensorFeature {
	var sensorList []*SensorFeature

	features := chip.GetFeatures()
	for j := 0; j < len(features); j++ {
		feature := features[j]

		if feature.Type != gosensors.FeatureTypeTemp {
			continue
		}

		subfeatures := feature.GetSubFeatures()
		if !containsSubFeature(subfeatures, gosensors.SubFeatureTypeTempInput) {
			continue
		}
		inputSubFeature := getSubFeature(subfeatures, gosensors.SubFeatureTypeTempInput)
		sensorInputPath := fmt.Sprintf("%s/%s", chip.Path, inputSubFeature.Name)

		max := -1
		if containsSubFeature(subfeatures, gosensors.SubFeatureTypeTempMax) {
			max = int(getSubFeature(subfeatures, gosensors.SubFeatureTypeTempMax).GetValue())
		}

		min := -1
		if containsSubFeature(subfeatures, gosensors.SubFeatureTypeTempMin) {
			min = int(getSubFeature(subfeatures, gosensors.SubFeatureTypeTempMin).GetValue())
		}

		sensorList = append(
			sensorList,
			&SensorFeature{
				Label: getLabel(chip.Path, inputSubFeature.Name),
				Index: len(sensorList) + 1,
				Input: sensorInputPath,
				Min:   min,
				Max:   max,
				Temp:  inputSubFeature.GetValue(),
			})
	}

	return sensorList
}

func getFans(chip gosensors.Chip) []*FanFeature {
	var fanList []*FanFeature

	features := chip.GetFeatures()
	for j := 0; j < len(features); j++ {
		feature := features[j]

		if feature.Type != gosensors.FeatureTypeFan {
			continue
		}

		subfeatures := feature.GetSubFeatures()
		if !containsSubFeature(subfeatures, gosensors.SubFeatureTypeFanInput) {
			continue
		}
		inputSubFeature := getSubFeature(subfeatures, gosensors.SubFeatureTypeFanInput)
		rpmInput := fmt.Sprintf("%s/%s", chip.Path, inputSubFeature.Name)

		index := len(fanList) + 1

		// a fanN_input usually pairs with a pwmN on the same chip
		pwmOutput := fmt.Sprintf("%s/pwm%d", chip.Path, index)
		if _, err := os.Stat(pwmOutput); err != nil {
			pwmOutput = ""
		}

		fanList = append(fanList, &FanFeature{
			Label:     getLabel(chip.Path, inputSubFeature.Name),
			Index:     index,
			RpmInput:  rpmInput,
			PwmOutput: pwmOutput,
			Rpm:       int(inputSubFeature.GetValue()),
		})
	}

	return fanList
}

func getSubFeature(subfeatures []gosensors.SubFeature, input gosensors.SubFeatureType) gosensors.SubFeature {
	for _, a := range subfeatures {
		if a.Type == input {
			return a
		}
	}
	panic(fmt.Errorf("no such element: %v", input))
}

func containsSubFeature(s []gosensors.SubFeature, e gosensors.SubFeatureType) bool {
	for _, a := range s {
		if a.Type == e {
			return true
		}
	}
	return false
}

// getLabel reads the label of a in/output of a device
func getLabel(devicePath string, input string) string {
	labelPath := strings.TrimSuffix(devicePath+"/"+input, "input") + "label"

	content, _ := os.ReadFile(labelPath)
	label := strings.TrimSpace(string(content))
	if len(label) <= 0 {
		_, label = filepath.Split(devicePath)
	}
	return label
}

func computeIdentifier(chip gosensors.Chip) (name string) {
	name = chip.Prefix

	devicePath := chip.Path
	if len(name) <= 0 {
		name = util.GetDeviceName(devicePath)
	}

	if len(name) <= 0 {
		_, name = filepath.Split(devicePath)
	}

	identifier := name
	switch chip.Bus.Type {
	case BusTypeIsa:
		identifier = fmt.Sprintf("%s-isa-%d", identifier, chip.Bus.Nr)
	case BusTypePci:
		identifier = fmt.Sprintf("%s-pci-%d", identifier, chip.Bus.Nr)
	case BusTypeAcpi:
		identifier = fmt.Sprintf("%s-acpi-%d", identifier, chip.Bus.Nr)
	}

	return identifier
}
