package sensor

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/temps"
	"github.com/afancontrol/afancontrol/internal/ui"
)

var sensorId string

var Command = &cobra.Command{
	Use:              "sensor",
	Short:            "Print the current value of a sensor",
	Long:             ``,
	TraverseChildren: true,
	Args:             cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()

		temp, err := getSensor(sensorId)
		if err != nil {
			return err
		}

		if err := temp.Acquire(); err != nil {
			return err
		}
		defer func() {
			_ = temp.Release()
		}()

		observed := temp.Get()
		if observed.Raw == nil {
			return fmt.Errorf("unable to read sensor %s", sensorId)
		}
		fmt.Printf("%.1f", observed.Raw.Temp)
		return nil
	},
}

func init() {
	Command.PersistentFlags().StringVarP(
		&sensorId,
		"id", "i",
		"",
		"Sensor ID as specified in the config",
	)
	_ = Command.MarkPersistentFlagRequired("id")
}

func getSensor(id string) (*temps.Temp, error) {
	configPath := configuration.DetectAndReadConfigFile()
	ui.Info("Using configuration file at: %s", configPath)
	configuration.LoadConfig()
	err := configuration.Validate(configPath)
	if err != nil {
		ui.FatalWithoutStacktrace("%v", err)
	}

	for _, config := range configuration.CurrentConfig.Sensors {
		if config.ID == id {
			return temps.NewTemp(config)
		}
	}
	return nil, fmt.Errorf("no sensor with id '%s' in the configuration", id)
}
