package cmd

import (
	"bytes"
	"strconv"

	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"

	"github.com/afancontrol/afancontrol/cmd/global"
	"github.com/afancontrol/afancontrol/internal/arduino"
	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/fans"
	"github.com/afancontrol/afancontrol/internal/fantest"
	"github.com/afancontrol/afancontrol/internal/persistence"
	"github.com/afancontrol/afancontrol/internal/ui"
)

var (
	fantestFanId string
	fantestStep  int
	fantestSave  bool
)

var fantestCmd = &cobra.Command{
	Use:   "fantest",
	Short: "Measure the PWM to RPM curve of a fan",
	Long: `Sweeps the given fan through its PWM range while recording the
resulting speed. Useful to find sensible pwmLineStart and pwmLineEnd
values for the fan. All other fans keep running untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupUi()

		configPath := configuration.DetectAndReadConfigFile()
		ui.Info("Using configuration file at: %s", configPath)
		configuration.LoadConfig()
		if err := configuration.Validate(configPath); err != nil {
			ui.FatalWithoutStacktrace("%v", err)
		}

		connections := map[string]*arduino.Connection{}
		for _, config := range configuration.CurrentConfig.Arduinos {
			if _, ok := connections[config.ID]; !ok {
				connections[config.ID] = arduino.NewConnection(config)
			}
		}

		var fan *fans.PwmFanNorm
		for _, config := range configuration.CurrentConfig.Fans {
			if config.ID != fantestFanId {
				continue
			}
			if config.Readonly {
				ui.FatalWithoutStacktrace("Fan %s is readonly and cannot be measured", config.ID)
			}
			built, err := fans.NewPwmFanNorm(config, connections)
			if err != nil {
				ui.FatalWithoutStacktrace("Unable to process fan configuration %s: %v", config.ID, err)
			}
			fan = built
		}
		if fan == nil {
			ui.FatalWithoutStacktrace("No fan with id '%s' in the configuration", fantestFanId)
		}

		pers := persistence.NewPersistence(configuration.CurrentConfig.DbPath)
		if fantestSave {
			if err := pers.Init(); err != nil {
				return err
			}
		}

		if err := fan.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := fan.Release(); err != nil {
				ui.Error("Error releasing fan %s: %v", fan.GetId(), err)
			}
		}()

		curve, err := fantest.MeasureFan(fan, pers, fantest.Options{
			PwmStep: fantestStep,
			Save:    fantestSave,
		})
		if err != nil {
			return err
		}

		printFanSummary(fan)
		ui.Printfln(fantest.PlotCurve(curve))
		return nil
	},
}

func printFanSummary(fan *fans.PwmFanNorm) {
	ui.Printfln(fan.GetId())
	tab := table.Table{
		Headers: []string{"", ""},
		Rows: [][]string{
			{"PWM line start", strconv.Itoa(fan.PwmLineStart())},
			{"PWM line end", strconv.Itoa(fan.PwmLineEnd())},
			{"Never stop", strconv.FormatBool(fan.ShouldNeverStop())},
		},
	}
	var buf bytes.Buffer
	tableErr := tab.WriteTable(&buf, &table.Config{
		ShowIndex:       false,
		Color:           !global.NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	})
	if tableErr != nil {
		panic(tableErr)
	}
	ui.Printfln(buf.String())
}

func init() {
	fantestCmd.PersistentFlags().StringVarP(
		&fantestFanId,
		"id", "i",
		"",
		"Fan ID as specified in the config",
	)
	_ = fantestCmd.MarkPersistentFlagRequired("id")
	fantestCmd.PersistentFlags().IntVarP(
		&fantestStep,
		"step", "s",
		5,
		"PWM increment between measurements",
	)
	fantestCmd.PersistentFlags().BoolVarP(
		&fantestSave,
		"save", "",
		false,
		"Persist the measured curve",
	)

	rootCmd.AddCommand(fantestCmd)
}
