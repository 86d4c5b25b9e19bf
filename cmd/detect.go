package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"

	"github.com/afancontrol/afancontrol/cmd/global"
	"github.com/afancontrol/afancontrol/internal/hwmon"
	"github.com/afancontrol/afancontrol/internal/ui"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect devices",
	Long:  `Detects all hwmon fans and temperature sensors and prints them as a list`,
	Run: func(cmd *cobra.Command, args []string) {
		setupUi()

		chips := hwmon.GetChips()

		// === Print detected devices ===
		tableConfig := &table.Config{
			ShowIndex:       false,
			Color:           !global.NoColor,
			AlternateColors: true,
			TitleColorCode:  ansi.ColorCode("white+buf"),
			AltColorCodes: []string{
				ansi.ColorCode("white"),
				ansi.ColorCode("white:236"),
			},
		}

		for _, chip := range chips {
			if len(chip.Name) <= 0 {
				continue
			}
			if len(chip.Fans) <= 0 && len(chip.Sensors) <= 0 {
				continue
			}

			ui.Printfln("> %s (%s)", chip.Name, chip.Path)

			var fanRows [][]string
			for _, fan := range chip.Fans {
				pwmText := "N/A"
				if len(fan.PwmOutput) > 0 {
					_, pwmFile := filepath.Split(fan.PwmOutput)
					pwmText = pwmFile
				}

				fanRows = append(fanRows, []string{
					"", strconv.Itoa(fan.Index), fan.Label, strconv.Itoa(fan.Rpm), pwmText,
				})
			}
			var fanHeaders = []string{"Fans   ", "Index", "Label", "RPM", "PWM"}

			fanTable := table.Table{
				Headers: fanHeaders,
				Rows:    fanRows,
			}

			var sensorRows [][]string
			for _, sensor := range chip.Sensors {
				_, file := filepath.Split(sensor.Input)
				labelAndFile := fmt.Sprintf("%s (%s)", sensor.Label, file)

				sensorRows = append(sensorRows, []string{
					"", strconv.Itoa(sensor.Index), labelAndFile, strconv.Itoa(int(sensor.Temp)),
				})
			}
			var sensorHeaders = []string{"Sensors", "Index", "Label", "Temp"}

			sensorTable := table.Table{
				Headers: sensorHeaders,
				Rows:    sensorRows,
			}

			tables := []table.Table{fanTable, sensorTable}

			for idx, tab := range tables {
				if tab.Rows == nil {
					continue
				}
				var buf bytes.Buffer
				tableErr := tab.WriteTable(&buf, tableConfig)
				if tableErr != nil {
					ui.Fatal("Error printing table: %v", tableErr)
				}
				tableString := buf.String()
				if idx < (len(tables) - 1) {
					ui.Printf(tableString)
				} else {
					ui.Printfln(tableString)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
