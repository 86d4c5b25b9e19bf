package configuration

import (
	"os"
	"time"

	"github.com/afancontrol/afancontrol/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Configuration struct {
	DbPath string `json:"dbPath"`
	// PidFile, when set, receives the daemon pid once the first
	// control loop tick has completed
	PidFile string `json:"pidFile"`

	// Interval between two control loop ticks
	Interval time.Duration `json:"interval"`
	// Interval between two fan speed (health) checks
	FansSpeedCheckInterval time.Duration `json:"fansSpeedCheckInterval"`
	// Upper bound on concurrent sensor reads within one tick
	TempReadConcurrency int `json:"tempReadConcurrency"`

	// Shell command used to report exceptional events, %REASON% and
	// %MESSAGE% are substituted before execution
	ReportCmd string `json:"reportCmd"`

	Statistics StatisticsConfig `json:"statistics"`
	Api        ApiConfig        `json:"api"`

	Arduinos []ArduinoConfig `json:"arduinos"`
	Fans     []FanConfig     `json:"fans"`
	Sensors  []SensorConfig  `json:"sensors"`
	Mappings []MappingConfig `json:"mappings"`
	Triggers TriggerConfig   `json:"triggers"`
}

type StatisticsConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type ApiConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("afancontrol")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/afancontrol/")
	}

	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbPath", "/etc/afancontrol/afancontrol.db")
	viper.SetDefault("pidFile", "")
	viper.SetDefault("Interval", 5*time.Second)
	viper.SetDefault("FansSpeedCheckInterval", 3*time.Second)
	viper.SetDefault("TempReadConcurrency", 4)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9001)
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.port", 9002)

	viper.SetDefault("arduinos", []ArduinoConfig{})
	viper.SetDefault("fans", []FanConfig{})
	viper.SetDefault("sensors", []SensorConfig{})
	viper.SetDefault("mappings", []MappingConfig{})
}

// DetectAndReadConfigFile detects the path of the first existing config file
func DetectAndReadConfigFile() string {
	readInConfig()
	return GetFilePath()
}

// readInConfig reads and parses the config file
func readInConfig() {
	if err := viper.ReadInConfig(); err != nil {
		// config file is required, so we fail here
		ui.FatalWithoutStacktrace("Error reading config file, %v", err)
	}
}

// GetFilePath this is only populated _after_ readInConfig()
func GetFilePath() string {
	return viper.ConfigFileUsed()
}

func LoadConfig() {
	err := viper.Unmarshal(
		&CurrentConfig,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			sectionDefaultsHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)),
	)
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}
