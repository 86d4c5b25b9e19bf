package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/afancontrol/afancontrol/internal/api"
	"github.com/afancontrol/afancontrol/internal/arduino"
	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/fans"
	"github.com/afancontrol/afancontrol/internal/manager"
	"github.com/afancontrol/afancontrol/internal/report"
	"github.com/afancontrol/afancontrol/internal/statistics"
	"github.com/afancontrol/afancontrol/internal/temps"
	"github.com/afancontrol/afancontrol/internal/trigger"
	"github.com/afancontrol/afancontrol/internal/ui"
	"github.com/afancontrol/afancontrol/internal/util"
)

func RunDaemon() {
	if getProcessOwner() != "root" {
		ui.Fatal("Controlling fan speeds requires root permissions, please run afancontrol as root")
	}

	mgr := InitializeObjects()

	if err := mgr.Acquire(); err != nil {
		ui.FatalWithoutStacktrace("Unable to take control of the configured devices: %v", err)
	}
	defer func() {
		if err := mgr.Release(); err != nil {
			ui.Error("Error releasing the configured devices: %v", err)
		}
	}()

	// one full tick before declaring ourselves alive, so a broken
	// setup fails fast instead of idling with fans untouched
	mgr.Tick()

	pidFile := configuration.CurrentConfig.PidFile
	if len(pidFile) > 0 {
		pid := strconv.Itoa(os.Getpid())
		if err := util.WriteStringToFileAtomic(pid+"\n", pidFile); err != nil {
			ui.FatalWithoutStacktrace("Unable to write pidfile %s: %v", pidFile, err)
		}
		defer func() {
			_ = os.Remove(pidFile)
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		// === control loop
		interval := configuration.CurrentConfig.Interval
		g.Add(func() error {
			tick := time.Tick(interval)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tick:
					mgr.Tick()
				}
			}
		}, func(err error) {
			if err != nil {
				ui.Warning("Error in control loop: %v", err)
			}
		})
	}
	{
		enabled := configuration.CurrentConfig.Statistics.Enabled
		if enabled {
			// === Prometheus Exporter
			port := configuration.CurrentConfig.Statistics.Port
			if port <= 0 || port >= 65535 {
				port = 9001
			}
			addr := fmt.Sprintf(":%d", port)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			server := &http.Server{Addr: addr, Handler: mux}

			g.Add(func() error {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					ui.Error("Cannot start prometheus metrics endpoint (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				ui.Info("Stopping statistics server...")
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer timeoutCancel()
				if err := server.Shutdown(timeoutCtx); err != nil {
					ui.Warning("Error stopping statistics server: " + err.Error())
				}
			})
		}
	}
	{
		enabled := configuration.CurrentConfig.Api.Enabled
		if enabled {
			// === REST Api
			port := configuration.CurrentConfig.Api.Port
			if port <= 0 || port >= 65535 {
				port = 9002
			}
			restService := api.CreateRestService()

			g.Add(func() error {
				err := restService.Start(fmt.Sprintf(":%d", port))
				if err != nil && err != http.ErrServerClosed {
					ui.Error("Cannot start REST api endpoint (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				ui.Info("Stopping REST api server...")
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer timeoutCancel()
				if err := restService.Shutdown(timeoutCtx); err != nil {
					ui.Warning("Error stopping REST api server: " + err.Error())
				}
			})
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			<-sig
			ui.Info("Received SIGTERM signal, exiting...")
			return nil
		}, func(err error) {
			defer close(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ui.Info("Done.")
}

// InitializeObjects builds the full device tree from the current
// configuration and registers the metrics collectors.
func InitializeObjects() *manager.Manager {
	var reporter report.Reporter
	if len(configuration.CurrentConfig.ReportCmd) > 0 {
		reporter = report.NewCommandReporter(configuration.CurrentConfig.ReportCmd)
	} else {
		reporter = &report.NullReporter{}
	}

	connections := map[string]*arduino.Connection{}
	var connectionList []*arduino.Connection
	for _, config := range configuration.CurrentConfig.Arduinos {
		if _, ok := connections[config.ID]; ok {
			continue
		}
		connection := arduino.NewConnection(config)
		connections[config.ID] = connection
		connectionList = append(connectionList, connection)
		arduino.ConnectionMap.Set(config.ID, connection)
	}

	fanMap := map[string]*fans.PwmFanNorm{}
	readonlyFanMap := map[string]*fans.ReadonlyFan{}
	for _, config := range configuration.CurrentConfig.Fans {
		if config.Readonly {
			fan, err := fans.NewReadonlyFan(config, connections)
			if err != nil {
				ui.FatalWithoutStacktrace("Unable to process fan configuration %s: %v", config.ID, err)
			}
			readonlyFanMap[config.ID] = fan
			fans.ReadonlyFanMap.Set(config.ID, fan)
			continue
		}

		fan, err := fans.NewPwmFanNorm(config, connections)
		if err != nil {
			ui.FatalWithoutStacktrace("Unable to process fan configuration %s: %v", config.ID, err)
		}
		fanMap[config.ID] = fan
		fans.FanMap.Set(config.ID, fan)
	}

	tempMap := map[string]*temps.Temp{}
	for _, config := range configuration.CurrentConfig.Sensors {
		temp, err := temps.NewTemp(config)
		if err != nil {
			ui.FatalWithoutStacktrace("Unable to process sensor configuration %s: %v", config.ID, err)
		}
		tempMap[config.ID] = temp
		temps.TempMap.Set(config.ID, temp)
	}

	fanRegistry := fans.NewFans(
		fanMap,
		readonlyFanMap,
		reporter,
		configuration.CurrentConfig.FansSpeedCheckInterval,
	)
	tempRegistry := temps.NewTemps(tempMap, configuration.CurrentConfig.TempReadConcurrency)
	triggers := trigger.NewTriggers(configuration.CurrentConfig.Triggers, reporter)

	mgr := manager.NewManager(
		fanRegistry,
		tempRegistry,
		configuration.CurrentConfig.Mappings,
		triggers,
	)

	statistics.Register(statistics.NewFanCollector(fanRegistry))
	statistics.Register(statistics.NewSensorCollector(mgr))
	statistics.Register(statistics.NewArduinoCollector(connectionList))
	statistics.Register(statistics.NewManagerCollector(mgr))

	api.Configure(fanRegistry, mgr, connectionList)

	return mgr
}

func getProcessOwner() string {
	stdout, err := exec.Command("ps", "-o", "user=", "-p", strconv.Itoa(os.Getpid())).Output()
	if err != nil {
		ui.Fatal("Error checking process owner: %v", err)
		os.Exit(1)
	}
	return strings.TrimSpace(string(stdout))
}
