package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/temps"
)

type sensorInfo struct {
	Config configuration.SensorConfig `json:"config"`
	Status *temps.ObservedTempStatus  `json:"status"`
}

func registerSensorEndpoints(rest *echo.Echo) {
	group := rest.Group("/sensor")

	group.GET("/", getSensors)
	group.GET("/:"+urlParamId+"/", getSensor)
}

func getSensors(c echo.Context) error {
	statuses := snapshotStatuses()
	data := map[string]*sensorInfo{}
	for id, temp := range temps.TempMap.Items() {
		data[id] = &sensorInfo{
			Config: temp.Config,
			Status: statuses[id],
		}
	}
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func getSensor(c echo.Context) error {
	id := c.Param(urlParamId)

	temp, exists := temps.TempMap.Get(id)
	if !exists {
		return returnNotFound(c, id)
	}
	return c.JSONPretty(http.StatusOK, &sensorInfo{
		Config: temp.Config,
		Status: snapshotStatuses()[id],
	}, indentationChar)
}

// snapshotStatuses deep-copies the manager's last tick so the control
// loop can keep mutating its own view while the response serializes.
func snapshotStatuses() map[string]*temps.ObservedTempStatus {
	m := registeredManager()
	if m == nil {
		return nil
	}
	statuses, _ := m.Snapshot()
	return reprint.This(statuses).(map[string]*temps.ObservedTempStatus)
}
