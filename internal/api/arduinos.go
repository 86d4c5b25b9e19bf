package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/afancontrol/afancontrol/internal/arduino"
)

type arduinoInfo struct {
	Name      string         `json:"name"`
	Connected bool           `json:"connected"`
	StatusAge *time.Duration `json:"statusAge"`
}

func registerArduinoEndpoints(rest *echo.Echo) {
	group := rest.Group("/arduino")

	group.GET("/", getArduinos)
	group.GET("/:"+urlParamId+"/", getArduino)
}

func getArduinos(c echo.Context) error {
	data := map[string]*arduinoInfo{}
	for _, connection := range registeredConnections() {
		data[connection.Name()] = connectionInfo(connection)
	}
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func getArduino(c echo.Context) error {
	id := c.Param(urlParamId)
	for _, connection := range registeredConnections() {
		if connection.Name() == id {
			return c.JSONPretty(http.StatusOK, connectionInfo(connection), indentationChar)
		}
	}
	return returnNotFound(c, id)
}

func connectionInfo(connection *arduino.Connection) *arduinoInfo {
	info := &arduinoInfo{
		Name:      connection.Name(),
		Connected: connection.IsConnected(),
	}
	if age, ok := connection.StatusAge(); ok {
		info.StatusAge = &age
	}
	return info
}
