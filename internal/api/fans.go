package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/fans"
)

type fanInfo struct {
	Config   configuration.FanConfig `json:"config"`
	Readonly bool                    `json:"readonly"`
	Rpm      *int                    `json:"rpm"`
	Pwm      *int                    `json:"pwm"`
	Failing  bool                    `json:"failing"`
	Stopped  bool                    `json:"stopped"`
}

func registerFanEndpoints(rest *echo.Echo) {
	group := rest.Group("/fan")

	group.GET("/", getFans)
	group.GET("/:"+urlParamId+"/", getFan)
}

// returns a list of all currently configured fans
func getFans(c echo.Context) error {
	data := map[string]*fanInfo{}
	for id, fan := range fans.FanMap.Items() {
		data[id] = writableFanInfo(fan)
	}
	for id, fan := range fans.ReadonlyFanMap.Items() {
		data[id] = readonlyFanInfo(fan)
	}
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func getFan(c echo.Context) error {
	id := c.Param(urlParamId)
	if fan, exists := fans.FanMap.Get(id); exists {
		return c.JSONPretty(http.StatusOK, writableFanInfo(fan), indentationChar)
	}
	if fan, exists := fans.ReadonlyFanMap.Get(id); exists {
		return c.JSONPretty(http.StatusOK, readonlyFanInfo(fan), indentationChar)
	}
	return returnNotFound(c, id)
}

func writableFanInfo(fan *fans.PwmFanNorm) *fanInfo {
	info := &fanInfo{
		Config: fan.Config,
	}
	if rpm, err := fan.GetRpm(); err == nil {
		info.Rpm = &rpm
	}
	if pwm, err := fan.GetRaw(); err == nil {
		info.Pwm = &pwm
	}
	if registry := registeredFans(); registry != nil {
		info.Failing = registry.IsFanFailing(fan.GetId())
		info.Stopped = registry.IsFanStopped(fan.GetId())
	}
	return info
}

func readonlyFanInfo(fan *fans.ReadonlyFan) *fanInfo {
	info := &fanInfo{
		Config:   fan.Config,
		Readonly: true,
	}
	if rpm, err := fan.GetRpm(); err == nil {
		info.Rpm = &rpm
	}
	if pwm, ok, err := fan.GetRaw(); ok && err == nil {
		info.Pwm = &pwm
	}
	return info
}
