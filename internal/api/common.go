package api

import (
	"sync"

	"github.com/afancontrol/afancontrol/internal/arduino"
	"github.com/afancontrol/afancontrol/internal/fans"
	"github.com/afancontrol/afancontrol/internal/manager"
)

// The daemon registers its live objects here before the REST service
// starts, so the endpoints can serve health state and the most recent
// readings in addition to the static configuration.
var (
	registryMu          sync.RWMutex
	fansRegistry        *fans.Fans
	managerRegistry     *manager.Manager
	connectionsRegistry []*arduino.Connection
)

func Configure(f *fans.Fans, m *manager.Manager, connections []*arduino.Connection) {
	registryMu.Lock()
	defer registryMu.Unlock()
	fansRegistry = f
	managerRegistry = m
	connectionsRegistry = connections
}

func registeredFans() *fans.Fans {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return fansRegistry
}

func registeredManager() *manager.Manager {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return managerRegistry
}

func registeredConnections() []*arduino.Connection {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return connectionsRegistry
}
