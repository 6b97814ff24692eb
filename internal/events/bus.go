package events

import (
	platformevents "fieldgate_backend/platform/events"
	"fieldgate_backend/platform/logger"
)

// InMemoryBus is the bus both binaries use. GateExceptionLogged fans out to
// the review flagger through it.
type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
