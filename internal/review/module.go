package review

import (
	"time"

	"fieldgate_backend/internal/events"
	apphttp "fieldgate_backend/internal/http"
	"fieldgate_backend/internal/scheduler"
	"fieldgate_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Module wires the review queue, its event subscriber and admin routes.
type Module struct {
	queue   *Queue
	flagger *Flagger
	handler *Handler
	sweeper *Sweeper
}

// NewModule builds the review module. notifier may be nil when no background
// worker is configured; jobs are then queued without email.
func NewModule(rdb redis.Cmdable, checker FrequencyChecker, bus events.Bus, notifier scheduler.ReviewNotifier, log *logger.Logger, sweepInterval, reminderAfter time.Duration) *Module {
	queue := NewQueue(rdb)
	return &Module{
		queue:   queue,
		flagger: NewFlagger(checker, queue, bus, notifier, log),
		handler: NewHandler(queue),
		sweeper: NewSweeper(queue, notifier, log, sweepInterval, reminderAfter),
	}
}

func (m *Module) Name() string {
	return "review"
}

// RegisterHandlers subscribes the flagger to exception events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.GateExceptionLogged{}.EventName(), m.flagger)
}

// Sweeper returns the reminder loop for the caller to run.
func (m *Module) Sweeper() *Sweeper {
	return m.sweeper
}

func (m *Module) Queue() *Queue {
	return m.queue
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
