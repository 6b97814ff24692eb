package review

import (
	"context"
	"time"

	"fieldgate_backend/internal/events"
	"fieldgate_backend/internal/gates/monitor"
	"fieldgate_backend/internal/scheduler"
	"fieldgate_backend/platform/logger"

	"github.com/google/uuid"
)

// FrequencyChecker evaluates a job's exception count.
type FrequencyChecker interface {
	CheckExceptionFrequency(ctx context.Context, jobID uuid.UUID) (monitor.Report, error)
}

// Flagger queues jobs for review when a logged exception pushes them over
// the threshold.
type Flagger struct {
	checker  FrequencyChecker
	queue    *Queue
	bus      events.Bus
	notifier scheduler.ReviewNotifier
	log      *logger.Logger
	now      func() time.Time
}

func NewFlagger(checker FrequencyChecker, queue *Queue, bus events.Bus, notifier scheduler.ReviewNotifier, log *logger.Logger) *Flagger {
	return &Flagger{
		checker:  checker,
		queue:    queue,
		bus:      bus,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle implements events.Handler for GateExceptionLogged.
func (f *Flagger) Handle(ctx context.Context, event events.Event) error {
	logged, ok := event.(events.GateExceptionLogged)
	if !ok {
		return nil
	}
	return f.evaluate(ctx, logged.JobID)
}

func (f *Flagger) evaluate(ctx context.Context, jobID uuid.UUID) error {
	report, err := f.checker.CheckExceptionFrequency(ctx, jobID)
	if err != nil {
		return err
	}
	if !report.NeedsReview {
		return nil
	}

	stages := stageNames(report)
	added, err := f.queue.Flag(ctx, Entry{
		JobID:          jobID,
		ExceptionCount: report.ExceptionCount,
		Threshold:      report.Threshold,
		Stages:         stages,
	}, f.now())
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	f.log.Info("job flagged for review", "jobId", jobID, "exceptions", report.ExceptionCount, "threshold", report.Threshold)
	f.bus.Publish(ctx, events.JobFlaggedForReview{
		BaseEvent:      events.NewBaseEvent(),
		JobID:          jobID,
		ExceptionCount: report.ExceptionCount,
		Threshold:      report.Threshold,
		Stages:         stages,
	})

	if f.notifier == nil {
		return nil
	}
	return f.notifier.EnqueueReviewNotification(ctx, scheduler.ReviewNotifyPayload{
		JobID:          jobID.String(),
		ExceptionCount: report.ExceptionCount,
		Threshold:      report.Threshold,
		Stages:         stages,
	})
}

func stageNames(report monitor.Report) []string {
	names := make([]string, 0, len(report.Stages))
	for _, s := range report.Stages {
		names = append(names, string(s))
	}
	return names
}
