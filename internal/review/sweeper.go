package review

import (
	"context"
	"time"

	"fieldgate_backend/internal/scheduler"
	"fieldgate_backend/platform/logger"
)

const (
	defaultSweepInterval = time.Hour
	defaultReminderAfter = 24 * time.Hour
)

// Sweeper periodically re-notifies supervisors about entries nobody
// acknowledged.
type Sweeper struct {
	queue         *Queue
	notifier      scheduler.ReviewNotifier
	log           *logger.Logger
	interval      time.Duration
	reminderAfter time.Duration
	now           func() time.Time
}

func NewSweeper(queue *Queue, notifier scheduler.ReviewNotifier, log *logger.Logger, interval, reminderAfter time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if reminderAfter <= 0 {
		reminderAfter = defaultReminderAfter
	}

	return &Sweeper{
		queue:         queue,
		notifier:      notifier,
		log:           log,
		interval:      interval,
		reminderAfter: reminderAfter,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.queue == nil || s.notifier == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) int {
	now := s.now()
	due, err := s.queue.Due(ctx, now.Add(-s.reminderAfter))
	if err != nil {
		s.log.Warn("review sweep failed", "error", err)
		return 0
	}

	reminded := 0
	for _, entry := range due {
		err := s.notifier.EnqueueReviewNotification(ctx, scheduler.ReviewNotifyPayload{
			JobID:          entry.JobID.String(),
			ExceptionCount: entry.ExceptionCount,
			Threshold:      entry.Threshold,
			Stages:         entry.Stages,
			Reminder:       true,
		})
		if err != nil {
			s.log.Warn("review reminder enqueue failed", "jobId", entry.JobID, "error", err)
			continue
		}
		if err := s.queue.Touch(ctx, entry.JobID, now); err != nil {
			s.log.Warn("review reminder touch failed", "jobId", entry.JobID, "error", err)
			continue
		}
		reminded++
	}

	if reminded > 0 {
		s.log.Info("review reminders enqueued", "count", reminded)
	}
	return reminded
}
