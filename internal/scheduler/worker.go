package scheduler

import (
	"context"
	"errors"
	"fmt"

	"fieldgate_backend/internal/email"
	"fieldgate_backend/internal/gates/domain"
	"fieldgate_backend/platform/config"
	"fieldgate_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// JobReader loads the job a notification is about.
type JobReader interface {
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	jobs     JobReader
	sender   email.Sender
	notifyTo string
	log      *logger.Logger
}

// WorkerConfig combines the settings the worker reads.
type WorkerConfig interface {
	config.SchedulerConfig
	GetReviewNotifyAddress() string
}

func NewWorker(cfg WorkerConfig, jobs JobReader, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		jobs:     jobs,
		sender:   sender,
		notifyTo: cfg.GetReviewNotifyAddress(),
		log:      log,
	}

	mux.HandleFunc(TaskReviewNotify, w.handleReviewNotify)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleReviewNotify(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReviewNotifyPayload(task)
	if err != nil {
		return fmt.Errorf("parse review payload: %v: %w", err, asynq.SkipRetry)
	}

	if w.notifyTo == "" {
		w.log.Warn("review notification dropped; REVIEW_NOTIFY_ADDRESS not configured", "jobId", payload.JobID)
		return nil
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("review payload job id: %v: %w", err, asynq.SkipRetry)
	}

	job, err := w.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return fmt.Errorf("job %s: %w", jobID, asynq.SkipRetry)
		}
		return err
	}

	notification := email.ReviewNotification{
		JobID:          job.ID.String(),
		JobTitle:       job.Title,
		JobAddress:     job.Address,
		LeadTechID:     job.LeadTechID.String(),
		ExceptionCount: payload.ExceptionCount,
		Threshold:      payload.Threshold,
		Stages:         payload.Stages,
	}
	if payload.Reminder {
		notification.JobTitle = "Reminder: " + email.JobLabel(notification)
	}

	if err := w.sender.SendReviewNotification(ctx, w.notifyTo, notification); err != nil {
		return err
	}
	w.log.Info("review notification sent", "jobId", payload.JobID, "reminder", payload.Reminder)
	return nil
}
