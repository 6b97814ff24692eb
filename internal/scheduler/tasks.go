package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReviewNotify = "gates.review.notify"

// ReviewNotifyPayload asks the worker to email the supervisor about a job
// flagged for review. Reminder is set when the flag has been waiting
// unacknowledged.
type ReviewNotifyPayload struct {
	JobID          string   `json:"jobId"`
	ExceptionCount int      `json:"exceptionCount"`
	Threshold      int      `json:"threshold"`
	Stages         []string `json:"stages"`
	Reminder       bool     `json:"reminder,omitempty"`
}

func NewReviewNotifyTask(payload ReviewNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReviewNotify, data), nil
}

func ParseReviewNotifyPayload(task *asynq.Task) (ReviewNotifyPayload, error) {
	var payload ReviewNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReviewNotifyPayload{}, err
	}
	return payload, nil
}
