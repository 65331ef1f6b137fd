// Package jobs holds the background task definitions and the Asynq worker
// that runs them.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup rebuilds the report cache for the recent months.
	TaskReportWarmup = "report:warmup"
)

// ReportWarmupPayload selects what the warmup task rebuilds. Zero values
// mean "both statements, the default trailing window".
type ReportWarmupPayload struct {
	Statements []string `json:"statements,omitempty"`
	Months     int      `json:"months,omitempty"`
}

// NewReportWarmupTask constructs an Asynq task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

// Enqueuer submits background tasks from the request path.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps an Asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueWarmup schedules a report cache warmup. A nil enqueuer is a no-op
// so callers can run without a broker in tests.
func (e *Enqueuer) EnqueueWarmup(ctx context.Context) error {
	if e == nil || e.client == nil {
		return nil
	}
	task, err := NewReportWarmupTask(ReportWarmupPayload{})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}
