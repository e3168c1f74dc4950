package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWebAppHealthCheck is the task type for probing registered
	// webapp URLs.
	TaskTypeWebAppHealthCheck = "webapp:healthcheck"
)

// HealthCheckPayload scopes a probe run. A zero WebAppID probes the whole
// catalog.
type HealthCheckPayload struct {
	WebAppID int64 `json:"webapp_id,omitempty"`
}

// NewHealthCheckTask constructs an Asynq task for a probe run.
func NewHealthCheckTask(payload HealthCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWebAppHealthCheck, data), nil
}
