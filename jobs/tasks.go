package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan scans the ledger for rows breaking balance and debt invariants.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
)

// Task sources.
const (
	SourceCron = "cron"
	SourceCLI  = "cli"
)

// IntegrityScanPayload describes one integrity scan request.
type IntegrityScanPayload struct {
	Source string `json:"source"`
}

// NewIntegrityScanTask constructs the integrity scan task.
func NewIntegrityScanTask(source string) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityScanPayload{Source: source})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, data), nil
}
