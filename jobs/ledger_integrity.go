package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ledgerbook/ledger/internal/jobs"
	"github.com/ledgerbook/ledger/internal/ledger/store"
)

// LedgerIntegrityJob reports customers with a negative balance, line items with a negative
// total and unpaid queues that no customer owes.
type LedgerIntegrityJob struct {
	Scanner store.IntegrityScanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob initialises the integrity scan handler.
func NewLedgerIntegrityJob(scanner store.IntegrityScanner, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Scanner: scanner, Logger: logger, Metrics: metrics}
}

// Handle executes one scan. Anomalies are reported, not failures: the task only fails when the
// scan itself cannot run.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Scanner == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("ledger integrity: decode payload: %w", asynq.SkipRetry)
	}

	_, err := j.Run(ctx, payload.Source)
	return err
}

// Run scans the store and returns the anomalies it found.
func (j *LedgerIntegrityJob) Run(ctx context.Context, source string) (anomalies []store.Anomaly, err error) {
	start := time.Now()
	defer func() { j.Metrics.ObserveRun(TaskLedgerIntegrityScan, start, err) }()

	logger := j.logger().With(slog.String("job", TaskLedgerIntegrityScan), slog.String("source", source))
	logger.InfoContext(ctx, "starting ledger integrity scan")

	anomalies, err = j.Scanner.ScanIntegrity(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "scan failed", slog.Any("error", err))
		return nil, err
	}

	perKind := map[string]int{}
	for _, a := range anomalies {
		logger.WarnContext(ctx, "ledger anomaly detected",
			slog.String("kind", string(a.Kind)),
			slog.Int64("entity_id", a.EntityID),
			slog.String("detail", a.Detail),
		)
		perKind[string(a.Kind)]++
	}
	j.Metrics.RecordScan(perKind)

	logger.InfoContext(ctx, "completed ledger integrity scan",
		slog.Int("anomalies", len(anomalies)),
		slog.Duration("duration", time.Since(start)),
	)
	return anomalies, nil
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
