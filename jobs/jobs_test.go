package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/ledgerbook/ledger/internal/jobs"
	"github.com/ledgerbook/ledger/internal/ledger/display"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/store"
	"github.com/ledgerbook/ledger/internal/ledger/store/memory"
)

func TestIntegrityScanTaskPayload(t *testing.T) {
	task, err := NewIntegrityScanTask(SourceCLI)
	require.NoError(t, err)
	assert.Equal(t, TaskLedgerIntegrityScan, task.Type())

	var payload IntegrityScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, SourceCLI, payload.Source)
}

func TestLedgerIntegrityJobReportsAnomalies(t *testing.T) {
	ctx := context.Background()
	gw := memory.New(display.Collation{}).Gateways()

	_, err := gw.Customers.Insert(ctx, model.Customer{Name: "Overdrawn", Balance: -5})
	require.NoError(t, err)
	qid, err := gw.Queues.Insert(ctx, model.Queue{Status: model.QueueStatusUnpaid, PaymentMethod: model.PaymentMethodCash})
	require.NoError(t, err)
	negative := decimal.NewFromInt(-10)
	_, err = gw.ProductOrders.Insert(ctx, model.NewProductOrder(model.ProductOrderParams{QueueID: &qid, Quantity: 1, TotalPrice: &negative}))
	require.NoError(t, err)

	job := NewLedgerIntegrityJob(gw.Integrity, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	anomalies, err := job.Run(ctx, SourceCron)
	require.NoError(t, err)

	kinds := map[store.AnomalyKind]int{}
	for _, a := range anomalies {
		kinds[a.Kind]++
	}
	assert.Equal(t, map[store.AnomalyKind]int{
		store.AnomalyNegativeBalance:    1,
		store.AnomalyNegativeLineTotal:  1,
		store.AnomalyUnattributedUnpaid: 1,
	}, kinds)

	task, err := NewIntegrityScanTask(SourceCron)
	require.NoError(t, err)
	assert.NoError(t, job.Handle(ctx, task), "anomalies do not fail the task")
}

func TestLedgerIntegrityJobRejectsBadPayload(t *testing.T) {
	job := NewLedgerIntegrityJob(memory.New(display.Collation{}).Gateways().Integrity, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrityScan, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type failingScanner struct{}

func (failingScanner) ScanIntegrity(context.Context) ([]store.Anomaly, error) {
	return nil, errors.New("connection reset")
}

func TestLedgerIntegrityJobPropagatesScanFailure(t *testing.T) {
	job := NewLedgerIntegrityJob(failingScanner{}, nil, nil)
	task, err := NewIntegrityScanTask(SourceCron)
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":0,"retry":1,"failed_today":0,"paused":false}`, rr.Body.String())
}

type failingInspector struct{}

func (failingInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return nil, errors.New("redis: connection refused")
}

func TestJobsHealthUnavailable(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(failingInspector{}, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestNewWorkerRejectsIncompleteHandler(t *testing.T) {
	_, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Handlers:  []TaskHandler{{Type: TaskLedgerIntegrityScan}},
	})
	assert.ErrorContains(t, err, "incomplete handler")
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	task, err := NewIntegrityScanTask(SourceCron)
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Cron:      []CronRegistration{{Spec: "not a cron", Task: task}},
	})
	assert.ErrorContains(t, err, "register cron")
}

func TestNilWorkerRun(t *testing.T) {
	var w *Worker
	assert.Error(t, w.Run(context.Background()))
}
