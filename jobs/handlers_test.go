package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/clearbooks/clearbooks/internal/auditor"
	"github.com/clearbooks/clearbooks/internal/notify"
)

type stubCompanies struct {
	ids []int64
	err error
}

func (s stubCompanies) ActiveCompanyIDs(ctx context.Context) ([]int64, error) {
	return s.ids, s.err
}

type stubSubscriptions struct {
	urls []string
}

func (s stubSubscriptions) Endpoints(ctx context.Context, companyID int64, event string) ([]string, error) {
	return s.urls, nil
}

type recordingAuditRunner struct {
	mu      sync.Mutex
	audited []int64
	failFor int64
}

func (r *recordingAuditRunner) RunAudit(ctx context.Context, companyID int64) (auditor.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if companyID == r.failFor {
		return auditor.Report{}, errors.New("audit query timeout")
	}
	r.audited = append(r.audited, companyID)
	return auditor.Report{CompanyID: companyID, Score: 100}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleAuditScanFansOutToActiveCompanies(t *testing.T) {
	runner := &recordingAuditRunner{}
	h := NewHandlers(HandlersConfig{
		Audit:     runner,
		Companies: stubCompanies{ids: []int64{1, 2, 3}},
		Logger:    testLogger(),
	})

	task, err := NewAuditScanTask(AuditScanPayload{})
	require.NoError(t, err)
	require.NoError(t, h.HandleAuditScan(context.Background(), task))
	require.ElementsMatch(t, []int64{1, 2, 3}, runner.audited)
}

func TestHandleAuditScanTargetedCompanySkipsFanOut(t *testing.T) {
	runner := &recordingAuditRunner{}
	h := NewHandlers(HandlersConfig{
		Audit:     runner,
		Companies: stubCompanies{err: errors.New("must not be consulted")},
		Logger:    testLogger(),
	})

	task, err := NewAuditScanTask(AuditScanPayload{CompanyID: 7})
	require.NoError(t, err)
	require.NoError(t, h.HandleAuditScan(context.Background(), task))
	require.Equal(t, []int64{7}, runner.audited)
}

func TestHandleAuditScanAggregatesFailures(t *testing.T) {
	runner := &recordingAuditRunner{failFor: 2}
	h := NewHandlers(HandlersConfig{
		Audit:     runner,
		Companies: stubCompanies{ids: []int64{1, 2}},
		Logger:    testLogger(),
	})

	task, err := NewAuditScanTask(AuditScanPayload{})
	require.NoError(t, err)
	err = h.HandleAuditScan(context.Background(), task)
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 of 2")
	require.Equal(t, []int64{1}, runner.audited, "remaining companies still run")
}

func TestHandleAuditScanMalformedPayloadSkipsRetry(t *testing.T) {
	h := NewHandlers(HandlersConfig{Logger: testLogger()})

	task := asynq.NewTask(TaskAuditScan, []byte("{not json"))
	err := h.HandleAuditScan(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleWebhookDispatchDeliversToSubscribers(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	var contentTypes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		contentTypes = append(contentTypes, r.Header.Get("Content-Type"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	h := NewHandlers(HandlersConfig{
		Subscriptions: stubSubscriptions{urls: []string{server.URL, server.URL}},
		Logger:        testLogger(),
	})

	event := notify.Event{
		CompanyID:  1,
		Name:       notify.EventEntryPosted,
		OccurredAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		Payload:    map[string]any{"entry_id": 42},
	}
	task, err := NewWebhookDispatchTask(event)
	require.NoError(t, err)

	require.NoError(t, h.HandleWebhookDispatch(context.Background(), task))
	require.Len(t, bodies, 2)
	require.Contains(t, bodies[0], notify.EventEntryPosted)
	require.Equal(t, "application/json", contentTypes[0])
}

func TestHandleWebhookDispatchFailedEndpointReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	h := NewHandlers(HandlersConfig{
		Subscriptions: stubSubscriptions{urls: []string{server.URL}},
		Logger:        testLogger(),
	})

	task, err := NewWebhookDispatchTask(notify.Event{CompanyID: 1, Name: notify.EventAuditCompleted})
	require.NoError(t, err)

	err = h.HandleWebhookDispatch(context.Background(), task)
	require.Error(t, err, "delivery failures must surface so the task retries")
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleWebhookDispatchIncompleteEventSkipsRetry(t *testing.T) {
	h := NewHandlers(HandlersConfig{Logger: testLogger()})

	task, err := NewWebhookDispatchTask(notify.Event{CompanyID: 1})
	require.NoError(t, err)
	require.ErrorIs(t, h.HandleWebhookDispatch(context.Background(), task), asynq.SkipRetry)

	task = asynq.NewTask(TaskWebhookDispatch, []byte("broken"))
	require.ErrorIs(t, h.HandleWebhookDispatch(context.Background(), task), asynq.SkipRetry)
}

func TestHandleWebhookDispatchNoSubscribersIsNoOp(t *testing.T) {
	h := NewHandlers(HandlersConfig{
		Subscriptions: stubSubscriptions{},
		Logger:        testLogger(),
	})

	task, err := NewWebhookDispatchTask(notify.Event{CompanyID: 1, Name: notify.EventYearClosed})
	require.NoError(t, err)
	require.NoError(t, h.HandleWebhookDispatch(context.Background(), task))
}
