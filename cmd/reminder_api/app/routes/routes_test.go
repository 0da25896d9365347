package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/middlewares"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/gateway"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/models"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/reminders"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/repositories"
	"github.com/Git-Paul-Emile/seek-front-sub000/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu    sync.Mutex
	fail  bool
	calls []models.NotificationPayload
}

func (f *fakeNotifier) Send(ctx context.Context, p models.NotificationPayload) gateway.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if f.fail {
		return gateway.Result{Error: "provider down"}
	}
	return gateway.Result{Success: true, MessageID: "msg", Provider: "fake"}
}

type fakeBulk struct {
	jobs []types.BulkJob
}

func (f *fakeBulk) PublishBulkJob(ctx context.Context, job types.BulkJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type memoryCache struct {
	data map[string]middlewares.CachedResponse
}

func (m *memoryCache) Get(ctx context.Context, key string) (*middlewares.CachedResponse, error) {
	if r, ok := m.data[key]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, r middlewares.CachedResponse, ttl time.Duration) error {
	m.data[key] = r
	return nil
}

func (m *memoryCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = middlewares.CachedResponse{}
	return true, nil
}

func (m *memoryCache) Release(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

type testAPI struct {
	router   *gin.Engine
	notifier *fakeNotifier
	bulk     *fakeBulk
}

func newTestAPI(withBulk bool) *testAPI {
	gin.SetMode(gin.TestMode)
	api := &testAPI{router: gin.New(), notifier: &fakeNotifier{}}
	deps := Deps{
		KV:             repositories.NewMemoryKV(),
		Notifier:       api.notifier,
		Cache:          &memoryCache{data: map[string]middlewares.CachedResponse{}},
		IdempotencyTTL: time.Hour,
		Log:            zap.NewNop(),
	}
	if withBulk {
		api.bulk = &fakeBulk{}
		deps.Bulk = api.bulk
	}
	Reminders(api.router.Group("/api/reminders"), deps)
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/reminders"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middlewares.OwnerHeader, "owner-1")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func paymentJSON(id, due string, email string) map[string]any {
	return map[string]any{
		"id":           id,
		"due_date":     due,
		"status":       "pending",
		"amount":       150000,
		"tenant_id":    "tenant-" + id,
		"tenant_name":  "Awa Diop",
		"tenant_email": email,
		"tenant_phone": "+221771234567",
		"period_start": "2026-10-01",
		"period_end":   "2026-10-31",
	}
}

func TestPolicy_DefaultsAndSave(t *testing.T) {
	api := newTestAPI(false)

	w := api.do(t, http.MethodGet, "/policy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var policy models.ReminderPolicy
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &policy))
	assert.Equal(t, 5, policy.BeforeDueThresholdDays)

	policy.BeforeDueThresholdDays = 2
	policy.TotalSent = 99
	w = api.do(t, http.MethodPut, "/policy", policy)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/policy", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &policy))
	assert.Equal(t, 2, policy.BeforeDueThresholdDays)
	assert.Zero(t, policy.TotalSent)
}

func TestMissingOwnerHeader(t *testing.T) {
	api := newTestAPI(false)
	req := httptest.NewRequest(http.MethodGet, "/api/reminders/policy", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluate(t *testing.T) {
	api := newTestAPI(false)
	w := api.do(t, http.MethodPost, "/evaluate", map[string]any{
		"payments": []any{
			paymentJSON("soon", "2026-10-21", "awa@example.com"),
			paymentJSON("late", "2026-10-15", "awa@example.com"),
		},
		"now": "2026-10-18T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var eval reminders.Evaluation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eval))
	require.Len(t, eval.BeforeDue, 1)
	assert.Equal(t, "soon", eval.BeforeDue[0].Payment.ID)
	assert.Equal(t, 3, eval.BeforeDue[0].Days)
	require.Len(t, eval.AfterDue, 1)
	assert.Equal(t, 3, eval.AfterDue[0].Days)
}

func TestSend_CreatesAttemptAndStats(t *testing.T) {
	api := newTestAPI(false)

	w := api.do(t, http.MethodPost, "/send", map[string]any{
		"payment": paymentJSON("pay-1", "2026-10-21", "awa@example.com"),
		"channel": "email",
		"type":    "before_due",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var attempt models.ReminderAttempt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &attempt))
	assert.Equal(t, models.AttemptSent, attempt.Status)
	assert.Equal(t, "pay-1", attempt.PaymentID)

	w = api.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats reminders.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalSent)
	assert.Equal(t, 1, stats.ByChannel[models.ChannelEmail].Sent)
	assert.Equal(t, 1, stats.ByType[models.ReminderBeforeDue])

	w = api.do(t, http.MethodGet, "/history/payments/pay-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.ReminderAttempt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)
}

func TestSend_SkipReturnsNoContent(t *testing.T) {
	api := newTestAPI(false)
	w := api.do(t, http.MethodPost, "/send", map[string]any{
		"payment": paymentJSON("pay-1", "2026-10-21", ""),
		"channel": "email",
		"type":    "before_due",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, api.notifier.calls)
}

func TestSend_InvalidChannel(t *testing.T) {
	api := newTestAPI(false)
	w := api.do(t, http.MethodPost, "/send", map[string]any{
		"payment": paymentJSON("pay-1", "2026-10-21", "awa@example.com"),
		"channel": "fax",
		"type":    "before_due",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSend_IdempotentReplay(t *testing.T) {
	api := newTestAPI(false)
	body := map[string]any{
		"payment": paymentJSON("pay-1", "2026-10-21", "awa@example.com"),
		"channel": "email",
		"type":    "before_due",
	}

	first := api.do(t, http.MethodPost, "/send", body, middlewares.IdempotencyHeader, "key-1")
	second := api.do(t, http.MethodPost, "/send", body, middlewares.IdempotencyHeader, "key-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Len(t, api.notifier.calls, 1)
}

func TestSend_WithNamedConfig(t *testing.T) {
	api := newTestAPI(false)

	w := api.do(t, http.MethodPost, "/configs", map[string]any{
		"name":     "Relance courte",
		"type":     "after_due",
		"channels": []string{"sms"},
		"template": "Loyer de {{.Amount}} en retard, {{.TenantName}}.",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var cfg models.ReminderConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))

	w = api.do(t, http.MethodPost, "/send", map[string]any{
		"payment":   paymentJSON("pay-1", "2026-10-11", "awa@example.com"),
		"channel":   "sms",
		"type":      "after_due",
		"config_id": cfg.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, api.notifier.calls, 1)
	assert.Contains(t, api.notifier.calls[0].Body, "en retard, Awa Diop.")

	w = api.do(t, http.MethodPost, "/send", map[string]any{
		"payment":   paymentJSON("pay-1", "2026-10-11", "awa@example.com"),
		"channel":   "sms",
		"type":      "after_due",
		"config_id": "missing",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulk(t *testing.T) {
	api := newTestAPI(false)
	w := api.do(t, http.MethodPost, "/bulk", map[string]any{
		"channel": "email",
		"type":    "after_due",
		"items": []any{
			map[string]any{"payment": paymentJSON("pay-1", "2026-10-11", "a@example.com")},
			map[string]any{"payment": paymentJSON("pay-2", "2026-10-11", "")},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res reminders.BulkResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 1, res.Skipped)
}

func TestBulkAsync(t *testing.T) {
	api := newTestAPI(true)
	w := api.do(t, http.MethodPost, "/bulk/async", map[string]any{
		"channel": "sms",
		"type":    "after_due",
		"items":   []any{map[string]any{"payment": paymentJSON("pay-1", "2026-10-11", "")}},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, api.bulk.jobs, 1)
	assert.Equal(t, "owner-1", api.bulk.jobs[0].OwnerID)
	assert.Equal(t, models.ChannelSMS, api.bulk.jobs[0].Channel)

	noKafka := newTestAPI(false)
	w = noKafka.do(t, http.MethodPost, "/bulk/async", map[string]any{
		"channel": "sms", "type": "after_due", "items": []any{},
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRunAndClearHistory(t *testing.T) {
	api := newTestAPI(false)
	body := map[string]any{
		"payments": []any{paymentJSON("soon", "2026-10-21", "awa@example.com")},
		"now":      "2026-10-18T08:00:00Z",
	}

	w := api.do(t, http.MethodPost, "/run", body)
	require.Equal(t, http.StatusOK, w.Code)
	var report reminders.RunReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.BeforeDue)
	assert.Equal(t, 1, report.Sent+report.Failed)

	w = api.do(t, http.MethodGet, "/history", nil)
	var entries []models.ReminderAttempt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	w = api.do(t, http.MethodDelete, "/history", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, "/history", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestConfigsCRUD(t *testing.T) {
	api := newTestAPI(false)

	w := api.do(t, http.MethodPost, "/configs", map[string]any{
		"name": "Broken", "type": "after_due", "template": "{{.TenantName",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/configs", map[string]any{
		"name": "Doux", "type": "before_due", "template": "Bonjour {{.TenantName}}",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var cfg models.ReminderConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))

	w = api.do(t, http.MethodPut, "/configs/"+cfg.ID, map[string]any{
		"name": "Très doux", "type": "before_due", "template": "Bonjour {{.TenantName}} !",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/configs", nil)
	var list []models.ReminderConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Très doux", list[0].Name)

	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, "/configs/"+cfg.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/configs/"+cfg.ID, nil).Code)
}
