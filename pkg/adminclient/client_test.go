package adminclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tably/pkg/substatus"
)

type fakeAPI struct {
	mux      *http.ServeMux
	requests atomic.Int64

	statusBody string
	eventsBody string

	suspendStatus int
	suspendReply  string
	lastAuth      atomic.Value
	lastBody      atomic.Value
}

func newFakeAPI() *fakeAPI {
	api := &fakeAPI{
		mux:           http.NewServeMux(),
		statusBody:    `{"status":"active","paid_days_remaining":10,"current_period_end_at":"2026-09-10T00:00:00Z"}`,
		eventsBody:    `[]`,
		suspendStatus: http.StatusOK,
		suspendReply:  `{"status":"suspended"}`,
	}

	api.mux.HandleFunc("GET /subscriptions/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		writeEnvelope(w, http.StatusOK, api.statusBody)
	})
	api.mux.HandleFunc("GET /subscriptions/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		writeEnvelope(w, http.StatusOK, api.eventsBody)
	})
	api.mux.HandleFunc("POST /admin/subscriptions/{id}/grant-days", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		writeEnvelope(w, http.StatusOK, `{"status":"active","paid_days_remaining":7}`)
	})
	api.mux.HandleFunc("POST /admin/subscriptions/{id}/suspend", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		if api.suspendStatus >= 400 {
			writeError(w, api.suspendStatus, "subscription already canceled")
			return
		}
		writeEnvelope(w, http.StatusOK, api.suspendReply)
	})
	api.mux.HandleFunc("POST /admin/lifecycle/run-daily", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		writeEnvelope(w, http.StatusOK, `{"transitioned":4}`)
	})
	api.mux.HandleFunc("GET /notifications/preferences", func(w http.ResponseWriter, r *http.Request) {
		api.record(r)
		writeEnvelope(w, http.StatusOK, `{"in_app_enabled":false}`)
	})
	return api
}

func (a *fakeAPI) record(r *http.Request) {
	a.requests.Add(1)
	a.lastAuth.Store(r.Header.Get("Authorization"))
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
		a.lastBody.Store(body)
	}
}

func writeEnvelope(w http.ResponseWriter, code int, data string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":"success","code":%d,"message":"OK","data":%s}`, code, data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":"error","code":%d,"message":%q}`, code, message)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	server := httptest.NewServer(api.mux)
	t.Cleanup(server.Close)
	return New(server.URL, "test-token")
}

func TestFetchStatus(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)

	snap, err := client.FetchStatus(context.Background(), "rest-1")
	require.NoError(t, err)
	assert.Equal(t, "active", snap.Status)
	assert.Equal(t, 10, snap.PaidDaysRemaining)
	require.NotNil(t, snap.CurrentPeriodEndAt.Time())

	assert.Equal(t, "Bearer test-token", api.lastAuth.Load())
}

func TestDaysValidatedBeforeNetwork(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)

	_, err := client.GrantDays(context.Background(), "rest-1", 0)
	assert.ErrorIs(t, err, ErrInvalidDays)
	_, err = client.SetPaidDays(context.Background(), "rest-1", -1)
	assert.ErrorIs(t, err, ErrInvalidDays)
	assert.Zero(t, api.requests.Load())
}

func TestGrantDaysSendsBody(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)

	snap, err := client.GrantDays(context.Background(), "rest-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, snap.PaidDaysRemaining)

	body, _ := api.lastBody.Load().(map[string]any)
	assert.Equal(t, float64(7), body["days"])
}

func TestServerRejectionSurfacedVerbatim(t *testing.T) {
	api := newFakeAPI()
	api.suspendStatus = http.StatusConflict
	client := newTestClient(t, api)

	_, err := client.Suspend(context.Background(), "rest-1", "why")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Code)
	assert.Equal(t, "subscription already canceled", apiErr.Message)
}

func TestRunDaily(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)

	n, err := client.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestInAppEnabled(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)

	enabled, err := client.InAppEnabled(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestSurfaceSuspendRefetchReflectsServer(t *testing.T) {
	api := newFakeAPI()
	client := newTestClient(t, api)
	surface := NewSurface(client, "rest-1")

	require.NoError(t, surface.Refresh(context.Background()))
	assert.Equal(t, substatus.StatusActive, surface.Derived(time.Now()).Status)

	// After a successful suspend the refetched event log carries the
	// suspension, so the derived status holds without any intent.
	api.statusBody = `{"status":"suspended"}`
	api.eventsBody = `[{"id":"e1","event_type":"SUSPENDED","metadata":{"reason":"review"},"created_at":"2026-08-30T10:00:00Z"}]`

	require.NoError(t, surface.Suspend(context.Background(), "review"))
	assert.Equal(t, substatus.StatusSuspended, surface.Derived(time.Now()).Status)

	events := surface.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "review", substatus.SuspendReason(events))
}

func TestSurfaceSuspendRollbackOnRejection(t *testing.T) {
	api := newFakeAPI()
	api.suspendStatus = http.StatusConflict
	client := newTestClient(t, api)
	surface := NewSurface(client, "rest-1")

	require.NoError(t, surface.Refresh(context.Background()))

	err := surface.Suspend(context.Background(), "why")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)

	// The rejection left the server state untouched; the follow-up refetch
	// rolls the optimistic suspension back.
	assert.Equal(t, substatus.StatusActive, surface.Derived(time.Now()).Status)
}

func TestSurfaceSnapshotBeforeRefresh(t *testing.T) {
	client := New("http://127.0.0.1:0", "t")
	surface := NewSurface(client, "rest-1")
	_, ok := surface.Snapshot()
	assert.False(t, ok)
}
