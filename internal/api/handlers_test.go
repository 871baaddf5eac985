package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/optin-mailer/internal/pkg/httputil"
	"github.com/ignite/optin-mailer/internal/service/subscription"
)

// mockSubscriptions records calls and returns canned results.
type mockSubscriptions struct {
	subscribed []subscription.SubscribeInput
	confirmed  []subscription.ConfirmInput
	nows       []time.Time
	confirmOK  bool
	err        error
}

func (m *mockSubscriptions) Subscribe(_ context.Context, in subscription.SubscribeInput, now time.Time) error {
	m.subscribed = append(m.subscribed, in)
	m.nows = append(m.nows, now)
	return m.err
}

func (m *mockSubscriptions) Confirm(_ context.Context, in subscription.ConfirmInput, now time.Time) (bool, error) {
	m.confirmed = append(m.confirmed, in)
	m.nows = append(m.nows, now)
	return m.confirmOK, m.err
}

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func setupTestRouter(t *testing.T, subs *mockSubscriptions) http.Handler {
	t.Helper()
	h := NewHandlers(subs, func() time.Time { return fixedNow })
	return SetupRoutes(h, RouterOptions{})
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubscribeNewSubscriber(t *testing.T) {
	subs := &mockSubscriptions{}
	router := setupTestRouter(t, subs)

	rec := postJSON(t, router, "/api/subscribe", `{"email":"alice@example.com","workspace_id":1,"first_name":"Alice"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	require.Len(t, subs.subscribed, 1)
	assert.Equal(t, subscription.SubscribeInput{WorkspaceID: 1, Email: "alice@example.com", FirstName: "Alice"}, subs.subscribed[0])
	assert.Equal(t, fixedNow, subs.nows[0])
}

func TestSubscribeAcceptsForm(t *testing.T) {
	subs := &mockSubscriptions{}
	router := setupTestRouter(t, subs)

	form := url.Values{"email": {"bob@example.com"}, "workspace_id": {"2"}}
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, subs.subscribed, 1)
	assert.Equal(t, int64(2), subs.subscribed[0].WorkspaceID)
}

func TestSubscribeValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing email", `{"workspace_id":1}`, "email"},
		{"invalid email", `{"email":"not-an-email","workspace_id":1}`, "email"},
		{"display name email", `{"email":"Alice <alice@example.com>","workspace_id":1}`, "email"},
		{"missing workspace", `{"email":"alice@example.com"}`, "workspace_id"},
		{"non-integer workspace", `{"email":"alice@example.com","workspace_id":"abc"}`, "workspace_id"},
		{"email too long", `{"email":"` + strings.Repeat("a", 250) + `@example.com","workspace_id":1}`, "email"},
		{"first name too long", `{"email":"alice@example.com","workspace_id":1,"first_name":"` + strings.Repeat("é", 256) + `"}`, "first_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &mockSubscriptions{}
			rec := postJSON(t, setupTestRouter(t, subs), "/api/subscribe", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var resp httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "validation_failed", resp.Code)
			details, ok := resp.Details.(map[string]interface{})
			require.True(t, ok)
			assert.Contains(t, details, tt.field)
			assert.Empty(t, subs.subscribed)
		})
	}
}

func TestSubscribeLengthCountsCharacters(t *testing.T) {
	subs := &mockSubscriptions{}
	name := strings.Repeat("é", 255)

	rec := postJSON(t, setupTestRouter(t, subs), "/api/subscribe",
		`{"email":"alice@example.com","workspace_id":1,"last_name":"`+name+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, subs.subscribed, 1)
	assert.Equal(t, name, subs.subscribed[0].LastName)
}

func TestSubscribeDispatchFailure(t *testing.T) {
	subs := &mockSubscriptions{err: errors.New("relay sparkpost: status 401")}
	rec := postJSON(t, setupTestRouter(t, subs), "/api/subscribe", `{"email":"alice@example.com","workspace_id":1}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sparkpost", "internal errors are not leaked")
}

func TestSubscribeMalformedJSON(t *testing.T) {
	rec := postJSON(t, setupTestRouter(t, &mockSubscriptions{}), "/api/subscribe", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmMatched(t *testing.T) {
	subs := &mockSubscriptions{confirmOK: true}
	rec := postJSON(t, setupTestRouter(t, subs), "/api/confirm",
		`{"email":"alice@example.com","hash":"abc","workspace_id":"1","tag_id":7}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, subs.confirmed, 1)
	in := subs.confirmed[0]
	assert.Equal(t, int64(1), in.WorkspaceID)
	assert.Equal(t, "abc", in.Hash)
	require.NotNil(t, in.TagID)
	assert.Equal(t, int64(7), *in.TagID)
}

func TestConfirmNotMatched(t *testing.T) {
	subs := &mockSubscriptions{confirmOK: false}
	rec := postJSON(t, setupTestRouter(t, subs), "/api/confirm",
		`{"email":"alice@example.com","hash":"wrong","workspace_id":1,"tag_id":null}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, subs.confirmed, 1)
	assert.Nil(t, subs.confirmed[0].TagID)
}

func TestConfirmValidation(t *testing.T) {
	subs := &mockSubscriptions{}
	rec := postJSON(t, setupTestRouter(t, subs), "/api/confirm",
		`{"email":"alice@example.com","workspace_id":1,"tag_id":"x"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	details := resp.Details.(map[string]interface{})
	assert.Contains(t, details, "hash")
	assert.Contains(t, details, "tag_id")
	assert.Empty(t, subs.confirmed)
}

func TestConfirmStoreError(t *testing.T) {
	subs := &mockSubscriptions{err: errors.New("db down")}
	rec := postJSON(t, setupTestRouter(t, subs), "/api/confirm",
		`{"email":"alice@example.com","hash":"abc","workspace_id":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/subscribe", nil)
	rec := httptest.NewRecorder()
	setupTestRouter(t, &mockSubscriptions{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandlers(&mockSubscriptions{}, nil)
	router := SetupRoutes(h, RouterOptions{AllowedOrigins: []string{"https://example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/subscribe", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	setupTestRouter(t, &mockSubscriptions{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHealthReadiness(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	hc := NewHealthChecker(db, nil)
	router := SetupRoutes(NewHandlers(&mockSubscriptions{}, nil), RouterOptions{Health: hc})

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthOverallStatus(t *testing.T) {
	hc := &HealthChecker{}
	hc.Register("database", true, nil)
	hc.Register("redis", false, nil)

	assert.Equal(t, "healthy", hc.overallStatus(map[string]ComponentCheck{
		"database": {Status: "up"}, "redis": {Status: "not_configured"},
	}))
	assert.Equal(t, "degraded", hc.overallStatus(map[string]ComponentCheck{
		"database": {Status: "up"}, "redis": {Status: "down"},
	}))
	assert.Equal(t, "degraded", hc.overallStatus(map[string]ComponentCheck{
		"database": {Status: "degraded"}, "redis": {Status: "up"},
	}))
	assert.Equal(t, "unhealthy", hc.overallStatus(map[string]ComponentCheck{
		"database": {Status: "down"}, "redis": {Status: "up"},
	}))
}

func TestHealthCustomCheck(t *testing.T) {
	hc := &HealthChecker{startTime: time.Now()}
	hc.Register("smtp", false, func(context.Context) ComponentCheck {
		return ComponentCheck{Status: "down", Message: "dial tcp: refused"}
	})

	rec := httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "dial tcp: refused")
}
