package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/middleware/ratelimit"
	"budgetdash/internal/services"
	"budgetdash/internal/store"
)

type plainLabeler struct{}

func (plainLabeler) Format(n int64) string { return strconv.FormatInt(n, 10) }

func newTestServer(t *testing.T, loaded bool, opts Options) *Server {
	t.Helper()
	st := store.New()
	if loaded {
		_, err := st.Replace([]core.BudgetRecord{
			{Account: "A", CostCenter: "X", AmountByYear: map[core.Year]int64{"2022": 100, "2023": 200}},
			{Account: "B", CostCenter: "X", AmountByYear: map[core.Year]int64{"2022": 50, "2023": 50}},
			{Account: "A", CostCenter: "Y", AmountByYear: map[core.Year]int64{"2022": 10, "2023": 10}},
		}, "test")
		if err != nil {
			t.Fatalf("Replace() error = %v", err)
		}
	}
	svc := services.NewDashboardService(st, services.DashboardOptions{Labeler: plainLabeler{}}, log.Discard())
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	return rr
}

func decodeDashboard(t *testing.T, rr *httptest.ResponseRecorder) services.Dashboard {
	t.Helper()
	var d services.Dashboard
	if err := json.NewDecoder(rr.Body).Decode(&d); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	return d
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return e
}

func createSession(t *testing.T, srv *Server) services.Dashboard {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/sessions", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); !strings.HasPrefix(loc, "/api/sessions/") {
		t.Errorf("Location = %q", loc)
	}
	return decodeDashboard(t, rr)
}

func TestDashboardPage(t *testing.T) {
	srv := newTestServer(t, true, Options{})

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Budget-Dashboard", `data-key="A"`, `value="2023"`, "320"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied")
	}
}

func TestDashboardPage_NoData(t *testing.T) {
	srv := newTestServer(t, false, Options{})

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Keine Daten") {
		t.Error("expected empty-state message")
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, true, Options{})

	rr := do(t, srv, http.MethodGet, "/static/dashboard.js", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("static status = %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, true, Options{})
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, body = %s", rr.Code, rr.Body.String())
	}

	empty := newTestServer(t, false, Options{})
	if rr := do(t, empty, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without data status = %d", rr.Code)
	}

	failing := newTestServer(t, true, Options{Checks: map[string]ReadinessCheck{
		"sqlite": func(context.Context) error { return errors.New("locked") },
	}})
	rr := do(t, failing, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "locked") {
		t.Fatalf("readyz with failing check = %d %s", rr.Code, rr.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, true, Options{})
	do(t, srv, http.MethodGet, "/healthz", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	for _, want := range []string{"budgetdash_requests_total", "budgetdash_rate_limited_total"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestYears(t *testing.T) {
	srv := newTestServer(t, true, Options{})
	rr := do(t, srv, http.MethodGet, "/api/years", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Years []core.Year `json:"years"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Years) != 2 || body.Years[0] != "2022" || body.Years[1] != "2023" {
		t.Errorf("years = %v", body.Years)
	}
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t, true, Options{})
	view := createSession(t, srv)
	events := "/api/sessions/" + view.SessionID + "/events"

	rr := do(t, srv, http.MethodPost, events, `{"type":"cost_center_clicked","key":"Y"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("click status = %d, body = %s", rr.Code, rr.Body.String())
	}
	d := decodeDashboard(t, rr)
	if len(d.Accounts.Entries) != 1 || d.Accounts.Entries[0].Key != "A" || d.Accounts.Entries[0].Total != 20 {
		t.Errorf("accounts after cost-center click = %+v", d.Accounts.Entries)
	}
	if cc, ok := d.State.Drilldown.CostCenter(); !ok || cc != "Y" {
		t.Errorf("drilldown = %+v", d.State.Drilldown)
	}

	rr = do(t, srv, http.MethodPost, events, `{"type":"years_changed","years":["2023"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("years status = %d", rr.Code)
	}
	d = decodeDashboard(t, rr)
	if len(d.Trend.Entries) != 1 || d.Trend.Entries[0].Total != 10 {
		t.Errorf("trend after year change = %+v", d.Trend.Entries)
	}

	rr = do(t, srv, http.MethodGet, "/api/sessions/"+view.SessionID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	if got := decodeDashboard(t, rr); !got.State.Equal(d.State) {
		t.Errorf("stored state = %+v, want %+v", got.State, d.State)
	}

	rr = do(t, srv, http.MethodPost, events, `{"type":"reset"}`)
	d = decodeDashboard(t, rr)
	if !d.State.Drilldown.IsNone() {
		t.Errorf("drilldown after reset = %+v", d.State.Drilldown)
	}
}

func TestApplyEvent_Errors(t *testing.T) {
	srv := newTestServer(t, true, Options{})
	view := createSession(t, srv)
	events := "/api/sessions/" + view.SessionID + "/events"

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"empty selection", events, `{"type":"years_changed","years":[]}`, http.StatusUnprocessableEntity, "empty_selection"},
		{"unknown year", events, `{"type":"years_changed","years":["1999"]}`, http.StatusUnprocessableEntity, "unknown_year"},
		{"invalid rank mode", events, `{"type":"rank_mode_changed","mode":"middle"}`, http.StatusBadRequest, "invalid_rank_mode"},
		{"invalid event", events, `{"type":"zoom"}`, http.StatusBadRequest, "invalid_event"},
		{"malformed body", events, `{`, http.StatusBadRequest, "bad_request"},
		{"unknown session", "/api/sessions/nope/events", `{"type":"reset"}`, http.StatusNotFound, "session_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if e := decodeError(t, rr); e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
		})
	}

	rr := do(t, srv, http.MethodGet, "/api/sessions/"+view.SessionID, "")
	if got := decodeDashboard(t, rr); !got.State.Equal(view.State) {
		t.Errorf("rejected events changed state: %+v", got.State)
	}
}

func TestApplyEvent_UnknownKeyIgnored(t *testing.T) {
	srv := newTestServer(t, true, Options{})
	view := createSession(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/sessions/"+view.SessionID+"/events", `{"type":"account_clicked","key":"Z"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	d := decodeDashboard(t, rr)
	if !d.Ignored || !d.State.Equal(view.State) {
		t.Errorf("ignored = %v, state = %+v", d.Ignored, d.State)
	}
}

func TestCreateSession_NoData(t *testing.T) {
	srv := newTestServer(t, false, Options{})
	rr := do(t, srv, http.MethodPost, "/api/sessions", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != "no_data" {
		t.Errorf("code = %q", e.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, true, Options{RateLimit: ratelimit.Config{Requests: 2}})

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/sessions", ""); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/sessions", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rr := do(t, srv, http.MethodGet, "/api/years", ""); rr.Code != http.StatusOK {
		t.Errorf("reads should not be limited, status = %d", rr.Code)
	}
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	srv := newTestServer(t, true, Options{Logger: logger})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/nope/events", strings.NewReader(`{"type":"reset"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	id := rr.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("missing X-Request-ID")
	}
	var rejected string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `"msg":"Request rejected"`) {
			rejected = line
		}
	}
	if !strings.Contains(rejected, `"request_id":"`+id+`"`) || !strings.Contains(rejected, `"component":"http"`) {
		t.Errorf("handler log line = %s", rejected)
	}
}
