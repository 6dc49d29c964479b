package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"paralleldex/internal/auth"
	"paralleldex/internal/daytime"
	"paralleldex/internal/explore"
	"paralleldex/internal/kv"
	"paralleldex/internal/network"
	"paralleldex/internal/service"
	"paralleldex/internal/store"
	"paralleldex/internal/timer/timertest"
	"paralleldex/pkg/logger"
)

type testAPI struct {
	server *httptest.Server
	sched  *timertest.Fake
	hub    *network.Hub
}

func newTestAPI(t *testing.T, debug bool, limiter *RateLimiter) *testAPI {
	t.Helper()
	st, err := store.NewJSONStore(filepath.Join(t.TempDir(), "progress.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}
	api := &testAPI{sched: timertest.New(), hub: network.NewHub()}
	svc := service.New(service.Options{
		Store:        st,
		KV:           kv.NewMemory(),
		Scheduler:    api.sched,
		Clock:        daytime.AtHour(12),
		ScanDuration: time.Second,
		Notifier:     api.hub,
		Rand:         rand.New(rand.NewSource(3)),
		Debug:        debug,
	})
	if limiter == nil {
		limiter = NewRateLimiter(1000, 1000, logger.For("ratelimit"))
	}
	api.server = httptest.NewServer(NewRouter(NewHandler(svc, issuer, api.hub), RouterOptions{
		CORSOrigins: []string{"http://localhost:5173"},
		Limiter:     limiter,
	}))
	t.Cleanup(func() {
		api.server.Close()
		limiter.Stop()
		svc.Close()
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body error = %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s response error = %v, body=%s", method, path, err, raw)
		}
	}
	return resp.StatusCode, out
}

func (a *testAPI) register(t *testing.T, name string) string {
	t.Helper()
	status, resp := a.do(t, http.MethodPost, "/api/v1/players", "", map[string]string{"name": name})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body=%v", status, resp)
	}
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("expected token in response, got %v", resp)
	}
	return token
}

func TestRegisterIssuesUsableToken(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, false, nil)
	token := api.register(t, "ハル")

	status, me := api.do(t, http.MethodGet, "/api/v1/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me status = %d, body=%v", status, me)
	}
	if me["name"] != "ハル" {
		t.Fatalf("me name = %v, want ハル", me["name"])
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, false, nil)
	for _, token := range []string{"", "not-a-jwt"} {
		status, resp := api.do(t, http.MethodGet, "/api/v1/journal", token, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("journal with token %q status = %d, want 401", token, status)
		}
		if msg, _ := resp["error"].(string); msg == "" {
			t.Fatalf("expected error message, got %v", resp)
		}
	}

	status, _ := api.do(t, http.MethodGet, "/api/v1/areas", "", nil)
	if status != http.StatusOK {
		t.Fatalf("areas status = %d, want 200", status)
	}
}

func TestExploreCaptureFlow(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, false, nil)
	token := api.register(t, "ハル")

	status, snap := api.do(t, http.MethodPost, "/api/v1/explore/start", token, map[string]string{"area_id": "park", "mode": "walk"})
	if status != http.StatusOK || snap["phase"] != string(explore.PhaseDirectScan) {
		t.Fatalf("start status = %d, snapshot=%v", status, snap)
	}
	status, snap = api.do(t, http.MethodPost, "/api/v1/explore/spot", token, map[string]string{"spot_id": "park_bench"})
	if status != http.StatusOK || snap["phase"] != string(explore.PhaseScanning) {
		t.Fatalf("spot status = %d, snapshot=%v", status, snap)
	}
	api.sched.Advance(time.Second)

	status, snap = api.do(t, http.MethodGet, "/api/v1/explore", token, nil)
	if status != http.StatusOK || snap["phase"] != string(explore.PhaseAiming) {
		t.Fatalf("state status = %d, snapshot=%v", status, snap)
	}
	if _, ok := snap["target"].(map[string]any); !ok {
		t.Fatalf("expected target while aiming, got %v", snap)
	}
	status, chart := api.do(t, http.MethodGet, "/api/v1/explore/rhythm", token, nil)
	if status != http.StatusOK {
		t.Fatalf("rhythm status = %d, body=%v", status, chart)
	}

	status, captured := api.do(t, http.MethodPost, "/api/v1/explore/capture", token, nil)
	if status != http.StatusOK {
		t.Fatalf("capture status = %d, body=%v", status, captured)
	}
	if captured["escaped"] != false {
		t.Fatalf("capture without taps escaped: %v", captured)
	}
	outcome, _ := captured["outcome"].(map[string]any)
	if outcome == nil || outcome["newly_discovered"] != true {
		t.Fatalf("expected a new discovery, got %v", captured)
	}

	status, closed := api.do(t, http.MethodPost, "/api/v1/explore/close", token, map[string]bool{"view_details": true})
	if status != http.StatusOK {
		t.Fatalf("close status = %d, body=%v", status, closed)
	}
	if _, ok := closed["creature"].(map[string]any); !ok {
		t.Fatalf("expected creature to open details, got %v", closed)
	}

	status, journal := api.do(t, http.MethodGet, "/api/v1/journal", token, nil)
	if status != http.StatusOK {
		t.Fatalf("journal status = %d", status)
	}
	if journal["discovered"] != float64(1) || journal["total"] != float64(50) {
		t.Fatalf("journal counts = %v/%v, want 1/50", journal["discovered"], journal["total"])
	}
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, false, nil)
	token := api.register(t, "ハル")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "long name", method: http.MethodPost, path: "/api/v1/players", body: map[string]string{"name": strings.Repeat("あ", 13)}, want: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, path: "/api/v1/explore/lane", body: "{", want: http.StatusBadRequest},
		{name: "lane while idle", method: http.MethodPost, path: "/api/v1/explore/lane", body: map[string]int{"lane": 1}, want: http.StatusConflict},
		{name: "unknown area", method: http.MethodPost, path: "/api/v1/explore/start", body: map[string]string{"area_id": "moon"}, want: http.StatusNotFound},
		{name: "placeholder entry", method: http.MethodGet, path: "/api/v1/journal/uj_40", want: http.StatusNotFound},
		{name: "undiscovered entry", method: http.MethodGet, path: "/api/v1/journal/001", want: http.StatusConflict},
		{name: "no buddy", method: http.MethodPost, path: "/api/v1/buddy/pet", want: http.StatusConflict},
		{name: "empty question", method: http.MethodPost, path: "/api/v1/doctor/chat", body: map[string]string{"creature_id": "001"}, want: http.StatusBadRequest},
		{name: "debug disabled", method: http.MethodPost, path: "/api/v1/debug/reset", want: http.StatusForbidden},
		{name: "upload unavailable", method: http.MethodPost, path: "/api/v1/snapshots", body: "\x89PNG\r\n\x1a\n0000", want: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		status, resp := api.do(t, tc.method, tc.path, token, tc.body)
		if status != tc.want {
			t.Fatalf("%s: status = %d, want %d, body=%v", tc.name, status, tc.want, resp)
		}
		if msg, _ := resp["error"].(string); msg == "" {
			t.Fatalf("%s: expected error message, got %v", tc.name, resp)
		}
	}
}

func TestDebugResetWhenEnabled(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, true, nil)
	token := api.register(t, "ハル")

	status, resp := api.do(t, http.MethodPost, "/api/v1/debug/reset", token, nil)
	if status != http.StatusNoContent {
		t.Fatalf("debug reset status = %d, body=%v", status, resp)
	}
}

func TestStatusForUnknownErrorIs500(t *testing.T) {
	t.Parallel()

	if got := statusFor(io.ErrUnexpectedEOF); got != http.StatusInternalServerError {
		t.Fatalf("statusFor() = %d, want 500", got)
	}
	if got := statusFor(service.ErrNoChart); got != http.StatusConflict {
		t.Fatalf("statusFor(ErrNoChart) = %d, want 409", got)
	}
}
