package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incomestatement/internal/config"
	"incomestatement/internal/shared/testutil"
	"incomestatement/pkg/contracts/events"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Telemetry.MetricExporter = "none"
	cfg.Security.RateLimit.Enabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.WebSocketHub.Shutdown(ctx)
	})
	return a
}

func uploadSample(t *testing.T, handler http.Handler) string {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(testutil.SampleCSV()))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestNew_UnsupportedExporter(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.TraceExporter = "jaeger"

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenTelemetry")
}

func TestNew_WiresComponents(t *testing.T) {
	a := newTestApp(t, testConfig())

	assert.NotNil(t, a.Router)
	assert.NotNil(t, a.Server)
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.StatementService)
	assert.NotNil(t, a.HealthService)
	assert.NotNil(t, a.WebSocketHub)
	assert.False(t, a.StatementService.SheetsEnabled())
	assert.Equal(t, ":0", a.Server.Addr)
	assert.Equal(t, a.Router, a.Server.Handler)
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, testConfig())

	tests := []struct {
		name        string
		method      string
		path        string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{name: "health", method: http.MethodGet, path: "/api/health", wantStatus: http.StatusOK, wantContain: `"status":"ok"`},
		{name: "ready", method: http.MethodGet, path: "/api/health/ready", wantStatus: http.StatusOK, wantContain: `"status":"ready"`},
		{name: "live", method: http.MethodGet, path: "/api/health/live", wantStatus: http.StatusOK, wantContain: `"status":"alive"`},
		{name: "version", method: http.MethodGet, path: "/api/version", wantStatus: http.StatusOK, wantContain: `"version"`},
		{name: "empty dataset list", method: http.MethodGet, path: "/api/datasets", wantStatus: http.StatusOK, wantContain: `"count":0`},
		{
			name:        "unknown dataset",
			method:      http.MethodGet,
			path:        "/api/datasets/nope",
			wantStatus:  http.StatusNotFound,
			wantType:    "application/problem+json",
			wantContain: `"error_code":"DATASET_NOT_FOUND"`,
		},
		{
			name:        "unknown route",
			method:      http.MethodGet,
			path:        "/api/nothing-here",
			wantStatus:  http.StatusNotFound,
			wantType:    "application/problem+json",
			wantContain: `"error_code":"NOT_FOUND"`,
		},
		{
			name:       "wrong method",
			method:     http.MethodPut,
			path:       "/api/health",
			wantStatus: http.StatusMethodNotAllowed,
			wantType:   "application/problem+json",
		},
		{
			name:       "websocket without dataset",
			method:     http.MethodGet,
			path:       "/ws",
			wantStatus: http.StatusBadRequest,
			wantType:   "application/problem+json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			a.Router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, w.Header().Get("Content-Type"))
			}
			if tt.wantContain != "" {
				assert.Contains(t, w.Body.String(), tt.wantContain)
			}
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_SecurityHeaders(t *testing.T) {
	a := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestApplication_UploadComputeExport(t *testing.T) {
	a := newTestApp(t, testConfig())
	id := uploadSample(t, a.Router)

	t.Run("products", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/products", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"success","data":["A","B"],"count":2}`, w.Body.String())
	})

	t.Run("compute", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+id+"/compute",
			strings.NewReader(`{"products":["B"]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"products":["B"]`)
		assert.Contains(t, w.Body.String(), `"Results for: B"`)
	})

	t.Run("unknown product", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+id+"/compute",
			strings.NewReader(`{"products":["Z"]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"error_code":"UNKNOWN_PRODUCT"`)
	})

	t.Run("csv export", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/export.csv?products=A,B", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "Metric,Value"))
	})

	t.Run("delete", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+id, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 0, a.Store.Len())
	})
}

func TestApplication_WebSocket(t *testing.T) {
	a := newTestApp(t, testConfig())
	id := uploadSample(t, a.Router)

	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?dataset=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var connect events.Message
	require.NoError(t, conn.ReadJSON(&connect))
	assert.Equal(t, events.MessageTypeConnect, connect.Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":     "select",
		"id":       "1",
		"products": []string{"A"},
	}))

	var result events.Message
	require.NoError(t, conn.ReadJSON(&result))
	assert.Equal(t, events.MessageTypeResult, result.Type)
	assert.Equal(t, "1", result.ID)
	assert.Equal(t, 1, a.WebSocketHub.SessionCount())
}

func TestApplication_PrometheusEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.MetricExporter = "prometheus"
	a := newTestApp(t, cfg)
	uploadSample(t, a.Router)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "datasets_uploaded_total")
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestApplication_JanitorInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{ttl: 2 * time.Hour, want: 30 * time.Minute},
		{ttl: 2 * time.Second, want: time.Second},
		{ttl: 0, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.ttl.String(), func(t *testing.T) {
			a := &Application{Config: &config.Config{Datasets: config.DatasetConfig{TTL: tt.ttl}}}
			assert.Equal(t, tt.want, a.janitorInterval())
		})
	}
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	a := newTestApp(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
