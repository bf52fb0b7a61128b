package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"incomestatement/internal/services"
)

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthChecker) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthChecker) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthChecker) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func TestHealthHandler(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		setupMock  func(*MockHealthChecker)
		handler    func(*HealthHandler) http.HandlerFunc
		wantStatus int
		wantBody   string
	}{
		{
			name: "health",
			setupMock: func(m *MockHealthChecker) {
				m.On("HealthCheck").Return(services.HealthStatus{Status: "ok", Timestamp: now})
			},
			handler:    func(h *HealthHandler) http.HandlerFunc { return h.HealthCheck },
			wantStatus: http.StatusOK,
			wantBody:   `"status":"ok"`,
		},
		{
			name: "ready",
			setupMock: func(m *MockHealthChecker) {
				m.On("ReadinessCheck").Return(services.HealthStatus{Status: "ready", Timestamp: now})
			},
			handler:    func(h *HealthHandler) http.HandlerFunc { return h.ReadinessCheck },
			wantStatus: http.StatusOK,
			wantBody:   `"status":"ready"`,
		},
		{
			name: "not ready",
			setupMock: func(m *MockHealthChecker) {
				m.On("ReadinessCheck").Return(services.HealthStatus{Status: "not_ready", Timestamp: now})
			},
			handler:    func(h *HealthHandler) http.HandlerFunc { return h.ReadinessCheck },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `"status":"not_ready"`,
		},
		{
			name: "live",
			setupMock: func(m *MockHealthChecker) {
				m.On("LivenessCheck").Return(services.HealthStatus{Status: "alive", Timestamp: now})
			},
			handler:    func(h *HealthHandler) http.HandlerFunc { return h.LivenessCheck },
			wantStatus: http.StatusOK,
			wantBody:   `"status":"alive"`,
		},
		{
			name: "version",
			setupMock: func(m *MockHealthChecker) {
				m.On("Version").Return(map[string]interface{}{"version": "1.0.0"})
			},
			handler:    func(h *HealthHandler) http.HandlerFunc { return h.Version },
			wantStatus: http.StatusOK,
			wantBody:   `"version":"1.0.0"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(MockHealthChecker)
			tt.setupMock(checker)
			h := NewHealthHandler(checker, nil)

			w := httptest.NewRecorder()
			tt.handler(h)(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			checker.AssertExpectations(t)
		})
	}
}
