package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"incomestatement/internal/config"
	apierrors "incomestatement/internal/errors"
	"incomestatement/internal/infrastructure"
)

// Hub upgrades /ws requests into sessions and tracks the live ones so they
// can be counted and closed on shutdown.
type Hub struct {
	computer     Computer
	upgrader     websocket.Upgrader
	sessionCfg   SessionConfig
	errorHandler *apierrors.ErrorHandler
	metrics      *infrastructure.BusinessMetrics
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewHub creates a hub. An empty allowedOrigins list accepts any origin.
func NewHub(computer Computer, cfg config.WebSocketConfig, allowedOrigins []string, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = infrastructure.WithComponent(logger, "websocket.hub")

	sessionCfg := DefaultSessionConfig()
	if cfg.PongWait > 0 {
		sessionCfg.PongWait = cfg.PongWait
	}
	if cfg.PingPeriod > 0 {
		sessionCfg.PingPeriod = cfg.PingPeriod
	}
	if cfg.MaxMessageSize > 0 {
		sessionCfg.MaxMessageSize = cfg.MaxMessageSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		computer:     computer,
		sessionCfg:   sessionCfg,
		errorHandler: errorHandler,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		sessions:     make(map[string]*Session),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin(allowedOrigins),
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
	return h
}

// WithMetrics records the number of open sessions
func (h *Hub) WithMetrics(metrics *infrastructure.BusinessMetrics) *Hub {
	h.metrics = metrics
	return h
}

// ServeHTTP handles GET /ws?dataset=<id>
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	datasetID := r.URL.Query().Get("dataset")
	if datasetID == "" {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationErrors([]apierrors.ValidationError{
			{Field: "dataset", Message: "dataset is required"},
		}))
		return
	}

	// resolve the dataset before upgrading so a bad id gets a problem response
	products, err := h.computer.Products(r.Context(), datasetID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx := h.ctx
	if traceID := infrastructure.GetTraceID(r.Context()); traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, traceID)
	}
	ctx = infrastructure.EnsureTraceID(ctx)

	session := NewSession(NewConnectionWrapper(conn), h.computer, datasetID, products, h.sessionCfg, h.logger)
	h.add(ctx, session)
	defer h.remove(ctx, session)

	h.logger.InfoContext(ctx, "WebSocket session opened",
		slog.String("session_id", session.ID()),
		slog.String("dataset_id", datasetID),
		slog.String("remote_addr", conn.RemoteAddr().String()))

	session.Run(ctx)
}

// SessionCount returns the number of open sessions
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown closes every open session and waits for them to finish
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) add(ctx context.Context, s *Session) {
	h.wg.Add(1)
	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WebSocketSessions.Add(ctx, 1)
	}
}

func (h *Hub) remove(ctx context.Context, s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.ID())
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WebSocketSessions.Add(ctx, -1)
	}
	h.wg.Done()
}

func (h *Hub) checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// no origin: same-origin or non-browser client
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}

		h.logger.WarnContext(r.Context(), "WebSocket origin check - origin not allowed",
			slog.String("origin", origin),
			slog.Any("allowed_origins", allowed))
		return false
	}
}
