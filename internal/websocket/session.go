package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apierrors "incomestatement/internal/errors"
	"incomestatement/internal/exporter"
	"incomestatement/internal/infrastructure"
	api "incomestatement/pkg/contracts/api/v1"
	"incomestatement/pkg/contracts/domain"
	"incomestatement/pkg/contracts/events"
)

// Computer runs computations for a session
type Computer interface {
	Products(ctx context.Context, id string) ([]string, error)
	Compute(ctx context.Context, id string, selection domain.Selection) (*domain.ResultSet, error)
}

// SessionConfig holds the keepalive and size limits of a session
type SessionConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

// DefaultSessionConfig returns the default keepalive settings
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 64 << 10,
	}
}

// Session is one live recompute connection bound to one dataset. Each select
// message is computed independently; nothing is shared between sessions.
type Session struct {
	id        string
	datasetID string
	products  []string
	traceID   string

	conn     Connection
	computer Computer
	cfg      SessionConfig
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once

	connectedAt      time.Time
	messagesSent     int64
	messagesReceived int64

	logger *slog.Logger
}

// NewSession creates a session for datasetID. products is the dataset's
// product list announced in the connect message.
func NewSession(conn Connection, computer Computer, datasetID string, products []string, cfg SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()
	return &Session{
		id:          id,
		datasetID:   datasetID,
		products:    products,
		conn:        conn,
		computer:    computer,
		cfg:         cfg,
		send:        make(chan []byte, 16),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.session"),
			slog.String("session_id", id),
			slog.String("dataset_id", datasetID),
		),
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Run serves the connection until the peer goes away or ctx is cancelled
func (s *Session) Run(ctx context.Context) {
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		s.traceID = traceID
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(ctx)
	}()

	s.enqueue(s.message(events.MessageTypeConnect, "", events.ConnectData{
		SessionID: s.id,
		DatasetID: s.datasetID,
		Products:  s.products,
		Protocol:  events.ProtocolVersion,
	}))

	s.readPump(ctx)
	cancel()
	wg.Wait()

	s.logger.InfoContext(ctx, "WebSocket session closed",
		slog.Duration("connection_duration", time.Since(s.connectedAt)),
		slog.Int64("messages_received", s.messagesReceived),
		slog.Int64("messages_sent", s.messagesSent))
}

func (s *Session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.WarnContext(ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		s.messagesReceived++
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))

		if !s.handle(ctx, data) {
			return
		}
	}
}

// handle answers one client frame and reports whether the session continues
func (s *Session) handle(ctx context.Context, data []byte) bool {
	msg, err := events.DecodeClientMessage(data)
	if err != nil {
		return s.enqueue(s.errorMessage("", apierrors.InvalidRequestWithError(err)))
	}

	switch msg.Type {
	case events.MessageTypeHeartbeat:
		s.logger.DebugContext(ctx, "Heartbeat received")
		return true

	case events.MessageTypeSelect:
		start := time.Now()
		result, err := s.computer.Compute(ctx, s.datasetID, msg.Selection())
		if err != nil {
			s.logger.DebugContext(ctx, "selection rejected",
				slog.Any("products", msg.Selection()),
				slog.String("error", err.Error()))
			return s.enqueue(s.errorMessage(msg.ID, err))
		}
		s.logger.DebugContext(ctx, "selection computed",
			slog.Int("products", len(result.Products)),
			slog.Duration("duration", time.Since(start)))
		return s.enqueue(s.message(events.MessageTypeResult, msg.ID, api.ComputeData{
			Result: result,
			View:   exporter.NewView(result),
		}))

	default:
		return s.enqueue(s.errorMessage(msg.ID, apierrors.New(http.StatusBadRequest, apierrors.CodeInvalidRequest,
			"unsupported message type "+string(msg.Type))))
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		s.doneOnce.Do(func() { close(s.done) })
	}()

	for {
		select {
		case <-ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			// unblocks ReadMessage
			s.conn.Close()
			return

		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.WarnContext(ctx, "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				s.conn.Close()
				return
			}
			s.messagesSent++

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.DebugContext(ctx, "Failed to send ping message",
					slog.String("error", err.Error()))
				s.conn.Close()
				return
			}
		}
	}
}

// enqueue hands a message to the writer. It returns false once the writer has stopped.
func (s *Session) enqueue(msg events.Message) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		infrastructure.WithError(s.logger, err).Error("failed to encode message")
		return true
	}

	select {
	case s.send <- payload:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) message(msgType events.MessageType, replyTo string, data interface{}) events.Message {
	msg := events.NewMessage(msgType, data)
	msg.ID = replyTo
	msg.TraceID = s.traceID
	return msg
}

func (s *Session) errorMessage(replyTo string, err error) events.Message {
	apiErr := apierrors.FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		infrastructure.WithError(s.logger, err).Error("computation failed")
	}

	msg := events.NewErrorMessage(apiErr.ErrorCode, apiErr.Message, apiErr.Details)
	msg.ID = replyTo
	msg.TraceID = s.traceID
	return msg
}
