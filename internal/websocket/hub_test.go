package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"incomestatement/internal/config"
	apierrors "incomestatement/internal/errors"
	"incomestatement/internal/services"
	"incomestatement/internal/statement"
	"incomestatement/pkg/contracts/domain"
	"incomestatement/pkg/contracts/events"
)

type MockComputer struct {
	mock.Mock
}

func (m *MockComputer) Products(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockComputer) Compute(ctx context.Context, id string, selection domain.Selection) (*domain.ResultSet, error) {
	args := m.Called(ctx, id, selection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResultSet), args.Error(1)
}

type rawMessage struct {
	Type events.MessageType `json:"type"`
	ID   string             `json:"id"`
	Data json.RawMessage    `json:"data"`
}

func newTestHub(t *testing.T, computer Computer, origins []string) (*Hub, *httptest.Server) {
	t.Helper()
	cfg := config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingPeriod:      time.Second,
		PongWait:        2 * time.Second,
		MaxMessageSize:  4096,
	}
	hub := NewHub(computer, cfg, origins, apierrors.NewErrorHandler(nil, false), nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	return websocket.DefaultDialer.Dial(url, header)
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg rawMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func sampleResult(products ...string) *domain.ResultSet {
	return &domain.ResultSet{
		Products: products,
		Lines: []domain.ResultLine{
			{Label: domain.LineGrossLendingMargin, Value: 40, Highlight: domain.HighlightPrimary},
			{Label: domain.LineLIBT, Value: 25},
		},
		Headlines: domain.Headlines{GrossLendingMargin: 40, LIBT: 25},
	}
}

func TestHub_MissingDataset(t *testing.T) {
	computer := new(MockComputer)
	_, srv := newTestHub(t, computer, nil)

	_, resp, err := dial(t, srv, "", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	computer.AssertNotCalled(t, "Products", mock.Anything, mock.Anything)
}

func TestHub_UnknownDataset(t *testing.T) {
	computer := new(MockComputer)
	computer.On("Products", mock.Anything, "missing").Return(nil, services.ErrDatasetNotFound)
	_, srv := newTestHub(t, computer, nil)

	_, resp, err := dial(t, srv, "?dataset=missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	computer.AssertExpectations(t)
}

func TestHub_OriginCheck(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		wantOK  bool
	}{
		{name: "no origin header", allowed: []string{"http://app.example"}, origin: "", wantOK: true},
		{name: "allowed origin", allowed: []string{"http://app.example"}, origin: "http://app.example", wantOK: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://evil.example", wantOK: true},
		{name: "rejected origin", allowed: []string{"http://app.example"}, origin: "http://evil.example", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			computer := new(MockComputer)
			computer.On("Products", mock.Anything, "ds").Return([]string{"Loans"}, nil)
			_, srv := newTestHub(t, computer, tt.allowed)

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := dial(t, srv, "?dataset=ds", header)
			if tt.wantOK {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestSession_ConnectAndSelect(t *testing.T) {
	computer := new(MockComputer)
	computer.On("Products", mock.Anything, "ds").Return([]string{"Loans", "Mortgages"}, nil)
	computer.On("Compute", mock.Anything, "ds", domain.Selection{"Loans"}).Return(sampleResult("Loans"), nil)
	hub, srv := newTestHub(t, computer, nil)

	conn, _, err := dial(t, srv, "?dataset=ds", nil)
	require.NoError(t, err)
	defer conn.Close()

	connect := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeConnect, connect.Type)
	var connectData events.ConnectData
	require.NoError(t, json.Unmarshal(connect.Data, &connectData))
	assert.Equal(t, "ds", connectData.DatasetID)
	assert.Equal(t, []string{"Loans", "Mortgages"}, connectData.Products)
	assert.Equal(t, events.ProtocolVersion, connectData.Protocol)
	assert.NotEmpty(t, connectData.SessionID)
	assert.Equal(t, 1, hub.SessionCount())

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":     "select",
		"id":       "req-1",
		"products": []string{"Loans"},
	}))

	result := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeResult, result.Type)
	assert.Equal(t, "req-1", result.ID)
	assert.Contains(t, string(result.Data), `"gross_lending_margin":40`)
	assert.Contains(t, string(result.Data), `"view"`)
	computer.AssertExpectations(t)
}

func TestSession_SelectAllProducts(t *testing.T) {
	computer := new(MockComputer)
	computer.On("Products", mock.Anything, "ds").Return([]string{"Loans"}, nil)
	computer.On("Compute", mock.Anything, "ds", domain.Selection(nil)).Return(sampleResult("Loans"), nil)
	_, srv := newTestHub(t, computer, nil)

	conn, _, err := dial(t, srv, "?dataset=ds", nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"select","id":"all"}`)))

	result := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeResult, result.Type)
	computer.AssertExpectations(t)
}

func TestSession_Errors(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		setup    func(*MockComputer)
		wantCode string
	}{
		{
			name:  "empty selection",
			frame: `{"type":"select","id":"e1","products":[]}`,
			setup: func(m *MockComputer) {
				m.On("Compute", mock.Anything, "ds", domain.Selection{}).Return(nil, &statement.EmptySelectionError{})
			},
			wantCode: apierrors.CodeEmptySelection,
		},
		{
			name:  "unknown product",
			frame: `{"type":"select","id":"e2","products":["Nope"]}`,
			setup: func(m *MockComputer) {
				m.On("Compute", mock.Anything, "ds", domain.Selection{"Nope"}).
					Return(nil, &statement.UnknownProductError{Products: []string{"Nope"}})
			},
			wantCode: apierrors.CodeUnknownProduct,
		},
		{
			name:     "invalid json",
			frame:    `{"type":`,
			setup:    func(m *MockComputer) {},
			wantCode: apierrors.CodeInvalidRequest,
		},
		{
			name:     "unsupported type",
			frame:    `{"type":"subscribe","id":"e3"}`,
			setup:    func(m *MockComputer) {},
			wantCode: apierrors.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			computer := new(MockComputer)
			computer.On("Products", mock.Anything, "ds").Return([]string{"Loans"}, nil)
			tt.setup(computer)
			_, srv := newTestHub(t, computer, nil)

			conn, _, err := dial(t, srv, "?dataset=ds", nil)
			require.NoError(t, err)
			defer conn.Close()
			readMessage(t, conn)

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)))

			msg := readMessage(t, conn)
			assert.Equal(t, events.MessageTypeError, msg.Type)
			var data events.ErrorData
			require.NoError(t, json.Unmarshal(msg.Data, &data))
			assert.Equal(t, tt.wantCode, data.Code)
			assert.NotEmpty(t, data.Message)
			computer.AssertExpectations(t)
		})
	}
}

func TestSession_HeartbeatIsSilent(t *testing.T) {
	computer := new(MockComputer)
	computer.On("Products", mock.Anything, "ds").Return([]string{"Loans"}, nil)
	computer.On("Compute", mock.Anything, "ds", domain.Selection{"Loans"}).Return(sampleResult("Loans"), nil)
	_, srv := newTestHub(t, computer, nil)

	conn, _, err := dial(t, srv, "?dataset=ds", nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"select","id":"after","products":["Loans"]}`)))

	// the next frame answers the select, not the heartbeat
	msg := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeResult, msg.Type)
	assert.Equal(t, "after", msg.ID)
}

func TestHub_ShutdownClosesSessions(t *testing.T) {
	computer := new(MockComputer)
	computer.On("Products", mock.Anything, "ds").Return([]string{"Loans"}, nil)
	hub, srv := newTestHub(t, computer, nil)

	conn, _, err := dial(t, srv, "?dataset=ds", nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)
	require.Equal(t, 1, hub.SessionCount())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	assert.Equal(t, 0, hub.SessionCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
