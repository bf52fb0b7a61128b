// Package events contains the message contracts of the live recompute
// websocket at /ws.
package events

import (
	"encoding/json"
	"time"
)

// ProtocolVersion is reported in the connect message
const ProtocolVersion = "1.0"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client to server
	MessageTypeSelect    MessageType = "select"
	MessageTypeHeartbeat MessageType = "heartbeat"

	// Server to client
	MessageTypeConnect MessageType = "connect"
	MessageTypeResult  MessageType = "result"
	MessageTypeError   MessageType = "error"
)

// ClientMessage is any frame a client sends. Products is only read for
// select messages; a select without the products key means every product.
type ClientMessage struct {
	Type     MessageType `json:"type"`
	ID       string      `json:"id,omitempty"`
	Products *[]string   `json:"products,omitempty"`
}

// Selection returns the requested products, nil when the client omitted them
func (m ClientMessage) Selection() []string {
	if m.Products == nil {
		return nil
	}
	if *m.Products == nil {
		return []string{}
	}
	return *m.Products
}

// Message is the envelope of every server frame
type Message struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id,omitempty"` // echoes the client message id
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// ConnectData is sent once after the upgrade
type ConnectData struct {
	SessionID string   `json:"session_id"`
	DatasetID string   `json:"dataset_id"`
	Products  []string `json:"products"`
	Protocol  string   `json:"protocol"`
}

// ErrorData carries the same codes as the HTTP problem responses
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Fatal   bool        `json:"fatal,omitempty"`
}

// DecodeClientMessage parses one client frame
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// NewMessage creates a server message stamped with the current time
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(code, message string, details interface{}) Message {
	return NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
		Details: details,
	})
}
