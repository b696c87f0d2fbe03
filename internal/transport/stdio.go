// Copyright 2025 Tomas Cupr
//
// Stdio transport for JSON-RPC 2.0 communication

package transport

import (
	"bufio"
	stdjson "encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// StdioTransport implements JSON-RPC 2.0 transport over stdin/stdout.
// Messages are newline-delimited JSON objects.
type StdioTransport struct {
	reader *bufio.Reader
	writer io.Writer
	log    *zap.Logger
	mu     sync.Mutex
	closed bool
}

// NewStdioTransport creates a stdio transport reading from stdin and
// writing to stdout. A nil logger disables logging.
func NewStdioTransport(stdin io.Reader, stdout io.Writer, log *zap.Logger) *StdioTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &StdioTransport{
		reader: bufio.NewReader(stdin),
		writer: stdout,
		log:    log,
	}
}

// Message represents a JSON-RPC 2.0 message.
//
// This is a union type covering both requests and responses:
//
// Request format:
//   - JSONRPC: "2.0" (required)
//   - Method: the method name (required)
//   - Params: method parameters (optional)
//   - ID: request identifier (omit for notifications)
//
// Response format:
//   - JSONRPC: "2.0" (required)
//   - Result: success payload (mutually exclusive with Error)
//   - Error: error object (mutually exclusive with Result)
//   - ID: matches the request ID
type Message struct {
	// Error contains error details for failed requests.
	Error *ErrorObj `json:"error,omitempty"`

	// JSONRPC is always "2.0".
	JSONRPC string `json:"jsonrpc"`

	// Method is the name of the method to invoke; requests only.
	Method string `json:"method,omitempty"`

	// ID is the request identifier. Any JSON value; omitted for
	// notifications.
	ID stdjson.RawMessage `json:"id,omitempty"`

	// Params contains the method parameters; object or array.
	Params stdjson.RawMessage `json:"params,omitempty"`

	// Result contains the success response payload.
	Result stdjson.RawMessage `json:"result,omitempty"`
}

// ErrorObj represents a JSON-RPC 2.0 error object.
//
// Standard error codes:
//   - -32700: Parse error
//   - -32600: Invalid Request
//   - -32601: Method not found
//   - -32602: Invalid params
//   - -32603: Internal error
//   - -32000 to -32099: implementation-defined server errors
type ErrorObj struct {
	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Data carries additional error information; any JSON value.
	Data stdjson.RawMessage `json:"data,omitempty"`

	// Code indicates the error type per the JSON-RPC 2.0 specification.
	Code int `json:"code"`
}

// ReadMessage reads a single newline-delimited JSON-RPC 2.0 message.
func (t *StdioTransport) ReadMessage() (*Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, fmt.Errorf("transport is closed")
	}

	line, err := t.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("stdin closed")
		}
		return nil, fmt.Errorf("failed to read line: %w", err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty line received")
	}

	var msg Message
	if err := json.UnmarshalFromString(line, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return &msg, nil
}

// WriteMessage writes a JSON-RPC 2.0 message followed by a newline.
func (t *StdioTransport) WriteMessage(msg *Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transport is closed")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if _, err := t.writer.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// Close closes the transport.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true
	return nil
}

// IsClosed returns whether the transport is closed.
func (t *StdioTransport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Serve reads messages in a loop and passes them to handler, writing any
// non-nil response back. Returns nil when stdin closes.
func (t *StdioTransport) Serve(handler func(*Message) (*Message, error)) error {
	for {
		msg, err := t.ReadMessage()
		if err != nil {
			if err.Error() == "stdin closed" {
				t.log.Info("stdin closed, exiting")
				return nil
			}
			t.log.Warn("failed to read message", zap.Error(err))
			continue
		}

		response, err := handler(msg)
		if err != nil {
			t.log.Error("handler failed", zap.String("method", msg.Method), zap.Error(err))
			response = &Message{
				JSONRPC: "2.0",
				ID:      msg.ID,
				Error: &ErrorObj{
					Code:    ErrCodeInternalError,
					Message: err.Error(),
				},
			}
		}

		if response != nil {
			if err := t.WriteMessage(response); err != nil {
				t.log.Error("failed to write response", zap.Error(err))
			}
		}
	}
}
