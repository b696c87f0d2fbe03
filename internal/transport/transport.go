// Copyright 2025 Tomas Cupr

// Package transport carries JSON-RPC 2.0 messages between the MCP server
// and its clients, over newline-delimited stdio or HTTP with SSE.
package transport

import jsoniter "github.com/json-iterator/go"

// json is the codec used for all wire serialization in this package.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSON-RPC 2.0 standard error codes.
// See: https://www.jsonrpc.org/specification#error_object
const (
	// ErrCodeParseError indicates invalid JSON was received by the server.
	ErrCodeParseError = -32700

	// ErrCodeInvalidRequest indicates the JSON sent is not a valid Request object.
	ErrCodeInvalidRequest = -32600

	// ErrCodeMethodNotFound indicates the method does not exist or is not available.
	ErrCodeMethodNotFound = -32601

	// ErrCodeInvalidParams indicates invalid method parameter(s).
	ErrCodeInvalidParams = -32602

	// ErrCodeInternalError indicates an internal JSON-RPC error.
	ErrCodeInternalError = -32603
)

// Transport moves JSON-RPC 2.0 messages to and from a client.
//
// Implementations must be safe for concurrent use. The two implementations
// are StdioTransport (newline-delimited JSON on stdin/stdout, the default)
// and HTTPTransport (HTTP POST for requests, SSE for responses).
//
// io.EOF-like "closed" errors mean the peer went away; anything else is a
// transport-layer failure.
type Transport interface {
	// ReadMessage blocks until a message arrives, an error occurs, or the
	// transport is closed.
	//
	// HTTPTransport does not support ReadMessage; it delivers messages via
	// Serve(handler) and returns an error here immediately.
	ReadMessage() (*Message, error)

	// WriteMessage sends a message. StdioTransport writes to stdout;
	// HTTPTransport broadcasts to all connected SSE clients.
	WriteMessage(msg *Message) error

	// Close releases the transport. Idempotent.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

var _ Transport = (*StdioTransport)(nil)
