// Copyright 2025 Tomas Cupr
//
// MCP server implementation

package server

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/tomascupr/mac-computer-use/internal/computer"
	"github.com/tomascupr/mac-computer-use/internal/config"
	"github.com/tomascupr/mac-computer-use/internal/transport"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dispatcher executes desktop automation requests. *computer.Computer is
// the production implementation; tests substitute fakes.
type Dispatcher interface {
	Execute(ctx context.Context, req *computer.Request) (*computer.Result, error)
}

// MCPServer exposes the automation dispatcher as MCP tools over JSON-RPC.
type MCPServer struct {
	computer Dispatcher
	cfg      *config.Config
	log      *zap.Logger
	audit    *AuditLogger
	metrics  *transport.MetricsRegistry
	tools    map[string]*Tool
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.RWMutex
}

// Tool represents an MCP tool.
type Tool struct {
	Handler     func(*ToolCall) (*ToolResult, error)
	InputSchema map[string]interface{}
	Name        string
	Description string
}

// ToolCall represents a tool call request.
type ToolCall struct {
	Name      string             `json:"name"`
	Arguments stdjson.RawMessage `json:"arguments"`
}

// ToolResult represents a tool call result.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents a content item in a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewMCPServer creates an MCP server using dispatcher to carry out tool
// calls. A nil logger disables logging.
func NewMCPServer(cfg *config.Config, dispatcher Dispatcher, log *zap.Logger) (*MCPServer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	audit, err := NewAuditLogger(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &MCPServer{
		computer: dispatcher,
		cfg:      cfg,
		log:      log,
		audit:    audit,
		metrics:  transport.DefaultMetrics(),
		ctx:      ctx,
		cancel:   cancel,
		tools:    make(map[string]*Tool),
	}

	s.registerTools()

	return s, nil
}

// Shutdown stops the server and closes the audit log.
func (s *MCPServer) Shutdown() {
	s.cancel()
	if err := s.audit.Close(); err != nil {
		s.log.Warn("failed to close audit log", zap.Error(err))
	}
	s.log.Info("MCP server stopped")
}

// Serve handles MCP requests over the stdio transport until stdin closes.
// Messages are processed sequentially; the underlying automation tools
// serialize anyway, and ordering keeps responses aligned with requests.
func (s *MCPServer) Serve(tr *transport.StdioTransport) error {
	s.log.Info("MCP server starting", zap.String("transport", "stdio"))
	return tr.Serve(s.HandleMessage)
}

// ServeHTTP handles MCP requests over the HTTP/SSE transport.
func (s *MCPServer) ServeHTTP(tr *transport.HTTPTransport) error {
	s.log.Info("MCP server starting", zap.String("transport", "sse"))
	return tr.Serve(s.HandleMessage)
}

// HandleMessage processes one JSON-RPC message and returns the response,
// or nil for notifications.
func (s *MCPServer) HandleMessage(msg *transport.Message) (*transport.Message, error) {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg), nil
	case "notifications/initialized":
		return nil, nil
	case "tools/list":
		return s.handleToolsList(msg), nil
	case "tools/call":
		return s.handleToolsCall(msg), nil
	default:
		return &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", msg.Method),
			},
		}, nil
	}
}

func (s *MCPServer) handleInitialize(msg *transport.Message) *transport.Message {
	return &transport.Message{
		JSONRPC: "2.0",
		ID:      msg.ID,
		Result:  []byte(`{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"mac-computer-use","version":"0.1.0"}}`),
	}
}

func (s *MCPServer) handleToolsList(msg *transport.Message) *transport.Message {
	s.mu.RLock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		tool := s.tools[name]
		tools = append(tools, map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		})
	}
	s.mu.RUnlock()

	result, _ := json.Marshal(map[string]interface{}{"tools": tools})
	return &transport.Message{
		JSONRPC: "2.0",
		ID:      msg.ID,
		Result:  result,
	}
}

func (s *MCPServer) handleToolsCall(msg *transport.Message) *transport.Message {
	var params struct {
		Name      string             `json:"name"`
		Arguments stdjson.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeInvalidRequest,
				Message: fmt.Sprintf("Invalid request: %v", err),
			},
		}
	}

	s.mu.RLock()
	tool, exists := s.tools[params.Name]
	s.mu.RUnlock()

	if !exists {
		return &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Tool not found: %s", params.Name),
			},
		}
	}

	// Schema validation happens before the handler runs so malformed
	// arguments never reach the dispatcher. Absent arguments validate as an
	// empty object, keeping required-field checks in force.
	args := map[string]any{}
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return &transport.Message{
				JSONRPC: "2.0",
				ID:      msg.ID,
				Error: &transport.ErrorObj{
					Code:    transport.ErrCodeInvalidParams,
					Message: fmt.Sprintf("Invalid arguments: %v", err),
				},
			}
		}
	}
	if errMsg := validateToolInput(params.Name, args, s.tools); errMsg != nil {
		errMsg.ID = msg.ID
		return errMsg
	}

	start := time.Now()
	result, err := tool.Handler(&ToolCall{
		Name:      params.Name,
		Arguments: params.Arguments,
	})
	elapsed := time.Since(start)

	status := "success"
	if err != nil || (result != nil && result.IsError) {
		status = "error"
	}
	s.metrics.RecordToolCall(params.Name, status, elapsed)
	s.audit.LogToolCall(params.Name, params.Arguments, status, elapsed)
	s.log.Debug("tool call completed",
		zap.String("tool", params.Name),
		zap.String("status", status),
		zap.Duration("duration", elapsed))

	if err != nil {
		return &transport.Message{
			JSONRPC: "2.0",
			ID:      msg.ID,
			Error: &transport.ErrorObj{
				Code:    transport.ErrCodeInternalError,
				Message: err.Error(),
			},
		}
	}

	resultMap := map[string]interface{}{
		"content": result.Content,
	}
	if result.IsError {
		resultMap["isError"] = true
	}

	resultBytes, _ := json.Marshal(resultMap)
	return &transport.Message{
		JSONRPC: "2.0",
		ID:      msg.ID,
		Result:  resultBytes,
	}
}
