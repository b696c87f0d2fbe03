// Copyright 2025 Tomas Cupr
//
// Screenshot and state tool handlers

package server

import (
	"github.com/tomascupr/mac-computer-use/internal/computer"
)

func (s *MCPServer) handleScreenshot(call *ToolCall) (*ToolResult, error) {
	return s.dispatch(call.Name, &computer.Request{Action: computer.ActionScreenshot})
}

func (s *MCPServer) handleCursorPosition(call *ToolCall) (*ToolResult, error) {
	return s.dispatch(call.Name, &computer.Request{Action: computer.ActionCursorPosition})
}

func (s *MCPServer) handleWait(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Duration *float64 `json:"duration"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return s.dispatch(call.Name, &computer.Request{
		Action:   computer.ActionWait,
		Duration: params.Duration,
	})
}

// handleComputer exposes the raw action grammar for callers that want to
// drive the dispatcher directly instead of through the narrower tools.
func (s *MCPServer) handleComputer(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Action          string   `json:"action"`
		Text            *string  `json:"text"`
		Coordinate      []int    `json:"coordinate"`
		ScrollDirection string   `json:"scroll_direction"`
		ScrollAmount    *int     `json:"scroll_amount"`
		Duration        *float64 `json:"duration"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return s.dispatch(call.Name, &computer.Request{
		Action:          computer.Action(params.Action),
		Text:            params.Text,
		Coordinate:      params.Coordinate,
		ScrollDirection: params.ScrollDirection,
		ScrollAmount:    params.ScrollAmount,
		Duration:        params.Duration,
	})
}
