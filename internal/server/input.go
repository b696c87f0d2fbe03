// Copyright 2025 Tomas Cupr
//
// Input tool handlers for mouse and keyboard actions

package server

import (
	"fmt"

	"github.com/tomascupr/mac-computer-use/internal/computer"
)

type pointParams struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *MCPServer) handleClick(call *ToolCall) (*ToolResult, error) {
	return s.dispatch(call.Name, &computer.Request{Action: computer.ActionLeftClick})
}

func (s *MCPServer) handleClickAt(call *ToolCall) (*ToolResult, error) {
	return s.moveThen(call, computer.ActionLeftClick)
}

func (s *MCPServer) handleMouseMove(call *ToolCall) (*ToolResult, error) {
	var params pointParams
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return s.dispatch(call.Name, &computer.Request{
		Action:     computer.ActionMouseMove,
		Coordinate: []int{params.X, params.Y},
	})
}

func (s *MCPServer) handleRightClick(call *ToolCall) (*ToolResult, error) {
	return s.dispatch(call.Name, &computer.Request{Action: computer.ActionRightClick})
}

func (s *MCPServer) handleRightClickAt(call *ToolCall) (*ToolResult, error) {
	return s.moveThen(call, computer.ActionRightClick)
}

func (s *MCPServer) handleDoubleClick(call *ToolCall) (*ToolResult, error) {
	return s.dispatch(call.Name, &computer.Request{Action: computer.ActionDoubleClick})
}

func (s *MCPServer) handleDoubleClickAt(call *ToolCall) (*ToolResult, error) {
	return s.moveThen(call, computer.ActionDoubleClick)
}

func (s *MCPServer) handleTripleClick(call *ToolCall) (*ToolResult, error) {
	return s.dispatch(call.Name, &computer.Request{Action: computer.ActionTripleClick})
}

func (s *MCPServer) handleMiddleClick(call *ToolCall) (*ToolResult, error) {
	return s.dispatch(call.Name, &computer.Request{Action: computer.ActionMiddleClick})
}

// moveThen moves the cursor to the requested position, then performs click
// at that position.
func (s *MCPServer) moveThen(call *ToolCall, click computer.Action) (*ToolResult, error) {
	var params pointParams
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return s.dispatchSequence(call.Name,
		&computer.Request{Action: computer.ActionMouseMove, Coordinate: []int{params.X, params.Y}},
		&computer.Request{Action: click},
	)
}

func (s *MCPServer) handleDrag(call *ToolCall) (*ToolResult, error) {
	var params struct {
		StartX int `json:"start_x"`
		StartY int `json:"start_y"`
		EndX   int `json:"end_x"`
		EndY   int `json:"end_y"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return s.dispatchSequence(call.Name,
		&computer.Request{Action: computer.ActionMouseMove, Coordinate: []int{params.StartX, params.StartY}},
		&computer.Request{Action: computer.ActionLeftClickDrag, Coordinate: []int{params.EndX, params.EndY}},
	)
}

func (s *MCPServer) handleMouseButtonDown(call *ToolCall) (*ToolResult, error) {
	return s.dispatch(call.Name, &computer.Request{Action: computer.ActionLeftMouseDown})
}

func (s *MCPServer) handleMouseButtonUp(call *ToolCall) (*ToolResult, error) {
	return s.dispatch(call.Name, &computer.Request{Action: computer.ActionLeftMouseUp})
}

func (s *MCPServer) handleTypeText(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}

	result, err := s.dispatch(call.Name, &computer.Request{
		Action: computer.ActionType,
		Text:   &params.Text,
	})
	if err != nil || result.IsError {
		return result, err
	}

	// Prepend a short summary so transcripts show what was typed without
	// dumping long text.
	result.Content = append([]Content{{
		Type: "text",
		Text: fmt.Sprintf("Typed text: %s", truncateText(params.Text)),
	}}, result.Content...)
	return result, nil
}

func (s *MCPServer) handlePressKey(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return s.dispatch(call.Name, &computer.Request{
		Action: computer.ActionKey,
		Text:   &params.Key,
	})
}

func (s *MCPServer) handleHoldKey(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return s.dispatch(call.Name, &computer.Request{
		Action: computer.ActionHoldKey,
		Text:   &params.Key,
	})
}

func (s *MCPServer) handleScroll(call *ToolCall) (*ToolResult, error) {
	var params struct {
		X         int    `json:"x"`
		Y         int    `json:"y"`
		Direction string `json:"direction"`
		Amount    *int   `json:"amount"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return s.dispatch(call.Name, &computer.Request{
		Action:          computer.ActionScroll,
		Coordinate:      []int{params.X, params.Y},
		ScrollDirection: params.Direction,
		ScrollAmount:    params.Amount,
	})
}
