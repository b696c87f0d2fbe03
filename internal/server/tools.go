// Copyright 2025 Tomas Cupr
//
// MCP tool registry

package server

// coordinateProperties is the shared x/y schema for position-taking tools.
func coordinateProperties() map[string]interface{} {
	return map[string]interface{}{
		"x": map[string]interface{}{
			"type":        "integer",
			"description": "X coordinate in the virtual resolution",
		},
		"y": map[string]interface{}{
			"type":        "integer",
			"description": "Y coordinate in the virtual resolution",
		},
	}
}

func noArgSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func coordinateSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": coordinateProperties(),
		"required":   []string{"x", "y"},
	}
}

// registerTools registers all available tools.
func (s *MCPServer) registerTools() {
	s.tools = map[string]*Tool{
		"screenshot": {
			Name:        "screenshot",
			Description: "Take a screenshot of the current screen",
			InputSchema: noArgSchema(),
			Handler:     s.handleScreenshot,
		},
		"click": {
			Name:        "click",
			Description: "Left click at the current cursor position",
			InputSchema: noArgSchema(),
			Handler:     s.handleClick,
		},
		"click_at": {
			Name:        "click_at",
			Description: "Move the cursor to the given position and left click",
			InputSchema: coordinateSchema(),
			Handler:     s.handleClickAt,
		},
		"type_text": {
			Name:        "type_text",
			Description: "Type the given text at the current cursor position",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text to type",
					},
				},
				"required": []string{"text"},
			},
			Handler: s.handleTypeText,
		},
		"press_key": {
			Name:        "press_key",
			Description: "Press a key or key combination (e.g. 'return', 'cmd+n', 'ctrl+shift+tab')",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key": map[string]interface{}{
						"type":        "string",
						"description": "Key name or modifier combination joined with '+'",
					},
				},
				"required": []string{"key"},
			},
			Handler: s.handlePressKey,
		},
		"mouse_move": {
			Name:        "mouse_move",
			Description: "Move the cursor to the given position",
			InputSchema: coordinateSchema(),
			Handler:     s.handleMouseMove,
		},
		"right_click": {
			Name:        "right_click",
			Description: "Right click at the current cursor position",
			InputSchema: noArgSchema(),
			Handler:     s.handleRightClick,
		},
		"right_click_at": {
			Name:        "right_click_at",
			Description: "Move the cursor to the given position and right click",
			InputSchema: coordinateSchema(),
			Handler:     s.handleRightClickAt,
		},
		"double_click": {
			Name:        "double_click",
			Description: "Double click at the current cursor position",
			InputSchema: noArgSchema(),
			Handler:     s.handleDoubleClick,
		},
		"double_click_at": {
			Name:        "double_click_at",
			Description: "Move the cursor to the given position and double click",
			InputSchema: coordinateSchema(),
			Handler:     s.handleDoubleClickAt,
		},
		"triple_click": {
			Name:        "triple_click",
			Description: "Triple click at the current cursor position",
			InputSchema: noArgSchema(),
			Handler:     s.handleTripleClick,
		},
		"middle_click": {
			Name:        "middle_click",
			Description: "Middle click at the current cursor position",
			InputSchema: noArgSchema(),
			Handler:     s.handleMiddleClick,
		},
		"drag": {
			Name:        "drag",
			Description: "Drag with the left button held from a start position to an end position",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"start_x": map[string]interface{}{
						"type":        "integer",
						"description": "Drag start X coordinate",
					},
					"start_y": map[string]interface{}{
						"type":        "integer",
						"description": "Drag start Y coordinate",
					},
					"end_x": map[string]interface{}{
						"type":        "integer",
						"description": "Drag end X coordinate",
					},
					"end_y": map[string]interface{}{
						"type":        "integer",
						"description": "Drag end Y coordinate",
					},
				},
				"required": []string{"start_x", "start_y", "end_x", "end_y"},
			},
			Handler: s.handleDrag,
		},
		"scroll": {
			Name:        "scroll",
			Description: "Scroll at the given position",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate to scroll at",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate to scroll at",
					},
					"direction": map[string]interface{}{
						"type":        "string",
						"description": "Scroll direction",
						"enum":        []string{"up", "down", "left", "right"},
					},
					"amount": map[string]interface{}{
						"type":        "integer",
						"description": "Scroll amount in wheel clicks (default 5)",
					},
				},
				"required": []string{"x", "y"},
			},
			Handler: s.handleScroll,
		},
		"cursor_position": {
			Name:        "cursor_position",
			Description: "Get the current cursor position in the virtual resolution",
			InputSchema: noArgSchema(),
			Handler:     s.handleCursorPosition,
		},
		"hold_key": {
			Name:        "hold_key",
			Description: "Press and hold a key; the key stays down until released by a later key press",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key": map[string]interface{}{
						"type":        "string",
						"description": "Key to hold down (e.g. 'cmd', 'shift', 'a')",
					},
				},
				"required": []string{"key"},
			},
			Handler: s.handleHoldKey,
		},
		"mouse_button_down": {
			Name:        "mouse_button_down",
			Description: "Press and hold the left mouse button at the current cursor position",
			InputSchema: noArgSchema(),
			Handler:     s.handleMouseButtonDown,
		},
		"mouse_button_up": {
			Name:        "mouse_button_up",
			Description: "Release the left mouse button at the current cursor position",
			InputSchema: noArgSchema(),
			Handler:     s.handleMouseButtonUp,
		},
		"wait": {
			Name:        "wait",
			Description: "Wait for the given number of seconds, then take a screenshot",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"duration": map[string]interface{}{
						"type":        "number",
						"description": "Seconds to wait (default 1)",
					},
				},
			},
			Handler: s.handleWait,
		},
		"computer": {
			Name:        "computer",
			Description: "Perform a raw desktop automation action using the full action grammar",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"action": map[string]interface{}{
						"type":        "string",
						"description": "Action to perform",
						"enum": []string{
							"key", "type", "mouse_move", "left_click",
							"left_click_drag", "right_click", "middle_click",
							"double_click", "triple_click", "screenshot",
							"cursor_position", "scroll", "left_mouse_down",
							"left_mouse_up", "hold_key", "wait",
						},
					},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text for key, type, and hold_key actions",
					},
					"coordinate": map[string]interface{}{
						"type":        "array",
						"description": "[x, y] pair for mouse_move, left_click_drag, and scroll",
					},
					"scroll_direction": map[string]interface{}{
						"type":        "string",
						"description": "Scroll direction",
						"enum":        []string{"up", "down", "left", "right"},
					},
					"scroll_amount": map[string]interface{}{
						"type":        "integer",
						"description": "Scroll amount in wheel clicks",
					},
					"duration": map[string]interface{}{
						"type":        "number",
						"description": "Seconds to wait for the wait action",
					},
				},
				"required": []string{"action"},
			},
			Handler: s.handleComputer,
		},
	}
}
