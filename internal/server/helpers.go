// Copyright 2025 Tomas Cupr
//
// Helper functions for tool handlers

package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/tomascupr/mac-computer-use/internal/computer"
	"github.com/tomascupr/mac-computer-use/internal/transport"
)

// maxDisplayTextLen is the maximum length for text shown in result summaries.
// Longer text is truncated with "..." suffix.
const maxDisplayTextLen = 50

// truncateText truncates text to maxDisplayTextLen runes with "..." suffix
// if needed, never splitting a multi-byte rune.
func truncateText(s string) string {
	runes := []rune(s)
	if len(runes) > maxDisplayTextLen {
		return string(runes[:maxDisplayTextLen]) + "..."
	}
	return s
}

// errorResult creates a ToolResult with IsError=true and the given message.
func errorResult(msg string) *ToolResult {
	return &ToolResult{
		IsError: true,
		Content: []Content{{Type: "text", Text: msg}},
	}
}

// errorResultf is the sprintf version of errorResult.
func errorResultf(format string, args ...any) *ToolResult {
	return errorResult(fmt.Sprintf(format, args...))
}

// textResult creates a ToolResult with a single text content.
func textResult(text string) *ToolResult {
	return &ToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}
}

// textResultf creates a ToolResult with a formatted text content.
func textResultf(format string, args ...any) *ToolResult {
	return textResult(fmt.Sprintf(format, args...))
}

// dispatch executes one automation request under the configured timeout
// and converts the outcome into a ToolResult.
func (s *MCPServer) dispatch(toolName string, req *computer.Request) (*ToolResult, error) {
	ctx, cancel := context.WithTimeout(s.ctx, time.Duration(s.cfg.RequestTimeout)*time.Second)
	defer cancel()

	res, err := s.computer.Execute(ctx, req)
	if err != nil {
		return statusErrorResult(err, toolName), nil
	}
	return resultContent(res), nil
}

// dispatchSequence executes requests in order, stopping at the first
// failure. The last successful result is returned.
func (s *MCPServer) dispatchSequence(toolName string, reqs ...*computer.Request) (*ToolResult, error) {
	ctx, cancel := context.WithTimeout(s.ctx, time.Duration(s.cfg.RequestTimeout)*time.Second)
	defer cancel()

	var res *computer.Result
	for _, req := range reqs {
		var err error
		res, err = s.computer.Execute(ctx, req)
		if err != nil {
			return statusErrorResult(err, toolName), nil
		}
		if res.Error != "" {
			break
		}
	}
	return resultContent(res), nil
}

// resultContent converts a dispatcher result into MCP tool content. A
// captured screenshot is included as a base64 PNG data URI, following the
// text summary.
func resultContent(res *computer.Result) *ToolResult {
	if res.Error != "" {
		return errorResultf("Error: %s", res.Error)
	}

	result := &ToolResult{}
	if res.Output != "" {
		result.Content = append(result.Content, Content{Type: "text", Text: res.Output})
	}
	if len(res.Image) > 0 {
		result.Content = append(result.Content, Content{
			Type: "image",
			Text: fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(res.Image)),
		})
	}
	if len(result.Content) == 0 {
		result.Content = []Content{{Type: "text", Text: "OK"}}
	}
	return result
}

// statusErrorText formats a gRPC status error with context for MCP tool
// responses, adding an actionable suggestion for common failure modes.
func statusErrorText(err error, toolName string) string {
	if err == nil {
		return ""
	}

	st, ok := grpcstatus.FromError(err)
	if !ok {
		return fmt.Sprintf("Error in %s: %s", toolName, err.Error())
	}

	code := st.Code()
	msg := st.Message()
	suggestion := ""

	switch code {
	case codes.InvalidArgument:
		suggestion = "Check the request parameters for invalid or missing values"
	case codes.Internal:
		suggestion = "The underlying automation command failed. Verify cliclick is installed and accessibility permissions are granted in System Settings > Privacy & Security"
	case codes.DeadlineExceeded:
		suggestion = "Operation timed out. Try increasing COMPUTER_USE_REQUEST_TIMEOUT or simplifying the request"
	case codes.Canceled:
		suggestion = "The request was cancelled before it completed"
	}

	result := fmt.Sprintf("Error in %s: %s - %s", toolName, code.String(), msg)
	if suggestion != "" {
		result += fmt.Sprintf("\nSuggestion: %s", suggestion)
	}
	return result
}

// statusErrorResult creates a ToolResult with IsError=true and a formatted
// status error message.
func statusErrorResult(err error, toolName string) *ToolResult {
	return errorResult(statusErrorText(err, toolName))
}

// validateToolInput validates JSON arguments against a tool's InputSchema.
// It checks:
//   - All required fields are present
//   - Field types match the schema (string, number, boolean, integer, array, object)
//   - Enum values are in the allowed set (if enum is specified)
//
// Returns a JSON-RPC error response with ErrCodeInvalidParams (-32602) if
// validation fails, nil if validation passes. Extra properties not defined
// in the schema are allowed.
func validateToolInput(toolName string, args map[string]any, tools map[string]*Tool) *transport.Message {
	tool, ok := tools[toolName]
	if !ok {
		// Unknown tool is reported separately by the caller.
		return nil
	}

	schema := tool.InputSchema
	if schema == nil {
		return nil
	}

	for _, field := range getRequiredFields(schema) {
		if _, exists := args[field]; !exists {
			return invalidParamsError(fmt.Sprintf("missing required field: %s", field))
		}
	}

	properties := getSchemaProperties(schema)
	if properties == nil {
		return nil
	}

	for fieldName, value := range args {
		propSchema, exists := properties[fieldName]
		if !exists {
			continue
		}

		if err := validateFieldValue(fieldName, value, propSchema); err != nil {
			return invalidParamsError(err.Error())
		}
	}

	return nil
}

// invalidParamsError creates a JSON-RPC error response with
// ErrCodeInvalidParams.
func invalidParamsError(message string) *transport.Message {
	return &transport.Message{
		JSONRPC: "2.0",
		Error: &transport.ErrorObj{
			Code:    transport.ErrCodeInvalidParams,
			Message: message,
		},
	}
}

// getRequiredFields extracts the "required" array from a JSON schema.
func getRequiredFields(schema map[string]any) []string {
	required, ok := schema["required"]
	if !ok {
		return nil
	}

	if requiredArr, ok := required.([]string); ok {
		return requiredArr
	}

	// Handle []interface{} from JSON unmarshaling.
	requiredIface, ok := required.([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(requiredIface))
	for _, v := range requiredIface {
		if s, ok := v.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// getSchemaProperties extracts the "properties" map from a JSON schema.
func getSchemaProperties(schema map[string]any) map[string]map[string]any {
	props, ok := schema["properties"]
	if !ok {
		return nil
	}

	propsMap, ok := props.(map[string]any)
	if !ok {
		return nil
	}

	result := make(map[string]map[string]any, len(propsMap))
	for k, v := range propsMap {
		if propSchema, ok := v.(map[string]any); ok {
			result[k] = propSchema
		}
	}
	return result
}

// validateFieldValue validates a single field value against its property
// schema.
func validateFieldValue(fieldName string, value any, propSchema map[string]any) error {
	if value == nil {
		return nil
	}

	schemaType, hasType := propSchema["type"].(string)
	if !hasType {
		return validateEnumValue(fieldName, value, propSchema)
	}

	if err := validateType(fieldName, value, schemaType); err != nil {
		return err
	}

	return validateEnumValue(fieldName, value, propSchema)
}

// validateType validates that a value matches the expected JSON Schema
// type: string, number, integer, boolean, array, object.
func validateType(fieldName string, value any, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field %q must be a string, got %T", fieldName, value)
		}
	case "number":
		if !isNumber(value) {
			return fmt.Errorf("field %q must be a number, got %T", fieldName, value)
		}
	case "integer":
		if !isInteger(value) {
			return fmt.Errorf("field %q must be an integer, got %T", fieldName, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field %q must be a boolean, got %T", fieldName, value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("field %q must be an array, got %T", fieldName, value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("field %q must be an object, got %T", fieldName, value)
		}
	default:
		// Unknown type, skip validation.
	}
	return nil
}

// isNumber returns true if the value is a valid JSON number.
func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// isInteger returns true if the value is a whole number. JSON unmarshaling
// to interface{} produces float64 for all numbers, so float64 values are
// accepted when they carry no fractional part.
func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == float64(int64(v))
	case float32:
		return v == float32(int32(v))
	default:
		return false
	}
}

// validateEnumValue validates that a value is in the allowed enum set.
func validateEnumValue(fieldName string, value any, propSchema map[string]any) error {
	enumValues, ok := propSchema["enum"]
	if !ok {
		return nil
	}

	// Enum defined as []string in registerTools.
	if enumStrings, ok := enumValues.([]string); ok {
		valueStr, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q must be a string for enum validation, got %T", fieldName, value)
		}
		if slices.Contains(enumStrings, valueStr) {
			return nil
		}
		return fmt.Errorf("field %q must be one of [%s], got %q", fieldName, strings.Join(enumStrings, ", "), valueStr)
	}

	// Enum as []interface{} from JSON unmarshaling.
	if enumIface, ok := enumValues.([]any); ok {
		for _, allowed := range enumIface {
			if value == allowed {
				return nil
			}
		}
		allowedStrs := make([]string, 0, len(enumIface))
		for _, v := range enumIface {
			allowedStrs = append(allowedStrs, fmt.Sprintf("%v", v))
		}
		return fmt.Errorf("field %q must be one of [%s], got %v", fieldName, strings.Join(allowedStrs, ", "), value)
	}

	return nil
}
