// Copyright 2025 Tomas Cupr
//
// MCP stdio transport integration tests - validates JSON-RPC communication
// over stdin/stdout with the mac-computer-use binary.

package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestStdioTransport_Initialize(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stdin, stdout, _, cleanup := startStdioServer(t, ctx)
	defer cleanup()

	resp, err := sendStdioRequest(ctx, stdin, stdout, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]interface{}{},
			"clientInfo": map[string]interface{}{
				"name":    "test-client",
				"version": "1.0.0",
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to send initialize request: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("Initialize returned error: %s", resp.Error.Message)
	}

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse initialize result: %v", err)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocolVersion = %q, want %q", result.ProtocolVersion, "2024-11-05")
	}
	if result.ServerInfo.Name != "mac-computer-use" {
		t.Errorf("serverInfo.name = %q, want %q", result.ServerInfo.Name, "mac-computer-use")
	}
}

func TestStdioTransport_ToolsList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stdin, stdout, _, cleanup := startStdioServer(t, ctx)
	defer cleanup()

	initializeSession(t, ctx, stdin, stdout)

	resp, err := sendStdioRequest(ctx, stdin, stdout, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	if err != nil {
		t.Fatalf("Failed to list tools: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("tools/list returned error: %s", resp.Error.Message)
	}

	var result struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse tools/list result: %v", err)
	}

	names := make(map[string]bool, len(result.Tools))
	for _, tool := range result.Tools {
		names[tool.Name] = true
		if tool.Description == "" {
			t.Errorf("Tool %q has empty description", tool.Name)
		}
	}
	for _, want := range []string{"screenshot", "click_at", "type_text", "press_key", "scroll", "computer"} {
		if !names[want] {
			t.Errorf("tools/list missing %q", want)
		}
	}
}

func TestStdioTransport_TypeText(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stdin, stdout, argsLog, cleanup := startStdioServer(t, ctx)
	defer cleanup()

	initializeSession(t, ctx, stdin, stdout)

	result := callTool(t, ctx, stdin, stdout, "type_text", map[string]interface{}{
		"text": "hello world",
	})
	if result.IsError {
		t.Fatalf("type_text failed: %+v", result.Content)
	}
	if len(result.Content) == 0 || result.Content[0].Text != "Typed text: hello world" {
		t.Errorf("First content = %+v, want typed-text summary", result.Content)
	}

	log := readArgsLog(t, argsLog)
	if !strings.Contains(log, "t:hello world") {
		t.Errorf("cliclick log missing typed text, got:\n%s", log)
	}
}

func TestStdioTransport_ClickAt(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stdin, stdout, argsLog, cleanup := startStdioServer(t, ctx)
	defer cleanup()

	initializeSession(t, ctx, stdin, stdout)

	result := callTool(t, ctx, stdin, stdout, "click_at", map[string]interface{}{
		"x": 100,
		"y": 200,
	})
	if result.IsError {
		t.Fatalf("click_at failed: %+v", result.Content)
	}

	log := readArgsLog(t, argsLog)
	moveIdx := strings.Index(log, "m:100,200")
	clickIdx := strings.Index(log, "c:.")
	if moveIdx < 0 || clickIdx < 0 {
		t.Fatalf("cliclick log missing move/click, got:\n%s", log)
	}
	if clickIdx < moveIdx {
		t.Errorf("Click ran before move in log:\n%s", log)
	}
}

func TestStdioTransport_Screenshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stdin, stdout, _, cleanup := startStdioServer(t, ctx)
	defer cleanup()

	initializeSession(t, ctx, stdin, stdout)

	result := callTool(t, ctx, stdin, stdout, "screenshot", nil)
	if result.IsError {
		t.Fatalf("screenshot failed: %+v", result.Content)
	}
	if len(result.Content) != 1 {
		t.Fatalf("Content count = %d, want 1", len(result.Content))
	}
	if result.Content[0].Type != "image" {
		t.Errorf("Content type = %q, want %q", result.Content[0].Type, "image")
	}
	if !strings.HasPrefix(result.Content[0].Text, "data:image/png;base64,") {
		t.Errorf("Image content is not a PNG data URI: %.40q", result.Content[0].Text)
	}
}

func TestStdioTransport_CursorPosition(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stdin, stdout, _, cleanup := startStdioServer(t, ctx)
	defer cleanup()

	initializeSession(t, ctx, stdin, stdout)

	result := callTool(t, ctx, stdin, stdout, "cursor_position", nil)
	if result.IsError {
		t.Fatalf("cursor_position failed: %+v", result.Content)
	}
	if len(result.Content) == 0 || result.Content[0].Text != "X=683,Y=384" {
		t.Errorf("Content = %+v, want X=683,Y=384", result.Content)
	}
}

func TestStdioTransport_UnknownTool(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stdin, stdout, _, cleanup := startStdioServer(t, ctx)
	defer cleanup()

	initializeSession(t, ctx, stdin, stdout)

	resp, err := sendStdioRequest(ctx, stdin, stdout, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "launch_missiles",
			"arguments": map[string]interface{}{},
		},
	})
	if err != nil {
		t.Fatalf("Failed to call unknown tool: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool, got success")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("Error code = %d, want -32601", resp.Error.Code)
	}
}

func TestStdioTransport_InvalidArguments(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stdin, stdout, argsLog, cleanup := startStdioServer(t, ctx)
	defer cleanup()

	initializeSession(t, ctx, stdin, stdout)

	resp, err := sendStdioRequest(ctx, stdin, stdout, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      8,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      "type_text",
			"arguments": map[string]interface{}{},
		},
	})
	if err != nil {
		t.Fatalf("Failed to call tool: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("Expected validation error, got success")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code = %d, want -32602", resp.Error.Code)
	}
	if log := readArgsLog(t, argsLog); log != "" {
		t.Errorf("cliclick ran despite validation failure:\n%s", log)
	}
}

// --- Helpers ---

type stdioResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data,omitempty"`
	} `json:"error,omitempty"`
}

type toolCallResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// startStdioServer starts the binary in stdio mode wired to fake tools.
// Returns the stdin writer, stdout reader, cliclick args log path and a
// cleanup function.
func startStdioServer(t *testing.T, ctx context.Context) (io.WriteCloser, *bufio.Reader, string, func()) {
	t.Helper()

	toolDir, argsLog := fakeTools(t)

	cmd := exec.CommandContext(ctx, serverBinary(t))
	cmd.Env = serverEnv(toolDir, "stdio")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatalf("Failed to create stdin pipe: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatalf("Failed to create stdout pipe: %v", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		t.Fatalf("Failed to create stderr pipe: %v", err)
	}

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	var stderrMu sync.Mutex
	var stderrBuf strings.Builder
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			stderrMu.Lock()
			stderrBuf.WriteString(scanner.Text())
			stderrBuf.WriteString("\n")
			stderrMu.Unlock()
		}
	}()

	cleanup := func() {
		stdin.Close()

		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		select {
		case err := <-done:
			if err != nil {
				stderrMu.Lock()
				stderr := stderrBuf.String()
				stderrMu.Unlock()
				if stderr != "" {
					t.Logf("Server stderr:\n%s", stderr)
				}
				t.Logf("Server exited: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Log("Server did not exit, killing...")
			cmd.Process.Kill()
			<-done
		}
	}

	return stdin, bufio.NewReader(stdout), argsLog, cleanup
}

// initializeSession performs the initialize handshake and sends the
// initialized notification.
func initializeSession(t *testing.T, ctx context.Context, stdin io.Writer, stdout *bufio.Reader) {
	t.Helper()

	resp, err := sendStdioRequest(ctx, stdin, stdout, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]interface{}{},
			"clientInfo":      map[string]interface{}{"name": "test-client", "version": "1.0.0"},
		},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("Initialize returned error: %s", resp.Error.Message)
	}

	if err := writeStdioMessage(stdin, map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "notifications/initialized",
	}); err != nil {
		t.Fatalf("Failed to send initialized notification: %v", err)
	}
}

// callTool invokes a tool and decodes the tool result, failing the test on
// any JSON-RPC level error.
func callTool(t *testing.T, ctx context.Context, stdin io.Writer, stdout *bufio.Reader, name string, args map[string]interface{}) *toolCallResult {
	t.Helper()

	if args == nil {
		args = map[string]interface{}{}
	}
	resp, err := sendStdioRequest(ctx, stdin, stdout, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      100,
		"method":  "tools/call",
		"params":  map[string]interface{}{"name": name, "arguments": args},
	})
	if err != nil {
		t.Fatalf("Failed to call %s: %v", name, err)
	}
	if resp.Error != nil {
		t.Fatalf("%s returned JSON-RPC error: %s", name, resp.Error.Message)
	}

	var result toolCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse %s result: %v", name, err)
	}
	return &result
}

// readArgsLog returns the fake cliclick invocation log, or "" when cliclick
// never ran.
func readArgsLog(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("Failed to read args log: %v", err)
	}
	return string(data)
}

func writeStdioMessage(stdin io.Writer, msg map[string]interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func readStdioResponse(ctx context.Context, reader *bufio.Reader) (*stdioResponse, error) {
	type readResult struct {
		line string
		err  error
	}

	resultCh := make(chan readResult, 1)
	go func() {
		line, err := reader.ReadString('\n')
		resultCh <- readResult{line, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultCh:
		if result.err != nil {
			return nil, fmt.Errorf("failed to read response: %w", result.err)
		}

		line := strings.TrimSpace(result.line)
		if line == "" {
			return nil, fmt.Errorf("empty response received")
		}

		var resp stdioResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w (line: %s)", err, line)
		}
		return &resp, nil
	}
}

func sendStdioRequest(ctx context.Context, stdin io.Writer, stdout *bufio.Reader, req map[string]interface{}) (*stdioResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := writeStdioMessage(stdin, req); err != nil {
		return nil, err
	}
	return readStdioResponse(reqCtx, stdout)
}
