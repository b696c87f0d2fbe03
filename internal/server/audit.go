// Copyright 2025 Tomas Cupr
//
// Audit logging for MCP tool invocations

package server

import (
	stdjson "encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditLogger records tool invocations as JSON lines: tool name, redacted
// arguments, result status, and duration.
type AuditLogger struct {
	logger  *zap.Logger
	file    *os.File
	enabled bool
	mu      sync.RWMutex
}

// redactedKeys lists argument keys whose values never reach the audit log.
var redactedKeys = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"credential":    true,
	"credentials":   true,
	"private_key":   true,
	"privatekey":    true,
	"access_token":  true,
	"refresh_token": true,
	"authorization": true,
	"auth":          true,
	"bearer":        true,
	"session_id":    true,
	"cookie":        true,
	"passphrase":    true,
}

// NewAuditLogger creates an audit logger appending to filePath. An empty
// path disables audit logging.
func NewAuditLogger(filePath string) (*AuditLogger, error) {
	if filePath == "" {
		return &AuditLogger{enabled: false}, nil
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(file),
		zapcore.InfoLevel,
	)

	return &AuditLogger{
		logger:  zap.New(core),
		file:    file,
		enabled: true,
	}, nil
}

// Close flushes and closes the audit log file. Safe to call multiple times.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// IsEnabled reports whether audit logging is active.
func (a *AuditLogger) IsEnabled() bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled && a.file != nil
}

// LogToolCall records a tool invocation. Sensitive argument values are
// redacted before they touch disk.
func (a *AuditLogger) LogToolCall(tool string, args stdjson.RawMessage, status string, duration time.Duration) {
	if !a.IsEnabled() {
		return
	}

	a.mu.RLock()
	logger := a.logger
	a.mu.RUnlock()

	if logger == nil {
		return
	}

	logger.Info("tool_invocation",
		zap.String("tool", tool),
		zap.String("arguments", redactArguments(args)),
		zap.String("status", status),
		zap.Float64("duration_seconds", duration.Seconds()),
	)
}

// redactArguments redacts sensitive values from JSON arguments.
func redactArguments(args stdjson.RawMessage) string {
	if len(args) == 0 {
		return "{}"
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "[unparseable]"
	}

	redactMapValues(parsed)

	redacted, err := json.Marshal(parsed)
	if err != nil {
		return "[error]"
	}
	return string(redacted)
}

// redactMapValues recursively redacts sensitive values in a map.
func redactMapValues(m map[string]interface{}) {
	for key, value := range m {
		lowerKey := strings.ToLower(key)

		if redactedKeys[lowerKey] {
			m[key] = "[REDACTED]"
			continue
		}

		redacted := false
		for redactKey := range redactedKeys {
			if strings.Contains(lowerKey, redactKey) {
				m[key] = "[REDACTED]"
				redacted = true
				break
			}
		}
		if redacted {
			continue
		}

		if nested, ok := value.(map[string]interface{}); ok {
			redactMapValues(nested)
		}
		if arr, ok := value.([]interface{}); ok {
			for _, item := range arr {
				if nestedMap, ok := item.(map[string]interface{}); ok {
					redactMapValues(nestedMap)
				}
			}
		}
	}
}
