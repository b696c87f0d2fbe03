// Copyright 2025 Tomas Cupr
//
// HTTP/SSE transport bearer token authentication tests

package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authRequest(t *testing.T, tr *HTTPTransport, method, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	tr.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware_ValidBearerToken(t *testing.T) {
	const apiKey = "test-secret-key-12345"
	tr := NewHTTPTransport(&HTTPTransportConfig{Address: ":0", APIKey: apiKey}, nil)

	rec := authRequest(t, tr, http.MethodGet, "/metrics", "Bearer "+apiKey)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with valid token", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	const apiKey = "test-secret-key-12345"
	tr := NewHTTPTransport(&HTTPTransportConfig{Address: ":0", APIKey: apiKey}, nil)

	tests := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"wrong token", "Bearer wrong-key"},
		{"no scheme", apiKey},
		{"lowercase scheme", "bearer " + apiKey},
		{"uppercase scheme", "BEARER " + apiKey},
		{"basic scheme", "Basic " + apiKey},
		{"trailing garbage", "Bearer " + apiKey + " extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := authRequest(t, tr, http.MethodGet, "/metrics", tt.authorization)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Errorf("WWW-Authenticate = %q, want Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuthMiddleware_HealthExempt(t *testing.T) {
	tr := NewHTTPTransport(&HTTPTransportConfig{Address: ":0", APIKey: "secret"}, nil)

	rec := authRequest(t, tr, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200 without credentials", rec.Code)
	}
}

func TestAuthMiddleware_OptionsRequiresAuth(t *testing.T) {
	tr := NewHTTPTransport(&HTTPTransportConfig{Address: ":0", APIKey: "secret"}, nil)

	// CORS preflight on protected endpoints still needs credentials;
	// /health stays reachable either way.
	rec := authRequest(t, tr, http.MethodOptions, "/message", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("OPTIONS /message status = %d, want 401", rec.Code)
	}

	rec = authRequest(t, tr, http.MethodOptions, "/health", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS /health status = %d, want 204", rec.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	tr := NewHTTPTransport(&HTTPTransportConfig{Address: ":0"}, nil)

	for _, path := range []string{"/health", "/metrics"} {
		rec := authRequest(t, tr, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200 with auth disabled", path, rec.Code)
		}
	}
}

func TestIsTLSEnabled(t *testing.T) {
	tests := []struct {
		name string
		cert string
		key  string
		want bool
	}{
		{"both set", "/path/cert.pem", "/path/key.pem", true},
		{"only cert", "/path/cert.pem", "", false},
		{"only key", "", "/path/key.pem", false},
		{"neither", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewHTTPTransport(&HTTPTransportConfig{
				Address:     ":0",
				TLSCertFile: tt.cert,
				TLSKeyFile:  tt.key,
			}, nil)
			if got := tr.IsTLSEnabled(); got != tt.want {
				t.Errorf("IsTLSEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
