package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithHeaders(cfg SecurityConfig) http.Header {
	handler := securityHeaders(cfg)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/clips", nil)
	handler(inner).ServeHTTP(rec, req)
	return rec.Header()
}

func TestSecurityHeaders_LockDownAPIResponses(t *testing.T) {
	h := serveWithHeaders(SecurityConfig{BaseURL: "https://testimonies.example.org"})

	want := map[string]string{
		"Content-Security-Policy": apiCSP,
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
	}
	for header, value := range want {
		if got := h.Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}

func TestSecurityHeaders_HSTSOnHTTPS(t *testing.T) {
	h := serveWithHeaders(SecurityConfig{BaseURL: "https://testimonies.example.org"})
	if h.Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS header for HTTPS base URL")
	}
}

func TestSecurityHeaders_NoHSTSOnHTTP(t *testing.T) {
	h := serveWithHeaders(SecurityConfig{BaseURL: "http://localhost:8080"})
	if hsts := h.Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("expected no HSTS for HTTP base URL, got: %s", hsts)
	}
}
