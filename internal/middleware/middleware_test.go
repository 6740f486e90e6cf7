package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "GET /api/shares", "GET /api/shares"},
		{"newline", "line1\nline2", "line1 line2"},
		{"carriage return", "a\rb", "a b"},
		{"null byte", "a\x00b", "ab"},
		{"ansi escape", "a\x1b[31mb", "a[31mb"},
		{"tab preserved", "a\tb", "a\tb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.input); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestShouldSkipLog(t *testing.T) {
	config := DefaultLoggingConfig()

	if !shouldSkipLog("/health", config) {
		t.Error("health checks should be skipped by default")
	}
	if !shouldSkipLog("/api/thumbnails/abc123.jpg", config) {
		t.Error("thumbnail fetches should be skipped by default")
	}
	if shouldSkipLog("/api/shares/media", config) {
		t.Error("API requests should be logged")
	}

	config.LogHealthChecks = true
	if shouldSkipLog("/health", config) {
		t.Error("health checks should be logged when enabled")
	}

	config.SkipPaths = []string{"/api/status"}
	if !shouldSkipLog("/api/status", config) {
		t.Error("configured skip paths should be honored")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.0.2.1:1234", nil, "192.0.2.1"},
		{"x-forwarded-for single", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "203.0.113.5"},
		{"x-forwarded-for chain", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, "203.0.113.5"},
		{"x-real-ip", "10.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseWriterCapture(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK) // second call must not override
	rw.Write([]byte("not found"))

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want 404", rw.statusCode)
	}
	if rw.bytesWritten != int64(len("not found")) {
		t.Errorf("bytesWritten = %d", rw.bytesWritten)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/status", "/api/status"},
		{"/api/instances", "/api/instances"},
		{"/api/instances/0199a2b4", "/api/instances/{id}"},
		{"/api/instances/0199a2b4/command", "/api/instances/{id}/command"},
		{"/api/thumbnails/deadbeef.jpg", "/api/thumbnails/{id}"},
		{"/api/shares/media", "/api/shares/{share}"},
		{"/api/shares/media/movies/classics", "/api/shares/{share}/{path}"},
		{"/health", "/health"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if rec.Body.String() != "short" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func compressionHandler(body []byte, contentType string) http.Handler {
	return Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}))
}

func TestCompressionLargeJSON(t *testing.T) {
	body := []byte(`{"data":"` + strings.Repeat("x", 4096) + `"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/shares/media", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	compressionHandler(body, "application/json").ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("large JSON response was not compressed")
	}
	zr, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	decoded, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(decoded, body) {
		t.Error("decompressed body does not match original")
	}
}

func TestCompressionSkipsSmallBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	compressionHandler([]byte(`{"ok":true}`), "application/json").ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("tiny response should not be compressed")
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCompressionSkipsImages(t *testing.T) {
	body := bytes.Repeat([]byte{0xff}, 4096)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/thumbnails/abc.jpg", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	compressionHandler(body, "image/jpeg").ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("JPEG response should not be compressed")
	}
}

func TestCompressionSkipsWithoutAcceptEncoding(t *testing.T) {
	body := []byte(strings.Repeat("x", 4096))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)

	compressionHandler(body, "application/json").ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("client without gzip support got a compressed response")
	}
}
