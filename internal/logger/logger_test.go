package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func TestLoggerWritesJSONToFile(t *testing.T) {
	file := &bufferCloser{}
	l := New(nil, file, INFO)

	l.Info("order", "created ORD-20250101-0001")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "ORDER", entry.Category)
	assert.Equal(t, "created ORD-20250101-0001", entry.Message)
	assert.Equal(t, "logger_test.go", entry.File)
}

func TestLoggerRespectsMinLevel(t *testing.T) {
	file := &bufferCloser{}
	l := New(nil, file, WARN)

	l.Debug("x", "hidden")
	l.Info("x", "hidden")
	l.Warn("x", "shown")

	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}

func TestDiscardIsSilent(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() {
		l.Error("x", "nothing")
		l.Close()
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, INFO, ParseLevel("something"))
}

func TestMiddlewareLogsRoutePattern(t *testing.T) {
	file := &bufferCloser{}
	l := New(nil, file, INFO)

	r := chi.NewRouter()
	r.Use(Middleware(l))
	r.Get("/api/orders/{idOrNumber}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/ORD-1", nil))

	assert.Contains(t, file.String(), "GET /api/orders/{idOrNumber} - 418")
}

func TestCloseClosesFile(t *testing.T) {
	file := &bufferCloser{}
	l := New(nil, file, INFO)
	l.Close()
	assert.True(t, file.closed)
}
