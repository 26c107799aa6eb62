package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), buf.String())
	return line
}

func TestLogging_RedactsCustomerContact(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		writeJSON(w, http.StatusCreated, map[string]any{
			"order": map[string]any{"customer": map[string]any{"email": "ana@example.com", "firstName": "Ana"}},
		})
	}))

	body := `{"customer":{"email":"ana@example.com","phone":"555-0100","firstName":"Ana","lastName":"Lee",` +
		`"address":{"street":"1 Main St","city":"Springfield"}},"location":"downtown"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, body, seen)
	out := buf.String()
	for _, pii := range []string{"ana@example.com", "555-0100", "Ana", "Lee", "Main St"} {
		assert.NotContains(t, out, pii)
	}
	assert.Contains(t, out, "downtown")
	assert.Equal(t, "INFO", logLine(t, &buf)["level"])
}

func TestLogging_ClientErrorsLogAtErrorLevel(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusBadRequest, "ERROR"},
		{http.StatusNotFound, "ERROR"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			h := Logging(slog.New(slog.NewJSONHandler(&buf, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil))

			line := logLine(t, &buf)
			assert.Equal(t, tt.level, line["level"])
			assert.EqualValues(t, tt.status, line["status"])
		})
	}
}
