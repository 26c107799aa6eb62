package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
)

const (
	reqBodyLimit  = 8 * 1024
	respBodyLimit = 8 * 1024
)

var redactedKeys = map[string]bool{
	"password":      true,
	"authorization": true,
	"token":         true,
	"secret":        true,
	"phone":         true,
	"email":         true,
	"firstname":     true,
	"lastname":      true,
	"address":       true,
}

// cappedBuffer keeps the first limit bytes written to it.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(b []byte) (int, error) {
	if remain := c.limit - c.buf.Len(); remain > 0 {
		if len(b) > remain {
			c.buf.Write(b[:remain])
		} else {
			c.buf.Write(b)
		}
	}
	return len(b), nil
}

func redactJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var m any
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw
	}
	var scrub func(any) any
	scrub = func(x any) any {
		switch v := x.(type) {
		case map[string]any:
			for k, val := range v {
				if redactedKeys[strings.ToLower(k)] {
					v[k] = "***redacted***"
					continue
				}
				v[k] = scrub(val)
			}
			return v
		case []any:
			for i := range v {
				v[i] = scrub(v[i])
			}
			return v
		}
		return x
	}
	b, err := json.Marshal(scrub(m))
	if err != nil {
		return raw
	}
	return b
}

// Logging logs each request with redacted JSON bodies and injects a request-scoped logger.
func Logging(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set("X-Request-Id", reqID)
			}

			l := base.With("req_id", reqID, "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			r = r.WithContext(logging.WithCtx(r.Context(), l))

			var reqBody string
			if strings.Contains(r.Header.Get("Content-Type"), "application/json") && r.Body != nil {
				raw, _ := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
				_ = r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(raw))
				shown := raw
				if len(shown) > reqBodyLimit {
					shown = shown[:reqBodyLimit]
				}
				reqBody = string(redactJSON(shown))
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			respBuf := &cappedBuffer{limit: respBodyLimit}
			ww.Tee(respBuf)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"status", status,
				"dur_ms", time.Since(start).Milliseconds(),
				"resp_bytes", ww.BytesWritten(),
			}
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				attrs = append(attrs, "route", rc.RoutePattern())
			}
			if reqBody != "" {
				attrs = append(attrs, "req_body", reqBody)
			}
			if strings.Contains(ww.Header().Get("Content-Type"), "application/json") && respBuf.buf.Len() > 0 {
				attrs = append(attrs, "resp_body", string(redactJSON(respBuf.buf.Bytes())))
			}

			if status >= http.StatusBadRequest {
				l.Error("http_request", attrs...)
				return
			}
			l.Info("http_request", attrs...)
		})
	}
}
