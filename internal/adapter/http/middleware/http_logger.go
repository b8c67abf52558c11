package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aq2208/storefront-api/internal/logging"
)

const (
	bodyLogLimit = 8 * 1024
	redacted     = "***redacted***"
	truncated    = "...truncated..."
)

// redactedFields are JSON keys whose values never reach the log, at any depth.
var redactedFields = map[string]bool{
	"user_id":         true,
	"idempotency_key": true,
}

// responseCapture tees up to limit bytes of the response body.
type responseCapture struct {
	gin.ResponseWriter
	buf   bytes.Buffer
	limit int
}

func (w *responseCapture) Write(b []byte) (int, error) {
	if room := w.limit - w.buf.Len(); room > 0 {
		w.buf.Write(b[:min(len(b), room)])
	}
	return w.ResponseWriter.Write(b)
}

// Logging injects a request-scoped slog.Logger and logs one line per request.
// Handlers always see the request body exactly as sent; only the logged copy is
// redacted and capped.
func Logging(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
			c.Request.Header.Set("X-Request-Id", reqID)
		}
		c.Header("X-Request-Id", reqID)

		l := base.With(
			"req_id", reqID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"remote", c.ClientIP(),
		)
		logging.With(c, l)
		c.Request = c.Request.WithContext(logging.WithCtx(c.Request.Context(), l))

		var attrs []any
		if isJSON(c.GetHeader("Content-Type")) && c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			_ = c.Request.Body.Close()
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			if err != nil {
				attrs = append(attrs, "req_body_err", err.Error())
			}
			if len(raw) > 0 {
				attrs = append(attrs, "req_body", logBody(raw, bodyLogLimit))
			}
		}
		if c.GetHeader("Idempotency-Key") != "" {
			attrs = append(attrs, "idempotency_key", redacted)
		}

		rc := &responseCapture{ResponseWriter: c.Writer, limit: bodyLogLimit}
		c.Writer = rc

		c.Next()

		status := c.Writer.Status()
		attrs = append(attrs, "status", status, "dur_ms", time.Since(start).Milliseconds(), "resp_bytes", c.Writer.Size())
		if isJSON(c.Writer.Header().Get("Content-Type")) && rc.buf.Len() > 0 {
			body := logBody(rc.buf.Bytes(), bodyLogLimit)
			if c.Writer.Size() > bodyLogLimit && !strings.HasSuffix(body, truncated) {
				body += truncated
			}
			attrs = append(attrs, "resp_body", body)
		}
		if len(c.Params) > 0 {
			attrs = append(attrs, "params", c.Params)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http_request", attrs...)
		case status >= http.StatusBadRequest:
			l.Warn("http_request", attrs...)
		default:
			l.Info("http_request", attrs...)
		}
	}
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}

// logBody renders raw for the log: redacted, then capped at limit bytes.
func logBody(raw []byte, limit int) string {
	b := redactJSON(raw)
	if len(b) > limit {
		return string(b[:limit]) + truncated
	}
	return string(b)
}

// redactJSON masks redactedFields. Numbers are decoded as json.Number so the
// logged copy keeps their exact digits. Input that is not JSON, or has nothing
// to mask, comes back untouched.
func redactJSON(raw []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	if !scrub(v) {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

func scrub(v any) (changed bool) {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			if redactedFields[strings.ToLower(k)] {
				x[k] = redacted
				changed = true
				continue
			}
			if scrub(val) {
				changed = true
			}
		}
	case []any:
		for _, val := range x {
			if scrub(val) {
				changed = true
			}
		}
	}
	return changed
}
