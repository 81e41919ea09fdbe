package middleware_test

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmybike/marketplace-be/internal/handlers/middleware"
	"github.com/bookmybike/marketplace-be/internal/pkg/logger"
	"github.com/bookmybike/marketplace-be/test/helpers"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
}

func TestRequestID(t *testing.T) {
	var seenInContext string
	wrapped := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenInContext, _ = r.Context().Value(logger.ContextKeyRequestID).(string)
	}))

	t.Run("generates_id_when_absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/catalog", nil))

		id := w.Header().Get("X-Request-ID")
		require.NotEmpty(t, id)
		assert.Len(t, id, 36, "generated IDs are UUIDs")
		assert.Equal(t, id, seenInContext)
	})

	t.Run("honors_upstream_id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
		req.Header.Set("X-Request-ID", "lb-assigned-7f3a")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		assert.Equal(t, "lb-assigned-7f3a", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "lb-assigned-7f3a", seenInContext)
	})
}

func TestLogger(t *testing.T) {
	l := logger.NewLogger(&logger.LogConfig{Level: "error", Format: "json", Output: "stdout"})
	wrapped := middleware.Logger(l)(okHandler("catalog page"))

	req := httptest.NewRequest("GET", "/api/v1/catalog?brand=HONDA", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "catalog page", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestLogger_SessionID(t *testing.T) {
	l := logger.NewLogger(&logger.LogConfig{Level: "error", Format: "json", Output: "stdout"})

	var got string
	wrapped := middleware.Logger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(logger.ContextKeySessionID).(string)
	}))

	t.Run("from_header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/preferences", nil)
		req.Header.Set("X-Session-ID", "sess-abc123")
		wrapped.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "sess-abc123", got)
	})

	t.Run("from_cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/preferences", nil)
		req.AddCookie(&http.Cookie{Name: "bmb_session", Value: "sess-cookie456"})
		wrapped.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "sess-cookie456", got)
	})

	t.Run("absent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
		wrapped.ServeHTTP(httptest.NewRecorder(), req)
		assert.Empty(t, got)
	})
}

func TestRecovery(t *testing.T) {
	l := helpers.TestLogger()

	t.Run("panic_becomes_500", func(t *testing.T) {
		wrapped := middleware.Recovery(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("stock repository gone")
		}))

		req := httptest.NewRequest("POST", "/api/v1/stock/transition", nil)
		req = req.WithContext(context.WithValue(req.Context(), logger.ContextKeyRequestID, "req-9"))
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Internal Server Error")
		assert.Contains(t, w.Body.String(), "req-9")
	})

	t.Run("normal_response_untouched", func(t *testing.T) {
		wrapped := middleware.Recovery(l)(okHandler("all good"))
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "all good", w.Body.String())
	})
}

func TestRateLimit(t *testing.T) {
	wrapped := middleware.RateLimit(2, time.Second)(okHandler("ok"))

	hit := func(addr string) int {
		req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("127.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, hit("127.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, hit("127.0.0.1:1234"),
		"third request within the window exceeds the bucket")

	assert.Equal(t, http.StatusOK, hit("10.0.0.7:5678"),
		"buckets are per client address")
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		method      string
		wantStatus  int
		wantOrigin  string
		isPreflight bool
	}{
		{
			name:       "wildcard_echoes_origin",
			allowed:    []string{"*"},
			origin:     "https://bookmy.bike",
			method:     "GET",
			wantStatus: http.StatusOK,
			wantOrigin: "https://bookmy.bike",
		},
		{
			name:       "listed_origin_allowed",
			allowed:    []string{"https://bookmy.bike", "https://admin.bookmy.bike"},
			origin:     "https://admin.bookmy.bike",
			method:     "GET",
			wantStatus: http.StatusOK,
			wantOrigin: "https://admin.bookmy.bike",
		},
		{
			name:        "preflight_short_circuits",
			allowed:     []string{"*"},
			origin:      "https://bookmy.bike",
			method:      "OPTIONS",
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "https://bookmy.bike",
			isPreflight: true,
		},
		{
			name:       "unlisted_origin_gets_no_header",
			allowed:    []string{"https://bookmy.bike"},
			origin:     "https://evil.example",
			method:     "GET",
			wantStatus: http.StatusOK,
			wantOrigin: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := middleware.CORS(tt.allowed)(okHandler("ok"))

			req := httptest.NewRequest(tt.method, "/api/v1/catalog", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.isPreflight {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Session-ID")
			}
		})
	}
}

func TestSecureHeaders(t *testing.T) {
	wrapped := middleware.SecureHeaders(okHandler("ok"))
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/catalog", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "HSTS only applies over TLS")
}

func TestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			w.Write([]byte("too late"))
		}
	})

	wrapped := middleware.Timeout(50 * time.Millisecond)(slow)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/export", nil))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestCompression(t *testing.T) {
	payload := `{"items":[{"make":"HONDA","model":"Activa 6G"}]}`
	wrapped := middleware.Compression(okHandler(payload))

	t.Run("gzips_when_accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/catalog", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

		gz, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(gz)
		require.NoError(t, err)
		assert.Equal(t, payload, string(body))
	})

	t.Run("passes_through_without_accept_encoding", func(t *testing.T) {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/catalog", nil))

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, payload, w.Body.String())
	})
}
