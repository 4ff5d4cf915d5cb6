package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ytclab/ytcbot/internal/security"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{BearerToken: "secret-token", BasicUser: "admin", BasicPass: "pass123"}

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    int
	}{
		{name: "valid bearer", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-token") }, want: http.StatusOK},
		{name: "invalid bearer", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, want: http.StatusUnauthorized},
		{name: "valid basic", prepare: func(r *http.Request) { r.SetBasicAuth("admin", "pass123") }, want: http.StatusOK},
		{name: "invalid basic", prepare: func(r *http.Request) { r.SetBasicAuth("admin", "wrong") }, want: http.StatusUnauthorized},
		{name: "missing header", prepare: func(*http.Request) {}, want: http.StatusUnauthorized},
		{name: "token without scheme", prepare: func(r *http.Request) { r.Header.Set("Authorization", "secret-token") }, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := authMiddleware(cfg, nil, nil)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_RateLimited(t *testing.T) {
	t.Parallel()

	limiter := security.NewRateLimiter(security.RateLimitConfig{PerMinute: 2})
	h := authMiddleware(AuthConfig{BearerToken: "secret-token"}, limiter, nil)(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer wrong")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want third attempt limited", codes)
	}

	other := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	other.Header.Set("Authorization", "Bearer secret-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Errorf("other client: status = %d, want 200", rr.Code)
	}
}
