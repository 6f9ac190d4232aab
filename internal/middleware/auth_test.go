package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteAuthError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAuthError(rec)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Error("expected JSON content type")
	}
	if !strings.Contains(rec.Body.String(), `"code":"UNAUTHORIZED"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestExtractAPIKey(t *testing.T) {
	testCases := []struct {
		name         string
		authHeader   string
		apiKeyHeader string
		want         string
	}{
		{
			name:       "Bearer token",
			authHeader: "Bearer lk_live_abc123_secret",
			want:       "lk_live_abc123_secret",
		},
		{
			name:         "X-API-Key header",
			apiKeyHeader: "lk_live_abc123_secret",
			want:         "lk_live_abc123_secret",
		},
		{
			name:         "Bearer takes precedence",
			authHeader:   "Bearer bearer_key",
			apiKeyHeader: "apikey_header",
			want:         "bearer_key",
		},
		{
			name: "No key",
			want: "",
		},
		{
			name:       "Invalid Bearer format",
			authHeader: "Basic abc123",
			want:       "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			if tc.apiKeyHeader != "" {
				req.Header.Set("X-API-Key", tc.apiKeyHeader)
			}

			got := extractAPIKey(req)
			if got != tc.want {
				t.Errorf("extractAPIKey() = %q, want %q", got, tc.want)
			}
		})
	}
}
