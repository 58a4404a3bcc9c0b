package daemon

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{name: "no token configured", token: "", header: "", want: http.StatusNoContent},
		{name: "missing header", token: "abc", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", token: "abc", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "wrong token", token: "abc", header: "Bearer abd", want: http.StatusUnauthorized},
		{name: "valid token", token: "abc", header: "Bearer abc", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			authMiddleware(tt.token, ok)(w, req)
			if w.Code != tt.want {
				t.Fatalf("code = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
