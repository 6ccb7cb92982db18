package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestIDReusesWellFormedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFromContext(c)) })
	r.GET("/boom", func(c *gin.Context) { panic("host exploded") })

	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"client id", "cli-1234", true},
		{"missing", "", false},
		{"bad chars", "a b\nc", false},
		{"too long", strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/id", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			got := w.Header().Get("X-Request-Id")
			if got == "" || got != w.Body.String() {
				t.Fatalf("expected header and context to agree, got %q / %q", got, w.Body.String())
			}
			if (got == tt.header) != tt.reuse {
				t.Fatalf("reuse=%v, header %q -> %q", tt.reuse, tt.header, got)
			}
		})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `"internal"`) {
		t.Fatalf("expected 500 envelope, got %d %s", w.Code, w.Body.String())
	}
}
