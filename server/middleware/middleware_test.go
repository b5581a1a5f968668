package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)
	return rr
}

func TestRecovery_Panic(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.Recovery(logger.Nop()))
	engine.GET("/boom", func(*gin.Context) { panic("test panic") })

	rr := serve(engine, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body["message"] != "Internal server error" {
		t.Errorf("unexpected message: %s", body["message"])
	}
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(logger.FieldRequestID)) })

	rr := serve(engine, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	id := rr.Header().Get(middleware.RequestIDHeader)
	if id == "" || rr.Body.String() != id {
		t.Errorf("expected generated id echoed, got header %q body %q", id, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rr = serve(engine, req)
	if got := rr.Header().Get(middleware.RequestIDHeader); got != "req-123" {
		t.Errorf("expected existing id kept, got %q", got)
	}
}

func TestAuth(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.Auth(middleware.AuthConfig{
		TokenValidator: func(token string) (map[string]interface{}, error) {
			if token != "good" {
				return nil, errors.New("bad token")
			}
			return map[string]interface{}{"sub": "vben"}, nil
		},
		SkipPaths: []string{"/public"},
	}))
	engine.GET("/private", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("sub")) })
	engine.GET("/public/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "valid", path: "/private", header: "Bearer good", want: http.StatusOK},
		{name: "missing", path: "/private", want: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/private", header: "Basic good", want: http.StatusUnauthorized},
		{name: "invalid", path: "/private", header: "Bearer bad", want: http.StatusUnauthorized},
		{name: "skipped", path: "/public/ping", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if rr := serve(engine, req); rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger.Nop()))
	engine.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	if rr := serve(engine, httptest.NewRequest(http.MethodGet, "/missing", http.NoBody)); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
