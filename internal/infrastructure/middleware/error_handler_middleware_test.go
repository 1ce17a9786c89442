package middleware

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloudslam/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func errorRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	router := gin.New()
	router.Use(RecoveryMiddleware(log), ErrorHandlerMiddleware(log))
	router.GET("/", handler)
	return router
}

func serve(t *testing.T, router http.Handler) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestErrorHandlerMiddleware_AppError(t *testing.T) {
	router := errorRouter(func(c *gin.Context) {
		c.Error(errors.NewNotFoundError("map").WithContext("file", "map.json"))
	})

	code, body := serve(t, router)

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(errors.ErrCodeNotFound), body["error"])
	assert.Equal(t, "map not found", body["message"])
	assert.Equal(t, map[string]any{"file": "map.json"}, body["details"])
}

func TestErrorHandlerMiddleware_AppErrorWithoutStatus(t *testing.T) {
	router := errorRouter(func(c *gin.Context) {
		c.Error(errors.NewParseError(stderrors.New("bad json"), "invalid POI file"))
	})

	code, body := serve(t, router)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, string(errors.ErrCodeParse), body["error"])
}

func TestErrorHandlerMiddleware_PlainError(t *testing.T) {
	router := errorRouter(func(c *gin.Context) {
		c.Error(stderrors.New("disk on fire"))
	})

	code, body := serve(t, router)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, string(errors.ErrCodeInternal), body["error"])
}

func TestRecoveryMiddleware(t *testing.T) {
	router := errorRouter(func(c *gin.Context) {
		panic("boom")
	})

	code, body := serve(t, router)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body["message"])
}
