package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRecoveryEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(recovery(zaptest.NewLogger(t), true))
	engine.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	engine.GET("/disconnect", func(c *gin.Context) {
		panic(&net.OpError{
			Op:  "write",
			Net: "tcp",
			Err: os.NewSyscallError("write", syscall.EPIPE),
		})
	})
	return engine
}

func TestRecoveryAnswers500(t *testing.T) {
	engine := newRecoveryEngine(t)
	recorder := httptest.NewRecorder()
	request, err := http.NewRequest(http.MethodGet, "/panic", nil)
	require.NoError(t, err)

	engine.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Internal server error")
}

func TestRecoverySkipsResponseOnClientDisconnect(t *testing.T) {
	engine := newRecoveryEngine(t)
	recorder := httptest.NewRecorder()
	request, err := http.NewRequest(http.MethodGet, "/disconnect", nil)
	require.NoError(t, err)

	engine.ServeHTTP(recorder, request)
	// no 500 is written: the connection is already gone
	assert.NotEqual(t, http.StatusInternalServerError, recorder.Code)
	assert.Empty(t, recorder.Body.String())
}

func TestIsClientDisconnect(t *testing.T) {
	assert.True(t, isClientDisconnect(&net.OpError{
		Op:  "write",
		Err: os.NewSyscallError("write", syscall.ECONNRESET),
	}))
	assert.False(t, isClientDisconnect("boom"))
	assert.False(t, isClientDisconnect(&net.OpError{Op: "write", Err: syscall.EPIPE}))
}
