package health

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeProber struct {
	addr net.Addr
}

func (f *fakeProber) Addr() net.Addr { return f.addr }

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health/live", h.Liveness)
	router.GET("/health/ready", h.Readiness)
	return router
}

func TestLiveness(t *testing.T) {
	router := setupRouter(NewHandler(&fakeProber{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestReadiness_NotReadyBeforeBind(t *testing.T) {
	router := setupRouter(NewHandler(&fakeProber{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadiness_ReadyOnceBound(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7575}
	router := setupRouter(NewHandler(&fakeProber{addr: addr}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","addr":"127.0.0.1:7575"}`, w.Body.String())
}
