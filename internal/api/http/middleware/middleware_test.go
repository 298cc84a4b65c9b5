package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/auth"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/logging"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, hook := test.NewNullLogger()

	var seen string
	r := gin.New()
	r.Use(RequestIDMiddleware(log))
	r.GET("/ping", func(c *gin.Context) {
		seen = logging.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("keeps the caller's id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
		assert.Equal(t, "abc-123", seen)
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, "abc-123", hook.LastEntry().Data["request_id"])
		assert.Equal(t, 200, hook.LastEntry().Data["status"])
	})

	t.Run("generates one when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		rid := w.Header().Get(HeaderRequestID)
		assert.Len(t, rid, 36)
		assert.Equal(t, rid, seen)
	})
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	rl := NewRateLimiter(1, 2, log)

	r := gin.New()
	r.Use(auth.WalletHeader(), rl.Handler())
	r.POST("/write", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(wallet string) int {
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		if wallet != "" {
			req.Header.Set(auth.HeaderWalletAddress, wallet)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	const a = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	const b = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"

	assert.Equal(t, http.StatusNoContent, do(a))
	assert.Equal(t, http.StatusNoContent, do(a))
	assert.Equal(t, http.StatusTooManyRequests, do(a))

	// separate bucket per identity
	assert.Equal(t, http.StatusNoContent, do(b))
	assert.Equal(t, 2, len(rl.limiters))
}

func TestRateLimiter_ZeroBurstStillAdmits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	rl := NewRateLimiter(10, 0, log)

	r := gin.New()
	r.Use(rl.Handler())
	r.POST("/write", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/write", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	log, _ := test.NewNullLogger()
	rl := NewRateLimiter(10, 10, log)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.getLimiter("old")

	now = now.Add(time.Hour)
	rl.getLimiter("fresh")

	assert.Equal(t, 1, rl.Cleanup(10*time.Minute))
	assert.Equal(t, 1, len(rl.limiters))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
