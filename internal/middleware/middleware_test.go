package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.counts[key]++
	return f.counts[key], window, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	router := gin.New()
	router.POST("/vote", NewRateLimiter(counter).Limit(VoteRateLimitConfig(2, time.Minute)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/vote", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if i == 2 {
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
			assert.JSONEq(t, `{"error":"Too many requests. Please try again later."}`, w.Body.String())
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Contains(t, counter.counts, "rl:vote:10.0.0.1:/vote")
}

func TestRateLimiter_FailOpen(t *testing.T) {
	counter := &fakeCounter{err: errors.New("redis down")}
	router := gin.New()
	router.POST("/vote", NewRateLimiter(counter).Limit(VoteRateLimitConfig(1, time.Minute)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/vote", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExtractIntParam(t *testing.T) {
	router := gin.New()
	router.GET("/question/:num", ExtractIntParam("num", "questionNumber"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"n": c.MustGet("questionNumber").(int)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/question/7", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"n":7}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/question/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid num"}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	generated := w.Header().Get(RequestIDHeader)
	require.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
