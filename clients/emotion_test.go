package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibetunes/vibetunes-backend/logging"
)

func newTestHTTP(attempts int, failures uint32) *HTTP {
	return NewHTTP(Options{
		Token:           "hf_test",
		Timeout:         time.Second,
		RetryAttempts:   attempts,
		RetryBackoff:    time.Millisecond,
		BreakerFailures: failures,
		BreakerOpen:     time.Minute,
		Logger:          logging.Discard(),
	})
}

func TestClassify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{0xff, 0xd8}, body)

		_, _ = w.Write([]byte(`[{"label":"happy","score":0.9},{"label":"sad","score":0.05}]`))
	}))
	defer srv.Close()

	h := newTestHTTP(1, 5)
	scores, err := h.Classify(context.Background(), srv.URL, []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Equal(t, []EmoScore{{Label: "happy", Score: 0.9}, {Label: "sad", Score: 0.05}}, scores)
}

func TestClassify_BatchedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[{"label":"neutral","score":0.7}]]`))
	}))
	defer srv.Close()

	scores, err := newTestHTTP(1, 5).Classify(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, []EmoScore{{Label: "neutral", Score: 0.7}}, scores)
}

func TestClassify_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newTestHTTP(3, 5).Classify(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClassify_RetriesModelLoading(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20}`))
			return
		}
		_, _ = w.Write([]byte(`[{"label":"fear","score":0.6}]`))
	}))
	defer srv.Close()

	scores, err := newTestHTTP(3, 5).Classify(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "fear", scores[0].Label)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClassify_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad image", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestHTTP(3, 5).Classify(context.Background(), srv.URL, nil)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.False(t, se.Temporary())
	assert.Equal(t, int32(1), calls.Load())
}

func TestClassify_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestHTTP(3, 5).Classify(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClassify_BreakerOpensPerModel(t *testing.T) {
	var calls atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"happy","score":0.9}]`))
	}))
	defer good.Close()

	h := newTestHTTP(1, 2)
	for i := 0; i < 2; i++ {
		_, err := h.Classify(context.Background(), bad.URL, nil)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, h.BreakerState(bad.URL))

	_, err := h.Classify(context.Background(), bad.URL, nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())

	_, err = h.Classify(context.Background(), good.URL, nil)
	assert.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, h.BreakerState(good.URL))
}

func TestClassify_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	h := newTestHTTP(1, 1)
	for i := 0; i < 3; i++ {
		_, err := h.Classify(context.Background(), srv.URL, nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, gobreaker.StateClosed, h.BreakerState(srv.URL))
}

func TestClassify_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := NewHTTP(Options{Token: "x", RetryAttempts: 5, RetryBackoff: time.Hour, Logger: logging.Discard()})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := h.Classify(ctx, srv.URL, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTop(t *testing.T) {
	_, ok := Top(nil)
	assert.False(t, ok)

	top, ok := Top([]EmoScore{{"neutral", 0.4}, {"sad", 0.4}, {"happy", 0.2}})
	require.True(t, ok)
	assert.Equal(t, "sad", top.Label)

	top, _ = Top([]EmoScore{{"neutral", 0.1}, {"sad", 0.7}})
	assert.Equal(t, "sad", top.Label)
}

func TestConfigured(t *testing.T) {
	assert.True(t, newTestHTTP(1, 1).Configured())
	assert.False(t, NewHTTP(Options{}).Configured())
}
