package clients

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type Options struct {
	Token   string
	Timeout time.Duration

	RetryAttempts int
	RetryBackoff  time.Duration

	// BreakerFailures consecutive failures open a model's breaker for BreakerOpen.
	BreakerFailures uint32
	BreakerOpen     time.Duration

	Logger logrus.FieldLogger
}

type HTTP struct {
	c     *http.Client
	token string
	retry retryPolicy
	log   logrus.FieldLogger

	breakerFailures uint32
	breakerOpen     time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewHTTP(o Options) *HTTP {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.RetryAttempts < 1 {
		o.RetryAttempts = 1
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerOpen <= 0 {
		o.BreakerOpen = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return &HTTP{
		c:               &http.Client{Timeout: o.Timeout},
		token:           o.Token,
		retry:           retryPolicy{attempts: o.RetryAttempts, backoff: o.RetryBackoff},
		log:             o.Logger,
		breakerFailures: o.BreakerFailures,
		breakerOpen:     o.BreakerOpen,
		breakers:        make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Configured reports whether an API token is set.
func (h *HTTP) Configured() bool { return h.token != "" }

func (h *HTTP) breaker(url string) *gobreaker.CircuitBreaker {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cb, ok := h.breakers[url]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    url,
		Timeout: h.breakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= h.breakerFailures
		},
		// a rejected request says nothing about the model's health
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && !se.Temporary())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			h.log.WithFields(logrus.Fields{"model": name, "from": from.String(), "to": to.String()}).
				Warn("Circuit breaker state changed")
		},
	})
	h.breakers[url] = cb
	return cb
}

// BreakerState returns the breaker state for url, closed when never used.
func (h *HTTP) BreakerState(url string) gobreaker.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cb, ok := h.breakers[url]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}
