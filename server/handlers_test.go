package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibetunes/vibetunes-backend/config"
	"github.com/vibetunes/vibetunes-backend/logging"
	"github.com/vibetunes/vibetunes-backend/mood"
	"github.com/vibetunes/vibetunes-backend/orchestrator"
)

type mockDetector struct {
	configured bool
	det        *orchestrator.Detection
	err        error

	gotRequestID string
	gotImage     string
}

func (m *mockDetector) Detect(_ context.Context, requestID string, req orchestrator.DetectRequest) (*orchestrator.Detection, error) {
	m.gotRequestID = requestID
	m.gotImage = req.Image
	return m.det, m.err
}

func (m *mockDetector) Configured() bool { return m.configured }

func newTestServer(t *testing.T, d *mockDetector, mutate ...func(*config.Root)) (*Server, *clockwork.FakeClock) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Server.RateLimit = 0
	for _, m := range mutate {
		m(&cfg)
	}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC))
	return NewServer(&cfg, d, prometheus.NewRegistry(), clock, logging.Discard()), clock
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s, clock := newTestServer(t, &mockDetector{configured: true})
	clock.Advance(90 * time.Second)

	rec := do(s, http.MethodGet, "/api/test", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "VibeTunes API running", body["message"])
	assert.Equal(t, "connected", body["status"])
	assert.Equal(t, "2026-10-17T12:01:30.000Z", body["timestamp"])
	assert.Equal(t, 90.0, body["uptime"])
	assert.Equal(t, true, body["huggingFaceConfigured"])
	assert.Equal(t, Version, body["version"])
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, &mockDetector{})

	rec := do(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "VibeTunes Backend API", body["message"])
	assert.Contains(t, body, "documentation")
}

func TestDetectMood_Success(t *testing.T) {
	d := &mockDetector{configured: true, det: &orchestrator.Detection{
		Mood:             mood.Happy,
		Confidence:       0.77,
		RawEmotion:       "joy",
		AllEmotions:      mood.Distribution{{Label: "joy", Score: 0.7}},
		AIModelsUsed:     2,
		ProcessingMethod: orchestrator.ProcessingMethod,
	}}
	s, _ := newTestServer(t, d)

	rec := do(s, http.MethodPost, "/api/detectMood", `{"image":"aW1n"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Happy", body["mood"])
	assert.Equal(t, 0.77, body["confidence"])
	assert.Equal(t, "joy", body["rawEmotion"])
	assert.Equal(t, 2.0, body["aiModelsUsed"])
	assert.Equal(t, "Multi-Model AI Detection", body["processingMethod"])
	assert.Len(t, body["allEmotions"], 1)

	assert.Equal(t, "aW1n", d.gotImage)
	assert.NotEmpty(t, d.gotRequestID)
	assert.Equal(t, d.gotRequestID, rec.Header().Get(echo.HeaderXRequestID))
}

func TestDetectMood_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		wantError string
	}{
		{"no image", orchestrator.ErrNoImage, http.StatusBadRequest, "No image provided"},
		{"invalid image", orchestrator.ErrInvalidImage, http.StatusBadRequest, "Invalid image data"},
		{"no token", orchestrator.ErrNotConfigured, http.StatusInternalServerError, "Server configuration error"},
		{"models down", orchestrator.ErrAllModelsFailed, http.StatusServiceUnavailable, "AI service unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, &mockDetector{err: tt.err})

			rec := do(s, http.MethodPost, "/api/detectMood", `{"image":"x"}`)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.wantError, decode(t, rec)["error"])
		})
	}
}

func TestDetectMood_MalformedJSON(t *testing.T) {
	s, _ := newTestServer(t, &mockDetector{})

	rec := do(s, http.MethodPost, "/api/detectMood", `{"image":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode(t, rec)["error"])
}

func TestDetectMood_BodyLimit(t *testing.T) {
	s, _ := newTestServer(t, &mockDetector{}, func(c *config.Root) { c.Server.BodyLimit = "1K" })

	rec := do(s, http.MethodPost, "/api/detectMood", `{"image":"`+strings.Repeat("A", 4096)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Payload too large", decode(t, rec)["error"])
}

func TestDetectMood_RateLimited(t *testing.T) {
	d := &mockDetector{det: &orchestrator.Detection{Mood: mood.Calm}}
	s, _ := newTestServer(t, d, func(c *config.Root) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})

	first := do(s, http.MethodPost, "/api/detectMood", `{"image":"aW1n"}`)
	second := do(s, http.MethodPost, "/api/detectMood", `{"image":"aW1n"}`)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "Rate limit exceeded", decode(t, second)["error"])
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t, &mockDetector{})

	rec := do(s, http.MethodGet, "/api/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Not found", body["error"])
	assert.Equal(t, "Route /api/nope not found", body["message"])
	assert.Len(t, body["availableRoutes"], len(availableRoutes))
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &mockDetector{})

	req := httptest.NewRequest(http.MethodOptions, "/api/detectMood", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:8080")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &mockDetector{det: &orchestrator.Detection{Mood: mood.Calm}})
	do(s, http.MethodPost, "/api/detectMood", `{"image":"aW1n"}`)

	rec := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vibetunes_http_requests_total{code="200",method="POST",route="/api/detectMood"} 1`)
}

func TestMetricsEndpoint_RecordsErrorStatus(t *testing.T) {
	s, _ := newTestServer(t, &mockDetector{err: errors.New("boom")})
	require.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/nope", "").Code)
	require.Equal(t, http.StatusInternalServerError, do(s, http.MethodPost, "/api/detectMood", `{"image":"aW1n"}`).Code)

	body := do(s, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, body, `vibetunes_http_requests_total{code="404",method="GET",route="unmatched"} 1`)
	assert.Contains(t, body, `vibetunes_http_requests_total{code="500",method="POST",route="/api/detectMood"} 1`)
	assert.NotContains(t, body, `code="200",method="GET",route="unmatched"`)
}

func TestDetectMood_ResponseCarriesDetectionRequestID(t *testing.T) {
	const id = "0b6a3a4e-1c52-4f0e-8a7d-3b9e2f6c5d14"
	s, _ := newTestServer(t, &mockDetector{det: &orchestrator.Detection{RequestID: id, Mood: mood.Calm}})

	req := httptest.NewRequest(http.MethodPost, "/api/detectMood", strings.NewReader(`{"image":"aW1n"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "../../escaped")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, rec.Header().Get(echo.HeaderXRequestID))
}
