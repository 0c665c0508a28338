package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibetunes/vibetunes-backend/orchestrator"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type errorBody struct {
	Error           string   `json:"error"`
	Message         string   `json:"message"`
	AvailableRoutes []string `json:"availableRoutes,omitempty"`
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "VibeTunes Backend API",
		"version": Version,
		"status":  "running",
		"endpoints": map[string]string{
			"health":        "/api/test",
			"moodDetection": "/api/detectMood",
			"metrics":       "/metrics",
		},
		"documentation": map[string]any{
			"detectMood": map[string]any{
				"method": http.MethodPost,
				"url":    "/api/detectMood",
				"body":   map[string]string{"image": "base64_encoded_image_string"},
				"response": map[string]any{
					"mood":        "Happy",
					"confidence":  0.94,
					"rawEmotion":  "joy",
					"allEmotions": []any{},
				},
			},
			"healthCheck": map[string]any{
				"method": http.MethodGet,
				"url":    "/api/test",
				"response": map[string]string{
					"message": "VibeTunes API running",
					"status":  "connected",
				},
			},
		},
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message":               "VibeTunes API running",
		"status":                "connected",
		"timestamp":             s.clock.Now().UTC().Format(isoMillis),
		"uptime":                s.clock.Since(s.startTime).Seconds(),
		"version":               Version,
		"huggingFaceConfigured": s.detector.Configured(),
		"aiMode":                "Enhanced Multi-Model AI Detection",
	})
}

func (s *Server) handleDetectMood(c echo.Context) error {
	var req orchestrator.DetectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   "Invalid request body",
			Message: "Request body must be JSON with an image field",
		})
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	det, err := s.detector.Detect(c.Request().Context(), requestID, req)
	switch {
	case err == nil:
		if det.RequestID != "" {
			c.Response().Header().Set(echo.HeaderXRequestID, det.RequestID)
		}
		return c.JSON(http.StatusOK, det)
	case errors.Is(err, orchestrator.ErrNoImage):
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   "No image provided",
			Message: "Please provide a base64 encoded image",
		})
	case errors.Is(err, orchestrator.ErrInvalidImage):
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   "Invalid image data",
			Message: "Please provide a valid base64 encoded image",
		})
	case errors.Is(err, orchestrator.ErrNotConfigured):
		s.log.Error("HF_TOKEN not found in environment variables")
		return c.JSON(http.StatusInternalServerError, errorBody{
			Error:   "Server configuration error",
			Message: "AI service not properly configured",
		})
	case errors.Is(err, orchestrator.ErrAllModelsFailed):
		return c.JSON(http.StatusServiceUnavailable, errorBody{
			Error:   "AI service unavailable",
			Message: "Unable to connect to AI service. Please try again later.",
		})
	default:
		return fmt.Errorf("detect mood: %w", err)
	}
}

// handleError renders every error as JSON in the same shape as the handlers.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := errorBody{Error: "Internal server error", Message: "Something went wrong on our end"}

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code != http.StatusInternalServerError {
		code = he.Code
		switch code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			code = http.StatusNotFound
			body = errorBody{
				Error:           "Not found",
				Message:         fmt.Sprintf("Route %s not found", c.Request().URL.Path),
				AvailableRoutes: availableRoutes,
			}
		case http.StatusRequestEntityTooLarge:
			body = errorBody{Error: "Payload too large", Message: "Images must be smaller than " + s.config.Server.BodyLimit}
		default:
			body = errorBody{Error: http.StatusText(code), Message: fmt.Sprint(he.Message)}
		}
	}
	if code >= http.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{"path": c.Request().URL.Path}).WithError(err).Error("Unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		s.log.WithError(err).Error("Failed to send error response")
	}
}
