package orchestrator

import (
	"errors"

	"github.com/vibetunes/vibetunes-backend/mood"
)

// ProcessingMethod marks responses backed by real model output.
const ProcessingMethod = "Multi-Model AI Detection"

var (
	ErrNoImage         = errors.New("no image provided")
	ErrInvalidImage    = errors.New("invalid image data")
	ErrNotConfigured   = errors.New("AI service not properly configured")
	ErrAllModelsFailed = errors.New("all emotion models failed")
)

type DetectRequest struct {
	Image string `json:"image"`
}

// Detection is the response body of a mood detection.
type Detection struct {
	RequestID        string            `json:"requestId,omitempty"`
	Mood             mood.Category     `json:"mood"`
	Confidence       float64           `json:"confidence"`
	RawEmotion       string            `json:"rawEmotion"`
	AllEmotions      mood.Distribution `json:"allEmotions"`
	AIModelsUsed     int               `json:"aiModelsUsed,omitempty"`
	ProcessingMethod string            `json:"processingMethod"`
	Decision         mood.Decision     `json:"decision,omitempty"`
}
