package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ErrEmptyResponse is returned when a model answers 200 with no scores.
var ErrEmptyResponse = errors.New("emotion: empty response")

// --- Image classification (HuggingFace inference API) ---
type EmoScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify posts raw image bytes to modelURL and returns its label scores.
func (h *HTTP) Classify(ctx context.Context, modelURL string, image []byte) ([]EmoScore, error) {
	out, err := h.breaker(modelURL).Execute(func() (interface{}, error) {
		return h.retry.do(ctx, func(attempt int, err error) {
			h.log.WithFields(logrus.Fields{"model": modelURL, "attempt": attempt, "error": err}).Debug("Retrying model")
		}, func() ([]EmoScore, error) {
			return h.classifyOnce(ctx, modelURL, image)
		})
	})
	if err != nil {
		return nil, err
	}
	return out.([]EmoScore), nil
}

func (h *HTTP) classifyOnce(ctx context.Context, modelURL string, image []byte) ([]EmoScore, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, modelURL, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("emotion read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}
	return decodeScores(body)
}

// decodeScores accepts both a flat score list and the batched [[...]] form.
func decodeScores(body []byte) ([]EmoScore, error) {
	var flat []EmoScore
	if err := json.Unmarshal(body, &flat); err != nil {
		var batched [][]EmoScore
		if err2 := json.Unmarshal(body, &batched); err2 != nil {
			return nil, fmt.Errorf("emotion decode: %w", err)
		}
		if len(batched) > 0 {
			flat = batched[0]
		}
	}
	if len(flat) == 0 {
		return nil, ErrEmptyResponse
	}
	return flat, nil
}

// Top returns the highest scoring entry; the last one wins ties.
func Top(scores []EmoScore) (EmoScore, bool) {
	if len(scores) == 0 {
		return EmoScore{}, false
	}
	top := scores[0]
	for _, s := range scores[1:] {
		if s.Score >= top.Score {
			top = s
		}
	}
	return top, true
}
