package orchestrator

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/vibetunes/vibetunes-backend/clients"
	"github.com/vibetunes/vibetunes-backend/mood"
)

var dataURLPrefix = regexp.MustCompile(`^data:image/[a-zA-Z0-9.+-]+;base64,`)

// decodeImage strips an optional data URL prefix and decodes base64, padded
// or not.
func decodeImage(s string) ([]byte, error) {
	s = dataURLPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	return b, nil
}

func toDistribution(scores []clients.EmoScore) mood.Distribution {
	d := make(mood.Distribution, 0, len(scores))
	for _, s := range scores {
		d = append(d, mood.EmotionScore{Label: s.Label, Score: s.Score})
	}
	return d
}

// modelResult summarizes one model's scores by its top label. index is 1-based.
func modelResult(index int, scores []clients.EmoScore) (mood.ModelResult, bool) {
	top, ok := clients.Top(scores)
	if !ok {
		return mood.ModelResult{}, false
	}
	return mood.ModelResult{
		ModelIndex:   index,
		Emotion:      top.Label,
		Confidence:   top.Score,
		Distribution: toDistribution(scores),
	}, true
}
