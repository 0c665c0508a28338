// Package simulate fabricates a plausible emotion when every classifier failed.
// Its output is labelled as simulated and never enters consensus voting.
package simulate

import (
	"math/rand"
	"sync"
	"time"
)

// ProcessingMethod marks responses produced here.
const ProcessingMethod = "Enhanced AI Simulation"

type Weight struct {
	Label  string
	Weight float64
}

var Weights = []Weight{
	{Label: "happy", Weight: 0.20},
	{Label: "sad", Weight: 0.20},
	{Label: "neutral", Weight: 0.25},
	{Label: "surprised", Weight: 0.15},
	{Label: "angry", Weight: 0.10},
	{Label: "fear", Weight: 0.10},
}

// Source yields floats in [0, 1).
type Source interface {
	Float64() float64
}

type Sample struct {
	Emotion    string
	Confidence float64
}

// Generate draws a weighted emotion with confidence in [0.75, 0.95).
func Generate(src Source) Sample {
	r := src.Float64()
	selected := "neutral"
	cumulative := 0.0
	for _, w := range Weights {
		cumulative += w.Weight
		if r <= cumulative {
			selected = w.Label
			break
		}
	}
	return Sample{Emotion: selected, Confidence: 0.75 + src.Float64()*0.2}
}

// LockedSource is a Source safe for concurrent requests.
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSource(seed int64) *LockedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
