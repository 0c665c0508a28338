package mood

import "strings"

type EmotionScore struct {
	Label string  `json:"label" yaml:"label"`
	Score float64 `json:"score" yaml:"score"`
}

// Distribution is one classifier's full score list for a single input.
type Distribution []EmotionScore

// Score returns the score of the first entry matching label, ignoring case.
// Missing labels score 0.
func (d Distribution) Score(label string) float64 {
	s, _ := d.lookup(label)
	return s
}

func (d Distribution) lookup(label string) (float64, bool) {
	for _, e := range d {
		if strings.EqualFold(e.Label, label) {
			return e.Score, true
		}
	}
	return 0, false
}

// ModelResult is one classifier's top emotion plus its full distribution.
type ModelResult struct {
	ModelIndex   int          `json:"model" yaml:"model"`
	Emotion      string       `json:"emotion" yaml:"emotion"`
	Confidence   float64      `json:"confidence" yaml:"confidence"`
	Distribution Distribution `json:"allEmotions" yaml:"allEmotions"`
}

// Decision names the path the engine took to produce a Result.
type Decision string

const (
	DecisionSingle           Decision = "single"
	DecisionSingleOverride   Decision = "single_override"
	DecisionEnsembleOverride Decision = "ensemble_override"
	DecisionConsensus        Decision = "consensus"
	DecisionNoConsensus      Decision = "no_consensus"
)

// Result is the consensus outcome before mood mapping.
type Result struct {
	Emotion      string       `json:"emotion" yaml:"emotion"`
	Confidence   float64      `json:"confidence" yaml:"confidence"`
	Distribution Distribution `json:"allEmotions" yaml:"allEmotions"`
	Decision     Decision     `json:"decision" yaml:"decision"`
}

func resultOf(r ModelResult, d Decision) Result {
	return Result{Emotion: r.Emotion, Confidence: r.Confidence, Distribution: r.Distribution, Decision: d}
}
