package mood

import (
	"errors"
	"fmt"
)

// MeanBasis selects the denominator of the ensemble mean.
type MeanBasis string

const (
	// MeanOverModels divides by the total model count, missing labels count as 0.
	MeanOverModels MeanBasis = "models"
	// MeanOverReporters divides by the number of models that reported the label.
	MeanOverReporters MeanBasis = "reporting"
)

// BiasThresholds configures one crying-bias check. An override fires when any of
//
//	sad > Sad && happy < Happy
//	sad > StrongSad
//	fear > Fear && sad > FearSad && happy < FearHappy
//
// holds, and the result is forced to "sad" at Confidence.
type BiasThresholds struct {
	Sad        float64 `mapstructure:"sad" yaml:"sad"`
	Happy      float64 `mapstructure:"happy" yaml:"happy"`
	StrongSad  float64 `mapstructure:"strong_sad" yaml:"strong_sad"`
	Fear       float64 `mapstructure:"fear" yaml:"fear"`
	FearSad    float64 `mapstructure:"fear_sad" yaml:"fear_sad"`
	FearHappy  float64 `mapstructure:"fear_happy" yaml:"fear_happy"`
	Confidence float64 `mapstructure:"confidence" yaml:"confidence"`
}

func (t BiasThresholds) triggered(sad, fear, happy float64) bool {
	return (sad > t.Sad && happy < t.Happy) ||
		sad > t.StrongSad ||
		(fear > t.Fear && sad > t.FearSad && happy < t.FearHappy)
}

type Config struct {
	Single    BiasThresholds `mapstructure:"single" yaml:"single"`
	Ensemble  BiasThresholds `mapstructure:"ensemble" yaml:"ensemble"`
	MeanBasis MeanBasis      `mapstructure:"mean_basis" yaml:"mean_basis"`

	ConsensusFraction  float64 `mapstructure:"consensus_fraction" yaml:"consensus_fraction"`
	ConsensusBoost     float64 `mapstructure:"consensus_boost" yaml:"consensus_boost"`
	ConsensusCap       float64 `mapstructure:"consensus_cap" yaml:"consensus_cap"`
	NoConsensusPenalty float64 `mapstructure:"no_consensus_penalty" yaml:"no_consensus_penalty"`
	MaxConfidence      float64 `mapstructure:"max_confidence" yaml:"max_confidence"`

	Moods       map[string][]string `mapstructure:"moods" yaml:"moods"`
	DefaultMood string              `mapstructure:"default_mood" yaml:"default_mood"`
}

func DefaultConfig() Config {
	return Config{
		Single: BiasThresholds{
			Sad:        0.2,
			Happy:      0.1,
			StrongSad:  0.4,
			Fear:       0.15,
			FearSad:    0.1,
			FearHappy:  0.05,
			Confidence: 0.80,
		},
		Ensemble: BiasThresholds{
			Sad:        0.15,
			Happy:      0.1,
			StrongSad:  0.25,
			Fear:       0.1,
			FearSad:    0.1,
			FearHappy:  0.05,
			Confidence: 0.85,
		},
		MeanBasis:          MeanOverModels,
		ConsensusFraction:  0.5,
		ConsensusBoost:     1.1,
		ConsensusCap:       0.95,
		NoConsensusPenalty: 0.85,
		MaxConfidence:      0.99,
		Moods:              DefaultMoodTable(),
		DefaultMood:        string(Calm),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.MeanBasis != MeanOverModels && c.MeanBasis != MeanOverReporters {
		errs = append(errs, fmt.Errorf("mean_basis must be %q or %q, got %q", MeanOverModels, MeanOverReporters, c.MeanBasis))
	}
	if c.ConsensusFraction <= 0 || c.ConsensusFraction > 1 {
		errs = append(errs, fmt.Errorf("consensus_fraction must be in (0, 1], got %v", c.ConsensusFraction))
	}
	if c.MaxConfidence <= 0 || c.MaxConfidence > 1 {
		errs = append(errs, fmt.Errorf("max_confidence must be in (0, 1], got %v", c.MaxConfidence))
	}
	if c.ConsensusBoost < 0 || c.NoConsensusPenalty < 0 {
		errs = append(errs, errors.New("consensus_boost and no_consensus_penalty must not be negative"))
	}
	if len(c.Moods) == 0 {
		errs = append(errs, errors.New("moods table is empty"))
	}
	return errors.Join(errs...)
}
