package mood

import "gonum.org/v1/gonum/stat"

const sadEmotion = "sad"

// Some facial classifiers score a mid-cry face as mostly "neutral" with a thin
// tail of sad/fear mass. BiasCorrector looks for that tail and forces "sad".
type BiasCorrector struct {
	single   BiasThresholds
	ensemble BiasThresholds
	basis    MeanBasis
}

func NewBiasCorrector(cfg Config) *BiasCorrector {
	return &BiasCorrector{single: cfg.Single, ensemble: cfg.Ensemble, basis: cfg.MeanBasis}
}

// CorrectSingle checks one model's distribution. When no override fires the
// result carries r unchanged and ok is false.
func (b *BiasCorrector) CorrectSingle(r ModelResult) (res Result, ok bool) {
	d := r.Distribution
	if !b.single.triggered(d.Score("sad"), d.Score("fear"), d.Score("happy")) {
		return resultOf(r, DecisionSingle), false
	}
	return Result{
		Emotion:      sadEmotion,
		Confidence:   b.single.Confidence,
		Distribution: r.Distribution,
		Decision:     DecisionSingleOverride,
	}, true
}

// EnsembleMeans holds per-emotion averages across an ensemble.
type EnsembleMeans struct {
	Sad     float64 `json:"sad" yaml:"sad"`
	Fear    float64 `json:"fear" yaml:"fear"`
	Neutral float64 `json:"neutral" yaml:"neutral"`
	Happy   float64 `json:"happy" yaml:"happy"`
}

// Means averages the emotions of interest over all. Callers must pass at
// least one result; the engine only gets here with two or more.
func (b *BiasCorrector) Means(all []ModelResult) EnsembleMeans {
	return EnsembleMeans{
		Sad:     b.mean(all, "sad"),
		Fear:    b.mean(all, "fear"),
		Neutral: b.mean(all, "neutral"),
		Happy:   b.mean(all, "happy"),
	}
}

func (b *BiasCorrector) mean(all []ModelResult, label string) float64 {
	xs := make([]float64, 0, len(all))
	for _, r := range all {
		s, reported := r.Distribution.lookup(label)
		if !reported && b.basis == MeanOverReporters {
			continue
		}
		xs = append(xs, s)
	}
	if b.basis == MeanOverReporters && len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// CorrectEnsemble checks the averaged evidence of all results. On override the
// best result's distribution is reported.
func (b *BiasCorrector) CorrectEnsemble(best ModelResult, all []ModelResult) (Result, bool) {
	m := b.Means(all)
	if !b.ensemble.triggered(m.Sad, m.Fear, m.Happy) {
		return Result{}, false
	}
	return Result{
		Emotion:      sadEmotion,
		Confidence:   b.ensemble.Confidence,
		Distribution: best.Distribution,
		Decision:     DecisionEnsembleOverride,
	}, true
}
