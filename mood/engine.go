package mood

import "fmt"

// Engine is the single entry point for consensus decisions. It holds only
// read-only configuration and is safe for concurrent use.
type Engine struct {
	mapper *Mapper
	bias   *BiasCorrector
	voter  *Voter
	maxCon float64
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	mapper, err := NewMapper(cfg.Moods, cfg.DefaultMood)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	bias := NewBiasCorrector(cfg)
	return &Engine{
		mapper: mapper,
		bias:   bias,
		voter:  NewVoter(cfg, mapper, bias),
		maxCon: cfg.MaxConfidence,
	}, nil
}

// NewDefault builds an engine from DefaultConfig.
func NewDefault() *Engine {
	e, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return e
}

// Resolve combines best and all into one result with confidence clamped to
// [0, MaxConfidence]. best is normally the first entry of all; callers must
// supply at least one real model result.
func (e *Engine) Resolve(best ModelResult, all []ModelResult) Result {
	res := e.voter.Vote(best, all)
	res.Confidence = clamp(res.Confidence, 0, e.maxCon)
	return res
}

func (e *Engine) Map(label string) Category { return e.mapper.Map(label) }

func (e *Engine) Mapper() *Mapper { return e.mapper }

func (e *Engine) Voter() *Voter { return e.voter }

func (e *Engine) BiasCorrector() *BiasCorrector { return e.bias }

func clamp(v, lo, hi float64) float64 {
	// NaN fails every comparison below, so catch it first.
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
