package mood

import "math"

type Voter struct {
	mapper *Mapper
	bias   *BiasCorrector

	fraction float64
	boost    float64
	boostCap float64
	penalty  float64
}

func NewVoter(cfg Config, mapper *Mapper, bias *BiasCorrector) *Voter {
	return &Voter{
		mapper:   mapper,
		bias:     bias,
		fraction: cfg.ConsensusFraction,
		boost:    cfg.ConsensusBoost,
		boostCap: cfg.ConsensusCap,
		penalty:  cfg.NoConsensusPenalty,
	}
}

// Threshold is the minimum vote count a mood needs to count as consensus.
func (v *Voter) Threshold(n int) int {
	return max(1, int(math.Floor(float64(n)*v.fraction)))
}

// Vote picks a result for best among all. The ensemble bias check runs first
// and short-circuits voting when it fires.
func (v *Voter) Vote(best ModelResult, all []ModelResult) Result {
	if len(all) <= 1 {
		res, _ := v.bias.CorrectSingle(best)
		return res
	}
	if res, ok := v.bias.CorrectEnsemble(best, all); ok {
		return res
	}

	top, count := v.Tally(all).Leader()
	if count < v.Threshold(len(all)) {
		return Result{
			Emotion:      best.Emotion,
			Confidence:   best.Confidence * v.penalty,
			Distribution: best.Distribution,
			Decision:     DecisionNoConsensus,
		}
	}

	chosen := -1
	for i, r := range all {
		if v.mapper.Map(r.Emotion) != top {
			continue
		}
		if chosen < 0 || r.Confidence >= all[chosen].Confidence {
			chosen = i
		}
	}
	c := all[chosen]
	return Result{
		Emotion:      c.Emotion,
		Confidence:   math.Min(c.Confidence*v.boost, v.boostCap),
		Distribution: c.Distribution,
		Decision:     DecisionConsensus,
	}
}

// MoodCount is one tally bucket.
type MoodCount struct {
	Mood  Category `json:"mood" yaml:"mood"`
	Count int      `json:"count" yaml:"count"`
}

// Tally is ordered by first appearance.
type Tally []MoodCount

func (v *Voter) Tally(all []ModelResult) Tally {
	var t Tally
	idx := make(map[Category]int)
	for _, r := range all {
		c := v.mapper.Map(r.Emotion)
		i, ok := idx[c]
		if !ok {
			i = len(t)
			idx[c] = i
			t = append(t, MoodCount{Mood: c})
		}
		t[i].Count++
	}
	return t
}

// Leader returns the most frequent mood; ties go to the earliest bucket.
func (t Tally) Leader() (Category, int) {
	var best MoodCount
	for _, mc := range t {
		if mc.Count > best.Count {
			best = mc
		}
	}
	return best.Mood, best.Count
}
