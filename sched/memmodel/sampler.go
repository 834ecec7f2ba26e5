package memmodel

import "github.com/batchslot/scheduler/sched"

// GreedySampler always picks the highest-probability token and applies a
// fixed frequency/presence penalty with exponential decay — enough to
// exercise the scheduling core's penalty and stop-matching paths
// deterministically in tests.
type GreedySampler struct {
	Frequency float32
	Presence  float32
	Decay     float32
}

// NewGreedySampler returns a GreedySampler with the given penalty
// parameters.
func NewGreedySampler(frequency, presence, decay float32) *GreedySampler {
	return &GreedySampler{Frequency: frequency, Presence: presence, Decay: decay}
}

// Sample returns the index of the largest probability, breaking ties by
// lowest token id.
func (g *GreedySampler) Sample(probs []float32) sched.Token {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return sched.Token(best)
}

func (g *GreedySampler) PenaltyDecay() float32     { return g.Decay }
func (g *GreedySampler) FrequencyPenalty() float32 { return g.Frequency }
func (g *GreedySampler) PresencePenalty() float32  { return g.Presence }
