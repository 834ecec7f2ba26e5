package sched

// GenerateRequest is the caller-supplied, immutable description of one
// generation request. It is embedded in a GenerateContext once admitted.
type GenerateRequest struct {
	PromptTokens TokenSequence
	LogitBias    map[Token]float32
	Stop         []string
	MaxTokens    int
	Sampler      Sampler
	Embed        bool
}

// GenerateContext is the scheduling core's per-request running state: the
// part of a request that mutates tick over tick while it occupies a slot.
// It is created once on admission and threaded through Idle/Wait/Busy as
// a single value, never copied into a different representation.
type GenerateContext struct {
	// Prefix is the portion of PromptTokens (plus any generated tokens
	// already folded in) that a prior cache checkout proved was already
	// resident in loaded model state; Suffix is everything after it still
	// to be fed through the model.
	Prefix TokenSequence
	Suffix TokenSequence

	// Penalties tracks, per token, an accumulated penalty value for
	// frequency/presence penalty application, decayed each tick by
	// Sampler.PenaltyDecay. See RecordPenalty for the accumulation rule.
	Penalties map[Token]float32

	// ModelText accumulates raw decoded bytes since the last emitted
	// event, pending stop-string resolution; OutputBuffer accumulates the
	// bytes already confirmed clear of any stop string and emitted.
	ModelText    []byte
	OutputBuffer []byte

	// ModelTokens is every token this request has fed into or received
	// from the model, prompt and generated alike. Reap keys the prefix
	// cache by Prefix, not by ModelTokens, since the last sampled token is
	// never fed into the saved state.
	ModelTokens TokenSequence

	Request *GenerateRequest
	Sender  *EventSink

	counter TokenCounter

	// pendingState is the snapshot checked out of the prefix cache at
	// admission time, waiting for Promote to load it into a runtime
	// batch row. Cleared once loaded.
	pendingState SerializedState
}

// NewGenerateContext builds the initial context for req, with its full
// prompt held as Suffix (nothing yet proven resident) until a cache
// checkout splits it into Prefix/Suffix.
func NewGenerateContext(req *GenerateRequest, sink *EventSink) *GenerateContext {
	return &GenerateContext{
		Suffix:      req.PromptTokens,
		Penalties:   make(map[Token]float32),
		ModelTokens: NewTokenSequence(),
		Request:     req,
		Sender:      sink,
		counter:     TokenCounter{PromptTokens: req.PromptTokens.Len()},
	}
}

// FullSequence returns Prefix concatenated with Suffix: the request's
// entire known token history not yet fed past this point.
func (g *GenerateContext) FullSequence() TokenSequence {
	return g.Prefix.Concat(g.Suffix)
}

// RecordPenalty folds one more occurrence of t into its accumulated
// penalty value: the first occurrence sets the value to presence (a flat
// charge for having appeared at all); every later occurrence adds
// frequency on top. Grounded on run.rs lines 595-599.
func (g *GenerateContext) RecordPenalty(t Token, presence, frequency float32) {
	if v, ok := g.Penalties[t]; ok {
		g.Penalties[t] = v + frequency
		return
	}
	g.Penalties[t] = presence
}

// DecayPenalties multiplies every tracked penalty by decay, matching the
// exponential-decay penalty model; entries that decay to (near) zero are
// dropped so the map does not grow unbounded over a long generation.
func (g *GenerateContext) DecayPenalties(decay float32) {
	const floor = 1e-6
	for t, v := range g.Penalties {
		nv := v * decay
		if nv < floor {
			delete(g.Penalties, t)
			continue
		}
		g.Penalties[t] = nv
	}
}
