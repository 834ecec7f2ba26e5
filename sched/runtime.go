package sched

import (
	"context"
	"fmt"
)

// ModelInfo describes fixed properties of a loaded model.
type ModelInfo struct {
	MaxBatch  int
	NumLayers int
	// VocabSize is the number of distinct token ids the model's tokenizer
	// can decode, used once at construction to scan for penalty-free
	// tokens (§6 PENALTY_FREE_DELIMITERS).
	VocabSize int
}

// ModelInput is one slot's contribution to a batched model step. Tokens
// holds the tokens still to be consumed; Run mutates it in place to
// reflect what it actually ingested, so chunked prefill can be driven by
// repeated calls until progress is made.
type ModelInput struct {
	Tokens []Token
}

// ModelOutputKind discriminates ModelOutput's variants.
type ModelOutputKind int

const (
	// OutputNone means the slot made no progress requiring a sampled
	// token this step (e.g. still mid chunked-prefill).
	OutputNone ModelOutputKind = iota
	// OutputLast carries the logits for the last frame only.
	OutputLast
	// OutputFull carries logits for every frame computed this step; only
	// the last frame is ever sampled from.
	OutputFull
)

// ModelOutput is one slot's result from a model step or softmax call.
type ModelOutput struct {
	Kind  ModelOutputKind
	Last  []float32   // OutputLast
	Full  [][]float32 // OutputFull
}

// LastFrame returns the logits to post-process and sample from,
// collapsing OutputFull to its final frame.
func (o ModelOutput) LastFrame() ([]float32, bool) {
	switch o.Kind {
	case OutputLast:
		return o.Last, true
	case OutputFull:
		if len(o.Full) == 0 {
			return nil, false
		}
		return o.Full[len(o.Full)-1], true
	default:
		return nil, false
	}
}

// State is the model runtime's per-slot internal state, addressed by
// slot index. Save/load errors are treated as fatal programmer/hardware
// errors by the pipeline (§7), never recovered from transparently.
type State interface {
	MaxBatch() int
	// BackBatch serializes slot b's current state into a standalone,
	// cloneable snapshot suitable for the prefix cache.
	BackBatch(ctx context.Context, slot int) (SerializedState, error)
	// LoadBatch installs a previously-saved (or freshly built) snapshot
	// into slot b.
	LoadBatch(ctx context.Context, snap SerializedState, slot int) error
	// Embed reads the layer-`layer` embedding at frame 0 out of a
	// snapshot, used when a finishing request asked to embed.
	Embed(snap SerializedState, layer int) []float32
}

// ModelRuntime is the opaque neural-model capability the scheduling core
// drives: it maps batched token inputs to batched logits and knows how
// to build a fresh initial state. The core never looks inside it.
type ModelRuntime interface {
	Info() ModelInfo
	// FreshState builds an empty initial state snapshot, used on a
	// prefix-cache miss.
	FreshState() SerializedState
	// Run advances every slot's input by at least one token where
	// possible, in a single batched call, mutating each ModelInput to
	// reflect what was consumed. It must be called repeatedly (the core
	// does so) until at least one output is non-None, since the runtime
	// may internally chunk long prefills.
	Run(ctx context.Context, inputs []*ModelInput, state State) ([]ModelOutput, error)
	Softmax(ctx context.Context, outputs []ModelOutput) ([]ModelOutput, error)
}

// Tokenizer decodes sampled token ids back to their byte representation.
// Encoding prompts is a caller concern, not the core's.
type Tokenizer interface {
	Decode(tokens []Token) []byte
}

// singleTokenDecode decodes one token id in isolation, the unit of work
// needed to scan a vocabulary for penalty-free entries.
func singleTokenDecode(tok Tokenizer, id int) []byte {
	return tok.Decode([]Token{Token(id)})
}

// Sampler holds a request's sampling parameters and turns post-processed
// probabilities into a token id.
type Sampler interface {
	Sample(probs []float32) Token
	PenaltyDecay() float32
	FrequencyPenalty() float32
	PresencePenalty() float32
}

// ModelFamily names one of the model-family variants the scheduling core
// can be parameterized for. Three are recognized, mirroring the three
// concrete model-family instantiations the core was generalized from.
type ModelFamily string

const (
	FamilyDense     ModelFamily = "dense"
	FamilyRecurrent ModelFamily = "recurrent"
	FamilyMoE       ModelFamily = "moe"
)

var validModelFamilies = map[ModelFamily]bool{
	FamilyDense:     true,
	FamilyRecurrent: true,
	FamilyMoE:       true,
}

// IsValidModelFamily reports whether name is a recognized model family.
func IsValidModelFamily(name ModelFamily) bool { return validModelFamilies[name] }

// RuntimeFacade dispatches the scheduling core's four public operations
// (Info, Tokenizer, Queue, Process) for a chosen model family. In Go the
// dispatch is trivial — ModelRuntime/State are already interfaces, so no
// per-family monomorphization is needed — but the facade is kept as a
// distinct type so callers select a family by name, validated with a
// panic on an unknown name (see NewRuntimeFacade).
type RuntimeFacade struct {
	family ModelFamily
	core   *Runtime
}

// NewRuntimeFacade validates family and wraps a Runtime core for it.
// Panics on an unrecognized family.
func NewRuntimeFacade(family ModelFamily, tokenizer Tokenizer, model ModelRuntime, state State, maxRuntimeBatch, embedLayer int) *RuntimeFacade {
	if !IsValidModelFamily(family) {
		panic(fmt.Sprintf("unknown model family %q", family))
	}
	return &RuntimeFacade{
		family: family,
		core:   NewRuntime(tokenizer, model, state, maxRuntimeBatch, embedLayer),
	}
}

// Family returns the facade's model family.
func (f *RuntimeFacade) Family() ModelFamily { return f.family }

// Info forwards to the wrapped core.
func (f *RuntimeFacade) Info() ModelInfo { return f.core.Info() }

// Tokenizer forwards to the wrapped core.
func (f *RuntimeFacade) Tokenizer() Tokenizer { return f.core.Tokenizer() }

// Queue forwards to the wrapped core.
func (f *RuntimeFacade) Queue(ctx context.Context, gctx *GenerateContext) SlotResult {
	return f.core.Queue(ctx, gctx)
}

// Process forwards to the wrapped core.
func (f *RuntimeFacade) Process(ctx context.Context, setting *Setting) error {
	return f.core.Process(ctx, setting)
}
