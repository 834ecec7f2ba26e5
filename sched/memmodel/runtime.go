// Package memmodel is a small in-memory ModelRuntime/State/Tokenizer
// implementation, used by the scheduling core's tests and the demo CLI
// in place of a real neural model. It has no notion of attention or
// weights: a slot's "logits" are a deterministic function of its state
// hash and the token just fed in, which is enough to exercise admission,
// batching, prefix reuse, and stop-string matching end to end.
package memmodel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/batchslot/scheduler/sched"
)

// VocabSize bounds the toy vocabulary; token ids are reduced mod this.
const VocabSize = 256

// Snapshot is memmodel's SerializedState: the full token history fed
// into a slot so far, which is all the "state" this toy model has.
type Snapshot struct {
	Tokens []sched.Token
}

// Clone returns an independent copy of the snapshot.
func (s *Snapshot) Clone() sched.SerializedState {
	cp := make([]sched.Token, len(s.Tokens))
	copy(cp, s.Tokens)
	return &Snapshot{Tokens: cp}
}

// Runtime is a deterministic stand-in ModelRuntime: each row's next
// logit distribution is a hash of its accumulated token history, so the
// same prefix always reproduces the same continuation, which is useful
// for tests that check prefix-cache reuse actually changes nothing
// observable.
type Runtime struct {
	maxBatch int
	// encodeLimit bounds how many rows are hashed concurrently per Run
	// call, the toy stand-in for a real model's batch-size limit on
	// whatever accelerator it runs on.
	encodeLimit *semaphore.Weighted
}

// NewRuntime returns a Runtime that can drive up to maxBatch rows per
// step and hashes at most concurrency rows in parallel.
func NewRuntime(maxBatch, concurrency int) *Runtime {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runtime{
		maxBatch:    maxBatch,
		encodeLimit: semaphore.NewWeighted(int64(concurrency)),
	}
}

// Info reports the runtime's fixed batch ceiling.
func (r *Runtime) Info() sched.ModelInfo {
	return sched.ModelInfo{MaxBatch: r.maxBatch, NumLayers: 1, VocabSize: VocabSize}
}

// FreshState returns an empty snapshot, used on a prefix-cache miss.
func (r *Runtime) FreshState() sched.SerializedState {
	return &Snapshot{}
}

// Run consumes exactly one token per non-empty input row per call (no
// internal chunking), producing that row's next-token logits from a
// hash of its state after ingesting the token. Every non-empty row
// therefore always makes progress in a single call.
func (r *Runtime) Run(ctx context.Context, inputs []*sched.ModelInput, state sched.State) ([]sched.ModelOutput, error) {
	st, ok := state.(*State)
	if !ok {
		return nil, fmt.Errorf("memmodel: state is not *memmodel.State")
	}

	outputs := make([]sched.ModelOutput, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for row := range inputs {
		row := row
		if len(inputs[row].Tokens) == 0 {
			continue
		}
		g.Go(func() error {
			if err := r.encodeLimit.Acquire(gctx, 1); err != nil {
				return err
			}
			defer r.encodeLimit.Release(1)

			tok := inputs[row].Tokens[0]
			inputs[row].Tokens = inputs[row].Tokens[1:]

			st.append(row, tok)
			outputs[row] = sched.ModelOutput{Kind: sched.OutputLast, Last: logitsFor(st.history(row))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// Softmax converts each row's logits to a probability distribution via
// a plain softmax; rows with no logits (OutputNone) pass through
// unchanged.
func (r *Runtime) Softmax(ctx context.Context, outputs []sched.ModelOutput) ([]sched.ModelOutput, error) {
	out := make([]sched.ModelOutput, len(outputs))
	for i, o := range outputs {
		logits, ok := o.LastFrame()
		if !ok {
			out[i] = o
			continue
		}
		out[i] = sched.ModelOutput{Kind: sched.OutputLast, Last: softmax(logits)}
	}
	return out, nil
}

func logitsFor(history []sched.Token) []float32 {
	h := fnv32(history)
	logits := make([]float32, VocabSize)
	for i := range logits {
		logits[i] = float32((h>>uint(i%24))&0xff) / 255.0
	}
	// The hash-derived token is always the strongest candidate, so a
	// greedy sampler reproduces a deterministic continuation.
	logits[int(h%VocabSize)] += 10
	return logits
}

func softmax(logits []float32) []float32 {
	var max float32 = logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	var sum float32
	out := make([]float32, len(logits))
	for i, v := range logits {
		e := expApprox(v - max)
		out[i] = e
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// expApprox avoids importing math just for this toy model's exp: a
// short series is plenty accurate for deterministic-sampling tests.
func expApprox(x float32) float32 {
	// exp(x) = 2^(x*log2(e)): a Taylor series for 2 raised to the
	// fractional part, then repeated doubling or halving for the integer part.
	const log2e = 1.4426950408889634
	y := float64(x) * log2e
	i := int(y)
	f := y - float64(i)
	r := 1.0
	term := 1.0
	for n := 1; n <= 12; n++ {
		term *= f * 0.6931471805599453 / float64(n)
		r += term
	}
	for ; i > 0; i-- {
		r *= 2
	}
	for ; i < 0; i++ {
		r /= 2
	}
	return float32(r)
}

func fnv32(toks []sched.Token) uint32 {
	var h uint32 = 2166136261
	for _, t := range toks {
		h ^= uint32(t)
		h *= 16777619
	}
	return h
}
