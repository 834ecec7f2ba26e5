package sched

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Runtime is the scheduling core: it owns a fixed slot table, the
// fixed-size runtime batch those slots get promoted into, and the
// prefix-state cache shared across both admission and the per-tick step
// pipeline. RuntimeFacade wraps exactly one Runtime per model family.
type Runtime struct {
	mu sync.Mutex

	tokenizer Tokenizer
	model     ModelRuntime
	state     State
	cache     *PrefixStateCache
	slots     *SlotTable
	exempt    *PenaltyFreeSet

	// batchSlot[r] is the SlotTable index currently promoted into runtime
	// batch row r, or -1 if row r is empty.
	batchSlot []int
	payloads  []Payload

	embedLayer int
}

// NewRuntime builds a Runtime with maxRuntimeBatch runtime batch rows
// and a SlotTable sized to match (one scheduling slot per batch row is
// the minimum useful configuration; NewRuntimeWithSlots allows more
// slots than batch rows so Wait can queue admitted requests).
func NewRuntime(tokenizer Tokenizer, model ModelRuntime, state State, maxRuntimeBatch, embedLayer int) *Runtime {
	return NewRuntimeWithSlots(tokenizer, model, state, maxRuntimeBatch, maxRuntimeBatch, embedLayer)
}

// NewRuntimeWithSlots is NewRuntime generalized to a slot count larger
// than the runtime batch, so more requests can be admitted (Wait) than
// can concurrently occupy a batch row (Busy).
func NewRuntimeWithSlots(tokenizer Tokenizer, model ModelRuntime, state State, numSlots, maxRuntimeBatch, embedLayer int) *Runtime {
	if maxRuntimeBatch > numSlots {
		numSlots = maxRuntimeBatch
	}
	batchSlot := make([]int, maxRuntimeBatch)
	for i := range batchSlot {
		batchSlot[i] = -1
	}
	return &Runtime{
		tokenizer:  tokenizer,
		model:      model,
		state:      state,
		cache:      NewPrefixStateCache(),
		slots:      NewSlotTable(numSlots, time.Now()),
		exempt:     BuildPenaltyFreeSet(tokenizer, model.Info().VocabSize),
		batchSlot:  batchSlot,
		payloads:   make([]Payload, maxRuntimeBatch),
		embedLayer: embedLayer,
	}
}

// AnyOccupied reports whether any slot is Wait or Busy, i.e. whether
// RunLoop needs to keep stepping without waiting for a new submission.
func (rt *Runtime) AnyOccupied() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for i := 0; i < rt.slots.Len(); i++ {
		if rt.slots.Get(i).Kind != SlotIdle {
			return true
		}
	}
	return false
}

// Info forwards to the wrapped ModelRuntime.
func (rt *Runtime) Info() ModelInfo { return rt.model.Info() }

// Tokenizer returns the configured Tokenizer.
func (rt *Runtime) Tokenizer() Tokenizer { return rt.tokenizer }

// Queue attempts to admit gctx's request into an Idle slot. It checks
// out the longest cached prefix state for the request's prompt minus its
// last token, splits the request into Prefix (proven resident) and Suffix
// (still to feed, always at least the last prompt token), and parks the
// context in SlotWait for the next Promote phase.
func (rt *Runtime) Queue(ctx context.Context, gctx *GenerateContext) SlotResult {
	req := gctx.Request
	full := req.PromptTokens
	if full.Len() == 0 {
		return SlotResult{Kind: ResultFailure, Err: ErrEmptyPrompt}
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	choice, ok := rt.slots.BestIdleChoice(full)
	if !ok {
		return SlotResult{Kind: ResultFault, Err: ErrNoCapacity}
	}

	// The last prompt token is never looked up in the cache: at least one
	// token must be fed forward to produce the first sampled token, and the
	// checked-out state must hold exactly the tokens in Prefix.
	_, stem := full.Last()
	prefix, state := rt.cache.Checkout(stem, rt.model.FreshState)
	suffix := full.Slice(prefix.Len(), full.Len())

	gctx.Prefix = prefix
	gctx.Suffix = suffix
	gctx.ModelTokens = full
	gctx.pendingState = state

	rt.slots.Set(choice.Index, SlotState{Kind: SlotWait, Context: gctx})
	return SlotResult{Kind: ResultSuccess}
}

// Process advances the batch by exactly one tick: Reap finished rows,
// Promote waiting slots into freed rows, prepare and run model inputs
// until progress, post-process and sample logits, then fold each row's
// result back into its GenerateContext (prefix/suffix migration, penalty
// decay, stop-string matching, streaming).
func (rt *Runtime) Process(ctx context.Context, setting *Setting) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := time.Now()
	if err := rt.reapLocked(ctx, now); err != nil {
		return err
	}
	if err := rt.promoteLocked(ctx); err != nil {
		return err
	}

	inputs := rt.prepareInputsLocked()
	outputs, err := rt.runUntilProgressLocked(ctx, inputs)
	if err != nil {
		return err
	}

	processed := rt.postProcessLocked(outputs, setting)
	probs, err := rt.model.Softmax(ctx, processed)
	if err != nil {
		return fmt.Errorf("sched: softmax: %w", err)
	}

	rt.updateLocked(inputs, probs, setting)
	return nil
}

func (rt *Runtime) reapLocked(ctx context.Context, now time.Time) error {
	for r := range rt.payloads {
		if !rt.payloads[r].IsDone() {
			continue
		}
		gctx, reason, _ := rt.payloads[r].Finalize()

		snap, err := rt.state.BackBatch(ctx, r)
		if err != nil {
			return fmt.Errorf("sched: back batch row %d: %w", r, err)
		}
		// Keyed by Prefix, the tokens actually fed into this state, not
		// ModelTokens (which also counts the last sampled token still
		// sitting unfed in Suffix). Keying by ModelTokens would cache a
		// key longer than the state it describes, defeating reuse by a
		// shorter continuation of the same prefix.
		rt.cache.Insert(gctx.Prefix, snap)

		if gctx.Request.Embed {
			embed := rt.state.Embed(snap, rt.embedLayer)
			gctx.Sender.Send(Event{Kind: EventEmbed, Embed: embed})
		}

		if tail := flushUTF8(gctx.ModelText); len(tail) > 0 {
			gctx.OutputBuffer = append(gctx.OutputBuffer, tail...)
			gctx.Sender.Send(Event{Kind: EventToken, Text: string(tail)})
			gctx.ModelText = nil
		}
		gctx.counter.CompletionTokens = gctx.ModelTokens.Len() - gctx.counter.PromptTokens
		gctx.counter.TotalTokens = gctx.ModelTokens.Len()
		gctx.Sender.Send(Event{Kind: EventStop, Reason: reason, Counter: gctx.counter})
		gctx.Sender.Send(Event{Kind: EventDone})
		gctx.Sender.Close()

		slotIdx := rt.batchSlot[r]
		if slotIdx >= 0 {
			rt.slots.Set(slotIdx, SlotState{Kind: SlotIdle, Resident: gctx.Prefix, Since: now})
		}
		rt.batchSlot[r] = -1
	}
	return nil
}

func (rt *Runtime) promoteLocked(ctx context.Context) error {
	for r := range rt.batchSlot {
		if rt.batchSlot[r] >= 0 {
			continue
		}
		slotIdx, gctx, found := rt.firstWaitingLocked()
		if !found {
			break
		}

		if err := rt.state.LoadBatch(ctx, gctx.pendingState, r); err != nil {
			return fmt.Errorf("sched: load batch row %d: %w", r, err)
		}
		gctx.pendingState = nil

		rt.batchSlot[r] = slotIdx
		rt.payloads[r] = Payload{Kind: PayloadBusy, Context: gctx}
		rt.slots.Set(slotIdx, SlotState{Kind: SlotBusy, Context: gctx})
	}
	return nil
}

func (rt *Runtime) firstWaitingLocked() (int, *GenerateContext, bool) {
	for i := 0; i < rt.slots.Len(); i++ {
		s := rt.slots.Get(i)
		if s.Kind == SlotWait {
			return i, s.Context, true
		}
	}
	return 0, nil, false
}

func (rt *Runtime) prepareInputsLocked() []*ModelInput {
	inputs := make([]*ModelInput, len(rt.payloads))
	for r, p := range rt.payloads {
		if !p.IsBusy() {
			inputs[r] = &ModelInput{}
			continue
		}
		toks := make([]Token, p.Context.Suffix.Len())
		copy(toks, p.Context.Suffix.Tokens())
		inputs[r] = &ModelInput{Tokens: toks}
	}
	return inputs
}

// runUntilProgressLocked calls Run repeatedly until at least one busy
// row yields a non-None output, accommodating a ModelRuntime that
// internally chunks long prefills across several calls.
func (rt *Runtime) runUntilProgressLocked(ctx context.Context, inputs []*ModelInput) ([]ModelOutput, error) {
	anyBusy := false
	for _, p := range rt.payloads {
		if p.IsBusy() {
			anyBusy = true
			break
		}
	}
	if !anyBusy {
		return make([]ModelOutput, len(rt.payloads)), nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outputs, err := rt.model.Run(ctx, inputs, rt.state)
		if err != nil {
			return nil, fmt.Errorf("sched: model run: %w", err)
		}
		for r, p := range rt.payloads {
			if !p.IsBusy() {
				continue
			}
			if _, ok := outputs[r].LastFrame(); ok {
				return outputs, nil
			}
		}
	}
}

func (rt *Runtime) postProcessLocked(outputs []ModelOutput, setting *Setting) []ModelOutput {
	out := make([]ModelOutput, len(outputs))
	copy(out, outputs)
	for r, p := range rt.payloads {
		if !p.IsBusy() {
			continue
		}
		logits, ok := outputs[r].LastFrame()
		if !ok {
			continue
		}
		cp := make([]float32, len(logits))
		copy(cp, logits)

		ApplyPenalties(cp, p.Context.Penalties, rt.exempt)
		ApplyLogitBias(cp, p.Context.Request.LogitBias)

		out[r] = ModelOutput{Kind: OutputLast, Last: cp}
	}
	return out
}

func (rt *Runtime) updateLocked(inputs []*ModelInput, probs []ModelOutput, setting *Setting) {
	for r, p := range rt.payloads {
		if !p.IsBusy() {
			continue
		}
		gctx := p.Context

		consumed := gctx.Suffix.Len() - len(inputs[r].Tokens)
		if consumed > 0 {
			moved := gctx.Suffix.Slice(0, consumed)
			gctx.Prefix = gctx.Prefix.Concat(moved)
			gctx.Suffix = gctx.Suffix.Slice(consumed, gctx.Suffix.Len())
		}

		sampler := gctx.Request.Sampler
		gctx.DecayPenalties(sampler.PenaltyDecay())

		// Sample only once every pending token has been fed; logits
		// produced mid-prompt are not a continuation of the request.
		dist, ok := probs[r].LastFrame()
		if !ok || gctx.Suffix.Len() > 0 {
			continue
		}
		tok := sampler.Sample(dist)
		gctx.RecordPenalty(tok, sampler.PresencePenalty(), sampler.FrequencyPenalty())
		gctx.ModelTokens = gctx.ModelTokens.Append(tok)
		gctx.Suffix = gctx.Suffix.Append(tok)
		gctx.ModelText = append(gctx.ModelText, rt.tokenizer.Decode([]Token{tok})...)

		rt.resolveOutputLocked(r, gctx, setting)
	}
}

func (rt *Runtime) resolveOutputLocked(r int, gctx *GenerateContext, setting *Setting) {
	// A dropped receiver is the caller's cancellation signal (mirroring
	// run.rs's sender.is_disconnected() check): stop at the next
	// opportunity without emitting anything further.
	if gctx.Sender.Closed() {
		rt.payloads[r] = Payload{Kind: PayloadDone, Context: gctx, Reason: FinishCancelled}
		return
	}

	completion := gctx.ModelTokens.Len() - gctx.counter.PromptTokens
	stops := gctx.Request.Stop
	if len(setting.Stop) > 0 {
		combined := make([]string, 0, len(stops)+len(setting.Stop))
		combined = append(combined, stops...)
		combined = append(combined, setting.Stop...)
		stops = combined
	}

	if idx, _, found := matchStop(gctx.ModelText, stops); found {
		safe := flushUTF8(gctx.ModelText[:idx])
		if len(safe) > 0 {
			gctx.OutputBuffer = append(gctx.OutputBuffer, safe...)
			gctx.Sender.Send(Event{Kind: EventToken, Text: string(safe)})
		}
		gctx.ModelText = nil
		rt.payloads[r] = Payload{Kind: PayloadDone, Context: gctx, Reason: FinishStop}
		return
	}

	// Hold back whatever could still grow into a stop match (unsafeFrom)
	// in addition to whatever is mid-UTF8-rune (safeUTF8Cut); emit only
	// the prefix both agree is safe.
	cut := len(gctx.ModelText)
	if u, ok := unsafeFrom(gctx.ModelText, stops); ok && u < cut {
		cut = u
	}
	safe, rest := safeUTF8Cut(gctx.ModelText[:cut])
	if len(safe) > 0 {
		gctx.OutputBuffer = append(gctx.OutputBuffer, safe...)
		gctx.Sender.Send(Event{Kind: EventToken, Text: string(safe)})
	}
	held := make([]byte, 0, len(rest)+len(gctx.ModelText)-cut)
	held = append(held, rest...)
	held = append(held, gctx.ModelText[cut:]...)
	gctx.ModelText = held

	if gctx.Request.MaxTokens > 0 && completion >= gctx.Request.MaxTokens {
		rt.payloads[r] = Payload{Kind: PayloadDone, Context: gctx, Reason: FinishLength}
	}
}
