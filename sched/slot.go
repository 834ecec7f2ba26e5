package sched

import "time"

// SlotResultKind discriminates the outcome of an admission attempt.
type SlotResultKind int

const (
	// ResultSuccess means the request was admitted into Wait.
	ResultSuccess SlotResultKind = iota
	// ResultFault means no slot is Idle (every slot is Wait or Busy); the
	// caller should retry the same request later rather than treat it as
	// rejected.
	ResultFault
	// ResultFailure means the request itself cannot be served (e.g. an
	// empty prompt), independent of slot availability.
	ResultFailure
	// ResultError marks an unexpected collaborator error, fatal to the
	// request. Queue does not produce it.
	ResultError
)

// SlotResult is the outcome of a Queue call.
type SlotResult struct {
	Kind SlotResultKind
	Err  error
}

func (r SlotResult) Admitted() bool { return r.Kind == ResultSuccess }

// SlotKind discriminates SlotState's variants.
type SlotKind int

const (
	// SlotIdle means the slot holds resident model state for Resident but
	// no request is using it; Since records when it became idle so
	// admission ties can favor the longest-idle slot.
	SlotIdle SlotKind = iota
	// SlotWait means a request has been admitted into the slot and is
	// waiting for a free runtime batch row at the next Promote phase.
	SlotWait
	// SlotBusy means the slot currently occupies a runtime batch row.
	SlotBusy
)

// SlotState is one scheduling slot's state-machine value. Exactly the
// fields relevant to Kind are meaningful.
type SlotState struct {
	Kind SlotKind

	// Resident and Since are meaningful for SlotIdle: the token sequence
	// backing the slot's loaded model state, and when it went idle.
	Resident TokenSequence
	Since    time.Time

	// Context is meaningful for SlotWait and SlotBusy: the request
	// currently occupying the slot.
	Context *GenerateContext
}

// SlotChoiceKind discriminates SlotChoice's variants, also its ranking:
// Continue outranks Empty outranks Back.
type SlotChoiceKind int

const (
	ChoiceBack SlotChoiceKind = iota
	ChoiceEmpty
	ChoiceContinue
)

// SlotChoice is one Idle slot's classification against an incoming
// request's full token sequence, used to pick the best admission target.
type SlotChoice struct {
	Kind  SlotChoiceKind
	Index int
	// K is the number of tokens this slot's Resident sequence shares as a
	// common prefix with the request, meaningful for ChoiceContinue.
	K int
	// Since is the slot's idle-since time, used as the final tiebreak:
	// the longer-idle (earlier Since) slot wins.
	Since time.Time
}

// betterChoice returns whichever of a, b should be preferred for
// admission: higher Kind first, then (for two ChoiceContinue) larger K,
// then the longer-idle (earlier Since) slot.
func betterChoice(a, b SlotChoice) SlotChoice {
	if a.Kind != b.Kind {
		if a.Kind > b.Kind {
			return a
		}
		return b
	}
	if a.Kind == ChoiceContinue && a.K != b.K {
		if a.K > b.K {
			return a
		}
		return b
	}
	if a.Since.Before(b.Since) {
		return a
	}
	return b
}

// classify scores one Idle slot's Resident sequence against full, the
// request's complete known token sequence (prompt plus anything already
// folded in). A slot whose Resident is a non-empty prefix of full can
// Continue, reusing K resident tokens; an empty-Resident slot is always
// available as Empty; anything else must be evicted (Back).
func classify(slot SlotState, idx int, full TokenSequence) SlotChoice {
	if slot.Resident.Len() == 0 {
		return SlotChoice{Kind: ChoiceEmpty, Index: idx, Since: slot.Since}
	}
	if full.HasPrefix(slot.Resident) {
		return SlotChoice{Kind: ChoiceContinue, Index: idx, K: slot.Resident.Len(), Since: slot.Since}
	}
	return SlotChoice{Kind: ChoiceBack, Index: idx, Since: slot.Since}
}

// PayloadKind discriminates Payload's variants.
type PayloadKind int

const (
	// PayloadEmpty means the row currently contributes nothing to the
	// batch; Process skips it entirely.
	PayloadEmpty PayloadKind = iota
	// PayloadBusy means the row holds a request mid-generation.
	PayloadBusy
	// PayloadDone means the row's request just finished this tick and is
	// waiting for Reap to fold it back into Idle.
	PayloadDone
)

// Payload is one runtime batch row's contribution, mirroring SlotState
// but addressed by batch row rather than slot index (a slot's Context
// moves into a Payload once Promoted).
type Payload struct {
	Kind    PayloadKind
	Context *GenerateContext
	Reason  FinishReason // meaningful for PayloadDone
}

func (p Payload) IsEmpty() bool { return p.Kind == PayloadEmpty }
func (p Payload) IsBusy() bool  { return p.Kind == PayloadBusy }
func (p Payload) IsDone() bool  { return p.Kind == PayloadDone }

// Take resets p to PayloadEmpty in place and returns its prior value.
func (p *Payload) Take() Payload {
	out := *p
	*p = Payload{}
	return out
}

// Finalize extracts the finished context and reason from a PayloadDone
// row and resets it to PayloadEmpty. It reports false for any other kind.
func (p *Payload) Finalize() (*GenerateContext, FinishReason, bool) {
	if p.Kind != PayloadDone {
		return nil, 0, false
	}
	ctx, reason := p.Context, p.Reason
	*p = Payload{}
	return ctx, reason, true
}

// SlotTable owns the fixed-size array of scheduling slots (distinct from
// the runtime batch rows in Payload) and the idle-slot admission scan.
type SlotTable struct {
	slots []SlotState
}

// NewSlotTable returns a table of n slots, all Idle with empty Resident
// and Since set to now.
func NewSlotTable(n int, now time.Time) *SlotTable {
	slots := make([]SlotState, n)
	for i := range slots {
		slots[i] = SlotState{Kind: SlotIdle, Since: now}
	}
	return &SlotTable{slots: slots}
}

// Len returns the number of slots.
func (t *SlotTable) Len() int { return len(t.slots) }

// Get returns slot i's current state.
func (t *SlotTable) Get(i int) SlotState { return t.slots[i] }

// Set overwrites slot i's state.
func (t *SlotTable) Set(i int, s SlotState) { t.slots[i] = s }

// BestIdleChoice scans every Idle slot and returns the best admission
// choice for full per betterChoice's ordering. ok is false if no slot is
// Idle (every slot is Wait or Busy).
func (t *SlotTable) BestIdleChoice(full TokenSequence) (SlotChoice, bool) {
	var best SlotChoice
	found := false
	for i, s := range t.slots {
		if s.Kind != SlotIdle {
			continue
		}
		c := classify(s, i, full)
		if !found {
			best, found = c, true
			continue
		}
		best = betterChoice(best, c)
	}
	return best, found
}
