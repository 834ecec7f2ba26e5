package memmodel

import (
	"context"
	"testing"

	"github.com/batchslot/scheduler/sched"
)

func TestRuntime_RunConsumesOneTokenPerCall(t *testing.T) {
	rt := NewRuntime(2, 2)
	state := NewState(2)

	input := &sched.ModelInput{Tokens: []sched.Token{'a', 'b', 'c'}}
	outputs, err := rt.Run(context.Background(), []*sched.ModelInput{input}, state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(input.Tokens) != 2 {
		t.Errorf("expected 2 tokens remaining after consuming 1, got %d", len(input.Tokens))
	}
	if _, ok := outputs[0].LastFrame(); !ok {
		t.Error("expected a logits frame for a non-empty row")
	}
}

func TestRuntime_EmptyRowProducesNoOutput(t *testing.T) {
	rt := NewRuntime(1, 1)
	state := NewState(1)

	input := &sched.ModelInput{}
	outputs, err := rt.Run(context.Background(), []*sched.ModelInput{input}, state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := outputs[0].LastFrame(); ok {
		t.Error("expected no frame for an empty row")
	}
}

func TestState_BackAndLoadBatchRoundTrip(t *testing.T) {
	state := NewState(1)
	state.append(0, 1)
	state.append(0, 2)

	snap, err := state.BackBatch(context.Background(), 0)
	if err != nil {
		t.Fatalf("BackBatch: %v", err)
	}

	other := NewState(1)
	if err := other.LoadBatch(context.Background(), snap, 0); err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if got := other.history(0); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("history after load = %v, want [1 2]", got)
	}
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	snap := &Snapshot{Tokens: []sched.Token{1, 2, 3}}
	clone := snap.Clone().(*Snapshot)
	clone.Tokens[0] = 99
	if snap.Tokens[0] == 99 {
		t.Error("clone shares backing array with original")
	}
}

func TestTokenizer_EncodeDecodeRoundTrip(t *testing.T) {
	tok := Tokenizer{}
	toks := tok.Encode("hi")
	out := tok.Decode(toks)
	if string(out) != "hi" {
		t.Errorf("round trip = %q, want %q", out, "hi")
	}
}

func TestGreedySampler_PicksMax(t *testing.T) {
	s := NewGreedySampler(0, 0, 1)
	probs := []float32{0.1, 0.5, 0.2, 0.05}
	if got := s.Sample(probs); got != 1 {
		t.Errorf("Sample = %d, want 1", got)
	}
}
