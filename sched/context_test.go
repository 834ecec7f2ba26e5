package sched

import "testing"

func TestGenerateContext_DecayPenalties(t *testing.T) {
	gctx := &GenerateContext{Penalties: map[Token]float32{1: 1.0, 2: 0.0000001}}
	gctx.DecayPenalties(0.5)

	if got, ok := gctx.Penalties[1]; !ok || got != 0.5 {
		t.Errorf("token 1 penalty = %v, ok=%v, want 0.5", got, ok)
	}
	if _, ok := gctx.Penalties[2]; ok {
		t.Error("expected near-zero penalty to be dropped")
	}
}

func TestGenerateContext_RecordPenalty(t *testing.T) {
	gctx := NewGenerateContext(&GenerateRequest{PromptTokens: NewTokenSequence(1)}, NewEventSink(1))

	gctx.RecordPenalty(5, 0.6, 0.2)
	if got, want := gctx.Penalties[5], float32(0.6); !almostEqual(got, want) {
		t.Errorf("first occurrence = %v, want presence %v", got, want)
	}

	gctx.RecordPenalty(5, 0.6, 0.2)
	if got, want := gctx.Penalties[5], float32(0.8); !almostEqual(got, want) {
		t.Errorf("second occurrence = %v, want presence+frequency %v", got, want)
	}

	gctx.RecordPenalty(5, 0.6, 0.2)
	if got, want := gctx.Penalties[5], float32(1.0); !almostEqual(got, want) {
		t.Errorf("third occurrence = %v, want presence+2*frequency %v", got, want)
	}
}

func TestGenerateContext_FullSequence(t *testing.T) {
	gctx := &GenerateContext{Prefix: NewTokenSequence(1, 2), Suffix: NewTokenSequence(3, 4)}
	if !gctx.FullSequence().Equal(NewTokenSequence(1, 2, 3, 4)) {
		t.Errorf("FullSequence = %v", gctx.FullSequence().Tokens())
	}
}
