package sched

import (
	"testing"
	"time"
)

func TestBetterChoice_Ordering(t *testing.T) {
	now := time.Now()
	older := now.Add(-time.Minute)

	tests := []struct {
		name     string
		a, b     SlotChoice
		wantSame bool // true if a is expected to win
	}{
		{
			name: "continue beats empty",
			a:    SlotChoice{Kind: ChoiceContinue, K: 1, Since: now},
			b:    SlotChoice{Kind: ChoiceEmpty, Since: now},
			wantSame: true,
		},
		{
			name:     "empty beats back",
			a:        SlotChoice{Kind: ChoiceEmpty, Since: now},
			b:        SlotChoice{Kind: ChoiceBack, Since: now},
			wantSame: true,
		},
		{
			name:     "continue ties broken by larger k",
			a:        SlotChoice{Kind: ChoiceContinue, K: 5, Since: now},
			b:        SlotChoice{Kind: ChoiceContinue, K: 2, Since: now},
			wantSame: true,
		},
		{
			name:     "equal kind ties broken by longer idle",
			a:        SlotChoice{Kind: ChoiceEmpty, Since: older},
			b:        SlotChoice{Kind: ChoiceEmpty, Since: now},
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := betterChoice(tt.a, tt.b)
			wantA := tt.wantSame
			if wantA && got != tt.a {
				t.Errorf("betterChoice(a, b) = %+v, want a = %+v", got, tt.a)
			}
		})
	}
}

func TestSlotTable_BestIdleChoice(t *testing.T) {
	now := time.Now()
	table := NewSlotTable(3, now)

	full := NewTokenSequence(1, 2, 3, 4)

	// Slot 0: resident is a prefix of full -> Continue(4 tokens would be
	// wrong; only 2 are resident here).
	table.Set(0, SlotState{Kind: SlotIdle, Resident: NewTokenSequence(1, 2), Since: now})
	// Slot 1: resident diverges -> Back.
	table.Set(1, SlotState{Kind: SlotIdle, Resident: NewTokenSequence(9, 9), Since: now})
	// Slot 2: Busy, excluded from consideration entirely.
	table.Set(2, SlotState{Kind: SlotBusy})

	choice, ok := table.BestIdleChoice(full)
	if !ok {
		t.Fatal("expected a choice")
	}
	if choice.Kind != ChoiceContinue || choice.Index != 0 {
		t.Errorf("choice = %+v, want Continue at slot 0", choice)
	}
}

func TestSlotTable_BestIdleChoice_NoneIdle(t *testing.T) {
	now := time.Now()
	table := NewSlotTable(2, now)
	table.Set(0, SlotState{Kind: SlotBusy})
	table.Set(1, SlotState{Kind: SlotWait})

	if _, ok := table.BestIdleChoice(NewTokenSequence(1)); ok {
		t.Error("expected no choice when no slot is idle")
	}
}

func TestPayload_TakeAndFinalize(t *testing.T) {
	gctx := &GenerateContext{}
	p := Payload{Kind: PayloadDone, Context: gctx, Reason: FinishStop}

	ctx, reason, ok := p.Finalize()
	if !ok || ctx != gctx || reason != FinishStop {
		t.Fatalf("Finalize() = %v, %v, %v", ctx, reason, ok)
	}
	if !p.IsEmpty() {
		t.Error("expected payload reset to empty after Finalize")
	}

	p2 := Payload{Kind: PayloadBusy, Context: gctx}
	taken := p2.Take()
	if !taken.IsBusy() {
		t.Error("expected taken payload to retain its prior kind")
	}
	if !p2.IsEmpty() {
		t.Error("expected p2 reset to empty after Take")
	}
}
