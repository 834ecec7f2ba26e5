package sched

import "testing"

func TestIsValidModelFamily(t *testing.T) {
	tests := []struct {
		name   string
		family ModelFamily
		want   bool
	}{
		{"dense", FamilyDense, true},
		{"recurrent", FamilyRecurrent, true},
		{"moe", FamilyMoE, true},
		{"unknown", ModelFamily("transformer-xl"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidModelFamily(tt.family); got != tt.want {
				t.Errorf("IsValidModelFamily(%q) = %v, want %v", tt.family, got, tt.want)
			}
		})
	}
}

func TestNewRuntimeFacade_UnknownFamily_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown model family")
		}
	}()
	NewRuntimeFacade(ModelFamily("bogus"), nil, nil, nil, 1, -1)
}

func TestModelOutput_LastFrame(t *testing.T) {
	tests := []struct {
		name string
		out  ModelOutput
		ok   bool
	}{
		{"none", ModelOutput{Kind: OutputNone}, false},
		{"last", ModelOutput{Kind: OutputLast, Last: []float32{1, 2}}, true},
		{"full", ModelOutput{Kind: OutputFull, Full: [][]float32{{1}, {2, 3}}}, true},
		{"full but empty", ModelOutput{Kind: OutputFull}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.out.LastFrame()
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}
