package sched

import "testing"

func TestTokenSequence_Slice(t *testing.T) {
	s := NewTokenSequence(1, 2, 3, 4, 5)

	tests := []struct {
		name     string
		from, to int
		want     []Token
	}{
		{"full range", 0, 5, []Token{1, 2, 3, 4, 5}},
		{"middle", 1, 3, []Token{2, 3}},
		{"empty", 2, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Slice(tt.from, tt.to).Tokens()
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("index %d: got %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenSequence_HasPrefix(t *testing.T) {
	s := NewTokenSequence(1, 2, 3)

	tests := []struct {
		name   string
		prefix TokenSequence
		want   bool
	}{
		{"empty prefix", NewTokenSequence(), true},
		{"proper prefix", NewTokenSequence(1, 2), true},
		{"equal", NewTokenSequence(1, 2, 3), true},
		{"mismatch", NewTokenSequence(1, 3), false},
		{"too long", NewTokenSequence(1, 2, 3, 4), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.HasPrefix(tt.prefix); got != tt.want {
				t.Errorf("HasPrefix(%v) = %v, want %v", tt.prefix.Tokens(), got, tt.want)
			}
		})
	}
}

func TestTokenSequence_Last(t *testing.T) {
	s := NewTokenSequence(1, 2, 3)
	last, rest := s.Last()
	if last != 3 {
		t.Errorf("last = %d, want 3", last)
	}
	if !rest.Equal(NewTokenSequence(1, 2)) {
		t.Errorf("rest = %v, want [1 2]", rest.Tokens())
	}
}

func TestTokenSequence_ConcatAppend(t *testing.T) {
	a := NewTokenSequence(1, 2)
	b := NewTokenSequence(3, 4)
	if got := a.Concat(b); !got.Equal(NewTokenSequence(1, 2, 3, 4)) {
		t.Errorf("Concat = %v", got.Tokens())
	}
	if got := a.Append(9); !got.Equal(NewTokenSequence(1, 2, 9)) {
		t.Errorf("Append = %v", got.Tokens())
	}
	// a itself must be unmodified by either operation.
	if !a.Equal(NewTokenSequence(1, 2)) {
		t.Errorf("a mutated: %v", a.Tokens())
	}
}
