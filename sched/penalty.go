package sched

import "strings"

// penaltyFreeDelimiters names the byte sequences whose presence in a
// decoded token's text exempts that token from penalty application (§6
// PENALTY_FREE_DELIMITERS): newline, comma, period, and slash. A
// repetition penalty must never suppress the punctuation a model needs
// to end a line or a list item.
var penaltyFreeDelimiters = []string{"\n", ",", ".", "/"}

// PenaltyFreeSet names vocabulary entries exempt from frequency/presence
// penalty application — tokens whose decoded text contains a
// penalty-free delimiter, plus whatever else a caller adds explicitly.
type PenaltyFreeSet struct {
	tokens map[Token]struct{}
}

// NewPenaltyFreeSet returns a set containing exactly the given tokens.
func NewPenaltyFreeSet(toks ...Token) *PenaltyFreeSet {
	s := &PenaltyFreeSet{tokens: make(map[Token]struct{}, len(toks))}
	for _, t := range toks {
		s.tokens[t] = struct{}{}
	}
	return s
}

// BuildPenaltyFreeSet scans the tokenizer's entire vocabulary, decoding
// each token id from 0 to vocabSize-1, and exempts every one whose
// decoded text contains a penalty-free delimiter. Run once at Runtime
// construction (§2.7: "pre-computed on init"), grounded on run.rs lines
// 266-272.
func BuildPenaltyFreeSet(tok Tokenizer, vocabSize int) *PenaltyFreeSet {
	s := &PenaltyFreeSet{tokens: make(map[Token]struct{})}
	for id := 0; id < vocabSize; id++ {
		text := singleTokenDecode(tok, id)
		if len(text) == 0 {
			continue
		}
		for _, delim := range penaltyFreeDelimiters {
			if strings.Contains(string(text), delim) {
				s.tokens[Token(id)] = struct{}{}
				break
			}
		}
	}
	return s
}

// Contains reports whether t is exempt from penalty application.
func (s *PenaltyFreeSet) Contains(t Token) bool {
	if s == nil {
		return false
	}
	_, ok := s.tokens[t]
	return ok
}

// ApplyPenalties subtracts each tracked, non-exempt token's accumulated
// penalty value (see GenerateContext.RecordPenalty) from logits in
// place.
func ApplyPenalties(logits []float32, penalties map[Token]float32, exempt *PenaltyFreeSet) {
	for t, v := range penalties {
		if exempt.Contains(t) {
			continue
		}
		if int(t) < 0 || int(t) >= len(logits) {
			continue
		}
		logits[t] -= v
	}
}

// ApplyLogitBias adds each entry of bias directly to the corresponding
// logit, in place, after penalty application — a caller-specified nudge
// rather than an occurrence-driven one.
func ApplyLogitBias(logits []float32, bias map[Token]float32) {
	for t, v := range bias {
		if int(t) < 0 || int(t) >= len(logits) {
			continue
		}
		logits[t] += v
	}
}
