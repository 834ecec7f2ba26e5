package sched

// Token is a single vocabulary entry id, 16 bits wide to match the
// underlying model's embedding table.
type Token uint16

// TokenSequence is an ordered sequence of tokens. It is used both as the
// prompt/generation running state and as the key type for
// PrefixStateCache's trie: equality, ordering, and hashing are all over
// the exact token sequence.
type TokenSequence struct {
	tokens []Token
}

// NewTokenSequence copies toks into a new TokenSequence.
func NewTokenSequence(toks ...Token) TokenSequence {
	if len(toks) == 0 {
		return TokenSequence{}
	}
	cp := make([]Token, len(toks))
	copy(cp, toks)
	return TokenSequence{tokens: cp}
}

// Len returns the number of tokens in the sequence.
func (s TokenSequence) Len() int { return len(s.tokens) }

// Tokens returns the underlying token slice. Callers must not mutate it.
func (s TokenSequence) Tokens() []Token { return s.tokens }

// At returns the token at index i.
func (s TokenSequence) At(i int) Token { return s.tokens[i] }

// Slice returns the sub-sequence [from:to). Out-of-range indices panic,
// matching slice semantics.
func (s TokenSequence) Slice(from, to int) TokenSequence {
	if from == to {
		return TokenSequence{}
	}
	cp := make([]Token, to-from)
	copy(cp, s.tokens[from:to])
	return TokenSequence{tokens: cp}
}

// Concat returns a new sequence with other appended to s.
func (s TokenSequence) Concat(other TokenSequence) TokenSequence {
	out := make([]Token, 0, len(s.tokens)+len(other.tokens))
	out = append(out, s.tokens...)
	out = append(out, other.tokens...)
	return TokenSequence{tokens: out}
}

// Append returns a new sequence with t appended.
func (s TokenSequence) Append(t Token) TokenSequence {
	out := make([]Token, len(s.tokens)+1)
	copy(out, s.tokens)
	out[len(s.tokens)] = t
	return TokenSequence{tokens: out}
}

// Last returns the final token and the sequence with it removed. Panics
// if s is empty.
func (s TokenSequence) Last() (Token, TokenSequence) {
	n := len(s.tokens)
	return s.tokens[n-1], s.Slice(0, n-1)
}

// HasPrefix reports whether prefix is a prefix of s.
func (s TokenSequence) HasPrefix(prefix TokenSequence) bool {
	if len(prefix.tokens) > len(s.tokens) {
		return false
	}
	for i, t := range prefix.tokens {
		if s.tokens[i] != t {
			return false
		}
	}
	return true
}

// Equal reports whether s and other hold the same token sequence.
func (s TokenSequence) Equal(other TokenSequence) bool {
	if len(s.tokens) != len(other.tokens) {
		return false
	}
	for i, t := range s.tokens {
		if other.tokens[i] != t {
			return false
		}
	}
	return true
}
