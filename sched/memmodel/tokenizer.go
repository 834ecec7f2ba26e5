package memmodel

import "github.com/batchslot/scheduler/sched"

// Tokenizer maps a toy vocabulary directly onto bytes: token id N
// decodes to the single byte N mod 256. Good enough to drive
// stop-string matching and streamed output in tests without pulling in
// a real BPE vocabulary.
type Tokenizer struct{}

// Decode renders tokens as their corresponding raw bytes.
func (Tokenizer) Decode(tokens []sched.Token) []byte {
	out := make([]byte, len(tokens))
	for i, t := range tokens {
		out[i] = byte(t % VocabSize)
	}
	return out
}

// Encode is a convenience the sched core never calls (prompt encoding is
// a caller concern), provided so the demo CLI and tests can build
// GenerateRequest.PromptTokens from a plain string.
func (Tokenizer) Encode(s string) []sched.Token {
	out := make([]sched.Token, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = sched.Token(s[i])
	}
	return out
}
