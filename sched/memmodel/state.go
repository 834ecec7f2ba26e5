package memmodel

import (
	"context"
	"fmt"
	"sync"

	"github.com/batchslot/scheduler/sched"
)

// State is memmodel's sched.State: per-row token history, indexed by
// runtime batch row. It is intentionally simple — no KV blocks, no
// layers — since the toy Runtime only needs the full history to
// reproduce a deterministic continuation.
type State struct {
	mu   sync.Mutex
	rows [][]sched.Token
}

// NewState returns a State with maxBatch empty rows.
func NewState(maxBatch int) *State {
	return &State{rows: make([][]sched.Token, maxBatch)}
}

// MaxBatch returns the number of rows.
func (s *State) MaxBatch() int { return len(s.rows) }

func (s *State) append(row int, tok sched.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row] = append(s.rows[row], tok)
}

func (s *State) history(row int) []sched.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]sched.Token, len(s.rows[row]))
	copy(cp, s.rows[row])
	return cp
}

// BackBatch serializes row's history into a Snapshot.
func (s *State) BackBatch(ctx context.Context, row int) (sched.SerializedState, error) {
	if row < 0 || row >= len(s.rows) {
		return nil, fmt.Errorf("memmodel: row %d out of range", row)
	}
	return &Snapshot{Tokens: s.history(row)}, nil
}

// LoadBatch installs snap's history into row, replacing whatever was
// there.
func (s *State) LoadBatch(ctx context.Context, snap sched.SerializedState, row int) error {
	if row < 0 || row >= len(s.rows) {
		return fmt.Errorf("memmodel: row %d out of range", row)
	}
	sn, ok := snap.(*Snapshot)
	if !ok {
		return fmt.Errorf("memmodel: snapshot is not *memmodel.Snapshot")
	}
	cp := make([]sched.Token, len(sn.Tokens))
	copy(cp, sn.Tokens)

	s.mu.Lock()
	s.rows[row] = cp
	s.mu.Unlock()
	return nil
}

// Embed returns a toy "embedding": the snapshot's token ids cast to
// float32, truncated or padded to a fixed width. layer is ignored since
// this model has exactly one.
func (s *State) Embed(snap sched.SerializedState, layer int) []float32 {
	const width = 8
	sn, ok := snap.(*Snapshot)
	if !ok {
		return make([]float32, width)
	}
	out := make([]float32, width)
	for i := 0; i < width && i < len(sn.Tokens); i++ {
		out[i] = float32(sn.Tokens[i])
	}
	return out
}
