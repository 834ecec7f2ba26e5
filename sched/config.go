package sched

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Setting bundles every tunable of the scheduling core, loaded from YAML
// in strict mode (unknown keys are rejected) the same way the example
// policy bundles this package was generalized from are loaded.
type Setting struct {
	// NumSlots sizes RunLoop's submission buffer. It does not size the
	// SlotTable: NewRuntimeFacade builds one slot per runtime batch row
	// (MaxRuntimeBatch).
	NumSlots int `yaml:"num_slots"`
	// MaxRuntimeBatch caps how many Wait slots Promote moves into Busy
	// runtime batch rows in a single tick.
	MaxRuntimeBatch int `yaml:"max_runtime_batch"`
	// CacheCapacity is validated (it must be non-negative) but not read by
	// the scheduling core: PrefixStateCache never evicts and grows without
	// bound.
	CacheCapacity int `yaml:"cache_capacity"`
	// EmbedLayer is the model layer read by State.Embed when a finishing
	// request asked to embed.
	EmbedLayer int `yaml:"embed_layer"`
	// TickInterval is validated (it must be non-negative) but not read by
	// RunLoop, which calls Process back to back while any slot holds work.
	TickInterval time.Duration `yaml:"tick_interval"`
	// PenaltyDecayFloor is validated but not read by the scheduling core:
	// GenerateContext.DecayPenalties drops entries below a fixed 1e-6.
	PenaltyDecayFloor float32 `yaml:"penalty_decay_floor"`
	// Stop lists process-wide stop strings evaluated in addition to each
	// request's own Stop list (§6, §4.5): a match on either ends the
	// request.
	Stop []string `yaml:"stop"`
}

// DefaultSetting returns reasonable defaults for a small in-process demo
// runtime.
func DefaultSetting() Setting {
	return Setting{
		NumSlots:          16,
		MaxRuntimeBatch:   8,
		CacheCapacity:     64,
		EmbedLayer:        -1,
		TickInterval:      2 * time.Millisecond,
		PenaltyDecayFloor: 1e-6,
	}
}

// LoadSetting reads and validates a Setting from a YAML file, rejecting
// unknown fields so a typo in the config surfaces immediately rather than
// silently falling back to a default.
func LoadSetting(path string) (Setting, error) {
	f, err := os.Open(path)
	if err != nil {
		return Setting{}, fmt.Errorf("sched: open setting file: %w", err)
	}
	defer f.Close()

	s := DefaultSetting()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Setting{}, fmt.Errorf("sched: decode setting file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Setting{}, err
	}
	return s, nil
}

// Validate checks every field is within a sane range, rejecting NaN/Inf
// where floats are involved.
func (s Setting) Validate() error {
	if s.NumSlots <= 0 {
		return fmt.Errorf("sched: num_slots must be positive, got %d", s.NumSlots)
	}
	if s.MaxRuntimeBatch <= 0 {
		return fmt.Errorf("sched: max_runtime_batch must be positive, got %d", s.MaxRuntimeBatch)
	}
	if s.MaxRuntimeBatch > s.NumSlots {
		return fmt.Errorf("sched: max_runtime_batch (%d) exceeds num_slots (%d)", s.MaxRuntimeBatch, s.NumSlots)
	}
	if s.CacheCapacity < 0 {
		return fmt.Errorf("sched: cache_capacity must be non-negative, got %d", s.CacheCapacity)
	}
	if s.TickInterval < 0 {
		return fmt.Errorf("sched: tick_interval must be non-negative, got %s", s.TickInterval)
	}
	if math.IsNaN(float64(s.PenaltyDecayFloor)) || math.IsInf(float64(s.PenaltyDecayFloor), 0) {
		return fmt.Errorf("sched: penalty_decay_floor must be finite, got %v", s.PenaltyDecayFloor)
	}
	if s.PenaltyDecayFloor < 0 {
		return fmt.Errorf("sched: penalty_decay_floor must be non-negative, got %v", s.PenaltyDecayFloor)
	}
	return nil
}
