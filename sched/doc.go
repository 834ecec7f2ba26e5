// Package sched implements the batched inference scheduler and
// prefix-state cache that drives a streaming, multi-tenant model-serving
// loop.
//
// # Reading Guide
//
// Start with these files to understand the scheduling kernel:
//   - token.go: TokenSequence, the key type for the prefix cache
//   - trie.go: PrefixStateCache, longest-common-prefix lookup over cached states
//   - slot.go: SlotTable, the per-slot state machine and idle-slot ranking
//   - context.go: GenerateContext, the per-request running state
//   - pipeline.go: Runtime, admission (Queue) and the per-tick batch advance (Process)
//   - runloop.go: RunLoop, the single-consumer driver of Process
//
// # Architecture
//
// sched defines the scheduling core and the narrow capability interfaces
// (ModelRuntime, State, Tokenizer, Sampler) it depends on; it never
// implements a model itself. A reference in-memory implementation of
// those interfaces lives in sched/memmodel, used by tests and the demo
// CLI.
//
// # Key Interfaces
//
// The extension points are small, single-purpose interfaces:
//   - ModelRuntime: batched forward step + softmax over an opaque State
//   - State: per-slot model state, saved to and loaded from SerializedState
//   - Tokenizer: token -> byte decoding
//   - Sampler: per-request sampling and penalty parameters
package sched
