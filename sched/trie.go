package sched

import "sync"

// SerializedState is an opaque, cloneable snapshot of a model's per-slot
// internal state. The scheduling core never inspects its contents; it is
// produced and consumed entirely by the ModelRuntime/State capability
// (runtime.go).
type SerializedState interface {
	// Clone returns an independent copy of the snapshot, so the cache can
	// hand out an owned value while keeping its own entry intact.
	Clone() SerializedState
}

// trieNode is one edge-per-token node of the prefix trie. Keying directly
// on 16-bit token symbols (rather than their little-endian byte form)
// gives the same longest-common-prefix contract as a byte trie with
// token-aligned breakpoints, without the alignment bookkeeping.
type trieNode struct {
	children map[Token]*trieNode
	hasValue bool
	value    SerializedState
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[Token]*trieNode)}
}

// PrefixStateCache is a process-wide mapping from TokenSequence to
// SerializedState, supporting longest-common-prefix lookup. All
// operations are total: a miss is never an error.
type PrefixStateCache struct {
	mu   sync.Mutex
	root *trieNode
}

// NewPrefixStateCache returns an empty cache.
func NewPrefixStateCache() *PrefixStateCache {
	return &PrefixStateCache{root: newTrieNode()}
}

// ContainsKey reports whether seq is stored exactly as a key.
func (c *PrefixStateCache) ContainsKey(seq TokenSequence) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.containsKeyLocked(seq)
}

func (c *PrefixStateCache) containsKeyLocked(seq TokenSequence) bool {
	node := c.walkLocked(seq)
	return node != nil && node.hasValue
}

// Insert stores v under key seq, overwriting any existing entry.
func (c *PrefixStateCache) Insert(seq TokenSequence, v SerializedState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(seq, v)
}

func (c *PrefixStateCache) insertLocked(seq TokenSequence, v SerializedState) {
	node := c.root
	for _, t := range seq.Tokens() {
		next, ok := node.children[t]
		if !ok {
			next = newTrieNode()
			node.children[t] = next
		}
		node = next
	}
	node.hasValue = true
	node.value = v
}

// Remove deletes the exact key seq, returning its value if present. It
// does not prune now-dead intermediate nodes; the trie is sized by the
// working set of slots, not by unbounded churn.
func (c *PrefixStateCache) Remove(seq TokenSequence) (SerializedState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(seq)
}

func (c *PrefixStateCache) removeLocked(seq TokenSequence) (SerializedState, bool) {
	node := c.walkLocked(seq)
	if node == nil || !node.hasValue {
		return nil, false
	}
	v := node.value
	node.hasValue = false
	node.value = nil
	return v, true
}

func (c *PrefixStateCache) walkLocked(seq TokenSequence) *trieNode {
	node := c.root
	for _, t := range seq.Tokens() {
		next, ok := node.children[t]
		if !ok {
			return nil
		}
		node = next
	}
	return node
}

// LongestCommonPrefix returns the longest prefix of query that matches a
// path present in the trie. The returned prefix need not itself be a
// stored key — it may be a prefix of one, or have one as its own prefix;
// see Checkout for locating the longest *exact* stored key.
func (c *PrefixStateCache) LongestCommonPrefix(query TokenSequence) TokenSequence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.longestCommonPrefixLocked(query)
}

func (c *PrefixStateCache) longestCommonPrefixLocked(query TokenSequence) TokenSequence {
	node := c.root
	toks := query.Tokens()
	n := 0
	for n < len(toks) {
		next, ok := node.children[toks[n]]
		if !ok {
			break
		}
		node = next
		n++
	}
	return query.Slice(0, n)
}

// Checkout finds the longest stored prefix of query, removes it from the
// cache, and reinserts a clone under the same key — so the caller
// receives an owned snapshot while the cache can still serve the same
// prefix to a later caller. If no prefix is stored, fresh is invoked to
// produce an initial state, which is not inserted into the cache (there
// is nothing meaningful to key it by: the empty sequence).
func (c *PrefixStateCache) Checkout(query TokenSequence, fresh func() SerializedState) (TokenSequence, SerializedState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lcp := c.longestCommonPrefixLocked(query)
	length := 0
	for l := lcp.Len(); l >= 1; l-- {
		if c.containsKeyLocked(lcp.Slice(0, l)) {
			length = l
			break
		}
	}
	prefix := lcp.Slice(0, length)

	var state SerializedState
	if v, ok := c.removeLocked(prefix); ok {
		state = v
	} else {
		state = fresh()
	}
	if length > 0 {
		c.insertLocked(prefix, state.Clone())
	}
	return prefix, state
}
