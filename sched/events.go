package sched

import "sync"

// FinishReason records why a request's generation stopped.
type FinishReason int

const (
	// FinishStop means a stop string matched.
	FinishStop FinishReason = iota
	// FinishLength means request.max_tokens was reached. RunLoop also
	// reports it for a submission that Queue did not admit.
	FinishLength
	// FinishCancelled means the caller dropped its receiving end before
	// the request otherwise finished.
	FinishCancelled
)

func (r FinishReason) String() string {
	switch r {
	case FinishStop:
		return "stop"
	case FinishLength:
		return "length"
	case FinishCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TokenCounter reports token accounting at the moment a request finishes.
type TokenCounter struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// EventKind discriminates the variants of Event below.
type EventKind int

const (
	EventStart EventKind = iota
	EventToken
	EventStop
	EventEmbed
	EventDone
)

// Event is one item of a request's streamed output. Exactly one of its
// fields is meaningful, selected by Kind.
type Event struct {
	Kind    EventKind
	Text    string       // EventToken
	Reason  FinishReason // EventStop
	Counter TokenCounter // EventStop
	Embed   []float32    // EventEmbed
}

// EventSink delivers a request's Event stream to its caller. Send is
// non-blocking: a full or disconnected sink silently drops the event,
// mirroring a dropped receiver being the cancellation signal rather than
// an error. Closed callers should stop generation at the next
// opportunity, detected via Closed.
//
// Grounded on the try-send-then-done-channel pattern used for streaming
// token delivery in echo.go's TokenStream.Send.
type EventSink struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewEventSink returns a sink with the given channel buffer size.
func NewEventSink(buffer int) *EventSink {
	if buffer < 0 {
		buffer = 0
	}
	return &EventSink{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

// Send attempts to deliver ev without blocking. It reports whether the
// event was actually delivered; false means the sink is closed or its
// buffer is full and the caller should treat the request as cancelled.
func (s *EventSink) Send(ev Event) bool {
	if s.Closed() {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

// Recv returns the sink's channel for callers to range/select over.
func (s *EventSink) Recv() <-chan Event { return s.ch }

// Close marks the sink disconnected, the caller's way of cancelling. It
// never closes the data channel itself, so a racing in-flight Send can
// never panic on a send to a closed channel. Idempotent.
func (s *EventSink) Close() {
	s.once.Do(func() { close(s.done) })
}

// Closed reports whether the sink has been closed, the core's signal
// that the caller cancelled (dropped its receiving end).
func (s *EventSink) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
