package sched

import "testing"

func TestEventSink_SendAndRecv(t *testing.T) {
	sink := NewEventSink(1)
	if !sink.Send(Event{Kind: EventToken, Text: "hi"}) {
		t.Fatal("expected send to succeed")
	}
	ev := <-sink.Recv()
	if ev.Text != "hi" {
		t.Errorf("got %q, want %q", ev.Text, "hi")
	}
}

func TestEventSink_SendFailsWhenFull(t *testing.T) {
	sink := NewEventSink(1)
	if !sink.Send(Event{Kind: EventToken}) {
		t.Fatal("first send should succeed")
	}
	if sink.Send(Event{Kind: EventToken}) {
		t.Error("second send should fail: buffer full and nothing draining")
	}
}

func TestEventSink_CloseIsIdempotentAndStopsSends(t *testing.T) {
	sink := NewEventSink(4)
	sink.Close()
	sink.Close() // must not panic

	if !sink.Closed() {
		t.Fatal("expected Closed() true after Close")
	}
	if sink.Send(Event{Kind: EventToken}) {
		t.Error("Send should fail on a closed sink")
	}
}

func TestEventSink_SendNeverPanicsAfterClose(t *testing.T) {
	sink := NewEventSink(0)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			sink.Send(Event{Kind: EventToken})
		}
		close(done)
	}()
	sink.Close()
	<-done
}
