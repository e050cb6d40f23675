package feed

import (
	"testing"
	"time"
)

func TestHubPublishReachesSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("conv-1")
	defer cancel()

	h.Publish(Event{Type: TypeMessageReceived, ConversationID: "conv-1", Text: "hello"})

	select {
	case ev := <-ch:
		if ev.Type != TypeMessageReceived || ev.Text != "hello" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event never arrived")
	}
}

func TestHubIsolatesConversations(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("conv-1")
	defer cancel()

	h.Publish(Event{Type: TypeDecoyReply, ConversationID: "conv-2", Text: "other"})

	select {
	case ev := <-ch:
		t.Fatalf("received foreign event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCancelRemovesSubscriber(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe("conv-1")
	if got := h.SubscriberCount("conv-1"); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}
	cancel()
	if got := h.SubscriberCount("conv-1"); got != 0 {
		t.Fatalf("SubscriberCount after cancel = %d, want 0", got)
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe("conv-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			h.Publish(Event{Type: TypeMessageReceived, ConversationID: "conv-1"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on saturated subscriber")
	}
}
