package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/satyarth42/scamtrap/internal/intel"
	"github.com/satyarth42/scamtrap/internal/reliability"
)

func TestCollectorDeliversReport(t *testing.T) {
	received := make(chan Report, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rep Report
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			t.Errorf("decode report: %v", err)
		}
		received <- rep
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewCollector(ts.URL, time.Second, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	ok := c.Enqueue(Report{
		ConversationID: "conv-1",
		ScamDetected:   true,
		TotalMessages:  4,
		Intelligence:   intel.Intelligence{UPIIDs: []string{"pay@paytm"}},
		AgentNotes:     "lottery_scam engaged",
	})
	if !ok {
		t.Fatalf("Enqueue() = false, want true")
	}

	select {
	case rep := <-received:
		if rep.ConversationID != "conv-1" || !rep.ScamDetected {
			t.Fatalf("unexpected report: %+v", rep)
		}
		if len(rep.Intelligence.UPIIDs) != 1 {
			t.Fatalf("intelligence lost in transit: %+v", rep.Intelligence)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("report never delivered")
	}
}

func TestCollectorFullQueueDropsWithoutBlocking(t *testing.T) {
	// No worker started: the queue fills and further enqueues must drop.
	c := NewCollector("http://127.0.0.1:0", time.Second, 1)

	var events []string
	c.SetEventHook(func(e string) { events = append(events, e) })

	if !c.Enqueue(Report{ConversationID: "a"}) {
		t.Fatalf("first Enqueue() = false, want true")
	}

	done := make(chan bool, 1)
	go func() { done <- c.Enqueue(Report{ConversationID: "b"}) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("second Enqueue() = true, want drop")
		}
	case <-time.After(time.Second):
		t.Fatalf("Enqueue blocked on full queue")
	}

	want := []string{"enqueued", "dropped"}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

func TestCollectorDeliveryFailureStaysInternal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewCollector(ts.URL, time.Second, 4)
	c.retry = reliability.RetryPolicy{Attempts: 1, Base: time.Millisecond, Cap: time.Millisecond}
	failed := make(chan struct{}, 1)
	c.SetEventHook(func(e string) {
		if e == "failed" {
			failed <- struct{}{}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	c.Enqueue(Report{ConversationID: "conv-1"})
	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatalf("delivery failure was not observed")
	}
}

func TestCollectorRetriesTransientFailures(t *testing.T) {
	var calls int
	delivered := make(chan struct{}, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		delivered <- struct{}{}
	}))
	defer ts.Close()

	c := NewCollector(ts.URL, time.Second, 4)
	c.retry = reliability.RetryPolicy{Attempts: 3, Base: time.Millisecond, Cap: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	c.Enqueue(Report{ConversationID: "conv-1"})
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatalf("report not delivered after transient failure")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestNewFallsBackToNoop(t *testing.T) {
	if _, ok := New("", time.Second, 4).(Noop); !ok {
		t.Fatalf("New(\"\") did not return Noop")
	}
	if _, ok := New("http://collector.local/report", time.Second, 4).(*Collector); !ok {
		t.Fatalf("New(url) did not return Collector")
	}
}
