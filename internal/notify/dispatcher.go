package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/satyarth42/scamtrap/internal/intel"
	"github.com/satyarth42/scamtrap/internal/reliability"
)

// Report is the payload handed to the external evaluation collector when a
// conversation is classified as a scam.
type Report struct {
	ConversationID string             `json:"conversation_id"`
	ScamDetected   bool               `json:"scam_detected"`
	TotalMessages  int                `json:"total_messages"`
	Intelligence   intel.Intelligence `json:"extracted_intelligence"`
	AgentNotes     string             `json:"agent_notes"`
}

// Dispatcher accepts reports for out-of-band delivery. Enqueue must never
// block the caller; false means the report was not accepted.
type Dispatcher interface {
	Enqueue(Report) bool
}

// Noop discards every report. Used when no collector is configured.
type Noop struct{}

func (Noop) Enqueue(Report) bool { return false }

// Collector delivers reports to an HTTP endpoint from a single worker
// draining a bounded queue. Delivery is fire-and-forget: a full queue
// drops, a failed POST is logged, and neither ever reaches the caller.
type Collector struct {
	url     string
	client  *http.Client
	queue   chan Report
	retry   reliability.RetryPolicy
	onEvent func(event string)
}

func NewCollector(url string, timeout time.Duration, queueSize int) *Collector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Collector{
		url:    url,
		client: &http.Client{Timeout: timeout},
		queue:  make(chan Report, queueSize),
		retry:  reliability.DefaultRetryPolicy(),
	}
}

// SetEventHook installs an observer for queue/delivery events
// ("enqueued", "dropped", "delivered", "failed").
func (c *Collector) SetEventHook(hook func(event string)) {
	c.onEvent = hook
}

func (c *Collector) event(name string) {
	if c.onEvent != nil {
		c.onEvent(name)
	}
}

// Enqueue hands a report to the delivery worker without blocking.
func (c *Collector) Enqueue(r Report) bool {
	select {
	case c.queue <- r:
		c.event("enqueued")
		return true
	default:
		c.event("dropped")
		log.Printf("collector queue full, dropping report for %s", r.ConversationID)
		return false
	}
}

// Start runs the delivery worker until ctx is done.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-c.queue:
				if err := c.deliver(ctx, r); err != nil {
					c.event("failed")
					log.Printf("collector delivery failed for %s: %v", r.ConversationID, err)
					continue
				}
				c.event("delivered")
			}
		}
	}()
}

// deliver posts the report, retrying transient failures per the retry
// policy. Context cancellation aborts between attempts.
func (c *Collector) deliver(ctx context.Context, r Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retry.Backoff(attempt - 1)):
			}
		}

		retryable, err := c.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

func (c *Collector) post(ctx context.Context, body []byte) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return true, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return reliability.RetryableStatus(res.StatusCode), fmt.Errorf("collector returned status %d", res.StatusCode)
	}
	return false, nil
}

// New picks a collector when a URL is configured, otherwise a noop.
func New(url string, timeout time.Duration, queueSize int) Dispatcher {
	if strings.TrimSpace(url) == "" {
		return Noop{}
	}
	return NewCollector(url, timeout, queueSize)
}
