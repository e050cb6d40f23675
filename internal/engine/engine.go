package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satyarth42/scamtrap/internal/classify"
	"github.com/satyarth42/scamtrap/internal/feed"
	"github.com/satyarth42/scamtrap/internal/intel"
	"github.com/satyarth42/scamtrap/internal/notify"
	"github.com/satyarth42/scamtrap/internal/observability"
	"github.com/satyarth42/scamtrap/internal/persona"
	"github.com/satyarth42/scamtrap/internal/session"
	"github.com/satyarth42/scamtrap/internal/transcript"
)

// HistoryTurn is one prior conversation turn supplied by the caller.
type HistoryTurn struct {
	Sender string
	Text   string
}

// Request is the single logical inbound message contract.
type Request struct {
	ConversationID string
	Text           string
	History        []HistoryTurn
	// Ephemeral marks a placeholder conversation id: processed normally
	// but never forwarded to the collector.
	Ephemeral bool
}

// Result is the single logical outcome returned to the boundary layer.
type Result struct {
	ConversationID string
	IsScam         bool
	Confidence     float64
	Category       classify.Category
	Engaged        bool
	Reply          string
	TurnCount      int
	Intelligence   intel.Intelligence
	Reasoning      string
}

// Engine wires the classifier, extractor, responder, and session store
// into the per-message pipeline. It performs no blocking I/O on the
// request path; archive writes and collector dispatch are best-effort
// side channels.
type Engine struct {
	sessions   *session.Store
	classifier *classify.Classifier
	responder  *persona.Responder
	dispatcher notify.Dispatcher
	archive    transcript.Store
	hub        *feed.Hub
	metrics    *observability.Metrics
}

func New(
	sessions *session.Store,
	classifier *classify.Classifier,
	responder *persona.Responder,
	dispatcher notify.Dispatcher,
	archive transcript.Store,
	hub *feed.Hub,
	metrics *observability.Metrics,
) *Engine {
	return &Engine{
		sessions:   sessions,
		classifier: classifier,
		responder:  responder,
		dispatcher: dispatcher,
		archive:    archive,
		hub:        hub,
		metrics:    metrics,
	}
}

// HandleMessage runs one inbound message through the full pipeline:
// session lookup, classification, extraction over the accumulated
// transcript, and reply selection. It always produces a result; no
// internal failure surfaces to the caller.
func (e *Engine) HandleMessage(ctx context.Context, req Request) Result {
	ephemeral := req.Ephemeral
	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		id = "adhoc-" + uuid.NewString()
		ephemeral = true
	}

	now := time.Now().UTC()

	var (
		res      classify.Result
		engaged  bool
		reply    string
		intelRes intel.Intelligence
	)

	snap := e.sessions.Update(id, func(st *session.State) {
		if len(st.Turns) == 0 {
			seedHistory(st, req.History, now)
		}

		st.AppendTurn(session.RoleScammer, req.Text, now)
		st.TurnCount++

		res = e.classifier.Classify(req.Text, st)
		engaged = e.classifier.Engages(res)

		// Extraction always runs over the entire accumulated scammer-side
		// transcript on the original, case-preserved text.
		intelRes = intel.Extract(strings.Join(st.Transcript(session.RoleScammer), "\n"))

		if engaged {
			reply = e.responder.Reply(req.Text, res.Category, st)
		} else {
			reply = e.responder.Neutral()
		}
		st.AppendTurn(session.RoleDecoy, reply, time.Now().UTC())
	})

	e.archiveTurns(ctx, id, req.Text, reply, res.Category)
	e.publish(id, req.Text, reply, res)
	e.observe(res)

	reasoning := fmt.Sprintf("Low scam confidence (%.0f%%). Standard response provided.", res.Confidence*100)
	if engaged {
		reasoning = fmt.Sprintf("Scam detected: %s (confidence %.0f%%). Engaged %s persona to extract intelligence.",
			res.Category, res.Confidence*100, persona.ForCategory(res.Category))
	}

	if res.IsScam && !ephemeral {
		e.dispatcher.Enqueue(notify.Report{
			ConversationID: id,
			ScamDetected:   true,
			TotalMessages:  len(snap.Turns),
			Intelligence:   intelRes,
			AgentNotes:     reasoning,
		})
	}

	return Result{
		ConversationID: id,
		IsScam:         res.IsScam,
		Confidence:     res.Confidence,
		Category:       res.Category,
		Engaged:        engaged,
		Reply:          reply,
		TurnCount:      snap.TurnCount,
		Intelligence:   intelRes,
		Reasoning:      reasoning,
	}
}

func seedHistory(st *session.State, history []HistoryTurn, now time.Time) {
	for _, h := range history {
		role := session.RoleDecoy
		switch strings.ToLower(strings.TrimSpace(h.Sender)) {
		case "scammer", "user":
			role = session.RoleScammer
		}
		st.AppendTurn(role, h.Text, now)
	}
}

func (e *Engine) archiveTurns(ctx context.Context, id, inbound, reply string, cat classify.Category) {
	if e.archive == nil {
		return
	}
	records := []transcript.TurnRecord{
		{ConversationID: id, Role: string(session.RoleScammer), Content: inbound, Category: string(cat)},
		{ConversationID: id, Role: string(session.RoleDecoy), Content: reply, Category: string(cat)},
	}
	for _, r := range records {
		if err := e.archive.SaveTurn(ctx, r); err != nil {
			log.Printf("transcript archive failed for %s: %v", id, err)
			return
		}
	}
}

func (e *Engine) publish(id, inbound, reply string, res classify.Result) {
	if e.hub == nil {
		return
	}
	now := time.Now().UTC().UnixMilli()
	e.hub.Publish(feed.Event{
		Type:           feed.TypeMessageReceived,
		ConversationID: id,
		Role:           string(session.RoleScammer),
		Text:           inbound,
		TSMs:           now,
	})
	if res.IsScam {
		e.hub.Publish(feed.Event{
			Type:           feed.TypeScamVerdict,
			ConversationID: id,
			Category:       string(res.Category),
			Confidence:     res.Confidence,
			TSMs:           now,
		})
	}
	e.hub.Publish(feed.Event{
		Type:           feed.TypeDecoyReply,
		ConversationID: id,
		Role:           string(session.RoleDecoy),
		Text:           reply,
		TSMs:           now,
	})
}

func (e *Engine) observe(res classify.Result) {
	if e.metrics == nil {
		return
	}
	verdict := "benign"
	if res.IsScam {
		verdict = "scam"
		category := string(res.Category)
		if category == "" {
			category = "unknown"
		}
		e.metrics.ScamDetections.WithLabelValues(category).Inc()
	}
	e.metrics.Messages.WithLabelValues(verdict).Inc()
	e.metrics.Confidence.Observe(res.Confidence)
	e.metrics.ActiveConversations.Set(float64(e.sessions.Count()))
}

// Sessions exposes the session store for boundary-layer admin operations.
func (e *Engine) Sessions() *session.Store { return e.sessions }

// History returns the most recent archived turns for a conversation,
// oldest first. Without an archive it reports nothing rather than failing.
func (e *Engine) History(ctx context.Context, conversationID string, limit int) ([]transcript.TurnRecord, error) {
	if e.archive == nil {
		return nil, nil
	}
	return e.archive.RecentTurns(ctx, conversationID, limit)
}
