package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/satyarth42/scamtrap/internal/classify"
	"github.com/satyarth42/scamtrap/internal/config"
	"github.com/satyarth42/scamtrap/internal/engine"
	"github.com/satyarth42/scamtrap/internal/feed"
	"github.com/satyarth42/scamtrap/internal/intel"
	"github.com/satyarth42/scamtrap/internal/observability"
	"github.com/satyarth42/scamtrap/internal/session"
)

type Server struct {
	cfg      config.Config
	engine   *engine.Engine
	sessions *session.Store
	hub      *feed.Hub
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, eng *engine.Engine, sessions *session.Store, hub *feed.Hub, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		engine:   eng,
		sessions: sessions,
		hub:      hub,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser connections from the same origin unless
				// explicitly opened up; non-browser clients omit Origin.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)

		// Clients post to several historical paths; all funnel into one handler.
		r.Post("/api/honeypot", s.handleHoneypot)
		r.Post("/honeypot", s.handleHoneypot)
		r.Post("/", s.handleHoneypot)

		r.Post("/api/reset/{id}", s.handleReset)
		r.Get("/api/conversations", s.handleListConversations)
		r.Get("/api/conversations/{id}", s.handleConversationDetail)
		r.Get("/api/conversations/{id}/stream", s.handleStream)
	})

	return r
}

// requireAPIKey guards mutating and listing endpoints with the shared
// x-api-key header. An empty configured key disables the check entirely.
// Websocket clients may fall back to an api_key query parameter since
// browsers cannot set custom headers on upgrade requests.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := strings.TrimSpace(r.Header.Get("x-api-key"))
		if key == "" {
			key = strings.TrimSpace(r.URL.Query().Get("api_key"))
		}
		if key == "" {
			respondError(w, http.StatusUnauthorized, "missing_api_key", "x-api-key header is required")
			return
		}
		if key != s.cfg.APIKey {
			respondError(w, http.StatusUnauthorized, "invalid_api_key", "invalid API key provided")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":               "healthy",
		"active_conversations": s.sessions.Count(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// honeypotRequest accepts both observed wire shapes: the flat form
// {conversation_id, message: "...", conversation_history} and the nested
// form {sessionId, message: {sender, text, timestamp}, conversationHistory}.
type honeypotRequest struct {
	ConversationID string          `json:"conversation_id"`
	SessionID      string          `json:"sessionId"`
	Message        json.RawMessage `json:"message"`
	History        []historyEntry  `json:"conversation_history"`
	HistoryAlt     []historyEntry  `json:"conversationHistory"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Text    string `json:"text"`
}

type nestedMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type honeypotResponse struct {
	ConversationID        string             `json:"conversation_id"`
	Status                string             `json:"status"`
	IsScam                bool               `json:"is_scam"`
	Confidence            float64            `json:"confidence"`
	AgentEngaged          bool               `json:"agent_engaged"`
	ResponseMessage       string             `json:"response_message"`
	Reply                 string             `json:"reply"`
	TurnCount             int                `json:"turn_count"`
	ExtractedIntelligence intel.Intelligence `json:"extracted_intelligence"`
	ScamType              *string            `json:"scam_type"`
	Reasoning             string             `json:"reasoning"`
}

func (s *Server) handleHoneypot(w http.ResponseWriter, r *http.Request) {
	req := parseHoneypotRequest(r)
	res := s.engine.HandleMessage(r.Context(), req)

	var scamType *string
	if res.Category != classify.CategoryNone {
		v := string(res.Category)
		scamType = &v
	}

	respondJSON(w, http.StatusOK, honeypotResponse{
		ConversationID:        res.ConversationID,
		Status:                "success",
		IsScam:                res.IsScam,
		Confidence:            res.Confidence,
		AgentEngaged:          res.Engaged,
		ResponseMessage:       res.Reply,
		Reply:                 res.Reply,
		TurnCount:             res.TurnCount,
		ExtractedIntelligence: res.Intelligence,
		ScamType:              scamType,
		Reasoning:             res.Reasoning,
	})
}

// parseHoneypotRequest never fails: malformed or empty bodies degrade to
// an empty probe request, which the engine treats as benign.
func parseHoneypotRequest(r *http.Request) engine.Request {
	var req engine.Request
	if r.Body == nil {
		return req
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || len(body) == 0 {
		return req
	}

	var parsed honeypotRequest
	if err := json.Unmarshal(body, &parsed); err != nil {
		return req
	}

	req.ConversationID = strings.TrimSpace(parsed.ConversationID)
	if req.ConversationID == "" {
		req.ConversationID = strings.TrimSpace(parsed.SessionID)
	}
	req.Text = messageText(parsed.Message)

	history := parsed.History
	if len(history) == 0 {
		history = parsed.HistoryAlt
	}
	for _, h := range history {
		sender := h.Sender
		if sender == "" {
			sender = h.Role
		}
		text := h.Text
		if text == "" {
			text = h.Content
		}
		req.History = append(req.History, engine.HistoryTurn{Sender: sender, Text: text})
	}

	return req
}

func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var flat string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat
	}
	var nested nestedMessage
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.Text
	}
	return ""
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_conversation_id", "missing conversation id")
		return
	}

	if err := s.sessions.Reset(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			respondError(w, http.StatusNotFound, "conversation_not_found", "conversation "+id+" not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "reset_failed", err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveConversations.Set(float64(s.sessions.Count()))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "conversation " + id + " reset",
	})
}

// handleConversationDetail reports one conversation's live state plus its
// recent archived transcript.
func (s *Server) handleConversationDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_conversation_id", "missing conversation id")
		return
	}

	st, err := s.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			respondError(w, http.StatusNotFound, "conversation_not_found", "conversation "+id+" not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup_failed", err.Error())
		return
	}

	turns, err := s.engine.History(r.Context(), id, 100)
	if err != nil {
		log.Printf("transcript lookup failed for %s: %v", id, err)
		turns = nil
	}

	transcript := make([]map[string]any, 0, len(turns))
	for _, turn := range turns {
		transcript = append(transcript, map[string]any{
			"role":       turn.Role,
			"content":    turn.Content,
			"category":   turn.Category,
			"created_at": turn.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"turn_count":      st.TurnCount,
		"message_count":   len(st.Turns),
		"risk_flags":      st.FlagCount(),
		"started_at":      st.StartedAt,
		"transcript":      transcript,
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, _ *http.Request) {
	ids := s.sessions.List()
	details := make(map[string]any, len(ids))
	for _, id := range ids {
		st, err := s.sessions.Get(id)
		if err != nil {
			continue
		}
		details[id] = map[string]any{
			"turn_count":    st.TurnCount,
			"message_count": len(st.Turns),
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_conversations": len(ids),
		"conversation_ids":    ids,
		"details":             details,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
