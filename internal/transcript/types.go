package transcript

import (
	"context"
	"time"
)

// TurnRecord stores a single scammer or decoy conversational turn for audit.
type TurnRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Category       string    `json:"category,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store archives conversation turns. Persistence is best-effort: callers
// log failures and move on, the archive never gates a reply.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]TurnRecord, error)
	Close() error
}
