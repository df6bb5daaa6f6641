package port

import (
	"context"

	"lexai/internal/domain"
)

// HistoryStore persists chat turns per session.
type HistoryStore interface {
	SaveChat(ctx context.Context, sessionID, query, response string) error

	// GetHistory returns a session's turns, oldest first.
	GetHistory(ctx context.Context, sessionID string) ([]domain.ChatTurn, error)

	Close() error
}
