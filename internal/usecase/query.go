package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lexai/internal/domain"
	"lexai/internal/port"
)

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("query cannot be empty")

const (
	noDataResponse  = "I need more data to answer this accurately."
	noDataReasoning = "No relevant sections found in the Constitution."
	previewRunes    = 50
	historyMessages = 6
)

// Answer is the result of one handled query.
type Answer struct {
	SessionID string             `json:"session_id"`
	Query     string             `json:"query"`
	Response  string             `json:"response"`
	Sources   []domain.Candidate `json:"-"`
}

// QueryHandler answers questions: it retrieves passages, asks the LLM, and
// records the turn in the session and in chat history.
type QueryHandler struct {
	retriever   port.Retriever
	llm         port.LLM
	history     port.HistoryStore
	sessions    *SessionRegistry
	packer      port.Packer
	prompts     *PromptBuilder
	topK        int
	tokenBudget int
	timeout     time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// QueryOption configures a QueryHandler.
type QueryOption func(*QueryHandler)

// WithHistory persists every turn. Without it turns live only in the session.
func WithHistory(h port.HistoryStore) QueryOption {
	return func(q *QueryHandler) {
		q.history = h
	}
}

func WithTopK(k int) QueryOption {
	return func(q *QueryHandler) {
		if k > 0 {
			q.topK = k
		}
	}
}

func WithTokenBudget(n int) QueryOption {
	return func(q *QueryHandler) {
		q.tokenBudget = n
	}
}

// WithTimeout bounds retrieval plus generation for one query.
func WithTimeout(d time.Duration) QueryOption {
	return func(q *QueryHandler) {
		q.timeout = d
	}
}

func WithQueryLogger(logger *slog.Logger) QueryOption {
	return func(q *QueryHandler) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(
	retriever port.Retriever,
	llm port.LLM,
	sessions *SessionRegistry,
	packer port.Packer,
	opts ...QueryOption,
) (*QueryHandler, error) {
	prompts, err := NewPromptBuilder()
	if err != nil {
		return nil, err
	}
	h := &QueryHandler{
		retriever: retriever,
		llm:       llm,
		sessions:  sessions,
		packer:    packer,
		prompts:   prompts,
		topK:      5,
		now:       time.Now,
		logger:    slog.Default().With("component", "query"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Sessions exposes the registry.
func (h *QueryHandler) Sessions() *SessionRegistry {
	return h.sessions
}

// HandleQuery answers query within the given session, creating the session
// on first use. An empty sessionID starts a new session.
func (h *QueryHandler) HandleQuery(ctx context.Context, sessionID, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	session, _ := h.sessions.GetOrCreate(sessionID)
	prior := session.Recent(historyMessages)

	candidates, err := h.retriever.RetrieveScored(ctx, query, h.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	var response string
	if len(candidates) == 0 {
		response = formatResponse(noDataResponse, noDataReasoning)
	} else {
		packed := h.packer.Pack(query, candidates, h.tokenBudget)
		prompt, err := h.prompts.Answer(PromptData{
			Query:    query,
			Snippets: packed.Snippets,
			History:  prior,
		})
		if err != nil {
			return nil, err
		}

		text, err := h.llm.GenerateWithSystem(ctx, h.prompts.System(), prompt)
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		response = formatResponse(text, reasoning(candidates[0].Passage))
	}

	now := h.now()
	session.Append(domain.RoleUser, query, now)
	session.Append(domain.RoleAssistant, response, now)

	if h.history != nil {
		if err := h.history.SaveChat(ctx, session.ID, query, response); err != nil {
			h.logger.Error("failed to save chat", "session_id", session.ID, "err", err)
		}
	}

	return &Answer{
		SessionID: session.ID,
		Query:     query,
		Response:  response,
		Sources:   candidates,
	}, nil
}

// History returns the persisted turns of a session.
func (h *QueryHandler) History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	if h.history == nil {
		return []domain.ChatTurn{}, nil
	}
	return h.history.GetHistory(ctx, sessionID)
}

func formatResponse(answer, why string) string {
	return answer + "\n\n**Reasoning**: " + why
}

func reasoning(p domain.Passage) string {
	return fmt.Sprintf("I found this in passage %d (chapter %s) of the Constitution: '%s...'.",
		p.ID, p.Metadata.Chapter, preview(p.Content, previewRunes))
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
