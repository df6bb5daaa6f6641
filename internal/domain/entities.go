package domain

import "time"

// UnknownChapter is the chapter assigned to passages whose metadata omits one.
const UnknownChapter = "UNKNOWN"

// Metadata describes where a passage sits in the corpus.
type Metadata struct {
	Chapter             string `json:"chapter"`
	IsFundamentalRights bool   `json:"is_fundamental_rights"`
}

// Passage is one pre-chunked unit of the legal corpus. ID is its position in
// corpus order and is shared by every index built over the corpus.
type Passage struct {
	ID       int      `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Candidate is a passage under consideration during fusion. DenseDistance and
// SparseScore are nil when the passage was not surfaced by that index.
type Candidate struct {
	Passage       Passage
	DenseDistance *float64
	SparseScore   *float64
	Cosine        float64
	Boost         float64
	FusedScore    float64
}

// Message is one entry in a session's conversation log.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is a persisted query/response pair.
type ChatTurn struct {
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

type PackedContext struct {
	Query        string    `json:"query"`
	BudgetTokens int       `json:"budget_tokens"`
	UsedTokens   int       `json:"used_tokens"`
	Snippets     []Snippet `json:"snippets"`
}

type Snippet struct {
	PassageID int    `json:"passage_id"`
	Range     string `json:"range"`
	Chapter   string `json:"chapter"`
	Why       string `json:"why"`
	Text      string `json:"text"`
}
