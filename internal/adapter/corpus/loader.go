// Package corpus reads the pre-chunked legal corpus into a passage store.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lexai/internal/adapter/memstore"
	"lexai/internal/domain"
)

// LoadError reports a corpus that yielded no usable passages. The store
// returned alongside it is empty but still queryable.
type LoadError struct {
	Path    string
	Reason  string
	Skipped int
	Err     error
}

func (e *LoadError) Error() string {
	msg := "load corpus"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// Report summarizes a load.
type Report struct {
	Records int
	Loaded  int
	Skipped int
}

// Loader parses corpus JSON. Malformed records are skipped with a warning.
type Loader struct {
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for skip warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: slog.Default().With("component", "corpus")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads and parses the corpus at path.
func (l *Loader) LoadFile(path string) (*memstore.PassageStore, Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return memstore.NewPassageStore(nil), Report{}, &LoadError{Path: path, Reason: "unreadable", Err: err}
	}
	store, report, err := l.Load(data)
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		loadErr.Path = path
	}
	return store, report, err
}

// Load parses a JSON array of {content, metadata} records.
func (l *Loader) Load(data []byte) (*memstore.PassageStore, Report, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return memstore.NewPassageStore(nil), Report{}, &LoadError{Reason: "not a JSON array of records", Err: err}
	}

	report := Report{Records: len(records)}
	passages := make([]domain.Passage, 0, len(records))
	for i, raw := range records {
		p, err := parseRecord(raw)
		if err != nil {
			l.logger.Warn("skipping malformed corpus record", "index", i, "err", err)
			report.Skipped++
			continue
		}
		passages = append(passages, p)
	}
	report.Loaded = len(passages)

	store := memstore.NewPassageStore(passages)
	if report.Records > 0 && report.Loaded == 0 {
		return store, report, &LoadError{Reason: "no valid records", Skipped: report.Skipped}
	}
	return store, report, nil
}

type rawRecord struct {
	Content  *string         `json:"content"`
	Metadata json.RawMessage `json:"metadata"`
}

type rawMetadata struct {
	Chapter             *string         `json:"chapter"`
	IsFundamentalRights json.RawMessage `json:"is_fundamental_rights"`
}

var null = []byte("null")

func parseRecord(raw json.RawMessage) (domain.Passage, error) {
	var rec rawRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Passage{}, fmt.Errorf("record is not an object: %w", err)
	}
	if rec.Content == nil {
		return domain.Passage{}, errors.New("missing content")
	}
	if strings.TrimSpace(*rec.Content) == "" {
		return domain.Passage{}, errors.New("empty content")
	}
	if len(rec.Metadata) == 0 || bytes.Equal(bytes.TrimSpace(rec.Metadata), null) {
		return domain.Passage{}, errors.New("missing metadata")
	}

	var meta rawMetadata
	if err := json.Unmarshal(rec.Metadata, &meta); err != nil {
		return domain.Passage{}, fmt.Errorf("invalid metadata: %w", err)
	}

	chapter := domain.UnknownChapter
	if meta.Chapter != nil {
		chapter = *meta.Chapter
	}
	rights, err := parseFlag(meta.IsFundamentalRights)
	if err != nil {
		return domain.Passage{}, fmt.Errorf("invalid is_fundamental_rights: %w", err)
	}

	return domain.Passage{
		Content: *rec.Content,
		Metadata: domain.Metadata{
			Chapter:             chapter,
			IsFundamentalRights: rights,
		},
	}, nil
}

// parseFlag accepts 0, 1, true or false; absent means false.
func parseFlag(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case float64:
		switch x {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return false, fmt.Errorf("want 0, 1, true or false, got %s", string(raw))
}
