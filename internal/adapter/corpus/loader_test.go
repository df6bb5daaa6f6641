package corpus

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexai/internal/domain"
)

func quietLoader(buf *bytes.Buffer) *Loader {
	return NewLoader(WithLogger(slog.New(slog.NewTextHandler(buf, nil))))
}

func TestLoad_ValidRecords(t *testing.T) {
	data := []byte(`[
		{"content": "Every person has a right to life.", "metadata": {"chapter": "IV", "is_fundamental_rights": 1}},
		{"content": "The National Assembly shall consist of a Senate.", "metadata": {"chapter": "V", "is_fundamental_rights": 0}},
		{"content": "Citizens may move freely.", "metadata": {"chapter": "IV", "is_fundamental_rights": true}}
	]`)

	var logs bytes.Buffer
	store, report, err := quietLoader(&logs).Load(data)
	require.NoError(t, err)

	assert.Equal(t, Report{Records: 3, Loaded: 3}, report)
	require.Equal(t, 3, store.Size())

	p0, _ := store.Get(0)
	assert.Equal(t, 0, p0.ID)
	assert.Equal(t, domain.Metadata{Chapter: "IV", IsFundamentalRights: true}, p0.Metadata)

	p1, _ := store.Get(1)
	assert.False(t, p1.Metadata.IsFundamentalRights)

	p2, _ := store.Get(2)
	assert.True(t, p2.Metadata.IsFundamentalRights)
	assert.Empty(t, logs.String())
}

func TestLoad_SkipsMalformedRecords(t *testing.T) {
	data := []byte(`[
		{"content": "kept first", "metadata": {"chapter": "I", "is_fundamental_rights": 0}},
		{"metadata": {"chapter": "I"}},
		{"content": "   ", "metadata": {"chapter": "I"}},
		{"content": "no metadata"},
		{"content": "bad flag", "metadata": {"chapter": "I", "is_fundamental_rights": 2}},
		{"content": "bad chapter", "metadata": {"chapter": 12}},
		"not an object",
		{"content": "kept second", "metadata": {"is_fundamental_rights": 1}}
	]`)

	var logs bytes.Buffer
	store, report, err := quietLoader(&logs).Load(data)
	require.NoError(t, err)

	assert.Equal(t, 8, report.Records)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, 6, report.Skipped)
	assert.Contains(t, logs.String(), "skipping malformed corpus record")

	second, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 1, second.ID)
	assert.Equal(t, "kept second", second.Content)
	assert.Equal(t, domain.UnknownChapter, second.Metadata.Chapter)
	assert.True(t, second.Metadata.IsFundamentalRights)
}

func TestLoad_EmptyCorpus(t *testing.T) {
	store, report, err := NewLoader().Load([]byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Size())
	assert.Equal(t, 0, report.Records)
}

func TestLoad_AllMalformed(t *testing.T) {
	var logs bytes.Buffer
	store, _, err := quietLoader(&logs).Load([]byte(`[{"metadata": {}}, 3]`))

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 2, loadErr.Skipped)
	require.NotNil(t, store)
	assert.Equal(t, 0, store.Size())
}

func TestLoad_NotAnArray(t *testing.T) {
	store, _, err := NewLoader().Load([]byte(`{"content": "x"}`))

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 0, store.Size())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"content": "a b c", "metadata": {"chapter": "II"}}]`), 0644))

	store, report, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Size())
	assert.Equal(t, 1, report.Loaded)
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	store, _, err := NewLoader().LoadFile(path)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, path, loadErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, 0, store.Size())
}
