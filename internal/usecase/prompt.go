package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"lexai/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// PromptData is the input to the answer template.
type PromptData struct {
	Query    string
	Snippets []domain.Snippet
	History  []domain.Message
}

// PromptBuilder renders the system and answer prompts.
type PromptBuilder struct {
	system string
	answer *template.Template
}

func NewPromptBuilder() (*PromptBuilder, error) {
	system, err := promptTemplates.ReadFile("templates/system_prompt.txt")
	if err != nil {
		return nil, fmt.Errorf("read system prompt: %w", err)
	}
	answer, err := template.ParseFS(promptTemplates, "templates/answer_prompt.txt")
	if err != nil {
		return nil, fmt.Errorf("parse answer prompt: %w", err)
	}
	return &PromptBuilder{
		system: strings.TrimSpace(string(system)),
		answer: answer,
	}, nil
}

func (b *PromptBuilder) System() string {
	return b.system
}

func (b *PromptBuilder) Answer(data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := b.answer.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render answer prompt: %w", err)
	}
	return buf.String(), nil
}
