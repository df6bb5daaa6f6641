package usecase

import (
	"fmt"
	"sort"
	"strings"

	"lexai/internal/domain"
	"lexai/internal/port"
)

// PackUseCase packs ranked passages into prompt context under a token budget.
type PackUseCase struct {
	tokenizer port.Tokenizer
}

// NewPackUseCase creates a new pack use case.
func NewPackUseCase(tokenizer port.Tokenizer) *PackUseCase {
	return &PackUseCase{tokenizer: tokenizer}
}

// Pack walks candidates in rank order and keeps each one that still fits the
// budget. Kept passages that are consecutive in the corpus and share a
// chapter are merged into one snippet. A budget <= 0 means no limit.
func (u *PackUseCase) Pack(query string, candidates []domain.Candidate, budget int) domain.PackedContext {
	packed := domain.PackedContext{
		Query:        query,
		BudgetTokens: budget,
		Snippets:     []domain.Snippet{},
	}
	if len(candidates) == 0 {
		return packed
	}

	selected := make([]domain.Candidate, 0, len(candidates))
	used := 0
	for _, c := range candidates {
		tokens := u.tokenizer.CountTokens(c.Passage.Content)
		if tokens == 0 {
			tokens = 1
		}
		if budget > 0 && used+tokens > budget {
			continue // Skip if it would exceed budget
		}
		selected = append(selected, c)
		used += tokens
	}

	for _, g := range mergeAdjacent(selected) {
		packed.Snippets = append(packed.Snippets, g.snippet())
	}

	packed.UsedTokens = 0
	for _, s := range packed.Snippets {
		packed.UsedTokens += u.tokenizer.CountTokens(s.Text)
	}
	return packed
}

// passageRun is a run of consecutive passages from one chapter.
type passageRun struct {
	members []domain.Candidate
	best    domain.Candidate
	rank    int
}

func (g passageRun) snippet() domain.Snippet {
	first := g.members[0].Passage
	last := g.members[len(g.members)-1].Passage

	rng := fmt.Sprintf("%d", first.ID)
	if last.ID != first.ID {
		rng = fmt.Sprintf("%d-%d", first.ID, last.ID)
	}

	texts := make([]string, len(g.members))
	for i, m := range g.members {
		texts[i] = m.Passage.Content
	}

	return domain.Snippet{
		PassageID: first.ID,
		Range:     rng,
		Chapter:   first.Metadata.Chapter,
		Why:       fmt.Sprintf("fused score %.3f (cosine %.3f, boost %+.1f)", g.best.FusedScore, g.best.Cosine, g.best.Boost),
		Text:      strings.Join(texts, "\n"),
	}
}

// mergeAdjacent groups selected passages into runs and orders the runs by
// the rank of their best member.
func mergeAdjacent(selected []domain.Candidate) []passageRun {
	if len(selected) == 0 {
		return nil
	}

	rank := make(map[int]int, len(selected))
	for i, c := range selected {
		rank[c.Passage.ID] = i
	}

	byID := append([]domain.Candidate(nil), selected...)
	sort.Slice(byID, func(i, j int) bool {
		return byID[i].Passage.ID < byID[j].Passage.ID
	})

	var runs []passageRun
	for _, c := range byID {
		n := len(runs)
		if n > 0 {
			prev := runs[n-1].members[len(runs[n-1].members)-1].Passage
			if c.Passage.ID == prev.ID+1 && c.Passage.Metadata.Chapter == prev.Metadata.Chapter {
				runs[n-1].members = append(runs[n-1].members, c)
				if r := rank[c.Passage.ID]; r < runs[n-1].rank {
					runs[n-1].rank = r
					runs[n-1].best = c
				}
				continue
			}
		}
		runs = append(runs, passageRun{
			members: []domain.Candidate{c},
			best:    c,
			rank:    rank[c.Passage.ID],
		})
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].rank < runs[j].rank
	})
	return runs
}
