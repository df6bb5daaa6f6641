package retriever

import (
	"strings"

	"lexai/internal/domain"
)

// DefaultBoostWeight is the score shift applied to fundamental-rights passages.
const DefaultBoostWeight = 0.5

// RightsKeywords mark a query as being about rights. Matching is a
// case-insensitive substring test against the raw query text.
var RightsKeywords = []string{
	"rights",
	"human rights",
	"fundamental rights",
	"freedom",
	"liberty",
}

// boostSign maps (rights query, fundamental-rights passage) to the direction
// of the adjustment. Missing entries mean no adjustment.
var boostSign = map[[2]bool]float64{
	{true, true}:  +1,
	{false, true}: -1,
}

// IsRightsQuery reports whether query mentions any rights keyword.
func IsRightsQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range RightsKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// DomainBoost returns the fused-score adjustment for a passage: +weight for
// fundamental-rights passages under a rights query, -weight for them under
// any other query, and 0 for every other passage.
func DomainBoost(rightsQuery bool, meta domain.Metadata, weight float64) float64 {
	return boostSign[[2]bool{rightsQuery, meta.IsFundamentalRights}] * weight
}
