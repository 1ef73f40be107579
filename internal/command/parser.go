// Package command turns free-text transcripts from the voice collaborator
// into actionable strategy intents.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Abdussalam-popsy/savvy-dca/internal/strategy"
)

// DefaultAmount is used when no amount can be found in the transcript.
const DefaultAmount = 100

// amountPattern matches the first integer followed by a currency-like token.
var amountPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(gas|usd|dollars?|bucks?|tokens?)\b`)

// Intent is the parsed result of a transcript.
type Intent struct {
	Strategy      strategy.Template `json:"strategy"`
	Amount        float64           `json:"amount"`
	MatchedName   bool              `json:"matchedName"`
	MatchedAmount bool              `json:"matchedAmount"`
}

// Parse heuristically extracts a strategy and weekly amount from a transcript.
// The strategy matches on catalog name or creator, case-insensitive; when
// nothing matches, the catalog's first entry with DefaultAmount is returned.
func Parse(text string, catalog *strategy.Catalog) Intent {
	intent := Intent{Strategy: catalog.First(), Amount: DefaultAmount}

	lower := strings.ToLower(text)
	for _, t := range catalog.Templates() {
		if strings.Contains(lower, strings.ToLower(t.Name)) ||
			strings.Contains(lower, strings.ToLower(t.Creator)) {
			intent.Strategy = t
			intent.MatchedName = true
			break
		}
	}

	if m := amountPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			intent.Amount = float64(v)
			intent.MatchedAmount = true
		}
	}

	return intent
}
