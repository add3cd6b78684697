// Package lexical scores pins by term overlap with the prompt. It is
// the default evaluator when no scoring service is configured.
package lexical

import (
	"context"
	"fmt"
	"strings"

	"github.com/pinfeed/curator/pkg/evaluator"
	"github.com/pinfeed/curator/pkg/models"
)

type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate scores the fraction of prompt terms found in the pin's title
// and description. A pin is approved when the score reaches the
// approval threshold.
func (e *Evaluator) Evaluate(_ context.Context, prompt *models.Prompt, pin *models.Pin) (*evaluator.Verdict, error) {
	terms := tokenize(prompt.Text)
	if len(terms) == 0 {
		return &evaluator.Verdict{Rationale: "prompt has no scorable terms"}, nil
	}

	haystack := strings.ToLower(pin.Title + " " + pin.Description)
	hits := 0

	for _, term := range terms {
		if strings.Contains(haystack, term) {
			hits++
		}
	}

	score := float64(hits) / float64(len(terms))

	return &evaluator.Verdict{
		Score:     score,
		Approved:  score >= models.ApprovalThreshold,
		Rationale: fmt.Sprintf("matched %d of %d prompt terms", hits, len(terms)),
	}, nil
}

func tokenize(text string) []string {
	seen := make(map[string]struct{})

	var terms []string

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" {
			continue
		}

		if _, ok := seen[word]; ok {
			continue
		}

		seen[word] = struct{}{}
		terms = append(terms, word)
	}

	return terms
}
