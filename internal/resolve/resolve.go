// Package resolve repairs questions whose declared answer is missing or does
// not match any of their options.
package resolve

import (
	"strings"

	"github.com/conorfennell/examdeck/internal/domain"
)

// SyntheticOption is the text of the choice added when nothing else matches.
const SyntheticOption = "Added option"

// fallbackOrder is tried when the explanation names no option.
var fallbackOrder = []string{"D", "C", "B", "A"}

// Resolver applies answer overrides before repairing a question.
type Resolver struct {
	overrides map[int]string
}

// New returns a Resolver. overrides maps a question number, as printed in the
// source document, to the letter that should be treated as correct.
func New(overrides map[int]string) *Resolver {
	return &Resolver{overrides: overrides}
}

// Has reports whether an override exists for the question number.
func (r *Resolver) Has(number int) bool {
	letter, ok := r.overrides[number]
	return ok && letter != ""
}

// Resolve returns a copy of q whose correct answer is one of its options.
// It never fails and does not modify q.
func (r *Resolver) Resolve(q domain.Question) domain.Question {
	out := q.Clone()
	if letter, ok := r.overrides[q.Number]; ok && letter != "" {
		out.CorrectAnswer = letter
	}
	return repair(out)
}

// Resolve repairs q without overrides.
func Resolve(q domain.Question) domain.Question {
	return repair(q.Clone())
}

func repair(q domain.Question) domain.Question {
	if q.HasAnswer() {
		return q
	}

	explanation := strings.ToLower(q.Explanation)
	for _, opt := range q.Options {
		text := strings.ToLower(strings.TrimSpace(opt.Text))
		if text != "" && strings.Contains(explanation, text) {
			q.CorrectAnswer = opt.Key
			return q
		}
	}

	for _, key := range fallbackOrder {
		if q.Options.Has(key) {
			q.CorrectAnswer = key
			return q
		}
	}

	if q.CorrectAnswer == "" {
		if len(q.Options) > 0 {
			q.CorrectAnswer = q.Options[0].Key
			return q
		}
		q.CorrectAnswer = "A"
	}
	q.Options.Set(q.CorrectAnswer, SyntheticOption)
	return q
}
