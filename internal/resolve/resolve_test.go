package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/examdeck/internal/domain"
)

func abcd() domain.Options {
	return domain.Options{
		{Key: "A", Text: "Firewall"},
		{Key: "B", Text: "Full disk encryption"},
		{Key: "C", Text: "Antivirus"},
		{Key: "D", Text: "VPN"},
	}
}

func TestResolveValidQuestionIsNoOp(t *testing.T) {
	q := domain.Question{Text: "Pick", Options: abcd(), CorrectAnswer: "C", Explanation: "full disk encryption is wrong here"}
	assert.Equal(t, q, Resolve(q))
}

func TestResolveFromExplanation(t *testing.T) {
	q := domain.Question{
		Text:          "Which protects data at rest?",
		Options:       abcd(),
		CorrectAnswer: "Z",
		Explanation:   "Using FULL DISK ENCRYPTION protects a stolen laptop.",
	}

	got := Resolve(q)
	assert.Equal(t, "B", got.CorrectAnswer)
	assert.Equal(t, abcd(), got.Options)
	assert.Equal(t, "Z", q.CorrectAnswer, "input must not be modified")
}

func TestResolveExplanationFirstMatchWins(t *testing.T) {
	q := domain.Question{
		Options: domain.Options{
			{Key: "A", Text: "log"},
			{Key: "B", Text: "logs"},
		},
		Explanation: "Review the logs.",
	}
	assert.Equal(t, "A", Resolve(q).CorrectAnswer)
}

func TestResolveFallbackOrder(t *testing.T) {
	q := domain.Question{
		Options: domain.Options{
			{Key: "A", Text: "one"},
			{Key: "B", Text: "two"},
			{Key: "C", Text: "three"},
		},
		CorrectAnswer: "E",
		Explanation:   "nothing relevant",
	}
	assert.Equal(t, "C", Resolve(q).CorrectAnswer)
}

func TestResolveSyntheticOption(t *testing.T) {
	t.Run("declared answer outside A-D", func(t *testing.T) {
		q := domain.Question{
			Options:       domain.Options{{Key: "E", Text: "five"}},
			CorrectAnswer: "F",
		}
		got := Resolve(q)
		require.True(t, got.HasAnswer())
		assert.Equal(t, "F", got.CorrectAnswer)
		assert.Equal(t, domain.Options{{Key: "E", Text: "five"}, {Key: "F", Text: SyntheticOption}}, got.Options)
		assert.Len(t, q.Options, 1, "input options must not be modified")
	})

	t.Run("no options and no answer", func(t *testing.T) {
		got := Resolve(domain.Question{Text: "Empty"})
		require.True(t, got.HasAnswer())
		assert.Equal(t, "A", got.CorrectAnswer)
	})

	t.Run("no answer with unusual keys", func(t *testing.T) {
		got := Resolve(domain.Question{Options: domain.Options{{Key: "F", Text: "six"}, {Key: "G", Text: "seven"}}})
		assert.Equal(t, "F", got.CorrectAnswer)
		assert.Len(t, got.Options, 2)
	})
}

func TestResolveAlwaysSatisfiesInvariant(t *testing.T) {
	inputs := []domain.Question{
		{},
		{CorrectAnswer: "B"},
		{Options: abcd()},
		{Options: abcd(), CorrectAnswer: "Q", Explanation: "vpn"},
		{Options: domain.Options{{Key: "A", Text: ""}}, CorrectAnswer: "B", Explanation: "anything"},
	}
	for _, in := range inputs {
		got := Resolve(in)
		assert.True(t, got.HasAnswer(), "unresolved: %+v", got)
		assert.Equal(t, got, Resolve(got), "resolving twice must be a no-op")
	}
}

func TestResolverOverrides(t *testing.T) {
	r := New(map[int]string{1: "D", 3: "B", 4: "X"})

	t.Run("override wins over declared answer", func(t *testing.T) {
		got := r.Resolve(domain.Question{Number: 1, Options: abcd(), CorrectAnswer: "A"})
		assert.Equal(t, "D", got.CorrectAnswer)
	})

	t.Run("unknown number keeps declared answer", func(t *testing.T) {
		got := r.Resolve(domain.Question{Number: 2, Options: abcd(), CorrectAnswer: "A"})
		assert.Equal(t, "A", got.CorrectAnswer)
	})

	t.Run("override outside options is repaired", func(t *testing.T) {
		got := r.Resolve(domain.Question{Number: 4, Options: abcd(), CorrectAnswer: "A"})
		assert.Equal(t, "D", got.CorrectAnswer)
	})
}
