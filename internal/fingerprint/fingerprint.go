package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/examdeck/internal/domain"
)

// Normalize concatenates the question's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them. The explanation and the question number are left out,
// so the same question reprinted with another number or a reworded
// explanation keeps its fingerprint.
func Normalize(q domain.Question) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	parts := []string{normalizePart(q.Text)}
	for _, opt := range q.Options {
		parts = append(parts, opt.Key+". "+normalizePart(opt.Text))
	}
	parts = append(parts, "answer: "+q.CorrectAnswer)

	// Joined with newlines so "ab"+"c" and "a"+"bc" do not collide.
	return strings.Join(parts, "\n")
}

// Hash takes a question, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(q domain.Question) string {
	normalized := Normalize(q)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
