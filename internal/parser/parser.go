package parser

import (
	"bufio"
	"io"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"github.com/conorfennell/examdeck/internal/domain"
)

const (
	answerPrefix      = "Answer:"
	explanationPrefix = "Explanation:"

	maxLineSize = 1 << 20
)

var (
	markerPattern = regexp.MustCompile(`(?i)^question\s+(\d+)`)
	answerPattern = regexp.MustCompile(`Answer:\s*([A-D])`)

	optionPrefixes = []string{"A.", "B.", "C.", "D."}
)

// ParseText runs the line strategy over already extracted text.
func ParseText(text string) []domain.Question {
	// A strings.Reader never fails, only an over-long line can.
	questions, _ := Parse(strings.NewReader(text))
	return questions
}

// Parse reads from an io.Reader and extracts all questions with the line strategy.
func Parse(r io.Reader) ([]domain.Question, error) {
	var questions []domain.Question
	for q, err := range Questions(r) {
		if err != nil {
			return questions, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// Questions scans r line by line and yields a question each time a block is
// closed by the next "QUESTION n" marker or by the end of input. Blocks are
// emitted as captured, including empty ones and ones without an answer.
// The sequence is single pass: r is consumed as it is iterated.
func Questions(r io.Reader) iter.Seq2[domain.Question, error] {
	return func(yield func(domain.Question, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		var current *domain.Question

		for scanner.Scan() {
			line := scanner.Text()

			if m := markerPattern.FindStringSubmatch(line); m != nil {
				if current != nil && !yield(*current, nil) {
					return
				}
				number, _ := strconv.Atoi(m[1])
				current = &domain.Question{Number: number}
				continue
			}
			if current == nil {
				continue
			}

			trimmed := strings.TrimSpace(line)
			isOption := hasOptionPrefix(trimmed)
			isAnswer := strings.HasPrefix(trimmed, answerPrefix)
			isExplanation := strings.HasPrefix(trimmed, explanationPrefix)

			// The first plain line of a block is the prompt.
			if current.Text == "" && !isOption && !isAnswer && !isExplanation {
				current.Text = trimmed
			}

			if isOption {
				current.Options.Set(trimmed[:1], strings.TrimSpace(trimmed[2:]))
			}

			if isAnswer {
				if m := answerPattern.FindStringSubmatch(trimmed); m != nil {
					current.CorrectAnswer = m[1]
				}
			}

			// Once started, the explanation absorbs every following line of the block.
			if isExplanation {
				current.Explanation = strings.TrimSpace(trimmed[len(explanationPrefix):])
			} else if current.Explanation != "" {
				current.Explanation += " " + trimmed
			}
		}

		if err := scanner.Err(); err != nil {
			yield(domain.Question{}, err)
			return
		}

		if current != nil {
			yield(*current, nil)
		}
	}
}

func hasOptionPrefix(line string) bool {
	for _, p := range optionPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
