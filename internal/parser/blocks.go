package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/conorfennell/examdeck/internal/domain"
)

var (
	blockMarker      = regexp.MustCompile(`(?im)^question\s+(\d+)`)
	answerLine       = regexp.MustCompile(`(?m)^Answer:[ \t]*([A-Z])[ \t]*$`)
	optionMarker     = regexp.MustCompile(`(?m)^([A-Z])\.`)
	explanationLabel = regexp.MustCompile(`^Explanation:\s*`)
)

// ParseBlocks extracts questions with the block strategy: the text is cut into
// chunks at each "QUESTION n" marker and every chunk is split once on its
// "Answer: X" line. Unlike Parse, a chunk that does not have exactly one
// answer line is dropped instead of being emitted half filled.
func ParseBlocks(text string) []domain.Question {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var questions []domain.Question
	markers := blockMarker.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}

		q, ok := parseBlock(text[loc[1]:end])
		if !ok {
			continue
		}
		q.Number, _ = strconv.Atoi(text[loc[2]:loc[3]])
		questions = append(questions, q)
	}
	return questions
}

// CountBlocks returns the number of question markers the block strategy sees,
// including the chunks it drops.
func CountBlocks(text string) int {
	return len(blockMarker.FindAllStringIndex(strings.ReplaceAll(text, "\r\n", "\n"), -1))
}

func parseBlock(chunk string) (domain.Question, bool) {
	var q domain.Question

	body := strings.TrimSpace(chunk)
	answers := answerLine.FindAllStringSubmatchIndex(body, -1)
	if len(answers) != 1 {
		return q, false
	}
	split := answers[0]
	head, tail := body[:split[0]], body[split[1]:]

	q.CorrectAnswer = body[split[2]:split[3]]
	q.Explanation = strings.TrimSpace(explanationLabel.ReplaceAllString(strings.TrimSpace(tail), ""))

	marks := optionMarker.FindAllStringSubmatchIndex(head, -1)
	if len(marks) == 0 {
		q.Text = strings.TrimSpace(head)
		return q, true
	}
	q.Text = strings.TrimSpace(head[:marks[0][0]])
	for i, m := range marks {
		end := len(head)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		q.Options.Set(head[m[2]:m[3]], strings.TrimSpace(head[m[1]:end]))
	}
	return q, true
}
