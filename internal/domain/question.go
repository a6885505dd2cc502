package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Option is a single lettered choice of a multiple-choice question.
type Option struct {
	Key  string `json:"key" validate:"required,len=1"`
	Text string `json:"text"`
}

// Options is an ordered set of choices. Order is display order and keys are unique.
type Options []Option

// Get returns the text for key and whether it exists.
func (o Options) Get(key string) (string, bool) {
	for _, opt := range o {
		if opt.Key == key {
			return opt.Text, true
		}
	}
	return "", false
}

// Has reports whether key is one of the choices.
func (o Options) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set overwrites the text of an existing key in place, or appends a new choice.
func (o *Options) Set(key, text string) {
	for i := range *o {
		if (*o)[i].Key == key {
			(*o)[i].Text = text
			return
		}
	}
	*o = append(*o, Option{Key: key, Text: text})
}

// Keys returns the option letters in display order.
func (o Options) Keys() []string {
	keys := make([]string, len(o))
	for i, opt := range o {
		keys[i] = opt.Key
	}
	return keys
}

// Clone returns a copy that shares no backing array with o.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	copy(out, o)
	return out
}

// MarshalJSON encodes the options as an array so order survives a round trip.
func (o Options) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Option(o))
}

// Question is a multiple-choice exam question.
type Question struct {
	ID            int64   `json:"id"`
	Number        int     `json:"number"`
	Text          string  `json:"text" validate:"required"`
	Options       Options `json:"options" validate:"dive"`
	CorrectAnswer string  `json:"correct_answer,omitempty"`
	Explanation   string  `json:"explanation,omitempty"`
	Hash          string  `json:"hash,omitempty"`
}

// Clone returns a deep copy of q.
func (q Question) Clone() Question {
	q.Options = q.Options.Clone()
	return q
}

// Validate checks that q is complete enough to be stored: a prompt, well-formed
// option keys and a correct answer that is one of the options.
func (q Question) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("invalid question: %w", err)
	}
	if !q.HasAnswer() {
		return fmt.Errorf("invalid question: answer %q is not one of %v", q.CorrectAnswer, q.Options.Keys())
	}
	return nil
}

// HasAnswer reports whether the correct answer is one of the options.
func (q Question) HasAnswer() bool {
	return q.CorrectAnswer != "" && q.Options.Has(q.CorrectAnswer)
}

// IsEmpty reports whether nothing was captured for the question.
func (q Question) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == "" && len(q.Options) == 0 &&
		q.CorrectAnswer == "" && q.Explanation == ""
}

func (q Question) String() string {
	return fmt.Sprintf("question %d (#%d, %d options, answer %q)", q.ID, q.Number, len(q.Options), q.CorrectAnswer)
}
