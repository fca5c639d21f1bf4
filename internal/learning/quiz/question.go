// Package quiz resolves exactly one multiple-choice question for a segment
// transcript. A remote generator is tried once; any failure falls back to a
// local topic-keyed bank that cannot fail.
package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

var ErrInvalidQuestion = errors.New("invalid question")

type Question struct {
	Question     string   `json:"question" yaml:"question"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correct_answer" yaml:"correct_answer"`
	Explanation  string   `json:"explanation" yaml:"explanation"`
}

// Validate reports whether q can be shown to a learner and answered.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidQuestion)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("%w: %d options, want %d", ErrInvalidQuestion, len(q.Options), OptionCount)
	}
	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidQuestion, i)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct_answer %d out of range", ErrInvalidQuestion, q.CorrectIndex)
	}
	if strings.TrimSpace(q.Explanation) == "" {
		return fmt.Errorf("%w: empty explanation", ErrInvalidQuestion)
	}
	return nil
}

// IsCorrect reports whether option is the right answer.
func (q Question) IsCorrect(option int) bool { return option == q.CorrectIndex }

// Clone returns a deep copy so callers can't alias a bank's options slice.
func (q Question) Clone() Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}

func (q Question) withTopic(topic string) Question {
	r := strings.NewReplacer("{{topic}}", topic)
	out := Question{
		Question:     r.Replace(q.Question),
		Options:      make([]string, len(q.Options)),
		CorrectIndex: q.CorrectIndex,
		Explanation:  r.Replace(q.Explanation),
	}
	for i, o := range q.Options {
		out.Options[i] = r.Replace(o)
	}
	return out
}
