package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/learnquest-backend/internal/platform/logger"
	"github.com/yungbote/learnquest-backend/internal/platform/openai"
)

// Generator produces a question remotely. Implementations may fail; the
// Resolver handles every failure by falling back to the bank.
type Generator interface {
	Generate(ctx context.Context, transcript string) (Question, error)
}

var ErrMalformedResponse = errors.New("malformed quiz response")

const (
	remoteSchemaName = "segment_quiz"

	remoteSystemPrompt = `You are an educational quiz generator. Generate exactly 1 multiple-choice question based on the provided transcript.
The question must test understanding of key concepts from the transcript.
Give exactly 4 options, the zero-based index of the correct option in correct_answer, and a short explanation of why it is correct.`
)

func remoteSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"question", "options", "correct_answer", "explanation"},
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":     "array",
							"minItems": OptionCount,
							"maxItems": OptionCount,
							"items":    map[string]any{"type": "string"},
						},
						"correct_answer": map[string]any{"type": "integer", "minimum": 0, "maximum": OptionCount - 1},
						"explanation":    map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

type remoteGenerator struct {
	log    *logger.Logger
	client openai.Client
}

// NewRemoteGenerator wraps an OpenAI client. The client should be built with
// MaxRetries 0: one attempt, then fallback.
func NewRemoteGenerator(log *logger.Logger, client openai.Client) Generator {
	return &remoteGenerator{log: log.With("service", "RemoteQuizGenerator"), client: client}
}

func (g *remoteGenerator) Generate(ctx context.Context, transcript string) (Question, error) {
	user := "Generate a quiz question based on this transcript: " + strings.TrimSpace(transcript)
	obj, err := g.client.GenerateJSON(ctx, remoteSystemPrompt, user, remoteSchemaName, remoteSchema())
	if err != nil {
		return Question{}, fmt.Errorf("generate quiz: %w", err)
	}
	return DecodeQuestions(obj)
}

type wireQuestion struct {
	Question    *string  `json:"question"`
	Options     []string `json:"options"`
	Correct     *int     `json:"correct_answer"`
	Explanation *string  `json:"explanation"`
}

// DecodeQuestions extracts the first question of a
// {"questions":[{question, options, correct_answer, explanation}]} object.
// Any other shape, a missing field or an invalid question is an error.
func DecodeQuestions(obj map[string]any) (Question, error) {
	raw, ok := obj["questions"]
	if !ok {
		return Question{}, fmt.Errorf("%w: missing questions", ErrMalformedResponse)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return Question{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var qs []wireQuestion
	if err := json.Unmarshal(b, &qs); err != nil {
		return Question{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(qs) == 0 {
		return Question{}, fmt.Errorf("%w: empty questions", ErrMalformedResponse)
	}
	w := qs[0]
	if w.Question == nil || w.Options == nil || w.Correct == nil || w.Explanation == nil {
		return Question{}, fmt.Errorf("%w: missing required field", ErrMalformedResponse)
	}
	q := Question{
		Question:     strings.TrimSpace(*w.Question),
		Options:      w.Options,
		CorrectIndex: *w.Correct,
		Explanation:  strings.TrimSpace(*w.Explanation),
	}
	if err := q.Validate(); err != nil {
		return Question{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return q, nil
}
