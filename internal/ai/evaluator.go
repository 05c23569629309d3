package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/session"
)

//go:embed prompts/evaluate.md
var evaluateTemplate string

// historyWindow bounds how many earlier exchanges are replayed into the
// evaluation prompt.
const historyWindow = 5

// Evaluator is the LLM-backed ResponseEvaluator.
type Evaluator struct {
	runner promptRunner
}

var _ ResponseEvaluator = (*Evaluator)(nil)

func NewResponseEvaluator(generator ContentGenerator, logger *zap.Logger, maxLogLength int) *Evaluator {
	return &Evaluator{runner: newPromptRunner(generator, logger, maxLogLength)}
}

func (e *Evaluator) Evaluate(ctx context.Context, q *session.Question, response string, profile *session.SkillProfile, history []*session.ResponseRecord) (*session.Evaluation, error) {
	if q == nil {
		return nil, fmt.Errorf("question is required")
	}

	questionJSON, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal question: %w", err)
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	prompt := strings.ReplaceAll(evaluateTemplate, "{{QUESTION_JSON}}", string(questionJSON))
	prompt = strings.ReplaceAll(prompt, "{{RESPONSE}}", response)
	prompt = strings.ReplaceAll(prompt, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{HISTORY}}", formatHistory(history))

	raw, err := e.runner.run(ctx, "evaluate", prompt)
	if err != nil {
		return nil, err
	}

	eval, err := parseEvaluation(raw)
	if err != nil {
		return nil, err
	}

	// A follow-up suggested by the evaluator inherits the difficulty of the
	// question it probes.
	if eval.Followup != nil {
		eval.Followup.Difficulty = q.Difficulty
		eval.Followup.Type = q.Type
	}

	return eval, nil
}

func formatHistory(history []*session.ResponseRecord) string {
	if len(history) == 0 {
		return "none"
	}

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}

	var b strings.Builder
	for i, record := range history[start:] {
		fmt.Fprintf(&b, "Q%d: %s\n", start+i+1, record.QuestionText)
		fmt.Fprintf(&b, "A%d: %s\n", start+i+1, record.Response)
	}
	return strings.TrimSpace(b.String())
}
