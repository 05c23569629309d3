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

//go:embed prompts/analysis.md
var analysisTemplate string

// InterviewAnalyst is the LLM-backed Analyst producing the holistic judgment
// of a completed interview.
type InterviewAnalyst struct {
	runner promptRunner
}

var _ Analyst = (*InterviewAnalyst)(nil)

func NewAnalyst(generator ContentGenerator, logger *zap.Logger, maxLogLength int) *InterviewAnalyst {
	return &InterviewAnalyst{runner: newPromptRunner(generator, logger, maxLogLength)}
}

func (a *InterviewAnalyst) Analyze(ctx context.Context, sess *session.Session) (*Analysis, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}

	profileJSON, err := json.MarshalIndent(sess.Profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	duration := "unknown"
	if !sess.StartTime.IsZero() && !sess.EndTime.IsZero() {
		duration = fmt.Sprintf("%d minutes", int(sess.EndTime.Sub(sess.StartTime).Minutes()))
	}

	prompt := strings.ReplaceAll(analysisTemplate, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{DURATION}}", duration)
	prompt = strings.ReplaceAll(prompt, "{{TRANSCRIPT}}", formatTranscript(sess.Responses))

	raw, err := a.runner.run(ctx, "analyze_interview", prompt)
	if err != nil {
		return nil, err
	}

	return parseAnalysis(raw)
}

func formatTranscript(responses []*session.ResponseRecord) string {
	if len(responses) == 0 {
		return "no answers recorded"
	}

	var b strings.Builder
	for i, record := range responses {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, record.QuestionText)
		fmt.Fprintf(&b, "A%d: %s\n", i+1, record.Response)
		if record.Evaluation != nil {
			fmt.Fprintf(&b, "Turn score: %d/10 (%s)\n", record.Evaluation.Score, record.Evaluation.RawSource)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
