package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/session"
)

//go:embed prompts/questions.md
var questionsTemplate string

//go:embed prompts/followup.md
var followupTemplate string

//go:embed prompts/adapt.md
var adaptTemplate string

//go:embed prompts/dynamic.md
var dynamicTemplate string

// Source is the LLM-backed QuestionSource. Failures propagate to the caller;
// the interview controller substitutes its deterministic fallbacks.
type Source struct {
	runner promptRunner
}

var _ QuestionSource = (*Source)(nil)

func NewQuestionSource(generator ContentGenerator, logger *zap.Logger, maxLogLength int) *Source {
	return &Source{runner: newPromptRunner(generator, logger, maxLogLength)}
}

func (s *Source) GenerateInitial(ctx context.Context, profile *session.SkillProfile, params InitialParams) ([]session.Question, error) {
	if params.Count <= 0 {
		return nil, fmt.Errorf("question count must be positive, got %d", params.Count)
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	prompt := strings.ReplaceAll(questionsTemplate, "{{COUNT}}", strconv.Itoa(params.Count))
	prompt = strings.ReplaceAll(prompt, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{TYPE}}", string(params.Type))
	prompt = strings.ReplaceAll(prompt, "{{DIFFICULTY}}", string(params.Difficulty))

	raw, err := s.runner.run(ctx, "generate_initial", prompt)
	if err != nil {
		return nil, err
	}

	questions, err := parseQuestions(raw, session.OriginPlanned)
	if err != nil {
		return nil, err
	}

	if len(questions) < params.Count {
		return nil, fmt.Errorf("got %d questions, want %d", len(questions), params.Count)
	}

	return questions[:params.Count], nil
}

func (s *Source) GenerateFollowup(ctx context.Context, original *session.Question, response string, profile *session.SkillProfile) (*session.Question, error) {
	questionJSON, err := json.MarshalIndent(original, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal question: %w", err)
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	prompt := strings.ReplaceAll(followupTemplate, "{{QUESTION_JSON}}", string(questionJSON))
	prompt = strings.ReplaceAll(prompt, "{{RESPONSE}}", response)
	prompt = strings.ReplaceAll(prompt, "{{PROFILE_JSON}}", string(profileJSON))

	raw, err := s.runner.run(ctx, "generate_followup", prompt)
	if err != nil {
		return nil, err
	}

	return parseQuestion(raw, session.OriginFollowup)
}

func (s *Source) AdaptRemaining(ctx context.Context, summary PerformanceSummary, remaining []session.Question, profile *session.SkillProfile) ([]session.Question, error) {
	if len(remaining) == 0 {
		return remaining, nil
	}

	questionsJSON, err := json.MarshalIndent(remaining, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal remaining questions: %w", err)
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	prompt := strings.ReplaceAll(adaptTemplate, "{{DIRECTION}}", summary.Direction)
	prompt = strings.ReplaceAll(prompt, "{{AVERAGE}}", fmt.Sprintf("%.1f", summary.AverageScore))
	prompt = strings.ReplaceAll(prompt, "{{SCORES}}", formatScores(summary.RecentScores))
	prompt = strings.ReplaceAll(prompt, "{{QUESTIONS_JSON}}", string(questionsJSON))
	prompt = strings.ReplaceAll(prompt, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{COUNT}}", strconv.Itoa(len(remaining)))

	raw, err := s.runner.run(ctx, "adapt_remaining", prompt)
	if err != nil {
		return nil, err
	}

	adapted, err := parseQuestions(raw, session.OriginAdapted)
	if err != nil {
		return nil, err
	}

	if len(adapted) != len(remaining) {
		return nil, fmt.Errorf("got %d adapted questions, want %d", len(adapted), len(remaining))
	}

	return adapted, nil
}

func (s *Source) GenerateDynamicNext(ctx context.Context, sctx SessionContext) (*session.Question, error) {
	profileJSON, err := json.MarshalIndent(sctx.Profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	askedJSON, err := json.MarshalIndent(sctx.AskedQuestions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal asked questions: %w", err)
	}

	prompt := strings.ReplaceAll(dynamicTemplate, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{ASKED_JSON}}", string(askedJSON))
	prompt = strings.ReplaceAll(prompt, "{{ANSWERED}}", strconv.Itoa(sctx.Answered))
	prompt = strings.ReplaceAll(prompt, "{{SCORES}}", formatScores(sctx.RecentScores))

	raw, err := s.runner.run(ctx, "generate_dynamic_next", prompt)
	if err != nil {
		return nil, err
	}

	return parseQuestion(raw, session.OriginAdapted)
}

func formatScores(scores []int) string {
	if len(scores) == 0 {
		return "none"
	}
	parts := make([]string, len(scores))
	for i, score := range scores {
		parts[i] = strconv.Itoa(score)
	}
	return strings.Join(parts, ", ")
}
