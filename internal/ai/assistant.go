package ai

import (
	"context"
	"strings"

	"github.com/spigell/ai-interviewer/internal/session"
)

// ContentGenerator is the minimal surface an LLM provider must expose. Both
// the Gemini and the OpenAI clients implement it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// InitialParams tune the initial question batch.
type InitialParams struct {
	Type       session.QuestionType
	Difficulty session.Difficulty
	Count      int
}

// PerformanceSummary describes the rolling performance used for difficulty
// adaptation.
type PerformanceSummary struct {
	AverageScore float64
	Direction    string // "harder" or "easier"
	RecentScores []int
}

// SessionContext is the slice of session state a dynamic question generation
// call is allowed to see.
type SessionContext struct {
	Profile        *session.SkillProfile
	Answered       int
	RecentScores   []int
	AskedQuestions []string
}

// QuestionSource supplies interview questions. Implementations may fail; the
// interview controller owns the fallback policy and never lets a source
// failure abort an interview.
type QuestionSource interface {
	// GenerateInitial returns an ordered batch of exactly params.Count questions.
	GenerateInitial(ctx context.Context, profile *session.SkillProfile, params InitialParams) ([]session.Question, error)
	// GenerateFollowup returns a follow-up for the answered question, or nil
	// when no follow-up is warranted. A nil question is not a failure.
	GenerateFollowup(ctx context.Context, original *session.Question, response string, profile *session.SkillProfile) (*session.Question, error)
	// AdaptRemaining rewrites the not-yet-asked questions to the summary's
	// difficulty direction, preserving order and length.
	AdaptRemaining(ctx context.Context, summary PerformanceSummary, remaining []session.Question, profile *session.SkillProfile) ([]session.Question, error)
	// GenerateDynamicNext produces one extra question when the planned queue
	// is exhausted, or nil when nothing useful remains to ask.
	GenerateDynamicNext(ctx context.Context, sctx SessionContext) (*session.Question, error)
}

// ResponseEvaluator scores a candidate answer. It must not mutate session
// state; failures are absorbed by the caller.
type ResponseEvaluator interface {
	Evaluate(ctx context.Context, q *session.Question, response string, profile *session.SkillProfile, history []*session.ResponseRecord) (*session.Evaluation, error)
}

// Greeter produces the conversational framing of an interview. Both methods
// are best-effort; callers substitute templated text on failure.
type Greeter interface {
	Greeting(ctx context.Context, profile *session.SkillProfile) (string, error)
	Conclusion(ctx context.Context, sess *session.Session) (string, error)
}

// Analysis is the holistic judgment of a completed interview consumed by the
// report assembler.
type Analysis struct {
	OverallPerformance      string                   `json:"overall_performance" mapstructure:"overall_performance"`
	TechnicalScore          int                      `json:"technical_score" mapstructure:"technical_score"`
	CommunicationScore      int                      `json:"communication_score" mapstructure:"communication_score"`
	ProblemSolvingScore     int                      `json:"problem_solving_score" mapstructure:"problem_solving_score"`
	KeyStrengths            []string                 `json:"key_strengths" mapstructure:"key_strengths"`
	ImprovementAreas        []string                 `json:"improvement_areas" mapstructure:"improvement_areas"`
	DemonstratedSkills      []string                 `json:"demonstrated_skills" mapstructure:"demonstrated_skills"`
	SkillGaps               []string                 `json:"skill_gaps" mapstructure:"skill_gaps"`
	HiringRecommendation    string                   `json:"hiring_recommendation" mapstructure:"hiring_recommendation"`
	RecommendationReasoning string                   `json:"recommendation_reasoning" mapstructure:"recommendation_reasoning"`
	NextInterviewFocus      []string                 `json:"next_interview_focus" mapstructure:"next_interview_focus"`
	RawSource               session.EvaluationSource `json:"raw_source" mapstructure:"-"`
}

// Analyst produces the holistic analysis of a completed interview.
type Analyst interface {
	Analyze(ctx context.Context, sess *session.Session) (*Analysis, error)
}

// SkillExtractor turns raw resume text into a skill profile. It sits upstream
// of the interview core.
type SkillExtractor interface {
	Extract(ctx context.Context, resumeText string) (*session.SkillProfile, error)
}

// Action is the closed set of next-step tags an evaluator response may carry.
type Action string

const (
	ActionNextQuestion    Action = "next_question"
	ActionFollowup        Action = "followup_question"
	ActionEndInterview    Action = "end_interview"
	ActionAdaptDifficulty Action = "adapt_difficulty"
)

// ParseAction validates a raw action tag against the closed set. Missing or
// unrecognized tags fall back to next_question.
func ParseAction(raw string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionFollowup:
		return ActionFollowup
	case ActionEndInterview:
		return ActionEndInterview
	case ActionAdaptDifficulty:
		return ActionAdaptDifficulty
	default:
		return ActionNextQuestion
	}
}
