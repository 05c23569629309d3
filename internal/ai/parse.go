package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/ai-interviewer/internal/session"
)

// LLM responses are JSON by contract but arrive with markdown fences, quoted
// numbers and stray fields often enough that parsing has to be lenient. The
// helpers below strip fences, decode weakly typed maps into payload structs
// and normalize enum values against their closed sets.

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// decodeMap decodes a generic JSON map into a tagged payload struct, accepting
// quoted numbers and single values where lists are expected.
func decodeMap(input, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

type questionPayload struct {
	Question     string   `mapstructure:"question"`
	Type         string   `mapstructure:"type"`
	Difficulty   string   `mapstructure:"difficulty"`
	SkillsTested []string `mapstructure:"skills_tested"`
}

func (p *questionPayload) toQuestion(origin session.Origin) (session.Question, error) {
	text := strings.TrimSpace(p.Question)
	if text == "" {
		return session.Question{}, fmt.Errorf("question text is empty")
	}
	return session.Question{
		Text:         text,
		Type:         normalizeType(p.Type),
		Difficulty:   normalizeDifficulty(p.Difficulty),
		SkillsTested: p.SkillsTested,
		Origin:       origin,
	}, nil
}

func normalizeType(raw string) session.QuestionType {
	switch t := session.QuestionType(strings.ToLower(strings.TrimSpace(raw))); t {
	case session.TypeTechnical, session.TypeBehavioral, session.TypeSituational, session.TypeSystemDesign:
		return t
	default:
		return session.TypeGeneral
	}
}

func normalizeDifficulty(raw string) session.Difficulty {
	switch d := session.Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case session.DifficultyEasy, session.DifficultyHard:
		return d
	default:
		return session.DifficultyMedium
	}
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// parseQuestions parses a JSON array of question objects.
func parseQuestions(raw string, origin session.Origin) ([]session.Question, error) {
	cleaned := extractJSON(raw)

	var items []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("parse question list: %w", err)
	}

	questions := make([]session.Question, 0, len(items))
	for i, item := range items {
		var payload questionPayload
		if err := decodeMap(item, &payload); err != nil {
			return nil, fmt.Errorf("decode question %d: %w", i+1, err)
		}
		q, err := payload.toQuestion(origin)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions in response")
	}

	return questions, nil
}

// parseQuestion parses a single question object. A JSON null (or an object
// without question text) means "no question" and returns nil without error.
func parseQuestion(raw string, origin session.Origin) (*session.Question, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" || cleaned == "null" {
		return nil, nil
	}

	var item map[string]any
	if err := json.Unmarshal([]byte(cleaned), &item); err != nil {
		return nil, fmt.Errorf("parse question: %w", err)
	}

	var payload questionPayload
	if err := decodeMap(item, &payload); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}

	if strings.TrimSpace(payload.Question) == "" {
		return nil, nil
	}

	q, err := payload.toQuestion(origin)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

type evaluationPayload struct {
	Score            int      `mapstructure:"score"`
	Feedback         string   `mapstructure:"feedback"`
	Strengths        []string `mapstructure:"strengths"`
	Weaknesses       []string `mapstructure:"weaknesses"`
	NeedsFollowup    bool     `mapstructure:"needs_followup"`
	FollowupQuestion string   `mapstructure:"followup_question"`
	Action           string   `mapstructure:"action"`
}

// parseEvaluation parses an evaluator response into a typed Evaluation. The
// action tag is validated against the closed action set; an explicit followup
// action counts as a follow-up request even when needs_followup is absent.
func parseEvaluation(raw string) (*session.Evaluation, error) {
	cleaned := extractJSON(raw)

	var item map[string]any
	if err := json.Unmarshal([]byte(cleaned), &item); err != nil {
		return nil, fmt.Errorf("parse evaluation: %w", err)
	}

	var payload evaluationPayload
	if err := decodeMap(item, &payload); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	if payload.Score == 0 {
		return nil, fmt.Errorf("evaluation has no score")
	}

	eval := &session.Evaluation{
		Score:         clampScore(payload.Score),
		Feedback:      strings.TrimSpace(payload.Feedback),
		Strengths:     payload.Strengths,
		Weaknesses:    payload.Weaknesses,
		NeedsFollowup: payload.NeedsFollowup || ParseAction(payload.Action) == ActionFollowup,
		RawSource:     session.SourceAI,
	}

	if followup := strings.TrimSpace(payload.FollowupQuestion); followup != "" {
		eval.Followup = &session.Question{
			Text:       followup,
			Type:       session.TypeGeneral,
			Difficulty: session.DifficultyMedium,
			Origin:     session.OriginFollowup,
		}
	}

	return eval, nil
}

type analysisPayload struct {
	OverallPerformance      string   `mapstructure:"overall_performance"`
	TechnicalScore          int      `mapstructure:"technical_score"`
	CommunicationScore      int      `mapstructure:"communication_score"`
	ProblemSolvingScore     int      `mapstructure:"problem_solving_score"`
	KeyStrengths            []string `mapstructure:"key_strengths"`
	ImprovementAreas        []string `mapstructure:"improvement_areas"`
	DemonstratedSkills      []string `mapstructure:"demonstrated_skills"`
	SkillGaps               []string `mapstructure:"skill_gaps"`
	HiringRecommendation    string   `mapstructure:"hiring_recommendation"`
	RecommendationReasoning string   `mapstructure:"recommendation_reasoning"`
	NextInterviewFocus      []string `mapstructure:"next_interview_focus"`
}

func parseAnalysis(raw string) (*Analysis, error) {
	cleaned := extractJSON(raw)

	var item map[string]any
	if err := json.Unmarshal([]byte(cleaned), &item); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}

	var payload analysisPayload
	if err := decodeMap(item, &payload); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	if payload.TechnicalScore == 0 && payload.CommunicationScore == 0 && payload.ProblemSolvingScore == 0 {
		return nil, fmt.Errorf("analysis has no scores")
	}

	return &Analysis{
		OverallPerformance:      strings.TrimSpace(payload.OverallPerformance),
		TechnicalScore:          clampScore(payload.TechnicalScore),
		CommunicationScore:      clampScore(payload.CommunicationScore),
		ProblemSolvingScore:     clampScore(payload.ProblemSolvingScore),
		KeyStrengths:            payload.KeyStrengths,
		ImprovementAreas:        payload.ImprovementAreas,
		DemonstratedSkills:      payload.DemonstratedSkills,
		SkillGaps:               payload.SkillGaps,
		HiringRecommendation:    strings.TrimSpace(payload.HiringRecommendation),
		RecommendationReasoning: strings.TrimSpace(payload.RecommendationReasoning),
		NextInterviewFocus:      payload.NextInterviewFocus,
		RawSource:               session.SourceAI,
	}, nil
}

type profilePayload struct {
	PrimaryDomain   string   `mapstructure:"primary_domain"`
	ExperienceLevel string   `mapstructure:"experience_level"`
	TechnicalSkills []string `mapstructure:"technical_skills"`
	SoftSkills      []string `mapstructure:"soft_skills"`
	ConfidenceScore int      `mapstructure:"confidence_score"`
}

func parseProfile(raw string) (*session.SkillProfile, error) {
	cleaned := extractJSON(raw)

	var item map[string]any
	if err := json.Unmarshal([]byte(cleaned), &item); err != nil {
		return nil, fmt.Errorf("parse skill profile: %w", err)
	}

	var payload profilePayload
	if err := decodeMap(item, &payload); err != nil {
		return nil, fmt.Errorf("decode skill profile: %w", err)
	}

	profile := &session.SkillProfile{
		PrimaryDomain:   strings.TrimSpace(payload.PrimaryDomain),
		ExperienceLevel: normalizeLevel(payload.ExperienceLevel),
		TechnicalSkills: payload.TechnicalSkills,
		SoftSkills:      payload.SoftSkills,
		ConfidenceScore: payload.ConfidenceScore,
	}
	if profile.ConfidenceScore < 0 {
		profile.ConfidenceScore = 0
	}
	if profile.ConfidenceScore > 10 {
		profile.ConfidenceScore = 10
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}

	return profile, nil
}

func normalizeLevel(raw string) session.ExperienceLevel {
	switch l := session.ExperienceLevel(strings.ToLower(strings.TrimSpace(raw))); l {
	case session.LevelEntry, session.LevelJunior, session.LevelSenior, session.LevelLead:
		return l
	default:
		return session.LevelMid
	}
}
