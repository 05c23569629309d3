package interview

import (
	"fmt"
	"strings"

	"github.com/spigell/ai-interviewer/internal/session"
)

// This file is the complete fallback policy of the interview core. Every
// upstream degradation (failed call, timeout, unusable payload) resolves to
// one of the deterministic substitutes below, tagged with
// session.SourceFallback where reporting needs to discount it.

// fallbackScoreWordThreshold separates short answers from substantial ones
// when no AI evaluation is available.
const fallbackScoreWordThreshold = 20

func fallbackEvaluation(response string) *session.Evaluation {
	score := 4
	if len(strings.Fields(response)) > fallbackScoreWordThreshold {
		score = 6
	}
	return &session.Evaluation{
		Score:         score,
		Feedback:      "Response recorded and noted.",
		NeedsFollowup: false,
		RawSource:     session.SourceFallback,
	}
}

func fallbackQuestions() []session.Question {
	return []session.Question{
		{
			Text:         "Tell me about yourself and your background.",
			Type:         session.TypeGeneral,
			Difficulty:   session.DifficultyEasy,
			SkillsTested: []string{"communication"},
			Origin:       session.OriginFallback,
		},
		{
			Text:         "Describe a challenging project you worked on recently.",
			Type:         session.TypeBehavioral,
			Difficulty:   session.DifficultyMedium,
			SkillsTested: []string{"problem solving"},
			Origin:       session.OriginFallback,
		},
		{
			Text:         "How do you approach learning new technologies?",
			Type:         session.TypeBehavioral,
			Difficulty:   session.DifficultyEasy,
			SkillsTested: []string{"learning agility"},
			Origin:       session.OriginFallback,
		},
	}
}

func fallbackGreeting(profile *session.SkillProfile) string {
	domain := "your field"
	if profile != nil && strings.TrimSpace(profile.PrimaryDomain) != "" {
		domain = profile.PrimaryDomain
	}
	return fmt.Sprintf("Hello! I've reviewed your resume and I'm looking forward to talking about your experience in %s. Are you ready to begin the interview?", domain)
}

func fallbackConclusion() string {
	return "Thank you for completing the interview. Your responses are being analyzed to produce your personalized feedback report."
}
