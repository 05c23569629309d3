package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/session"
)

// InterviewGreeter generates the opening greeting and closing remarks of an
// interview. Both are plain text, not JSON; callers treat failures as
// non-fatal and substitute templated text.
type InterviewGreeter struct {
	runner promptRunner
}

var _ Greeter = (*InterviewGreeter)(nil)

func NewGreeter(generator ContentGenerator, logger *zap.Logger, maxLogLength int) *InterviewGreeter {
	return &InterviewGreeter{runner: newPromptRunner(generator, logger, maxLogLength)}
}

func (g *InterviewGreeter) Greeting(ctx context.Context, profile *session.SkillProfile) (string, error) {
	var b strings.Builder
	b.WriteString("You are an AI interviewer. Write a warm, professional greeting for the candidate below.\n\n")
	fmt.Fprintf(&b, "Primary domain: %s\n", profile.PrimaryDomain)
	fmt.Fprintf(&b, "Experience level: %s\n", profile.ExperienceLevel)
	if len(profile.TechnicalSkills) > 0 {
		fmt.Fprintf(&b, "Key skills: %s\n", strings.Join(topSkills(profile.TechnicalSkills, 5), ", "))
	}
	b.WriteString("\nThe greeting should welcome them, mention you have reviewed their resume, ")
	b.WriteString("reference one or two of their skills, and ask if they are ready to begin. ")
	b.WriteString("Keep it to two or three sentences. Return only the greeting text, no quotes or formatting.")

	greeting, err := g.runner.run(ctx, "greeting", b.String())
	if err != nil {
		return "", err
	}

	greeting = strings.TrimSpace(greeting)
	if greeting == "" {
		return "", fmt.Errorf("empty greeting")
	}
	return greeting, nil
}

func (g *InterviewGreeter) Conclusion(ctx context.Context, sess *session.Session) (string, error) {
	var b strings.Builder
	b.WriteString("You are an AI interviewer wrapping up a mock interview. Write brief closing remarks.\n\n")
	fmt.Fprintf(&b, "Answers given: %d\n", len(sess.Responses))
	if !sess.StartTime.IsZero() && !sess.EndTime.IsZero() {
		fmt.Fprintf(&b, "Duration: %d minutes\n", int(sess.EndTime.Sub(sess.StartTime).Minutes()))
	}
	b.WriteString("\nThank the candidate, tell them their feedback report is being prepared, ")
	b.WriteString("and keep it to two sentences. Return only the text, no quotes or formatting.")

	conclusion, err := g.runner.run(ctx, "conclusion", b.String())
	if err != nil {
		return "", err
	}

	conclusion = strings.TrimSpace(conclusion)
	if conclusion == "" {
		return "", fmt.Errorf("empty conclusion")
	}
	return conclusion, nil
}

func topSkills(skills []string, n int) []string {
	if len(skills) <= n {
		return skills
	}
	return skills[:n]
}
