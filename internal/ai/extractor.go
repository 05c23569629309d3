package ai

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/session"
)

//go:embed prompts/extract.md
var extractTemplate string

// ResumeExtractor is the LLM-backed SkillExtractor that turns raw resume text
// into a normalized skill profile.
type ResumeExtractor struct {
	runner promptRunner
}

var _ SkillExtractor = (*ResumeExtractor)(nil)

func NewSkillExtractor(generator ContentGenerator, logger *zap.Logger, maxLogLength int) *ResumeExtractor {
	return &ResumeExtractor{runner: newPromptRunner(generator, logger, maxLogLength)}
}

func (e *ResumeExtractor) Extract(ctx context.Context, resumeText string) (*session.SkillProfile, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, fmt.Errorf("resume text must not be empty")
	}

	prompt := strings.ReplaceAll(extractTemplate, "{{RESUME}}", resumeText)

	raw, err := e.runner.run(ctx, "extract_skills", prompt)
	if err != nil {
		return nil, err
	}

	return parseProfile(raw)
}
