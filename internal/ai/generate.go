package ai

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/util"
)

const defaultMaxLogLength = 200

// promptRunner wraps a ContentGenerator with debug logging of prompt and
// response previews.
type promptRunner struct {
	generator ContentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func newPromptRunner(generator ContentGenerator, logger *zap.Logger, maxLogLen int) promptRunner {
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}
	return promptRunner{generator: generator, logger: logger, maxLogLen: maxLogLen}
}

func (r *promptRunner) run(ctx context.Context, op, prompt string) (string, error) {
	r.logger.Debug("llm request",
		zap.String("op", op),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	r.logger.Debug("llm response",
		zap.String("op", op),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, r.maxLogLen)),
	)

	return raw, nil
}
