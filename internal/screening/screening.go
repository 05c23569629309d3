package screening

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/session"
)

// Filter represents a single screening step applied to a generated question
// batch before it enters a session queue.
type Filter interface {
	Name() string
	Apply(questions []session.Question) ([]session.Question, Step, error)
}

// Step describes the result of executing a screening step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Run executes the supplied filters sequentially, returning the surviving
// questions. Every step is logged with its drop count.
func Run(steps []Filter, logger *zap.Logger, questions []session.Question) ([]session.Question, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		next, info, err := step.Apply(questions)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if info.Dropped > 0 {
			logger.Debug("screening step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		questions = next
	}

	return questions, nil
}
