package interview

import "time"

const (
	defaultMinQuestions    = 5
	defaultMaxQuestions    = 10
	defaultMinResponses    = 5
	defaultUpstreamTimeout = 30 * time.Second
	defaultAdaptWindow     = 3
	defaultHighThreshold   = 8
	defaultLowThreshold    = 4
)

// Config tunes the interview flow. The zero value is usable; unset fields get
// defaults.
type Config struct {
	// MinQuestions and MaxQuestions bound the initial batch size.
	MinQuestions int
	MaxQuestions int
	// MinResponses is the minimum number of answers before the interview may
	// complete on queue exhaustion; below it the controller tries to extend
	// the queue dynamically.
	MinResponses int
	// UpstreamTimeout bounds every QuestionSource and ResponseEvaluator call.
	// A call exceeding it resolves via the fallback policy.
	UpstreamTimeout time.Duration
	// AdaptWindow is the number of recent scores averaged for difficulty
	// adaptation; HighThreshold/LowThreshold trigger harder/easier rewrites.
	AdaptWindow   int
	HighThreshold float64
	LowThreshold  float64
}

func (c Config) withDefaults() Config {
	if c.MinQuestions <= 0 {
		c.MinQuestions = defaultMinQuestions
	}
	if c.MaxQuestions < c.MinQuestions {
		c.MaxQuestions = max(c.MinQuestions, defaultMaxQuestions)
	}
	if c.MinResponses <= 0 {
		c.MinResponses = defaultMinResponses
	}
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = defaultUpstreamTimeout
	}
	if c.AdaptWindow <= 0 {
		c.AdaptWindow = defaultAdaptWindow
	}
	if c.HighThreshold <= 0 {
		c.HighThreshold = defaultHighThreshold
	}
	if c.LowThreshold <= 0 {
		c.LowThreshold = defaultLowThreshold
	}
	return c
}
