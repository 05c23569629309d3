package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/screening"
	"github.com/spigell/ai-interviewer/internal/session"
)

// StepKind is the outcome of one submitted response.
type StepKind string

const (
	StepFollowup     StepKind = "followup"
	StepNextQuestion StepKind = "next_question"
	StepComplete     StepKind = "complete"
)

// TurnResult is returned by SubmitResponse. Question is set for followup and
// next_question steps; Completion is set for complete steps.
type TurnResult struct {
	Kind       StepKind
	Question   *session.Question
	Evaluation *session.Evaluation
	Completion *Completion
}

// Completion summarizes a finished interview.
type Completion struct {
	SessionID         string        `json:"session_id"`
	QuestionsAnswered int           `json:"questions_answered"`
	Duration          time.Duration `json:"duration"`
	EndTime           time.Time     `json:"end_time"`
	Conclusion        string        `json:"conclusion"`
}

// Deps aggregates the external capabilities the controller drives. Source and
// Evaluator are required; Greeter may be nil, in which case templated text is
// used directly.
type Deps struct {
	Source    ai.QuestionSource
	Evaluator ai.ResponseEvaluator
	Greeter   ai.Greeter
	Logger    *zap.Logger
}

// Controller owns the interview session state machine. It is stateless across
// sessions; all per-interview state lives in the session passed to each call.
// Callers must serialize access per session (see session.Store).
type Controller struct {
	cfg  Config
	deps Deps
	now  func() time.Time
}

func New(cfg Config, deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Controller{
		cfg:  cfg.withDefaults(),
		deps: deps,
		now:  time.Now,
	}
}

// Initialize moves a session from Created to Planned: it obtains the initial
// question batch and an opening greeting. Upstream failures degrade to the
// fallback question set and a templated greeting; this path never fails once
// the session and profile are valid.
func (c *Controller) Initialize(ctx context.Context, sess *session.Session, prefs session.Preferences) error {
	if sess.State != session.StateCreated {
		return usageErr("initialize", sess.State, "session is already initialized")
	}
	if err := sess.Profile.Validate(); err != nil {
		return usageErr("initialize", sess.State, err.Error())
	}

	sess.Preferences = normalizePrefs(prefs)

	params := ai.InitialParams{
		Type:       sess.Preferences.Type,
		Difficulty: sess.Preferences.Difficulty,
		Count:      c.cfg.MinQuestions,
	}
	if params.Count > c.cfg.MaxQuestions {
		params.Count = c.cfg.MaxQuestions
	}

	questions, err := c.generateInitial(ctx, sess.Profile, params)
	if err != nil {
		c.deps.Logger.Warn("question generation degraded, using fallback set",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		questions = fallbackQuestions()
	}
	sess.AppendQuestions(questions)

	sess.Greeting = c.greeting(ctx, sess)
	sess.State = session.StatePlanned

	c.deps.Logger.Info("interview planned",
		zap.String("session_id", sess.ID),
		zap.Int("questions", len(sess.Queue)),
	)

	return nil
}

// Proceed confirms the candidate is ready and returns the first question.
func (c *Controller) Proceed(sess *session.Session) (*session.Question, error) {
	if sess.State != session.StatePlanned {
		return nil, usageErr("proceed", sess.State, "interview is not planned")
	}

	q := sess.CurrentQuestion()
	if q == nil {
		return nil, c.corrupt(sess, &InvariantError{SessionID: sess.ID, Err: errEmptyQueue})
	}

	sess.State = session.StateInProgress
	sess.StartTime = c.now()

	return q, nil
}

// SubmitResponse runs one full turn: record the answer, score it (with the
// deterministic fallback when the evaluator fails), then decide the next
// transition. It returns a valid TurnResult on every call unless the call
// itself was invalid or the session is corrupted.
func (c *Controller) SubmitResponse(ctx context.Context, sess *session.Session, text string) (*TurnResult, error) {
	if sess.State != session.StateInProgress {
		return nil, usageErr("submit_response", sess.State, "interview is not in progress")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, usageErr("submit_response", sess.State, "response text is empty")
	}

	if err := sess.CheckInvariants(); err != nil {
		return nil, c.corrupt(sess, &InvariantError{SessionID: sess.ID, Err: err})
	}

	current := sess.CurrentQuestion()
	if current == nil {
		return nil, c.corrupt(sess, &InvariantError{SessionID: sess.ID, Err: errEmptyQueue})
	}

	record := &session.ResponseRecord{
		QuestionSequence: current.SequenceNumber,
		QuestionText:     current.Text,
		Response:         text,
		SubmittedAt:      c.now(),
	}
	sess.Responses = append(sess.Responses, record)

	record.Evaluation = c.evaluate(ctx, sess, current, text)

	result := c.decide(ctx, sess, current, record.Evaluation)
	result.Evaluation = record.Evaluation

	if err := sess.CheckInvariants(); err != nil {
		return nil, c.corrupt(sess, &InvariantError{SessionID: sess.ID, Err: err})
	}

	return result, nil
}

// EndNow terminates the interview from any point within it. It is idempotent:
// on an already completed session it reports the existing completion.
func (c *Controller) EndNow(ctx context.Context, sess *session.Session) (*Completion, error) {
	switch sess.State {
	case session.StateCompleted:
		return c.completionSummary(sess), nil
	case session.StateInProgress:
		return c.complete(ctx, sess), nil
	default:
		return nil, usageErr("end_now", sess.State, "no active interview to end")
	}
}

// evaluate scores the answer, degrading to the deterministic fallback rule on
// any evaluator failure.
func (c *Controller) evaluate(ctx context.Context, sess *session.Session, q *session.Question, text string) *session.Evaluation {
	callCtx, cancel := c.upstreamCtx(ctx)
	defer cancel()

	history := sess.Responses[:len(sess.Responses)-1]
	eval, err := c.deps.Evaluator.Evaluate(callCtx, q, text, sess.Profile, history)
	if err != nil || eval == nil {
		c.deps.Logger.Warn("response evaluation degraded, using fallback scoring",
			zap.String("session_id", sess.ID),
			zap.Int("question_sequence", q.SequenceNumber),
			zap.Error(err),
		)
		return fallbackEvaluation(text)
	}

	return eval
}

// decide applies the transition policy for one scored turn.
func (c *Controller) decide(ctx context.Context, sess *session.Session, current *session.Question, eval *session.Evaluation) *TurnResult {
	if followup := c.followupFor(ctx, sess, current, eval); followup != nil {
		sess.Cursor++
		inserted := sess.InsertFollowup(sess.Cursor, originalSequence(current), *followup)

		c.deps.Logger.Info("asking follow-up",
			zap.String("session_id", sess.ID),
			zap.Int("parent_sequence", inserted.ParentSequence),
		)

		return &TurnResult{Kind: StepFollowup, Question: inserted}
	}

	sess.Cursor++

	if sess.Cursor >= len(sess.Queue) {
		if next := c.extendQueue(ctx, sess); next != nil {
			sess.AppendQuestions([]session.Question{*next})
			return &TurnResult{Kind: StepNextQuestion, Question: sess.CurrentQuestion()}
		}
		return &TurnResult{Kind: StepComplete, Completion: c.complete(ctx, sess)}
	}

	c.maybeAdapt(ctx, sess)

	return &TurnResult{Kind: StepNextQuestion, Question: sess.CurrentQuestion()}
}

// followupFor returns the follow-up to insert, or nil. At most one follow-up
// is ever produced per original question.
func (c *Controller) followupFor(ctx context.Context, sess *session.Session, current *session.Question, eval *session.Evaluation) *session.Question {
	if !eval.NeedsFollowup {
		return nil
	}
	if sess.HasFollowupFor(originalSequence(current)) {
		return nil
	}

	if eval.Followup != nil {
		return eval.Followup
	}

	callCtx, cancel := c.upstreamCtx(ctx)
	defer cancel()

	lastResponse := sess.Responses[len(sess.Responses)-1].Response
	followup, err := c.deps.Source.GenerateFollowup(callCtx, current, lastResponse, sess.Profile)
	if err != nil {
		c.deps.Logger.Debug("follow-up generation failed, advancing instead",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return nil
	}

	return followup
}

// extendQueue asks for one dynamically generated question when the planned
// queue ran out before the minimum response count was reached.
func (c *Controller) extendQueue(ctx context.Context, sess *session.Session) *session.Question {
	if len(sess.Responses) >= c.cfg.MinResponses {
		return nil
	}

	callCtx, cancel := c.upstreamCtx(ctx)
	defer cancel()

	asked := make([]string, 0, len(sess.Queue))
	for _, q := range sess.Queue {
		asked = append(asked, q.Text)
	}

	next, err := c.deps.Source.GenerateDynamicNext(callCtx, ai.SessionContext{
		Profile:        sess.Profile,
		Answered:       len(sess.Responses),
		RecentScores:   sess.RecentScores(c.cfg.AdaptWindow),
		AskedQuestions: asked,
	})
	if err != nil {
		c.deps.Logger.Debug("dynamic question generation failed, completing interview",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return nil
	}

	// A dynamic question repeating an asked one adds nothing; complete instead.
	kept, err := screening.Run([]screening.Filter{
		screening.NewNonBlank(),
		screening.NewDedupe(asked),
	}, c.deps.Logger, []session.Question{*next})
	if err != nil || len(kept) == 0 {
		return nil
	}

	return &kept[0]
}

// maybeAdapt rewrites the unconsumed queue suffix when the rolling average
// score crosses a threshold. Failures leave the queue untouched.
func (c *Controller) maybeAdapt(ctx context.Context, sess *session.Session) {
	scores := sess.RecentScores(c.cfg.AdaptWindow)
	if len(scores) < c.cfg.AdaptWindow {
		return
	}

	sum := 0
	for _, s := range scores {
		sum += s
	}
	avg := float64(sum) / float64(len(scores))

	var direction string
	switch {
	case avg >= c.cfg.HighThreshold:
		direction = "harder"
	case avg <= c.cfg.LowThreshold:
		direction = "easier"
	default:
		return
	}

	remaining := make([]session.Question, 0, len(sess.Queue)-sess.Cursor)
	for _, q := range sess.Queue[sess.Cursor:] {
		remaining = append(remaining, *q)
	}

	callCtx, cancel := c.upstreamCtx(ctx)
	defer cancel()

	adapted, err := c.deps.Source.AdaptRemaining(callCtx, ai.PerformanceSummary{
		AverageScore: avg,
		Direction:    direction,
		RecentScores: scores,
	}, remaining, sess.Profile)
	if err != nil {
		c.deps.Logger.Debug("difficulty adaptation failed, keeping planned questions",
			zap.String("session_id", sess.ID),
			zap.String("direction", direction),
			zap.Error(err),
		)
		return
	}

	if err := sess.ReplaceRemaining(sess.Cursor, adapted); err != nil {
		c.deps.Logger.Debug("difficulty adaptation rejected",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return
	}

	c.deps.Logger.Info("adapted remaining questions",
		zap.String("session_id", sess.ID),
		zap.String("direction", direction),
		zap.Float64("average_score", avg),
	)
}

func (c *Controller) complete(ctx context.Context, sess *session.Session) *Completion {
	sess.State = session.StateCompleted
	sess.EndTime = c.now()
	sess.Conclusion = c.conclusion(ctx, sess)

	c.deps.Logger.Info("interview completed",
		zap.String("session_id", sess.ID),
		zap.Int("questions_answered", len(sess.Responses)),
		zap.Duration("duration", sess.EndTime.Sub(sess.StartTime)),
	)

	return c.completionSummary(sess)
}

func (c *Controller) completionSummary(sess *session.Session) *Completion {
	duration := time.Duration(0)
	if !sess.StartTime.IsZero() {
		duration = sess.EndTime.Sub(sess.StartTime)
	}
	return &Completion{
		SessionID:         sess.ID,
		QuestionsAnswered: len(sess.Responses),
		Duration:          duration,
		EndTime:           sess.EndTime,
		Conclusion:        sess.Conclusion,
	}
}

func (c *Controller) greeting(ctx context.Context, sess *session.Session) string {
	if c.deps.Greeter == nil {
		return fallbackGreeting(sess.Profile)
	}

	callCtx, cancel := c.upstreamCtx(ctx)
	defer cancel()

	greeting, err := c.deps.Greeter.Greeting(callCtx, sess.Profile)
	if err != nil {
		c.deps.Logger.Debug("greeting generation failed, using template",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return fallbackGreeting(sess.Profile)
	}
	return greeting
}

func (c *Controller) conclusion(ctx context.Context, sess *session.Session) string {
	if c.deps.Greeter == nil {
		return fallbackConclusion()
	}

	callCtx, cancel := c.upstreamCtx(ctx)
	defer cancel()

	conclusion, err := c.deps.Greeter.Conclusion(callCtx, sess)
	if err != nil {
		c.deps.Logger.Debug("conclusion generation failed, using template",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return fallbackConclusion()
	}
	return conclusion
}

func (c *Controller) generateInitial(ctx context.Context, profile *session.SkillProfile, params ai.InitialParams) ([]session.Question, error) {
	callCtx, cancel := c.upstreamCtx(ctx)
	defer cancel()

	questions, err := c.deps.Source.GenerateInitial(callCtx, profile, params)
	if err != nil {
		return nil, err
	}

	screened, err := screening.Run([]screening.Filter{
		screening.NewNonBlank(),
		screening.NewDedupe(nil),
	}, c.deps.Logger, questions)
	if err != nil {
		return nil, err
	}

	if len(screened) < params.Count {
		return nil, fmt.Errorf("screening left %d of %d requested questions", len(screened), params.Count)
	}

	return screened, nil
}

// corrupt ends a session whose invariants no longer hold and reports the
// violation loudly.
func (c *Controller) corrupt(sess *session.Session, err *InvariantError) error {
	c.deps.Logger.Error("session invariant violated",
		zap.String("session_id", sess.ID),
		zap.Error(err),
	)
	sess.State = session.StateCompleted
	if sess.EndTime.IsZero() {
		sess.EndTime = c.now()
	}
	return err
}

func (c *Controller) upstreamCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.UpstreamTimeout)
}

func originalSequence(q *session.Question) int {
	if q.Origin == session.OriginFollowup {
		return q.ParentSequence
	}
	return q.SequenceNumber
}

func normalizePrefs(prefs session.Preferences) session.Preferences {
	if prefs.Type == "" {
		prefs.Type = session.TypeGeneral
	}
	if prefs.Difficulty == "" {
		prefs.Difficulty = session.DifficultyMedium
	}
	return prefs
}
