package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/session"
)

type stubSource struct {
	initial      []session.Question
	initialErr   error
	followup     *session.Question
	followupErr  error
	adapted      []session.Question
	adaptErr     error
	dynamic      *session.Question
	dynamicErr   error
	adaptCalls   int
	dynamicCalls int
}

func (s *stubSource) GenerateInitial(_ context.Context, _ *session.SkillProfile, params ai.InitialParams) ([]session.Question, error) {
	if s.initialErr != nil {
		return nil, s.initialErr
	}
	if len(s.initial) < params.Count {
		return nil, fmt.Errorf("got %d questions, want %d", len(s.initial), params.Count)
	}
	return s.initial[:params.Count], nil
}

func (s *stubSource) GenerateFollowup(context.Context, *session.Question, string, *session.SkillProfile) (*session.Question, error) {
	return s.followup, s.followupErr
}

func (s *stubSource) AdaptRemaining(_ context.Context, _ ai.PerformanceSummary, remaining []session.Question, _ *session.SkillProfile) ([]session.Question, error) {
	s.adaptCalls++
	if s.adaptErr != nil {
		return nil, s.adaptErr
	}
	if len(s.adapted) != len(remaining) {
		return nil, fmt.Errorf("got %d adapted questions, want %d", len(s.adapted), len(remaining))
	}
	return s.adapted, nil
}

func (s *stubSource) GenerateDynamicNext(context.Context, ai.SessionContext) (*session.Question, error) {
	s.dynamicCalls++
	return s.dynamic, s.dynamicErr
}

type stubEvaluator struct {
	eval  *session.Evaluation
	err   error
	calls int
}

func (s *stubEvaluator) Evaluate(context.Context, *session.Question, string, *session.SkillProfile, []*session.ResponseRecord) (*session.Evaluation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	// return a copy so the controller cannot alias turns together
	eval := *s.eval
	return &eval, nil
}

func testProfile() *session.SkillProfile {
	return &session.SkillProfile{
		PrimaryDomain:   "backend development",
		ExperienceLevel: session.LevelMid,
		TechnicalSkills: []string{"go"},
		ConfidenceScore: 7,
	}
}

func plannedBatch(n int) []session.Question {
	questions := make([]session.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, session.Question{
			Text:       fmt.Sprintf("planned question %d", i+1),
			Type:       session.TypeTechnical,
			Difficulty: session.DifficultyMedium,
			Origin:     session.OriginPlanned,
		})
	}
	return questions
}

func scoredEval(score int) *session.Evaluation {
	return &session.Evaluation{
		Score:     score,
		Feedback:  "noted",
		RawSource: session.SourceAI,
	}
}

func startSession(t *testing.T, c *Controller) *session.Session {
	t.Helper()

	sess := session.New("test-session", testProfile())
	if err := c.Initialize(context.Background(), sess, session.Preferences{}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := c.Proceed(sess); err != nil {
		t.Fatalf("proceed: %v", err)
	}
	return sess
}

func TestInitializePlansInterview(t *testing.T) {
	source := &stubSource{initial: plannedBatch(5)}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := session.New("s1", testProfile())
	if err := c.Initialize(context.Background(), sess, session.Preferences{}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if sess.State != session.StatePlanned {
		t.Fatalf("expected planned state, got %q", sess.State)
	}
	if len(sess.Queue) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(sess.Queue))
	}
	for i, q := range sess.Queue {
		if q.SequenceNumber != i+1 {
			t.Fatalf("question %d has sequence %d", i, q.SequenceNumber)
		}
	}
	if sess.Greeting == "" {
		t.Fatalf("expected a greeting")
	}
	if sess.Preferences.Type != session.TypeGeneral || sess.Preferences.Difficulty != session.DifficultyMedium {
		t.Fatalf("empty preferences must default: %+v", sess.Preferences)
	}
}

func TestInitializeFallsBackOnGenerationFailure(t *testing.T) {
	source := &stubSource{initialErr: errors.New("provider down")}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := session.New("s1", testProfile())
	if err := c.Initialize(context.Background(), sess, session.Preferences{}); err != nil {
		t.Fatalf("initialize must absorb upstream failures: %v", err)
	}

	if sess.State != session.StatePlanned {
		t.Fatalf("expected planned state, got %q", sess.State)
	}
	if len(sess.Queue) < 3 {
		t.Fatalf("expected at least 3 fallback questions, got %d", len(sess.Queue))
	}
	for _, q := range sess.Queue {
		if q.Origin != session.OriginFallback {
			t.Fatalf("expected fallback origin, got %q", q.Origin)
		}
	}
	if sess.Greeting == "" {
		t.Fatalf("expected a templated greeting")
	}
}

func TestInitializeScreensDuplicateQuestions(t *testing.T) {
	batch := plannedBatch(5)
	batch[3].Text = batch[0].Text // duplicate leaves fewer than requested
	source := &stubSource{initial: batch}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := session.New("s1", testProfile())
	if err := c.Initialize(context.Background(), sess, session.Preferences{}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	for _, q := range sess.Queue {
		if q.Origin != session.OriginFallback {
			t.Fatalf("short screened batch must fall back, got origin %q", q.Origin)
		}
	}
}

func TestInitializeRejectsWrongState(t *testing.T) {
	c := New(Config{}, Deps{Source: &stubSource{initial: plannedBatch(5)}, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := session.New("s1", testProfile())
	sess.State = session.StateInProgress

	err := c.Initialize(context.Background(), sess, session.Preferences{})
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestInitializeRejectsInvalidProfile(t *testing.T) {
	c := New(Config{}, Deps{Source: &stubSource{initial: plannedBatch(5)}, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := session.New("s1", &session.SkillProfile{})
	err := c.Initialize(context.Background(), sess, session.Preferences{})
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestProceed(t *testing.T) {
	source := &stubSource{initial: plannedBatch(5)}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := session.New("s1", testProfile())

	if _, err := c.Proceed(sess); err == nil {
		t.Fatalf("proceed before planning must fail")
	}

	if err := c.Initialize(context.Background(), sess, session.Preferences{}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	q, err := c.Proceed(sess)
	if err != nil {
		t.Fatalf("proceed: %v", err)
	}
	if q.Text != "planned question 1" {
		t.Fatalf("unexpected first question: %q", q.Text)
	}
	if sess.State != session.StateInProgress {
		t.Fatalf("expected in_progress state, got %q", sess.State)
	}
	if sess.StartTime.IsZero() {
		t.Fatalf("expected start time to be set")
	}
}

func TestHappyPathToCompletion(t *testing.T) {
	source := &stubSource{initial: plannedBatch(5)}
	evaluator := &stubEvaluator{eval: scoredEval(7)}
	c := New(Config{}, Deps{Source: source, Evaluator: evaluator})

	sess := startSession(t, c)

	lastCursor := sess.Cursor
	for i := 0; i < 4; i++ {
		result, err := c.SubmitResponse(context.Background(), sess, fmt.Sprintf("answer %d", i+1))
		if err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
		if result.Kind != StepNextQuestion {
			t.Fatalf("submit %d: expected next_question, got %q", i+1, result.Kind)
		}
		if result.Question == nil {
			t.Fatalf("submit %d: expected a question", i+1)
		}
		if sess.Cursor <= lastCursor {
			t.Fatalf("cursor must advance monotonically: %d -> %d", lastCursor, sess.Cursor)
		}
		lastCursor = sess.Cursor
	}

	result, err := c.SubmitResponse(context.Background(), sess, "final answer")
	if err != nil {
		t.Fatalf("final submit: %v", err)
	}
	if result.Kind != StepComplete {
		t.Fatalf("expected completion, got %q", result.Kind)
	}
	if result.Completion.QuestionsAnswered != 5 {
		t.Fatalf("expected 5 answered, got %d", result.Completion.QuestionsAnswered)
	}
	if sess.State != session.StateCompleted {
		t.Fatalf("expected completed state, got %q", sess.State)
	}
	if sess.EndTime.IsZero() {
		t.Fatalf("expected end time to be set")
	}
	if result.Completion.Conclusion == "" {
		t.Fatalf("expected a conclusion")
	}
	if err := sess.CheckInvariants(); err != nil {
		t.Fatalf("invariants violated after completion: %v", err)
	}
}

func TestFollowupInsertedOncePerQuestion(t *testing.T) {
	eval := scoredEval(5)
	eval.NeedsFollowup = true
	eval.Followup = &session.Question{Text: "tell me more"}

	source := &stubSource{initial: plannedBatch(5)}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: eval}})

	sess := startSession(t, c)

	result, err := c.SubmitResponse(context.Background(), sess, "short answer")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Kind != StepFollowup {
		t.Fatalf("expected followup, got %q", result.Kind)
	}
	if result.Question.ParentSequence != 1 {
		t.Fatalf("expected parent sequence 1, got %d", result.Question.ParentSequence)
	}
	if len(sess.Queue) != 6 {
		t.Fatalf("expected queue length 6, got %d", len(sess.Queue))
	}

	// the evaluator keeps demanding follow-ups, but a second one for the
	// same original question must not be inserted
	result, err = c.SubmitResponse(context.Background(), sess, "followup answer")
	if err != nil {
		t.Fatalf("submit followup answer: %v", err)
	}
	if result.Kind != StepNextQuestion {
		t.Fatalf("expected next_question after answered followup, got %q", result.Kind)
	}
	if len(sess.Queue) != 6 {
		t.Fatalf("second follow-up inserted: queue length %d", len(sess.Queue))
	}
	if result.Question.Text != "planned question 2" {
		t.Fatalf("expected to resume planned flow, got %q", result.Question.Text)
	}
}

func TestFollowupGenerationFailureAdvances(t *testing.T) {
	eval := scoredEval(5)
	eval.NeedsFollowup = true // no inline follow-up, source must be asked

	source := &stubSource{initial: plannedBatch(5), followupErr: errors.New("provider down")}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: eval}})

	sess := startSession(t, c)

	result, err := c.SubmitResponse(context.Background(), sess, "some answer")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Kind != StepNextQuestion {
		t.Fatalf("expected next_question on failed follow-up generation, got %q", result.Kind)
	}
	if len(sess.Queue) != 5 {
		t.Fatalf("queue must stay untouched, got %d", len(sess.Queue))
	}
}

func TestEvaluatorFailureUsesFallbackScoring(t *testing.T) {
	source := &stubSource{initial: plannedBatch(5)}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{err: errors.New("provider down")}})

	sess := startSession(t, c)

	short := "too short"
	long := strings.Repeat("word ", 25)

	result, err := c.SubmitResponse(context.Background(), sess, short)
	if err != nil {
		t.Fatalf("submit short: %v", err)
	}
	if result.Evaluation.Score != 4 || result.Evaluation.RawSource != session.SourceFallback {
		t.Fatalf("unexpected fallback evaluation for short answer: %+v", result.Evaluation)
	}

	result, err = c.SubmitResponse(context.Background(), sess, long)
	if err != nil {
		t.Fatalf("submit long: %v", err)
	}
	if result.Evaluation.Score != 6 {
		t.Fatalf("expected score 6 for substantial answer, got %d", result.Evaluation.Score)
	}
}

func TestSubmitResponseUsageErrors(t *testing.T) {
	source := &stubSource{initial: plannedBatch(5)}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := session.New("s1", testProfile())

	_, err := c.SubmitResponse(context.Background(), sess, "answer")
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected usage error before start, got %v", err)
	}

	sess = startSession(t, c)

	if _, err := c.SubmitResponse(context.Background(), sess, "   "); !errors.As(err, &ue) {
		t.Fatalf("expected usage error for blank response, got %v", err)
	}
	if len(sess.Responses) != 0 {
		t.Fatalf("rejected turn must not record a response")
	}
}

func TestDynamicExtensionBelowMinimumResponses(t *testing.T) {
	source := &stubSource{
		initial: plannedBatch(2),
		dynamic: &session.Question{
			Text:       "bonus question",
			Type:       session.TypeTechnical,
			Difficulty: session.DifficultyMedium,
			Origin:     session.OriginAdapted,
		},
	}
	c := New(Config{MinQuestions: 2, MinResponses: 3}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := startSession(t, c)

	if _, err := c.SubmitResponse(context.Background(), sess, "answer 1"); err != nil {
		t.Fatalf("submit 1: %v", err)
	}

	result, err := c.SubmitResponse(context.Background(), sess, "answer 2")
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if result.Kind != StepNextQuestion {
		t.Fatalf("expected dynamic extension, got %q", result.Kind)
	}
	if result.Question.Text != "bonus question" {
		t.Fatalf("unexpected extension question: %q", result.Question.Text)
	}
	if len(sess.Queue) != 3 {
		t.Fatalf("expected queue length 3, got %d", len(sess.Queue))
	}

	result, err = c.SubmitResponse(context.Background(), sess, "answer 3")
	if err != nil {
		t.Fatalf("submit 3: %v", err)
	}
	if result.Kind != StepComplete {
		t.Fatalf("expected completion once minimum reached, got %q", result.Kind)
	}
	if source.dynamicCalls != 1 {
		t.Fatalf("expected 1 dynamic generation, got %d", source.dynamicCalls)
	}
}

func TestDynamicExtensionDropsRepeatedQuestion(t *testing.T) {
	source := &stubSource{
		initial: plannedBatch(2),
		dynamic: &session.Question{Text: "Planned Question 1?"}, // repeats an asked one
	}
	c := New(Config{MinQuestions: 2, MinResponses: 3}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := startSession(t, c)

	if _, err := c.SubmitResponse(context.Background(), sess, "answer 1"); err != nil {
		t.Fatalf("submit 1: %v", err)
	}

	result, err := c.SubmitResponse(context.Background(), sess, "answer 2")
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if result.Kind != StepComplete {
		t.Fatalf("a repeated dynamic question must complete instead, got %q", result.Kind)
	}
}

func TestDynamicExtensionFailureCompletes(t *testing.T) {
	source := &stubSource{initial: plannedBatch(2), dynamicErr: errors.New("provider down")}
	c := New(Config{MinQuestions: 2, MinResponses: 5}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := startSession(t, c)

	if _, err := c.SubmitResponse(context.Background(), sess, "answer 1"); err != nil {
		t.Fatalf("submit 1: %v", err)
	}

	result, err := c.SubmitResponse(context.Background(), sess, "answer 2")
	if err != nil {
		t.Fatalf("submit 2: %v", err)
	}
	if result.Kind != StepComplete {
		t.Fatalf("expected completion when extension fails, got %q", result.Kind)
	}
}

func TestAdaptationRewritesRemainingQuestions(t *testing.T) {
	source := &stubSource{
		initial: plannedBatch(5),
		adapted: []session.Question{
			{Text: "much harder question 4", Difficulty: session.DifficultyHard, Origin: session.OriginAdapted},
			{Text: "much harder question 5", Difficulty: session.DifficultyHard, Origin: session.OriginAdapted},
		},
	}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(9)}})

	sess := startSession(t, c)

	for i := 0; i < 3; i++ {
		if _, err := c.SubmitResponse(context.Background(), sess, fmt.Sprintf("answer %d", i+1)); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}

	if source.adaptCalls == 0 {
		t.Fatalf("expected adaptation after three high scores")
	}
	if sess.Queue[3].Text != "much harder question 4" {
		t.Fatalf("remaining queue not adapted: %q", sess.Queue[3].Text)
	}
	if sess.Queue[3].SequenceNumber != 4 || sess.Queue[4].SequenceNumber != 5 {
		t.Fatalf("sequence numbers not preserved: %d, %d", sess.Queue[3].SequenceNumber, sess.Queue[4].SequenceNumber)
	}
	// already consumed prefix is untouched
	if sess.Queue[2].Text != "planned question 3" {
		t.Fatalf("consumed prefix modified: %q", sess.Queue[2].Text)
	}
}

func TestAdaptationFailureKeepsQueue(t *testing.T) {
	source := &stubSource{initial: plannedBatch(5), adaptErr: errors.New("provider down")}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(2)}})

	sess := startSession(t, c)

	for i := 0; i < 3; i++ {
		if _, err := c.SubmitResponse(context.Background(), sess, fmt.Sprintf("answer %d", i+1)); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}

	if source.adaptCalls == 0 {
		t.Fatalf("expected adaptation attempt after three low scores")
	}
	if sess.Queue[3].Text != "planned question 4" {
		t.Fatalf("failed adaptation must keep the queue, got %q", sess.Queue[3].Text)
	}
}

func TestMidRangeScoresDoNotAdapt(t *testing.T) {
	source := &stubSource{initial: plannedBatch(5)}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(6)}})

	sess := startSession(t, c)

	for i := 0; i < 4; i++ {
		if _, err := c.SubmitResponse(context.Background(), sess, fmt.Sprintf("answer %d", i+1)); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}

	if source.adaptCalls != 0 {
		t.Fatalf("mid-range scores must not trigger adaptation, got %d calls", source.adaptCalls)
	}
}

func TestEndNow(t *testing.T) {
	source := &stubSource{initial: plannedBatch(5)}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := session.New("s1", testProfile())

	_, err := c.EndNow(context.Background(), sess)
	var ue *UsageError
	if !errors.As(err, &ue) {
		t.Fatalf("expected usage error before start, got %v", err)
	}

	sess = startSession(t, c)

	if _, err := c.SubmitResponse(context.Background(), sess, "one answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	first, err := c.EndNow(context.Background(), sess)
	if err != nil {
		t.Fatalf("end now: %v", err)
	}
	if sess.State != session.StateCompleted {
		t.Fatalf("expected completed state, got %q", sess.State)
	}
	if first.QuestionsAnswered != 1 {
		t.Fatalf("expected 1 answered, got %d", first.QuestionsAnswered)
	}

	// repeated call reports the same completion instead of failing
	second, err := c.EndNow(context.Background(), sess)
	if err != nil {
		t.Fatalf("repeated end now: %v", err)
	}
	if !second.EndTime.Equal(first.EndTime) || second.QuestionsAnswered != first.QuestionsAnswered {
		t.Fatalf("end now is not idempotent: %+v vs %+v", first, second)
	}
}

func TestCorruptedSessionIsEndedLoudly(t *testing.T) {
	source := &stubSource{initial: plannedBatch(5)}
	c := New(Config{}, Deps{Source: source, Evaluator: &stubEvaluator{eval: scoredEval(7)}})

	sess := startSession(t, c)
	sess.Cursor = 42 // out of range

	_, err := c.SubmitResponse(context.Background(), sess, "answer")
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if sess.State != session.StateCompleted {
		t.Fatalf("corrupted session must be ended, state %q", sess.State)
	}
	if sess.EndTime.IsZero() {
		t.Fatalf("expected end time on corrupted session")
	}
}
