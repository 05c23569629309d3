package session

import (
	"fmt"
	"time"
)

// Session is the mutable record of one candidate's interview. It is a plain
// data structure: all transitions are driven by the interview controller, and
// access must be serialized through the Store for a given session ID.
type Session struct {
	ID          string          `json:"session_id"`
	Profile     *SkillProfile   `json:"skill_profile"`
	Preferences Preferences     `json:"preferences"`
	Greeting    string          `json:"greeting,omitempty"`
	Conclusion  string          `json:"conclusion,omitempty"`
	Queue       []*Question     `json:"questions"`
	Cursor      int             `json:"cursor"`
	Responses   []*ResponseRecord `json:"responses"`
	State       State           `json:"state"`
	StartTime   time.Time       `json:"start_time,omitzero"`
	EndTime     time.Time       `json:"end_time,omitzero"`

	nextSeq int
}

// New returns a session in the Created state owning the provided profile.
func New(id string, profile *SkillProfile) *Session {
	return &Session{
		ID:      id,
		Profile: profile,
		State:   StateCreated,
		nextSeq: 1,
	}
}

// AppendQuestions adds questions to the end of the queue, assigning sequence
// numbers at insertion time.
func (s *Session) AppendQuestions(questions []Question) {
	for i := range questions {
		q := questions[i]
		q.SequenceNumber = s.takeSeq()
		s.Queue = append(s.Queue, &q)
	}
}

// InsertFollowup places a follow-up question at the given queue position so it
// is presented next, linking it to its parent.
func (s *Session) InsertFollowup(at, parentSeq int, q Question) *Question {
	q.SequenceNumber = s.takeSeq()
	q.Origin = OriginFollowup
	q.ParentSequence = parentSeq

	inserted := &q
	if at >= len(s.Queue) {
		s.Queue = append(s.Queue, inserted)
		return inserted
	}

	s.Queue = append(s.Queue[:at], append([]*Question{inserted}, s.Queue[at:]...)...)
	return inserted
}

// ReplaceRemaining swaps the not-yet-asked suffix of the queue starting at the
// given index. Sequence numbers of the replaced slots are reused so they stay
// unique and ordered.
func (s *Session) ReplaceRemaining(from int, questions []Question) error {
	remaining := len(s.Queue) - from
	if len(questions) != remaining {
		return fmt.Errorf("replacement length %d does not match remaining %d", len(questions), remaining)
	}
	for i := range questions {
		q := questions[i]
		q.SequenceNumber = s.Queue[from+i].SequenceNumber
		s.Queue[from+i] = &q
	}
	return nil
}

// CurrentQuestion returns the question at the cursor, or nil when the queue is
// exhausted.
func (s *Session) CurrentQuestion() *Question {
	if s.Cursor < 0 || s.Cursor >= len(s.Queue) {
		return nil
	}
	return s.Queue[s.Cursor]
}

// HasFollowupFor reports whether a follow-up was already inserted for the
// question with the given sequence number.
func (s *Session) HasFollowupFor(parentSeq int) bool {
	for _, q := range s.Queue {
		if q.Origin == OriginFollowup && q.ParentSequence == parentSeq {
			return true
		}
	}
	return false
}

// RecentScores returns up to n most recent evaluation scores, oldest first.
func (s *Session) RecentScores(n int) []int {
	scores := make([]int, 0, n)
	for i := len(s.Responses) - 1; i >= 0 && len(scores) < n; i-- {
		if s.Responses[i].Evaluation == nil {
			continue
		}
		scores = append(scores, s.Responses[i].Evaluation.Score)
	}
	// reverse into chronological order
	for i, j := 0, len(scores)-1; i < j; i, j = i+1, j-1 {
		scores[i], scores[j] = scores[j], scores[i]
	}
	return scores
}

// Progress computes progress counters from the current session state. It has
// no side effects.
func (s *Session) Progress(now time.Time) Progress {
	total := len(s.Queue)
	answered := len(s.Responses)

	p := Progress{
		TotalQuestions:     total,
		QuestionsAnswered:  answered,
		CurrentNumber:      s.Cursor + 1,
		QuestionsRemaining: max(0, total-answered),
	}
	if total > 0 {
		p.CompletionPercentage = float64(answered) / float64(total) * 100
	}
	if !s.StartTime.IsZero() {
		end := now
		if !s.EndTime.IsZero() {
			end = s.EndTime
		}
		p.TimeElapsed = end.Sub(s.StartTime)
	}
	return p
}

// CheckInvariants verifies the structural invariants of the session. A failure
// here is an internal bug, not a recoverable condition.
func (s *Session) CheckInvariants() error {
	if s.Cursor < 0 || s.Cursor > len(s.Queue) {
		return fmt.Errorf("cursor %d out of range for queue of %d", s.Cursor, len(s.Queue))
	}
	if len(s.Responses) > s.Cursor {
		return fmt.Errorf("%d responses recorded with cursor at %d", len(s.Responses), s.Cursor)
	}
	if (s.State == StateCompleted) != !s.EndTime.IsZero() {
		return fmt.Errorf("state %q inconsistent with end time %v", s.State, s.EndTime)
	}
	return nil
}

func (s *Session) takeSeq() int {
	if s.nextSeq == 0 {
		s.nextSeq = 1
		for _, q := range s.Queue {
			if q.SequenceNumber >= s.nextSeq {
				s.nextSeq = q.SequenceNumber + 1
			}
		}
	}
	seq := s.nextSeq
	s.nextSeq++
	return seq
}
