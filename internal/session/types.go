package session

import (
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of an interview session. Transitions are
// validated by the controller; Completed is terminal.
type State string

const (
	StateCreated    State = "created"
	StatePlanned    State = "planned"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// ExperienceLevel buckets a candidate's seniority.
type ExperienceLevel string

const (
	LevelEntry  ExperienceLevel = "entry"
	LevelJunior ExperienceLevel = "junior"
	LevelMid    ExperienceLevel = "mid"
	LevelSenior ExperienceLevel = "senior"
	LevelLead   ExperienceLevel = "lead"
)

// QuestionType classifies an interview question.
type QuestionType string

const (
	TypeGeneral      QuestionType = "general"
	TypeTechnical    QuestionType = "technical"
	TypeBehavioral   QuestionType = "behavioral"
	TypeSituational  QuestionType = "situational"
	TypeSystemDesign QuestionType = "system_design"
)

// Difficulty of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Origin records how a question entered the session queue.
type Origin string

const (
	OriginPlanned  Origin = "planned"
	OriginAdapted  Origin = "adapted"
	OriginFollowup Origin = "followup"
	OriginFallback Origin = "fallback"
)

// EvaluationSource marks whether an evaluation came from the AI provider or
// from the deterministic local fallback, so reporting can discount the latter.
type EvaluationSource string

const (
	SourceAI       EvaluationSource = "ai"
	SourceFallback EvaluationSource = "fallback"
)

// SkillProfile is the normalized candidate profile produced upstream of the
// interview core. It is immutable once attached to a session.
type SkillProfile struct {
	PrimaryDomain   string          `json:"primary_domain"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
	TechnicalSkills []string        `json:"technical_skills"`
	SoftSkills      []string        `json:"soft_skills"`
	ConfidenceScore int             `json:"confidence_score"`
}

// Validate checks the fields the interview core actually relies on. Deeper
// correctness is the producer's concern.
func (p *SkillProfile) Validate() error {
	if p == nil {
		return fmt.Errorf("skill profile is required")
	}
	if strings.TrimSpace(p.PrimaryDomain) == "" {
		return fmt.Errorf("skill profile primary domain is required")
	}
	if p.ExperienceLevel == "" {
		return fmt.Errorf("skill profile experience level is required")
	}
	return nil
}

// Question is a single interview question. SequenceNumber is assigned when the
// question is inserted into a session queue and is unique within the session.
type Question struct {
	Text           string       `json:"question"`
	Type           QuestionType `json:"type"`
	Difficulty     Difficulty   `json:"difficulty"`
	SkillsTested   []string     `json:"skills_tested,omitempty"`
	SequenceNumber int          `json:"sequence_number"`
	Origin         Origin       `json:"origin"`
	// ParentSequence links a follow-up to the question that spawned it.
	ParentSequence int `json:"parent_sequence,omitempty"`
}

// Evaluation is the structured judgment of one candidate answer.
type Evaluation struct {
	Score         int              `json:"score"`
	Feedback      string           `json:"feedback"`
	Strengths     []string         `json:"strengths,omitempty"`
	Weaknesses    []string         `json:"weaknesses,omitempty"`
	NeedsFollowup bool             `json:"needs_followup"`
	Followup      *Question        `json:"followup_question,omitempty"`
	RawSource     EvaluationSource `json:"raw_source"`
}

// ResponseRecord is one submitted answer. Records are append-only; the only
// permitted mutation is attaching the Evaluation after scoring.
type ResponseRecord struct {
	QuestionSequence int         `json:"question_sequence"`
	QuestionText     string      `json:"question"`
	Response         string      `json:"response"`
	SubmittedAt      time.Time   `json:"submitted_at"`
	Evaluation       *Evaluation `json:"evaluation,omitempty"`
}

// Preferences tune a single interview.
type Preferences struct {
	Type       QuestionType `json:"interview_type"`
	Difficulty Difficulty   `json:"difficulty"`
}

// Progress is a point-in-time view of how far a session has advanced.
type Progress struct {
	TotalQuestions       int           `json:"total_questions"`
	QuestionsAnswered    int           `json:"questions_answered"`
	CurrentNumber        int           `json:"current_question_number"`
	CompletionPercentage float64       `json:"completion_percentage"`
	QuestionsRemaining   int           `json:"questions_remaining"`
	TimeElapsed          time.Duration `json:"time_elapsed"`
}
