package report

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/session"
)

// Score weights and grade thresholds for the overall score.
const (
	technicalWeight      = 0.4
	communicationWeight  = 0.3
	problemSolvingWeight = 0.3
)

// Report is the complete feedback document for one finished interview.
type Report struct {
	ReportID         string             `json:"report_id"`
	GeneratedAt      time.Time          `json:"generated_at"`
	CandidateInfo    CandidateInfo      `json:"candidate_info"`
	InterviewSummary InterviewSummary   `json:"interview_summary"`
	Assessment       *ai.Analysis       `json:"assessment"`
	QuestionAnalysis []QuestionAnalysis `json:"question_analysis"`
	OverallScore     OverallScore       `json:"overall_score"`
}

type CandidateInfo struct {
	PrimaryDomain    string                  `json:"primary_domain"`
	ExperienceLevel  session.ExperienceLevel `json:"experience_level"`
	SkillsIdentified int                     `json:"skills_identified"`
}

type InterviewSummary struct {
	Date                 string                  `json:"date"`
	Duration             string                  `json:"duration"`
	InterviewType        session.QuestionType    `json:"interview_type"`
	TotalQuestions       int                     `json:"total_questions"`
	QuestionsAnswered    int                     `json:"questions_answered"`
	CompletionRate       string                  `json:"completion_rate"`
	AverageResponseWords int                     `json:"average_response_words"`
	DegradedEvaluations  int                     `json:"degraded_evaluations"`
}

type QuestionAnalysis struct {
	Number          int                      `json:"question_number"`
	Question        string                   `json:"question"`
	ResponseSummary string                   `json:"response_summary"`
	Score           int                      `json:"score"`
	Feedback        string                   `json:"feedback"`
	Strengths       []string                 `json:"strengths,omitempty"`
	Improvements    []string                 `json:"improvements,omitempty"`
	Source          session.EvaluationSource `json:"source"`
}

type OverallScore struct {
	NumericalScore   float64        `json:"numerical_score"`
	Grade            string         `json:"grade"`
	PerformanceLevel string         `json:"performance_level"`
	Breakdown        ScoreBreakdown `json:"score_breakdown"`
}

type ScoreBreakdown struct {
	Technical      int `json:"technical"`
	Communication  int `json:"communication"`
	ProblemSolving int `json:"problem_solving"`
}

// Assembler builds feedback reports from completed sessions. The holistic
// analysis comes from the Analyst; when it fails the report is still produced
// with neutral defaults.
type Assembler struct {
	analyst ai.Analyst
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewAssembler(analyst ai.Analyst, logger *zap.Logger, timeout time.Duration) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Assembler{
		analyst: analyst,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Summarize produces the full report for a completed session. Calling it on a
// session in any other state is a usage error.
func (a *Assembler) Summarize(ctx context.Context, sess *session.Session) (*Report, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}
	if sess.State != session.StateCompleted {
		return nil, fmt.Errorf("session %s is not completed (state %q)", sess.ID, sess.State)
	}

	analysis := a.analyze(ctx, sess)

	rpt := &Report{
		ReportID:         reportID(sess.ID),
		GeneratedAt:      a.now(),
		CandidateInfo:    candidateInfo(sess.Profile),
		InterviewSummary: interviewSummary(sess),
		Assessment:       analysis,
		QuestionAnalysis: questionAnalysis(sess.Responses),
		OverallScore: Overall(
			analysis.TechnicalScore,
			analysis.CommunicationScore,
			analysis.ProblemSolvingScore,
		),
	}

	return rpt, nil
}

func (a *Assembler) analyze(ctx context.Context, sess *session.Session) *ai.Analysis {
	if a.analyst == nil {
		return neutralAnalysis()
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	analysis, err := a.analyst.Analyze(callCtx, sess)
	if err != nil || analysis == nil {
		a.logger.Warn("holistic analysis degraded, using neutral defaults",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return neutralAnalysis()
	}

	return analysis
}

// Overall computes the weighted overall score and maps it to a letter grade.
func Overall(technical, communication, problemSolving int) OverallScore {
	score := float64(technical)*technicalWeight +
		float64(communication)*communicationWeight +
		float64(problemSolving)*problemSolvingWeight
	score = math.Round(score*10) / 10

	grade, level := gradeFor(score)

	return OverallScore{
		NumericalScore:   score,
		Grade:            grade,
		PerformanceLevel: level,
		Breakdown: ScoreBreakdown{
			Technical:      technical,
			Communication:  communication,
			ProblemSolving: problemSolving,
		},
	}
}

func gradeFor(score float64) (string, string) {
	switch {
	case score >= 8.5:
		return "A", "Excellent"
	case score >= 7.5:
		return "B", "Good"
	case score >= 6.5:
		return "C", "Satisfactory"
	case score >= 5.5:
		return "D", "Below Average"
	default:
		return "F", "Poor"
	}
}

func neutralAnalysis() *ai.Analysis {
	return &ai.Analysis{
		OverallPerformance:      "satisfactory",
		TechnicalScore:          6,
		CommunicationScore:      6,
		ProblemSolvingScore:     6,
		KeyStrengths:            []string{"Completed the interview", "Engaged with the questions"},
		ImprovementAreas:        []string{"Could provide more detailed examples"},
		HiringRecommendation:    "maybe",
		RecommendationReasoning: "Analysis was limited due to technical issues; scores are neutral defaults.",
		RawSource:               session.SourceFallback,
	}
}

func candidateInfo(profile *session.SkillProfile) CandidateInfo {
	if profile == nil {
		return CandidateInfo{}
	}
	return CandidateInfo{
		PrimaryDomain:    profile.PrimaryDomain,
		ExperienceLevel:  profile.ExperienceLevel,
		SkillsIdentified: len(profile.TechnicalSkills) + len(profile.SoftSkills),
	}
}

func interviewSummary(sess *session.Session) InterviewSummary {
	summary := InterviewSummary{
		Date:              sess.EndTime.Format("2006-01-02"),
		Duration:          formatDuration(sess),
		InterviewType:     sess.Preferences.Type,
		TotalQuestions:    len(sess.Queue),
		QuestionsAnswered: len(sess.Responses),
		CompletionRate:    "0%",
	}

	if len(sess.Queue) > 0 {
		rate := float64(len(sess.Responses)) / float64(len(sess.Queue)) * 100
		summary.CompletionRate = fmt.Sprintf("%.1f%%", rate)
	}

	totalWords := 0
	for _, record := range sess.Responses {
		totalWords += len(strings.Fields(record.Response))
		if record.Evaluation != nil && record.Evaluation.RawSource == session.SourceFallback {
			summary.DegradedEvaluations++
		}
	}
	if len(sess.Responses) > 0 {
		summary.AverageResponseWords = totalWords / len(sess.Responses)
	}

	return summary
}

func questionAnalysis(responses []*session.ResponseRecord) []QuestionAnalysis {
	items := make([]QuestionAnalysis, 0, len(responses))
	for i, record := range responses {
		item := QuestionAnalysis{
			Number:          i + 1,
			Question:        record.QuestionText,
			ResponseSummary: summarizeResponse(record.Response),
		}
		if record.Evaluation != nil {
			item.Score = record.Evaluation.Score
			item.Feedback = record.Evaluation.Feedback
			item.Strengths = record.Evaluation.Strengths
			item.Improvements = record.Evaluation.Weaknesses
			item.Source = record.Evaluation.RawSource
		}
		items = append(items, item)
	}
	return items
}

func summarizeResponse(response string) string {
	const limit = 200
	runes := []rune(response)
	if len(runes) <= limit {
		return response
	}
	return string(runes[:limit]) + "..."
}

func formatDuration(sess *session.Session) string {
	if sess.StartTime.IsZero() || sess.EndTime.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%d minutes", int(sess.EndTime.Sub(sess.StartTime).Minutes()))
}

func reportID(sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return "report_" + short
}
