package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/ai"
	"github.com/spigell/ai-interviewer/internal/ai/gemini"
	"github.com/spigell/ai-interviewer/internal/ai/openai"
	"github.com/spigell/ai-interviewer/internal/interview"
	"github.com/spigell/ai-interviewer/internal/logger"
	"github.com/spigell/ai-interviewer/internal/report"
	"github.com/spigell/ai-interviewer/internal/secrets"
	"github.com/spigell/ai-interviewer/internal/session"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	// endCommand ends the interview early when entered as an answer.
	endCommand = "/end"

	defaultFallbackDomain = "general software engineering"
)

var startPrompt = promptui.Select{
	Label: "Start the interview?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive mock interview",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("export-dir", "o", "", "directory for the exported report json. Default is unset (no export).")

	viper.BindPFlag("report.export-dir", runCmd.Flags().Lookup("export-dir"))
}

// run is the main command for the cli.
func run(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the ai-interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.Candidate == nil || (config.Candidate.ProfileFile == "" && config.Candidate.ResumeFile == "") {
		logger.Fatal("a candidate profile is required",
			zap.String("hint", "set candidate.profile-file or candidate.resume-file in the configuration file"),
		)
	}

	generator, genLogger, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai generator", zap.Error(err))
	}

	maxLogLength := 0
	if config.AI != nil {
		maxLogLength = config.AI.MaxLogLength
	}

	profile, err := loadProfile(ctx, config.Candidate, generator, genLogger, maxLogLength)
	if err != nil {
		logger.Fatal("loading candidate profile", zap.Error(err))
	}

	logger.Info("candidate profile ready",
		zap.String("primary_domain", profile.PrimaryDomain),
		zap.String("experience_level", string(profile.ExperienceLevel)),
		zap.Int("technical_skills", len(profile.TechnicalSkills)),
	)

	store := session.NewStore()
	id, err := store.Create(profile)
	if err != nil {
		logger.Fatal("creating a session", zap.Error(err))
	}

	controller := interview.New(config.Interview.flowConfig(), interview.Deps{
		Source:    ai.NewQuestionSource(generator, genLogger, maxLogLength),
		Evaluator: ai.NewResponseEvaluator(generator, genLogger, maxLogLength),
		Greeter:   ai.NewGreeter(generator, genLogger, maxLogLength),
		Logger:    logger,
	})

	prefs := session.Preferences{}
	if config.Interview != nil {
		prefs.Type = session.QuestionType(strings.ToLower(strings.TrimSpace(config.Interview.Type)))
		prefs.Difficulty = session.Difficulty(strings.ToLower(strings.TrimSpace(config.Interview.Difficulty)))
	}

	if err := store.Do(id, func(sess *session.Session) error {
		if err := controller.Initialize(ctx, sess, prefs); err != nil {
			return err
		}
		fmt.Printf("\n%s\n\n", sess.Greeting)
		return nil
	}); err != nil {
		logger.Fatal("planning the interview", zap.Error(err))
	}

	_, action, err := startPrompt.Run()
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	if action == PromptNo {
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return
	}

	completion, err := runInterview(ctx, controller, store, id)
	if err != nil {
		logger.Fatal("running the interview", zap.Error(err))
	}

	fmt.Printf("\n%s\n", completion.Conclusion)
	fmt.Printf("\nAnswered %d questions in %s.\n", completion.QuestionsAnswered, completion.Duration.Round(1e9))

	if err := summarize(ctx, config, store, id, generator, genLogger, maxLogLength, logger); err != nil {
		logger.Fatal("generating the report", zap.Error(err))
	}
}

// runInterview drives the question/answer loop until the controller reports
// completion or the candidate ends the interview early.
func runInterview(ctx context.Context, controller *interview.Controller, store *session.Store, id string) (*interview.Completion, error) {
	var current *session.Question

	if err := store.Do(id, func(sess *session.Session) error {
		q, err := controller.Proceed(sess)
		if err != nil {
			return err
		}
		current = q
		return nil
	}); err != nil {
		return nil, err
	}

	number := 1
	for {
		printQuestion(number, current)

		answer, err := readAnswer()
		if err != nil {
			return nil, err
		}

		var completion *interview.Completion

		if err := store.Do(id, func(sess *session.Session) error {
			if answer == endCommand {
				done, err := controller.EndNow(ctx, sess)
				if err != nil {
					return err
				}
				completion = done
				return nil
			}

			result, err := controller.SubmitResponse(ctx, sess, answer)
			if err != nil {
				return err
			}

			printEvaluation(result.Evaluation)

			switch result.Kind {
			case interview.StepComplete:
				completion = result.Completion
			case interview.StepFollowup:
				fmt.Println("Follow-up:")
				current = result.Question
			default:
				progress := sess.Progress(time.Now())
				fmt.Printf("Progress: %.0f%% (%d of %d answered)\n",
					progress.CompletionPercentage, progress.QuestionsAnswered, progress.TotalQuestions)
				current = result.Question
				number++
			}
			return nil
		}); err != nil {
			return nil, err
		}

		if completion != nil {
			return completion, nil
		}
	}
}

func printQuestion(number int, q *session.Question) {
	fmt.Printf("\nQuestion %d [%s / %s]:\n%s\n", number, q.Type, q.Difficulty, q.Text)
}

func printEvaluation(eval *session.Evaluation) {
	if eval == nil {
		return
	}

	fmt.Printf("\nScore: %d/10\n", eval.Score)
	if eval.Feedback != "" {
		fmt.Printf("Feedback: %s\n", eval.Feedback)
	}
}

func readAnswer() (string, error) {
	answerPrompt := promptui.Prompt{
		Label: fmt.Sprintf("Your answer (%s to finish early)", endCommand),
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("answer must not be empty")
			}
			return nil
		},
	}

	answer, err := answerPrompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}

// summarize builds the final feedback report and optionally exports it to disk.
func summarize(ctx context.Context, config *Config, store *session.Store, id string, generator ai.ContentGenerator, genLogger *zap.Logger, maxLogLength int, log *zap.Logger) error {
	assembler := report.NewAssembler(ai.NewAnalyst(generator, genLogger, maxLogLength), log, 0)

	var rpt *report.Report
	if err := store.Do(id, func(sess *session.Session) error {
		result, err := assembler.Summarize(ctx, sess)
		if err != nil {
			return err
		}
		rpt = result
		return nil
	}); err != nil {
		return err
	}

	overall := rpt.OverallScore
	fmt.Printf("\nOverall: %.1f/10 (%s, %s)\n", overall.NumericalScore, overall.Grade, overall.PerformanceLevel)
	fmt.Printf("Breakdown: technical %d, communication %d, problem solving %d\n",
		overall.Breakdown.Technical, overall.Breakdown.Communication, overall.Breakdown.ProblemSolving,
	)

	exportDir := viper.GetString("report.export-dir")
	if exportDir == "" && config.Report != nil {
		exportDir = config.Report.ExportDir
	}

	if exportDir == "" {
		pretty, err := json.MarshalIndent(rpt, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		fmt.Printf("\n%s\n", pretty)
		return nil
	}

	filename, err := report.WriteFile(rpt, exportDir)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}

	log.Info("report exported", zap.String("filename", filename))
	return nil
}

// newGenerator builds the configured AI backend. The returned logger carries
// the common provider/model fields and should be passed to every component
// that talks to the backend.
func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.ContentGenerator, *zap.Logger, error) {
	if cfg == nil {
		return nil, nil, errors.New("ai configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", "gemini":
		if cfg.Gemini == nil {
			cfg.Gemini = &GeminiConfig{APIKeyFile: viper.GetString("ai.gemini.api-key-file")}
		}

		apiKey, err := secrets.Load("gemini api key", cfg.Gemini.APIKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
		if err != nil {
			return nil, nil, err
		}

		return generator, logger.WithCommonFields(log, "gemini", generator.Model()), nil
	case "openai":
		if cfg.OpenAI == nil {
			cfg.OpenAI = &OpenAIConfig{APIKeyFile: viper.GetString("ai.openai.api-key-file")}
		}

		apiKey, err := secrets.Load("openai api key", cfg.OpenAI.APIKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY_FILE)", err)
		}

		generator, err := openai.NewGenerator(apiKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
		if err != nil {
			return nil, nil, err
		}

		return generator, logger.WithCommonFields(log, "openai", generator.Model()), nil
	default:
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// loadProfile resolves the candidate skill profile: a prepared JSON file wins,
// otherwise the profile is extracted from the resume text. Extraction failures
// degrade to a generic profile so the interview can still run.
func loadProfile(ctx context.Context, cfg *CandidateConfig, generator ai.ContentGenerator, genLogger *zap.Logger, maxLogLength int) (*session.SkillProfile, error) {
	if cfg.ProfileFile != "" {
		data, err := os.ReadFile(cfg.ProfileFile)
		if err != nil {
			return nil, fmt.Errorf("reading profile file: %w", err)
		}

		var profile session.SkillProfile
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parsing profile file %q: %w", cfg.ProfileFile, err)
		}

		if err := profile.Validate(); err != nil {
			return nil, fmt.Errorf("profile file %q: %w", cfg.ProfileFile, err)
		}

		return &profile, nil
	}

	data, err := os.ReadFile(cfg.ResumeFile)
	if err != nil {
		return nil, fmt.Errorf("reading resume file: %w", err)
	}

	resume := strings.TrimSpace(string(data))
	if resume == "" {
		return nil, fmt.Errorf("resume file %q is empty", cfg.ResumeFile)
	}

	extractor := ai.NewSkillExtractor(generator, genLogger, maxLogLength)

	profile, err := extractor.Extract(ctx, resume)
	if err != nil {
		genLogger.Warn("profile extraction degraded, using a generic profile", zap.Error(err))
		return &session.SkillProfile{
			PrimaryDomain:   defaultFallbackDomain,
			ExperienceLevel: session.LevelMid,
			ConfidenceScore: 3,
		}, nil
	}

	return profile, nil
}
