package cmd

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/ai-interviewer/internal/interview"
)

const (
	app = "ai-interviewer"
)

type Config struct {
	Candidate *CandidateConfig `mapstructure:"candidate"`
	Interview *InterviewConfig `mapstructure:"interview"`
	AI        *AIConfig        `mapstructure:"ai"`
	Report    *ReportConfig    `mapstructure:"report"`
}

type CandidateConfig struct {
	// ProfileFile points to a JSON skill profile. When set it takes
	// precedence over ResumeFile.
	ProfileFile string `mapstructure:"profile-file"`
	// ResumeFile points to a plain-text resume to extract a profile from.
	ResumeFile string `mapstructure:"resume-file"`
}

type InterviewConfig struct {
	Type            string `mapstructure:"type"`
	Difficulty      string `mapstructure:"difficulty"`
	MinQuestions    int    `mapstructure:"min-questions"`
	MaxQuestions    int    `mapstructure:"max-questions"`
	MinResponses    int    `mapstructure:"min-responses"`
	UpstreamTimeout string `mapstructure:"upstream-timeout"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
}

type ReportConfig struct {
	ExportDir string `mapstructure:"export-dir"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "ai-interviewer is a cli for running AI-driven mock interviews and generating feedback reports",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	if err := viper.BindEnv("ai.openai.api-key-file", "OPENAI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding OPENAI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is ai-interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	// A local .env file is optional and may carry the *_API_KEY_FILE variables.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

func (c *InterviewConfig) flowConfig() interview.Config {
	cfg := interview.Config{}
	if c == nil {
		return cfg
	}

	cfg.MinQuestions = c.MinQuestions
	cfg.MaxQuestions = c.MaxQuestions
	cfg.MinResponses = c.MinResponses

	if timeout, err := time.ParseDuration(c.UpstreamTimeout); err == nil {
		cfg.UpstreamTimeout = timeout
	}

	return cfg
}
