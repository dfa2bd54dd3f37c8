package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"resumatch/internal/analysis"
	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "resumatch",
	Short: "Score resumes against job descriptions and prepare applications",
	Long: `resumatch scores how well a resume matches a job description the way an
applicant tracking system would, and uses Gemini to suggest improvements,
write cover letters, prepare for interviews and answer career questions.

Scoring runs locally and needs no API key. AI features need a Gemini key
(RESUMATCH_AI_APIKEY or GEMINI_API_KEY).`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context")
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context")
}

// addOutputFlags registers -o and --format and resolves the format before
// the command runs.
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveFormat(cc.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		cc.OutputFormat = format
		return nil
	}
}

// addJobURLFlag lets a command take the job description from a posting URL
// instead of a file.
func addJobURLFlag(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVar(&cc.JobURL, "job-url", "", "Fetch the job description from this URL instead of a file")
}

// resumeAndJob reads the resume (args[0]) and the job description
// (args[1] or --job-url).
func resumeAndJob(cmd *cobra.Command, args []string, cc common.CommandConfig) (resume, job string, err error) {
	cfg := getConfigFromContext(cmd.Context())
	reader := common.NewInputReader(cfg.JobFetch, getLoggerFromContext(cmd.Context()))

	if resume, err = reader.Resume(args[0]); err != nil {
		return "", "", err
	}
	jobFile := ""
	if len(args) > 1 {
		jobFile = args[1]
	}
	if job, err = reader.Job(cmd.Context(), jobFile, cc.JobURL); err != nil {
		return "", "", err
	}
	return resume, job, nil
}

// withAnalysis builds the analysis service for one command run and closes
// the AI client afterwards.
func withAnalysis(cmd *cobra.Command, run func(svc *analysis.Service) error) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	svc, aiService, err := analysis.NewFromConfig(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis: %w", err)
	}
	if aiService != nil {
		defer func() {
			if err := aiService.Close(); err != nil {
				logger.LogError(err, "Failed to close AI service")
			}
		}()
	}
	return run(svc)
}

// profileResume builds the in-process session a CLI command works with.
func profileResume(cmd *cobra.Command, svc *analysis.Service, path, text string) types.SessionContext {
	return svc.Profile(cmd.Context(), filepath.Base(path), text)
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(coverLetterCmd)
	rootCmd.AddCommand(interviewPrepCmd)
	rootCmd.AddCommand(salaryCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
