package cli

import (
	"context"

	"resumatch/internal/common"
	"resumatch/internal/scoring"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume-file] [job-description-file]",
	Short: "Score a resume against a job description locally",
	Long: `Score a resume against a job description with the local ATS scorer.
No AI calls are made, so no API key is needed.

The resume may be PDF, DOCX or plain text. The job description comes from
a second file or from --job-url.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runScore,
}

var scoreConfig common.CommandConfig

func init() {
	addOutputFlags(scoreCmd, &scoreConfig)
	addJobURLFlag(scoreCmd, &scoreConfig)
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	scorer, err := scoring.New(cfg.Scoring)
	if err != nil {
		return err
	}
	resume, job, err := resumeAndJob(cmd, args, scoreConfig)
	if err != nil {
		return err
	}

	return common.RunCommand(cmd.Context(), logger, scoreConfig, "local scoring",
		func(context.Context) (*types.MatchResult, error) {
			return scorer.Score(resume, job)
		},
		"resume_chars", len(resume),
		"job_chars", len(job))
}
