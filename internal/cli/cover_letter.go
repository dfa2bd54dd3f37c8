package cli

import (
	"context"

	"resumatch/internal/analysis"
	"resumatch/internal/common"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter [resume-file] [job-description-file]",
	Short: "Write a cover letter for a job",
	Long: `Write a 250-300 word cover letter from a resume and a job description.
Requires a Gemini API key.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCoverLetter,
}

var (
	coverLetterConfig  common.CommandConfig
	coverLetterCompany string
)

func init() {
	addOutputFlags(coverLetterCmd, &coverLetterConfig)
	addJobURLFlag(coverLetterCmd, &coverLetterConfig)
	coverLetterCmd.Flags().StringVar(&coverLetterCompany, "company", "", "Company name to address (default: the company)")
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	resume, job, err := resumeAndJob(cmd, args, coverLetterConfig)
	if err != nil {
		return err
	}

	return withAnalysis(cmd, func(svc *analysis.Service) error {
		return common.RunCommand(cmd.Context(), logger, coverLetterConfig, "cover letter generation",
			func(ctx context.Context) (*types.CoverLetter, error) {
				sess := profileResume(cmd, svc, args[0], resume)
				return svc.CoverLetter(ctx, sess, job, coverLetterCompany)
			},
			"company", coverLetterCompany)
	})
}
