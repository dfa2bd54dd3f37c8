package cli

import (
	"context"

	"resumatch/internal/analysis"
	"resumatch/internal/common"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var interviewPrepCmd = &cobra.Command{
	Use:   "interview-prep [resume-file] [job-description-file]",
	Short: "List likely interview questions and talking points",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runInterviewPrep,
}

var interviewPrepConfig common.CommandConfig

func init() {
	addOutputFlags(interviewPrepCmd, &interviewPrepConfig)
	addJobURLFlag(interviewPrepCmd, &interviewPrepConfig)
}

func runInterviewPrep(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	resume, job, err := resumeAndJob(cmd, args, interviewPrepConfig)
	if err != nil {
		return err
	}

	return withAnalysis(cmd, func(svc *analysis.Service) error {
		return common.RunCommand(cmd.Context(), logger, interviewPrepConfig, "interview preparation",
			func(ctx context.Context) (*types.InterviewPrep, error) {
				sess := profileResume(cmd, svc, args[0], resume)
				return svc.InterviewPrep(ctx, sess, job)
			})
	})
}
