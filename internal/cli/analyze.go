package cli

import (
	"context"

	"resumatch/internal/analysis"
	"resumatch/internal/common"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file] [job-description-file]",
	Short: "Full ATS analysis with AI recommendations and skill gaps",
	Long: `Analyze a resume against a job description.

In local mode (analysis.mode: local) the resume is scored locally and,
when a Gemini key is configured, the AI adds recommendations and skill
gaps. In remote mode the whole result comes from the AI and is validated
before it is shown.

The report includes:
- Overall score and its skill, similarity and density components
- Matching and missing keywords
- ATS compatibility band
- Recommendations and skill gaps`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
	addJobURLFlag(analyzeCmd, &analyzeConfig)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	resume, job, err := resumeAndJob(cmd, args, analyzeConfig)
	if err != nil {
		return err
	}

	return withAnalysis(cmd, func(svc *analysis.Service) error {
		return common.RunCommand(cmd.Context(), logger, analyzeConfig, "resume analysis",
			func(ctx context.Context) (*types.AnalysisReport, error) {
				sess := profileResume(cmd, svc, args[0], resume)
				return svc.Analyze(ctx, sess, job)
			},
			"mode", svc.Mode(),
			"ai_enabled", svc.AIEnabled(),
			"job_chars", len(job))
	})
}
