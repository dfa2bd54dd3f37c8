package cli

import (
	"context"

	"resumatch/internal/analysis"
	"resumatch/internal/common"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var salaryCmd = &cobra.Command{
	Use:   "salary [resume-file]",
	Short: "Approximate salary range for the resume's field and experience",
	Long: `Estimate a salary range from the domain and years of experience found in
the resume. Without a Gemini key, or when the AI call fails, general
negotiation guidance is shown instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSalary,
}

var (
	salaryConfig   common.CommandConfig
	salaryLocation string
)

func init() {
	addOutputFlags(salaryCmd, &salaryConfig)
	salaryCmd.Flags().StringVar(&salaryLocation, "location", "", "Location to estimate for (default: Global)")
}

func runSalary(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	resume, err := common.NewInputReader(cfg.JobFetch, logger).Resume(args[0])
	if err != nil {
		return err
	}

	return withAnalysis(cmd, func(svc *analysis.Service) error {
		return common.RunCommand(cmd.Context(), logger, salaryConfig, "salary insights",
			func(ctx context.Context) (*types.SalaryInsights, error) {
				sess := profileResume(cmd, svc, args[0], resume)
				return svc.Salary(ctx, sess, salaryLocation), nil
			},
			"location", salaryLocation)
	})
}
