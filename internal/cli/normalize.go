package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"resumatch/internal/common"
	"resumatch/internal/errors"
	"resumatch/internal/normalize"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Strip markup from AI-generated text",
	Long: `Normalize AI-generated text for display: emphasis, heading and list
markers are removed and blank-line separated paragraphs are split out.
Reads the file argument, or stdin when none is given.

Use --kind salary for salary answers, which also drops block quotes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

var (
	normalizeConfig common.CommandConfig
	normalizeKind   string
)

func init() {
	addOutputFlags(normalizeCmd, &normalizeConfig)
	normalizeCmd.Flags().StringVar(&normalizeKind, "kind", "text", "Text kind: text or salary")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	raw, err := readNormalizeInput(cmd, args)
	if err != nil {
		return err
	}

	return common.RunCommand(cmd.Context(), logger, normalizeConfig, "text normalization",
		func(context.Context) (types.NormalizedText, error) {
			return normalizeAs(raw, normalizeKind)
		},
		"kind", normalizeKind,
		"chars", len(raw))
}

func readNormalizeInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read stdin", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", args[0]), err)
	}
	return string(data), nil
}

func normalizeAs(text, kind string) (types.NormalizedText, error) {
	switch kind {
	case "", "text":
		return normalize.Text(text), nil
	case "salary":
		return normalize.SalaryText(text), nil
	default:
		return types.NormalizedText{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Unknown text kind %q (use text or salary)", kind), nil)
	}
}
