package common

import (
	"fmt"
	"io"
	"os"

	"resumatch/internal/errors"
	"resumatch/internal/formatters"
)

// OutputHandler formats command results and writes them to stdout or a file.
type OutputHandler struct {
	out      io.Writer
	registry *formatters.FormatterRegistry
	logger   *errors.Logger
}

// NewOutputHandler writes to stdout unless a command names an output file.
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return NewOutputHandlerTo(os.Stdout, logger)
}

// NewOutputHandlerTo writes to out unless a command names an output file.
func NewOutputHandlerTo(out io.Writer, logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		out:      out,
		registry: formatters.NewFormatterRegistry(),
		logger:   logger,
	}
}

// HandleOutput formats data and writes it to the configured destination.
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile == "" {
		_, err := io.WriteString(oh.out, output)
		return err
	}

	if err := WriteFile(config.OutputFile, output); err != nil {
		return err
	}
	oh.logger.Info("Output written successfully",
		"file", config.OutputFile, "format", config.OutputFormat)
	return nil
}

// GetSupportedFormats returns every format the registry can render.
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
