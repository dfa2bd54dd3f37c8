package common

import (
	"context"
	"time"

	"resumatch/internal/errors"
)

// CommandConfig holds the output settings every command shares.
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
	JobURL       string
}

// OperationFunc produces the result a command prints.
type OperationFunc[Output any] func(ctx context.Context) (Output, error)

// RunCommand runs op and hands its result to the output handler. attrs are
// logged with the start message.
func RunCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	name string,
	op OperationFunc[Output],
	attrs ...any,
) error {
	logger.Info("Starting "+name, append(attrs, "output_format", cmdConfig.OutputFormat)...)

	start := time.Now()
	result, err := op(ctx)
	if err != nil {
		return err
	}
	logger.Debug("Command operation finished", "command", name, "duration", time.Since(start))

	return NewOutputHandler(logger).HandleOutput(result, cmdConfig)
}
