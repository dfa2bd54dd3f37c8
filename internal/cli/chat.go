package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"resumatch/internal/analysis"
	"resumatch/internal/common"
	"resumatch/internal/errors"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [resume-file]",
	Short: "Ask a career advisor about your resume",
	Long: `Start a career-advice conversation grounded in a resume. Each question is
answered with the last turns of the conversation in context.

With --query a single question is answered and the command exits.
Otherwise questions are read from stdin, one per line, until "exit",
"quit" or end of input. Requires a Gemini API key.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

var (
	chatConfig common.CommandConfig
	chatQuery  string
)

func init() {
	addOutputFlags(chatCmd, &chatConfig)
	chatCmd.Flags().StringVarP(&chatQuery, "query", "q", "", "Ask one question and exit")
}

// chatSession holds a conversation's history in process.
type chatSession struct {
	svc      *analysis.Service
	sess     types.SessionContext
	maxTurns int
}

func (c *chatSession) ask(ctx context.Context, query string) (*types.ChatReply, error) {
	reply, turn, err := c.svc.Chat(ctx, c.sess, query)
	if err != nil {
		return nil, err
	}
	turn.At = time.Now()
	c.sess.History = append(c.sess.History, turn)
	if c.maxTurns > 0 && len(c.sess.History) > c.maxTurns {
		c.sess.History = c.sess.History[len(c.sess.History)-c.maxTurns:]
	}
	return reply, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	resume, err := common.NewInputReader(cfg.JobFetch, logger).Resume(args[0])
	if err != nil {
		return err
	}

	return withAnalysis(cmd, func(svc *analysis.Service) error {
		if !svc.AIEnabled() {
			return errors.NewUpstreamUnavailableError("Career chat needs a Gemini API key", nil)
		}
		chat := &chatSession{
			svc:      svc,
			sess:     profileResume(cmd, svc, args[0], resume),
			maxTurns: cfg.Session.HistoryTurns,
		}

		if chatQuery != "" {
			return common.RunCommand(cmd.Context(), logger, chatConfig, "career chat",
				func(ctx context.Context) (*types.ChatReply, error) {
					return chat.ask(ctx, chatQuery)
				},
				"domain", chat.sess.Domain)
		}
		return chatLoop(cmd.Context(), chat, cmd.InOrStdin(), common.NewOutputHandlerTo(cmd.OutOrStdout(), logger), chatConfig, cmd.ErrOrStderr())
	})
}

// chatLoop answers one question per input line. Bad questions and
// upstream failures are reported and the conversation goes on.
func chatLoop(ctx context.Context, chat *chatSession, in io.Reader, out *common.OutputHandler, cc common.CommandConfig, prompt io.Writer) error {
	fmt.Fprintf(prompt, "Career advisor for %s. Type exit to quit.\n", chat.sess.Domain)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(prompt, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(prompt)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := chat.ask(ctx, query)
		if err != nil {
			if errors.IsType(err, errors.ErrorTypeInsufficientInput) || errors.IsType(err, errors.ErrorTypeUpstreamUnavailable) {
				fmt.Fprintf(prompt, "Error: %v\n", err)
				continue
			}
			return err
		}
		if err := out.HandleOutput(reply, cc); err != nil {
			return err
		}
		fmt.Fprintln(prompt)
	}
}
