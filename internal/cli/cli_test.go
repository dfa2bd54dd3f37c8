package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumatch/internal/ai"
	"resumatch/internal/analysis"
	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/scoring"
	"resumatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoAdvisor answers chat questions with the number of turns it was shown.
type echoAdvisor struct{ ai.Provider }

func (echoAdvisor) CareerChat(_ context.Context, in types.ChatInput) (types.ChatReply, *ai.TokenUsage, error) {
	if strings.Contains(in.Query, "fail") {
		return types.ChatReply{}, nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "boom", nil)
	}
	return types.ChatReply{Response: fmt.Sprintf("seen %d turns", len(in.Session.History)), Domain: in.Session.Domain}, nil, nil
}

func testLogger() *errors.Logger {
	return errors.NewLoggerTo(io.Discard, slog.LevelDebug)
}

func newChat(t *testing.T, maxTurns int) *chatSession {
	t.Helper()
	scorer, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)
	svc, err := analysis.New(config.AnalysisConfig{Mode: config.ModeLocal}, analysis.Deps{
		Scorer: scorer,
		AI:     echoAdvisor{},
		Logger: testLogger(),
	})
	require.NoError(t, err)
	return &chatSession{
		svc:      svc,
		sess:     types.SessionContext{ResumeText: "Go developer", Domain: "Software Engineering"},
		maxTurns: maxTurns,
	}
}

func TestChatSessionCapsHistory(t *testing.T) {
	chat := newChat(t, 2)
	ctx := context.Background()

	for i, want := range []string{"seen 0 turns", "seen 1 turns", "seen 2 turns", "seen 2 turns"} {
		reply, err := chat.ask(ctx, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
		assert.Equal(t, want, reply.Response)
	}
	require.Len(t, chat.sess.History, 2)
	assert.Equal(t, "question 3", chat.sess.History[1].Query)
	assert.False(t, chat.sess.History[1].At.IsZero())
}

func TestChatLoop(t *testing.T) {
	chat := newChat(t, 7)
	in := strings.NewReader("What next?\n\nplease fail\nexit\nnever asked\n")
	var out, prompt bytes.Buffer

	err := chatLoop(context.Background(), chat, in, common.NewOutputHandlerTo(&out, testLogger()),
		common.CommandConfig{OutputFormat: "text"}, &prompt)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "seen 0 turns")
	assert.Contains(t, prompt.String(), "Error:")
	assert.Len(t, chat.sess.History, 1, "failed and skipped questions leave no turn")
}

func TestNormalizeAs(t *testing.T) {
	text, err := normalizeAs("## Range\n\n> **$100k**", "salary")
	require.NoError(t, err)
	require.Len(t, text.Paragraphs, 2)
	assert.Equal(t, "$100k", text.Paragraphs[1].Content)

	text, err = normalizeAs("- one\n- two", "")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", text.Inline)

	_, err = normalizeAs("x", "html")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestScoreCommand(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	job := filepath.Join(dir, "job.md")
	output := filepath.Join(dir, "out", "score.json")
	require.NoError(t, os.WriteFile(resume, []byte("Python developer. Built ETL jobs in Python backed by SQL."), 0o600))
	require.NoError(t, os.WriteFile(job, []byte("Requires Python, SQL, AWS"), 0o600))

	cfg := &config.Config{
		Scoring: scoring.DefaultConfig(),
		App:     config.AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text", "markdown"}},
	}
	rootCmd.SetArgs([]string{"score", resume, job, "-o", output})
	require.NoError(t, Execute(context.Background(), cfg, testLogger()))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var result types.MatchResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 67, result.KeywordAnalysis.MatchPercentage)
	assert.Equal(t, []string{"AWS"}, result.KeywordAnalysis.MissingKeywords)
}
