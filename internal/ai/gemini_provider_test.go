package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

type stubCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

// stubGenerator answers GenerateContent from a queue of replies; the last
// reply repeats once the queue is drained.
type stubGenerator struct {
	mu      sync.Mutex
	calls   []stubCall
	replies []stubReply
	gets    []string
}

type stubReply struct {
	text string
	err  error
}

func (s *stubGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, stubCall{model: model, contents: contents, config: cfg})

	reply := s.replies[len(s.replies)-1]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	if reply.err != nil {
		return nil, reply.err
	}
	return textResponse(reply.text), nil
}

func (s *stubGenerator) Get(_ context.Context, model string, _ *genai.GetModelConfig) (*genai.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, model)
	return &genai.Model{Name: model, DisplayName: "Display " + model}, nil
}

func (s *stubGenerator) lastCall(t *testing.T) stubCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.calls, "generator was not called")
	return s.calls[len(s.calls)-1]
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 8,
			TotalTokenCount:      20,
		},
	}
}

func contentText(c *genai.Content) string {
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func float32Ptr(f float32) *float32 { return &f }
func boolPtr(b bool) *bool          { return &b }
func intPtr(i int) *int             { return &i }

func testConfig() *config.Config {
	return &config.Config{AI: config.AIConfig{
		Provider:         "gemini",
		Model:            "gemini-test",
		Timeout:          5 * time.Second,
		APIKey:           "test-key",
		Temperature:      0.2,
		UseSystemPrompts: true,
		Chat:             config.OperationAIConfig{Temperature: float32Ptr(0.6)},
	}}
}

func newTestProvider(t *testing.T, cfg *config.Config, replies ...stubReply) (*GeminiProvider, *stubGenerator) {
	t.Helper()
	stub := &stubGenerator{replies: replies}
	logger := errors.NewLoggerTo(io.Discard, slog.LevelDebug)
	p, err := newGeminiProvider(cfg, logger, func(config.OperationAIConfig) (generator, error) {
		return stub, nil
	})
	require.NoError(t, err)
	p.backoff = func(int) time.Duration { return time.Millisecond }
	return p, stub
}

func TestDetectDomain(t *testing.T) {
	p, stub := newTestProvider(t, testConfig(), stubReply{text: "**Data Science**!\nIt is clearly data work."})

	resume := strings.Repeat("a", 2000)
	domain, usage, err := p.DetectDomain(context.Background(), resume)
	require.NoError(t, err)
	assert.Equal(t, "Data Science", domain)
	require.NotNil(t, usage)
	assert.Equal(t, int64(20), usage.TotalTokens)

	call := stub.lastCall(t)
	assert.Equal(t, "gemini-test", call.model)
	prompt := contentText(call.contents[0])
	assert.Contains(t, prompt, strings.Repeat("a", resumeLong))
	assert.NotContains(t, prompt, strings.Repeat("a", resumeLong+1))
	assert.Contains(t, prompt, "Respond with ONLY the domain name.")
	require.NotNil(t, call.config.SystemInstruction)
}

func TestSanitizeDomain(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Software Engineering.", "Software Engineering"},
		{"Finance & Accounting", "Finance & Accounting"},
		{"UI/UX   Design", "UI/UX Design"},
		{"C++ Development", "C Development"},
		{"  Healthcare\nBecause the resume...", "Healthcare"},
		{"", types.DefaultDomain},
		{"***", types.DefaultDomain},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeDomain(tt.raw))
		})
	}
}

func TestExtractMetadataFillsMissingFields(t *testing.T) {
	p, stub := newTestProvider(t, testConfig(), stubReply{text: `{"name":"Ada Lovelace","email":"ada@example.com","phone":"","location":"  ","yearsExperience":"5","educationLevel":"BSc","currentRole":"Engineer"}`})

	meta, _, err := p.ExtractMetadata(context.Background(), "Ada Lovelace, engineer")
	require.NoError(t, err)
	assert.Equal(t, types.ResumeMetadata{
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		Phone:           types.NotFound,
		Location:        types.NotFound,
		YearsExperience: "5",
		EducationLevel:  "BSc",
		CurrentRole:     "Engineer",
	}, meta)

	call := stub.lastCall(t)
	assert.Equal(t, "application/json", call.config.ResponseMIMEType)
	require.NotNil(t, call.config.ResponseSchema)
	assert.Len(t, call.config.ResponseSchema.Required, 7)
}

func TestExtractMetadataUnparseable(t *testing.T) {
	p, _ := newTestProvider(t, testConfig(), stubReply{text: "name: Ada"})

	_, _, err := p.ExtractMetadata(context.Background(), "Ada")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAI))
}

func TestParseRecommendations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "numbered with markup",
			text: "Here are 4 recommendations:\n1. **Keywords:** Add Kubernetes to your skills\n2) Quantify: Add metrics\n- Format: Use one column\n* Summary: Lead with Go",
			want: []string{
				"Keywords: Add Kubernetes to your skills",
				"Quantify: Add metrics",
				"Format: Use one column",
				"Summary: Lead with Go",
			},
		},
		{
			name: "caps at four",
			text: "A: one\nB: two\nC: three\nD: four\nE: five",
			want: []string{"A: one", "B: two", "C: three", "D: four"},
		},
		{
			name: "skips lines without advice",
			text: "Recommendations:\n\nKeywords: Add SQL\nno colon here",
			want: []string{"Keywords: Add SQL"},
		},
		{
			name: "nothing usable",
			text: "Looks great overall.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRecommendations(tt.text))
		})
	}
}

func TestRecommendations(t *testing.T) {
	p, stub := newTestProvider(t, testConfig(), stubReply{text: "1. Keywords: Add AWS\n2. Quantify: Show impact"})

	missing := []string{"aws", "docker", "kubernetes", "terraform", "gcp", "azure", "helm", "linux", "bash"}
	recs, _, err := p.Recommendations(context.Background(), types.RecommendationsInput{
		ResumeText:      "Go developer",
		JobDescription:  "Cloud engineer",
		Domain:          "Software Engineering",
		Score:           42,
		MissingKeywords: missing,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Keywords: Add AWS", "Quantify: Show impact"}, recs)

	prompt := contentText(stub.lastCall(t).contents[0])
	assert.Contains(t, prompt, "ATS score: 42%")
	assert.Contains(t, prompt, "helm, linux")
	assert.NotContains(t, prompt, "bash")
	assert.Contains(t, prompt, "As a Software Engineering resume expert")
}

func TestRecommendationsWithoutUsableLines(t *testing.T) {
	p, _ := newTestProvider(t, testConfig(), stubReply{text: "All good!"})

	_, _, err := p.Recommendations(context.Background(), types.RecommendationsInput{ResumeText: "r", JobDescription: "j"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIncompleteResponse))
}

func TestSkillGapsDefaultsEmptyArrays(t *testing.T) {
	p, _ := newTestProvider(t, testConfig(), stubReply{text: `{"currentSkills":["Go"],"skillGaps":[{"skill":"Kubernetes","importance":"high"}]}`})

	out, _, err := p.SkillGaps(context.Background(), types.SkillGapInput{ResumeText: "Go", JobDescription: "Go, Kubernetes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, out.CurrentSkills)
	require.Len(t, out.SkillGaps, 1)
	assert.Equal(t, "Kubernetes", out.SkillGaps[0].Skill)
	assert.NotNil(t, out.SkillGaps[0].Resources)
}

func TestAnalyzeMatchReturnsRawJSON(t *testing.T) {
	raw := `{"score": 80}`
	p, stub := newTestProvider(t, testConfig(), stubReply{text: raw})

	got, _, err := p.AnalyzeMatch(context.Background(), types.MatchInput{ResumeText: "r", JobDescription: "j"})
	require.NoError(t, err)
	assert.Equal(t, raw, string(got))

	call := stub.lastCall(t)
	assert.Equal(t, "application/json", call.config.ResponseMIMEType)
	assert.Nil(t, call.config.ResponseSchema)
}

func TestCoverLetterDefaultsCompany(t *testing.T) {
	p, stub := newTestProvider(t, testConfig(), stubReply{text: "\n  Dear Hiring Manager,\n\nI am excited...  \n"})

	letter, _, err := p.CoverLetter(context.Background(), types.CoverLetterInput{
		ResumeText:     "resume",
		JobDescription: "job",
		CompanyName:    "  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "the company", letter.CompanyName)
	assert.Equal(t, "Dear Hiring Manager,\n\nI am excited...", letter.Letter)
	assert.Contains(t, contentText(stub.lastCall(t).contents[0]), "applying to the company in the General Career Field field")
}

func TestSalaryInsightsDefaults(t *testing.T) {
	p, stub := newTestProvider(t, testConfig(), stubReply{text: `{"estimatedRange":"$90k-$120k","factors":["Experience"],"negotiationTips":["Research"]}`})

	out, _, err := p.SalaryInsights(context.Background(), types.SalaryInput{Domain: "Finance", YearsExperience: types.NotFound})
	require.NoError(t, err)
	assert.Equal(t, "$90k-$120k", out.EstimatedRange)
	assert.Contains(t, contentText(stub.lastCall(t).contents[0]), "Finance with Unknown years of experience in Global")
}

func TestInterviewPrep(t *testing.T) {
	p, _ := newTestProvider(t, testConfig(), stubReply{text: `{"technicalQuestions":["Q1","Q2","Q3"],"behavioralQuestions":["B1","B2"],"keyTalkingPoints":["T1"],"questionsToAsk":["A1","A2"]}`})

	out, _, err := p.InterviewPrep(context.Background(), types.InterviewPrepInput{ResumeText: "r", JobDescription: "j"})
	require.NoError(t, err)
	assert.Len(t, out.TechnicalQuestions, 3)
	assert.Equal(t, []string{"A1", "A2"}, out.QuestionsToAsk)
}

func TestCareerChatReplaysRecentHistory(t *testing.T) {
	p, stub := newTestProvider(t, testConfig(), stubReply{text: "Focus on portfolio projects."})

	var history []types.ChatTurn
	for i := 0; i < 9; i++ {
		history = append(history, types.ChatTurn{Query: fmt.Sprintf("q%d", i), Response: fmt.Sprintf("r%d", i)})
	}

	reply, _, err := p.CareerChat(context.Background(), types.ChatInput{
		Session: types.SessionContext{ResumeText: "resume", Domain: "Marketing", History: history},
		Query:   "How do I move into product?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Focus on portfolio projects.", reply.Response)
	assert.Equal(t, "Marketing", reply.Domain)

	call := stub.lastCall(t)
	require.Len(t, call.contents, 2*chatHistoryTurns+1)
	assert.Equal(t, "q2", contentText(call.contents[0]))
	assert.Equal(t, genai.RoleModel, call.contents[1].Role)
	assert.Equal(t, "How do I move into product?", contentText(call.contents[len(call.contents)-1]))
	require.NotNil(t, call.config.Temperature)
	assert.InDelta(t, 0.6, *call.config.Temperature, 1e-6)
	assert.Contains(t, contentText(call.config.SystemInstruction), "specializing in Marketing")
}

func TestSystemPromptInlinedWhenDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Domain.UseSystemPrompts = boolPtr(false)
	p, stub := newTestProvider(t, cfg, stubReply{text: "Legal"})

	_, _, err := p.DetectDomain(context.Background(), "contracts")
	require.NoError(t, err)

	call := stub.lastCall(t)
	assert.Nil(t, call.config.SystemInstruction)
	assert.True(t, strings.HasPrefix(contentText(call.contents[0]), advisorRole))
}

func TestPromptOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Domain.Prompts = config.PromptConfig{User: "Domain for: {{.Resume}}"}
	p, stub := newTestProvider(t, cfg, stubReply{text: "Legal"})

	_, _, err := p.DetectDomain(context.Background(), "contracts")
	require.NoError(t, err)
	assert.Equal(t, "Domain for: contracts", contentText(stub.lastCall(t).contents[0]))

	cfg = testConfig()
	cfg.AI.Domain.Prompts = config.PromptConfig{User: "{{.Nope}}"}
	p, stub = newTestProvider(t, cfg, stubReply{text: "Legal"})

	_, _, err = p.DetectDomain(context.Background(), "contracts")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Empty(t, stub.calls)
}

func TestRetryPolicy(t *testing.T) {
	unavailable := &googleapi.Error{Code: 503, Message: "overloaded"}
	badRequest := &googleapi.Error{Code: 400, Message: "bad request"}

	tests := []struct {
		name      string
		replies   []stubReply
		wantCalls int
		wantType  errors.ErrorType
	}{
		{
			name:      "recovers after transient failure",
			replies:   []stubReply{{err: unavailable}, {text: "Finance"}},
			wantCalls: 2,
		},
		{
			name:      "does not retry client errors",
			replies:   []stubReply{{err: badRequest}},
			wantCalls: 1,
			wantType:  errors.ErrorTypeAI,
		},
		{
			name:      "gives up after max retries",
			replies:   []stubReply{{err: unavailable}},
			wantCalls: 3,
			wantType:  errors.ErrorTypeUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.AI.Domain.MaxRetries = intPtr(2)
			p, stub := newTestProvider(t, cfg, tt.replies...)

			domain, _, err := p.DetectDomain(context.Background(), "ledgers")
			assert.Len(t, stub.calls, tt.wantCalls)
			if tt.wantType == "" {
				require.NoError(t, err)
				assert.Equal(t, "Finance", domain)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.TypeOf(err))
		})
	}
}

func TestEmptyResponseIsIncomplete(t *testing.T) {
	p, _ := newTestProvider(t, testConfig(), stubReply{text: "   "})

	_, _, err := p.CoverLetter(context.Background(), types.CoverLetterInput{ResumeText: "r", JobDescription: "j"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIncompleteResponse))
}

func TestMissingAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.AI.APIKey = ""

	_, err := newGeminiProvider(cfg, errors.NewLoggerTo(io.Discard, slog.LevelInfo), func(config.OperationAIConfig) (generator, error) {
		t.Fatal("no client should be created without a key")
		return nil, nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestGetModelInfoChecksEachModelOnce(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Chat.Model = "gemini-chat"
	p, stub := newTestProvider(t, cfg, stubReply{text: "unused"})

	infos := p.GetModelInfo(context.Background())
	require.Len(t, infos, 2)
	assert.Equal(t, "gemini-test", infos[0].Name)
	assert.True(t, infos[0].Available)
	assert.Len(t, infos[0].Operations, len(config.Operations())-1)
	assert.Equal(t, []string{config.OpChat}, infos[1].Operations)
	assert.Equal(t, "Display gemini-chat", infos[1].DisplayName)
	assert.Equal(t, []string{"gemini-test", "gemini-chat"}, stub.gets)

	stats := p.CircuitBreakerStats()
	assert.Equal(t, true, stats["overall_healthy"])
}
