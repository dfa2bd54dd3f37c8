package analysis

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"resumatch/internal/ai"
	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/ingest"
	"resumatch/internal/observability"
	"resumatch/internal/scoring"
	"resumatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

const (
	testResume = "Python developer. Built ETL jobs in Python backed by SQL."
	testJob    = "We are hiring a backend engineer to build data pipelines. Requires Python, SQL, AWS."
)

const remotePayload = `{
  "score": 72,
  "scoreBreakdown": {"skillMatch": 66.67, "semanticSimilarity": 71.2, "keywordDensityBonus": 4},
  "keywordAnalysis": {
    "matchingKeywords": ["Python", "SQL"],
    "missingKeywords": ["AWS"],
    "totalJobKeywords": 3,
    "matchPercentage": 67,
    "keywordDensity": {"Python": 2, "SQL": 1}
  },
  "atsStatus": {"level": "medium", "label": "Strong Match"},
  "summary": "Backend engineer.",
  "recommendations": ["Keywords: Add AWS"],
  "skillGaps": [{"skill": "AWS", "importance": "high", "resources": ["AWS Skill Builder"]}]
}`

var errUpstream = errors.NewUpstreamUnavailableError("AI service temporarily unavailable", nil)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string

	domain    string
	metadata  types.ResumeMetadata
	recs      []string
	gaps      types.SkillGapAnalysis
	match     []byte
	letter    string
	prep      types.InterviewPrep
	salary    types.SalaryInsights
	chatReply string
	err       error

	lastSalary types.SalaryInput
	lastChat   types.ChatInput
}

func (f *fakeProvider) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeProvider) usage() *ai.TokenUsage {
	return &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
}

func (f *fakeProvider) DetectDomain(context.Context, string) (string, *ai.TokenUsage, error) {
	f.record("domain")
	return f.domain, f.usage(), f.err
}

func (f *fakeProvider) ExtractMetadata(context.Context, string) (types.ResumeMetadata, *ai.TokenUsage, error) {
	f.record("metadata")
	return f.metadata, f.usage(), f.err
}

func (f *fakeProvider) Recommendations(context.Context, types.RecommendationsInput) ([]string, *ai.TokenUsage, error) {
	f.record("recommendations")
	return f.recs, f.usage(), f.err
}

func (f *fakeProvider) SkillGaps(context.Context, types.SkillGapInput) (types.SkillGapAnalysis, *ai.TokenUsage, error) {
	f.record("skillGaps")
	return f.gaps, f.usage(), f.err
}

func (f *fakeProvider) AnalyzeMatch(context.Context, types.MatchInput) ([]byte, *ai.TokenUsage, error) {
	f.record("analyze")
	return f.match, f.usage(), f.err
}

func (f *fakeProvider) CoverLetter(_ context.Context, in types.CoverLetterInput) (types.CoverLetter, *ai.TokenUsage, error) {
	f.record("coverLetter")
	return types.CoverLetter{CompanyName: in.CompanyName, Letter: f.letter}, f.usage(), f.err
}

func (f *fakeProvider) InterviewPrep(context.Context, types.InterviewPrepInput) (types.InterviewPrep, *ai.TokenUsage, error) {
	f.record("interviewPrep")
	return f.prep, f.usage(), f.err
}

func (f *fakeProvider) SalaryInsights(_ context.Context, in types.SalaryInput) (types.SalaryInsights, *ai.TokenUsage, error) {
	f.record("salary")
	f.lastSalary = in
	return f.salary, f.usage(), f.err
}

func (f *fakeProvider) CareerChat(_ context.Context, in types.ChatInput) (types.ChatReply, *ai.TokenUsage, error) {
	f.record("chat")
	f.lastChat = in
	return types.ChatReply{Response: f.chatReply, Domain: in.Session.Domain}, f.usage(), f.err
}

func (f *fakeProvider) GetModelInfo(context.Context) []*ai.ModelInfo { return nil }

func (f *fakeProvider) Close() error { return nil }

type fakeRecorder struct {
	mu     sync.Mutex
	ops    []string
	tokens int64
	events map[string][]bool
	scores []int
}

func (r *fakeRecorder) TrackAIOperation(ctx context.Context, op string, fn func(context.Context) *observability.AIOperationResult) error {
	res := fn(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	if res.TokenUsage != nil {
		r.tokens += res.TokenUsage.TotalTokens
	}
	return res.Error
}

func (r *fakeRecorder) RecordBusinessMetric(_ context.Context, metricType string, success bool, _ ...attribute.KeyValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = map[string][]bool{}
	}
	r.events[metricType] = append(r.events[metricType], success)
}

func (r *fakeRecorder) RecordMatchScore(_ context.Context, score int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores = append(r.scores, score)
}

func testLogger() *errors.Logger {
	return errors.NewLoggerTo(io.Discard, slog.LevelError)
}

func newTestService(t *testing.T, mode string, provider ai.Provider, recorder Recorder) *Service {
	t.Helper()
	scorer, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)
	svc, err := New(config.AnalysisConfig{Mode: mode, MinJobWords: 10}, Deps{
		Scorer: scorer,
		AI:     provider,
		Ingestor: ingest.New(config.UploadConfig{
			MaxFileSize:       1 << 20,
			AllowedExtensions: []string{".PDF", ".docx", ".txt"},
		}, nil),
		Recorder: recorder,
		Logger:   testLogger(),
	})
	require.NoError(t, err)
	return svc
}

func testSession() types.SessionContext {
	return types.SessionContext{
		ID:         "s1",
		Filename:   "cv.pdf",
		ResumeText: testResume,
		Domain:     "Data Engineering",
		Metadata:   types.ResumeMetadata{YearsExperience: "6"},
	}
}

func localResult(t *testing.T) *types.MatchResult {
	t.Helper()
	scorer, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)
	result, err := scorer.Score(testResume, testJob)
	require.NoError(t, err)
	return result
}

func TestNewRejectsRemoteWithoutAI(t *testing.T) {
	scorer, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)

	_, err = New(config.AnalysisConfig{Mode: config.ModeRemote}, Deps{Scorer: scorer, Logger: testLogger()})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = New(config.AnalysisConfig{}, Deps{Logger: testLogger()})
	assert.Error(t, err)
}

func TestAnalyzeRejectsInsufficientInput(t *testing.T) {
	svc := newTestService(t, config.ModeLocal, nil, nil)

	tests := []struct {
		name  string
		sess  types.SessionContext
		job   string
		field string
	}{
		{name: "no resume", sess: types.SessionContext{}, job: testJob, field: "resume"},
		{name: "blank job", sess: testSession(), job: "  \n ", field: "jobDescription"},
		{name: "short job", sess: testSession(), job: "Python SQL AWS engineer wanted", field: "jobDescription"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(context.Background(), tt.sess, tt.job)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeInsufficientInput))

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Context["field"])
		})
	}
}

func TestAnalyzeLocalWithoutAI(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := newTestService(t, config.ModeLocal, nil, recorder)

	report, err := svc.Analyze(context.Background(), testSession(), testJob)
	require.NoError(t, err)

	want := localResult(t)
	assert.Equal(t, *want, report.Result)
	assert.Equal(t, "Data Engineering", report.DetectedDomain)
	assert.Equal(t, "cv.pdf", report.Filename)
	assert.Equal(t, testJob, report.JobDescription)
	assert.Empty(t, recorder.ops)
	assert.Equal(t, []bool{true}, recorder.events[observability.EventJobAnalyzed])
	assert.Equal(t, []int{want.Score}, recorder.scores)
}

func TestAnalyzeLocalMergesAIEnrichment(t *testing.T) {
	provider := &fakeProvider{
		recs: []string{"Cloud: Add an AWS certification", "cloud: add an aws certification"},
		gaps: types.SkillGapAnalysis{
			CurrentSkills: []string{"Python"},
			SkillGaps:     []types.SkillGap{{Skill: "AWS", Importance: "high", Resources: []string{"AWS Skill Builder"}}},
		},
	}
	recorder := &fakeRecorder{}
	svc := newTestService(t, config.ModeLocal, provider, recorder)

	report, err := svc.Analyze(context.Background(), testSession(), testJob)
	require.NoError(t, err)

	local := localResult(t)
	recs := report.Result.Recommendations
	require.Len(t, recs, len(local.Recommendations)+1)
	assert.Equal(t, local.Recommendations, recs[:len(local.Recommendations)])
	assert.Equal(t, "Cloud: Add an AWS certification", recs[len(recs)-1])
	assert.Equal(t, provider.gaps.SkillGaps, report.Result.SkillGaps)
	assert.Equal(t, local.Score, report.Result.Score)

	assert.ElementsMatch(t, []string{"recommendations", "skill_gaps"}, recorder.ops)
	assert.Equal(t, int64(30), recorder.tokens)
}

func TestAnalyzeLocalFallsBackWhenAIFails(t *testing.T) {
	svc := newTestService(t, config.ModeLocal, &fakeProvider{err: errUpstream}, nil)

	report, err := svc.Analyze(context.Background(), testSession(), testJob)
	require.NoError(t, err)

	local := localResult(t)
	assert.Equal(t, local.SkillGaps, report.Result.SkillGaps)
	assert.Equal(t, local.Recommendations, report.Result.Recommendations[:len(local.Recommendations)])
	assert.Subset(t, report.Result.Recommendations, fallbackRecommendations)
}

func TestAnalyzeRemote(t *testing.T) {
	t.Run("decodes the upstream payload", func(t *testing.T) {
		svc := newTestService(t, config.ModeRemote, &fakeProvider{match: []byte(remotePayload)}, nil)

		report, err := svc.Analyze(context.Background(), testSession(), testJob)
		require.NoError(t, err)
		assert.Equal(t, 72, report.Result.Score)
		assert.Equal(t, []string{"AWS"}, report.Result.KeywordAnalysis.MissingKeywords)
		assert.Equal(t, "Strong Match", report.Result.ATSStatus.Label)
	})

	t.Run("incomplete payload", func(t *testing.T) {
		svc := newTestService(t, config.ModeRemote, &fakeProvider{match: []byte(`{"score": 72}`)}, nil)

		_, err := svc.Analyze(context.Background(), testSession(), testJob)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeIncompleteResponse))
	})

	t.Run("upstream failure has no fallback", func(t *testing.T) {
		recorder := &fakeRecorder{}
		svc := newTestService(t, config.ModeRemote, &fakeProvider{err: errUpstream}, recorder)

		_, err := svc.Analyze(context.Background(), testSession(), testJob)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeUpstreamUnavailable))
		assert.Equal(t, []bool{false}, recorder.events[observability.EventJobAnalyzed])
		assert.Empty(t, recorder.scores)
	})
}

func TestProfile(t *testing.T) {
	t.Run("uses detected values", func(t *testing.T) {
		meta := types.ResumeMetadata{Name: "Ada Lovelace", YearsExperience: "6"}
		svc := newTestService(t, config.ModeLocal, &fakeProvider{domain: "Data Engineering", metadata: meta}, nil)

		sess := svc.Profile(context.Background(), "cv.pdf", testResume)
		assert.Equal(t, "Data Engineering", sess.Domain)
		assert.Equal(t, meta, sess.Metadata)
		assert.Equal(t, testResume, sess.ResumeText)
	})

	t.Run("falls back to defaults", func(t *testing.T) {
		svc := newTestService(t, config.ModeLocal, &fakeProvider{err: errUpstream}, nil)

		sess := svc.Profile(context.Background(), "cv.pdf", testResume)
		assert.Equal(t, types.DefaultDomain, sess.Domain)
		assert.Equal(t, types.UnknownMetadata(), sess.Metadata)
	})

	t.Run("without AI", func(t *testing.T) {
		svc := newTestService(t, config.ModeLocal, nil, nil)

		sess := svc.Profile(context.Background(), "cv.pdf", testResume)
		assert.Equal(t, types.DefaultDomain, sess.Domain)
		assert.Equal(t, types.NotFound, sess.Metadata.Email)
	})
}

func TestIngest(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := newTestService(t, config.ModeLocal, &fakeProvider{domain: "Data Engineering"}, recorder)

	sess, err := svc.Ingest(context.Background(), "cv.txt", []byte("  Python   developer\n\nSQL  "))
	require.NoError(t, err)
	assert.Equal(t, "Python developer SQL", sess.ResumeText)
	assert.Equal(t, "Data Engineering", sess.Domain)

	_, err = svc.Ingest(context.Background(), "cv.exe", []byte("MZ"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	assert.Equal(t, []bool{true, false}, recorder.events[observability.EventResumeUploaded])
}

func TestCoverLetter(t *testing.T) {
	provider := &fakeProvider{letter: "Dear Hiring Team,\n\nI build **data pipelines** in Python.\n\n\nSincerely,\nAda"}
	svc := newTestService(t, config.ModeLocal, provider, nil)

	letter, err := svc.CoverLetter(context.Background(), testSession(), testJob, "  Acme ")
	require.NoError(t, err)
	assert.Equal(t, "Acme", letter.CompanyName)
	require.Len(t, letter.Paragraphs, 3)
	assert.Equal(t, "I build data pipelines in Python.", letter.Paragraphs[1].Content)

	_, err = svc.CoverLetter(context.Background(), testSession(), " ", "Acme")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInsufficientInput))

	noAI := newTestService(t, config.ModeLocal, nil, nil)
	_, err = noAI.CoverLetter(context.Background(), testSession(), testJob, "Acme")
	assert.True(t, errors.IsType(err, errors.ErrorTypeUpstreamUnavailable))
}

func TestInterviewPrepFallback(t *testing.T) {
	recorder := &fakeRecorder{}
	svc := newTestService(t, config.ModeLocal, &fakeProvider{err: errUpstream}, recorder)

	prep, err := svc.InterviewPrep(context.Background(), testSession(), testJob)
	require.NoError(t, err)
	assert.Equal(t, []string{"Unable to generate"}, prep.TechnicalQuestions)
	assert.Equal(t, []string{"Unable to generate"}, prep.QuestionsToAsk)
	assert.Equal(t, []bool{false}, recorder.events[observability.EventInterviewPrep])

	want := types.InterviewPrep{TechnicalQuestions: []string{"Design a pipeline"}}
	svc = newTestService(t, config.ModeLocal, &fakeProvider{prep: want}, nil)
	prep, err = svc.InterviewPrep(context.Background(), testSession(), testJob)
	require.NoError(t, err)
	assert.Equal(t, want, *prep)
}

func TestSalary(t *testing.T) {
	provider := &fakeProvider{salary: types.SalaryInsights{EstimatedRange: "$120k-$150k"}}
	svc := newTestService(t, config.ModeLocal, provider, nil)

	insights := svc.Salary(context.Background(), testSession(), " Berlin ")
	assert.Equal(t, "$120k-$150k", insights.EstimatedRange)
	assert.Equal(t, types.SalaryInput{Domain: "Data Engineering", YearsExperience: "6", Location: "Berlin"}, provider.lastSalary)

	fallback := newTestService(t, config.ModeLocal, nil, nil).Salary(context.Background(), testSession(), "")
	assert.Equal(t, "Varies significantly", fallback.EstimatedRange)
	assert.Equal(t, []string{"Experience level", "Location", "Company size"}, fallback.Factors)
	assert.Equal(t, []string{"Research market rates", "Highlight unique skills"}, fallback.NegotiationTips)
}

func TestChat(t *testing.T) {
	provider := &fakeProvider{chatReply: "Learn Terraform next."}
	svc := newTestService(t, config.ModeLocal, provider, nil)

	sess := testSession()
	sess.History = []types.ChatTurn{{Query: "hi", Response: "hello"}}
	reply, turn, err := svc.Chat(context.Background(), sess, "  What should I learn?  ")
	require.NoError(t, err)
	assert.Equal(t, "Learn Terraform next.", reply.Response)
	assert.Equal(t, "Data Engineering", reply.Domain)
	assert.Equal(t, types.ChatTurn{Query: "What should I learn?", Response: "Learn Terraform next."}, turn)
	assert.Len(t, provider.lastChat.Session.History, 1)

	_, _, err = svc.Chat(context.Background(), sess, "   ")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInsufficientInput))
}

func TestChatFailuresAreUpstreamUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "ai error", err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "model rejected the request", nil)},
		{name: "upstream", err: errUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, config.ModeLocal, &fakeProvider{err: tt.err}, nil)
			_, _, err := svc.Chat(context.Background(), testSession(), "Roadmap to data science?")
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeUpstreamUnavailable))
		})
	}
}

func TestMergeRecommendations(t *testing.T) {
	got := mergeRecommendations(
		[]string{"Keywords: Add AWS", "Wording: Mirror the job"},
		[]string{"keywords: add aws", "", "Format: One page"},
	)
	assert.Equal(t, []string{"Keywords: Add AWS", "Wording: Mirror the job", "Format: One page"}, got)
}
