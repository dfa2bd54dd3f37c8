// Package analysis ties resume ingestion, local scoring and the AI
// provider together. Every AI call made here has a fallback except the
// ones whose whole output is generated text (cover letters and chat).
package analysis

import (
	"context"
	"fmt"
	"strings"

	"resumatch/internal/ai"
	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/ingest"
	"resumatch/internal/normalize"
	"resumatch/internal/observability"
	"resumatch/internal/payload"
	"resumatch/internal/scoring"
	"resumatch/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const unableToGenerate = "Unable to generate"

var fallbackRecommendations = []string{
	"Keywords: Add missing skills to resume",
	"Quantify: Include metrics and numbers",
	"Action Verbs: Use stronger action verbs",
	"Format: Improve resume structure",
}

// Recorder receives AI timings and business events. *observability.ObservabilityManager
// satisfies it.
type Recorder interface {
	TrackAIOperation(ctx context.Context, operation string, fn func(context.Context) *observability.AIOperationResult) error
	RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue)
	RecordMatchScore(ctx context.Context, score int, mode string)
}

// Deps are the collaborators of a Service. AI may be nil, in which case
// analysis runs on the local scorer alone and AI-only operations fail
// with an upstream-unavailable error.
type Deps struct {
	Scorer   *scoring.Scorer
	AI       ai.Provider
	Ingestor *ingest.Ingestor
	Recorder Recorder
	Logger   *errors.Logger
}

// Service runs the resume operations for one configuration.
type Service struct {
	cfg      config.AnalysisConfig
	scorer   *scoring.Scorer
	ai       ai.Provider
	ingestor *ingest.Ingestor
	recorder Recorder
	logger   *errors.Logger
}

// New checks that deps can serve cfg.Mode.
func New(cfg config.AnalysisConfig, deps Deps) (*Service, error) {
	if deps.Scorer == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "analysis requires a scorer", nil)
	}
	if deps.Logger == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "analysis requires a logger", nil)
	}
	if cfg.Mode == config.ModeRemote && deps.AI == nil {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"remote analysis mode requires an AI provider; set a Gemini API key or use local mode", nil)
	}
	if cfg.Mode == "" {
		cfg.Mode = config.ModeLocal
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		cfg:      cfg,
		scorer:   deps.Scorer,
		ai:       deps.AI,
		ingestor: deps.Ingestor,
		recorder: recorder,
		logger:   deps.Logger,
	}, nil
}

// AIEnabled reports whether an AI provider is configured.
func (s *Service) AIEnabled() bool {
	return s.ai != nil
}

// Mode returns the analysis mode in use.
func (s *Service) Mode() string {
	return s.cfg.Mode
}

// Scorer returns the local scorer.
func (s *Service) Scorer() *scoring.Scorer {
	return s.scorer
}

// Ingest extracts the text of an uploaded resume and profiles it.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (types.SessionContext, error) {
	if s.ingestor == nil {
		return types.SessionContext{}, errors.NewConfigError(errors.ErrCodeInvalidConfig, "resume uploads are not configured", nil)
	}
	text, err := s.ingestor.Extract(filename, data)
	if err != nil {
		s.recorder.RecordBusinessMetric(ctx, observability.EventResumeUploaded, false,
			attribute.String("extension", ingest.Extension(filename)))
		return types.SessionContext{}, err
	}

	sess := s.Profile(ctx, filename, text)
	s.recorder.RecordBusinessMetric(ctx, observability.EventResumeUploaded, true,
		attribute.String("extension", ingest.Extension(filename)),
		attribute.String("domain", sess.Domain))
	return sess, nil
}

// Profile detects the domain and metadata of resume text concurrently.
// Either lookup falling through leaves its default in place.
func (s *Service) Profile(ctx context.Context, filename, text string) types.SessionContext {
	sess := types.SessionContext{
		Filename:   filename,
		ResumeText: text,
		Domain:     types.DefaultDomain,
		Metadata:   types.UnknownMetadata(),
	}
	if s.ai == nil {
		return sess
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.track(gctx, "detect_domain", func(ctx context.Context) (*ai.TokenUsage, error) {
			domain, usage, err := s.ai.DetectDomain(ctx, text)
			if err == nil {
				sess.Domain = domain
			}
			return usage, err
		})
		if err != nil {
			s.logger.LogError(err, "Domain detection failed, using default", "filename", filename)
		}
		return nil
	})
	g.Go(func() error {
		err := s.track(gctx, "extract_metadata", func(ctx context.Context) (*ai.TokenUsage, error) {
			meta, usage, err := s.ai.ExtractMetadata(ctx, text)
			if err == nil {
				sess.Metadata = meta
			}
			return usage, err
		})
		if err != nil {
			s.logger.LogError(err, "Metadata extraction failed, using defaults", "filename", filename)
		}
		return nil
	})
	_ = g.Wait()

	s.logger.Info("Resume profiled",
		"filename", filename,
		"text_length", len(text),
		"domain", sess.Domain)
	return sess
}

// Analyze scores the session's resume against jobDescription.
func (s *Service) Analyze(ctx context.Context, sess types.SessionContext, jobDescription string) (*types.AnalysisReport, error) {
	if err := requireResume(sess); err != nil {
		return nil, err
	}
	if err := s.checkJobDescription(jobDescription); err != nil {
		return nil, err
	}
	domain := domainOf(sess)

	var (
		result *types.MatchResult
		err    error
	)
	if s.cfg.Mode == config.ModeRemote {
		result, err = s.analyzeRemote(ctx, sess, jobDescription, domain)
	} else {
		result, err = s.analyzeLocal(ctx, sess, jobDescription, domain)
	}

	s.recorder.RecordBusinessMetric(ctx, observability.EventJobAnalyzed, err == nil,
		attribute.String("mode", s.cfg.Mode),
		attribute.String("domain", domain))
	if err != nil {
		return nil, err
	}
	s.recorder.RecordMatchScore(ctx, result.Score, s.cfg.Mode)

	s.logger.Info("Resume analyzed",
		"mode", s.cfg.Mode,
		"domain", domain,
		"score", result.Score,
		"ats_level", result.ATSStatus.Level)

	return &types.AnalysisReport{
		JobDescription: jobDescription,
		DetectedDomain: domain,
		Filename:       sess.Filename,
		Result:         *result,
	}, nil
}

func (s *Service) checkJobDescription(jobDescription string) error {
	words := len(strings.Fields(jobDescription))
	if words == 0 {
		return errors.NewInsufficientInputError("jobDescription", "Job description is empty")
	}
	if words < s.cfg.MinJobWords {
		return errors.NewInsufficientInputError("jobDescription",
			fmt.Sprintf("Job description too short (%d words); provide at least %d words for an accurate analysis",
				words, s.cfg.MinJobWords)).
			WithContext("words", words)
	}
	return nil
}

// analyzeLocal scores locally, then asks the AI for recommendations and
// skill gaps at the same time. Local findings stay first.
func (s *Service) analyzeLocal(ctx context.Context, sess types.SessionContext, jobDescription, domain string) (*types.MatchResult, error) {
	result, err := s.scorer.Score(sess.ResumeText, jobDescription)
	if err != nil {
		return nil, err
	}
	if s.ai == nil {
		return result, nil
	}

	var (
		aiRecs []string
		gaps   types.SkillGapAnalysis
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.track(gctx, "recommendations", func(ctx context.Context) (*ai.TokenUsage, error) {
			recs, usage, err := s.ai.Recommendations(ctx, types.RecommendationsInput{
				ResumeText:      sess.ResumeText,
				JobDescription:  jobDescription,
				Domain:          domain,
				Score:           result.Score,
				MissingKeywords: result.KeywordAnalysis.MissingKeywords,
			})
			aiRecs = recs
			return usage, err
		})
		if err != nil {
			s.logger.LogError(err, "AI recommendations failed, using fallback list", "domain", domain)
			aiRecs = fallbackRecommendations
		}
		return nil
	})
	g.Go(func() error {
		err := s.track(gctx, "skill_gaps", func(ctx context.Context) (*ai.TokenUsage, error) {
			analysis, usage, err := s.ai.SkillGaps(ctx, types.SkillGapInput{
				ResumeText:     sess.ResumeText,
				JobDescription: jobDescription,
				Domain:         domain,
			})
			gaps = analysis
			return usage, err
		})
		if err != nil {
			s.logger.LogError(err, "AI skill gap analysis failed, keeping local gaps", "domain", domain)
		}
		return nil
	})
	_ = g.Wait()

	result.Recommendations = mergeRecommendations(result.Recommendations, aiRecs)
	if len(gaps.SkillGaps) > 0 {
		result.SkillGaps = gaps.SkillGaps
	}
	return result, nil
}

func (s *Service) analyzeRemote(ctx context.Context, sess types.SessionContext, jobDescription, domain string) (*types.MatchResult, error) {
	var raw []byte
	err := s.track(ctx, "analyze_match", func(ctx context.Context) (*ai.TokenUsage, error) {
		out, usage, err := s.ai.AnalyzeMatch(ctx, types.MatchInput{
			ResumeText:     sess.ResumeText,
			JobDescription: jobDescription,
			Domain:         domain,
		})
		raw = out
		return usage, err
	})
	if err != nil {
		return nil, err
	}
	return payload.Decode(raw)
}

// CoverLetter writes a cover letter for the session's resume.
func (s *Service) CoverLetter(ctx context.Context, sess types.SessionContext, jobDescription, company string) (*types.CoverLetter, error) {
	if err := s.requireAI(); err != nil {
		return nil, err
	}
	if err := requireResume(sess); err != nil {
		return nil, err
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.NewInsufficientInputError("jobDescription", "Job description is empty")
	}

	var letter types.CoverLetter
	err := s.track(ctx, "cover_letter", func(ctx context.Context) (*ai.TokenUsage, error) {
		out, usage, err := s.ai.CoverLetter(ctx, types.CoverLetterInput{
			ResumeText:     sess.ResumeText,
			JobDescription: jobDescription,
			Domain:         domainOf(sess),
			CompanyName:    strings.TrimSpace(company),
		})
		letter = out
		return usage, err
	})
	s.recorder.RecordBusinessMetric(ctx, observability.EventCoverLetter, err == nil, attribute.String("domain", domainOf(sess)))
	if err != nil {
		return nil, err
	}
	letter.Paragraphs = normalize.Blocks(letter.Letter)
	return &letter, nil
}

// InterviewPrep lists likely questions. Failures yield a placeholder set.
func (s *Service) InterviewPrep(ctx context.Context, sess types.SessionContext, jobDescription string) (*types.InterviewPrep, error) {
	if err := requireResume(sess); err != nil {
		return nil, err
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.NewInsufficientInputError("jobDescription", "Job description is empty")
	}

	prep, err := s.interviewPrep(ctx, sess, jobDescription)
	s.recorder.RecordBusinessMetric(ctx, observability.EventInterviewPrep, err == nil, attribute.String("domain", domainOf(sess)))
	if err != nil {
		s.logger.LogError(err, "Interview prep failed, using placeholder", "domain", domainOf(sess))
		prep = types.InterviewPrep{
			TechnicalQuestions:  []string{unableToGenerate},
			BehavioralQuestions: []string{unableToGenerate},
			KeyTalkingPoints:    []string{unableToGenerate},
			QuestionsToAsk:      []string{unableToGenerate},
		}
	}
	return &prep, nil
}

func (s *Service) interviewPrep(ctx context.Context, sess types.SessionContext, jobDescription string) (types.InterviewPrep, error) {
	if err := s.requireAI(); err != nil {
		return types.InterviewPrep{}, err
	}
	var prep types.InterviewPrep
	err := s.track(ctx, "interview_prep", func(ctx context.Context) (*ai.TokenUsage, error) {
		out, usage, err := s.ai.InterviewPrep(ctx, types.InterviewPrepInput{
			ResumeText:     sess.ResumeText,
			JobDescription: jobDescription,
			Domain:         domainOf(sess),
		})
		prep = out
		return usage, err
	})
	return prep, err
}

// Salary gives an approximate salary view for the session's domain and
// experience. Failures yield generic guidance.
func (s *Service) Salary(ctx context.Context, sess types.SessionContext, location string) *types.SalaryInsights {
	insights, err := s.salary(ctx, sess, location)
	s.recorder.RecordBusinessMetric(ctx, observability.EventSalaryInsights, err == nil, attribute.String("domain", domainOf(sess)))
	if err != nil {
		s.logger.LogError(err, "Salary insights failed, using generic guidance", "domain", domainOf(sess))
		return &types.SalaryInsights{
			EstimatedRange:  "Varies significantly",
			Factors:         []string{"Experience level", "Location", "Company size"},
			NegotiationTips: []string{"Research market rates", "Highlight unique skills"},
		}
	}
	return &insights
}

func (s *Service) salary(ctx context.Context, sess types.SessionContext, location string) (types.SalaryInsights, error) {
	if err := s.requireAI(); err != nil {
		return types.SalaryInsights{}, err
	}
	var insights types.SalaryInsights
	err := s.track(ctx, "salary_insights", func(ctx context.Context) (*ai.TokenUsage, error) {
		out, usage, err := s.ai.SalaryInsights(ctx, types.SalaryInput{
			Domain:          domainOf(sess),
			YearsExperience: sess.Metadata.YearsExperience,
			Location:        strings.TrimSpace(location),
		})
		insights = out
		return usage, err
	})
	return insights, err
}

// Chat answers a career question in the context of sess. The caller
// records the returned turn in its history.
func (s *Service) Chat(ctx context.Context, sess types.SessionContext, query string) (*types.ChatReply, types.ChatTurn, error) {
	if err := s.requireAI(); err != nil {
		return nil, types.ChatTurn{}, err
	}
	if err := requireResume(sess); err != nil {
		return nil, types.ChatTurn{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ChatTurn{}, errors.NewInsufficientInputError("query", "Query cannot be empty")
	}

	var reply types.ChatReply
	err := s.track(ctx, "career_chat", func(ctx context.Context) (*ai.TokenUsage, error) {
		out, usage, err := s.ai.CareerChat(ctx, types.ChatInput{Session: sess, Query: query})
		reply = out
		return usage, err
	})
	s.recorder.RecordBusinessMetric(ctx, observability.EventCareerChatAnswer, err == nil, attribute.String("domain", domainOf(sess)))
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeAI) {
			err = errors.NewUpstreamUnavailableError("Career advisor is unavailable", err)
		}
		return nil, types.ChatTurn{}, err
	}
	return &reply, types.ChatTurn{Query: query, Response: reply.Response}, nil
}

func (s *Service) requireAI() error {
	if s.ai == nil {
		return errors.NewUpstreamUnavailableError("AI features are disabled; set a Gemini API key to enable them", nil)
	}
	return nil
}

// track reports one AI call to the recorder and returns its error.
func (s *Service) track(ctx context.Context, op string, fn func(context.Context) (*ai.TokenUsage, error)) error {
	return s.recorder.TrackAIOperation(ctx, op, func(ctx context.Context) *observability.AIOperationResult {
		usage, err := fn(ctx)
		res := &observability.AIOperationResult{Error: err}
		if usage != nil {
			res.TokenUsage = &observability.TokenUsage{
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
				TotalTokens:  usage.TotalTokens,
			}
		}
		return res
	})
}

func requireResume(sess types.SessionContext) error {
	if strings.TrimSpace(sess.ResumeText) == "" {
		return errors.NewInsufficientInputError("resume", "No resume available; upload a resume first")
	}
	return nil
}

func domainOf(sess types.SessionContext) string {
	if strings.TrimSpace(sess.Domain) == "" {
		return types.DefaultDomain
	}
	return sess.Domain
}

// mergeRecommendations appends extra after base, skipping case-insensitive duplicates.
func mergeRecommendations(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, rec := range append(append([]string{}, base...), extra...) {
		key := strings.ToLower(strings.TrimSpace(rec))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, rec)
	}
	return merged
}

type nopRecorder struct{}

func (nopRecorder) TrackAIOperation(ctx context.Context, _ string, fn func(context.Context) *observability.AIOperationResult) error {
	if res := fn(ctx); res != nil {
		return res.Error
	}
	return nil
}

func (nopRecorder) RecordBusinessMetric(context.Context, string, bool, ...attribute.KeyValue) {}

func (nopRecorder) RecordMatchScore(context.Context, int, string) {}
