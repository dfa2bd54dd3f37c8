package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"resumatch/internal/config"
	resumatchErrors "resumatch/internal/errors"
	"resumatch/internal/normalize"
	"resumatch/internal/types"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const (
	modelCheckTimeout  = 10 * time.Second
	maxBackoff         = 30 * time.Second
	chatHistoryTurns   = 7
	maxRecommendations = 4
	defaultCompany     = "the company"
	unknownYears       = "Unknown"
	globalLocation     = "Global"
)

// operation is one AI operation with its resolved config and breakers.
type operation struct {
	name         string
	cfg          config.OperationAIConfig
	models       generator
	breaker      *AICircuitBreaker
	modelBreaker *ModelCircuitBreaker
}

// GeminiProvider implements Provider on Google Gemini.
type GeminiProvider struct {
	ops     map[string]*operation
	prompts *config.PromptStore
	logger  *resumatchErrors.Logger
	backoff func(attempt int) time.Duration
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates one Gemini client per distinct API key and an
// operation entry, with its own breakers, for every AI operation.
func NewGeminiProvider(ctx context.Context, cfg *config.Config, logger *resumatchErrors.Logger) (*GeminiProvider, error) {
	clients := make(map[string]*genai.Client)
	return newGeminiProvider(cfg, logger, func(opCfg config.OperationAIConfig) (generator, error) {
		if client, ok := clients[opCfg.APIKey]; ok {
			return client.Models, nil
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: opCfg.APIKey,
		})
		if err != nil {
			return nil, resumatchErrors.NewAIError(resumatchErrors.ErrCodeAIServiceFailed,
				"Failed to create Gemini client", err)
		}
		clients[opCfg.APIKey] = client
		return client.Models, nil
	})
}

func newGeminiProvider(cfg *config.Config, logger *resumatchErrors.Logger, models func(config.OperationAIConfig) (generator, error)) (*GeminiProvider, error) {
	g := &GeminiProvider{
		ops:     make(map[string]*operation),
		prompts: cfg.Prompts(),
		logger:  logger,
		backoff: backoffDelay,
	}

	for _, name := range config.Operations() {
		opCfg, err := cfg.OperationConfig(name)
		if err != nil {
			return nil, err
		}
		if opCfg.APIKey == "" {
			return nil, resumatchErrors.NewConfigError(resumatchErrors.ErrCodeMissingAPIKey,
				"Gemini API key is required for AI operations", nil).
				WithContext("operation", name)
		}
		gen, err := models(opCfg)
		if err != nil {
			return nil, err
		}
		g.ops[name] = &operation{
			name:         name,
			cfg:          opCfg,
			models:       gen,
			breaker:      NewAICircuitBreaker(name, &opCfg, logger),
			modelBreaker: NewModelCircuitBreaker(name, &opCfg, logger),
		}
	}
	return g, nil
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Version     string   `json:"version,omitempty"`
	Available   bool     `json:"available"`
	Operations  []string `json:"operations"`
	Error       string   `json:"error,omitempty"`
}

// GetModelInfo checks each distinct configured model once.
func (g *GeminiProvider) GetModelInfo(ctx context.Context) []*ModelInfo {
	var infos []*ModelInfo
	byModel := make(map[string]*ModelInfo)

	for _, name := range config.Operations() {
		op := g.ops[name]
		if info, ok := byModel[op.cfg.Model]; ok {
			info.Operations = append(info.Operations, name)
			continue
		}
		info := g.checkModel(ctx, op)
		info.Operations = []string{name}
		byModel[op.cfg.Model] = info
		infos = append(infos, info)
	}
	return infos
}

func (g *GeminiProvider) checkModel(ctx context.Context, op *operation) *ModelInfo {
	info := &ModelInfo{Name: op.cfg.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := op.modelBreaker.Execute(func() (*genai.Model, error) {
		return op.models.Get(checkCtx, op.cfg.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", op.cfg.Model,
			"operation", op.name,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// CircuitBreakerStats reports both breakers of every operation.
func (g *GeminiProvider) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any, len(g.ops)+1)
	healthy := true
	for _, name := range config.Operations() {
		op := g.ops[name]
		stats[name] = map[string]any{
			"ai_operations":    op.breaker.Stats(),
			"model_operations": op.modelBreaker.Stats(),
		}
		healthy = healthy && op.breaker.IsHealthy() && op.modelBreaker.IsHealthy()
	}
	stats["overall_healthy"] = healthy
	return stats
}

// Close implements Provider. The genai client holds no resources to release.
func (g *GeminiProvider) Close() error {
	return nil
}

// DetectDomain names the career domain of a resume.
func (g *GeminiProvider) DetectDomain(ctx context.Context, resumeText string) (string, *TokenUsage, error) {
	op := g.ops[config.OpDomain]
	system, user, err := g.buildPrompts(op, promptData{Resume: truncate(resumeText, resumeLong)})
	if err != nil {
		return "", nil, err
	}

	text, usage, err := g.generate(ctx, op, genai.Text(user), system, &genai.GenerateContentConfig{},
		attribute.Int("input.resume_length", len(resumeText)))
	if err != nil {
		return "", nil, err
	}
	return SanitizeDomain(text), usage, nil
}

var domainNoise = regexp.MustCompile(`[^a-zA-Z0-9\s/&-]`)

// SanitizeDomain keeps the first line of a domain answer, stripped of
// anything but letters, digits, spaces and "/&-".
func SanitizeDomain(raw string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	domain := strings.Join(strings.Fields(domainNoise.ReplaceAllString(line, "")), " ")
	if domain == "" {
		return types.DefaultDomain
	}
	return domain
}

// ExtractMetadata pulls contact and career details from a resume.
func (g *GeminiProvider) ExtractMetadata(ctx context.Context, resumeText string) (types.ResumeMetadata, *TokenUsage, error) {
	op := g.ops[config.OpMetadata]
	system, user, err := g.buildPrompts(op, promptData{Resume: truncate(resumeText, resumeShort)})
	if err != nil {
		return types.ResumeMetadata{}, nil, err
	}

	meta, usage, err := generateJSON[types.ResumeMetadata](g, ctx, op, user, system, metadataSchema(),
		attribute.Int("input.resume_length", len(resumeText)))
	if err != nil {
		return types.ResumeMetadata{}, nil, err
	}
	return fillMetadata(meta), usage, nil
}

func fillMetadata(m types.ResumeMetadata) types.ResumeMetadata {
	fields := []*string{&m.Name, &m.Email, &m.Phone, &m.Location, &m.YearsExperience, &m.EducationLevel, &m.CurrentRole}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
		if *f == "" {
			*f = types.NotFound
		}
	}
	return m
}

// Recommendations returns up to four "Category: advice" lines.
func (g *GeminiProvider) Recommendations(ctx context.Context, input types.RecommendationsInput) ([]string, *TokenUsage, error) {
	op := g.ops[config.OpRecommendations]
	system, user, err := g.buildPrompts(op, promptData{
		Resume:  truncate(input.ResumeText, resumeLong),
		Job:     truncate(input.JobDescription, jobLong),
		Domain:  domainOrDefault(input.Domain),
		Score:   input.Score,
		Missing: joinMissing(input.MissingKeywords),
	})
	if err != nil {
		return nil, nil, err
	}

	text, usage, err := g.generate(ctx, op, genai.Text(user), system, &genai.GenerateContentConfig{},
		attribute.Int("input.score", input.Score),
		attribute.Int("input.missing_keywords", len(input.MissingKeywords)))
	if err != nil {
		return nil, nil, err
	}

	recs := ParseRecommendations(text)
	if len(recs) == 0 {
		return nil, usage, resumatchErrors.NewIncompleteResponseError(
			"AI recommendations contained no \"Category: advice\" lines", []string{"recommendations"})
	}
	return recs, usage, nil
}

var listMarker = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s*`)

// ParseRecommendations keeps list lines shaped "Category: advice", without
// list markers or markdown, up to four.
func ParseRecommendations(text string) []string {
	var recs []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		line = normalize.Inline(line)
		category, advice, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(category) == "" || strings.TrimSpace(advice) == "" {
			continue
		}
		recs = append(recs, strings.TrimSpace(category)+": "+strings.TrimSpace(advice))
		if len(recs) == maxRecommendations {
			break
		}
	}
	return recs
}

// SkillGaps lists current skills and the job skills the resume lacks.
func (g *GeminiProvider) SkillGaps(ctx context.Context, input types.SkillGapInput) (types.SkillGapAnalysis, *TokenUsage, error) {
	op := g.ops[config.OpSkillGaps]
	system, user, err := g.buildPrompts(op, promptData{
		Resume: truncate(input.ResumeText, resumeShort),
		Job:    truncate(input.JobDescription, jobMedium),
		Domain: domainOrDefault(input.Domain),
	})
	if err != nil {
		return types.SkillGapAnalysis{}, nil, err
	}

	out, usage, err := generateJSON[types.SkillGapAnalysis](g, ctx, op, user, system, skillGapSchema(),
		attribute.Int("input.resume_length", len(input.ResumeText)),
		attribute.Int("input.job_length", len(input.JobDescription)))
	if err != nil {
		return types.SkillGapAnalysis{}, nil, err
	}
	if out.CurrentSkills == nil {
		out.CurrentSkills = []string{}
	}
	if out.SkillGaps == nil {
		out.SkillGaps = []types.SkillGap{}
	}
	for i := range out.SkillGaps {
		if out.SkillGaps[i].Resources == nil {
			out.SkillGaps[i].Resources = []string{}
		}
	}
	return out, usage, nil
}

// AnalyzeMatch asks for a complete MatchResult and returns it undecoded.
// The response carries no schema since keywordDensity is a free-form map.
func (g *GeminiProvider) AnalyzeMatch(ctx context.Context, input types.MatchInput) ([]byte, *TokenUsage, error) {
	op := g.ops[config.OpAnalyze]
	system, user, err := g.buildPrompts(op, promptData{
		Resume: input.ResumeText,
		Job:    input.JobDescription,
		Domain: domainOrDefault(input.Domain),
	})
	if err != nil {
		return nil, nil, err
	}

	text, usage, err := g.generate(ctx, op, genai.Text(user), system,
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		attribute.Int("input.resume_length", len(input.ResumeText)),
		attribute.Int("input.job_length", len(input.JobDescription)))
	if err != nil {
		return nil, nil, err
	}
	return []byte(text), usage, nil
}

// CoverLetter writes a cover letter for the job.
func (g *GeminiProvider) CoverLetter(ctx context.Context, input types.CoverLetterInput) (types.CoverLetter, *TokenUsage, error) {
	company := strings.TrimSpace(input.CompanyName)
	if company == "" {
		company = defaultCompany
	}

	op := g.ops[config.OpCoverLetter]
	system, user, err := g.buildPrompts(op, promptData{
		Resume:  truncate(input.ResumeText, resumeShort),
		Job:     truncate(input.JobDescription, jobMedium),
		Domain:  domainOrDefault(input.Domain),
		Company: company,
	})
	if err != nil {
		return types.CoverLetter{}, nil, err
	}

	text, usage, err := g.generate(ctx, op, genai.Text(user), system, &genai.GenerateContentConfig{},
		attribute.String("input.company", company))
	if err != nil {
		return types.CoverLetter{}, nil, err
	}
	return types.CoverLetter{CompanyName: company, Letter: text}, usage, nil
}

// InterviewPrep suggests questions and talking points for the job.
func (g *GeminiProvider) InterviewPrep(ctx context.Context, input types.InterviewPrepInput) (types.InterviewPrep, *TokenUsage, error) {
	op := g.ops[config.OpInterviewPrep]
	system, user, err := g.buildPrompts(op, promptData{
		Resume: truncate(input.ResumeText, resumeShort),
		Job:    truncate(input.JobDescription, jobShort),
		Domain: domainOrDefault(input.Domain),
	})
	if err != nil {
		return types.InterviewPrep{}, nil, err
	}

	return generateJSON[types.InterviewPrep](g, ctx, op, user, system, interviewPrepSchema(),
		attribute.Int("input.job_length", len(input.JobDescription)))
}

// SalaryInsights gives an approximate salary range for a role.
func (g *GeminiProvider) SalaryInsights(ctx context.Context, input types.SalaryInput) (types.SalaryInsights, *TokenUsage, error) {
	data := promptData{
		Domain:          domainOrDefault(input.Domain),
		YearsExperience: valueOr(input.YearsExperience, unknownYears),
		Location:        valueOr(input.Location, globalLocation),
	}

	op := g.ops[config.OpSalary]
	system, user, err := g.buildPrompts(op, data)
	if err != nil {
		return types.SalaryInsights{}, nil, err
	}

	return generateJSON[types.SalaryInsights](g, ctx, op, user, system, salarySchema(),
		attribute.String("input.domain", data.Domain),
		attribute.String("input.location", data.Location))
}

// CareerChat answers a question with the recent conversation as context.
func (g *GeminiProvider) CareerChat(ctx context.Context, input types.ChatInput) (types.ChatReply, *TokenUsage, error) {
	sess := input.Session
	domain := domainOrDefault(sess.Domain)

	op := g.ops[config.OpChat]
	system, user, err := g.buildPrompts(op, promptData{
		Resume: truncate(sess.ResumeText, resumeChat),
		Domain: domain,
		Query:  input.Query,
	})
	if err != nil {
		return types.ChatReply{}, nil, err
	}

	text, usage, err := g.generate(ctx, op, chatContents(sess.History, user), system, &genai.GenerateContentConfig{},
		attribute.Int("input.history_turns", len(sess.History)),
		attribute.String("input.domain", domain))
	if err != nil {
		return types.ChatReply{}, nil, err
	}
	return types.ChatReply{Response: text, Domain: domain}, usage, nil
}

// chatContents replays the last turns as alternating user/model contents.
func chatContents(history []types.ChatTurn, query string) []*genai.Content {
	if len(history) > chatHistoryTurns {
		history = history[len(history)-chatHistoryTurns:]
	}
	contents := make([]*genai.Content, 0, 2*len(history)+1)
	for _, turn := range history {
		contents = append(contents,
			genai.NewContentFromText(turn.Query, genai.RoleUser),
			genai.NewContentFromText(turn.Response, genai.RoleModel))
	}
	return append(contents, genai.NewContentFromText(query, genai.RoleUser))
}

// buildPrompts renders both prompts of op. Without system prompts the
// system text leads the user prompt.
func (g *GeminiProvider) buildPrompts(op *operation, data promptData) (string, string, error) {
	p := resolvePrompt(op.name, op.cfg.Prompts, g.prompts.Get(op.name))

	system, err := render(op.name+" system", p.System, data)
	if err != nil {
		return "", "", resumatchErrors.NewConfigError(resumatchErrors.ErrCodeInvalidConfig, err.Error(), err)
	}
	user, err := render(op.name+" user", p.User, data)
	if err != nil {
		return "", "", resumatchErrors.NewConfigError(resumatchErrors.ErrCodeInvalidConfig, err.Error(), err)
	}

	if !*op.cfg.UseSystemPrompts && system != "" {
		return "", system + "\n\n" + user, nil
	}
	return system, user, nil
}

// generate runs one request through the breaker and the retry loop inside
// a span and returns the trimmed response text.
func (g *GeminiProvider) generate(
	ctx context.Context,
	op *operation,
	contents []*genai.Content,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (string, *TokenUsage, error) {
	tracer := otel.Tracer("resumatch.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+op.name)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", op.cfg.Model),
		attribute.Float64("ai.temperature", float64(*op.cfg.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if *op.cfg.Temperature > 0 {
		genaiConfig.Temperature = op.cfg.Temperature
	}

	ctx, cancel := context.WithTimeout(ctx, *op.cfg.Timeout)
	defer cancel()

	result, err := op.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, op, func() (*genai.GenerateContentResponse, error) {
			return op.models.GenerateContent(ctx, op.cfg.Model, contents, genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", nil, classifyError(op.name, err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		err := resumatchErrors.NewIncompleteResponseError("AI returned an empty response for "+op.name, nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty response")
		return "", nil, err
	}

	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Int("output.length", len(text)))
	return text, usage, nil
}

// generateJSON requests schema-constrained JSON and decodes it into Out.
func generateJSON[Out any](
	g *GeminiProvider,
	ctx context.Context,
	op *operation,
	userPrompt string,
	systemPrompt string,
	schema *genai.Schema,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	text, usage, err := g.generate(ctx, op, genai.Text(userPrompt), systemPrompt, genaiConfig, spanAttributes...)
	if err != nil {
		return output, nil, err
	}
	if err := json.Unmarshal([]byte(text), &output); err != nil {
		return output, nil, resumatchErrors.NewAIError(resumatchErrors.ErrCodeAIResponseParse,
			"Failed to parse AI response for "+op.name, err)
	}
	return output, usage, nil
}

// executeWithRetry retries retryable failures with exponential backoff.
func (g *GeminiProvider) executeWithRetry(ctx context.Context, op *operation, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := *op.cfg.MaxRetries
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", op.name,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(g.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", op.name,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", op.name,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", op.name,
		"max_retries", maxRetries)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", op.name, maxRetries, lastErr)
}

// backoffDelay is 2^(attempt-1) seconds plus up to 10% jitter, capped.
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, maxBackoff)
}

// isRetryableError retries network failures and 429/5xx API errors.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// classifyError separates availability failures from other AI failures.
func classifyError(operation string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return resumatchErrors.NewUpstreamUnavailableError(
			"AI service circuit open for "+operation, err)
	case errors.Is(err, context.DeadlineExceeded), isRetryableError(err):
		return resumatchErrors.NewUpstreamUnavailableError(
			"AI service unavailable for "+operation, err)
	default:
		return resumatchErrors.NewAIError(resumatchErrors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+operation, err)
	}
}

func domainOrDefault(domain string) string {
	return valueOr(domain, types.DefaultDomain)
}

// valueOr treats blank and "Not Found" as missing.
func valueOr(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == types.NotFound {
		return fallback
	}
	return v
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
