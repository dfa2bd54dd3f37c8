package ai

import (
	"context"

	"resumatch/internal/types"

	"google.golang.org/genai"
)

// Provider is the AI collaborator behind every generative operation.
// Each method also returns token usage; callers can ignore it.
type Provider interface {
	DetectDomain(ctx context.Context, resumeText string) (string, *TokenUsage, error)
	ExtractMetadata(ctx context.Context, resumeText string) (types.ResumeMetadata, *TokenUsage, error)
	Recommendations(ctx context.Context, input types.RecommendationsInput) ([]string, *TokenUsage, error)
	SkillGaps(ctx context.Context, input types.SkillGapInput) (types.SkillGapAnalysis, *TokenUsage, error)
	// AnalyzeMatch returns the raw MatchResult JSON; decode it with payload.Decode.
	AnalyzeMatch(ctx context.Context, input types.MatchInput) ([]byte, *TokenUsage, error)
	CoverLetter(ctx context.Context, input types.CoverLetterInput) (types.CoverLetter, *TokenUsage, error)
	InterviewPrep(ctx context.Context, input types.InterviewPrepInput) (types.InterviewPrep, *TokenUsage, error)
	SalaryInsights(ctx context.Context, input types.SalaryInput) (types.SalaryInsights, *TokenUsage, error)
	CareerChat(ctx context.Context, input types.ChatInput) (types.ChatReply, *TokenUsage, error)
	GetModelInfo(ctx context.Context) []*ModelInfo
	Close() error
}

// generator is the part of *genai.Models the provider calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}
