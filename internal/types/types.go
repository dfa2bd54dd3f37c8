package types

import "time"

// ScoreBreakdown holds the weighted sub-scores behind an overall score
type ScoreBreakdown struct {
	SkillMatch          float64 `json:"skillMatch"`          // 0-100
	SemanticSimilarity  float64 `json:"semanticSimilarity"`  // 0-100
	KeywordDensityBonus float64 `json:"keywordDensityBonus"` // 0-10
}

// KeywordAnalysis describes how the job keywords were matched against the resume
type KeywordAnalysis struct {
	MatchingKeywords []string       `json:"matchingKeywords"`
	MissingKeywords  []string       `json:"missingKeywords"`
	TotalJobKeywords int            `json:"totalJobKeywords"`
	MatchPercentage  int            `json:"matchPercentage"`
	KeywordDensity   map[string]int `json:"keywordDensity"`
}

// ATSLevel is the coarse band of an ATS score
type ATSLevel string

const (
	ATSLevelHigh   ATSLevel = "high"
	ATSLevelMedium ATSLevel = "medium"
	ATSLevelLow    ATSLevel = "low"
)

// ATSStatus represents the banded ATS compatibility verdict
type ATSStatus struct {
	Level ATSLevel `json:"level"`
	Label string   `json:"label"`
}

// SkillGap is a job-relevant skill absent from the resume
type SkillGap struct {
	Skill      string   `json:"skill"`
	Importance string   `json:"importance"` // "high", "medium" or "low"
	Resources  []string `json:"resources"`
}

// MatchResult is the analysis of one resume against one job description.
// It is built fresh per request and never modified after being returned.
type MatchResult struct {
	Score           int             `json:"score"`
	ScoreBreakdown  ScoreBreakdown  `json:"scoreBreakdown"`
	KeywordAnalysis KeywordAnalysis `json:"keywordAnalysis"`
	ATSStatus       ATSStatus       `json:"atsStatus"`
	Summary         string          `json:"summary"`
	Recommendations []string        `json:"recommendations"`
	SkillGaps       []SkillGap      `json:"skillGaps"`
}

// AnalysisReport wraps a MatchResult with the request context it was computed for
type AnalysisReport struct {
	JobDescription string      `json:"jobDescription"`
	DetectedDomain string      `json:"detectedDomain"`
	Filename       string      `json:"filename,omitempty"`
	Result         MatchResult `json:"result"`
}

// Paragraph is one block of normalized prose
type Paragraph struct {
	Content             string `json:"content"`
	LineBreaksPreserved bool   `json:"lineBreaksPreserved"`
}

// NormalizedText is the display projection of a raw AI string
type NormalizedText struct {
	Inline     string      `json:"inline"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Placeholders used when a value could not be determined.
const (
	DefaultDomain = "General Career Field"
	NotFound      = "Not Found"
)

// ResumeMetadata is structured contact and career data pulled from a resume
type ResumeMetadata struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Location        string `json:"location"`
	YearsExperience string `json:"yearsExperience"`
	EducationLevel  string `json:"educationLevel"`
	CurrentRole     string `json:"currentRole"`
}

// UnknownMetadata returns metadata with every field set to NotFound.
func UnknownMetadata() ResumeMetadata {
	return ResumeMetadata{
		Name:            NotFound,
		Email:           NotFound,
		Phone:           NotFound,
		Location:        NotFound,
		YearsExperience: NotFound,
		EducationLevel:  NotFound,
		CurrentRole:     NotFound,
	}
}

// ChatTurn is one exchange in a career-advice conversation
type ChatTurn struct {
	Query    string    `json:"query"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// SessionContext is the explicit per-user state handed to every AI-backed operation
type SessionContext struct {
	ID         string         `json:"id"`
	Filename   string         `json:"filename,omitempty"`
	ResumeText string         `json:"-"`
	Domain     string         `json:"domain"`
	Metadata   ResumeMetadata `json:"metadata"`
	History    []ChatTurn     `json:"history,omitempty"`
}

// UploadResult is returned after a resume has been ingested
type UploadResult struct {
	Message        string         `json:"message"`
	SessionID      string         `json:"sessionId"`
	Filename       string         `json:"filename"`
	DetectedDomain string         `json:"detectedDomain"`
	Metadata       ResumeMetadata `json:"metadata"`
	TextLength     int            `json:"textLength"`
}

// CoverLetterInput is the input for generating a cover letter
type CoverLetterInput struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
	Domain         string `json:"domain"`
	CompanyName    string `json:"companyName"`
}

// CoverLetter is a generated cover letter
type CoverLetter struct {
	CompanyName string      `json:"companyName"`
	Letter      string      `json:"coverLetter"`
	Paragraphs  []Paragraph `json:"paragraphs,omitempty"`
}

// InterviewPrepInput is the input for interview preparation
type InterviewPrepInput struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
	Domain         string `json:"domain"`
}

// InterviewPrep holds likely questions and talking points
type InterviewPrep struct {
	TechnicalQuestions  []string `json:"technicalQuestions"`
	BehavioralQuestions []string `json:"behavioralQuestions"`
	KeyTalkingPoints    []string `json:"keyTalkingPoints"`
	QuestionsToAsk      []string `json:"questionsToAsk"`
}

// SalaryInput is the input for salary insights
type SalaryInput struct {
	Domain          string `json:"domain"`
	YearsExperience string `json:"yearsExperience"`
	Location        string `json:"location"`
}

// SalaryInsights is an approximate market view for a role
type SalaryInsights struct {
	EstimatedRange  string   `json:"estimatedRange"`
	Factors         []string `json:"factors"`
	NegotiationTips []string `json:"negotiationTips"`
}

// RecommendationsInput is the input for AI recommendations
type RecommendationsInput struct {
	ResumeText      string   `json:"resumeText"`
	JobDescription  string   `json:"jobDescription"`
	Domain          string   `json:"domain"`
	Score           int      `json:"score"`
	MissingKeywords []string `json:"missingKeywords"`
}

// SkillGapInput is the input for skill gap analysis
type SkillGapInput struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
	Domain         string `json:"domain"`
}

// SkillGapAnalysis lists the skills a candidate has and the ones they lack
type SkillGapAnalysis struct {
	CurrentSkills []string   `json:"currentSkills"`
	SkillGaps     []SkillGap `json:"skillGaps"`
}

// MatchInput is the input for a remote full-match analysis
type MatchInput struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
	Domain         string `json:"domain"`
}

// ChatInput is one career-advice question asked in an explicit session context
type ChatInput struct {
	Session SessionContext `json:"session"`
	Query   string         `json:"query"`
}

// ChatReply is the advisor's answer
type ChatReply struct {
	Response string `json:"response"`
	Domain   string `json:"domain"`
}
