package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"resumatch/internal/config"
)

// Prompt is a system instruction plus a user prompt template. User
// templates use text/template fields of promptData.
type Prompt struct {
	System string
	User   string
}

// promptData is what every user template can reference. Long texts are
// truncated before rendering.
type promptData struct {
	Resume          string
	Job             string
	Domain          string
	Company         string
	Score           int
	Missing         string
	YearsExperience string
	Location        string
	Query           string
}

// Input budgets in runes, applied before rendering.
const (
	resumeShort = 1000
	resumeLong  = 1500
	resumeChat  = 4000
	jobShort    = 600
	jobMedium   = 800
	jobLong     = 1000
	maxMissing  = 8
)

const advisorRole = `You are an experienced resume and career advisor. You only use facts present in the material you are given. You never invent employers, credentials or experience.`

// DefaultPrompts are the built-in prompts per operation.
var DefaultPrompts = map[string]Prompt{
	config.OpDomain: {
		System: advisorRole,
		User: `Identify the specific career domain of this resume.
Examples: 'Software Engineering', 'Data Science', 'Marketing', 'Finance', 'Healthcare', 'Legal'.

Resume: {{.Resume}}

Respond with ONLY the domain name.`,
	},

	config.OpMetadata: {
		System: advisorRole,
		User: `Extract the candidate's details from this resume. Use "Not Found" for anything the resume does not state.
Fields: name, email, phone, location (city, country), yearsExperience (estimated years), educationLevel (highest degree), currentRole (current or most recent job title).

Resume: {{.Resume}}`,
	},

	config.OpRecommendations: {
		System: advisorRole,
		User: `As a {{.Domain}} resume expert, give exactly 4 actionable recommendations for this resume against the job.
Each recommendation is one line formatted "Category: specific advice" and stays under 120 characters.

ATS score: {{.Score}}%
Missing keywords: {{.Missing}}
Resume: {{.Resume}}
Job: {{.Job}}`,
	},

	config.OpSkillGaps: {
		System: advisorRole,
		User: `Analyze the skill gaps of this {{.Domain}} candidate for the job.
List the candidate's current relevant skills, then each missing skill with importance "high", "medium" or "low" and up to 3 learning resources.

Resume: {{.Resume}}
Job: {{.Job}}`,
	},

	config.OpAnalyze: {
		System: advisorRole + ` You score resumes the way an applicant tracking system does.`,
		User: `Score this resume against the job description.
Return: score (0-100), scoreBreakdown {skillMatch 0-100, semanticSimilarity 0-100, keywordDensityBonus 0-10}, keywordAnalysis {matchingKeywords, missingKeywords, totalJobKeywords, matchPercentage, keywordDensity (keyword -> count in resume)}, atsStatus {level "high"|"medium"|"low", label}, summary (3 sentences), recommendations ("Category: advice"), skillGaps [{skill, importance, resources}].
The candidate works in {{.Domain}}.

Resume: {{.Resume}}
Job: {{.Job}}`,
	},

	config.OpCoverLetter: {
		System: advisorRole + ` You write in a professional but warm tone.`,
		User: `Write a compelling cover letter of 250-300 words for this candidate applying to {{.Company}} in the {{.Domain}} field.
The letter opens with enthusiasm for the specific role, highlights 2-3 relevant qualifications from the resume, shows understanding of the role's needs and closes with a clear call to action.
Do not use placeholder brackets. Return only the letter.

Resume summary: {{.Resume}}
Job requirements: {{.Job}}`,
	},

	config.OpInterviewPrep: {
		System: advisorRole,
		User: `Prepare this {{.Domain}} candidate for an interview for the job.
Give 3 technical questions, 2 behavioral questions, 3 key talking points drawn from the resume and 2 questions the candidate should ask.

Resume: {{.Resume}}
Job requirements: {{.Job}}`,
	},

	config.OpSalary: {
		System: advisorRole,
		User: `Provide salary insights for {{.Domain}} with {{.YearsExperience}} years of experience in {{.Location}}.
Give an estimated range, 3 factors that move it and 2 negotiation tips. Be realistic and say the range is approximate market data.`,
	},

	config.OpChat: {
		System: `You are an expert career advisor specializing in {{.Domain}}.
Resume context: {{.Resume}}

Rules:
1. Politely refuse inappropriate or offensive queries with: "I assist with professional career questions only."
2. Use the conversation so far for context.
3. For salary questions give ranges and the factors behind them, never exact figures.
4. Give detailed, actionable advice specific to {{.Domain}}.
5. If the user asks about switching careers or moving to another domain, give a high-level roadmap of 3-4 steps (identify skill gaps, build a portfolio, certifications). Say that the steps are universal even where your expertise in the new field is limited.
6. Be encouraging but honest about skill gaps.`,
		User: `{{.Query}}`,
	},
}

// resolvePrompt picks, per part, the text loaded from a prompt file, then
// the inline config text, then the built-in default.
func resolvePrompt(op string, inline config.PromptConfig, loaded config.LoadedPrompt) Prompt {
	p := DefaultPrompts[op]
	p.System = firstNonEmpty(loaded.System, inline.System, p.System)
	p.User = firstNonEmpty(loaded.User, inline.User, p.User)
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func render(name, text string, data promptData) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("invalid %s prompt template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func joinMissing(keywords []string) string {
	if len(keywords) == 0 {
		return "none"
	}
	if len(keywords) > maxMissing {
		keywords = keywords[:maxMissing]
	}
	return strings.Join(keywords, ", ")
}
