package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"resumatch/internal/normalize"
	"resumatch/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})

	register(registry, "AnalysisReport", reportText, reportMarkdown)
	register(registry, "MatchResult", matchText, matchMarkdown)
	register(registry, "CoverLetter", coverLetterText, coverLetterMarkdown)
	register(registry, "InterviewPrep", interviewPrepText, interviewPrepMarkdown)
	register(registry, "SalaryInsights", salaryText, salaryMarkdown)
	register(registry, "ChatReply", chatText, chatMarkdown)
	register(registry, "NormalizedText", normalizedText, normalizedMarkdown)

	return registry
}

// register adds the text and markdown formatters for one result type.
func register[T any](fr *FormatterRegistry, name string, text, markdown func(T) string) {
	fr.RegisterFormatter("text", name, typed[T]{name: name, render: text})
	fr.RegisterFormatter("markdown", name, typed[T]{name: name, render: markdown})
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisReport, *types.AnalysisReport:
		return "AnalysisReport"
	case types.MatchResult, *types.MatchResult:
		return "MatchResult"
	case types.CoverLetter, *types.CoverLetter:
		return "CoverLetter"
	case types.InterviewPrep, *types.InterviewPrep:
		return "InterviewPrep"
	case types.SalaryInsights, *types.SalaryInsights:
		return "SalaryInsights"
	case types.ChatReply, *types.ChatReply:
		return "ChatReply"
	case types.NormalizedText, *types.NormalizedText:
		return "NormalizedText"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// typed renders one result type, accepting it by value or pointer.
type typed[T any] struct {
	name   string
	render func(T) string
}

func (f typed[T]) Format(data any) (string, error) {
	switch v := data.(type) {
	case T:
		return f.render(v), nil
	case *T:
		if v == nil {
			return "", fmt.Errorf("expected %s, got nil", f.name)
		}
		return f.render(*v), nil
	default:
		return "", fmt.Errorf("expected %s, got %T", f.name, data)
	}
}

func (f typed[T]) SupportedType() string {
	return f.name
}

func reportText(r types.AnalysisReport) string {
	var out strings.Builder
	out.WriteString("=== ATS MATCH REPORT ===\n")
	if r.Filename != "" {
		fmt.Fprintf(&out, "Resume: %s\n", r.Filename)
	}
	fmt.Fprintf(&out, "Domain: %s\n\n", r.DetectedDomain)
	out.WriteString(matchText(r.Result))
	return out.String()
}

func matchText(r types.MatchResult) string {
	var out strings.Builder

	fmt.Fprintf(&out, "Score: %d/100 (%s)\n", r.Score, r.ATSStatus.Label)
	fmt.Fprintf(&out, "  Skill match:         %.2f\n", r.ScoreBreakdown.SkillMatch)
	fmt.Fprintf(&out, "  Semantic similarity: %.2f\n", r.ScoreBreakdown.SemanticSimilarity)
	fmt.Fprintf(&out, "  Density bonus:       %.2f\n\n", r.ScoreBreakdown.KeywordDensityBonus)

	ka := r.KeywordAnalysis
	out.WriteString("=== KEYWORDS ===\n")
	fmt.Fprintf(&out, "Matched %d of %d (%d%%)\n", len(ka.MatchingKeywords), ka.TotalJobKeywords, ka.MatchPercentage)
	fmt.Fprintf(&out, "Matching: %s\n", joinOrNone(ka.MatchingKeywords))
	fmt.Fprintf(&out, "Missing:  %s\n\n", joinOrNone(ka.MissingKeywords))

	if r.Summary != "" {
		out.WriteString("=== SUMMARY ===\n")
		out.WriteString(r.Summary)
		out.WriteString("\n\n")
	}

	out.WriteString("=== RECOMMENDATIONS ===\n")
	writeNumbered(&out, r.Recommendations)

	if len(r.SkillGaps) > 0 {
		out.WriteString("\n=== SKILL GAPS ===\n")
		for _, gap := range r.SkillGaps {
			fmt.Fprintf(&out, "- %s [%s]\n", gap.Skill, gap.Importance)
			for _, res := range gap.Resources {
				fmt.Fprintf(&out, "    * %s\n", res)
			}
		}
	}
	return out.String()
}

func reportMarkdown(r types.AnalysisReport) string {
	var out strings.Builder
	out.WriteString("# ATS Match Report\n\n")
	if r.Filename != "" {
		fmt.Fprintf(&out, "**Resume:** %s  \n", r.Filename)
	}
	fmt.Fprintf(&out, "**Domain:** %s\n\n", r.DetectedDomain)
	out.WriteString(matchMarkdown(r.Result))
	return out.String()
}

func matchMarkdown(r types.MatchResult) string {
	var out strings.Builder

	fmt.Fprintf(&out, "## Score: %d/100 (%s)\n\n", r.Score, r.ATSStatus.Label)
	out.WriteString("| Component | Value |\n|---|---|\n")
	fmt.Fprintf(&out, "| Skill match | %.2f |\n", r.ScoreBreakdown.SkillMatch)
	fmt.Fprintf(&out, "| Semantic similarity | %.2f |\n", r.ScoreBreakdown.SemanticSimilarity)
	fmt.Fprintf(&out, "| Density bonus | %.2f |\n\n", r.ScoreBreakdown.KeywordDensityBonus)

	ka := r.KeywordAnalysis
	out.WriteString("## Keywords\n\n")
	fmt.Fprintf(&out, "Matched **%d** of **%d** (%d%%)\n\n", len(ka.MatchingKeywords), ka.TotalJobKeywords, ka.MatchPercentage)
	fmt.Fprintf(&out, "- **Matching:** %s\n", joinOrNone(ka.MatchingKeywords))
	fmt.Fprintf(&out, "- **Missing:** %s\n\n", joinOrNone(ka.MissingKeywords))

	if r.Summary != "" {
		fmt.Fprintf(&out, "## Summary\n\n%s\n\n", r.Summary)
	}

	out.WriteString("## Recommendations\n\n")
	writeBullets(&out, r.Recommendations)

	if len(r.SkillGaps) > 0 {
		out.WriteString("\n## Skill Gaps\n\n")
		for _, gap := range r.SkillGaps {
			fmt.Fprintf(&out, "- **%s** (%s)\n", gap.Skill, gap.Importance)
			for _, res := range gap.Resources {
				fmt.Fprintf(&out, "  - %s\n", res)
			}
		}
	}
	return out.String()
}

func coverLetterText(c types.CoverLetter) string {
	var out strings.Builder
	fmt.Fprintf(&out, "=== COVER LETTER: %s ===\n\n", c.CompanyName)
	out.WriteString(paragraphsOr(c.Paragraphs, c.Letter))
	return out.String()
}

func coverLetterMarkdown(c types.CoverLetter) string {
	var out strings.Builder
	fmt.Fprintf(&out, "# Cover Letter: %s\n\n", c.CompanyName)
	out.WriteString(paragraphsOr(c.Paragraphs, c.Letter))
	return out.String()
}

func interviewPrepText(p types.InterviewPrep) string {
	var out strings.Builder
	for _, section := range prepSections(p) {
		fmt.Fprintf(&out, "=== %s ===\n", strings.ToUpper(section.title))
		writeNumbered(&out, section.items)
		out.WriteString("\n")
	}
	return out.String()
}

func interviewPrepMarkdown(p types.InterviewPrep) string {
	var out strings.Builder
	out.WriteString("# Interview Preparation\n\n")
	for _, section := range prepSections(p) {
		fmt.Fprintf(&out, "## %s\n\n", section.title)
		writeBullets(&out, section.items)
		out.WriteString("\n")
	}
	return out.String()
}

type section struct {
	title string
	items []string
}

func prepSections(p types.InterviewPrep) []section {
	return []section{
		{"Technical Questions", p.TechnicalQuestions},
		{"Behavioral Questions", p.BehavioralQuestions},
		{"Key Talking Points", p.KeyTalkingPoints},
		{"Questions To Ask", p.QuestionsToAsk},
	}
}

func salaryText(s types.SalaryInsights) string {
	var out strings.Builder
	out.WriteString("=== SALARY INSIGHTS ===\n")
	fmt.Fprintf(&out, "Estimated range: %s\n\n", normalize.Salary(s.EstimatedRange))
	out.WriteString("Factors:\n")
	writeNumbered(&out, s.Factors)
	out.WriteString("\nNegotiation tips:\n")
	writeNumbered(&out, s.NegotiationTips)
	return out.String()
}

func salaryMarkdown(s types.SalaryInsights) string {
	var out strings.Builder
	out.WriteString("# Salary Insights\n\n")
	fmt.Fprintf(&out, "**Estimated range:** %s\n\n", normalize.Salary(s.EstimatedRange))
	out.WriteString("## Factors\n\n")
	writeBullets(&out, s.Factors)
	out.WriteString("\n## Negotiation Tips\n\n")
	writeBullets(&out, s.NegotiationTips)
	return out.String()
}

func chatText(c types.ChatReply) string {
	return paragraphsOr(normalize.Blocks(c.Response), c.Response)
}

func chatMarkdown(c types.ChatReply) string {
	return fmt.Sprintf("**Career advisor (%s):**\n\n%s", c.Domain, c.Response)
}

func normalizedText(n types.NormalizedText) string {
	return paragraphsOr(n.Paragraphs, n.Inline)
}

func normalizedMarkdown(n types.NormalizedText) string {
	var out strings.Builder
	for i, p := range n.Paragraphs {
		if i > 0 {
			out.WriteString("\n")
		}
		// Two trailing spaces keep preserved line breaks in markdown.
		out.WriteString(strings.Join(normalize.Lines(p), "  \n"))
		out.WriteString("\n")
	}
	return out.String()
}

// paragraphsOr prints paragraphs separated by blank lines, or fallback
// when there are none.
func paragraphsOr(paragraphs []types.Paragraph, fallback string) string {
	if len(paragraphs) == 0 {
		return fallback + "\n"
	}
	blocks := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		blocks = append(blocks, p.Content)
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

func writeNumbered(out *strings.Builder, items []string) {
	if len(items) == 0 {
		out.WriteString("  (none)\n")
		return
	}
	for i, item := range items {
		fmt.Fprintf(out, "%d. %s\n", i+1, item)
	}
}

func writeBullets(out *strings.Builder, items []string) {
	if len(items) == 0 {
		out.WriteString("_None_\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(out, "- %s\n", item)
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
