// Package scoring computes the ATS match between a resume and a job
// description: keyword coverage, content similarity and a capped density
// bonus combined into one 0-100 score.
//
// Scoring is a pure function of its inputs and safe for concurrent use.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"resumatch/internal/errors"
	"resumatch/internal/types"
)

const (
	maxDensityBonus = 10.0
	// lowSimilarity is the semantic score under which the resume's wording
	// is considered far from the job description's.
	lowSimilarity = 40.0
	// thinDensity is the average mention count under which matched
	// keywords are considered under-used.
	thinDensity = 2.0
	// maxKeywordRecommendations bounds the per-keyword advice lines.
	maxKeywordRecommendations = 5
	maxLocalSkillGaps         = 5
)

var sentenceEnd = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// Scorer scores resumes against job descriptions with a fixed Config.
type Scorer struct {
	cfg Config
}

// New validates cfg and returns a Scorer.
func New(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid scoring configuration", err)
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score matches resumeText against jobDescription. A blank job description
// is rejected before any work is done.
func (s *Scorer) Score(resumeText, jobDescription string) (*types.MatchResult, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.NewInsufficientInputError("jobDescription", "job description is blank")
	}

	jobKeywords := ExtractKeywords(jobDescription, s.cfg.MaxJobKeywords)
	matches, missing := s.match(jobKeywords, resumeText)
	matched := make([]Keyword, len(matches))
	for i, m := range matches {
		matched[i] = m.Keyword
	}

	total := len(jobKeywords)
	skillMatch := 0.0
	matchPercentage := 0
	if total > 0 {
		skillMatch = 100 * float64(len(matched)) / float64(total)
		matchPercentage = int(math.Round(100 * float64(len(matched)) / float64(total)))
	}

	density := keywordDensity(matches)
	breakdown := types.ScoreBreakdown{
		SkillMatch:          round2(skillMatch),
		SemanticSimilarity:  round2(100 * semanticSimilarity(resumeText, jobDescription)),
		KeywordDensityBonus: round2(densityBonus(density, len(matched))),
	}
	score := s.Combine(breakdown)

	result := &types.MatchResult{
		Score:          score,
		ScoreBreakdown: breakdown,
		KeywordAnalysis: types.KeywordAnalysis{
			MatchingKeywords: texts(matched),
			MissingKeywords:  texts(missing),
			TotalJobKeywords: total,
			MatchPercentage:  matchPercentage,
			KeywordDensity:   density,
		},
		ATSStatus:       s.Status(score),
		Summary:         Summarize(resumeText, s.cfg.SummarySentences),
		Recommendations: s.recommend(score, breakdown, missing, len(matched)),
		SkillGaps:       localSkillGaps(missing),
	}
	return result, nil
}

// Combine weights a breakdown into the overall score, rounded half away
// from zero and clamped to [0, 100]. The density bonus is rescaled from
// 0-10 to 0-100 before weighting.
func (s *Scorer) Combine(b types.ScoreBreakdown) int {
	raw := s.cfg.SkillWeight*b.SkillMatch +
		s.cfg.SemanticWeight*b.SemanticSimilarity +
		(b.KeywordDensityBonus/maxDensityBonus)*100*s.cfg.DensityWeight
	return clamp(int(math.Round(raw)), 0, 100)
}

// Status bands a score. Bands are ordered, so status never drops as score rises.
func (s *Scorer) Status(score int) types.ATSStatus {
	switch {
	case score >= s.cfg.BandHigh:
		return types.ATSStatus{Level: types.ATSLevelHigh, Label: "Excellent Match"}
	case score >= s.cfg.BandMediumHigh:
		return types.ATSStatus{Level: types.ATSLevelMedium, Label: "Strong Match"}
	case score >= s.cfg.BandMediumLow:
		return types.ATSStatus{Level: types.ATSLevelMedium, Label: "Good Match"}
	default:
		return types.ATSStatus{Level: types.ATSLevelLow, Label: "Needs Improvement"}
	}
}

// resumeMatch is a matched job keyword with how often the resume
// mentions it.
type resumeMatch struct {
	Keyword
	mentions int
}

// match splits job keywords into those found in the resume and those not.
// A keyword matches when its normalized phrase occurs in the resume's
// normalized word stream, when the resume states the same requirement in
// other words, or when it is a close spelling of a resume term. Requirements
// never match by spelling, so "3 years" is not close to "5+ years".
func (s *Scorer) match(jobKeywords []Keyword, resumeText string) (matched []resumeMatch, missing []Keyword) {
	matched = []resumeMatch{}
	missing = []Keyword{}
	if strings.TrimSpace(resumeText) == "" {
		return matched, append(missing, jobKeywords...)
	}

	tokens := tokenize(resumeText)
	words := streamWords(tokens)
	facts := scanResume(resumeText, tokens)
	resumeTerms := fuzzyCandidates(ExtractKeywords(resumeText, s.cfg.MaxResumeKeywords), tokens)
	used := make([]bool, len(resumeTerms))

	for _, kw := range jobKeywords {
		if n := countPhrase(words, strings.Fields(kw.Norm)); n > 0 {
			matched = append(matched, resumeMatch{kw, n})
			continue
		}
		if kw.req != nil {
			if facts.satisfies(kw.req, words) {
				matched = append(matched, resumeMatch{kw, 1})
			} else {
				missing = append(missing, kw)
			}
			continue
		}
		if i := bestFuzzy(kw.Norm, resumeTerms, used, s.cfg.FuzzyThreshold); i >= 0 {
			used[i] = true
			n := countPhrase(words, strings.Fields(resumeTerms[i].Norm))
			matched = append(matched, resumeMatch{kw, max(1, n)})
			continue
		}
		missing = append(missing, kw)
	}
	return matched, missing
}

// fuzzyCandidates is the resume's extracted terms followed by its distinct
// single words, so a misspelled skill inside a longer phrase still counts.
func fuzzyCandidates(terms []Keyword, tokens []token) []Keyword {
	seen := make(map[string]bool, len(terms)+len(tokens))
	out := make([]Keyword, 0, len(terms)+len(tokens))
	for _, kw := range terms {
		seen[kw.Norm] = true
		out = append(out, kw)
	}
	for _, t := range tokens {
		if seen[t.norm] || isDelimiterToken(t) {
			continue
		}
		seen[t.norm] = true
		out = append(out, Keyword{Text: t.raw, Norm: t.norm, Count: 1, first: t.start})
	}
	return out
}

func bestFuzzy(norm string, terms []Keyword, used []bool, threshold float64) int {
	best, bestRatio := -1, 0.0
	for i, term := range terms {
		if used[i] {
			continue
		}
		if r := fuzzyRatio(norm, term.Norm); r >= threshold && r > bestRatio {
			best, bestRatio = i, r
		}
	}
	return best
}

// keywordDensity reports how often the resume mentions each matched
// keyword, counted on normalized words so "ReactJS" counts for "React.js".
// A keyword matched by a requirement or a close spelling counts at least once.
func keywordDensity(matched []resumeMatch) map[string]int {
	density := make(map[string]int, len(matched))
	for _, m := range matched {
		density[m.Text] = m.mentions
	}
	return density
}

// densityBonus rewards repetition at two points per average mention, capped.
func densityBonus(density map[string]int, matched int) float64 {
	if matched == 0 {
		return 0
	}
	sum := 0
	for _, c := range density {
		sum += c
	}
	return math.Min(maxDensityBonus, 2*float64(sum)/float64(matched))
}

// recommend lists fixes in order of impact: missing keywords the job
// mentions most, then wording, repetition and overall strength.
func (s *Scorer) recommend(score int, b types.ScoreBreakdown, missing []Keyword, matched int) []string {
	var recs []string

	for _, kw := range byFrequency(missing, maxKeywordRecommendations) {
		recs = append(recs, fmt.Sprintf("Keywords: Add %q to your resume; the job description mentions it %s",
			kw.Text, times(kw.Count)))
	}
	if b.SemanticSimilarity < lowSimilarity {
		recs = append(recs, "Wording: Mirror the job description's language in your summary and experience bullets")
	}
	if matched > 0 && b.KeywordDensityBonus < 2*thinDensity {
		recs = append(recs, "Density: Mention your matching skills in context more than once, in both skills and experience sections")
	}
	if score < s.cfg.BandMediumLow {
		recs = append(recs, "Quantify: Back the required skills with measurable results such as metrics, scale or savings")
	}
	if len(recs) == 0 {
		recs = append(recs, "Polish: Your resume covers the job's keywords; tailor the opening summary to this role")
	}

	if len(recs) > s.cfg.MaxRecommendations {
		recs = recs[:s.cfg.MaxRecommendations]
	}
	return recs
}

// localSkillGaps turns the most frequent missing keywords into skill gaps.
// Importance follows how often the job description mentions the keyword.
func localSkillGaps(missing []Keyword) []types.SkillGap {
	gaps := []types.SkillGap{}
	for _, kw := range byFrequency(missing, maxLocalSkillGaps) {
		importance := "low"
		switch {
		case kw.Count >= 3:
			importance = "high"
		case kw.Count == 2:
			importance = "medium"
		}
		gaps = append(gaps, types.SkillGap{Skill: kw.Text, Importance: importance, Resources: []string{}})
	}
	return gaps
}

func byFrequency(keywords []Keyword, limit int) []Keyword {
	sorted := append([]Keyword(nil), keywords...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].first < sorted[j].first
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Summarize returns the first n sentences of text with whitespace collapsed.
func Summarize(text string, n int) string {
	text = strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
	if text == "" || n <= 0 {
		return ""
	}
	ends := sentenceEnd.FindAllStringIndex(text, n)
	if len(ends) < n {
		return text
	}
	return strings.TrimSpace(text[:ends[n-1][1]])
}

func texts(keywords []Keyword) []string {
	out := make([]string, len(keywords))
	for i, kw := range keywords {
		out[i] = kw.Text
	}
	return out
}

func times(n int) string {
	if n == 1 {
		return "once"
	}
	return fmt.Sprintf("%d times", n)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
