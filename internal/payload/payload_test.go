package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/errors"
)

const completePayload = `{
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

func mutate(t *testing.T, fn func(m map[string]any)) []byte {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(completePayload), &m))
	fn(m)
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	return raw
}

func TestDecodeComplete(t *testing.T) {
	result, err := Decode([]byte(completePayload))
	require.NoError(t, err)

	assert.Equal(t, 72, result.Score)
	assert.Equal(t, 66.67, result.ScoreBreakdown.SkillMatch)
	assert.Equal(t, []string{"Python", "SQL"}, result.KeywordAnalysis.MatchingKeywords)
	assert.Equal(t, 67, result.KeywordAnalysis.MatchPercentage)
	assert.Equal(t, map[string]int{"Python": 2, "SQL": 1}, result.KeywordAnalysis.KeywordDensity)
	assert.Equal(t, "Strong Match", result.ATSStatus.Label)
	require.Len(t, result.SkillGaps, 1)
	assert.Equal(t, []string{"AWS Skill Builder"}, result.SkillGaps[0].Resources)
}

func TestDecodeMissingRequiredKeys(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		missing string
	}{
		{
			name:    "keyword analysis",
			mutate:  func(m map[string]any) { delete(m, "keywordAnalysis") },
			missing: "keywordAnalysis",
		},
		{
			name:    "score",
			mutate:  func(m map[string]any) { delete(m, "score") },
			missing: "score",
		},
		{
			name:    "nested breakdown field",
			mutate:  func(m map[string]any) { delete(m["scoreBreakdown"].(map[string]any), "semanticSimilarity") },
			missing: "scoreBreakdown.semanticSimilarity",
		},
		{
			name:    "ats label",
			mutate:  func(m map[string]any) { delete(m["atsStatus"].(map[string]any), "label") },
			missing: "atsStatus.label",
		},
		{
			name:    "summary",
			mutate:  func(m map[string]any) { delete(m, "summary") },
			missing: "summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Decode(mutate(t, tt.mutate))
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeIncompleteResponse))

			missing, _, verr := Validate(mutate(t, tt.mutate))
			require.NoError(t, verr)
			assert.Contains(t, missing, tt.missing)
		})
	}
}

func TestDecodeDefaultsAbsentArrays(t *testing.T) {
	raw := mutate(t, func(m map[string]any) {
		ka := m["keywordAnalysis"].(map[string]any)
		delete(ka, "matchingKeywords")
		delete(ka, "missingKeywords")
		delete(m, "recommendations")
		delete(m, "skillGaps")
	})

	result, err := Decode(raw)
	require.NoError(t, err)

	assert.NotNil(t, result.KeywordAnalysis.MatchingKeywords)
	assert.Empty(t, result.KeywordAnalysis.MatchingKeywords)
	assert.NotNil(t, result.KeywordAnalysis.MissingKeywords)
	assert.NotNil(t, result.Recommendations)
	assert.NotNil(t, result.SkillGaps)
	assert.Empty(t, result.SkillGaps)
}

func TestDecodeSkillGapWithoutResources(t *testing.T) {
	raw := mutate(t, func(m map[string]any) {
		m["skillGaps"] = []any{map[string]any{"skill": "Terraform", "importance": "low"}}
	})

	result, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, result.SkillGaps, 1)
	assert.Equal(t, []string{}, result.SkillGaps[0].Resources)
}

func TestDecodeInvalidShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte("Sure! Here is your analysis")},
		{"score out of range", mutate(t, func(m map[string]any) { m["score"] = 140 })},
		{"wrong level", mutate(t, func(m map[string]any) { m["atsStatus"].(map[string]any)["level"] = "great" })},
		{"string score", mutate(t, func(m map[string]any) { m["score"] = "72" })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Decode(tt.raw)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeIncompleteResponse))
		})
	}
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "summary", joinPath("(root)", "summary"))
	assert.Equal(t, "summary", joinPath("", "summary"))
	assert.Equal(t, "atsStatus.label", joinPath("atsStatus", "label"))
	assert.Equal(t, "atsStatus.label", joinPath("atsStatus.label", "label"))
}
