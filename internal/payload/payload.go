// Package payload validates MatchResult documents received from the remote
// AI service before anything is rendered from them.
package payload

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"resumatch/internal/errors"
	"resumatch/internal/types"
)

//go:embed schema/match_result.json
var matchResultSchema string

var schemaLoader = gojsonschema.NewStringLoader(matchResultSchema)

// FieldError is one schema violation at a dotted field path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// wireResult mirrors types.MatchResult with numeric fields loose enough to
// accept "72.0" where an integer is meant.
type wireResult struct {
	Score           float64              `json:"score"`
	ScoreBreakdown  types.ScoreBreakdown `json:"scoreBreakdown"`
	KeywordAnalysis struct {
		MatchingKeywords []string           `json:"matchingKeywords"`
		MissingKeywords  []string           `json:"missingKeywords"`
		TotalJobKeywords float64            `json:"totalJobKeywords"`
		MatchPercentage  float64            `json:"matchPercentage"`
		KeywordDensity   map[string]float64 `json:"keywordDensity"`
	} `json:"keywordAnalysis"`
	ATSStatus       types.ATSStatus  `json:"atsStatus"`
	Summary         string           `json:"summary"`
	Recommendations []string         `json:"recommendations"`
	SkillGaps       []types.SkillGap `json:"skillGaps"`
}

// Decode validates raw against the MatchResult schema and converts it.
// Any missing required key or malformed field yields an incomplete-response
// error and no result; absent array fields become empty slices.
func Decode(raw []byte) (*types.MatchResult, error) {
	missing, invalid, err := Validate(raw)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 || len(invalid) > 0 {
		appErr := errors.NewIncompleteResponseError(describe(missing, invalid), missing)
		if len(invalid) > 0 {
			appErr.WithContext("invalid_fields", invalid)
		}
		return nil, appErr
	}

	var w wireResult
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.NewIncompleteResponseError("upstream payload could not be decoded", nil).
			WithContext("cause", err.Error())
	}
	return w.toResult(), nil
}

// Validate checks raw against the schema. It returns the dotted paths of
// missing required keys and the other violations. A non-nil error means raw
// was not JSON at all.
func Validate(raw []byte) (missing []string, invalid []FieldError, err error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, nil, errors.NewIncompleteResponseError("upstream payload is not valid JSON", nil).
			WithContext("cause", err.Error())
	}
	if result.Valid() {
		return nil, nil, nil
	}

	for _, desc := range result.Errors() {
		if desc.Type() == "required" {
			prop, _ := desc.Details()["property"].(string)
			missing = append(missing, joinPath(desc.Field(), prop))
			continue
		}
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		invalid = append(invalid, FieldError{Field: field, Message: desc.Description()})
	}
	sort.Strings(missing)
	return missing, invalid, nil
}

// joinPath builds the dotted path of a missing property. Depending on the
// validator version the context already ends with the property name.
func joinPath(field, prop string) string {
	switch {
	case prop == "":
		return field
	case field == "" || field == "(root)":
		return prop
	case field == prop || strings.HasSuffix(field, "."+prop):
		return field
	default:
		return field + "." + prop
	}
}

func describe(missing []string, invalid []FieldError) string {
	parts := make([]string, 0, 2)
	if len(missing) > 0 {
		parts = append(parts, "missing required keys: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		fields := make([]string, len(invalid))
		for i, fe := range invalid {
			fields[i] = fe.Field
		}
		parts = append(parts, "invalid fields: "+strings.Join(fields, ", "))
	}
	return fmt.Sprintf("incomplete upstream payload (%s)", strings.Join(parts, "; "))
}

func (w *wireResult) toResult() *types.MatchResult {
	density := make(map[string]int, len(w.KeywordAnalysis.KeywordDensity))
	for k, v := range w.KeywordAnalysis.KeywordDensity {
		density[k] = int(math.Round(v))
	}

	gaps := make([]types.SkillGap, len(w.SkillGaps))
	for i, g := range w.SkillGaps {
		g.Resources = orEmpty(g.Resources)
		gaps[i] = g
	}

	return &types.MatchResult{
		Score:          int(math.Round(w.Score)),
		ScoreBreakdown: w.ScoreBreakdown,
		KeywordAnalysis: types.KeywordAnalysis{
			MatchingKeywords: orEmpty(w.KeywordAnalysis.MatchingKeywords),
			MissingKeywords:  orEmpty(w.KeywordAnalysis.MissingKeywords),
			TotalJobKeywords: int(math.Round(w.KeywordAnalysis.TotalJobKeywords)),
			MatchPercentage:  int(math.Round(w.KeywordAnalysis.MatchPercentage)),
			KeywordDensity:   density,
		},
		ATSStatus:       w.ATSStatus,
		Summary:         w.Summary,
		Recommendations: orEmpty(w.Recommendations),
		SkillGaps:       gaps,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
