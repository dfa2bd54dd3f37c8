package scoring

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	tokenPattern     = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}+#.'’\-]*`)
	fileExtension    = regexp.MustCompile(`\.(js|py|tsx|jsx|ts)$`)
	numericToken     = regexp.MustCompile(`^[\d.,]+[+%]?$`)
	twoWordAliases   = strings.NewReplacer("sql server", "sqlserver")
	skillAliasTokens = map[string]string{
		"javascript": "js",
		"typescript": "ts",
		"reactjs":    "react",
		"react.js":   "react",
		"nodejs":     "node",
		"node.js":    "node",
		"mongodb":    "mongo",
		"postgresql": "postgres",
		"c++":        "cpp",
		"c#":         "csharp",
	}
)

type token struct {
	raw        string
	norm       string
	start, end int
	// breakBefore is set when punctuation or a line break separates this
	// token from the previous one.
	breakBefore bool
}

func tokenize(text string) []token {
	spans := tokenPattern.FindAllStringIndex(text, -1)
	tokens := make([]token, 0, len(spans))

	trailingCut := false
	prevEnd := 0
	for i, span := range spans {
		raw := text[span[0]:span[1]]
		trimmed := strings.TrimRight(raw, ".-'’")

		gap := text[prevEnd:span[0]]
		tok := token{
			raw:         trimmed,
			norm:        normalizeTerm(trimmed),
			start:       span[0],
			end:         span[0] + len(trimmed),
			breakBefore: i > 0 && (trailingCut || strings.Trim(gap, " \t") != ""),
		}
		tokens = append(tokens, tok)

		trailingCut = len(trimmed) != len(raw)
		prevEnd = span[1]
	}
	return tokens
}

// normalizeTerm folds one token to the form used for equality checks.
func normalizeTerm(raw string) string {
	term := strings.ToLower(raw)
	term = strings.TrimSuffix(term, "'s")
	term = strings.TrimSuffix(term, "’s")
	if alias, ok := skillAliasTokens[term]; ok {
		return alias
	}
	return fileExtension.ReplaceAllString(term, "")
}

// normalizePhrase joins token norms and applies multi-word aliases.
func normalizePhrase(tokens []token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.norm
	}
	return twoWordAliases.Replace(strings.Join(parts, " "))
}

// NormalizeSkill folds a free-form skill name to its comparison form,
// so "Node.js" and "nodejs" compare equal.
func NormalizeSkill(skill string) string {
	return normalizePhrase(tokenize(skill))
}

func isNumeric(s string) bool {
	return numericToken.MatchString(s)
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
