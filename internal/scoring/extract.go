package scoring

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const maxPhraseWords = 4

var (
	acronymPattern = regexp.MustCompile(`\b[A-Z]{2,6}\b`)
	unsafeChars    = regexp.MustCompile(`[^\p{L}\p{N}_\s+#.'’\-]`)
	spaceRun       = regexp.MustCompile(`\s+`)
)

// Keyword is one extracted term: the first spelling seen, its normalized
// form, how many times the text mentions it and where it first appeared.
type Keyword struct {
	Text  string `json:"text"`
	Norm  string `json:"norm"`
	Count int    `json:"count"`
	first int
	req   *requirement
}

// ExtractKeywords pulls significant terms out of free text without any
// domain vocabulary. Candidates are, in order of precedence,
//   - requirements: years of experience, degrees and certifications;
//   - phrases of up to four words delimited by punctuation, line breaks,
//     stop words, filler words and bare numbers;
//   - runs of two to four capitalized words inside a longer phrase;
//   - acronyms of two to six capital letters outside requirements.
//
// Candidates are deduplicated by normalized form. Count is the number of
// whole-phrase mentions of that form in text, however many passes found
// it. When there are more than limit, the most salient are kept. The result
// is in order of first appearance.
func ExtractKeywords(text string, limit int) []Keyword {
	tokens := tokenize(text)
	reqs := findRequirements(text, tokens)

	byNorm := make(map[string]*Keyword)
	var order []*Keyword

	add := func(display, norm string, pos int, req *requirement) {
		display = cleanDisplay(display)
		if !validKeyword(display) || norm == "" {
			return
		}
		if _, ok := byNorm[norm]; ok {
			return
		}
		kw := &Keyword{Text: display, Norm: norm, first: pos, req: req}
		byNorm[norm] = kw
		order = append(order, kw)
	}

	for _, c := range reqs {
		add(text[c.start:c.end], c.norm, c.start, c.req)
	}

	var phrase []token
	flush := func() {
		if len(phrase) > 0 && len(phrase) <= maxPhraseWords {
			first, last := phrase[0], phrase[len(phrase)-1]
			add(text[first.start:last.end], normalizePhrase(phrase), first.start, nil)
		}
		for _, run := range capitalizedRuns(phrase) {
			first, last := run[0], run[len(run)-1]
			add(text[first.start:last.end], normalizePhrase(run), first.start, nil)
		}
		phrase = phrase[:0]
	}
	for _, t := range tokens {
		if t.breakBefore {
			flush()
		}
		if isDelimiterToken(t) || insideAny(reqs, t.start, t.end) {
			flush()
			continue
		}
		phrase = append(phrase, t)
	}
	flush()

	for _, span := range acronymPattern.FindAllStringIndex(text, -1) {
		acronym := text[span[0]:span[1]]
		if _, excluded := acronymExclusions[acronym]; excluded || insideAny(reqs, span[0], span[1]) {
			continue
		}
		add(acronym, normalizeTerm(acronym), span[0], nil)
	}

	words := streamWords(tokens)
	for _, kw := range order {
		kw.Count = max(1, countPhrase(words, strings.Fields(kw.Norm)))
	}

	if len(order) > limit {
		sort.SliceStable(order, func(i, j int) bool {
			return salience(order[i]) > salience(order[j])
		})
		order = order[:limit]
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].first < order[j].first })

	keywords := make([]Keyword, len(order))
	for i, kw := range order {
		keywords[i] = *kw
	}
	return keywords
}

// capitalizedRuns returns the runs of two to four consecutive capitalized
// words in a phrase, except a run that is the whole phrase.
func capitalizedRuns(phrase []token) [][]token {
	var runs [][]token
	start := 0
	for i := 0; i <= len(phrase); i++ {
		if i < len(phrase) && isCapitalized(phrase[i].raw) {
			continue
		}
		if n := i - start; n >= 2 && n <= maxPhraseWords && n < len(phrase) {
			runs = append(runs, phrase[start:i])
		}
		start = i + 1
	}
	return runs
}

func isCapitalized(word string) bool {
	r := []rune(word)
	return len(r) > 1 && unicode.IsUpper(r[0]) && strings.ContainsFunc(word, unicode.IsLower)
}

func isDelimiterToken(t token) bool {
	if isDelimiterWord(t.norm) || isNumeric(t.norm) {
		return true
	}
	return len([]rune(t.norm)) == 1 && !strings.ContainsAny(t.norm, "+#")
}

func cleanDisplay(s string) string {
	s = unsafeChars.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// validKeyword drops fragments too short or too bare to name anything.
// Two-character terms survive only when they look like names ("Go", "AI", "C#").
func validKeyword(s string) bool {
	if !strings.ContainsFunc(s, unicode.IsLetter) {
		return false
	}
	switch n := len([]rune(s)); {
	case n > 2:
		return !isDelimiterWord(strings.ToLower(s))
	case n == 2:
		return hasUpper(s) || strings.ContainsAny(s, "+#")
	default:
		return false
	}
}

// salience ranks candidates for truncation: requirements first, then
// repeated terms, then terms that look like proper names or technical
// tokens, then longer phrases.
func salience(kw *Keyword) float64 {
	score := float64(kw.Count) * 2
	if kw.req != nil {
		score += 3
	}
	if hasUpper(kw.Text) || strings.ContainsAny(kw.Text, "+#.") {
		score += 2
	}
	score += float64(strings.Count(kw.Norm, " ")) * 0.5
	return score
}

// streamWords is the normalized word sequence of a text, with multi-word
// aliases applied.
func streamWords(tokens []token) []string {
	return strings.Fields(normalizePhrase(tokens))
}

// countPhrase counts non-overlapping whole-word occurrences of phrase in words.
func countPhrase(words, phrase []string) int {
	if len(phrase) == 0 {
		return 0
	}
	n := 0
	for i := 0; i+len(phrase) <= len(words); {
		if equalWords(words[i:i+len(phrase)], phrase) {
			n++
			i += len(phrase)
			continue
		}
		i++
	}
	return n
}

func equalWords(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
