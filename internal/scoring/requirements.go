package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

type requirementKind int

const (
	experienceRequirement requirementKind = iota + 1
	degreeRequirement
	certificationRequirement
)

// requirement is the structured reading of an experience, degree or
// certification keyword. It lets a resume that states the same thing in
// other words still match.
type requirement struct {
	kind    requirementKind
	years   int
	rank    int
	subject string
}

var (
	experiencePattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*\+?\s*(?:years?|yrs?)\.?\s+(?:of\s+)?(?:experience|exp)\b`)

	// Groups: level, degree word, field of study.
	degreePattern = regexp.MustCompile(`(?i)\b((?:associate|bachelor|master)(?:'s|’s|s)?\b|(?:doctorate|doctoral)\b|ph\.?\s?d\b\.?|(?-i:(?:BSc|MSc|BTech|MTech|MBA)\b|(?:B\.S|B\.A|M\.S|M\.A)\.?))(?:\s+(degree|diploma)\b)?(?:\s+(?:in|of)\s+((?-i:[A-Z][\w&]*(?:\s+[A-Z][\w&]*){0,3})))?`)

	// "AWS certification", "PMP certified". Group: subject.
	certSuffixPattern = regexp.MustCompile(`\b((?:[A-Z][\w+#&-]*(?:\.[\w+#&-]+)*\s+){0,2}[A-Z][\w+#&-]*(?:\.[\w+#&-]+)*)\s+(?i:certified|certification|certificate)\b`)
	// "Certified Kubernetes Administrator", "certification in Scrum". Group: subject.
	certPrefixPattern = regexp.MustCompile(`(?i:\bcertified(?:\s+in)?|\bcertification\s+in)\s+([A-Z][\w+#&-]*(?:\.[\w+#&-]+)*(?:\s+[A-Z][\w+#&-]*(?:\.[\w+#&-]+)*){0,3})`)
)

// candidate is a requirement found in text, with its byte span.
type candidate struct {
	start, end int
	norm       string
	req        *requirement
}

// findRequirements returns the non-overlapping requirement spans of text,
// experience first, then degrees, then certifications.
func findRequirements(text string, tokens []token) []candidate {
	var found []candidate
	push := func(start, end int, req *requirement) {
		if overlapsAny(found, start, end) {
			return
		}
		norm := normalizePhrase(tokensIn(tokens, start, end))
		if norm == "" {
			return
		}
		found = append(found, candidate{start: start, end: end, norm: norm, req: req})
	}

	for _, m := range experiencePattern.FindAllStringSubmatchIndex(text, -1) {
		years, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || years == 0 {
			continue
		}
		push(m[0], m[1], &requirement{kind: experienceRequirement, years: years})
	}

	for _, m := range degreePattern.FindAllStringSubmatchIndex(text, -1) {
		level := text[m[2]:m[3]]
		hasDegreeWord, hasField := m[4] >= 0, m[6] >= 0
		if bareLevelWord(level) && !hasDegreeWord && !hasField {
			continue
		}
		req := &requirement{kind: degreeRequirement, rank: degreeRank(level)}
		if hasField {
			req.subject = NormalizeSkill(text[m[6]:m[7]])
		}
		push(m[0], m[1], req)
	}

	for _, m := range certSuffixPattern.FindAllStringSubmatchIndex(text, -1) {
		start, subject := trimSubject(tokens, found, m[2], m[3])
		if subject == "" {
			continue
		}
		push(start, m[1], &requirement{kind: certificationRequirement, subject: subject})
	}
	for _, m := range certPrefixPattern.FindAllStringSubmatchIndex(text, -1) {
		push(m[0], m[1], &requirement{kind: certificationRequirement, subject: NormalizeSkill(text[m[2]:m[3]])})
	}
	return found
}

// bareLevelWord reports a degree level that is also an ordinary word
// ("master", "associate") unless it is possessive or plural.
func bareLevelWord(level string) bool {
	switch strings.ToLower(level) {
	case "associate", "bachelor", "master":
		return true
	}
	return false
}

// degreeRank orders degree levels: associate 1, bachelor 2, master 3,
// doctorate 4.
func degreeRank(level string) int {
	l := strings.ToLower(strings.NewReplacer(".", "", " ", "", "'s", "", "’s", "").Replace(level))
	switch {
	case strings.HasPrefix(l, "associate"):
		return 1
	case strings.HasPrefix(l, "bachelor"), l == "bsc", l == "btech", l == "bs", l == "ba":
		return 2
	case strings.HasPrefix(l, "master"), l == "msc", l == "mtech", l == "mba", l == "ms", l == "ma":
		return 3
	case strings.HasPrefix(l, "doctor"), l == "phd":
		return 4
	}
	return 0
}

// trimSubject drops stop and filler words ("Requires") and words already
// claimed by another requirement from the front of a certification subject.
// It returns the subject's new start and normalized form.
func trimSubject(tokens []token, found []candidate, start, end int) (int, string) {
	subject := tokensIn(tokens, start, end)
	for len(subject) > 0 && (isDelimiterToken(subject[0]) || overlapsAny(found, subject[0].start, subject[0].end)) {
		subject = subject[1:]
	}
	if len(subject) == 0 {
		return start, ""
	}
	return subject[0].start, normalizePhrase(subject)
}

func tokensIn(tokens []token, start, end int) []token {
	var in []token
	for _, t := range tokens {
		if t.start >= start && t.end <= end {
			in = append(in, t)
		}
	}
	return in
}

func overlapsAny(spans []candidate, start, end int) bool {
	for _, c := range spans {
		if start < c.end && c.start < end {
			return true
		}
	}
	return false
}

func insideAny(spans []candidate, start, end int) bool {
	for _, c := range spans {
		if start >= c.start && end <= c.end {
			return true
		}
	}
	return false
}

// resumeFacts is what a resume states about experience, degrees and
// certifications.
type resumeFacts struct {
	years      int
	degreeRank int
	certs      []string
}

func scanResume(text string, tokens []token) resumeFacts {
	var facts resumeFacts
	for _, c := range findRequirements(text, tokens) {
		switch c.req.kind {
		case experienceRequirement:
			facts.years = max(facts.years, c.req.years)
		case degreeRequirement:
			facts.degreeRank = max(facts.degreeRank, c.req.rank)
		case certificationRequirement:
			facts.certs = append(facts.certs, c.req.subject)
		}
	}
	return facts
}

// satisfies reports whether the resume meets a requirement stated in
// different words: at least as many years, a degree at least as high in
// the same field, or a certification naming the same subject.
func (f resumeFacts) satisfies(req *requirement, words []string) bool {
	switch req.kind {
	case experienceRequirement:
		return f.years >= req.years
	case degreeRequirement:
		if f.degreeRank < req.rank {
			return false
		}
		return req.subject == "" || countPhrase(words, strings.Fields(req.subject)) > 0
	case certificationRequirement:
		want := strings.Fields(req.subject)
		for _, cert := range f.certs {
			if countPhrase(strings.Fields(cert), want) > 0 {
				return true
			}
		}
	}
	return false
}
