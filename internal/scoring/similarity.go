package scoring

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const maxVectorFeatures = 500

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// semanticSimilarity returns the TF-IDF cosine similarity of two documents in
// [0, 1]. Features are unigrams and bigrams over lower-cased words with
// English stop words removed, limited to the most frequent terms across both
// documents. IDF is smoothed: ln((1+n)/(1+df)) + 1.
func semanticSimilarity(a, b string) float64 {
	docs := []map[string]int{termCounts(a), termCounts(b)}
	if len(docs[0]) == 0 || len(docs[1]) == 0 {
		return 0
	}

	vocab := topFeatures(docs, maxVectorFeatures)
	n := float64(len(docs))

	var dot, normA, normB float64
	for _, term := range vocab {
		df := 0
		for _, d := range docs {
			if d[term] > 0 {
				df++
			}
		}
		idf := math.Log((1+n)/(1+float64(df))) + 1

		wa := float64(docs[0][term]) * idf
		wb := float64(docs[1][term]) * idf
		dot += wa * wb
		normA += wa * wa
		normB += wb * wb
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Min(1, math.Max(0, sim))
}

func termCounts(text string) map[string]int {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	kept := words[:0]
	for _, w := range words {
		if !isStopWord(w) {
			kept = append(kept, w)
		}
	}

	counts := make(map[string]int, len(kept)*2)
	for i, w := range kept {
		counts[w]++
		if i > 0 {
			counts[kept[i-1]+" "+w]++
		}
	}
	return counts
}

// topFeatures keeps the limit most frequent terms across docs, ties broken
// alphabetically so the result is deterministic.
func topFeatures(docs []map[string]int, limit int) []string {
	total := make(map[string]int)
	for _, d := range docs {
		for term, c := range d {
			total[term] += c
		}
	}

	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if total[terms[i]] != total[terms[j]] {
			return total[terms[i]] > total[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

// fuzzyRatio is difflib's SequenceMatcher ratio over the characters of a and b.
func fuzzyRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
