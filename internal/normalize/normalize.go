// Package normalize turns AI-generated prose with lightweight markup into
// display text: either one cleaned string or a sequence of paragraph blocks.
//
// The rules are a blunt strip of markup characters, not a markdown parser.
// Every function here is pure and safe for concurrent use.
package normalize

import (
	"regexp"
	"strings"

	"resumatch/internal/types"
)

var (
	emphasisReplacer = strings.NewReplacer("**", "", "__", "", "*", "", "_", "")

	headingMarker = regexp.MustCompile(`(?m)^(?:#+[ \t]*)+`)
	listMarker    = regexp.MustCompile(`(?m)^(?:[-+\d]+\.?[ \t]+)+`)
	quoteMarker   = regexp.MustCompile(`(?m)^(?:>[ \t]*)+`)
	excessBreaks  = regexp.MustCompile(`\n{3,}`)
	paragraphGap  = regexp.MustCompile(`\n{2,}`)
)

type rules struct {
	quotes   bool
	collapse bool
}

// Inline strips emphasis, heading and list markup and trims the result.
func Inline(text string) string {
	return clean(text, rules{})
}

// Blocks splits cleaned text into paragraphs on blank lines. Single line
// breaks inside a paragraph are kept as break markers.
func Blocks(text string) []types.Paragraph {
	return split(clean(text, rules{collapse: true}))
}

// Salary is Inline plus removal of block-quote markers, which salary
// answers tend to carry.
func Salary(text string) string {
	return clean(text, rules{quotes: true})
}

// SalaryBlocks is Blocks with block-quote markers removed.
func SalaryBlocks(text string) []types.Paragraph {
	return split(clean(text, rules{quotes: true, collapse: true}))
}

// Text returns both projections of text.
func Text(text string) types.NormalizedText {
	return types.NormalizedText{
		Inline:     Inline(text),
		Paragraphs: Blocks(text),
	}
}

// SalaryText is Text with the salary rules.
func SalaryText(text string) types.NormalizedText {
	return types.NormalizedText{
		Inline:     Salary(text),
		Paragraphs: SalaryBlocks(text),
	}
}

// clean applies the rules until the text stops changing. Stripping one
// marker can expose another at the start of a line (for example "- # x"),
// and each pass only ever shortens the text, so the loop terminates.
func clean(text string, r rules) string {
	out := text
	for {
		next := pass(out, r)
		if next == out {
			return out
		}
		out = next
	}
}

func pass(text string, r rules) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = emphasisReplacer.Replace(text)
	text = headingMarker.ReplaceAllString(text, "")
	text = listMarker.ReplaceAllString(text, "")
	if r.quotes {
		text = quoteMarker.ReplaceAllString(text, "")
	}
	if r.collapse {
		text = excessBreaks.ReplaceAllString(text, "\n\n")
	}
	return strings.TrimSpace(text)
}

func split(text string) []types.Paragraph {
	if text == "" {
		return []types.Paragraph{}
	}

	chunks := paragraphGap.Split(text, -1)
	paragraphs := make([]types.Paragraph, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		paragraphs = append(paragraphs, types.Paragraph{
			Content:             chunk,
			LineBreaksPreserved: strings.Contains(chunk, "\n"),
		})
	}
	return paragraphs
}

// Lines returns the lines of a paragraph, one per preserved break.
func Lines(p types.Paragraph) []string {
	if !p.LineBreaksPreserved {
		return []string{p.Content}
	}
	return strings.Split(p.Content, "\n")
}
