// Package textutil provides bilingual text helpers shared by the stage
// executors and the healer.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// HasHebrew reports whether s contains at least one Hebrew letter.
func HasHebrew(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hebrew, r) {
			return true
		}
	}
	return false
}

// WordCount counts whitespace-separated tokens that carry at least one
// letter or digit. Punctuation-only tokens are ignored so Hebrew and
// English bodies count the same way.
func WordCount(s string) int {
	count := 0
	for _, field := range strings.Fields(s) {
		for _, r := range field {
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				count++
				break
			}
		}
	}
	return count
}

var feedbackStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "be": {}, "but": {},
	"for": {}, "in": {}, "is": {}, "it": {}, "its": {}, "more": {}, "of": {},
	"on": {}, "or": {}, "should": {}, "that": {}, "the": {}, "this": {},
	"to": {}, "too": {}, "was": {}, "we": {}, "with": {},
}

// KeywordsFromFeedback derives up to max distinct keywords from reviewer
// feedback. Tokens are lowercased, stripped of punctuation, and filtered
// against a small English stopword list. Hebrew feedback passes through
// unchanged apart from punctuation stripping.
func KeywordsFromFeedback(feedback string, max int) []string {
	if max <= 0 {
		max = 8
	}
	seen := make(map[string]struct{})
	keywords := make([]string, 0, max)
	for _, field := range strings.Fields(feedback) {
		token := strings.ToLower(strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		}))
		if len([]rune(token)) < 3 {
			continue
		}
		if _, stop := feedbackStopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
		if len(keywords) >= max {
			break
		}
	}
	return keywords
}

// TitleFromKeywords builds a working title from derived keywords. Hebrew
// keywords are joined as-is since Hebrew has no letter case.
func TitleFromKeywords(keywords []string) string {
	if len(keywords) == 0 {
		return "Untitled Topic"
	}
	joined := strings.Join(keywords, " ")
	if HasHebrew(joined) {
		return joined
	}
	return cases.Title(language.English).String(joined)
}

// Excerpt returns the first n words of s with an ellipsis when truncated.
func Excerpt(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.TrimSpace(s)
	}
	return strings.Join(fields[:n], " ") + "…"
}

// SEOScore computes a coarse 0-100 score for a body against its target
// keywords. Length accounts for up to 60 points, keyword coverage for the
// remaining 40. The heuristic is deliberately cheap; it exists to rank
// drafts, not to replace a real audit.
func SEOScore(body string, keywords []string) int {
	words := WordCount(body)
	if words == 0 {
		return 0
	}
	score := words / 10
	if score > 60 {
		score = 60
	}
	if len(keywords) > 0 {
		lower := strings.ToLower(body)
		hits := 0
		for _, kw := range keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		score += hits * 40 / len(keywords)
	}
	if score > 100 {
		score = 100
	}
	return score
}
