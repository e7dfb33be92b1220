package rag

import (
	"regexp"
	"strconv"
	"strings"

	"pdf-rag/internal/models"
)

// Lead-in phrases, checked in order; the first one present in the text wins.
var (
	confidencePhrases = []string{"Confidence: ", "Confidence score: ", "My confidence is ", "Confidence level: "}
	referencePhrases  = []string{"References:", "Sources:", "Reference:", "Source:"}
)

var (
	numberRe  = regexp.MustCompile(`\d+\.\d+|\d+`)
	pageRe    = regexp.MustCompile(`page (\d+)`)
	sectionRe = regexp.MustCompile(`section ([a-z0-9\.]+)`)
)

// ParseAnswerText pulls a confidence score and page/section references out of
// free model output. Anything it cannot parse is reported as absent: a zero
// confidence or an empty reference list.
func ParseAnswerText(text string) (float64, []models.Reference) {
	return parseConfidence(text), parseReferences(text)
}

// parseConfidence reads the first number on the line after the lead-in.
// Values above 1 are read as percentages.
func parseConfidence(text string) float64 {
	for _, phrase := range confidencePhrases {
		idx := strings.Index(text, phrase)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(phrase):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		num := numberRe.FindString(rest)
		if num == "" {
			return 0
		}
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0
		}
		if v > 1 {
			v /= 100
		}
		return v
	}
	return 0
}

// parseReferences collects "page N" then "section X" mentions, case
// insensitively, from the text after the lead-in.
func parseReferences(text string) []models.Reference {
	for _, phrase := range referencePhrases {
		idx := strings.Index(text, phrase)
		if idx < 0 {
			continue
		}
		rest := strings.ToLower(strings.TrimSpace(text[idx+len(phrase):]))

		var refs []models.Reference
		for _, m := range pageRe.FindAllStringSubmatch(rest, -1) {
			refs = append(refs, models.Reference{Page: m[1]})
		}
		for _, m := range sectionRe.FindAllStringSubmatch(rest, -1) {
			refs = append(refs, models.Reference{Section: m[1]})
		}
		return refs
	}
	return nil
}
