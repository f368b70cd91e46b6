package dialect

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Detection is the result of classifying a text sample. ProfileID is always
// a usable profile: when no profile qualifies, the detector falls back to a
// script heuristic rather than reporting "unknown".
type Detection struct {
	ProfileID       string   `json:"profile_id"`
	Label           string   `json:"label"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// fallbackConfidence is reported when detection degrades to the script
// heuristic.
const fallbackConfidence = 0.5

// Detect classifies rawText against the profile table. For each profile it
// counts case-insensitive keyword occurrences; a profile qualifies when the
// match count reaches its MinMatches. Among qualifying profiles the one with
// the highest matched/total ratio wins, ties broken by declaration order.
// With no qualifying profile, text containing Han ideographs selects the
// generic CJK profile and anything else the generic Latin profile.
func Detect(rawText string, profiles []Profile) Detection {
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}

	haystack := fold(rawText)

	best := Detection{}
	for _, p := range profiles {
		var matched []string
		for _, kw := range p.Keywords {
			if strings.Contains(haystack, fold(kw)) {
				matched = append(matched, kw)
			}
		}
		if len(matched) < p.MinMatches {
			continue
		}
		confidence := float64(len(matched)) / float64(len(p.Keywords))
		// Strictly greater: earlier declared profiles win ties.
		if confidence > best.Confidence {
			best = Detection{
				ProfileID:       p.ID,
				Label:           p.Label,
				Confidence:      confidence,
				MatchedKeywords: matched,
			}
		}
	}
	if best.ProfileID != "" {
		return best
	}

	if containsHan(rawText) {
		return Detection{ProfileID: GenericCN, Label: "Generic Chinese EMR", Confidence: fallbackConfidence}
	}
	return Detection{ProfileID: GenericEN, Label: "Generic English EMR", Confidence: fallbackConfidence}
}

// fold normalizes text for keyword matching: NFKC folds full-width forms
// (OCR output frequently mixes full-width and half-width punctuation) and
// lowercasing makes the substring match case-insensitive.
func fold(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
