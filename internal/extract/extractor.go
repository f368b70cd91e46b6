// Package extract turns raw recognized text into a canonical patient record
// using per-dialect ordered pattern tables. Pattern fallback chains are data,
// not control flow: each tier can be tested independently and new dialects
// are added by extending the table.
package extract

import (
	"log/slog"
	"strings"

	"github.com/chartflow/chartflow/internal/dialect"
	"github.com/chartflow/chartflow/internal/patient"
)

// Config holds extractor settings.
type Config struct {
	// DateLocaleHint disambiguates slash dates: "", "us" or "eu".
	DateLocaleHint string
}

// DefaultConfig returns default extractor settings.
func DefaultConfig() Config {
	return Config{DateLocaleHint: ""}
}

// Extractor evaluates dialect rule sets over recognized text. Safe for
// concurrent use: the rule table is read-only after construction.
type Extractor struct {
	cfg   Config
	rules map[string]*RuleSet
}

// NewExtractor builds an extractor with the built-in rule sets.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg, rules: defaultRuleSets()}
}

// Extract produces a patient record from raw text using the rule set of the
// given dialect profile. The full raw input is always retained in
// AdditionalContext, even when no field matches.
func (e *Extractor) Extract(rawText, profileID string) patient.Record {
	rec, _ := e.ExtractWithMatches(rawText, profileID)
	return rec
}

// ExtractWithMatches is Extract plus the per-field pattern provenance, for
// diagnostics and tooling.
func (e *Extractor) ExtractWithMatches(rawText, profileID string) (patient.Record, []FieldMatch) {
	rules, ok := e.rules[profileID]
	if !ok {
		slog.Debug("Unknown dialect profile, using CJK rules", "profile", profileID)
		rules = e.rules[dialect.GenericCN]
	}

	rec := patient.Record{AdditionalContext: rawText}
	var matches []FieldMatch

	matches = append(matches, e.extractName(rawText, rules, &rec)...)

	if raw, m, ok := firstMatch(rawText, rules.Gender, FieldGender); ok {
		rec.Gender = NormalizeGender(raw)
		matches = append(matches, m)
	}
	if raw, m, ok := firstMatch(rawText, rules.BirthDate, FieldBirthDate); ok {
		rec.BirthDate = NormalizeDateHint(raw, e.cfg.DateLocaleHint)
		matches = append(matches, m)
	}
	if raw, m, ok := firstMatch(rawText, rules.PatientID, FieldPatientID); ok {
		rec.ExternalPatientID = strings.ToUpper(raw)
		matches = append(matches, m)
	}

	return rec, matches
}

// extractName fills first/last name according to the rule set's name style.
func (e *Extractor) extractName(rawText string, rules *RuleSet, rec *patient.Record) []FieldMatch {
	switch rules.NameStyle {
	case cjkName:
		raw, m, ok := firstMatch(rawText, rules.FullName, FieldFullName)
		if !ok {
			return nil
		}
		last, first := splitCJKName(raw)
		rec.LastName, rec.FirstName = last, first
		return []FieldMatch{m}

	case latinName:
		first, fm, fok := firstMatch(rawText, rules.FirstName, FieldFirstName)
		last, lm, lok := firstMatch(rawText, rules.LastName, FieldLastName)
		if fok && lok {
			rec.FirstName = strings.TrimSpace(first)
			rec.LastName = strings.TrimSpace(last)
			return []FieldMatch{fm, lm}
		}
		// Fall back to a two-token "Name: First Last" pattern.
		for _, p := range rules.FullName {
			groups := p.Re.FindStringSubmatch(rawText)
			if len(groups) >= 3 {
				rec.FirstName = strings.TrimSpace(groups[1])
				rec.LastName = strings.TrimSpace(groups[2])
				return []FieldMatch{{Field: FieldFullName, Raw: groups[0], Pattern: p.Label}}
			}
		}
	}
	return nil
}

// firstMatch evaluates a fallback chain in order; the first pattern that
// matches wins for the field.
func firstMatch(text string, patterns []fieldPattern, field Field) (string, FieldMatch, bool) {
	for _, p := range patterns {
		groups := p.Re.FindStringSubmatch(text)
		if len(groups) >= 2 && groups[1] != "" {
			raw := strings.TrimSpace(groups[1])
			return raw, FieldMatch{Field: field, Raw: raw, Pattern: p.Label}, true
		}
	}
	return "", FieldMatch{}, false
}

// splitCJKName splits a CJK full name: the first rune is the family name,
// the remainder the given name. A single-rune name yields an empty given
// name.
func splitCJKName(full string) (last, first string) {
	runes := []rune(strings.TrimSpace(full))
	if len(runes) == 0 {
		return "", ""
	}
	last = string(runes[0])
	if len(runes) > 1 {
		first = string(runes[1:])
	}
	return last, first
}
