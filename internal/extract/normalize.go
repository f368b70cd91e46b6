package extract

import (
	"strings"
	"time"

	"github.com/chartflow/chartflow/internal/patient"
)

// genderSynonyms maps lowercase raw gender tokens to the canonical enum.
// Covers native CJK words, English full words, and single-letter forms.
var genderSynonyms = map[string]patient.Gender{
	"男":      patient.GenderMale,
	"女":      patient.GenderFemale,
	"男性":     patient.GenderMale,
	"女性":     patient.GenderFemale,
	"male":   patient.GenderMale,
	"female": patient.GenderFemale,
	"m":      patient.GenderMale,
	"f":      patient.GenderFemale,
}

// NormalizeGender maps a raw gender string to the canonical enum. Total:
// anything unrecognized maps to GenderOther, never an error.
func NormalizeGender(raw string) patient.Gender {
	if g, ok := genderSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return g
	}
	return patient.GenderOther
}

// dateMarkerReplacer rewrites CJK year/month/day markers to a uniform
// separator before template parsing.
var dateMarkerReplacer = strings.NewReplacer("年", "-", "月", "-", "日", "")

// dateTemplates returns the ordered parse templates. The default order tries
// the US slash form before the EU one, matching the source system; a "03/04/1998"
// therefore parses as March 4th. Integrators who know their locale pass
// hint "eu" to flip the two ambiguous templates — template order, not locale
// inference, resolves the ambiguity either way.
func dateTemplates(hint string) []string {
	if strings.EqualFold(hint, "eu") {
		return []string{"2006-1-2", "2006/1/2", "2/1/2006", "1/2/2006", "20060102"}
	}
	return []string{"2006-1-2", "2006/1/2", "1/2/2006", "2/1/2006", "20060102"}
}

// NormalizeDate canonicalizes a raw date string to YYYY-MM-DD using the
// default template order. If no template parses, the raw input is returned
// unchanged; the caller is responsible for flagging it.
func NormalizeDate(raw string) string {
	return NormalizeDateHint(raw, "")
}

// NormalizeDateHint is NormalizeDate with an explicit locale hint ("us", "eu"
// or empty) controlling the order of the two ambiguous slash templates.
func NormalizeDateHint(raw, hint string) string {
	cleaned := strings.TrimSpace(dateMarkerReplacer.Replace(raw))
	for _, layout := range dateTemplates(hint) {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

// NormalizeRecord re-applies field normalization to a whole record. Idempotent
// on already-canonical values; used after user corrections are merged in, so
// hand-entered dates and gender words get the same treatment as extracted
// ones.
func NormalizeRecord(rec patient.Record, hint string) patient.Record {
	rec.FirstName = strings.TrimSpace(rec.FirstName)
	rec.LastName = strings.TrimSpace(rec.LastName)
	rec.ExternalPatientID = strings.ToUpper(strings.TrimSpace(rec.ExternalPatientID))
	if rec.Gender != "" {
		rec.Gender = NormalizeGender(string(rec.Gender))
	}
	if rec.BirthDate != "" {
		rec.BirthDate = NormalizeDateHint(rec.BirthDate, hint)
	}
	return rec
}
