package extract

import "regexp"

// Field names one semantic slot of the patient record.
type Field string

const (
	FieldFullName  Field = "full_name"
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldGender    Field = "gender"
	FieldBirthDate Field = "birth_date"
	FieldPatientID Field = "external_patient_id"
)

// fieldPattern is one tier of a fallback chain: a labelled regular
// expression whose first capture group is the field value. Patterns are
// ordered from explicitly labelled to loosely heuristic; the first match
// wins, so weakly structured text degrades gracefully.
type fieldPattern struct {
	Label string
	Re    *regexp.Regexp
}

// FieldMatch records which pattern produced a field value, for diagnostics.
type FieldMatch struct {
	Field   Field  `json:"field"`
	Raw     string `json:"raw"`
	Pattern string `json:"pattern,omitempty"`
}

// nameStyle selects how a matched full name splits into first/last.
type nameStyle int

const (
	// cjkName: first rune is the family name, the remainder the given name.
	cjkName nameStyle = iota
	// latinName: labelled first/last fields preferred; a two-group full-name
	// pattern supplies "First Last" otherwise.
	latinName
)

// RuleSet is the declarative extraction table for one dialect family.
// Adding a dialect means adding data here (or in a profile file), not code.
type RuleSet struct {
	NameStyle nameStyle

	FullName  []fieldPattern
	FirstName []fieldPattern
	LastName  []fieldPattern
	Gender    []fieldPattern
	BirthDate []fieldPattern
	PatientID []fieldPattern
}

func cjkRules() *RuleSet {
	return &RuleSet{
		NameStyle: cjkName,
		FullName: []fieldPattern{
			{"labelled-name", regexp.MustCompile(`姓名[:：]\s*([^\n\s]+)`)},
			{"labelled-patient-name", regexp.MustCompile(`患者姓名[:：]\s*([^\n\s]+)`)},
			{"labelled-sick-name", regexp.MustCompile(`病人姓名[:：]\s*([^\n\s]+)`)},
			{"labelled-name-en", regexp.MustCompile(`(?i)Name[:：]\s*([^\n\s]+)`)},
		},
		Gender: []fieldPattern{
			{"labelled-gender", regexp.MustCompile(`(?i)性别[:：]\s*([男女]|Male|Female)`)},
			{"labelled-sex", regexp.MustCompile(`(?i)Sex[:：]\s*([男女]|Male|Female)`)},
		},
		BirthDate: []fieldPattern{
			{"labelled-birth-date", regexp.MustCompile(`出生日期[:：]\s*(\d{4}[-/年]\d{1,2}[-/月]\d{1,2}日?)`)},
			{"labelled-birth", regexp.MustCompile(`出生[:：]\s*(\d{4}[-/年]\d{1,2}[-/月]\d{1,2}日?)`)},
			{"labelled-dob", regexp.MustCompile(`(?i)DOB[:：]\s*(\d{4}[-/]\d{1,2}[-/]\d{1,2})`)},
			{"labelled-birth-date-en", regexp.MustCompile(`(?i)Birth\s*Date[:：]\s*(\d{4}[-/]\d{1,2}[-/]\d{1,2})`)},
			{"bare-date", regexp.MustCompile(`(\d{4}[-/年]\d{1,2}[-/月]\d{1,2}日?)`)},
		},
		PatientID: []fieldPattern{
			{"labelled-record-no", regexp.MustCompile(`(?i)病历号[:：]\s*([A-Z0-9]+)`)},
			{"labelled-patient-no", regexp.MustCompile(`(?i)患者编号[:：]\s*([A-Z0-9]+)`)},
			{"labelled-patient-id-cn", regexp.MustCompile(`(?i)病人ID[:：]\s*([A-Z0-9]+)`)},
			{"labelled-mrn", regexp.MustCompile(`(?i)MRN[:：]\s*([A-Z0-9]+)`)},
			{"labelled-patient-id", regexp.MustCompile(`(?i)Patient\s*ID[:：]\s*([A-Z0-9]+)`)},
			{"bare-id", regexp.MustCompile(`(EMR\d+|HIS\d+|P\d{6,})`)},
		},
	}
}

func latinRules() *RuleSet {
	return &RuleSet{
		NameStyle: latinName,
		FirstName: []fieldPattern{
			{"labelled-first-name", regexp.MustCompile(`(?i)First\s*Name[:：]\s*([^\n,]+)`)},
		},
		LastName: []fieldPattern{
			{"labelled-last-name", regexp.MustCompile(`(?i)Last\s*Name[:：]\s*([^\n,]+)`)},
		},
		FullName: []fieldPattern{
			// Two capture groups: first and last token of a "Name: First Last".
			{"labelled-name-pair", regexp.MustCompile(`(?i)Name[:：]\s*([A-Za-z]+)\s+([A-Za-z]+)`)},
		},
		Gender: []fieldPattern{
			{"labelled-gender", regexp.MustCompile(`(?i)(?:Gender|Sex)[:：]\s*(Male|Female|M|F)\b`)},
		},
		BirthDate: []fieldPattern{
			{"labelled-dob", regexp.MustCompile(`(?i)(?:DOB|Date\s*of\s*Birth|Birth\s*Date)[:：]\s*(\d{1,2}[-/]\d{1,2}[-/]\d{4}|\d{4}[-/]\d{1,2}[-/]\d{1,2})`)},
			{"bare-date", regexp.MustCompile(`(\d{1,2}[-/]\d{1,2}[-/]\d{4}|\d{4}[-/]\d{1,2}[-/]\d{1,2})`)},
		},
		PatientID: []fieldPattern{
			{"labelled-id", regexp.MustCompile(`(?i)(?:Patient\s*ID|MRN|Medical\s*Record)[:：]\s*([A-Z0-9]+)`)},
			{"bare-id", regexp.MustCompile(`(EMR\d+|HIS\d+|P\d{6,})`)},
		},
	}
}

// defaultRuleSets maps profile IDs to their rule sets. Vendor profiles share
// the rule family of their script; unknown profiles fall back to the CJK
// rules, preserving the source system's behavior.
func defaultRuleSets() map[string]*RuleSet {
	cjk := cjkRules()
	latin := latinRules()
	return map[string]*RuleSet{
		"generic_cn": cjk,
		"his_cn":     cjk,
		"generic_en": latin,
		"epic":       latin,
		"cerner":     latin,
	}
}
