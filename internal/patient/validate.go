package patient

// RequiredFields is the default completeness set for a publishable record.
func RequiredFields() []string {
	return []string{"first_name", "last_name", "birth_date", "gender", "external_patient_id"}
}

// Validate checks a record against the given required-field set and reports
// which fields are missing. Pure function; the record is not mutated. A nil
// or empty required set falls back to RequiredFields.
func Validate(rec Record, required []string) (bool, []string) {
	if len(required) == 0 {
		required = RequiredFields()
	}
	var missing []string
	for _, name := range required {
		if rec.field(name) == "" {
			missing = append(missing, name)
		}
	}
	return len(missing) == 0, missing
}
