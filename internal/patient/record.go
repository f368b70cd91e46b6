// Package patient defines the canonical patient record produced by the
// extraction pipeline and its completeness validation.
package patient

// Gender is the canonical gender enumeration. A record never stores a raw
// locale string; unrecognized inputs normalize to GenderOther.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Record is the canonical output entity of one extraction run. Fields are
// empty strings when not recognized. BirthDate, when set, is always in
// YYYY-MM-DD form. AdditionalContext retains the full raw source text for
// audit and traceability.
type Record struct {
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	BirthDate         string `json:"birth_date,omitempty"`
	Gender            Gender `json:"gender,omitempty"`
	ExternalPatientID string `json:"external_patient_id,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`
}

// Merge returns a copy of r with non-empty fields from other applied on top.
// Used by the confirmation loop to fold user corrections into a record before
// re-validation. AdditionalContext is kept from the original record.
func (r Record) Merge(other Record) Record {
	out := r
	if other.FirstName != "" {
		out.FirstName = other.FirstName
	}
	if other.LastName != "" {
		out.LastName = other.LastName
	}
	if other.BirthDate != "" {
		out.BirthDate = other.BirthDate
	}
	if other.Gender != "" {
		out.Gender = other.Gender
	}
	if other.ExternalPatientID != "" {
		out.ExternalPatientID = other.ExternalPatientID
	}
	return out
}

// field returns the value of a required-set field by its wire name.
func (r Record) field(name string) string {
	switch name {
	case "first_name":
		return r.FirstName
	case "last_name":
		return r.LastName
	case "birth_date":
		return r.BirthDate
	case "gender":
		return string(r.Gender)
	case "external_patient_id":
		return r.ExternalPatientID
	}
	return ""
}
