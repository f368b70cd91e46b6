package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartflow/chartflow/internal/dialect"
	"github.com/chartflow/chartflow/internal/patient"
)

func TestExtract_CJKRecord(t *testing.T) {
	raw := "姓名: 张三\n性别: 男\n出生日期: 1970年01月15日\n病历号: HIS123456"

	rec := NewExtractor(DefaultConfig()).Extract(raw, dialect.GenericCN)

	assert.Equal(t, "张", rec.LastName)
	assert.Equal(t, "三", rec.FirstName)
	assert.Equal(t, patient.GenderMale, rec.Gender)
	assert.Equal(t, "1970-01-15", rec.BirthDate)
	assert.Equal(t, "HIS123456", rec.ExternalPatientID)
	assert.Equal(t, raw, rec.AdditionalContext)
}

func TestExtract_LatinRecord(t *testing.T) {
	raw := "First Name: John\nLast Name: Doe\nGender: Male\nDOB: 01/15/1970\nMRN: EMR001"

	rec := NewExtractor(DefaultConfig()).Extract(raw, dialect.GenericEN)

	assert.Equal(t, "John", rec.FirstName)
	assert.Equal(t, "Doe", rec.LastName)
	assert.Equal(t, patient.GenderMale, rec.Gender)
	assert.Equal(t, "1970-01-15", rec.BirthDate)
	assert.Equal(t, "EMR001", rec.ExternalPatientID)
}

func TestExtract_LatinNamePairFallback(t *testing.T) {
	// No labelled first/last fields: the two-token name pattern takes over.
	raw := "Name: Jane Smith\nSex: F\nDate of Birth: 1988-07-02\nPatient ID: P1234567"

	rec := NewExtractor(DefaultConfig()).Extract(raw, dialect.GenericEN)

	assert.Equal(t, "Jane", rec.FirstName)
	assert.Equal(t, "Smith", rec.LastName)
	assert.Equal(t, patient.GenderFemale, rec.Gender)
	assert.Equal(t, "1988-07-02", rec.BirthDate)
	assert.Equal(t, "P1234567", rec.ExternalPatientID)
}

func TestExtract_SingleRuneCJKName(t *testing.T) {
	rec := NewExtractor(DefaultConfig()).Extract("姓名: 王", dialect.GenericCN)
	assert.Equal(t, "王", rec.LastName)
	assert.Empty(t, rec.FirstName)
}

func TestExtract_EmptyInput(t *testing.T) {
	rec := NewExtractor(DefaultConfig()).Extract("", dialect.GenericCN)
	assert.Equal(t, patient.Record{AdditionalContext: ""}, rec)
}

func TestExtract_NoFieldsStillKeepsContext(t *testing.T) {
	raw := "nothing medically relevant here"
	rec := NewExtractor(DefaultConfig()).Extract(raw, dialect.GenericEN)
	assert.Empty(t, rec.FirstName)
	assert.Empty(t, rec.ExternalPatientID)
	assert.Equal(t, raw, rec.AdditionalContext)
}

func TestExtract_UnknownProfileUsesCJKRules(t *testing.T) {
	rec := NewExtractor(DefaultConfig()).Extract("姓名: 李四", "no_such_profile")
	assert.Equal(t, "李", rec.LastName)
	assert.Equal(t, "四", rec.FirstName)
}

func TestExtract_BareIDFallback(t *testing.T) {
	rec := NewExtractor(DefaultConfig()).Extract("Doe, John - EMR0042 - ward 3", dialect.GenericEN)
	assert.Equal(t, "EMR0042", rec.ExternalPatientID)
}

func TestExtract_IDUppercased(t *testing.T) {
	rec := NewExtractor(DefaultConfig()).Extract("MRN: abc123", dialect.GenericEN)
	assert.Equal(t, "ABC123", rec.ExternalPatientID)
}

func TestExtractWithMatches_Provenance(t *testing.T) {
	raw := "姓名: 张三\n性别: 男\n出生日期: 1970-01-15\n病历号: HIS123456"
	_, matches := NewExtractor(DefaultConfig()).ExtractWithMatches(raw, dialect.GenericCN)

	byField := map[Field]FieldMatch{}
	for _, m := range matches {
		byField[m.Field] = m
	}
	require.Contains(t, byField, FieldFullName)
	assert.Equal(t, "labelled-name", byField[FieldFullName].Pattern)
	require.Contains(t, byField, FieldBirthDate)
	assert.Equal(t, "labelled-birth-date", byField[FieldBirthDate].Pattern)
}

func TestExtract_FallbackChainOrder(t *testing.T) {
	// Both a labelled DOB and a bare date are present; the labelled tier wins.
	raw := "Admitted: 12/30/2020\nDOB: 01/15/1970"
	_, matches := NewExtractor(DefaultConfig()).ExtractWithMatches(raw, dialect.GenericEN)

	for _, m := range matches {
		if m.Field == FieldBirthDate {
			assert.Equal(t, "labelled-dob", m.Pattern)
			assert.Equal(t, "01/15/1970", m.Raw)
			return
		}
	}
	t.Fatal("no birth date match recorded")
}
