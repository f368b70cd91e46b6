package dialect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cjkSample = "姓名: 张三\n性别: 男\n出生日期: 1970年01月15日\n病历号: HIS123456"

func TestDetect_GenericCN(t *testing.T) {
	det := Detect(cjkSample, nil)
	assert.Equal(t, GenericCN, det.ProfileID)
	// 4 of 6 keywords present: 姓名, 性别, 出生日期, 病历号.
	assert.InDelta(t, 4.0/6.0, det.Confidence, 1e-9)
	assert.Len(t, det.MatchedKeywords, 4)
}

func TestDetect_GenericEN(t *testing.T) {
	det := Detect("First Name: John\nLast Name: Doe\nGender: Male\nDOB: 01/15/1970\nMRN: EMR001", nil)
	assert.Equal(t, GenericEN, det.ProfileID)
	assert.Greater(t, det.Confidence, 0.0)
}

func TestDetect_VendorProfile(t *testing.T) {
	det := Detect("Epic Hyperspace - MyChart patient summary", nil)
	assert.Equal(t, Epic, det.ProfileID)
	assert.InDelta(t, 1.0, det.Confidence, 1e-9)
}

func TestDetect_CaseInsensitive(t *testing.T) {
	det := Detect("CERNER powerchart view", nil)
	assert.Equal(t, Cerner, det.ProfileID)
}

func TestDetect_FallbackByScript(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"han text without keywords", "这是一段没有任何关键词的文字", GenericCN},
		{"latin text without keywords", "some unrelated words on screen", GenericEN},
		{"empty text", "", GenericEN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := Detect(tt.text, nil)
			assert.Equal(t, tt.want, det.ProfileID)
			assert.InDelta(t, 0.5, det.Confidence, 1e-9)
			assert.Empty(t, det.MatchedKeywords)
		})
	}
}

func TestDetect_TieBrokenByOrder(t *testing.T) {
	profiles := []Profile{
		{ID: "first", Label: "First", Keywords: []string{"alpha"}, MinMatches: 1},
		{ID: "second", Label: "Second", Keywords: []string{"alpha"}, MinMatches: 1},
	}
	det := Detect("alpha", profiles)
	assert.Equal(t, "first", det.ProfileID)
}

func TestDetect_MinMatchesGate(t *testing.T) {
	// Two CN keywords is below the profile's threshold of three, so the
	// script fallback takes over instead of a weak profile match.
	det := Detect("姓名: 张三 性别: 男", nil)
	assert.Equal(t, GenericCN, det.ProfileID)
	assert.InDelta(t, 0.5, det.Confidence, 1e-9)
}

func TestDetect_FullWidthFolding(t *testing.T) {
	// Full-width "ＭＲＮ" folds to "mrn" under NFKC.
	det := Detect("Name: Doe\nＭＲＮ: 42\nDOB: 1990-01-01", nil)
	assert.Equal(t, GenericEN, det.ProfileID)
	assert.GreaterOrEqual(t, len(det.MatchedKeywords), 3)
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `
- id: custom_his
  label: Custom HIS
  keywords: ["分诊", "挂号"]
  min_matches: 2
- id: fallback
  label: Fallback
  keywords: ["x"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "custom_his", profiles[0].ID)
	assert.Equal(t, 2, profiles[0].MinMatches)
	// MinMatches defaults to 1 when omitted.
	assert.Equal(t, 1, profiles[1].MinMatches)
}

func TestLoadProfiles_Invalid(t *testing.T) {
	dir := t.TempDir()

	for _, tt := range []struct {
		name    string
		content string
	}{
		{"missing id", "- label: NoID\n  keywords: [\"a\"]\n"},
		{"no keywords", "- id: empty\n  label: Empty\n"},
		{"empty file", ""},
		{"not yaml", "{{{"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := LoadProfiles(path)
			assert.Error(t, err)
		})
	}
}
