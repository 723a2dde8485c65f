package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Encodings(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Result
	}{
		{
			name: "proper flag",
			text: "Software Engineer Intern \U0001F1FA\U0001F1F8",
			want: Result{CleanRole: "Software Engineer Intern", RequiresCitizenship: true},
		},
		{
			name: "latin-1 mojibake flag",
			text: "Software Engineer Intern " + flagLatin1,
			want: Result{CleanRole: "Software Engineer Intern", RequiresCitizenship: true},
		},
		{
			name: "windows-1252 mojibake flag",
			text: "Software Engineer Intern " + flagCP1252,
			want: Result{CleanRole: "Software Engineer Intern", RequiresCitizenship: true},
		},
		{
			name: "stripped mojibake flag is not a passport",
			text: "Software Engineer Intern ðºð¸",
			want: Result{CleanRole: "Software Engineer Intern", RequiresCitizenship: true},
		},
		{
			name: "escaped flag text",
			text: "Software Engineer Intern " + flagEscape,
			want: Result{CleanRole: "Software Engineer Intern", RequiresCitizenship: true},
		},
		{
			name: "cesu-8 flag",
			text: "Software Engineer Intern " + flagCESU8,
			want: Result{CleanRole: "Software Engineer Intern", RequiresCitizenship: true},
		},
		{
			name: "passport emoji",
			text: "Data Intern \U0001F6C2",
			want: Result{CleanRole: "Data Intern", NoSponsorship: true},
		},
		{
			name: "stripped passport",
			text: "Data Intern ð",
			want: Result{CleanRole: "Data Intern", NoSponsorship: true},
		},
		{
			name: "stripped passport mid text",
			text: "Data ð Intern",
			want: Result{CleanRole: "Data Intern", NoSponsorship: true},
		},
		{
			name: "eth inside a word is not a passport",
			text: "Ðata Hðkon Intern",
			want: Result{CleanRole: "Ðata Hðkon Intern"},
		},
		{
			name: "lock emoji",
			text: "Hardware Intern \U0001F512",
			want: Result{CleanRole: "Hardware Intern", IsClosed: true},
		},
		{
			name: "escaped lock and passport",
			text: "Hardware Intern " + lockEscape + " " + passportEscape,
			want: Result{CleanRole: "Hardware Intern", IsClosed: true, NoSponsorship: true},
		},
		{
			name: "graduate emoji",
			text: "SWE Intern " + graduateUTF8,
			want: Result{CleanRole: "SWE Intern", IsFreshmanFriendly: true},
		},
		{
			name: "cap emoji",
			text: "SWE Intern \U0001F393",
			want: Result{CleanRole: "SWE Intern", IsFreshmanFriendly: true},
		},
		{
			name: "freshman word stays in the title",
			text: "Freshman Software Engineering Intern",
			want: Result{CleanRole: "Freshman Software Engineering Intern", IsFreshmanFriendly: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassify_Phrases(t *testing.T) {
	got := Classify("Security Intern - \U0001F6C2 - Does NOT offer Sponsorship - \U0001F1FA\U0001F1F8 - Requires U.S. Citizenship")
	assert.Equal(t, "Security Intern", got.CleanRole)
	assert.True(t, got.NoSponsorship)
	assert.True(t, got.RequiresCitizenship)
	assert.False(t, got.IsClosed)

	got = Classify("Quant Intern (Internship application is closed)")
	assert.True(t, got.IsClosed)
	assert.Equal(t, "Quant Intern ( )", got.CleanRole)

	got = Classify("Research Intern - no sponsorship")
	assert.True(t, got.NoSponsorship)
	assert.Equal(t, "Research Intern -", got.CleanRole)
}

func TestClassify_AllFlags(t *testing.T) {
	got := Classify("\U0001F512 \U0001F6C2 \U0001F1FA\U0001F1F8 \U0001F393 ML Intern")
	assert.Equal(t, Result{
		CleanRole:           "ML Intern",
		RequiresCitizenship: true,
		NoSponsorship:       true,
		IsClosed:            true,
		IsFreshmanFriendly:  true,
	}, got)
}

func TestClassify_Empty(t *testing.T) {
	assert.Equal(t, Result{}, Classify(""))
}

func TestResult_Merge(t *testing.T) {
	a := Result{CleanRole: "SWE Intern", RequiresCitizenship: true}
	b := Result{CleanRole: "ignored", IsClosed: true}
	got := a.Merge(b)
	assert.Equal(t, "SWE Intern", got.CleanRole)
	assert.True(t, got.RequiresCitizenship)
	assert.True(t, got.IsClosed)
	assert.False(t, got.NoSponsorship)
}

func TestAdvancedDegree(t *testing.T) {
	assert.True(t, AdvancedDegree("PhD Research Intern \U0001F393"))
	assert.True(t, AdvancedDegree("PhD Research Intern "+capCP1252))
	assert.True(t, AdvancedDegree(`PhD Research Intern \ud83c\udf93`))
	assert.False(t, AdvancedDegree("Software Engineer Intern"))
	assert.False(t, AdvancedDegree("Freshman Software Engineer Intern"))
}
