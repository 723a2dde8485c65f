package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		role string
		want Category
	}{
		{"Software Engineer Intern", SoftwareEngineering},
		{"Software Engineer Intern, AI Platform", SoftwareEngineering},
		{"Full Stack Developer Intern", FullStack},
		{"Frontend Developer Intern", FrontEnd},
		{"Backend Developer Intern", BackEnd},
		{"Machine Learning Intern", AIML},
		{"Data Science Intern", DataScience},
		{"Data Engineer Intern", DataEngineering},
		{"DevOps Intern", DevOps},
		{"Android Developer Intern", Mobile},
		{"Security Engineering Intern", Security},
		{"Product Manager Intern", ProductManagement},
		{"Quantitative Trader Intern", QuantTrading},
		{"Research Intern", Research},
		{"Business Analyst Intern", BusinessAnalyst},
		{"Data Analyst Intern", DataAnalyst},
		{"Hardware Engineer Intern", HardwareEngineering},
		{"Systems Engineer Intern", SystemsEngineering},
		{"Cloud Engineer Intern", CloudEngineering},
		{"Site Reliability Engineer Intern", SiteReliability},
		{"IT Support Intern", InformationTechnology},
		{"QA Engineer Intern", QualityAssurance},
		{"UX Designer Intern", UXUIDesign},
		{"Sales Engineer Intern", SalesEngineering},
		{"Technical Program Manager Intern", TechnicalProgramManagement},
		{"Marketing Intern", Other},
		{"", Other},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.role))
		})
	}
}

func TestCategorize_ClosedAndPure(t *testing.T) {
	roles := []string{
		"Software Engineer Intern", "Intern", "Marketing Intern", "ML Research Intern",
		"🔥 Hardware Intern 🇺🇸", "Ｆｕｌｌ Ｓｔａｃｋ", "Firmware / Embedded Intern",
	}
	for _, r := range roles {
		first := Categorize(r)
		assert.True(t, Valid(first), "role %q mapped to %q", r, first)
		assert.Equal(t, first, Categorize(r))
	}
}

func TestAll(t *testing.T) {
	all := All()
	require.Len(t, all, 25)
	assert.Equal(t, SoftwareEngineering, all[0])
	assert.Equal(t, Other, all[len(all)-1])

	seen := map[Category]bool{}
	for _, c := range all {
		assert.False(t, seen[c], "duplicate category %q", c)
		seen[c] = true
	}
	assert.False(t, Valid("Astronaut"))
}
