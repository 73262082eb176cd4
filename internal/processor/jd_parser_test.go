package processor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ats-analyzer-go/internal/types"
)

func TestExtractJobTitleWithIndicator(t *testing.T) {
	text := "Acme Corp\nSenior Backend Engineer\nWe build things"

	assert.Equal(t, "Senior Backend Engineer", ExtractJobTitle(text))
}

func TestExtractJobTitleFallbackFirstShortLine(t *testing.T) {
	text := "Acme Corp\nWe build widgets for everyone"

	assert.Equal(t, "Acme Corp", ExtractJobTitle(text))
}

func TestExtractJobTitleUnknown(t *testing.T) {
	text := strings.Repeat("x", 120) + "\n" + strings.Repeat("y", 150)

	assert.Equal(t, UnknownPosition, ExtractJobTitle(text))
}

func TestExtractExperienceYears(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "plus表述",
			text: "3+ years of experience in Python",
			want: 3,
		},
		{
			name: "多个命中取最小",
			text: "5+ years of experience required. Minimum 3 years in backend.",
			want: 3,
		},
		{
			name: "区间取下界",
			text: "We want someone with 2-4 years in infrastructure work",
			want: 2,
		},
		{
			name: "无命中",
			text: "Experience with distributed systems is a plus",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractExperienceYears(tt.text))
		})
	}
}

func TestExtractEducationLevel(t *testing.T) {
	assert.Equal(t, types.EducationMaster, ExtractEducationLevel("Master's degree required"))
	assert.Equal(t, types.EducationPhD, ExtractEducationLevel("PhD or doctorate preferred"))
	assert.Equal(t, types.EducationBachelor, ExtractEducationLevel("Bachelor's degree in CS"))
	assert.Equal(t, types.EducationUnspecified, ExtractEducationLevel("Self taught welcome"))
}

func TestExtractSkillsFromJD(t *testing.T) {
	parser := NewJDParser(nil, nil)

	skills := parser.ExtractSkillsFromJD("We need Python and Docker. Familiar with react is a plus.")

	assert.ElementsMatch(t, []string{"Python", "Docker", "React"}, skills)
}

func TestExtractSkillsFromJDDeduplicated(t *testing.T) {
	parser := NewJDParser(nil, nil)

	skills := parser.ExtractSkillsFromJD("Python everywhere. Expertise in python is essential.")

	assert.Equal(t, []string{"Python"}, skills)
}

func TestClassifySkillRequirementsDefaultPreferred(t *testing.T) {
	parser := NewJDParser(nil, nil)

	reqs := parser.ClassifySkillRequirements("Our stack uses Python daily.", []string{"Python"})

	require.Len(t, reqs, 1)
	assert.False(t, reqs[0].IsRequired)
	assert.InDelta(t, 0.5, reqs[0].Confidence, 1e-9)
	assert.Empty(t, reqs[0].Context)
}

func TestClassifySkillRequirementsCueWord(t *testing.T) {
	parser := NewJDParser(nil, nil)

	reqs := parser.ClassifySkillRequirements("Python is essential for this role.", []string{"Python"})

	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].IsRequired)
	assert.InDelta(t, 0.8, reqs[0].Confidence, 1e-9)
	assert.Contains(t, strings.ToLower(reqs[0].Context), "essential")
}

func TestClassifySkillRequirementsRequirementsBlock(t *testing.T) {
	parser := NewJDParser(nil, nil)

	reqs := parser.ClassifySkillRequirements("Requirements: Python", []string{"Python"})

	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].IsRequired)
	assert.InDelta(t, 0.9, reqs[0].Confidence, 1e-9)
}

func TestClassifySkillRequirementsNiceToHave(t *testing.T) {
	parser := NewJDParser(nil, nil)

	reqs := parser.ClassifySkillRequirements("Nice to have: Docker experience", []string{"Docker"})

	require.Len(t, reqs, 1)
	assert.False(t, reqs[0].IsRequired)
	assert.InDelta(t, 0.9, reqs[0].Confidence, 1e-9)
}

func TestClassifySkillRequirementsBulletLine(t *testing.T) {
	parser := NewJDParser(nil, nil)

	reqs := parser.ClassifySkillRequirements("Responsibilities\n- Build services with Python", []string{"Python"})

	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].IsRequired)
	assert.InDelta(t, 0.7, reqs[0].Confidence, 1e-9)
}

func TestParseFullJobDescription(t *testing.T) {
	parser := NewJDParser(nil, nil)
	jd := `Senior Python Developer

Requirements:
- 5+ years of experience with server systems
- Python and SQL required
- Bachelor's degree in CS

Nice to have: Docker`

	parsed := parser.Parse(jd)

	require.NotNil(t, parsed)
	assert.Equal(t, "Senior Python Developer", parsed.Title)
	assert.Equal(t, 5, parsed.ExperienceYears)
	assert.Equal(t, types.EducationBachelor, parsed.EducationLevel)
	assert.ElementsMatch(t, []string{"Python", "SQL", "Docker"}, parsed.AllSkills)

	requiredNames := make([]string, 0, len(parsed.RequiredSkills))
	for _, req := range parsed.RequiredSkills {
		requiredNames = append(requiredNames, req.Skill)
	}
	assert.ElementsMatch(t, []string{"Python", "SQL"}, requiredNames)

	require.Len(t, parsed.PreferredSkills, 1)
	assert.Equal(t, "Docker", parsed.PreferredSkills[0].Skill)
}

func TestParseEmptyJobDescription(t *testing.T) {
	parser := NewJDParser(nil, nil)

	for _, jd := range []string{"", "   \n\t  "} {
		parsed := parser.Parse(jd)

		require.NotNil(t, parsed)
		assert.Equal(t, UnknownPosition, parsed.Title)
		assert.Empty(t, parsed.RequiredSkills)
		assert.Empty(t, parsed.PreferredSkills)
		assert.Empty(t, parsed.AllSkills)
		assert.Zero(t, parsed.ExperienceYears)
		assert.Equal(t, types.EducationUnspecified, parsed.EducationLevel)
	}
}
