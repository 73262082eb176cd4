package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ats-analyzer-go/internal/types"
)

// fixedClock 冻结时钟，使"present"折算结果可复现
func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.June, 15, 0, 0, 0, 0, time.UTC)
	}
}

func TestExtractSkillsExactAlias(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy)

	skills := extractor.ExtractSkillsFromText("Proficient in python and docker with production experience", "skills")

	byCanonical := map[string]types.ExtractedSkill{}
	for _, skill := range skills {
		byCanonical[skill.CanonicalName] = skill
	}

	require.Contains(t, byCanonical, "Python")
	assert.Equal(t, 1.0, byCanonical["Python"].Confidence)
	assert.Equal(t, "python", byCanonical["Python"].Name)
	assert.Contains(t, byCanonical["Python"].Context, "python")

	require.Contains(t, byCanonical, "Docker")
	assert.Equal(t, "skills", byCanonical["Docker"].Section)
}

func TestExtractSkillsNoAliases(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy)

	skills := extractor.ExtractSkillsFromText("gardening and woodworking enthusiast", "summary")
	assert.Empty(t, skills)
}

func TestExtractSkillsDeduplication(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy)

	sections := types.SectionMap{
		types.SectionSummary: "Wrote tooling in python for data jobs",
		types.SectionSkills:  "Python, SQL",
	}

	entities, err := extractor.ExtractEntities(sections)
	require.NoError(t, err)

	pythonCount := 0
	for _, skill := range entities.Skills {
		if skill.CanonicalName == "Python" {
			pythonCount++
			assert.Equal(t, 1.0, skill.Confidence)
		}
	}
	assert.Equal(t, 1, pythonCount, "同一规范技能只保留一条")
}

func TestExtractExperienceEntry(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy)

	experiences := extractor.ExtractExperienceFromSection(
		"Senior Software Engineer at TechCorp (2020-2023)", "experience")

	require.Len(t, experiences, 1)
	exp := experiences[0]
	assert.Contains(t, exp.Title, "Senior Software Engineer")
	assert.Contains(t, exp.Company, "TechCorp")
	assert.Contains(t, exp.StartDate, "2020")
	assert.Contains(t, exp.EndDate, "2023")
	require.NotNil(t, exp.DurationMonths)
	assert.Equal(t, 36, *exp.DurationMonths)
}

func TestExtractExperiencePresentEndDate(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy, WithNowFunc(fixedClock(2026)))

	experiences := extractor.ExtractExperienceFromSection(
		"Staff Engineer at CloudWorks\nJanuary 2022 - present\nOwns the data platform", "experience")

	require.Len(t, experiences, 1)
	require.NotNil(t, experiences[0].DurationMonths)
	assert.Equal(t, 48, *experiences[0].DurationMonths)
}

func TestExtractExperienceShortEntriesSkipped(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy)

	experiences := extractor.ExtractExperienceFromSection("Engineer at X", "experience")
	assert.Empty(t, experiences)
}

func TestExtractExperienceUnparseableDuration(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy)

	experiences := extractor.ExtractExperienceFromSection(
		"Backend Developer, Globex Industries\nResponsible for the billing stack rewrite", "experience")

	require.Len(t, experiences, 1)
	assert.Nil(t, experiences[0].DurationMonths, "无法解析的时长保持为空而非0")
}

func TestExtractEducationEntry(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy)

	educations := extractor.ExtractEducationFromSection(
		"Tech University\nBachelor of Science in Computer Science\n2014 - 2018\nGPA: 3.8", "education")

	require.Len(t, educations, 1)
	edu := educations[0]
	assert.Contains(t, edu.Degree, "Bachelor of Science")
	assert.Contains(t, edu.Institution, "Tech University")
	assert.Equal(t, "2018", edu.GraduationDate)
	assert.Equal(t, "3.8", edu.GPA)
}

func TestExtractEducationNoDegreeOrInstitutionDiscarded(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy)

	educations := extractor.ExtractEducationFromSection(
		"Attended various online courses about cooking", "education")
	assert.Empty(t, educations)
}

func TestExtractEntitiesAggregation(t *testing.T) {
	extractor := NewEntityExtractor(fallbackTaxonomy, WithNowFunc(fixedClock(2026)))

	sections := types.SectionMap{
		types.SectionSummary: "",
		types.SectionExperience: "Senior Engineer at Alpha (2018-2021)\nBuilt python services\n\n" +
			"Principal Engineer at Beta\nMarch 2021 - present\nLeads the platform group",
		types.SectionEducation: "Master of Science, Elite University\n2016 - 2018",
		types.SectionSkills:    "Python, SQL, Docker",
	}

	entities, err := extractor.ExtractEntities(sections)
	require.NoError(t, err)

	// 36 + 60 个月
	assert.Equal(t, 96, entities.TotalExperienceMonths)
	// "present"按哨兵值排最前
	assert.Contains(t, entities.MostRecentTitle, "Principal Engineer")
	require.Len(t, entities.Education, 1)
	assert.NotEmpty(t, entities.Skills)
}
