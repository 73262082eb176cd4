package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ats-analyzer-go/internal/config"
)

const analyzerTestResume = `Jane Smith - Data engineer with a track record of shipping pipelines

EXPERIENCE
Senior Data Engineer at Streamline (2021-2024)
Built python pipelines feeding SQL warehouses

EDUCATION
Bachelor of Science in Data Engineering
2013 - 2017

SKILLS
Python, SQL, Docker`

const analyzerTestJD = `Data Engineer

Requirements:
- 3+ years of experience with Python and SQL

Nice to have: Docker`

// deterministicAnalyzer 固定时钟且不配置向量化客户端，保证重复运行结果一致
func deterministicAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	cfg := config.DefaultConfig()
	fixedNow := func() time.Time {
		return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	}
	return NewAnalyzer(cfg,
		WithEntityExtractor(NewEntityExtractor(nil, WithNowFunc(fixedNow))),
		WithJDParser(NewJDParser(nil, nil)),
		WithMatcher(NewSkillMatcher(cfg.Scoring.SimilarityThresholds)),
		WithScorer(NewScorer(cfg.Scoring, WithScorerNowFunc(fixedNow))),
	)
}

func TestAnalyzeTextEndToEnd(t *testing.T) {
	analyzer := deterministicAnalyzer(t)

	result, err := analyzer.AnalyzeText(context.Background(), analyzerTestResume, analyzerTestJD)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.AnalysisID)
	assert.Equal(t, "Data Engineer", result.Requirements.Title)
	assert.Equal(t, 3, result.Requirements.ExperienceYears)
	assert.NotEmpty(t, result.Entities.Skills)
	assert.NotEmpty(t, result.Entities.Experience)
	assert.NotEmpty(t, result.Entities.Education)

	for _, score := range []int{result.Score.Overall, result.Score.Coverage, result.Score.Experience, result.Score.Education} {
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}

	require.NotNil(t, result.Compliance)
	assert.NotEmpty(t, result.Compliance.Warnings)
}

// 同样的输入重复分析，除分析ID外输出逐字节一致
func TestAnalyzeTextDeterministic(t *testing.T) {
	analyzer := deterministicAnalyzer(t)

	first, err := analyzer.AnalyzeText(context.Background(), analyzerTestResume, analyzerTestJD)
	require.NoError(t, err)
	second, err := analyzer.AnalyzeText(context.Background(), analyzerTestResume, analyzerTestJD)
	require.NoError(t, err)

	assert.NotEqual(t, first.AnalysisID, second.AnalysisID)

	first.AnalysisID = ""
	second.AnalysisID = ""

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)

	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestAnalyzeTextEmptyJD(t *testing.T) {
	analyzer := deterministicAnalyzer(t)

	result, err := analyzer.AnalyzeText(context.Background(), analyzerTestResume, "")
	require.NoError(t, err)

	assert.Equal(t, UnknownPosition, result.Requirements.Title)
	assert.Empty(t, result.Requirements.AllSkills)

	// 职位没提任何技能时覆盖度给保底分
	assert.Equal(t, 80, result.Score.Coverage)
}

func TestAnalyzeDocumentRejectsEmptyContent(t *testing.T) {
	analyzer := deterministicAnalyzer(t)

	result, err := analyzer.AnalyzeDocument(context.Background(), nil, "resume.pdf", "application/pdf", analyzerTestJD)

	require.Error(t, err)
	assert.Nil(t, result)
}