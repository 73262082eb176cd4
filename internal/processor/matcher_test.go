package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ats-analyzer-go/internal/config"
	"ats-analyzer-go/internal/parser"
	"ats-analyzer-go/internal/types"
)

// mockVectorEmbedder 返回预置向量，未登记的文本回退到单位向量
type mockVectorEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (m *mockVectorEmbedder) EmbedStrings(_ context.Context, texts []string) ([][]float64, error) {
	m.calls++
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		vector, ok := m.vectors[text]
		if !ok {
			vector = []float64{1, 0}
		}
		out = append(out, vector)
	}
	return out, nil
}

func (m *mockVectorEmbedder) GetDimensions() int { return 2 }

var _ parser.TextEmbedder = (*mockVectorEmbedder)(nil)

func defaultThresholds() config.SimilarityThresholds {
	return config.SimilarityThresholds{
		RequiredHit:  0.75,
		PreferredHit: 0.75,
		WeakSupport:  0.65,
	}
}

func TestCalculateSimilarityExactMatch(t *testing.T) {
	matcher := NewSkillMatcher(defaultThresholds())

	assert.InDelta(t, 1.0, matcher.CalculateSimilarity(context.Background(), "Python", "  python  "), 1e-9)
}

func TestCalculateSimilaritySynonym(t *testing.T) {
	matcher := NewSkillMatcher(defaultThresholds())

	assert.InDelta(t, 0.98, matcher.CalculateSimilarity(context.Background(), "js", "JavaScript"), 1e-9)
	assert.InDelta(t, 0.98, matcher.CalculateSimilarity(context.Background(), "k8s", "Kubernetes"), 1e-9)
}

func TestCalculateSimilarityUnrelatedZero(t *testing.T) {
	matcher := NewSkillMatcher(defaultThresholds())

	assert.Zero(t, matcher.CalculateSimilarity(context.Background(), "python", "haskell"))
}

func TestCalculateSimilarityHighFuzzyRatio(t *testing.T) {
	matcher := NewSkillMatcher(defaultThresholds())

	// 编辑距离1，长度26，比率0.9615，直接采用不触发语义计算
	got := matcher.CalculateSimilarity(context.Background(), "microservices architecture", "microservice architecture")

	assert.InDelta(t, 1.0-1.0/26.0, got, 1e-9)
}

func TestCalculateSimilarityMiddleBandSemanticAgreement(t *testing.T) {
	embedder := &mockVectorEmbedder{vectors: map[string][]float64{
		"postgres":  {1, 0},
		"postgresq": {1, 0},
	}}
	matcher := NewSkillMatcher(defaultThresholds(), WithEmbedder(embedder))

	// 模糊0.889落在中间带，语义一致时上限封在0.9
	got := matcher.CalculateSimilarity(context.Background(), "postgres", "postgresq")

	assert.InDelta(t, 0.9, got, 1e-9)
	assert.Equal(t, 1, embedder.calls)
}

func TestCalculateSimilarityMiddleBandSemanticDisagreement(t *testing.T) {
	embedder := &mockVectorEmbedder{vectors: map[string][]float64{
		"postgres":  {1, 0},
		"postgresq": {0, 1},
	}}
	matcher := NewSkillMatcher(defaultThresholds(), WithEmbedder(embedder))

	assert.Zero(t, matcher.CalculateSimilarity(context.Background(), "postgres", "postgresq"))
}

func TestCalculateSimilarityWithoutEmbedderFallsBackToFuzzy(t *testing.T) {
	matcher := NewSkillMatcher(defaultThresholds())

	// 编辑距离1，长度12，比率0.9167：语义不可用时纯模糊放行
	got := matcher.CalculateSimilarity(context.Background(), "orchestrator", "orchestrater")
	assert.InDelta(t, 1.0-1.0/12.0, got, 1e-9)

	// 比率0.778不足0.9：语义不可用时拒绝
	assert.Zero(t, matcher.CalculateSimilarity(context.Background(), "terraform", "terrafrom"))
}

func TestCalculateSimilarityEmbedderFactoryFailureIsSticky(t *testing.T) {
	factoryCalls := 0
	matcher := NewSkillMatcher(defaultThresholds(), WithEmbedderFactory(func() (parser.TextEmbedder, error) {
		factoryCalls++
		return nil, errors.New("dial failed")
	}))

	got := matcher.CalculateSimilarity(context.Background(), "orchestrator", "orchestrater")
	assert.InDelta(t, 1.0-1.0/12.0, got, 1e-9)

	matcher.CalculateSimilarity(context.Background(), "orchestrator", "orchestrater")
	assert.Equal(t, 1, factoryCalls)
}

func TestFindBestMatchUsesCanonicalName(t *testing.T) {
	matcher := NewSkillMatcher(defaultThresholds())
	resumeSkills := []types.ExtractedSkill{
		{Name: "py", CanonicalName: "Python", Section: "skills", Context: "Proficient in py scripting"},
	}

	best, score := matcher.FindBestMatch(context.Background(), "Python", resumeSkills)

	require.NotNil(t, best)
	assert.Equal(t, "py", best.Name)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestFindBestMatchWordOverlapCapsScore(t *testing.T) {
	matcher := NewSkillMatcher(defaultThresholds())
	resumeSkills := []types.ExtractedSkill{
		{Name: "python", CanonicalName: "Python", Section: "skills"},
	}

	// 表面名完全一致时词重叠修正把分数封在0.9
	_, score := matcher.FindBestMatch(context.Background(), "python", resumeSkills)

	assert.InDelta(t, 0.9, score, 1e-9)
}

func TestFindBestMatchSingleWordDiscount(t *testing.T) {
	matcher := NewSkillMatcher(defaultThresholds())
	resumeSkills := []types.ExtractedSkill{
		{Name: "ml", CanonicalName: "ml", Section: "skills"},
	}

	// 同义词0.98乘以单词对多词的0.9折扣
	_, score := matcher.FindBestMatch(context.Background(), "machine learning", resumeSkills)

	assert.InDelta(t, 0.98*0.9, score, 1e-9)
}

func TestValidateEvidence(t *testing.T) {
	matched := &types.ExtractedSkill{
		Name:    "Python",
		Section: "experience",
		Context: "Built data pipelines in Python for analytics",
	}

	evidence := validateEvidence("Python", matched, 1.0, 0.5)
	require.NotNil(t, evidence)
	assert.Equal(t, "Python", evidence.Skill)
	assert.Equal(t, "experience", evidence.Section)
	assert.Equal(t, matched.Context, evidence.Quote)
	assert.InDelta(t, 1.0, evidence.Similarity, 1e-9)

	// 上下文不含技能词时不产出证据
	unsupported := &types.ExtractedSkill{
		Name:    "Python",
		Section: "experience",
		Context: "Led a team of five people",
	}
	assert.Nil(t, validateEvidence("Python", unsupported, 1.0, 0.5))
}

func TestMatchSkillsProducesEvidence(t *testing.T) {
	matcher := NewSkillMatcher(defaultThresholds())
	entities := &types.ExtractedEntities{
		Skills: []types.ExtractedSkill{
			{Name: "py", CanonicalName: "Python", Section: "experience", Context: "Built data pipelines in Python for analytics"},
		},
		Experience: []types.ExtractedExperience{
			{Description: "Shipped 3 services"},
		},
	}
	jd := &types.JDRequirements{
		RequiredSkills:  []types.JDRequirement{{Skill: "Python", IsRequired: true}},
		PreferredSkills: []types.JDRequirement{{Skill: "Docker"}},
	}

	results := matcher.MatchSkills(context.Background(), jd, entities)

	require.Len(t, results.RequiredMatches, 1)
	require.NotNil(t, results.RequiredMatches[0].Evidence)
	assert.Len(t, results.Evidence, 1)
	assert.Empty(t, results.Missing.Required)
	assert.Empty(t, results.WeaklySupported)
	assert.Equal(t, []string{"Docker"}, results.Missing.Preferred)
	assert.Empty(t, results.Suggestions)
}

func TestMatchSkillsBandsAndSuggestions(t *testing.T) {
	matcher := NewSkillMatcher(config.SimilarityThresholds{
		RequiredHit:  0.99,
		PreferredHit: 0.99,
		WeakSupport:  0.65,
	})
	entities := &types.ExtractedEntities{
		Skills: []types.ExtractedSkill{
			{Name: "py", CanonicalName: "py", Section: "skills", Context: "Skills: py, linux"},
		},
		Experience: []types.ExtractedExperience{
			{Description: "Led team initiatives across the org"},
		},
	}
	jd := &types.JDRequirements{
		RequiredSkills: []types.JDRequirement{
			{Skill: "python", IsRequired: true},
			{Skill: "javascript", IsRequired: true},
		},
		PreferredSkills: []types.JDRequirement{{Skill: "python"}},
	}

	results := matcher.MatchSkills(context.Background(), jd, entities)

	// 同义词0.98处于弱支撑带，完全不相似的javascript算缺失
	assert.Equal(t, []string{"javascript"}, results.Missing.Required)
	assert.Equal(t, []string{"python"}, results.WeaklySupported)
	assert.Equal(t, []string{"python"}, results.Missing.Preferred)
	assert.Empty(t, results.Evidence)

	require.Len(t, results.Suggestions, 3)
	assert.Equal(t, "Add 'javascript' to your skills section with specific examples", results.Suggestions[0].After)
	assert.Equal(t, "'python' appears weakly supported - add concrete examples", results.Suggestions[1].Rationale)
	assert.Equal(t, "Add specific metrics and numbers to quantify your impact", results.Suggestions[2].After)
	assert.Equal(t, "Led team initiatives across the org...", results.Suggestions[2].Before)
}

func TestGenerateSuggestionsLimits(t *testing.T) {
	entities := &types.ExtractedEntities{
		Experience: []types.ExtractedExperience{
			{Description: "Maintained internal tooling without incident"},
		},
	}

	suggestions := generateSuggestions(
		[]string{"go", "rust", "kafka", "redis"},
		[]string{"python", "sql", "docker"},
		entities,
	)

	// 缺失建议最多3条，弱支撑最多2条，无数字描述追加1条量化建议
	assert.Len(t, suggestions, 6)
}