package processor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"ats-analyzer-go/internal/config"
	"ats-analyzer-go/internal/logger"
	"ats-analyzer-go/internal/parser"
	"ats-analyzer-go/internal/types"
)

// 常见缩写与同义词表，两边归一化后相等视为近似精确命中
var skillSynonyms = map[string]string{
	"js":       "javascript",
	"ts":       "typescript",
	"py":       "python",
	"ai":       "artificial intelligence",
	"ml":       "machine learning",
	"dl":       "deep learning",
	"nlp":      "natural language processing",
	"cv":       "computer vision",
	"db":       "database",
	"sql":      "structured query language",
	"nosql":    "no sql",
	"api":      "application programming interface",
	"rest":     "representational state transfer",
	"ui":       "user interface",
	"ux":       "user experience",
	"aws":      "amazon web services",
	"gcp":      "google cloud platform",
	"k8s":      "kubernetes",
	"docker":   "containerization",
	"css3":     "css",
	"html5":    "html",
	"node":     "node.js",
	"nodejs":   "node.js",
	"reactjs":  "react",
	"react.js": "react",
	"vue.js":   "vue",
	"vuejs":    "vue",
}

// EmbedderFactory 延迟创建向量化客户端的工厂函数
type EmbedderFactory func() (parser.TextEmbedder, error)

// SkillMatcher 技能匹配器：精确/同义词/模糊/语义四级相似度阶梯
// 向量化客户端懒初始化且只初始化一次；初始化失败记录为类型化结果，匹配降级为纯模糊
type SkillMatcher struct {
	thresholds  config.SimilarityThresholds
	levMetric   *metrics.Levenshtein
	newEmbedder EmbedderFactory

	embedOnce sync.Once
	embedder  parser.TextEmbedder
	embedErr  error
}

// MatcherOption 定义匹配器配置选项
type MatcherOption func(*SkillMatcher)

// WithEmbedderFactory 配置向量化客户端工厂，首次需要语义相似度时调用
func WithEmbedderFactory(factory EmbedderFactory) MatcherOption {
	return func(m *SkillMatcher) {
		m.newEmbedder = factory
	}
}

// WithEmbedder 直接注入向量化客户端，测试时用于提供确定性向量
func WithEmbedder(embedder parser.TextEmbedder) MatcherOption {
	return func(m *SkillMatcher) {
		m.newEmbedder = func() (parser.TextEmbedder, error) {
			return embedder, nil
		}
	}
}

// NewSkillMatcher 创建技能匹配器
func NewSkillMatcher(thresholds config.SimilarityThresholds, options ...MatcherOption) *SkillMatcher {
	matcher := &SkillMatcher{
		thresholds: thresholds,
		levMetric:  metrics.NewLevenshtein(),
	}

	for _, option := range options {
		option(matcher)
	}

	return matcher
}

// getEmbedder 懒初始化向量化客户端，失败结果被固化供后续调用直接返回
func (m *SkillMatcher) getEmbedder() (parser.TextEmbedder, error) {
	m.embedOnce.Do(func() {
		if m.newEmbedder == nil {
			m.embedErr = fmt.Errorf("未配置向量化客户端")
			return
		}
		m.embedder, m.embedErr = m.newEmbedder()
		if m.embedErr != nil {
			logger.Warn().Err(m.embedErr).Msg("向量化客户端初始化失败, 匹配降级为纯模糊")
		}
	})
	return m.embedder, m.embedErr
}

// CalculateSimilarity 计算两个技能串的相似度
// 精确1.0；同义词归一化相等0.98；模糊比率低于0.7直接判0；不低于0.95直接采用；
// 中间带需要模糊与语义双重达标，任一不足判0；语义不可用时只接受不低于0.9的模糊比率
func (m *SkillMatcher) CalculateSimilarity(ctx context.Context, skill1, skill2 string) float64 {
	clean1 := strings.ToLower(strings.TrimSpace(skill1))
	clean2 := strings.ToLower(strings.TrimSpace(skill2))

	if clean1 == clean2 {
		return 1.0
	}

	norm1 := normalizeSynonym(clean1)
	norm2 := normalizeSynonym(clean2)
	if norm1 == norm2 {
		return 0.98
	}

	fuzzyRatio := strutil.Similarity(norm1, norm2, m.levMetric)

	if fuzzyRatio < 0.7 {
		return 0.0
	}
	if fuzzyRatio >= 0.95 {
		return fuzzyRatio
	}

	embedder, err := m.getEmbedder()
	if err != nil {
		if fuzzyRatio >= 0.9 {
			return fuzzyRatio
		}
		return 0.0
	}

	vectors, err := embedder.EmbedStrings(ctx, []string{norm1, norm2})
	if err != nil || len(vectors) < 2 {
		logger.Warn().Err(err).Msg("语义相似度计算失败, 退回纯模糊")
		if fuzzyRatio >= 0.9 {
			return fuzzyRatio
		}
		return 0.0
	}

	semanticSim := cosineSimilarity(vectors[0], vectors[1])

	// 中间带要求模糊与语义双重达标
	switch {
	case semanticSim >= 0.85 && fuzzyRatio >= 0.85:
		return math.Min(0.9, math.Max(fuzzyRatio, semanticSim))
	case semanticSim >= 0.8 && fuzzyRatio >= 0.9:
		return math.Min(0.85, semanticSim)
	default:
		return 0.0
	}
}

func normalizeSynonym(skill string) string {
	if normalized, ok := skillSynonyms[skill]; ok {
		return normalized
	}
	return skill
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindBestMatch 在简历技能中为一个职位技能找最佳匹配
// 表面名与规范名都参与比较；词级Jaccard重叠明显时小幅加分；单词技能匹配多词需求时轻微降权
func (m *SkillMatcher) FindBestMatch(ctx context.Context, jdSkill string, resumeSkills []types.ExtractedSkill) (*types.ExtractedSkill, float64) {
	var bestSkill *types.ExtractedSkill
	bestScore := 0.0

	jdWords := wordSet(jdSkill)

	for i := range resumeSkills {
		resumeSkill := &resumeSkills[i]

		score1 := m.CalculateSimilarity(ctx, jdSkill, resumeSkill.Name)
		score2 := m.CalculateSimilarity(ctx, jdSkill, resumeSkill.CanonicalName)
		directScore := math.Max(score1, score2)

		resumeWords := wordSet(resumeSkill.Name)
		wordOverlap := jaccardOverlap(jdWords, resumeWords)

		if wordOverlap >= 0.5 && directScore >= 0.6 {
			directScore = math.Min(0.9, directScore+wordOverlap*0.1)
		}

		// 防泛化：单词简历技能去匹配多词需求要打折
		if len(strings.Fields(resumeSkill.Name)) == 1 && len(strings.Fields(jdSkill)) > 1 {
			directScore *= 0.9
		}

		if directScore > bestScore {
			bestScore = directScore
			bestSkill = resumeSkill
		}
	}

	return bestSkill, bestScore
}

func wordSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = true
	}
	return set
}

func jaccardOverlap(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for word := range a {
		if b[word] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// validateEvidence 证据门：相似度达标之外，命中技能的上下文必须独立包含该技能词，
// 且上下文与技能名的词重叠率不低于本层级的下限，否则匹配保留但不产出证据
func validateEvidence(jdSkill string, matched *types.ExtractedSkill, similarity, overlapFloor float64) *types.Evidence {
	contextLower := strings.ToLower(matched.Context)
	skillLower := strings.ToLower(jdSkill)

	skillMentioned := strings.Contains(contextLower, skillLower)
	if !skillMentioned {
		for _, word := range strings.Fields(skillLower) {
			if len(word) > 2 && strings.Contains(contextLower, word) {
				skillMentioned = true
				break
			}
		}
	}

	contextWords := wordSet(contextLower)
	skillWords := strings.Fields(skillLower)
	overlapCount := 0
	for _, word := range skillWords {
		if contextWords[word] {
			overlapCount++
		}
	}
	wordOverlap := 0.0
	if len(skillWords) > 0 {
		wordOverlap = float64(overlapCount) / float64(len(skillWords))
	}

	if !skillMentioned || wordOverlap < overlapFloor {
		logger.Warn().
			Str("jd_skill", jdSkill).
			Str("resume_skill", matched.Name).
			Float64("similarity", similarity).
			Bool("skill_mentioned", skillMentioned).
			Float64("word_overlap", wordOverlap).
			Msg("上下文支撑不足, 匹配不产出证据")
		return nil
	}

	return &types.Evidence{
		Skill:      jdSkill,
		Section:    matched.Section,
		Quote:      matched.Context,
		Similarity: similarity,
	}
}

// MatchSkills 把职位需求与简历实体做匹配
func (m *SkillMatcher) MatchSkills(ctx context.Context, jdRequirements *types.JDRequirements, resumeEntities *types.ExtractedEntities) *types.MatchResults {
	logger.Debug().Msg("开始技能匹配")

	requiredMatches := make([]types.SkillMatch, 0, len(jdRequirements.RequiredSkills))
	preferredMatches := make([]types.SkillMatch, 0, len(jdRequirements.PreferredSkills))
	evidence := []types.Evidence{}

	for _, jdReq := range jdRequirements.RequiredSkills {
		bestSkill, similarity := m.FindBestMatch(ctx, jdReq.Skill, resumeEntities.Skills)

		var skillEvidence *types.Evidence
		if bestSkill != nil && similarity >= m.thresholds.RequiredHit {
			skillEvidence = validateEvidence(jdReq.Skill, bestSkill, similarity, 0.5)
			if skillEvidence != nil {
				evidence = append(evidence, *skillEvidence)
			}
		}

		requiredMatches = append(requiredMatches, types.SkillMatch{
			JDSkill:     jdReq.Skill,
			ResumeSkill: bestSkill,
			Similarity:  similarity,
			IsRequired:  true,
			Evidence:    skillEvidence,
		})
	}

	for _, jdReq := range jdRequirements.PreferredSkills {
		bestSkill, similarity := m.FindBestMatch(ctx, jdReq.Skill, resumeEntities.Skills)

		var skillEvidence *types.Evidence
		if bestSkill != nil && similarity >= m.thresholds.PreferredHit {
			skillEvidence = validateEvidence(jdReq.Skill, bestSkill, similarity, 0.4)
			if skillEvidence != nil {
				evidence = append(evidence, *skillEvidence)
			}
		}

		preferredMatches = append(preferredMatches, types.SkillMatch{
			JDSkill:     jdReq.Skill,
			ResumeSkill: bestSkill,
			Similarity:  similarity,
			IsRequired:  false,
			Evidence:    skillEvidence,
		})
	}

	// 必备技能低于弱支撑下限算缺失，弱支撑与命中阈值之间算弱支撑
	missingRequired := []string{}
	missingPreferred := []string{}
	weaklySupported := []string{}

	for _, match := range requiredMatches {
		switch {
		case match.Similarity < m.thresholds.WeakSupport:
			missingRequired = append(missingRequired, match.JDSkill)
		case match.Similarity < m.thresholds.RequiredHit:
			weaklySupported = append(weaklySupported, match.JDSkill)
		}
	}

	for _, match := range preferredMatches {
		if match.Similarity < m.thresholds.PreferredHit {
			missingPreferred = append(missingPreferred, match.JDSkill)
		}
	}

	suggestions := generateSuggestions(missingRequired, weaklySupported, resumeEntities)

	logger.Debug().
		Int("required_matches", len(requiredMatches)).
		Int("preferred_matches", len(preferredMatches)).
		Int("missing_required", len(missingRequired)).
		Int("missing_preferred", len(missingPreferred)).
		Int("evidence_count", len(evidence)).
		Msg("技能匹配完成")

	return &types.MatchResults{
		RequiredMatches:  requiredMatches,
		PreferredMatches: preferredMatches,
		Missing: types.MissingSkills{
			Required:  missingRequired,
			Preferred: missingPreferred,
		},
		WeaklySupported: weaklySupported,
		Suggestions:     suggestions,
		Evidence:        evidence,
	}
}

// generateSuggestions 基于缺失与弱支撑技能生成改进建议
// 最多3条缺失必备技能建议、2条弱支撑建议；首条工作经历无任何数字时追加量化建议
func generateSuggestions(missingRequired, weaklySupported []string, resumeEntities *types.ExtractedEntities) []types.Suggestion {
	suggestions := []types.Suggestion{}

	for _, skill := range missingRequired[:min(3, len(missingRequired))] {
		suggestions = append(suggestions, types.Suggestion{
			Before:    "[Skills section]",
			After:     fmt.Sprintf("Add '%s' to your skills section with specific examples", skill),
			Rationale: fmt.Sprintf("'%s' is a required skill that's missing from your resume", skill),
		})
	}

	for _, skill := range weaklySupported[:min(2, len(weaklySupported))] {
		suggestions = append(suggestions, types.Suggestion{
			Before:    "[Experience descriptions]",
			After:     fmt.Sprintf("Include specific examples of using %s with measurable results", skill),
			Rationale: fmt.Sprintf("'%s' appears weakly supported - add concrete examples", skill),
		})
	}

	if len(resumeEntities.Experience) > 0 {
		description := resumeEntities.Experience[0].Description
		if !strings.ContainsAny(description, "0123456789") {
			suggestions = append(suggestions, types.Suggestion{
				Before:    truncateDescription(description, 50) + "...",
				After:     "Add specific metrics and numbers to quantify your impact",
				Rationale: "ATS systems favor quantified achievements with concrete numbers",
			})
		}
	}

	return suggestions
}

func truncateDescription(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
