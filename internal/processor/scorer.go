package processor

import (
	"strconv"
	"strings"
	"time"

	"ats-analyzer-go/internal/config"
	"ats-analyzer-go/internal/logger"
	"ats-analyzer-go/internal/types"
)

// 判定资深岗位的关键词
var seniorRoleTerms = []string{
	"senior", "lead", "principal", "staff", "founding", "architect",
	"5+ years", "5 years", "experienced", "expert",
}

// 教育程度从低到高的序数，比较学历时按此折算
var educationLevelRanks = []struct {
	name types.EducationLevel
	rank int
}{
	{types.EducationHighSchool, 1},
	{types.EducationAssociate, 2},
	{types.EducationBachelor, 3},
	{types.EducationMaster, 4},
	{types.EducationPhD, 5},
}

// 判定专业相关性的关键词
var relevantFieldTerms = []string{"computer", "engineering", "science", "technology", "business"}

// ScoringPolicy 评分策略：把所有打分常量集中为一个可整体替换的命名结构
type ScoringPolicy struct {
	// 覆盖度
	NoRequirementsScore     int     // 需求与技能全空时的保底分
	OpenRequirementsScore   int     // 无必备/加分需求但提到技能时的满分
	MissingRequiredPenalty  float64 // 每缺一项必备技能扣的分
	MissingPreferredPenalty float64 // 每缺一项加分技能扣的分
	RequiredTierWeight      float64 // 两级都存在时必备项的权重
	PreferredTierWeight     float64 // 两级都存在时加分项的权重
	PreferredOnlyScale      float64 // 只有加分项时的整体折扣
	LowHitRateFloor         float64 // 命中率低于此值触发重罚
	LowHitRateScale         float64
	MidHitRateFloor         float64 // 命中率低于此值触发轻罚
	MidHitRateScale         float64

	// 经验
	ExperienceBase        int
	SeniorRoleMinYears    float64 // 资深岗位的最低年限地板
	StandardRoleMinYears  float64
	CurrentRoleBonus      int // "present"在职加分
	RecentExperienceBonus int // 近期经历加分
	SomewhatRecentBonus   int
	StaleExperiencePen    int // 过旧经历扣分
	NoRecentExperiencePen int
	EmploymentGapPen      int
	SkillAlignmentBonus   int // 每个落在高权重区块的命中技能加分
	SkillAlignmentCap     int

	// 教育
	EducationDefaultScore int // 职位未指定学历的默认分
	EducationNoRecord     int
	EducationBase         int
	EducationExceeds      int
	EducationMeets        int
}

// DefaultScoringPolicy 返回默认评分策略
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		NoRequirementsScore:     80,
		OpenRequirementsScore:   100,
		MissingRequiredPenalty:  15,
		MissingPreferredPenalty: 5,
		RequiredTierWeight:      0.8,
		PreferredTierWeight:     0.2,
		PreferredOnlyScale:      0.8,
		LowHitRateFloor:         0.3,
		LowHitRateScale:         0.7,
		MidHitRateFloor:         0.5,
		MidHitRateScale:         0.85,

		ExperienceBase:        10,
		SeniorRoleMinYears:    5,
		StandardRoleMinYears:  2,
		CurrentRoleBonus:      15,
		RecentExperienceBonus: 8,
		SomewhatRecentBonus:   3,
		StaleExperiencePen:    2,
		NoRecentExperiencePen: 15,
		EmploymentGapPen:      10,
		SkillAlignmentBonus:   2,
		SkillAlignmentCap:     20,

		EducationDefaultScore: 70,
		EducationNoRecord:     10,
		EducationBase:         30,
		EducationExceeds:      85,
		EducationMeets:        75,
	}
}

// Scorer 多因子评分器
// 注入时钟保证近期性判断可复现；所有常量收敛到ScoringPolicy
type Scorer struct {
	cfg     config.ScoringConfig
	policy  ScoringPolicy
	nowFunc func() time.Time
}

// ScorerOption 定义评分器配置选项
type ScorerOption func(*Scorer)

// WithScoringPolicy 替换整套评分策略
func WithScoringPolicy(policy ScoringPolicy) ScorerOption {
	return func(s *Scorer) {
		s.policy = policy
	}
}

// WithScorerNowFunc 注入时钟
func WithScorerNowFunc(nowFunc func() time.Time) ScorerOption {
	return func(s *Scorer) {
		if nowFunc != nil {
			s.nowFunc = nowFunc
		}
	}
}

// NewScorer 创建评分器
func NewScorer(cfg config.ScoringConfig, options ...ScorerOption) *Scorer {
	scorer := &Scorer{
		cfg:     cfg,
		policy:  DefaultScoringPolicy(),
		nowFunc: time.Now,
	}

	for _, option := range options {
		option(scorer)
	}

	return scorer
}

// CalculateCoverageScore 计算技能覆盖度
// 命中的定义是带有效证据的匹配；缺失必备技能按条重罚，整体命中率过低再乘惩罚系数
func (s *Scorer) CalculateCoverageScore(matches *types.MatchResults, jd *types.JDRequirements) int {
	totalRequired := len(jd.RequiredSkills)
	totalPreferred := len(jd.PreferredSkills)

	if totalRequired == 0 && totalPreferred == 0 {
		// 职位没提任何技能时给保底分；提了技能但没分出必备/加分时视为完全覆盖
		if len(jd.AllSkills) == 0 {
			return s.policy.NoRequirementsScore
		}
		return s.policy.OpenRequirementsScore
	}

	requiredHits := 0
	for _, match := range matches.RequiredMatches {
		if match.Evidence != nil {
			requiredHits++
		}
	}
	preferredHits := 0
	for _, match := range matches.PreferredMatches {
		if match.Evidence != nil {
			preferredHits++
		}
	}

	var requiredScore float64 = 90
	if totalRequired > 0 {
		requiredScore = float64(requiredHits) / float64(totalRequired) * 100
		if missing := totalRequired - requiredHits; missing > 0 {
			requiredScore = maxFloat(0, requiredScore-float64(missing)*s.policy.MissingRequiredPenalty)
		}
	}

	var preferredScore float64 = 80
	if totalPreferred > 0 {
		preferredScore = float64(preferredHits) / float64(totalPreferred) * 100
		if missing := totalPreferred - preferredHits; missing > 0 {
			preferredScore = maxFloat(0, preferredScore-float64(missing)*s.policy.MissingPreferredPenalty)
		}
	}

	var coverageScore float64
	switch {
	case totalRequired > 0 && totalPreferred > 0:
		coverageScore = requiredScore*s.policy.RequiredTierWeight + preferredScore*s.policy.PreferredTierWeight
	case totalRequired > 0:
		coverageScore = requiredScore
	default:
		coverageScore = preferredScore * s.policy.PreferredOnlyScale
	}

	hitRate := float64(requiredHits+preferredHits) / float64(max(totalRequired+totalPreferred, 1))
	if hitRate < s.policy.LowHitRateFloor {
		coverageScore *= s.policy.LowHitRateScale
	} else if hitRate < s.policy.MidHitRateFloor {
		coverageScore *= s.policy.MidHitRateScale
	}

	return clampScore(int(coverageScore))
}

// CalculateExperienceScore 计算经验契合度
// 基准分很低，经验必须用年限、近期性与技能落点逐项证明
func (s *Scorer) CalculateExperienceScore(entities *types.ExtractedEntities, jd *types.JDRequirements, matches *types.MatchResults) int {
	score := s.policy.ExperienceBase

	actualYears := float64(entities.TotalExperienceMonths) / 12

	minYearsForRole := s.policy.StandardRoleMinYears
	if s.isSeniorRole(jd) {
		minYearsForRole = s.policy.SeniorRoleMinYears
	}

	if jd.ExperienceYears > 0 {
		requiredYears := maxFloat(float64(jd.ExperienceYears), minYearsForRole)

		if actualYears >= requiredYears {
			switch {
			case actualYears >= requiredYears*1.5:
				score += 35
			case actualYears >= requiredYears*1.2:
				score += 25
			default:
				score += 15
			}
		} else {
			ratio := actualYears / requiredYears
			switch {
			case ratio >= 0.8:
				score += int(10 * ratio)
			case ratio >= 0.6:
				score += int(5 * ratio)
			case ratio >= 0.4:
				score += int(3 * ratio)
			default:
				score += int(1 * ratio)
			}
		}
	} else {
		if actualYears >= minYearsForRole {
			score += 20
		} else {
			score += int(15 * actualYears / minYearsForRole)
		}
	}

	// 近期性：在职经历重奖，久远经历扣分
	currentYear := s.nowFunc().Year()
	recencyWindow := s.cfg.RecencyYearsBoost
	hasRecentExperience := false

	for _, exp := range entities.Experience {
		if exp.EndDate == "" {
			continue
		}
		endLower := strings.ToLower(exp.EndDate)
		if strings.Contains(endLower, "present") || strings.Contains(endLower, "current") {
			score += s.policy.CurrentRoleBonus
			hasRecentExperience = true
			continue
		}
		yearStr := yearPattern.FindString(exp.EndDate)
		if yearStr == "" {
			continue
		}
		endYear := atoiOrZero(yearStr)
		yearsAgo := currentYear - endYear
		switch {
		case yearsAgo <= recencyWindow:
			score += s.policy.RecentExperienceBonus
			hasRecentExperience = true
		case yearsAgo <= 5:
			score += s.policy.SomewhatRecentBonus
		default:
			score -= s.policy.StaleExperiencePen
		}
	}

	if !hasRecentExperience {
		score -= s.policy.NoRecentExperiencePen
	}

	// 粗粒度断档检测：总月数远低于按连续工作假设的期望值
	if len(entities.Experience) > 1 {
		expectedMonths := (currentYear - 2020) * 12
		if float64(entities.TotalExperienceMonths) < float64(expectedMonths)*0.6 {
			score -= s.policy.EmploymentGapPen
		}
	}

	// 技能落点：命中技能出现在经验/项目等高权重区块时加分
	alignmentBonus := 0
	allMatches := append(append([]types.SkillMatch{}, matches.RequiredMatches...), matches.PreferredMatches...)
	for _, match := range allMatches {
		if match.ResumeSkill == nil || match.Similarity < 0.75 {
			continue
		}
		sectionWeight, ok := s.cfg.SectionWeights[match.ResumeSkill.Section]
		if !ok {
			sectionWeight = 0.4
		}
		if sectionWeight >= 0.8 {
			alignmentBonus += s.policy.SkillAlignmentBonus
		}
	}
	score += min(s.policy.SkillAlignmentCap, alignmentBonus)

	return clampScore(score)
}

// isSeniorRole 从职位需求的文本面推断是否为资深岗位
func (s *Scorer) isSeniorRole(jd *types.JDRequirements) bool {
	var parts []string
	parts = append(parts, jd.Title)
	for _, req := range jd.RequiredSkills {
		parts = append(parts, req.Skill, req.Context)
	}
	for _, req := range jd.PreferredSkills {
		parts = append(parts, req.Skill, req.Context)
	}
	haystack := strings.ToLower(strings.Join(parts, " "))

	for _, term := range seniorRoleTerms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// CalculateEducationScore 计算学历契合度
func (s *Scorer) CalculateEducationScore(entities *types.ExtractedEntities, jd *types.JDRequirements) int {
	if jd.EducationLevel == types.EducationUnspecified {
		return s.policy.EducationDefaultScore
	}

	if len(entities.Education) == 0 {
		return s.policy.EducationNoRecord
	}

	score := s.policy.EducationBase

	requiredRank := educationRank(jd.EducationLevel)

	highestRank := 0
	mostRecentGradYear := 0
	currentYear := s.nowFunc().Year()

	for _, edu := range entities.Education {
		eduText := strings.ToLower(edu.Degree)

		if edu.GraduationDate != "" {
			if yearStr := yearPattern.FindString(edu.GraduationDate); yearStr != "" {
				gradYear := atoiOrZero(yearStr)
				if gradYear > mostRecentGradYear {
					mostRecentGradYear = gradYear
				}
			}
		}

		for _, level := range educationLevelRanks {
			spaced := strings.ReplaceAll(string(level.name), "_", " ")
			if strings.Contains(eduText, spaced) || strings.Contains(eduText, string(level.name)) {
				if level.rank > highestRank {
					highestRank = level.rank
				}
				break
			}
		}
	}

	if highestRank >= requiredRank {
		if highestRank > requiredRank {
			score = s.policy.EducationExceeds
		} else {
			score = s.policy.EducationMeets
		}
	} else if highestRank > 0 {
		ratio := float64(highestRank) / float64(max(requiredRank, 1))
		if ratio >= 0.8 {
			score = int(30 + 35*ratio)
		} else {
			score = int(30 + 20*ratio)
		}
	}

	// 学历的时效性：太新加分，太旧扣分
	if mostRecentGradYear > 0 {
		yearsSinceGrad := currentYear - mostRecentGradYear
		switch {
		case yearsSinceGrad <= 5:
			score += 10
		case yearsSinceGrad <= 10:
			score += 5
		case yearsSinceGrad > 20:
			score -= 5
		}
	}

	for _, edu := range entities.Education {
		if edu.Field == "" {
			continue
		}
		fieldLower := strings.ToLower(edu.Field)
		matched := false
		for _, term := range relevantFieldTerms {
			if strings.Contains(fieldLower, term) {
				score += 5
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}

	return clampScore(score)
}

func educationRank(level types.EducationLevel) int {
	for _, entry := range educationLevelRanks {
		if entry.name == level {
			return entry.rank
		}
	}
	return 0
}

// CalculateOverallScore 按配置权重加权合成总分
func (s *Scorer) CalculateOverallScore(coverage, experience, education int) int {
	overall := float64(coverage)*s.cfg.Weights.Coverage +
		float64(experience)*s.cfg.Weights.Experience +
		float64(education)*s.cfg.Weights.Education
	return clampScore(int(overall))
}

// CalculateScores 计算全部四项分数
// 加权合成之后还有一串非线性现实校验：弱项乘惩罚系数，总分异常偏高时硬性封顶
func (s *Scorer) CalculateScores(matches *types.MatchResults, jd *types.JDRequirements, entities *types.ExtractedEntities) types.Score {
	coverageScore := s.CalculateCoverageScore(matches, jd)
	experienceScore := s.CalculateExperienceScore(entities, jd, matches)
	educationScore := s.CalculateEducationScore(entities, jd)

	overallScore := s.CalculateOverallScore(coverageScore, experienceScore, educationScore)

	var penalties []string

	if coverageScore < 60 {
		overallScore = int(float64(overallScore) * 0.7)
		penalties = append(penalties, "技能覆盖不足")
	} else if coverageScore < 75 {
		overallScore = int(float64(overallScore) * 0.85)
		penalties = append(penalties, "技能覆盖平庸")
	}

	if experienceScore < 30 {
		overallScore = int(float64(overallScore) * 0.6)
		penalties = append(penalties, "经验严重不足")
	} else if experienceScore < 50 {
		overallScore = int(float64(overallScore) * 0.75)
		penalties = append(penalties, "经验不足")
	}

	if educationScore < 40 {
		overallScore = int(float64(overallScore) * 0.9)
		penalties = append(penalties, "学历契合度差")
	}

	if overallScore > 80 && (experienceScore < 60 || coverageScore < 70) {
		overallScore = min(overallScore, 65)
		penalties = append(penalties, "基本面偏弱, 封顶")
	}

	if overallScore > 70 && (experienceScore < 40 || coverageScore < 60) {
		overallScore = min(overallScore, 50)
		penalties = append(penalties, "重大短板, 封顶")
	}

	if len(penalties) > 0 {
		logger.Debug().Strs("penalties", penalties).Int("final_score", overallScore).Msg("应用评分惩罚")
	}

	logger.Debug().
		Int("overall", overallScore).
		Int("coverage", coverageScore).
		Int("experience", experienceScore).
		Int("education", educationScore).
		Msg("评分计算完成")

	return types.Score{
		Overall:    overallScore,
		Coverage:   coverageScore,
		Experience: experienceScore,
		Education:  educationScore,
	}
}

func clampScore(score int) int {
	return min(100, max(0, score))
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func atoiOrZero(s string) int {
	value, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return value
}
