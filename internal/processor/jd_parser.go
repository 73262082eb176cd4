package processor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ats-analyzer-go/internal/logger"
	"ats-analyzer-go/internal/types"
)

// 职位描述中暗示技能的动词短语
var jdSkillCuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)experience\s+(?:with|in)\s+([^,\n\.]+)`),
	regexp.MustCompile(`(?i)knowledge\s+of\s+([^,\n\.]+)`),
	regexp.MustCompile(`(?i)proficient\s+(?:with|in)\s+([^,\n\.]+)`),
	regexp.MustCompile(`(?i)skilled\s+(?:with|in)\s+([^,\n\.]+)`),
	regexp.MustCompile(`(?i)familiar\s+with\s+([^,\n\.]+)`),
	regexp.MustCompile(`(?i)expertise\s+(?:with|in)\s+([^,\n\.]+)`),
}

// 经验年限要求模式，取所有命中值的最小值
var experienceYearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\+?\s*years?\s+(?:of\s+)?experience`),
	regexp.MustCompile(`(?i)minimum\s+(\d+)\s+years?`),
	regexp.MustCompile(`(?i)at\s+least\s+(\d+)\s+years?`),
	regexp.MustCompile(`(?i)(\d+)\s*-\s*\d+\s+years?`),
	regexp.MustCompile(`(?i)(\d+)\s+to\s+\d+\s+years?`),
}

// 学历要求模式，按固定优先级首个命中生效
var educationLevelPatterns = []struct {
	pattern *regexp.Regexp
	level   types.EducationLevel
}{
	{regexp.MustCompile(`(?i)bachelor|b\.?s\.?|b\.?a\.?`), types.EducationBachelor},
	{regexp.MustCompile(`(?i)master|m\.?s\.?|m\.?a\.?`), types.EducationMaster},
	{regexp.MustCompile(`(?i)phd|ph\.?d\.?|doctorate`), types.EducationPhD},
	{regexp.MustCompile(`(?i)associate|a\.?s\.?`), types.EducationAssociate},
	{regexp.MustCompile(`(?i)high\s+school|diploma`), types.EducationHighSchool},
}

// 职位标题行的指示词
var titleIndicators = []string{
	"position", "role", "job", "opportunity", "opening",
	"engineer", "developer", "manager", "analyst", "specialist",
	"director", "lead", "senior", "junior", "intern",
}

// UnknownPosition 无法识别职位标题时的占位值
const UnknownPosition = "Unknown Position"

// JDParser 职位描述解析器
// 解析永不向调用方抛错：任何内部故障都降级为空的需求对象
type JDParser struct {
	taxonomy SkillsTaxonomy
	cues     CueLexicon
}

// NewJDParser 创建职位描述解析器
func NewJDParser(taxonomy SkillsTaxonomy, cues CueLexicon) *JDParser {
	if taxonomy == nil {
		taxonomy = fallbackTaxonomy
	}
	if cues == nil {
		cues = fallbackCueLexicon
	}
	return &JDParser{taxonomy: taxonomy, cues: cues}
}

// ExtractJobTitle 从职位描述开头识别职位标题
// 前五个非空短行中含职位指示词的优先；否则取第一条短行；再否则返回占位值
func ExtractJobTitle(text string) string {
	lines := strings.Split(text, "\n")

	checked := 0
	for _, line := range lines {
		if checked >= 5 {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		checked++

		if len(line) > 100 {
			continue
		}

		lineLower := strings.ToLower(line)
		for _, indicator := range titleIndicators {
			if strings.Contains(lineLower, indicator) {
				return line
			}
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && len(line) < 100 {
			return line
		}
	}

	return UnknownPosition
}

// ExtractSkillsFromJD 从职位描述中发现技能
// 先做技能表别名子串扫描，再从动词短语捕获候选并回查技能表确认
func (p *JDParser) ExtractSkillsFromJD(text string) []string {
	var foundSkills []string
	found := map[string]bool{}
	textLower := strings.ToLower(text)

	canonicalSkills := sortedTaxonomyKeys(p.taxonomy)

	for _, canonical := range canonicalSkills {
		for _, alias := range p.taxonomy[canonical] {
			if strings.Contains(textLower, alias) {
				foundSkills = append(foundSkills, canonical)
				found[canonical] = true
				break
			}
		}
	}

	for _, pattern := range jdSkillCuePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			skillText := strings.ToLower(strings.TrimSpace(match[1]))
			for _, canonical := range canonicalSkills {
				for _, alias := range p.taxonomy[canonical] {
					if strings.Contains(skillText, alias) {
						if !found[canonical] {
							foundSkills = append(foundSkills, canonical)
							found[canonical] = true
						}
						break
					}
				}
			}
		}
	}

	return foundSkills
}

// ClassifySkillRequirements 把技能分类为必备或加分
// 每处出现取前后各100字符的窗口找提示词(置信度0.8)，随后三条启发式规则可覆盖分类
func (p *JDParser) ClassifySkillRequirements(text string, skills []string) []types.JDRequirement {
	requirements := make([]types.JDRequirement, 0, len(skills))
	textLower := strings.ToLower(text)

	cueWords := make([]string, 0, len(p.cues))
	for cue := range p.cues {
		cueWords = append(cueWords, cue)
	}
	sort.Strings(cueWords)

	for _, skill := range skills {
		skillLower := strings.ToLower(skill)

		var positions []int
		start := 0
		for {
			pos := strings.Index(textLower[start:], skillLower)
			if pos == -1 {
				break
			}
			positions = append(positions, start+pos)
			start += pos + 1
		}

		bestClassification := "preferred"
		bestConfidence := 0.5
		bestContext := ""

		for _, pos := range positions {
			contextStart := max(0, pos-100)
			contextEnd := min(len(text), pos+len(skill)+100)
			context := text[contextStart:contextEnd]

			contextLower := strings.ToLower(context)
			for _, cue := range cueWords {
				if strings.Contains(contextLower, cue) {
					if 0.8 > bestConfidence {
						bestClassification = p.cues[cue]
						bestConfidence = 0.8
						bestContext = context
					}
					break
				}
			}
		}

		escaped := regexp.QuoteMeta(skillLower)

		// 出现在项目符号行中的技能通常是必备项
		if bulletRe := regexp.MustCompile(`[•\*\-]\s*[^,\n]*` + escaped); bulletRe.MatchString(textLower) {
			if bestConfidence < 0.7 {
				bestClassification = "required"
				bestConfidence = 0.7
			}
		}

		// Requirements标注块中的技能是必备项
		if reqRe := regexp.MustCompile(`(?i)requirements?[^:]*:[^,\n]*` + escaped); reqRe.MatchString(textLower) {
			bestClassification = "required"
			bestConfidence = 0.9
		}

		// nice to have标注块中的技能是加分项
		if niceRe := regexp.MustCompile(`(?i)nice\s+to\s+have[^,\n]*` + escaped); niceRe.MatchString(textLower) {
			bestClassification = "preferred"
			bestConfidence = 0.9
		}

		requirements = append(requirements, types.JDRequirement{
			Skill:      skill,
			IsRequired: bestClassification == "required",
			Context:    bestContext,
			Confidence: bestConfidence,
		})
	}

	return requirements
}

// ExtractExperienceYears 抽取经验年限要求
// 所有模式的所有命中值取最小，体现最保守的读法；没有命中时返回0
func ExtractExperienceYears(text string) int {
	var years []int
	for _, pattern := range experienceYearPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if value, err := strconv.Atoi(match[1]); err == nil {
				years = append(years, value)
			}
		}
	}

	if len(years) == 0 {
		return 0
	}

	minYears := years[0]
	for _, value := range years[1:] {
		if value < minYears {
			minYears = value
		}
	}
	return minYears
}

// ExtractEducationLevel 抽取学历要求，无法识别时返回unspecified
func ExtractEducationLevel(text string) types.EducationLevel {
	for _, entry := range educationLevelPatterns {
		if entry.pattern.MatchString(text) {
			return entry.level
		}
	}
	return types.EducationUnspecified
}

// Parse 解析职位描述
// 空文本或内部故障都返回空的需求对象而不是报错，保证不阻断简历评估
func (p *JDParser) Parse(jdText string) (parsed *types.JDRequirements) {
	logger.Debug().Int("text_length", len(jdText)).Msg("开始解析职位描述")

	empty := &types.JDRequirements{
		RequiredSkills:  []types.JDRequirement{},
		PreferredSkills: []types.JDRequirement{},
		EducationLevel:  types.EducationUnspecified,
		Title:           UnknownPosition,
		AllSkills:       []string{},
	}

	if strings.TrimSpace(jdText) == "" {
		return empty
	}

	defer func() {
		// 解析故障不能传导给调用方
		if r := recover(); r != nil {
			logger.Warn().Interface("panic", r).Msg("职位描述解析故障, 降级为空需求")
			parsed = empty
		}
	}()

	title := ExtractJobTitle(jdText)
	allSkills := p.ExtractSkillsFromJD(jdText)
	requirements := p.ClassifySkillRequirements(jdText, allSkills)

	required := []types.JDRequirement{}
	preferred := []types.JDRequirement{}
	for _, req := range requirements {
		if req.IsRequired {
			required = append(required, req)
		} else {
			preferred = append(preferred, req)
		}
	}

	result := &types.JDRequirements{
		RequiredSkills:  required,
		PreferredSkills: preferred,
		ExperienceYears: ExtractExperienceYears(jdText),
		EducationLevel:  ExtractEducationLevel(jdText),
		Title:           title,
		AllSkills:       allSkills,
	}

	logger.Debug().
		Str("title", title).
		Int("total_skills", len(allSkills)).
		Int("required_skills", len(required)).
		Int("preferred_skills", len(preferred)).
		Int("experience_years", result.ExperienceYears).
		Str("education_level", string(result.EducationLevel)).
		Msg("职位描述解析完成")

	return result
}
