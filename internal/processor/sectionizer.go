package processor

import (
	"regexp"
	"strings"

	"ats-analyzer-go/internal/logger"
	"ats-analyzer-go/internal/types"
)

// sectionPatternGroup 段落标题模式组，按优先级排列
type sectionPatternGroup struct {
	name     string
	patterns []*regexp.Regexp
}

// 各区块的标题别名，匹配时按组的声明顺序与组内顺序逐一尝试
var sectionPatternGroups = []sectionPatternGroup{
	{types.SectionSummary, compilePatterns(
		`professional\s+summary`,
		`career\s+summary`,
		`executive\s+summary`,
		`profile`,
		`summary`,
		`overview`,
		`objective`,
		`career\s+objective`,
	)},
	{types.SectionExperience, compilePatterns(
		`work\s+experience`,
		`professional\s+experience`,
		`employment\s+history`,
		`career\s+history`,
		`experience`,
		`employment`,
		`work\s+history`,
	)},
	{types.SectionEducation, compilePatterns(
		`education`,
		`educational\s+background`,
		`academic\s+background`,
		`qualifications`,
		`degrees?`,
	)},
	{types.SectionSkills, compilePatterns(
		`technical\s+skills`,
		`core\s+competencies`,
		`key\s+skills`,
		`skills`,
		`competencies`,
		`expertise`,
		`technologies`,
		`technical\s+expertise`,
	)},
	{types.SectionProjects, compilePatterns(
		`projects?`,
		`key\s+projects?`,
		`notable\s+projects?`,
		`selected\s+projects?`,
		`personal\s+projects?`,
		`portfolio`,
	)},
	{types.SectionCertifications, compilePatterns(
		`certifications?`,
		`certificates?`,
		`professional\s+certifications?`,
		`licenses?`,
	)},
	{types.SectionAwards, compilePatterns(
		`awards?`,
		`honors?`,
		`achievements?`,
		`recognitions?`,
		`accomplishments?`,
	)},
	{types.SectionLanguages, compilePatterns(
		`languages?`,
		`language\s+skills`,
		`linguistic\s+skills`,
	)},
	{types.SectionPublications, compilePatterns(
		`publications?`,
		`papers?`,
		`research`,
		`articles?`,
	)},
	{types.SectionReferences, compilePatterns(
		`references?`,
		`recommendations?`,
	)},
}

func compilePatterns(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

var (
	decorativeChars = regexp.MustCompile(`[=\-_*•]+`)
	decorativeLine  = regexp.MustCompile(`^[=\-_*•\s]+$`)
)

// sectionBoundary 区块边界：区块名与字符偏移，按出现顺序排列
type sectionBoundary struct {
	name    string
	charPos int
}

// findSectionBoundaries 扫描文本定位区块标题行
// 标题行的判定：非空、不超过50个字符、去掉装饰字符后能命中已知别名
func findSectionBoundaries(text string) []sectionBoundary {
	var boundaries []sectionBoundary
	lines := strings.Split(text, "\n")

	charPos := 0
	for _, line := range lines {
		lineStripped := strings.TrimSpace(line)
		lineLen := len(line) + 1 // 含换行符

		if lineStripped == "" || len(lineStripped) > 50 {
			charPos += lineLen
			continue
		}

		cleanLine := strings.TrimSpace(decorativeChars.ReplaceAllString(lineStripped, ""))
		if cleanLine == "" {
			charPos += lineLen
			continue
		}

	matchGroups:
		for _, group := range sectionPatternGroups {
			for _, pattern := range group.patterns {
				if pattern.MatchString(cleanLine) {
					boundaries = append(boundaries, sectionBoundary{
						name:    group.name,
						charPos: charPos,
					})
					break matchGroups
				}
			}
		}

		charPos += lineLen
	}

	return boundaries
}

// extractSectionContent 截取区块正文：去掉标题行本身与纯装饰行
func extractSectionContent(text string, startPos, endPos int) string {
	if startPos > len(text) {
		return ""
	}
	if endPos > len(text) {
		endPos = len(text)
	}
	content := strings.TrimSpace(text[startPos:endPos])

	lines := strings.Split(content, "\n")
	if len(lines) > 0 {
		lines = lines[1:] // 跳过标题行
	}

	var cleanedLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !decorativeLine.MatchString(line) {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}

// SectionizeText 把简历纯文本切分为逻辑区块
// 未找到任何标题时整段文本归入summary；核心四区块(summary/experience/education/skills)总是存在
func SectionizeText(text string) types.SectionMap {
	logger.Debug().Int("text_length", len(text)).Msg("开始文本分区")

	if strings.TrimSpace(text) == "" {
		return types.SectionMap{}
	}

	boundaries := findSectionBoundaries(text)

	if len(boundaries) == 0 {
		logger.Debug().Msg("未找到区块标题, 整段文本归入summary")
		return types.SectionMap{types.SectionSummary: strings.TrimSpace(text)}
	}

	sections := types.SectionMap{}

	for i, boundary := range boundaries {
		endPos := len(text)
		if i+1 < len(boundaries) {
			endPos = boundaries[i+1].charPos
		}

		content := extractSectionContent(text, boundary.charPos, endPos)
		if content == "" {
			continue
		}

		// 同名区块多次出现时拼接
		if existing, ok := sections[boundary.name]; ok {
			sections[boundary.name] = existing + "\n\n" + content
		} else {
			sections[boundary.name] = content
		}
	}

	// 首个区块之前若有足够长的前导内容，作为summary
	if firstPos := boundaries[0].charPos; firstPos > 0 {
		preamble := strings.TrimSpace(text[:min(firstPos, len(text))])
		if len(preamble) > 50 {
			sections[types.SectionSummary] = preamble
		}
	}

	for _, section := range types.CoreSections {
		if _, ok := sections[section]; !ok {
			sections[section] = ""
		}
	}

	logger.Debug().Int("total_sections", len(sections)).Msg("文本分区完成")

	return sections
}
