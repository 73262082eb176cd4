package processor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"ats-analyzer-go/internal/logger"
	"ats-analyzer-go/internal/types"
)

// 实体切分：按空行或项目符号分段
var entrySplitter = regexp.MustCompile(`\n\n+|•\s*`)

// 日期区间模式，按优先级排列，首个命中的模式生效
var dateRangePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{1,2}/\d{1,2}/\d{4})\s*[-–—]\s*(\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`(?i)(\d{1,2}/\d{4})\s*[-–—]\s*(\d{1,2}/\d{4})`),
	regexp.MustCompile(`(?i)(\w+\s+\d{4})\s*[-–—]\s*(\w+\s+\d{4})`),
	regexp.MustCompile(`(?i)(\d{4})\s*[-–—]\s*(\d{4})`),
	regexp.MustCompile(`(?i)(\w+\s+\d{4})\s*[-–—]\s*(present|current)`),
}

// 职位行模式，按优先级排列："Title at Company" / "Title, Company" / 裸职位
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^([^,\n]+?)\s*(?:at|@)\s*([^,\n]+)`),
	regexp.MustCompile(`(?i)^([^,\n]+?),\s*([^,\n]+)`),
	regexp.MustCompile(`(?i)^([A-Z][^,\n]+?)\s*$`),
}

var degreePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(bachelor|master|phd|doctorate|associate|b\.?s\.?|m\.?s\.?|b\.?a\.?|m\.?a\.?|ph\.?d\.?)`),
	regexp.MustCompile(`(?i)\b(degree|diploma|certificate)`),
}

var institutionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:at|from)\s+([^,\n]+(?:university|college|institute|school)[^,\n]*)`),
	regexp.MustCompile(`(?i)^([^,\n]*(?:university|college|institute|school)[^,\n]*)`),
}

var (
	gpaPattern  = regexp.MustCompile(`(?i)gpa:?\s*(\d+\.?\d*)`)
	yearPattern = regexp.MustCompile(`\d{4}`)
)

// 实验经历条目的最小长度，低于此长度视为噪声
const minExperienceEntryLen = 40

// 教育经历条目的最小长度
const minEducationEntryLen = 10

// EntityExtractor 从分区后的简历文本中抽取技能、工作经历与教育经历
type EntityExtractor struct {
	taxonomy  SkillsTaxonomy
	levMetric *metrics.Levenshtein
	nowFunc   func() time.Time
}

// EntityExtractorOption 定义抽取器配置选项
type EntityExtractorOption func(*EntityExtractor)

// WithNowFunc 注入时钟，"present"结束日期按该时钟的当前年份折算
func WithNowFunc(nowFunc func() time.Time) EntityExtractorOption {
	return func(e *EntityExtractor) {
		if nowFunc != nil {
			e.nowFunc = nowFunc
		}
	}
}

// NewEntityExtractor 创建实体抽取器
func NewEntityExtractor(taxonomy SkillsTaxonomy, options ...EntityExtractorOption) *EntityExtractor {
	if taxonomy == nil {
		taxonomy = fallbackTaxonomy
	}

	extractor := &EntityExtractor{
		taxonomy:  taxonomy,
		levMetric: metrics.NewLevenshtein(),
		nowFunc:   time.Now,
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor
}

// ExtractSkillsFromText 从一段文本中抽取技能
// 别名整词子串命中置信度1.0；否则对文本逐词做编辑距离模糊匹配，比率不低于0.95才算候选
// 最终接受的候选置信度不低于0.85，并随带命中位置前后各50个字符的上下文
func (e *EntityExtractor) ExtractSkillsFromText(text, section string) []types.ExtractedSkill {
	var extracted []types.ExtractedSkill
	textLower := strings.ToLower(text)

	for _, canonicalSkill := range sortedTaxonomyKeys(e.taxonomy) {
		aliases := e.taxonomy[canonicalSkill]

		var bestMatch string
		bestScore := 0.0
		bestContext := ""

		for _, alias := range aliases {
			if startIdx := strings.Index(textLower, alias); startIdx != -1 {
				if 1.0 > bestScore {
					bestMatch = alias
					bestScore = 1.0
					bestContext = contextWindow(text, startIdx, len(alias))
				}
				continue
			}

			// 子串未命中时，逐词做模糊匹配
			for _, word := range strings.Fields(textLower) {
				if len(word) < 3 {
					continue
				}
				score := strutil.Similarity(alias, word, e.levMetric)
				if score >= 0.95 && score > bestScore {
					bestMatch = word
					bestScore = score
					if wordIdx := strings.Index(textLower, word); wordIdx != -1 {
						bestContext = contextWindow(text, wordIdx, len(word))
					}
				}
			}
		}

		if bestMatch != "" && bestScore >= 0.85 {
			extracted = append(extracted, types.ExtractedSkill{
				Name:          bestMatch,
				CanonicalName: canonicalSkill,
				Confidence:    bestScore,
				Section:       section,
				Context:       bestContext,
			})
		}
	}

	return extracted
}

// contextWindow 截取命中位置前后各50个字符
func contextWindow(text string, start, matchLen int) string {
	contextStart := max(0, start-50)
	contextEnd := min(len(text), start+matchLen+50)
	return strings.TrimSpace(text[contextStart:contextEnd])
}

// sortedTaxonomyKeys 按字典序返回技能键，保证多次运行输出顺序一致
func sortedTaxonomyKeys(taxonomy SkillsTaxonomy) []string {
	keys := make([]string, 0, len(taxonomy))
	for key := range taxonomy {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// dateRange 一段起止日期的原始文本
type dateRange struct {
	start string
	end   string
}

// extractDateRanges 按模式优先级抽取文本中的日期区间
func extractDateRanges(text string) []dateRange {
	var dates []dateRange
	for _, pattern := range dateRangePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			dates = append(dates, dateRange{start: match[1], end: match[2]})
		}
	}
	return dates
}

// ExtractExperienceFromSection 从一段文本抽取工作经历条目
func (e *EntityExtractor) ExtractExperienceFromSection(text, section string) []types.ExtractedExperience {
	var experiences []types.ExtractedExperience

	for _, entry := range entrySplitter.Split(text, -1) {
		entry = strings.TrimSpace(entry)
		if len(entry) < minExperienceEntryLen {
			continue
		}

		lines := strings.Split(entry, "\n")
		firstLine := strings.TrimSpace(lines[0])

		var title, company string
		for _, pattern := range titlePatterns {
			match := pattern.FindStringSubmatch(firstLine)
			if match == nil {
				continue
			}
			if len(match) == 3 {
				title = strings.TrimSpace(match[1])
				company = strings.TrimSpace(match[2])
			} else {
				title = strings.TrimSpace(match[1])
			}
			break
		}
		if title == "" {
			title = firstLine
		}

		var startDate, endDate string
		dates := extractDateRanges(entry)
		if len(dates) > 0 {
			startDate = dates[0].start
			endDate = dates[0].end
		}

		experiences = append(experiences, types.ExtractedExperience{
			Title:          title,
			Company:        company,
			StartDate:      startDate,
			EndDate:        endDate,
			DurationMonths: e.estimateDurationMonths(startDate, endDate),
			Description:    entry,
			Section:        section,
		})
	}

	return experiences
}

// estimateDurationMonths 粗粒度时长估算：年差 × 12
// "present"/"current"按当前年份折算；无法解析时返回nil而不是0
func (e *EntityExtractor) estimateDurationMonths(startDate, endDate string) *int {
	if startDate == "" || endDate == "" {
		return nil
	}

	startYearStr := yearPattern.FindString(startDate)
	if startYearStr == "" {
		return nil
	}
	startYear, err := strconv.Atoi(startYearStr)
	if err != nil {
		return nil
	}

	var endYear int
	endLower := strings.ToLower(endDate)
	if endLower == "present" || endLower == "current" {
		endYear = e.nowFunc().Year()
	} else {
		endYearStr := yearPattern.FindString(endDate)
		if endYearStr == "" {
			return nil
		}
		endYear, err = strconv.Atoi(endYearStr)
		if err != nil {
			return nil
		}
	}

	months := (endYear - startYear) * 12
	return &months
}

// ExtractEducationFromSection 从一段文本抽取教育经历条目
// 既无学位关键词又无院校关键词的条目被丢弃
func (e *EntityExtractor) ExtractEducationFromSection(text, section string) []types.ExtractedEducation {
	var educations []types.ExtractedEducation

	for _, entry := range entrySplitter.Split(text, -1) {
		entry = strings.TrimSpace(entry)
		if len(entry) < minEducationEntryLen {
			continue
		}

		var degree string
		for _, pattern := range degreePatterns {
			if pattern.MatchString(entry) {
				for _, line := range strings.Split(entry, "\n") {
					if pattern.MatchString(line) {
						degree = strings.TrimSpace(line)
						break
					}
				}
				break
			}
		}

		var institution string
		for _, pattern := range institutionPatterns {
			if match := pattern.FindStringSubmatch(entry); match != nil {
				institution = strings.TrimSpace(match[1])
				break
			}
		}

		var graduationDate string
		if dates := extractDateRanges(entry); len(dates) > 0 {
			graduationDate = dates[0].end
		}

		var gpa string
		if match := gpaPattern.FindStringSubmatch(entry); match != nil {
			gpa = match[1]
		}

		if degree == "" && institution == "" {
			continue
		}

		educations = append(educations, types.ExtractedEducation{
			Degree:         degree,
			Institution:    institution,
			GraduationDate: graduationDate,
			GPA:            gpa,
			Section:        section,
		})
	}

	return educations
}

// ExtractEntities 从分区后的简历文本中抽取全部实体
// 技能扫描覆盖所有区块；工作经历只看experience与summary；教育经历只看education与summary
func (e *EntityExtractor) ExtractEntities(sections types.SectionMap) (result *types.ExtractedEntities, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewEntityExtractionError(fmt.Sprintf("%v", r))
		}
	}()

	logger.Debug().Int("sections", len(sections)).Msg("开始实体抽取")

	var allSkills []types.ExtractedSkill
	var allExperience []types.ExtractedExperience
	var allEducation []types.ExtractedEducation

	for _, sectionName := range sortedSectionKeys(sections) {
		sectionText := sections[sectionName]
		if strings.TrimSpace(sectionText) == "" {
			continue
		}

		allSkills = append(allSkills, e.ExtractSkillsFromText(sectionText, sectionName)...)

		if sectionName == types.SectionExperience || sectionName == types.SectionSummary {
			allExperience = append(allExperience, e.ExtractExperienceFromSection(sectionText, sectionName)...)
		}

		if sectionName == types.SectionEducation || sectionName == types.SectionSummary {
			allEducation = append(allEducation, e.ExtractEducationFromSection(sectionText, sectionName)...)
		}
	}

	// 按规范技能名去重，保留置信度最高的一次命中
	uniqueSkills := map[string]types.ExtractedSkill{}
	var skillOrder []string
	for _, skill := range allSkills {
		existing, seen := uniqueSkills[skill.CanonicalName]
		if !seen {
			uniqueSkills[skill.CanonicalName] = skill
			skillOrder = append(skillOrder, skill.CanonicalName)
		} else if skill.Confidence > existing.Confidence {
			uniqueSkills[skill.CanonicalName] = skill
		}
	}

	finalSkills := make([]types.ExtractedSkill, 0, len(skillOrder))
	for _, canonical := range skillOrder {
		finalSkills = append(finalSkills, uniqueSkills[canonical])
	}

	totalMonths := 0
	for _, exp := range allExperience {
		if exp.DurationMonths != nil {
			totalMonths += *exp.DurationMonths
		}
	}

	mostRecentTitle := findMostRecentTitle(allExperience)

	logger.Debug().
		Int("skills_found", len(finalSkills)).
		Int("experience_entries", len(allExperience)).
		Int("education_entries", len(allEducation)).
		Int("total_experience_months", totalMonths).
		Msg("实体抽取完成")

	return &types.ExtractedEntities{
		Skills:                finalSkills,
		Experience:            allExperience,
		Education:             allEducation,
		TotalExperienceMonths: totalMonths,
		MostRecentTitle:       mostRecentTitle,
	}, nil
}

// findMostRecentTitle 按结束日期字符串排序取最近一段经历的职位
// 空结束日期按"9999"哨兵值参与排序，视作最近
func findMostRecentTitle(experience []types.ExtractedExperience) string {
	if len(experience) == 0 {
		return ""
	}

	sorted := make([]types.ExtractedExperience, len(experience))
	copy(sorted, experience)
	sort.SliceStable(sorted, func(i, j int) bool {
		return endDateSortKey(sorted[i]) > endDateSortKey(sorted[j])
	})

	return sorted[0].Title
}

func endDateSortKey(exp types.ExtractedExperience) string {
	if exp.EndDate == "" {
		return "9999"
	}
	return exp.EndDate
}

// sortedSectionKeys 按字典序返回区块名，保证抽取顺序稳定
func sortedSectionKeys(sections types.SectionMap) []string {
	keys := make([]string, 0, len(sections))
	for key := range sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
