package processor

import (
	"regexp"
	"strings"

	"ats-analyzer-go/internal/logger"
	"ats-analyzer-go/internal/types"
)

var (
	wideGapPattern     = regexp.MustCompile(`\s{10,}`)
	columnarPattern    = regexp.MustCompile(`(\s{3,}[^\s]+){3,}`)
	emailPattern       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern       = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	quantifiedPattern  = regexp.MustCompile(`\b\d+(?:[.,]\d+)*(?:%|\$|k|million|billion)?\b`)
	nonASCIIPattern    = regexp.MustCompile(`[^\x00-\x7F]`)
	educationHint      = regexp.MustCompile(`(?i)(bachelor|master|phd|degree|university|college)`)
)

// 标准区块标题关键词，命中数量不足说明结构不清晰
var standardHeaderPatterns = compilePatterns(
	`experience`, `education`, `skills`, `summary`,
	`work\s+experience`, `professional\s+experience`,
	`technical\s+skills`, `core\s+competencies`,
	`employment`, `career`, `background`, `qualifications`,
	`achievements`, `accomplishments`, `projects`,
)

// 强动作动词表
var actionVerbs = []string{
	"achieved", "managed", "led", "developed", "created", "improved",
	"increased", "reduced", "implemented", "designed", "built", "delivered",
}

// 日期格式模式，统计整份文本中的日期出现密度
var lintDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}\s*-\s*\d{4}`),
	regexp.MustCompile(`\d{1,2}/\d{4}`),
	regexp.MustCompile(`[A-Za-z]+\s+\d{4}`),
}

// checkMultiColumnLayout 检测可能破坏ATS解析的多栏排版
// 超宽空白或偏短的行占比超过30%判定为疑似多栏
func checkMultiColumnLayout(text string) bool {
	suspiciousLines := 0
	totalContentLines := 0

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		totalContentLines++

		if wideGapPattern.MatchString(line) {
			suspiciousLines++
		}
		if len(stripped) > 10 && len(stripped) < 30 {
			suspiciousLines++
		}
	}

	if totalContentLines == 0 {
		return false
	}
	return float64(suspiciousLines)/float64(totalContentLines) > 0.3
}

// checkTableFormatting 检测表格式排版：竖线、制表符或等距列模式
func checkTableFormatting(text string) bool {
	tableIndicators := 0

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Count(line, "|") >= 2 {
			tableIndicators++
		}
		if strings.Contains(line, "\t") {
			tableIndicators++
		}
		if columnarPattern.MatchString(line) {
			tableIndicators++
		}
	}

	return tableIndicators > 2
}

// checkImageHeavyContent 文本密度过低说明文档可能以图片为主
func checkImageHeavyContent(text string) bool {
	return len(strings.Fields(text)) < 50
}

// checkFontReadability 特殊字符占比过高可能是花哨字体或编码问题
func checkFontReadability(text string) bool {
	if len(text) == 0 {
		return false
	}

	specialCount := 0
	for _, r := range text {
		if isAlphanumeric(r) || strings.ContainsRune(" \n\t.,;:!?()-_[]{}\"'/", r) {
			continue
		}
		specialCount++
	}

	return float64(specialCount)/float64(len(text)) > 0.05
}

func isAlphanumeric(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// checkContactInfo 检查邮箱与电话是否齐备
func checkContactInfo(text string) (bool, []string) {
	var issues []string
	if !emailPattern.MatchString(text) {
		issues = append(issues, "No email address found")
	}
	if !phonePattern.MatchString(text) {
		issues = append(issues, "No phone number found")
	}
	return len(issues) == 0, issues
}

// checkSectionHeaders 标准区块标题至少命中3个
func checkSectionHeaders(text string) bool {
	foundHeaders := 0
	for _, pattern := range standardHeaderPatterns {
		if pattern.MatchString(text) {
			foundHeaders++
		}
	}
	return foundHeaders >= 3
}

// CheckATSCompatibility 对简历原始文本做ATS兼容性体检
// 只看原始文本不依赖实体模型；每项检查固定产出一条警告或一条通过，顺序稳定
func CheckATSCompatibility(text string) *types.ATSWarnings {
	logger.Debug().Int("text_length", len(text)).Msg("开始ATS兼容性检查")

	warnings := []string{}
	passes := []string{}

	if checkMultiColumnLayout(text) {
		warnings = append(warnings, "Multi-column layout detected - may break ATS parsing")
	} else {
		passes = append(passes, "Single-column layout is ATS-friendly")
	}

	if checkTableFormatting(text) {
		warnings = append(warnings, "Table-like formatting may break parsers")
	} else {
		passes = append(passes, "No complex table formatting detected")
	}

	if checkImageHeavyContent(text) {
		warnings = append(warnings, "Low text density - document may be image-heavy")
	} else {
		passes = append(passes, "Good text density for ATS parsing")
	}

	if checkFontReadability(text) {
		warnings = append(warnings, "Unusual characters detected - may indicate font issues")
	} else {
		passes = append(passes, "Text appears cleanly formatted")
	}

	if contactOK, contactIssues := checkContactInfo(text); !contactOK {
		for _, issue := range contactIssues {
			warnings = append(warnings, "Contact info: "+issue)
		}
	} else {
		passes = append(passes, "Contact information is properly formatted")
	}

	if !checkSectionHeaders(text) {
		warnings = append(warnings, "Missing or unclear section headers - need at least 3 standard sections")
	} else {
		passes = append(passes, "Clear section headers found")
	}

	wordCount := len(strings.Fields(text))
	if wordCount < 300 {
		warnings = append(warnings, "Resume too short - needs more detailed descriptions and achievements")
	} else if wordCount > 800 {
		warnings = append(warnings, "Resume too long - ATS may truncate or skip content")
	} else {
		passes = append(passes, "Resume length is appropriate")
	}

	if len(quantifiedPattern.FindAllString(text, -1)) < 5 {
		warnings = append(warnings, "Lacks sufficient quantified achievements - add more specific numbers, percentages, and metrics")
	} else {
		passes = append(passes, "Good use of quantified achievements")
	}

	textLower := strings.ToLower(text)
	actionVerbCount := 0
	for _, verb := range actionVerbs {
		if strings.Contains(textLower, verb) {
			actionVerbCount++
		}
	}
	if actionVerbCount < 3 {
		warnings = append(warnings, "Few action verbs found - use strong action words to describe accomplishments")
	} else {
		passes = append(passes, "Good use of action verbs")
	}

	if nonASCIIPattern.MatchString(text) {
		warnings = append(warnings, "Non-standard characters found - may cause parsing issues")
	} else {
		passes = append(passes, "Standard character encoding used")
	}

	bulletCount := strings.Count(text, "•")
	if bulletCount > 25 {
		warnings = append(warnings, "Excessive bullet points may overwhelm ATS")
	} else if bulletCount < 3 {
		warnings = append(warnings, "Too few bullet points - use bullets to structure content")
	} else {
		passes = append(passes, "Appropriate use of bullet points")
	}

	for _, indicator := range []string{"image", "graphic", "chart", "table"} {
		if strings.Contains(textLower, indicator) {
			warnings = append(warnings, "References to visual elements that ATS cannot parse")
			break
		}
	}

	pronounCount := 0
	for _, pronoun := range []string{"i ", "me ", "my ", "myself"} {
		pronounCount += strings.Count(textLower, pronoun)
	}
	if pronounCount > 3 {
		warnings = append(warnings, "Too many personal pronouns - use action-focused language instead")
	} else {
		passes = append(passes, "Appropriate use of professional language")
	}

	skillsMentions := 0
	for _, keyword := range []string{"skill", "proficient", "experience with", "knowledge of"} {
		if strings.Contains(textLower, keyword) {
			skillsMentions++
		}
	}
	if skillsMentions < 2 {
		warnings = append(warnings, "Skills section appears weak - clearly list technical and professional skills")
	}

	dateCount := 0
	for _, pattern := range lintDatePatterns {
		dateCount += len(pattern.FindAllString(text, -1))
	}
	if dateCount < 2 {
		warnings = append(warnings, "Missing or unclear date formats - use consistent MM/YYYY format")
	}

	if !educationHint.MatchString(text) {
		warnings = append(warnings, "Education section missing or unclear")
	}

	logger.Debug().
		Int("warnings_count", len(warnings)).
		Int("passes_count", len(passes)).
		Msg("ATS兼容性检查完成")

	return &types.ATSWarnings{
		Warnings: warnings,
		Passes:   passes,
	}
}
