package processor

import (
	"encoding/json"
	"os"

	"ats-analyzer-go/internal/logger"
)

// SkillsTaxonomy 规范技能名到别名列表的映射
type SkillsTaxonomy map[string][]string

// CueLexicon 提示词到needs分类("required"/"preferred")的映射
type CueLexicon map[string]string

// fallbackTaxonomy 数据文件缺失时的内置最小技能表
var fallbackTaxonomy = SkillsTaxonomy{
	"Python":     {"python", "py", "python3"},
	"JavaScript": {"javascript", "js", "node.js", "nodejs"},
	"React":      {"react", "reactjs", "react.js"},
	"SQL":        {"sql", "postgresql", "mysql"},
	"Docker":     {"docker", "containerization"},
	"Git":        {"git", "github", "version control"},
}

// fallbackCueLexicon 数据文件缺失时的内置最小提示词表
var fallbackCueLexicon = CueLexicon{
	"must":         "required",
	"required":     "required",
	"mandatory":    "required",
	"essential":    "required",
	"preferred":    "preferred",
	"nice to have": "preferred",
	"bonus":        "preferred",
	"ideal":        "preferred",
}

// LoadSkillsTaxonomy 加载技能分类表
// 文件按"类别 -> 技能 -> 别名列表"嵌套组织，加载时拍平为"技能 -> 别名列表"
// 加载失败时降级为内置的最小技能表，不报错
func LoadSkillsTaxonomy(path string) SkillsTaxonomy {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("技能分类表加载失败, 使用内置表")
		return fallbackTaxonomy
	}

	var nested map[string]map[string][]string
	if err := json.Unmarshal(data, &nested); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("技能分类表解析失败, 使用内置表")
		return fallbackTaxonomy
	}

	flattened := SkillsTaxonomy{}
	for _, skills := range nested {
		for skill, aliases := range skills {
			flattened[skill] = aliases
		}
	}

	return flattened
}

// cueLexiconFile 提示词文件的磁盘结构
type cueLexiconFile struct {
	RequiredIndicators  []string `json:"required_indicators"`
	PreferredIndicators []string `json:"preferred_indicators"`
}

// LoadCueLexicon 加载必备/加分提示词表
// 加载失败时降级为内置的最小提示词表，不报错
func LoadCueLexicon(path string) CueLexicon {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("提示词表加载失败, 使用内置表")
		return fallbackCueLexicon
	}

	var file cueLexiconFile
	if err := json.Unmarshal(data, &file); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("提示词表解析失败, 使用内置表")
		return fallbackCueLexicon
	}

	cues := CueLexicon{}
	for _, indicator := range file.RequiredIndicators {
		cues[indicator] = "required"
	}
	for _, indicator := range file.PreferredIndicators {
		cues[indicator] = "preferred"
	}

	return cues
}
