package processor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ats-analyzer-go/internal/config"
	"ats-analyzer-go/internal/logger"
	"ats-analyzer-go/internal/parser"
	"ats-analyzer-go/internal/types"
)

// Analyzer 简历分析服务，串联整条流水线
// 文档提取 → 分区 → 实体抽取，与职位解析并行无依赖，汇入匹配与评分，体检独立运行
type Analyzer struct {
	extractor       *parser.DocumentExtractor
	entityExtractor *EntityExtractor
	jdParser        *JDParser
	matcher         *SkillMatcher
	scorer          *Scorer
}

// AnalyzerOption 定义分析服务配置选项
type AnalyzerOption func(*Analyzer)

// WithDocumentExtractor 替换文档提取器
func WithDocumentExtractor(extractor *parser.DocumentExtractor) AnalyzerOption {
	return func(a *Analyzer) {
		a.extractor = extractor
	}
}

// WithEntityExtractor 替换实体抽取器
func WithEntityExtractor(extractor *EntityExtractor) AnalyzerOption {
	return func(a *Analyzer) {
		a.entityExtractor = extractor
	}
}

// WithJDParser 替换职位描述解析器
func WithJDParser(jdParser *JDParser) AnalyzerOption {
	return func(a *Analyzer) {
		a.jdParser = jdParser
	}
}

// WithMatcher 替换技能匹配器
func WithMatcher(matcher *SkillMatcher) AnalyzerOption {
	return func(a *Analyzer) {
		a.matcher = matcher
	}
}

// WithScorer 替换评分器
func WithScorer(scorer *Scorer) AnalyzerOption {
	return func(a *Analyzer) {
		a.scorer = scorer
	}
}

// NewAnalyzer 按配置组装分析服务
// 所有组件都是显式注入的服务对象，测试时可整体替换以提供确定性行为
func NewAnalyzer(cfg *config.Config, options ...AnalyzerOption) *Analyzer {
	taxonomy := LoadSkillsTaxonomy(cfg.Data.SkillsTaxonomyPath)
	cues := LoadCueLexicon(cfg.Data.CueLexiconPath)

	ocrClient := parser.NewTesseractOCRClient(
		cfg.OCR.ServerURL,
		parser.WithOCRTimeout(time.Duration(cfg.OCR.TimeoutSeconds)*time.Second),
	)

	embedderFactory := func() (parser.TextEmbedder, error) {
		return parser.NewAliyunEmbedder(cfg.Embedding.APIKey, cfg.Embedding)
	}

	analyzer := &Analyzer{
		extractor: parser.NewDocumentExtractor(
			parser.WithOCRClient(ocrClient),
			parser.WithMaxFileSize(cfg.MaxFileSize),
		),
		entityExtractor: NewEntityExtractor(taxonomy),
		jdParser:        NewJDParser(taxonomy, cues),
		matcher:         NewSkillMatcher(cfg.Scoring.SimilarityThresholds, WithEmbedderFactory(embedderFactory)),
		scorer:          NewScorer(cfg.Scoring),
	}

	for _, option := range options {
		option(analyzer)
	}

	return analyzer
}

// AnalyzeDocument 对简历文件与职位描述做完整分析
func (a *Analyzer) AnalyzeDocument(ctx context.Context, content []byte, filename, contentType, jdText string) (*types.AnalysisResult, error) {
	doc, err := a.extractor.Parse(ctx, content, filename, contentType)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeText(ctx, doc.Text, jdText)
}

// AnalyzeText 对已提取的简历文本与职位描述做完整分析
func (a *Analyzer) AnalyzeText(ctx context.Context, resumeText, jdText string) (*types.AnalysisResult, error) {
	analysisID := uuid.New().String()
	startTime := time.Now()

	logger.Info().
		Str("analysis_id", analysisID).
		Int("resume_length", len(resumeText)).
		Int("jd_length", len(jdText)).
		Msg("开始简历分析")

	sections := SectionizeText(resumeText)

	entities, err := a.entityExtractor.ExtractEntities(sections)
	if err != nil {
		return nil, err
	}

	requirements := a.jdParser.Parse(jdText)

	matches := a.matcher.MatchSkills(ctx, requirements, entities)

	score := a.scorer.CalculateScores(matches, requirements, entities)

	compliance := CheckATSCompatibility(resumeText)

	logger.Info().
		Str("analysis_id", analysisID).
		Int("overall_score", score.Overall).
		Int("skills_found", len(entities.Skills)).
		Float64("elapsed_seconds", time.Since(startTime).Seconds()).
		Msg("简历分析完成")

	return &types.AnalysisResult{
		AnalysisID:   analysisID,
		Score:        score,
		Matches:      matches,
		Entities:     entities,
		Requirements: requirements,
		Compliance:   compliance,
	}, nil
}
