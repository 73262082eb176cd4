package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"ats-analyzer-go/internal/config"
	"ats-analyzer-go/internal/logger"
	"ats-analyzer-go/internal/processor"
	"ats-analyzer-go/internal/types"
)

func main() {
	var (
		configPath string
		resumePath string
		jdPath     string
		outputPath string
		asText     bool
	)

	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径 (默认搜索 config.yaml)")
	pflag.StringVarP(&resumePath, "resume", "r", "", "简历文件路径 (pdf/docx/图片)")
	pflag.StringVarP(&jdPath, "jd", "j", "", "职位描述文本文件路径")
	pflag.StringVarP(&outputPath, "output", "o", "", "分析结果输出路径 (默认标准输出)")
	pflag.BoolVarP(&asText, "text", "t", false, "把简历文件当作纯文本, 跳过文档提取")
	pflag.Parse()

	if resumePath == "" {
		fmt.Fprintln(os.Stderr, "必须通过 --resume 指定简历文件")
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	resumeContent, err := os.ReadFile(resumePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", resumePath).Msg("读取简历文件失败")
	}

	jdText := ""
	if jdPath != "" {
		jdContent, err := os.ReadFile(jdPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", jdPath).Msg("读取职位描述失败")
		}
		jdText = string(jdContent)
	}

	analyzer := processor.NewAnalyzer(cfg)
	ctx := context.Background()

	result, err := analyzeResume(ctx, analyzer, resumeContent, resumePath, asText, jdText)
	if err != nil {
		logger.Fatal().Err(err).Msg("简历分析失败")
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("序列化结果失败")
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, output, 0o644); err != nil {
			logger.Fatal().Err(err).Str("path", outputPath).Msg("写入结果失败")
		}
		logger.Info().Str("path", outputPath).Int("overall", result.Score.Overall).Msg("分析结果已写入")
		return
	}

	fmt.Println(string(output))
}

func analyzeResume(ctx context.Context, analyzer *processor.Analyzer, content []byte, path string, asText bool, jdText string) (*types.AnalysisResult, error) {
	if asText {
		return analyzer.AnalyzeText(ctx, string(content), jdText)
	}
	return analyzer.AnalyzeDocument(ctx, content, filepath.Base(path), contentTypeFor(path), jdText)
}

// contentTypeFor 按扩展名给出内容类型提示，提取器自身还会做魔数嗅探
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return ""
	}
}