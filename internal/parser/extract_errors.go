package parser

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrFileProcessing = errors.New("文件无法处理")
	ErrTextExtraction = errors.New("未能从文档提取可用文本")
	ErrOCR            = errors.New("OCR识别失败")
)

// ExtractError 包含详细信息的提取错误
type ExtractError struct {
	URI     string
	Op      string
	BaseErr error
	Detail  string
}

func (e *ExtractError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 文件:%s): %s", e.BaseErr, e.Op, e.URI, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 文件:%s)", e.BaseErr, e.Op, e.URI)
}

func (e *ExtractError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewFileError(uri, detail string) error {
	return &ExtractError{
		URI:     uri,
		Op:      "detect",
		BaseErr: ErrFileProcessing,
		Detail:  detail,
	}
}

func NewExtractionError(uri, detail string) error {
	return &ExtractError{
		URI:     uri,
		Op:      "extract",
		BaseErr: ErrTextExtraction,
		Detail:  detail,
	}
}

func NewOCRError(uri, detail string) error {
	return &ExtractError{
		URI:     uri,
		Op:      "ocr",
		BaseErr: ErrOCR,
		Detail:  detail,
	}
}
