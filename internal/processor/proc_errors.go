package processor

import (
	"errors"
	"fmt"
)

// 实体抽取过程中的意外内部故障
var ErrEntityExtraction = errors.New("实体抽取失败")

// AnalysisError 分析流水线错误，包含阶段与上下文信息
type AnalysisError struct {
	// Stage 出错的流水线阶段
	Stage string
	// BaseErr 错误的基础类型
	BaseErr error
	// Detail 详细错误信息
	Detail string
}

// Error 实现error接口
func (e *AnalysisError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Stage, e.BaseErr.Error(), e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.BaseErr.Error())
}

// Unwrap 支持errors.Is/As链式判断
func (e *AnalysisError) Unwrap() error {
	return e.BaseErr
}

// NewEntityExtractionError 创建实体抽取错误
func NewEntityExtractionError(detail string) *AnalysisError {
	return &AnalysisError{
		Stage:   "extract",
		BaseErr: ErrEntityExtraction,
		Detail:  detail,
	}
}
