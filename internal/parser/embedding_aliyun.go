package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"ats-analyzer-go/internal/config"
	"ats-analyzer-go/internal/ratelimit"
)

// TextEmbedder 文本向量化接口
type TextEmbedder interface {
	// EmbedStrings 将一批文本转换为向量
	EmbedStrings(ctx context.Context, texts []string) ([][]float64, error)
	// GetDimensions 返回向量维度
	GetDimensions() int
}

// AliyunEmbedder 阿里云文本向量化客户端 (OpenAI兼容接口)
type AliyunEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	baseURL    string
	limiter    *ratelimit.TokenBucket
	logger     *log.Logger
}

var _ TextEmbedder = (*AliyunEmbedder)(nil)

// NewAliyunEmbedder 创建新的阿里云Embedder
func NewAliyunEmbedder(apiKey string, embeddingCfg config.EmbeddingConfig) (*AliyunEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	model := embeddingCfg.Model
	if model == "" {
		model = "text-embedding-v3"
	}
	baseURL := embeddingCfg.BaseURL
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	}

	var limiter *ratelimit.TokenBucket
	if embeddingCfg.RequestsPerMinute > 0 {
		limiter = ratelimit.NewTokenBucket(embeddingCfg.RequestsPerMinute)
	}

	return &AliyunEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimensions: embeddingCfg.Dimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		limiter:    limiter,
		logger:     log.New(os.Stderr, "[AliyunEmbedder] ", log.LstdFlags),
	}, nil
}

// GetDimensions 返回嵌入器配置的维度
func (a *AliyunEmbedder) GetDimensions() int {
	return a.dimensions
}

// aliyunEmbeddingRequest 阿里云Embedding请求结构 (OpenAI兼容)
type aliyunEmbeddingRequest struct {
	Input          interface{} `json:"input"` // string 或 []string
	Model          string      `json:"model"`
	Dimensions     int         `json:"dimensions,omitempty"`
	EncodingFormat string      `json:"encoding_format,omitempty"`
}

// aliyunEmbeddingResponse 阿里云Embedding响应结构 (OpenAI兼容)
type aliyunEmbeddingResponse struct {
	Object string            `json:"object"`
	Data   []aliyunDataEntry `json:"data"`
	Model  string            `json:"model"`
	Usage  aliyunUsage       `json:"usage"`
	ID     string            `json:"id,omitempty"`
	Error  *aliyunAPIError   `json:"error,omitempty"`
}

type aliyunDataEntry struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type aliyunUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// aliyunAPIError API级别错误，可能随200 OK一起返回
type aliyunAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    string `json:"code"`
}

// EmbedStrings 将文本转换为向量
func (a *AliyunEmbedder) EmbedStrings(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var inputBody interface{}
	if len(texts) == 1 {
		inputBody = texts[0]
	} else {
		inputBody = texts
	}

	reqBody := aliyunEmbeddingRequest{
		Input: inputBody,
		Model: a.model,
	}
	if a.dimensions > 0 {
		reqBody.Dimensions = a.dimensions
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	var body []byte
	post := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewBuffer(jsonData))
		if err != nil {
			return fmt.Errorf("创建HTTP请求失败: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.apiKey)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("发送HTTP请求失败: %w", err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("读取响应体失败: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			var apiError aliyunAPIError
			if json.Unmarshal(body, &apiError) == nil && apiError.Message != "" {
				return fmt.Errorf("API调用失败, 状态码: %d, 类型: %s, 错误: %s, Code: %s",
					resp.StatusCode, apiError.Type, apiError.Message, apiError.Code)
			}
			return fmt.Errorf("API调用失败, 状态码: %d, 响应: %s", resp.StatusCode, string(body))
		}
		return nil
	}

	// 配置了速率上限时经限流器放行并自动重试配额类错误
	if a.limiter != nil {
		err = a.limiter.Do(ctx, post)
	} else {
		err = post()
	}
	if err != nil {
		return nil, err
	}

	var parsedResp aliyunEmbeddingResponse
	if err := json.Unmarshal(body, &parsedResp); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}

	// 检查响应中是否包含API级别的错误 (例如，输入文本过多)
	if parsedResp.Error != nil && parsedResp.Error.Message != "" {
		return nil, fmt.Errorf("API返回错误: 类型=%s, 消息='%s', Code=%s",
			parsedResp.Error.Type, parsedResp.Error.Message, parsedResp.Error.Code)
	}

	outputEmbeddings := make([][]float64, len(parsedResp.Data))
	for i, dataEntry := range parsedResp.Data {
		outputEmbeddings[i] = dataEntry.Embedding
	}

	a.logger.Printf("成功向量化 %d 条文本, 消耗token: %d", len(texts), parsedResp.Usage.TotalTokens)
	return outputEmbeddings, nil
}
