package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

// OCRClient 光学字符识别客户端接口
// OCR是外部有界时延调用，由调用方决定超时与取消
type OCRClient interface {
	// RecognizeImage 识别一张图片中的文本
	RecognizeImage(ctx context.Context, data []byte, uri string) (string, error)

	// RecognizePDFPage 识别PDF指定页（从1开始计数）中的文本
	RecognizePDFPage(ctx context.Context, data []byte, uri string, page int) (string, error)
}

// TesseractOCRClient 基于HTTP OCR服务（tesseract-server兼容）的客户端
type TesseractOCRClient struct {
	// OCR服务器地址，例如 http://localhost:8884
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// 页面分割模式，透传给tesseract
	pageSegMode string
	// 日志记录
	logger *log.Logger
}

// OCROption 定义配置选项函数
type OCROption func(*TesseractOCRClient)

// WithOCRTimeout 配置HTTP客户端超时时间
func WithOCRTimeout(timeout time.Duration) OCROption {
	return func(c *TesseractOCRClient) {
		c.Client.Timeout = timeout
	}
}

// WithPageSegMode 配置tesseract页面分割模式
func WithPageSegMode(mode string) OCROption {
	return func(c *TesseractOCRClient) {
		c.pageSegMode = mode
	}
}

// WithOCRLogger 配置自定义日志记录器
func WithOCRLogger(logger *log.Logger) OCROption {
	return func(c *TesseractOCRClient) {
		c.logger = logger
	}
}

// 确保TesseractOCRClient实现了OCRClient接口
var _ OCRClient = (*TesseractOCRClient)(nil)

// NewTesseractOCRClient 创建一个新的OCR服务客户端
func NewTesseractOCRClient(serverURL string, options ...OCROption) *TesseractOCRClient {
	client := &http.Client{
		Timeout: 60 * time.Second,
	}

	ocr := &TesseractOCRClient{
		ServerURL:   serverURL,
		Client:      client,
		pageSegMode: "6", // 按统一文本块识别
		logger:      log.New(os.Stderr, "[OCR] ", log.LstdFlags),
	}

	for _, option := range options {
		option(ocr)
	}

	return ocr
}

// RecognizeImage 将图片字节上传到OCR服务并返回识别出的纯文本
func (c *TesseractOCRClient) RecognizeImage(ctx context.Context, data []byte, uri string) (string, error) {
	return c.recognize(ctx, data, uri, "application/octet-stream", 0)
}

// RecognizePDFPage 识别PDF某一页，页码透传给服务端做栅格化
func (c *TesseractOCRClient) RecognizePDFPage(ctx context.Context, data []byte, uri string, page int) (string, error) {
	return c.recognize(ctx, data, uri, "application/pdf", page)
}

func (c *TesseractOCRClient) recognize(ctx context.Context, data []byte, uri, contentType string, page int) (string, error) {
	startTime := time.Now()

	url := fmt.Sprintf("%s/ocr", c.ServerURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-OCR-PSM", c.pageSegMode)
	if uri != "" {
		req.Header.Set("X-OCR-Resource-Name", uri)
	}
	if page > 0 {
		req.Header.Set("X-OCR-Page", strconv.Itoa(page))
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送OCR请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取OCR响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR服务返回错误, 状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	duration := time.Since(startTime)
	c.logger.Printf("OCR识别完成: %d 个字符 (用时 %.2f秒)", len(body), duration.Seconds())

	return string(body), nil
}
