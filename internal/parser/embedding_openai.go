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
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
)

// OpenAIEmbedder 通过OpenAI兼容的embeddings接口实现 embedding.Embedder
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// NewOpenAIEmbedder 创建新的OpenAI兼容Embedder
func NewOpenAIEmbedder(apiKey string, embeddingCfg config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	model := embeddingCfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	baseURL := strings.TrimRight(embeddingCfg.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("embedding基础URL不能为空")
	}
	if !strings.HasSuffix(baseURL, "/embeddings") {
		baseURL += "/embeddings"
	}

	return &OpenAIEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimensions: embeddingCfg.Dimensions,
		httpClient: &http.Client{},
		baseURL:    baseURL,
		logger:     log.New(os.Stderr, "[OpenAIEmbedder] ", log.LstdFlags),
	}, nil
}

// GetDimensions 返回嵌入器配置的维度
func (o *OpenAIEmbedder) GetDimensions() int {
	return o.dimensions
}

// openAIEmbeddingRequest OpenAI兼容的Embedding请求结构
type openAIEmbeddingRequest struct {
	Input          interface{} `json:"input"` // string 或 []string
	Model          string      `json:"model"`
	Dimensions     int         `json:"dimensions,omitempty"`
	EncodingFormat string      `json:"encoding_format,omitempty"`
}

// openAIEmbeddingResponse OpenAI兼容的Embedding响应结构
type openAIEmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// EmbedStrings 将文本转换为向量，实现 cloudwego/eino embedding.Embedder 接口
func (o *OpenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	options := &embedding.Options{}
	embedding.GetCommonOptions(options, opts...)

	effectiveModel := o.model
	if options.Model != nil && *options.Model != "" {
		effectiveModel = *options.Model
	}

	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var inputBody interface{}
	if len(texts) == 1 {
		inputBody = texts[0]
	} else {
		inputBody = texts
	}

	reqBody := openAIEmbeddingRequest{
		Input: inputBody,
		Model: effectiveModel,
	}
	if o.dimensions > 0 {
		reqBody.Dimensions = o.dimensions
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API调用失败, 状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	var parsedResp openAIEmbeddingResponse
	if err := json.Unmarshal(body, &parsedResp); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}

	if parsedResp.Error != nil && parsedResp.Error.Message != "" {
		return nil, fmt.Errorf("embedding API返回错误: 类型=%s, 消息='%s', Code=%s",
			parsedResp.Error.Type, parsedResp.Error.Message, parsedResp.Error.Code)
	}

	outputEmbeddings := make([][]float64, len(parsedResp.Data))
	for _, entry := range parsedResp.Data {
		if entry.Index >= 0 && entry.Index < len(outputEmbeddings) {
			outputEmbeddings[entry.Index] = entry.Embedding
		}
	}

	o.logger.Printf("成功嵌入 %d 条文本，维度 %d，消耗token %d",
		len(texts), firstEmbeddingDim(outputEmbeddings), parsedResp.Usage.TotalTokens)

	return outputEmbeddings, nil
}

// firstEmbeddingDim 安全获取第一个向量的维度，用于日志
func firstEmbeddingDim(embeddings [][]float64) int {
	if len(embeddings) > 0 && len(embeddings[0]) > 0 {
		return len(embeddings[0])
	}
	return 0
}

var _ embedding.Embedder = (*OpenAIEmbedder)(nil)
