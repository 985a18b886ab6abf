package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultChatCompletionsPath = "/chat/completions"
	defaultChatModelName       = "gpt-4o-mini"
)

// --- OpenAI 兼容请求/响应结构 ---

type openAIToolFunctionParams struct {
	Type       string                 `json:"type"` // 通常为 "object"
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required,omitempty"`
}

type openAIFunction struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  openAIToolFunctionParams `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"` // 必须为 "function"
	Function openAIFunction `json:"function"`
}

type openAIChatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"` // eino的schema.Message与OpenAI角色/内容字段兼容
	Tools       []openAITool      `json:"tools,omitempty"`
	Temperature *float32          `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type openAIToolCallData struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "function"
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"` // 参数的JSON字符串
	} `json:"function"`
}

type openAIMessage struct {
	Role      string               `json:"role"`
	Content   *string              `json:"content"` // 存在tool_calls时可能为null
	ToolCalls []openAIToolCallData `json:"tool_calls,omitempty"`
}

type openAIChatChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAICompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []openAIChatChoice `json:"choices"`
}

// OpenAIChatModel 通过OpenAI兼容的chat completions接口实现
// model.ChatModel 和 model.ToolCallingChatModel 接口
type OpenAIChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature *float32
	maxTokens   int
	httpClient  *http.Client
	boundTools  []openAITool
	logger      *log.Logger
}

// OpenAIChatModelOption 聊天模型的配置选项
type OpenAIChatModelOption func(*OpenAIChatModel)

// WithTemperature 设置采样温度
func WithTemperature(t float32) OpenAIChatModelOption {
	return func(m *OpenAIChatModel) {
		m.temperature = &t
	}
}

// WithMaxTokens 设置单次生成的最大token数
func WithMaxTokens(n int) OpenAIChatModelOption {
	return func(m *OpenAIChatModel) {
		m.maxTokens = n
	}
}

// WithChatLogger 配置自定义日志记录器
func WithChatLogger(logger *log.Logger) OpenAIChatModelOption {
	return func(m *OpenAIChatModel) {
		m.logger = logger
	}
}

// NewOpenAIChatModel 创建一个新的OpenAI兼容聊天模型实例
// baseURL 指向兼容端点的根路径，如 https://api.openai.com/v1
func NewOpenAIChatModel(apiKey string, modelName string, baseURL string, opts ...OpenAIChatModelOption) (*OpenAIChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultChatModelName
	}

	url := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if url == "" {
		return nil, fmt.Errorf("API基础URL不能为空")
	}
	if !strings.HasSuffix(url, defaultChatCompletionsPath) {
		url += defaultChatCompletionsPath
	}

	m := &OpenAIChatModel{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{},
		boundTools: make([]openAITool, 0),
		logger:     log.New(io.Discard, "", 0),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Generate 实现 model.ChatModel 接口
func (m *OpenAIChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	for _, opt := range options {
		_ = opt
	}

	reqPayload := openAIChatCompletionRequest{
		Model:       m.modelName,
		Messages:    messages,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	}
	if len(m.boundTools) > 0 {
		reqPayload.Tools = m.boundTools
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	m.logger.Printf("发送请求到 %s，模型 %s，消息数 %d", m.apiURL, m.modelName, len(messages))

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var openAIResp openAICompletionResponse
	if err := json.Unmarshal(bodyBytes, &openAIResp); err != nil {
		return nil, fmt.Errorf("反序列化API响应失败: %w", err)
	}

	if len(openAIResp.Choices) == 0 {
		return nil, fmt.Errorf("API响应中choices为空: %s", string(bodyBytes))
	}

	apiMessage := openAIResp.Choices[0].Message
	responseContent := ""
	if apiMessage.Content != nil {
		responseContent = *apiMessage.Content
	}

	resultMessage := &schema.Message{
		Role:    schema.RoleType(apiMessage.Role),
		Content: responseContent,
	}

	if len(apiMessage.ToolCalls) > 0 {
		resultMessage.ToolCalls = make([]schema.ToolCall, len(apiMessage.ToolCalls))
		for i, tc := range apiMessage.ToolCalls {
			resultMessage.ToolCalls[i] = schema.ToolCall{
				ID: tc.ID,
				Function: schema.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	if resultMessage.Role == "" {
		resultMessage.Role = schema.RoleType("assistant")
	}

	return resultMessage, nil
}

// Stream 实现 model.ChatModel 接口
// 本服务的所有LLM调用都是一次性请求，流式接口未实现
func (m *OpenAIChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OpenAIChatModel的Stream方法未实现")
}

// BindTools 实现 model.ChatModel 接口
// 工具参数schema统一使用空对象，本服务的提取任务不依赖工具调用
func (m *OpenAIChatModel) BindTools(tools []*schema.ToolInfo) error {
	m.boundTools = make([]openAITool, 0, len(tools))
	for _, toolInfo := range tools {
		if toolInfo == nil {
			continue
		}
		m.boundTools = append(m.boundTools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        toolInfo.Name,
				Description: toolInfo.Desc,
				Parameters: openAIToolFunctionParams{
					Type:       "object",
					Properties: map[string]interface{}{},
				},
			},
		})
	}
	return nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (m *OpenAIChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := m.BindTools(tools); err != nil {
		return nil, err
	}
	return m, nil
}

var _ model.ChatModel = (*OpenAIChatModel)(nil)
var _ model.ToolCallingChatModel = (*OpenAIChatModel)(nil)
