package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// 邮件分类的标准取值
const (
	EmailCategoryJobApplication = "job_application"
	EmailCategoryInquiry        = "inquiry"
	EmailCategorySpam           = "spam"
	EmailCategoryOther          = "other"
)

// EmailClassification LLM邮件分类结果
type EmailClassification struct {
	Category            string `json:"category"`
	Reason              string `json:"reason"`
	HasResumeAttachment bool   `json:"has_resume_attachment"`
}

// LLMEmailClassifier 使用LLM对入站邮件分类
// 识别求职申请邮件，其附件会进入简历处理流水线
type LLMEmailClassifier struct {
	llmModel       model.ToolCallingChatModel
	promptTemplate string
	logger         *log.Logger
}

// EmailClassifierOption 分类器的配置选项
type EmailClassifierOption func(*LLMEmailClassifier)

// WithClassifierPrompt 覆盖默认的分类提示词
func WithClassifierPrompt(tpl string) EmailClassifierOption {
	return func(c *LLMEmailClassifier) {
		c.promptTemplate = tpl
	}
}

// NewLLMEmailClassifier 创建新的邮件分类器
func NewLLMEmailClassifier(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...EmailClassifierOption) *LLMEmailClassifier {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	classifier := &LLMEmailClassifier{
		llmModel: llmModel,
		logger:   logger,
	}

	for _, opt := range options {
		opt(classifier)
	}

	if classifier.promptTemplate == "" {
		classifier.generatePromptTemplate()
	}

	return classifier
}

func (c *LLMEmailClassifier) generatePromptTemplate() {
	c.promptTemplate = `You are an email triage assistant for a school recruitment team. Classify the incoming email into exactly one category:

- "job_application": a candidate applying for a teaching or school-staff position, typically with a resume attached.
- "inquiry": a genuine question about vacancies, process, or the institution, but not an application.
- "spam": marketing, scams, or anything unrelated to recruitment.
- "other": legitimate mail that fits none of the above.

Also determine whether the listed attachments likely include a resume (PDF/DOC/DOCX with a person-like filename counts).

Output a single JSON object, nothing else:
{"category": "job_application|inquiry|spam|other", "reason": "one short sentence", "has_resume_attachment": true|false}

Email:
Sender: %s
Subject: %s
Attachments: %s
Body:
"""
%s
"""`
}

// Classify 对一封邮件分类
func (c *LLMEmailClassifier) Classify(ctx context.Context, sender, subject, body string, attachments []string) (*EmailClassification, error) {
	attachList := "none"
	if len(attachments) > 0 {
		attachList = strings.Join(attachments, ", ")
	}

	// 正文过长时截断，分类不需要全文
	if len(body) > 4000 {
		body = body[:4000]
	}

	prompt := fmt.Sprintf(c.promptTemplate, sender, subject, attachList, body)

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	response, err := c.llmModel.Generate(callCtx, []*einoschema.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("LLM邮件分类失败: %w", err)
	}

	jsonStr := extractJSON(response.Content)
	if jsonStr == "" {
		return nil, fmt.Errorf("无法从LLM响应中提取有效的JSON")
	}

	var result EmailClassification
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("解析分类结果失败: %w", err)
	}

	switch result.Category {
	case EmailCategoryJobApplication, EmailCategoryInquiry, EmailCategorySpam, EmailCategoryOther:
	default:
		c.logger.Printf("LLM返回了未知分类 %q，归入other", result.Category)
		result.Category = EmailCategoryOther
	}

	return &result, nil
}
