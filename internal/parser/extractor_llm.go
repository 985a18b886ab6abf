package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"github.com/Apsidata-Solutions/sync-resume/internal/normalizer"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

// LLMCandidateExtractor 使用LLM从简历文本中提取结构化候选人档案
// 提取结果先经过归一化，再校验格式化字段；校验失败时把错误清单
// 回传给LLM做有界修复，最多重试maxIterations轮
type LLMCandidateExtractor struct {
	llmModel model.ToolCallingChatModel

	normalizer *normalizer.Normalizer

	// 校验修复循环的最大轮数
	maxIterations int

	promptTemplate string

	logger *log.Logger
}

// LLMExtractorOption 提取器的配置选项
type LLMExtractorOption func(*LLMCandidateExtractor)

// WithMaxIterations 设置校验修复循环的最大轮数
func WithMaxIterations(n int) LLMExtractorOption {
	return func(e *LLMCandidateExtractor) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithCustomPromptTemplate 覆盖默认的系统提示词
func WithCustomPromptTemplate(tpl string) LLMExtractorOption {
	return func(e *LLMCandidateExtractor) {
		e.promptTemplate = tpl
	}
}

// NewLLMCandidateExtractor 创建新的候选人提取器
func NewLLMCandidateExtractor(llmModel model.ToolCallingChatModel, norm *normalizer.Normalizer, logger *log.Logger, options ...LLMExtractorOption) *LLMCandidateExtractor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if norm == nil {
		norm = normalizer.New()
	}

	extractor := &LLMCandidateExtractor{
		llmModel:      llmModel,
		normalizer:    norm,
		maxIterations: 3,
		logger:        logger,
	}

	for _, opt := range options {
		opt(extractor)
	}

	if extractor.promptTemplate == "" {
		extractor.generatePromptTemplate()
	}

	return extractor
}

// generatePromptTemplate 生成默认的系统提示词
func (e *LLMCandidateExtractor) generatePromptTemplate() {
	e.promptTemplate = `You are an expert resume parser for teaching and school-staff candidates in India. Extract a structured candidate profile from the resume text you receive.

Core rules:
- Output a single JSON object, nothing else. No markdown fences, no commentary.
- If a piece of information is missing from the resume, set the field to null. Never invent data.
- date_of_birth uses DD-MM-YYYY. career_start_date and all start_date/end_date fields use MM-YYYY.
- mobile and alternate_mobile use the format +<country code>-<10 digits>, e.g. "+91-9876543210". Indian numbers without a country code get +91.
- career_start_date is the start of the earliest professional experience.
- education entries are ordered from earliest to latest. status is "completed" or "in progress"; end_date is null while in progress.
- experiences are ordered from earliest to latest. current_job_or_not is true only for the candidate's present job, and then end_date must be null.
- For each experience, derive contributions using the STAR method (situation, task, action, result) from the bullet points, and list the skills each contribution applied as a comma-separated string.
- role is the candidate's function (e.g. Teacher, Principal, Coordinator, Librarian). level is the teaching level (e.g. PRT, TGT, PGT, NTT). primary_skill is the main subject taught.

JSON shape:
{
  "prefix": "string|null",
  "first_name": "string|null",
  "last_name": "string|null",
  "date_of_birth": "DD-MM-YYYY|null",
  "gender": "string|null",
  "email": "string|null",
  "mobile": "string|null",
  "alternate_email": "string|null",
  "alternate_mobile": "string|null",
  "address": "string|null",
  "pin_code": "string|null",
  "city": "string|null",
  "state": "string|null",
  "career_start_date": "MM-YYYY|null",
  "education": [
    {
      "specialization": "string|null",
      "school": "string|null",
      "university": "string|null",
      "degree": "string|null",
      "country": "string|null",
      "start_date": "MM-YYYY|null",
      "end_date": "MM-YYYY|null",
      "status": "completed|in progress|null"
    }
  ],
  "experiences": [
    {
      "organisation": "string|null",
      "designation": "string|null",
      "start_date": "MM-YYYY|null",
      "end_date": "MM-YYYY|null",
      "contributions": [
        {
          "situation": "string",
          "task": "string",
          "action": "string",
          "result": "string",
          "skills_applied": "string"
        }
      ],
      "current_job_or_not": false
    }
  ],
  "industry": "string|null",
  "primary_skill": "string|null",
  "secondary_skill": "string|null",
  "tertiary_skill": "string|null",
  "role": "string|null",
  "level": "string|null"
}

The next message contains the resume text.`
}

// ExtractCandidate 从简历文本中提取候选人档案
// 返回归一化后的档案；修复轮数耗尽后仍无效的字段会被置空而不是让整次提取失败
func (e *LLMCandidateExtractor) ExtractCandidate(ctx context.Context, resumeText string) (*types.TeachingCandidate, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, fmt.Errorf("简历文本为空")
	}

	messages := []*einoschema.Message{
		{Role: "system", Content: e.promptTemplate},
		{Role: "user", Content: resumeText},
	}

	var candidate *types.TeachingCandidate
	var lastErrs []normalizer.FieldError

	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		response, err := e.callLLM(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("LLM调用失败 (第%d轮): %w", iteration, err)
		}

		parsed, err := e.parseResponse(response)
		if err != nil {
			// 解析失败也走修复路径，把错误原样反馈
			e.logger.Printf("第%d轮响应解析失败: %v", iteration, err)
			if iteration == e.maxIterations {
				return nil, fmt.Errorf("解析LLM响应失败: %w", err)
			}
			messages = append(messages,
				&einoschema.Message{Role: "assistant", Content: response},
				&einoschema.Message{Role: "user", Content: fmt.Sprintf(
					"Your previous answer could not be parsed as JSON (%v). Return the corrected candidate profile as a single valid JSON object, nothing else.", err)},
			)
			continue
		}

		candidate = parsed

		// 先归一化再校验：很多格式问题（手机号、邮箱）归一化就能修掉
		e.normalizer.NormalizeCandidate(candidate)

		lastErrs = normalizer.ValidateCandidate(candidate)
		if len(lastErrs) == 0 {
			e.logger.Printf("提取成功 (第%d轮)", iteration)
			return candidate, nil
		}

		e.logger.Printf("第%d轮校验发现%d个字段错误", iteration, len(lastErrs))
		if iteration == e.maxIterations {
			break
		}

		messages = append(messages,
			&einoschema.Message{Role: "assistant", Content: response},
			&einoschema.Message{Role: "user", Content: buildRepairPrompt(lastErrs)},
		)
	}

	// 修复轮数耗尽：置空仍然无效的字段，保留其余提取结果
	e.logger.Printf("修复轮数耗尽，置空%d个无效字段", len(lastErrs))
	clearInvalidFields(candidate, lastErrs)
	return candidate, nil
}

// buildRepairPrompt 把校验错误清单转换成修复指令
func buildRepairPrompt(errs []normalizer.FieldError) string {
	var b strings.Builder
	b.WriteString("Your previous answer contains invalid field values:\n")
	for _, fe := range errs {
		b.WriteString("- ")
		b.WriteString(fe.String())
		b.WriteString("\n")
	}
	b.WriteString("\nReturn the full corrected candidate profile again as a single JSON object. Fix only the listed fields; if a value cannot be determined from the resume, set it to null. No commentary.")
	return b.String()
}

// clearInvalidFields 将仍然无效的字段置空
func clearInvalidFields(c *types.TeachingCandidate, errs []normalizer.FieldError) {
	if c == nil {
		return
	}
	topLevel := map[string]**string{
		"mobile":            &c.Mobile,
		"alternate_mobile":  &c.AlternateMobile,
		"email":             &c.Email,
		"alternate_email":   &c.AlternateEmail,
		"pin_code":          &c.PinCode,
		"date_of_birth":     &c.DateOfBirth,
		"career_start_date": &c.CareerStartDate,
	}
	for _, fe := range errs {
		if ptr, ok := topLevel[fe.Field]; ok {
			*ptr = nil
			continue
		}
		// 嵌套字段形如 education[0].start_date / experiences[1].end_date
		var idx int
		var sub string
		if n, _ := fmt.Sscanf(fe.Field, "education[%d].%s", &idx, &sub); n == 2 && idx < len(c.Education) {
			switch sub {
			case "start_date":
				c.Education[idx].StartDate = nil
			case "end_date":
				c.Education[idx].EndDate = nil
			case "status":
				c.Education[idx].Status = nil
			}
			continue
		}
		if n, _ := fmt.Sscanf(fe.Field, "experiences[%d].%s", &idx, &sub); n == 2 && idx < len(c.Experiences) {
			switch sub {
			case "start_date":
				c.Experiences[idx].StartDate = nil
			case "end_date":
				c.Experiences[idx].EndDate = nil
			}
		}
	}
}

// callLLM 调用LLM，对瞬时网络错误做指数退避重试
func (e *LLMCandidateExtractor) callLLM(ctx context.Context, messages []*einoschema.Message) (string, error) {
	maxRetries := 2
	retryDelay := 2 * time.Second

	var response *einoschema.Message
	var err error

	for retry := 0; retry <= maxRetries; retry++ {
		if retry > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				retryDelay *= 2
				e.logger.Printf("重试LLM调用 (第%d次)", retry)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, 90*time.Second)
		response, err = e.llmModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			break
		}

		if !isRetryableError(err) || retry >= maxRetries {
			return "", fmt.Errorf("LLM Generate失败: %w", err)
		}
	}

	return response.Content, nil
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503")
}

// parseResponse 从LLM响应中提取并反序列化候选人JSON
func (e *LLMCandidateExtractor) parseResponse(response string) (*types.TeachingCandidate, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		e.logger.Printf("无法从LLM响应中提取有效的JSON。原始响应: %.200s", response)
		return nil, fmt.Errorf("无法从LLM响应中提取有效的JSON")
	}

	var result types.TeachingCandidate
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}

	return &result, nil
}

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// extractJSON 从文本中提取JSON对象
func extractJSON(text string) string {
	matches := jsonFenceRe.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
