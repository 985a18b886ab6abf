package parser

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apsidata-Solutions/sync-resume/internal/normalizer"
)

// 测试用LLM模型模拟器，按脚本依次返回响应
type scriptedLLMModel struct {
	// 按调用顺序返回的响应，用完后重复最后一条
	responses []string
	// 记录收到的完整消息历史，用于断言修复提示
	calls [][]*schema.Message
	// 非空时Generate直接返回该错误
	Err error
}

func (m *scriptedLLMModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	m.calls = append(m.calls, messages)
	if m.Err != nil {
		return nil, m.Err
	}
	idx := len(m.calls) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &schema.Message{Role: "assistant", Content: m.responses[idx]}, nil
}

func (m *scriptedLLMModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("测试模拟器不支持流式响应")
}

func (m *scriptedLLMModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func (m *scriptedLLMModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// candidateJSON 组装一份最小的合法候选人JSON，按需覆盖字段
func candidateJSON(overrides map[string]string) string {
	fields := map[string]string{
		"first_name":        `"Priya"`,
		"last_name":         `"Sharma"`,
		"email":             `"priya.sharma@gmail.com"`,
		"mobile":            `"+91-9876543210"`,
		"date_of_birth":     `"15-06-1990"`,
		"pin_code":          `"110001"`,
		"city":              `"Delhi"`,
		"state":             `"Delhi"`,
		"career_start_date": `"07-2012"`,
		"role":              `"Teacher"`,
		"level":             `"TGT"`,
		"primary_skill":     `"Mathematics"`,
	}
	for k, v := range overrides {
		fields[k] = v
	}
	var b strings.Builder
	b.WriteString("{")
	first := true
	for k, v := range fields {
		if !first {
			b.WriteString(",")
		}
		first = false
		fmt.Fprintf(&b, "%q: %s", k, v)
	}
	b.WriteString("}")
	return b.String()
}

func TestExtractCandidateFirstPass(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{candidateJSON(nil)}}
	extractor := NewLLMCandidateExtractor(mock, nil, nil)

	candidate, err := extractor.ExtractCandidate(context.Background(), "Priya Sharma, TGT Mathematics teacher, Delhi")
	require.NoError(t, err, "首轮合法响应不应报错")
	require.NotNil(t, candidate)

	assert.Len(t, mock.calls, 1, "首轮通过时只应调用一次LLM")
	require.NotNil(t, candidate.FirstName)
	assert.Equal(t, "Priya", *candidate.FirstName)
	require.NotNil(t, candidate.Mobile)
	assert.Equal(t, "+91-9876543210", *candidate.Mobile)
	require.NotNil(t, candidate.Role)
	assert.Equal(t, "Teacher", *candidate.Role)
	require.NotNil(t, candidate.Level)
	assert.Equal(t, "TGT", *candidate.Level)
}

func TestExtractCandidateNormalizesBeforeValidation(t *testing.T) {
	// 手机号缺国家码、邮箱带大写和加号后缀，归一化应直接修掉，不触发修复轮
	mock := &scriptedLLMModel{responses: []string{candidateJSON(map[string]string{
		"mobile": `"98765 43210"`,
		"email":  `"Priya.Sharma+jobs@gmail.com"`,
	})}}
	extractor := NewLLMCandidateExtractor(mock, nil, nil)

	candidate, err := extractor.ExtractCandidate(context.Background(), "resume text")
	require.NoError(t, err)
	assert.Len(t, mock.calls, 1, "归一化能修复的问题不应消耗修复轮")

	require.NotNil(t, candidate.Mobile)
	assert.Equal(t, "+91-9876543210", *candidate.Mobile)
	require.NotNil(t, candidate.Email)
	assert.Equal(t, "priyasharma@gmail.com", *candidate.Email, "Gmail本地部分应去掉点号和加号后缀")
}

func TestExtractCandidateRepairLoop(t *testing.T) {
	// 首轮pin_code无效，第二轮修复
	mock := &scriptedLLMModel{responses: []string{
		candidateJSON(map[string]string{"pin_code": `"11000"`}),
		candidateJSON(nil),
	}}
	extractor := NewLLMCandidateExtractor(mock, nil, nil)

	candidate, err := extractor.ExtractCandidate(context.Background(), "resume text")
	require.NoError(t, err)
	require.Len(t, mock.calls, 2, "校验失败应触发一轮修复")

	// 第二次调用应携带修复提示
	secondCall := mock.calls[1]
	lastMsg := secondCall[len(secondCall)-1]
	assert.Equal(t, "user", string(lastMsg.Role))
	assert.Contains(t, lastMsg.Content, "pin_code", "修复提示应点名无效字段")
	assert.Contains(t, lastMsg.Content, "invalid field values")

	require.NotNil(t, candidate.PinCode)
	assert.Equal(t, "110001", *candidate.PinCode)
}

func TestExtractCandidateExhaustionClearsInvalidFields(t *testing.T) {
	// 所有轮次都返回无效的出生日期，耗尽后该字段应被置空而不是整体失败
	bad := candidateJSON(map[string]string{"date_of_birth": `"1990/06/15"`})
	mock := &scriptedLLMModel{responses: []string{bad}}
	extractor := NewLLMCandidateExtractor(mock, nil, nil, WithMaxIterations(2))

	candidate, err := extractor.ExtractCandidate(context.Background(), "resume text")
	require.NoError(t, err, "修复轮数耗尽不应让整次提取失败")
	require.NotNil(t, candidate)

	assert.Len(t, mock.calls, 2)
	assert.Nil(t, candidate.DateOfBirth, "耗尽后仍无效的字段应被置空")
	require.NotNil(t, candidate.FirstName, "其余字段应保留")
	assert.Equal(t, "Priya", *candidate.FirstName)
}

func TestExtractCandidateExhaustionClearsNestedFields(t *testing.T) {
	bad := candidateJSON(map[string]string{
		"education": `[{"degree": "B.Ed", "start_date": "June 2010", "end_date": "05-2012", "status": "completed"}]`,
	})
	mock := &scriptedLLMModel{responses: []string{bad}}
	extractor := NewLLMCandidateExtractor(mock, nil, nil, WithMaxIterations(1))

	candidate, err := extractor.ExtractCandidate(context.Background(), "resume text")
	require.NoError(t, err)
	require.Len(t, candidate.Education, 1)

	assert.Nil(t, candidate.Education[0].StartDate, "无效的嵌套日期应被置空")
	require.NotNil(t, candidate.Education[0].EndDate, "合法的嵌套日期应保留")
	assert.Equal(t, "05-2012", *candidate.Education[0].EndDate)
}

func TestExtractCandidateUnparseableLastIteration(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{"I cannot parse this resume, sorry."}}
	extractor := NewLLMCandidateExtractor(mock, nil, nil, WithMaxIterations(1))

	candidate, err := extractor.ExtractCandidate(context.Background(), "resume text")
	assert.Error(t, err, "最后一轮仍无法解析时应报错")
	assert.Nil(t, candidate)
}

func TestExtractCandidateUnparseableThenRecovers(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{
		"Sure, here is the profile without JSON.",
		"```json\n" + candidateJSON(nil) + "\n```",
	}}
	extractor := NewLLMCandidateExtractor(mock, nil, nil)

	candidate, err := extractor.ExtractCandidate(context.Background(), "resume text")
	require.NoError(t, err)
	require.Len(t, mock.calls, 2)

	secondCall := mock.calls[1]
	lastMsg := secondCall[len(secondCall)-1]
	assert.Contains(t, lastMsg.Content, "could not be parsed", "解析失败应原样反馈给LLM")
	require.NotNil(t, candidate.FirstName)
	assert.Equal(t, "Priya", *candidate.FirstName)
}

func TestExtractCandidateEmptyText(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{candidateJSON(nil)}}
	extractor := NewLLMCandidateExtractor(mock, nil, nil)

	_, err := extractor.ExtractCandidate(context.Background(), "   \n\t ")
	assert.Error(t, err, "空白简历文本应直接报错")
	assert.Empty(t, mock.calls, "空文本不应触发LLM调用")
}

func TestExtractCandidateLLMError(t *testing.T) {
	mock := &scriptedLLMModel{Err: fmt.Errorf("invalid api key")}
	extractor := NewLLMCandidateExtractor(mock, nil, nil)

	_, err := extractor.ExtractCandidate(context.Background(), "resume text")
	require.Error(t, err)
	assert.Len(t, mock.calls, 1, "非瞬时错误不应重试")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"裸JSON", `{"a": 1}`, `{"a": 1}`},
		{"markdown围栏", "Here you go:\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"前后有文字", `The profile: {"a": {"b": 2}} hope it helps`, `{"a": {"b": 2}}`},
		{"嵌套对象", `{"a": {"b": {"c": 3}}}`, `{"a": {"b": {"c": 3}}}`},
		{"无JSON", "no json here", ""},
		{"未闭合", `{"a": 1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.input))
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(fmt.Errorf("context deadline exceeded")))
	assert.True(t, isRetryableError(fmt.Errorf("http status 429 too many requests")))
	assert.True(t, isRetryableError(fmt.Errorf("connection refused")))
	assert.False(t, isRetryableError(fmt.Errorf("invalid api key")))
	assert.False(t, isRetryableError(nil))
}

func TestBuildRepairPrompt(t *testing.T) {
	errs := []normalizer.FieldError{
		{Field: "mobile", Message: `"12345" is not a valid mobile number`},
		{Field: "education[0].start_date", Message: `"June 2010" is not a valid date`},
	}
	prompt := buildRepairPrompt(errs)
	assert.Contains(t, prompt, "mobile:")
	assert.Contains(t, prompt, "education[0].start_date:")
	assert.Contains(t, prompt, "single JSON object")
}
