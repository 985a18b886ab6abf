package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyJobApplication(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{
		`{"category": "job_application", "reason": "Candidate applying for TGT Mathematics position with resume attached.", "has_resume_attachment": true}`,
	}}
	classifier := NewLLMEmailClassifier(mock, nil)

	result, err := classifier.Classify(context.Background(),
		"priya.sharma@gmail.com",
		"Application for TGT Mathematics",
		"Dear Sir, please find my resume attached.",
		[]string{"Priya_Sharma_Resume.pdf"})
	require.NoError(t, err)

	assert.Equal(t, EmailCategoryJobApplication, result.Category)
	assert.True(t, result.HasResumeAttachment)
	assert.NotEmpty(t, result.Reason)

	// 提示词应包含邮件的各要素
	require.Len(t, mock.calls, 1)
	prompt := mock.calls[0][0].Content
	assert.Contains(t, prompt, "priya.sharma@gmail.com")
	assert.Contains(t, prompt, "Application for TGT Mathematics")
	assert.Contains(t, prompt, "Priya_Sharma_Resume.pdf")
}

func TestClassifyNoAttachments(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{
		`{"category": "inquiry", "reason": "Asking about vacancies.", "has_resume_attachment": false}`,
	}}
	classifier := NewLLMEmailClassifier(mock, nil)

	result, err := classifier.Classify(context.Background(),
		"parent@example.com", "Vacancies?", "Do you have PRT openings?", nil)
	require.NoError(t, err)

	assert.Equal(t, EmailCategoryInquiry, result.Category)
	assert.False(t, result.HasResumeAttachment)
	assert.Contains(t, mock.calls[0][0].Content, "Attachments: none", "无附件时应明确标注none")
}

func TestClassifyUnknownCategoryFallsBackToOther(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{
		`{"category": "newsletter", "reason": "Weekly digest.", "has_resume_attachment": false}`,
	}}
	classifier := NewLLMEmailClassifier(mock, nil)

	result, err := classifier.Classify(context.Background(), "news@example.com", "Digest", "...", nil)
	require.NoError(t, err)
	assert.Equal(t, EmailCategoryOther, result.Category, "未知分类应归入other")
}

func TestClassifyFencedResponse(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{
		"```json\n{\"category\": \"spam\", \"reason\": \"Marketing blast.\", \"has_resume_attachment\": false}\n```",
	}}
	classifier := NewLLMEmailClassifier(mock, nil)

	result, err := classifier.Classify(context.Background(), "promo@example.com", "50% off!", "Buy now", nil)
	require.NoError(t, err)
	assert.Equal(t, EmailCategorySpam, result.Category)
}

func TestClassifyInvalidResponse(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{"I am not sure about this email."}}
	classifier := NewLLMEmailClassifier(mock, nil)

	_, err := classifier.Classify(context.Background(), "a@b.com", "hi", "body", nil)
	assert.Error(t, err, "无法提取JSON时应报错")
}

func TestClassifyTruncatesLongBody(t *testing.T) {
	mock := &scriptedLLMModel{responses: []string{
		`{"category": "other", "reason": "Long mail.", "has_resume_attachment": false}`,
	}}
	classifier := NewLLMEmailClassifier(mock, nil)

	longBody := strings.Repeat("x", 10000)
	_, err := classifier.Classify(context.Background(), "a@b.com", "long", longBody, nil)
	require.NoError(t, err)

	prompt := mock.calls[0][0].Content
	assert.Less(t, len(prompt), 6000, "超长正文应被截断后再进提示词")
}
