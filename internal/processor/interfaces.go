package processor

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/Apsidata-Solutions/sync-resume/internal/parser"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

// 处理流程中的可预期错误
var (
	// ErrStorageNotInit 存储层未初始化
	ErrStorageNotInit = errors.New("存储层未初始化")
	// ErrExtractorNotInit 提取器组件未初始化
	ErrExtractorNotInit = errors.New("提取器组件未初始化")
	// ErrEmbedderNotInit 嵌入器组件未初始化
	ErrEmbedderNotInit = errors.New("嵌入器组件未初始化")
	// ErrDuplicateContent 解析文本与已有候选人重复
	ErrDuplicateContent = errors.New("简历内容与已有记录重复")
	// ErrEmptyResumeText 解析出的简历文本为空
	ErrEmptyResumeText = errors.New("简历文本为空")
)

//
// 文本提取相关接口
//

// TextExtractor 从原始简历文件中提取纯文本
type TextExtractor interface {
	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error)
}

//
// 结构化提取相关接口
//

// CandidateExtractor 从简历文本中提取结构化候选人档案
type CandidateExtractor interface {
	// ExtractCandidate 提取并归一化候选人档案
	// 实现内部负责校验失败后的修复迭代
	ExtractCandidate(ctx context.Context, resumeText string) (*types.TeachingCandidate, error)
}

// EmailClassifier 邮件分类接口
type EmailClassifier interface {
	// Classify 判断一封邮件是否为求职申请
	Classify(ctx context.Context, sender, subject, body string, attachments []string) (*parser.EmailClassification, error)
}

//
// 向量嵌入相关接口
//

// TextEmbedder 文本向量化接口 (符合 cloudwego/eino 规范)
type TextEmbedder interface {
	// EmbedStrings 将文本转换为向量表示
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)

	// GetDimensions 返回嵌入向量的维度
	GetDimensions() int
}
