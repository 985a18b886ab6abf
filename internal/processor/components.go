package processor

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/normalizer"
	"github.com/Apsidata-Solutions/sync-resume/internal/parser"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
)

// Components 聚合所有功能组件依赖，便于集中管理和测试替换
type Components struct {
	// 核心组件接口
	TextExtractor      TextExtractor      // 简历文本提取
	CandidateExtractor CandidateExtractor // 结构化档案提取
	Embedder           TextEmbedder       // 文本向量化
	EmailClassifier    EmailClassifier    // 邮件分类

	// 字段归一化器，API层的画像修改也复用它做词表校验
	Normalizer *normalizer.Normalizer

	// 存储层依赖
	Storage *storage.Storage // 聚合的存储服务
}

// ComponentOpt 组件选项，仅改变 Components 内的字段
type ComponentOpt func(*Components)

// WithTextExtractor 设置文本提取器组件
func WithTextExtractor(extractor TextExtractor) ComponentOpt {
	return func(c *Components) {
		c.TextExtractor = extractor
	}
}

// WithCandidateExtractor 设置结构化提取器组件
func WithCandidateExtractor(extractor CandidateExtractor) ComponentOpt {
	return func(c *Components) {
		c.CandidateExtractor = extractor
	}
}

// WithEmbedder 设置嵌入器组件
func WithEmbedder(embedder TextEmbedder) ComponentOpt {
	return func(c *Components) {
		c.Embedder = embedder
	}
}

// WithEmailClassifier 设置邮件分类器组件
func WithEmailClassifier(classifier EmailClassifier) ComponentOpt {
	return func(c *Components) {
		c.EmailClassifier = classifier
	}
}

// WithNormalizer 设置字段归一化器
func WithNormalizer(n *normalizer.Normalizer) ComponentOpt {
	return func(c *Components) {
		c.Normalizer = n
	}
}

// WithComponentStorage 设置存储组件
func WithComponentStorage(s *storage.Storage) ComponentOpt {
	return func(c *Components) {
		c.Storage = s
	}
}

// NewComponents 按配置装配默认组件，选项可覆盖任意一项
// 城市主数据从MySQL加载，加载失败时退回内置词表
func NewComponents(ctx context.Context, cfg *config.Config, s *storage.Storage, compLogger *log.Logger, opts ...ComponentOpt) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if compLogger == nil {
		compLogger = log.New(io.Discard, "", 0)
	}

	comps := &Components{Storage: s}
	for _, opt := range opts {
		opt(comps)
	}

	if comps.TextExtractor == nil {
		extractor, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(compLogger))
		if err != nil {
			return nil, fmt.Errorf("初始化PDF文本提取器失败: %w", err)
		}
		comps.TextExtractor = extractor
	}

	var normOpts []normalizer.Option
	if comps.Normalizer == nil && s != nil && s.MySQL != nil {
		if cities, err := s.MySQL.LoadCities(ctx); err != nil {
			compLogger.Printf("[Components] 加载城市主数据失败，使用内置词表: %v", err)
		} else if len(cities) > 0 {
			entries := make([]normalizer.City, 0, len(cities))
			for _, c := range cities {
				entries = append(entries, normalizer.City{Name: c.Name, State: c.State})
			}
			normOpts = append(normOpts, normalizer.WithCities(entries))
		}
	}
	if comps.Normalizer == nil {
		comps.Normalizer = normalizer.New(normOpts...)
	}
	norm := comps.Normalizer

	if comps.CandidateExtractor == nil {
		chatModel, err := parser.NewOpenAIChatModel(
			cfg.LLM.APIKey,
			cfg.GetModelForTask("candidate_extraction"),
			cfg.LLM.BaseURL,
			parser.WithTemperature(float32(cfg.Extractor.Temperature)),
			parser.WithMaxTokens(cfg.Extractor.MaxTokens),
			parser.WithChatLogger(compLogger),
		)
		if err != nil {
			return nil, fmt.Errorf("初始化提取用LLM失败: %w", err)
		}
		comps.CandidateExtractor = parser.NewLLMCandidateExtractor(chatModel, norm, compLogger,
			parser.WithMaxIterations(cfg.Extractor.MaxIterations))
	}

	if comps.Embedder == nil {
		embedder, err := parser.NewOpenAIEmbedder(cfg.LLM.APIKey, cfg.LLM.Embedding)
		if err != nil {
			return nil, fmt.Errorf("初始化嵌入器失败: %w", err)
		}
		comps.Embedder = embedder
	}

	if comps.EmailClassifier == nil {
		classifierModel, err := parser.NewOpenAIChatModel(
			cfg.LLM.APIKey,
			cfg.GetModelForTask("email_classification"),
			cfg.LLM.BaseURL,
			parser.WithChatLogger(compLogger),
		)
		if err != nil {
			return nil, fmt.Errorf("初始化分类用LLM失败: %w", err)
		}
		comps.EmailClassifier = parser.NewLLMEmailClassifier(classifierModel, compLogger)
	}

	return comps, nil
}
