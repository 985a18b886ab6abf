package processor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/constants"
	"github.com/Apsidata-Solutions/sync-resume/internal/logger"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage/models"
	"github.com/Apsidata-Solutions/sync-resume/internal/tracing"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

// 定义tracer
var tracer = otel.Tracer("processor")

// ResumeService 定义简历处理服务的接口
// 提供统一的服务层接口，隐藏内部实现细节
type ResumeService interface {
	// ProcessUploadedResume 处理上传的简历，包括文本提取和内容去重
	ProcessUploadedResume(ctx context.Context, message storage.ResumeUploadedMessage) error

	// ProcessExtractionTasks 处理LLM提取任务，包括结构化提取、向量化和存储
	ProcessExtractionTasks(ctx context.Context, message storage.ResumeExtractionMessage) error

	// Components 返回内部组件集合，API层的搜索与邮件入口复用其中的嵌入器和分类器
	Components() *Components
}

// resumeServiceImpl 是ResumeService的实现
// 采用Facade模式，内部持有所有需要的组件，但不暴露给外部
type resumeServiceImpl struct {
	components *Components     // 组件依赖
	config     *config.Config  // 配置信息
	logger     *zerolog.Logger // 服务级logger
}

// NewResumeService 创建新的简历服务实例
func NewResumeService(ctx context.Context, cfg *config.Config, storageManager *storage.Storage, zlog *zerolog.Logger, opts ...ComponentOpt) (ResumeService, error) {
	if zlog == nil {
		defaultLogger := zerolog.Nop()
		zlog = &defaultLogger
	}

	// 组件内部使用标准log，桥接到zerolog的输出
	stdLogger := log.New(zlog, "[Components] ", 0)

	components, err := NewComponents(ctx, cfg, storageManager, stdLogger, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建组件失败: %w", err)
	}

	return &resumeServiceImpl{
		components: components,
		config:     cfg,
		logger:     zlog,
	}, nil
}

// Components 返回内部组件集合
func (rs *resumeServiceImpl) Components() *Components {
	return rs.components
}

// CheckComponentsInitialized 检查所有必要的组件是否已初始化
func (rs *resumeServiceImpl) CheckComponentsInitialized() error {
	if rs.components.Storage == nil {
		return ErrStorageNotInit
	}
	if rs.components.TextExtractor == nil {
		return ErrExtractorNotInit
	}
	if rs.components.CandidateExtractor == nil {
		return ErrExtractorNotInit
	}
	if rs.components.Embedder == nil {
		return ErrEmbedderNotInit
	}
	return nil
}

// ProcessUploadedResume 处理上传的简历
// 实现ResumeService接口
func (rs *resumeServiceImpl) ProcessUploadedResume(ctx context.Context, message storage.ResumeUploadedMessage) error {
	ctx, span := tracer.Start(ctx, "ProcessUploadedResume",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("candidate_id", message.CandidateID),
		attribute.String("source_channel", message.SourceChannel),
	)

	ctx = logger.WithCandidateID(ctx, message.CandidateID)
	zlog := logger.FromContext(ctx)

	zlog.Debug().Msg("开始处理上传的简历")

	if rs.components.Storage == nil {
		span.RecordError(ErrStorageNotInit)
		span.SetStatus(codes.Error, "存储未初始化")
		return ErrStorageNotInit
	}
	if rs.components.TextExtractor == nil {
		span.RecordError(ErrExtractorNotInit)
		span.SetStatus(codes.Error, "提取器未初始化")
		return ErrExtractorNotInit
	}

	// 使用数据库事务确保操作的原子性
	err := rs.components.Storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 更新初始状态为 PROCESSING
		if err := tx.Model(&models.Candidate{}).
			Where("candidate_id = ?", message.CandidateID).
			Update("processing_status", constants.StatusProcessing).Error; err != nil {
			zlog.Error().Err(err).Msg("更新候选人状态为PROCESSING失败")
			return fmt.Errorf("更新状态为%s失败: %w", constants.StatusProcessing, err)
		}

		// 2. 解析并去重
		ctx, parseSpan := tracer.Start(ctx, "ParseAndDeduplicateResume")
		text, textMD5Hex, err := rs.parseAndDeduplicateResume(ctx, tx, message)
		parseSpan.End()

		if err != nil {
			if errors.Is(err, ErrDuplicateContent) {
				zlog.Info().Msg("检测到重复内容，跳过处理")
				return nil // 内容重复走正常分支，事务提交CANCELLED状态
			}
			return err
		}

		// 3. 上传解析后的文本到MinIO
		span.AddEvent("uploading_to_minio")
		textObjectKey, err := rs.components.Storage.MinIO.UploadParsedText(ctx, message.CandidateID, text)
		if err != nil {
			zlog.Error().Err(err).Msg("上传解析后的文本到MinIO失败")
			return fmt.Errorf("上传解析文本失败: %w", err)
		}
		zlog.Debug().Str("object_key", textObjectKey).Msg("解析文本已上传到MinIO")

		// 4. 构建下一个队列的消息
		extractionMessage := storage.ResumeExtractionMessage{
			CandidateID:       message.CandidateID,
			ParsedTextPathOSS: textObjectKey,
		}

		// 5. [Outbox] 将消息写入 Outbox 表，而不是直接发布
		ctx, outboxSpan := tracer.Start(ctx, "WriteToOutbox")
		payloadBytes, err := json.Marshal(extractionMessage)
		if err != nil {
			zlog.Error().Err(err).Msg("序列化outbox payload失败")
			outboxSpan.RecordError(err)
			outboxSpan.SetStatus(codes.Error, "序列化失败")
			outboxSpan.End()
			return fmt.Errorf("序列化outbox payload失败: %w", err)
		}

		outboxEntry := models.OutboxMessage{
			AggregateID:      message.CandidateID,
			EventType:        "resume.parsed",
			Payload:          string(payloadBytes),
			TargetExchange:   rs.config.RabbitMQ.ResumeEventsExchange,
			TargetRoutingKey: rs.config.RabbitMQ.ExtractedRoutingKey,
		}

		if err := tx.Create(&outboxEntry).Error; err != nil {
			zlog.Error().Err(err).Msg("插入outbox记录失败")
			outboxSpan.RecordError(err)
			outboxSpan.SetStatus(codes.Error, "插入失败")
			outboxSpan.End()
			return fmt.Errorf("插入outbox记录失败: %w", err)
		}
		outboxSpan.End()
		zlog.Debug().Msg("成功创建outbox记录")

		// 6. 更新数据库记录
		if err := rs.components.Storage.MySQL.UpdateCandidateFields(tx, message.CandidateID, map[string]interface{}{
			"parsed_text_path": textObjectKey,
			"parsed_text_md5":  textMD5Hex,
			"parser_version":   constants.DefaultParserVer,
		}); err != nil {
			zlog.Error().Err(err).Msg("更新数据库记录失败")
			return fmt.Errorf("更新数据库失败: %w", err)
		}

		span.SetStatus(codes.Ok, "处理成功")
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rs.markFailed(ctx, message.CandidateID, err)
		return err
	}

	zlog.Info().Msg("上传任务处理成功完成")
	return nil
}

// parseAndDeduplicateResume 内部辅助方法，解析并检查简历文本是否重复
func (rs *resumeServiceImpl) parseAndDeduplicateResume(ctx context.Context, tx *gorm.DB, message storage.ResumeUploadedMessage) (string, string, error) {
	zlog := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)

	// 从MinIO获取原始简历文件
	originalFileBytes, err := rs.components.Storage.MinIO.GetResumeFile(ctx, message.OriginalFilePathOSS)
	if err != nil {
		zlog.Error().Err(err).Msg("从MinIO下载简历失败")
		span.SetAttributes(attribute.String("error.type", "download_failure"))
		return "", "", fmt.Errorf("下载简历失败: %w", err)
	}
	zlog.Debug().Int("size_bytes", len(originalFileBytes)).Msg("从MinIO下载简历成功")
	span.SetAttributes(attribute.Int("file_size_bytes", len(originalFileBytes)))

	// 提取文本
	text, _, err := rs.components.TextExtractor.ExtractTextFromBytes(ctx, originalFileBytes, message.OriginalFilePathOSS)
	if err != nil {
		zlog.Error().Err(err).Msg("提取简历文本失败")
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "extract_failure"))
		return "", "", fmt.Errorf("提取文本失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", "", ErrEmptyResumeText
	}
	zlog.Debug().Int("text_length", len(text)).Msg("成功提取文本")
	span.SetAttributes(attribute.Int("text_length", len(text)))
	span.AddEvent("text_extraction_completed")

	// 计算文本MD5用于去重
	sum := md5.Sum([]byte(text))
	textMD5Hex := hex.EncodeToString(sum[:])
	zlog.Debug().Str("md5", textMD5Hex).Msg("计算得到文本MD5")

	// 在Redis中原子地检查并登记文本MD5
	textExists, existingID, err := rs.components.Storage.Redis.CheckAndSetTextMD5(ctx, textMD5Hex, message.CandidateID)
	if err != nil {
		zlog.Warn().Err(err).Msg("Redis检查文本MD5失败，将继续处理，但文本去重可能失效")
	} else if textExists && existingID != message.CandidateID {
		zlog.Info().Str("md5", textMD5Hex).Str("existing_candidate_id", existingID).
			Msg("检测到重复的文本MD5，标记为重复内容")
		if err := rs.components.Storage.MySQL.UpdateCandidateFields(tx, message.CandidateID, map[string]interface{}{
			"processing_status": constants.StatusCancelled,
			"error_message":     fmt.Sprintf("内容与候选人 %s 重复", existingID),
		}); err != nil {
			return "", "", fmt.Errorf("更新重复内容状态失败: %w", err)
		}
		span.SetAttributes(
			attribute.Bool("duplicate_content", true),
			attribute.String("md5", textMD5Hex),
		)
		return "", "", ErrDuplicateContent
	}

	zlog.Debug().Msg("文本MD5不存在于Redis，继续处理")
	return text, textMD5Hex, nil
}

// 允许进入提取流程的状态集合
// SUCCESS/CANCELLED 表示已处理或已淘汰，视为重复消息直接确认
var allowedStatusesForExtraction = map[string]bool{
	constants.StatusPending:    true,
	constants.StatusProcessing: true,
	constants.StatusFailure:    true, // 允许失败后重试
}

// ProcessExtractionTasks 处理LLM提取任务
// 实现ResumeService接口
func (rs *resumeServiceImpl) ProcessExtractionTasks(ctx context.Context, message storage.ResumeExtractionMessage) error {
	ctx, span := tracer.Start(ctx, "ProcessExtractionTasks",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(attribute.String("candidate_id", message.CandidateID))

	ctx = logger.WithCandidateID(ctx, message.CandidateID)
	zlog := logger.FromContext(ctx).With().Str("method", "ProcessExtractionTasks").Logger()

	zlog.Debug().Msg("开始处理提取任务")

	if rs.components.Storage == nil {
		span.RecordError(ErrStorageNotInit)
		span.SetStatus(codes.Error, "存储未初始化")
		return ErrStorageNotInit
	}
	if rs.components.CandidateExtractor == nil {
		span.RecordError(ErrExtractorNotInit)
		span.SetStatus(codes.Error, "提取器未初始化")
		return ErrExtractorNotInit
	}
	if rs.components.Embedder == nil {
		span.RecordError(ErrEmbedderNotInit)
		span.SetStatus(codes.Error, "嵌入器未初始化")
		return ErrEmbedderNotInit
	}

	// 使用事务来保证读取-更新的原子性和幂等性
	skipped := false
	err := rs.components.Storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx, txSpan := tracer.Start(ctx, "GetAndLockCandidate")
		defer txSpan.End()

		// 1. 锁定候选人记录，防止并发处理
		var candidate models.Candidate
		if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("candidate_id = ?", message.CandidateID).
			First(&candidate).Error; err != nil {

			if errors.Is(err, gorm.ErrRecordNotFound) {
				zlog.Info().Msg("候选人记录未找到，可能已被删除")
				txSpan.SetStatus(codes.Ok, "记录不存在")
				skipped = true
				return nil // 记录不存在，直接确认消息
			}
			zlog.Error().Err(err).Msg("获取候选人记录失败")
			txSpan.RecordError(err)
			txSpan.SetStatus(codes.Error, "查询失败")
			return fmt.Errorf("获取候选人记录失败: %w", err)
		}

		// 2. 幂等性检查
		if !allowedStatusesForExtraction[candidate.ProcessingStatus] {
			zlog.Debug().Str("current_status", candidate.ProcessingStatus).Msg("跳过重复/无效状态的消息")
			span.SetAttributes(
				attribute.String("skipped_reason", "invalid_status"),
				attribute.String("current_status", candidate.ProcessingStatus),
			)
			skipped = true
			return nil
		}

		// 3. 更新状态为 PROCESSING，表示开始提取
		if err := tx.WithContext(ctx).Model(&candidate).
			Update("processing_status", constants.StatusProcessing).Error; err != nil {
			zlog.Error().Err(err).Msg("更新状态到PROCESSING失败")
			return fmt.Errorf("更新状态失败: %w", err)
		}
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "事务处理失败")
		return err
	}
	if skipped {
		span.SetStatus(codes.Ok, "跳过")
		return nil
	}

	// --- 事务外执行IO操作 (下载文本，LLM提取，向量化，写入Qdrant) ---
	extractionModel := rs.config.GetModelForTask("candidate_extraction")
	extractionStart := time.Now()
	ctx, extractSpan := tracer.Start(ctx, "DownloadAndExtractCandidate")
	candidate, err := rs.downloadAndExtractCandidate(ctx, message)
	if err != nil {
		tracing.RecordLLMError(extractSpan, err, "candidate_extraction", extractionModel)
		extractSpan.End()
		span.SetStatus(codes.Error, "下载或提取失败")
		rs.markExtractionFailed(ctx, message.CandidateID, err)
		return err
	}
	extractSpan.End()
	extractionMs := time.Since(extractionStart).Milliseconds()

	// 向量化画像文本
	profileText := BuildProfileText(candidate)
	ctx, embedSpan := tracer.Start(ctx, "EmbedProfile")
	embedSpan.SetAttributes(attribute.Int("profile_text_length", len(profileText)))
	vectors, err := rs.components.Embedder.EmbedStrings(ctx, []string{profileText})
	if err != nil {
		tracing.RecordErrorWithInfo(embedSpan, err, tracing.ErrorTypeLLM,
			attribute.String("llm.task", "embedding"))
		embedSpan.End()
		span.SetStatus(codes.Error, "向量化失败")
		rs.markExtractionFailed(ctx, message.CandidateID, fmt.Errorf("向量化失败: %w", err))
		return err
	}
	embedSpan.End()
	if len(vectors) != 1 {
		err := fmt.Errorf("嵌入结果数量异常: 期望1个，得到%d个", len(vectors))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rs.markExtractionFailed(ctx, message.CandidateID, err)
		return err
	}

	// 执行Qdrant写入
	if rs.components.Storage.Qdrant != nil {
		ctx, storeSpan := tracer.Start(ctx, "StoreVectorToQdrant")
		pointID, err := rs.components.Storage.Qdrant.UpsertCandidateVector(
			ctx, message.CandidateID, vectors[0], BuildVectorPayload(message.CandidateID, candidate))
		if err != nil {
			zlog.Error().Err(err).Msg("存储向量到Qdrant失败")
			storeSpan.RecordError(err)
			storeSpan.SetStatus(codes.Error, "存储失败")
			storeSpan.End()
			rs.markExtractionFailed(ctx, message.CandidateID, fmt.Errorf("存储向量失败: %w", err))
			return err
		}
		storeSpan.SetAttributes(attribute.String("qdrant.point_id", pointID))
		storeSpan.End()
		zlog.Debug().Str("point_id", pointID).Msg("成功存储向量到Qdrant")
	} else {
		zlog.Warn().Msg("Qdrant未初始化，跳过向量存储")
	}

	// 使用事务来保证最终的数据库更新
	ctx, finalTxSpan := tracer.Start(ctx, "ExecuteFinalTransaction")
	audit := buildExtractionAudit(message.CandidateID, extractionModel, extractionMs, nil)
	err = rs.components.Storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return rs.persistCandidateProfile(tx, message.CandidateID, candidate, audit)
	})
	finalTxSpan.End()

	if err != nil {
		zlog.Error().Err(err).Msg("提取流程最终事务失败")
		span.RecordError(err)
		span.SetStatus(codes.Error, "最终事务失败")
		rs.markExtractionFailed(ctx, message.CandidateID, err)
		return err
	}

	span.SetStatus(codes.Ok, "处理成功")
	zlog.Info().Msg("提取任务处理成功完成")
	return nil
}

// downloadAndExtractCandidate 下载简历文本并执行结构化提取
func (rs *resumeServiceImpl) downloadAndExtractCandidate(ctx context.Context, message storage.ResumeExtractionMessage) (*types.TeachingCandidate, error) {
	zlog := logger.FromContext(ctx)

	// 消息里带了文本则直接使用，否则从MinIO下载
	parsedText := message.ParsedText
	if parsedText == "" {
		var err error
		parsedText, err = rs.components.Storage.MinIO.GetParsedText(ctx, message.ParsedTextPathOSS)
		if err != nil {
			zlog.Error().Err(err).Str("object_key", message.ParsedTextPathOSS).Msg("从MinIO下载解析文本失败")
			return nil, fmt.Errorf("下载解析文本失败: %w", err)
		}
	}
	if strings.TrimSpace(parsedText) == "" {
		return nil, ErrEmptyResumeText
	}

	candidate, err := rs.components.CandidateExtractor.ExtractCandidate(ctx, parsedText)
	if err != nil {
		zlog.Error().Err(err).Msg("LLM提取候选人档案失败")
		return nil, fmt.Errorf("提取候选人档案失败: %w", err)
	}
	return candidate, nil
}

// persistCandidateProfile 在事务中落库结构化档案和提取审计
func (rs *resumeServiceImpl) persistCandidateProfile(tx *gorm.DB, candidateID string, candidate *types.TeachingCandidate, audit models.ExtractionAudit) error {
	profileJSON, err := models.ToJSON(candidate)
	if err != nil {
		return fmt.Errorf("序列化候选人档案失败: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"first_name":        deref(candidate.FirstName),
		"last_name":         deref(candidate.LastName),
		"email":             deref(candidate.Email),
		"mobile":            deref(candidate.Mobile),
		"city":              deref(candidate.City),
		"state":             deref(candidate.State),
		"pin_code":          deref(candidate.PinCode),
		"role":              deref(candidate.Role),
		"level":             deref(candidate.Level),
		"primary_skill":     deref(candidate.PrimarySkill),
		"secondary_skill":   deref(candidate.SecondarySkill),
		"tertiary_skill":    deref(candidate.TertiarySkill),
		"industry":          deref(candidate.Industry),
		"profile_json":      profileJSON,
		"processing_status": constants.StatusSuccess,
		"error_message":     "",
		"processed_at":      &now,
	}
	if err := rs.components.Storage.MySQL.UpdateCandidateFields(tx, candidateID, updates); err != nil {
		return fmt.Errorf("更新候选人字段失败: %w", err)
	}

	educations := buildEducationRows(candidateID, candidate.Education)
	if err := rs.components.Storage.MySQL.ReplaceCandidateEducations(tx, candidateID, educations); err != nil {
		return fmt.Errorf("写入教育经历失败: %w", err)
	}

	experiences, err := buildExperienceRows(candidateID, candidate.Experiences)
	if err != nil {
		return err
	}
	if err := rs.components.Storage.MySQL.ReplaceCandidateExperiences(tx, candidateID, experiences); err != nil {
		return fmt.Errorf("写入工作经历失败: %w", err)
	}

	if err := tx.Create(&audit).Error; err != nil {
		return fmt.Errorf("写入提取审计失败: %w", err)
	}
	return nil
}

// buildExtractionAudit 构建一次提取的审计记录
func buildExtractionAudit(candidateID, modelName string, durationMs int64, cause error) models.ExtractionAudit {
	audit := models.ExtractionAudit{
		CandidateID:   candidateID,
		ParserVersion: constants.DefaultParserVer,
		ModelName:     modelName,
		Status:        constants.StatusSuccess,
		DurationMs:    durationMs,
	}
	if cause != nil {
		audit.Status = constants.StatusFailure
		audit.ErrorMessage = truncateErrMsg(cause.Error())
	}
	return audit
}

// truncateErrMsg 错误信息截断后才能入库
func truncateErrMsg(msg string) string {
	if len(msg) > 1000 {
		return msg[:1000]
	}
	return msg
}

// markFailed 将候选人标记为失败状态，错误信息截断后入库
func (rs *resumeServiceImpl) markFailed(ctx context.Context, candidateID string, cause error) {
	zlog := logger.FromContext(ctx)

	errMsg := ""
	if cause != nil {
		errMsg = truncateErrMsg(cause.Error())
	}

	err := rs.components.Storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return rs.components.Storage.MySQL.UpdateCandidateFields(tx, candidateID, map[string]interface{}{
			"processing_status": constants.StatusFailure,
			"error_message":     errMsg,
		})
	})
	if err != nil {
		zlog.Error().Err(err).Msg("更新状态为FAILURE时出错")
	}
}

// markExtractionFailed 提取阶段失败时标记状态，失败审计与状态更新同一事务落库
func (rs *resumeServiceImpl) markExtractionFailed(ctx context.Context, candidateID string, cause error) {
	zlog := logger.FromContext(ctx)

	errMsg := ""
	if cause != nil {
		errMsg = truncateErrMsg(cause.Error())
	}

	err := rs.components.Storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rs.components.Storage.MySQL.UpdateCandidateFields(tx, candidateID, map[string]interface{}{
			"processing_status": constants.StatusFailure,
			"error_message":     errMsg,
		}); err != nil {
			return err
		}

		audit := buildExtractionAudit(candidateID, rs.config.GetModelForTask("candidate_extraction"), 0, cause)
		return tx.Create(&audit).Error
	})
	if err != nil {
		zlog.Error().Err(err).Msg("更新状态为FAILURE时出错")
	}
}

// BuildVectorPayload 构建Qdrant点位的筛选payload
// 只放入会被结构化过滤使用的字段
func BuildVectorPayload(candidateID string, c *types.TeachingCandidate) map[string]interface{} {
	payload := map[string]interface{}{
		"candidate_id": candidateID,
	}
	setIfPresent := func(key string, val *string) {
		if val != nil && *val != "" {
			payload[key] = *val
		}
	}
	setIfPresent("role", c.Role)
	setIfPresent("level", c.Level)
	setIfPresent("primary_skill", c.PrimarySkill)
	setIfPresent("city", c.City)
	setIfPresent("state", c.State)
	return payload
}

// BuildProfileText 将结构化档案拼为一段用于嵌入的文本
// 字段名入文，语义检索时query里的角色/学科词能命中
func BuildProfileText(c *types.TeachingCandidate) string {
	var b strings.Builder

	writeField := func(label string, val *string) {
		if val != nil && *val != "" {
			b.WriteString(label)
			b.WriteString(": ")
			b.WriteString(*val)
			b.WriteString("\n")
		}
	}

	name := strings.TrimSpace(deref(c.FirstName) + " " + deref(c.LastName))
	if name != "" {
		b.WriteString("Name: " + name + "\n")
	}
	writeField("Role", c.Role)
	writeField("Level", c.Level)
	writeField("Primary Skill", c.PrimarySkill)
	writeField("Secondary Skill", c.SecondarySkill)
	writeField("Tertiary Skill", c.TertiarySkill)
	writeField("Industry", c.Industry)
	writeField("City", c.City)
	writeField("State", c.State)
	writeField("Career Start", c.CareerStartDate)

	for _, edu := range c.Education {
		parts := []string{}
		for _, v := range []*string{edu.Degree, edu.Specialization, edu.University, edu.School} {
			if v != nil && *v != "" {
				parts = append(parts, *v)
			}
		}
		if len(parts) > 0 {
			b.WriteString("Education: " + strings.Join(parts, ", ") + "\n")
		}
	}

	for _, exp := range c.Experiences {
		parts := []string{}
		if exp.Designation != nil && *exp.Designation != "" {
			parts = append(parts, *exp.Designation)
		}
		if exp.Organisation != nil && *exp.Organisation != "" {
			parts = append(parts, "at "+*exp.Organisation)
		}
		if len(parts) > 0 {
			b.WriteString("Experience: " + strings.Join(parts, " ") + "\n")
		}
		for _, contrib := range exp.Contributions {
			if contrib.Result != "" {
				b.WriteString("Contribution: " + contrib.Result + "\n")
			}
			if contrib.SkillsApplied != "" {
				b.WriteString("Skills Applied: " + contrib.SkillsApplied + "\n")
			}
		}
	}

	return b.String()
}

// buildEducationRows 结构化教育经历转数据库行
func buildEducationRows(candidateID string, educations []types.Education) []models.CandidateEducation {
	rows := make([]models.CandidateEducation, 0, len(educations))
	for _, edu := range educations {
		rows = append(rows, models.CandidateEducation{
			CandidateID:    candidateID,
			Specialization: deref(edu.Specialization),
			School:         deref(edu.School),
			University:     deref(edu.University),
			Degree:         deref(edu.Degree),
			Country:        deref(edu.Country),
			StartDate:      deref(edu.StartDate),
			EndDate:        deref(edu.EndDate),
			Status:         deref(edu.Status),
		})
	}
	return rows
}

// buildExperienceRows 结构化工作经历转数据库行，STAR贡献序列化为JSON
func buildExperienceRows(candidateID string, experiences []types.Experience) ([]models.CandidateExperience, error) {
	rows := make([]models.CandidateExperience, 0, len(experiences))
	for i, exp := range experiences {
		contributionsJSON, err := models.ToJSON(exp.Contributions)
		if err != nil {
			return nil, fmt.Errorf("序列化第%d段经历的贡献失败: %w", i, err)
		}
		rows = append(rows, models.CandidateExperience{
			CandidateID:       candidateID,
			Organisation:      deref(exp.Organisation),
			Designation:       deref(exp.Designation),
			StartDate:         deref(exp.StartDate),
			EndDate:           deref(exp.EndDate),
			IsCurrent:         exp.CurrentJobOrNot,
			ContributionsJSON: contributionsJSON,
		})
	}
	return rows, nil
}

// deref 解引用字符串指针，nil时返回空串
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
