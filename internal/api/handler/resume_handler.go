package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/constants"
	"github.com/Apsidata-Solutions/sync-resume/internal/logger"
	"github.com/Apsidata-Solutions/sync-resume/internal/processor"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage/models"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"

	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

// ResumeHandler 简历接入处理器，负责上传入库和消费者的启动
type ResumeHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	service processor.ResumeService
}

// NewResumeHandler 创建一个新的简历接入处理器
func NewResumeHandler(cfg *config.Config, storage *storage.Storage, service processor.ResumeService) *ResumeHandler {
	return &ResumeHandler{
		cfg:     cfg,
		storage: storage,
		service: service,
	}
}

// HandleResumeUpload 处理单份简历的接入
// requestedID为空时生成新的候选人ID；去重命中时返回CANCELLED和已存在的候选人ID
func (h *ResumeHandler) HandleResumeUpload(ctx context.Context, reader io.Reader, fileSize int64,
	filename string, requestedID string, sourceChannel string) (*types.ResumeUploadResponse, error) {

	if fileSize > constants.MaxUploadSizeBytes {
		return &types.ResumeUploadResponse{
			Status: types.StatusFailure,
			Error:  fmt.Sprintf("file exceeds the %dMB size limit", constants.MaxUploadSizeBytes>>20),
		}, nil
	}

	// reader只能读一次，先整体读入以便计算MD5并复用
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}

	candidateID := requestedID
	if candidateID == "" {
		uuidV7, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
		}
		candidateID = constants.CandidateIDPrefix + uuidV7.String()
	}

	// 原始文件MD5去重，检查与登记在Lua脚本中原子完成
	sum := md5.Sum(fileBytes)
	fileMD5Hex := hex.EncodeToString(sum[:])

	exists, existingID, err := h.storage.Redis.CheckAndSetFileMD5(ctx, fileMD5Hex, candidateID)
	if err != nil {
		logger.Error().Err(err).Str("md5", fileMD5Hex).Msg("查询Redis文件MD5失败")
		return nil, fmt.Errorf("检查文件MD5重复性失败: %w", err)
	}
	if exists {
		logger.Info().
			Str("md5", fileMD5Hex).
			Str("filename", filename).
			Str("existing_candidate_id", existingID).
			Msg("检测到重复的文件MD5，跳过处理")
		return &types.ResumeUploadResponse{
			Status: types.StatusCancelled,
			ID:     existingID,
			Error:  "duplicate of an already uploaded file",
		}, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}

	objectKey, err := h.storage.MinIO.UploadResumeFile(ctx, candidateID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		h.rollbackFileMD5(ctx, fileMD5Hex)
		return nil, fmt.Errorf("上传简历到MinIO失败: %w", err)
	}

	message := storage.ResumeUploadedMessage{
		CandidateID:         candidateID,
		UploadTimestamp:     time.Now(),
		OriginalFilename:    filename,
		OriginalFilePathOSS: objectKey,
		RawFileMD5:          fileMD5Hex,
		SourceChannel:       sourceChannel,
		ContentType:         contentTypeForExt(ext),
	}
	payload, err := json.Marshal(message)
	if err != nil {
		h.rollbackFileMD5(ctx, fileMD5Hex)
		return nil, fmt.Errorf("序列化上传消息失败: %w", err)
	}

	// 候选人快照和出站消息在同一个事务内落库，由中继异步投递
	err = h.storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := &models.Candidate{
			CandidateID:      candidateID,
			OriginalFilename: filename,
			ResumePathOSS:    objectKey,
			RawFileMD5:       fileMD5Hex,
			ProcessingStatus: constants.StatusPending,
		}
		if err := h.storage.MySQL.CreateCandidate(ctx, tx, candidate); err != nil {
			return fmt.Errorf("创建候选人记录失败: %w", err)
		}

		outboxMsg := &models.OutboxMessage{
			AggregateID:      candidateID,
			EventType:        "resume.uploaded",
			Payload:          string(payload),
			TargetExchange:   h.cfg.RabbitMQ.ResumeEventsExchange,
			TargetRoutingKey: h.cfg.RabbitMQ.UploadedRoutingKey,
		}
		if err := h.storage.MySQL.CreateOutboxMessage(tx, outboxMsg); err != nil {
			return fmt.Errorf("写入出站消息失败: %w", err)
		}
		return nil
	})
	if err != nil {
		h.rollbackFileMD5(ctx, fileMD5Hex)
		return nil, err
	}

	logger.Info().
		Str("candidate_id", candidateID).
		Str("filename", filename).
		Str("source_channel", sourceChannel).
		Msg("简历已接收，等待处理")

	return &types.ResumeUploadResponse{
		Status: types.StatusPending,
		ID:     candidateID,
	}, nil
}

// rollbackFileMD5 入库失败时撤销已登记的文件MD5，避免污染去重记录
func (h *ResumeHandler) rollbackFileMD5(ctx context.Context, md5Hex string) {
	if err := h.storage.Redis.RemoveFileMD5(ctx, md5Hex); err != nil {
		logger.Warn().Err(err).Str("md5", md5Hex).Msg("回滚文件MD5记录失败")
	}
}

// HandleBatchUpload 处理ZIP批量上传，逐个文件给出处理结果
// 非PDF文件不会中断整批处理，在对应条目中标记为cancelled
func (h *ResumeHandler) HandleBatchUpload(ctx context.Context, zipBytes []byte, sourceChannel string) (*types.BatchUploadResponse, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("打开ZIP文件失败: %w", err)
	}

	resp := &types.BatchUploadResponse{}
	for _, f := range zipReader.File {
		if f.FileInfo().IsDir() || isIgnorableZipEntry(f.Name) {
			continue
		}

		if resp.Total >= constants.MaxBatchFiles {
			logger.Warn().Int("max", constants.MaxBatchFiles).Msg("ZIP中的文件数超出上限，剩余条目被忽略")
			break
		}
		resp.Total++

		entryName := filepath.Base(f.Name)
		if strings.ToLower(filepath.Ext(entryName)) != ".pdf" {
			resp.Rejected++
			resp.Responses = append(resp.Responses, types.ResumeUploadResponse{
				Status: types.StatusCancelled,
				Error:  fmt.Sprintf("%s: not a PDF file", entryName),
			})
			continue
		}

		rc, err := f.Open()
		if err != nil {
			resp.Rejected++
			resp.Responses = append(resp.Responses, types.ResumeUploadResponse{
				Status: types.StatusFailure,
				Error:  fmt.Sprintf("%s: failed to read zip entry", entryName),
			})
			continue
		}

		entryResp, err := h.HandleResumeUpload(ctx, rc, int64(f.UncompressedSize64), entryName, "", sourceChannel)
		rc.Close()
		if err != nil {
			logger.Error().Err(err).Str("entry", entryName).Msg("批量上传中单个文件处理失败")
			resp.Rejected++
			resp.Responses = append(resp.Responses, types.ResumeUploadResponse{
				Status: types.StatusFailure,
				Error:  fmt.Sprintf("%s: %v", entryName, err),
			})
			continue
		}

		if entryResp.Status == types.StatusPending {
			resp.Accepted++
		} else {
			resp.Rejected++
		}
		resp.Responses = append(resp.Responses, *entryResp)
	}

	logger.Info().
		Int("total", resp.Total).
		Int("accepted", resp.Accepted).
		Int("rejected", resp.Rejected).
		Msg("批量上传处理完成")
	return resp, nil
}

// isIgnorableZipEntry 过滤压缩工具产生的隐藏条目
func isIgnorableZipEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(filepath.Base(name), ".")
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// StartResumeUploadConsumer 启动简历上传消费者，消费解析阶段的消息
func (h *ResumeHandler) StartResumeUploadConsumer(ctx context.Context, prefetchCount int) error {
	if err := h.ensureTopology(h.cfg.RabbitMQ.RawResumeQueue, h.cfg.RabbitMQ.UploadedRoutingKey); err != nil {
		return err
	}

	logger.Info().
		Str("queue", h.cfg.RabbitMQ.RawResumeQueue).
		Int("prefetch", prefetchCount).
		Msg("简历上传消费者就绪")

	_, err := h.storage.RabbitMQ.StartConsumer(h.cfg.RabbitMQ.RawResumeQueue, prefetchCount, func(data []byte) bool {
		var message storage.ResumeUploadedMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Error().Err(err).Msg("解析上传消息失败，消息将被重新入队")
			return false
		}

		if err := h.service.ProcessUploadedResume(ctx, message); err != nil {
			logger.Error().Err(err).Str("candidate_id", message.CandidateID).Msg("处理上传简历失败")
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("启动简历上传消费者失败: %w", err)
	}
	return nil
}

// StartExtractionConsumer 启动结构化提取消费者
func (h *ResumeHandler) StartExtractionConsumer(ctx context.Context, prefetchCount int) error {
	if err := h.ensureTopology(h.cfg.RabbitMQ.ExtractionQueue, h.cfg.RabbitMQ.ExtractedRoutingKey); err != nil {
		return err
	}

	logger.Info().
		Str("queue", h.cfg.RabbitMQ.ExtractionQueue).
		Int("prefetch", prefetchCount).
		Msg("结构化提取消费者就绪")

	_, err := h.storage.RabbitMQ.StartConsumer(h.cfg.RabbitMQ.ExtractionQueue, prefetchCount, func(data []byte) bool {
		var message storage.ResumeExtractionMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Error().Err(err).Msg("解析提取消息失败，消息将被重新入队")
			return false
		}

		err := h.service.ProcessExtractionTasks(ctx, message)
		if err != nil {
			// 内容重复属于正常终态，确认消息避免死循环
			if errors.Is(err, processor.ErrDuplicateContent) {
				return true
			}
			logger.Error().Err(err).Str("candidate_id", message.CandidateID).Msg("处理提取任务失败")
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("启动结构化提取消费者失败: %w", err)
	}
	return nil
}

func (h *ResumeHandler) ensureTopology(queueName, routingKey string) error {
	if err := h.storage.RabbitMQ.EnsureExchange(h.cfg.RabbitMQ.ResumeEventsExchange, "direct", true); err != nil {
		return fmt.Errorf("确保交换机存在失败: %w", err)
	}
	if err := h.storage.RabbitMQ.EnsureQueue(queueName, true); err != nil {
		return fmt.Errorf("确保队列存在失败: %w", err)
	}
	if err := h.storage.RabbitMQ.BindQueue(queueName, h.cfg.RabbitMQ.ResumeEventsExchange, routingKey); err != nil {
		return fmt.Errorf("绑定队列失败: %w", err)
	}
	return nil
}
