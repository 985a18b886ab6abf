package handler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/logger"
	"github.com/Apsidata-Solutions/sync-resume/internal/parser"
	"github.com/Apsidata-Solutions/sync-resume/internal/processor"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage/models"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// EmailHandler 邮箱接入处理器
// 入站邮件先由LLM分类，求职申请邮件的PDF附件进入简历流水线
type EmailHandler struct {
	cfg           *config.Config
	storage       *storage.Storage
	classifier    processor.EmailClassifier
	resumeHandler *ResumeHandler
}

// NewEmailHandler 创建邮箱接入处理器
func NewEmailHandler(cfg *config.Config, storage *storage.Storage, classifier processor.EmailClassifier, resumeHandler *ResumeHandler) *EmailHandler {
	return &EmailHandler{
		cfg:           cfg,
		storage:       storage,
		classifier:    classifier,
		resumeHandler: resumeHandler,
	}
}

// HandleInboundEmail 处理一封入站邮件
// POST /api/v1/email
// multipart字段: sender, subject, body, attachments(可多个)
func (h *EmailHandler) HandleInboundEmail(ctx context.Context, c *app.RequestContext) {
	sender := c.PostForm("sender")
	subject := c.PostForm("subject")
	body := c.PostForm("body")
	if sender == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "sender is required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "multipart form is required"})
		return
	}
	attachments := form.File["attachments"]

	attachmentNames := make([]string, 0, len(attachments))
	for _, a := range attachments {
		attachmentNames = append(attachmentNames, a.Filename)
	}

	classification, err := h.classifier.Classify(ctx, sender, subject, body, attachmentNames)
	if err != nil {
		logger.Error().Err(err).Str("sender", sender).Msg("邮件分类失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to classify email"})
		return
	}

	logger.Info().
		Str("sender", sender).
		Str("category", classification.Category).
		Bool("has_resume_attachment", classification.HasResumeAttachment).
		Msg("邮件分类完成")

	// 求职申请邮件的PDF附件逐个送入上传流程
	var uploadResponses []types.ResumeUploadResponse
	var firstCandidateID string
	if classification.Category == parser.EmailCategoryJobApplication && classification.HasResumeAttachment {
		for _, a := range attachments {
			if strings.ToLower(filepath.Ext(a.Filename)) != ".pdf" {
				continue
			}
			file, err := a.Open()
			if err != nil {
				logger.Warn().Err(err).Str("attachment", a.Filename).Msg("打开附件失败")
				uploadResponses = append(uploadResponses, types.ResumeUploadResponse{
					Status: types.StatusFailure,
					Error:  fmt.Sprintf("%s: failed to open attachment", a.Filename),
				})
				continue
			}
			resp, err := h.resumeHandler.HandleResumeUpload(ctx, file, a.Size, a.Filename, "", "email")
			file.Close()
			if err != nil {
				logger.Error().Err(err).Str("attachment", a.Filename).Msg("附件接入简历流水线失败")
				uploadResponses = append(uploadResponses, types.ResumeUploadResponse{
					Status: types.StatusFailure,
					Error:  fmt.Sprintf("%s: %v", a.Filename, err),
				})
				continue
			}
			if firstCandidateID == "" && resp.Status == types.StatusPending {
				firstCandidateID = resp.ID
			}
			uploadResponses = append(uploadResponses, *resp)
		}
	}

	entry := &models.EmailLog{
		Sender:   sender,
		Subject:  subject,
		Category: classification.Category,
		Reason:   classification.Reason,
	}
	if firstCandidateID != "" {
		entry.CandidateID = &firstCandidateID
	}
	if err := h.storage.MySQL.SaveEmailLog(ctx, entry); err != nil {
		// 分类结果已经返回给调用方，日志落库失败不影响附件的处理
		logger.Warn().Err(err).Str("sender", sender).Msg("保存邮件分类记录失败")
	}

	c.JSON(consts.StatusOK, utils.H{
		"category":              classification.Category,
		"reason":                classification.Reason,
		"has_resume_attachment": classification.HasResumeAttachment,
		"resumes":               uploadResponses,
	})
}
