package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/logger"
	"github.com/Apsidata-Solutions/sync-resume/internal/normalizer"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage/models"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"
)

// 简历下载链接的有效期
const presignedURLExpiry = time.Hour

// CandidateHandler 候选人档案的查询与维护接口
type CandidateHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	norm    *normalizer.Normalizer
}

// NewCandidateHandler 创建候选人档案处理器
func NewCandidateHandler(cfg *config.Config, storage *storage.Storage, norm *normalizer.Normalizer) *CandidateHandler {
	if norm == nil {
		norm = normalizer.New()
	}
	return &CandidateHandler{
		cfg:     cfg,
		storage: storage,
		norm:    norm,
	}
}

// HandleGetCandidate 获取候选人档案
// GET /api/v1/resume/:id
func (h *CandidateHandler) HandleGetCandidate(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")
	if candidateID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "id is required"})
		return
	}

	candidate, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": fmt.Sprintf("candidate %s not found", candidateID)})
			return
		}
		logger.Error().Err(err).Str("candidate_id", candidateID).Msg("查询候选人失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to load candidate"})
		return
	}

	educations, err := h.storage.MySQL.GetCandidateEducations(ctx, candidateID)
	if err != nil {
		logger.Error().Err(err).Str("candidate_id", candidateID).Msg("查询教育经历失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to load candidate"})
		return
	}
	experiences, err := h.storage.MySQL.GetCandidateExperiences(ctx, candidateID)
	if err != nil {
		logger.Error().Err(err).Str("candidate_id", candidateID).Msg("查询工作经历失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to load candidate"})
		return
	}

	// 下载链接生成失败不阻塞档案返回
	var resumeURL string
	if candidate.ResumePathOSS != "" {
		resumeURL, err = h.storage.MinIO.GetPresignedURL(ctx, candidate.ResumePathOSS, presignedURLExpiry)
		if err != nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("生成简历下载链接失败")
		}
	}

	c.JSON(consts.StatusOK, utils.H{
		"id":                candidate.CandidateID,
		"first_name":        candidate.FirstName,
		"last_name":         candidate.LastName,
		"email":             candidate.Email,
		"mobile":            candidate.Mobile,
		"city":              candidate.City,
		"state":             candidate.State,
		"pin_code":          candidate.PinCode,
		"role":              candidate.Role,
		"level":             candidate.Level,
		"primary_skill":     candidate.PrimarySkill,
		"secondary_skill":   candidate.SecondarySkill,
		"tertiary_skill":    candidate.TertiarySkill,
		"industry":          candidate.Industry,
		"processing_status": candidate.ProcessingStatus,
		"error_message":     candidate.ErrorMessage,
		"original_filename": candidate.OriginalFilename,
		"uploaded_at":       candidate.CreatedAt,
		"processed_at":      candidate.ProcessedAt,
		"profile":           candidate.ProfileJSON,
		"educations":        educationRows(educations),
		"experiences":       experienceRows(experiences),
		"resume_url":        resumeURL,
	})
}

func educationRows(educations []models.CandidateEducation) []utils.H {
	rows := make([]utils.H, 0, len(educations))
	for _, e := range educations {
		rows = append(rows, utils.H{
			"specialization": e.Specialization,
			"school":         e.School,
			"university":     e.University,
			"degree":         e.Degree,
			"country":        e.Country,
			"start_date":     e.StartDate,
			"end_date":       e.EndDate,
			"status":         e.Status,
		})
	}
	return rows
}

func experienceRows(experiences []models.CandidateExperience) []utils.H {
	rows := make([]utils.H, 0, len(experiences))
	for _, e := range experiences {
		rows = append(rows, utils.H{
			"organisation":  e.Organisation,
			"designation":   e.Designation,
			"start_date":    e.StartDate,
			"end_date":      e.EndDate,
			"is_current":    e.IsCurrent,
			"contributions": e.ContributionsJSON,
		})
	}
	return rows
}

// HandlePatchCandidate 人工修正候选人画像字段
// PATCH /api/v1/resume/:id
// 画像字段先做词表归一化，匹配不到的值直接拒绝，保证搜索过滤条件始终有效
func (h *CandidateHandler) HandlePatchCandidate(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")
	if candidateID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "id is required"})
		return
	}

	var patch types.CandidatePatch
	if err := c.BindAndValidate(&patch); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	candidate, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": fmt.Sprintf("candidate %s not found", candidateID)})
			return
		}
		logger.Error().Err(err).Str("candidate_id", candidateID).Msg("查询候选人失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to load candidate"})
		return
	}

	updates, vectorPayload, err := h.buildPatchUpdates(candidate, &patch)
	if err != nil {
		c.JSON(consts.StatusUnprocessableEntity, utils.H{"error": err.Error()})
		return
	}
	if len(updates) == 0 {
		c.JSON(consts.StatusOK, utils.H{"id": candidateID, "updated": []string{}})
		return
	}

	if err := h.storage.MySQL.UpdateCandidateFields(h.storage.MySQL.DB().WithContext(ctx), candidateID, updates); err != nil {
		logger.Error().Err(err).Str("candidate_id", candidateID).Msg("更新候选人字段失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to update candidate"})
		return
	}

	// 同步向量载荷，保证语义搜索的过滤条件与数据库一致
	if h.storage.Qdrant != nil && len(vectorPayload) > 0 {
		if err := h.storage.Qdrant.UpdateCandidatePayload(ctx, candidateID, vectorPayload); err != nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("同步向量载荷失败")
		}
	}

	updatedFields := make([]string, 0, len(updates))
	for field := range updates {
		updatedFields = append(updatedFields, field)
	}
	c.JSON(consts.StatusOK, utils.H{"id": candidateID, "updated": updatedFields})
}

// buildPatchUpdates 校验并归一化PATCH的字段，返回数据库更新和需要同步到向量载荷的部分
func (h *CandidateHandler) buildPatchUpdates(candidate *models.Candidate, patch *types.CandidatePatch) (map[string]interface{}, map[string]interface{}, error) {
	updates := make(map[string]interface{})
	vectorPayload := make(map[string]interface{})

	if patch.Role != nil {
		matched := h.norm.MatchRole(*patch.Role, normalizer.StrategyProgressive)
		if matched == "" {
			return nil, nil, fmt.Errorf("role %q is not in the master vocabulary", *patch.Role)
		}
		updates["role"] = matched
		vectorPayload["role"] = matched
	}
	if patch.Level != nil {
		matched := h.norm.MatchLevel(*patch.Level, normalizer.StrategyProgressive)
		if matched == "" {
			return nil, nil, fmt.Errorf("level %q is not in the master vocabulary", *patch.Level)
		}
		updates["level"] = matched
		vectorPayload["level"] = matched
	}
	if patch.PrimarySkill != nil {
		matched := h.norm.MatchSkill(*patch.PrimarySkill, normalizer.StrategyProgressive)
		if matched == "" {
			return nil, nil, fmt.Errorf("primary skill %q is not in the master vocabulary", *patch.PrimarySkill)
		}
		updates["primary_skill"] = matched
		vectorPayload["primary_skill"] = matched
	}
	if patch.SecondarySkill != nil {
		matched := h.norm.MatchSkill(*patch.SecondarySkill, normalizer.StrategyProgressive)
		if matched == "" {
			return nil, nil, fmt.Errorf("secondary skill %q is not in the master vocabulary", *patch.SecondarySkill)
		}
		updates["secondary_skill"] = matched
	}
	if patch.TertiarySkill != nil {
		matched := h.norm.MatchSkill(*patch.TertiarySkill, normalizer.StrategyProgressive)
		if matched == "" {
			return nil, nil, fmt.Errorf("tertiary skill %q is not in the master vocabulary", *patch.TertiarySkill)
		}
		updates["tertiary_skill"] = matched
	}

	if patch.City != nil || patch.State != nil {
		city := candidate.City
		state := candidate.State
		if patch.City != nil {
			city = *patch.City
		}
		if patch.State != nil {
			state = *patch.State
		}
		matched := h.norm.MatchCity(city, state)
		if matched == "" {
			return nil, nil, fmt.Errorf("city %q (state %q) is not recognized", city, state)
		}
		updates["city"] = matched
		updates["state"] = state
		vectorPayload["city"] = matched
		vectorPayload["state"] = state
	}

	if patch.Email != nil {
		sanitized := h.norm.SanitizeEmail(*patch.Email)
		if !normalizer.IsValidEmail(sanitized) {
			return nil, nil, fmt.Errorf("email %q is not valid", *patch.Email)
		}
		updates["email"] = sanitized
	}
	if patch.Mobile != nil {
		sanitized := h.norm.SanitizeNumber(*patch.Mobile)
		if !normalizer.IsValidMobile(sanitized) {
			return nil, nil, fmt.Errorf("mobile %q is not valid", *patch.Mobile)
		}
		updates["mobile"] = sanitized
	}
	if patch.PinCode != nil {
		if !normalizer.IsValidPin(*patch.PinCode) {
			return nil, nil, fmt.Errorf("pin code %q is not valid", *patch.PinCode)
		}
		updates["pin_code"] = *patch.PinCode
	}

	return updates, vectorPayload, nil
}

// HandleDeleteCandidate 删除单个候选人
// DELETE /api/v1/resume/:id
func (h *CandidateHandler) HandleDeleteCandidate(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")
	if candidateID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "id is required"})
		return
	}

	if err := h.deleteCandidate(ctx, candidateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": fmt.Sprintf("candidate %s not found", candidateID)})
			return
		}
		logger.Error().Err(err).Str("candidate_id", candidateID).Msg("删除候选人失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to delete candidate"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"id": candidateID, "deleted": true})
}

// HandleBatchDelete 批量删除候选人，逐个给出结果
// DELETE /api/v1/resume/batch
func (h *CandidateHandler) HandleBatchDelete(ctx context.Context, c *app.RequestContext) {
	var req types.BatchDeleteRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if len(req.IDs) == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "ids is required"})
		return
	}

	resp := types.BatchDeleteResponse{Failed: make(map[string]string)}
	for _, id := range req.IDs {
		if err := h.deleteCandidate(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				resp.Failed[id] = "not found"
			} else {
				logger.Error().Err(err).Str("candidate_id", id).Msg("批量删除中单个候选人删除失败")
				resp.Failed[id] = err.Error()
			}
			continue
		}
		resp.Deleted = append(resp.Deleted, id)
	}

	c.JSON(consts.StatusOK, resp)
}

// deleteCandidate 删除数据库记录、对象存储文件、向量和去重记录
// 数据库删除成功后，外围清理失败只记录日志，不回滚删除
func (h *CandidateHandler) deleteCandidate(ctx context.Context, candidateID string) error {
	candidate, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		return err
	}

	err = h.storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := h.storage.MySQL.DeleteCandidate(tx, candidateID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	if candidate.ResumePathOSS != "" {
		if err := h.storage.MinIO.DeleteResumeFile(ctx, candidate.ResumePathOSS); err != nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("删除原始简历文件失败")
		}
	}
	if candidate.ParsedTextPath != "" {
		if err := h.storage.MinIO.DeleteParsedText(ctx, candidate.ParsedTextPath); err != nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("删除解析文本失败")
		}
	}
	if h.storage.Qdrant != nil {
		if err := h.storage.Qdrant.DeleteCandidateVector(ctx, candidateID); err != nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("删除候选人向量失败")
		}
	}

	if candidate.RawFileMD5 != "" {
		if err := h.storage.Redis.RemoveFileMD5(ctx, candidate.RawFileMD5); err != nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("清理文件MD5去重记录失败")
		}
	}
	if candidate.ParsedTextMD5 != "" {
		if err := h.storage.Redis.RemoveTextMD5(ctx, candidate.ParsedTextMD5); err != nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("清理文本MD5去重记录失败")
		}
	}

	logger.Info().Str("candidate_id", candidateID).Msg("候选人已删除")
	return nil
}

// HandleZipDownload 将多个候选人的原始简历打包为ZIP下载
// POST /api/v1/resume/zip
func (h *CandidateHandler) HandleZipDownload(ctx context.Context, c *app.RequestContext) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if len(req.IDs) == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "ids is required"})
		return
	}

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)
	missing := make([]string, 0)

	for _, id := range req.IDs {
		candidate, err := h.storage.MySQL.GetCandidateByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				missing = append(missing, id)
				continue
			}
			logger.Error().Err(err).Str("candidate_id", id).Msg("查询候选人失败")
			c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to load candidates"})
			return
		}
		if candidate.ResumePathOSS == "" {
			missing = append(missing, id)
			continue
		}

		reader, _, err := h.storage.MinIO.GetResumeStream(ctx, candidate.ResumePathOSS)
		if err != nil {
			logger.Warn().Err(err).Str("candidate_id", id).Msg("读取简历文件失败")
			missing = append(missing, id)
			continue
		}

		ext := filepath.Ext(candidate.ResumePathOSS)
		entry, err := zipWriter.Create(id + ext)
		if err == nil {
			_, err = io.Copy(entry, reader)
		}
		reader.Close()
		if err != nil {
			logger.Error().Err(err).Str("candidate_id", id).Msg("写入ZIP条目失败")
			c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to build zip archive"})
			return
		}
	}

	if err := zipWriter.Close(); err != nil {
		logger.Error().Err(err).Msg("关闭ZIP写入器失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to build zip archive"})
		return
	}

	if buf.Len() == 0 || len(missing) == len(req.IDs) {
		c.JSON(consts.StatusNotFound, utils.H{"error": "no resumes found for the given ids", "missing": missing})
		return
	}

	c.Response.Header.Set("Content-Disposition", `attachment; filename="resumes.zip"`)
	if len(missing) > 0 {
		// 部分ID缺失时在响应头中提示，正文仍是ZIP内容
		c.Response.Header.Set("X-Missing-IDs", fmt.Sprintf("%d", len(missing)))
	}
	c.Data(consts.StatusOK, "application/zip", buf.Bytes())
}

// HandleGetStats 返回候选人库和向量库的运行统计
// GET /api/v1/stats
func (h *CandidateHandler) HandleGetStats(ctx context.Context, c *app.RequestContext) {
	counts, err := h.storage.MySQL.CountCandidatesByStatus(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("统计候选人状态分布失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to load candidate stats"})
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	resp := utils.H{
		"candidates": utils.H{
			"total":     total,
			"by_status": counts,
		},
	}

	if h.storage.Qdrant != nil {
		points, err := h.storage.Qdrant.CountPoints(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("统计向量点数失败")
		} else {
			resp["vector_points"] = points
		}
	}

	c.JSON(consts.StatusOK, resp)
}
