package handler

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/constants"
	"github.com/Apsidata-Solutions/sync-resume/internal/logger"
	"github.com/Apsidata-Solutions/sync-resume/internal/processor"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// 相同查询并发执行时的锁有效期
const searchLockExpiry = time.Minute

// SearchHandler 语义搜索接口
type SearchHandler struct {
	cfg      *config.Config
	storage  *storage.Storage
	embedder processor.TextEmbedder
}

// NewSearchHandler 创建语义搜索处理器
func NewSearchHandler(cfg *config.Config, storage *storage.Storage, embedder processor.TextEmbedder) *SearchHandler {
	return &SearchHandler{
		cfg:      cfg,
		storage:  storage,
		embedder: embedder,
	}
}

// HandleSearchResumes 处理语义搜索请求
// POST /api/v1/resume/search
// 查询文本向量化后在Qdrant中检索，结构化条件作为过滤器下推
func (h *SearchHandler) HandleSearchResumes(ctx context.Context, c *app.RequestContext) {
	var req types.ResumeSearchRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Query == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "query is required"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = h.cfg.Qdrant.DefaultSearchLimit
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	threshold := effectiveThreshold(&req)

	if h.storage.Qdrant == nil {
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": "vector search is not available"})
		return
	}

	queryHash := searchQueryHash(&req, threshold)

	// 先查结果缓存，命中则不再触发嵌入和向量检索
	cached, err := h.storage.Redis.GetCachedSearchResults(ctx, queryHash)
	if err == nil {
		c.JSON(consts.StatusOK, utils.H{
			"results": cached,
			"total":   len(cached),
			"cached":  true,
		})
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		logger.Warn().Err(err).Str("query_hash", queryHash).Msg("查询搜索缓存失败，继续执行检索")
	}

	// 分布式锁避免相同查询并发打到嵌入服务
	lockKey := fmt.Sprintf(constants.KeySearchLock, queryHash)
	lockValue, err := h.storage.Redis.AcquireLock(ctx, lockKey, searchLockExpiry)
	if err != nil {
		logger.Warn().Err(err).Str("query_hash", queryHash).Msg("获取搜索锁失败，继续执行可能导致重复检索")
	} else if lockValue == "" {
		c.JSON(consts.StatusAccepted, utils.H{
			"status":      "processing",
			"retry_after": 1,
		})
		return
	} else {
		defer func() {
			if _, err := h.storage.Redis.ReleaseLock(ctx, lockKey, lockValue); err != nil {
				logger.Warn().Err(err).Str("query_hash", queryHash).Msg("释放搜索锁失败")
			}
		}()
	}

	vectors, err := h.embedder.EmbedStrings(ctx, []string{req.Query})
	if err != nil {
		logger.Error().Err(err).Msg("查询文本向量化失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to embed query"})
		return
	}
	if len(vectors) != 1 {
		logger.Error().Int("count", len(vectors)).Msg("嵌入结果数量异常")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to embed query"})
		return
	}

	filter := storage.BuildCandidateFilter(map[string]string{
		"role":          req.Role,
		"level":         req.Level,
		"primary_skill": req.Skill,
		"city":          req.City,
		"state":         req.State,
	})

	hits, err := h.storage.Qdrant.SearchSimilarCandidates(ctx, vectors[0], req.Limit, filter)
	if err != nil {
		logger.Error().Err(err).Msg("向量检索失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "vector search failed"})
		return
	}

	results := make([]types.ResumeSearchResult, 0, len(hits))
	for _, hit := range hits {
		if threshold > 0 && hit.Score < threshold {
			continue
		}
		candidateID, _ := hit.Payload["candidate_id"].(string)
		if candidateID == "" {
			continue
		}
		results = append(results, types.ResumeSearchResult{
			ID:         candidateID,
			Confidence: hit.Score,
		})
	}

	if err := h.storage.Redis.CacheSearchResults(ctx, queryHash, results, constants.SearchCacheDuration); err != nil {
		logger.Warn().Err(err).Str("query_hash", queryHash).Msg("缓存搜索结果失败")
	}

	c.JSON(consts.StatusOK, utils.H{
		"results": results,
		"total":   len(results),
		"cached":  false,
	})
}

// effectiveThreshold 解析请求中的置信度阈值
// 未传时使用默认阈值，显式传0表示不过滤低分结果
func effectiveThreshold(req *types.ResumeSearchRequest) float32 {
	if req.Threshold == nil {
		return constants.DefaultSearchThreshold
	}
	return *req.Threshold
}

// searchQueryHash 对查询文本和全部过滤条件取哈希，作为缓存和锁的键
func searchQueryHash(req *types.ResumeSearchRequest, threshold float32) string {
	raw := fmt.Sprintf("%s|%d|%.4f|%s|%s|%s|%s|%s",
		req.Query, req.Limit, threshold, req.Role, req.Level, req.Skill, req.City, req.State)
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
