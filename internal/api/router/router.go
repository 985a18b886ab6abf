package router

import (
	"context"
	"io"

	"github.com/Apsidata-Solutions/sync-resume/internal/api/handler"
	"github.com/Apsidata-Solutions/sync-resume/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes 注册所有API路由
// 健康检查不鉴权，其余接口在配置了API Key时经过keyauth中间件
func RegisterRoutes(
	h *server.Hertz,
	cfg *config.Config,
	resumeHandler *handler.ResumeHandler,
	candidateHandler *handler.CandidateHandler,
	searchHandler *handler.SearchHandler,
	emailHandler *handler.EmailHandler,
) {
	h.GET("/api/v1/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")
	if cfg.Server.APIKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:X-API-Key", ""),
			keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
				return key == cfg.Server.APIKey, nil
			}),
		))
	}

	// 单份简历上传
	api.POST("/resume", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "file is required"})
			return
		}

		// 可选的自定义候选人ID，留空时自动生成
		requestedID := ctx.PostForm("id")
		sourceChannel := ctx.PostForm("source_channel")
		if sourceChannel == "" {
			sourceChannel = "api"
		}

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to open uploaded file"})
			return
		}
		defer file.Close()

		resp, err := resumeHandler.HandleResumeUpload(c, file, fileHeader.Size, fileHeader.Filename, requestedID, sourceChannel)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// ZIP批量上传
	api.POST("/resume/batch", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "file is required"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to open uploaded file"})
			return
		}
		defer file.Close()

		zipBytes, err := io.ReadAll(file)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to read uploaded file"})
			return
		}

		resp, err := resumeHandler.HandleBatchUpload(c, zipBytes, "batch")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/resume/search", searchHandler.HandleSearchResumes)
	api.POST("/resume/zip", candidateHandler.HandleZipDownload)
	api.GET("/resume/:id", candidateHandler.HandleGetCandidate)
	api.PATCH("/resume/:id", candidateHandler.HandlePatchCandidate)
	api.DELETE("/resume/batch", candidateHandler.HandleBatchDelete)
	api.DELETE("/resume/:id", candidateHandler.HandleDeleteCandidate)

	// 邮箱接入
	api.POST("/email", emailHandler.HandleInboundEmail)

	// 运行统计
	api.GET("/stats", candidateHandler.HandleGetStats)
}
