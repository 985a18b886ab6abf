package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Apsidata-Solutions/sync-resume/internal/api/handler"
	"github.com/Apsidata-Solutions/sync-resume/internal/api/router"
	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/logger"
	"github.com/Apsidata-Solutions/sync-resume/internal/outbox"
	"github.com/Apsidata-Solutions/sync-resume/internal/processor"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
	"github.com/Apsidata-Solutions/sync-resume/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "配置文件路径，为空时在默认位置查找")
	pflag.Parse()

	// .env文件可选，主要服务于本地开发
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置文件失败")
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		FilePath:     cfg.Logger.FilePath,
	})
	// Hertz框架日志走同一个zerolog输出
	hlog.SetLogger(hertzzerolog.From(logger.Logger))

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		shutdownTracing, err := tracing.InitProvider(ctx, &cfg.Tracing)
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化链路追踪失败")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("关闭链路追踪失败")
			}
		}()
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	if storageManager.RabbitMQ != nil {
		if err := storageManager.RabbitMQ.SetupResumeTopology(); err != nil {
			logger.Fatal().Err(err).Msg("初始化消息拓扑失败")
		}
	}

	resumeService, err := processor.NewResumeService(ctx, cfg, storageManager, &logger.Logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历服务失败")
	}
	components := resumeService.Components()

	resumeHandler := handler.NewResumeHandler(cfg, storageManager, resumeService)
	candidateHandler := handler.NewCandidateHandler(cfg, storageManager, components.Normalizer)
	searchHandler := handler.NewSearchHandler(cfg, storageManager, components.Embedder)
	emailHandler := handler.NewEmailHandler(cfg, storageManager, components.EmailClassifier, resumeHandler)

	// 启动消费者
	prefetch := cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 5
	}
	if storageManager.RabbitMQ != nil {
		go func() {
			if err := resumeHandler.StartResumeUploadConsumer(context.Background(), prefetch); err != nil {
				logger.Fatal().Err(err).Msg("启动简历上传消费者失败")
			}
		}()
		go func() {
			if err := resumeHandler.StartExtractionConsumer(context.Background(), prefetch); err != nil {
				logger.Fatal().Err(err).Msg("启动结构化提取消费者失败")
			}
		}()
	}

	// 出站消息中继
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, logger.Logger)
		messageRelay.Start()
	} else {
		logger.Warn().Msg("MySQL或RabbitMQ未就绪，出站消息中继未启动")
	}

	// HTTP服务器
	serverOpts := []hertzconfig.Option{server.WithHostPorts(cfg.Server.Address)}
	var tracerCfg *hertztracing.Config
	if cfg.Tracing.Enabled {
		tracer, tcfg := hertztracing.NewServerTracer()
		serverOpts = append(serverOpts, tracer)
		tracerCfg = tcfg
	}
	h := server.New(serverOpts...)
	if tracerCfg != nil {
		h.Use(hertztracing.ServerMiddleware(tracerCfg))
	}

	router.RegisterRoutes(h, cfg, resumeHandler, candidateHandler, searchHandler, emailHandler)

	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务器启动中")
	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	if messageRelay != nil {
		messageRelay.Stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP服务器关闭失败")
	}
	logger.Info().Msg("优雅退出完成")
}
