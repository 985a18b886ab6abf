package outbox

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apsidata-Solutions/sync-resume/internal/storage"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage/models"
)

const (
	defaultPollingInterval = 5 * time.Second // 默认轮询outbox表的间隔
	defaultBatchSize       = 20              // 每次轮询处理的消息批量大小
	maxRetryCount          = 5               // 消息发布失败的最大重试次数
)

// Outbox消息投递状态
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

// MessageRelay 轮询outbox表并将消息发布到RabbitMQ
// 业务写入和消息登记在同一事务内完成，由本服务异步兑现投递
type MessageRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	logger          zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	done            chan struct{}
	tracer          trace.Tracer
}

// RelayOption 中继服务配置选项
type RelayOption func(*MessageRelay)

// WithPollingInterval 设置轮询间隔
func WithPollingInterval(d time.Duration) RelayOption {
	return func(r *MessageRelay) {
		if d > 0 {
			r.pollingInterval = d
		}
	}
}

// WithBatchSize 设置批量大小
func WithBatchSize(n int) RelayOption {
	return func(r *MessageRelay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewMessageRelay 创建消息中继服务
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ, logger zerolog.Logger, opts ...RelayOption) *MessageRelay {
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger.With().Str("component", "outbox_relay").Logger(),
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("outbox-relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start 启动后台轮询
func (r *MessageRelay) Start() {
	r.logger.Info().Dur("interval", r.pollingInterval).Msg("outbox中继服务启动")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				r.logger.Info().Msg("outbox中继服务已停止")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					r.logger.Error().Err(err).Msg("处理待投递消息失败")
				}
			}
		}
	}()
}

// Stop 优雅停止中继服务
func (r *MessageRelay) Stop() {
	r.logger.Info().Msg("outbox中继服务停止中")
	close(r.done)
}

// processPendingMessages 获取并投递一批待处理消息
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	// 空轮询不创建span，事务内查询只为拿锁
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	// FOR UPDATE SKIP LOCKED 跳过已被其他实例锁定的行，支持水平扩展
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", StatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		r.logger.Error().Err(err).Msg("查询待投递outbox消息失败")
		return err
	}

	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	r.logger.Debug().Int("count", len(messages)).Msg("拾取到待投递消息")

	for _, msg := range messages {
		err := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true, // 持久化投递
		)

		if err != nil {
			r.logger.Warn().Err(err).
				Uint64("message_id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retry_count", msg.RetryCount+1).
				Msg("发布outbox消息失败")
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= maxRetryCount {
				msg.Status = StatusFailed
			}
		} else {
			msg.Status = StatusSent
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		// 更新失败则整个事务回滚，消息会在下一轮被重新拾取
		if err := tx.Save(&msg).Error; err != nil {
			r.logger.Error().Err(err).Uint64("message_id", msg.ID).Msg("更新outbox消息状态失败")
			return err
		}
	}

	return tx.Commit().Error
}
