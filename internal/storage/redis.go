package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/constants"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

// ErrNotFound 键不存在时返回，封装底层的redis.Nil
var ErrNotFound = redis.Nil

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("sync-resume/storage/redis")

// Redis操作前缀采样率配置
var redisKeySamplingRates = map[string]float64{
	"app:file:":   0.1,  // 文件去重操作采样10%
	"app:search:": 0.25, // 搜索缓存操作采样25%
	"app:resume:": 0.5,  // 简历锁操作采样50%
}

var (
	rnd      *rand.Rand
	rndMutex sync.Mutex
)

func init() {
	source := rand.NewSource(time.Now().UnixNano())
	rnd = rand.New(source)
}

// shouldSampleRedisOp 根据key前缀决定是否需要创建span
func shouldSampleRedisOp(key string) bool {
	if key == "" {
		return false
	}
	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			return randFloat() < rate
		}
	}
	// 默认采样率5%
	return randFloat() < 0.05
}

func randFloat() float64 {
	rndMutex.Lock()
	defer rndMutex.Unlock()
	return rnd.Float64()
}

// Redis 封装go-redis客户端
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("为Redis启用OpenTelemetry追踪失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("连接Redis (%s) 失败: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查Redis连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.Ping(ctx).Err()
}

// GetMD5ExpireDuration 返回配置的MD5记录过期时间
func (r *Redis) GetMD5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// CheckAndSetFileMD5 原子地检查并登记原始文件MD5
// 返回 (exists, existingCandidateID, error)；MD5已存在时返回其关联的候选人ID
func (r *Redis) CheckAndSetFileMD5(ctx context.Context, md5Hex string, candidateID string) (bool, string, error) {
	return r.checkAndSetMD5(ctx, "Redis.CheckAndSetFileMD5",
		constants.KeyFileMD5Set,
		fmt.Sprintf(constants.KeyFileMD5ToCandidateID, md5Hex),
		md5Hex, candidateID)
}

// CheckAndSetTextMD5 原子地检查并登记解析文本MD5
// 同一份内容换个文件名重新上传时，文件MD5不同但文本MD5相同
func (r *Redis) CheckAndSetTextMD5(ctx context.Context, md5Hex string, candidateID string) (bool, string, error) {
	return r.checkAndSetMD5(ctx, "Redis.CheckAndSetTextMD5",
		constants.KeyTextMD5Set,
		fmt.Sprintf(constants.KeyTextMD5ToCandidateID, md5Hex),
		md5Hex, candidateID)
}

// checkAndSetMD5 去重登记的公共实现
func (r *Redis) checkAndSetMD5(ctx context.Context, spanName, setKey, mapKey, md5Hex, candidateID string) (bool, string, error) {
	ctx, span := redisTracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", "EVAL"),
		attribute.String("db.redis.key", setKey),
		attribute.String("db.redis.member", md5Hex),
	)

	if r.Client == nil {
		err := fmt.Errorf("redis客户端未初始化")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, "", err
	}

	// Lua脚本原子完成: 查集合、登记MD5、登记MD5到候选人ID映射
	script := `
		local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
		if exists == 1 then
			return {1, redis.call('GET', KEYS[2]) or ''}
		end
		redis.call('SADD', KEYS[1], ARGV[1])
		redis.call('EXPIRE', KEYS[1], ARGV[3])
		redis.call('SET', KEYS[2], ARGV[2], 'EX', ARGV[3])
		return {0, ''}
	`

	expiry := int64(r.GetMD5ExpireDuration().Seconds())

	res, err := r.Client.Eval(ctx, script, []string{setKey, mapKey}, md5Hex, candidateID, expiry).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, "", fmt.Errorf("执行原子检查和登记MD5失败: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		err := fmt.Errorf("意外的Redis返回类型: %T", res)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, "", err
	}

	existsVal, _ := vals[0].(int64)
	existingID, _ := vals[1].(string)

	exists := existsVal == 1
	span.SetAttributes(attribute.Bool("already_exists", exists))
	span.SetStatus(codes.Ok, "")
	return exists, existingID, nil
}

// RemoveFileMD5 从去重集合中移除MD5并删除其映射，删除候选人时调用
func (r *Redis) RemoveFileMD5(ctx context.Context, md5Hex string) error {
	ctx, span := redisTracer.Start(ctx, "Redis.RemoveFileMD5",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", "SREM"),
		attribute.String("db.redis.member", md5Hex),
	)

	if md5Hex == "" {
		span.SetStatus(codes.Ok, "empty md5")
		return nil
	}

	pipe := r.Client.Pipeline()
	pipe.SRem(ctx, constants.KeyFileMD5Set, md5Hex)
	pipe.Del(ctx, fmt.Sprintf(constants.KeyFileMD5ToCandidateID, md5Hex))
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("从集合中移除MD5失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// RemoveTextMD5 从文本去重集合中移除MD5并删除其映射
func (r *Redis) RemoveTextMD5(ctx context.Context, md5Hex string) error {
	if md5Hex == "" {
		return nil
	}
	pipe := r.Client.Pipeline()
	pipe.SRem(ctx, constants.KeyTextMD5Set, md5Hex)
	pipe.Del(ctx, fmt.Sprintf(constants.KeyTextMD5ToCandidateID, md5Hex))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("从文本集合中移除MD5失败: %w", err)
	}
	return nil
}

// CacheSearchResults 缓存一次语义搜索的完整结果
func (r *Redis) CacheSearchResults(ctx context.Context, queryHash string, results []types.ResumeSearchResult, ttl time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	if len(results) == 0 {
		return nil // 不缓存空结果
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("序列化搜索结果失败: %w", err)
	}

	key := fmt.Sprintf(constants.KeySearchCache, queryHash)
	return r.Client.Set(ctx, key, data, ttl).Err()
}

// GetCachedSearchResults 获取缓存的搜索结果，缓存未命中时返回ErrNotFound
func (r *Redis) GetCachedSearchResults(ctx context.Context, queryHash string) ([]types.ResumeSearchResult, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}

	key := fmt.Sprintf(constants.KeySearchCache, queryHash)
	data, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		return nil, err // 包括 redis.Nil
	}

	var results []types.ResumeSearchResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, fmt.Errorf("反序列化搜索结果失败: %w", err)
	}
	return results, nil
}

// Get 获取键的值
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(
			semconv.DBSystemRedis,
			attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", key),
		)
	}

	val, err := r.Client.Get(ctx, key).Result()

	if span != nil {
		if err != nil {
			if err == redis.Nil {
				span.SetStatus(codes.Ok, "key not found")
				span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		} else {
			span.SetAttributes(
				attribute.Bool("db.redis.key_exists", true),
				attribute.Int("db.redis.value_length", len(val)),
			)
			span.SetStatus(codes.Ok, "")
		}
	}

	return val, err
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(
			semconv.DBSystemRedis,
			attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", key),
			attribute.Int("db.redis.value_length", len(value)),
		)
	}

	err := r.Client.Set(ctx, key, value, expiration).Err()

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	return err
}

// AcquireLock 尝试获取一个分布式锁，成功时返回持有者标识
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}
	lockValue := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return lockValue, nil
	}
	return "", nil
}

// ReleaseLock 释放一个分布式锁，使用Lua脚本保证原子性
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis客户端未初始化")
	}
	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	res, err := r.Client.Eval(ctx, script, []string{lockKey}, lockValue).Result()
	if err != nil {
		return false, err
	}

	if released, ok := res.(int64); ok && released == 1 {
		return true, nil
	}
	return false, nil
}
