package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage/models"
)

var mysqlTracer = otel.Tracer("sync-resume/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	dbSystem       string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", sqlStatement),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		// ErrRecordNotFound 属于业务正常分支，不作为错误上报
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.SetAttributes(attribute.String("error.message", db.Error.Error()))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		dbSystem:       "mysql",
		disableErrSkip: true,
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	tracingPlugin := NewGormTracingPlugin(cfg.Database)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.Candidate{},
		&models.CandidateEducation{},
		&models.CandidateExperience{},
		&models.City{},
		&models.EmailLog{},
		&models.ExtractionAudit{},
		&models.OutboxMessage{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// candidateResubmitColumns 同一候选人ID重复提交时需要覆盖的列
// 新文件已经覆盖了MinIO对象，旧的文件信息和解析产物随之失效
var candidateResubmitColumns = []string{
	"original_filename",
	"resume_path_oss",
	"raw_file_md5",
	"parsed_text_path",
	"parsed_text_md5",
	"processing_status",
	"error_message",
	"processed_at",
}

// CreateCandidate 插入候选人记录
// 候选人ID冲突视为重新提交，覆盖文件信息并把处理状态拉回起点
func (m *MySQL) CreateCandidate(ctx context.Context, tx *gorm.DB, candidate *models.Candidate) error {
	db := m.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}},
			DoUpdates: clause.AssignmentColumns(candidateResubmitColumns),
		}).Create(candidate).Error
}

// GetCandidateByID 通过候选人ID获取记录
func (m *MySQL) GetCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := m.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&candidate).Error
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

// CountCandidatesByStatus 按处理状态统计候选人数量
func (m *MySQL) CountCandidatesByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ProcessingStatus string
		Total            int64
	}
	err := m.db.WithContext(ctx).Model(&models.Candidate{}).
		Select("processing_status, count(*) as total").
		Group("processing_status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ProcessingStatus] = row.Total
	}
	return counts, nil
}

// UpdateCandidateFields 更新候选人记录的多个字段 (在事务中执行)
func (m *MySQL) UpdateCandidateFields(tx *gorm.DB, candidateID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&models.Candidate{}).Where("candidate_id = ?", candidateID).Updates(updates).Error
}

// ReplaceCandidateEducations 重建候选人的教育经历 (在事务中执行)
func (m *MySQL) ReplaceCandidateEducations(tx *gorm.DB, candidateID string, educations []models.CandidateEducation) error {
	if err := tx.Where("candidate_id = ?", candidateID).Delete(&models.CandidateEducation{}).Error; err != nil {
		return fmt.Errorf("删除旧教育经历失败: %w", err)
	}
	if len(educations) == 0 {
		return nil
	}
	return tx.Create(&educations).Error
}

// ReplaceCandidateExperiences 重建候选人的工作经历 (在事务中执行)
func (m *MySQL) ReplaceCandidateExperiences(tx *gorm.DB, candidateID string, experiences []models.CandidateExperience) error {
	if err := tx.Where("candidate_id = ?", candidateID).Delete(&models.CandidateExperience{}).Error; err != nil {
		return fmt.Errorf("删除旧工作经历失败: %w", err)
	}
	if len(experiences) == 0 {
		return nil
	}
	return tx.Create(&experiences).Error
}

// GetCandidateEducations 获取候选人的教育经历列表
func (m *MySQL) GetCandidateEducations(ctx context.Context, candidateID string) ([]models.CandidateEducation, error) {
	var educations []models.CandidateEducation
	err := m.db.WithContext(ctx).Where("candidate_id = ?", candidateID).
		Order("education_id asc").Find(&educations).Error
	return educations, err
}

// GetCandidateExperiences 获取候选人的工作经历列表
func (m *MySQL) GetCandidateExperiences(ctx context.Context, candidateID string) ([]models.CandidateExperience, error) {
	var experiences []models.CandidateExperience
	err := m.db.WithContext(ctx).Where("candidate_id = ?", candidateID).
		Order("experience_id asc").Find(&experiences).Error
	return experiences, err
}

// DeleteCandidate 删除候选人及其关联记录 (在事务中执行)
// 返回删除的主表行数，用于区分记录不存在的情况
func (m *MySQL) DeleteCandidate(tx *gorm.DB, candidateID string) (int64, error) {
	if err := tx.Where("candidate_id = ?", candidateID).Delete(&models.CandidateEducation{}).Error; err != nil {
		return 0, fmt.Errorf("删除教育经历失败: %w", err)
	}
	if err := tx.Where("candidate_id = ?", candidateID).Delete(&models.CandidateExperience{}).Error; err != nil {
		return 0, fmt.Errorf("删除工作经历失败: %w", err)
	}
	result := tx.Where("candidate_id = ?", candidateID).Delete(&models.Candidate{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除候选人失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// BatchInsertCandidates 批量写入候选人记录
// 候选人ID冲突时只覆盖updateColumns指定的列，列表为空时冲突行保持原样
func (m *MySQL) BatchInsertCandidates(ctx context.Context, candidates []models.Candidate, updateColumns []string) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.BatchInsertCandidates",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		semconv.DBSystemMySQL,
		attribute.String("db.name", m.cfg.Database),
		attribute.String("db.operation", "INSERT_ON_DUPLICATE"),
		attribute.String("db.sql.table", "candidates"),
		attribute.Int("batch.size", len(candidates)),
	)

	if len(candidates) == 0 {
		span.SetStatus(codes.Ok, "no candidates to insert")
		return nil
	}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "candidate_id"}},
		DoNothing: true,
	}
	if len(updateColumns) > 0 {
		conflict.DoNothing = false
		conflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	}

	err := m.db.WithContext(ctx).Clauses(conflict).Create(&candidates).Error

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ListCandidatesByStatus 按处理状态分页列出候选人，ETL修复流程使用
func (m *MySQL) ListCandidatesByStatus(ctx context.Context, status string, offset, limit int) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := m.db.WithContext(ctx).Where("processing_status = ?", status).
		Order("created_at asc").Offset(offset).Limit(limit).Find(&candidates).Error
	return candidates, err
}

// LoadCities 加载标准城市主数据
func (m *MySQL) LoadCities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	err := m.db.WithContext(ctx).Find(&cities).Error
	return cities, err
}

// SaveEmailLog 保存一条邮件分类记录
func (m *MySQL) SaveEmailLog(ctx context.Context, entry *models.EmailLog) error {
	return m.db.WithContext(ctx).Create(entry).Error
}

// CreateOutboxMessage 写入发件箱消息，必须与业务写入共享同一事务
func (m *MySQL) CreateOutboxMessage(tx *gorm.DB, msg *models.OutboxMessage) error {
	return tx.Create(msg).Error
}
