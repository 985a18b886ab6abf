package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadResumeFile 上传原始简历文件
	UploadResumeFile(ctx context.Context, candidateID, fileExt string, reader io.Reader, fileSize int64) (string, error)

	// UploadParsedText 上传解析后的文本
	UploadParsedText(ctx context.Context, candidateID string, text string) (string, error)

	// GetResumeFile 下载原始简历文件
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)

	// GetParsedText 下载解析后的文本
	GetParsedText(ctx context.Context, objectKey string) (string, error)

	// GetPresignedURL 获取预签名下载URL
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)

	// DeleteResumeFile 删除原始简历文件
	DeleteResumeFile(ctx context.Context, objectKey string) error

	// DeleteParsedText 删除解析后的文本
	DeleteParsedText(ctx context.Context, objectKey string) error
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client       *minio.Client
	cfg          *config.MinIOConfig
	resumeBucket string
	parsedBucket string
	logger       *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	resumeBucket := cfg.ResumeBucket
	if resumeBucket == "" {
		resumeBucket = "resumes"
	}
	parsedBucket := cfg.ParsedTextBucket
	if parsedBucket == "" {
		parsedBucket = "parsed-text"
	}

	m := &MinIO{
		client:       client,
		cfg:          cfg,
		resumeBucket: resumeBucket,
		parsedBucket: parsedBucket,
		logger:       logger,
	}

	if err := m.ensureBucketExists(resumeBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保原始简历存储桶 %s 存在失败: %w", resumeBucket, err)
	}
	if err := m.ensureBucketExists(parsedBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保解析文本存储桶 %s 存在失败: %w", parsedBucket, err)
	}

	if cfg.ResumeExpireDays > 0 || cfg.ParsedTextExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			logger.Printf("[MinIO] 设置生命周期规则失败: %v", err)
		}
	}

	logger.Printf("[MinIO] 客户端初始化成功: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] 已创建存储桶 %s", bucketName)
	}
	return nil
}

// setupLifecycleRules 设置对象生命周期规则
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.ResumeExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.resumeBucket, "expire-resumes", m.cfg.ResumeExpireDays); err != nil {
			return fmt.Errorf("为原始简历存储桶 %s 设置生命周期失败: %w", m.resumeBucket, err)
		}
	}
	if m.cfg.ParsedTextExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.parsedBucket, "expire-parsed-text", m.cfg.ParsedTextExpireDays); err != nil {
			return fmt.Errorf("为解析文本存储桶 %s 设置生命周期失败: %w", m.parsedBucket, err)
		}
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置生命周期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// resumeObjectKey 原始简历的对象键，例如 resume/cand-xxx/original.pdf
func resumeObjectKey(candidateID, fileExt string) string {
	return fmt.Sprintf("resume/%s/original%s", candidateID, fileExt)
}

// parsedTextObjectKey 解析文本的对象键
func parsedTextObjectKey(candidateID string) string {
	return fmt.Sprintf("resume/%s/parsed_text.txt", candidateID)
}

// UploadResumeFile 上传原始简历文件，返回对象键
func (m *MinIO) UploadResumeFile(ctx context.Context, candidateID, fileExt string, reader io.Reader, fileSize int64) (string, error) {
	objectName := resumeObjectKey(candidateID, fileExt)
	contentType := getContentType(fileExt)

	_, err := m.client.PutObject(ctx, m.resumeBucket, objectName, reader, fileSize,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.resumeBucket, objectName, err)
	}
	return objectName, nil
}

// UploadParsedText 上传解析后的文本
func (m *MinIO) UploadParsedText(ctx context.Context, candidateID string, text string) (string, error) {
	objectName := parsedTextObjectKey(candidateID)
	_, err := m.client.PutObject(ctx, m.parsedBucket, objectName, strings.NewReader(text),
		int64(len(text)), minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return "", fmt.Errorf("上传解析文本 %s 到存储桶 %s 失败: %w", objectName, m.parsedBucket, err)
	}
	return objectName, nil
}

// GetResumeFile 从MinIO获取原始简历文件
func (m *MinIO) GetResumeFile(ctx context.Context, objectKey string) ([]byte, error) {
	return m.downloadObject(ctx, m.resumeBucket, objectKey)
}

// GetParsedText 从MinIO获取解析后的文本
func (m *MinIO) GetParsedText(ctx context.Context, objectKey string) (string, error) {
	data, err := m.downloadObject(ctx, m.parsedBucket, objectKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// downloadObject 下载指定存储桶中的对象
func (m *MinIO) downloadObject(ctx context.Context, bucketName, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucketName, objectKey, err)
	}
	defer obj.Close()

	// Stat能在对象缺失时尽早返回明确错误
	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", bucketName, objectKey, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucketName, objectKey, err)
	}
	return data, nil
}

// GetResumeStream 以流式方式获取原始简历文件，ZIP打包下载时避免整体载入内存
func (m *MinIO) GetResumeStream(ctx context.Context, objectKey string) (io.ReadCloser, int64, error) {
	obj, err := m.client.GetObject(ctx, m.resumeBucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("获取对象 %s/%s 失败: %w", m.resumeBucket, objectKey, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("获取对象 %s/%s 状态失败: %w", m.resumeBucket, objectKey, err)
	}
	return obj, stat.Size, nil
}

// GetPresignedURL 获取原始简历的预签名下载URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := m.client.PresignedGetObject(ctx, m.resumeBucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteResumeFile 删除原始简历文件
func (m *MinIO) DeleteResumeFile(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.resumeBucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s/%s 失败: %w", m.resumeBucket, objectKey, err)
	}
	return nil
}

// DeleteParsedText 删除解析后的文本
func (m *MinIO) DeleteParsedText(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.parsedBucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s/%s 失败: %w", m.parsedBucket, objectKey, err)
	}
	return nil
}

// getContentType 根据扩展名推断内容类型
func getContentType(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
