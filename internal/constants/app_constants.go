package constants

import "time"

// 上传处理状态，贯穿MySQL记录和API响应
const (
	StatusPending    = "PENDING"    // 已入库，等待处理
	StatusProcessing = "PROCESSING" // 提取流程进行中
	StatusSuccess    = "SUCCESS"    // 提取并归一化成功
	StatusFailure    = "FAILURE"    // 提取失败
	StatusCancelled  = "CANCELLED"  // 被去重或人工取消
)

const (
	// DefaultParserVer 解析器版本标记，写入元数据便于回溯
	DefaultParserVer = "1.0"

	// CandidateIDPrefix 候选人业务ID前缀
	CandidateIDPrefix = "cand-"

	// SearchCacheDuration 搜索结果缓存时长
	SearchCacheDuration = 10 * time.Minute

	// DefaultSearchThreshold 搜索请求未指定时的置信度阈值
	DefaultSearchThreshold float32 = 0.3

	// MaxUploadSizeBytes 单个简历文件的大小上限
	MaxUploadSizeBytes = 20 << 20

	// MaxBatchFiles 批量上传ZIP中允许的最大文件数
	MaxBatchFiles = 200
)
