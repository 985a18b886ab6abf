package storage

import "time"

// ResumeUploadedMessage 简历上传消息
// 上传接口通过outbox发布，原始文件处理消费者消费
type ResumeUploadedMessage struct {
	CandidateID         string    `json:"candidate_id"`             // 候选人ID，主键
	UploadTimestamp     time.Time `json:"upload_timestamp"`         // 上传时间戳
	OriginalFilename    string    `json:"original_filename"`        // 原始文件名
	OriginalFilePathOSS string    `json:"original_file_path_oss"`   // MinIO中的对象路径
	RawFileMD5          string    `json:"raw_file_md5,omitempty"`   // 原始文件的MD5，用于失败时回滚去重记录
	SourceChannel       string    `json:"source_channel,omitempty"` // 来源渠道（api、email、batch）
	ContentType         string    `json:"content_type,omitempty"`   // 文件MIME类型
}

// ResumeExtractionMessage 结构化提取消息
// 文本解析完成后发布，LLM提取消费者消费
type ResumeExtractionMessage struct {
	CandidateID       string `json:"candidate_id"`                   // 候选人ID
	ParsedTextPathOSS string `json:"parsed_text_path_oss,omitempty"` // 解析文本在MinIO中的路径
	ParsedText        string `json:"parsed_text,omitempty"`          // 解析后的文本内容，小文本直接随消息传递

	ProcessingStatus string `json:"processing_status,omitempty"` // 发布时的处理状态
	ProcessingTime   int64  `json:"processing_time,omitempty"`   // 处理时间戳

	Error string `json:"error,omitempty"` // 上游错误信息
}
