package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
)

func TestCandidateResubmitColumns(t *testing.T) {
	// 同一候选人ID重复提交时新文件已经覆盖了MinIO对象
	// 文件信息列必须同步覆盖，否则行里留着旧文件名和旧MD5
	for _, column := range []string{
		"original_filename",
		"resume_path_oss",
		"raw_file_md5",
	} {
		assert.Contains(t, candidateResubmitColumns, column, "重复提交必须覆盖文件信息列")
	}

	// 旧的解析产物和处理状态也要一并重置，让新文件重新走完整流程
	for _, column := range []string{
		"parsed_text_path",
		"parsed_text_md5",
		"processing_status",
		"error_message",
		"processed_at",
	} {
		assert.Contains(t, candidateResubmitColumns, column, "重复提交必须重置处理状态列")
	}

	assert.NotContains(t, candidateResubmitColumns, "candidate_id", "主键列不应出现在覆盖列表里")
}

func TestBatchInsertCandidatesEmptyInput(t *testing.T) {
	m := &MySQL{cfg: &config.MySQLConfig{Database: "test"}}

	// 空批次不应触碰数据库连接
	assert.NoError(t, m.BatchInsertCandidates(context.Background(), nil, repairTestColumns()))
	assert.NoError(t, m.BatchInsertCandidates(context.Background(), nil, nil))
}

func repairTestColumns() []string {
	return []string{"role", "level", "profile_json"}
}
