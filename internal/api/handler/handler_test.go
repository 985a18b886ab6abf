package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apsidata-Solutions/sync-resume/internal/constants"
	"github.com/Apsidata-Solutions/sync-resume/internal/normalizer"
	"github.com/Apsidata-Solutions/sync-resume/internal/storage/models"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

func str(s string) *string { return &s }

func TestSearchQueryHash(t *testing.T) {
	req := &types.ResumeSearchRequest{Query: "TGT mathematics teacher in Mumbai", Limit: 10}

	h1 := searchQueryHash(req, 0.3)
	h2 := searchQueryHash(req, 0.3)
	assert.Equal(t, h1, h2, "同样的查询应得到稳定的哈希")
	assert.Len(t, h1, 32)

	// 任一条件变化都应改变哈希，否则缓存会串
	changed := *req
	changed.Limit = 20
	assert.NotEqual(t, h1, searchQueryHash(&changed, 0.3))

	changed = *req
	changed.Role = "Teacher"
	assert.NotEqual(t, h1, searchQueryHash(&changed, 0.3))

	assert.NotEqual(t, h1, searchQueryHash(req, 0.8), "阈值变化应改变哈希")
}

func TestEffectiveThreshold(t *testing.T) {
	// 未传阈值时使用默认值过滤低置信度结果
	req := &types.ResumeSearchRequest{Query: "PGT physics"}
	assert.Equal(t, constants.DefaultSearchThreshold, effectiveThreshold(req))

	// 显式传0表示不过滤
	zero := float32(0)
	req.Threshold = &zero
	assert.Equal(t, float32(0), effectiveThreshold(req))

	custom := float32(0.75)
	req.Threshold = &custom
	assert.Equal(t, float32(0.75), effectiveThreshold(req))
}

func TestIsIgnorableZipEntry(t *testing.T) {
	assert.True(t, isIgnorableZipEntry("__MACOSX/resume.pdf"))
	assert.True(t, isIgnorableZipEntry(".DS_Store"))
	assert.True(t, isIgnorableZipEntry("folder/.hidden.pdf"))
	assert.False(t, isIgnorableZipEntry("resume.pdf"))
	assert.False(t, isIgnorableZipEntry("folder/priya_sharma.pdf"))
}

func TestContentTypeForExt(t *testing.T) {
	assert.Equal(t, "application/pdf", contentTypeForExt(".pdf"))
	assert.Equal(t, "application/msword", contentTypeForExt(".doc"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", contentTypeForExt(".docx"))
	assert.Equal(t, "application/octet-stream", contentTypeForExt(".txt"))
}

func newPatchHandler() *CandidateHandler {
	norm := normalizer.New(normalizer.WithCities([]normalizer.City{
		{Name: "Mumbai", State: "Maharashtra"},
		{Name: "Pune", State: "Maharashtra"},
	}))
	return NewCandidateHandler(nil, nil, norm)
}

func TestBuildPatchUpdatesNormalizesFields(t *testing.T) {
	h := newPatchHandler()
	candidate := &models.Candidate{CandidateID: "cand-001", City: "Mumbai", State: "Maharashtra"}

	patch := &types.CandidatePatch{
		Role:         str("maths teacher"),
		Level:        str("tgt"),
		PrimarySkill: str("maths"),
		Mobile:       str("98765 43210"),
		Email:        str("Priya.Sharma@gmail.com"),
		PinCode:      str("400001"),
	}

	updates, vectorPayload, err := h.buildPatchUpdates(candidate, patch)
	require.NoError(t, err)

	assert.Equal(t, "Teacher", updates["role"], "岗位应归一化到词表值")
	assert.Equal(t, "TGT", updates["level"])
	assert.Equal(t, "Mathematics", updates["primary_skill"])
	assert.Equal(t, "+91-9876543210", updates["mobile"])
	assert.Equal(t, "priyasharma@gmail.com", updates["email"])
	assert.Equal(t, "400001", updates["pin_code"])

	// 向量载荷只同步会被结构化过滤的字段
	assert.Equal(t, "Teacher", vectorPayload["role"])
	assert.Equal(t, "Mathematics", vectorPayload["primary_skill"])
	_, hasEmail := vectorPayload["email"]
	assert.False(t, hasEmail, "联系方式不应进向量载荷")
}

func TestBuildPatchUpdatesRejectsUnknownVocabulary(t *testing.T) {
	h := newPatchHandler()
	candidate := &models.Candidate{CandidateID: "cand-001"}

	_, _, err := h.buildPatchUpdates(candidate, &types.CandidatePatch{Role: str("astronaut pilot")})
	require.Error(t, err, "词表外的岗位应被拒绝")
	assert.Contains(t, err.Error(), "master vocabulary")

	_, _, err = h.buildPatchUpdates(candidate, &types.CandidatePatch{Mobile: str("12345")})
	assert.Error(t, err, "无法归一化的手机号应被拒绝")

	_, _, err = h.buildPatchUpdates(candidate, &types.CandidatePatch{PinCode: str("12")})
	assert.Error(t, err)
}

func TestBuildPatchUpdatesCityUsesExistingState(t *testing.T) {
	h := newPatchHandler()
	candidate := &models.Candidate{CandidateID: "cand-001", State: "Maharashtra"}

	// 只改城市时，用数据库里已有的邦做匹配范围
	updates, vectorPayload, err := h.buildPatchUpdates(candidate, &types.CandidatePatch{City: str("pune")})
	require.NoError(t, err)
	assert.Equal(t, "Pune", updates["city"])
	assert.Equal(t, "Maharashtra", updates["state"])
	assert.Equal(t, "Pune", vectorPayload["city"])
}

func TestBuildPatchUpdatesEmptyPatch(t *testing.T) {
	h := newPatchHandler()
	updates, vectorPayload, err := h.buildPatchUpdates(&models.Candidate{}, &types.CandidatePatch{})
	require.NoError(t, err)
	assert.Empty(t, updates, "空补丁不应产生任何更新")
	assert.Empty(t, vectorPayload)
}
