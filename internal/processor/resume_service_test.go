package processor

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apsidata-Solutions/sync-resume/internal/constants"
	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

func str(s string) *string { return &s }

func TestBuildVectorPayload(t *testing.T) {
	c := &types.TeachingCandidate{
		Role:         str("Teacher"),
		Level:        str("TGT"),
		PrimarySkill: str("Mathematics"),
		City:         str("Mumbai"),
	}
	payload := BuildVectorPayload("cand-001", c)

	assert.Equal(t, "cand-001", payload["candidate_id"])
	assert.Equal(t, "Teacher", payload["role"])
	assert.Equal(t, "TGT", payload["level"])
	assert.Equal(t, "Mathematics", payload["primary_skill"])
	assert.Equal(t, "Mumbai", payload["city"])

	_, hasState := payload["state"]
	assert.False(t, hasState, "nil字段不应进入载荷")
}

func TestBuildVectorPayloadMinimal(t *testing.T) {
	payload := BuildVectorPayload("cand-002", &types.TeachingCandidate{})
	assert.Equal(t, map[string]interface{}{"candidate_id": "cand-002"}, payload,
		"空档案的载荷应只含候选人ID")
}

func TestBuildProfileText(t *testing.T) {
	c := &types.TeachingCandidate{
		FirstName:       str("Priya"),
		LastName:        str("Sharma"),
		Role:            str("Teacher"),
		Level:           str("TGT"),
		PrimarySkill:    str("Mathematics"),
		City:            str("Mumbai"),
		CareerStartDate: str("07-2012"),
		Education: []types.Education{
			{Degree: str("B.Ed"), University: str("Mumbai University")},
		},
		Experiences: []types.Experience{
			{
				Designation:  str("TGT Mathematics"),
				Organisation: str("DPS Mumbai"),
				Contributions: []types.Contribution{
					{Result: "Improved board results by 12%", SkillsApplied: "Mathematics, Mentoring"},
				},
			},
		},
	}

	text := BuildProfileText(c)

	assert.Contains(t, text, "Name: Priya Sharma")
	assert.Contains(t, text, "Role: Teacher")
	assert.Contains(t, text, "Primary Skill: Mathematics")
	assert.Contains(t, text, "Education: B.Ed, Mumbai University")
	assert.Contains(t, text, "Experience: TGT Mathematics at DPS Mumbai")
	assert.Contains(t, text, "Contribution: Improved board results by 12%")
	assert.Contains(t, text, "Skills Applied: Mathematics, Mentoring")
	assert.NotContains(t, text, "Secondary Skill", "nil字段不应出现在文本中")
}

func TestBuildProfileTextEmpty(t *testing.T) {
	text := BuildProfileText(&types.TeachingCandidate{})
	assert.Equal(t, "", text)
}

func TestBuildEducationRows(t *testing.T) {
	rows := buildEducationRows("cand-001", []types.Education{
		{
			Degree:     str("B.Ed"),
			University: str("Delhi University"),
			StartDate:  str("06-2010"),
			EndDate:    str("05-2012"),
			Status:     str(types.EducationCompleted),
		},
		{Degree: str("M.Ed"), Status: str(types.EducationInProgress)},
	})
	require.Len(t, rows, 2)

	assert.Equal(t, "cand-001", rows[0].CandidateID)
	assert.Equal(t, "B.Ed", rows[0].Degree)
	assert.Equal(t, "06-2010", rows[0].StartDate)
	assert.Equal(t, types.EducationCompleted, rows[0].Status)

	assert.Equal(t, "M.Ed", rows[1].Degree)
	assert.Equal(t, "", rows[1].EndDate, "nil字段应落为空串")
	assert.Equal(t, types.EducationInProgress, rows[1].Status)
}

func TestBuildExperienceRows(t *testing.T) {
	rows, err := buildExperienceRows("cand-001", []types.Experience{
		{
			Organisation:    str("DPS Mumbai"),
			Designation:     str("TGT Mathematics"),
			StartDate:       str("06-2018"),
			CurrentJobOrNot: true,
			Contributions: []types.Contribution{
				{
					Situation:     "Weak board results in grade 10",
					Task:          "Raise mathematics scores",
					Action:        "Introduced weekly remedial classes",
					Result:        "Average score up 12%",
					SkillsApplied: "Mathematics, Mentoring",
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "cand-001", rows[0].CandidateID)
	assert.Equal(t, "DPS Mumbai", rows[0].Organisation)
	assert.True(t, rows[0].IsCurrent)
	assert.Equal(t, "", rows[0].EndDate)

	// STAR贡献应序列化进JSON列
	jsonText := string(rows[0].ContributionsJSON)
	assert.True(t, strings.Contains(jsonText, "Average score up 12%"), "贡献内容应在JSON中: %s", jsonText)
	assert.True(t, strings.Contains(jsonText, "skills_applied"), "JSON应使用下划线字段名: %s", jsonText)
}

func TestDeref(t *testing.T) {
	assert.Equal(t, "", deref(nil))
	assert.Equal(t, "x", deref(str("x")))
}

func TestBuildExtractionAudit(t *testing.T) {
	audit := buildExtractionAudit("cand-123", "gpt-4o", 2500, nil)
	assert.Equal(t, "cand-123", audit.CandidateID)
	assert.Equal(t, "gpt-4o", audit.ModelName)
	assert.Equal(t, constants.StatusSuccess, audit.Status, "没有错误时审计状态应为成功")
	assert.Equal(t, int64(2500), audit.DurationMs)
	assert.Equal(t, constants.DefaultParserVer, audit.ParserVersion)
	assert.Empty(t, audit.ErrorMessage)
}

func TestBuildExtractionAudit_Failure(t *testing.T) {
	audit := buildExtractionAudit("cand-456", "gpt-4o", 0, errors.New("提取候选人档案失败"))
	assert.Equal(t, constants.StatusFailure, audit.Status)
	assert.Equal(t, "提取候选人档案失败", audit.ErrorMessage)

	// 超长错误信息截断后才能入库
	long := strings.Repeat("x", 3000)
	audit = buildExtractionAudit("cand-456", "gpt-4o", 0, errors.New(long))
	assert.Len(t, audit.ErrorMessage, 1000)
}
