package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

func TestIsValidMonthYear(t *testing.T) {
	assert.True(t, IsValidMonthYear("06-2010"))
	assert.True(t, IsValidMonthYear("12-1999"))
	assert.False(t, IsValidMonthYear("13-2010"), "月份超出范围")
	assert.False(t, IsValidMonthYear("00-2010"))
	assert.False(t, IsValidMonthYear("062010"), "缺少分隔符")
	assert.False(t, IsValidMonthYear("2010-06"), "顺序错误")
	assert.False(t, IsValidMonthYear("15-06-1990"), "这是完整日期不是月年")
}

func str(s string) *string { return &s }

func TestValidateCandidateClean(t *testing.T) {
	c := &types.TeachingCandidate{
		Mobile:          str("+91-9876543210"),
		Email:           str("priya@gmail.com"),
		PinCode:         str("110001"),
		DateOfBirth:     str("15-06-1990"),
		CareerStartDate: str("07-2012"),
	}
	assert.Empty(t, ValidateCandidate(c), "合法档案不应有校验错误")
}

func TestValidateCandidateNilFieldsSkipped(t *testing.T) {
	// nil字段视为缺失，不是错误
	assert.Empty(t, ValidateCandidate(&types.TeachingCandidate{}))
	assert.Empty(t, ValidateCandidate(nil))
}

func TestValidateCandidateTopLevelErrors(t *testing.T) {
	c := &types.TeachingCandidate{
		Mobile:      str("9876543210"),
		Email:       str("not-an-email"),
		PinCode:     str("11000"),
		DateOfBirth: str("1990-06-15"),
	}
	errs := ValidateCandidate(c)
	require.Len(t, errs, 4)

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
		assert.NotEmpty(t, e.Message)
	}
	assert.ElementsMatch(t, []string{"mobile", "email", "pin_code", "date_of_birth"}, fields)
}

func TestValidateCandidateNestedFieldNames(t *testing.T) {
	c := &types.TeachingCandidate{
		Education: []types.Education{
			{StartDate: str("06-2010"), EndDate: str("05-2014"), Status: str("completed")},
			{StartDate: str("June 2014"), Status: str("ongoing")},
		},
		Experiences: []types.Experience{
			{StartDate: str("2015"), EndDate: str("08-2020")},
		},
	}
	errs := ValidateCandidate(c)

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{
		"education[1].start_date",
		"education[1].status",
		"experiences[0].start_date",
	}, fields, "嵌套字段错误应带下标前缀")
}

func TestValidateCandidateCurrentJobEndDate(t *testing.T) {
	c := &types.TeachingCandidate{
		Experiences: []types.Experience{
			{StartDate: str("06-2018"), EndDate: str("01-2024"), CurrentJobOrNot: true},
		},
	}
	errs := ValidateCandidate(c)
	require.Len(t, errs, 1)
	assert.Equal(t, "experiences[0].end_date", errs[0].Field)
	assert.Contains(t, errs[0].Message, "current_job_or_not")
}

func TestFieldErrorString(t *testing.T) {
	fe := FieldError{Field: "mobile", Message: "bad"}
	assert.Equal(t, "mobile: bad", fe.String())
}
