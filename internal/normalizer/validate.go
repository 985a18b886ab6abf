package normalizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

var monthYearRe = regexp.MustCompile(`^\d{2}-\d{4}$`)

// IsValidMonthYear 校验日期是否符合 MM-YYYY 格式
func IsValidMonthYear(date string) bool {
	date = strings.TrimSpace(date)
	if !monthYearRe.MatchString(date) {
		return false
	}
	var month, year int
	if _, err := fmt.Sscanf(date, "%02d-%04d", &month, &year); err != nil {
		return false
	}
	return month >= 1 && month <= 12 && year >= 1000 && year <= 9999
}

// FieldError 单个字段的校验错误
// Message是面向LLM修复提示的英文描述
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidateCandidate 校验候选人档案中的格式化字段
// 只校验格式，不校验语义；nil字段视为缺失，不报错
func ValidateCandidate(c *types.TeachingCandidate) []FieldError {
	if c == nil {
		return nil
	}
	var errs []FieldError

	check := func(field string, value *string, valid func(string) bool, message string) {
		if value != nil && *value != "" && !valid(*value) {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%q %s", *value, message)})
		}
	}

	check("mobile", c.Mobile, IsValidMobile, "is not a valid mobile number, expected format +<country code>-<10 digits>, e.g. +91-9876543210")
	check("alternate_mobile", c.AlternateMobile, IsValidMobile, "is not a valid mobile number, expected format +<country code>-<10 digits>")
	check("email", c.Email, IsValidEmail, "is not a valid email address")
	check("alternate_email", c.AlternateEmail, IsValidEmail, "is not a valid email address")
	check("pin_code", c.PinCode, IsValidPin, "is not a valid Indian PIN code, expected exactly 6 digits")
	check("date_of_birth", c.DateOfBirth, IsValidDate, "is not a valid date, expected format DD-MM-YYYY")
	check("career_start_date", c.CareerStartDate, IsValidMonthYear, "is not a valid date, expected format MM-YYYY")

	for i := range c.Education {
		edu := &c.Education[i]
		prefix := fmt.Sprintf("education[%d].", i)
		check(prefix+"start_date", edu.StartDate, IsValidMonthYear, "is not a valid date, expected format MM-YYYY")
		check(prefix+"end_date", edu.EndDate, IsValidMonthYear, "is not a valid date, expected format MM-YYYY, or null if in progress")
		if edu.Status != nil && *edu.Status != "" &&
			*edu.Status != types.EducationCompleted && *edu.Status != types.EducationInProgress {
			errs = append(errs, FieldError{
				Field:   prefix + "status",
				Message: fmt.Sprintf("%q is not a valid status, expected %q or %q", *edu.Status, types.EducationCompleted, types.EducationInProgress),
			})
		}
	}

	for i := range c.Experiences {
		exp := &c.Experiences[i]
		prefix := fmt.Sprintf("experiences[%d].", i)
		check(prefix+"start_date", exp.StartDate, IsValidMonthYear, "is not a valid date, expected format MM-YYYY")
		check(prefix+"end_date", exp.EndDate, IsValidMonthYear, "is not a valid date, expected format MM-YYYY, or null if this is the current job")
		if exp.CurrentJobOrNot && exp.EndDate != nil && *exp.EndDate != "" {
			errs = append(errs, FieldError{
				Field:   prefix + "end_date",
				Message: "must be null when current_job_or_not is true",
			})
		}
	}

	return errs
}
