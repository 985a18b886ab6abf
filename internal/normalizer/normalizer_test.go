package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apsidata-Solutions/sync-resume/internal/types"
)

func TestMatchRole(t *testing.T) {
	n := New()

	tests := []struct {
		name     string
		input    string
		strategy Strategy
		want     string
	}{
		{"精确匹配", "Vice Principal", StrategyDirect, "Vice Principal"},
		{"包含匹配", "Mathematics Teacher", StrategyDirect, "Teacher"},
		{"带连字符", "Vice-Principal", StrategyProgressive, "Vice Principal"},
		{"正则缩写", "HOD", StrategyProgressive, "Head of Department"},
		{"正则同义词", "Faculty", StrategyProgressive, "Teacher"},
		{"模糊拼写错误", "Pricipal", StrategyFuzzy, "Principal"},
		{"无匹配", "astronaut pilot", StrategyProgressive, ""},
		{"空输入", "  ", StrategyProgressive, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.MatchRole(tt.input, tt.strategy), "输入: %q", tt.input)
		})
	}
}

func TestMatchLevel(t *testing.T) {
	n := New()

	assert.Equal(t, "TGT", n.MatchLevel("TGT", StrategyDirect))
	assert.Equal(t, "PGT", n.MatchLevel("PGT Physics", StrategyProgressive))
	assert.Equal(t, "PRT", n.MatchLevel("Primary Teacher (PRT)", StrategyProgressive))
	assert.Equal(t, "Pre-Primary", n.MatchLevel("Kindergarten", StrategyProgressive))
	assert.Equal(t, "Day Care", n.MatchLevel("day care assistant", StrategyProgressive))
	assert.Equal(t, "", n.MatchLevel("senior management", StrategyDirect))
}

func TestMatchSkill(t *testing.T) {
	n := New()

	tests := []struct {
		input string
		want  string
	}{
		{"Mathematics", "Mathematics"},
		{"Maths", "Mathematics"},
		{"English", "English"},
		{"Phisics", "Physics"},
		{"physical education", "General Sport"},
		{"karate", "Martial Arts"},
		{"zzqqxx", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.MatchSkill(tt.input, StrategyProgressive), "输入: %q", tt.input)
	}
}

func TestMatchCity(t *testing.T) {
	cities := []City{
		{Name: "Mumbai", State: "Maharashtra"},
		{Name: "Pune", State: "Maharashtra"},
		{Name: "Delhi", State: "Delhi"},
		{Name: "Chennai", State: "Tamil Nadu"},
	}
	n := New(WithCities(cities))

	assert.Equal(t, "Delhi", n.MatchCity("delhi", ""))
	assert.Equal(t, "Mumbai", n.MatchCity("Mumbay", "Maharashtra"), "模糊匹配应修正拼写错误")
	assert.Equal(t, "", n.MatchCity("Mumbai", "Tamil Nadu"), "指定邦后不应跨邦匹配")
	assert.Equal(t, "", n.MatchCity("ab", ""), "过短的输入不做模糊匹配")

	// 未注入城市主数据时不做任何匹配
	empty := New()
	assert.Equal(t, "", empty.MatchCity("Mumbai", ""))
}

func TestSanitizeNumber(t *testing.T) {
	n := New()

	tests := []struct {
		input string
		want  string
	}{
		{"9876543210", "+91-9876543210"},
		{"919876543210", "+91-9876543210"},
		{"09876543210", "+91-9876543210"},
		{"+91 98765 43210", "+91-9876543210"},
		{"(+91) 98765-43210", "+91-9876543210"},
		{"12345", "12345"},
		{"5876543210", "5876543210"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.SanitizeNumber(tt.input), "输入: %q", tt.input)
	}
}

func TestSanitizeEmail(t *testing.T) {
	n := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"小写化", "John.Doe@Example.COM", "john.doe@example.com"},
		{"Gmail去点号", "priya.sharma@gmail.com", "priyasharma@gmail.com"},
		{"去加号后缀", "user+tag@example.com", "user@example.com"},
		{"域名修正", "user@gmal.com", "user@gmail.com"},
		{"comm后缀", "user@yahoo.comm", "user@yahoo.com"},
		{"非Gmail保留点号", "first.last@school.org", "first.last@school.org"},
		{"无效邮箱原样返回", "not-an-email", "not-an-email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.SanitizeEmail(tt.input))
		})
	}
}

func TestIsValidMobile(t *testing.T) {
	assert.True(t, IsValidMobile("+91-9876543210"))
	assert.True(t, IsValidMobile("+1-2025550123"))
	assert.False(t, IsValidMobile("9876543210"), "缺少国家码前缀")
	assert.False(t, IsValidMobile("+91-98765"), "位数不足")
	assert.False(t, IsValidMobile("+91 9876543210"), "分隔符必须是连字符")
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("priya.sharma@gmail.com"))
	assert.True(t, IsValidEmail("user_123@school.edu.in"))
	assert.False(t, IsValidEmail("no-at-sign"))
	assert.False(t, IsValidEmail("a..b@example.com"), "连续点号")
	assert.False(t, IsValidEmail("user@gmial.com"), "已知拼写错误的域名")
	assert.False(t, IsValidEmail(".starts.with.dot@example.com"))
}

func TestIsValidPin(t *testing.T) {
	assert.True(t, IsValidPin("110001"))
	assert.True(t, IsValidPin(" 110001 "))
	assert.False(t, IsValidPin("11000"))
	assert.False(t, IsValidPin("1100011"))
	assert.False(t, IsValidPin("11000a"))
}

func TestIsValidDate(t *testing.T) {
	assert.True(t, IsValidDate("15-06-1990"))
	assert.True(t, IsValidDate("01-01-2000"))
	assert.False(t, IsValidDate("32-01-1990"), "日期超出范围")
	assert.False(t, IsValidDate("15-13-1990"), "月份超出范围")
	assert.False(t, IsValidDate("1990-06-15"), "顺序错误")
	assert.False(t, IsValidDate("15/06/1990"), "分隔符错误")
}

func TestNormalizeCandidate(t *testing.T) {
	n := New(WithCities([]City{{Name: "Mumbai", State: "Maharashtra"}}))

	c := &types.TeachingCandidate{
		Mobile:       str("98765 43210"),
		Email:        str("Priya.Sharma@gmail.com"),
		Role:         str("maths teacher"),
		Level:        str("tgt"),
		PrimarySkill: str("maths"),
		City:         str("mumbai"),
		State:        str("Maharashtra"),
	}

	n.NormalizeCandidate(c)

	require.NotNil(t, c.Mobile)
	assert.Equal(t, "+91-9876543210", *c.Mobile)
	require.NotNil(t, c.Email)
	assert.Equal(t, "priyasharma@gmail.com", *c.Email)
	require.NotNil(t, c.Role)
	assert.Equal(t, "Teacher", *c.Role)
	require.NotNil(t, c.Level)
	assert.Equal(t, "TGT", *c.Level)
	require.NotNil(t, c.PrimarySkill)
	assert.Equal(t, "Mathematics", *c.PrimarySkill)
	require.NotNil(t, c.City)
	assert.Equal(t, "Mumbai", *c.City)
}

func TestNormalizeCandidateKeepsUnmatchedValues(t *testing.T) {
	n := New()

	c := &types.TeachingCandidate{
		Role:   str("astronaut pilot"),
		Mobile: str("12345"),
	}

	n.NormalizeCandidate(c)

	// 匹配不到词表时保留原值，由校验环节决定是否报错
	require.NotNil(t, c.Role)
	assert.Equal(t, "astronaut pilot", *c.Role)
	require.NotNil(t, c.Mobile)
	assert.Equal(t, "12345", *c.Mobile)
}

func TestNormalizeCandidateNil(t *testing.T) {
	n := New()
	assert.NotPanics(t, func() { n.NormalizeCandidate(nil) })
}
