package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "a*", MaskPII("ab"))
	assert.Equal(t, "a**d", MaskPII("abcd"))

	masked := MaskPII("myemail@example.com")
	assert.Equal(t, "my***************om", masked)
	assert.NotContains(t, masked, "example", "掩码后不应泄露域名")

	phone := MaskPII("+91-9812345678")
	assert.True(t, strings.HasPrefix(phone, "+9"))
	assert.True(t, strings.HasSuffix(phone, "78"))
	assert.NotContains(t, phone, "98123")
}

func TestSafeAttributeValue(t *testing.T) {
	// 敏感字段名应触发掩码，大小写不敏感
	assert.NotContains(t, SafeAttributeValue("candidate.email", "priya@gmail.com", 200), "priya")
	assert.NotContains(t, SafeAttributeValue("Mobile", "+91-9812345678", 200), "98123")

	// 非敏感字段只做截断
	assert.Equal(t, "hello", SafeAttributeValue("query", "hello", 200))
	long := strings.Repeat("x", 300)
	safe := SafeAttributeValue("query", long, 10)
	assert.LessOrEqual(t, len(safe), 13)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 200), "不超长的字符串应原样返回")

	long := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	truncated := TruncateString(long, 21)
	assert.Contains(t, truncated, "...", "截断时应保留省略号")
	assert.True(t, strings.HasPrefix(truncated, "aaa"))
	assert.True(t, strings.HasSuffix(truncated, "bbb"), "应保留尾部内容: %s", truncated)

	assert.Equal(t, "abc", TruncateString("abcdef", 3), "极短上限时直接硬截断")
}

func TestSafeHelpers(t *testing.T) {
	longSQL := "SELECT * FROM candidates WHERE " + strings.Repeat("x = 1 AND ", 100) + "1 = 1"
	assert.LessOrEqual(t, len([]rune(SafeSQL(longSQL))), MaxSQLLength+3)

	longKey := strings.Repeat("k", 300)
	assert.LessOrEqual(t, len(SafeRedisKey(longKey)), MaxRedisLength+3)

	longQuery := strings.Repeat("q", 300)
	assert.LessOrEqual(t, len(SafeQuery(longQuery)), MaxQueryLength+3)
}
