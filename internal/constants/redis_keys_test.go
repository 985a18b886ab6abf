package constants

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisKeyFormats(t *testing.T) {
	// 所有Key必须遵循 app:{module}:{entity} 的命名规范
	assert.Equal(t, "app:file:dedup_set", KeyFileMD5Set)
	assert.Equal(t, "app:file:text_dedup_set", KeyTextMD5Set)

	assert.Equal(t, "app:file:md5_to_id:d41d8cd98f00b204e9800998ecf8427e",
		fmt.Sprintf(KeyFileMD5ToCandidateID, "d41d8cd98f00b204e9800998ecf8427e"))
	assert.Equal(t, "app:search:cache:abc123", fmt.Sprintf(KeySearchCache, "abc123"))
	assert.Equal(t, "app:search:lock:abc123", fmt.Sprintf(KeySearchLock, "abc123"))
}
