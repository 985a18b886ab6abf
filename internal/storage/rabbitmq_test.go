package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldRequeue(t *testing.T) {
	assert.True(t, shouldRequeue(false), "首次失败的消息应重新入队等待重试")
	assert.False(t, shouldRequeue(true), "已重投递过的消息不应再入队，确定性失败会无限循环")
}
