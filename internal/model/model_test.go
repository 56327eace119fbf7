package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChannelName(t *testing.T) {
	for _, name := range []string{"eng", "investor-relations", "q4.planning", "dm_main_builder", "A1"} {
		assert.NoError(t, ValidateChannelName(name), name)
	}
	for _, name := range []string{"", "-leading-dash", "has space", "emoji💥", "a/b"} {
		assert.Error(t, ValidateChannelName(name), name)
	}
	long := make([]byte, MaxChannelNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidateChannelName(string(long)))
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.True(t, TaskDone.Terminal())
	assert.True(t, TaskFailed.Terminal())
	assert.False(t, TaskActive.Terminal())
	assert.False(t, TaskBlocked.Terminal())
	assert.False(t, TaskWaiting.Terminal())
}

func TestEnumValidators(t *testing.T) {
	assert.True(t, ValidChannelType(ChannelPublic))
	assert.False(t, ValidChannelType("secret"))

	assert.True(t, ValidTaskStatus(TaskBlocked))
	assert.False(t, ValidTaskStatus("paused"))

	assert.True(t, ValidTaskPriority(PriorityCritical))
	assert.False(t, ValidTaskPriority("urgent"))

	assert.True(t, ValidTaskLogType(LogCheckpoint))
	assert.True(t, ValidTaskLogType(LogReassigned))
	assert.False(t, ValidTaskLogType("musing"))
}
