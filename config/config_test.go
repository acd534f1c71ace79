package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CHECK_INTERVAL_MINUTES", "5")
	t.Setenv("PRICEHOUND_RESPECT_ROBOTS", "false")
	t.Setenv("PRICEHOUND_DATA_DIR", "/tmp/hound")

	c := DefaultConfig()
	c.LoadFromEnv()

	assert.Equal(t, "123:abc", c.BotToken)
	assert.Equal(t, 5, c.CheckIntervalMinutes)
	assert.False(t, c.RespectRobots)
	assert.Equal(t, "/tmp/hound", c.DataDir)
}

func TestValidate_IntervalFloor(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())

	c.CheckIntervalMinutes = 0
	assert.Error(t, c.Validate())
}

func TestRequireBotToken(t *testing.T) {
	c := DefaultConfig()
	assert.Error(t, c.RequireBotToken())

	c.BotToken = "123:abc"
	assert.NoError(t, c.RequireBotToken())
}
