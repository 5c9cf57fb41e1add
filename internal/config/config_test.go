package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	assert := assert_.New(t)
	config, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(".", config.Target)
	assert.Equal("ffmpeg", config.FFmpeg)
	assert.Equal(60*time.Second, config.Timeout)
	assert.Equal("{{.Title}}", config.OutputTemplate)
	assert.False(config.FailOnMissing)
}

func TestLoad_File(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "elonet-dl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
target: /videos
timeout: 90s
fail_on_missing: true
headers:
  Referer: https://elonet.finna.fi/
`), 0644))

	config, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal("/videos", config.Target)
	assert.Equal(90*time.Second, config.Timeout)
	assert.True(config.FailOnMissing)
	assert.Equal("https://elonet.finna.fi/", config.Headers["referer"])
}

func TestLoad_Precedence(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"target": "/from-file", "ffmpeg": "/opt/ffmpeg", "user_agent": "file"}`), 0644))
	t.Setenv("ELONET_DL_FFMPEG", "/env/ffmpeg")
	t.Setenv("ELONET_DL_USER_AGENT", "env")

	config, err := Load(path, map[string]any{KeyUserAgent: "flag"})
	require.NoError(t, err)
	assert.Equal("/from-file", config.Target)
	assert.Equal("/env/ffmpeg", config.FFmpeg)
	assert.Equal("flag", config.UserAgent)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert_.Error(t, err)
}

func TestHistoryEnabled(t *testing.T) {
	assert := assert_.New(t)
	assert.True((&Config{History: "h.db"}).HistoryEnabled())
	assert.False((&Config{History: "h.db", NoHistory: true}).HistoryEnabled())
	assert.False((&Config{}).HistoryEnabled())
}

func TestFlagKey(t *testing.T) {
	assert_.Equal(t, KeyFailOnMissing, FlagKey("fail-on-missing"))
}
