// Package config loads settings from defaults, an optional config file, ELONET_DL_* environment variables and
// command line overrides, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/alanbriolat/elonet-archiver/download"
	"github.com/alanbriolat/elonet-archiver/internal/web"
)

const (
	AppName   = "elonet-dl"
	EnvPrefix = "ELONET_DL"
)

const (
	KeyTarget         = "target"
	KeyOutput         = "output"
	KeyOutputTemplate = "output_template"
	KeyFFmpeg         = "ffmpeg"
	KeyTimeout        = "timeout"
	KeyUserAgent      = "user_agent"
	KeyHeaders        = "headers"
	KeySite           = "site"
	KeyHistory        = "history"
	KeyNoHistory      = "no_history"
	KeyFailOnMissing  = "fail_on_missing"
	KeyDebug          = "debug"
	KeyNoProgress     = "no_progress"
)

type Config struct {
	Target         string            `mapstructure:"target"`
	Output         string            `mapstructure:"output"`
	OutputTemplate string            `mapstructure:"output_template"`
	FFmpeg         string            `mapstructure:"ffmpeg"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	UserAgent      string            `mapstructure:"user_agent"`
	Headers        map[string]string `mapstructure:"headers"`
	Site           string            `mapstructure:"site"`
	History        string            `mapstructure:"history"`
	NoHistory      bool              `mapstructure:"no_history"`
	FailOnMissing  bool              `mapstructure:"fail_on_missing"`
	Debug          bool              `mapstructure:"debug"`
	NoProgress     bool              `mapstructure:"no_progress"`
}

// HistoryEnabled is false if history was switched off, or there is nowhere to keep it.
func (c *Config) HistoryEnabled() bool {
	return !c.NoHistory && c.History != ""
}

// DefaultHistoryPath is in the user's config directory, or empty if there isn't one.
func DefaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "history.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyTarget, ".")
	v.SetDefault(KeyOutput, "")
	v.SetDefault(KeyOutputTemplate, "{{.Title}}")
	v.SetDefault(KeyFFmpeg, download.DefaultFFmpegPath)
	v.SetDefault(KeyTimeout, web.DefaultTimeout)
	v.SetDefault(KeyUserAgent, web.DefaultUserAgent)
	v.SetDefault(KeyHeaders, map[string]string{})
	v.SetDefault(KeySite, "")
	v.SetDefault(KeyHistory, DefaultHistoryPath())
	v.SetDefault(KeyNoHistory, false)
	v.SetDefault(KeyFailOnMissing, false)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyNoProgress, false)
}

// Load builds the configuration. If path is empty, elonet-dl.{yaml,json,toml} is looked for in the current directory
// and then the user's config directory, and it is fine for there to be none; if path is given, it must exist.
// Overrides are keyed like the config file, and win over everything else.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if config.Timeout < 0 {
		return nil, fmt.Errorf("invalid timeout %v", config.Timeout)
	}
	return &config, nil
}

// FlagKey converts a command line flag name to a config key.
func FlagKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}
