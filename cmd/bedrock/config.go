package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the bedrock configuration file
// (~/.config/bedrock/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type FileConfig struct {
	ServerAddress string `yaml:"server_address"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`

	TensorLimit *int64 `yaml:"tensor_limit"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bedrock", "config.yaml")
}

// applyLoggingConfig applies config file defaults to the logging flags when
// the corresponding CLI flag was not explicitly set.
func applyLoggingConfig(c *cli.Command, cfg FileConfig) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg FileConfig, addr *string) {
	applyLoggingConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// applyInspectConfig applies config file defaults to inspect command variables.
func applyInspectConfig(c *cli.Command, cfg FileConfig, tensorLimit *int64) {
	applyLoggingConfig(c, cfg)
	if cfg.TensorLimit != nil && !c.IsSet("tensors-limit") {
		*tensorLimit = *cfg.TensorLimit
	}
}

// LoadConfig reads the config file. Returns a zero FileConfig if the file
// doesn't exist.
func LoadConfig() FileConfig {
	path := configPath()
	if path == "" {
		return FileConfig{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}
	}
	return cfg
}
