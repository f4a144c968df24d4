package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerURL = "http://localhost:3000"
	defaultTimeout   = 30 * time.Second
)

// Config 保存 CLI 全局配置
type Config struct {
	ServerURL string        `yaml:"server_url" json:"server_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	Output    string        `yaml:"output" json:"output"`
}

// LoadConfig 从命令行标志、环境变量、配置文件加载配置（优先级从高到低）
func LoadConfig(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{}

	// 尝试从配置文件读取基础值
	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖配置文件
	if v := os.Getenv("ZOOMRELAY_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}

	// 命令行标志覆盖环境变量
	if v, _ := cmd.Flags().GetString("server-url"); v != "" {
		cfg.ServerURL = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output = v
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	// 默认值
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if cfg.Output == "" {
		cfg.Output = "text"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.Output != "text" && cfg.Output != "json" {
		return nil, fmt.Errorf("invalid output format: %s (valid: text/json)", cfg.Output)
	}
	return cfg, nil
}

// configFilePath 返回 ~/.zoomrelay/config.yaml
func configFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".zoomrelay", "config.yaml"), nil
}

// loadConfigFile 读取配置文件；文件不存在时忽略，格式错误时报错
func loadConfigFile(cfg *Config) error {
	path, err := configFilePath()
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// addGlobalFlags 为 root 命令添加全局标志
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("server-url", "", fmt.Sprintf("relay 地址 (env: ZOOMRELAY_SERVER_URL, 默认: %s)", defaultServerURL))
	cmd.PersistentFlags().StringP("output", "o", "", "输出格式: json / text (默认: text)")
	cmd.PersistentFlags().Duration("timeout", defaultTimeout, "单次请求超时")
}
