package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/houzhh15/zoomrelay/cmd/server/internal/zoom"
)

// Config 统一配置结构
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Zoom     ZoomConfig
	Audit    AuditConfig
	Security SecurityConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env  string // dev, staging, production
	Port string
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // console, json
}

// ZoomConfig Zoom Server-to-Server OAuth 与 Meeting SDK 配置
type ZoomConfig struct {
	AuthURL             string
	BaseURL             string
	AccountID           string
	ClientID            string
	ClientSecret        string
	SDKKey              string
	SDKSecret           string
	MaxConcurrent       int
	TokenLeeway         time.Duration
	MeetingDefaultsFile string
}

// AuditConfig 审计日志配置，Path 为空时不记录
type AuditConfig struct {
	Path string
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORSAllowedOrigins []string
}

// LoadConfig 从环境变量加载配置
// 数值类环境变量格式错误时直接返回错误
func LoadConfig() (*Config, error) {
	maxConcurrent, err := getEnvInt("ZOOM_MAX_CONCURRENT", zoom.DefaultMaxConcurrent)
	if err != nil {
		return nil, err
	}
	leeway, err := getEnvDuration("ZOOM_TOKEN_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "dev"),
			Port: getEnv("PORT", "3000"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Zoom: ZoomConfig{
			AuthURL:             getEnv("ZOOM_AUTH_API_URL", ""),
			BaseURL:             getEnv("ZOOM_BASE_API_URL", ""),
			AccountID:           getEnv("ZOOM_ACCOUNT_ID", ""),
			ClientID:            getEnv("ZOOM_CLIENT_ID", ""),
			ClientSecret:        getEnv("ZOOM_CLIENT_SECRET", ""),
			SDKKey:              getEnv("ZOOM_SDK_KEY", ""),
			SDKSecret:           getEnv("ZOOM_SDK_SECRET", ""),
			MaxConcurrent:       maxConcurrent,
			TokenLeeway:         leeway,
			MeetingDefaultsFile: getEnv("MEETING_DEFAULTS_FILE", ""),
		},
		Audit: AuditConfig{
			Path: getEnv("AUDIT_LOG_PATH", ""),
		},
		Security: SecurityConfig{
			CORSAllowedOrigins: parseStringList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
	}

	return cfg, nil
}

// ValidateConfig 验证配置的有效性，汇总所有问题后一次性返回
func ValidateConfig(cfg *Config) error {
	var errors []string

	// 1. Zoom 凭据必填
	required := []struct{ key, value string }{
		{"ZOOM_AUTH_API_URL", cfg.Zoom.AuthURL},
		{"ZOOM_BASE_API_URL", cfg.Zoom.BaseURL},
		{"ZOOM_ACCOUNT_ID", cfg.Zoom.AccountID},
		{"ZOOM_CLIENT_ID", cfg.Zoom.ClientID},
		{"ZOOM_CLIENT_SECRET", cfg.Zoom.ClientSecret},
		{"ZOOM_SDK_KEY", cfg.Zoom.SDKKey},
		{"ZOOM_SDK_SECRET", cfg.Zoom.SDKSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errors = append(errors, r.key+" is required")
		}
	}

	// 2. URL 必须为绝对地址
	for _, u := range []struct{ key, value string }{
		{"ZOOM_AUTH_API_URL", cfg.Zoom.AuthURL},
		{"ZOOM_BASE_API_URL", cfg.Zoom.BaseURL},
	} {
		if u.value == "" {
			continue
		}
		if parsed, err := url.Parse(u.value); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errors = append(errors, fmt.Sprintf("%s must be an absolute URL: %s", u.key, u.value))
		}
	}

	// 3. 并发与 token 提前刷新窗口
	if cfg.Zoom.MaxConcurrent < 1 {
		errors = append(errors, fmt.Sprintf("invalid ZOOM_MAX_CONCURRENT: %d (must be >= 1)", cfg.Zoom.MaxConcurrent))
	}
	if cfg.Zoom.TokenLeeway < 0 {
		errors = append(errors, fmt.Sprintf("invalid ZOOM_TOKEN_LEEWAY: %s (must not be negative)", cfg.Zoom.TokenLeeway))
	}

	// 4. 端口验证
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	// 5. 日志级别验证
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	// 6. 日志格式验证
	validLogFormats := map[string]bool{"console": true, "json": true}
	if !validLogFormats[cfg.Log.Format] {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT: %s (must be: console, json)", cfg.Log.Format))
	}

	// 7. 环境验证
	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true}
	if !validEnvs[cfg.Server.Env] {
		errors = append(errors, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment 判断是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "dev" || c.Server.Env == "development"
}

// GetServerAddr 获取服务器监听地址
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// LoggerEnvironment 返回传给 logger 的环境名：LOG_FORMAT=json 时强制 JSON 输出
func (c *Config) LoggerEnvironment() string {
	if c.Log.Format == "json" {
		return "production"
	}
	return c.Server.Env
}

// ZoomClientConfig 构建 zoom.Client 所需配置，按需加载会议模板文件
func (c *Config) ZoomClientConfig() (zoom.Config, error) {
	zc := zoom.Config{
		Credentials: zoom.Credentials{
			AccountID:    c.Zoom.AccountID,
			ClientID:     c.Zoom.ClientID,
			ClientSecret: c.Zoom.ClientSecret,
			AuthURL:      c.Zoom.AuthURL,
			BaseURL:      c.Zoom.BaseURL,
		},
		SDK: zoom.SDKCredentials{
			Key:    c.Zoom.SDKKey,
			Secret: c.Zoom.SDKSecret,
		},
		MaxConcurrent: c.Zoom.MaxConcurrent,
		TokenLeeway:   c.Zoom.TokenLeeway,
	}

	if c.Zoom.MeetingDefaultsFile != "" {
		defaults, err := zoom.LoadMeetingDefaults(c.Zoom.MeetingDefaultsFile)
		if err != nil {
			return zc, err
		}
		zc.MeetingDefaults = &defaults
	}

	return zc, nil
}

// PrintConfig 打印配置（脱敏）
func (c *Config) PrintConfig() string {
	return fmt.Sprintf(`Configuration Loaded:
  Environment: %s
  Server Port: %s
  Logging:
    - Level: %s
    - Format: %s
  Zoom:
    - Auth URL: %s
    - Base URL: %s
    - Account ID: %s
    - Client ID: %s
    - Client Secret: %s
    - SDK Key: %s
    - SDK Secret: %s
    - Max Concurrent: %d
    - Token Leeway: %s
    - Meeting Defaults File: %s
  Audit Log: %s
  Security:
    - CORS Origins: %v`,
		c.Server.Env,
		c.Server.Port,
		c.Log.Level,
		c.Log.Format,
		c.Zoom.AuthURL,
		c.Zoom.BaseURL,
		maskSecret(c.Zoom.AccountID),
		maskSecret(c.Zoom.ClientID),
		maskSecret(c.Zoom.ClientSecret),
		maskSecret(c.Zoom.SDKKey),
		maskSecret(c.Zoom.SDKSecret),
		c.Zoom.MaxConcurrent,
		c.Zoom.TokenLeeway,
		orNotSet(c.Zoom.MeetingDefaultsFile),
		orNotSet(c.Audit.Path),
		c.Security.CORSAllowedOrigins,
	)
}

// 辅助函数

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整数环境变量
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, value)
	}
	return n, nil
}

// getEnvDuration 获取时长环境变量，支持 "30s" 形式，也接受纯数字秒数
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not a duration", key, value)
	}
	return d, nil
}

// parseStringList 解析逗号分隔的字符串列表
func parseStringList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// maskSecret 对敏感信息进行脱敏
func maskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}

func orNotSet(v string) string {
	if v == "" {
		return "<not set>"
	}
	return v
}
