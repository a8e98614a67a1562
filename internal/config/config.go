package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Voice   VoiceConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	voice, err := loadVoiceConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Session: session, Voice: voice}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	DefaultUserID  string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))
	defaultUser := getEnvOrDefault("DEFAULT_USER_ID", "anonymous")

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins, DefaultUserID: defaultUser}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins, DefaultUserID: defaultUser}, nil
}

// SessionConfig 描述会话保留与清理策略。
type SessionConfig struct {
	TTL            time.Duration
	ReaperInterval time.Duration
	ReaperEnabled  bool
	LexiconPath    string
}

func loadSessionConfig() (SessionConfig, error) {
	ttl, err := parseDurationEnv("SESSION_TTL", time.Hour)
	if err != nil {
		return SessionConfig{}, err
	}

	interval, err := parseDurationEnv("REAPER_INTERVAL", time.Hour)
	if err != nil {
		return SessionConfig{}, err
	}

	enabled, err := parseBoolEnv("REAPER_ENABLED", true)
	if err != nil {
		return SessionConfig{}, err
	}

	return SessionConfig{
		TTL:            ttl,
		ReaperInterval: interval,
		ReaperEnabled:  enabled,
		LexiconPath:    strings.TrimSpace(os.Getenv("LEXICON_PATH")),
	}, nil
}

// VoiceConfig 描述语音上传限制。
type VoiceConfig struct {
	MaxBytes int64
}

func loadVoiceConfig() (VoiceConfig, error) {
	maxBytes := int64(10 << 20)
	override, err := parseOptionalIntEnv("MAX_VOICE_BYTES")
	if err != nil {
		return VoiceConfig{}, err
	}
	if override != nil {
		if *override < 1 {
			return VoiceConfig{}, fmt.Errorf("invalid MAX_VOICE_BYTES value %d: must be positive", *override)
		}
		maxBytes = int64(*override)
	}
	return VoiceConfig{MaxBytes: maxBytes}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
