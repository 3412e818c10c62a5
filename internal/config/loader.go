package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// GetConfigPath returns the default config file path (~/.dmagent/config.json).
func GetConfigPath() string {
	return filepath.Join(defaultDataDir(), "config.json")
}

// envBindings maps viper keys to the environment variables the original
// deployment scripts export.
var envBindings = map[string][]string{
	"instagram.username":  {"IG_USERNAME"},
	"instagram.password":  {"IG_PASSWORD"},
	"instagram.authToken": {"IG_AUTH_TOKEN"},
	"instagram.accountId": {"IG_ACCOUNT_ID"},
	"language":            {"LANGUAGE"},
	"groupMessages":       {"GROUP_MESSAGES"},
	"proxy.enabled":       {"USE_PROXY"},
	"redis.url":           {"REDIS_URL"},
	"redis.password":      {"REDIS_PASSWORD"},
	"ai.apiKey":           {"OPENAI_API_KEY", "AI_API_KEY"},
	"ai.apiBase":          {"AI_API_BASE"},
	"admin.botToken":      {"TELEGRAM_ADMIN_BOT_TOKEN"},
	"admin.chatId":        {"ADMIN_CHAT_ID"},
}

// Load reads configuration from a JSON file, then overlays environment
// variables. If path is empty, uses the default config path. If the file
// doesn't exist, starts from DefaultConfig().
func Load(path string) (Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	cfg := DefaultConfig() // start with defaults so zero-value fields get filled

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	v := viper.New()
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		v.BindEnv(args...)
	}

	setStr := func(key string, dst *string) {
		if v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	setStr("instagram.username", &cfg.Instagram.Username)
	setStr("instagram.password", &cfg.Instagram.Password)
	setStr("instagram.authToken", &cfg.Instagram.AuthToken)
	setStr("instagram.accountId", &cfg.Instagram.AccountID)
	setStr("redis.url", &cfg.Redis.URL)
	setStr("redis.password", &cfg.Redis.Password)
	setStr("ai.apiKey", &cfg.AI.APIKey)
	setStr("ai.apiBase", &cfg.AI.APIBase)
	setStr("admin.botToken", &cfg.Admin.BotToken)
	setStr("admin.chatId", &cfg.Admin.ChatID)

	if v.GetString("language") != "" {
		cfg.Language = strings.ToLower(v.GetString("language"))
	}
	if v.IsSet("groupMessages") {
		cfg.GroupMessages = v.GetBool("groupMessages")
	}
	if v.IsSet("proxy.enabled") {
		cfg.Proxy.Enabled = v.GetBool("proxy.enabled")
	}
}

// Save writes configuration to a JSON file.
// If path is empty, uses the default config path.
func Save(cfg Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
