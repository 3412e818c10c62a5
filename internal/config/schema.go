// Package config defines the agent configuration schema and loader.
package config

import (
	"errors"
	"os"
	"path/filepath"
)

// InstagramConfig holds the account credentials and device identity.
type InstagramConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// AuthToken/AccountID allow running with a pre-issued session when no
	// password is available (e.g. hosted deployments). See session store tiers.
	AuthToken string `json:"authToken,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	DeviceID  string `json:"deviceId"`
}

// ProxyConfig controls per-attempt proxy routing.
type ProxyConfig struct {
	Enabled bool     `json:"enabled"`
	List    []string `json:"list,omitempty"`
}

// RedisConfig holds the shared remote store connection settings.
type RedisConfig struct {
	URL      string `json:"url,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// AIConfig configures the conversational responder backend.
type AIConfig struct {
	APIKey      string  `json:"apiKey,omitempty"`
	APIBase     string  `json:"apiBase,omitempty"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// AdminConfig configures the operator notification channel (Telegram).
type AdminConfig struct {
	BotToken string `json:"botToken,omitempty"`
	ChatID   string `json:"chatId,omitempty"`
}

// Config is the full agent configuration.
type Config struct {
	Instagram     InstagramConfig `json:"instagram"`
	Language      string          `json:"language"`
	GroupMessages bool            `json:"groupMessages"`
	Proxy         ProxyConfig     `json:"proxy"`
	Redis         RedisConfig     `json:"redis"`
	AI            AIConfig        `json:"ai"`
	Admin         AdminConfig     `json:"admin"`

	// DataDir holds the session file, operator state file, GIF library
	// and knowledge file. Defaults to ~/.dmagent.
	DataDir       string `json:"dataDir"`
	KnowledgeFile string `json:"knowledgeFile"`
	GifLibrary    string `json:"gifLibrary"`

	// PollInterval is the pause between inbox polls, in seconds.
	PollInterval int `json:"pollInterval"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() Config {
	dataDir := defaultDataDir()
	return Config{
		Instagram: InstagramConfig{
			DeviceID: "android-a19180f55839e822",
		},
		Language:      "english",
		GroupMessages: false,
		AI: AIConfig{
			Model:       "gpt-4o",
			Temperature: 0.9,
			MaxTokens:   512,
		},
		DataDir:       dataDir,
		KnowledgeFile: filepath.Join(dataDir, "knowledge.txt"),
		GifLibrary:    filepath.Join(dataDir, "gifs.yaml"),
		PollInterval:  2,
	}
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dmagent")
}

// ErrMissingCredentials is returned by Validate when the agent cannot start.
var ErrMissingCredentials = errors.New("config: username and password (or auth token) are required")

// ErrMissingLanguage is returned by Validate when no reply language is set.
var ErrMissingLanguage = errors.New("config: reply language is required")

// Validate checks the fields without which the dispatch loop cannot start.
func (c Config) Validate() error {
	hasLogin := c.Instagram.Username != "" && c.Instagram.Password != ""
	hasToken := c.Instagram.AuthToken != "" && c.Instagram.AccountID != ""
	if !hasLogin && !hasToken {
		return ErrMissingCredentials
	}
	if c.Language == "" {
		return ErrMissingLanguage
	}
	return nil
}

// SessionPath returns the local session file path.
func (c Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

// StatePath returns the operator state file path (shared with the console).
func (c Config) StatePath() string {
	return filepath.Join(c.DataDir, "agent_state.json")
}

// Knowledge reads the knowledge file, returning "" when it does not exist.
func (c Config) Knowledge() string {
	data, err := os.ReadFile(c.KnowledgeFile)
	if err != nil {
		return ""
	}
	return string(data)
}
