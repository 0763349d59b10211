package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken     string
	DiscordAppID     string
	DiscordPublicKey string
	DiscordGuildID   string

	// StateKey signs the state carried in component custom ids.
	StateKey string

	AutoDefer       bool
	AutoDeferHidden bool

	Port     string
	DataDir  string
	LogLevel slog.Level
}

func Load() (*Config, error) {
	// .env is optional, the environment may already carry everything
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordAppID:     os.Getenv("DISCORD_APP_ID"),
		DiscordPublicKey: os.Getenv("DISCORD_PUBLIC_KEY"),
		DiscordGuildID:   os.Getenv("DISCORD_GUILD_ID"),
		StateKey:         os.Getenv("STATE_KEY"),
		AutoDefer:        parseBoolEnv("AUTO_DEFER"),
		AutoDeferHidden:  parseBoolEnv("AUTO_DEFER_HIDDEN"),
		Port:             os.Getenv("PORT"),
		DataDir:          os.Getenv("DATA_DIR"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}

	level, err := parseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.StateKey == "" {
		// custom ids signed with a random key do not survive a restart
		key, err := randomHex(32)
		if err != nil {
			return nil, fmt.Errorf("generating state key: %w", err)
		}
		cfg.StateKey = key
	}

	for _, req := range []struct {
		name, val string
	}{
		{"DISCORD_TOKEN", cfg.DiscordToken},
		{"DISCORD_APP_ID", cfg.DiscordAppID},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("required env var %s is not set", req.name)
		}
	}

	return cfg, nil
}

// RequireHTTP checks the settings only the HTTP interactions endpoint needs.
func (c *Config) RequireHTTP() error {
	if c.DiscordPublicKey == "" {
		return fmt.Errorf("required env var DISCORD_PUBLIC_KEY is not set")
	}
	return nil
}

// BotToken returns the token in the form the REST API expects.
func (c *Config) BotToken() string {
	if strings.HasPrefix(c.DiscordToken, "Bot ") {
		return c.DiscordToken
	}
	return "Bot " + c.DiscordToken
}

func parseBoolEnv(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
