// Package config loads environment variables and provides a typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials, use ValidateBotReady.
package config

import (
	"fmt"
	"os"
	"time"
)

// SocialLinks holds the configured channel links embedded into social-media answers.
type SocialLinks struct {
	Instagram string
	YouTube   string
	VOD       string
	Discord   string
	X         string
	TikTok    string
}

type Config struct {
	// Twitch identity
	TwitchAccessToken  string
	TwitchRefreshToken string
	TwitchClientID     string
	TwitchClientSecret string
	BroadcasterID      string
	BotUserID          string

	// Bot behavior
	TriggerPrefix  string
	ReconnectDelay time.Duration
	ScheduleTZ     string

	// Prompt blocks (optional; empty blocks contribute nothing)
	PromptProfile  string
	PromptNegative string

	Socials SocialLinks

	// Completion service
	OpenAIAPIKey string
	OpenAIModel  string

	// Credential persistence
	EnvFile string
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds are
// missing; use ValidateBotReady() before connecting. Missing optional variables disable the
// corresponding prompt blocks or fall back to defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchAccessToken = os.Getenv("TWITCH_ACCESS_TOKEN")
	cfg.TwitchRefreshToken = os.Getenv("TWITCH_REFRESH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	cfg.BroadcasterID = os.Getenv("TWITCH_BROADCASTER_ID")
	cfg.BotUserID = os.Getenv("BOT_USER_ID")
	if cfg.BotUserID == "" {
		// The bot posts as the broadcaster when no dedicated bot account is configured.
		cfg.BotUserID = cfg.BroadcasterID
	}

	cfg.TriggerPrefix = os.Getenv("BOT_TRIGGER")
	if cfg.TriggerPrefix == "" {
		cfg.TriggerPrefix = "!brigadier"
	}

	cfg.ReconnectDelay = 5 * time.Second
	if v := os.Getenv("RECONNECT_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RECONNECT_DELAY: %w", err)
		}
		if d > 0 {
			cfg.ReconnectDelay = d
		}
	}

	cfg.ScheduleTZ = os.Getenv("SCHEDULE_TZ")
	if cfg.ScheduleTZ == "" {
		cfg.ScheduleTZ = "GMT+1"
	}

	cfg.PromptProfile = os.Getenv("PROMPT_PROFILE")
	cfg.PromptNegative = os.Getenv("PROMPT_NEGATIVE")

	cfg.Socials = SocialLinks{
		Instagram: os.Getenv("INSTAGRAM_URL"),
		YouTube:   os.Getenv("YOUTUBE_URL"),
		VOD:       os.Getenv("VOD_URL"),
		Discord:   os.Getenv("DISCORD_URL"),
		X:         os.Getenv("X_URL"),
		TikTok:    os.Getenv("TIKTOK_URL"),
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = os.Getenv("OPENAI_MODEL")
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.EnvFile = os.Getenv("ENV_FILE")
	if cfg.EnvFile == "" {
		cfg.EnvFile = ".env"
	}

	return cfg, nil
}

// ValidateBotReady checks required fields before the bot connects to Twitch.
func (c *Config) ValidateBotReady() error {
	if c.TwitchAccessToken == "" || c.TwitchRefreshToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_ACCESS_TOKEN, TWITCH_REFRESH_TOKEN")
	}
	if c.TwitchClientID == "" || c.TwitchClientSecret == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET")
	}
	if c.BroadcasterID == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_BROADCASTER_ID")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("missing OPENAI_API_KEY")
	}
	return nil
}
