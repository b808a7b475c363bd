package config

import (
	"fmt"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
)

type Config struct {
	Env                  string
	DiscordToken         string
	DiscordGuildID       string
	AdminUserID          string
	CommandPrefix        string
	ReleaseVersion       string
	StoreBackend         string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	LivePrefix           string
	LiveTestStatus       string
	LiveLockEnabled      bool
	LiveLockRoleIDs      []string
	TwitchClientID       string
	TwitchClientSecret   string
	DefaultVolume        int
	MaxQueueLength       int
	NowPlayingRefreshSec int
	LiveWebhookURL       string
	FFmpegPath           string
	Port                 string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", StoreBackendPostgres)
		}
	case StoreBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORE_BACKEND=%s", StoreBackendRedis)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendPostgres, StoreBackendRedis, c.StoreBackend)
	}
	if c.LiveLockEnabled && len(c.LiveLockRoleIDs) == 0 {
		return fmt.Errorf("LIVE_LOCK_ROLE_IDS is required when LIVE_LOCK_ENABLED=true")
	}
	if (c.TwitchClientID == "") != (c.TwitchClientSecret == "") {
		return fmt.Errorf("TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET must be set together")
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 200 {
		return fmt.Errorf("DEFAULT_VOLUME must be within 0..200, got %d", c.DefaultVolume)
	}
	if c.MaxQueueLength <= 0 {
		return fmt.Errorf("MAX_QUEUE_LENGTH must be positive, got %d", c.MaxQueueLength)
	}
	if c.NowPlayingRefreshSec < 0 {
		return fmt.Errorf("NOW_PLAYING_REFRESH_SEC must not be negative, got %d", c.NowPlayingRefreshSec)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "ADMIN_USER_ID", value: c.AdminUserID},
		{name: "COMMAND_PREFIX", value: c.CommandPrefix},
		{name: "LIVE_PREFIX", value: c.LivePrefix},
		{name: "PORT", value: c.Port},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// TwitchEnabled reports whether the off-platform live oracle is configured.
func (c *Config) TwitchEnabled() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != ""
}
