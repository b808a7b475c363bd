package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/vibebot/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env                  string   `env:"ENV" envDefault:"production"`
	DiscordToken         string   `env:"DISCORD_TOKEN,required"`
	DiscordGuildID       string   `env:"DISCORD_GUILD_ID"`
	AdminUserID          string   `env:"ADMIN_USER_ID" envDefault:"198976694558785537"`
	CommandPrefix        string   `env:"COMMAND_PREFIX" envDefault:"!"`
	ReleaseVersion       string   `env:"RELEASE_VERSION"`
	HerokuReleaseVersion string   `env:"HEROKU_RELEASE_VERSION"`
	StoreBackend         string   `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL          string   `env:"DATABASE_URL"`
	RedisAddr            string   `env:"REDIS_ADDR"`
	RedisPassword        string   `env:"REDIS_PASSWORD"`
	RedisDB              int      `env:"REDIS_DB" envDefault:"0"`
	LivePrefix           string   `env:"LIVE_PREFIX" envDefault:"🔴[LIVE] "`
	LiveTestStatus       string   `env:"LIVE_TEST_STATUS" envDefault:"LIVE_TEST"`
	LiveLockEnabled      bool     `env:"LIVE_LOCK_ENABLED" envDefault:"false"`
	LiveLockRoleIDs      []string `env:"LIVE_LOCK_ROLE_IDS" envSeparator:","`
	TwitchClientID       string   `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret   string   `env:"TWITCH_CLIENT_SECRET"`
	DefaultVolume        int      `env:"DEFAULT_VOLUME" envDefault:"100"`
	MaxQueueLength       int      `env:"MAX_QUEUE_LENGTH" envDefault:"500"`
	NowPlayingRefreshSec int      `env:"NOW_PLAYING_REFRESH_SEC" envDefault:"15"`
	LiveWebhookURL       string   `env:"LIVE_WEBHOOK_URL"`
	FFmpegPath           string   `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	Port                 string   `env:"PORT" envDefault:"8080"`
}

func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file; continuing with process environment", "error", err)
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	release := raw.ReleaseVersion
	if release == "" {
		release = raw.HerokuReleaseVersion
	}

	cfg := &internalconfig.Config{
		Env:                  raw.Env,
		DiscordToken:         raw.DiscordToken,
		DiscordGuildID:       raw.DiscordGuildID,
		AdminUserID:          raw.AdminUserID,
		CommandPrefix:        raw.CommandPrefix,
		ReleaseVersion:       release,
		StoreBackend:         raw.StoreBackend,
		DatabaseURL:          raw.DatabaseURL,
		RedisAddr:            raw.RedisAddr,
		RedisPassword:        raw.RedisPassword,
		RedisDB:              raw.RedisDB,
		LivePrefix:           raw.LivePrefix,
		LiveTestStatus:       raw.LiveTestStatus,
		LiveLockEnabled:      raw.LiveLockEnabled,
		LiveLockRoleIDs:      raw.LiveLockRoleIDs,
		TwitchClientID:       raw.TwitchClientID,
		TwitchClientSecret:   raw.TwitchClientSecret,
		DefaultVolume:        raw.DefaultVolume,
		MaxQueueLength:       raw.MaxQueueLength,
		NowPlayingRefreshSec: raw.NowPlayingRefreshSec,
		LiveWebhookURL:       raw.LiveWebhookURL,
		FFmpegPath:           raw.FFmpegPath,
		Port:                 raw.Port,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
