package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/vibebot/external/audio"
	configloader "github.com/foxseedlab/vibebot/external/config"
	"github.com/foxseedlab/vibebot/external/discord"
	mediaimpl "github.com/foxseedlab/vibebot/external/media"
	repositoryimpl "github.com/foxseedlab/vibebot/external/repository"
	"github.com/foxseedlab/vibebot/external/twitch"
	voiceimpl "github.com/foxseedlab/vibebot/external/voice"
	webhookimpl "github.com/foxseedlab/vibebot/external/webhook"
	"github.com/foxseedlab/vibebot/internal/bot"
	"github.com/foxseedlab/vibebot/internal/config"
	discordpkg "github.com/foxseedlab/vibebot/internal/discord"
	"github.com/foxseedlab/vibebot/internal/health"
	"github.com/foxseedlab/vibebot/internal/live"
	"github.com/foxseedlab/vibebot/internal/playback"
	"github.com/samber/do/v2"
)

const (
	discordConnectTimeout = 20 * time.Second
	shutdownTimeout       = 10 * time.Second
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "store_backend", cfg.StoreBackend, "twitch_enabled", cfg.TwitchEnabled())

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching discord bot")
	runBot(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	mediaimpl.RegisterDI(injector)
	voiceimpl.RegisterDI(injector)
	twitch.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	bot.RegisterDI(injector)
	playback.RegisterDI(injector)
	live.RegisterDI(injector)

	return injector
}

func runBot(cfg *config.Config, injector do.Injector) {
	dc, err := do.Invoke[discordpkg.Client](injector)
	if err != nil {
		slog.Error("failed to resolve discord client", "error", err)
		os.Exit(1)
	}
	manager, err := do.Invoke[*playback.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve playback manager", "error", err)
		os.Exit(1)
	}
	router, err := do.Invoke[*bot.Router](injector)
	if err != nil {
		slog.Error("failed to resolve event router", "error", err)
		os.Exit(1)
	}
	board, err := do.Invoke[*bot.NowPlayingBoard](injector)
	if err != nil {
		slog.Error("failed to resolve now playing board", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancel()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(ctx); err != nil {
		slog.Error("discord connect failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: discord connected")

	dc.RegisterVoiceStateUpdateHandler(router.HandleVoiceStateUpdate)
	dc.RegisterPresenceUpdateHandler(router.HandlePresenceUpdate)
	dc.RegisterSlashCommandHandler(router.HandleSlashCommand)
	dc.RegisterMessageHandler(router.HandleMessage)
	slog.Info("discord handlers registered", "command_prefix", cfg.CommandPrefix)

	if cfg.DiscordGuildID != "" {
		if err := dc.UpsertGuildSlashCommands(cfg.DiscordGuildID, bot.SlashCommandDefinitions()); err != nil {
			slog.Error("failed to upsert slash commands", "error", err, "guild_id", cfg.DiscordGuildID)
		}
	}
	if err := dc.SetWatchingStatus(watchingStatus(cfg.ReleaseVersion)); err != nil {
		slog.Warn("failed to set bot status", "error", err)
	}

	healthServer := health.NewServer(cfg.Port, func() int {
		return len(manager.ActiveGuilds())
	})
	healthServer.Start()

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go board.Run(runCtx, manager, time.Duration(cfg.NowPlayingRefreshSec)*time.Second)

	defer func() {
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	stopRun()
	manager.Close()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("health server shutdown failed", "error", err)
	}
}

func watchingStatus(release string) string {
	if release == "" {
		return "Voice Chats"
	}
	return "Voice Chats : " + release
}
