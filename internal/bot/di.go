package bot

import (
	"github.com/foxseedlab/vibebot/internal/config"
	"github.com/foxseedlab/vibebot/internal/discord"
	"github.com/foxseedlab/vibebot/internal/live"
	"github.com/foxseedlab/vibebot/internal/playback"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*NowPlayingBoard, error) {
		dc := do.MustInvoke[discord.Client](i)
		return NewNowPlayingBoard(dc), nil
	})
	do.Provide(injector, func(i do.Injector) (playback.Notifier, error) {
		return do.MustInvoke[*NowPlayingBoard](i), nil
	})
	do.Provide(injector, func(i do.Injector) (*Router, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		manager := do.MustInvoke[*playback.Manager](i)
		tracker := do.MustInvoke[*live.Tracker](i)
		return NewRouter(dc, manager, tracker, RouterOptions{
			CommandPrefix: cfg.CommandPrefix,
			AdminUserID:   cfg.AdminUserID,
		}), nil
	})
}
