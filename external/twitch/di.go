package twitch

import (
	"github.com/foxseedlab/vibebot/internal/config"
	"github.com/foxseedlab/vibebot/internal/live"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (live.Oracle, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewClient(Config{
			ClientID:     c.TwitchClientID,
			ClientSecret: c.TwitchClientSecret,
		}), nil
	})
}
