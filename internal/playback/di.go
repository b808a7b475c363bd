package playback

import (
	"github.com/foxseedlab/vibebot/internal/config"
	"github.com/foxseedlab/vibebot/internal/media"
	"github.com/foxseedlab/vibebot/internal/voice"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		transport := do.MustInvoke[voice.Transport](i)
		resolver := do.MustInvoke[media.Resolver](i)
		notifier := do.MustInvoke[Notifier](i)
		return NewManager(transport, resolver, notifier, Options{
			DefaultVolume:  cfg.DefaultVolume,
			MaxQueueLength: cfg.MaxQueueLength,
		}), nil
	})
}
