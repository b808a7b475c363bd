package media

import (
	"github.com/foxseedlab/vibebot/internal/config"
	"github.com/foxseedlab/vibebot/internal/media"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (media.Resolver, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewYTDLPResolver(c.MaxQueueLength), nil
	})
}
