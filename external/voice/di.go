package voice

import (
	"github.com/foxseedlab/vibebot/internal/audio"
	"github.com/foxseedlab/vibebot/internal/config"
	"github.com/foxseedlab/vibebot/internal/discord"
	"github.com/foxseedlab/vibebot/internal/media"
	"github.com/foxseedlab/vibebot/internal/voice"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (voice.Transport, error) {
		c := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		resolver := do.MustInvoke[media.Resolver](i)
		newEncoder := do.MustInvoke[audio.EncoderFactory](i)
		return NewDiscordTransport(dc, resolver, newEncoder, c.FFmpegPath), nil
	})
}
