package live

import (
	"github.com/foxseedlab/vibebot/internal/config"
	"github.com/foxseedlab/vibebot/internal/discord"
	"github.com/foxseedlab/vibebot/internal/repository"
	"github.com/foxseedlab/vibebot/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Tracker, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		repo := do.MustInvoke[repository.Repository](i)
		var hook webhook.Sender
		if cfg.LiveWebhookURL != "" {
			hook = do.MustInvoke[webhook.Sender](i)
		}
		var oracle Oracle
		if cfg.TwitchEnabled() {
			oracle = do.MustInvoke[Oracle](i)
		}
		return NewTracker(dc, repo, oracle, Options{
			Prefix:      cfg.LivePrefix,
			AdminUserID: cfg.AdminUserID,
			TestStatus:  cfg.LiveTestStatus,
			LockEnabled: cfg.LiveLockEnabled,
			LockRoleIDs: cfg.LiveLockRoleIDs,
			Webhook:     hook,
		}), nil
	})
}
