package live

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/foxseedlab/vibebot/internal/discord"
	"github.com/foxseedlab/vibebot/internal/repository"
	"github.com/foxseedlab/vibebot/internal/syncutil"
	"github.com/foxseedlab/vibebot/internal/webhook"
)

// Oracle reports whether an external broadcaster is currently live.
type Oracle interface {
	IsLive(ctx context.Context, login string) (bool, error)
}

// ChannelGateway is the part of the chat client the tracker needs.
type ChannelGateway interface {
	ListVoiceChannelMembers(guildID, channelID string) ([]discord.VoiceMember, error)
	GetChannelName(channelID string) (string, error)
	RenameChannel(ctx context.Context, channelID, name string) error
	DenyRoleConnect(channelID, roleID string) error
	ClearRoleOverride(channelID, roleID string) error
}

type Transition int

const (
	TransitionNone Transition = iota
	TransitionToLive
	TransitionToNotLive
)

func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionToLive:
		return "to_live"
	case TransitionToNotLive:
		return "to_not_live"
	default:
		return "unknown"
	}
}

var ErrInvalidTwitchLogin = errors.New("invalid twitch login")

var twitchLoginPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,25}$`)

type Options struct {
	Prefix      string
	AdminUserID string
	TestStatus  string
	LockEnabled bool
	LockRoleIDs []string
	// Webhook receives each transition when set.
	Webhook webhook.Sender
}

type Tracker struct {
	gateway ChannelGateway
	repo    repository.Repository
	oracle  Oracle
	opts    Options
	locks   *syncutil.KeyedMutex
}

// NewTracker builds a tracker. oracle may be nil.
func NewTracker(gateway ChannelGateway, repo repository.Repository, oracle Oracle, opts Options) *Tracker {
	return &Tracker{
		gateway: gateway,
		repo:    repo,
		oracle:  oracle,
		opts:    opts,
		locks:   syncutil.NewKeyedMutex(),
	}
}

// ShouldBeLive reports whether any non-bot member is broadcasting.
func (t *Tracker) ShouldBeLive(ctx context.Context, members []discord.VoiceMember) bool {
	for _, m := range members {
		if m.IsBot {
			continue
		}
		if t.memberIsLive(ctx, m) {
			return true
		}
	}
	return false
}

func (t *Tracker) memberIsLive(ctx context.Context, m discord.VoiceMember) bool {
	if m.HasPresence {
		for _, a := range m.Activities {
			if a.Type == discord.ActivityStreaming && a.URL != "" {
				return true
			}
			if a.Type == discord.ActivityCustom && m.UserID == t.opts.AdminUserID && t.opts.TestStatus != "" && a.State == t.opts.TestStatus {
				return true
			}
		}
	}
	if t.oracle == nil {
		return false
	}
	login, err := t.repo.FindTwitchLogin(ctx, m.UserID)
	if err != nil {
		slog.Warn("failed to look up twitch login", "error", err, "user_id", m.UserID)
		return false
	}
	if login == "" {
		return false
	}
	isLive, err := t.oracle.IsLive(ctx, login)
	if err != nil {
		slog.Warn("live oracle lookup failed", "error", err, "user_id", m.UserID, "twitch_login", login)
		return false
	}
	return isLive
}

// EvaluateAndApply converges the channel's displayed and stored live state.
// Repeated calls with an unchanged channel apply nothing.
func (t *Tracker) EvaluateAndApply(ctx context.Context, guildID, channelID string) (Transition, error) {
	unlock := t.locks.Lock(channelID)
	defer unlock()

	members, err := t.gateway.ListVoiceChannelMembers(guildID, channelID)
	if err != nil {
		return TransitionNone, errors.Wrap(err, "failed to list voice channel members")
	}
	desired := t.ShouldBeLive(ctx, members)

	rec, err := t.repo.FindChannel(ctx, channelID)
	if err != nil {
		return TransitionNone, errors.Wrap(err, "failed to read channel record")
	}
	stored := rec != nil && rec.Live
	if desired == stored {
		return TransitionNone, nil
	}

	current, err := t.gateway.GetChannelName(channelID)
	if err != nil {
		return TransitionNone, errors.Wrap(err, "failed to read channel name")
	}
	trueName := t.stripPrefix(current)
	if rec != nil && rec.Name != "" {
		trueName = rec.Name
	}

	transition := TransitionToNotLive
	newName := trueName
	if desired {
		transition = TransitionToLive
		newName = t.opts.Prefix + trueName
	}

	if current != newName {
		if err := t.gateway.RenameChannel(ctx, channelID, newName); err != nil {
			return TransitionNone, errors.Wrapf(err, "failed to rename channel to %q", newName)
		}
	}
	if err := t.repo.UpsertChannel(ctx, repository.UpsertChannelInput{
		ChannelID:  channelID,
		GuildID:    guildID,
		Name:       trueName,
		Live:       desired,
		UpdateName: !desired,
	}); err != nil {
		return TransitionNone, errors.Wrap(err, "failed to store channel record")
	}
	slog.Info("channel live state changed", "guild_id", guildID, "channel_id", channelID, "transition", transition.String(), "name", newName)

	if t.opts.LockEnabled {
		t.toggleLock(channelID, desired)
	}
	if t.opts.Webhook != nil {
		t.publish(ctx, webhook.LiveStatusPayload{
			GuildID:     guildID,
			ChannelID:   channelID,
			ChannelName: trueName,
			Live:        desired,
			ChangedAt:   time.Now().UTC(),
		})
	}
	return transition, nil
}

func (t *Tracker) publish(ctx context.Context, payload webhook.LiveStatusPayload) {
	if err := t.opts.Webhook.SendLiveStatus(ctx, payload); err != nil {
		slog.Warn("failed to send live status webhook", "error", err, "channel_id", payload.ChannelID, "live", payload.Live)
	}
}

func (t *Tracker) toggleLock(channelID string, live bool) {
	for _, roleID := range t.opts.LockRoleIDs {
		var err error
		if live {
			err = t.gateway.DenyRoleConnect(channelID, roleID)
		} else {
			err = t.gateway.ClearRoleOverride(channelID, roleID)
		}
		if err != nil {
			slog.Warn("failed to toggle connect permission", "error", err, "channel_id", channelID, "role_id", roleID, "live", live)
		}
	}
}

func (t *Tracker) stripPrefix(name string) string {
	if t.opts.Prefix == "" {
		return name
	}
	for strings.HasPrefix(name, t.opts.Prefix) {
		name = strings.TrimPrefix(name, t.opts.Prefix)
	}
	return name
}

// LinkStreamer records the Twitch login checked by the oracle for a member.
func (t *Tracker) LinkStreamer(ctx context.Context, userID, login string) error {
	login = strings.ToLower(strings.TrimSpace(login))
	if !twitchLoginPattern.MatchString(login) {
		return errors.Wrapf(ErrInvalidTwitchLogin, "%q", login)
	}
	if err := t.repo.LinkTwitchLogin(ctx, userID, login); err != nil {
		return errors.Wrap(err, "failed to store twitch login")
	}
	return nil
}

func (t *Tracker) OracleEnabled() bool {
	return t.oracle != nil
}
