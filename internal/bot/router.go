package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/foxseedlab/vibebot/internal/discord"
	"github.com/foxseedlab/vibebot/internal/live"
	"github.com/foxseedlab/vibebot/internal/media"
	"github.com/foxseedlab/vibebot/internal/playback"
	"github.com/foxseedlab/vibebot/internal/voice"
)

const (
	commandTimeout    = 45 * time.Second
	evaluationTimeout = 20 * time.Second
)

// Playback is the part of *playback.Manager the router drives.
type Playback interface {
	Enqueue(ctx context.Context, req playback.EnqueueRequest) (playback.EnqueueResult, error)
	EnqueuePlaylist(ctx context.Context, req playback.EnqueueRequest) (playback.EnqueueResult, error)
	HandleVoiceEvent(ev voice.Event)
	Skip(ctx context.Context, guildID string) (playback.Track, error)
	Stop(ctx context.Context, guildID string) error
	Pause(ctx context.Context, guildID string) error
	Resume(ctx context.Context, guildID string) error
	SetVolume(ctx context.Context, guildID string, volume int) error
	Seek(ctx context.Context, guildID string, offset time.Duration) error
	SetRepeatMode(ctx context.Context, guildID string, mode playback.RepeatMode) error
	Remove(ctx context.Context, guildID string, position int) (playback.Track, error)
	Clear(ctx context.Context, guildID string) (int, error)
	Shuffle(ctx context.Context, guildID string) error
	Snapshot(guildID string) (playback.Snapshot, bool)
}

// LiveTracker is the part of *live.Tracker the router drives.
type LiveTracker interface {
	EvaluateAndApply(ctx context.Context, guildID, channelID string) (live.Transition, error)
	LinkStreamer(ctx context.Context, userID, login string) error
	OracleEnabled() bool
}

type RouterOptions struct {
	CommandPrefix string
	AdminUserID   string
}

type Router struct {
	discord  discord.Client
	playback Playback
	tracker  LiveTracker
	opts     RouterOptions
}

func NewRouter(dc discord.Client, pb Playback, tracker LiveTracker, opts RouterOptions) *Router {
	return &Router{
		discord:  dc,
		playback: pb,
		tracker:  tracker,
		opts:     opts,
	}
}

// invocation is a command from either the slash or the prefix surface.
type invocation struct {
	guildID   string
	channelID string
	userID    string
	name      string
	strArgs   map[string]string
	intArgs   map[string]int64
}

func (r *Router) HandleVoiceStateUpdate(event discord.VoiceStateEvent) {
	if event.UserIsBot {
		r.handleBotVoiceState(event)
		return
	}
	channels := channelsToEvaluate(event)
	if len(channels) == 0 {
		return
	}
	slog.Debug("voice state update received", "guild_id", event.GuildID, "user_id", event.UserID, "before_channel_id", event.BeforeChannelID, "after_channel_id", event.AfterChannelID)
	for _, channelID := range channels {
		r.evaluate(event.GuildID, channelID)
	}
}

func (r *Router) handleBotVoiceState(event discord.VoiceStateEvent) {
	if event.BeforeChannelID == "" || event.AfterChannelID != "" {
		return
	}
	botUserID, err := r.discord.GetBotUserID()
	if err != nil || botUserID != event.UserID {
		return
	}
	slog.Info("bot left voice channel", "guild_id", event.GuildID, "channel_id", event.BeforeChannelID)
	r.playback.HandleVoiceEvent(voice.Event{
		Kind:      voice.EventDisconnected,
		GuildID:   event.GuildID,
		ChannelID: event.BeforeChannelID,
	})
}

// channelsToEvaluate returns the channels whose live state may have changed, old channel first.
func channelsToEvaluate(event discord.VoiceStateEvent) []string {
	before, after := event.BeforeChannelID, event.AfterChannelID
	switch {
	case before == "" && after == "":
		return nil
	case before == after:
		if event.MuteBefore != event.MuteAfter || event.DeafBefore != event.DeafAfter {
			return []string{after}
		}
		return nil
	case before == "":
		return []string{after}
	case after == "":
		return []string{before}
	default:
		return []string{before, after}
	}
}

// HandlePresenceUpdate re-evaluates the member's current voice channel when their activities change.
func (r *Router) HandlePresenceUpdate(event discord.PresenceEvent) {
	if event.UserIsBot {
		return
	}
	// Presence updates fire for every member, so only the gateway cache is consulted.
	channelID, err := r.discord.GetCachedUserVoiceChannelID(event.GuildID, event.UserID)
	if errors.Is(err, discord.ErrGuildNotCached) {
		slog.Debug("guild not cached yet; skipping presence update", "guild_id", event.GuildID, "user_id", event.UserID)
		return
	}
	if err != nil {
		slog.Warn("failed to look up voice channel for presence update", "error", err, "guild_id", event.GuildID, "user_id", event.UserID)
		return
	}
	if channelID == "" {
		return
	}
	r.evaluate(event.GuildID, channelID)
}

func (r *Router) evaluate(guildID, channelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), evaluationTimeout)
	defer cancel()
	transition, err := r.tracker.EvaluateAndApply(ctx, guildID, channelID)
	if err != nil {
		slog.Error("failed to apply live status", "error", err, "guild_id", guildID, "channel_id", channelID)
		return
	}
	if transition != live.TransitionNone {
		slog.Info("live status changed", "guild_id", guildID, "channel_id", channelID, "transition", transition.String())
	}
}

func (r *Router) HandleSlashCommand(event discord.SlashCommandEvent) {
	inv := invocation{
		guildID:   event.GuildID,
		channelID: event.ChannelID,
		userID:    event.UserID,
		name:      event.CommandName,
		strArgs:   event.StringArgs,
		intArgs:   event.IntArgs,
	}
	if isLongCommand(inv.name) && event.Defer != nil {
		if err := event.Defer(); err != nil {
			slog.Error("failed to defer interaction", "error", err, "command", inv.name, "guild_id", inv.guildID)
			return
		}
	}
	reply := r.execute(inv)
	if err := event.Respond(reply); err != nil {
		slog.Error("failed to respond to slash command", "error", err, "command", inv.name, "guild_id", inv.guildID)
	}
}

func isLongCommand(name string) bool {
	switch name {
	case commandPlay, commandPlaylist, commandSkip, commandStop, commandSeek, commandTwitchLink:
		return true
	}
	return false
}

func (r *Router) HandleMessage(event discord.MessageEvent) {
	if event.AuthorIsBot || r.opts.CommandPrefix == "" {
		return
	}
	name, rest, ok := parsePrefixCommand(r.opts.CommandPrefix, event.Content)
	if !ok {
		return
	}
	if name == commandDeploy {
		r.deploy(event)
		return
	}
	inv := invocation{
		guildID:   event.GuildID,
		channelID: event.ChannelID,
		userID:    event.AuthorID,
		name:      name,
		strArgs:   make(map[string]string),
		intArgs:   make(map[string]int64),
	}
	if !fillPrefixArgs(&inv, rest) {
		r.reply(event, messageMissingArgument)
		return
	}
	slog.Info("prefix command received", "guild_id", inv.guildID, "channel_id", inv.channelID, "command", name, "user_id", inv.userID)
	r.reply(event, r.execute(inv))
}

func (r *Router) reply(event discord.MessageEvent, content string) {
	if err := event.Reply(content); err != nil {
		slog.Error("failed to reply to prefix command", "error", err, "guild_id", event.GuildID, "channel_id", event.ChannelID)
	}
}

// deploy registers slash commands in the current guild. Non-admins get no response.
func (r *Router) deploy(event discord.MessageEvent) {
	if event.AuthorID != r.opts.AdminUserID {
		return
	}
	if err := r.discord.UpsertGuildSlashCommands(event.GuildID, SlashCommandDefinitions()); err != nil {
		slog.Error("failed to deploy slash commands", "error", err, "guild_id", event.GuildID)
		r.reply(event, messageDeployFailed)
		return
	}
	slog.Info("slash commands deployed", "guild_id", event.GuildID)
	r.reply(event, messageDeployed)
}

func parsePrefixCommand(prefix, content string) (string, string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	body := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if body == "" {
		return "", "", false
	}
	name, rest, _ := strings.Cut(body, " ")
	name = strings.ToLower(name)
	if alias, ok := prefixAliases[name]; ok {
		name = alias
	}
	return name, strings.TrimSpace(rest), true
}

// fillPrefixArgs maps the free text after a prefix command onto the slash option names.
func fillPrefixArgs(inv *invocation, rest string) bool {
	switch inv.name {
	case commandPlay:
		inv.strArgs[optionQuery] = rest
	case commandPlaylist:
		inv.strArgs[optionURL] = rest
	case commandRepeat:
		inv.strArgs[optionMode] = rest
	case commandTwitchLink:
		inv.strArgs[optionLogin] = rest
	case commandVolume:
		return fillIntArg(inv, optionLevel, rest, strconv.Atoi)
	case commandRemove:
		return fillIntArg(inv, optionPosition, rest, strconv.Atoi)
	case commandSeek:
		return fillIntArg(inv, optionSeconds, rest, parseClock)
	}
	return true
}

func fillIntArg(inv *invocation, option, raw string, parse func(string) (int, error)) bool {
	if raw == "" {
		return false
	}
	n, err := parse(raw)
	if err != nil {
		return false
	}
	inv.intArgs[option] = int64(n)
	return true
}

// parseClock accepts "90", "1:30" or "1:02:03" and returns seconds.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}

func (r *Router) execute(inv invocation) string {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch inv.name {
	case commandPlay:
		return r.play(ctx, inv, inv.strArgs[optionQuery], r.playback.Enqueue)
	case commandPlaylist:
		return r.play(ctx, inv, inv.strArgs[optionURL], r.playback.EnqueuePlaylist)
	case commandSkip:
		if msg := r.requireVoice(inv); msg != "" {
			return msg
		}
		track, err := r.playback.Skip(ctx, inv.guildID)
		if err != nil {
			return r.failure(inv, err)
		}
		return fmt.Sprintf(messageSkippedFormat, trackLabel(track))
	case commandStop:
		if msg := r.requireVoice(inv); msg != "" {
			return msg
		}
		if err := r.playback.Stop(ctx, inv.guildID); err != nil {
			return r.failure(inv, err)
		}
		return messageStopped
	case commandPause:
		if err := r.playback.Pause(ctx, inv.guildID); err != nil {
			return r.failure(inv, err)
		}
		return messagePaused
	case commandResume:
		if err := r.playback.Resume(ctx, inv.guildID); err != nil {
			return r.failure(inv, err)
		}
		return messageResumed
	case commandVolume:
		level, ok := inv.intArgs[optionLevel]
		if !ok {
			return messageMissingArgument
		}
		if err := r.playback.SetVolume(ctx, inv.guildID, int(level)); err != nil {
			return r.failure(inv, err)
		}
		return fmt.Sprintf(messageVolumeFormat, level)
	case commandSeek:
		seconds, ok := inv.intArgs[optionSeconds]
		if !ok {
			return messageMissingArgument
		}
		offset := time.Duration(seconds) * time.Second
		if err := r.playback.Seek(ctx, inv.guildID, offset); err != nil {
			return r.failure(inv, err)
		}
		return fmt.Sprintf(messageSeekFormat, formatDuration(offset))
	case commandRepeat:
		mode, err := playback.ParseRepeatMode(inv.strArgs[optionMode])
		if err != nil {
			return messageInvalidRepeatMode
		}
		if err := r.playback.SetRepeatMode(ctx, inv.guildID, mode); err != nil {
			return r.failure(inv, err)
		}
		return fmt.Sprintf(messageRepeatFormat, mode)
	case commandRemove:
		position, ok := inv.intArgs[optionPosition]
		if !ok {
			return messageMissingArgument
		}
		track, err := r.playback.Remove(ctx, inv.guildID, int(position))
		if err != nil {
			return r.failure(inv, err)
		}
		return fmt.Sprintf(messageRemovedFormat, trackLabel(track))
	case commandClear:
		n, err := r.playback.Clear(ctx, inv.guildID)
		if err != nil {
			return r.failure(inv, err)
		}
		return fmt.Sprintf(messageClearedFormat, n)
	case commandShuffle:
		if err := r.playback.Shuffle(ctx, inv.guildID); err != nil {
			return r.failure(inv, err)
		}
		return messageShuffled
	case commandQueue:
		snap, ok := r.playback.Snapshot(inv.guildID)
		if !ok {
			return messageQueueEmpty
		}
		return queueMessage(snap)
	case commandNowPlaying:
		snap, ok := r.playback.Snapshot(inv.guildID)
		if !ok {
			return messageNoActiveQueue
		}
		return nowPlayingMessage(snap)
	case commandTwitchLink:
		return r.linkTwitch(ctx, inv)
	default:
		return messageUnknownCommand
	}
}

type enqueueFunc func(ctx context.Context, req playback.EnqueueRequest) (playback.EnqueueResult, error)

func (r *Router) play(ctx context.Context, inv invocation, query string, enqueue enqueueFunc) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return messageMissingArgument
	}
	voiceChannelID, err := r.discord.GetUserVoiceChannelID(inv.guildID, inv.userID)
	if err != nil {
		slog.Error("failed to look up requester voice channel", "error", err, "guild_id", inv.guildID, "user_id", inv.userID)
		return messageVoiceLookupFailed
	}
	res, err := enqueue(ctx, playback.EnqueueRequest{
		GuildID:        inv.guildID,
		TextChannelID:  inv.channelID,
		RequesterID:    inv.userID,
		VoiceChannelID: voiceChannelID,
		Query:          query,
	})
	if err != nil {
		return r.failure(inv, err)
	}
	switch {
	case len(res.Tracks) > 1:
		return fmt.Sprintf(messagePlaylistFormat, len(res.Tracks), res.Position)
	case res.NowPlaying:
		return fmt.Sprintf(messageStartingFormat, trackLabel(res.Track()))
	default:
		return fmt.Sprintf(messageQueuedFormat, trackLabel(res.Track()), res.Position)
	}
}

func (r *Router) requireVoice(inv invocation) string {
	channelID, err := r.discord.GetUserVoiceChannelID(inv.guildID, inv.userID)
	if err != nil {
		slog.Error("failed to look up requester voice channel", "error", err, "guild_id", inv.guildID, "user_id", inv.userID)
		return messageVoiceLookupFailed
	}
	if channelID == "" {
		return messageJoinVCFirst
	}
	return ""
}

func (r *Router) linkTwitch(ctx context.Context, inv invocation) string {
	login := strings.TrimSpace(inv.strArgs[optionLogin])
	if login == "" {
		return messageMissingArgument
	}
	if err := r.tracker.LinkStreamer(ctx, inv.userID, login); err != nil {
		return r.failure(inv, err)
	}
	msg := fmt.Sprintf(messageTwitchLinkedFormat, strings.ToLower(login))
	if !r.tracker.OracleEnabled() {
		msg += "\n" + messageTwitchDisabledHint
	}
	return msg
}

func (r *Router) failure(inv invocation, err error) string {
	msg := errorMessage(err)
	if msg == messageGenericFailure {
		slog.Error("command failed", "error", err, "command", inv.name, "guild_id", inv.guildID, "user_id", inv.userID)
	} else {
		slog.Info("command rejected", "error", err, "command", inv.name, "guild_id", inv.guildID, "user_id", inv.userID)
	}
	return msg
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, playback.ErrNotInVoiceChannel):
		return messageJoinVCFirst
	case errors.Is(err, playback.ErrMissingVoicePermissions):
		return messageMissingPermissions
	case errors.Is(err, media.ErrNotPlaylist):
		return messageNotPlaylist
	case errors.Is(err, playback.ErrResolution):
		return messageResolutionFailed
	case errors.Is(err, playback.ErrConnection):
		return messageConnectionFailed
	case errors.Is(err, playback.ErrNoActiveQueue):
		return messageNoActiveQueue
	case errors.Is(err, playback.ErrNotPlaying):
		return messageNotPlayingYet
	case errors.Is(err, playback.ErrQueueFull):
		return messageQueueFull
	case errors.Is(err, playback.ErrInvalidVolume):
		return messageInvalidVolume
	case errors.Is(err, playback.ErrInvalidSeek):
		return messageInvalidSeek
	case errors.Is(err, playback.ErrIndexOutOfRange):
		return messageInvalidPosition
	case errors.Is(err, live.ErrInvalidTwitchLogin):
		return messageInvalidTwitchLogin
	default:
		return messageGenericFailure
	}
}
