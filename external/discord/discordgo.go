package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/vibebot/internal/discord"
	"golang.org/x/time/rate"
)

// Discord allows two channel renames per ten minutes per channel.
const (
	renameInterval = 5 * time.Minute
	renameBurst    = 2
)

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string

	renameMu       sync.Mutex
	renameLimiters map[string]*rate.Limiter
}

func NewClient(token string) *Client {
	return &Client{
		token:          token,
		renameLimiters: make(map[string]*rate.Limiter),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(
		discordgo.IntentsGuilds |
			discordgo.IntentsGuildMessages |
			discordgo.IntentsMessageContent |
			discordgo.IntentsGuildVoiceStates |
			discordgo.IntentsGuildPresences,
	)
	s.State.TrackVoice = true
	s.State.TrackPresences = true
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) Run() error {
	select {}
}

func (c *Client) SetWatchingStatus(text string) error {
	return c.session.UpdateWatchStatus(0, text)
}

func (c *Client) RegisterVoiceStateUpdateHandler(handler func(discordpkg.VoiceStateEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if vs == nil || vs.VoiceState == nil {
			return
		}
		if vs.GuildID == "" || vs.UserID == "" {
			return
		}
		handler(voiceStateEventFromUpdate(vs, c.resolveUserIsBot(vs.GuildID, vs.UserID, vs.VoiceState)))
	})
}

func voiceStateEventFromUpdate(vs *discordgo.VoiceStateUpdate, isBot bool) discordpkg.VoiceStateEvent {
	event := discordpkg.VoiceStateEvent{
		GuildID:        vs.GuildID,
		UserID:         vs.UserID,
		UserIsBot:      isBot,
		AfterChannelID: vs.ChannelID,
		MuteAfter:      vs.Mute || vs.SelfMute,
		DeafAfter:      vs.Deaf || vs.SelfDeaf,
	}
	if vs.BeforeUpdate != nil {
		event.BeforeChannelID = vs.BeforeUpdate.ChannelID
		event.MuteBefore = vs.BeforeUpdate.Mute || vs.BeforeUpdate.SelfMute
		event.DeafBefore = vs.BeforeUpdate.Deaf || vs.BeforeUpdate.SelfDeaf
	} else {
		event.MuteBefore = event.MuteAfter
		event.DeafBefore = event.DeafAfter
	}
	return event
}

func (c *Client) RegisterSlashCommandHandler(handler func(discordpkg.SlashCommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic == nil || ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := ic.ApplicationCommandData()
		if data.Name == "" {
			return
		}
		userID := ""
		if ic.Member != nil && ic.Member.User != nil {
			userID = ic.Member.User.ID
		}
		if userID == "" && ic.User != nil {
			userID = ic.User.ID
		}
		if userID == "" {
			return
		}
		slog.Info("slash command interaction received", "guild_id", ic.GuildID, "channel_id", ic.ChannelID, "command", data.Name, "user_id", userID)

		event := discordpkg.SlashCommandEvent{
			GuildID:     ic.GuildID,
			ChannelID:   ic.ChannelID,
			CommandName: data.Name,
			UserID:      userID,
			StringArgs:  make(map[string]string),
			IntArgs:     make(map[string]int64),
		}
		for _, opt := range data.Options {
			if opt == nil {
				continue
			}
			switch opt.Type {
			case discordgo.ApplicationCommandOptionString:
				event.StringArgs[opt.Name] = opt.StringValue()
			case discordgo.ApplicationCommandOptionInteger:
				event.IntArgs[opt.Name] = opt.IntValue()
			}
		}

		var deferred bool
		event.Defer = func() error {
			deferred = true
			return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			})
		}
		event.Respond = func(content string) error {
			if deferred {
				_, err := s.InteractionResponseEdit(ic.Interaction, &discordgo.WebhookEdit{Content: &content})
				return err
			}
			return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{Content: content},
			})
		}
		handler(event)
	})
}

func (c *Client) RegisterMessageHandler(handler func(discordpkg.MessageEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m == nil || m.Message == nil || m.Author == nil {
			return
		}
		// Direct messages carry no guild and are ignored.
		if m.GuildID == "" {
			return
		}
		handler(discordpkg.MessageEvent{
			GuildID:     m.GuildID,
			ChannelID:   m.ChannelID,
			AuthorID:    m.Author.ID,
			AuthorIsBot: m.Author.Bot,
			Content:     m.Content,
			Reply: func(content string) error {
				_, err := s.ChannelMessageSendReply(m.ChannelID, content, m.Reference())
				return err
			},
		})
	})
}

func (c *Client) RegisterPresenceUpdateHandler(handler func(discordpkg.PresenceEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, p *discordgo.PresenceUpdate) {
		if p == nil || p.User == nil || p.User.ID == "" || p.GuildID == "" {
			return
		}
		handler(discordpkg.PresenceEvent{
			GuildID:   p.GuildID,
			UserID:    p.User.ID,
			UserIsBot: p.User.Bot,
		})
	})
}

func (c *Client) UpsertGuildSlashCommands(guildID string, defs []discordpkg.SlashCommandDefinition) error {
	appID := c.applicationID()
	if appID == "" {
		return fmt.Errorf("discord application id is not available")
	}
	existing, err := c.session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}
	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		if cmd == nil || cmd.Name == "" {
			continue
		}
		existingByName[cmd.Name] = cmd
	}
	for _, def := range defs {
		if err := c.upsertGuildSlashCommand(appID, guildID, def, existingByName); err != nil {
			return fmt.Errorf("upsert command %q: %w", def.Name, err)
		}
	}
	return nil
}

func (c *Client) upsertGuildSlashCommand(appID, guildID string, def discordpkg.SlashCommandDefinition, existingByName map[string]*discordgo.ApplicationCommand) error {
	if def.Name == "" {
		return nil
	}
	payload := applicationCommandFromDefinition(def)
	cmd, ok := existingByName[def.Name]
	if !ok {
		_, err := c.session.ApplicationCommandCreate(appID, guildID, payload)
		return err
	}
	if !commandChanged(cmd, payload) {
		return nil
	}
	_, err := c.session.ApplicationCommandEdit(appID, guildID, cmd.ID, payload)
	return err
}

func applicationCommandFromDefinition(def discordpkg.SlashCommandDefinition) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        def.Name,
		Description: def.Description,
	}
	for _, opt := range def.Options {
		o := &discordgo.ApplicationCommandOption{
			Name:        opt.Name,
			Description: opt.Description,
			Required:    opt.Required,
			Type:        discordgo.ApplicationCommandOptionString,
		}
		if opt.Type == discordpkg.CommandOptionInteger {
			o.Type = discordgo.ApplicationCommandOptionInteger
		}
		for _, choice := range opt.Choices {
			o.Choices = append(o.Choices, &discordgo.ApplicationCommandOptionChoice{Name: choice, Value: choice})
		}
		cmd.Options = append(cmd.Options, o)
	}
	return cmd
}

func commandChanged(existing, want *discordgo.ApplicationCommand) bool {
	if existing.Description != want.Description || len(existing.Options) != len(want.Options) {
		return true
	}
	for i, opt := range want.Options {
		got := existing.Options[i]
		if got == nil || got.Name != opt.Name || got.Type != opt.Type || got.Required != opt.Required || len(got.Choices) != len(opt.Choices) {
			return true
		}
	}
	return false
}

func (c *Client) SendChannelMessage(channelID, content string) (string, error) {
	msg, err := c.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (c *Client) EditChannelMessage(channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageEdit(channelID, messageID, content)
	return err
}

func (c *Client) JoinVoiceChannel(guildID, channelID string) (discordpkg.VoiceConnection, error) {
	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return &voiceConnectionImpl{vc: vc}, nil
}

func (c *Client) CanConnectAndSpeak(channelID string) (bool, error) {
	if c.session == nil || c.session.State == nil {
		return false, fmt.Errorf("discord session is not initialized")
	}
	botUserID, err := c.GetBotUserID()
	if err != nil {
		return false, err
	}
	perms, err := c.session.State.UserChannelPermissions(botUserID, channelID)
	if err != nil {
		return false, err
	}
	need := int64(discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak)
	return perms&need == need, nil
}

func (c *Client) GetUserVoiceChannelID(guildID, userID string) (string, error) {
	if c.session == nil {
		return "", nil
	}
	if c.session.State != nil {
		vs, err := c.session.State.VoiceState(guildID, userID)
		if err == nil && vs != nil {
			return vs.ChannelID, nil
		}
	}

	// Cache may be cold right after bot startup; ask Discord API directly as fallback.
	vs, err := c.session.UserVoiceState(guildID, userID)
	if err != nil {
		if isRESTNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if vs == nil {
		return "", nil
	}
	return vs.ChannelID, nil
}

func (c *Client) GetCachedUserVoiceChannelID(guildID, userID string) (string, error) {
	if c.session == nil || c.session.State == nil {
		return "", discordpkg.ErrGuildNotCached
	}
	if _, err := c.session.State.Guild(guildID); err != nil {
		return "", fmt.Errorf("%w: %s", discordpkg.ErrGuildNotCached, guildID)
	}
	vs, err := c.session.State.VoiceState(guildID, userID)
	if err != nil {
		if errors.Is(err, discordgo.ErrStateNotFound) {
			return "", nil
		}
		return "", err
	}
	return vs.ChannelID, nil
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

func (c *Client) ListVoiceChannelMembers(guildID, channelID string) ([]discordpkg.VoiceMember, error) {
	if c.session == nil || c.session.State == nil {
		return nil, fmt.Errorf("discord session is not initialized")
	}
	guild, err := c.session.State.Guild(guildID)
	if err != nil {
		return nil, err
	}
	members := make([]discordpkg.VoiceMember, 0)
	seen := make(map[string]struct{})
	for _, state := range guild.VoiceStates {
		if state == nil || state.ChannelID != channelID || state.UserID == "" {
			continue
		}
		if _, exists := seen[state.UserID]; exists {
			continue
		}
		seen[state.UserID] = struct{}{}
		member := discordpkg.VoiceMember{
			UserID: state.UserID,
			IsBot:  c.resolveUserIsBot(guildID, state.UserID, state),
		}
		if presence, err := c.session.State.Presence(guildID, state.UserID); err == nil && presence != nil {
			member.HasPresence = true
			member.Activities = activitiesFromPresence(presence)
		}
		members = append(members, member)
	}
	return members, nil
}

func activitiesFromPresence(p *discordgo.Presence) []discordpkg.Activity {
	activities := make([]discordpkg.Activity, 0, len(p.Activities))
	for _, a := range p.Activities {
		if a == nil {
			continue
		}
		activity := discordpkg.Activity{Type: discordpkg.ActivityOther, URL: a.URL, State: a.State}
		switch a.Type {
		case discordgo.ActivityTypeStreaming:
			activity.Type = discordpkg.ActivityStreaming
		case discordgo.ActivityTypeCustom:
			activity.Type = discordpkg.ActivityCustom
		}
		activities = append(activities, activity)
	}
	return activities
}

func (c *Client) GetChannelName(channelID string) (string, error) {
	channel := c.resolveChannel(channelID)
	if channel == nil {
		return "", fmt.Errorf("discord channel %s could not be resolved", channelID)
	}
	return channel.Name, nil
}

func (c *Client) RenameChannel(ctx context.Context, channelID, name string) error {
	// Cancelling at the reservation instant returns the token; a plain Cancel
	// after the request is a no-op once the reservation time has passed.
	now := time.Now()
	r := c.renameLimiter(channelID).ReserveN(now, 1)
	if !r.OK() || r.DelayFrom(now) > 0 {
		r.CancelAt(now)
		return discordpkg.ErrRenameRateLimited
	}
	if _, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx)); err != nil {
		r.CancelAt(now)
		return err
	}
	return nil
}

func (c *Client) renameLimiter(channelID string) *rate.Limiter {
	c.renameMu.Lock()
	defer c.renameMu.Unlock()
	lim, ok := c.renameLimiters[channelID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(renameInterval), renameBurst)
		c.renameLimiters[channelID] = lim
	}
	return lim
}

func (c *Client) DenyRoleConnect(channelID, roleID string) error {
	return c.session.ChannelPermissionSet(channelID, roleID, discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionVoiceConnect)
}

func (c *Client) ClearRoleOverride(channelID, roleID string) error {
	err := c.session.ChannelPermissionDelete(channelID, roleID)
	if isRESTNotFound(err) {
		return nil
	}
	return err
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) resolveUserIsBot(guildID, userID string, state *discordgo.VoiceState) bool {
	if isBot, ok := botFlagFromVoiceState(state); ok {
		return isBot
	}
	if isBot, ok := c.botFlagFromSessionState(guildID, userID); ok {
		return isBot
	}
	return c.botFlagFromUserAPI(userID)
}

func botFlagFromVoiceState(state *discordgo.VoiceState) (bool, bool) {
	if state != nil && state.Member != nil && state.Member.User != nil {
		return state.Member.User.Bot, true
	}
	return false, false
}

func (c *Client) botFlagFromSessionState(guildID, userID string) (bool, bool) {
	if c.session == nil || c.session.State == nil {
		return false, false
	}
	if c.session.State.User != nil && c.session.State.User.ID == userID {
		return true, true
	}
	member, err := c.session.State.Member(guildID, userID)
	if err == nil && member != nil && member.User != nil {
		return member.User.Bot, true
	}
	return false, false
}

func (c *Client) botFlagFromUserAPI(userID string) bool {
	u, err := c.session.User(userID)
	if err != nil {
		return false
	}
	return u.Bot
}

func (c *Client) resolveChannel(channelID string) *discordgo.Channel {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		channel, err := c.session.State.Channel(channelID)
		if err == nil && channel != nil && channel.Name != "" {
			return channel
		}
	}
	channel, err := c.session.Channel(channelID)
	if err != nil || channel == nil {
		return nil
	}
	if strings.TrimSpace(channel.Name) == "" {
		return nil
	}
	return channel
}

func (c *Client) applicationID() string {
	if c.session == nil || c.session.State == nil {
		return ""
	}
	if c.session.State.Application != nil && c.session.State.Application.ID != "" {
		return c.session.State.Application.ID
	}
	if c.session.State.User != nil {
		return c.session.State.User.ID
	}
	return ""
}

type voiceConnectionImpl struct {
	vc *discordgo.VoiceConnection
}

func (v *voiceConnectionImpl) Disconnect() error {
	return v.vc.Disconnect()
}

func (v *voiceConnectionImpl) Speaking(speaking bool) error {
	return v.vc.Speaking(speaking)
}

func (v *voiceConnectionImpl) SendOpus(ctx context.Context, frame []byte) error {
	select {
	case v.vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
