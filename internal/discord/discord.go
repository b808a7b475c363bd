package discord

import (
	"context"
	"errors"
)

type CommandOptionType int

const (
	CommandOptionString CommandOptionType = iota
	CommandOptionInteger
)

type SlashCommandOption struct {
	Name        string
	Description string
	Type        CommandOptionType
	Required    bool
	Choices     []string
}

type SlashCommandDefinition struct {
	Name        string
	Description string
	Options     []SlashCommandOption
}

type SlashCommandEvent struct {
	GuildID     string
	ChannelID   string
	CommandName string
	UserID      string
	StringArgs  map[string]string
	IntArgs     map[string]int64
	// Defer acknowledges the interaction; Respond then edits the deferred reply.
	Defer   func() error
	Respond func(content string) error
}

type MessageEvent struct {
	GuildID     string
	ChannelID   string
	AuthorID    string
	AuthorIsBot bool
	Content     string
	Reply       func(content string) error
}

type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	UserIsBot       bool
	BeforeChannelID string
	AfterChannelID  string
	MuteBefore      bool
	MuteAfter       bool
	DeafBefore      bool
	DeafAfter       bool
}

// PresenceEvent fires when a member's activities change.
type PresenceEvent struct {
	GuildID   string
	UserID    string
	UserIsBot bool
}

type ActivityType int

const (
	ActivityOther ActivityType = iota
	ActivityStreaming
	ActivityCustom
)

type Activity struct {
	Type  ActivityType
	URL   string
	State string
}

type VoiceMember struct {
	UserID      string
	IsBot       bool
	HasPresence bool
	Activities  []Activity
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Run() error
	GetBotUserID() (string, error)
	SetWatchingStatus(text string) error

	RegisterVoiceStateUpdateHandler(handler func(VoiceStateEvent))
	RegisterSlashCommandHandler(handler func(SlashCommandEvent))
	RegisterMessageHandler(handler func(MessageEvent))
	RegisterPresenceUpdateHandler(handler func(PresenceEvent))
	UpsertGuildSlashCommands(guildID string, defs []SlashCommandDefinition) error

	SendChannelMessage(channelID, content string) (string, error)
	EditChannelMessage(channelID, messageID, content string) error

	JoinVoiceChannel(guildID, channelID string) (VoiceConnection, error)
	CanConnectAndSpeak(channelID string) (bool, error)
	GetUserVoiceChannelID(guildID, userID string) (string, error)
	// GetCachedUserVoiceChannelID reads only the gateway cache. A cached guild
	// without a voice state for the user yields "".
	GetCachedUserVoiceChannelID(guildID, userID string) (string, error)
	ListVoiceChannelMembers(guildID, channelID string) ([]VoiceMember, error)

	GetChannelName(channelID string) (string, error)
	RenameChannel(ctx context.Context, channelID, name string) error
	DenyRoleConnect(channelID, roleID string) error
	ClearRoleOverride(channelID, roleID string) error
}

type VoiceConnection interface {
	Disconnect() error
	Speaking(speaking bool) error
	SendOpus(ctx context.Context, frame []byte) error
}

// ErrGuildNotCached is returned by cache-only lookups before the guild arrives over the gateway.
var ErrGuildNotCached = errors.New("guild not cached")

// ErrRenameRateLimited is returned when a channel rename would exceed the local rename budget.
var ErrRenameRateLimited = errors.New("channel rename rate limited")
