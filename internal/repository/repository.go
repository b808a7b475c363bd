package repository

import "context"

type UpsertChannelInput struct {
	ChannelID string
	GuildID   string
	Name      string
	Live      bool
	// UpdateName overwrites the stored name of an existing record; inserts always write Name.
	UpdateName bool
}

type ChannelRepository interface {
	// FindChannel returns nil when no record exists.
	FindChannel(ctx context.Context, channelID string) (*ChannelLiveRecord, error)
	UpsertChannel(ctx context.Context, input UpsertChannelInput) error
}

type StreamerRepository interface {
	// FindTwitchLogin returns an empty string when the user has no linked login.
	FindTwitchLogin(ctx context.Context, userID string) (string, error)
	LinkTwitchLogin(ctx context.Context, userID, login string) error
}

type Repository interface {
	ChannelRepository
	StreamerRepository
}
