package repository

import "time"

// ChannelLiveRecord is the persisted live state of a voice channel.
// Name is the channel's true display name, restored when the channel stops being live.
type ChannelLiveRecord struct {
	ChannelID string
	GuildID   string
	Name      string
	Live      bool
	UpdatedAt time.Time
}

type StreamerLink struct {
	UserID      string
	TwitchLogin string
	UpdatedAt   time.Time
}
