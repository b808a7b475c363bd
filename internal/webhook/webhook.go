package webhook

import (
	"context"
	"time"
)

// LiveStatusPayload is posted whenever a voice channel goes live or stops being live.
type LiveStatusPayload struct {
	GuildID     string    `json:"guild_id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Live        bool      `json:"live"`
	ChangedAt   time.Time `json:"changed_at"`
}

type Sender interface {
	SendLiveStatus(ctx context.Context, payload LiveStatusPayload) error
}
