package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/foxseedlab/vibebot/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	channelKeyPrefix  = "vibebot:channel:"
	streamerKeyPrefix = "vibebot:streamer:"
)

type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) repository.Repository {
	return &RedisRepository{rdb: rdb}
}

func channelKey(channelID string) string {
	return channelKeyPrefix + channelID
}

func streamerKey(userID string) string {
	return streamerKeyPrefix + userID
}

func (r *RedisRepository) FindChannel(ctx context.Context, channelID string) (*repository.ChannelLiveRecord, error) {
	fields, err := r.rdb.HGetAll(ctx, channelKey(channelID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	rec := &repository.ChannelLiveRecord{
		ChannelID: channelID,
		GuildID:   fields["guild_id"],
		Name:      fields["name"],
		Live:      fields["live"] == "1",
	}
	if unix, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		rec.UpdatedAt = time.Unix(unix, 0).UTC()
	}
	return rec, nil
}

func (r *RedisRepository) UpsertChannel(ctx context.Context, input repository.UpsertChannelInput) error {
	key := channelKey(input.ChannelID)
	live := "0"
	if input.Live {
		live = "1"
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if input.UpdateName {
			pipe.HSet(ctx, key, "name", input.Name)
		} else {
			pipe.HSetNX(ctx, key, "name", input.Name)
		}
		pipe.HSet(ctx, key,
			"guild_id", input.GuildID,
			"live", live,
			"updated_at", strconv.FormatInt(time.Now().Unix(), 10),
		)
		return nil
	})
	return err
}

func (r *RedisRepository) FindTwitchLogin(ctx context.Context, userID string) (string, error) {
	login, err := r.rdb.Get(ctx, streamerKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return login, nil
}

func (r *RedisRepository) LinkTwitchLogin(ctx context.Context, userID, login string) error {
	return r.rdb.Set(ctx, streamerKey(userID), login, 0).Err()
}
