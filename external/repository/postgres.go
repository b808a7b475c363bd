package repository

import (
	"context"
	"errors"

	"github.com/foxseedlab/vibebot/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) FindChannel(ctx context.Context, channelID string) (*repository.ChannelLiveRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT channel_id, guild_id, name, live, updated_at
		 FROM channels WHERE channel_id = $1`,
		channelID)
	var rec repository.ChannelLiveRecord
	err := row.Scan(&rec.ChannelID, &rec.GuildID, &rec.Name, &rec.Live, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) UpsertChannel(ctx context.Context, input repository.UpsertChannelInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO channels (channel_id, guild_id, name, live, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (channel_id) DO UPDATE SET
		   live = EXCLUDED.live,
		   name = CASE WHEN $5 THEN EXCLUDED.name ELSE channels.name END,
		   updated_at = NOW()`,
		input.ChannelID, input.GuildID, input.Name, input.Live, input.UpdateName)
	return err
}

func (r *PostgresRepository) FindTwitchLogin(ctx context.Context, userID string) (string, error) {
	row := r.pool.QueryRow(ctx, `SELECT twitch_login FROM streamers WHERE user_id = $1`, userID)
	var login string
	if err := row.Scan(&login); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return login, nil
}

func (r *PostgresRepository) LinkTwitchLogin(ctx context.Context, userID, login string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO streamers (user_id, twitch_login, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET twitch_login = EXCLUDED.twitch_login, updated_at = NOW()`,
		userID, login)
	return err
}
