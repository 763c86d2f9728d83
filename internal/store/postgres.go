package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/cueview/cueview/internal/models"
)

// Postgres is the durable backend. Rooms carry an owning user and an
// is_active flag; deletion deactivates rather than destroys. Timers keep an
// explicit position column for ordering.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects a pool and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) CreateRoom(ctx context.Context, room *models.Room) error {
	return p.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO rooms (room_code, user_id, name, created_at, last_used_at, is_active, active_timer_key)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6)`,
			normalize(room.Code), room.OwnerUserID, room.Name,
			room.CreatedAt, room.LastActivityAt, nullable(room.ActiveTimerID),
		)
		if err != nil {
			return fmt.Errorf("insert room: %w", err)
		}
		return p.replaceTimers(ctx, tx, normalize(room.Code), room.Timers)
	})
}

func (p *Postgres) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	room := &models.Room{Code: normalize(code), IsActive: true}
	var activeKey *string
	err := p.pool.QueryRow(ctx, `
		SELECT room_code, user_id, name, created_at, last_used_at, active_timer_key
		FROM rooms
		WHERE room_code = $1 AND is_active`,
		normalize(code),
	).Scan(&room.Code, &room.OwnerUserID, &room.Name, &room.CreatedAt, &room.LastActivityAt, &activeKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	if activeKey != nil {
		room.ActiveTimerID = *activeKey
	}

	rows, err := p.pool.Query(ctx, `
		SELECT timer_key, name, settings, elapsed_seconds, remaining_seconds, status, started_at, is_on_air, position
		FROM timers
		WHERE room_code = $1
		ORDER BY position`,
		normalize(code),
	)
	if err != nil {
		return nil, fmt.Errorf("select timers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t        models.Timer
			settings []byte
			status   string
		)
		if err := rows.Scan(&t.ID, &t.Name, &settings, &t.ElapsedSeconds, &t.RemainingSeconds,
			&status, &t.StartedAt, &t.IsOnAir, &t.Position); err != nil {
			return nil, fmt.Errorf("scan timer: %w", err)
		}
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode timer settings: %w", err)
		}
		t.Status = models.TimerStatus(status)
		room.Timers = append(room.Timers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timers: %w", err)
	}
	return room, nil
}

func (p *Postgres) RoomExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE room_code = $1 AND is_active)`,
		normalize(code),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("room exists: %w", err)
	}
	return exists, nil
}

func (p *Postgres) SaveRoom(ctx context.Context, room *models.Room) error {
	return p.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE rooms
			SET name = $2, last_used_at = $3, active_timer_key = $4
			WHERE room_code = $1 AND is_active`,
			normalize(room.Code), room.Name, room.LastActivityAt, nullable(room.ActiveTimerID),
		)
		if err != nil {
			return fmt.Errorf("update room: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return p.replaceTimers(ctx, tx, normalize(room.Code), room.Timers)
	})
}

func (p *Postgres) DeleteRoom(ctx context.Context, code string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE rooms SET is_active = FALSE WHERE room_code = $1`,
		normalize(code),
	)
	if err != nil {
		return fmt.Errorf("deactivate room: %w", err)
	}
	return nil
}

func (p *Postgres) TouchRoom(ctx context.Context, code string, at time.Time) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE rooms SET last_used_at = $2 WHERE room_code = $1 AND is_active`,
		normalize(code), at,
	)
	if err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ActiveRoomCount(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return n, nil
}

func (p *Postgres) ExpireRoomsIdleSince(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE rooms SET is_active = FALSE WHERE is_active AND last_used_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("expire rooms: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// replaceTimers upserts the room's timer set and removes rows for timers no
// longer present.
func (p *Postgres) replaceTimers(ctx context.Context, tx pgx.Tx, code string, timers []*models.Timer) error {
	keys := make([]string, 0, len(timers))
	for _, t := range timers {
		settings, err := json.Marshal(t.Settings)
		if err != nil {
			return fmt.Errorf("encode timer settings: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO timers (room_code, timer_key, name, settings, elapsed_seconds, remaining_seconds, status, started_at, is_on_air, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (room_code, timer_key) DO UPDATE SET
				name = EXCLUDED.name,
				settings = EXCLUDED.settings,
				elapsed_seconds = EXCLUDED.elapsed_seconds,
				remaining_seconds = EXCLUDED.remaining_seconds,
				status = EXCLUDED.status,
				started_at = EXCLUDED.started_at,
				is_on_air = EXCLUDED.is_on_air,
				position = EXCLUDED.position`,
			code, t.ID, t.Name, settings, t.ElapsedSeconds, t.RemainingSeconds,
			string(t.Status), t.StartedAt, t.IsOnAir, t.Position,
		)
		if err != nil {
			return fmt.Errorf("upsert timer %s: %w", t.ID, err)
		}
		keys = append(keys, t.ID)
	}

	_, err := tx.Exec(ctx,
		`DELETE FROM timers WHERE room_code = $1 AND NOT (timer_key = ANY($2))`,
		code, keys,
	)
	if err != nil {
		return fmt.Errorf("prune timers: %w", err)
	}
	return nil
}

func (p *Postgres) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	return tx.Commit(ctx)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
