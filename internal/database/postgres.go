// internal/database/postgres.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tysiac/internal/models"
)

const pgUniqueViolation = "23505"

// PostgresStore is the production Store backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool against databaseURL and verifies it with a ping.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool exposes the underlying pool for collaborators that share the connection, such as the historian.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateGame(ctx context.Context, names [3]string) (int32, error) {
	q := `
		INSERT INTO tysiac_games (player_1, player_2, player_3)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int32
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q, names[0], names[1], names[2]).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert game: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetGame(ctx context.Context, id int32) (*models.Game, error) {
	g := models.Game{ID: id}
	q := `SELECT player_1, player_2, player_3, created_at FROM tysiac_games WHERE id = $1`
	err := s.pool.QueryRow(ctx, q, id).Scan(&g.PlayerNames[0], &g.PlayerNames[1], &g.PlayerNames[2], &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %d: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT round_index, player_1, player_2, player_3, bid_winner, winning_bid, playing_bid
		FROM tysiac_scores
		WHERE game_id = $1
		ORDER BY round_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds of game %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			index, p1, p2, p3        int32
			winner, winning, playing *int32
		)
		if err := rows.Scan(&index, &p1, &p2, &p3, &winner, &winning, &playing); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		r, err := roundFromColumns(index, p1, p2, p3, winner, winning, playing)
		if err != nil {
			return nil, fmt.Errorf("round %d of game %d: %w", index, id, err)
		}
		g.Rounds = append(g.Rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rounds of game %d: %w", id, err)
	}

	// neighbours for prev/next navigation
	if err := s.pool.QueryRow(ctx, `SELECT MAX(id) FROM tysiac_games WHERE id < $1`, id).Scan(&g.Prev); err != nil {
		return nil, fmt.Errorf("failed to find previous game: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT MIN(id) FROM tysiac_games WHERE id > $1`, id).Scan(&g.Next); err != nil {
		return nil, fmt.Errorf("failed to find next game: %w", err)
	}
	return &g, nil
}

func (s *PostgresStore) ListGames(ctx context.Context, limit int) ([]models.GameSummary, error) {
	q := `
		SELECT g.id, g.player_1, g.player_2, g.player_3, g.created_at, COUNT(s.id)
		FROM tysiac_games g
		LEFT JOIN tysiac_scores s ON s.game_id = g.id
		GROUP BY g.id
		ORDER BY g.id DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, q, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var out []models.GameSummary
	for rows.Next() {
		var (
			gs    models.GameSummary
			count int64
		)
		if err := rows.Scan(&gs.ID, &gs.PlayerNames[0], &gs.PlayerNames[1], &gs.PlayerNames[2], &gs.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("failed to scan game summary: %w", err)
		}
		gs.RoundCount = int(count)
		out = append(out, gs)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LatestGameID(ctx context.Context) (int32, error) {
	var id *int32
	if err := s.pool.QueryRow(ctx, `SELECT MAX(id) FROM tysiac_games`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to find latest game: %w", err)
	}
	if id == nil {
		return 0, fmt.Errorf("latest game: %w", ErrNotFound)
	}
	return *id, nil
}

func (s *PostgresStore) PriorTotals(ctx context.Context, gameID int32) (models.Totals, error) {
	q := `
		SELECT COALESCE(SUM(s.player_1), 0), COALESCE(SUM(s.player_2), 0), COALESCE(SUM(s.player_3), 0)
		FROM tysiac_games g
		LEFT JOIN tysiac_scores s ON s.game_id = g.id
		WHERE g.id = $1
		GROUP BY g.id
	`
	var sums [3]int64
	err := s.pool.QueryRow(ctx, q, gameID).Scan(&sums[0], &sums[1], &sums[2])
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Totals{}, fmt.Errorf("game %d: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return models.Totals{}, fmt.Errorf("failed to sum rounds of game %d: %w", gameID, err)
	}
	return models.Totals{int32(sums[0]), int32(sums[1]), int32(sums[2])}, nil
}

func (s *PostgresStore) AppendRound(ctx context.Context, gameID int32, r models.Round) (int32, error) {
	winner, winning, playing := bidColumns(r)
	q := `
		INSERT INTO tysiac_scores
			(game_id, round_index, player_1, player_2, player_3, bid_winner, winning_bid, playing_bid)
		SELECT $1::int, COALESCE(MAX(round_index), 0) + 1, $2::int, $3::int, $4::int, $5::smallint, $6::int, $7::int
		FROM tysiac_scores
		WHERE game_id = $1
		RETURNING round_index
	`
	var index int32
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tysiac_games WHERE id = $1)`, gameID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("game %d: %w", gameID, ErrNotFound)
		}
		return tx.QueryRow(ctx, q, gameID, r.Player1, r.Player2, r.Player3, winner, winning, playing).Scan(&index)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, fmt.Errorf("game %d: %w", gameID, ErrRoundConflict)
		}
		return 0, fmt.Errorf("failed to append round: %w", err)
	}
	return index, nil
}

func (s *PostgresStore) UpdateRound(ctx context.Context, gameID, index int32, r models.Round) error {
	winner, winning, playing := bidColumns(r)
	q := `
		UPDATE tysiac_scores
		SET player_1 = $3, player_2 = $4, player_3 = $5,
		    bid_winner = $6, winning_bid = $7, playing_bid = $8
		WHERE game_id = $1 AND round_index = $2
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, gameID, index, r.Player1, r.Player2, r.Player3, winner, winning, playing)
		if err != nil {
			return fmt.Errorf("failed to update round %d: %w", index, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("round %d of game %d: %w", index, gameID, ErrNotFound)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteRound(ctx context.Context, gameID, index int32) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tysiac_scores WHERE game_id = $1 AND round_index = $2`, gameID, index)
		if err != nil {
			return fmt.Errorf("failed to delete round %d: %w", index, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("round %d of game %d: %w", index, gameID, ErrNotFound)
		}
		return nil
	})
}
