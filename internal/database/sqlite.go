// internal/database/sqlite.go
package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jason-s-yu/tysiac/internal/models"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// SQLiteStore keeps every game in a single local file. It is meant for
// single-process deployments and tests.
type SQLiteStore struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time; sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) CreateGame(ctx context.Context, names [3]string) (int32, error) {
	var id int32
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tysiac_games (player_1, player_2, player_3, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		names[0], names[1], names[2], toMillis(time.Now()),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetGame(ctx context.Context, id int32) (*models.Game, error) {
	g := models.Game{ID: id}
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT player_1, player_2, player_3, created_at FROM tysiac_games WHERE id = ?`, id,
	).Scan(&g.PlayerNames[0], &g.PlayerNames[1], &g.PlayerNames[2], &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load game %d: %w", id, err)
	}
	g.CreatedAt = fromMillis(created)

	rounds, err := s.loadRounds(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Rounds = rounds

	var prev, next sql.NullInt32
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM tysiac_games WHERE id < ?`, id).Scan(&prev); err != nil {
		return nil, fmt.Errorf("find previous game: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(id) FROM tysiac_games WHERE id > ?`, id).Scan(&next); err != nil {
		return nil, fmt.Errorf("find next game: %w", err)
	}
	if prev.Valid {
		g.Prev = models.Int32(prev.Int32)
	}
	if next.Valid {
		g.Next = models.Int32(next.Int32)
	}
	return &g, nil
}

func (s *SQLiteStore) loadRounds(ctx context.Context, gameID int32) ([]models.Round, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT round_index, player_1, player_2, player_3, bid_winner, winning_bid, playing_bid
		FROM tysiac_scores
		WHERE game_id = ?
		ORDER BY round_index`, gameID)
	if err != nil {
		return nil, fmt.Errorf("load rounds of game %d: %w", gameID, err)
	}
	defer rows.Close()

	var out []models.Round
	for rows.Next() {
		var (
			index, p1, p2, p3        int32
			winner, winning, playing sql.NullInt32
		)
		if err := rows.Scan(&index, &p1, &p2, &p3, &winner, &winning, &playing); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r, err := roundFromColumns(index, p1, p2, p3, nullable(winner), nullable(winning), nullable(playing))
		if err != nil {
			return nil, fmt.Errorf("round %d of game %d: %w", index, gameID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	return models.Int32(v.Int32)
}

func (s *SQLiteStore) ListGames(ctx context.Context, limit int) ([]models.GameSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.player_1, g.player_2, g.player_3, g.created_at, COUNT(s.id)
		FROM tysiac_games g
		LEFT JOIN tysiac_scores s ON s.game_id = g.id
		GROUP BY g.id
		ORDER BY g.id DESC
		LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []models.GameSummary
	for rows.Next() {
		var (
			gs      models.GameSummary
			created int64
		)
		if err := rows.Scan(&gs.ID, &gs.PlayerNames[0], &gs.PlayerNames[1], &gs.PlayerNames[2], &created, &gs.RoundCount); err != nil {
			return nil, fmt.Errorf("scan game summary: %w", err)
		}
		gs.CreatedAt = fromMillis(created)
		out = append(out, gs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LatestGameID(ctx context.Context) (int32, error) {
	var id sql.NullInt32
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM tysiac_games`).Scan(&id); err != nil {
		return 0, fmt.Errorf("find latest game: %w", err)
	}
	if !id.Valid {
		return 0, fmt.Errorf("latest game: %w", ErrNotFound)
	}
	return id.Int32, nil
}

func (s *SQLiteStore) PriorTotals(ctx context.Context, gameID int32) (models.Totals, error) {
	var sums [3]int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(s.player_1), 0), COALESCE(SUM(s.player_2), 0), COALESCE(SUM(s.player_3), 0)
		FROM tysiac_games g
		LEFT JOIN tysiac_scores s ON s.game_id = g.id
		WHERE g.id = ?
		GROUP BY g.id`, gameID).Scan(&sums[0], &sums[1], &sums[2])
	if errors.Is(err, sql.ErrNoRows) {
		return models.Totals{}, fmt.Errorf("game %d: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return models.Totals{}, fmt.Errorf("sum rounds of game %d: %w", gameID, err)
	}
	return models.Totals{int32(sums[0]), int32(sums[1]), int32(sums[2])}, nil
}

func (s *SQLiteStore) AppendRound(ctx context.Context, gameID int32, r models.Round) (int32, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tysiac_games WHERE id = ?)`, gameID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check game %d: %w", gameID, err)
	}
	if !exists {
		return 0, fmt.Errorf("game %d: %w", gameID, ErrNotFound)
	}

	winner, winning, playing := bidColumns(r)
	var index int32
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tysiac_scores
			(game_id, round_index, player_1, player_2, player_3, bid_winner, winning_bid, playing_bid)
		SELECT ?, COALESCE(MAX(round_index), 0) + 1, ?, ?, ?, ?, ?, ?
		FROM tysiac_scores
		WHERE game_id = ?
		RETURNING round_index`,
		gameID, r.Player1, r.Player2, r.Player3, winner, winning, playing, gameID,
	).Scan(&index)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("game %d: %w", gameID, ErrRoundConflict)
		}
		return 0, fmt.Errorf("append round: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return index, nil
}

func (s *SQLiteStore) UpdateRound(ctx context.Context, gameID, index int32, r models.Round) error {
	winner, winning, playing := bidColumns(r)
	res, err := s.db.ExecContext(ctx, `
		UPDATE tysiac_scores
		SET player_1 = ?, player_2 = ?, player_3 = ?, bid_winner = ?, winning_bid = ?, playing_bid = ?
		WHERE game_id = ? AND round_index = ?`,
		r.Player1, r.Player2, r.Player3, winner, winning, playing, gameID, index)
	if err != nil {
		return fmt.Errorf("update round %d: %w", index, err)
	}
	return expectOneRow(res, gameID, index)
}

func (s *SQLiteStore) DeleteRound(ctx context.Context, gameID, index int32) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tysiac_scores WHERE game_id = ? AND round_index = ?`, gameID, index)
	if err != nil {
		return fmt.Errorf("delete round %d: %w", index, err)
	}
	return expectOneRow(res, gameID, index)
}

func expectOneRow(res sql.Result, gameID, index int32) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("round %d of game %d: %w", index, gameID, ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
