package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresGateway persists matches and player stats in Postgres.
type PostgresGateway struct {
	db *sql.DB
}

func NewPostgresGateway(databaseURL string) (*PostgresGateway, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &PostgresGateway{db: db}, nil
}

func (g *PostgresGateway) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

func (g *PostgresGateway) CreateMatch(ctx context.Context, roomID string, initial PlayerRecord, fen string) (string, error) {
	const query = `
		INSERT INTO matches (room_id, fen, moves_san, status, started_at)
		VALUES ($1, $2, '[]'::jsonb, 'in_progress', NOW())
		RETURNING id`

	var id int64
	if err := g.db.QueryRowContext(ctx, query, roomID, fen).Scan(&id); err != nil {
		return "", fmt.Errorf("insert match: %w", err)
	}
	ref := fmt.Sprintf("%d", id)
	if err := g.AppendPlayer(ctx, ref, initial); err != nil {
		return "", err
	}
	return ref, nil
}

func (g *PostgresGateway) AppendPlayer(ctx context.Context, ref string, p PlayerRecord) error {
	const query = `
		INSERT INTO match_players (match_id, user_id, name, side, moves, captured)
		VALUES ($1, $2, $3, $4, 0, '[]'::jsonb)`

	if _, err := g.db.ExecContext(ctx, query, ref, p.UserID, p.Name, p.Side); err != nil {
		return fmt.Errorf("insert match player: %w", err)
	}
	return nil
}

func (g *PostgresGateway) RecordMove(ctx context.Context, ref string, mv MoveRecord) error {
	entry, err := json.Marshal([]string{mv.SAN})
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	const matchQuery = `
		UPDATE matches
		SET fen = $2, moves_san = moves_san || $3::jsonb
		WHERE id = $1`
	if _, err := g.db.ExecContext(ctx, matchQuery, ref, mv.FEN, string(entry)); err != nil {
		return fmt.Errorf("update match: %w", err)
	}

	if mv.Captured != "" {
		captured, merr := json.Marshal([]string{mv.Captured})
		if merr != nil {
			return fmt.Errorf("marshal capture: %w", merr)
		}
		const playerQuery = `
			UPDATE match_players
			SET moves = $3, captured = captured || $4::jsonb
			WHERE match_id = $1 AND user_id = $2`
		if _, err := g.db.ExecContext(ctx, playerQuery, ref, mv.UserID, mv.MoveCount, string(captured)); err != nil {
			return fmt.Errorf("update match player: %w", err)
		}
		return nil
	}

	const playerQuery = `
		UPDATE match_players
		SET moves = $3
		WHERE match_id = $1 AND user_id = $2`
	if _, err := g.db.ExecContext(ctx, playerQuery, ref, mv.UserID, mv.MoveCount); err != nil {
		return fmt.Errorf("update match player: %w", err)
	}
	return nil
}

func (g *PostgresGateway) FinalizeMatch(ctx context.Context, ref, status, winnerID string, endedAt time.Time) error {
	const query = `
		UPDATE matches
		SET status = $2, winner_id = NULLIF($3, ''), ended_at = $4
		WHERE id = $1`
	if _, err := g.db.ExecContext(ctx, query, ref, status, winnerID, endedAt); err != nil {
		return fmt.Errorf("finalize match: %w", err)
	}
	return nil
}

func (g *PostgresGateway) IncrementStats(ctx context.Context, userID string, d StatsDelta) error {
	const query = `
		INSERT INTO player_stats (user_id, wins, losses, draws, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			wins = player_stats.wins + EXCLUDED.wins,
			losses = player_stats.losses + EXCLUDED.losses,
			draws = player_stats.draws + EXCLUDED.draws,
			updated_at = NOW()`
	if _, err := g.db.ExecContext(ctx, query, userID, d.Wins, d.Losses, d.Draws); err != nil {
		return fmt.Errorf("increment stats: %w", err)
	}
	return nil
}

func (g *PostgresGateway) DeleteMatch(ctx context.Context, ref string) error {
	if _, err := g.db.ExecContext(ctx, `DELETE FROM match_players WHERE match_id = $1`, ref); err != nil {
		return fmt.Errorf("delete match players: %w", err)
	}
	if _, err := g.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, ref); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}

func (g *PostgresGateway) Profile(ctx context.Context, userID string) (*Profile, error) {
	const query = `
		SELECT user_id, COALESCE(name, ''), wins, losses, draws
		FROM player_stats
		LEFT JOIN LATERAL (
			SELECT name FROM match_players
			WHERE match_players.user_id = player_stats.user_id
			ORDER BY match_id DESC LIMIT 1
		) latest ON TRUE
		WHERE user_id = $1`

	var p Profile
	err := g.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.Name, &p.Wins, &p.Losses, &p.Draws)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select player stats: %w", err)
	}
	return &p, nil
}

func (g *PostgresGateway) RecentMatches(ctx context.Context, userID string, limit int) ([]*MatchSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT m.id, m.room_id, m.fen, m.moves_san, m.status,
		       COALESCE(m.winner_id, ''), m.started_at, COALESCE(m.ended_at, m.started_at)
		FROM matches m
		JOIN match_players mp ON mp.match_id = m.id
		WHERE mp.user_id = $1 AND m.ended_at IS NOT NULL
		ORDER BY m.ended_at DESC
		LIMIT $2`

	rows, err := g.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*MatchSummary, 0, limit)
	for rows.Next() {
		var (
			m        MatchSummary
			movesRaw []byte
		)
		if err := rows.Scan(&m.Ref, &m.RoomID, &m.FEN, &movesRaw, &m.Status, &m.WinnerID, &m.StartedAt, &m.EndedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if err := json.Unmarshal(movesRaw, &m.MovesSAN); err != nil {
			return nil, fmt.Errorf("unmarshal moves_san: %w", err)
		}
		players, perr := g.matchPlayers(ctx, m.Ref)
		if perr != nil {
			return nil, perr
		}
		m.Players = players
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

func (g *PostgresGateway) matchPlayers(ctx context.Context, ref string) ([]PlayerRecord, error) {
	const query = `
		SELECT user_id, name, side
		FROM match_players
		WHERE match_id = $1
		ORDER BY side DESC`

	rows, err := g.db.QueryContext(ctx, query, ref)
	if err != nil {
		return nil, fmt.Errorf("select match players: %w", err)
	}
	defer rows.Close()

	var players []PlayerRecord
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(&p.UserID, &p.Name, &p.Side); err != nil {
			return nil, fmt.Errorf("scan match player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
