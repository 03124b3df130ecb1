package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// GameStore persists finished games to sqlite. Persistence is best effort:
// a failed write is logged and never propagates into a running simulation.
type GameStore struct {
	db     *sqlx.DB
	logger *AppLogger
}

// GameResultRow is the stored summary of one finished game.
type GameResultRow struct {
	GameID       string    `db:"game_id" json:"game_id"`
	Winner       string    `db:"winner" json:"winner"`
	Language     string    `db:"language" json:"language"`
	Rounds       int       `db:"rounds" json:"rounds"`
	Participants string    `db:"participants" json:"participants"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// GameLogRow is the stored full round-by-round log of one finished game.
type GameLogRow struct {
	GameID       string `db:"game_id" json:"game_id"`
	RoundsJSON   string `db:"rounds_json" json:"rounds_json"`
	CriticReview string `db:"critic_review" json:"critic_review"`
}

// OpenGameStore connects to sqlite and ensures the schema exists.
func OpenGameStore(dsn string, logger *AppLogger) (*GameStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open game store: %w", err)
	}
	s := &GameStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *GameStore) initSchema() error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS game_result (
		game_id TEXT PRIMARY KEY,
		winner TEXT NOT NULL,
		language TEXT NOT NULL,
		rounds INTEGER NOT NULL,
		participants TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS game_log (
		game_id TEXT PRIMARY KEY,
		rounds_json TEXT NOT NULL,
		critic_review TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (game_id) REFERENCES game_result(game_id)
	);
	CREATE INDEX IF NOT EXISTS idx_game_result_winner ON game_result(winner);
	`
	if _, err := s.db.Exec(schema); err != nil {
		log.Printf("initSchema error: %v", err)
		return err
	}
	log.Printf("Database initialized successfully")
	return nil
}

// Close closes the underlying connection.
func (s *GameStore) Close() error {
	return s.db.Close()
}

// StoreResult writes the game summary row.
func (s *GameStore) StoreResult(result *GameResult) error {
	participants, err := json.Marshal(result.Participants)
	if err != nil {
		return fmt.Errorf("store result %s: %w", result.GameID, err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO game_result (game_id, winner, language, rounds, participants, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.GameID, result.Winner, result.Language, result.RoundsPlayed, string(participants), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store result %s: %w", result.GameID, err)
	}
	s.logger.LogDB(s.db, "after StoreResult "+result.GameID)
	return nil
}

// StoreLog writes the full round-by-round record.
func (s *GameStore) StoreLog(result *GameResult) error {
	rounds, err := json.Marshal(result.Rounds)
	if err != nil {
		return fmt.Errorf("store log %s: %w", result.GameID, err)
	}
	critic := ""
	if result.CriticReview != nil {
		if b, err := json.Marshal(result.CriticReview); err == nil {
			critic = string(b)
		}
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO game_log (game_id, rounds_json, critic_review)
		VALUES (?, ?, ?)`,
		result.GameID, string(rounds), critic)
	if err != nil {
		return fmt.Errorf("store log %s: %w", result.GameID, err)
	}
	s.logger.LogDB(s.db, "after StoreLog "+result.GameID)
	return nil
}

// Store persists both the summary and the full log, logging failures instead
// of returning them. A finished game never fails because of storage.
func (s *GameStore) Store(result *GameResult) {
	if s == nil {
		return
	}
	if err := s.StoreResult(result); err != nil {
		log.Printf("GameStore: %v", err)
	}
	if err := s.StoreLog(result); err != nil {
		log.Printf("GameStore: %v", err)
	}
}

// ListResults returns stored game summaries, newest first.
func (s *GameStore) ListResults(limit int) ([]GameResultRow, error) {
	var rows []GameResultRow
	err := s.db.Select(&rows, `
		SELECT game_id, winner, language, rounds, participants, created_at
		FROM game_result ORDER BY created_at DESC LIMIT ?`, limit)
	return rows, err
}

// GetLog returns the full stored log for one game.
func (s *GameStore) GetLog(gameID string) (GameLogRow, error) {
	var row GameLogRow
	err := s.db.Get(&row, `
		SELECT game_id, rounds_json, critic_review FROM game_log WHERE game_id = ?`, gameID)
	return row, err
}

// WinCounts returns the number of stored wins per winning side.
func (s *GameStore) WinCounts() (map[string]int, error) {
	var rows []struct {
		Winner string `db:"winner"`
		N      int    `db:"n"`
	}
	if err := s.db.Select(&rows, `SELECT winner, COUNT(*) AS n FROM game_result GROUP BY winner`); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Winner] = r.N
	}
	return counts, nil
}
