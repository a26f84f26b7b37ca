package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vctt94/ohhell/pkg/ohhell"
	"github.com/vctt94/ohhell/pkg/server/internal/db"
	"github.com/vctt94/ohhell/pkg/wire"
)

// LoginRecord is one authenticated request worth remembering.
type LoginRecord struct {
	Claims wire.UserClaims
	IP     string
	Time   time.Time
}

// LoginSink records logins. Implementations live outside the core; the
// in-tree one is sqlite.
type LoginSink interface {
	RecordLogin(record LoginRecord) error
}

// GameStore records started games and accepted turns for auditing.
type GameStore interface {
	InsertGame(lobbyID string, startedAt time.Time) error
	InsertTurn(lobbyID, playerID string, card ohhell.Card, playedAt time.Time) error
}

// Store is the full persistence surface of the server.
type Store interface {
	LoginSink
	GameStore

	// Close closes the underlying database.
	Close() error
}

// NewStore opens (creating if missing) the sqlite store at dbPath.
func NewStore(dbPath string) (Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	sqlDB, err := db.New(dbPath)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{db: sqlDB}, nil
}

// sqliteStore adapts the internal sqlite database to the store interfaces.
type sqliteStore struct {
	db *db.DB
}

func (s *sqliteStore) RecordLogin(record LoginRecord) error {
	return s.db.InsertLogin(db.Login{
		PlayerID: record.Claims.ID,
		Nickname: record.Claims.Nickname,
		Picture:  record.Claims.Picture,
		IP:       record.IP,
		Time:     record.Time,
	})
}

func (s *sqliteStore) InsertGame(lobbyID string, startedAt time.Time) error {
	return s.db.InsertGame(db.Game{LobbyID: lobbyID, StartedAt: startedAt})
}

func (s *sqliteStore) InsertTurn(lobbyID, playerID string, card ohhell.Card, playedAt time.Time) error {
	return s.db.InsertTurn(db.Turn{
		LobbyID:  lobbyID,
		PlayerID: playerID,
		Rank:     string(card.Rank),
		Suit:     string(card.Suit),
		PlayedAt: playedAt,
	})
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
