package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Login is one recorded authenticated request.
type Login struct {
	PlayerID string
	Nickname string
	Picture  string
	IP       string
	Time     time.Time
}

// Game is one started game's audit record.
type Game struct {
	LobbyID   string
	StartedAt time.Time
}

// Turn is one accepted card play.
type Turn struct {
	LobbyID  string
	PlayerID string
	Rank     string
	Suit     string
	PlayedAt time.Time
}

// DB represents the database connection.
type DB struct {
	*sql.DB
}

// New opens the database at dbPath, creating the schema if needed.
func New(dbPath string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &DB{sqlDB}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS logins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			nickname TEXT NOT NULL,
			picture TEXT,
			ip TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lobby_id TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lobby_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			rank TEXT NOT NULL,
			suit TEXT NOT NULL,
			played_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// InsertLogin records a login.
func (d *DB) InsertLogin(login Login) error {
	_, err := d.Exec(
		`INSERT INTO logins (player_id, nickname, picture, ip, created_at) VALUES (?, ?, ?, ?, ?)`,
		login.PlayerID, login.Nickname, login.Picture, login.IP, login.Time,
	)
	return err
}

// InsertGame records a started game.
func (d *DB) InsertGame(game Game) error {
	_, err := d.Exec(
		`INSERT INTO games (lobby_id, started_at) VALUES (?, ?)`,
		game.LobbyID, game.StartedAt,
	)
	return err
}

// InsertTurn records an accepted card play.
func (d *DB) InsertTurn(turn Turn) error {
	_, err := d.Exec(
		`INSERT INTO turns (lobby_id, player_id, rank, suit, played_at) VALUES (?, ?, ?, ?, ?)`,
		turn.LobbyID, turn.PlayerID, turn.Rank, turn.Suit, turn.PlayedAt,
	)
	return err
}

// CountLogins returns the number of recorded logins for a player.
func (d *DB) CountLogins(playerID string) (int, error) {
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM logins WHERE player_id = ?`, playerID).Scan(&n)
	return n, err
}

// CountTurns returns the number of recorded turns for a lobby.
func (d *DB) CountTurns(lobbyID string) (int, error) {
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM turns WHERE lobby_id = ?`, lobbyID).Scan(&n)
	return n, err
}
