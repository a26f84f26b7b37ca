package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/joho/godotenv"

	"github.com/vctt94/ohhell/pkg/server"
)

func main() {
	var (
		addr       string
		dbPath     string
		seed       int64
		debugLevel string
	)
	flag.StringVar(&addr, "addr", "0.0.0.0:3000", "Address to listen on")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database file (created if missing)")
	flag.Int64Var(&seed, "seed", 0, "Deterministic RNG seed for decks (0 = random)")
	flag.StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")
	flag.Parse()

	// Best-effort .env from the working directory so JWT_KEY can live in a
	// local file in dev.
	godotenv.Load()

	jwtKey := os.Getenv("JWT_KEY")
	if jwtKey == "" {
		fmt.Fprintln(os.Stderr, "JWT_KEY environment variable is required")
		os.Exit(1)
	}

	if dbPath == "" {
		dbPath = os.Getenv("OHHELL_DB_PATH")
	}
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "ohhell.sqlite")
	}

	backend := slog.NewBackend(os.Stdout)
	level, _ := slog.LevelFromString(debugLevel)
	logger := func(tag string) slog.Logger {
		log := backend.Logger(tag)
		log.SetLevel(level)
		return log
	}
	srvLog := logger("SRV")

	store, err := server.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	srv, err := server.New(server.Config{
		JWTKey:     []byte(jwtKey),
		Store:      store,
		Seed:       seed,
		Log:        srvLog,
		ManagerLog: logger("MNGR"),
		GameLog:    logger("GAME"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}

	srvLog.Infof("listening on %s", addr)

	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		fmt.Fprintf(os.Stderr, "http serve error: %v\n", err)
		os.Exit(1)
	}
}
