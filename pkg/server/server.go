package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/vctt94/ohhell/pkg/wire"
)

// Config holds construction parameters for the server.
type Config struct {
	// JWTKey is the HS256 secret for anonymous identity tokens.
	JWTKey []byte
	// Store persists logins and game audit records. May be nil.
	Store Store
	// Seed makes decks deterministic when non-zero.
	Seed int64

	// Loggers per subsystem; nil means disabled, except that a nil GameLog
	// falls back to ManagerLog.
	Log        slog.Logger
	ManagerLog slog.Logger
	GameLog    slog.Logger
}

// Server binds the HTTP and WebSocket surface to the lobby manager.
type Server struct {
	auth     *Authenticator
	manager  *LobbyManager
	store    Store
	log      slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server.
func New(cfg Config) (*Server, error) {
	auth, err := NewAuthenticator(cfg.JWTKey)
	if err != nil {
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}

	var store GameStore
	if cfg.Store != nil {
		store = cfg.Store
	}

	manager := NewLobbyManager(ManagerConfig{
		Store:   store,
		Log:     cfg.ManagerLog,
		GameLog: cfg.GameLog,
		Seed:    cfg.Seed,
	})

	return &Server{
		auth:    auth,
		manager: manager,
		store:   cfg.Store,
		log:     log,
		upgrader: websocket.Upgrader{
			// Clients are browsers and terminal apps from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// Manager exposes the lobby manager, mainly for tests.
func (s *Server) Manager() *LobbyManager {
	return s.manager
}

// Router builds the HTTP surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.Handle("/auth/profile", s.requireAuth(s.handleProfile)).Methods(http.MethodPost)
	r.HandleFunc("/lobby", s.handleGetLobbies).Methods(http.MethodGet)
	r.Handle("/lobby", s.requireAuth(s.handleCreateLobby)).Methods(http.MethodPost)
	r.Handle("/lobby/{id}", s.requireAuth(s.handleJoinLobby)).Methods(http.MethodPut)
	r.HandleFunc("/game", s.handleGameSocket).Methods(http.MethodGet)
	return r
}

type claimsKey struct{}

// requireAuth resolves the bearer token, records the login and stores the
// claims in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.auth.Verify(header[len(prefix):])
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		if s.store != nil {
			record := LoginRecord{Claims: claims, IP: r.RemoteAddr, Time: time.Now().UTC()}
			if err := s.store.RecordLogin(record); err != nil {
				s.log.Errorf("failed to record login for %s: %v", claims.ID, err)
			}
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) wire.UserClaims {
	claims, _ := r.Context().Value(claimsKey{}).(wire.UserClaims)
	return claims
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
