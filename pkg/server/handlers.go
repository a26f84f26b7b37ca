package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

// LoginParams is the body of POST /auth/login and /auth/profile.
type LoginParams struct {
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
}

// TokenResponse carries a freshly signed token.
type TokenResponse struct {
	Token string `json:"token"`
}

// CreateLobbyResponse carries the id of a created lobby.
type CreateLobbyResponse struct {
	LobbyID string `json:"lobby_id"`
}

// handleLogin mints a fresh anonymous identity.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var params LoginParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if params.Nickname == "" {
		writeError(w, http.StatusBadRequest, "nickname is required")
		return
	}

	claims := NewIdentity(params.Nickname, params.Picture)
	token, err := s.auth.Issue(claims)
	if err != nil {
		s.log.Errorf("failed to issue token: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	s.log.Infof("issued identity %s for %q", claims.ID, claims.Nickname)
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// handleProfile re-issues the caller's token with an updated nickname and
// picture. The player id is kept.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var params LoginParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if params.Nickname == "" {
		writeError(w, http.StatusBadRequest, "nickname is required")
		return
	}

	claims.Nickname = params.Nickname
	claims.Picture = params.Picture

	token, err := s.auth.Issue(claims)
	if err != nil {
		s.log.Errorf("failed to re-issue token: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// handleGetLobbies lists lobbies still accepting players.
func (s *Server) handleGetLobbies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Lobbies())
}

// handleCreateLobby creates the caller's lobby; its id is the caller's
// player id.
func (s *Server) handleCreateLobby(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	lobbyID := s.manager.CreateLobby(claims.ID)
	writeJSON(w, http.StatusOK, CreateLobbyResponse{LobbyID: lobbyID})
}

// handleJoinLobby adds the caller to the lobby in the path.
func (s *Server) handleJoinLobby(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	lobbyID := mux.Vars(r)["id"]

	result, err := s.manager.JoinLobby(lobbyID, claims)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidLobby):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
