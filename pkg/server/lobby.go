package server

import (
	"github.com/vctt94/ohhell/pkg/ohhell"
	"github.com/vctt94/ohhell/pkg/ordmap"
	"github.com/vctt94/ohhell/pkg/wire"
)

// PlayerStatus is one lobby member's pre-game state.
type PlayerStatus struct {
	PlayerID string          `json:"player_id"`
	Ready    bool            `json:"ready"`
	Claims   wire.UserClaims `json:"claims"`
}

// Lobby is a pre-game player set plus readiness, or a running game. It has
// no lock of its own: the manager mutates lobbies only under its state
// mutex.
type Lobby struct {
	players *ordmap.Map[PlayerStatus]
	ready   map[string]struct{}
	game    *ohhell.Game
}

func newLobby() *Lobby {
	return &Lobby{
		players: ordmap.New[PlayerStatus](),
		ready:   make(map[string]struct{}),
	}
}

// started reports whether the lobby transitioned to Playing.
func (l *Lobby) started() bool {
	return l.game != nil
}

func (l *Lobby) addPlayer(claims wire.UserClaims) {
	if l.players.Has(claims.ID) {
		return
	}
	l.players.Set(claims.ID, PlayerStatus{PlayerID: claims.ID, Claims: claims})
}

func (l *Lobby) setReady(playerID string, ready bool) {
	status, ok := l.players.Get(playerID)
	if !ok {
		return
	}
	status.Ready = ready
	l.players.Set(playerID, status)

	if ready {
		l.ready[playerID] = struct{}{}
	} else {
		delete(l.ready, playerID)
	}
}

func (l *Lobby) allReady() bool {
	return l.players.Len() > 0 && len(l.ready) == l.players.Len()
}

// playerIDs returns the members in join order.
func (l *Lobby) playerIDs() []string {
	return l.players.Keys()
}

func (l *Lobby) statuses() []PlayerStatus {
	out := make([]PlayerStatus, 0, l.players.Len())
	l.players.Range(func(_ string, status PlayerStatus) bool {
		out = append(out, status)
		return true
	})
	return out
}
