package server

import (
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/vctt94/ohhell/pkg/ohhell"
	"github.com/vctt94/ohhell/pkg/wire"
)

// Sink is a player's outbound half of a connection. Implementations must be
// safe for concurrent use.
type Sink interface {
	// Send delivers one server message.
	Send(msg wire.ServerMessage) error
	// Close writes a close frame with the given code and reason, then
	// tears the connection down.
	Close(code int, reason string) error
}

// LobbySummary is one entry of the public lobby listing.
type LobbySummary struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"player_count"`
}

// JoinResult is the response to a lobby join.
type JoinResult struct {
	ID              string         `json:"id"`
	Players         []PlayerStatus `json:"players"`
	ShouldReconnect bool           `json:"should_reconnect"`
}

// ManagerConfig holds construction parameters for the lobby manager.
type ManagerConfig struct {
	// Store records started games and accepted turns. May be nil.
	Store GameStore
	// Log receives manager events.
	Log slog.Logger
	// GameLog is handed to every game engine instance.
	GameLog slog.Logger
	// Seed makes decks deterministic when non-zero.
	Seed int64
}

// LobbyManager is the single-process authority over all lobbies.
//
// Lock order: mu (lobby state) before connMu (connection registry), always.
// No send ever happens while mu is held; commands assemble their outbound
// messages under mu, release it, and only then touch the sinks. A slow
// receiver can therefore never freeze the lobbies.
type LobbyManager struct {
	mu            sync.Mutex
	lobbies       map[string]*Lobby
	playerToLobby map[string]string

	connMu      sync.Mutex
	connections map[string]Sink

	store   GameStore
	log     slog.Logger
	gameLog slog.Logger
	rng     *rand.Rand
	rngMu   sync.Mutex
}

// NewLobbyManager creates an empty manager.
func NewLobbyManager(cfg ManagerConfig) *LobbyManager {
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	gameLog := cfg.GameLog
	if gameLog == nil {
		gameLog = log
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &LobbyManager{
		lobbies:       make(map[string]*Lobby),
		playerToLobby: make(map[string]string),
		connections:   make(map[string]Sink),
		store:         cfg.Store,
		log:           log,
		gameLog:       gameLog,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// outbound is one queued (recipient, message) pair. Per recipient, delivery
// order matches queue order.
type outbound struct {
	to  string
	msg wire.ServerMessage
}

// broadcast queues msg for every given player.
func broadcast(out []outbound, players []string, msg wire.ServerMessage) []outbound {
	for _, id := range players {
		out = append(out, outbound{to: id, msg: msg})
	}
	return out
}

// deliver sends queued messages best-effort. Send errors are logged and
// drop the sink from the registry; missing sinks are silent no-ops.
func (m *LobbyManager) deliver(out []outbound) {
	for _, o := range out {
		m.connMu.Lock()
		sink, ok := m.connections[o.to]
		m.connMu.Unlock()
		if !ok {
			continue
		}

		if err := sink.Send(o.msg); err != nil {
			m.log.Warnf("failed to send to %s: %v", o.to, err)
			m.dropConnection(o.to, sink)
		}
	}
}

// dropConnection removes sink from the registry if it is still the one
// registered for playerID.
func (m *LobbyManager) dropConnection(playerID string, sink Sink) {
	m.connMu.Lock()
	if current, ok := m.connections[playerID]; ok && current == sink {
		delete(m.connections, playerID)
	}
	m.connMu.Unlock()
}

// StorePlayerConnection registers the sink for playerID, replacing any
// previous one.
func (m *LobbyManager) StorePlayerConnection(playerID string, sink Sink) {
	m.connMu.Lock()
	m.connections[playerID] = sink
	m.connMu.Unlock()

	m.log.Debugf("stored connection for player %s", playerID)
}

// RemovePlayerConnection drops the sink for playerID if it is still the
// given one. Lobby state is untouched: the player keeps their slot for
// reconnection.
func (m *LobbyManager) RemovePlayerConnection(playerID string, sink Sink) {
	m.dropConnection(playerID, sink)
}

// SendMessage unicasts msg to playerID, best-effort.
func (m *LobbyManager) SendMessage(playerID string, msg wire.ServerMessage) {
	m.deliver([]outbound{{to: playerID, msg: msg}})
}

// SendDisconnect emits a close frame mapped from err, then drops the sink.
func (m *LobbyManager) SendDisconnect(playerID string, err error) {
	m.connMu.Lock()
	sink, ok := m.connections[playerID]
	if ok {
		delete(m.connections, playerID)
	}
	m.connMu.Unlock()
	if !ok {
		return
	}

	if cerr := sink.Close(CloseCode(err), err.Error()); cerr != nil {
		m.log.Warnf("failed to close connection of %s: %v", playerID, cerr)
	}
}

// CreateLobby inserts an empty lobby keyed by the creator's player id and
// returns the lobby id. Creating an already existing, not yet started
// lobby is a no-op.
func (m *LobbyManager) CreateLobby(playerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lobbies[playerID]; !ok {
		m.lobbies[playerID] = newLobby()
		m.log.Infof("lobby %s created", playerID)
	}
	return playerID
}

// Lobbies lists lobbies still accepting players.
func (m *LobbyManager) Lobbies() []LobbySummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]LobbySummary, 0, len(m.lobbies))
	for id, lobby := range m.lobbies {
		if lobby.started() {
			continue
		}
		out = append(out, LobbySummary{ID: id, PlayerCount: lobby.players.Len()})
	}
	return out
}

// JoinLobby adds the player to a lobby, or flags a reconnect when the
// lobby's game already started and the player is a member.
func (m *LobbyManager) JoinLobby(lobbyID string, claims wire.UserClaims) (*JoinResult, error) {
	m.mu.Lock()

	lobby, ok := m.lobbies[lobbyID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrInvalidLobby
	}

	if current, ok := m.playerToLobby[claims.ID]; ok && current != lobbyID {
		m.mu.Unlock()
		return nil, ErrWrongLobby
	}

	if lobby.started() {
		if !lobby.players.Has(claims.ID) {
			m.mu.Unlock()
			return nil, ErrWrongLobby
		}
		result := &JoinResult{ID: lobbyID, Players: lobby.statuses(), ShouldReconnect: true}
		out := broadcast(nil, lobby.playerIDs(), wire.PlayerJoined{UserClaims: claims})
		m.mu.Unlock()

		m.deliver(out)
		return result, nil
	}

	lobby.addPlayer(claims)
	m.playerToLobby[claims.ID] = lobbyID

	result := &JoinResult{ID: lobbyID, Players: lobby.statuses()}
	out := broadcast(nil, lobby.playerIDs(), wire.PlayerJoined{UserClaims: claims})
	m.mu.Unlock()

	m.log.Infof("player %s joined lobby %s", claims.ID, lobbyID)

	m.deliver(out)
	return result, nil
}

// PlayerStatusChange toggles a player's readiness. When the last member
// turns ready the lobby's game is constructed and the first set opens.
func (m *LobbyManager) PlayerStatusChange(playerID string, ready bool) error {
	m.mu.Lock()

	lobby, err := m.lobbyOf(playerID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if lobby.started() {
		m.mu.Unlock()
		return ErrGameAlreadyStarted
	}

	lobby.setReady(playerID, ready)

	out := broadcast(nil, lobby.playerIDs(),
		wire.StatusChanged{PlayerID: playerID, Ready: ready})

	var startedLobby string
	if lobby.allReady() {
		game, err := ohhell.New(ohhell.Config{
			Players: lobby.playerIDs(),
			Rand:    m.gameRand(),
			Log:     m.gameLog,
		})
		if err != nil {
			// Lobby stays NotStarted; readiness is kept.
			m.mu.Unlock()
			return err
		}
		lobby.game = game

		startedLobby = m.playerToLobby[playerID]
		m.log.Infof("lobby %s: all %d players ready, game started", startedLobby, lobby.players.Len())

		out = m.initSet(out, lobby.playerIDs(), game.Upcard(), m.privateDecks(game), firstBidder(game), game.AllowedBids())
	}
	m.mu.Unlock()

	if startedLobby != "" {
		m.recordGameStarted(startedLobby)
	}
	m.deliver(out)
	return nil
}

// initSet queues the opening sequence of a set: the shared upcard, each
// player's private hand, and the first bidding turn.
func (m *LobbyManager) initSet(out []outbound, players []string, upcard ohhell.Card, decks map[string][]ohhell.Card, nextBidder string, possibleBids []int) []outbound {
	out = broadcast(out, players, wire.SetStart{Upcard: upcard})
	for _, id := range players {
		if deck, ok := decks[id]; ok {
			out = append(out, outbound{to: id, msg: wire.PlayerDeck{Cards: deck}})
		}
	}
	return broadcast(out, players,
		wire.PlayerBiddingTurn{PlayerID: nextBidder, PossibleBids: possibleBids})
}

// Bid forwards a bid to the player's game and fans out the outcome.
func (m *LobbyManager) Bid(playerID string, bid int) error {
	m.mu.Lock()

	lobby, err := m.lobbyOf(playerID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if !lobby.started() {
		m.mu.Unlock()
		return ErrGameNotStarted
	}

	result, err := lobby.game.Bid(playerID, bid)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	out := broadcast(nil, lobby.playerIDs(),
		wire.PlayerBidded{PlayerID: playerID, Bid: bid})
	if result.Done {
		out = broadcast(out, lobby.playerIDs(), wire.PlayerTurn{PlayerID: result.Next})
	} else {
		out = broadcast(out, lobby.playerIDs(),
			wire.PlayerBiddingTurn{PlayerID: result.Next, PossibleBids: result.PossibleBids})
	}
	m.mu.Unlock()

	m.deliver(out)
	return nil
}

// PlayTurn forwards a played card to the player's game and fans out the
// resulting transition.
func (m *LobbyManager) PlayTurn(playerID string, card ohhell.Card) error {
	m.mu.Lock()

	lobby, err := m.lobbyOf(playerID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if !lobby.started() {
		m.mu.Unlock()
		return ErrGameNotStarted
	}

	result, err := lobby.game.Play(ohhell.Turn{PlayerID: playerID, Card: card})
	if err != nil {
		m.mu.Unlock()
		return err
	}

	lobbyID := m.playerToLobby[playerID]
	players := lobby.playerIDs()
	out := broadcast(nil, players, wire.TurnPlayed{Pile: result.Pile})

	switch result.Kind {
	case ohhell.KindTurnPlayed:
		out = broadcast(out, players, wire.PlayerTurn{PlayerID: result.Next})

	case ohhell.KindRoundEnded:
		out = broadcast(out, players, wire.RoundEnded(result.Rounds))
		out = broadcast(out, players, wire.PlayerTurn{PlayerID: result.Next})

	case ohhell.KindSetEnded:
		out = broadcast(out, players, wire.SetEnded(result.Lifes))
		out = m.initSet(out, players, result.Upcard, result.Decks, result.Next, result.PossibleBids)

	case ohhell.KindGameEnded:
		out = broadcast(out, players, wire.GameEnded{Winner: result.Winner, Lifes: result.Lifes})
		// The lobby returns to the pre-game state so the room can play
		// again; readiness starts over.
		lobby.game = nil
		lobby.ready = make(map[string]struct{})
		for _, id := range players {
			lobby.setReady(id, false)
		}
		winner := "nobody"
		if result.Winner != nil {
			winner = *result.Winner
		}
		m.log.Infof("lobby %s: game ended, winner %s", lobbyID, winner)
	}
	m.mu.Unlock()

	m.recordTurn(lobbyID, playerID, card)
	m.deliver(out)
	return nil
}

// Reconnect unicasts a full game snapshot to the player.
func (m *LobbyManager) Reconnect(playerID string) error {
	m.mu.Lock()

	lobby, err := m.lobbyOf(playerID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if !lobby.started() {
		m.mu.Unlock()
		return ErrGameNotStarted
	}

	info, err := lobby.game.Info(playerID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.log.Debugf("player %s reconnected", playerID)

	m.deliver([]outbound{{to: playerID, msg: wire.ReconnectInfo{GameInfo: *info}}})
	return nil
}

// lobbyOf resolves a player's lobby. Callers hold mu.
func (m *LobbyManager) lobbyOf(playerID string) (*Lobby, error) {
	lobbyID, ok := m.playerToLobby[playerID]
	if !ok {
		return nil, ErrWrongLobby
	}
	lobby, ok := m.lobbies[lobbyID]
	if !ok {
		return nil, ErrInvalidLobby
	}
	return lobby, nil
}

// privateDecks snapshots each player's freshly dealt hand.
func (m *LobbyManager) privateDecks(game *ohhell.Game) map[string][]ohhell.Card {
	decks := make(map[string][]ohhell.Card)
	for _, id := range game.Players() {
		decks[id] = game.Hand(id)
	}
	return decks
}

func firstBidder(game *ohhell.Game) string {
	bidder, _ := game.CurrentBidder()
	return bidder
}

func (m *LobbyManager) gameRand() *rand.Rand {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return rand.New(rand.NewSource(m.rng.Int63()))
}

// recordGameStarted writes the audit record for a new game. Storage
// failures are logged, never surfaced to players.
func (m *LobbyManager) recordGameStarted(lobbyID string) {
	if m.store == nil {
		return
	}
	if err := m.store.InsertGame(lobbyID, time.Now().UTC()); err != nil {
		m.log.Errorf("failed to record game start for lobby %s: %v", lobbyID, err)
	}
}

func (m *LobbyManager) recordTurn(lobbyID, playerID string, card ohhell.Card) {
	if m.store == nil {
		return
	}
	if err := m.store.InsertTurn(lobbyID, playerID, card, time.Now().UTC()); err != nil {
		m.log.Errorf("failed to record turn for lobby %s: %v", lobbyID, err)
	}
}
