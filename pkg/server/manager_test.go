package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vctt94/ohhell/pkg/ohhell"
	"github.com/vctt94/ohhell/pkg/wire"
)

// recorderSink captures everything sent to one player.
type recorderSink struct {
	mu     sync.Mutex
	msgs   []wire.ServerMessage
	closed bool
	code   int
}

func (r *recorderSink) Send(msg wire.ServerMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorderSink) Close(code int, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.code = code
	return nil
}

func (r *recorderSink) messages() []wire.ServerMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wire.ServerMessage, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func countType[T wire.ServerMessage](msgs []wire.ServerMessage) int {
	n := 0
	for _, m := range msgs {
		if _, ok := m.(T); ok {
			n++
		}
	}
	return n
}

func lastOfType[T wire.ServerMessage](t *testing.T, msgs []wire.ServerMessage) T {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if m, ok := msgs[i].(T); ok {
			return m
		}
	}
	var zero T
	t.Fatalf("no message of type %T recorded", zero)
	return zero
}

func claims(id string) wire.UserClaims {
	return wire.UserClaims{ID: id, Nickname: "nick-" + id}
}

func newTestManager() *LobbyManager {
	return NewLobbyManager(ManagerConfig{Seed: 42})
}

// setupLobby joins the given players into lobby "A" with live sinks and
// returns the sinks keyed by player id.
func setupLobby(t *testing.T, m *LobbyManager, ids ...string) map[string]*recorderSink {
	t.Helper()

	sinks := make(map[string]*recorderSink)
	for _, id := range ids {
		sinks[id] = &recorderSink{}
		m.StorePlayerConnection(id, sinks[id])
	}

	require.Equal(t, "A", m.CreateLobby("A"))
	for _, id := range ids {
		result, err := m.JoinLobby("A", claims(id))
		require.NoError(t, err)
		require.False(t, result.ShouldReconnect)
	}
	return sinks
}

func TestJoinLobbyErrors(t *testing.T) {
	m := newTestManager()

	_, err := m.JoinLobby("missing", claims("A"))
	require.ErrorIs(t, err, ErrInvalidLobby)

	m.CreateLobby("A")
	m.CreateLobby("B")
	_, err = m.JoinLobby("A", claims("A"))
	require.NoError(t, err)

	// A player belongs to exactly one lobby.
	_, err = m.JoinLobby("B", claims("A"))
	require.ErrorIs(t, err, ErrWrongLobby)
}

func TestJoinBroadcastsPlayerJoined(t *testing.T) {
	m := newTestManager()
	sinks := setupLobby(t, m, "A", "B")

	msgsA := sinks["A"].messages()
	require.Equal(t, 2, countType[wire.PlayerJoined](msgsA))

	// B joined after A, so B only saw its own join.
	msgsB := sinks["B"].messages()
	require.Equal(t, 1, countType[wire.PlayerJoined](msgsB))
	joined := lastOfType[wire.PlayerJoined](t, msgsB)
	require.Equal(t, "B", joined.ID)
}

func TestCommandsBeforeGameStart(t *testing.T) {
	m := newTestManager()
	setupLobby(t, m, "A", "B")

	require.ErrorIs(t, m.Bid("A", 0), ErrGameNotStarted)
	require.ErrorIs(t, m.PlayTurn("A", ohhell.NewCard(ohhell.Four, ohhell.Golds)), ErrGameNotStarted)
	require.ErrorIs(t, m.Reconnect("A"), ErrGameNotStarted)

	require.ErrorIs(t, m.Bid("stranger", 0), ErrWrongLobby)
}

func TestReadinessStartsGame(t *testing.T) {
	m := newTestManager()
	sinks := setupLobby(t, m, "A", "B")

	require.NoError(t, m.PlayerStatusChange("A", true))
	for _, sink := range sinks {
		msgs := sink.messages()
		require.Equal(t, 0, countType[wire.SetStart](msgs))
		status := lastOfType[wire.StatusChanged](t, msgs)
		require.Equal(t, "A", status.PlayerID)
		require.True(t, status.Ready)
	}

	require.NoError(t, m.PlayerStatusChange("B", true))

	for id, sink := range sinks {
		msgs := sink.messages()
		require.Equal(t, 1, countType[wire.SetStart](msgs), "player %s", id)
		// Exactly one private deck per player per set.
		require.Equal(t, 1, countType[wire.PlayerDeck](msgs), "player %s", id)

		deck := lastOfType[wire.PlayerDeck](t, msgs)
		require.Len(t, deck.Cards, 1)

		bidding := lastOfType[wire.PlayerBiddingTurn](t, msgs)
		require.Equal(t, "A", bidding.PlayerID)
		require.NotEmpty(t, bidding.PossibleBids)
	}

	// The lobby no longer shows up as joinable.
	require.Empty(t, m.Lobbies())

	// Further readiness toggles are rejected.
	require.ErrorIs(t, m.PlayerStatusChange("A", false), ErrGameAlreadyStarted)
}

func TestFullSetThroughManager(t *testing.T) {
	m := newTestManager()
	sinks := setupLobby(t, m, "A", "B")

	require.NoError(t, m.PlayerStatusChange("A", true))
	require.NoError(t, m.PlayerStatusChange("B", true))

	// Out of turn bids are engine errors surfaced to the caller.
	err := m.Bid("B", 0)
	var notYourTurn *ohhell.NotYourTurnError
	require.ErrorAs(t, err, &notYourTurn)

	bidding := lastOfType[wire.PlayerBiddingTurn](t, sinks["A"].messages())
	require.Equal(t, "A", bidding.PlayerID)
	require.NoError(t, m.Bid("A", bidding.PossibleBids[0]))

	bidding = lastOfType[wire.PlayerBiddingTurn](t, sinks["B"].messages())
	require.Equal(t, "B", bidding.PlayerID)
	require.NoError(t, m.Bid("B", bidding.PossibleBids[0]))

	for _, sink := range sinks {
		msgs := sink.messages()
		require.Equal(t, 2, countType[wire.PlayerBidded](msgs))
		turn := lastOfType[wire.PlayerTurn](t, msgs)
		require.Equal(t, "A", turn.PlayerID)
	}

	deckA := lastOfType[wire.PlayerDeck](t, sinks["A"].messages())
	require.NoError(t, m.PlayTurn("A", deckA.Cards[0]))

	for _, sink := range sinks {
		played := lastOfType[wire.TurnPlayed](t, sink.messages())
		require.Len(t, played.Pile, 1)
		turn := lastOfType[wire.PlayerTurn](t, sink.messages())
		require.Equal(t, "B", turn.PlayerID)
	}

	deckB := lastOfType[wire.PlayerDeck](t, sinks["B"].messages())
	require.NoError(t, m.PlayTurn("B", deckB.Cards[0]))

	// One-card set: the second card finishes the set and opens the next
	// one with fresh decks and a rotated first bidder.
	for id, sink := range sinks {
		msgs := sink.messages()
		require.Equal(t, 1, countType[wire.SetEnded](msgs), "player %s", id)
		require.Equal(t, 2, countType[wire.SetStart](msgs), "player %s", id)
		require.Equal(t, 2, countType[wire.PlayerDeck](msgs), "player %s", id)

		ended := lastOfType[wire.SetEnded](t, msgs)
		lost := 0
		for _, lifes := range ended {
			if lifes < ohhell.InitialLifes {
				lost++
			}
		}
		require.Equal(t, 1, lost)

		bidding := lastOfType[wire.PlayerBiddingTurn](t, msgs)
		require.Equal(t, "B", bidding.PlayerID)
	}
}

func TestReconnectUnicastsSnapshot(t *testing.T) {
	m := newTestManager()
	sinks := setupLobby(t, m, "A", "B")

	require.NoError(t, m.PlayerStatusChange("A", true))
	require.NoError(t, m.PlayerStatusChange("B", true))

	require.NoError(t, m.Reconnect("A"))

	info := lastOfType[wire.ReconnectInfo](t, sinks["A"].messages())
	require.Len(t, info.Deck, 1)
	require.Equal(t, "A", info.CurrentPlayer)
	require.Len(t, info.Players, 2)

	require.Equal(t, 0, countType[wire.ReconnectInfo](sinks["B"].messages()))
}

func TestJoinPlayingLobbyFlagsReconnect(t *testing.T) {
	m := newTestManager()
	setupLobby(t, m, "A", "B")

	require.NoError(t, m.PlayerStatusChange("A", true))
	require.NoError(t, m.PlayerStatusChange("B", true))

	result, err := m.JoinLobby("A", claims("A"))
	require.NoError(t, err)
	require.True(t, result.ShouldReconnect)

	// Strangers can't join a running game.
	_, err = m.JoinLobby("A", claims("C"))
	require.ErrorIs(t, err, ErrWrongLobby)
}

func TestLobbiesListsOnlyNotStarted(t *testing.T) {
	m := newTestManager()
	m.CreateLobby("A")
	_, err := m.JoinLobby("A", claims("A"))
	require.NoError(t, err)

	lobbies := m.Lobbies()
	require.Len(t, lobbies, 1)
	require.Equal(t, "A", lobbies[0].ID)
	require.Equal(t, 1, lobbies[0].PlayerCount)
}

func TestSendDisconnectClosesWithMappedCode(t *testing.T) {
	m := newTestManager()
	sink := &recorderSink{}
	m.StorePlayerConnection("A", sink)

	m.SendDisconnect("A", ErrUnauthorized)
	require.True(t, sink.closed)
	require.Equal(t, CloseUnauthorized, sink.code)

	// The sink is gone; further sends are silent no-ops.
	m.SendMessage("A", wire.Error{Msg: "x"})
	require.Equal(t, 0, len(sink.messages()))
}

func TestCloseCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{ErrPlayerDisconnected, CloseGoingAway},
		{ErrInvalidWebsocketMessageType, CloseUnsupportedData},
		{ErrUnexpectedValidMessage, ClosePolicyViolation},
		{ErrUnexpectedJSONMessage, ClosePolicyViolation},
		{ErrInvalidLobby, ClosePolicyViolation},
		{ohhell.ErrBidOutOfRange, ClosePolicyViolation},
		{&DatabaseError{Err: ErrInvalidLobby}, CloseInternalError},
		{ErrUnauthorized, CloseUnauthorized},
	}

	for _, tc := range cases {
		require.Equal(t, tc.code, CloseCode(tc.err), "error %v", tc.err)
	}
}

func TestReplacedSinkReceivesSubsequentMessages(t *testing.T) {
	m := newTestManager()
	old := &recorderSink{}
	m.StorePlayerConnection("A", old)

	fresh := &recorderSink{}
	m.StorePlayerConnection("A", fresh)

	m.SendMessage("A", wire.Error{Msg: "hello"})
	require.Equal(t, 0, len(old.messages()))
	require.Equal(t, 1, len(fresh.messages()))
}
