// Package e2e drives a real server over HTTP and WebSocket using the typed
// client, covering the full lobby-to-set flow.
package e2e

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vctt94/ohhell/pkg/client"
	"github.com/vctt94/ohhell/pkg/ohhell"
	"github.com/vctt94/ohhell/pkg/server"
	"github.com/vctt94/ohhell/pkg/wire"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv, err := server.New(server.Config{JWTKey: []byte("e2e-key"), Seed: 42})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func connect(t *testing.T, ctx context.Context, url, nickname string) *client.Client {
	t.Helper()

	c := client.New(client.Config{ServerURL: url})
	require.NoError(t, c.Login(ctx, nickname, "1"))
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { c.Close() })
	return c
}

// nextMessage reads one server message with a timeout.
func nextMessage(t *testing.T, c *client.Client) wire.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-c.Messages:
		require.True(t, ok, "connection closed")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for server message")
		return nil
	}
}

// awaitType discards messages until one of type T arrives.
func awaitType[T wire.ServerMessage](t *testing.T, c *client.Client) T {
	t.Helper()
	for {
		if msg, ok := nextMessage(t, c).(T); ok {
			return msg
		}
	}
}

// awaitBiddingTurnFor discards messages until the bidding turn of the given
// player arrives.
func awaitBiddingTurnFor(t *testing.T, c *client.Client, playerID string) wire.PlayerBiddingTurn {
	t.Helper()
	for {
		msg := awaitType[wire.PlayerBiddingTurn](t, c)
		if msg.PlayerID == playerID {
			return msg
		}
	}
}

func TestTwoPlayerSetOverWebSocket(t *testing.T) {
	ts := startServer(t)
	ctx := context.Background()

	alice := connect(t, ctx, ts.URL, "alice")
	bob := connect(t, ctx, ts.URL, "bob")

	lobbyID, err := alice.CreateLobby(ctx)
	require.NoError(t, err)

	joinedA, err := alice.JoinLobby(ctx, lobbyID)
	require.NoError(t, err)
	require.False(t, joinedA.ShouldReconnect)
	aliceID := joinedA.Players[0].PlayerID

	joinedB, err := bob.JoinLobby(ctx, lobbyID)
	require.NoError(t, err)
	require.Len(t, joinedB.Players, 2)
	bobID := joinedB.Players[1].PlayerID

	// Alice sees bob arrive.
	joined := awaitType[wire.PlayerJoined](t, alice)
	if joined.ID != bobID {
		joined = awaitType[wire.PlayerJoined](t, alice)
	}
	require.Equal(t, bobID, joined.ID)

	require.NoError(t, alice.SetReady(true))
	require.NoError(t, bob.SetReady(true))

	// Both get the set opening: upcard, private deck, first bidding turn.
	setStartA := awaitType[wire.SetStart](t, alice)
	require.True(t, setStartA.Upcard.Valid())
	deckA := awaitType[wire.PlayerDeck](t, alice)
	require.Len(t, deckA.Cards, 1)

	awaitType[wire.SetStart](t, bob)
	deckB := awaitType[wire.PlayerDeck](t, bob)
	require.Len(t, deckB.Cards, 1)

	bidding := awaitType[wire.PlayerBiddingTurn](t, alice)
	require.Equal(t, aliceID, bidding.PlayerID)
	require.NoError(t, alice.PutBid(bidding.PossibleBids[0]))

	bidding = awaitBiddingTurnFor(t, bob, bobID)
	require.NoError(t, bob.PutBid(bidding.PossibleBids[0]))

	turn := awaitType[wire.PlayerTurn](t, alice)
	require.Equal(t, aliceID, turn.PlayerID)
	require.NoError(t, alice.PlayTurn(deckA.Cards[0]))

	played := awaitType[wire.TurnPlayed](t, bob)
	require.Len(t, played.Pile, 1)
	turnB := awaitType[wire.PlayerTurn](t, bob)
	require.Equal(t, bobID, turnB.PlayerID)
	require.NoError(t, bob.PlayTurn(deckB.Cards[0]))

	// One-card set: the second card ends the set; exactly one player lost
	// a life.
	ended := awaitType[wire.SetEnded](t, alice)
	lost := 0
	for _, lifes := range ended {
		if lifes < ohhell.InitialLifes {
			lost++
		}
	}
	require.Equal(t, 1, lost)

	// A new set opens immediately with bob bidding first.
	awaitType[wire.SetStart](t, alice)
	nextBidding := awaitType[wire.PlayerBiddingTurn](t, alice)
	require.Equal(t, bobID, nextBidding.PlayerID)
}

func TestRuleErrorsAreRecoverable(t *testing.T) {
	ts := startServer(t)
	ctx := context.Background()

	alice := connect(t, ctx, ts.URL, "alice")
	bob := connect(t, ctx, ts.URL, "bob")

	lobbyID, err := alice.CreateLobby(ctx)
	require.NoError(t, err)
	_, err = alice.JoinLobby(ctx, lobbyID)
	require.NoError(t, err)
	joinedB, err := bob.JoinLobby(ctx, lobbyID)
	require.NoError(t, err)
	bobID := joinedB.Players[1].PlayerID

	require.NoError(t, alice.SetReady(true))
	require.NoError(t, bob.SetReady(true))

	awaitType[wire.PlayerBiddingTurn](t, bob)

	// Bob bids out of turn: he gets an Error message, not a close frame.
	require.NoError(t, bob.PutBid(0))
	errMsg := awaitType[wire.Error](t, bob)
	require.NotEmpty(t, errMsg.Msg)

	// The connection is still usable.
	require.NoError(t, bob.RequestReconnect())
	info := awaitType[wire.ReconnectInfo](t, bob)
	require.Len(t, info.Players, 2)
	require.NotEqual(t, bobID, info.CurrentPlayer)
}

func TestReconnectRestoresState(t *testing.T) {
	ts := startServer(t)
	ctx := context.Background()

	alice := connect(t, ctx, ts.URL, "alice")
	bob := connect(t, ctx, ts.URL, "bob")

	lobbyID, err := alice.CreateLobby(ctx)
	require.NoError(t, err)
	joinedA, err := alice.JoinLobby(ctx, lobbyID)
	require.NoError(t, err)
	aliceID := joinedA.Players[0].PlayerID

	_, err = bob.JoinLobby(ctx, lobbyID)
	require.NoError(t, err)

	require.NoError(t, alice.SetReady(true))
	require.NoError(t, bob.SetReady(true))

	deckA := awaitType[wire.PlayerDeck](t, alice)

	// Alice drops and comes back with her original identity token.
	require.NoError(t, alice.Close())
	alice2 := clientWithToken(t, ctx, ts.URL, alice.Token())

	rejoined, err := alice2.JoinLobby(ctx, lobbyID)
	require.NoError(t, err)
	require.True(t, rejoined.ShouldReconnect)

	require.NoError(t, alice2.RequestReconnect())
	info := awaitType[wire.ReconnectInfo](t, alice2)
	require.Equal(t, deckA.Cards, info.Deck)
	require.Equal(t, aliceID, info.CurrentPlayer)
}

// clientWithToken builds a connected client reusing an existing identity
// token.
func clientWithToken(t *testing.T, ctx context.Context, url, token string) *client.Client {
	t.Helper()

	c := client.NewWithToken(client.Config{ServerURL: url}, token)
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { c.Close() })
	return c
}
