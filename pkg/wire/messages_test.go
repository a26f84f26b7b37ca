package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vctt94/ohhell/pkg/ohhell"
)

func roundTripServer(t *testing.T, msg ServerMessage) ServerMessage {
	t.Helper()
	data, err := EncodeServerMessage(msg)
	require.NoError(t, err)

	decoded, err := DecodeServerMessage(data)
	require.NoError(t, err)
	return decoded
}

func TestServerMessageRoundTrips(t *testing.T) {
	winner := "A"
	card := ohhell.NewCard(ohhell.Seven, ohhell.Cups)

	messages := []ServerMessage{
		PlayerJoined{UserClaims{ID: "p1", Nickname: "nick", Picture: "3"}},
		StatusChanged{PlayerID: "p1", Ready: true},
		SetStart{Upcard: card},
		PlayerDeck{Cards: []ohhell.Card{card, ohhell.NewCard(ohhell.One, ohhell.Golds)}},
		PlayerBiddingTurn{PlayerID: "p2", PossibleBids: []int{0, 2}},
		PlayerBidded{PlayerID: "p2", Bid: 2},
		PlayerTurn{PlayerID: "p1"},
		TurnPlayed{Pile: []ohhell.Turn{{PlayerID: "p1", Card: card}}},
		RoundEnded{"p1": 1, "p2": 0},
		SetEnded{"p1": 5, "p2": 4},
		GameEnded{Winner: &winner, Lifes: map[string]int{"A": 3, "B": 0}},
		Error{Msg: "not your turn"},
	}

	for _, msg := range messages {
		decoded := roundTripServer(t, msg)
		require.Equal(t, msg, decoded, "round trip of %T", msg)
	}
}

func TestGameEndedWithoutWinnerRoundTrips(t *testing.T) {
	msg := GameEnded{Winner: nil, Lifes: map[string]int{"A": 0, "B": 0}}
	decoded := roundTripServer(t, msg)
	require.Equal(t, msg, decoded)
}

func TestReconnectRoundTrips(t *testing.T) {
	bid := 1
	msg := ReconnectInfo{GameInfo: ohhell.GameInfo{
		Deck:          []ohhell.Card{ohhell.NewCard(ohhell.Four, ohhell.Clubs)},
		Upcard:        ohhell.NewCard(ohhell.Two, ohhell.Swords),
		CurrentPlayer: "p2",
		Players: map[string]ohhell.PlayerInfo{
			"p1": {Lifes: 5, Bid: &bid, RoundsWon: 0},
			"p2": {Lifes: 4, RoundsWon: 1},
		},
	}}

	decoded := roundTripServer(t, msg)
	require.Equal(t, msg, decoded)
}

func TestServerEnvelopeShape(t *testing.T) {
	data, err := EncodeServerMessage(PlayerTurn{PlayerID: "p1"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"PlayerTurn","data":{"player_id":"p1"}}`, string(data))

	data, err = EncodeServerMessage(PlayerDeck{Cards: []ohhell.Card{ohhell.NewCard(ohhell.Ten, ohhell.Golds)}})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"PlayerDeck","data":[{"rank":"Ten","suit":"Golds"}]}`, string(data))
}

func TestClientMessageRoundTrips(t *testing.T) {
	card := ohhell.NewCard(ohhell.Twelve, ohhell.Clubs)
	messages := []ClientMessage{
		Auth{Token: "tok"},
		PlayTurn{Card: card},
		PutBid{Bid: 3},
		PlayerStatusChange{Ready: true},
		Reconnect{},
	}

	for _, msg := range messages {
		data, err := EncodeClientMessage(msg)
		require.NoError(t, err)

		decoded, err := DecodeClientMessage(data)
		require.NoError(t, err)
		require.Equal(t, msg, decoded, "round trip of %T", msg)
	}
}

func TestClientGameMessageNesting(t *testing.T) {
	data, err := EncodeClientMessage(PutBid{Bid: 1})
	require.NoError(t, err)

	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	require.Equal(t, "Game", env.Type)

	var inner struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inner))
	require.Equal(t, "PutBid", inner.Type)
}

func TestDecodeRejectsUnknownTypes(t *testing.T) {
	_, err := DecodeClientMessage([]byte(`{"type":"Nope","data":{}}`))
	require.Error(t, err)

	_, err = DecodeServerMessage([]byte(`{"type":"Nope","data":{}}`))
	require.Error(t, err)

	_, err = DecodeClientMessage([]byte(`not json`))
	require.Error(t, err)
}
