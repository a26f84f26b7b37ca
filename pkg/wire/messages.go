// Package wire defines the JSON message schema spoken between clients and
// the server. Every frame is an envelope {type, data}; game frames nest a
// second envelope inside data.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/vctt94/ohhell/pkg/ohhell"
)

// UserClaims is the anonymous identity carried by a token. The ID doubles
// as the player id everywhere in the server.
type UserClaims struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is a frame sent by a client.
type ClientMessage interface {
	clientType() string
}

// Auth must be the first frame on every connection.
type Auth struct {
	Token string `json:"token"`
}

// PlayTurn plays one card.
type PlayTurn struct {
	Card ohhell.Card `json:"card"`
}

// PutBid places a bid.
type PutBid struct {
	Bid int `json:"bid"`
}

// PlayerStatusChange toggles readiness in a lobby.
type PlayerStatusChange struct {
	Ready bool `json:"ready"`
}

// Reconnect asks for a full game snapshot.
type Reconnect struct{}

func (Auth) clientType() string               { return "Auth" }
func (PlayTurn) clientType() string           { return "PlayTurn" }
func (PutBid) clientType() string             { return "PutBid" }
func (PlayerStatusChange) clientType() string { return "PlayerStatusChange" }
func (Reconnect) clientType() string          { return "Reconnect" }

// EncodeClientMessage wraps msg in its envelope(s). Game messages are
// nested under a Game envelope.
func EncodeClientMessage(msg ClientMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	inner := envelope{Type: msg.clientType(), Data: payload}
	if _, ok := msg.(Auth); ok {
		return json.Marshal(inner)
	}

	nested, err := json.Marshal(inner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: "Game", Data: nested})
}

// DecodeClientMessage parses a client frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "Auth":
		var msg Auth
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case "Game":
		return decodeGameMessage(env.Data)
	default:
		return nil, fmt.Errorf("unknown client message type %q", env.Type)
	}
}

func decodeGameMessage(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "PlayTurn":
		var msg PlayTurn
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case "PutBid":
		var msg PutBid
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case "PlayerStatusChange":
		var msg PlayerStatusChange
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case "Reconnect":
		return Reconnect{}, nil
	default:
		return nil, fmt.Errorf("unknown game message type %q", env.Type)
	}
}

// ServerMessage is a frame sent to clients.
type ServerMessage interface {
	serverType() string
}

// PlayerJoined announces a new lobby member.
type PlayerJoined struct {
	UserClaims
}

// StatusChanged announces a readiness toggle.
type StatusChanged struct {
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
}

// SetStart opens a set with its upcard.
type SetStart struct {
	Upcard ohhell.Card `json:"upcard"`
}

// PlayerDeck carries one player's private hand. Unicast only.
type PlayerDeck struct {
	Cards []ohhell.Card
}

func (d PlayerDeck) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Cards)
}

func (d *PlayerDeck) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Cards)
}

// PlayerBiddingTurn names the next bidder and their allowed bids.
type PlayerBiddingTurn struct {
	PlayerID     string `json:"player_id"`
	PossibleBids []int  `json:"possible_bids"`
}

// PlayerBidded announces an accepted bid.
type PlayerBidded struct {
	PlayerID string `json:"player_id"`
	Bid      int    `json:"bid"`
}

// PlayerTurn names the next player to act.
type PlayerTurn struct {
	PlayerID string `json:"player_id"`
}

// TurnPlayed carries the trick pile after an accepted play.
type TurnPlayed struct {
	Pile []ohhell.Turn `json:"pile"`
}

// RoundEnded maps players to tricks won so far this set.
type RoundEnded map[string]int

// SetEnded maps players to remaining lifes.
type SetEnded map[string]int

// GameEnded closes the game. Winner is nil when nobody survived.
type GameEnded struct {
	Winner *string        `json:"winner"`
	Lifes  map[string]int `json:"lifes"`
}

// ReconnectInfo restores a reconnecting client.
type ReconnectInfo struct {
	ohhell.GameInfo
}

// Error reports a rejected command to the offending player only.
type Error struct {
	Msg string `json:"msg"`
}

func (PlayerJoined) serverType() string      { return "PlayerJoined" }
func (StatusChanged) serverType() string     { return "PlayerStatusChange" }
func (SetStart) serverType() string          { return "SetStart" }
func (PlayerDeck) serverType() string        { return "PlayerDeck" }
func (PlayerBiddingTurn) serverType() string { return "PlayerBiddingTurn" }
func (PlayerBidded) serverType() string      { return "PlayerBidded" }
func (PlayerTurn) serverType() string        { return "PlayerTurn" }
func (TurnPlayed) serverType() string        { return "TurnPlayed" }
func (RoundEnded) serverType() string        { return "RoundEnded" }
func (SetEnded) serverType() string          { return "SetEnded" }
func (GameEnded) serverType() string         { return "GameEnded" }
func (ReconnectInfo) serverType() string     { return "Reconnect" }
func (Error) serverType() string             { return "Error" }

// EncodeServerMessage wraps msg in its envelope.
func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: msg.serverType(), Data: payload})
}

// DecodeServerMessage parses a server frame.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "PlayerJoined":
		return decodeInto[PlayerJoined](env.Data)
	case "PlayerStatusChange":
		return decodeInto[StatusChanged](env.Data)
	case "SetStart":
		return decodeInto[SetStart](env.Data)
	case "PlayerDeck":
		return decodeInto[PlayerDeck](env.Data)
	case "PlayerBiddingTurn":
		return decodeInto[PlayerBiddingTurn](env.Data)
	case "PlayerBidded":
		return decodeInto[PlayerBidded](env.Data)
	case "PlayerTurn":
		return decodeInto[PlayerTurn](env.Data)
	case "TurnPlayed":
		return decodeInto[TurnPlayed](env.Data)
	case "RoundEnded":
		return decodeInto[RoundEnded](env.Data)
	case "SetEnded":
		return decodeInto[SetEnded](env.Data)
	case "GameEnded":
		return decodeInto[GameEnded](env.Data)
	case "Reconnect":
		return decodeInto[ReconnectInfo](env.Data)
	case "Error":
		return decodeInto[Error](env.Data)
	default:
		return nil, fmt.Errorf("unknown server message type %q", env.Type)
	}
}

func decodeInto[T ServerMessage](data []byte) (ServerMessage, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}
