// Package client is a typed client for the ohhell server: REST calls for
// auth and lobby discovery, and a WebSocket session for gameplay.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/vctt94/ohhell/pkg/ohhell"
	"github.com/vctt94/ohhell/pkg/wire"
)

// Config holds connection parameters.
type Config struct {
	// ServerURL is the HTTP base URL, e.g. http://127.0.0.1:3000.
	ServerURL string
	// Log receives client events; nil disables logging.
	Log slog.Logger
}

// Client talks to one ohhell server.
type Client struct {
	cfg   Config
	log   slog.Logger
	http  *http.Client
	token string

	conn    *websocket.Conn
	writeMu sync.Mutex

	// Messages receives every server message in arrival order once
	// Connect succeeds. It is closed when the connection dies.
	Messages chan wire.ServerMessage
}

// New creates a client.
func New(cfg Config) *Client {
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	return &Client{
		cfg:      cfg,
		log:      log,
		http:     &http.Client{},
		Messages: make(chan wire.ServerMessage, 64),
	}
}

// NewWithToken creates a client reusing an existing identity token, e.g.
// for reconnecting as the same player.
func NewWithToken(cfg Config, token string) *Client {
	c := New(cfg)
	c.token = token
	return c
}

// Token returns the identity token obtained by Login.
func (c *Client) Token() string {
	return c.token
}

type loginParams struct {
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login mints an anonymous identity and keeps its token for later calls.
func (c *Client) Login(ctx context.Context, nickname, picture string) error {
	var resp tokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", loginParams{Nickname: nickname, Picture: picture}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// LobbySummary mirrors the server's lobby listing entry.
type LobbySummary struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"player_count"`
}

// Lobbies lists lobbies still accepting players.
func (c *Client) Lobbies(ctx context.Context) ([]LobbySummary, error) {
	var out []LobbySummary
	if err := c.doJSON(ctx, http.MethodGet, "/lobby", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type createLobbyResponse struct {
	LobbyID string `json:"lobby_id"`
}

// CreateLobby creates the caller's lobby and returns its id.
func (c *Client) CreateLobby(ctx context.Context) (string, error) {
	var resp createLobbyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/lobby", nil, &resp); err != nil {
		return "", err
	}
	return resp.LobbyID, nil
}

// JoinResult mirrors the server's join response.
type JoinResult struct {
	ID              string `json:"id"`
	Players         []struct {
		PlayerID string          `json:"player_id"`
		Ready    bool            `json:"ready"`
		Claims   wire.UserClaims `json:"claims"`
	} `json:"players"`
	ShouldReconnect bool `json:"should_reconnect"`
}

// JoinLobby joins (or rejoins) the given lobby.
func (c *Client) JoinLobby(ctx context.Context, lobbyID string) (*JoinResult, error) {
	var resp JoinResult
	if err := c.doJSON(ctx, http.MethodPut, "/lobby/"+lobbyID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.ServerURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Connect opens the game socket and performs the auth handshake. Incoming
// messages flow into c.Messages until the connection closes.
func (c *Client) Connect(ctx context.Context) error {
	if c.token == "" {
		return fmt.Errorf("login first: no token")
	}

	wsURL := strings.Replace(c.cfg.ServerURL, "http", "ws", 1) + "/game"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %v", wsURL, err)
	}
	c.conn = conn

	if err := c.send(wire.Auth{Token: c.token}); err != nil {
		conn.Close()
		return fmt.Errorf("failed to send auth: %v", err)
	}

	go c.readLoop()
	return nil
}

func (c *Client) readLoop() {
	defer close(c.Messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debugf("read loop ended: %v", err)
			return
		}

		msg, err := wire.DecodeServerMessage(data)
		if err != nil {
			c.log.Warnf("failed to decode server message: %v", err)
			continue
		}
		c.Messages <- msg
	}
}

func (c *Client) send(msg wire.ClientMessage) error {
	data, err := wire.EncodeClientMessage(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// SetReady toggles readiness in the current lobby.
func (c *Client) SetReady(ready bool) error {
	return c.send(wire.PlayerStatusChange{Ready: ready})
}

// PutBid places a bid.
func (c *Client) PutBid(bid int) error {
	return c.send(wire.PutBid{Bid: bid})
}

// PlayTurn plays one card.
func (c *Client) PlayTurn(card ohhell.Card) error {
	return c.send(wire.PlayTurn{Card: card})
}

// RequestReconnect asks for a full game snapshot.
func (c *Client) RequestReconnect() error {
	return c.send(wire.Reconnect{})
}

// Close tears the socket down.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
