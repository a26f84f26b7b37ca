package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/vctt94/ohhell/pkg/wire"
)

// closeGracePeriod is how long a close frame gets before the connection is
// torn down regardless.
const closeGracePeriod = time.Second

// wsSink adapts a websocket connection to the manager's Sink. Writes are
// serialized with a mutex because gorilla connections allow only one
// concurrent writer.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(msg wire.ServerMessage) error {
	data, err := wire.EncodeServerMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSink) Close(code int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := websocket.FormatCloseMessage(code, reason)
	err := s.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(closeGracePeriod))
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// handleGameSocket upgrades GET /game and runs the per-connection task.
func (s *Server) handleGameSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	s.log.Infof("%s connected", r.RemoteAddr)

	sink := &wsSink{conn: conn}
	claims, err := s.awaitAuth(conn)
	if err != nil {
		s.log.Warnf("%s failed auth: %v", r.RemoteAddr, err)
		sink.Close(CloseCode(err), err.Error())
		return
	}

	s.manager.StorePlayerConnection(claims.ID, sink)
	s.readLoop(conn, sink, claims, s.log)

	s.log.Infof("%s (%s) disconnected", r.RemoteAddr, claims.ID)
}

// awaitAuth reads the connection's first frame, which must be an Auth
// message with a valid token.
func (s *Server) awaitAuth(conn *websocket.Conn) (wire.UserClaims, error) {
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		return wire.UserClaims{}, ErrPlayerDisconnected
	}
	if messageType != websocket.TextMessage {
		return wire.UserClaims{}, ErrInvalidWebsocketMessageType
	}

	msg, err := wire.DecodeClientMessage(data)
	if err != nil {
		return wire.UserClaims{}, fmt.Errorf("%w: %v", ErrUnexpectedJSONMessage, err)
	}

	auth, ok := msg.(wire.Auth)
	if !ok {
		return wire.UserClaims{}, fmt.Errorf("%w: expected auth message", ErrUnexpectedValidMessage)
	}

	return s.auth.Verify(auth.Token)
}

// readLoop routes game frames into the manager until the connection dies
// or a fatal protocol error closes it.
func (s *Server) readLoop(conn *websocket.Conn, sink *wsSink, claims wire.UserClaims, log slog.Logger) {
	playerID := claims.ID

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			// Lobby state is left alone: the slot is reused on
			// reconnect.
			s.manager.RemovePlayerConnection(playerID, sink)
			return
		}

		err = s.processFrame(messageType, data, playerID)
		if err == nil {
			continue
		}

		if recoverable(err) {
			log.Debugf("rejected command from %s: %v", playerID, err)
			s.manager.SendMessage(playerID, wire.Error{Msg: err.Error()})
			continue
		}

		log.Errorf("%s | closing connection of %s", err, playerID)
		s.manager.SendDisconnect(playerID, err)
		return
	}
}

// processFrame decodes and dispatches one client frame.
func (s *Server) processFrame(messageType int, data []byte, playerID string) error {
	if messageType != websocket.TextMessage {
		return ErrInvalidWebsocketMessageType
	}

	msg, err := wire.DecodeClientMessage(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedJSONMessage, err)
	}

	switch m := msg.(type) {
	case wire.PutBid:
		return s.manager.Bid(playerID, m.Bid)
	case wire.PlayTurn:
		return s.manager.PlayTurn(playerID, m.Card)
	case wire.PlayerStatusChange:
		return s.manager.PlayerStatusChange(playerID, m.Ready)
	case wire.Reconnect:
		return s.manager.Reconnect(playerID)
	case wire.Auth:
		return fmt.Errorf("%w: expected game message", ErrUnexpectedValidMessage)
	default:
		return fmt.Errorf("%w: %T", ErrUnexpectedValidMessage, msg)
	}
}
