// Package ui is the terminal client: a thin renderer over the server's
// broadcasts plus a little input handling for bids and card plays.
package ui

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vctt94/ohhell/pkg/client"
	"github.com/vctt94/ohhell/pkg/ohhell"
	"github.com/vctt94/ohhell/pkg/wire"
)

// screenState represents the current screen in the UI.
type screenState int

const (
	stateNickname screenState = iota
	stateLobbyList
	stateLobby
	stateGame
)

// Messages produced by background commands.
type (
	loggedInMsg  struct{}
	lobbiesMsg   []client.LobbySummary
	joinedMsg    *client.JoinResult
	connectedMsg struct{}
	serverMsg    struct{ msg wire.ServerMessage }
	closedMsg    struct{}
	errMsg       struct{ err error }
)

// Model is the terminal client state.
type Model struct {
	ctx context.Context
	c   *client.Client

	state    screenState
	err      error
	message  string
	nickname string
	playerID string

	// Lobby browsing.
	lobbies  []client.LobbySummary
	selected int
	lobbyID  string
	members  []string
	ready    bool

	// Game state, rebuilt from broadcasts.
	hand         []ohhell.Card
	upcard       *ohhell.Card
	pile         []ohhell.Turn
	lifes        map[string]int
	rounds       map[string]int
	bids         map[string]int
	possibleBids []int
	current      string
	bidding      bool
	over         bool
	winner       string
}

// New creates the UI model.
func New(ctx context.Context, c *client.Client, nickname string) Model {
	return Model{
		ctx:      ctx,
		c:        c,
		nickname: nickname,
		lifes:    make(map[string]int),
		rounds:   make(map[string]int),
		bids:     make(map[string]int),
	}
}

func (m Model) Init() tea.Cmd {
	if m.nickname != "" {
		return m.loginCmd()
	}
	return nil
}

func (m Model) loginCmd() tea.Cmd {
	nickname := m.nickname
	return func() tea.Msg {
		if err := m.c.Login(m.ctx, nickname, ""); err != nil {
			return errMsg{err}
		}
		if err := m.c.Connect(m.ctx); err != nil {
			return errMsg{err}
		}
		return loggedInMsg{}
	}
}

func (m Model) lobbiesCmd() tea.Cmd {
	return func() tea.Msg {
		lobbies, err := m.c.Lobbies(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return lobbiesMsg(lobbies)
	}
}

func (m Model) createLobbyCmd() tea.Cmd {
	return func() tea.Msg {
		id, err := m.c.CreateLobby(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		result, err := m.c.JoinLobby(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return joinedMsg(result)
	}
}

func (m Model) joinLobbyCmd(id string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.c.JoinLobby(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return joinedMsg(result)
	}
}

func (m Model) waitForMessage() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.c.Messages
		if !ok {
			return closedMsg{}
		}
		return serverMsg{msg}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case errMsg:
		m.err = msg.err
		return m, nil

	case loggedInMsg:
		m.state = stateLobbyList
		m.err = nil
		return m, tea.Batch(m.lobbiesCmd(), m.waitForMessage())

	case lobbiesMsg:
		m.lobbies = msg
		if m.selected >= len(m.lobbies) {
			m.selected = 0
		}
		return m, nil

	case joinedMsg:
		m.state = stateLobby
		m.lobbyID = msg.ID
		m.members = nil
		for _, p := range msg.Players {
			m.members = append(m.members, p.Claims.Nickname)
			if p.Claims.Nickname == m.nickname {
				m.playerID = p.PlayerID
			}
		}
		if msg.ShouldReconnect {
			m.state = stateGame
			return m, func() tea.Msg {
				if err := m.c.RequestReconnect(); err != nil {
					return errMsg{err}
				}
				return nil
			}
		}
		return m, nil

	case serverMsg:
		m = m.applyServerMessage(msg.msg)
		return m, m.waitForMessage()

	case closedMsg:
		m.err = fmt.Errorf("connection closed by server")
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case stateNickname:
		switch key.Type {
		case tea.KeyEnter:
			if m.nickname != "" {
				return m, m.loginCmd()
			}
		case tea.KeyBackspace:
			if len(m.nickname) > 0 {
				m.nickname = m.nickname[:len(m.nickname)-1]
			}
		case tea.KeyRunes:
			m.nickname += string(key.Runes)
		}
		return m, nil

	case stateLobbyList:
		switch key.String() {
		case "q":
			return m, tea.Quit
		case "r":
			return m, m.lobbiesCmd()
		case "c":
			return m, m.createLobbyCmd()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.lobbies)-1 {
				m.selected++
			}
		case "enter":
			if m.selected < len(m.lobbies) {
				return m, m.joinLobbyCmd(m.lobbies[m.selected].ID)
			}
		}
		return m, nil

	case stateLobby:
		if key.String() == " " {
			m.ready = !m.ready
			ready := m.ready
			return m, func() tea.Msg {
				if err := m.c.SetReady(ready); err != nil {
					return errMsg{err}
				}
				return nil
			}
		}
		return m, nil

	case stateGame:
		return m.handleGameKey(key)
	}

	return m, nil
}

func (m Model) handleGameKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.current != m.playerID {
		return m, nil
	}

	n, err := strconv.Atoi(key.String())
	if err != nil {
		return m, nil
	}

	if m.bidding {
		bid := n
		return m, func() tea.Msg {
			if err := m.c.PutBid(bid); err != nil {
				return errMsg{err}
			}
			return nil
		}
	}

	// Cards are numbered from 1 in the hand rendering.
	if n < 1 || n > len(m.hand) {
		return m, nil
	}
	card := m.hand[n-1]
	return m, func() tea.Msg {
		if err := m.c.PlayTurn(card); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m Model) applyServerMessage(msg wire.ServerMessage) Model {
	m.err = nil

	switch msg := msg.(type) {
	case wire.PlayerJoined:
		m.members = append(m.members, msg.Nickname)
		if msg.Nickname == m.nickname {
			m.playerID = msg.ID
		}
		m.message = fmt.Sprintf("%s joined", msg.Nickname)

	case wire.StatusChanged:
		m.message = fmt.Sprintf("%s ready: %v", msg.PlayerID, msg.Ready)

	case wire.SetStart:
		m.state = stateGame
		upcard := msg.Upcard
		m.upcard = &upcard
		m.pile = nil
		m.bids = make(map[string]int)
		m.rounds = make(map[string]int)
		m.bidding = true
		m.message = "new set"

	case wire.PlayerDeck:
		m.hand = msg.Cards

	case wire.PlayerBiddingTurn:
		m.bidding = true
		m.current = msg.PlayerID
		m.possibleBids = msg.PossibleBids

	case wire.PlayerBidded:
		m.bids[msg.PlayerID] = msg.Bid

	case wire.PlayerTurn:
		m.bidding = false
		m.current = msg.PlayerID

	case wire.TurnPlayed:
		m.pile = msg.Pile
		for _, turn := range msg.Pile {
			if turn.PlayerID == m.playerID {
				m.hand = removeCard(m.hand, turn.Card)
			}
		}

	case wire.RoundEnded:
		m.rounds = msg
		m.pile = nil
		m.message = "trick finished"

	case wire.SetEnded:
		m.lifes = msg
		m.pile = nil
		m.message = "set finished"

	case wire.GameEnded:
		m.over = true
		m.lifes = msg.Lifes
		if msg.Winner != nil {
			m.winner = *msg.Winner
		}

	case wire.ReconnectInfo:
		m.state = stateGame
		m.hand = msg.Deck
		upcard := msg.Upcard
		m.upcard = &upcard
		m.current = msg.CurrentPlayer
		m.lifes = make(map[string]int)
		m.bids = make(map[string]int)
		m.rounds = make(map[string]int)
		for id, p := range msg.Players {
			m.lifes[id] = p.Lifes
			m.rounds[id] = p.RoundsWon
			if p.Bid != nil {
				m.bids[id] = *p.Bid
			}
		}

	case wire.Error:
		m.err = fmt.Errorf("%s", msg.Msg)
	}

	return m
}

func removeCard(hand []ohhell.Card, card ohhell.Card) []ohhell.Card {
	for i, c := range hand {
		if c == card {
			return append(hand[:i], hand[i+1:]...)
		}
	}
	return hand
}

func (m Model) View() string {
	var b strings.Builder

	switch m.state {
	case stateNickname:
		b.WriteString(titleStyle.Render("oh hell"))
		b.WriteString("\n\n  nickname: " + m.nickname + "█\n")
		b.WriteString(helpStyle.Render("  enter to login · ctrl+c to quit"))

	case stateLobbyList:
		b.WriteString(titleStyle.Render("lobbies"))
		b.WriteString("\n\n")
		if len(m.lobbies) == 0 {
			b.WriteString("  no open lobbies\n")
		}
		for i, lobby := range m.lobbies {
			line := fmt.Sprintf("  %s (%d players)", lobby.ID, lobby.PlayerCount)
			if i == m.selected {
				line = selectedStyle.Render("> " + line[2:])
			}
			b.WriteString(line + "\n")
		}
		b.WriteString(helpStyle.Render("  enter join · c create · r refresh · q quit"))

	case stateLobby:
		b.WriteString(titleStyle.Render("lobby " + m.lobbyID))
		b.WriteString("\n\n")
		for _, member := range m.members {
			b.WriteString("  " + member + "\n")
		}
		status := "not ready"
		if m.ready {
			status = "ready"
		}
		b.WriteString(infoStyle.Render("  you are " + status))
		b.WriteString(helpStyle.Render("  space to toggle ready"))

	case stateGame:
		b.WriteString(m.gameView())
	}

	if m.message != "" {
		b.WriteString("\n" + infoStyle.Render("  "+m.message))
	}
	if m.err != nil {
		b.WriteString("\n" + errStyle.Render("  error: "+m.err.Error()))
	}
	return b.String()
}

func (m Model) gameView() string {
	var b strings.Builder

	if m.over {
		b.WriteString(titleStyle.Render("game over"))
		if m.winner != "" {
			b.WriteString("\n\n  winner: " + m.winner + "\n")
		} else {
			b.WriteString("\n\n  nobody survived\n")
		}
		return b.String()
	}

	b.WriteString(titleStyle.Render("oh hell"))
	b.WriteString("\n\n")

	if m.upcard != nil {
		trump := ohhell.NextRank(m.upcard.Rank)
		b.WriteString("  upcard: " + cardStyle.Render(m.upcard.String()))
		b.WriteString("  trump rank: " + string(trump) + "\n\n")
	}

	if len(m.pile) > 0 {
		b.WriteString("  pile:\n")
		for _, turn := range m.pile {
			b.WriteString(fmt.Sprintf("    %s: %s\n", turn.PlayerID, turn.Card))
		}
		b.WriteString("\n")
	}

	b.WriteString("  hand: ")
	trump := ohhell.Rank("")
	if m.upcard != nil {
		trump = ohhell.NextRank(m.upcard.Rank)
	}
	for i, card := range m.hand {
		style := cardStyle
		if card.Rank == trump {
			style = trumpCardStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%d:%s", i+1, card)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.scoreboard())

	if m.current == m.playerID {
		if m.bidding {
			b.WriteString(turnStyle.Render(fmt.Sprintf("  your bid %v", m.possibleBids)))
		} else {
			b.WriteString(turnStyle.Render("  your turn: pick a card by number"))
		}
	} else if m.current != "" {
		b.WriteString(infoStyle.Render("  waiting for " + m.current))
	}

	return b.String()
}

func (m Model) scoreboard() string {
	ids := make([]string, 0, len(m.lifes))
	for id := range m.lifes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		bid := "-"
		if v, ok := m.bids[id]; ok {
			bid = strconv.Itoa(v)
		}
		b.WriteString(fmt.Sprintf("  %s  lifes:%d  bid:%s  tricks:%d\n",
			id, m.lifes[id], bid, m.rounds[id]))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}
