package ohhell

import (
	"math/rand"
	"time"

	"github.com/decred/slog"

	"github.com/vctt94/ohhell/pkg/ordmap"
)

// Player limits. Thirteen players still leaves room for a one-card set plus
// the upcard in a 40-card deck.
const (
	MinPlayers = 2
	MaxPlayers = 13
)

// maxDealable is the deck minus the upcard.
const maxDealable = DeckSize - 1

// Stage is the phase of the current set, recomputed from player state on
// every command.
type Stage int

const (
	// StageBidding lasts until every alive player holds a bid.
	StageBidding Stage = iota
	// StageDealing is the card-playing phase of a set.
	StageDealing
)

// DealingMode is the direction cards_count moves between sets.
type DealingMode int

const (
	Increasing DealingMode = iota
	Decreasing
)

// nextCards computes the dealing mode and hand size for the next set.
func nextCards(mode DealingMode, count, alive int) (DealingMode, int) {
	switch mode {
	case Increasing:
		if count+1 < maxDealable/alive {
			return Increasing, count + 1
		}
		return Decreasing, count - 1
	default:
		if count-1 == 0 {
			return Increasing, count + 1
		}
		return Decreasing, count - 1
	}
}

// Player holds per-game player state. Entries persist after elimination;
// cursors simply stop visiting them.
type Player struct {
	Lifes     int
	Deck      []Card
	Bid       *int
	RoundsWon int
}

// InitialLifes is every player's starting life count.
const InitialLifes = 5

// Alive reports whether the player is still in the game.
func (p *Player) Alive() bool {
	return p.Lifes > 0
}

func (p *Player) holds(card Card) int {
	for i, c := range p.Deck {
		if c == card {
			return i
		}
	}
	return -1
}

// Config holds construction parameters for a game.
type Config struct {
	// Players in seat order. Seat order fixes bidding and dealing order
	// for the whole game.
	Players []string
	// CardsCount is the hand size of the first set. Defaults to 1.
	CardsCount int
	// Rand drives shuffling. Defaults to a time-seeded source.
	Rand *rand.Rand
	// Log receives engine events. Defaults to a disabled logger.
	Log slog.Logger
}

// Game is the per-game state machine. It is synchronous and performs no
// I/O; the lobby manager drives it under its own lock.
type Game struct {
	players *ordmap.Map[*Player]
	order   []string

	pile  turnPile
	plays []Turn

	mode       DealingMode
	cardsCount int
	upcard     Card
	trump      Rank

	bidding *CyclicIterator
	round   *CyclicIterator

	rng *rand.Rand
	log slog.Logger
}

// New creates a game for the given players and deals the first set.
func New(cfg Config) (*Game, error) {
	if len(cfg.Players) < MinPlayers {
		return nil, ErrNotEnoughPlayers
	}
	if len(cfg.Players) > MaxPlayers {
		return nil, ErrTooManyPlayers
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	cardsCount := cfg.CardsCount
	if cardsCount == 0 {
		cardsCount = 1
	}

	players := ordmap.New[*Player]()
	order := make([]string, 0, len(cfg.Players))
	for _, id := range cfg.Players {
		players.Set(id, &Player{Lifes: InitialLifes})
		order = append(order, id)
	}

	g := &Game{
		players:    players,
		order:      order,
		mode:       Increasing,
		cardsCount: cardsCount,
		bidding:    NewCyclicIterator(len(order)),
		round:      NewCyclicIterator(len(order)),
		rng:        rng,
		log:        log,
	}
	g.dealSet()

	return g, nil
}

// dealSet shuffles a fresh deck, deals cardsCount cards to every alive
// player in seat order, turns the upcard and clears bids and trick state.
func (g *Game) dealSet() {
	deck := NewDeck(g.rng)

	for _, id := range g.order {
		p, _ := g.players.Get(id)
		p.Bid = nil
		p.RoundsWon = 0
		if !p.Alive() {
			p.Deck = nil
			continue
		}
		p.Deck = deck.Deal(g.cardsCount)
	}

	upcard, ok := deck.Draw()
	if !ok {
		g.log.Criticalf("deck exhausted dealing %d cards to %d players", g.cardsCount, g.aliveCount())
		panic("ohhell: deck exhausted while dealing a set")
	}
	g.upcard = upcard
	g.trump = NextRank(upcard.Rank)

	g.pile = g.pile[:0]
	g.plays = nil

	g.log.Debugf("dealt set: %d cards each, upcard %s, trump rank %s",
		g.cardsCount, g.upcard, g.trump)
}

// Stage returns Bidding while any alive player has no bid, Dealing
// otherwise.
func (g *Game) Stage() Stage {
	for _, id := range g.order {
		p, _ := g.players.Get(id)
		if p.Alive() && p.Bid == nil {
			return StageBidding
		}
	}
	return StageDealing
}

// CurrentBidder returns the player expected to bid next.
func (g *Game) CurrentBidder() (string, bool) {
	seat, ok := g.bidding.Peek()
	if !ok {
		return "", false
	}
	return g.order[seat], true
}

// CurrentDealer returns the player expected to play the next card.
func (g *Game) CurrentDealer() (string, bool) {
	seat, ok := g.round.Peek()
	if !ok {
		return "", false
	}
	return g.order[seat], true
}

// Upcard returns the card set aside when the current set was dealt.
func (g *Game) Upcard() Card {
	return g.upcard
}

// TrumpRank returns the rank that outranks all others this set.
func (g *Game) TrumpRank() Rank {
	return g.trump
}

// CardsCount returns the hand size of the current set.
func (g *Game) CardsCount() int {
	return g.cardsCount
}

// Players returns the player ids in seat order, eliminated players
// included.
func (g *Game) Players() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Hand returns a copy of the player's remaining cards.
func (g *Game) Hand(playerID string) []Card {
	p, ok := g.players.Get(playerID)
	if !ok {
		return nil
	}
	out := make([]Card, len(p.Deck))
	copy(out, p.Deck)
	return out
}

func (g *Game) aliveCount() int {
	alive := 0
	for _, id := range g.order {
		p, _ := g.players.Get(id)
		if p.Alive() {
			alive++
		}
	}
	return alive
}

func (g *Game) sumBids() int {
	sum := 0
	for _, id := range g.order {
		p, _ := g.players.Get(id)
		if p.Alive() && p.Bid != nil {
			sum += *p.Bid
		}
	}
	return sum
}

// AllowedBids returns the bids the current bidder may place: 0 through
// cardsCount, minus the value that would make the bids sum to cardsCount
// when the current bidder is the lap's last.
func (g *Game) AllowedBids() []int {
	_, hasNext := g.bidding.PeekNext()
	last := !hasNext
	sum := g.sumBids()

	bids := make([]int, 0, g.cardsCount+1)
	for b := 0; b <= g.cardsCount; b++ {
		if last && sum+b == g.cardsCount {
			continue
		}
		bids = append(bids, b)
	}
	return bids
}

// BidResult reports the outcome of an accepted bid.
type BidResult struct {
	// Done is true once every alive player has bid.
	Done bool
	// Next is the next bidder, or the first player to act when Done.
	Next string
	// PossibleBids holds the next bidder's allowed bids when not Done.
	PossibleBids []int
}

// Bid places a bid for playerID. An error return guarantees no state
// change.
func (g *Game) Bid(playerID string, bid int) (*BidResult, error) {
	if g.Stage() == StageDealing {
		return nil, ErrDealingStageActive
	}

	p, ok := g.players.Get(playerID)
	if !ok {
		return nil, ErrInvalidPlayer
	}

	current, ok := g.CurrentBidder()
	if !ok {
		g.log.Criticalf("bidding stage with exhausted bidding cursor")
		panic("ohhell: bidding cursor exhausted during bidding stage")
	}
	if current != playerID {
		return nil, &NotYourTurnError{Expected: current}
	}

	if p.Bid != nil {
		return nil, ErrAlreadyBidded
	}

	if bid < 0 || bid > g.cardsCount {
		return nil, ErrBidOutOfRange
	}
	if _, hasNext := g.bidding.PeekNext(); !hasNext {
		// Last bidder: the bids must not sum to a perfect round.
		if g.sumBids()+bid == g.cardsCount {
			return nil, ErrBidOutOfRange
		}
	}

	b := bid
	p.Bid = &b
	g.bidding.Next()

	g.log.Debugf("player %s bid %d", playerID, bid)

	if next, ok := g.bidding.Peek(); ok {
		return &BidResult{Next: g.order[next], PossibleBids: g.AllowedBids()}, nil
	}

	// Lap complete: rotate the bidding order for the next set and hand
	// over to the round cursor.
	g.bidding.Shift()
	dealer, ok := g.CurrentDealer()
	if !ok {
		g.log.Criticalf("bidding ended with exhausted round cursor")
		panic("ohhell: round cursor exhausted at bidding end")
	}
	return &BidResult{Done: true, Next: dealer}, nil
}

// TurnResultKind classifies what a played card concluded.
type TurnResultKind int

const (
	// KindTurnPlayed means the trick continues.
	KindTurnPlayed TurnResultKind = iota
	// KindRoundEnded means the trick is complete but hands are not empty.
	KindRoundEnded
	// KindSetEnded means all hands emptied and a new set was dealt.
	KindSetEnded
	// KindGameEnded means at most one player survived the set.
	KindGameEnded
)

// TurnResult reports the outcome of an accepted card play.
type TurnResult struct {
	Kind TurnResultKind

	// Pile is the trick so far in play order, including this turn.
	Pile []Turn
	// Next is the player expected to act next: the next dealer for
	// KindTurnPlayed, the trick winner for KindRoundEnded, the first
	// bidder for KindSetEnded. Empty for KindGameEnded.
	Next string

	// Rounds maps player to tricks won this set (KindRoundEnded).
	Rounds map[string]int

	// Lifes maps player to remaining lifes (KindSetEnded, KindGameEnded).
	Lifes map[string]int

	// New-set payload (KindSetEnded).
	Decks        map[string][]Card
	Upcard       Card
	PossibleBids []int

	// Winner is the surviving player, if any (KindGameEnded).
	Winner *string
}

// Play accepts one card from the expected player and classifies the
// resulting transition. An error return guarantees no state change.
func (g *Game) Play(turn Turn) (*TurnResult, error) {
	if g.Stage() == StageBidding {
		return nil, ErrBiddingStageActive
	}

	p, ok := g.players.Get(turn.PlayerID)
	if !ok {
		return nil, ErrInvalidPlayer
	}

	current, ok := g.CurrentDealer()
	if !ok {
		g.log.Criticalf("dealing stage with exhausted round cursor")
		panic("ohhell: round cursor exhausted during dealing stage")
	}
	if current != turn.PlayerID {
		return nil, &NotYourTurnError{Expected: current}
	}

	at := p.holds(turn.Card)
	if at < 0 {
		return nil, ErrNotYourCard
	}

	p.Deck = append(p.Deck[:at], p.Deck[at+1:]...)
	g.plays = append(g.plays, turn)
	g.pile.push(turn.Card.EffectiveValue(g.trump), turn)
	g.round.Next()

	g.log.Debugf("player %s played %s", turn.PlayerID, turn.Card)

	pile := make([]Turn, len(g.plays))
	copy(pile, g.plays)

	switch {
	case g.handsEmpty():
		return g.endSet(pile), nil
	case len(g.plays) == g.aliveCount():
		return g.endTrick(pile), nil
	default:
		next, ok := g.CurrentDealer()
		if !ok {
			g.log.Criticalf("trick still open with exhausted round cursor")
			panic("ohhell: round cursor exhausted mid trick")
		}
		return &TurnResult{Kind: KindTurnPlayed, Pile: pile, Next: next}, nil
	}
}

// handsEmpty reports whether every alive player has played out their hand.
func (g *Game) handsEmpty() bool {
	for _, id := range g.order {
		p, _ := g.players.Get(id)
		if p.Alive() && len(p.Deck) > 0 {
			return false
		}
	}
	return true
}

// awardTrick pops the pile's strongest turn and credits its player.
func (g *Game) awardTrick() string {
	winner := g.pile.pop().turn.PlayerID
	p, _ := g.players.Get(winner)
	p.RoundsWon++
	return winner
}

// endTrick closes a trick mid-set: the winner leads the next one.
func (g *Game) endTrick(pile []Turn) *TurnResult {
	winner := g.awardTrick()

	if !g.round.ShiftTo(g.seatOf(winner)) {
		g.log.Criticalf("trick winner %s not present in round cursor", winner)
		panic("ohhell: trick winner missing from round cursor")
	}

	g.pile = g.pile[:0]
	g.plays = nil

	g.log.Debugf("trick won by %s", winner)

	return &TurnResult{
		Kind:   KindRoundEnded,
		Pile:   pile,
		Next:   winner,
		Rounds: g.rounds(),
	}
}

// endSet settles the final trick, applies life loss, eliminates dead
// players and either finishes the game or deals the next set.
func (g *Game) endSet(pile []Turn) *TurnResult {
	winner := g.awardTrick()
	g.log.Debugf("final trick won by %s", winner)

	for _, id := range g.order {
		p, _ := g.players.Get(id)
		if !p.Alive() {
			continue
		}
		if p.Bid == nil || *p.Bid != p.RoundsWon {
			p.Lifes--
		}
	}

	for seat, id := range g.order {
		p, _ := g.players.Get(id)
		if !p.Alive() {
			// Remove reports false for seats dropped in earlier sets.
			if g.round.Remove(seat) {
				g.bidding.Remove(seat)
				g.log.Infof("player %s eliminated", id)
			}
		}
	}
	g.round.Shift()

	if alive := g.aliveCount(); alive <= 1 {
		var w *string
		for _, id := range g.order {
			p, _ := g.players.Get(id)
			if p.Alive() {
				id := id
				w = &id
				break
			}
		}
		if w != nil {
			g.log.Infof("game ended, winner %s", *w)
		} else {
			g.log.Infof("game ended with no survivors")
		}
		return &TurnResult{Kind: KindGameEnded, Pile: pile, Winner: w, Lifes: g.lifes()}
	}

	g.mode, g.cardsCount = nextCards(g.mode, g.cardsCount, g.aliveCount())
	g.dealSet()

	bidder, ok := g.CurrentBidder()
	if !ok {
		g.log.Criticalf("new set with exhausted bidding cursor")
		panic("ohhell: bidding cursor exhausted at set start")
	}

	return &TurnResult{
		Kind:         KindSetEnded,
		Pile:         pile,
		Next:         bidder,
		Lifes:        g.lifes(),
		Decks:        g.decks(),
		Upcard:       g.upcard,
		PossibleBids: g.AllowedBids(),
	}
}

func (g *Game) seatOf(playerID string) int {
	for seat, id := range g.order {
		if id == playerID {
			return seat
		}
	}
	return -1
}

func (g *Game) rounds() map[string]int {
	out := make(map[string]int)
	for _, id := range g.order {
		p, _ := g.players.Get(id)
		if p.Alive() {
			out[id] = p.RoundsWon
		}
	}
	return out
}

func (g *Game) lifes() map[string]int {
	out := make(map[string]int)
	for _, id := range g.order {
		p, _ := g.players.Get(id)
		out[id] = p.Lifes
	}
	return out
}

func (g *Game) decks() map[string][]Card {
	out := make(map[string][]Card)
	for _, id := range g.order {
		p, _ := g.players.Get(id)
		if p.Alive() {
			deck := make([]Card, len(p.Deck))
			copy(deck, p.Deck)
			out[id] = deck
		}
	}
	return out
}

// PlayerInfo is per-player public state for snapshots.
type PlayerInfo struct {
	Lifes     int  `json:"lifes"`
	Bid       *int `json:"bid"`
	RoundsWon int  `json:"rounds_won"`
}

// GameInfo restores a reconnecting client without replaying history.
type GameInfo struct {
	Deck          []Card                `json:"deck"`
	Upcard        Card                  `json:"upcard"`
	CurrentPlayer string                `json:"current_player"`
	Players       map[string]PlayerInfo `json:"players"`
}

// Info builds a reconnect snapshot for playerID.
func (g *Game) Info(playerID string) (*GameInfo, error) {
	p, ok := g.players.Get(playerID)
	if !ok {
		return nil, ErrInvalidPlayer
	}

	var current string
	if g.Stage() == StageBidding {
		current, _ = g.CurrentBidder()
	} else {
		current, _ = g.CurrentDealer()
	}

	deck := make([]Card, len(p.Deck))
	copy(deck, p.Deck)

	players := make(map[string]PlayerInfo)
	for _, id := range g.order {
		other, _ := g.players.Get(id)
		players[id] = PlayerInfo{Lifes: other.Lifes, Bid: other.Bid, RoundsWon: other.RoundsWon}
	}

	return &GameInfo{
		Deck:          deck,
		Upcard:        g.upcard,
		CurrentPlayer: current,
		Players:       players,
	}, nil
}
