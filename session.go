package main

import (
	"math/rand/v2"
	"sync"
	"time"
)

type sessionStatus string

const (
	statusWaiting    sessionStatus = "waiting"
	statusInProgress sessionStatus = "in_progress"
	statusFinished   sessionStatus = "finished"
)

const (
	initialShips  = 5
	initialSalvos = 5
)

// GameSession is the authoritative state of one game. All actions are
// serialized through mu, so each one either applies completely or
// rejects with a named error leaving the state untouched.
type GameSession struct {
	ID string

	mu          sync.RWMutex
	capacity    int
	status      sessionStatus
	players     []*Player
	shipDeck    deck[ShipCard]
	playDeck    deck[SalvoCard]
	discardPile []SalvoCard

	currentPlayerID string
	drawnThisTurn   bool
	winnerID        string

	// turnSeq increments on every turn change so a stale timer cannot
	// force-end a turn that already ended.
	turnSeq     int
	turnTimeout time.Duration
	turnTimer   *time.Timer
	notify      func() // transport hook, invoked after a timer-driven pass

	rng       *rand.Rand
	createdAt time.Time

	// info mirrors the registry-visible summary and activity time so
	// discovery and the idle reaper never contend with the game lock.
	infoMu     sync.Mutex
	info       SessionSummary
	lastActive time.Time
}

func newGameSession(id string, capacity int, turnTimeout time.Duration) *GameSession {
	now := time.Now()
	return &GameSession{
		ID:          id,
		capacity:    capacity,
		status:      statusWaiting,
		players:     make([]*Player, 0, capacity),
		turnTimeout: turnTimeout,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		createdAt:   now,
		info:        SessionSummary{ID: id, Capacity: capacity, Status: statusWaiting},
		lastActive:  now,
	}
}

// SetNotify installs the broadcast hook used when a turn timer expires.
func (s *GameSession) SetNotify(fn func()) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// publishInfoLocked refreshes the mirror after a state change. Callers
// hold the game lock; readers only ever take infoMu.
func (s *GameSession) publishInfoLocked() {
	s.infoMu.Lock()
	s.info = SessionSummary{
		ID:       s.ID,
		Joined:   len(s.players),
		Capacity: s.capacity,
		Status:   s.status,
	}
	s.lastActive = time.Now()
	s.infoMu.Unlock()
}

// LastActive is read by the registry's idle reaper.
func (s *GameSession) LastActive() time.Time {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.lastActive
}

// addPlayer admits a new participant while the session is still waiting.
func (s *GameSession) addPlayer(p *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != statusWaiting {
		return ErrSessionNotJoinable
	}
	if len(s.players) >= s.capacity {
		return ErrSessionFull
	}

	s.players = append(s.players, p)
	s.publishInfoLocked()
	return nil
}

// Start builds and shuffles both decks, deals the opening hands and
// battle lines, and hands the first turn to the creator.
//
// Cards are dealt round-robin one at a time rather than a full allotment
// per player, so the deal order matches the shuffle.
func (s *GameSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == statusInProgress || s.status == statusFinished {
		return ErrSessionNotJoinable
	}
	if len(s.players) < s.capacity {
		return ErrInsufficientPlayers
	}

	s.shipDeck = buildShipDeck(s.rng)
	s.playDeck = buildSalvoDeck(s.rng)
	s.discardPile = make([]SalvoCard, 0)

	for i := 0; i < initialShips; i++ {
		for _, p := range s.players {
			ship, err := s.shipDeck.drawTop()
			if err != nil {
				break
			}
			ship.FaceUp = true
			p.PlayedShips = append(p.PlayedShips, ship)
		}
	}
	for i := 0; i < initialSalvos; i++ {
		for _, p := range s.players {
			salvo, err := s.playDeck.drawTop()
			if err != nil {
				break
			}
			salvo.FaceUp = true
			p.Hand = append(p.Hand, salvo)
		}
	}

	s.currentPlayerID = s.players[0].ID
	s.drawnThisTurn = false
	s.status = statusInProgress
	s.publishInfoLocked()
	s.scheduleTurnTimerLocked()
	return nil
}

// DrawSalvo draws the top play-deck card into the actor's hand and
// satisfies the turn's draw requirement. An exhausted play deck is
// rebuilt from the discard pile first.
//
// When both are empty the draw is a no-op notice: the requirement is
// still considered satisfied so the turn cannot deadlock, and
// ErrNoCardsAvailable is reported to the actor.
func (s *GameSession) DrawSalvo(actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTurnLocked(actorID); err != nil {
		return err
	}
	if s.drawnThisTurn {
		return ErrAlreadyDrawn
	}

	if s.playDeck.size() == 0 {
		err := s.playDeck.reshuffleFrom(&s.discardPile, s.rng, func(c *SalvoCard) {
			c.FaceUp = false
		})
		if err != nil {
			s.drawnThisTurn = true
			s.publishInfoLocked()
			return ErrNoCardsAvailable
		}
	}

	salvo, err := s.playDeck.drawTop()
	if err != nil {
		return ErrNoCardsAvailable
	}
	salvo.FaceUp = true

	actor := s.playerByIDLocked(actorID)
	actor.Hand = append(actor.Hand, salvo)
	s.drawnThisTurn = true
	s.publishInfoLocked()
	return nil
}

// DrawShip moves the top harbor card into the actor's undeployed
// holding. It is a free action: it neither ends the turn nor satisfies
// the draw requirement, and an exhausted harbor is a normal late-game
// state rather than an error.
func (s *GameSession) DrawShip(actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTurnLocked(actorID); err != nil {
		return err
	}

	ship, err := s.shipDeck.drawTop()
	if err != nil {
		return nil
	}
	ship.FaceUp = true

	actor := s.playerByIDLocked(actorID)
	actor.Ships = append(actor.Ships, ship)
	s.publishInfoLocked()
	return nil
}

// FireSalvo resolves an attack: the salvo leaves the actor's hand for
// the discard pile and the target ship takes its damage. A destroyed
// ship moves face-up to the attacker's deep-six pile; emptying the
// defender's battle line ends the game with the actor as winner.
func (s *GameSession) FireSalvo(actorID, salvoID, targetPlayerID, targetShipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTurnLocked(actorID); err != nil {
		return err
	}
	if !s.drawnThisTurn {
		return ErrMustDrawFirst
	}

	actor := s.playerByIDLocked(actorID)
	handIdx := actor.handIndex(salvoID)
	if handIdx < 0 {
		return ErrCardNotInHand
	}
	salvo := actor.Hand[handIdx]

	if !actor.hasGun(salvo.GunSize) {
		return ErrNoMatchingGun
	}

	defender := s.playerByIDLocked(targetPlayerID)
	if defender == nil || defender.ID == actorID {
		return ErrInvalidTarget
	}
	lineIdx := defender.battleLineIndex(targetShipID)
	if lineIdx < 0 {
		return ErrInvalidTarget
	}
	target := defender.PlayedShips[lineIdx]

	if target.Type == ShipCarrier && defender.normalShipCount() > 0 {
		return ErrCarrierProtected
	}

	// All preconditions hold; apply the action.
	actor.Hand = append(actor.Hand[:handIdx], actor.Hand[handIdx+1:]...)
	salvo.FaceUp = true
	s.discardPile = append(s.discardPile, salvo)

	target.HitPoints -= salvo.Damage
	if target.HitPoints <= 0 {
		target.HitPoints = 0
		target.FaceUp = true
		defender.PlayedShips = append(defender.PlayedShips[:lineIdx], defender.PlayedShips[lineIdx+1:]...)
		actor.DeepSixPile = append(actor.DeepSixPile, target)
	} else {
		defender.PlayedShips[lineIdx] = target
	}

	s.publishInfoLocked()

	if len(defender.PlayedShips) == 0 {
		s.finishLocked(actorID)
		return nil
	}

	s.advanceTurnLocked()
	return nil
}

// DiscardSalvo passes the turn, moving one hand card to the shared
// discard pile. The pile is the card's only location afterwards, so a
// later reshuffle can return it to circulation cleanly.
func (s *GameSession) DiscardSalvo(actorID, salvoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTurnLocked(actorID); err != nil {
		return err
	}
	if !s.drawnThisTurn {
		return ErrMustDrawFirst
	}

	actor := s.playerByIDLocked(actorID)
	handIdx := actor.handIndex(salvoID)
	if handIdx < 0 {
		return ErrCardNotInHand
	}

	salvo := actor.Hand[handIdx]
	salvo.FaceUp = true
	actor.Hand = append(actor.Hand[:handIdx], actor.Hand[handIdx+1:]...)
	s.discardPile = append(s.discardPile, salvo)

	s.publishInfoLocked()
	s.advanceTurnLocked()
	return nil
}

// DeployShip moves a drawn ship into the battle line. Deployment is a
// full turn on its own: it ends the turn and needs no prior draw.
func (s *GameSession) DeployShip(actorID, shipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTurnLocked(actorID); err != nil {
		return err
	}

	actor := s.playerByIDLocked(actorID)
	idx := actor.shipIndex(shipID)
	if idx < 0 {
		return ErrCardNotInHand
	}

	ship := actor.Ships[idx]
	ship.FaceUp = true
	actor.Ships = append(actor.Ships[:idx], actor.Ships[idx+1:]...)
	actor.PlayedShips = append(actor.PlayedShips, ship)

	s.publishInfoLocked()
	s.advanceTurnLocked()
	return nil
}

// ForceEndTurn passes the current player's turn without removing a
// card. It is driven by the turn timer, never by clients; seq guards
// against a timer that fired after the turn already changed.
func (s *GameSession) ForceEndTurn(playerID string, seq int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != statusInProgress {
		return ErrGameNotInProgress
	}
	if s.currentPlayerID != playerID || s.turnSeq != seq {
		return ErrNotYourTurn
	}

	s.publishInfoLocked()
	s.advanceTurnLocked()
	return nil
}

func (s *GameSession) checkTurnLocked(actorID string) error {
	if s.status != statusInProgress {
		return ErrGameNotInProgress
	}
	if s.currentPlayerID != actorID {
		return ErrNotYourTurn
	}
	return nil
}

func (s *GameSession) playerByIDLocked(id string) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// advanceTurnLocked rotates to the next player in join order, wrapping
// after the last. Rotation is computed by id lookup so it stays correct
// even if the player slice is ever reordered for display.
func (s *GameSession) advanceTurnLocked() {
	cur := 0
	for i, p := range s.players {
		if p.ID == s.currentPlayerID {
			cur = i
			break
		}
	}
	s.currentPlayerID = s.players[(cur+1)%len(s.players)].ID
	s.drawnThisTurn = false
	s.turnSeq++
	s.scheduleTurnTimerLocked()
}

func (s *GameSession) finishLocked(winnerID string) {
	s.status = statusFinished
	s.winnerID = winnerID
	s.turnSeq++
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
	s.publishInfoLocked()
}

func (s *GameSession) scheduleTurnTimerLocked() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
	if s.turnTimeout <= 0 || s.status != statusInProgress {
		return
	}

	playerID := s.currentPlayerID
	seq := s.turnSeq
	s.turnTimer = time.AfterFunc(s.turnTimeout, func() {
		if err := s.ForceEndTurn(playerID, seq); err != nil {
			return
		}
		s.mu.RLock()
		notify := s.notify
		s.mu.RUnlock()
		if notify != nil {
			notify()
		}
	})
}

// Close stops the session's timer. Used by the registry reaper.
func (s *GameSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
}
