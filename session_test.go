package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startedSession returns an in-progress two-player game. Player p1 has
// the first turn.
func startedSession(t *testing.T) (*GameSession, *Player, *Player) {
	t.Helper()

	s := newGameSession("test", 2, 0)
	p1 := newPlayer("p1", "Alice")
	p2 := newPlayer("p2", "Bob")
	require.NoError(t, s.addPlayer(p1))
	require.NoError(t, s.addPlayer(p2))
	require.NoError(t, s.Start())
	return s, p1, p2
}

// rigForFire gives the attacker a known salvo and matching gun, and the
// defender a known target, so combat outcomes are deterministic.
func rigForFire(s *GameSession, attacker, defender *Player, damage, targetHP int) (salvoID, targetID string) {
	attacker.Hand = []SalvoCard{{ID: "salvo-x", GunSize: Caliber14, Damage: damage, FaceUp: true}}
	attacker.PlayedShips = []ShipCard{{ID: "gun-x", GunSize: Caliber14, HitPoints: 5, Name: "Battlecruiser", Type: ShipNormal, FaceUp: true}}
	defender.PlayedShips = []ShipCard{{ID: "target-x", GunSize: Caliber14, HitPoints: targetHP, Name: "Battlecruiser", Type: ShipNormal, FaceUp: true}}
	s.drawnThisTurn = true
	return "salvo-x", "target-x"
}

func countShips(s *GameSession) int {
	n := s.shipDeck.size()
	for _, p := range s.players {
		n += len(p.Ships) + len(p.PlayedShips) + len(p.DeepSixPile)
	}
	return n
}

func countSalvos(s *GameSession) int {
	n := s.playDeck.size() + len(s.discardPile)
	for _, p := range s.players {
		n += len(p.Hand)
	}
	return n
}

func TestStartDealsInitialAllotment(t *testing.T) {
	s, p1, p2 := startedSession(t)

	assert.Equal(t, statusInProgress, s.status)
	assert.Equal(t, p1.ID, s.currentPlayerID)

	for _, p := range []*Player{p1, p2} {
		require.Len(t, p.PlayedShips, 5)
		require.Len(t, p.Hand, 5)
		for _, ship := range p.PlayedShips {
			assert.True(t, ship.FaceUp)
		}
		for _, salvo := range p.Hand {
			assert.True(t, salvo.FaceUp)
		}
	}

	assert.Equal(t, 46, s.shipDeck.size())
	assert.Equal(t, 98, s.playDeck.size())
	assert.Equal(t, 56, countShips(s))
	assert.Equal(t, 108, countSalvos(s))
}

func TestStartRequiresFullLobby(t *testing.T) {
	s := newGameSession("test", 2, 0)
	require.NoError(t, s.addPlayer(newPlayer("p1", "Alice")))

	assert.ErrorIs(t, s.Start(), ErrInsufficientPlayers)
	assert.Equal(t, statusWaiting, s.status)
}

func TestJoinLimits(t *testing.T) {
	s := newGameSession("test", 2, 0)
	require.NoError(t, s.addPlayer(newPlayer("p1", "Alice")))
	require.NoError(t, s.addPlayer(newPlayer("p2", "Bob")))

	assert.ErrorIs(t, s.addPlayer(newPlayer("p3", "Carol")), ErrSessionFull)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.addPlayer(newPlayer("p3", "Carol")), ErrSessionNotJoinable)
}

func TestDrawSalvo(t *testing.T) {
	s, p1, p2 := startedSession(t)

	assert.ErrorIs(t, s.DrawSalvo(p2.ID), ErrNotYourTurn)

	require.NoError(t, s.DrawSalvo(p1.ID))
	assert.Len(t, p1.Hand, 6)
	assert.True(t, p1.Hand[5].FaceUp)
	assert.Equal(t, 97, s.playDeck.size())

	assert.ErrorIs(t, s.DrawSalvo(p1.ID), ErrAlreadyDrawn)
	assert.Len(t, p1.Hand, 6)
}

func TestDrawShipIsFreeAction(t *testing.T) {
	s, p1, _ := startedSession(t)

	require.NoError(t, s.DrawShip(p1.ID))
	assert.Len(t, p1.Ships, 1)
	assert.Equal(t, p1.ID, s.currentPlayerID, "drawing a ship does not end the turn")
	assert.False(t, s.drawnThisTurn, "drawing a ship does not satisfy the draw requirement")

	// An exhausted harbor is a normal late-game state, not an error.
	s.shipDeck.cards = nil
	require.NoError(t, s.DrawShip(p1.ID))
	assert.Len(t, p1.Ships, 1)
}

func TestFireSalvoRequiresDraw(t *testing.T) {
	s, p1, p2 := startedSession(t)
	salvoID, targetID := rigForFire(s, p1, p2, 2, 5)
	s.drawnThisTurn = false

	assert.ErrorIs(t, s.FireSalvo(p1.ID, salvoID, p2.ID, targetID), ErrMustDrawFirst)
	assert.Len(t, p1.Hand, 1, "state unchanged on rejection")
}

func TestFireSalvoDamagesTarget(t *testing.T) {
	s, p1, p2 := startedSession(t)
	salvoID, targetID := rigForFire(s, p1, p2, 2, 5)

	require.NoError(t, s.FireSalvo(p1.ID, salvoID, p2.ID, targetID))

	assert.Empty(t, p1.Hand)
	require.Len(t, s.discardPile, 1)
	assert.Equal(t, salvoID, s.discardPile[0].ID)

	require.Len(t, p2.PlayedShips, 1)
	assert.Equal(t, 3, p2.PlayedShips[0].HitPoints)
	assert.Equal(t, p2.ID, s.currentPlayerID, "turn passes after firing")
	assert.False(t, s.drawnThisTurn)
}

func TestFireSalvoDestroysShip(t *testing.T) {
	s, p1, p2 := startedSession(t)
	// Keep a second defender ship so the game does not end.
	salvoID, targetID := rigForFire(s, p1, p2, 4, 3)
	p2.PlayedShips = append(p2.PlayedShips, ShipCard{ID: "survivor", GunSize: Caliber11, HitPoints: 3, Name: "Light Cruiser", Type: ShipNormal, FaceUp: true})

	require.NoError(t, s.FireSalvo(p1.ID, salvoID, p2.ID, targetID))

	require.Len(t, p1.DeepSixPile, 1)
	sunk := p1.DeepSixPile[0]
	assert.Equal(t, targetID, sunk.ID)
	assert.Equal(t, 0, sunk.HitPoints, "hit points floor at destruction")
	assert.True(t, sunk.FaceUp)

	require.Len(t, p2.PlayedShips, 1)
	assert.Equal(t, "survivor", p2.PlayedShips[0].ID)
	assert.Equal(t, p2.ID, s.currentPlayerID)
}

func TestFireSalvoValidation(t *testing.T) {
	t.Run("card not in hand", func(t *testing.T) {
		s, p1, p2 := startedSession(t)
		_, targetID := rigForFire(s, p1, p2, 2, 5)
		assert.ErrorIs(t, s.FireSalvo(p1.ID, "bogus", p2.ID, targetID), ErrCardNotInHand)
	})

	t.Run("no matching gun", func(t *testing.T) {
		s, p1, p2 := startedSession(t)
		salvoID, targetID := rigForFire(s, p1, p2, 2, 5)
		p1.PlayedShips = []ShipCard{{ID: "gun-x", GunSize: Caliber18, HitPoints: 9, Name: "Super Dreadnought", Type: ShipNormal, FaceUp: true}}
		assert.ErrorIs(t, s.FireSalvo(p1.ID, salvoID, p2.ID, targetID), ErrNoMatchingGun)
		assert.Len(t, p1.Hand, 1)
	})

	t.Run("target not in battle line", func(t *testing.T) {
		s, p1, p2 := startedSession(t)
		salvoID, _ := rigForFire(s, p1, p2, 2, 5)
		assert.ErrorIs(t, s.FireSalvo(p1.ID, salvoID, p2.ID, "bogus"), ErrInvalidTarget)
	})

	t.Run("cannot target own ship", func(t *testing.T) {
		s, p1, p2 := startedSession(t)
		salvoID, _ := rigForFire(s, p1, p2, 2, 5)
		assert.ErrorIs(t, s.FireSalvo(p1.ID, salvoID, p1.ID, "gun-x"), ErrInvalidTarget)
	})

	t.Run("unknown defender", func(t *testing.T) {
		s, p1, p2 := startedSession(t)
		salvoID, targetID := rigForFire(s, p1, p2, 2, 5)
		assert.ErrorIs(t, s.FireSalvo(p1.ID, salvoID, "nobody", targetID), ErrInvalidTarget)
	})
}

func TestCarrierProtection(t *testing.T) {
	s, p1, p2 := startedSession(t)
	salvoID, _ := rigForFire(s, p1, p2, 2, 5)
	carrier := ShipCard{ID: "carrier-x", GunSize: Caliber14, HitPoints: 8, Name: "Aircraft Carrier", Type: ShipCarrier, FaceUp: true}
	escort := ShipCard{ID: "escort-x", GunSize: Caliber14, HitPoints: 5, Name: "Battlecruiser", Type: ShipNormal, FaceUp: true}
	p2.PlayedShips = []ShipCard{carrier, escort}

	err := s.FireSalvo(p1.ID, salvoID, p2.ID, carrier.ID)
	assert.ErrorIs(t, err, ErrCarrierProtected)
	assert.Len(t, p1.Hand, 1, "state unchanged on rejection")
	assert.Equal(t, 8, p2.PlayedShips[0].HitPoints)

	// Once the last escort is gone the carrier is fair game.
	p2.PlayedShips = []ShipCard{carrier}
	require.NoError(t, s.FireSalvo(p1.ID, salvoID, p2.ID, carrier.ID))
	assert.Equal(t, 6, p2.PlayedShips[0].HitPoints)
}

func TestWinDetection(t *testing.T) {
	s, p1, p2 := startedSession(t)
	salvoID, targetID := rigForFire(s, p1, p2, 4, 3)

	require.NoError(t, s.FireSalvo(p1.ID, salvoID, p2.ID, targetID))

	assert.Equal(t, statusFinished, s.status)
	assert.Equal(t, p1.ID, s.winnerID)
	assert.Equal(t, p1.ID, s.currentPlayerID, "rotation halts on game over")
	assert.Empty(t, p2.PlayedShips)

	assert.ErrorIs(t, s.DrawSalvo(p2.ID), ErrGameNotInProgress)
	assert.ErrorIs(t, s.DrawSalvo(p1.ID), ErrGameNotInProgress)
}

func TestDiscardSalvo(t *testing.T) {
	s, p1, p2 := startedSession(t)

	assert.ErrorIs(t, s.DiscardSalvo(p1.ID, p1.Hand[0].ID), ErrMustDrawFirst)

	require.NoError(t, s.DrawSalvo(p1.ID))
	assert.ErrorIs(t, s.DiscardSalvo(p1.ID, "bogus"), ErrCardNotInHand)

	discarded := p1.Hand[0].ID
	require.NoError(t, s.DiscardSalvo(p1.ID, discarded))

	assert.Len(t, p1.Hand, 5)
	require.Len(t, s.discardPile, 1)
	assert.Equal(t, discarded, s.discardPile[0].ID)
	assert.Equal(t, p2.ID, s.currentPlayerID)
	assert.False(t, s.drawnThisTurn)
}

// salvoInstances counts how many copies of one salvo card exist across
// every zone. Any value other than 1 for a live card is a duplication
// or loss bug.
func salvoInstances(s *GameSession, id string) int {
	n := 0
	for _, c := range s.playDeck.cards {
		if c.ID == id {
			n++
		}
	}
	for _, c := range s.discardPile {
		if c.ID == id {
			n++
		}
	}
	for _, p := range s.players {
		for _, c := range p.Hand {
			if c.ID == id {
				n++
			}
		}
	}
	return n
}

func TestDiscardKeepsSingleCardInstance(t *testing.T) {
	s, p1, p2 := startedSession(t)

	require.NoError(t, s.DrawSalvo(p1.ID))
	discarded := p1.Hand[0].ID
	require.NoError(t, s.DiscardSalvo(p1.ID, discarded))

	assert.Equal(t, 1, salvoInstances(s, discarded), "discarded card lives only in the shared pile")

	// Force the whole pile back through a reshuffle and make sure the
	// recovered card still exists exactly once.
	s.discardPile = append(s.discardPile, s.playDeck.cards...)
	s.playDeck.cards = nil
	require.NoError(t, s.DrawSalvo(p2.ID))

	assert.Equal(t, 1, salvoInstances(s, discarded))

	seen := make(map[string]int)
	for _, c := range s.playDeck.cards {
		seen[c.ID]++
	}
	for _, c := range s.discardPile {
		seen[c.ID]++
	}
	for _, p := range s.players {
		for _, c := range p.Hand {
			seen[c.ID]++
		}
	}
	assert.Len(t, seen, 108)
	for id, n := range seen {
		assert.Equal(t, 1, n, "card %s duplicated", id)
	}
}

func TestDeployShipEndsTurnWithoutDraw(t *testing.T) {
	s, p1, p2 := startedSession(t)
	p1.Ships = []ShipCard{{ID: "fresh", GunSize: Caliber15, HitPoints: 6, Name: "Battleship", Type: ShipNormal, FaceUp: true}}

	require.NoError(t, s.DeployShip(p1.ID, "fresh"))

	assert.Empty(t, p1.Ships)
	assert.Len(t, p1.PlayedShips, 6)
	assert.Equal(t, p2.ID, s.currentPlayerID)

	assert.ErrorIs(t, s.DeployShip(p2.ID, "bogus"), ErrCardNotInHand)
}

func TestTurnRotationCyclesJoinOrder(t *testing.T) {
	s := newGameSession("test", 3, 0)
	p1 := newPlayer("p1", "Alice")
	p2 := newPlayer("p2", "Bob")
	p3 := newPlayer("p3", "Carol")
	for _, p := range []*Player{p1, p2, p3} {
		require.NoError(t, s.addPlayer(p))
	}
	require.NoError(t, s.Start())

	want := []string{"p1", "p2", "p3", "p1", "p2"}
	for _, id := range want {
		require.Equal(t, id, s.currentPlayerID)
		p := s.playerByIDLocked(id)
		require.NoError(t, s.DrawSalvo(id))
		require.NoError(t, s.DiscardSalvo(id, p.Hand[0].ID))
	}
}

func TestDrawSalvoReshufflesDiscard(t *testing.T) {
	s, p1, _ := startedSession(t)
	s.playDeck.cards = nil
	s.discardPile = []SalvoCard{
		{ID: "d1", GunSize: Caliber11, Damage: 1, FaceUp: true},
		{ID: "d2", GunSize: Caliber11, Damage: 2, FaceUp: true},
		{ID: "d3", GunSize: Caliber14, Damage: 1, FaceUp: true},
	}

	require.NoError(t, s.DrawSalvo(p1.ID))

	assert.Len(t, p1.Hand, 6)
	assert.Equal(t, 2, s.playDeck.size(), "reshuffled deck minus the drawn card")
	assert.Empty(t, s.discardPile)
	for _, c := range s.playDeck.cards {
		assert.False(t, c.FaceUp, "recovered cards reset face-down")
	}
}

func TestDrawSalvoTotalExhaustion(t *testing.T) {
	s, p1, _ := startedSession(t)
	s.playDeck.cards = nil
	s.discardPile = nil

	err := s.DrawSalvo(p1.ID)
	assert.ErrorIs(t, err, ErrNoCardsAvailable)
	assert.Len(t, p1.Hand, 5, "no card is drawn")
	assert.True(t, s.drawnThisTurn, "an exhausted draw still satisfies the requirement")
}

func TestForceEndTurn(t *testing.T) {
	s, p1, p2 := startedSession(t)
	seq := s.turnSeq

	require.NoError(t, s.ForceEndTurn(p1.ID, seq))
	assert.Equal(t, p2.ID, s.currentPlayerID)

	// A stale timer firing for the previous turn must be a no-op.
	assert.ErrorIs(t, s.ForceEndTurn(p1.ID, seq), ErrNotYourTurn)
	assert.Equal(t, p2.ID, s.currentPlayerID)
}

func TestCardConservation(t *testing.T) {
	s, p1, p2 := startedSession(t)

	require.NoError(t, s.DrawSalvo(p1.ID))
	require.NoError(t, s.DrawShip(p1.ID))
	require.NoError(t, s.DiscardSalvo(p1.ID, p1.Hand[0].ID))
	require.NoError(t, s.DrawSalvo(p2.ID))
	require.NoError(t, s.DiscardSalvo(p2.ID, p2.Hand[0].ID))

	assert.Equal(t, 56, countShips(s))
	assert.Equal(t, 108, countSalvos(s))

	// Destruction moves cards between piles but never deletes them.
	salvoID, targetID := rigForFire(s, p1, p2, 4, 3)
	p2.PlayedShips = append(p2.PlayedShips, ShipCard{ID: "survivor", GunSize: Caliber11, HitPoints: 3, Name: "Light Cruiser", Type: ShipNormal, FaceUp: true})
	shipTotal := countShips(s)
	salvoTotal := countSalvos(s)

	require.NoError(t, s.FireSalvo(p1.ID, salvoID, p2.ID, targetID))

	assert.Equal(t, shipTotal, countShips(s))
	assert.Equal(t, salvoTotal, countSalvos(s))
}

func TestSnapshotFiltersHiddenZones(t *testing.T) {
	s, p1, p2 := startedSession(t)
	require.NoError(t, s.DrawShip(p1.ID))

	snap := s.SnapshotFor(p1.ID)
	require.Len(t, snap.Players, 2)

	var mine, theirs PlayerView
	for _, v := range snap.Players {
		switch v.ID {
		case p1.ID:
			mine = v
		case p2.ID:
			theirs = v
		}
	}

	assert.Len(t, mine.Hand, 5)
	assert.Len(t, mine.Ships, 1)
	assert.Empty(t, theirs.Hand, "opponent hands stay hidden")
	assert.Empty(t, theirs.Ships)
	assert.Equal(t, 5, theirs.HandCount)
	assert.Len(t, theirs.PlayedShips, 5, "battle lines are public")

	assert.Equal(t, s.shipDeck.size(), snap.ShipDeckCount)
	assert.Equal(t, s.playDeck.size(), snap.PlayDeckCount)
	assert.Equal(t, p1.ID, snap.CurrentPlayerID)
	assert.True(t, snap.GameStarted)
}

// End-to-end flow per the intended play loop: create, fill, start,
// draw, fire, and hand the turn over.
func TestFullTurnScenario(t *testing.T) {
	rg := newRegistry(0, 0)

	session, alice, err := rg.Create(2, "Alice")
	require.NoError(t, err)

	_, bob, err := rg.Join(session.ID, "Bob")
	require.NoError(t, err)

	require.NoError(t, session.Start())
	require.Len(t, alice.PlayedShips, 5)
	require.Len(t, bob.Hand, 5)

	require.NoError(t, session.DrawSalvo(alice.ID))

	salvoID, targetID := rigForFire(session, alice, bob, 2, 5)
	bob.PlayedShips = append(bob.PlayedShips, ShipCard{ID: "escort", GunSize: Caliber11, HitPoints: 3, Name: "Light Cruiser", Type: ShipNormal, FaceUp: true})
	require.NoError(t, session.FireSalvo(alice.ID, salvoID, bob.ID, targetID))

	assert.Equal(t, 3, bob.PlayedShips[0].HitPoints)
	assert.Equal(t, bob.ID, session.currentPlayerID)
	assert.Equal(t, statusInProgress, session.status)
}
