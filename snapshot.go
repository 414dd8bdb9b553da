package main

import "slices"

// PlayerView is the broadcast-safe projection of a Player. Hands and
// undeployed ships are private: other viewers only get counts.
type PlayerView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Hand        []SalvoCard `json:"hand,omitempty"`
	Ships       []ShipCard  `json:"ships,omitempty"`
	HandCount   int         `json:"handCount"`
	ShipCount   int         `json:"shipCount"`
	PlayedShips []ShipCard  `json:"playedShips"`
	DeepSixPile []ShipCard  `json:"deepSixPile"`
}

// Snapshot is the full state update broadcast after every applied
// action. It is a derived view computed at serialization time; building
// one never mutates canonical state.
type Snapshot struct {
	SessionID       string        `json:"sessionId"`
	Status          sessionStatus `json:"status"`
	GameStarted     bool          `json:"gameStarted"`
	Capacity        int           `json:"capacity"`
	Players         []PlayerView  `json:"players"`
	CurrentPlayerID string        `json:"currentPlayerId"`
	WinnerID        string        `json:"winnerId,omitempty"`
	ShipDeckCount   int           `json:"shipDeckCount"`
	PlayDeckCount   int           `json:"playDeckCount"`
	DiscardCount    int           `json:"discardCount"`
	DiscardTop      *SalvoCard    `json:"discardTop,omitempty"`
}

// SessionSummary is the discovery listing entry.
type SessionSummary struct {
	ID       string        `json:"id"`
	Joined   int           `json:"joinedCount"`
	Capacity int           `json:"capacity"`
	Status   sessionStatus `json:"status"`
}

// SnapshotFor renders the session as seen by viewerID. Slices are
// cloned so encoding can happen outside the session lock.
func (s *GameSession) SnapshotFor(viewerID string) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID:       s.ID,
		Status:          s.status,
		GameStarted:     s.status == statusInProgress,
		Capacity:        s.capacity,
		Players:         make([]PlayerView, 0, len(s.players)),
		CurrentPlayerID: s.currentPlayerID,
		WinnerID:        s.winnerID,
		ShipDeckCount:   s.shipDeck.size(),
		PlayDeckCount:   s.playDeck.size(),
		DiscardCount:    len(s.discardPile),
	}
	if n := len(s.discardPile); n > 0 {
		top := s.discardPile[n-1]
		snap.DiscardTop = &top
	}

	for _, p := range s.players {
		view := PlayerView{
			ID:          p.ID,
			Name:        p.Name,
			HandCount:   len(p.Hand),
			ShipCount:   len(p.Ships),
			PlayedShips: slices.Clone(p.PlayedShips),
			DeepSixPile: slices.Clone(p.DeepSixPile),
		}
		if p.ID == viewerID {
			view.Hand = slices.Clone(p.Hand)
			view.Ships = slices.Clone(p.Ships)
		}
		snap.Players = append(snap.Players, view)
	}

	return snap
}

// Summary returns the discovery listing entry for this session. It
// reads the published mirror, so it never waits on the game lock.
func (s *GameSession) Summary() SessionSummary {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.info
}
