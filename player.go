package main

// Player holds one participant's cards. Join order is significant: it
// defines the turn rotation for the session.
type Player struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Hand        []SalvoCard `json:"hand,omitempty"`
	Ships       []ShipCard  `json:"ships,omitempty"` // drawn but not yet deployed
	PlayedShips []ShipCard  `json:"playedShips"`     // battle line, targetable
	DeepSixPile []ShipCard  `json:"deepSixPile"`     // destroyed enemy ships, face-up
}

func newPlayer(id, name string) *Player {
	return &Player{
		ID:          id,
		Name:        name,
		Hand:        make([]SalvoCard, 0),
		Ships:       make([]ShipCard, 0),
		PlayedShips: make([]ShipCard, 0),
		DeepSixPile: make([]ShipCard, 0),
	}
}

// handIndex returns the position of the salvo with the given ID, or -1.
func (p *Player) handIndex(salvoID string) int {
	for i := range p.Hand {
		if p.Hand[i].ID == salvoID {
			return i
		}
	}
	return -1
}

// shipIndex returns the position of the undeployed ship with the given
// ID, or -1.
func (p *Player) shipIndex(shipID string) int {
	for i := range p.Ships {
		if p.Ships[i].ID == shipID {
			return i
		}
	}
	return -1
}

// battleLineIndex returns the position of the deployed ship with the
// given ID, or -1.
func (p *Player) battleLineIndex(shipID string) int {
	for i := range p.PlayedShips {
		if p.PlayedShips[i].ID == shipID {
			return i
		}
	}
	return -1
}

// hasGun reports whether any deployed ship carries the given caliber.
func (p *Player) hasGun(caliber Caliber) bool {
	for i := range p.PlayedShips {
		if p.PlayedShips[i].GunSize == caliber {
			return true
		}
	}
	return false
}

// normalShipCount counts deployed non-carrier ships. Carriers are only
// targetable once this reaches zero.
func (p *Player) normalShipCount() int {
	n := 0
	for i := range p.PlayedShips {
		if p.PlayedShips[i].Type == ShipNormal {
			n++
		}
	}
	return n
}
