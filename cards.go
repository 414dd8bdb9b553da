package main

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// Caliber is a gun size in inches. Salvos only damage ships of the
// same caliber.
type Caliber float64

const (
	Caliber11  Caliber = 11
	Caliber126 Caliber = 12.6
	Caliber14  Caliber = 14
	Caliber15  Caliber = 15
	Caliber16  Caliber = 16
	Caliber18  Caliber = 18
)

type ShipType string

const (
	ShipNormal  ShipType = "normal"
	ShipCarrier ShipType = "carrier"
)

// ShipCard is a deployable warship. Cards carry a server-assigned ID so
// clients can reference them unambiguously; identical hulls are common.
type ShipCard struct {
	ID        string   `json:"id"`
	GunSize   Caliber  `json:"gunSize"`
	HitPoints int      `json:"hitPoints"`
	Name      string   `json:"name"`
	Type      ShipType `json:"type"`
	FaceUp    bool     `json:"faceUp"`
}

// SalvoCard is a single volley. Damage is rolled once, at deck build time.
type SalvoCard struct {
	ID      string  `json:"id"`
	GunSize Caliber `json:"gunSize"`
	Damage  int     `json:"damage"`
	FaceUp  bool    `json:"faceUp"`
}

// Fixed game-balance tables. Ship deck totals 56 cards, salvo deck 108.
var shipClasses = []struct {
	count     int
	gunSize   Caliber
	hitPoints int
	name      string
	shipType  ShipType
}{
	{2, Caliber14, 8, "Aircraft Carrier", ShipCarrier},
	{10, Caliber11, 3, "Light Cruiser", ShipNormal},
	{10, Caliber126, 4, "Heavy Cruiser", ShipNormal},
	{12, Caliber14, 5, "Battlecruiser", ShipNormal},
	{8, Caliber15, 6, "Battleship", ShipNormal},
	{8, Caliber16, 7, "Super Battleship", ShipNormal},
	{6, Caliber18, 9, "Super Dreadnought", ShipNormal},
}

var salvoClasses = []struct {
	count     int
	gunSize   Caliber
	minDamage int
	maxDamage int
}{
	{24, Caliber11, 1, 2},
	{20, Caliber126, 1, 2},
	{24, Caliber14, 1, 3},
	{16, Caliber15, 2, 4},
	{16, Caliber16, 2, 4},
	{8, Caliber18, 3, 4},
}

// buildShipDeck returns a complete, shuffled ship deck ("harbor").
func buildShipDeck(r *rand.Rand) deck[ShipCard] {
	cards := make([]ShipCard, 0, 56)
	for _, class := range shipClasses {
		for i := 0; i < class.count; i++ {
			cards = append(cards, ShipCard{
				ID:        uuid.NewString(),
				GunSize:   class.gunSize,
				HitPoints: class.hitPoints,
				Name:      class.name,
				Type:      class.shipType,
			})
		}
	}
	d := deck[ShipCard]{cards: cards}
	d.shuffle(r)
	return d
}

// buildSalvoDeck returns a complete, shuffled salvo deck. Each card's
// damage is rolled uniformly within its caliber's range.
func buildSalvoDeck(r *rand.Rand) deck[SalvoCard] {
	cards := make([]SalvoCard, 0, 108)
	for _, class := range salvoClasses {
		for i := 0; i < class.count; i++ {
			cards = append(cards, SalvoCard{
				ID:      uuid.NewString(),
				GunSize: class.gunSize,
				Damage:  class.minDamage + r.IntN(class.maxDamage-class.minDamage+1),
			})
		}
	}
	d := deck[SalvoCard]{cards: cards}
	d.shuffle(r)
	return d
}
