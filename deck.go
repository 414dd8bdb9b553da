package main

import "math/rand/v2"

// deck is an ordered pile of cards of one kind, drawn from the top.
type deck[C any] struct {
	cards []C
}

func (d *deck[C]) size() int {
	return len(d.cards)
}

// shuffle applies a Fisher-Yates permutation. Every ordering is equally
// likely for an unbiased source, which rand.Rand.IntN guarantees.
func (d *deck[C]) shuffle(r *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// drawTop removes and returns the top card.
func (d *deck[C]) drawTop() (C, error) {
	var zero C
	if len(d.cards) == 0 {
		return zero, ErrEmptyDeck
	}
	top := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return top, nil
}

// reshuffleFrom turns the discard pile into a fresh deck. The discard
// pile is emptied and the recovered cards are shuffled face-down.
func (d *deck[C]) reshuffleFrom(discard *[]C, r *rand.Rand, reset func(*C)) error {
	if len(*discard) == 0 {
		return ErrNoCardsAvailable
	}
	d.cards = append(d.cards, *discard...)
	*discard = nil
	if reset != nil {
		for i := range d.cards {
			reset(&d.cards[i])
		}
	}
	d.shuffle(r)
	return nil
}
