package main

import "errors"

// Session errors are reported to the requester; no state is mutated.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionFull         = errors.New("session is full")
	ErrSessionNotJoinable  = errors.New("session is no longer accepting players")
	ErrInsufficientPlayers = errors.New("waiting for all players to join")
	ErrInvalidCapacity     = errors.New("player count must be between 2 and 4")
)

// Validation errors reject a single action, leaving the session untouched.
var (
	ErrGameNotInProgress = errors.New("game is not in progress")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrMustDrawFirst     = errors.New("you must draw a salvo card first")
	ErrAlreadyDrawn      = errors.New("you have already drawn this turn")
	ErrCardNotInHand     = errors.New("card is not in your hand")
	ErrNoMatchingGun     = errors.New("no deployed ship matches that salvo's gun size")
	ErrInvalidTarget     = errors.New("target ship is not in the defender's battle line")
	ErrCarrierProtected  = errors.New("carriers cannot be targeted while normal ships remain")
	ErrInvalidAction     = errors.New("invalid action")
)

// Resource errors. ErrEmptyDeck is handled internally by reshuffling;
// ErrNoCardsAvailable surfaces to the actor as a no-op notice.
var (
	ErrEmptyDeck        = errors.New("deck is empty")
	ErrNoCardsAvailable = errors.New("no cards available to draw")
)
