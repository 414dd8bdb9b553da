package main

import (
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry holds every active session keyed by session ID. The registry
// lock only guards the index itself; game actions take the individual
// session's lock, so play in one session never blocks another.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*GameSession

	idleTimeout time.Duration
	turnTimeout time.Duration
}

func newRegistry(idleTimeout, turnTimeout time.Duration) *Registry {
	rg := &Registry{
		sessions:    make(map[string]*GameSession),
		idleTimeout: idleTimeout,
		turnTimeout: turnTimeout,
	}
	if idleTimeout > 0 {
		go rg.reaperLoop()
	}
	return rg
}

// Create allocates a waiting session with the creator as first player.
func (rg *Registry) Create(capacity int, creatorName string) (*GameSession, *Player, error) {
	if capacity < 2 || capacity > 4 {
		return nil, nil, ErrInvalidCapacity
	}

	session := newGameSession(rg.newSessionID(), capacity, rg.turnTimeout)
	creator := newPlayer(uuid.NewString(), creatorName)
	if err := session.addPlayer(creator); err != nil {
		return nil, nil, err
	}

	rg.mu.Lock()
	rg.sessions[session.ID] = session
	rg.mu.Unlock()

	log.Info().Str("session", session.ID).Int("capacity", capacity).Msg("GAMES: session created")
	return session, creator, nil
}

// Join admits a new player into a waiting session.
func (rg *Registry) Join(sessionID, name string) (*GameSession, *Player, error) {
	session, err := rg.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}

	player := newPlayer(uuid.NewString(), name)
	if err := session.addPlayer(player); err != nil {
		return nil, nil, err
	}

	log.Info().Str("session", sessionID).Str("player", name).Msg("GAMES: player joined")
	return session, player, nil
}

func (rg *Registry) Get(sessionID string) (*GameSession, error) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	session, ok := rg.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns discovery summaries, ordered by session ID for stable
// output. Summaries come from each session's published mirror, so a
// long-held game lock never stalls discovery.
func (rg *Registry) List() []SessionSummary {
	rg.mu.Lock()
	sessions := make([]*GameSession, 0, len(rg.sessions))
	for _, s := range rg.sessions {
		sessions = append(sessions, s)
	}
	rg.mu.Unlock()

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// newSessionID generates a crypto-random session ID and ensures it
// doesn't collide with existing sessions.
func (rg *Registry) newSessionID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		rg.mu.Lock()
		_, exists := rg.sessions[id]
		rg.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes sessions that have been idle longer
// than idleTimeout. Finished and abandoned games linger for inspection
// until then; reconnecting players find their session intact.
func (rg *Registry) reaperLoop() {
	ticker := time.NewTicker(rg.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-rg.idleTimeout)

		rg.mu.Lock()
		for id, session := range rg.sessions {
			if session.LastActive().Before(cutoff) {
				delete(rg.sessions, id)
				session.Close()
				log.Info().Str("session", id).Msg("GAMES: reaped idle session")
			}
		}
		rg.mu.Unlock()
	}
}
