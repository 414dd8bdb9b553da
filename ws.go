package main

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is the envelope for every client request. Action picks
// the verb; the remaining fields are per-action payload.
type clientMessage struct {
	Action          string `json:"action"`
	SessionID       string `json:"sessionId,omitempty"`
	PlayerID        string `json:"playerId,omitempty"`
	PlayerName      string `json:"playerName,omitempty"`
	NumberOfPlayers int    `json:"numberOfPlayers,omitempty"`
	SalvoID         string `json:"salvoId,omitempty"`
	ShipID          string `json:"shipId,omitempty"`
	TargetPlayerID  string `json:"targetPlayerId,omitempty"`
}

// sessionMessage acknowledges create/join/rejoin with the identifiers
// the client needs for all later requests.
type sessionMessage struct {
	MessageType string `json:"messageType"` // "created", "joined", "rejoined"
	SessionID   string `json:"sessionId"`
	PlayerID    string `json:"playerId"`
}

// stateMessage carries the per-viewer snapshot broadcast after every
// applied action.
type stateMessage struct {
	MessageType string `json:"messageType"` // "state"
	Snapshot
}

// errorMessage goes only to the requester whose action was rejected.
type errorMessage struct {
	MessageType string `json:"messageType"` // "error"
	Action      string `json:"action,omitempty"`
	Error       string `json:"error"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan any

	sessionID string
	playerID  string

	closeOnce sync.Once
}

// close tears the client down exactly once. Only the read pump's detach
// path closes the send channel, so no other goroutine can race a send
// against the close.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// trySend queues msg without ever blocking. A full buffer means the
// write pump stopped draining, so the connection is closed and the read
// pump finishes the teardown.
func (c *wsClient) trySend(msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		_ = c.conn.Close()
		return false
	}
}

// wsServer routes websocket actions into the registry and fans
// snapshots back out to every connection attached to a session.
type wsServer struct {
	registry *Registry

	mu    sync.Mutex
	conns map[string]map[*wsClient]struct{} // sessionID -> attached clients
}

func newWSServer(registry *Registry) *wsServer {
	return &wsServer{
		registry: registry,
		conns:    make(map[string]map[*wsClient]struct{}),
	}
}

func (srv *wsServer) handle() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Msg("SERVE: websocket upgrade failed")
			return
		}

		client := &wsClient{
			conn: conn,
			send: make(chan any, 8),
		}

		go client.writePump()
		srv.readPump(client)
	}
}

func (srv *wsServer) readPump(c *wsClient) {
	defer srv.detach(c)

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		srv.dispatch(c, msg)
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// dispatch applies one client action. Success broadcasts fresh
// snapshots to the whole session; failure answers the requester alone.
func (srv *wsServer) dispatch(c *wsClient, msg clientMessage) {
	switch msg.Action {
	case "createGame":
		session, player, err := srv.registry.Create(msg.NumberOfPlayers, msg.PlayerName)
		if err != nil {
			srv.sendError(c, msg.Action, err)
			return
		}
		srv.attach(c, session, player.ID)
		c.trySend(sessionMessage{MessageType: "created", SessionID: session.ID, PlayerID: player.ID})
		srv.broadcastState(session.ID)

	case "joinGame":
		session, player, err := srv.registry.Join(msg.SessionID, msg.PlayerName)
		if err != nil {
			srv.sendError(c, msg.Action, err)
			return
		}
		srv.attach(c, session, player.ID)
		c.trySend(sessionMessage{MessageType: "joined", SessionID: session.ID, PlayerID: player.ID})
		srv.broadcastState(session.ID)

	case "rejoinGame":
		// Session state survives disconnects; a returning player (or
		// spectator, with an empty playerId) reattaches by session ID.
		session, err := srv.registry.Get(msg.SessionID)
		if err != nil {
			srv.sendError(c, msg.Action, err)
			return
		}
		srv.attach(c, session, msg.PlayerID)
		if c.trySend(sessionMessage{MessageType: "rejoined", SessionID: session.ID, PlayerID: msg.PlayerID}) {
			c.trySend(stateMessage{MessageType: "state", Snapshot: session.SnapshotFor(msg.PlayerID)})
		}

	default:
		srv.gameAction(c, msg)
	}
}

func (srv *wsServer) gameAction(c *wsClient, msg clientMessage) {
	if c.sessionID == "" {
		srv.sendError(c, msg.Action, ErrSessionNotFound)
		return
	}
	session, err := srv.registry.Get(c.sessionID)
	if err != nil {
		srv.sendError(c, msg.Action, err)
		return
	}

	actor := c.playerID

	switch msg.Action {
	case "startGame":
		err = session.Start()
	case "drawSalvo":
		err = session.DrawSalvo(actor)
	case "drawShip":
		err = session.DrawShip(actor)
	case "fireSalvo":
		err = session.FireSalvo(actor, msg.SalvoID, msg.TargetPlayerID, msg.ShipID)
	case "discardSalvo":
		err = session.DiscardSalvo(actor, msg.SalvoID)
	case "deployShip":
		err = session.DeployShip(actor, msg.ShipID)
	default:
		srv.sendError(c, msg.Action, ErrInvalidAction)
		return
	}

	if err != nil {
		srv.sendError(c, msg.Action, err)
		// A fully exhausted draw still changed the turn sub-state, so
		// everyone needs the update despite the notice.
		if errors.Is(err, ErrNoCardsAvailable) {
			srv.broadcastState(session.ID)
		}
		return
	}
	srv.broadcastState(session.ID)
}

func (srv *wsServer) attach(c *wsClient, session *GameSession, playerID string) {
	srv.mu.Lock()
	c.sessionID = session.ID
	c.playerID = playerID
	clients, ok := srv.conns[session.ID]
	if !ok {
		clients = make(map[*wsClient]struct{})
		srv.conns[session.ID] = clients
	}
	clients[c] = struct{}{}
	srv.mu.Unlock()

	// Timer-driven passes also need to reach every participant.
	session.SetNotify(func() {
		srv.broadcastState(session.ID)
	})
}

// detach drops the connection only. The session itself persists until
// the registry reaper collects it, so players can reconnect.
func (srv *wsServer) detach(c *wsClient) {
	srv.mu.Lock()
	if clients, ok := srv.conns[c.sessionID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(srv.conns, c.sessionID)
		}
	}
	srv.mu.Unlock()

	c.close()
}

// broadcastState sends each attached client its own view of the
// session. Slow clients are evicted rather than blocking the rest.
func (srv *wsServer) broadcastState(sessionID string) {
	session, err := srv.registry.Get(sessionID)
	if err != nil {
		return
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	for client := range srv.conns[sessionID] {
		msg := stateMessage{MessageType: "state", Snapshot: session.SnapshotFor(client.playerID)}
		if !client.trySend(msg) {
			delete(srv.conns[sessionID], client)
		}
	}
}

func (srv *wsServer) sendError(c *wsClient, action string, err error) {
	c.trySend(errorMessage{MessageType: "error", Action: action, Error: err.Error()})
}
