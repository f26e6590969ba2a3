// Package broker implements the Broker: the single authoritative owner
// of every lobby and every attached client. It owns the router socket
// (internal/router), the bus subscription, and the lobby table, and is
// itself a single goroutine -- every mutation of its tables happens on
// that goroutine, reached only through its inbox channel.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"dustforce-relay/internal/bus"
	"dustforce-relay/internal/config"
	"dustforce-relay/internal/module/event"
	"dustforce-relay/internal/module/level"
	"dustforce-relay/internal/module/lobby"
	"dustforce-relay/internal/router"
	"dustforce-relay/internal/shared/logger"
)

// clientInfo is the Broker's private record of one attached client: the
// Broker holds lobby_id on the client and looks up the Lobby in its own
// table, avoiding any bidirectional client<->lobby pointer.
type clientInfo struct {
	lobbyID int
	userID  int
	hasUser bool
}

// HistoryRecorder is the Match History component's write side.
type HistoryRecorder interface {
	RecordMatch(ctx context.Context, result lobby.MatchResult)
}

// Broker is the single owner of the lobby table and the client registry.
type Broker struct {
	ctx     context.Context
	cfg     config.LobbyConfig
	levels  lobby.LevelResolver
	users   lobby.UserResolver
	logger  *logger.Logger
	history HistoryRecorder

	router *router.Registry

	inbox chan func(*Broker)

	lobbies     map[int]*lobby.Handle
	lobbyOrder  []int // creation order, so events reach lobbies oldest-first
	clients     map[string]*clientInfo
	nextLobbyID int

	// maxLevelID is written only from the Broker's own goroutine but read
	// from every lobby runner goroutine via Deps.MaxLevelID, so it's kept
	// atomic rather than behind the single-owner inbox.
	maxLevelID atomic.Int64
}

// rotatingLobbyID is the reserved id of the single auto-rotating lobby.
// Ordinary create_lobby requests are assigned ids starting at 0, so the
// rotating lobby is parked at a negative id that can never collide.
const rotatingLobbyID = -1

// New creates a Broker. Run must be called to start processing.
func New(ctx context.Context, cfg config.LobbyConfig, levels lobby.LevelResolver, users lobby.UserResolver, history HistoryRecorder, l *logger.Logger) *Broker {
	return &Broker{
		ctx:     ctx,
		cfg:     cfg,
		levels:  levels,
		users:   users,
		logger:  l,
		history: history,
		router:  router.NewRegistry(),
		inbox:   make(chan func(*Broker), 256),
		lobbies: make(map[int]*lobby.Handle),
		clients: make(map[string]*clientInfo),
	}
}

// StartRotatingLobby spawns the one auto-rotating lobby and registers
// it under the reserved id. It is a no-op if the rotating lobby is
// already running.
func (b *Broker) StartRotatingLobby() {
	b.submit(func(br *Broker) {
		if _, exists := br.lobbies[rotatingLobbyID]; exists {
			return
		}
		br.registerLobby(rotatingLobbyID, br.spawnLobby(rotatingLobbyID, lobby.KindRotating))
	})
}

// Router exposes the router registry so the Gateway can register and
// unregister per-connection outbound channels.
func (b *Broker) Router() *router.Registry {
	return b.router
}

// Run processes the Broker's inbox until ctx is cancelled. It must run
// on its own goroutine; every table mutation happens here.
func (b *Broker) Run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case fn := <-b.inbox:
			fn(b)
		}
	}
}

// ConsumeBus subscribes to the event bus and feeds every record into the
// Broker's single goroutine, advancing max_level_id and dispatching to
// every live lobby.
func (b *Broker) ConsumeBus(sub bus.Subscriber) error {
	ch, err := sub.Subscribe(b.ctx)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-b.ctx.Done():
				return
			case record, ok := <-ch:
				if !ok {
					return
				}
				b.submit(func(br *Broker) { br.dispatchEvent(record) })
			}
		}
	}()
	return nil
}

// submit enqueues fn to run on the Broker's own goroutine, silently
// dropping it if ctx is already done.
func (b *Broker) submit(fn func(*Broker)) {
	select {
	case b.inbox <- fn:
	case <-b.ctx.Done():
	}
}

func (b *Broker) dispatchEvent(record []byte) {
	e, err := event.Parse(record)
	if err != nil {
		b.logger.Warnf(b.ctx, "broker dropped unparseable event: %v", err)
		return
	}

	if e.Level != "" {
		if lvl := level.New(e.Level); lvl.ID != nil && int64(*lvl.ID) > b.maxLevelID.Load() {
			b.maxLevelID.Store(int64(*lvl.ID))
		}
	}

	for _, id := range b.lobbyOrder {
		handle, ok := b.lobbies[id]
		if !ok {
			continue
		}
		// Non-blocking: one lobby with a backed-up inbox must not delay
		// delivery to the lobbies behind it.
		if !handle.TrySend(lobby.Message{Type: lobby.MsgEvent, Event: e}) {
			b.logger.Warnf(b.ctx, "dropping event for lobby %d: inbox full or lobby closed", id)
		}
	}
}

// HandleClientFrame dispatches one inbound client->broker frame. It is
// safe to call from any goroutine (the Gateway): the actual table
// mutation is scheduled onto the Broker's own goroutine.
func (b *Broker) HandleClientFrame(identity string, payload []byte) {
	msg, err := decodeInbound(payload)
	if err != nil {
		b.logger.Warnf(b.ctx, "dropping malformed client message from %s: %v", identity, err)
		return
	}

	b.submit(func(br *Broker) { br.handle(identity, msg) })
}

func (b *Broker) handle(identity string, msg inbound) {
	switch msg.Type {
	case typeCreateLobby:
		b.onCreateLobby(identity)
	case typeStartRound:
		b.onStartRound(identity, msg)
	case typeJoin:
		b.onJoin(identity, msg)
	case typeLeave:
		b.onLeave(identity)
	case typeLogin:
		b.onLogin(identity, msg)
	case typeLogout:
		b.onLogout(identity)
	case typePing:
		b.router.Send(identity, mustMarshal(pongMessage{Type: typePong}))
	default:
		b.logger.Warnf(b.ctx, "dropping unknown message type %q from %s", msg.Type, identity)
	}
}

func (b *Broker) onCreateLobby(identity string) {
	if len(b.lobbies) >= b.cfg.MaxLobbyCount {
		b.router.Send(identity, mustMarshal(errorMessage{Type: typeError, Message: "lobby capacity reached"}))
		return
	}

	id := b.nextLobbyID
	b.nextLobbyID++

	handle := b.spawnLobby(id, lobby.KindElimination)
	b.registerLobby(id, handle)

	b.router.Send(identity, mustMarshal(createdLobbyMessage{
		Type:     typeCreatedLobby,
		LobbyID:  id,
		Password: handle.Password,
	}))
}

// registerLobby records a freshly-spawned lobby in the table and the
// dispatch order. Must run on the Broker's own goroutine.
func (b *Broker) registerLobby(id int, handle *lobby.Handle) {
	b.lobbies[id] = handle
	b.lobbyOrder = append(b.lobbyOrder, id)
}

// removeLobby drops a terminated lobby from the table and the dispatch
// order. Must run on the Broker's own goroutine.
func (b *Broker) removeLobby(id int) {
	delete(b.lobbies, id)
	for i, existing := range b.lobbyOrder {
		if existing == id {
			b.lobbyOrder = append(b.lobbyOrder[:i], b.lobbyOrder[i+1:]...)
			break
		}
	}
}

// spawnLobby starts a new lobby runner wired to this Broker's router,
// bus-derived max_level_id, and Match History callback. Must run on the
// Broker's own goroutine.
func (b *Broker) spawnLobby(id int, kind lobby.Kind) *lobby.Handle {
	return lobby.Spawn(b.ctx, b.cfg, id, kind, lobby.Deps{
		Levels: b.levels,
		Users:  b.users,
		Logger: b.logger,
		Broadcast: func(lobbyID int, identities []string, snap lobby.Snapshot) {
			b.router.Broadcast(identities, mustMarshal(snap))
		},
		OnClose: func(lobbyID int) {
			b.submit(func(br *Broker) { br.removeLobby(lobbyID) })
		},
		OnGameOver: func(result lobby.MatchResult) {
			if b.history != nil {
				// Off the lobby runner's goroutine: recording a match hits
				// Postgres and must not stall event handling.
				go b.history.RecordMatch(b.ctx, result)
			}
		},
		MaxLevelID: func() int { return int(b.maxLevelID.Load()) },
	})
}

// createLobbyResult is the synchronous reply CreateLobby waits for.
type createLobbyResult struct {
	id       int
	password string
	err      error
}

// CreateLobby is the Admin API's direct (non-WebSocket) path to
// create_lobby: unlike a player's create_lobby frame, the HTTP handler
// needs the allocated id and password back synchronously to build its
// redirect.
func (b *Broker) CreateLobby(ctx context.Context) (int, string, error) {
	reply := make(chan createLobbyResult, 1)

	b.submit(func(br *Broker) {
		if len(br.lobbies) >= br.cfg.MaxLobbyCount {
			reply <- createLobbyResult{err: fmt.Errorf("lobby capacity reached")}
			return
		}
		id := br.nextLobbyID
		br.nextLobbyID++
		handle := br.spawnLobby(id, lobby.KindElimination)
		br.registerLobby(id, handle)
		reply <- createLobbyResult{id: id, password: handle.Password}
	})

	select {
	case res := <-reply:
		return res.id, res.password, res.err
	case <-ctx.Done():
		return 0, "", ctx.Err()
	}
}

// StartRound is the Admin API's direct path to start_round, returning
// the lobby's accept/reject Outcome synchronously so the HTTP handler
// can surface an error.
func (b *Broker) StartRound(ctx context.Context, lobbyID int, params lobby.StartRoundParams) error {
	reply := make(chan lobby.Outcome, 1)

	b.submit(func(br *Broker) {
		handle, ok := br.lobbies[lobbyID]
		if !ok {
			reply <- lobby.Outcome{Accepted: false, Reason: "unknown lobby"}
			return
		}
		if !handle.Send(lobby.Message{Type: lobby.MsgStartRound, StartRound: params, Reply: reply}) {
			reply <- lobby.Outcome{Accepted: false, Reason: "lobby no longer running"}
		}
	})

	select {
	case outcome := <-reply:
		if !outcome.Accepted {
			return fmt.Errorf("%s", outcome.Reason)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broker) onStartRound(identity string, msg inbound) {
	handle, ok := b.lobbies[msg.LobbyID]
	if !ok {
		b.logger.Warnf(b.ctx, "start_round for unknown lobby %d", msg.LobbyID)
		return
	}

	handle.Send(lobby.Message{
		Type: lobby.MsgStartRound,
		StartRound: lobby.StartRoundParams{
			Password: msg.Password,
			LevelID:  msg.LevelID,
			Mode:     lobby.Mode(msg.Mode),
		},
	})
}

func (b *Broker) onJoin(identity string, msg inbound) {
	if _, already := b.clients[identity]; already {
		b.logger.Warnf(b.ctx, "duplicate join for identity %s", identity)
		return
	}

	handle, ok := b.lobbies[msg.LobbyID]
	if !ok {
		b.logger.Warnf(b.ctx, "join for unknown lobby %d", msg.LobbyID)
		return
	}

	if !handle.Send(lobby.Message{Type: lobby.MsgJoin, Identity: identity}) {
		b.logger.Warnf(b.ctx, "join for already-terminated lobby %d", msg.LobbyID)
		return
	}
	b.clients[identity] = &clientInfo{lobbyID: msg.LobbyID}
}

func (b *Broker) onLeave(identity string) {
	info, ok := b.clients[identity]
	if !ok {
		b.logger.Warnf(b.ctx, "leave from unknown identity %s", identity)
		return
	}
	delete(b.clients, identity)

	if handle, ok := b.lobbies[info.lobbyID]; ok {
		handle.Send(lobby.Message{Type: lobby.MsgLeave, Identity: identity})
	}
}

func (b *Broker) onLogin(identity string, msg inbound) {
	info, ok := b.clients[identity]
	if !ok {
		return
	}

	handle, ok := b.lobbies[info.lobbyID]
	if !ok {
		return
	}

	info.userID = msg.UserID
	info.hasUser = true
	handle.Send(lobby.Message{Type: lobby.MsgLogin, Identity: identity, UserID: msg.UserID})
}

func (b *Broker) onLogout(identity string) {
	info, ok := b.clients[identity]
	if !ok || !info.hasUser {
		return
	}

	handle, ok := b.lobbies[info.lobbyID]
	if ok {
		handle.Send(lobby.Message{Type: lobby.MsgLogout, Identity: identity, UserID: info.userID})
	}
	info.hasUser = false
}

func decodeInbound(payload []byte) (inbound, error) {
	var msg inbound
	if err := json.Unmarshal(payload, &msg); err != nil {
		return inbound{}, err
	}
	if msg.Type == "" {
		return inbound{}, fmt.Errorf("missing type field")
	}
	return msg, nil
}
