package lobby

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"dustforce-relay/internal/config"
	"dustforce-relay/internal/module/event"
	"dustforce-relay/internal/module/level"
	"dustforce-relay/internal/module/user"
	"dustforce-relay/internal/shared/logger"
)

// LevelResolver is the subset of the dustkid capability client the lobby
// engine depends on to start and draw rounds.
type LevelResolver interface {
	ResolveLevel(ctx context.Context, id int) (string, bool, error)
	FetchLevelStats(ctx context.Context, filename string) (*level.LevelStats, error)
}

// UserResolver resolves a login's numeric user id to a display name.
type UserResolver interface {
	FetchUserName(ctx context.Context, id int) (string, bool, error)
}

// MatchResult is the record a completed game produces for the Match
// History component. It is purely additive and never consulted by the
// lobby engine itself.
type MatchResult struct {
	LobbyID       int
	LevelFilename string
	WinnerUserID  int
	Participants  []MatchParticipant
	StartedAt     time.Time
	FinishedAt    time.Time
}

// MatchParticipant is one entrant of a finished game.
type MatchParticipant struct {
	UserID          int
	Name            string
	EliminatedRound int // 0 if the participant won
}

// Deps are the Runner's external collaborators, all optional except
// Levels (required to start a round at all).
type Deps struct {
	Levels     LevelResolver
	Users      UserResolver
	Logger     *logger.Logger
	Broadcast  func(lobbyID int, identities []string, snapshot Snapshot)
	OnClose    func(lobbyID int)
	OnGameOver func(result MatchResult)
	MaxLevelID MaxLevelIDSource
}

// Handle is the Broker's reference to a running lobby: the inbox to send
// messages on and a signal for when the runner has terminated.
type Handle struct {
	ID       int
	Password string
	Kind     Kind

	inbox chan Message
	done  chan struct{}
}

// Send enqueues msg on the lobby's inbox. It returns false if the lobby
// has already terminated.
func (h *Handle) Send(msg Message) bool {
	select {
	case h.inbox <- msg:
		return true
	case <-h.done:
		return false
	}
}

// TrySend enqueues msg without blocking. It returns false if the lobby
// has terminated or its inbox is full, so a slow lobby can never stall
// the caller's dispatch loop.
func (h *Handle) TrySend(msg Message) bool {
	select {
	case h.inbox <- msg:
		return true
	case <-h.done:
		return false
	default:
		return false
	}
}

// Done returns a channel closed once the runner has terminated. It is
// closed before Deps.OnClose runs, so the broker's table may still hold
// the lobby at that moment.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Spawn starts a new lobby runner goroutine and returns its Handle.
func Spawn(ctx context.Context, cfg config.LobbyConfig, id int, kind Kind, deps Deps) *Handle {
	l := newLobby(id, generatePassword(), kind)
	l.warmupDuration = cfg.WarmupDuration
	l.breakDuration = cfg.BreakDuration
	l.roundTime = cfg.RoundDuration

	h := &Handle{
		ID:       id,
		Password: l.Password,
		Kind:     kind,
		inbox:    make(chan Message, 64),
		done:     make(chan struct{}),
	}

	r := &runner{
		ctx:    ctx,
		cfg:    cfg,
		lobby:  l,
		deps:   deps,
		handle: h,
	}

	go r.run()
	return h
}

// generatePassword produces a fresh 20-character alphanumeric secret.
func generatePassword() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, 20)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			out[i] = alphabet[0]
			continue
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}

// runner owns a Lobby exclusively; every field access happens on the
// run() goroutine.
type runner struct {
	ctx    context.Context
	cfg    config.LobbyConfig
	lobby  *Lobby
	deps   Deps
	handle *Handle

	startedAt time.Time

	emptyTimer   *time.Timer
	phaseTimer   *time.Timer
	rotateTicker *time.Ticker
}

func (r *runner) run() {
	defer r.shutdown()

	if r.lobby.Kind == KindRotating {
		r.rotateTicker = time.NewTicker(r.cfg.RoundDuration + r.cfg.BreakDuration)
		defer r.rotateTicker.Stop()
	}

	for {
		var phaseC <-chan time.Time
		if r.phaseTimer != nil {
			phaseC = r.phaseTimer.C
		}
		var emptyC <-chan time.Time
		if r.emptyTimer != nil {
			emptyC = r.emptyTimer.C
		}
		var rotateC <-chan time.Time
		if r.rotateTicker != nil {
			rotateC = r.rotateTicker.C
		}

		select {
		case <-r.ctx.Done():
			return

		case msg := <-r.handle.inbox:
			if msg.Type == MsgClose {
				return
			}
			r.handleMessage(msg)

		case <-phaseC:
			r.phaseTimer = nil
			r.advancePhase()

		case <-emptyC:
			r.emptyTimer = nil
			return

		case <-rotateC:
			r.tryRotate()
		}
	}
}

func (r *runner) shutdown() {
	if r.phaseTimer != nil {
		r.phaseTimer.Stop()
	}
	if r.emptyTimer != nil {
		r.emptyTimer.Stop()
	}
	close(r.handle.done)
	if r.deps.OnClose != nil {
		r.deps.OnClose(r.lobby.ID)
	}
}

func (r *runner) handleMessage(msg Message) {
	switch msg.Type {
	case MsgJoin:
		r.onJoin(msg)
	case MsgLeave:
		r.onLeave(msg)
	case MsgLogin:
		r.onLogin(msg)
	case MsgLogout:
		r.onLogout(msg)
	case MsgStartRound:
		r.onStartRound(msg)
	case MsgEvent:
		r.onEvent(msg.Event)
	}
}

func (r *runner) onJoin(msg Message) {
	if _, already := r.lobby.clients[msg.Identity]; already {
		r.reply(msg, Outcome{Accepted: false, Reason: "already attached"})
		return
	}

	r.lobby.clients[msg.Identity] = struct{}{}
	if r.emptyTimer != nil {
		r.emptyTimer.Stop()
		r.emptyTimer = nil
	}

	r.reply(msg, Outcome{Accepted: true})
	r.emitSnapshot()
}

func (r *runner) onLeave(msg Message) {
	if _, ok := r.lobby.clients[msg.Identity]; !ok {
		return
	}
	delete(r.lobby.clients, msg.Identity)

	if len(r.lobby.clients) == 0 {
		r.emptyTimer = time.NewTimer(r.cfg.EmptyLobbyTimeout)
	}
	r.emitSnapshot()
}

func (r *runner) onLogin(msg Message) {
	if !r.lobby.allowJoining {
		return
	}
	if !user.Valid(msg.UserID) || r.deps.Users == nil {
		return
	}

	name, ok, err := r.deps.Users.FetchUserName(r.ctx, msg.UserID)
	if err != nil || !ok {
		if r.deps.Logger != nil {
			r.deps.Logger.Warnf(r.ctx, "login failed for user %d in lobby %d: %v", msg.UserID, r.lobby.ID, err)
		}
		return
	}

	r.lobby.users[msg.UserID] = user.User{ID: msg.UserID, Name: name}
	r.emitSnapshot()
}

func (r *runner) onLogout(msg Message) {
	// identity -> user mapping is tracked by the caller (Broker); the
	// lobby only needs the user id, carried in UserID.
	delete(r.lobby.users, msg.UserID)
	delete(r.lobby.scores, msg.UserID)
	r.emitSnapshot()
}

func (r *runner) onStartRound(msg Message) {
	params := msg.StartRound

	if params.Password != r.lobby.Password {
		if r.deps.Logger != nil {
			r.deps.Logger.Warnf(r.ctx, "start_round password mismatch for lobby %d", r.lobby.ID)
		}
		r.reply(msg, Outcome{Accepted: false, Reason: "invalid password"})
		return
	}

	if r.lobby.state != Idle {
		r.reply(msg, Outcome{Accepted: false, Reason: "game in progress"})
		return
	}

	if !r.resolveLevel(params.LevelID) {
		r.reply(msg, Outcome{Accepted: false, Reason: "unknown level"})
		return
	}

	r.lobby.warmupDuration = r.cfg.WarmupDuration
	r.lobby.breakDuration = r.cfg.BreakDuration
	r.lobby.roundTime = r.cfg.RoundDuration
	if params.Warmup != nil {
		r.lobby.warmupDuration = *params.Warmup
	}
	if params.Break != nil {
		r.lobby.breakDuration = *params.Break
	}
	if params.Round != nil {
		r.lobby.roundTime = *params.Round
	}

	r.lobby.mode = params.Mode
	r.lobby.allowJoining = false
	r.startedAt = time.Now()
	r.enterWarmup()

	r.reply(msg, Outcome{Accepted: true})
}

// resolveLevel installs r.lobby.level, reusing the current level if its
// id already matches.
func (r *runner) resolveLevel(levelID int) bool {
	if r.lobby.level != nil && r.lobby.level.ID != nil && *r.lobby.level.ID == levelID {
		return true
	}
	if r.deps.Levels == nil {
		return false
	}

	filename, ok, err := r.deps.Levels.ResolveLevel(r.ctx, levelID)
	if err != nil || !ok {
		return false
	}

	lvl := level.New(filename)
	r.lobby.level = &lvl
	return true
}

func (r *runner) enterWarmup() {
	r.lobby.state = Warmup
	end := time.Now().Add(r.lobby.warmupDuration)
	r.lobby.warmupEnd = &end
	r.lobby.breakEnd = nil
	r.lobby.roundEnd = nil
	r.phaseTimer = time.NewTimer(r.lobby.warmupDuration)
	r.emitSnapshot()
}

func (r *runner) enterBreak() {
	r.lobby.state = Break
	r.lobby.warmupEnd = nil

	breakEnd := time.Now().Add(r.lobby.breakDuration)
	roundEnd := breakEnd.Add(r.lobby.roundTime)
	r.lobby.breakEnd = &breakEnd
	r.lobby.roundEnd = &roundEnd

	r.phaseTimer = time.NewTimer(r.lobby.breakDuration)
	r.emitSnapshot()
}

func (r *runner) enterRound() {
	r.lobby.state = Round
	r.phaseTimer = time.NewTimer(time.Until(*r.lobby.roundEnd) + r.cfg.RoundPadding)
	r.emitSnapshot()
}

func (r *runner) enterGameOver() {
	r.lobby.state = GameOver
	r.lobby.breakEnd = nil
	r.lobby.roundEnd = nil
	r.phaseTimer = time.NewTimer(r.cfg.GameOverHold)
	r.emitSnapshot()
}

func (r *runner) enterIdle() {
	r.lobby.state = Idle
	r.lobby.warmupEnd = nil
	r.lobby.breakEnd = nil
	r.lobby.roundEnd = nil
	r.lobby.eliminated = make(map[int]struct{})
	r.lobby.eliminatedRound = make(map[int]int)
	r.lobby.roundNumber = 0
	r.lobby.scores = make(map[int]event.Score)
	r.lobby.arrival = make(map[int]int)
	r.lobby.level = nil
	r.lobby.allowJoining = true
	r.emitSnapshot()
}

// advancePhase fires when the current phase's timer expires.
func (r *runner) advancePhase() {
	switch r.lobby.state {
	case Warmup:
		r.enterBreak()
	case Break:
		r.enterRound()
	case Round:
		r.evaluateElimination()
	case GameOver:
		r.enterIdle()
	}
}

// evaluateElimination applies the elimination rule at the end of a round.
func (r *runner) evaluateElimination() {
	remaining := r.lobby.remaining()

	scored := make(map[int]struct{})
	for _, id := range remaining {
		if _, ok := r.lobby.scores[id]; ok {
			scored[id] = struct{}{}
		}
	}

	var out []int
	if r.lobby.Kind == KindElimination {
		out = r.computeEliminated(remaining, scored)
	}

	r.lobby.roundNumber++
	for _, id := range out {
		r.lobby.eliminated[id] = struct{}{}
		r.lobby.eliminatedRound[id] = r.lobby.roundNumber
	}
	r.lobby.scores = make(map[int]event.Score)
	r.lobby.arrival = make(map[int]int)

	remaining = r.lobby.remaining()

	if r.lobby.Kind == KindRotating {
		// Rotating lobbies never eliminate: one round per level, then the
		// next draw.
		r.enterIdle()
		r.tryRotate()
		return
	}

	if len(remaining) > 1 {
		r.enterBreak()
		return
	}

	if r.deps.OnGameOver != nil {
		r.recordMatch(remaining)
	}
	r.enterGameOver()
}

// computeEliminated implements the elimination rule: players who posted
// no qualifying score are out; if everyone scored, only the last scorer
// (by timestamp, ties broken by arrival order) is out; never eliminate
// the whole remaining field in one round.
func (r *runner) computeEliminated(remaining []int, scored map[int]struct{}) []int {
	var out []int
	for _, id := range remaining {
		if _, ok := scored[id]; !ok {
			out = append(out, id)
		}
	}

	if len(out) == 0 {
		lastScorer := -1
		var bestTimestamp int64
		bestSeq := -1
		for id := range scored {
			ts := r.lobby.scores[id].Timestamp
			seq := r.lobby.arrival[id]
			if lastScorer == -1 || ts > bestTimestamp || (ts == bestTimestamp && seq > bestSeq) {
				lastScorer = id
				bestTimestamp = ts
				bestSeq = seq
			}
		}
		if lastScorer != -1 {
			out = []int{lastScorer}
		}
	}

	if len(out) == len(remaining) {
		return nil
	}
	return out
}

func (r *runner) recordMatch(remaining []int) {
	result := MatchResult{
		LobbyID:      r.lobby.ID,
		WinnerUserID: -1,
		StartedAt:    r.startedAt,
		FinishedAt:   time.Now(),
	}
	if r.lobby.level != nil {
		result.LevelFilename = r.lobby.level.Filename
	}
	if len(remaining) == 1 {
		result.WinnerUserID = remaining[0]
	}

	for id, u := range r.lobby.users {
		result.Participants = append(result.Participants, MatchParticipant{
			UserID:          id,
			Name:            u.Name,
			EliminatedRound: r.lobby.eliminatedRound[id],
		})
	}

	r.deps.OnGameOver(result)
}

// onEvent implements scoring ingestion for the active round.
func (r *runner) onEvent(e event.Event) {
	if r.lobby.level == nil || e.Level != r.lobby.level.Filename {
		return
	}
	if r.lobby.mode == ModeSS && (e.ScoreCompletion != 5 || e.ScoreFinesse != 5) {
		return
	}
	if r.lobby.roundEnd == nil {
		return
	}
	if _, known := r.lobby.users[e.User]; !known {
		return
	}

	windowStart := r.lobby.roundEnd.Add(-r.lobby.roundTime).Unix()
	windowEnd := r.lobby.roundEnd.Unix()
	if e.Timestamp < windowStart || e.Timestamp > windowEnd {
		return
	}

	newScore := event.FromEvent(e)
	old, hasOld := r.lobby.scores[e.User]
	if hasOld && !newScore.Better(old) {
		return
	}

	r.lobby.scores[e.User] = newScore
	r.lobby.seqCounter++
	r.lobby.arrival[e.User] = r.lobby.seqCounter
	r.emitSnapshot()
}

func (r *runner) emitSnapshot() {
	if r.deps.Broadcast == nil {
		return
	}
	identities := make([]string, 0, len(r.lobby.clients))
	for id := range r.lobby.clients {
		identities = append(identities, id)
	}
	r.deps.Broadcast(r.lobby.ID, identities, r.lobby.snapshot())
}

func (r *runner) reply(msg Message, outcome Outcome) {
	if msg.Reply == nil {
		return
	}
	select {
	case msg.Reply <- outcome:
	default:
	}
}
