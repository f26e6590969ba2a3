package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dustforce-relay/internal/bus"
	"dustforce-relay/internal/config"
	"dustforce-relay/internal/module/level"
	"dustforce-relay/internal/module/lobby"
	"dustforce-relay/internal/shared/logger"
)

type fakeLevels struct{}

func (fakeLevels) ResolveLevel(_ context.Context, id int) (string, bool, error) {
	return "some-level-1", true, nil
}

func (fakeLevels) FetchLevelStats(_ context.Context, filename string) (*level.LevelStats, error) {
	return &level.LevelStats{}, nil
}

type fakeUsers struct{}

func (fakeUsers) FetchUserName(_ context.Context, id int) (string, bool, error) {
	return "somebody", true, nil
}

type fakeHistory struct {
	results []lobby.MatchResult
}

func (f *fakeHistory) RecordMatch(_ context.Context, result lobby.MatchResult) {
	f.results = append(f.results, result)
}

func testLobbyConfig() config.LobbyConfig {
	return config.LobbyConfig{
		WarmupDuration:    20 * time.Millisecond,
		BreakDuration:     20 * time.Millisecond,
		RoundDuration:     50 * time.Millisecond,
		RoundPadding:      5 * time.Millisecond,
		GameOverHold:      20 * time.Millisecond,
		EmptyLobbyTimeout: 5 * time.Minute,
		MaxLobbyCount:     2,
		MinSSCount:        5,
		MaxFastestSS:      45 * time.Second,
		MaxDrawAttempts:   50,
	}
}

func newTestBroker(t *testing.T) (*Broker, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	l := logger.New("error", false)
	b := New(ctx, testLobbyConfig(), fakeLevels{}, fakeUsers{}, &fakeHistory{}, l)
	go b.Run()
	return b, cancel
}

func TestBroker_CreateLobby_AllocatesSequentialIDs(t *testing.T) {
	b, cancel := newTestBroker(t)
	defer cancel()

	id0, pw0, err := b.CreateLobby(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, id0)
	assert.Len(t, pw0, 20)

	id1, pw1, err := b.CreateLobby(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, id1)
	assert.NotEqual(t, pw0, pw1)
}

func TestBroker_CreateLobby_RejectsOverCapacity(t *testing.T) {
	b, cancel := newTestBroker(t)
	defer cancel()

	_, _, err := b.CreateLobby(context.Background())
	require.NoError(t, err)
	_, _, err = b.CreateLobby(context.Background())
	require.NoError(t, err)

	_, _, err = b.CreateLobby(context.Background())
	assert.Error(t, err)
}

func TestBroker_StartRound_UnknownLobbyRejected(t *testing.T) {
	b, cancel := newTestBroker(t)
	defer cancel()

	err := b.StartRound(context.Background(), 999, lobby.StartRoundParams{Password: "x", LevelID: 1, Mode: lobby.ModeAny})
	assert.Error(t, err)
}

func TestBroker_StartRound_WrongPasswordRejected(t *testing.T) {
	b, cancel := newTestBroker(t)
	defer cancel()

	id, _, err := b.CreateLobby(context.Background())
	require.NoError(t, err)

	err = b.StartRound(context.Background(), id, lobby.StartRoundParams{Password: "wrong", LevelID: 1, Mode: lobby.ModeAny})
	assert.Error(t, err)
}

func TestBroker_HandleClientFrame_JoinBroadcastsStateSnapshot(t *testing.T) {
	b, cancel := newTestBroker(t)
	defer cancel()

	id, password, err := b.CreateLobby(context.Background())
	require.NoError(t, err)

	out := make(chan []byte, 4)
	b.Router().Register("client-1", out)

	joinMsg, _ := json.Marshal(map[string]interface{}{"type": "join", "lobby_id": id})
	b.HandleClientFrame("client-1", joinMsg)

	startMsg, _ := json.Marshal(map[string]interface{}{
		"type": "start_round", "lobby_id": id, "password": password, "level_id": 1, "mode": "any",
	})
	b.HandleClientFrame("client-1", startMsg)

	select {
	case payload := <-out:
		var snap lobby.Snapshot
		require.NoError(t, json.Unmarshal(payload, &snap))
		assert.Equal(t, "state", snap.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a state snapshot after join")
	}
}

func TestBroker_HandleClientFrame_MalformedFrameDropped(t *testing.T) {
	b, cancel := newTestBroker(t)
	defer cancel()

	// No type field -- must not panic or crash the broker goroutine.
	b.HandleClientFrame("client-1", []byte(`{"lobby_id":0}`))

	// The broker goroutine should still be responsive afterwards.
	_, _, err := b.CreateLobby(context.Background())
	assert.NoError(t, err)
}

func TestBroker_ConsumeBus_PublishedEventDoesNotStallBroker(t *testing.T) {
	b, cancel := newTestBroker(t)
	defer cancel()

	_, _, err := b.CreateLobby(context.Background())
	require.NoError(t, err)

	memBus := bus.NewInMemoryBus()
	require.NoError(t, b.ConsumeBus(memBus))

	record := []byte(`{"user":1,"level":"some-level-99","time":1000,"score_completion":5,"score_finesse":5,"timestamp":1}`)
	require.NoError(t, memBus.Publish(context.Background(), record))

	// Give the broker goroutine a moment to process the event; there is
	// no externally observable ack for a bare event dispatch, so this
	// only asserts that publishing does not crash or block the broker.
	time.Sleep(50 * time.Millisecond)

	_, _, err = b.CreateLobby(context.Background())
	assert.NoError(t, err)
}
