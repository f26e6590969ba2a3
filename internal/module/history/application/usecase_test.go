package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dustforce-relay/internal/module/history/domain"
	"dustforce-relay/internal/module/lobby"
	"dustforce-relay/internal/shared/logger"
)

type fakeRepository struct {
	recordErr   error
	recorded    []domain.Match
	historyResp *domain.History
	historyErr  error
	lastLobby   int
	lastLimit   int64
	lastOffset  int64
}

func (f *fakeRepository) RecordMatch(_ context.Context, match domain.Match) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, match)
	return nil
}

func (f *fakeRepository) GetHistory(_ context.Context, lobbyID int, limit, offset int64) (*domain.History, error) {
	f.lastLobby, f.lastLimit, f.lastOffset = lobbyID, limit, offset
	return f.historyResp, f.historyErr
}

func TestUseCase_RecordMatch_MapsParticipantsAndPersists(t *testing.T) {
	repo := &fakeRepository{}
	uc := NewUseCase(repo, logger.New("error", false))

	result := lobby.MatchResult{
		LobbyID:       3,
		LevelFilename: "some-level-1",
		WinnerUserID:  7,
		StartedAt:     time.Unix(100, 0),
		FinishedAt:    time.Unix(200, 0),
		Participants: []lobby.MatchParticipant{
			{UserID: 7, Name: "alice", EliminatedRound: 0},
			{UserID: 8, Name: "bob", EliminatedRound: 1},
		},
	}

	uc.RecordMatch(context.Background(), result)

	require.Len(t, repo.recorded, 1)
	match := repo.recorded[0]
	assert.Equal(t, 3, match.LobbyID)
	assert.Equal(t, 7, match.WinnerUserID)
	require.Len(t, match.Participants, 2)
	assert.Equal(t, domain.Participant{UserID: 7, Name: "alice", EliminatedRound: 0}, match.Participants[0])
	assert.Equal(t, domain.Participant{UserID: 8, Name: "bob", EliminatedRound: 1}, match.Participants[1])
}

func TestUseCase_RecordMatch_SwallowsRepositoryError(t *testing.T) {
	repo := &fakeRepository{recordErr: assert.AnError}
	uc := NewUseCase(repo, logger.New("error", false))

	assert.NotPanics(t, func() {
		uc.RecordMatch(context.Background(), lobby.MatchResult{LobbyID: 1})
	})
}

func TestUseCase_GetHistory_DelegatesToRepository(t *testing.T) {
	want := &domain.History{LobbyID: 5, Total: 2, Matches: []domain.Match{{LobbyID: 5}}}
	repo := &fakeRepository{historyResp: want}
	uc := NewUseCase(repo, logger.New("error", false))

	got, err := uc.GetHistory(context.Background(), 5, 10, 0)
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 5, repo.lastLobby)
	assert.Equal(t, int64(10), repo.lastLimit)
}

func TestUseCase_GetHistory_WrapsRepositoryError(t *testing.T) {
	repo := &fakeRepository{historyErr: assert.AnError}
	uc := NewUseCase(repo, logger.New("error", false))

	_, err := uc.GetHistory(context.Background(), 5, 10, 0)
	assert.Error(t, err)
}
