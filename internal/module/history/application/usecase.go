// Package application provides use cases for the Match History component.
package application

import (
	"context"

	"dustforce-relay/internal/module/history/domain"
	"dustforce-relay/internal/module/lobby"
	"dustforce-relay/internal/shared/logger"
	"dustforce-relay/internal/shared/response"
)

// UseCase handles Match History use cases: recording completed games
// (called directly by the Broker's OnGameOver callback) and serving
// the admin read API.
type UseCase struct {
	repo   domain.Repository
	logger *logger.Logger
}

// NewUseCase creates a Match History use case.
func NewUseCase(repo domain.Repository, l *logger.Logger) *UseCase {
	return &UseCase{repo: repo, logger: l}
}

// RecordMatch persists a completed game. It implements
// broker.HistoryRecorder; errors are logged rather than propagated,
// since there is no caller left to hand them to once a game is over.
func (uc *UseCase) RecordMatch(ctx context.Context, result lobby.MatchResult) {
	match := domain.Match{
		LobbyID:       result.LobbyID,
		LevelFilename: result.LevelFilename,
		WinnerUserID:  result.WinnerUserID,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
	}
	for _, p := range result.Participants {
		match.Participants = append(match.Participants, domain.Participant{
			UserID:          p.UserID,
			Name:            p.Name,
			EliminatedRound: p.EliminatedRound,
		})
	}

	if err := uc.repo.RecordMatch(ctx, match); err != nil {
		uc.logger.Errorf(ctx, "failed to record match history for lobby %d: %v", result.LobbyID, err)
	}
}

// GetHistory returns a page of a lobby's past matches.
func (uc *UseCase) GetHistory(ctx context.Context, lobbyID int, limit, offset int64) (*domain.History, error) {
	history, err := uc.repo.GetHistory(ctx, lobbyID, limit, offset)
	if err != nil {
		uc.logger.Errorf(ctx, "failed to load match history for lobby %d: %v", lobbyID, err)
		return nil, response.NewInternalError("failed to load match history", err)
	}
	return history, nil
}
