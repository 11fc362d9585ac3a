package service

import (
	"context"
	"fmt"

	"telegram-mafia-bot/internal/model"
	"telegram-mafia-bot/internal/repository"
)

// StatsService keeps per-player career tallies across games.
type StatsService struct {
	playerRepo *repository.PlayerRepository
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(playerRepo *repository.PlayerRepository) *StatsService {
	return &StatsService{playerRepo: playerRepo}
}

// RecordOutcome records one player's game result: a win or loss tally
// bump plus a signed reputation delta.
func (s *StatsService) RecordOutcome(ctx context.Context, userID int64, won bool, reputationDelta int) error {
	if err := s.playerRepo.RecordOutcome(ctx, userID, won, reputationDelta); err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// PlayerStats retrieves a single player's career record.
func (s *StatsService) PlayerStats(ctx context.Context, userID int64) (*model.Player, error) {
	return s.playerRepo.GetByTelegramID(ctx, userID)
}

// TopByReputation retrieves the reputation leaderboard.
func (s *StatsService) TopByReputation(ctx context.Context, limit int) ([]*model.Player, error) {
	return s.playerRepo.TopByReputation(ctx, limit)
}
