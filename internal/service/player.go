// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-mafia-bot/internal/model"
	"telegram-mafia-bot/internal/repository"
)

// initialBalance is credited to every newly registered player.
const initialBalance = 1000

// PlayerService is the player directory: it registers players on first
// contact and keeps their stored identity in sync with Telegram.
type PlayerService struct {
	playerRepo *repository.PlayerRepository
	txRepo     *repository.TransactionRepository
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(playerRepo *repository.PlayerRepository, txRepo *repository.TransactionRepository) *PlayerService {
	return &PlayerService{playerRepo: playerRepo, txRepo: txRepo}
}

// EnsureUser ensures a player exists, creating one with the starting
// balance if necessary. Returns the player and whether it was newly
// created.
func (s *PlayerService) EnsureUser(ctx context.Context, telegramID int64, username, displayName string) (*model.Player, bool, error) {
	player, err := s.playerRepo.GetByTelegramID(ctx, telegramID)
	if err == nil {
		if (username != "" && player.Username != username) ||
			(displayName != "" && player.DisplayName != displayName) {
			if err := s.playerRepo.UpdateIdentity(ctx, telegramID, username, displayName); err != nil {
				log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to refresh player identity")
			} else {
				player.Username = username
				player.DisplayName = displayName
			}
		}
		return player, false, nil
	}
	if err != repository.ErrPlayerNotFound {
		return nil, false, fmt.Errorf("failed to ensure player: %w", err)
	}

	player, err = s.playerRepo.Create(ctx, telegramID, username, displayName, initialBalance)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create player: %w", err)
	}

	if err := s.txRepo.Create(ctx, telegramID, initialBalance, model.TxTypeInitial, nil); err != nil {
		log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to journal initial balance")
	}

	return player, true, nil
}

// GetPlayer retrieves a player by Telegram ID.
func (s *PlayerService) GetPlayer(ctx context.Context, telegramID int64) (*model.Player, error) {
	return s.playerRepo.GetByTelegramID(ctx, telegramID)
}

// DisplayName resolves a player's display name, falling back to the
// username and then to the numeric ID for players the directory has
// never seen.
func (s *PlayerService) DisplayName(ctx context.Context, telegramID int64) string {
	player, err := s.playerRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return fmt.Sprintf("player %d", telegramID)
	}
	if player.DisplayName != "" {
		return player.DisplayName
	}
	if player.Username != "" {
		return "@" + player.Username
	}
	return fmt.Sprintf("player %d", telegramID)
}
