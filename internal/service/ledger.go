package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-mafia-bot/internal/model"
	"telegram-mafia-bot/internal/pkg/lock"
	"telegram-mafia-bot/internal/repository"
)

// LedgerService applies point balance changes. Every change runs under
// the per-user lock and leaves a journal row.
type LedgerService struct {
	playerRepo *repository.PlayerRepository
	txRepo     *repository.TransactionRepository
	userLock   *lock.UserLock
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	playerRepo *repository.PlayerRepository,
	txRepo *repository.TransactionRepository,
	userLock *lock.UserLock,
) *LedgerService {
	return &LedgerService{
		playerRepo: playerRepo,
		txRepo:     txRepo,
		userLock:   userLock,
	}
}

// Credit adds points to a player's balance.
func (s *LedgerService) Credit(ctx context.Context, userID int64, amount int64, txType string, description string) error {
	if amount < 0 {
		return fmt.Errorf("credit amount must be non-negative, got %d", amount)
	}
	return s.apply(ctx, userID, amount, txType, description)
}

// Debit removes points from a player's balance. The balance may go
// negative; reward payouts never debit more than previously credited.
func (s *LedgerService) Debit(ctx context.Context, userID int64, amount int64, txType string, description string) error {
	if amount < 0 {
		return fmt.Errorf("debit amount must be non-negative, got %d", amount)
	}
	return s.apply(ctx, userID, -amount, txType, description)
}

func (s *LedgerService) apply(ctx context.Context, userID int64, delta int64, txType string, description string) error {
	return s.userLock.WithLock(userID, func() error {
		balance, err := s.playerRepo.AddBalance(ctx, userID, delta)
		if err != nil {
			return fmt.Errorf("failed to apply balance change: %w", err)
		}

		var desc *string
		if description != "" {
			desc = &description
		}
		if err := s.txRepo.Create(ctx, userID, delta, txType, desc); err != nil {
			// Balance already changed, so the journal miss is logged
			// rather than rolled back.
			log.Error().Err(err).
				Int64("user_id", userID).
				Int64("amount", delta).
				Str("type", txType).
				Msg("Failed to journal balance change")
		}

		log.Info().
			Int64("user_id", userID).
			Int64("amount", delta).
			Int64("balance", balance).
			Str("type", txType).
			Msg("Balance updated")
		return nil
	})
}

// Balance retrieves a player's current balance.
func (s *LedgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	player, err := s.playerRepo.GetByTelegramID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return player.Balance, nil
}

// TopByBalance retrieves the richest players for the leaderboard.
func (s *LedgerService) TopByBalance(ctx context.Context, limit int) ([]*model.Player, error) {
	return s.playerRepo.TopByBalance(ctx, limit)
}
