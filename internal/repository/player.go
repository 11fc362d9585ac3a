package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-mafia-bot/internal/model"
)

// ErrPlayerNotFound is returned when a player does not exist.
var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepository handles player profile persistence: identity,
// point balance and career statistics.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// Create inserts a new player with the given starting balance.
func (r *PlayerRepository) Create(ctx context.Context, telegramID int64, username, displayName string, balance int64) (*model.Player, error) {
	const query = `
		INSERT INTO players (telegram_id, username, display_name, balance, wins, losses, reputation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, NOW(), NOW())
		RETURNING telegram_id, username, display_name, balance, wins, losses, reputation, created_at, updated_at
	`

	var p model.Player
	err := r.pool.QueryRow(ctx, query, telegramID, username, displayName, balance).Scan(
		&p.TelegramID,
		&p.Username,
		&p.DisplayName,
		&p.Balance,
		&p.Wins,
		&p.Losses,
		&p.Reputation,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	return &p, nil
}

// GetByTelegramID retrieves a player by Telegram ID.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Player, error) {
	const query = `
		SELECT telegram_id, username, display_name, balance, wins, losses, reputation, created_at, updated_at
		FROM players
		WHERE telegram_id = $1
	`

	var p model.Player
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(
		&p.TelegramID,
		&p.Username,
		&p.DisplayName,
		&p.Balance,
		&p.Wins,
		&p.Losses,
		&p.Reputation,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &p, nil
}

// UpdateIdentity refreshes a player's username and display name so the
// stored profile follows Telegram profile changes.
func (r *PlayerRepository) UpdateIdentity(ctx context.Context, telegramID int64, username, displayName string) error {
	const query = `
		UPDATE players
		SET username = $2, display_name = $3, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.pool.Exec(ctx, query, telegramID, username, displayName)
	if err != nil {
		return fmt.Errorf("failed to update player identity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// AddBalance applies a signed delta to a player's balance and returns
// the new balance. The caller serializes concurrent updates per player.
func (r *PlayerRepository) AddBalance(ctx context.Context, telegramID int64, delta int64) (int64, error) {
	const query = `
		UPDATE players
		SET balance = balance + $2, updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING balance
	`

	var balance int64
	err := r.pool.QueryRow(ctx, query, telegramID, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPlayerNotFound
		}
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	return balance, nil
}

// RecordOutcome bumps a player's win or loss counter and applies a
// signed reputation delta in one statement.
func (r *PlayerRepository) RecordOutcome(ctx context.Context, telegramID int64, won bool, reputationDelta int) error {
	const query = `
		UPDATE players
		SET wins = wins + $2,
		    losses = losses + $3,
		    reputation = reputation + $4,
		    updated_at = NOW()
		WHERE telegram_id = $1
	`

	winInc, lossInc := 0, 1
	if won {
		winInc, lossInc = 1, 0
	}

	result, err := r.pool.Exec(ctx, query, telegramID, winInc, lossInc, reputationDelta)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// TopByBalance retrieves the richest players.
func (r *PlayerRepository) TopByBalance(ctx context.Context, limit int) ([]*model.Player, error) {
	const query = `
		SELECT telegram_id, username, display_name, balance, wins, losses, reputation, created_at, updated_at
		FROM players
		ORDER BY balance DESC
		LIMIT $1
	`
	return r.listPlayers(ctx, query, limit)
}

// TopByReputation retrieves the most reputable players.
func (r *PlayerRepository) TopByReputation(ctx context.Context, limit int) ([]*model.Player, error) {
	const query = `
		SELECT telegram_id, username, display_name, balance, wins, losses, reputation, created_at, updated_at
		FROM players
		ORDER BY reputation DESC, wins DESC
		LIMIT $1
	`
	return r.listPlayers(ctx, query, limit)
}

func (r *PlayerRepository) listPlayers(ctx context.Context, query string, limit int) ([]*model.Player, error) {
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		var p model.Player
		err := rows.Scan(
			&p.TelegramID,
			&p.Username,
			&p.DisplayName,
			&p.Balance,
			&p.Wins,
			&p.Losses,
			&p.Reputation,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}
