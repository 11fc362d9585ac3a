package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-mafia-bot/internal/model"
)

// ErrGameNotFound is returned when no game row exists for a chat.
var ErrGameNotFound = errors.New("game not found")

// GameRepository is the durable game store: the games table plus its
// game_players roster rows. Roster rows are deleted with the game via a
// cascading foreign key.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

// CreateGame creates a game row in the lobby phase.
func (r *GameRepository) CreateGame(ctx context.Context, chatID, creatorID int64) error {
	const query = `
		INSERT INTO games (chat_id, creator_id, phase, round, announce_msg_id, created_at, updated_at)
		VALUES ($1, $2, 'lobby', 0, 0, NOW(), NOW())
	`
	if _, err := r.pool.Exec(ctx, query, chatID, creatorID); err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

// GetGame retrieves the game for a chat.
// Returns ErrGameNotFound if no game exists.
func (r *GameRepository) GetGame(ctx context.Context, chatID int64) (*model.Game, error) {
	const query = `
		SELECT chat_id, creator_id, phase, round, announce_msg_id, created_at, updated_at
		FROM games
		WHERE chat_id = $1
	`

	var g model.Game
	err := r.pool.QueryRow(ctx, query, chatID).Scan(
		&g.ChatID,
		&g.CreatorID,
		&g.Phase,
		&g.Round,
		&g.AnnounceMsgID,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return &g, nil
}

// ListGames retrieves every stored game, used for crash recovery.
func (r *GameRepository) ListGames(ctx context.Context) ([]*model.Game, error) {
	const query = `
		SELECT chat_id, creator_id, phase, round, announce_msg_id, created_at, updated_at
		FROM games
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []*model.Game
	for rows.Next() {
		var g model.Game
		err := rows.Scan(
			&g.ChatID,
			&g.CreatorID,
			&g.Phase,
			&g.Round,
			&g.AnnounceMsgID,
			&g.CreatedAt,
			&g.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

// UpdatePhase persists a phase transition.
func (r *GameRepository) UpdatePhase(ctx context.Context, chatID int64, phase string, round int) error {
	const query = `
		UPDATE games
		SET phase = $2, round = $3, updated_at = NOW()
		WHERE chat_id = $1
	`

	result, err := r.pool.Exec(ctx, query, chatID, phase, round)
	if err != nil {
		return fmt.Errorf("failed to update phase: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

// SetAnnounceMessage records the pinned announcement message id.
func (r *GameRepository) SetAnnounceMessage(ctx context.Context, chatID int64, messageID int) error {
	const query = `
		UPDATE games
		SET announce_msg_id = $2, updated_at = NOW()
		WHERE chat_id = $1
	`

	result, err := r.pool.Exec(ctx, query, chatID, messageID)
	if err != nil {
		return fmt.Errorf("failed to set announcement message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

// DeleteGame removes a game and, via the cascading foreign key, its
// roster rows. Deleting an absent game is a no-op.
func (r *GameRepository) DeleteGame(ctx context.Context, chatID int64) error {
	const query = `DELETE FROM games WHERE chat_id = $1`

	if _, err := r.pool.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}

// AddPlayer enrolls a roster member. The role stays empty and the player
// alive until role distribution.
func (r *GameRepository) AddPlayer(ctx context.Context, chatID, playerID int64, displayName string) error {
	const query = `
		INSERT INTO game_players (chat_id, player_id, display_name, role, alive, inactive_nights, self_protect_used, joined_at)
		VALUES ($1, $2, $3, '', TRUE, 0, FALSE, NOW())
	`

	if _, err := r.pool.Exec(ctx, query, chatID, playerID, displayName); err != nil {
		return fmt.Errorf("failed to add player: %w", err)
	}
	return nil
}

// RemovePlayer drops a roster member, only meaningful during the lobby.
func (r *GameRepository) RemovePlayer(ctx context.Context, chatID, playerID int64) error {
	const query = `DELETE FROM game_players WHERE chat_id = $1 AND player_id = $2`

	if _, err := r.pool.Exec(ctx, query, chatID, playerID); err != nil {
		return fmt.Errorf("failed to remove player: %w", err)
	}
	return nil
}

// ListPlayers retrieves the roster in join order.
func (r *GameRepository) ListPlayers(ctx context.Context, chatID int64) ([]*model.GamePlayer, error) {
	const query = `
		SELECT chat_id, player_id, display_name, role, alive, inactive_nights, self_protect_used
		FROM game_players
		WHERE chat_id = $1
		ORDER BY joined_at
	`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*model.GamePlayer
	for rows.Next() {
		var p model.GamePlayer
		err := rows.Scan(
			&p.ChatID,
			&p.PlayerID,
			&p.DisplayName,
			&p.Role,
			&p.Alive,
			&p.InactiveNights,
			&p.SelfProtectUsed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game player: %w", err)
		}
		players = append(players, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game players: %w", err)
	}

	return players, nil
}

// AssignRole sets a roster member's role. Roles are assigned exactly
// once, at game start.
func (r *GameRepository) AssignRole(ctx context.Context, chatID, playerID int64, role string) error {
	const query = `
		UPDATE game_players
		SET role = $3
		WHERE chat_id = $1 AND player_id = $2 AND role = ''
	`

	result, err := r.pool.Exec(ctx, query, chatID, playerID, role)
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("role already assigned for player %d in chat %d", playerID, chatID)
	}
	return nil
}

// MarkDead flips the alive flag to false. The flag never reverses.
func (r *GameRepository) MarkDead(ctx context.Context, chatID, playerID int64) error {
	const query = `
		UPDATE game_players
		SET alive = FALSE
		WHERE chat_id = $1 AND player_id = $2
	`

	if _, err := r.pool.Exec(ctx, query, chatID, playerID); err != nil {
		return fmt.Errorf("failed to mark player dead: %w", err)
	}
	return nil
}

// SetInactiveNights persists a player's inactivity strike counter.
func (r *GameRepository) SetInactiveNights(ctx context.Context, chatID, playerID int64, nights int) error {
	const query = `
		UPDATE game_players
		SET inactive_nights = $3
		WHERE chat_id = $1 AND player_id = $2
	`

	if _, err := r.pool.Exec(ctx, query, chatID, playerID, nights); err != nil {
		return fmt.Errorf("failed to set inactivity strikes: %w", err)
	}
	return nil
}

// MarkSelfProtectUsed consumes the doctor's one-time self-protection.
func (r *GameRepository) MarkSelfProtectUsed(ctx context.Context, chatID, playerID int64) error {
	const query = `
		UPDATE game_players
		SET self_protect_used = TRUE
		WHERE chat_id = $1 AND player_id = $2
	`

	if _, err := r.pool.Exec(ctx, query, chatID, playerID); err != nil {
		return fmt.Errorf("failed to mark self-protection used: %w", err)
	}
	return nil
}
