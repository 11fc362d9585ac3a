// Package model defines the data models for the Telegram mafia bot.
package model

import "time"

// Player represents a Telegram user known to the bot. It doubles as the
// player directory entry (display name), the ledger account (balance) and
// the career stats row (wins/losses/reputation).
type Player struct {
	TelegramID  int64     `db:"telegram_id"`
	Username    string    `db:"username"`
	DisplayName string    `db:"display_name"`
	Balance     int64     `db:"balance"`
	Wins        int       `db:"wins"`
	Losses      int       `db:"losses"`
	Reputation  int       `db:"reputation"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Game is the durable record of one game per group chat. The phase label
// is the serialized form of the engine's tagged phase type.
type Game struct {
	ChatID        int64     `db:"chat_id"`
	CreatorID     int64     `db:"creator_id"`
	Phase         string    `db:"phase"`
	Round         int       `db:"round"`
	AnnounceMsgID int       `db:"announce_msg_id"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// GamePlayer is one roster row of a game. Role stays empty until role
// distribution; Alive only ever flips true to false.
type GamePlayer struct {
	ChatID          int64  `db:"chat_id"`
	PlayerID        int64  `db:"player_id"`
	DisplayName     string `db:"display_name"`
	Role            string `db:"role"`
	Alive           bool   `db:"alive"`
	InactiveNights  int    `db:"inactive_nights"`
	SelfProtectUsed bool   `db:"self_protect_used"`
}

// Transaction represents a balance change record in the ledger journal.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial   = "initial"    // Initial balance on account creation
	TxTypeMafiaWin  = "mafia_win"  // Reward for being on the winning team
	TxTypeMafiaLoss = "mafia_loss" // Consolation for being on the losing team
	TxTypeAdmin     = "admin"      // Manual adjustment by an admin
)
