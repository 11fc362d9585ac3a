package mafia

import (
	"context"

	tele "gopkg.in/telebot.v3"

	"telegram-mafia-bot/internal/model"
)

// Store is the durable game store: one game row per chat plus its roster
// rows. It is the single source of truth for role/alive/phase state and
// must serialize writes per chat; the engine guarantees that by holding
// the session lock across all mutations for one game.
type Store interface {
	CreateGame(ctx context.Context, chatID, creatorID int64) error
	GetGame(ctx context.Context, chatID int64) (*model.Game, error)
	ListGames(ctx context.Context) ([]*model.Game, error)
	UpdatePhase(ctx context.Context, chatID int64, phase string, round int) error
	SetAnnounceMessage(ctx context.Context, chatID int64, messageID int) error
	DeleteGame(ctx context.Context, chatID int64) error

	AddPlayer(ctx context.Context, chatID, playerID int64, displayName string) error
	RemovePlayer(ctx context.Context, chatID, playerID int64) error
	ListPlayers(ctx context.Context, chatID int64) ([]*model.GamePlayer, error)
	AssignRole(ctx context.Context, chatID, playerID int64, role string) error
	MarkDead(ctx context.Context, chatID, playerID int64) error
	SetInactiveNights(ctx context.Context, chatID, playerID int64, nights int) error
	MarkSelfProtectUsed(ctx context.Context, chatID, playerID int64) error
}

// Notifier delivers messages to the group chat and to private chats.
// Every method may fail without endangering a running game; only the
// lobby's pre-start reachability probe treats a private send failure as
// a hard abort signal.
type Notifier interface {
	SendPrivate(userID int64, text string) error
	SendPrivateMenu(userID int64, text string, menu *tele.ReplyMarkup) error
	SendGroup(chatID int64, text string) (messageID int, err error)
	SendGroupMenu(chatID int64, text string, menu *tele.ReplyMarkup) (messageID int, err error)
	Edit(chatID int64, messageID int, text string, menu *tele.ReplyMarkup) error
	Delete(chatID int64, messageID int) error
	Pin(chatID int64, messageID int) error
	Unpin(chatID int64, messageID int) error
}

// Ledger applies reward payouts at game end. Every player receives a
// credit, winners more than losers.
type Ledger interface {
	Credit(ctx context.Context, userID int64, amount int64, txType string, description string) error
}

// Stats records per-player outcomes for the career tallies.
type Stats interface {
	RecordOutcome(ctx context.Context, userID int64, won bool, reputationDelta int) error
}
