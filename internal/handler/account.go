package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-mafia-bot/internal/pkg/lock"
	"telegram-mafia-bot/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	playerService *service.PlayerService
	ledgerService *service.LedgerService
	userLock      *lock.UserLock
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(playerService *service.PlayerService, ledgerService *service.LedgerService, userLock *lock.UserLock) *AccountHandler {
	return &AccountHandler{
		playerService: playerService,
		ledgerService: ledgerService,
		userLock:      userLock,
	}
}

// HandleStart handles the /start command. Registers the player with the
// starting balance if they are new.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.userLock.Lock(sender.ID)
	defer h.userLock.Unlock(sender.ID)

	player, created, err := h.playerService.EnsureUser(ctx, sender.ID, sender.Username, displayName(sender))
	if err != nil {
		return c.Reply("❌ Could not set up your account, try again later.")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🎉 Welcome, %s!\n\n"+
				"Your account is ready with %d points.\n\n"+
				"Commands:\n"+
				"/mafia - start a game in a group\n"+
				"/join - join an open lobby\n"+
				"/balance - your points\n"+
				"/mafiastats - your game record\n"+
				"/top - leaderboard",
			displayName(sender), player.Balance,
		))
	}

	return c.Reply(fmt.Sprintf(
		"👋 Welcome back, %s!\n\nCurrent balance: %d points",
		displayName(sender), player.Balance,
	))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	player, _, err := h.playerService.EnsureUser(ctx, sender.ID, sender.Username, displayName(sender))
	if err != nil {
		return c.Reply("❌ Could not load your balance, try again later.")
	}

	return c.Reply(fmt.Sprintf("💰 Current balance: %d points", player.Balance))
}

// HandleTop handles the /top command: the points leaderboard.
func (h *AccountHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()

	players, err := h.ledgerService.TopByBalance(ctx, 10)
	if err != nil {
		return c.Reply("❌ Could not load the leaderboard, try again later.")
	}
	if len(players) == 0 {
		return c.Reply("📊 Nobody is on the leaderboard yet.")
	}

	var sb strings.Builder
	sb.WriteString("🏆 Points leaderboard\n\n")
	for i, p := range players {
		name := p.DisplayName
		if name == "" {
			name = "@" + p.Username
		}
		sb.WriteString(fmt.Sprintf("%d. %s — %d points\n", i+1, name, p.Balance))
	}

	return c.Reply(sb.String())
}
