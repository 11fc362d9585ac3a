package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-mafia-bot/internal/model"
	"telegram-mafia-bot/internal/service"
)

// AdminHandler handles manual balance adjustments. The admin middleware
// already gates every route here.
type AdminHandler struct {
	ledgerService *service.LedgerService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledgerService *service.LedgerService) *AdminHandler {
	return &AdminHandler{ledgerService: ledgerService}
}

// parseAdminArgs parses "<user_id> <amount>" command arguments.
func parseAdminArgs(c tele.Context) (int64, int64, error) {
	args := strings.Fields(c.Message().Payload)
	if len(args) != 2 {
		return 0, 0, errors.New("usage: <user_id> <amount>")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, errors.New("invalid user id")
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, errors.New("invalid amount")
	}
	return targetID, amount, nil
}

// HandleAdminAdd handles /admin_add <user_id> <amount>.
func (h *AdminHandler) HandleAdminAdd(c tele.Context) error {
	return h.adjust(c, false)
}

// HandleAdminSub handles /admin_sub <user_id> <amount>.
func (h *AdminHandler) HandleAdminSub(c tele.Context) error {
	return h.adjust(c, true)
}

func (h *AdminHandler) adjust(c tele.Context, subtract bool) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, amount, err := parseAdminArgs(c)
	if err != nil {
		return c.Reply("❌ " + err.Error())
	}
	if amount <= 0 {
		return c.Reply("❌ Amount must be positive.")
	}

	desc := fmt.Sprintf("adjusted by admin %d", sender.ID)
	if subtract {
		err = h.ledgerService.Debit(ctx, targetID, amount, model.TxTypeAdmin, desc)
	} else {
		err = h.ledgerService.Credit(ctx, targetID, amount, model.TxTypeAdmin, desc)
	}
	if err != nil {
		return c.Reply("❌ Adjustment failed, the player may not exist.")
	}

	op := "admin_add"
	if subtract {
		op = "admin_sub"
	}
	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Int64("amount", amount).
		Str("operation", op).
		Msg("Admin operation executed")

	balance, err := h.ledgerService.Balance(ctx, targetID)
	if err != nil {
		return c.Reply("✅ Adjustment applied.")
	}
	return c.Reply(fmt.Sprintf(
		"✅ Adjustment applied\n\n👤 User: %d\n💰 New balance: %d points",
		targetID, balance,
	))
}
