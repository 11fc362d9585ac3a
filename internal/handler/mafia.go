// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-mafia-bot/internal/config"
	"telegram-mafia-bot/internal/mafia"
	"telegram-mafia-bot/internal/service"
)

// MafiaHandler handles the mafia game commands and inline keyboard
// callbacks.
type MafiaHandler struct {
	cfg           *config.Config
	lobby         *mafia.LobbyManager
	engine        *mafia.Engine
	playerService *service.PlayerService
	statsService  *service.StatsService
}

// NewMafiaHandler creates a new MafiaHandler.
func NewMafiaHandler(
	cfg *config.Config,
	lobby *mafia.LobbyManager,
	engine *mafia.Engine,
	playerService *service.PlayerService,
	statsService *service.StatsService,
) *MafiaHandler {
	return &MafiaHandler{
		cfg:           cfg,
		lobby:         lobby,
		engine:        engine,
		playerService: playerService,
		statsService:  statsService,
	}
}

// displayName picks the best human-readable name for a Telegram sender.
func displayName(sender *tele.User) string {
	name := strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	if name != "" {
		return name
	}
	if sender.Username != "" {
		return "@" + sender.Username
	}
	return fmt.Sprintf("player %d", sender.ID)
}

// ensureRegistered registers the sender in the player directory before
// any game operation touches them.
func (h *MafiaHandler) ensureRegistered(ctx context.Context, sender *tele.User) {
	if _, _, err := h.playerService.EnsureUser(ctx, sender.ID, sender.Username, displayName(sender)); err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to register player")
	}
}

// HandleMafia handles the /mafia command: opens a lobby in a group chat.
func (h *MafiaHandler) HandleMafia(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	if chat.Type == tele.ChatPrivate {
		return c.Reply("🎭 Mafia is a group game. Add me to a group and run /mafia there.")
	}

	h.ensureRegistered(ctx, sender)

	err := h.lobby.OpenLobby(ctx, chat.ID, sender.ID, displayName(sender))
	switch {
	case errors.Is(err, mafia.ErrGameActive):
		return c.Reply("⚠️ A game is already running in this chat.")
	case err != nil:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to open lobby")
		return c.Reply("❌ Could not open a lobby, try again later.")
	}
	return nil
}

// HandleJoin handles the /join command.
func (h *MafiaHandler) HandleJoin(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil || chat.Type == tele.ChatPrivate {
		return nil
	}

	h.ensureRegistered(ctx, sender)
	return h.replyJoinResult(c, h.lobby.Join(ctx, chat.ID, sender.ID, displayName(sender)))
}

func (h *MafiaHandler) replyJoinResult(c tele.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mafia.ErrGameNotFound):
		return c.Reply("ℹ️ No open lobby here. Start one with /mafia.")
	case errors.Is(err, mafia.ErrLobbyClosed):
		return c.Reply("⏳ The game has already started.")
	case errors.Is(err, mafia.ErrLobbyFull):
		return c.Reply("🈵 The lobby is full.")
	case errors.Is(err, mafia.ErrAlreadyJoined):
		return c.Reply("✋ You are already in.")
	default:
		log.Error().Err(err).Msg("Failed to join lobby")
		return c.Reply("❌ Could not join, try again later.")
	}
}

// HandleLeave handles the /leave command.
func (h *MafiaHandler) HandleLeave(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil || chat.Type == tele.ChatPrivate {
		return nil
	}

	err := h.lobby.Leave(ctx, chat.ID, sender.ID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mafia.ErrGameNotFound), errors.Is(err, mafia.ErrNotInGame):
		return c.Reply("ℹ️ You are not in a lobby here.")
	case errors.Is(err, mafia.ErrLobbyClosed):
		return c.Reply("⏳ The game has already started, no leaving now.")
	case errors.Is(err, mafia.ErrCreatorCannotLeave):
		return c.Reply("👑 The creator cannot leave. Use /cancel to dissolve the lobby.")
	default:
		log.Error().Err(err).Msg("Failed to leave lobby")
		return c.Reply("❌ Could not leave, try again later.")
	}
}

// HandleCancel handles the /cancel command.
func (h *MafiaHandler) HandleCancel(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil || chat.Type == tele.ChatPrivate {
		return nil
	}

	err := h.lobby.Cancel(ctx, chat.ID, sender.ID, h.cfg.IsAdmin(sender.ID))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mafia.ErrGameNotFound):
		return c.Reply("ℹ️ Nothing to cancel.")
	case errors.Is(err, mafia.ErrLobbyClosed):
		return c.Reply("⏳ The game has already started and cannot be cancelled.")
	case errors.Is(err, mafia.ErrNotAuthorized):
		return c.Reply("🚫 Only the creator or an admin can cancel the lobby.")
	default:
		log.Error().Err(err).Msg("Failed to cancel lobby")
		return c.Reply("❌ Could not cancel, try again later.")
	}
}

// HandleAutostart handles the /autostart command: the creator pauses or
// resumes the lobby countdown.
func (h *MafiaHandler) HandleAutostart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil || chat.Type == tele.ChatPrivate {
		return nil
	}

	running, err := h.lobby.ToggleAutostart(ctx, chat.ID, sender.ID)
	switch {
	case errors.Is(err, mafia.ErrGameNotFound):
		return c.Reply("ℹ️ No open lobby here.")
	case errors.Is(err, mafia.ErrLobbyClosed):
		return c.Reply("⏳ The game has already started.")
	case errors.Is(err, mafia.ErrNotAuthorized):
		return c.Reply("👑 Only the creator can pause the countdown.")
	case err != nil:
		log.Error().Err(err).Msg("Failed to toggle autostart")
		return c.Reply("❌ Something went wrong, try again later.")
	}

	if running {
		return c.Reply("▶️ Countdown resumed.")
	}
	return c.Reply("⏸ Countdown paused. Run /autostart again to resume, or /forcestart to begin now.")
}

// HandleForceStart handles the /forcestart command.
func (h *MafiaHandler) HandleForceStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil || chat.Type == tele.ChatPrivate {
		return nil
	}

	err := h.lobby.ForceStart(ctx, chat.ID, sender.ID, h.cfg.IsAdmin(sender.ID))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mafia.ErrGameNotFound):
		return c.Reply("ℹ️ No open lobby here. Start one with /mafia.")
	case errors.Is(err, mafia.ErrLobbyClosed):
		return c.Reply("⏳ The game has already started.")
	case errors.Is(err, mafia.ErrNotAuthorized):
		return c.Reply("👑 Only the creator or an admin can force the start.")
	case errors.Is(err, mafia.ErrNotEnoughPlayers):
		return c.Reply(fmt.Sprintf("👥 Not enough players yet, need at least %d.", h.cfg.Mafia.MinPlayers))
	case errors.Is(err, mafia.ErrUnreachablePlayers):
		// The lobby already announced who is unreachable.
		return nil
	default:
		log.Error().Err(err).Msg("Failed to force start")
		return c.Reply("❌ Could not start the game, try again later.")
	}
}

// HandleStats handles the /mafiastats command.
func (h *MafiaHandler) HandleStats(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	h.ensureRegistered(ctx, sender)

	player, err := h.statsService.PlayerStats(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load stats")
		return c.Reply("❌ Could not load your stats, try again later.")
	}

	total := player.Wins + player.Losses
	return c.Reply(fmt.Sprintf(
		"🎭 %s\n\nGames: %d\nWins: %d\nLosses: %d\nReputation: %d",
		displayName(sender), total, player.Wins, player.Losses, player.Reputation,
	))
}

// HandleCallback routes mafia inline keyboard callbacks: lobby joins,
// night action picks, nominations and lynch ballots.
func (h *MafiaHandler) HandleCallback(c tele.Context) error {
	callback := c.Callback()
	sender := c.Sender()
	if callback == nil || sender == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")
	action, params := mafia.DecodeCallback(data)

	ctx := context.Background()

	switch action {
	case mafia.CallbackJoin:
		chat := c.Chat()
		if chat == nil {
			return nil
		}
		h.ensureRegistered(ctx, sender)
		if err := h.lobby.Join(ctx, chat.ID, sender.ID, displayName(sender)); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: joinFailureText(err)})
		}
		return c.Respond(&tele.CallbackResponse{Text: "✅ You are in!"})

	case mafia.CallbackAct:
		if len(params) != 3 {
			return c.Respond(&tele.CallbackResponse{Text: "Invalid action."})
		}
		chatID, err1 := strconv.ParseInt(params[0], 10, 64)
		kind, ok := mafia.ParseActionKind(params[1])
		targetID, err2 := strconv.ParseInt(params[2], 10, 64)
		if err1 != nil || !ok || err2 != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Invalid action."})
		}
		if err := h.engine.NightAction(ctx, chatID, sender.ID, kind, targetID); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: actionFailureText(err)})
		}
		return c.Respond(&tele.CallbackResponse{Text: "🌙 Choice recorded."})

	case mafia.CallbackNominate:
		if len(params) != 2 {
			return c.Respond(&tele.CallbackResponse{Text: "Invalid vote."})
		}
		chatID, err1 := strconv.ParseInt(params[0], 10, 64)
		targetID, err2 := strconv.ParseInt(params[1], 10, 64)
		if err1 != nil || err2 != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Invalid vote."})
		}
		if err := h.engine.Nominate(ctx, chatID, sender.ID, targetID); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: actionFailureText(err)})
		}
		return c.Respond(&tele.CallbackResponse{Text: "🗳 Nomination recorded."})

	case mafia.CallbackLynch:
		if len(params) != 2 {
			return c.Respond(&tele.CallbackResponse{Text: "Invalid vote."})
		}
		chatID, err := strconv.ParseInt(params[0], 10, 64)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Invalid vote."})
		}
		inFavor := params[1] == "yes"
		if err := h.engine.LynchVote(ctx, chatID, sender.ID, inFavor); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: actionFailureText(err)})
		}
		return c.Respond(&tele.CallbackResponse{Text: "🗳 Vote recorded."})
	}

	return nil
}

func joinFailureText(err error) string {
	switch {
	case errors.Is(err, mafia.ErrGameNotFound):
		return "No open lobby."
	case errors.Is(err, mafia.ErrLobbyClosed):
		return "The game has already started."
	case errors.Is(err, mafia.ErrLobbyFull):
		return "The lobby is full."
	case errors.Is(err, mafia.ErrAlreadyJoined):
		return "You are already in."
	default:
		return "Could not join, try again."
	}
}

func actionFailureText(err error) string {
	switch {
	case errors.Is(err, mafia.ErrGameNotFound), errors.Is(err, mafia.ErrVotingClosed):
		return "This vote is no longer open."
	case errors.Is(err, mafia.ErrNotInGame), errors.Is(err, mafia.ErrNotAuthorized):
		return "You cannot vote here."
	case errors.Is(err, mafia.ErrInvalidTarget):
		return "Invalid target."
	case errors.Is(err, mafia.ErrSelfProtectSpent):
		return "You already protected yourself once."
	default:
		return "Something went wrong, try again."
	}
}
