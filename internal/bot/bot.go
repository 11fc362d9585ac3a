package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-mafia-bot/internal/config"
	"telegram-mafia-bot/internal/handler"
	"telegram-mafia-bot/internal/mafia"
	"telegram-mafia-bot/internal/pkg/lock"
	"telegram-mafia-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot    *tele.Bot
	cfg    *config.Config
	engine *mafia.Engine
	lobby  *mafia.LobbyManager

	// Handlers
	mafiaHandler   *handler.MafiaHandler
	accountHandler *handler.AccountHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds everything the bot needs that is built outside it.
// The engine and lobby are built inside New because they need the
// Telegram notifier, which needs the telebot instance.
type Dependencies struct {
	Config        *config.Config
	Store         mafia.Store
	PlayerService *service.PlayerService
	LedgerService *service.LedgerService
	StatsService  *service.StatsService
	UserLock      *lock.UserLock
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	notifier := NewTeleNotifier(teleBot)
	registry := mafia.NewRegistry()
	engine := mafia.NewEngine(registry, deps.Store, notifier, deps.LedgerService, deps.StatsService, &deps.Config.Mafia)
	lobby := mafia.NewLobbyManager(registry, deps.Store, notifier, engine, &deps.Config.Mafia)

	b := &Bot{
		bot:    teleBot,
		cfg:    deps.Config,
		engine: engine,
		lobby:  lobby,
	}

	b.mafiaHandler = handler.NewMafiaHandler(deps.Config, lobby, engine, deps.PlayerService, deps.StatsService)
	b.accountHandler = handler.NewAccountHandler(deps.PlayerService, deps.LedgerService, deps.UserLock)
	b.adminHandler = handler.NewAdminHandler(deps.LedgerService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(RecoveryMiddleware())
}

// registerHandlers registers all command, callback and message handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/top", b.accountHandler.HandleTop)

	// Game handlers
	b.bot.Handle("/mafia", b.mafiaHandler.HandleMafia)
	b.bot.Handle("/join", b.mafiaHandler.HandleJoin)
	b.bot.Handle("/leave", b.mafiaHandler.HandleLeave)
	b.bot.Handle("/cancel", b.mafiaHandler.HandleCancel)
	b.bot.Handle("/autostart", b.mafiaHandler.HandleAutostart)
	b.bot.Handle("/forcestart", b.mafiaHandler.HandleForceStart)
	b.bot.Handle("/mafiastats", b.mafiaHandler.HandleStats)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_add", b.adminHandler.HandleAdminAdd)
	adminGroup.Handle("/admin_sub", b.adminHandler.HandleAdminSub)

	// Inline keyboard callbacks
	b.bot.Handle(tele.OnCallback, b.mafiaHandler.HandleCallback)

	// Free-form messages: phase moderation in groups, last words in
	// private chat.
	b.bot.Handle(tele.OnText, b.handleText)
	for _, event := range []string{
		tele.OnPhoto, tele.OnVideo, tele.OnAudio, tele.OnVoice,
		tele.OnSticker, tele.OnAnimation, tele.OnDocument,
		tele.OnVideoNote, tele.OnDice, tele.OnLocation, tele.OnContact,
	} {
		b.bot.Handle(event, b.handleNonText)
	}
}

// handleText routes plain text: group text runs through the phase
// moderation gate, private text may be a dying player's last words.
func (b *Bot) handleText(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	if chat.Type == tele.ChatPrivate {
		b.engine.RelayLastWord(context.Background(), sender.ID, c.Text())
		return nil
	}

	return b.moderate(c, mafia.ContentText)
}

// handleNonText runs every non-text group message through the phase
// moderation gate.
func (b *Bot) handleNonText(c tele.Context) error {
	chat := c.Chat()
	if chat == nil || chat.Type == tele.ChatPrivate {
		return nil
	}
	return b.moderate(c, mafia.ContentOther)
}

func (b *Bot) moderate(c tele.Context, kind mafia.ContentKind) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	if b.engine.ModerateGroupMessage(chat.ID, sender.ID, kind) == mafia.Delete {
		if err := c.Delete(); err != nil {
			log.Warn().Err(err).
				Int64("chat_id", chat.ID).
				Int64("user_id", sender.ID).
				Msg("Failed to delete moderated message")
		}
	}
	return nil
}

// Recover rebuilds in-flight games from the durable store, used once at
// startup before polling begins.
func (b *Bot) Recover(ctx context.Context) error {
	return b.engine.Recover(ctx)
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}
