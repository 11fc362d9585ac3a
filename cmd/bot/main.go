// Package main is the entry point for the Telegram mafia bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-mafia-bot/internal/bot"
	"telegram-mafia-bot/internal/config"
	"telegram-mafia-bot/internal/pkg/db"
	"telegram-mafia-bot/internal/pkg/lock"
	"telegram-mafia-bot/internal/repository"
	"telegram-mafia-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	gameRepo := repository.NewGameRepository(dbPool.Pool)

	// Initialize user lock and services
	userLock := lock.NewUserLock()
	playerService := service.NewPlayerService(playerRepo, txRepo)
	ledgerService := service.NewLedgerService(playerRepo, txRepo, userLock)
	statsService := service.NewStatsService(playerRepo)

	// Initialize bot
	deps := &bot.Dependencies{
		Config:        cfg,
		Store:         gameRepo,
		PlayerService: playerService,
		LedgerService: ledgerService,
		StatsService:  statsService,
		UserLock:      userLock,
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Rebuild in-flight games from the store before polling starts.
	if err := telegramBot.Recover(ctx); err != nil {
		log.Error().Err(err).Msg("Game recovery failed")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create players table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 1000,
			wins INT NOT NULL DEFAULT 0,
			losses INT NOT NULL DEFAULT 0,
			reputation INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_balance ON players(balance DESC);
		CREATE INDEX IF NOT EXISTS idx_players_reputation ON players(reputation DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: players table created")

	// Migration 2: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES players(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	// Migration 3: Create games table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			chat_id BIGINT PRIMARY KEY,
			creator_id BIGINT NOT NULL,
			phase VARCHAR(50) NOT NULL,
			round INT NOT NULL DEFAULT 0,
			announce_msg_id INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: games table created")

	// Migration 4: Create game_players roster table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_players (
			chat_id BIGINT NOT NULL REFERENCES games(chat_id) ON DELETE CASCADE,
			player_id BIGINT NOT NULL,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			role VARCHAR(50) NOT NULL DEFAULT '',
			alive BOOLEAN NOT NULL DEFAULT TRUE,
			inactive_nights INT NOT NULL DEFAULT 0,
			self_protect_used BOOLEAN NOT NULL DEFAULT FALSE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (chat_id, player_id)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: game_players table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
