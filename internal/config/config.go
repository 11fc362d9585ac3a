// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Mafia     MafiaConfig     `mapstructure:"mafia"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// MafiaConfig holds all mafia game tuning. Every timer and threshold is
// external configuration so deployments can pace games differently.
type MafiaConfig struct {
	LobbySeconds      int   `mapstructure:"lobby_seconds"`
	MinPlayers        int   `mapstructure:"min_players"`
	MaxPlayers        int   `mapstructure:"max_players"`
	NightSeconds      int   `mapstructure:"night_seconds"`
	LastWordSeconds   int   `mapstructure:"last_word_seconds"`
	DiscussionSeconds int   `mapstructure:"discussion_seconds"`
	NominationSeconds int   `mapstructure:"nomination_seconds"`
	LynchSeconds      int   `mapstructure:"lynch_seconds"`
	WinReward         int64 `mapstructure:"win_reward"`
	LossReward        int64 `mapstructure:"loss_reward"`
	WinReputation     int   `mapstructure:"win_reputation"`
	LossReputation    int   `mapstructure:"loss_reputation"`
}

// LobbyDuration returns the lobby countdown as a duration.
func (m *MafiaConfig) LobbyDuration() time.Duration {
	return time.Duration(m.LobbySeconds) * time.Second
}

// NightDuration returns the night phase length.
func (m *MafiaConfig) NightDuration() time.Duration {
	return time.Duration(m.NightSeconds) * time.Second
}

// LastWordDuration returns the last-word window length.
func (m *MafiaConfig) LastWordDuration() time.Duration {
	return time.Duration(m.LastWordSeconds) * time.Second
}

// DiscussionDuration returns the day discussion length.
func (m *MafiaConfig) DiscussionDuration() time.Duration {
	return time.Duration(m.DiscussionSeconds) * time.Second
}

// NominationDuration returns the nomination voting window length.
func (m *MafiaConfig) NominationDuration() time.Duration {
	return time.Duration(m.NominationSeconds) * time.Second
}

// LynchDuration returns the lynch voting window length.
func (m *MafiaConfig) LynchDuration() time.Duration {
	return time.Duration(m.LynchSeconds) * time.Second
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, MAFIA_NIGHT_SECONDS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Mafia.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects roster bounds the role balance table cannot serve.
func (m *MafiaConfig) validate() error {
	if m.MinPlayers < 5 {
		return fmt.Errorf("mafia.min_players must be at least 5, got %d", m.MinPlayers)
	}
	if m.MaxPlayers > 10 {
		return fmt.Errorf("mafia.max_players must be at most 10, got %d", m.MaxPlayers)
	}
	if m.MinPlayers > m.MaxPlayers {
		return fmt.Errorf("mafia.min_players %d exceeds mafia.max_players %d", m.MinPlayers, m.MaxPlayers)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mafiabot")
	v.SetDefault("database.name", "mafiabot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Mafia game defaults
	v.SetDefault("mafia.lobby_seconds", 120)
	v.SetDefault("mafia.min_players", 5)
	v.SetDefault("mafia.max_players", 10)
	v.SetDefault("mafia.night_seconds", 60)
	v.SetDefault("mafia.last_word_seconds", 30)
	v.SetDefault("mafia.discussion_seconds", 120)
	v.SetDefault("mafia.nomination_seconds", 60)
	v.SetDefault("mafia.lynch_seconds", 60)
	v.SetDefault("mafia.win_reward", 300)
	v.SetDefault("mafia.loss_reward", 50)
	v.SetDefault("mafia.win_reputation", 2)
	v.SetDefault("mafia.loss_reputation", -1)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
