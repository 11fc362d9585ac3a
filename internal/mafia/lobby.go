package mafia

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-mafia-bot/internal/config"
)

// LobbyManager drives a game from creation to the start sequence: roster
// membership, the countdown, the reachability probe and the handoff to
// the round engine. It owns the game only while the phase is lobby.
type LobbyManager struct {
	registry *Registry
	store    Store
	notifier Notifier
	engine   *Engine
	cfg      *config.MafiaConfig
}

// NewLobbyManager creates a lobby manager sharing the engine's registry
// and store.
func NewLobbyManager(registry *Registry, store Store, notifier Notifier, engine *Engine, cfg *config.MafiaConfig) *LobbyManager {
	return &LobbyManager{
		registry: registry,
		store:    store,
		notifier: notifier,
		engine:   engine,
		cfg:      cfg,
	}
}

// OpenLobby creates a game for the chat with the creator as the first
// roster member, publishes the pinned announcement and arms the
// countdown. The registry guarantees at most one game per chat.
func (l *LobbyManager) OpenLobby(ctx context.Context, chatID, creatorID int64, creatorName string) error {
	s, created := l.registry.Create(chatID, creatorID)
	if !created {
		return ErrGameActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := l.store.CreateGame(ctx, chatID, creatorID); err != nil {
		l.registry.Remove(chatID)
		return fmt.Errorf("failed to create game: %w", err)
	}
	if err := l.store.AddPlayer(ctx, chatID, creatorID, creatorName); err != nil {
		l.abortLobby(ctx, s)
		return fmt.Errorf("failed to enroll creator: %w", err)
	}

	s.players = []*Player{{ID: creatorID, Name: creatorName, Alive: true}}
	s.countdownEnd = time.Now().Add(l.cfg.LobbyDuration())

	l.publishAnnouncement(ctx, s)
	l.engine.schedule(s, l.cfg.LobbyDuration(), func(ctx context.Context, s *Session) {
		if err := l.startSequence(ctx, s, false); err != nil {
			log.Info().Err(err).Int64("chat_id", s.ChatID).Msg("Countdown start aborted")
		}
	})

	log.Info().Int64("chat_id", chatID).Int64("creator_id", creatorID).Msg("Lobby opened")
	return nil
}

// Join enrolls a player into an open lobby.
func (l *LobbyManager) Join(ctx context.Context, chatID, userID int64, name string) error {
	s, ok := l.registry.Get(chatID)
	if !ok {
		return ErrGameNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Kind != PhaseLobby || s.started {
		return ErrLobbyClosed
	}
	if len(s.players) >= l.cfg.MaxPlayers {
		return ErrLobbyFull
	}
	if s.player(userID) != nil {
		return ErrAlreadyJoined
	}

	if err := l.store.AddPlayer(ctx, chatID, userID, name); err != nil {
		return fmt.Errorf("failed to enroll player: %w", err)
	}
	s.players = append(s.players, &Player{ID: userID, Name: name, Alive: true})

	l.republishAnnouncement(s)
	return nil
}

// Leave removes a player from an open lobby. The creator cannot leave;
// they must cancel.
func (l *LobbyManager) Leave(ctx context.Context, chatID, userID int64) error {
	s, ok := l.registry.Get(chatID)
	if !ok {
		return ErrGameNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Kind != PhaseLobby || s.started {
		return ErrLobbyClosed
	}
	if userID == s.CreatorID {
		return ErrCreatorCannotLeave
	}
	if s.player(userID) == nil {
		return ErrNotInGame
	}

	if err := l.store.RemovePlayer(ctx, chatID, userID); err != nil {
		return fmt.Errorf("failed to remove player: %w", err)
	}
	for i, p := range s.players {
		if p.ID == userID {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}

	l.republishAnnouncement(s)
	return nil
}

// Cancel tears down an open lobby. Only the creator or a privileged
// actor may cancel.
func (l *LobbyManager) Cancel(ctx context.Context, chatID, actorID int64, privileged bool) error {
	s, ok := l.registry.Get(chatID)
	if !ok {
		return ErrGameNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if actorID != s.CreatorID && !privileged {
		return ErrNotAuthorized
	}
	if s.phase.Kind != PhaseLobby || s.started {
		return ErrLobbyClosed
	}

	l.abortLobby(ctx, s)
	l.engine.announce(s, "🚪 The game was cancelled.")
	return nil
}

// ToggleAutostart pauses or resumes the countdown without resetting the
// roster. Creator only. Returns the new countdown state.
func (l *LobbyManager) ToggleAutostart(ctx context.Context, chatID, actorID int64) (bool, error) {
	s, ok := l.registry.Get(chatID)
	if !ok {
		return false, ErrGameNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if actorID != s.CreatorID {
		return false, ErrNotAuthorized
	}
	if s.phase.Kind != PhaseLobby || s.started {
		return false, ErrLobbyClosed
	}

	if s.autostart {
		// Pause: remember the remaining time and disarm the countdown.
		s.pausedRemaining = time.Until(s.countdownEnd)
		if s.pausedRemaining < 0 {
			s.pausedRemaining = 0
		}
		s.gen++
		s.cancelTimers()
		s.autostart = false
	} else {
		s.autostart = true
		s.countdownEnd = time.Now().Add(s.pausedRemaining)
		l.engine.schedule(s, s.pausedRemaining, func(ctx context.Context, s *Session) {
			if err := l.startSequence(ctx, s, false); err != nil {
				log.Info().Err(err).Int64("chat_id", s.ChatID).Msg("Countdown start aborted")
			}
		})
	}

	l.republishAnnouncement(s)
	return s.autostart, nil
}

// ForceStart runs the start sequence immediately. Creator or privileged
// actors only. A concurrent countdown expiry and force start converge on
// the same guarded sequence; exactly one of them proceeds.
func (l *LobbyManager) ForceStart(ctx context.Context, chatID, actorID int64, privileged bool) error {
	s, ok := l.registry.Get(chatID)
	if !ok {
		return ErrGameNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if actorID != s.CreatorID && !privileged {
		return ErrNotAuthorized
	}

	return l.startSequence(ctx, s, true)
}

// startSequence is the single converging path for both the countdown and
// a manual force start: minimum roster check, the reachability probe for
// every member, then the handoff to role distribution. The started flag
// is checked-and-set under the session lock, so the sequence executes at
// most once per game.
func (l *LobbyManager) startSequence(ctx context.Context, s *Session, manual bool) error {
	if s.started || s.phase.Kind != PhaseLobby {
		return ErrLobbyClosed
	}

	if len(s.players) < l.cfg.MinPlayers {
		if manual {
			return ErrNotEnoughPlayers
		}
		l.engine.announce(s, fmt.Sprintf("😕 Not enough players (%d of %d needed). The game is cancelled.", len(s.players), l.cfg.MinPlayers))
		l.abortLobby(ctx, s)
		return nil
	}

	s.started = true

	// Hard precondition: every member must be privately reachable, or
	// secret role information could not be delivered.
	var unreachable []string
	for _, p := range s.players {
		if err := l.notifier.SendPrivate(p.ID, "🎬 The game is starting! Your role arrives in a moment."); err != nil {
			log.Warn().Err(err).Int64("chat_id", s.ChatID).Int64("player_id", p.ID).Msg("Player unreachable at start")
			unreachable = append(unreachable, p.Name)
		}
	}
	if len(unreachable) > 0 {
		l.engine.announce(s, renderUnreachable(unreachable))
		l.abortLobby(ctx, s)
		return ErrUnreachablePlayers
	}

	if err := l.engine.startGame(ctx, s); err != nil {
		log.Error().Err(err).Int64("chat_id", s.ChatID).Msg("Role distribution failed")
		l.engine.announce(s, "💥 The game could not be started. Please try again.")
		l.abortLobby(ctx, s)
		return err
	}

	log.Info().Int64("chat_id", s.ChatID).Int("players", len(s.players)).Bool("manual", manual).Msg("Game started")
	return nil
}

// abortLobby tears the game down before it ever started.
func (l *LobbyManager) abortLobby(ctx context.Context, s *Session) {
	l.engine.teardown(ctx, s)
}

// publishAnnouncement sends and pins the lobby roster message. Failures
// are cosmetic: the next roster change republishes.
func (l *LobbyManager) publishAnnouncement(ctx context.Context, s *Session) {
	msgID, err := l.notifier.SendGroupMenu(s.ChatID, l.renderLobbyState(s), JoinKeyboard())
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to publish lobby announcement")
		return
	}
	s.announceMsgID = msgID

	if err := l.notifier.Pin(s.ChatID, msgID); err != nil {
		log.Debug().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to pin lobby announcement")
	}
	if err := l.store.SetAnnounceMessage(ctx, s.ChatID, msgID); err != nil {
		log.Debug().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to persist announcement id")
	}
}

// republishAnnouncement edits the pinned roster message in place.
func (l *LobbyManager) republishAnnouncement(s *Session) {
	if s.announceMsgID == 0 {
		return
	}
	if err := l.notifier.Edit(s.ChatID, s.announceMsgID, l.renderLobbyState(s), JoinKeyboard()); err != nil {
		log.Debug().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to edit lobby announcement")
	}
}

func (l *LobbyManager) renderLobbyState(s *Session) string {
	remaining := time.Until(s.countdownEnd)
	if !s.autostart {
		remaining = s.pausedRemaining
	}
	if remaining < 0 {
		remaining = 0
	}
	return renderLobby(s.players, remaining, s.autostart, l.cfg.MinPlayers, l.cfg.MaxPlayers)
}
