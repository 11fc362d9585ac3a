// Package mafia implements the Mafia party game: lobby management, role
// distribution, the night/day phase state machine, vote resolution, win
// conditions and the group-chat moderation gate.
package mafia

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-mafia-bot/internal/config"
	"telegram-mafia-bot/internal/model"
)

// Team identifies the winning side of a finished game.
type Team int

const (
	TeamNone Team = iota
	TeamMafia
	TeamTown
)

// maxInactiveNights is the strike count that triggers an AFK removal.
const maxInactiveNights = 2

// Engine is the round engine: it owns every game from role distribution
// to teardown, advancing the phase state machine on timers and ballots.
// All per-game work happens under the session lock; different chats never
// block each other.
type Engine struct {
	registry *Registry
	store    Store
	notifier Notifier
	ledger   Ledger
	stats    Stats
	cfg      *config.MafiaConfig

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewEngine creates a round engine.
func NewEngine(registry *Registry, store Store, notifier Notifier, ledger Ledger, stats Stats, cfg *config.MafiaConfig) *Engine {
	return &Engine{
		registry: registry,
		store:    store,
		notifier: notifier,
		ledger:   ledger,
		stats:    stats,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// schedule arms a phase timer for the session. The closure captures the
// current generation; if the game transitioned or vanished before the
// timer fires, the callback backs off instead of acting on stale state.
// Caller holds the session lock.
func (e *Engine) schedule(s *Session, d time.Duration, fn func(context.Context, *Session)) {
	gen := s.gen
	chatID := s.ChatID

	t := time.AfterFunc(d, func() {
		sess, ok := e.registry.Get(chatID)
		if !ok {
			log.Debug().Int64("chat_id", chatID).Msg("Timer fired for a vanished game")
			return
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.gen != gen {
			return
		}
		fn(context.Background(), sess)
	})
	s.addTimer(t)
}

// setPhase transitions the session to a new phase: cancels outstanding
// timers, bumps the generation and persists the new label. Store failures
// here are logged, not raised — no actor is waiting on a timer-driven
// transition. Caller holds the session lock.
func (e *Engine) setPhase(ctx context.Context, s *Session, phase Phase) {
	s.cancelTimers()
	s.gen++
	s.phase = phase

	if err := e.store.UpdatePhase(ctx, s.ChatID, phase.String(), phase.Round); err != nil {
		log.Error().Err(err).Int64("chat_id", s.ChatID).Str("phase", phase.String()).Msg("Failed to persist phase")
	}
}

// announce sends a group message, logging delivery failures.
func (e *Engine) announce(s *Session, text string) {
	if _, err := e.notifier.SendGroup(s.ChatID, text); err != nil {
		log.Warn().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to send group announcement")
	}
}

// whisper sends a private message, logging delivery failures. After the
// pre-start reachability probe, a private delivery failure never affects
// game progression.
func (e *Engine) whisper(userID int64, text string) {
	if err := e.notifier.SendPrivate(userID, text); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to send private message")
	}
}

// startGame runs role distribution and opens the first night. Called by
// the lobby manager with the session lock held, after the reachability
// probe has passed.
func (e *Engine) startGame(ctx context.Context, s *Session) error {
	if err := e.assignRoles(ctx, s); err != nil {
		return err
	}
	e.notifyRoles(s)
	e.beginNight(ctx, s, 1)
	return nil
}

// assignRoles shuffles the roster against a shuffled role deck and
// persists every assignment. Each role is assigned exactly once per game.
func (e *Engine) assignRoles(ctx context.Context, s *Session) error {
	e.rngMu.Lock()
	deck, err := shuffledDeck(e.rng, len(s.players))
	if err != nil {
		e.rngMu.Unlock()
		return err
	}
	seats := make([]*Player, len(s.players))
	copy(seats, s.players)
	e.rng.Shuffle(len(seats), func(i, j int) {
		seats[i], seats[j] = seats[j], seats[i]
	})
	e.rngMu.Unlock()

	for i, p := range seats {
		p.Role = deck[i]
		if err := e.store.AssignRole(ctx, s.ChatID, p.ID, string(p.Role)); err != nil {
			return err
		}
	}

	log.Info().Int64("chat_id", s.ChatID).Int("players", len(s.players)).Msg("Roles assigned")
	return nil
}

// notifyRoles sends each player their role description. Mafia members
// additionally receive the team roster. Failures are logged and do not
// stop the game: deliverability was verified before the start.
func (e *Engine) notifyRoles(s *Session) {
	var team []*Player
	for _, p := range s.players {
		if p.Role.IsMafia() {
			team = append(team, p)
		}
	}

	for _, p := range s.players {
		text := p.Role.Description()
		if p.Role.IsMafia() {
			text += renderMafiaTeam(team)
		}
		e.whisper(p.ID, text)
	}
}

// kill marks a player dead, write-through to the store. Alive only ever
// transitions true to false.
func (e *Engine) kill(ctx context.Context, s *Session, p *Player) {
	p.Alive = false
	if err := e.store.MarkDead(ctx, s.ChatID, p.ID); err != nil {
		log.Error().Err(err).Int64("chat_id", s.ChatID).Int64("player_id", p.ID).Msg("Failed to persist death")
	}
}

// winner evaluates the win condition. Mafia domination (living mafia >=
// living town) takes precedence; a town with zero living mafia wins.
func (s *Session) winner() Team {
	mafia, town := s.countAlignment()
	if mafia > 0 && mafia >= town {
		return TeamMafia
	}
	if mafia == 0 {
		return TeamTown
	}
	return TeamNone
}

// finishGame settles a decided game: rewards, stats, the final report
// naming every role, and teardown of all durable and in-memory state.
// Caller holds the session lock.
func (e *Engine) finishGame(ctx context.Context, s *Session, winner Team) {
	s.cancelTimers()
	s.gen++
	s.phase = Phase{Kind: PhaseGameOver, Round: s.phase.Round}

	for _, p := range s.players {
		won := p.Role.IsMafia() == (winner == TeamMafia)
		if won {
			if err := e.ledger.Credit(ctx, p.ID, e.cfg.WinReward, model.TxTypeMafiaWin, "Mafia game won"); err != nil {
				log.Error().Err(err).Int64("player_id", p.ID).Msg("Failed to credit win reward")
			}
			if err := e.stats.RecordOutcome(ctx, p.ID, true, e.cfg.WinReputation); err != nil {
				log.Error().Err(err).Int64("player_id", p.ID).Msg("Failed to record win")
			}
		} else {
			if err := e.ledger.Credit(ctx, p.ID, e.cfg.LossReward, model.TxTypeMafiaLoss, "Mafia game lost"); err != nil {
				log.Error().Err(err).Int64("player_id", p.ID).Msg("Failed to credit consolation")
			}
			if err := e.stats.RecordOutcome(ctx, p.ID, false, e.cfg.LossReputation); err != nil {
				log.Error().Err(err).Int64("player_id", p.ID).Msg("Failed to record loss")
			}
		}
	}

	e.announce(s, renderFinalReport(winner, s.players))
	e.teardown(ctx, s)

	log.Info().Int64("chat_id", s.ChatID).Int("winner", int(winner)).Msg("Game finished")
}

// teardown removes every trace of the game: durable rows, the pinned
// announcement and the in-memory session. Caller holds the session lock.
func (e *Engine) teardown(ctx context.Context, s *Session) {
	s.cancelTimers()
	s.gen++

	if s.announceMsgID != 0 {
		if err := e.notifier.Unpin(s.ChatID, s.announceMsgID); err != nil {
			log.Debug().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to unpin announcement")
		}
	}
	if err := e.store.DeleteGame(ctx, s.ChatID); err != nil {
		log.Error().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to delete game")
	}
	e.registry.Remove(s.ChatID)
}

// ModerateGroupMessage is the per-message predicate consulted by the
// transport for every group message. Chats without an active game are
// always allowed. Senders outside the roster count as not alive.
func (e *Engine) ModerateGroupMessage(chatID, senderID int64, kind ContentKind) Verdict {
	s, ok := e.registry.Get(chatID)
	if !ok {
		return Allow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.player(senderID)
	alive := p != nil && p.Alive
	return Moderate(s.phase, alive, kind)
}

// Recover rebuilds sessions from the store after a restart. Durable
// role/alive/phase state survives; in-flight ballots do not, so the
// current voting round is re-entered from scratch. Lobbies cannot be
// resumed (their countdown is gone) and are cancelled.
func (e *Engine) Recover(ctx context.Context) error {
	games, err := e.store.ListGames(ctx)
	if err != nil {
		return err
	}

	for _, g := range games {
		phase, err := ParsePhase(g.Phase)
		if err != nil {
			log.Error().Err(err).Int64("chat_id", g.ChatID).Msg("Dropping game with unparseable phase")
			phase = Phase{Kind: PhaseGameOver}
		}

		if phase.Kind == PhaseLobby || phase.Kind == PhaseGameOver {
			if err := e.store.DeleteGame(ctx, g.ChatID); err != nil {
				log.Error().Err(err).Int64("chat_id", g.ChatID).Msg("Failed to delete stale game")
			}
			if phase.Kind == PhaseLobby {
				if _, err := e.notifier.SendGroup(g.ChatID, "♻️ The bot restarted; the open lobby was cancelled. Start a new one with /mafia."); err != nil {
					log.Debug().Err(err).Int64("chat_id", g.ChatID).Msg("Failed to announce lobby cancellation")
				}
			}
			continue
		}

		rows, err := e.store.ListPlayers(ctx, g.ChatID)
		if err != nil {
			log.Error().Err(err).Int64("chat_id", g.ChatID).Msg("Failed to load roster, skipping recovery")
			continue
		}

		s := newSession(g.ChatID, g.CreatorID)
		s.started = true
		s.phase = phase
		s.announceMsgID = g.AnnounceMsgID
		for _, row := range rows {
			s.players = append(s.players, &Player{
				ID:              row.PlayerID,
				Name:            row.DisplayName,
				Role:            Role(row.Role),
				Alive:           row.Alive,
				InactiveNights:  row.InactiveNights,
				SelfProtectUsed: row.SelfProtectUsed,
			})
		}
		e.registry.Put(s)

		s.mu.Lock()
		switch phase.Kind {
		case PhaseNight:
			e.beginNight(ctx, s, phase.Round)
		case PhaseMorningReport, PhaseLastWord, PhaseDayDiscussion:
			e.beginDayDiscussion(ctx, s)
		default:
			// Nomination and lynch ballots were lost; rerun the
			// nomination round for the same day.
			e.beginNomination(ctx, s)
		}
		s.mu.Unlock()

		log.Info().Int64("chat_id", g.ChatID).Str("phase", phase.String()).Msg("Recovered game")
	}

	return nil
}
