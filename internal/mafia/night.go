package mafia

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// beginNight opens night round. All group coordination is silenced by the
// moderation gate; role holders get private target menus. Caller holds
// the session lock.
func (e *Engine) beginNight(ctx context.Context, s *Session, round int) {
	e.setPhase(ctx, s, Phase{Kind: PhaseNight, Round: round})
	s.resetNightBallots()
	s.lastWordFrom = 0

	e.announce(s, renderNightStart(round))
	e.sendNightMenus(s)

	e.schedule(s, e.cfg.NightDuration(), e.resolveNight)
}

// sendNightMenus delivers the private target pickers to every living
// role holder. Mafia cannot target teammates; the doctor's own name only
// appears while the one-time self-protection is unspent.
func (e *Engine) sendNightMenus(s *Session) {
	alive := s.alivePlayers()

	for _, p := range alive {
		switch p.Role {
		case RoleDon, RoleMafia:
			var targets []*Player
			for _, t := range alive {
				if !t.Role.IsMafia() {
					targets = append(targets, t)
				}
			}
			e.sendMenu(p.ID, "🔪 Choose tonight's victim:", NightActionKeyboard(s.ChatID, CallbackKill, targets))
		case RoleCommissioner:
			var targets []*Player
			for _, t := range alive {
				if t.ID != p.ID {
					targets = append(targets, t)
				}
			}
			e.sendMenu(p.ID, "🕵️ Choose who to investigate:", NightActionKeyboard(s.ChatID, CallbackProbe, targets))
		case RoleDoctor:
			var targets []*Player
			for _, t := range alive {
				if t.ID == p.ID && p.SelfProtectUsed {
					continue
				}
				targets = append(targets, t)
			}
			e.sendMenu(p.ID, "💉 Choose who to protect:", NightActionKeyboard(s.ChatID, CallbackHeal, targets))
		}
	}
}

// sendMenu sends a private keyboard, logging delivery failures.
func (e *Engine) sendMenu(userID int64, text string, menu *tele.ReplyMarkup) {
	if err := e.notifier.SendPrivateMenu(userID, text, menu); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to send private menu")
	}
}

// NightAction records a night ballot for the acting player. Ballots are
// independent fire-and-acknowledge writes; casting again before the night
// resolves replaces the previous target.
func (e *Engine) NightAction(ctx context.Context, chatID, actorID int64, kind NightActionKind, targetID int64) error {
	s, ok := e.registry.Get(chatID)
	if !ok {
		return ErrGameNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Kind != PhaseNight {
		return ErrVotingClosed
	}

	actor := s.player(actorID)
	if actor == nil {
		return ErrNotInGame
	}
	allowed, ok := actionForRole(actor.Role)
	if !actor.Alive || !ok || allowed != kind {
		return ErrNotAuthorized
	}

	target := s.player(targetID)
	if target == nil || !target.Alive {
		return ErrInvalidTarget
	}

	switch kind {
	case ActionEliminate:
		if target.Role.IsMafia() {
			return ErrInvalidTarget
		}
		s.eliminateProposals[actorID] = targetID
	case ActionInvestigate:
		if targetID == actorID {
			return ErrInvalidTarget
		}
		s.investigations[actorID] = targetID
	case ActionProtect:
		if targetID == actorID {
			if actor.SelfProtectUsed {
				return ErrSelfProtectSpent
			}
			actor.SelfProtectUsed = true
			if err := e.store.MarkSelfProtectUsed(ctx, chatID, actorID); err != nil {
				log.Error().Err(err).Int64("chat_id", chatID).Int64("player_id", actorID).Msg("Failed to persist self-protection use")
			}
		}
		s.protections[actorID] = targetID
	}

	s.acted[actorID] = true
	return nil
}

// resolveNight drains the night ballots: the mafia's target (don's word
// is final), the doctor's save, the commissioner's reveal, AFK strikes,
// the win check and the morning report. Runs with the session lock held
// when the night timer fires.
func (e *Engine) resolveNight(ctx context.Context, s *Session) {
	round := s.phase.Round

	target, hasTarget := mafiaTarget(s.eliminateProposals, s.don())

	protected := make(map[int64]bool, len(s.protections))
	for _, t := range s.protections {
		protected[t] = true
	}

	var killed *Player
	saved := false
	if hasTarget {
		if protected[target] {
			saved = true
		} else if victim := s.player(target); victim != nil && victim.Alive {
			e.kill(ctx, s, victim)
			killed = victim
		}
	}

	for actorID, targetID := range s.investigations {
		if t := s.player(targetID); t != nil {
			e.whisper(actorID, renderInvestigationResult(t))
		}
	}

	// Inactivity strikes. The counter is cumulative and never resets on
	// an active night; two inactive nights anywhere in the game force a
	// removal.
	var afkRemoved []*Player
	for _, p := range s.players {
		if !p.Alive || !p.Role.HasNightAction() || s.acted[p.ID] {
			continue
		}
		p.InactiveNights++
		if err := e.store.SetInactiveNights(ctx, s.ChatID, p.ID, p.InactiveNights); err != nil {
			log.Error().Err(err).Int64("chat_id", s.ChatID).Int64("player_id", p.ID).Msg("Failed to persist inactivity strike")
		}
		if p.InactiveNights >= maxInactiveNights {
			e.kill(ctx, s, p)
			afkRemoved = append(afkRemoved, p)
		}
	}

	if winner := s.winner(); winner != TeamNone {
		e.finishGame(ctx, s, winner)
		return
	}

	e.setPhase(ctx, s, Phase{Kind: PhaseMorningReport, Round: round})
	e.announce(s, renderMorningReport(round, afkRemoved, killed, saved, s.alivePlayers()))

	if killed != nil {
		e.beginLastWord(ctx, s, killed)
		return
	}
	e.beginDayDiscussion(ctx, s)
}

// beginLastWord opens the 30-second last-word window for a night victim.
// Day discussion cannot begin until the window closes, by timeout or by
// the victim's single relayed message.
func (e *Engine) beginLastWord(ctx context.Context, s *Session, victim *Player) {
	e.setPhase(ctx, s, Phase{Kind: PhaseLastWord, Round: s.phase.Round})
	s.lastWordFrom = victim.ID

	e.whisper(victim.ID, renderLastWordPrompt(e.cfg.LastWordSeconds))

	e.schedule(s, e.cfg.LastWordDuration(), func(ctx context.Context, s *Session) {
		s.lastWordFrom = 0
		e.beginDayDiscussion(ctx, s)
	})
}

// RelayLastWord relays a private message from a freshly eliminated player
// to their game's group chat and closes the last-word window early. It
// returns false when no game is waiting on this user.
func (e *Engine) RelayLastWord(ctx context.Context, userID int64, text string) bool {
	handled := false
	e.registry.Each(func(s *Session) bool {
		s.mu.Lock()
		if s.phase.Kind == PhaseLastWord && s.lastWordFrom == userID {
			if p := s.player(userID); p != nil {
				e.announce(s, renderLastWord(p.Name, text))
			}
			s.lastWordFrom = 0
			e.beginDayDiscussion(ctx, s)
			handled = true
			s.mu.Unlock()
			return false
		}
		s.mu.Unlock()
		return true
	})
	return handled
}
