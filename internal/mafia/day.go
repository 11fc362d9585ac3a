package mafia

import "context"

// beginDayDiscussion opens the free discussion window. The moderation
// gate keeps the group text-only for its duration. Caller holds the
// session lock.
func (e *Engine) beginDayDiscussion(ctx context.Context, s *Session) {
	round := s.phase.Round
	e.setPhase(ctx, s, Phase{Kind: PhaseDayDiscussion, Round: round})

	e.announce(s, renderDiscussionStart(round, e.cfg.DiscussionDuration()))

	e.schedule(s, e.cfg.DiscussionDuration(), func(ctx context.Context, s *Session) {
		e.beginNomination(ctx, s)
	})
}

// beginNomination silences the group and hands every living player a
// private one-shot suspect picker. Caller holds the session lock.
func (e *Engine) beginNomination(ctx context.Context, s *Session) {
	round := s.phase.Round
	e.setPhase(ctx, s, Phase{Kind: PhaseDayNominate, Round: round})
	s.resetDayBallots()

	e.announce(s, renderNominationStart(round, e.cfg.NominationDuration()))

	alive := s.alivePlayers()
	for _, p := range alive {
		var targets []*Player
		for _, t := range alive {
			if t.ID != p.ID {
				targets = append(targets, t)
			}
		}
		e.sendMenu(p.ID, "🗳 Who do you nominate for the lynch?", NominationKeyboard(s.ChatID, targets))
	}

	e.schedule(s, e.cfg.NominationDuration(), e.resolveNomination)
}

// Nominate records a living player's nomination vote.
func (e *Engine) Nominate(ctx context.Context, chatID, voterID, targetID int64) error {
	s, ok := e.registry.Get(chatID)
	if !ok {
		return ErrGameNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Kind != PhaseDayNominate {
		return ErrVotingClosed
	}

	voter := s.player(voterID)
	if voter == nil {
		return ErrNotInGame
	}
	if !voter.Alive {
		return ErrNotAuthorized
	}

	target := s.player(targetID)
	if target == nil || !target.Alive || targetID == voterID {
		return ErrInvalidTarget
	}

	s.nominations[voterID] = targetID
	return nil
}

// resolveNomination tallies the nomination round. Without a unique
// plurality of at least two votes the day was purely deliberative and the
// next night begins. Runs with the session lock held.
func (e *Engine) resolveNomination(ctx context.Context, s *Session) {
	candidateID, ok := nominationWinner(s.nominations)
	if !ok {
		e.announce(s, renderNoCandidate())
		e.beginNight(ctx, s, s.phase.Round+1)
		return
	}

	candidate := s.player(candidateID)
	if candidate == nil || !candidate.Alive {
		e.announce(s, renderNoCandidate())
		e.beginNight(ctx, s, s.phase.Round+1)
		return
	}

	e.beginLynch(ctx, s, candidate)
}

// beginLynch opens the public in-favor/against ballot on the nominated
// candidate. Caller holds the session lock.
func (e *Engine) beginLynch(ctx context.Context, s *Session, candidate *Player) {
	e.setPhase(ctx, s, Phase{Kind: PhaseDayLynch, Round: s.phase.Round})
	s.lynchVotes = make(map[int64]bool)
	s.lynchCandidate = candidate.ID

	if _, err := e.notifier.SendGroupMenu(s.ChatID, renderLynchStart(candidate, e.cfg.LynchDuration()), LynchKeyboard(s.ChatID)); err != nil {
		e.announce(s, renderLynchStart(candidate, e.cfg.LynchDuration()))
	}

	e.schedule(s, e.cfg.LynchDuration(), e.resolveLynch)
}

// LynchVote records a living player's in-favor/against vote. Once every
// living player has voted the ballot resolves immediately.
func (e *Engine) LynchVote(ctx context.Context, chatID, voterID int64, inFavor bool) error {
	s, ok := e.registry.Get(chatID)
	if !ok {
		return ErrGameNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Kind != PhaseDayLynch {
		return ErrVotingClosed
	}

	voter := s.player(voterID)
	if voter == nil {
		return ErrNotInGame
	}
	if !voter.Alive {
		return ErrNotAuthorized
	}

	s.lynchVotes[voterID] = inFavor

	if len(s.lynchVotes) >= len(s.alivePlayers()) {
		e.resolveLynch(ctx, s)
	}
	return nil
}

// resolveLynch settles the lynch ballot: strictly more in favor than
// against eliminates the candidate, role revealed publicly; otherwise the
// candidate is pardoned. The win condition reruns after an elimination.
// Runs with the session lock held.
func (e *Engine) resolveLynch(ctx context.Context, s *Session) {
	candidate := s.player(s.lynchCandidate)
	if candidate == nil {
		e.beginNight(ctx, s, s.phase.Round+1)
		return
	}

	var inFavor, against int
	for _, v := range s.lynchVotes {
		if v {
			inFavor++
		} else {
			against++
		}
	}

	lynched := lynchPasses(s.lynchVotes)
	if lynched {
		e.kill(ctx, s, candidate)
	}
	e.announce(s, renderLynchResult(candidate, lynched, inFavor, against))

	if lynched {
		if winner := s.winner(); winner != TeamNone {
			e.finishGame(ctx, s, winner)
			return
		}
	}

	e.beginNight(ctx, s, s.phase.Round+1)
}
