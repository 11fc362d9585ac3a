package mafia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-mafia-bot/internal/model"
)

func TestStartAssignsFiveRoleDeck(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-1001)

	h.fillLobby(t, chatID, 5)
	require.NoError(t, h.lobby.ForceStart(ctx, chatID, 1, false))

	s, ok := h.registry.Get(chatID)
	require.True(t, ok)

	assert.Equal(t, Phase{Kind: PhaseNight, Round: 1}, h.currentPhase(s))
	assert.Equal(t, "night_1", h.store.phase(chatID))

	counts := make(map[Role]int)
	s.mu.Lock()
	for _, p := range s.players {
		counts[p.Role]++
		assert.True(t, p.Alive)
	}
	s.mu.Unlock()
	assert.Equal(t, 1, counts[RoleDon])
	assert.Equal(t, 0, counts[RoleMafia])
	assert.Equal(t, 1, counts[RoleCommissioner])
	assert.Equal(t, 1, counts[RoleDoctor])
	assert.Equal(t, 2, counts[RoleCivilian])

	// Store roster mirrors the in-memory assignment.
	rows, err := h.store.ListPlayers(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for _, row := range rows {
		assert.NotEmpty(t, row.Role)
	}

	// Everyone got the reachability probe plus their role whisper.
	for id := int64(1); id <= 5; id++ {
		assert.GreaterOrEqual(t, h.notifier.privateCount(id), 2)
	}
	assert.True(t, h.notifier.groupContains(chatID, "Night 1"))
}

func TestForceStartIsOneShot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-1002)

	h.fillLobby(t, chatID, 5)
	require.NoError(t, h.lobby.ForceStart(ctx, chatID, 1, false))
	assert.ErrorIs(t, h.lobby.ForceStart(ctx, chatID, 1, false), ErrLobbyClosed)
}

func TestForceStartBelowMinimum(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-1003)

	h.fillLobby(t, chatID, 4)
	assert.ErrorIs(t, h.lobby.ForceStart(ctx, chatID, 1, false), ErrNotEnoughPlayers)

	// The lobby stays open after a rejected manual start.
	assert.NoError(t, h.lobby.Join(ctx, chatID, 5, "Player5"))
}

func TestUnreachablePlayerAbortsStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-1004)

	h.fillLobby(t, chatID, 5)
	h.notifier.unreachable[3] = true

	assert.ErrorIs(t, h.lobby.ForceStart(ctx, chatID, 1, false), ErrUnreachablePlayers)

	_, ok := h.registry.Get(chatID)
	assert.False(t, ok)
	assert.False(t, h.store.hasGame(chatID))
	assert.True(t, h.notifier.groupContains(chatID, "Player3"))
	assert.Zero(t, h.ledger.credited(1))
}

func sixSeatGame() []seat {
	return []seat{
		{1, RoleDon},
		{2, RoleMafia},
		{3, RoleCommissioner},
		{4, RoleDoctor},
		{5, RoleCivilian},
		{6, RoleCivilian},
	}
}

func TestNightKillOpensLastWord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2001)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	require.NoError(t, h.engine.NightAction(ctx, chatID, 1, ActionEliminate, 5))
	require.NoError(t, h.engine.NightAction(ctx, chatID, 2, ActionEliminate, 6))
	require.NoError(t, h.engine.NightAction(ctx, chatID, 3, ActionInvestigate, 1))
	require.NoError(t, h.engine.NightAction(ctx, chatID, 4, ActionProtect, 6))

	h.locked(s, func() { h.engine.resolveNight(ctx, s) })

	// The don's vote outweighs the teammate's.
	s.mu.Lock()
	victim := s.player(5)
	s.mu.Unlock()
	assert.False(t, victim.Alive)
	row := h.store.row(chatID, 5)
	require.NotNil(t, row)
	assert.False(t, row.Alive)

	assert.Equal(t, Phase{Kind: PhaseLastWord, Round: 1}, h.currentPhase(s))
	assert.True(t, h.notifier.groupContains(chatID, "Player5 was killed"))
	assert.True(t, h.notifier.privateContains(3, "ARE in the mafia"))
	assert.True(t, h.notifier.privateContains(5, "eliminated"))
}

func TestDoctorSavePreventsKill(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2002)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	require.NoError(t, h.engine.NightAction(ctx, chatID, 1, ActionEliminate, 5))
	require.NoError(t, h.engine.NightAction(ctx, chatID, 3, ActionInvestigate, 5))
	require.NoError(t, h.engine.NightAction(ctx, chatID, 4, ActionProtect, 5))
	require.NoError(t, h.engine.NightAction(ctx, chatID, 2, ActionEliminate, 5))

	h.locked(s, func() { h.engine.resolveNight(ctx, s) })

	s.mu.Lock()
	saved := s.player(5)
	s.mu.Unlock()
	assert.True(t, saved.Alive)
	assert.True(t, h.notifier.groupContains(chatID, "prevented"))
	assert.True(t, h.notifier.privateContains(3, "NOT in the mafia"))

	// No victim means no last-word window.
	assert.Equal(t, Phase{Kind: PhaseDayDiscussion, Round: 1}, h.currentPhase(s))
}

func TestDoctorSelfProtectionIsOneShot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2003)
	h.startFixedGame(t, chatID, sixSeatGame())

	require.NoError(t, h.engine.NightAction(ctx, chatID, 4, ActionProtect, 4))
	assert.ErrorIs(t, h.engine.NightAction(ctx, chatID, 4, ActionProtect, 4), ErrSelfProtectSpent)

	row := h.store.row(chatID, 4)
	require.NotNil(t, row)
	assert.True(t, row.SelfProtectUsed)

	// Protecting someone else is still allowed.
	assert.NoError(t, h.engine.NightAction(ctx, chatID, 4, ActionProtect, 5))
}

func TestNightActionRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2004)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	// Civilians have no night action.
	assert.ErrorIs(t, h.engine.NightAction(ctx, chatID, 5, ActionEliminate, 1), ErrNotAuthorized)
	// Role and action kind must match.
	assert.ErrorIs(t, h.engine.NightAction(ctx, chatID, 3, ActionEliminate, 5), ErrNotAuthorized)
	// Mafia cannot target teammates.
	assert.ErrorIs(t, h.engine.NightAction(ctx, chatID, 1, ActionEliminate, 2), ErrInvalidTarget)
	// The commissioner cannot investigate themselves.
	assert.ErrorIs(t, h.engine.NightAction(ctx, chatID, 3, ActionInvestigate, 3), ErrInvalidTarget)
	// Outsiders are rejected.
	assert.ErrorIs(t, h.engine.NightAction(ctx, chatID, 99, ActionEliminate, 5), ErrNotInGame)
	// Unknown chat.
	assert.ErrorIs(t, h.engine.NightAction(ctx, -999, 1, ActionEliminate, 5), ErrGameNotFound)

	// Outside the night phase every ballot bounces.
	h.locked(s, func() { h.engine.beginDayDiscussion(ctx, s) })
	assert.ErrorIs(t, h.engine.NightAction(ctx, chatID, 1, ActionEliminate, 5), ErrVotingClosed)
}

func TestNightActionReplacesPreviousBallot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2005)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	require.NoError(t, h.engine.NightAction(ctx, chatID, 1, ActionEliminate, 5))
	require.NoError(t, h.engine.NightAction(ctx, chatID, 1, ActionEliminate, 6))

	s.mu.Lock()
	target := s.eliminateProposals[1]
	s.mu.Unlock()
	assert.Equal(t, int64(6), target)
}

func TestTwoInactiveNightsRemoveRoleHolders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2006)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	// Nobody acts on night one: every role holder takes a strike.
	h.locked(s, func() { h.engine.resolveNight(ctx, s) })

	s.mu.Lock()
	for _, id := range []int64{1, 2, 3, 4} {
		assert.Equal(t, 1, s.player(id).InactiveNights)
		assert.True(t, s.player(id).Alive)
	}
	assert.Zero(t, s.player(5).InactiveNights)
	s.mu.Unlock()
	assert.True(t, h.notifier.groupContains(chatID, "passed quietly"))

	// Second silent night: the second strike removes all four role
	// holders, leaving zero mafia. Town wins.
	h.locked(s, func() { h.engine.beginNight(ctx, s, 2) })
	h.locked(s, func() { h.engine.resolveNight(ctx, s) })

	assert.True(t, h.notifier.groupContains(chatID, "free of mafia"))

	for _, id := range []int64{3, 4, 5, 6} {
		assert.Equal(t, h.cfg.WinReward, h.ledger.credited(id), "town player %d", id)
		won, ok := h.stats.wonLast(id)
		require.True(t, ok)
		assert.True(t, won)
	}
	for _, id := range []int64{1, 2} {
		assert.Equal(t, h.cfg.LossReward, h.ledger.credited(id), "mafia player %d", id)
		won, ok := h.stats.wonLast(id)
		require.True(t, ok)
		assert.False(t, won)
	}
	assert.Contains(t, h.ledger.types[3], model.TxTypeMafiaWin)
	assert.Contains(t, h.ledger.types[1], model.TxTypeMafiaLoss)

	// The game is fully torn down.
	_, ok := h.registry.Get(chatID)
	assert.False(t, ok)
	assert.False(t, h.store.hasGame(chatID))
}

func TestMafiaDominationEndsGame(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2007)
	s := h.startFixedGame(t, chatID, []seat{
		{1, RoleDon},
		{2, RoleCivilian},
		{3, RoleCivilian},
	})

	require.NoError(t, h.engine.NightAction(ctx, chatID, 1, ActionEliminate, 2))
	h.locked(s, func() { h.engine.resolveNight(ctx, s) })

	// One mafia against one townsperson: the night is never survivable.
	assert.True(t, h.notifier.groupContains(chatID, "taken over the town"))
	assert.Equal(t, h.cfg.WinReward, h.ledger.credited(1))
	assert.Equal(t, h.cfg.LossReward, h.ledger.credited(2))
	assert.Equal(t, h.cfg.LossReward, h.ledger.credited(3))

	// No last-word window once the game is decided.
	assert.False(t, h.notifier.privateContains(2, "final message"))
	_, ok := h.registry.Get(chatID)
	assert.False(t, ok)
}

func TestRelayLastWord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2008)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	require.NoError(t, h.engine.NightAction(ctx, chatID, 1, ActionEliminate, 5))
	require.NoError(t, h.engine.NightAction(ctx, chatID, 3, ActionInvestigate, 1))
	require.NoError(t, h.engine.NightAction(ctx, chatID, 4, ActionProtect, 6))
	h.locked(s, func() { h.engine.resolveNight(ctx, s) })
	require.Equal(t, Phase{Kind: PhaseLastWord, Round: 1}, h.currentPhase(s))

	// A living player's private message is not a last word.
	assert.False(t, h.engine.RelayLastWord(ctx, 6, "it was the don"))

	assert.True(t, h.engine.RelayLastWord(ctx, 5, "avenge me"))
	assert.True(t, h.notifier.groupContains(chatID, "Last words of Player5"))
	assert.True(t, h.notifier.groupContains(chatID, "avenge me"))
	assert.Equal(t, Phase{Kind: PhaseDayDiscussion, Round: 1}, h.currentPhase(s))

	// The window is spent.
	assert.False(t, h.engine.RelayLastWord(ctx, 5, "one more thing"))
}

func TestNominationElectsPluralityCandidate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2009)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	h.locked(s, func() { h.engine.beginNomination(ctx, s) })
	assert.Equal(t, "day_vote_nominate_1", h.store.phase(chatID))

	require.NoError(t, h.engine.Nominate(ctx, chatID, 1, 5))
	require.NoError(t, h.engine.Nominate(ctx, chatID, 2, 5))
	require.NoError(t, h.engine.Nominate(ctx, chatID, 3, 1))
	// A vote can be changed while the window is open.
	require.NoError(t, h.engine.Nominate(ctx, chatID, 2, 1))
	require.NoError(t, h.engine.Nominate(ctx, chatID, 4, 1))

	h.locked(s, func() { h.engine.resolveNomination(ctx, s) })

	assert.Equal(t, Phase{Kind: PhaseDayLynch, Round: 1}, h.currentPhase(s))
	assert.True(t, h.notifier.groupContains(chatID, "accuses Player1"))
}

func TestNominationRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2010)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	// Nominations only count during the nomination window.
	assert.ErrorIs(t, h.engine.Nominate(ctx, chatID, 1, 5), ErrVotingClosed)

	h.locked(s, func() {
		s.player(6).Alive = false
		h.engine.beginNomination(ctx, s)
	})

	assert.ErrorIs(t, h.engine.Nominate(ctx, chatID, 1, 1), ErrInvalidTarget)
	assert.ErrorIs(t, h.engine.Nominate(ctx, chatID, 1, 6), ErrInvalidTarget)
	assert.ErrorIs(t, h.engine.Nominate(ctx, chatID, 6, 1), ErrNotAuthorized)
	assert.ErrorIs(t, h.engine.Nominate(ctx, chatID, 99, 1), ErrNotInGame)
}

func TestNominationWithoutConsensusReturnsToNight(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2011)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	h.locked(s, func() { h.engine.beginNomination(ctx, s) })
	// A lone vote is no plurality.
	require.NoError(t, h.engine.Nominate(ctx, chatID, 1, 5))
	h.locked(s, func() { h.engine.resolveNomination(ctx, s) })

	assert.True(t, h.notifier.groupContains(chatID, "could not agree"))
	assert.Equal(t, Phase{Kind: PhaseNight, Round: 2}, h.currentPhase(s))
	assert.Equal(t, "night_2", h.store.phase(chatID))
}

func TestLynchResolvesEarlyWhenAllHaveVoted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2012)
	s := h.startFixedGame(t, chatID, []seat{
		{1, RoleDon},
		{2, RoleCommissioner},
		{3, RoleDoctor},
		{4, RoleCivilian},
		{5, RoleCivilian},
	})

	h.locked(s, func() {
		h.engine.beginNomination(ctx, s)
		s.nominations = map[int64]int64{2: 1, 3: 1, 4: 1}
		h.engine.resolveNomination(ctx, s)
	})
	require.Equal(t, Phase{Kind: PhaseDayLynch, Round: 1}, h.currentPhase(s))

	require.NoError(t, h.engine.LynchVote(ctx, chatID, 1, false))
	require.NoError(t, h.engine.LynchVote(ctx, chatID, 2, true))
	require.NoError(t, h.engine.LynchVote(ctx, chatID, 3, true))
	require.NoError(t, h.engine.LynchVote(ctx, chatID, 4, true))
	// The fifth ballot completes the vote and resolves it immediately.
	require.NoError(t, h.engine.LynchVote(ctx, chatID, 5, true))

	assert.True(t, h.notifier.groupContains(chatID, "Player1 was lynched"))
	// Lynching the only mafia decides the game on the spot.
	assert.True(t, h.notifier.groupContains(chatID, "free of mafia"))
	_, ok := h.registry.Get(chatID)
	assert.False(t, ok)
	assert.Equal(t, h.cfg.LossReward, h.ledger.credited(1))
	assert.Equal(t, h.cfg.WinReward, h.ledger.credited(2))
}

func TestLynchTiePardons(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2013)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	h.locked(s, func() {
		h.engine.beginNomination(ctx, s)
		s.nominations = map[int64]int64{1: 5, 2: 5, 3: 5}
		h.engine.resolveNomination(ctx, s)
	})

	require.NoError(t, h.engine.LynchVote(ctx, chatID, 1, true))
	require.NoError(t, h.engine.LynchVote(ctx, chatID, 2, true))
	require.NoError(t, h.engine.LynchVote(ctx, chatID, 3, false))
	require.NoError(t, h.engine.LynchVote(ctx, chatID, 4, false))
	// Two abstainers: the ballot waits for the timer.
	h.locked(s, func() { h.engine.resolveLynch(ctx, s) })

	s.mu.Lock()
	pardoned := s.player(5)
	s.mu.Unlock()
	assert.True(t, pardoned.Alive)
	assert.True(t, h.notifier.groupContains(chatID, "Player5 is pardoned"))
	assert.Equal(t, Phase{Kind: PhaseNight, Round: 2}, h.currentPhase(s))
}

func TestModerateGroupMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	chatID := int64(-2014)
	s := h.startFixedGame(t, chatID, sixSeatGame())

	// Chats without a game are never moderated.
	assert.Equal(t, Allow, h.engine.ModerateGroupMessage(-999, 1, ContentText))

	// Night silences everyone, roster or not.
	assert.Equal(t, Delete, h.engine.ModerateGroupMessage(chatID, 1, ContentText))
	assert.Equal(t, Delete, h.engine.ModerateGroupMessage(chatID, 777, ContentText))

	h.locked(s, func() { h.engine.beginDayDiscussion(ctx, s) })
	assert.Equal(t, Allow, h.engine.ModerateGroupMessage(chatID, 1, ContentText))
	assert.Equal(t, Delete, h.engine.ModerateGroupMessage(chatID, 1, ContentOther))

	h.locked(s, func() {
		s.player(5).Alive = false
		h.engine.beginLynch(ctx, s, s.player(6))
	})
	assert.Equal(t, Allow, h.engine.ModerateGroupMessage(chatID, 1, ContentText))
	assert.Equal(t, Delete, h.engine.ModerateGroupMessage(chatID, 5, ContentText))
	// A sender outside the roster counts as not alive.
	assert.Equal(t, Delete, h.engine.ModerateGroupMessage(chatID, 777, ContentText))
}

func TestRecoverRebuildsActiveGames(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// An in-flight night survives a restart.
	require.NoError(t, h.store.CreateGame(ctx, -3001, 1))
	require.NoError(t, h.store.AddPlayer(ctx, -3001, 1, "Player1"))
	require.NoError(t, h.store.AssignRole(ctx, -3001, 1, string(RoleDon)))
	require.NoError(t, h.store.AddPlayer(ctx, -3001, 2, "Player2"))
	require.NoError(t, h.store.AssignRole(ctx, -3001, 2, string(RoleCommissioner)))
	require.NoError(t, h.store.AddPlayer(ctx, -3001, 3, "Player3"))
	require.NoError(t, h.store.AssignRole(ctx, -3001, 3, string(RoleCivilian)))
	require.NoError(t, h.store.MarkDead(ctx, -3001, 3))
	require.NoError(t, h.store.UpdatePhase(ctx, -3001, "night_2", 2))

	// A lobby cannot be resumed and is cancelled.
	require.NoError(t, h.store.CreateGame(ctx, -3002, 9))

	// Day voting rounds lose their ballots and rerun the nomination.
	require.NoError(t, h.store.CreateGame(ctx, -3003, 1))
	require.NoError(t, h.store.AddPlayer(ctx, -3003, 11, "Player1"))
	require.NoError(t, h.store.AssignRole(ctx, -3003, 11, string(RoleDon)))
	require.NoError(t, h.store.AddPlayer(ctx, -3003, 12, "Player2"))
	require.NoError(t, h.store.AssignRole(ctx, -3003, 12, string(RoleCivilian)))
	require.NoError(t, h.store.UpdatePhase(ctx, -3003, "day_vote_lynch_3", 3))

	require.NoError(t, h.engine.Recover(ctx))

	s, ok := h.registry.Get(-3001)
	require.True(t, ok)
	assert.Equal(t, Phase{Kind: PhaseNight, Round: 2}, h.currentPhase(s))
	s.mu.Lock()
	require.Len(t, s.players, 3)
	assert.Equal(t, RoleDon, s.player(1).Role)
	assert.False(t, s.player(3).Alive)
	assert.True(t, s.started)
	s.mu.Unlock()
	assert.True(t, h.notifier.groupContains(-3001, "Night 2"))

	_, ok = h.registry.Get(-3002)
	assert.False(t, ok)
	assert.False(t, h.store.hasGame(-3002))
	assert.True(t, h.notifier.groupContains(-3002, "restarted"))

	s3, ok := h.registry.Get(-3003)
	require.True(t, ok)
	assert.Equal(t, Phase{Kind: PhaseDayNominate, Round: 3}, h.currentPhase(s3))
}
