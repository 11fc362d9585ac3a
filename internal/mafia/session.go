package mafia

import (
	"sync"
	"time"
)

// Player is the in-session working copy of one roster member. It mirrors
// the durable game_players row; mutations are written through to the
// store while the session lock is held.
type Player struct {
	ID              int64
	Name            string
	Role            Role
	Alive           bool
	InactiveNights  int
	SelfProtectUsed bool
}

// Session is the in-memory working set for one game: ephemeral ballots,
// outstanding timer handles and the per-game lock. It is never shared
// across chats and is discarded on teardown. Losing it on a crash only
// forfeits the in-progress voting round; the durable store keeps the
// role/alive/phase state.
type Session struct {
	ChatID    int64
	CreatorID int64

	mu sync.Mutex

	phase   Phase
	gen     int // bumped on every transition; stale timers compare against it
	started bool

	autostart       bool
	countdownEnd    time.Time
	pausedRemaining time.Duration

	announceMsgID int
	players       []*Player

	timers []*time.Timer

	// Night ballots, cleared at the start of every night.
	eliminateProposals map[int64]int64
	investigations     map[int64]int64
	protections        map[int64]int64
	acted              map[int64]bool

	// Day ballots, cleared at phase entry.
	nominations    map[int64]int64
	lynchVotes     map[int64]bool
	lynchCandidate int64

	// lastWordFrom is the player owed a last-word window, 0 if none.
	lastWordFrom int64
}

func newSession(chatID, creatorID int64) *Session {
	return &Session{
		ChatID:    chatID,
		CreatorID: creatorID,
		phase:     Phase{Kind: PhaseLobby},
		autostart: true,
	}
}

// player returns the roster entry for the given user, or nil.
func (s *Session) player(id int64) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// alivePlayers returns the living roster members in seating order.
func (s *Session) alivePlayers() []*Player {
	alive := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	return alive
}

// countAlignment returns the number of living mafia and town players.
func (s *Session) countAlignment() (mafia, town int) {
	for _, p := range s.players {
		if !p.Alive {
			continue
		}
		if p.Role.IsMafia() {
			mafia++
		} else {
			town++
		}
	}
	return mafia, town
}

// don returns the don's player id, or 0 if the don is dead or absent.
func (s *Session) don() int64 {
	for _, p := range s.players {
		if p.Alive && p.Role == RoleDon {
			return p.ID
		}
	}
	return 0
}

// resetNightBallots clears the ephemeral night ballot maps.
func (s *Session) resetNightBallots() {
	s.eliminateProposals = make(map[int64]int64)
	s.investigations = make(map[int64]int64)
	s.protections = make(map[int64]int64)
	s.acted = make(map[int64]bool)
}

// resetDayBallots clears the nomination and lynch ballot maps.
func (s *Session) resetDayBallots() {
	s.nominations = make(map[int64]int64)
	s.lynchVotes = make(map[int64]bool)
	s.lynchCandidate = 0
}

// addTimer registers an outstanding timer handle. Caller holds the lock.
func (s *Session) addTimer(t *time.Timer) {
	s.timers = append(s.timers, t)
}

// cancelTimers stops every outstanding timer. Stopping a timer that has
// already fired is a no-op, so the call is idempotent. Caller holds the
// lock; a timer that fired concurrently will find the generation bumped
// and back off.
func (s *Session) cancelTimers() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}
