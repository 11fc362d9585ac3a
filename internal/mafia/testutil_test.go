package mafia

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v3"

	"telegram-mafia-bot/internal/config"
	"telegram-mafia-bot/internal/model"
)

// memStore is an in-memory Store for engine tests.
type memStore struct {
	mu      sync.Mutex
	games   map[int64]*model.Game
	rosters map[int64][]*model.GamePlayer
}

func newMemStore() *memStore {
	return &memStore{
		games:   make(map[int64]*model.Game),
		rosters: make(map[int64][]*model.GamePlayer),
	}
}

func (m *memStore) CreateGame(_ context.Context, chatID, creatorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[chatID] = &model.Game{
		ChatID:    chatID,
		CreatorID: creatorID,
		Phase:     "lobby",
		CreatedAt: time.Now(),
	}
	return nil
}

func (m *memStore) GetGame(_ context.Context, chatID int64) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[chatID]
	if !ok {
		return nil, errors.New("game not found")
	}
	cp := *g
	return &cp, nil
}

func (m *memStore) ListGames(_ context.Context) ([]*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	games := make([]*model.Game, 0, len(m.games))
	for _, g := range m.games {
		cp := *g
		games = append(games, &cp)
	}
	return games, nil
}

func (m *memStore) UpdatePhase(_ context.Context, chatID int64, phase string, round int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[chatID]
	if !ok {
		return errors.New("game not found")
	}
	g.Phase = phase
	g.Round = round
	return nil
}

func (m *memStore) SetAnnounceMessage(_ context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[chatID]
	if !ok {
		return errors.New("game not found")
	}
	g.AnnounceMsgID = messageID
	return nil
}

func (m *memStore) DeleteGame(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, chatID)
	delete(m.rosters, chatID)
	return nil
}

func (m *memStore) AddPlayer(_ context.Context, chatID, playerID int64, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rosters[chatID] = append(m.rosters[chatID], &model.GamePlayer{
		ChatID:      chatID,
		PlayerID:    playerID,
		DisplayName: displayName,
		Alive:       true,
	})
	return nil
}

func (m *memStore) RemovePlayer(_ context.Context, chatID, playerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rosters[chatID]
	for i, row := range rows {
		if row.PlayerID == playerID {
			m.rosters[chatID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) ListPlayers(_ context.Context, chatID int64) ([]*model.GamePlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]*model.GamePlayer, 0, len(m.rosters[chatID]))
	for _, row := range m.rosters[chatID] {
		cp := *row
		rows = append(rows, &cp)
	}
	return rows, nil
}

func (m *memStore) row(chatID, playerID int64) *model.GamePlayer {
	for _, row := range m.rosters[chatID] {
		if row.PlayerID == playerID {
			return row
		}
	}
	return nil
}

func (m *memStore) AssignRole(_ context.Context, chatID, playerID int64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.row(chatID, playerID)
	if row == nil {
		return errors.New("player not found")
	}
	if row.Role != "" {
		return errors.New("role already assigned")
	}
	row.Role = role
	return nil
}

func (m *memStore) MarkDead(_ context.Context, chatID, playerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row := m.row(chatID, playerID); row != nil {
		row.Alive = false
	}
	return nil
}

func (m *memStore) SetInactiveNights(_ context.Context, chatID, playerID int64, nights int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row := m.row(chatID, playerID); row != nil {
		row.InactiveNights = nights
	}
	return nil
}

func (m *memStore) MarkSelfProtectUsed(_ context.Context, chatID, playerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row := m.row(chatID, playerID); row != nil {
		row.SelfProtectUsed = true
	}
	return nil
}

// phase returns the persisted phase label for assertions.
func (m *memStore) phase(chatID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[chatID]; ok {
		return g.Phase
	}
	return ""
}

func (m *memStore) hasGame(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.games[chatID]
	return ok
}

// fakeNotifier records deliveries instead of talking to Telegram.
// Users in the unreachable set fail every private delivery.
type fakeNotifier struct {
	mu          sync.Mutex
	group       map[int64][]string
	private     map[int64][]string
	menus       map[int64][]*tele.ReplyMarkup
	unreachable map[int64]bool
	nextMsgID   int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		group:       make(map[int64][]string),
		private:     make(map[int64][]string),
		menus:       make(map[int64][]*tele.ReplyMarkup),
		unreachable: make(map[int64]bool),
	}
}

func (n *fakeNotifier) SendPrivate(userID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.unreachable[userID] {
		return errors.New("forbidden: bot was blocked by the user")
	}
	n.private[userID] = append(n.private[userID], text)
	return nil
}

func (n *fakeNotifier) SendPrivateMenu(userID int64, text string, menu *tele.ReplyMarkup) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.unreachable[userID] {
		return errors.New("forbidden: bot was blocked by the user")
	}
	n.private[userID] = append(n.private[userID], text)
	n.menus[userID] = append(n.menus[userID], menu)
	return nil
}

func (n *fakeNotifier) SendGroup(chatID int64, text string) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.group[chatID] = append(n.group[chatID], text)
	n.nextMsgID++
	return n.nextMsgID, nil
}

func (n *fakeNotifier) SendGroupMenu(chatID int64, text string, _ *tele.ReplyMarkup) (int, error) {
	return n.SendGroup(chatID, text)
}

func (n *fakeNotifier) Edit(int64, int, string, *tele.ReplyMarkup) error { return nil }
func (n *fakeNotifier) Delete(int64, int) error                          { return nil }
func (n *fakeNotifier) Pin(int64, int) error                             { return nil }
func (n *fakeNotifier) Unpin(int64, int) error                           { return nil }

// groupContains reports whether any group message for the chat contains
// the substring.
func (n *fakeNotifier) groupContains(chatID int64, substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, text := range n.group[chatID] {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// privateContains reports whether any private message to the user
// contains the substring.
func (n *fakeNotifier) privateContains(userID int64, substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, text := range n.private[userID] {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func (n *fakeNotifier) privateCount(userID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.private[userID])
}

// fakeLedger records reward credits.
type fakeLedger struct {
	mu      sync.Mutex
	credits map[int64]int64
	types   map[int64][]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		credits: make(map[int64]int64),
		types:   make(map[int64][]string),
	}
}

func (l *fakeLedger) Credit(_ context.Context, userID int64, amount int64, txType string, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credits[userID] += amount
	l.types[userID] = append(l.types[userID], txType)
	return nil
}

func (l *fakeLedger) credited(userID int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credits[userID]
}

// fakeStats records game outcomes.
type fakeStats struct {
	mu       sync.Mutex
	outcomes map[int64][]bool
	repDelta map[int64]int
}

func newFakeStats() *fakeStats {
	return &fakeStats{
		outcomes: make(map[int64][]bool),
		repDelta: make(map[int64]int),
	}
}

func (f *fakeStats) RecordOutcome(_ context.Context, userID int64, won bool, reputationDelta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[userID] = append(f.outcomes[userID], won)
	f.repDelta[userID] += reputationDelta
	return nil
}

func (f *fakeStats) wonLast(userID int64) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	outcomes := f.outcomes[userID]
	if len(outcomes) == 0 {
		return false, false
	}
	return outcomes[len(outcomes)-1], true
}

// harness bundles an engine with its fakes. Timer durations are hours so
// tests drive every transition explicitly.
type harness struct {
	engine   *Engine
	lobby    *LobbyManager
	registry *Registry
	store    *memStore
	notifier *fakeNotifier
	ledger   *fakeLedger
	stats    *fakeStats
	cfg      *config.MafiaConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.MafiaConfig{
		LobbySeconds:      3600,
		MinPlayers:        5,
		MaxPlayers:        10,
		NightSeconds:      3600,
		LastWordSeconds:   3600,
		DiscussionSeconds: 3600,
		NominationSeconds: 3600,
		LynchSeconds:      3600,
		WinReward:         300,
		LossReward:        50,
		WinReputation:     2,
		LossReputation:    -1,
	}

	registry := NewRegistry()
	store := newMemStore()
	notifier := newFakeNotifier()
	ledger := newFakeLedger()
	stats := newFakeStats()
	engine := NewEngine(registry, store, notifier, ledger, stats, cfg)
	lobby := NewLobbyManager(registry, store, notifier, engine, cfg)

	return &harness{
		engine:   engine,
		lobby:    lobby,
		registry: registry,
		store:    store,
		notifier: notifier,
		ledger:   ledger,
		stats:    stats,
		cfg:      cfg,
	}
}

// fillLobby opens a lobby and joins players 2..n (the creator is 1).
func (h *harness) fillLobby(t *testing.T, chatID int64, n int) {
	t.Helper()
	ctx := context.Background()

	if err := h.lobby.OpenLobby(ctx, chatID, 1, "Player1"); err != nil {
		t.Fatalf("OpenLobby: %v", err)
	}
	for id := int64(2); id <= int64(n); id++ {
		if err := h.lobby.Join(ctx, chatID, id, playerName(id)); err != nil {
			t.Fatalf("Join(%d): %v", id, err)
		}
	}
}

func playerName(id int64) string {
	names := []string{"", "Player1", "Player2", "Player3", "Player4", "Player5",
		"Player6", "Player7", "Player8", "Player9", "Player10"}
	if int(id) < len(names) {
		return names[id]
	}
	return "Extra"
}

// seat describes one fixed-role roster member for scenario tests.
type seat struct {
	id   int64
	role Role
}

// startFixedGame builds a running game with a known role layout, seeding
// both the store and the in-memory session the way a real start would.
func (h *harness) startFixedGame(t *testing.T, chatID int64, seats []seat) *Session {
	t.Helper()
	ctx := context.Background()

	if err := h.store.CreateGame(ctx, chatID, seats[0].id); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	s := newSession(chatID, seats[0].id)
	s.started = true
	for _, st := range seats {
		if err := h.store.AddPlayer(ctx, chatID, st.id, playerName(st.id)); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
		if err := h.store.AssignRole(ctx, chatID, st.id, string(st.role)); err != nil {
			t.Fatalf("AssignRole: %v", err)
		}
		s.players = append(s.players, &Player{
			ID:    st.id,
			Name:  playerName(st.id),
			Role:  st.role,
			Alive: true,
		})
	}
	h.registry.Put(s)

	h.locked(s, func() {
		h.engine.beginNight(ctx, s, 1)
	})
	return s
}

// locked runs fn with the session lock held, the way timer callbacks do.
func (h *harness) locked(s *Session, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// currentPhase reads the session phase under the lock.
func (h *harness) currentPhase(s *Session) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}
