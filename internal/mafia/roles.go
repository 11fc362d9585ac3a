package mafia

import (
	"fmt"
	"math/rand"
)

// Role is one of the five playable roles.
type Role string

const (
	RoleDon          Role = "don"
	RoleMafia        Role = "mafia"
	RoleCommissioner Role = "commissioner"
	RoleDoctor       Role = "doctor"
	RoleCivilian     Role = "civilian"
)

// Roster size bounds supported by the balance table.
const (
	MinRosterSize = 5
	MaxRosterSize = 10
)

// IsMafia reports whether the role belongs to the hostile team. The don
// reads as mafia to the commissioner as well.
func (r Role) IsMafia() bool {
	return r == RoleDon || r == RoleMafia
}

// HasNightAction reports whether the role is expected to act at night.
// Inactivity strikes only accrue for these roles.
func (r Role) HasNightAction() bool {
	switch r {
	case RoleDon, RoleMafia, RoleCommissioner, RoleDoctor:
		return true
	default:
		return false
	}
}

// Title returns the role's display name.
func (r Role) Title() string {
	switch r {
	case RoleDon:
		return "Don"
	case RoleMafia:
		return "Mafia"
	case RoleCommissioner:
		return "Commissioner"
	case RoleDoctor:
		return "Doctor"
	case RoleCivilian:
		return "Civilian"
	default:
		return string(r)
	}
}

// Description returns the blurb sent privately at role distribution.
func (r Role) Description() string {
	switch r {
	case RoleDon:
		return "🕴 You are the Don, leader of the mafia. Each night your team proposes a victim. Your own choice is decisive."
	case RoleMafia:
		return "🔪 You are a Mafia member. Each night your team proposes a victim. The Don has the final say."
	case RoleCommissioner:
		return "🕵️ You are the Commissioner. Each night you may investigate one player and learn whether they belong to the mafia."
	case RoleDoctor:
		return "💉 You are the Doctor. Each night you may protect one player from the mafia. You may protect yourself only once per game."
	case RoleCivilian:
		return "👤 You are a Civilian. You have no night action. Find the mafia in the day discussions and vote them out."
	default:
		return ""
	}
}

// roleCounts is one row of the balance table.
type roleCounts struct {
	don          int
	mafia        int
	commissioner int
	doctor       int
	civilian     int
}

// roleMatrix maps roster size to role counts. Counts sum to the roster
// size exactly, and the mafia team always starts strictly smaller than
// the town.
var roleMatrix = map[int]roleCounts{
	5:  {don: 1, mafia: 0, commissioner: 1, doctor: 1, civilian: 2},
	6:  {don: 1, mafia: 0, commissioner: 1, doctor: 1, civilian: 3},
	7:  {don: 1, mafia: 1, commissioner: 1, doctor: 1, civilian: 3},
	8:  {don: 1, mafia: 1, commissioner: 1, doctor: 1, civilian: 4},
	9:  {don: 1, mafia: 2, commissioner: 1, doctor: 1, civilian: 4},
	10: {don: 1, mafia: 2, commissioner: 1, doctor: 1, civilian: 5},
}

// RoleDeck expands the balance table row for the given roster size into a
// flat list of roles, one per seat.
func RoleDeck(size int) ([]Role, error) {
	counts, ok := roleMatrix[size]
	if !ok {
		return nil, fmt.Errorf("unsupported roster size %d (supported %d-%d)", size, MinRosterSize, MaxRosterSize)
	}

	deck := make([]Role, 0, size)
	for i := 0; i < counts.don; i++ {
		deck = append(deck, RoleDon)
	}
	for i := 0; i < counts.mafia; i++ {
		deck = append(deck, RoleMafia)
	}
	for i := 0; i < counts.commissioner; i++ {
		deck = append(deck, RoleCommissioner)
	}
	for i := 0; i < counts.doctor; i++ {
		deck = append(deck, RoleDoctor)
	}
	for i := 0; i < counts.civilian; i++ {
		deck = append(deck, RoleCivilian)
	}
	return deck, nil
}

// shuffledDeck returns a RoleDeck in random order.
func shuffledDeck(rng *rand.Rand, size int) ([]Role, error) {
	deck, err := RoleDeck(size)
	if err != nil {
		return nil, err
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck, nil
}
