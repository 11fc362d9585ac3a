package mafia

import (
	"fmt"
	"strconv"
	"strings"
)

// PhaseKind enumerates the lifecycle stages of one game.
type PhaseKind int

const (
	PhaseLobby PhaseKind = iota
	PhaseNight
	PhaseMorningReport
	PhaseLastWord
	PhaseDayDiscussion
	PhaseDayNominate
	PhaseDayLynch
	PhaseGameOver
)

// Phase is the tagged lifecycle state of a game. Round starts at 1 on the
// first night and never decreases.
type Phase struct {
	Kind  PhaseKind
	Round int
}

var phaseLabels = map[PhaseKind]string{
	PhaseLobby:         "lobby",
	PhaseNight:         "night",
	PhaseMorningReport: "morning_report",
	PhaseLastWord:      "last_word",
	PhaseDayDiscussion: "day_discussion",
	PhaseDayNominate:   "day_vote_nominate",
	PhaseDayLynch:      "day_vote_lynch",
	PhaseGameOver:      "game_over",
}

// String renders the phase as the durable label stored in the game row,
// e.g. "lobby", "night_1", "day_vote_lynch_3".
func (p Phase) String() string {
	label, ok := phaseLabels[p.Kind]
	if !ok {
		return "unknown"
	}
	if p.Kind == PhaseLobby || p.Kind == PhaseGameOver {
		return label
	}
	return fmt.Sprintf("%s_%d", label, p.Round)
}

// ParsePhase parses a durable phase label back into a Phase.
func ParsePhase(s string) (Phase, error) {
	for kind, label := range phaseLabels {
		if kind == PhaseLobby || kind == PhaseGameOver {
			if s == label {
				return Phase{Kind: kind}, nil
			}
			continue
		}
		if strings.HasPrefix(s, label+"_") {
			n, err := strconv.Atoi(strings.TrimPrefix(s, label+"_"))
			if err != nil || n < 1 {
				return Phase{}, fmt.Errorf("invalid phase label %q", s)
			}
			return Phase{Kind: kind, Round: n}, nil
		}
	}
	return Phase{}, fmt.Errorf("invalid phase label %q", s)
}
