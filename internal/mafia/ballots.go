package mafia

// NightActionKind enumerates the night ballots a role can cast.
type NightActionKind int

const (
	// ActionEliminate is the mafia team's elimination proposal.
	ActionEliminate NightActionKind = iota
	// ActionInvestigate is the commissioner's alignment check.
	ActionInvestigate
	// ActionProtect is the doctor's shield.
	ActionProtect
)

// actionForRole returns the night action a role is allowed to cast.
func actionForRole(r Role) (NightActionKind, bool) {
	switch r {
	case RoleDon, RoleMafia:
		return ActionEliminate, true
	case RoleCommissioner:
		return ActionInvestigate, true
	case RoleDoctor:
		return ActionProtect, true
	default:
		return 0, false
	}
}

// tallyVotes counts votes per target and returns the unique strict
// plurality winner along with its count. ok is false when no votes were
// cast or the top count is shared.
func tallyVotes(votes map[int64]int64) (winner int64, top int, ok bool) {
	counts := make(map[int64]int, len(votes))
	for _, target := range votes {
		counts[target]++
	}

	tied := false
	for target, n := range counts {
		switch {
		case n > top:
			winner, top, tied = target, n, false
		case n == top:
			tied = true
		}
	}
	if top == 0 || tied {
		return 0, top, false
	}
	return winner, top, true
}

// mafiaTarget resolves the mafia team's elimination proposals for one
// night. A proposal by the don wins unconditionally; otherwise the unique
// plurality wins. No proposals, or a tie without the don, selects nobody.
func mafiaTarget(proposals map[int64]int64, donID int64) (int64, bool) {
	if target, ok := proposals[donID]; ok {
		return target, true
	}
	winner, _, ok := tallyVotes(proposals)
	return winner, ok
}

// nominationWinner resolves the day nomination round. A candidate is
// selected only when a unique plurality exists and its count is at least
// two; a single stray vote never puts anyone on trial.
func nominationWinner(votes map[int64]int64) (int64, bool) {
	winner, top, ok := tallyVotes(votes)
	if !ok || top < 2 {
		return 0, false
	}
	return winner, true
}

// lynchPasses reports whether a lynch ballot eliminates the candidate:
// strictly more votes in favor than against. Ties pardon.
func lynchPasses(votes map[int64]bool) bool {
	var inFavor, against int
	for _, v := range votes {
		if v {
			inFavor++
		} else {
			against++
		}
	}
	return inFavor > against
}
