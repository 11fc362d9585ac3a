package mafia

import (
	"fmt"
	"strings"
	"time"
)

// Rendering is kept separate from the state machine: every function here
// is a pure mapping from game state to display text, so the engine can be
// tested without a messaging transport.

// lastWordLimit bounds the relayed last-word message.
const lastWordLimit = 300

func renderRoster(players []*Player) string {
	var b strings.Builder
	for i, p := range players {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Name)
	}
	return b.String()
}

func renderLobby(players []*Player, remaining time.Duration, autostart bool, minPlayers, maxPlayers int) string {
	var b strings.Builder
	b.WriteString("🎭 A game of Mafia is gathering!\n\n")
	fmt.Fprintf(&b, "Players (%d/%d):\n%s\n", len(players), maxPlayers, renderRoster(players))

	if autostart {
		fmt.Fprintf(&b, "⏳ Starts in %d seconds", int(remaining.Seconds()))
	} else {
		b.WriteString("⏸ Countdown paused")
	}
	if len(players) < minPlayers {
		fmt.Fprintf(&b, "\n⚠️ At least %d players needed", minPlayers)
	}
	return b.String()
}

func renderNightStart(round int) string {
	return fmt.Sprintf("🌃 Night %d falls. The town sleeps, the chat is silent.\nThose with a night role: check your private chat.", round)
}

func renderMorningReport(round int, afkRemoved []*Player, killed *Player, saved bool, alive []*Player) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌅 Morning of day %d.\n\n", round)

	for _, p := range afkRemoved {
		fmt.Fprintf(&b, "💤 %s was removed for inactivity. They were a %s.\n", p.Name, p.Role.Title())
	}

	switch {
	case killed != nil:
		fmt.Fprintf(&b, "🔪 %s was killed in the night. They were a %s.\n", killed.Name, killed.Role.Title())
	case saved:
		b.WriteString("💉 There was an attack in the night, but it was prevented.\n")
	default:
		b.WriteString("😮‍💨 The night passed quietly. Nobody was harmed.\n")
	}

	fmt.Fprintf(&b, "\nStill alive (%d):\n%s", len(alive), renderRoster(alive))
	return b.String()
}

func renderLastWordPrompt(seconds int) string {
	return fmt.Sprintf("🪦 You have been eliminated. You have %d seconds to send one final message here; it will be relayed to the group.", seconds)
}

func renderLastWord(name, text string) string {
	if runes := []rune(text); len(runes) > lastWordLimit {
		text = string(runes[:lastWordLimit]) + "…"
	}
	return fmt.Sprintf("🗣 Last words of %s:\n\n%s", name, text)
}

func renderDiscussionStart(round int, d time.Duration) string {
	return fmt.Sprintf("☀️ Day %d discussion is open for %d seconds. Text only — find the mafia!", round, int(d.Seconds()))
}

func renderNominationStart(round int, d time.Duration) string {
	return fmt.Sprintf("🗳 Nomination time for day %d. The chat is silent for %d seconds; pick a suspect in your private chat.", round, int(d.Seconds()))
}

func renderNoCandidate() string {
	return "🤷 The town could not agree on a suspect. Night is coming."
}

func renderLynchStart(candidate *Player, d time.Duration) string {
	return fmt.Sprintf("⚖️ The town accuses %s!\nLiving players, vote within %d seconds: should they be lynched?", candidate.Name, int(d.Seconds()))
}

func renderLynchResult(candidate *Player, lynched bool, inFavor, against int) string {
	if lynched {
		return fmt.Sprintf("🪢 The town has spoken (%d for, %d against). %s was lynched — they were a %s.", inFavor, against, candidate.Name, candidate.Role.Title())
	}
	return fmt.Sprintf("🕊 The vote failed (%d for, %d against). %s is pardoned.", inFavor, against, candidate.Name)
}

func renderFinalReport(winner Team, players []*Player) string {
	var b strings.Builder
	switch winner {
	case TeamMafia:
		b.WriteString("🔴 The mafia has taken over the town!\n\n")
	case TeamTown:
		b.WriteString("🔵 The town is free of mafia!\n\n")
	}

	b.WriteString("Roles this game:\n")
	for _, p := range players {
		mark := "💀"
		if p.Alive {
			mark = "❤️"
		}
		fmt.Fprintf(&b, "%s %s — %s\n", mark, p.Name, p.Role.Title())
	}
	return b.String()
}

func renderInvestigationResult(target *Player) string {
	if target.Role.IsMafia() {
		return fmt.Sprintf("🕵️ Your investigation of %s: they ARE in the mafia.", target.Name)
	}
	return fmt.Sprintf("🕵️ Your investigation of %s: they are NOT in the mafia.", target.Name)
}

func renderMafiaTeam(teammates []*Player) string {
	var b strings.Builder
	b.WriteString("\n\nYour team:\n")
	for _, p := range teammates {
		fmt.Fprintf(&b, "• %s (%s)\n", p.Name, p.Role.Title())
	}
	return b.String()
}

func renderUnreachable(names []string) string {
	return fmt.Sprintf(
		"🚫 The game cannot start: %s must open a private chat with the bot first (press Start in a direct message). The lobby has been cancelled.",
		strings.Join(names, ", "),
	)
}
