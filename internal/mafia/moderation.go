package mafia

// ContentKind classifies a group message for moderation purposes.
type ContentKind int

const (
	// ContentText is a plain text message.
	ContentText ContentKind = iota
	// ContentOther is anything else: media, stickers, voice, dice.
	ContentOther
)

// Verdict is the moderation gate's decision for one group message.
type Verdict int

const (
	// Allow leaves the message in place.
	Allow Verdict = iota
	// Delete removes the message from the group.
	Delete
)

// Moderate decides whether a group message is allowed while a game is in
// the given phase. It is a pure function; callers that find no active
// game for the chat should simply allow without consulting it.
//
// Night and nomination phases silence the group entirely: all
// coordination happens through private chats. Day discussion is text-only
// but open to everyone, including the dead. The lynch ballot is text-only
// and restricted to living players.
func Moderate(p Phase, senderAlive bool, kind ContentKind) Verdict {
	switch p.Kind {
	case PhaseNight, PhaseDayNominate:
		return Delete
	case PhaseDayDiscussion:
		if kind != ContentText {
			return Delete
		}
		return Allow
	case PhaseDayLynch:
		if !senderAlive || kind != ContentText {
			return Delete
		}
		return Allow
	default:
		// Lobby, morning report, last word, game over: no restriction.
		return Allow
	}
}
