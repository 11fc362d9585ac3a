package mafia

import "errors"

// Precondition errors surfaced to the acting user. None of them mutate
// game state.
var (
	// ErrGameActive is returned when a chat already hosts an active game.
	ErrGameActive = errors.New("a game is already active in this chat")
	// ErrLobbyClosed is returned when a lobby operation arrives after the
	// game has left the lobby phase.
	ErrLobbyClosed = errors.New("the lobby is closed")
	// ErrLobbyFull is returned when the roster is at the configured maximum.
	ErrLobbyFull = errors.New("the lobby is full")
	// ErrAlreadyJoined is returned when a player joins a lobby twice.
	ErrAlreadyJoined = errors.New("already joined this game")
	// ErrNotAuthorized is returned when an actor lacks permission for an action.
	ErrNotAuthorized = errors.New("not authorized for this action")
	// ErrCreatorCannotLeave is returned when the lobby creator tries to
	// leave instead of cancelling.
	ErrCreatorCannotLeave = errors.New("the creator must cancel the game, not leave it")
	// ErrNotEnoughPlayers is returned on a forced start below the minimum roster.
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	// ErrVotingClosed is returned when a ballot arrives after its voting
	// window has closed.
	ErrVotingClosed = errors.New("voting is closed")
	// ErrGameNotFound is returned when no game exists for the chat.
	ErrGameNotFound = errors.New("no game found for this chat")
	// ErrNotInGame is returned when a ballot comes from someone outside the roster.
	ErrNotInGame = errors.New("not a participant of this game")
	// ErrInvalidTarget is returned for a ballot naming a dead, absent or
	// otherwise illegal target.
	ErrInvalidTarget = errors.New("invalid target for this action")
	// ErrSelfProtectSpent is returned when the doctor tries to protect
	// themselves a second time.
	ErrSelfProtectSpent = errors.New("self-protection already used this game")
	// ErrUnreachablePlayers is returned when the pre-start reachability
	// probe fails for at least one roster member.
	ErrUnreachablePlayers = errors.New("some players cannot receive private messages")
)
