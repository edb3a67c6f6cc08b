package matchmakingdomain

import "errors"

// Validation errors.
var (
	ErrNotALobby            = errors.New("this channel is not a lobby")
	ErrLobbyExists          = errors.New("this channel is already a lobby")
	ErrInvalidLobbySettings = errors.New("invalid lobby settings")
	ErrAlreadyQueued        = errors.New("already in the queue")
	ErrNotQueued            = errors.New("not in the queue")
	ErrQueueFull            = errors.New("the queue is full")
	ErrGamePicking          = errors.New("captains are still picking teams")
	ErrGameNotFound         = errors.New("game not found")
	ErrOpenGameExists       = errors.New("another game in this lobby is still open")

	ErrWrongTurn           = errors.New("it is not your turn to pick")
	ErrWrongPickCount      = errors.New("wrong number of players picked")
	ErrPlayerNotQueued     = errors.New("picked player is not in the queue")
	ErrPlayerAlreadyPicked = errors.New("picked player is already on a team")
	ErrCannotPickCaptain   = errors.New("captains cannot be picked")
	ErrGameNotPicking      = errors.New("game is not in the picking phase")

	ErrNotAPlayer     = errors.New("not a player in this game")
	ErrAlreadyVoted   = errors.New("already voted on this game")
	ErrGameNotVotable = errors.New("game is not awaiting a result")
	ErrVotingDisabled = errors.New("result voting is disabled")
	ErrVoteLocked     = errors.New("votes disagreed, a moderator must submit the result")
	ErrInvalidVote    = errors.New("vote must be win, lose, draw or cancel")

	ErrGameNotUndecided = errors.New("game result was already recorded")
	ErrGameNotDecided   = errors.New("game has no result to undo")
	ErrGameFinished     = errors.New("game is already finished")
	ErrLegacyGame       = errors.New("legacy games cannot be changed")
	ErrInvalidTeam      = errors.New("team must be 1 or 2")
	ErrQueueSize        = errors.New("queue size does not match the lobby")

	ErrMapExists   = errors.New("map already in the pool")
	ErrMapNotFound = errors.New("map not in the pool")

	ErrSelfParty      = errors.New("cannot add yourself to your party")
	ErrAlreadyInParty = errors.New("player is already in a party")
	ErrNotInParty     = errors.New("player is not in a party")
)

// Policy errors.
var (
	ErrBanned             = errors.New("banned from matchmaking")
	ErrBelowMinimumPoints = errors.New("not enough points for this lobby")
	ErrMultiQueue         = errors.New("already queued in another lobby")
	ErrRequeueCooldown    = errors.New("requeue cooldown active")
)
