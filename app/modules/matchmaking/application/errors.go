package matchmakingservice

import (
	"errors"

	matchmakingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/domain"
	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
)

var businessErrors = []error{
	ErrLobbyBusy,

	matchmakingdomain.ErrNotALobby,
	matchmakingdomain.ErrLobbyExists,
	matchmakingdomain.ErrInvalidLobbySettings,
	matchmakingdomain.ErrAlreadyQueued,
	matchmakingdomain.ErrNotQueued,
	matchmakingdomain.ErrQueueFull,
	matchmakingdomain.ErrGamePicking,
	matchmakingdomain.ErrGameNotFound,
	matchmakingdomain.ErrOpenGameExists,
	matchmakingdomain.ErrWrongTurn,
	matchmakingdomain.ErrWrongPickCount,
	matchmakingdomain.ErrPlayerNotQueued,
	matchmakingdomain.ErrPlayerAlreadyPicked,
	matchmakingdomain.ErrCannotPickCaptain,
	matchmakingdomain.ErrGameNotPicking,
	matchmakingdomain.ErrNotAPlayer,
	matchmakingdomain.ErrAlreadyVoted,
	matchmakingdomain.ErrGameNotVotable,
	matchmakingdomain.ErrVotingDisabled,
	matchmakingdomain.ErrVoteLocked,
	matchmakingdomain.ErrInvalidVote,
	matchmakingdomain.ErrGameNotUndecided,
	matchmakingdomain.ErrGameNotDecided,
	matchmakingdomain.ErrGameFinished,
	matchmakingdomain.ErrLegacyGame,
	matchmakingdomain.ErrInvalidTeam,
	matchmakingdomain.ErrQueueSize,
	matchmakingdomain.ErrMapExists,
	matchmakingdomain.ErrMapNotFound,
	matchmakingdomain.ErrSelfParty,
	matchmakingdomain.ErrAlreadyInParty,
	matchmakingdomain.ErrNotInParty,
	matchmakingdomain.ErrBanned,
	matchmakingdomain.ErrBelowMinimumPoints,
	matchmakingdomain.ErrMultiQueue,
	matchmakingdomain.ErrRequeueCooldown,

	ratingdomain.ErrNotRegistered,
}

func isBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
