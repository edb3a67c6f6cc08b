package ratingdomain

import "errors"

var (
	// ErrNotRegistered is returned when a command names a user without a player profile.
	ErrNotRegistered = errors.New("player is not registered")

	// ErrAlreadyRegistered is returned by Register for an existing profile.
	ErrAlreadyRegistered = errors.New("player is already registered")

	// ErrRegistrationLimit is returned when the guild reached its entitled player count.
	ErrRegistrationLimit = errors.New("registration limit exceeded")

	// ErrFeatureGated is returned for features the guild is not entitled to.
	ErrFeatureGated = errors.New("feature not available for this guild")

	// ErrRankNotFound is returned when removing an unknown rank.
	ErrRankNotFound = errors.New("rank not found")

	// ErrInvalidRank is returned for ranks with a negative threshold or modifier.
	ErrInvalidRank = errors.New("invalid rank definition")

	// ErrInvalidCompetition is returned for non-positive default modifiers.
	ErrInvalidCompetition = errors.New("invalid competition settings")

	ErrNoPlayers = errors.New("no players named")

	ErrDuplicatePlayer = errors.New("player named more than once")

	// ErrManualGameNotFound is returned when undoing an unknown manual game.
	ErrManualGameNotFound = errors.New("manual game not found")

	// ErrManualGameUndone is returned when undoing a manual game twice.
	ErrManualGameUndone = errors.New("manual game already undone")

	// ErrInvalidBanLength is returned when a ban length cannot be parsed or is not positive.
	ErrInvalidBanLength = errors.New("invalid ban length")

	// ErrNotBanned is returned by Unban when no active ban exists.
	ErrNotBanned = errors.New("player is not banned")
)
