package ratingservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	ratingdb "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/results"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// BanRequest suspends a user from matchmaking. Length accepts Go durations ("90m")
// or English phrases ("3 days", "in 2 weeks").
type BanRequest struct {
	GuildID     sharedtypes.GuildID
	UserID      sharedtypes.UserID
	ModeratorID sharedtypes.UserID
	Length      string
	Reason      string
}

type banResult = results.OperationResult[*ratingdomain.Ban, error]

// BanPlayer records a new ban starting now.
func (s *RatingService) BanPlayer(ctx context.Context, req BanRequest) (*ratingdomain.Ban, error) {
	result, err := withTelemetry(s, ctx, "BanPlayer", string(req.UserID), func(ctx context.Context) (banResult, error) {
		now := s.now().UTC()
		length, err := ParseBanLength(req.Length, now)
		if err != nil {
			return results.FailureResult[*ratingdomain.Ban, error](err), nil
		}
		row := &ratingdb.Ban{
			GuildID:       req.GuildID,
			UserID:        req.UserID,
			StartedAt:     now,
			LengthSeconds: int64(length / time.Second),
			ModeratorID:   req.ModeratorID,
			Reason:        req.Reason,
		}
		if err := s.repo.CreateBan(ctx, nil, row); err != nil {
			return banResult{}, err
		}
		ban := toDomainBan(*row)
		return results.SuccessResult[*ratingdomain.Ban, error](&ban), nil
	})
	return unwrap(result, err)
}

// UnbanPlayer marks every ban of the user as manually overridden.
func (s *RatingService) UnbanPlayer(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) error {
	result, err := withTelemetry(s, ctx, "UnbanPlayer", string(userID), func(ctx context.Context) (emptyResult, error) {
		active, err := s.ledger.ActiveBan(ctx, nil, guildID, userID, s.now())
		if err != nil {
			return emptyResult{}, err
		}
		if active == nil {
			return fail(ratingdomain.ErrNotBanned)
		}
		if _, err := s.repo.OverrideBans(ctx, nil, guildID, userID); err != nil {
			return emptyResult{}, err
		}
		return ok()
	})
	_, err = unwrap(result, err)
	return err
}

// ActiveBan returns the ban currently blocking the user, or nil.
func (s *RatingService) ActiveBan(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*ratingdomain.Ban, error) {
	return s.ledger.ActiveBan(ctx, nil, guildID, userID, s.now())
}

// ParseBanLength turns a ban length into a positive duration measured from now.
func ParseBanLength(text string, now time.Time) (time.Duration, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0, ratingdomain.ErrInvalidBanLength
	}

	if d, err := time.ParseDuration(text); err == nil {
		if d <= 0 {
			return 0, ratingdomain.ErrInvalidBanLength
		}
		return d, nil
	}

	if !strings.HasPrefix(text, "in ") && !strings.HasPrefix(text, "within ") {
		text = "in " + text
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil || r == nil {
		return 0, fmt.Errorf("%w: %q", ratingdomain.ErrInvalidBanLength, text)
	}
	d := r.Time.Sub(now)
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q", ratingdomain.ErrInvalidBanLength, text)
	}
	return d, nil
}
