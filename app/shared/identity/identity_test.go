package identity

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	ratingdomain "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/domain"
	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/Black-And-White-Club/lobby-bot/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	syncs   []MemberSync
	failFor map[sharedtypes.UserID]error
}

func (f *fakePlatform) SyncMember(ctx context.Context, req MemberSync) error {
	f.syncs = append(f.syncs, req)
	return f.failFor[req.UserID]
}

func (f *fakePlatform) SendDirect(ctx context.Context, dm DirectMessage) error { return nil }

func TestSyncFromScoreChange(t *testing.T) {
	bronze := &ratingdomain.Rank{RoleID: "bronze", Threshold: 10}
	silver := &ratingdomain.Rank{RoleID: "silver", Threshold: 30}

	tests := []struct {
		name       string
		change     ratingdomain.ScoreChange
		wantAdd    []sharedtypes.RoleID
		wantRemove []sharedtypes.RoleID
		wantNick   string
	}{
		{
			name: "rank up from unranked",
			change: ratingdomain.ScoreChange{UserID: "u1", DisplayName: "ada", Result: ratingdomain.ScoreResult{
				NewPoints: 10, NewRank: bronze, Change: ratingdomain.RankUp,
			}},
			wantAdd:  []sharedtypes.RoleID{"bronze"},
			wantNick: "[10] ada",
		},
		{
			name: "derank swaps roles",
			change: ratingdomain.ScoreChange{UserID: "u1", DisplayName: "ada", Result: ratingdomain.ScoreResult{
				NewPoints: 25, OldRank: silver, NewRank: bronze, Change: ratingdomain.DeRank,
			}},
			wantAdd:    []sharedtypes.RoleID{"bronze"},
			wantRemove: []sharedtypes.RoleID{"silver"},
			wantNick:   "[25] ada",
		},
		{
			name: "same rank only renames",
			change: ratingdomain.ScoreChange{UserID: "u1", DisplayName: "ada", Result: ratingdomain.ScoreResult{
				NewPoints: 12, OldRank: bronze, NewRank: bronze,
			}},
			wantNick: "[12] ada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SyncFromScoreChange("g1", tt.change)
			assert.Equal(t, tt.wantAdd, got.AddRoles)
			assert.Equal(t, tt.wantRemove, got.RemoveRoles)
			assert.Equal(t, tt.wantNick, got.Nickname)
		})
	}
}

func TestSyncScoreChanges_FailuresBecomeWarnings(t *testing.T) {
	platform := &fakePlatform{failFor: map[sharedtypes.UserID]error{"u2": errors.New("missing permissions")}}
	changes := []ratingdomain.ScoreChange{{UserID: "u1"}, {UserID: "u2"}, {UserID: "u3"}}

	warnings := SyncScoreChanges(context.Background(), platform, slog.Default(), "g1", changes)

	assert.Len(t, platform.syncs, 3)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "u2")
}

func TestEventBusPlatform_PublishesGuildScoped(t *testing.T) {
	bus := eventbus.NewInMemoryEventBus(slog.Default())
	defer bus.Close()

	ctx := context.Background()
	ch, err := bus.Subscribe(ctx, MemberSyncRequestedV1+".g1")
	require.NoError(t, err)

	platform := NewEventBusPlatform(bus)
	require.NoError(t, platform.SyncMember(ctx, MemberSync{GuildID: "g1", UserID: "u1", Nickname: "[3] ada"}))

	msg := <-ch
	assert.Contains(t, string(msg.Payload), `"nickname":"[3] ada"`)
	msg.Ack()
}
