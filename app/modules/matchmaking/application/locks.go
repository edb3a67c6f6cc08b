package matchmakingservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/lobby-bot/app/shared/types"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrLobbyBusy is returned when the lobby lock could not be taken in time.
var ErrLobbyBusy = errors.New("lobby is busy, try again")

// LobbyLocks serializes mutating operations per lobby. Different lobbies never
// contend.
type LobbyLocks struct {
	slots   *xsync.MapOf[sharedtypes.LobbyKey, chan struct{}]
	timeout time.Duration
}

// NewLobbyLocks creates a lock table. A positive timeout bounds every acquisition.
func NewLobbyLocks(timeout time.Duration) *LobbyLocks {
	return &LobbyLocks{
		slots:   xsync.NewMapOf[sharedtypes.LobbyKey, chan struct{}](),
		timeout: timeout,
	}
}

// crossLobbyWait bounds the wait for another lobby's lock when the table itself has
// no timeout, so two operations locking each other's lobbies cannot wait forever.
const crossLobbyWait = 5 * time.Second

// Acquire blocks until the lobby is free, the timeout passes or ctx is done.
func (l *LobbyLocks) Acquire(ctx context.Context, key sharedtypes.LobbyKey) (release func(), err error) {
	return l.acquireWithin(ctx, key, l.timeout)
}

func (l *LobbyLocks) acquireWithin(ctx context.Context, key sharedtypes.LobbyKey, timeout time.Duration) (func(), error) {
	slot, _ := l.slots.LoadOrCompute(key, func() chan struct{} {
		return make(chan struct{}, 1)
	})

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrLobbyBusy, key, ctx.Err())
	}
}

type heldLocksKey struct{}

// heldLocks are the lobby locks one operation holds. They are released together
// once its transaction has finished.
type heldLocks struct {
	locks    *LobbyLocks
	keys     map[sharedtypes.LobbyKey]struct{}
	releases []func()
}

func (h *heldLocks) add(key sharedtypes.LobbyKey, release func()) {
	h.keys[key] = struct{}{}
	h.releases = append(h.releases, release)
}

func (h *heldLocks) releaseAll() {
	for i := len(h.releases) - 1; i >= 0; i-- {
		h.releases[i]()
	}
	h.releases = nil
}

// lockOther takes key's lock for the rest of the operation running in ctx. Keys the
// operation already holds are skipped.
func lockOther(ctx context.Context, key sharedtypes.LobbyKey) error {
	held, ok := ctx.Value(heldLocksKey{}).(*heldLocks)
	if !ok {
		return fmt.Errorf("lock %s: no lobby lock held by this operation", key)
	}
	if _, ok := held.keys[key]; ok {
		return nil
	}
	wait := held.locks.timeout
	if wait <= 0 {
		wait = crossLobbyWait
	}
	release, err := held.locks.acquireWithin(ctx, key, wait)
	if err != nil {
		return err
	}
	held.add(key, release)
	return nil
}
