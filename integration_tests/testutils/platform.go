package testutils

import (
	"context"
	"sync"

	"github.com/Black-And-White-Club/lobby-bot/app/shared/identity"
)

// RecordingPlatform captures platform side effects instead of performing them.
type RecordingPlatform struct {
	mu      sync.Mutex
	syncs   []identity.MemberSync
	directs []identity.DirectMessage
}

func (p *RecordingPlatform) SyncMember(_ context.Context, req identity.MemberSync) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncs = append(p.syncs, req)
	return nil
}

func (p *RecordingPlatform) SendDirect(_ context.Context, dm identity.DirectMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.directs = append(p.directs, dm)
	return nil
}

// Syncs returns a copy of the recorded member syncs.
func (p *RecordingPlatform) Syncs() []identity.MemberSync {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]identity.MemberSync(nil), p.syncs...)
}

// Directs returns a copy of the recorded direct messages.
func (p *RecordingPlatform) Directs() []identity.DirectMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]identity.DirectMessage(nil), p.directs...)
}

var _ identity.Platform = (*RecordingPlatform)(nil)
