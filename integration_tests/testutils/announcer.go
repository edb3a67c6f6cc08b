package testutils

import (
	"context"
	"sync"

	matchmakingservice "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/application"
)

// RecordingAnnouncer keeps every announcement in delivery order.
type RecordingAnnouncer struct {
	mu            sync.Mutex
	announcements []matchmakingservice.Announcement
}

func (a *RecordingAnnouncer) Announce(_ context.Context, ann matchmakingservice.Announcement) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.announcements = append(a.announcements, ann)
}

// Kinds returns the recorded announcement kinds.
func (a *RecordingAnnouncer) Kinds() []matchmakingservice.AnnouncementKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	kinds := make([]matchmakingservice.AnnouncementKind, 0, len(a.announcements))
	for _, ann := range a.announcements {
		kinds = append(kinds, ann.Kind)
	}
	return kinds
}

// Last returns the most recent announcement of kind.
func (a *RecordingAnnouncer) Last(kind matchmakingservice.AnnouncementKind) (matchmakingservice.Announcement, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.announcements) - 1; i >= 0; i-- {
		if a.announcements[i].Kind == kind {
			return a.announcements[i], true
		}
	}
	return matchmakingservice.Announcement{}, false
}

var _ matchmakingservice.Announcer = (*RecordingAnnouncer)(nil)
