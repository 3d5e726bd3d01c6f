package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mr1hm/go-trip-alerts/internal/broadcast"
	"github.com/mr1hm/go-trip-alerts/internal/models"
	"github.com/mr1hm/go-trip-alerts/internal/repository"
)

// RecordingEmitter delivers notifications by writing them to the notification log and
// broadcasting them to stream subscribers.
type RecordingEmitter struct {
	repo        repository.NotificationRepository
	broadcaster *broadcast.Broadcaster[models.Notification]
}

func NewRecordingEmitter(repo repository.NotificationRepository, broadcaster *broadcast.Broadcaster[models.Notification]) *RecordingEmitter {
	return &RecordingEmitter{repo: repo, broadcaster: broadcaster}
}

func (e *RecordingEmitter) Emit(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if err := e.repo.RecordNotification(ctx, n); err != nil {
		return fmt.Errorf("recording notification: %w", err)
	}
	if e.broadcaster != nil {
		e.broadcaster.Broadcast(*n)
	}
	return nil
}
