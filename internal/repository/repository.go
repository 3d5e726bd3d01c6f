package repository

import (
	"context"
	"errors"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

var ErrNotFound = errors.New("not found")

type Filter struct {
	Limit  int
	Offset int
}

type SettingsRepository interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, s models.Settings) error
}

// DedupRepository persists the id of the last alert delivered as a notification.
type DedupRepository interface {
	LastDeliveredAlertID(ctx context.Context) (string, error)
	SetLastDeliveredAlertID(ctx context.Context, id string) error
}

type NotificationRepository interface {
	RecordNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, opts Filter) ([]models.Notification, error)
}
