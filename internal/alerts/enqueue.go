package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Emitter records in-app notifications. Delivery is best-effort: a failed
// write is logged and never surfaced to the action that triggered it.
type Emitter struct {
	store Store
	log   *logrus.Logger
}

func NewEmitter(s Store, log *logrus.Logger) *Emitter {
	return &Emitter{store: s, log: log}
}

func (e *Emitter) Notify(ctx context.Context, n Notification) {
	if n.UserID == "" {
		return
	}
	n.ID = uuid.NewString()
	n.Title = truncate(n.Title, maxTitleLen)
	n.Message = truncate(n.Message, maxMessageLen)
	n.IsRead = false
	n.CreatedAt = time.Now().UTC()

	if err := e.store.CreateNotification(ctx, &n); err != nil {
		e.log.WithFields(logrus.Fields{
			"user_id":     n.UserID,
			"type":        n.Type,
			"related_job": n.RelatedJob,
		}).WithError(err).Warn("failed to record notification")
		return
	}
	e.log.WithFields(logrus.Fields{"user_id": n.UserID, "type": n.Type}).Debug("notification recorded")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
