package alerts

import (
	"context"
	"time"
)

type Type string

const (
	TypeJobClaimed   Type = "job_claimed"
	TypeBidReceived  Type = "bid_received"
	TypeBidAccepted  Type = "bid_accepted"
	TypeBidRejected  Type = "bid_rejected"
	TypeJobCompleted Type = "job_completed"
	TypeJobCancelled Type = "job_cancelled"
	TypeNewRating    Type = "new_rating"
)

const (
	maxTitleLen   = 100
	maxMessageLen = 500
)

type Notification struct {
	ID         string    `json:"id" bson:"_id"`
	UserID     string    `json:"user" bson:"user"`
	Type       Type      `json:"type" bson:"type"`
	Title      string    `json:"title" bson:"title"`
	Message    string    `json:"message" bson:"message"`
	RelatedJob string    `json:"relatedJob,omitempty" bson:"relatedJob,omitempty"`
	RelatedBid string    `json:"relatedBid,omitempty" bson:"relatedBid,omitempty"`
	IsRead     bool      `json:"isRead" bson:"isRead"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

type Filter struct {
	UserID     string
	UnreadOnly bool
	Skip       int64
	Limit      int64
}

type Store interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, f Filter) ([]*Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// MarkRead flips isRead on a notification owned by userID; store.ErrNotFound otherwise.
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}
