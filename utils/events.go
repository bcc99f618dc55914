package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects of integration events published after successful writes.
const (
	SubjectPostCreated    = "post.created"
	SubjectFollowCreated  = "follow.created"
	SubjectFollowDeleted  = "follow.deleted"
	SubjectCommentCreated = "comment.created"
)

// PostCreatedEvent is published when a post is stored.
type PostCreatedEvent struct {
	ID        uint      `json:"id"`
	AuthorID  uint      `json:"author_id"`
	GroupID   *uint     `json:"group_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FollowEvent is published when a follow edge is created or removed.
type FollowEvent struct {
	UserID   uint `json:"user_id"`
	AuthorID uint `json:"author_id"`
}

// CommentCreatedEvent is published when a comment is stored.
type CommentCreatedEvent struct {
	ID       uint `json:"id"`
	PostID   uint `json:"post_id"`
	AuthorID uint `json:"author_id"`
}

// EventPublisher delivers integration events. Delivery is best effort:
// a failed publish never undoes the write that triggered it.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event interface{}) error
}

// NopPublisher drops every event. Used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// NatsPublisher publishes JSON encoded events on a NATS connection.
type NatsPublisher struct {
	nc *nats.Conn
}

// NewNatsPublisher wraps an established connection.
func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

// ConnectNats dials url with reconnects enabled.
func ConnectNats(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("yatube"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				Sugar.Warnw("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			Sugar.Infow("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if rid, ok := ctx.Value(RequestIDKey{}).(string); ok && rid != "" {
		msg.Header.Set("X-Request-ID", rid)
	}
	return p.nc.PublishMsg(msg)
}

// RequestIDKey carries the request id in a context.Context.
type RequestIDKey struct{}

// PublishAsync publishes without blocking the caller and logs failures.
func PublishAsync(ctx context.Context, pub EventPublisher, subject string, event interface{}) {
	if pub == nil {
		return
	}
	// detach from request cancellation but keep values
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pub.Publish(ctx, subject, event); err != nil {
			Sugar.Warnw("event publish failed", "subject", subject, "err", err)
		}
	}()
}
