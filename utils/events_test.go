package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	got chan publishedEvent
}

type publishedEvent struct {
	subject   string
	event     interface{}
	requestID string
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	rid, _ := ctx.Value(RequestIDKey{}).(string)
	p.got <- publishedEvent{subject: subject, event: event, requestID: rid}
	return nil
}

func TestPublishAsyncSurvivesCancelledRequest(t *testing.T) {
	pub := &recordingPublisher{got: make(chan publishedEvent, 1)}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), RequestIDKey{}, "rid-1"))
	cancel()

	PublishAsync(ctx, pub, SubjectFollowCreated, FollowEvent{UserID: 1, AuthorID: 2})

	select {
	case ev := <-pub.got:
		assert.Equal(t, SubjectFollowCreated, ev.subject)
		assert.Equal(t, FollowEvent{UserID: 1, AuthorID: 2}, ev.event)
		assert.Equal(t, "rid-1", ev.requestID)
	case <-time.After(2 * time.Second):
		require.Fail(t, "event not published")
	}
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), SubjectPostCreated, PostCreatedEvent{ID: 1}))
	PublishAsync(context.Background(), nil, SubjectPostCreated, nil)
}
