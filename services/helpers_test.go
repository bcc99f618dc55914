package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase("sqlite", "file::memory:", "silent")
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func mkUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username, FirstName: username}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// mkPost inserts a post minutes after base so ordering is explicit.
func mkPost(t *testing.T, db *gorm.DB, author models.User, minutes int, text string) models.Post {
	t.Helper()
	p := models.Post{AuthorID: author.ID, Text: text, CreatedAt: base.Add(time.Duration(minutes) * time.Minute)}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// afterFirstQuery runs fn once, right after the first query that reads table.
// It returns a func reporting whether fn ran.
func afterFirstQuery(t *testing.T, db *gorm.DB, table string, fn func(tx *gorm.DB)) func() bool {
	t.Helper()
	ran := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:after_first_"+table, func(tx *gorm.DB) {
		if ran || tx.Statement.Table != table {
			return
		}
		ran = true
		fn(tx.Session(&gorm.Session{NewDB: true}))
	}))
	return func() bool { return ran }
}

func texts(items []PostView) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Text
	}
	return out
}

type capturedEvent struct {
	subject string
	event   interface{}
}

// eventSink records published events.
type eventSink struct {
	mu     sync.Mutex
	events []capturedEvent
	ch     chan struct{}
}

func newEventSink() *eventSink {
	return &eventSink{ch: make(chan struct{}, 16)}
}

func (s *eventSink) Publish(_ context.Context, subject string, event interface{}) error {
	s.mu.Lock()
	s.events = append(s.events, capturedEvent{subject: subject, event: event})
	s.mu.Unlock()
	s.ch <- struct{}{}
	return nil
}

func (s *eventSink) wait(t *testing.T, n int) []capturedEvent {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected %d events, got %d", n, i)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedEvent(nil), s.events...)
}

var _ utils.EventPublisher = (*eventSink)(nil)
