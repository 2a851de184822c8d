package storage_test

import (
	"context"
	"supportdesk/backend/internal/models"
	"supportdesk/backend/internal/storage"
	"supportdesk/backend/internal/storage/storagetest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedParticipants(t *testing.T, s *storage.Service, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := s.EnsureParticipant(context.Background(), models.Identity{ID: id, Name: "name-" + id})
		require.NoError(t, err)
	}
}

func TestGetOrCreateThread_ConcurrentEitherOrder(t *testing.T) {
	s := storagetest.Open(t)
	ctx := context.Background()
	seedParticipants(t, s, "alice", "bob")

	const n = 20
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			thread, err := s.GetOrCreateThread(ctx, a, b, models.DisplayOverride{})
			errs[i] = err
			if thread != nil {
				ids[i] = thread.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "every caller must get the same thread")
	}

	var count int64
	require.NoError(t, s.DB.Model(&models.Thread{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateThread_NewThreadShape(t *testing.T) {
	s := storagetest.Open(t)
	ctx := context.Background()
	seedParticipants(t, s, "u1", "maintainer")

	thread, err := s.GetOrCreateThread(ctx, "u1", "maintainer", models.DisplayOverride{Name: "Support Team"})
	require.NoError(t, err)

	assert.NotEmpty(t, thread.ID)
	assert.Equal(t, "maintainer", thread.ParticipantLow)
	assert.Equal(t, "u1", thread.ParticipantHigh)
	assert.Equal(t, "u1", thread.InitiatorID)
	assert.Equal(t, "Support Team", thread.DisplayName)
	assert.Empty(t, thread.LastMessage)
	assert.Nil(t, thread.LastMessageAt)

	unread, err := s.ComputeUnread(ctx, thread.ID, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestFindThread_Symmetric(t *testing.T) {
	s := storagetest.Open(t)
	ctx := context.Background()
	seedParticipants(t, s, "alice", "bob", "carol")

	none, err := s.FindThread(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Nil(t, none)

	created, err := s.GetOrCreateThread(ctx, "bob", "alice", models.DisplayOverride{})
	require.NoError(t, err)

	found, err := s.FindThread(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	other, err := s.FindThread(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestGetOrCreateThread_InvalidPair(t *testing.T) {
	s := storagetest.Open(t)
	ctx := context.Background()

	_, err := s.GetOrCreateThread(ctx, "alice", "alice", models.DisplayOverride{})
	assert.ErrorIs(t, err, storage.ErrInvalidPair)

	_, err = s.GetOrCreateThread(ctx, "", "alice", models.DisplayOverride{})
	assert.ErrorIs(t, err, storage.ErrInvalidPair)
}

func TestGetOrCreateThread_RefreshesDisplayWithoutActivity(t *testing.T) {
	s := storagetest.Open(t)
	ctx := context.Background()
	seedParticipants(t, s, "u1", "maintainer")

	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return clock }

	created, err := s.GetOrCreateThread(ctx, "u1", "maintainer", models.DisplayOverride{Name: "Support"})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	again, err := s.GetOrCreateThread(ctx, "maintainer", "u1", models.DisplayOverride{Name: "Support Team", Avatar: "https://cdn.example.com/s.png"})
	require.NoError(t, err)

	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Support Team", again.DisplayName)
	assert.Equal(t, "https://cdn.example.com/s.png", again.DisplayAvatar)

	stored, err := s.GetThread(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Support Team", stored.DisplayName)
	assert.True(t, stored.UpdatedAt.Equal(created.UpdatedAt), "display refresh is not activity")
}

func TestGetThread_NotFound(t *testing.T) {
	s := storagetest.Open(t)

	_, err := s.GetThread(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, storage.ErrThreadNotFound)
	assert.Equal(t, storage.CodeThreadNotFound, storage.CodeOf(err))
}

func TestListThreadsFor_MostRecentFirst(t *testing.T) {
	s := storagetest.Open(t)
	ctx := context.Background()
	seedParticipants(t, s, "alice", "bob", "carol", "dave")

	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return clock }

	withBob, err := s.GetOrCreateThread(ctx, "alice", "bob", models.DisplayOverride{})
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	withCarol, err := s.GetOrCreateThread(ctx, "carol", "alice", models.DisplayOverride{})
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	_, err = s.GetOrCreateThread(ctx, "bob", "dave", models.DisplayOverride{})
	require.NoError(t, err)

	threads, err := s.ListThreadsFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, withCarol.ID, threads[0].ID)
	assert.Equal(t, withBob.ID, threads[1].ID)

	clock = clock.Add(time.Minute)
	_, err = s.AppendMessage(ctx, models.NewMessage{ThreadID: withBob.ID, SenderID: "bob", SenderName: "Bob", Body: "ping"})
	require.NoError(t, err)

	threads, err = s.ListThreadsFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, withBob.ID, threads[0].ID, "new activity moves the thread up")

	none, err := s.ListThreadsFor(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestComputeUnread(t *testing.T) {
	s := storagetest.Open(t)
	ctx := context.Background()
	seedParticipants(t, s, "a", "b")

	thread, err := s.GetOrCreateThread(ctx, "a", "b", models.DisplayOverride{})
	require.NoError(t, err)

	send := func(sender, body string) {
		t.Helper()
		_, err := s.AppendMessage(ctx, models.NewMessage{ThreadID: thread.ID, SenderID: sender, SenderName: sender, Body: body})
		require.NoError(t, err)
	}

	send("a", "first")
	unread, err := s.ComputeUnread(ctx, thread.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, unread, "viewer who never spoke sees every message as unread")

	send("b", "reply")
	send("a", "one")
	send("a", "two")
	send("a", "three")

	unread, err = s.ComputeUnread(ctx, thread.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	unread, err = s.ComputeUnread(ctx, thread.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	send("b", "thanks")
	unread, err = s.ComputeUnread(ctx, thread.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
	unread, err = s.ComputeUnread(ctx, thread.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestComputeUnread_TiesBrokenByInsertionOrder(t *testing.T) {
	s := storagetest.Open(t)
	ctx := context.Background()
	seedParticipants(t, s, "a", "b")

	frozen := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return frozen }

	thread, err := s.GetOrCreateThread(ctx, "a", "b", models.DisplayOverride{})
	require.NoError(t, err)

	for _, m := range []struct{ sender, body string }{{"a", "x"}, {"b", "y"}, {"a", "z"}} {
		_, err := s.AppendMessage(ctx, models.NewMessage{ThreadID: thread.ID, SenderID: m.sender, SenderName: m.sender, Body: m.body})
		require.NoError(t, err)
	}

	unread, err := s.ComputeUnread(ctx, thread.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, unread, "only the message inserted after b's reply counts")
}

func TestUnreadCache_FollowsRecipient(t *testing.T) {
	s := storagetest.Open(t)
	ctx := context.Background()
	seedParticipants(t, s, "a", "b")

	thread, err := s.GetOrCreateThread(ctx, "a", "b", models.DisplayOverride{})
	require.NoError(t, err)

	for _, sender := range []string{"a", "a", "b"} {
		_, err := s.AppendMessage(ctx, models.NewMessage{ThreadID: thread.ID, SenderID: sender, SenderName: sender, Body: "hi"})
		require.NoError(t, err)
	}

	stored, err := s.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", stored.UnreadFor)
	assert.Equal(t, 1, stored.UnreadCount)

	computed, err := s.ComputeUnread(ctx, thread.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, stored.UnreadCount, computed)
}
