package chathub_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatsync/backend/internal/chathub"
	"chatsync/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, hub *chathub.ManagerService) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
}

func onlineList(t *testing.T, c *MockClient) []string {
	t.Helper()
	ids, ok := lastNamed(t, c, models.EventOnlineUser).Data.([]string)
	require.True(t, ok)
	return ids
}

func TestManager_RegisterBroadcastsOnlineUsers(t *testing.T) {
	hub := chathub.NewManagerService(newMemStore(), nil, discardLogger())
	startHub(t, hub)
	alice, bob := newMockClient("alice"), newMockClient("bob")

	hub.Register(alice)
	assert.Eventually(t, func() bool { return hub.Presence.IsOnline("alice") }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"alice"}, onlineList(t, alice))

	hub.Register(bob)
	assert.Eventually(t, func() bool { return len(alice.Named(models.EventOnlineUser)) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"alice", "bob"}, onlineList(t, alice))
	assert.Equal(t, []string{"alice", "bob"}, onlineList(t, bob))
}

func TestManager_UnregisterMarksOfflineAndRecordsLastSeen(t *testing.T) {
	store := newMemStore(&models.User{ID: "alice"}, &models.User{ID: "bob"})
	hub := chathub.NewManagerService(store, nil, discardLogger())
	startHub(t, hub)
	alice, bob := newMockClient("alice"), newMockClient("bob")
	hub.Register(alice)
	hub.Register(bob)
	assert.Eventually(t, func() bool { return hub.Presence.IsOnline("bob") }, time.Second, 10*time.Millisecond)
	hub.Presence.SetActiveChat("alice", "bob")

	before := time.Now()
	hub.Unregister(alice)

	assert.Eventually(t, func() bool { return !hub.Presence.IsOnline("alice") }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		ids := bob.Named(models.EventOnlineUser)
		last, _ := ids[len(ids)-1].Data.([]string)
		return assert.ObjectsAreEqual([]string{"bob"}, last)
	}, time.Second, 10*time.Millisecond)
	assert.True(t, alice.IsClosed())
	assert.False(t, hub.Presence.IsViewing("alice", "bob"))

	assert.Eventually(t, func() bool {
		at, ok := store.LastSeen("alice")
		return ok && !at.Before(before) && time.Since(at) < 5*time.Second
	}, time.Second, 10*time.Millisecond)
}

// Presence is per user: closing any one connection takes the user offline.
func TestManager_ClosingOneOfManyConnections(t *testing.T) {
	hub := chathub.NewManagerService(newMemStore(), nil, discardLogger())
	startHub(t, hub)
	phone, laptop := newMockClient("alice"), newMockClient("alice")
	hub.Register(phone)
	hub.Register(laptop)
	assert.Eventually(t, func() bool { return hub.Groups.Size("alice") == 2 }, time.Second, 10*time.Millisecond)

	hub.Unregister(phone)

	assert.Eventually(t, func() bool { return !hub.Presence.IsOnline("alice") }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Groups.Size("alice"))
	assert.False(t, laptop.IsClosed())
}

func TestManager_UnregisterTwiceIsHarmless(t *testing.T) {
	calls := make(chan struct{}, 4)
	store := new(MockStorage)
	store.On("UpdateLastSeen", mock.Anything, "alice", mock.AnythingOfType("time.Time")).
		Run(func(mock.Arguments) { calls <- struct{}{} }).
		Return(nil)
	hub := chathub.NewManagerService(store, nil, discardLogger())
	startHub(t, hub)
	alice := newMockClient("alice")
	hub.Register(alice)

	hub.Unregister(alice)
	hub.Unregister(alice)

	waitCall(t, calls)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, calls, "lastSeen is written once")
}

func waitCall(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("UpdateLastSeen was not called")
	}
}

func TestManager_LastSeenFailureIsTolerated(t *testing.T) {
	calls := make(chan struct{}, 1)
	store := new(MockStorage)
	store.On("UpdateLastSeen", mock.Anything, "alice", mock.Anything).
		Run(func(mock.Arguments) { calls <- struct{}{} }).
		Return(errors.New("connection reset"))
	hub := chathub.NewManagerService(store, nil, discardLogger())
	startHub(t, hub)
	alice := newMockClient("alice")
	hub.Register(alice)
	hub.Unregister(alice)

	waitCall(t, calls)
	assert.False(t, hub.Presence.IsOnline("alice"))
}

func TestManager_RegisterAfterStopDoesNotBlock(t *testing.T) {
	hub := chathub.NewManagerService(newMemStore(), nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		hub.Register(newMockClient("late"))
		hub.Unregister(newMockClient("late"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register blocked after Run stopped")
	}
}
