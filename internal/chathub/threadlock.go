package chathub

import "sync"

// threadLocks serialises writes to one conversation together with the
// broadcast of its resulting state, so the last thread a client receives
// always contains every committed message.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	sync.Mutex
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*threadLock)}
}

// lock blocks until conversationID is free and returns its release func.
func (t *threadLocks) lock(conversationID string) func() {
	t.mu.Lock()
	l, ok := t.locks[conversationID]
	if !ok {
		l = &threadLock{}
		t.locks[conversationID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, conversationID)
		}
		t.mu.Unlock()
	}
}
