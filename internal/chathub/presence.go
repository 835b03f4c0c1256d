package chathub

import (
	"sort"
	"sync"
)

// Presence tracks who is online and which chat each user has open.
// Changes to the online set are announced through onChange in the order they
// were applied. The hook runs outside the state lock, so lookups never wait
// on a slow announcement.
type Presence struct {
	announce    sync.Mutex
	mu          sync.Mutex
	online      map[string]struct{}
	activeChats map[string]string
	onChange    func(online []string)
}

func NewPresence(onChange func(online []string)) *Presence {
	return &Presence{
		online:      make(map[string]struct{}),
		activeChats: make(map[string]string),
		onChange:    onChange,
	}
}

// MarkOnline adds userID to the online set and announces the new set.
// Calling it for a user who is already online only repeats the announcement.
func (p *Presence) MarkOnline(userID string) {
	p.announce.Lock()
	defer p.announce.Unlock()

	p.mu.Lock()
	p.online[userID] = struct{}{}
	online := p.snapshot()
	p.mu.Unlock()

	p.notify(online)
}

// MarkOffline removes userID from the online set, forgets its open chat and
// announces the new set.
func (p *Presence) MarkOffline(userID string) {
	p.announce.Lock()
	defer p.announce.Unlock()

	p.mu.Lock()
	delete(p.online, userID)
	delete(p.activeChats, userID)
	online := p.snapshot()
	p.mu.Unlock()

	p.notify(online)
}

func (p *Presence) SetActiveChat(userID, targetUserID string) {
	p.mu.Lock()
	p.activeChats[userID] = targetUserID
	p.mu.Unlock()
}

func (p *Presence) ClearActiveChat(userID string) {
	p.mu.Lock()
	delete(p.activeChats, userID)
	p.mu.Unlock()
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.online[userID]
	return ok
}

// IsViewing reports whether userID currently has the chat with targetUserID open.
func (p *Presence) IsViewing(userID, targetUserID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	target, ok := p.activeChats[userID]
	return ok && target == targetUserID
}

// Online returns the sorted online set.
func (p *Presence) Online() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Presence) notify(online []string) {
	if p.onChange != nil {
		p.onChange(online)
	}
}

func (p *Presence) snapshot() []string {
	ids := make([]string, 0, len(p.online))
	for id := range p.online {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
