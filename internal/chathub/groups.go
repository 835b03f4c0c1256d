package chathub

import (
	"context"
	"log/slog"
	"sync"

	"chatsync/backend/internal/models"
)

// Broadcaster fans events out to per-user groups.
type Broadcaster interface {
	// Publish delivers ev to every connection of userID.
	Publish(ctx context.Context, userID string, ev models.OutboundEvent)
	// PublishAll delivers ev to every connection.
	PublishAll(ctx context.Context, ev models.OutboundEvent)
}

// Groups is the in-process Broadcaster: connections keyed by user id.
type Groups struct {
	mu      sync.RWMutex
	members map[string]map[Client]struct{}
	log     *slog.Logger
}

func NewGroups(log *slog.Logger) *Groups {
	return &Groups{
		members: make(map[string]map[Client]struct{}),
		log:     log,
	}
}

func (g *Groups) Join(userID string, c Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.members[userID]
	if !ok {
		set = make(map[Client]struct{})
		g.members[userID] = set
	}
	set[c] = struct{}{}
}

// Leave removes c from its group and reports whether it was a member.
func (g *Groups) Leave(userID string, c Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.members[userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(g.members, userID)
	}
	return true
}

// Size returns the number of connections userID has.
func (g *Groups) Size(userID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members[userID])
}

func (g *Groups) Publish(_ context.Context, userID string, ev models.OutboundEvent) {
	g.mu.RLock()
	targets := make([]Client, 0, len(g.members[userID]))
	for c := range g.members[userID] {
		targets = append(targets, c)
	}
	g.mu.RUnlock()

	g.deliver(targets, ev)
}

func (g *Groups) PublishAll(_ context.Context, ev models.OutboundEvent) {
	g.mu.RLock()
	var targets []Client
	for _, set := range g.members {
		for c := range set {
			targets = append(targets, c)
		}
	}
	g.mu.RUnlock()

	g.deliver(targets, ev)
}

// deliver drops a connection that cannot keep up rather than blocking the sender.
func (g *Groups) deliver(targets []Client, ev models.OutboundEvent) {
	for _, c := range targets {
		if !c.Send(ev) {
			g.log.Warn("groups - deliver - queue full, closing connection",
				slog.String("user_id", c.GetUserID()),
				slog.String("event", ev.Event),
			)
			c.Close()
		}
	}
}
