package chathub

import (
	"context"
	"log/slog"
	"time"

	"chatsync/backend/internal/config"
	"chatsync/backend/internal/models"
	"chatsync/backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// IdentityResolver verifies a connection credential.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*models.User, error)
}

// ManagerService owns presence, broadcast groups and the connection
// lifecycle. Registration and removal are serialised through Run; events of a
// single connection are handled in order on that connection's read pump.
type ManagerService struct {
	Storage     storage.Storage
	Resolver    IdentityResolver
	Presence    *Presence
	Groups      *Groups
	Broadcaster Broadcaster

	RegisterCh   chan Client
	UnregisterCh chan Client

	log      *slog.Logger
	tracer   trace.Tracer
	validate *validator.Validate
	threads  *threadLocks
	now      func() time.Time
	done     chan struct{}
}

func NewManagerService(s storage.Storage, r IdentityResolver, log *slog.Logger) *ManagerService {
	m := &ManagerService{
		Storage:      s,
		Resolver:     r,
		Groups:       NewGroups(log),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		log:          log,
		tracer:       otel.Tracer("chatsync/chathub"),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		threads:      newThreadLocks(),
		now:          time.Now,
		done:         make(chan struct{}),
	}
	m.Broadcaster = m.Groups
	m.Presence = NewPresence(m.broadcastOnline)
	return m
}

// UseBroadcaster swaps the fan-out implementation. Call it before Run.
func (m *ManagerService) UseBroadcaster(b Broadcaster) {
	m.Broadcaster = b
}

// Run processes registrations until ctx is cancelled.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)
	m.log.Info("hub - run - started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info("hub - run - stopped")
			return
		case client := <-m.RegisterCh:
			m.register(client)
		case client := <-m.UnregisterCh:
			m.unregister(client)
		}
	}
}

// Register hands a connection to Run. It returns immediately once Run has stopped.
func (m *ManagerService) Register(c Client) {
	select {
	case m.RegisterCh <- c:
	case <-m.done:
	}
}

func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

func (m *ManagerService) register(c Client) {
	userID := c.GetUserID()
	m.Groups.Join(userID, c)
	m.Presence.MarkOnline(userID)
	m.log.Info("hub - register - online",
		slog.String("user_id", userID),
		slog.Int("connections", m.Groups.Size(userID)),
	)
}

// unregister takes the user offline even if other connections remain; presence
// is tracked per user, not per connection.
func (m *ManagerService) unregister(c Client) {
	userID := c.GetUserID()
	if !m.Groups.Leave(userID, c) {
		return
	}
	c.Close()
	m.Presence.MarkOffline(userID)
	m.log.Info("hub - unregister - offline", slog.String("user_id", userID))

	go m.recordLastSeen(userID, m.now())
}

func (m *ManagerService) recordLastSeen(userID string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), config.LastSeenWriteTimeout)
	defer cancel()

	if err := m.Storage.UpdateLastSeen(ctx, userID, at); err != nil {
		m.log.Warn("hub - last seen - not recorded",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

func (m *ManagerService) broadcastOnline(online []string) {
	ctx, cancel := context.WithTimeout(context.Background(), config.RelayPublishTimeout)
	defer cancel()

	m.Broadcaster.PublishAll(ctx, models.OutboundEvent{
		Event: models.EventOnlineUser,
		Data:  online,
	})
}
