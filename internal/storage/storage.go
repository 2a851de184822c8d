package storage

import (
	"context"
	"supportdesk/backend/internal/models"
	"time"

	"gorm.io/gorm"
)

// Storage is the durable conversation store.
type Storage interface {
	EnsureParticipant(ctx context.Context, identity models.Identity) (*models.Participant, error)
	EnsureParticipantRole(ctx context.Context, identity models.Identity, role string) (*models.Participant, error)
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
	GetParticipants(ctx context.Context, ids []string) (map[string]models.Participant, error)

	FindThread(ctx context.Context, a, b string) (*models.Thread, error)
	GetOrCreateThread(ctx context.Context, a, b string, display models.DisplayOverride) (*models.Thread, error)
	GetThread(ctx context.Context, threadID string) (*models.Thread, error)
	ListThreadsFor(ctx context.Context, participantID string) ([]models.Thread, error)
	ComputeUnread(ctx context.Context, threadID, viewerID string) (int, error)

	AppendMessage(ctx context.Context, in models.NewMessage) (*models.Message, error)
	ListMessages(ctx context.Context, threadID string) ([]models.Message, error)
	ListMessagesSince(ctx context.Context, threadID string, afterID uint) ([]models.Message, error)
}

// DefaultTimeout bounds every storage call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Service implements Storage on gorm.
type Service struct {
	DB      *gorm.DB
	Timeout time.Duration
	// Now is the clock used for server-assigned timestamps.
	Now func() time.Time
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		DB:      db,
		Timeout: timeout,
		Now:     time.Now,
	}
}

// Migrate creates or updates the four conversation relations.
func (s *Service) Migrate(ctx context.Context) error {
	err := s.DB.WithContext(ctx).AutoMigrate(
		&models.Participant{},
		&models.Thread{},
		&models.Message{},
		&models.Attachment{},
	)
	return unavailable("migrate", err)
}

// db returns a session bound to a context carrying the storage timeout.
func (s *Service) db(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	return s.DB.WithContext(ctx), cancel
}

// now returns the current time in UTC, truncated to what PostgreSQL stores.
func (s *Service) now() time.Time {
	return s.Now().UTC().Truncate(time.Microsecond)
}
