// Package support provisions the maintainer identity and the one support
// thread every end user has with it.
package support

import (
	"context"
	"strings"
	"supportdesk/backend/internal/models"
	"supportdesk/backend/internal/storage"
)

// Bootstrap is safe to call on every request: each step is an idempotent upsert.
type Bootstrap struct {
	Storage    storage.Storage
	Maintainer models.Identity
}

// NewBootstrap creates a bootstrap for the configured maintainer identity.
func NewBootstrap(s storage.Storage, maintainer models.Identity) *Bootstrap {
	return &Bootstrap{Storage: s, Maintainer: maintainer}
}

// MaintainerID returns the fixed id of the support identity.
func (b *Bootstrap) MaintainerID() string {
	return strings.TrimSpace(b.Maintainer.ID)
}

// EnsureMaintainer creates the support participant if absent and keeps its
// display fields and role in line with configuration.
func (b *Bootstrap) EnsureMaintainer(ctx context.Context) (*models.Participant, error) {
	return b.Storage.EnsureParticipantRole(ctx, b.Maintainer, models.RoleSupport)
}

// GetOrCreateMaintainerThread returns the user's support thread, creating the
// maintainer, the user and the thread as needed.
func (b *Bootstrap) GetOrCreateMaintainerThread(ctx context.Context, user models.Identity) (*models.Thread, error) {
	if strings.TrimSpace(user.ID) == b.MaintainerID() {
		return nil, storage.ErrInvalidPair
	}

	maintainer, err := b.EnsureMaintainer(ctx)
	if err != nil {
		return nil, err
	}

	participant, err := b.Storage.EnsureParticipant(ctx, user)
	if err != nil {
		return nil, err
	}

	return b.Storage.GetOrCreateThread(ctx, participant.ID, maintainer.ID, models.DisplayOverride{
		Name:   maintainer.Name,
		Avatar: maintainer.Avatar,
	})
}
