package storage

import (
	"context"
	"errors"
	"strings"
	"supportdesk/backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureParticipant creates the participant on first contact and refreshes its
// display fields afterwards. Empty fields never overwrite stored values.
func (s *Service) EnsureParticipant(ctx context.Context, identity models.Identity) (*models.Participant, error) {
	return s.EnsureParticipantRole(ctx, identity, "")
}

// EnsureParticipantRole is EnsureParticipant that also forces the role when role is not empty.
func (s *Service) EnsureParticipantRole(ctx context.Context, identity models.Identity, role string) (*models.Participant, error) {
	id := strings.TrimSpace(identity.ID)
	if id == "" {
		return nil, ErrInvalidIdentity
	}
	name := strings.TrimSpace(identity.Name)
	email := strings.TrimSpace(identity.Email)
	avatar := strings.TrimSpace(identity.Avatar)

	now := s.now()
	candidate := models.Participant{
		ID:           id,
		Name:         name,
		Email:        email,
		Avatar:       avatar,
		Role:         role,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if candidate.Name == "" {
		candidate.Name = models.DefaultParticipantName
	}
	if candidate.Email == "" {
		candidate.Email = models.PlaceholderEmail(id)
	}
	if candidate.Role == "" {
		candidate.Role = models.RoleOrdinary
	}

	db, cancel := s.db(ctx)
	defer cancel()

	var participant models.Participant
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&candidate)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			log.Info().Str("participant_id", id).Str("role", candidate.Role).Msg("new participant saved")
		} else {
			updates := map[string]interface{}{"last_active_at": now}
			if name != "" {
				updates["name"] = name
			}
			if email != "" {
				updates["email"] = email
			}
			if avatar != "" {
				updates["avatar"] = avatar
			}
			if role != "" {
				updates["role"] = role
			}
			if err := tx.Model(&models.Participant{}).Where("id = ?", id).UpdateColumns(updates).Error; err != nil {
				return err
			}
		}

		return tx.Where("id = ?", id).First(&participant).Error
	})
	if err != nil {
		return nil, unavailable("ensure participant", err)
	}
	return &participant, nil
}

// GetParticipant returns nil without error when the participant is unknown.
func (s *Service) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var participant models.Participant
	err := db.Where("id = ?", id).First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get participant", err)
	}
	return &participant, nil
}

// GetParticipants loads the participants with the given ids, keyed by id.
func (s *Service) GetParticipants(ctx context.Context, ids []string) (map[string]models.Participant, error) {
	result := make(map[string]models.Participant, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	db, cancel := s.db(ctx)
	defer cancel()

	var participants []models.Participant
	if err := db.Where("id IN ?", ids).Find(&participants).Error; err != nil {
		return nil, unavailable("get participants", err)
	}
	for _, p := range participants {
		result[p.ID] = p
	}
	return result, nil
}
