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

// FindThread returns the thread of the unordered pair {a,b}, or nil if none exists.
func (s *Service) FindThread(ctx context.Context, a, b string) (*models.Thread, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	thread, err := findThread(db, a, b)
	if err != nil {
		return nil, unavailable("find thread", err)
	}
	return thread, nil
}

func findThread(db *gorm.DB, a, b string) (*models.Thread, error) {
	var thread models.Thread
	err := db.Where("pair_key = ?", models.PairKey(a, b)).First(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetOrCreateThread is the only way threads come into existence. Creation is an
// insert that does nothing on a pair_key conflict, so a creator that lost a race
// ends up reading the winner's row instead of failing.
func (s *Service) GetOrCreateThread(ctx context.Context, a, b string, display models.DisplayOverride) (*models.Thread, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" || a == b {
		return nil, ErrInvalidPair
	}

	db, cancel := s.db(ctx)
	defer cancel()

	thread, err := findThread(db, a, b)
	if err != nil {
		return nil, unavailable("get or create thread", err)
	}

	if thread == nil {
		now := s.now()
		low, high := models.CanonicalPair(a, b)
		candidate := models.Thread{
			PairKey:         models.PairKey(a, b),
			ParticipantLow:  low,
			ParticipantHigh: high,
			InitiatorID:     a,
			DisplayName:     strings.TrimSpace(display.Name),
			DisplayAvatar:   strings.TrimSpace(display.Avatar),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).Create(&candidate)
		if res.Error != nil {
			return nil, unavailable("get or create thread", res.Error)
		}
		if res.RowsAffected > 0 {
			log.Info().Str("thread_id", candidate.ID).Str("initiator", a).Str("counterpart", b).Msg("thread created")
			return &candidate, nil
		}

		thread, err = findThread(db, a, b)
		if err != nil {
			return nil, unavailable("get or create thread", err)
		}
		if thread == nil {
			return nil, newError(CodeStorageUnavailable, "thread vanished after conflicting insert", nil)
		}
	}

	if err := refreshDisplay(db, thread, display); err != nil {
		return nil, unavailable("refresh thread display", err)
	}
	return thread, nil
}

// refreshDisplay stores the display fields the caller supplied when they differ.
// It never touches updated_at, which only tracks message activity.
func refreshDisplay(db *gorm.DB, thread *models.Thread, display models.DisplayOverride) error {
	updates := map[string]interface{}{}
	if n := strings.TrimSpace(display.Name); n != "" && n != thread.DisplayName {
		updates["display_name"] = n
	}
	if av := strings.TrimSpace(display.Avatar); av != "" && av != thread.DisplayAvatar {
		updates["display_avatar"] = av
	}
	if len(updates) == 0 {
		return nil
	}
	if err := db.Model(&models.Thread{}).Where("id = ?", thread.ID).UpdateColumns(updates).Error; err != nil {
		return err
	}
	if v, ok := updates["display_name"]; ok {
		thread.DisplayName = v.(string)
	}
	if v, ok := updates["display_avatar"]; ok {
		thread.DisplayAvatar = v.(string)
	}
	return nil
}

// GetThread returns ErrThreadNotFound when the thread does not exist.
func (s *Service) GetThread(ctx context.Context, threadID string) (*models.Thread, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var thread models.Thread
	err := db.Where("id = ?", threadID).First(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, unavailable("get thread", err)
	}
	return &thread, nil
}

// ListThreadsFor returns the participant's threads, most recently active first.
func (s *Service) ListThreadsFor(ctx context.Context, participantID string) ([]models.Thread, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	threads := []models.Thread{}
	err := db.Where("(participant_low = ? OR participant_high = ?)", participantID, participantID).
		Order("updated_at desc").
		Order("id desc").
		Find(&threads).Error
	if err != nil {
		return nil, unavailable("list threads", err)
	}
	return threads, nil
}

// ComputeUnread counts the messages from the other side that come after the
// viewer's latest message in (created_at, id) order. When the viewer never
// wrote in the thread every message from the other side is unread.
func (s *Service) ComputeUnread(ctx context.Context, threadID, viewerID string) (int, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var last []models.Message
	err := db.Select("id", "created_at").
		Where("thread_id = ? AND sender_id = ?", threadID, viewerID).
		Order("created_at desc").
		Order("id desc").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return 0, unavailable("compute unread", err)
	}

	q := db.Model(&models.Message{}).Where("thread_id = ? AND sender_id <> ?", threadID, viewerID)
	if len(last) > 0 {
		at := last[0].CreatedAt
		q = q.Where("(created_at > ? OR (created_at = ? AND id > ?))", at, at, last[0].ID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, unavailable("compute unread", err)
	}
	return int(count), nil
}

// recordActivity runs inside the append transaction. The last-message snapshot
// only moves forward in time, so concurrent appends leave the latest one.
func recordActivity(tx *gorm.DB, thread *models.Thread, msg *models.Message) error {
	err := tx.Model(&models.Thread{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at <= ?)", thread.ID, msg.CreatedAt).
		UpdateColumns(map[string]interface{}{
			"last_message":    LastMessageSummary(msg),
			"last_message_at": msg.CreatedAt,
			"updated_at":      msg.CreatedAt,
		}).Error
	if err != nil {
		return err
	}

	recipient := thread.Other(msg.SenderID)
	return tx.Model(&models.Thread{}).
		Where("id = ?", thread.ID).
		UpdateColumns(map[string]interface{}{
			"unread_count": gorm.Expr("CASE WHEN unread_for = ? THEN unread_count + 1 ELSE 1 END", recipient),
			"unread_for":   recipient,
		}).Error
}
