package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"supportdesk/backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Placeholders stored as the thread's last message when the body is empty.
const (
	VoiceMessageSummary = "Voice message"
	AttachmentSummary   = "Attachment"
)

// ValidatePayload checks the parts of an append that need no storage access.
func ValidatePayload(in models.NewMessage) error {
	if strings.TrimSpace(in.Body) == "" && strings.TrimSpace(in.AudioURL) == "" && len(in.Attachments) == 0 {
		return ErrEmptyMessage
	}
	return validateAttachments(in.Attachments)
}

// AppendMessage stores a message, its attachments and the thread activity in
// one transaction. Nothing is persisted when any part fails.
func (s *Service) AppendMessage(ctx context.Context, in models.NewMessage) (*models.Message, error) {
	if err := ValidatePayload(in); err != nil {
		return nil, err
	}

	db, cancel := s.db(ctx)
	defer cancel()

	msg := models.Message{
		ThreadID:     in.ThreadID,
		SenderID:     in.SenderID,
		SenderName:   in.SenderName,
		SenderAvatar: in.SenderAvatar,
		Body:         strings.TrimSpace(in.Body),
		AudioURL:     strings.TrimSpace(in.AudioURL),
		Status:       models.StatusSent,
	}
	if msg.SenderName == "" {
		msg.SenderName = models.DefaultParticipantName
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var thread models.Thread
		if err := threadForAppend(tx, in.ThreadID).First(&thread).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrThreadNotFound
			}
			return err
		}

		// Appends to one thread are serialized from here to commit, so the
		// timestamp and id are assigned in commit order.
		now := s.now()
		msg.CreatedAt = now
		if err := tx.Omit("Attachments", "Thread").Create(&msg).Error; err != nil {
			return err
		}

		attachments, err := linkAttachments(tx, msg.ID, in.Attachments, now)
		if err != nil {
			return err
		}
		msg.Attachments = attachments

		return recordActivity(tx, &thread, &msg)
	})
	if err != nil {
		if errors.Is(err, ErrThreadNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("thread_id", in.ThreadID).Str("sender_id", in.SenderID).Msg("failed to append message")
		return nil, unavailable("append message", err)
	}
	return &msg, nil
}

// threadForAppend selects the thread an append targets. On PostgreSQL the row
// is locked until the transaction ends. SQLite has no row locks and serializes
// writers on the database instead.
func threadForAppend(tx *gorm.DB, threadID string) *gorm.DB {
	q := tx.Where("id = ?", threadID)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// ListMessages returns the whole thread in display order.
func (s *Service) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	return s.listMessages(ctx, threadID, 0)
}

// ListMessagesSince returns the messages after the cursor afterID, for pollers.
func (s *Service) ListMessagesSince(ctx context.Context, threadID string, afterID uint) ([]models.Message, error) {
	return s.listMessages(ctx, threadID, afterID)
}

func (s *Service) listMessages(ctx context.Context, threadID string, afterID uint) ([]models.Message, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	q := db.Preload("Attachments", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	}).Where("thread_id = ?", threadID)
	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}

	messages := []models.Message{}
	if err := q.Order("created_at asc").Order("id asc").Find(&messages).Error; err != nil {
		return nil, unavailable("list messages", err)
	}
	return messages, nil
}

// LastMessageSummary is the text a thread shows for msg: the body, or a
// placeholder describing the payload.
func LastMessageSummary(msg *models.Message) string {
	if msg.Body != "" {
		return msg.Body
	}
	if msg.AudioURL != "" {
		return VoiceMessageSummary
	}
	if n := len(msg.Attachments); n > 1 {
		return fmt.Sprintf("%d attachments", n)
	}
	return AttachmentSummary
}
