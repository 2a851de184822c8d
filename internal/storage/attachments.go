package storage

import (
	"fmt"
	"strings"
	"supportdesk/backend/internal/models"
	"time"

	"gorm.io/gorm"
)

// validateAttachments rejects the whole batch on the first descriptor without a URL.
func validateAttachments(inputs []models.AttachmentInput) error {
	for i, in := range inputs {
		if strings.TrimSpace(in.URL) == "" {
			return newError(CodeInvalidAttachment, fmt.Sprintf("attachment %d has no url", i), nil)
		}
	}
	return nil
}

// linkAttachments stores the descriptors against messageID. Callers run it
// inside the transaction that created the message.
func linkAttachments(tx *gorm.DB, messageID uint, inputs []models.AttachmentInput, uploadedAt time.Time) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(inputs))
	if len(inputs) == 0 {
		return attachments, nil
	}
	if err := validateAttachments(inputs); err != nil {
		return nil, err
	}

	for i, in := range inputs {
		url := strings.TrimSpace(in.URL)
		size := in.Size
		if size < 0 {
			size = 0
		}
		attachments = append(attachments, models.Attachment{
			MessageID:  messageID,
			Name:       models.AttachmentName(in.Name, url),
			Type:       models.NormalizeAttachmentType(in.Type),
			URL:        url,
			Size:       size,
			Position:   i,
			UploadedAt: uploadedAt,
		})
	}

	if err := tx.Create(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}
