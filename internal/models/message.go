package models

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Delivery statuses. Messages are created as StatusSent and never advanced here.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Attachment type tags as stored.
const (
	AttachmentImage    = "image"
	AttachmentDocument = "document"
	AttachmentDrawing  = "drawing"
	AttachmentOther    = "other"
)

// Message is an immutable entry of a thread. Within a thread messages are
// ordered by CreatedAt, ties broken by the autoincrement ID.
type Message struct {
	// ID is the monotonic insertion sequence.
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`
	// ThreadID is the owning thread.
	ThreadID string `gorm:"type:varchar(36);not null;index:idx_thread_created,priority:1" json:"thread_id"`
	Thread   *Thread `gorm:"foreignKey:ThreadID;constraint:OnDelete:RESTRICT" json:"-"`
	// SenderID is the participant that sent the message.
	SenderID string `gorm:"type:varchar(191);not null;index" json:"sender_id"`
	// SenderName and SenderAvatar are captured at send time.
	SenderName   string `gorm:"type:text;not null" json:"sender_name"`
	SenderAvatar string `gorm:"type:text" json:"sender_avatar,omitempty"`
	// Body may be empty for audio or attachment-only messages.
	Body string `gorm:"type:text" json:"body"`
	// AudioURL is the optional single audio payload.
	AudioURL string `gorm:"type:text" json:"audio_url,omitempty"`
	Status   string `gorm:"type:varchar(16);not null;default:sent" json:"status"`

	CreatedAt time.Time `gorm:"index:idx_thread_created,priority:2" json:"created_at"`

	Attachments []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments"`
}

// Attachment references a file already stored elsewhere. It belongs to exactly one message.
type Attachment struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MessageID uint   `gorm:"not null;index" json:"message_id"`
	Name      string `gorm:"type:text;not null" json:"name"`
	Type      string `gorm:"type:varchar(16);not null" json:"type"`
	URL       string `gorm:"type:text;not null" json:"url"`
	Size      int64  `gorm:"not null;default:0" json:"size"`
	// Position keeps the order in which attachments were supplied.
	Position   int       `gorm:"not null;default:0" json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// BeforeCreate assigns a UUID when the attachment has none yet.
func (a *Attachment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return
}

// AttachmentInput is a descriptor resolved by the file storage collaborator.
type AttachmentInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// NewMessage is the input of an append.
type NewMessage struct {
	ThreadID     string
	SenderID     string
	SenderName   string
	SenderAvatar string
	Body         string
	AudioURL     string
	Attachments  []AttachmentInput
}

// NormalizeAttachmentType folds free-form type tags and MIME types onto the stored tags.
func NormalizeAttachmentType(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexByte(t, '/'); i >= 0 {
		major, minor := t[:i], t[i+1:]
		switch {
		case major == "image":
			return AttachmentImage
		case minor == "pdf", major == "text", strings.Contains(minor, "document"), strings.Contains(minor, "msword"):
			return AttachmentDocument
		}
		return AttachmentOther
	}
	switch t {
	case "image", "photo", "picture", "png", "jpg", "jpeg", "gif", "webp":
		return AttachmentImage
	case "document", "file", "pdf", "doc", "docx", "txt":
		return AttachmentDocument
	case "drawing", "sketch", "whiteboard":
		return AttachmentDrawing
	}
	return AttachmentOther
}

// AttachmentName returns name, or the last path segment of url when name is blank.
func AttachmentName(name, url string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	u := url
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	base := path.Base(u)
	if base == "." || base == "/" || base == "" {
		return "attachment"
	}
	return base
}
