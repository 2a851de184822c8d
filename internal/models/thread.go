package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// pairSeparator cannot appear in participant ids coming from the auth layer.
const pairSeparator = "\x1f"

// Thread is the single conversation between two distinct participants.
// The pair is stored in canonical order so that {a,b} and {b,a} map to the
// same PairKey, which carries the unique index.
type Thread struct {
	// ID is the thread UUID.
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	// PairKey is ParticipantLow + separator + ParticipantHigh.
	PairKey string `gorm:"type:varchar(400);not null;uniqueIndex" json:"-"`
	// ParticipantLow is the lexicographically smaller participant id.
	ParticipantLow string `gorm:"type:varchar(191);not null;index" json:"participant_low"`
	// ParticipantHigh is the lexicographically greater participant id.
	ParticipantHigh string `gorm:"type:varchar(191);not null;index" json:"participant_high"`
	// InitiatorID is the participant whose request created the thread.
	InitiatorID string `gorm:"type:varchar(191);not null" json:"initiator_id"`

	// DisplayName and DisplayAvatar are the snapshot supplied by the creating
	// viewpoint, used when the other side cannot be resolved.
	DisplayName   string `gorm:"type:text" json:"display_name,omitempty"`
	DisplayAvatar string `gorm:"type:text" json:"display_avatar,omitempty"`

	// LastMessage is the short summary of the latest message.
	LastMessage   string     `gorm:"type:text" json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`

	// UnreadCount caches the unread count of UnreadFor. Never trusted for reads.
	UnreadCount int    `gorm:"not null;default:0" json:"-"`
	UnreadFor   string `gorm:"type:varchar(191)" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt only moves with message activity.
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;index" json:"updated_at"`
}

// BeforeCreate assigns a UUID when the thread has none yet.
func (t *Thread) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return
}

// CanonicalPair orders two participant ids.
func CanonicalPair(a, b string) (low, high string) {
	if b < a {
		return b, a
	}
	return a, b
}

// PairKey returns the uniqueness key for the unordered pair {a,b}.
func PairKey(a, b string) string {
	low, high := CanonicalPair(a, b)
	return low + pairSeparator + high
}

// Has reports whether id is one of the two participants.
func (t *Thread) Has(id string) bool {
	return id != "" && (t.ParticipantLow == id || t.ParticipantHigh == id)
}

// Other returns the participant that is not id, or "" if id is not in the thread.
func (t *Thread) Other(id string) string {
	switch id {
	case t.ParticipantLow:
		return t.ParticipantHigh
	case t.ParticipantHigh:
		return t.ParticipantLow
	}
	return ""
}

// DisplayOverride carries the optional display fields of GetOrCreateThread.
type DisplayOverride struct {
	Name   string
	Avatar string
}
