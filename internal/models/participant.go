package models

import (
	"strings"
	"time"
)

const (
	// RoleOrdinary is the role of every end user.
	RoleOrdinary = "ordinary"
	// RoleSupport is the role of the maintainer identity.
	RoleSupport = "support"

	// DefaultParticipantName is stored when a participant is first seen without a name.
	DefaultParticipantName = "User"
	placeholderEmailDomain = "users.invalid"
)

// Participant is anyone who can send or receive messages: an end user or the
// maintainer. Only display fields are managed here, credentials live upstream.
type Participant struct {
	// ID is the externally supplied identity (e.g. the auth subject).
	ID string `gorm:"primaryKey;type:varchar(191)" json:"id"`
	// Name is the current display name.
	Name string `gorm:"type:text;not null" json:"name"`
	// Email is the contact email or a synthesized placeholder.
	Email string `gorm:"type:text" json:"email"`
	// Avatar is an optional avatar URL.
	Avatar string `gorm:"type:text" json:"avatar,omitempty"`
	// Role is either RoleOrdinary or RoleSupport.
	Role string `gorm:"type:varchar(16);not null;default:ordinary" json:"role"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `gorm:"index" json:"last_active_at"`
}

// Identity is the caller tuple handed over by the auth layer. Only ID is required.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// PlaceholderEmail returns the email stored for participants that never supplied one.
func PlaceholderEmail(id string) string {
	local := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	return local + "@" + placeholderEmailDomain
}
