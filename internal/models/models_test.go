package models_test

import (
	"reflect"
	"supportdesk/backend/internal/models"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestThreadBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestThreadBeforeCreate_GeneratesUUID(t *testing.T) {
	// Arrange
	thread := &models.Thread{ParticipantLow: "a", ParticipantHigh: "b"}
	assert.Empty(t, thread.ID, "Thread ID should be empty before BeforeCreate")

	// Act
	err := thread.BeforeCreate(nil)

	// Assert
	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(thread.ID)
	assert.NoError(t, parseErr, "Thread ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestThreadBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestThreadBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	thread := &models.Thread{ID: existingID}

	assert.NoError(t, thread.BeforeCreate(nil))
	assert.Equal(t, existingID, thread.ID)
}

func TestAttachmentBeforeCreate_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		a := &models.Attachment{URL: "https://files.example.com/x"}
		assert.NoError(t, a.BeforeCreate(nil))
		assert.NotContains(t, seen, a.ID, "Each attachment should have a unique ID")
		seen[a.ID] = true
	}
}

func TestPairKey_Symmetric(t *testing.T) {
	assert.Equal(t, models.PairKey("u1", "maintainer"), models.PairKey("maintainer", "u1"))
	assert.NotEqual(t, models.PairKey("ab", "c"), models.PairKey("a", "bc"), "separator must keep pairs apart")

	low, high := models.CanonicalPair("zed", "amy")
	assert.Equal(t, "amy", low)
	assert.Equal(t, "zed", high)
}

func TestThreadHasAndOther(t *testing.T) {
	low, high := models.CanonicalPair("u1", "maintainer")
	thread := models.Thread{ParticipantLow: low, ParticipantHigh: high}

	assert.True(t, thread.Has("u1"))
	assert.True(t, thread.Has("maintainer"))
	assert.False(t, thread.Has("u2"))
	assert.False(t, thread.Has(""))

	assert.Equal(t, "maintainer", thread.Other("u1"))
	assert.Equal(t, "u1", thread.Other("maintainer"))
	assert.Empty(t, thread.Other("u2"))
}

// TestStructTags catches accidental removal of the index tags the store relies on.
func TestStructTags(t *testing.T) {
	threadType := reflect.TypeOf(models.Thread{})

	pairField, found := threadType.FieldByName("PairKey")
	assert.True(t, found)
	assert.Contains(t, pairField.Tag.Get("gorm"), "uniqueIndex", "PairKey carries the pair uniqueness")

	updatedField, found := threadType.FieldByName("UpdatedAt")
	assert.True(t, found)
	assert.Contains(t, updatedField.Tag.Get("gorm"), "autoUpdateTime:false", "UpdatedAt must only move with activity")

	msgType := reflect.TypeOf(models.Message{})
	threadIDField, _ := msgType.FieldByName("ThreadID")
	createdField, _ := msgType.FieldByName("CreatedAt")
	assert.Contains(t, threadIDField.Tag.Get("gorm"), "idx_thread_created")
	assert.Contains(t, createdField.Tag.Get("gorm"), "idx_thread_created")

	attField, _ := msgType.FieldByName("Attachments")
	assert.Contains(t, attField.Tag.Get("gorm"), "OnDelete:CASCADE")
}

func TestNormalizeAttachmentType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image", models.AttachmentImage},
		{"IMAGE", models.AttachmentImage},
		{"image/png", models.AttachmentImage},
		{"jpg", models.AttachmentImage},
		{"document", models.AttachmentDocument},
		{"application/pdf", models.AttachmentDocument},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", models.AttachmentDocument},
		{"text/plain", models.AttachmentDocument},
		{"drawing", models.AttachmentDrawing},
		{" Sketch ", models.AttachmentDrawing},
		{"video/mp4", models.AttachmentOther},
		{"", models.AttachmentOther},
		{"spreadsheet", models.AttachmentOther},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, models.NormalizeAttachmentType(tt.in))
		})
	}
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "plan.pdf", models.AttachmentName("plan.pdf", "https://files.example.com/x"))
	assert.Equal(t, "photo.jpg", models.AttachmentName("  ", "https://files.example.com/u/photo.jpg?sig=abc"))
	assert.Equal(t, "attachment", models.AttachmentName("", ""))
}

func TestPlaceholderEmail(t *testing.T) {
	assert.Equal(t, "u1@users.invalid", models.PlaceholderEmail("u1"))
	assert.Equal(t, "auth0_abc_1@users.invalid", models.PlaceholderEmail("auth0|abc 1"))
}

// BenchmarkPairKey measures canonical key construction.
func BenchmarkPairKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = models.PairKey("user-9f1c", "maintainer")
	}
}
