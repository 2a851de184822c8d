// Package summary renders stored threads and messages into what callers display.
// Everything here is a pure function of its inputs.
package summary

import (
	"fmt"
	"supportdesk/backend/internal/models"
	"time"

	"github.com/dustin/go-humanize"
)

// DateLayout is used for timestamps older than a week.
const DateLayout = "Jan 2, 2006"

const justNow = "Just now"

// RelativeTime renders t relative to now. Zero and future timestamps render as "Just now".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() || t.After(now) {
		return justNow
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return justNow
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	}

	if d <= 7*24*time.Hour {
		return plural(int(d/(24*time.Hour)), "day")
	}
	return t.Format(DateLayout)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// AttachmentKind folds a stored type tag onto image, document or drawing.
func AttachmentKind(tag string) string {
	switch models.NormalizeAttachmentType(tag) {
	case models.AttachmentImage:
		return models.AttachmentImage
	case models.AttachmentDrawing:
		return models.AttachmentDrawing
	}
	return models.AttachmentDocument
}

// Thread renders thread for viewerID. other is the resolved other side; when
// it is nil the display snapshot stored on the thread is used.
func Thread(thread models.Thread, viewerID string, other *models.Participant, unread int, online bool, now time.Time) models.ThreadSummary {
	out := models.ThreadSummary{
		ID:            thread.ID,
		ParticipantID: thread.Other(viewerID),
		Name:          thread.DisplayName,
		Avatar:        thread.DisplayAvatar,
		LastMessage:   thread.LastMessage,
		LastMessageAt: thread.LastMessageAt,
		Unread:        unread,
		Online:        online,
		CreatedAt:     thread.CreatedAt,
		UpdatedAt:     thread.UpdatedAt,
	}
	if other != nil {
		out.Name = other.Name
		if other.Avatar != "" {
			out.Avatar = other.Avatar
		}
	}

	if thread.LastMessageAt != nil {
		out.Time = RelativeTime(*thread.LastMessageAt, now)
	} else {
		out.Time = RelativeTime(thread.CreatedAt, now)
	}
	return out
}

// Message renders one message with its attachments.
func Message(msg models.Message, now time.Time) models.MessageView {
	view := models.MessageView{
		ID:           msg.ID,
		ThreadID:     msg.ThreadID,
		SenderID:     msg.SenderID,
		SenderName:   msg.SenderName,
		SenderAvatar: msg.SenderAvatar,
		Body:         msg.Body,
		AudioURL:     msg.AudioURL,
		Status:       msg.Status,
		Time:         RelativeTime(msg.CreatedAt, now),
		CreatedAt:    msg.CreatedAt,
		Attachments:  make([]models.AttachmentView, 0, len(msg.Attachments)),
	}
	for _, a := range msg.Attachments {
		view.Attachments = append(view.Attachments, Attachment(a))
	}
	return view
}

// Messages renders msgs keeping their order.
func Messages(msgs []models.Message, now time.Time) []models.MessageView {
	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, Message(m, now))
	}
	return views
}

// Attachment renders a single attachment.
func Attachment(a models.Attachment) models.AttachmentView {
	size := a.Size
	if size < 0 {
		size = 0
	}
	return models.AttachmentView{
		ID:        a.ID,
		Name:      a.Name,
		Type:      AttachmentKind(a.Type),
		URL:       a.URL,
		Size:      size,
		SizeLabel: humanize.Bytes(uint64(size)),
	}
}
