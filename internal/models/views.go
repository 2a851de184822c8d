package models

import "time"

// ThreadSummary is a thread as one participant sees it.
type ThreadSummary struct {
	ID string `json:"id"`
	// ParticipantID is the other side of the thread.
	ParticipantID string     `json:"participant_id"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar,omitempty"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Time          string     `json:"time"`
	Unread        int        `json:"unread"`
	Online        bool       `json:"online"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// MessageView is a message rendered for display.
type MessageView struct {
	ID           uint             `json:"id"`
	ThreadID     string           `json:"thread_id"`
	SenderID     string           `json:"sender_id"`
	SenderName   string           `json:"sender_name"`
	SenderAvatar string           `json:"sender_avatar,omitempty"`
	Body         string           `json:"body"`
	AudioURL     string           `json:"audio_url,omitempty"`
	Status       string           `json:"status"`
	Time         string           `json:"time"`
	CreatedAt    time.Time        `json:"created_at"`
	Attachments  []AttachmentView `json:"attachments"`
}

// AttachmentView is an attachment with its display type folded to image, document or drawing.
type AttachmentView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	SizeLabel string `json:"size_label"`
}

// SendRequest is the payload of a message append coming from a caller.
type SendRequest struct {
	Body        string            `json:"body"`
	AudioURL    string            `json:"audio_url"`
	Attachments []AttachmentInput `json:"attachments"`
}
