// Package inbox provides the caller-facing conversation operations: the
// support thread, thread listing, message history and sending.
package inbox

import (
	"context"
	"strings"
	"supportdesk/backend/internal/metrics"
	"supportdesk/backend/internal/models"
	"supportdesk/backend/internal/storage"
	"supportdesk/backend/internal/summary"
	"supportdesk/backend/internal/support"
	"time"

	"github.com/rs/zerolog/log"
)

// Presence tracks which participants are online.
type Presence interface {
	MarkOnline(ctx context.Context, participantID string) error
	Online(ctx context.Context, participantIDs ...string) (map[string]bool, error)
}

// Service handles the conversation operations of an identified caller.
type Service struct {
	Storage  storage.Storage
	Support  *support.Bootstrap
	Presence Presence
	Now      func() time.Time
}

// NewService creates a new conversation service. presence may be nil.
func NewService(s storage.Storage, b *support.Bootstrap, presence Presence) *Service {
	return &Service{
		Storage:  s,
		Support:  b,
		Presence: presence,
		Now:      time.Now,
	}
}

// SupportThread returns the caller's thread with the maintainer, creating it on first contact.
func (s *Service) SupportThread(ctx context.Context, caller models.Identity) (*models.ThreadSummary, error) {
	s.touch(ctx, caller.ID)

	thread, err := s.Support.GetOrCreateMaintainerThread(ctx, caller)
	if err != nil {
		s.countFailure("support_thread", err)
		return nil, err
	}
	metrics.SupportThreadsServed.Inc()

	return s.summarize(ctx, thread, strings.TrimSpace(caller.ID))
}

// OpenThread returns the ordinary thread between the caller and an existing
// participant. Only the caller's own identity is written; the counterpart is
// looked up by id and its stored profile is left as is.
func (s *Service) OpenThread(ctx context.Context, caller models.Identity, counterpartID string) (*models.ThreadSummary, error) {
	s.touch(ctx, caller.ID)

	view, err := s.openThread(ctx, caller, strings.TrimSpace(counterpartID))
	if err != nil {
		s.countFailure("open_thread", err)
		return nil, err
	}
	return view, nil
}

func (s *Service) openThread(ctx context.Context, caller models.Identity, counterpartID string) (*models.ThreadSummary, error) {
	if counterpartID == "" || counterpartID == strings.TrimSpace(caller.ID) {
		return nil, storage.ErrInvalidPair
	}

	other, err := s.Storage.GetParticipant(ctx, counterpartID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, storage.ErrUnknownParticipant
	}

	self, err := s.Storage.EnsureParticipant(ctx, caller)
	if err != nil {
		return nil, err
	}

	thread, err := s.Storage.GetOrCreateThread(ctx, self.ID, other.ID, models.DisplayOverride{
		Name:   other.Name,
		Avatar: other.Avatar,
	})
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, thread, self.ID)
}

// Threads lists the caller's threads, most recently active first. When storage
// is unavailable the list is empty rather than an error.
func (s *Service) Threads(ctx context.Context, caller models.Identity) ([]models.ThreadSummary, error) {
	s.touch(ctx, caller.ID)

	viewerID := strings.TrimSpace(caller.ID)
	if viewerID == "" {
		return nil, storage.ErrInvalidIdentity
	}

	out, err := s.threads(ctx, viewerID)
	if err != nil {
		if storage.Retryable(err) {
			s.degraded("threads", caller.ID, err)
			return []models.ThreadSummary{}, nil
		}
		return nil, err
	}
	return out, nil
}

func (s *Service) threads(ctx context.Context, viewerID string) ([]models.ThreadSummary, error) {
	threads, err := s.Storage.ListThreadsFor(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return []models.ThreadSummary{}, nil
	}

	otherIDs := make([]string, 0, len(threads))
	for i := range threads {
		otherIDs = append(otherIDs, threads[i].Other(viewerID))
	}
	others, err := s.Storage.GetParticipants(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	online := s.online(ctx, otherIDs...)

	now := s.Now()
	out := make([]models.ThreadSummary, 0, len(threads))
	for i := range threads {
		unread, err := s.Storage.ComputeUnread(ctx, threads[i].ID, viewerID)
		if err != nil {
			return nil, err
		}

		otherID := threads[i].Other(viewerID)
		var other *models.Participant
		if p, ok := others[otherID]; ok {
			other = &p
		}
		out = append(out, summary.Thread(threads[i], viewerID, other, unread, online[otherID], now))
	}
	return out, nil
}

// Messages returns the messages of a thread the caller takes part in, after
// afterID when it is non-zero. An unknown thread yields an empty list.
func (s *Service) Messages(ctx context.Context, caller models.Identity, threadID string, afterID uint) ([]models.MessageView, error) {
	s.touch(ctx, caller.ID)

	thread, err := s.Storage.GetThread(ctx, threadID)
	if err != nil {
		switch {
		case storage.CodeOf(err) == storage.CodeThreadNotFound:
			return []models.MessageView{}, nil
		case storage.Retryable(err):
			s.degraded("messages", caller.ID, err)
			return []models.MessageView{}, nil
		}
		return nil, err
	}
	if !thread.Has(strings.TrimSpace(caller.ID)) {
		return nil, storage.ErrNotParticipant
	}

	var msgs []models.Message
	if afterID > 0 {
		msgs, err = s.Storage.ListMessagesSince(ctx, thread.ID, afterID)
	} else {
		msgs, err = s.Storage.ListMessages(ctx, thread.ID)
	}
	if err != nil {
		if storage.Retryable(err) {
			s.degraded("messages", caller.ID, err)
			return []models.MessageView{}, nil
		}
		return nil, err
	}
	return summary.Messages(msgs, s.Now()), nil
}

// Send appends a message from the caller to a thread it takes part in.
func (s *Service) Send(ctx context.Context, caller models.Identity, threadID string, req models.SendRequest) (*models.MessageView, error) {
	s.touch(ctx, caller.ID)

	view, err := s.send(ctx, caller, threadID, req)
	if err != nil {
		s.countFailure("send", err)
		return nil, err
	}
	return view, nil
}

func (s *Service) send(ctx context.Context, caller models.Identity, threadID string, req models.SendRequest) (*models.MessageView, error) {
	in := models.NewMessage{
		ThreadID:    threadID,
		SenderID:    caller.ID,
		Body:        req.Body,
		AudioURL:    req.AudioURL,
		Attachments: req.Attachments,
	}
	if err := storage.ValidatePayload(in); err != nil {
		return nil, err
	}

	sender, err := s.Storage.EnsureParticipant(ctx, caller)
	if err != nil {
		return nil, err
	}

	thread, err := s.Storage.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.Has(sender.ID) {
		return nil, storage.ErrNotParticipant
	}

	in.SenderID = sender.ID
	in.SenderName = sender.Name
	in.SenderAvatar = sender.Avatar

	msg, err := s.Storage.AppendMessage(ctx, in)
	if err != nil {
		return nil, err
	}
	metrics.MessagesAppended.WithLabelValues(messageKind(msg)).Inc()

	view := summary.Message(*msg, s.Now())
	return &view, nil
}

func messageKind(msg *models.Message) string {
	switch {
	case msg.Body != "":
		return "text"
	case msg.AudioURL != "":
		return "voice"
	}
	return "attachment"
}

// summarize renders thread for viewerID with fresh unread and presence.
func (s *Service) summarize(ctx context.Context, thread *models.Thread, viewerID string) (*models.ThreadSummary, error) {
	otherID := thread.Other(viewerID)
	other, err := s.Storage.GetParticipant(ctx, otherID)
	if err != nil {
		return nil, err
	}
	unread, err := s.Storage.ComputeUnread(ctx, thread.ID, viewerID)
	if err != nil {
		return nil, err
	}

	out := summary.Thread(*thread, viewerID, other, unread, s.online(ctx, otherID)[otherID], s.Now())
	return &out, nil
}

func (s *Service) touch(ctx context.Context, participantID string) {
	if s.Presence == nil || participantID == "" {
		return
	}
	if err := s.Presence.MarkOnline(ctx, participantID); err != nil {
		log.Warn().Err(err).Str("participant_id", participantID).Msg("presence update failed")
	}
}

func (s *Service) online(ctx context.Context, ids ...string) map[string]bool {
	if s.Presence == nil {
		return map[string]bool{}
	}
	online, err := s.Presence.Online(ctx, ids...)
	if err != nil {
		log.Warn().Err(err).Int("participants", len(ids)).Msg("presence lookup failed, reporting offline")
		return map[string]bool{}
	}
	return online
}

func (s *Service) degraded(op, participantID string, err error) {
	metrics.DegradedReads.WithLabelValues(op).Inc()
	log.Warn().Err(err).Str("op", op).Str("participant_id", participantID).Msg("storage unavailable, serving empty result")
}

func (s *Service) countFailure(op string, err error) {
	if storage.Retryable(err) {
		metrics.StorageErrors.WithLabelValues(op).Inc()
		return
	}
	metrics.RejectedWrites.WithLabelValues(string(storage.CodeOf(err))).Inc()
}
