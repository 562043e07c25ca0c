package followups

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mailer"
	"github.com/nutrivibes/api/internal/storage"
)

var (
	ErrFollowupNotFound = errors.New("follow-up not found")
	ErrClientNotFound   = errors.New("client not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrBadTransition    = errors.New("invalid status transition")
)

// terminal followup states cannot be rescheduled or re-transitioned.
var allowedTransitions = map[string][]string{
	storage.FollowupScheduled: {storage.FollowupCompleted, storage.FollowupCancelled, storage.FollowupNoShow},
}

type Service struct {
	storage       storage.FollowupsStorage
	clients       storage.ClientsStorage
	notifications storage.NotificationsStorage
	sender        mailer.Sender
	leadHours     int
	logger        *log.Logger
}

func NewService(st storage.FollowupsStorage, clients storage.ClientsStorage, notifications storage.NotificationsStorage, sender mailer.Sender, leadHours int, logger *log.Logger) *Service {
	if leadHours <= 0 {
		leadHours = 24
	}
	return &Service{
		storage:       st,
		clients:       clients,
		notifications: notifications,
		sender:        sender,
		leadHours:     leadHours,
		logger:        logger,
	}
}

func (s *Service) ownedClient(ctx context.Context, dieticianID, clientID uuid.UUID) (*storage.Client, error) {
	c, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if c == nil || c.DieticianID != dieticianID {
		return nil, ErrClientNotFound
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, dieticianID, clientID uuid.UUID, scheduledAt time.Time, note *string) (*storage.Followup, error) {
	if _, err := s.ownedClient(ctx, dieticianID, clientID); err != nil {
		return nil, err
	}
	if scheduledAt.Before(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: scheduled_at must be in the future", ErrInvalidInput)
	}
	f := &storage.Followup{
		DieticianID: dieticianID,
		ClientID:    clientID,
		ScheduledAt: scheduledAt.UTC(),
		Status:      storage.FollowupScheduled,
		Note:        note,
	}
	if err := s.storage.CreateFollowup(ctx, f); err != nil {
		return nil, fmt.Errorf("create follow-up: %w", err)
	}
	return f, nil
}

func (s *Service) List(ctx context.Context, dieticianID uuid.UUID, clientID *uuid.UUID, from, to time.Time) ([]storage.Followup, error) {
	if clientID != nil {
		if _, err := s.ownedClient(ctx, dieticianID, *clientID); err != nil {
			return nil, err
		}
	}
	return s.storage.ListFollowups(ctx, dieticianID, clientID, from, to)
}

// ListForClient returns a client's own upcoming sessions.
func (s *Service) ListForClient(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]storage.Followup, error) {
	c, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if c == nil {
		return nil, ErrClientNotFound
	}
	return s.storage.ListFollowups(ctx, c.DieticianID, &clientID, from, to)
}

func (s *Service) get(ctx context.Context, dieticianID, followupID uuid.UUID) (*storage.Followup, error) {
	f, err := s.storage.GetFollowup(ctx, followupID)
	if err != nil {
		return nil, fmt.Errorf("get follow-up: %w", err)
	}
	if f == nil || f.DieticianID != dieticianID {
		return nil, ErrFollowupNotFound
	}
	return f, nil
}

// Reschedule moves a scheduled session and resets its reminder, so the
// client is notified again about the new time.
func (s *Service) Reschedule(ctx context.Context, dieticianID, followupID uuid.UUID, scheduledAt time.Time, note *string) (*storage.Followup, error) {
	f, err := s.get(ctx, dieticianID, followupID)
	if err != nil {
		return nil, err
	}
	if f.Status != storage.FollowupScheduled {
		return nil, fmt.Errorf("%w: cannot reschedule a %s follow-up", ErrBadTransition, f.Status)
	}
	if scheduledAt.Before(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: scheduled_at must be in the future", ErrInvalidInput)
	}
	f.ScheduledAt = scheduledAt.UTC()
	f.ReminderSentAt = nil
	if note != nil {
		f.Note = note
	}
	if err := s.storage.UpdateFollowup(ctx, f); err != nil {
		return nil, fmt.Errorf("update follow-up: %w", err)
	}
	return f, nil
}

func (s *Service) Transition(ctx context.Context, dieticianID, followupID uuid.UUID, status string) (*storage.Followup, error) {
	f, err := s.get(ctx, dieticianID, followupID)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, next := range allowedTransitions[f.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBadTransition, f.Status, status)
	}
	f.Status = status
	if err := s.storage.UpdateFollowup(ctx, f); err != nil {
		return nil, fmt.Errorf("update follow-up: %w", err)
	}
	return f, nil
}

// RunReminderPass sends reminders for sessions starting within the lead
// window. Each follow-up gets at most one reminder; failures are logged
// and retried on the next pass.
func (s *Service) RunReminderPass(ctx context.Context, now time.Time) (int, error) {
	until := now.Add(time.Duration(s.leadHours) * time.Hour)
	due, err := s.storage.ListDueReminders(ctx, until)
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	sent := 0
	for i := range due {
		f := &due[i]
		client, err := s.clients.GetClient(ctx, f.ClientID)
		if err != nil || client == nil {
			s.logger.Printf("WARN followups: reminder for %s skipped, client lookup failed: %v", f.ID, err)
			continue
		}

		when := f.ScheduledAt.Format("Monday, 2 Jan 15:04 MST")
		subject := "Upcoming counselling session"
		body := fmt.Sprintf("Hi %s,\n\nThis is a reminder that your counselling session is scheduled for %s.\n\nSee you there!", client.FullName, when)
		if err := s.sender.Send(client.Email, subject, body); err != nil {
			s.logger.Printf("WARN followups: reminder email for %s failed: %v", f.ID, err)
			continue
		}

		n := &storage.Notification{
			ClientID: f.ClientID,
			Kind:     "followup_due",
			Title:    subject,
			Body:     fmt.Sprintf("Your counselling session is scheduled for %s.", when),
		}
		if err := s.notifications.CreateNotification(ctx, n); err != nil {
			s.logger.Printf("WARN followups: inbox entry for %s failed: %v", f.ID, err)
		}

		if err := s.storage.MarkReminderSent(ctx, f.ID, now); err != nil {
			s.logger.Printf("WARN followups: mark reminder sent for %s failed: %v", f.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// StartReminderLoop runs reminder passes until the context is cancelled.
func (s *Service) StartReminderLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if sent, err := s.RunReminderPass(ctx, time.Now().UTC()); err != nil {
					s.logger.Printf("WARN followups: reminder pass failed: %v", err)
				} else if sent > 0 {
					s.logger.Printf("INFO followups: sent %d reminders", sent)
				}
			}
		}
	}()
}
