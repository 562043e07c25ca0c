package dietplans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mealtimings"
	"github.com/nutrivibes/api/internal/storage"
)

var ErrClientNotFound = errors.New("client not found")

// session is one dietician's in-memory editing context for a single
// client week: the optimistic week state plus the armed grid action.
type session struct {
	week  *WeekPlan
	state ActionState
}

// Service owns weekly diet plans: load/rebuild, grid transforms,
// publish gating, the week copy buffer and auto-save.
type Service struct {
	plans         storage.DietPlansStorage
	buffers       storage.WeekBufferStorage
	clients       storage.ClientsStorage
	notifications storage.NotificationsStorage
	timings       *mealtimings.Service

	maxItemsPerSlot int

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(
	plans storage.DietPlansStorage,
	buffers storage.WeekBufferStorage,
	clients storage.ClientsStorage,
	notifications storage.NotificationsStorage,
	timings *mealtimings.Service,
	maxItemsPerSlot int,
) *Service {
	return &Service{
		plans:           plans,
		buffers:         buffers,
		clients:         clients,
		notifications:   notifications,
		timings:         timings,
		maxItemsPerSlot: maxItemsPerSlot,
		sessions:        make(map[string]*session),
	}
}

func sessionKey(dieticianID, clientID uuid.UUID, startDate string) string {
	return dieticianID.String() + "|" + clientID.String() + "|" + startDate
}

// ensureOwnership verifies the client exists and belongs to the dietician.
func (s *Service) ensureOwnership(ctx context.Context, dieticianID, clientID uuid.UUID) error {
	client, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("get client: %w", err)
	}
	if client == nil || client.DieticianID != dieticianID {
		return ErrClientNotFound
	}
	return nil
}

// LoadOrCreate returns the week for (client, startDate): fetched and
// rebuilt against the reconciled timing structure when stored, a blank
// generated week otherwise. A fetch failure also falls back to blank
// and is only logged.
func (s *Service) LoadOrCreate(ctx context.Context, clientID uuid.UUID, startDate string) (*WeekPlan, error) {
	start, err := ParseMonday(startDate)
	if err != nil {
		return nil, err
	}

	current, err := s.timings.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	rec, err := s.plans.GetWeek(ctx, clientID, startDate)
	if err != nil {
		log.Printf("WARN: fetch week client=%s start=%s failed, serving blank: %v", clientID, startDate, err)
		return GenerateBlankWeek(clientID, start, current), nil
	}
	if rec == nil {
		return GenerateBlankWeek(clientID, start, current), nil
	}

	var saved []DayPlan
	if err := json.Unmarshal(rec.Days, &saved); err != nil {
		log.Printf("WARN: corrupt week payload client=%s start=%s, serving blank: %v", clientID, startDate, err)
		return GenerateBlankWeek(clientID, start, current), nil
	}

	effective := mealtimings.Reconcile(SavedTimings(saved), current)
	return RebuildWeek(clientID, start, saved, effective, rec.Revision), nil
}

// GetWeek returns the dietician's editing view of a week, preferring
// the live session state over storage.
func (s *Service) GetWeek(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string) (*WeekPlan, *ActionState, error) {
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return nil, nil, err
	}
	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state := sess.state
	return sess.week.Clone(), &state, nil
}

// GetWeekForClient is the client-facing read: only PUBLISHED days are
// returned, drafts stay invisible.
func (s *Service) GetWeekForClient(ctx context.Context, clientID uuid.UUID, startDate string) (*WeekPlan, error) {
	week, err := s.LoadOrCreate(ctx, clientID, startDate)
	if err != nil {
		return nil, err
	}
	visible := make([]DayPlan, 0, len(week.Days))
	for _, day := range week.Days {
		if day.Status == StatusPublished {
			visible = append(visible, day)
		}
	}
	week.Days = copyDays(visible)
	return week, nil
}

// getSession returns the live session for the key, loading the week on
// first access.
func (s *Service) getSession(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string) (*session, error) {
	key := sessionKey(dieticianID, clientID, startDate)

	s.mu.Lock()
	if sess, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	week, err := s.LoadOrCreate(ctx, clientID, startDate)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		return sess, nil
	}
	sess := &session{week: week}
	s.sessions[key] = sess
	return sess, nil
}

// SaveDraft is the explicit save path: the full week payload replaces
// the stored one, guarded by the revision the caller based its edit on.
// A stale write is ignored and the authoritative week is returned with
// applied=false.
func (s *Service) SaveDraft(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string, days []DayPlan, baseRevision int64) (*WeekPlan, bool, error) {
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return nil, false, err
	}
	if err := ValidateDays(startDate, days, s.maxItemsPerSlot); err != nil {
		return nil, false, err
	}

	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Published days are immutable through the draft path too: the
	// stored content of a published day always wins over the payload.
	incoming := copyDays(days)
	for i := range incoming {
		if i < len(sess.week.Days) && sess.week.Days[i].Status == StatusPublished {
			incoming[i] = sess.week.Days[i]
			continue
		}
		if incoming[i].Status == StatusPublished {
			// Publishing only happens through the publish operations.
			incoming[i].Status = ""
		}
		deriveStatus(&incoming[i])
	}

	candidate := sess.week.Clone()
	candidate.Days = incoming
	candidate.Revision = baseRevision + 1

	revision, applied, err := s.persist(ctx, dieticianID, candidate)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		// Stale base: keep the session week, report the real revision.
		sess.week.Revision = revision
		return sess.week.Clone(), false, nil
	}

	candidate.Revision = revision
	sess.week = candidate
	return sess.week.Clone(), true, nil
}

// Select feeds a grid click into the session's action state and applies
// the transform when the click completes one. A guard rejection leaves
// the week and the armed state untouched.
func (s *Service) Select(ctx context.Context, dieticianID, clientID uuid.UUID, startDate, action string, target Target) (*WeekPlan, *ActionState, SelectResult, error) {
	if action != ActionCopy && action != ActionSwap {
		return nil, nil, SelectResult{}, fmt.Errorf("%w: unknown action %q", ErrBadIndex, action)
	}
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return nil, nil, SelectResult{}, err
	}
	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return nil, nil, SelectResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := target.validate(sess.week); err != nil {
		return nil, nil, SelectResult{}, err
	}

	prev := sess.state
	result := sess.state.Select(action, target)
	if result.Applied {
		if err := Apply(sess.week, action, result.Source, result.Destination); err != nil {
			// Rejected: restore the armed selection so the dietician
			// can pick another destination.
			sess.state = prev
			return nil, nil, SelectResult{}, err
		}
		if action == ActionSwap {
			sess.state.Disarm()
		}
		s.autoSave(dieticianID, sess)
	}

	state := sess.state
	return sess.week.Clone(), &state, result, nil
}

// CancelSelection is the explicit cancel: any armed state goes back to idle.
func (s *Service) CancelSelection(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string) (*ActionState, error) {
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return nil, err
	}
	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.state.Disarm()
	state := sess.state
	return &state, nil
}

// ClearScope deletes food in the targeted row/column/cell.
func (s *Service) ClearScope(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string, target Target) (*WeekPlan, error) {
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return nil, err
	}
	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Clear(sess.week, target); err != nil {
		return nil, err
	}
	s.autoSave(dieticianID, sess)
	return sess.week.Clone(), nil
}

// PublishDay makes one day visible to the client and drops an inbox
// notification. Persistence is synchronous: publishing is an explicit
// action and its failure must surface.
func (s *Service) PublishDay(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string, dayIdx int) (*WeekPlan, error) {
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return nil, err
	}
	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Publish(sess.week, dayIdx); err != nil {
		return nil, err
	}
	sess.week.Revision++
	if _, _, err := s.persist(ctx, dieticianID, sess.week); err != nil {
		return nil, err
	}
	s.notifyPublished(clientID, []string{sess.week.Days[dayIdx].Date})
	return sess.week.Clone(), nil
}

// UnpublishDay returns a day to draft state.
func (s *Service) UnpublishDay(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string, dayIdx int) (*WeekPlan, error) {
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return nil, err
	}
	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Unpublish(sess.week, dayIdx); err != nil {
		return nil, err
	}
	sess.week.Revision++
	if _, _, err := s.persist(ctx, dieticianID, sess.week); err != nil {
		return nil, err
	}
	return sess.week.Clone(), nil
}

// PublishAllDays publishes every drafted day with food in it.
func (s *Service) PublishAllDays(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string) (*WeekPlan, []string, error) {
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return nil, nil, err
	}
	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	published := PublishAll(sess.week)
	if len(published) > 0 {
		sess.week.Revision++
		if _, _, err := s.persist(ctx, dieticianID, sess.week); err != nil {
			return nil, nil, err
		}
		s.notifyPublished(clientID, published)
	}
	return sess.week.Clone(), published, nil
}

// CopyWeek snapshots the week into the dietician's buffer. Statuses are
// stripped: the buffer carries food only.
func (s *Service) CopyWeek(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string) error {
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return err
	}
	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := copyDays(sess.week.Days)
	s.mu.Unlock()

	for i := range snapshot {
		snapshot[i].Status = ""
		snapshot[i].Date = ""
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal week buffer: %w", err)
	}
	return s.buffers.PutWeekBuffer(ctx, &storage.WeekBufferRow{
		DieticianID: dieticianID,
		Days:        payload,
		CopiedFrom:  startDate,
		CreatedAt:   time.Now(),
	})
}

// PasteWeek overwrites the target week from the buffer, skipping
// published days. Persistence is synchronous: pasting is explicit.
func (s *Service) PasteWeek(ctx context.Context, dieticianID, clientID uuid.UUID, startDate string) (*WeekPlan, []string, error) {
	if err := s.ensureOwnership(ctx, dieticianID, clientID); err != nil {
		return nil, nil, err
	}
	row, err := s.buffers.GetWeekBuffer(ctx, dieticianID)
	if err != nil {
		return nil, nil, fmt.Errorf("get week buffer: %w", err)
	}
	if row == nil {
		return nil, nil, ErrEmptyBuffer
	}
	var buffer []DayPlan
	if err := json.Unmarshal(row.Days, &buffer); err != nil {
		return nil, nil, fmt.Errorf("corrupt week buffer: %w", err)
	}

	sess, err := s.getSession(ctx, dieticianID, clientID, startDate)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	skipped := PasteWeek(sess.week, buffer)
	sess.week.Revision++
	if _, _, err := s.persist(ctx, dieticianID, sess.week); err != nil {
		return nil, nil, err
	}
	return sess.week.Clone(), skipped, nil
}

// ClearWeekBuffer drops the dietician's copied week.
func (s *Service) ClearWeekBuffer(ctx context.Context, dieticianID uuid.UUID) error {
	return s.buffers.ClearWeekBuffer(ctx, dieticianID)
}

// GetWeekBuffer reports the buffer state (source week, copied at).
func (s *Service) GetWeekBuffer(ctx context.Context, dieticianID uuid.UUID) (*storage.WeekBufferRow, error) {
	return s.buffers.GetWeekBuffer(ctx, dieticianID)
}

// ReprojectOpenWeeks rewrites slot labels of this client's live
// sessions after a timing registry update, keeping food positionally.
func (s *Service) ReprojectOpenWeeks(clientID uuid.UUID, timings []mealtimings.Timing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.week.ClientID == clientID {
			Reproject(sess.week, timings)
		}
	}
}

// persist upserts the week under the revision guard. Callers hold s.mu
// or pass a cloned week.
func (s *Service) persist(ctx context.Context, dieticianID uuid.UUID, week *WeekPlan) (int64, bool, error) {
	payload, err := json.Marshal(week.Days)
	if err != nil {
		return 0, false, fmt.Errorf("marshal week: %w", err)
	}
	revision, applied, err := s.plans.UpsertWeek(ctx, &storage.WeekRecord{
		DieticianID: dieticianID,
		ClientID:    week.ClientID,
		StartDate:   week.StartDate,
		Days:        payload,
		Revision:    week.Revision,
	})
	if err != nil {
		return 0, false, fmt.Errorf("upsert week: %w", err)
	}
	return revision, applied, nil
}

// autoSave fires the best-effort background upsert after a grid
// mutation. The in-memory state stays authoritative for the session;
// failures are logged, never rolled back. Caller holds s.mu.
func (s *Service) autoSave(dieticianID uuid.UUID, sess *session) {
	sess.week.Revision++
	snapshot := sess.week.Clone()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, applied, err := s.persist(ctx, dieticianID, snapshot)
		if err != nil {
			log.Printf("WARN: auto-save client=%s start=%s rev=%d failed: %v",
				snapshot.ClientID, snapshot.StartDate, snapshot.Revision, err)
			return
		}
		if !applied {
			log.Printf("INFO: auto-save client=%s start=%s rev=%d superseded, ignored",
				snapshot.ClientID, snapshot.StartDate, snapshot.Revision)
		}
	}()
}

// notifyPublished drops diet_published inbox entries, best effort.
// Caller holds s.mu; the write happens in the background.
func (s *Service) notifyPublished(clientID uuid.UUID, dates []string) {
	if s.notifications == nil || len(dates) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, date := range dates {
			n := &storage.Notification{
				ID:        uuid.New(),
				ClientID:  clientID,
				Kind:      "diet_published",
				Title:     "Your diet plan is ready",
				Body:      fmt.Sprintf("Your diet for %s has been published.", date),
				CreatedAt: time.Now(),
			}
			if err := s.notifications.CreateNotification(ctx, n); err != nil {
				log.Printf("WARN: publish notification client=%s date=%s failed: %v", clientID, date, err)
			}
		}
	}()
}
