package dietplans

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mealtimings"
	"github.com/nutrivibes/api/internal/storage"
	"github.com/nutrivibes/api/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, uuid.UUID, uuid.UUID) {
	t.Helper()
	store := memory.New()
	timings := mealtimings.NewService(store, 12)

	dieticianID := uuid.New()
	client := &storage.Client{DieticianID: dieticianID, FullName: "Test Client", Email: "client@example.com"}
	if err := store.CreateClient(context.Background(), client); err != nil {
		t.Fatalf("create client: %v", err)
	}
	if err := timings.SeedDefaults(context.Background(), client.ID); err != nil {
		t.Fatalf("seed timings: %v", err)
	}

	svc := NewService(store, store, store, store, timings, 20)
	return svc, dieticianID, client.ID
}

func TestLoadOrCreateBlankWeek(t *testing.T) {
	svc, _, clientID := newTestService(t)

	w, err := svc.LoadOrCreate(context.Background(), clientID, "2026-08-31")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(w.Days) != 7 || w.Revision != 0 {
		t.Fatalf("expected blank 7-day week at revision 0, got %d days rev %d", len(w.Days), w.Revision)
	}
	for _, d := range w.Days {
		if d.Status != StatusNoDiet || len(d.Meals) != 7 {
			t.Errorf("day %s: status=%s slots=%d", d.Date, d.Status, len(d.Meals))
		}
	}
}

func TestLoadOrCreateRejectsNonMonday(t *testing.T) {
	svc, _, clientID := newTestService(t)

	_, err := svc.LoadOrCreate(context.Background(), clientID, "2026-09-01")
	if !errors.Is(err, ErrNotMonday) {
		t.Fatalf("expected ErrNotMonday, got %v", err)
	}
}

func TestSaveDraftRevisionGuard(t *testing.T) {
	svc, dieticianID, clientID := newTestService(t)
	ctx := context.Background()

	w, _ := svc.LoadOrCreate(ctx, clientID, "2026-08-31")
	w.Days[0].Meals[0].FoodItems = []FoodItem{item("first")}

	saved, applied, err := svc.SaveDraft(ctx, dieticianID, clientID, w.StartDate, w.Days, w.Revision)
	if err != nil || !applied {
		t.Fatalf("first save must apply: applied=%v err=%v", applied, err)
	}
	if saved.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", saved.Revision)
	}

	// A second writer based on the same stale revision 0 is ignored.
	staleDays := copyDays(w.Days)
	staleDays[0].Meals[0].FoodItems = []FoodItem{item("stale")}
	got, applied, err := svc.SaveDraft(ctx, dieticianID, clientID, w.StartDate, staleDays, 0)
	if err != nil {
		t.Fatalf("stale save must not error: %v", err)
	}
	if applied {
		t.Fatal("stale save must not apply")
	}
	if got.Days[0].Meals[0].FoodItems[0].Name != "first" {
		t.Error("stale write overwrote newer content")
	}
	if got.Revision != 1 {
		t.Errorf("response must carry the authoritative revision, got %d", got.Revision)
	}
}

func TestSaveDraftCannotTouchPublishedDay(t *testing.T) {
	svc, dieticianID, clientID := newTestService(t)
	ctx := context.Background()

	w, _ := svc.LoadOrCreate(ctx, clientID, "2026-08-31")
	w.Days[2].Meals[0].FoodItems = []FoodItem{item("locked")}
	saved, _, err := svc.SaveDraft(ctx, dieticianID, clientID, w.StartDate, w.Days, w.Revision)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.PublishDay(ctx, dieticianID, clientID, w.StartDate, 2); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// The draft path silently keeps the published day's stored content.
	edited := copyDays(saved.Days)
	edited[2].Meals[0].FoodItems = []FoodItem{item("sneaky edit")}
	got, applied, err := svc.SaveDraft(ctx, dieticianID, clientID, w.StartDate, edited, saved.Revision+1)
	if err != nil || !applied {
		t.Fatalf("save: applied=%v err=%v", applied, err)
	}
	if got.Days[2].Meals[0].FoodItems[0].Name != "locked" {
		t.Error("published day content changed through the draft path")
	}
	if got.Days[2].Status != StatusPublished {
		t.Errorf("published status lost: %s", got.Days[2].Status)
	}

	// And a payload claiming PUBLISHED on a draft day is demoted.
	claimed := copyDays(got.Days)
	claimed[4].Status = StatusPublished
	got, _, err = svc.SaveDraft(ctx, dieticianID, clientID, w.StartDate, claimed, got.Revision)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if got.Days[4].Status == StatusPublished {
		t.Error("draft save must never publish a day")
	}
}

func TestSelectFlow(t *testing.T) {
	svc, dieticianID, clientID := newTestService(t)
	ctx := context.Background()
	start := "2026-08-31"

	w, _ := svc.LoadOrCreate(ctx, clientID, start)
	w.Days[0].Meals[2].FoodItems = []FoodItem{item("lunch")}
	if _, _, err := svc.SaveDraft(ctx, dieticianID, clientID, start, w.Days, w.Revision); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	src := Target{Scope: ScopeCell, Day: 0, Meal: 2}
	_, state, res, err := svc.Select(ctx, dieticianID, clientID, start, ActionCopy, src)
	if err != nil || res.Applied || !state.Armed() {
		t.Fatalf("first select must arm: res=%+v state=%+v err=%v", res, state, err)
	}

	dst := Target{Scope: ScopeCell, Day: 1, Meal: 2}
	got, state, res, err := svc.Select(ctx, dieticianID, clientID, start, ActionCopy, dst)
	if err != nil || !res.Applied {
		t.Fatalf("second select must apply: res=%+v err=%v", res, err)
	}
	if got.Days[1].Meals[2].FoodItems[0].Name != "lunch" {
		t.Error("copy did not land in destination")
	}
	if !state.Armed() {
		t.Error("copy must stay armed for multi-paste")
	}

	state, err = svc.CancelSelection(ctx, dieticianID, clientID, start)
	if err != nil || state.Armed() {
		t.Fatalf("cancel must disarm: state=%+v err=%v", state, err)
	}
}

func TestSelectGuardKeepsArmedState(t *testing.T) {
	svc, dieticianID, clientID := newTestService(t)
	ctx := context.Background()
	start := "2026-08-31"

	w, _ := svc.LoadOrCreate(ctx, clientID, start)
	w.Days[3].Meals[0].FoodItems = []FoodItem{item("x")}
	svc.SaveDraft(ctx, dieticianID, clientID, start, w.Days, w.Revision)
	svc.PublishDay(ctx, dieticianID, clientID, start, 3)

	svc.Select(ctx, dieticianID, clientID, start, ActionCopy, Target{Scope: ScopeCell, Day: 0, Meal: 0})

	// Pasting into the published day is rejected but the selection survives.
	_, _, _, err := svc.Select(ctx, dieticianID, clientID, start, ActionCopy, Target{Scope: ScopeCell, Day: 3, Meal: 0})
	if !errors.Is(err, ErrDayPublished) {
		t.Fatalf("expected ErrDayPublished, got %v", err)
	}

	got, state, res, err := svc.Select(ctx, dieticianID, clientID, start, ActionCopy, Target{Scope: ScopeCell, Day: 4, Meal: 0})
	if err != nil || !res.Applied {
		t.Fatalf("select after rejection must still apply: res=%+v err=%v state=%+v", res, err, state)
	}
	if len(got.Days[4].Meals[0].FoodItems) != 0 {
		t.Error("copy applied wrong source content")
	}
}

func TestWeekBufferRoundTrip(t *testing.T) {
	svc, dieticianID, clientID := newTestService(t)
	ctx := context.Background()

	weekA, _ := svc.LoadOrCreate(ctx, clientID, "2026-08-31")
	for d := range weekA.Days {
		weekA.Days[d].Meals[0].FoodItems = []FoodItem{item("week-a")}
	}
	svc.SaveDraft(ctx, dieticianID, clientID, "2026-08-31", weekA.Days, weekA.Revision)

	if err := svc.CopyWeek(ctx, dieticianID, clientID, "2026-08-31"); err != nil {
		t.Fatalf("copy week: %v", err)
	}

	weekB, skipped, err := svc.PasteWeek(ctx, dieticianID, clientID, "2026-09-07")
	if err != nil {
		t.Fatalf("paste week: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("no published days expected, skipped=%v", skipped)
	}
	for d := range weekB.Days {
		if weekB.Days[d].Meals[0].FoodItems[0].Name != "week-a" {
			t.Errorf("day %d not pasted", d)
		}
		if weekB.Days[d].Status != StatusNotSaved {
			t.Errorf("pasted day %d status %s", d, weekB.Days[d].Status)
		}
	}

	if err := svc.ClearWeekBuffer(ctx, dieticianID); err != nil {
		t.Fatalf("clear buffer: %v", err)
	}
	if _, _, err := svc.PasteWeek(ctx, dieticianID, clientID, "2026-09-07"); !errors.Is(err, ErrEmptyBuffer) {
		t.Fatalf("expected ErrEmptyBuffer after clear, got %v", err)
	}
}

func TestClientVisibilityGate(t *testing.T) {
	svc, dieticianID, clientID := newTestService(t)
	ctx := context.Background()
	start := "2026-08-31"

	w, _ := svc.LoadOrCreate(ctx, clientID, start)
	w.Days[0].Meals[0].FoodItems = []FoodItem{item("visible")}
	w.Days[1].Meals[0].FoodItems = []FoodItem{item("draft")}
	svc.SaveDraft(ctx, dieticianID, clientID, start, w.Days, w.Revision)
	svc.PublishDay(ctx, dieticianID, clientID, start, 0)

	got, err := svc.GetWeekForClient(ctx, clientID, start)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if len(got.Days) != 1 {
		t.Fatalf("client must see only published days, got %d", len(got.Days))
	}
	if got.Days[0].Status != StatusPublished || got.Days[0].Meals[0].FoodItems[0].Name != "visible" {
		t.Error("client sees wrong day")
	}
}

func TestOwnershipEnforced(t *testing.T) {
	svc, _, clientID := newTestService(t)
	stranger := uuid.New()

	_, _, err := svc.GetWeek(context.Background(), stranger, clientID, "2026-08-31")
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound for foreign dietician, got %v", err)
	}
}

func TestReprojectOpenWeeks(t *testing.T) {
	svc, dieticianID, clientID := newTestService(t)
	ctx := context.Background()
	start := "2026-08-31"

	w, _, err := svc.GetWeek(ctx, dieticianID, clientID, start)
	if err != nil {
		t.Fatalf("get week: %v", err)
	}
	if len(w.Days[0].Meals) != 7 {
		t.Fatalf("expected 7 slots, got %d", len(w.Days[0].Meals))
	}

	eight := append(mealtimings.DefaultTimings(), mealtimings.Timing{MealNumber: 8, Time: "22:30"})
	svc.ReprojectOpenWeeks(clientID, eight)

	w, _, _ = svc.GetWeek(ctx, dieticianID, clientID, start)
	if len(w.Days[0].Meals) != 8 {
		t.Fatalf("open session must reflect new timings, got %d slots", len(w.Days[0].Meals))
	}
}
