package dietplans

import (
	"testing"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mealtimings"
)

func TestGenerateBlankWeek(t *testing.T) {
	w := GenerateBlankWeek(uuid.New(), testMonday, testTimings(7))

	if len(w.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(w.Days))
	}
	if w.StartDate != "2026-08-31" || w.EndDate != "2026-09-06" {
		t.Errorf("wrong week bounds: %s .. %s", w.StartDate, w.EndDate)
	}
	for i, day := range w.Days {
		if day.Status != StatusNoDiet {
			t.Errorf("day %d: expected NO_DIET, got %s", i, day.Status)
		}
		if len(day.Meals) != 7 {
			t.Errorf("day %d: expected 7 slots, got %d", i, len(day.Meals))
		}
		for j, slot := range day.Meals {
			if slot.MealNumber != j+1 {
				t.Errorf("day %d slot %d: meal number %d", i, j, slot.MealNumber)
			}
			if len(slot.FoodItems) != 0 {
				t.Errorf("day %d slot %d: expected empty", i, j)
			}
		}
	}
	if w.Days[0].Date != "2026-08-31" || w.Days[6].Date != "2026-09-06" {
		t.Errorf("wrong day dates: %s .. %s", w.Days[0].Date, w.Days[6].Date)
	}
}

func TestRebuildWeekTimingUpgrade(t *testing.T) {
	// A week saved against 7 timings is loaded after the registry grew
	// to 8: the first 7 slots keep their food, the 8th starts empty.
	clientID := uuid.New()
	saved := GenerateBlankWeek(clientID, testMonday, testTimings(7)).Days
	saved[0].Meals[2].FoodItems = []FoodItem{item("kept")}
	saved[0].Status = StatusNotSaved

	current := testTimings(8)
	effective := mealtimings.Reconcile(SavedTimings(saved), current)
	if len(effective) != 8 {
		t.Fatalf("expected 8 effective timings, got %d", len(effective))
	}

	w := RebuildWeek(clientID, testMonday, saved, effective, 3)

	if w.Revision != 3 {
		t.Errorf("revision not carried: %d", w.Revision)
	}
	if len(w.Days[0].Meals) != 8 {
		t.Fatalf("expected 8 slots after upgrade, got %d", len(w.Days[0].Meals))
	}
	if len(w.Days[0].Meals[2].FoodItems) != 1 || w.Days[0].Meals[2].FoodItems[0].Name != "kept" {
		t.Error("food not preserved positionally")
	}
	if len(w.Days[0].Meals[7].FoodItems) != 0 {
		t.Error("new 8th slot must be empty")
	}
	if w.Days[0].Status != StatusNotSaved {
		t.Errorf("day with food must be NOT_SAVED, got %s", w.Days[0].Status)
	}
}

func TestRebuildWeekKeepsPublishedStatus(t *testing.T) {
	clientID := uuid.New()
	saved := GenerateBlankWeek(clientID, testMonday, testTimings(7)).Days
	saved[1].Meals[0].FoodItems = []FoodItem{item("published meal")}
	saved[1].Status = StatusPublished

	w := RebuildWeek(clientID, testMonday, saved, testTimings(7), 1)
	if w.Days[1].Status != StatusPublished {
		t.Errorf("published status lost on rebuild: %s", w.Days[1].Status)
	}
}

func TestRebuildWeekDowngradeSavedWins(t *testing.T) {
	// Saved week had 8 slots, registry now has 7: the longer saved
	// structure wins so no food is silently dropped.
	clientID := uuid.New()
	saved := GenerateBlankWeek(clientID, testMonday, testTimings(8)).Days
	saved[4].Meals[7].FoodItems = []FoodItem{item("late snack")}

	effective := mealtimings.Reconcile(SavedTimings(saved), testTimings(7))
	w := RebuildWeek(clientID, testMonday, saved, effective, 1)

	if len(w.Days[4].Meals) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(w.Days[4].Meals))
	}
	if len(w.Days[4].Meals[7].FoodItems) != 1 {
		t.Error("food in 8th slot was dropped")
	}
}

func TestReproject(t *testing.T) {
	w := GenerateBlankWeek(uuid.New(), testMonday, testTimings(7))
	setItems(w, 0, 0, item("breakfast"))

	Reproject(w, testTimings(8))

	if len(w.Days[0].Meals) != 8 {
		t.Fatalf("expected 8 slots after reproject, got %d", len(w.Days[0].Meals))
	}
	if len(w.Days[0].Meals[0].FoodItems) != 1 {
		t.Error("food lost during reproject")
	}
	if w.Days[0].Meals[7].Time != "22:30" {
		t.Errorf("new slot time not projected: %s", w.Days[0].Meals[7].Time)
	}
}

func TestParseMonday(t *testing.T) {
	if _, err := ParseMonday("2026-08-31"); err != nil {
		t.Errorf("2026-08-31 is a Monday: %v", err)
	}
	if _, err := ParseMonday("2026-09-01"); err == nil {
		t.Error("2026-09-01 is a Tuesday, expected error")
	}
	if _, err := ParseMonday("31-08-2026"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestValidateDays(t *testing.T) {
	w := GenerateBlankWeek(uuid.New(), testMonday, testTimings(7))

	if err := ValidateDays(w.StartDate, w.Days, 20); err != nil {
		t.Errorf("blank week must validate: %v", err)
	}

	short := w.Days[:6]
	if err := ValidateDays(w.StartDate, short, 20); err == nil {
		t.Error("expected error for 6 days")
	}

	wrongDate := copyDays(w.Days)
	wrongDate[3].Date = "2026-01-01"
	if err := ValidateDays(w.StartDate, wrongDate, 20); err == nil {
		t.Error("expected error for out-of-sequence date")
	}

	badStatus := copyDays(w.Days)
	badStatus[0].Status = "SOMETHING"
	if err := ValidateDays(w.StartDate, badStatus, 20); err == nil {
		t.Error("expected error for unknown status")
	}

	badMeal := copyDays(w.Days)
	badMeal[0].Meals[0].MealNumber = 5
	if err := ValidateDays(w.StartDate, badMeal, 20); err == nil {
		t.Error("expected error for wrong meal number")
	}

	noName := copyDays(w.Days)
	noName[0].Meals[0].FoodItems = []FoodItem{{Category: CategoryLunch}}
	if err := ValidateDays(w.StartDate, noName, 20); err == nil {
		t.Error("expected error for unnamed food item")
	}
}
