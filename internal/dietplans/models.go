package dietplans

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mealtimings"
)

// Day publication statuses. NO_DIET and NOT_SAVED are derived from slot
// content; PUBLISHED is only ever set by an explicit publish operation.
const (
	StatusNoDiet    = "NO_DIET"
	StatusNotSaved  = "NOT_SAVED"
	StatusPublished = "PUBLISHED"
)

// Food item categories.
const (
	CategoryBreakfast = "breakfast"
	CategoryLunch     = "lunch"
	CategorySnack     = "snack"
	CategoryDinner    = "dinner"
)

var (
	ErrDayPublished  = errors.New("day is published and cannot be edited")
	ErrWeekPublished = errors.New("a published day blocks row operations on the week")
	ErrBadIndex      = errors.New("index out of range")
	ErrNotMonday     = errors.New("week start date must be a Monday")
	ErrBadDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrEmptyBuffer   = errors.New("week buffer is empty")
	ErrBadPayload    = errors.New("malformed week payload")
)

// FoodItem is one assigned food entry in a meal slot. Copies are
// independent values; moving or duplicating an item never shares state.
type FoodItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Quantity    string `json:"quantity"`
	Description string `json:"description,omitempty"`
	Cuisine     string `json:"cuisine,omitempty"`
	DietPref    string `json:"diet_pref,omitempty"`
}

// MealSlot is one time-of-day entry of a DayPlan. Time and MealNumber
// mirror the client's timing registry and are re-projected on every
// load; they are never edited through the slot itself.
type MealSlot struct {
	Time       string     `json:"time"`
	MealNumber int        `json:"meal_number"`
	FoodItems  []FoodItem `json:"food_items"`
}

func (s MealSlot) isEmpty() bool {
	return len(s.FoodItems) == 0
}

// DayPlan is one calendar date's slate of meal slots plus its
// publication status.
type DayPlan struct {
	Date   string     `json:"date"` // YYYY-MM-DD
	Meals  []MealSlot `json:"meals"`
	Status string     `json:"status"`
}

// WeekPlan is seven contiguous DayPlans anchored to a Monday.
// Revision is a monotonic counter used to discard stale writes.
type WeekPlan struct {
	ClientID  uuid.UUID `json:"client_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Days      []DayPlan `json:"days"`
	Revision  int64     `json:"revision"`
}

const daysPerWeek = 7

// deriveStatus recomputes a non-published day's status from its slot
// content. Published days keep their status until explicitly unpublished.
func deriveStatus(day *DayPlan) {
	if day.Status == StatusPublished {
		return
	}
	for _, slot := range day.Meals {
		if !slot.isEmpty() {
			day.Status = StatusNotSaved
			return
		}
	}
	day.Status = StatusNoDiet
}

func copyItems(items []FoodItem) []FoodItem {
	out := make([]FoodItem, len(items))
	copy(out, items)
	return out
}

func copyDays(days []DayPlan) []DayPlan {
	out := make([]DayPlan, len(days))
	for i, d := range days {
		out[i] = DayPlan{Date: d.Date, Status: d.Status, Meals: make([]MealSlot, len(d.Meals))}
		for j, slot := range d.Meals {
			out[i].Meals[j] = MealSlot{
				Time:       slot.Time,
				MealNumber: slot.MealNumber,
				FoodItems:  copyItems(slot.FoodItems),
			}
		}
	}
	return out
}

// Clone returns a deep copy of the week, safe to hand to a goroutine.
func (w *WeekPlan) Clone() *WeekPlan {
	return &WeekPlan{
		ClientID:  w.ClientID,
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
		Days:      copyDays(w.Days),
		Revision:  w.Revision,
	}
}

// ParseMonday parses a YYYY-MM-DD date and checks Monday alignment.
func ParseMonday(date string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, date)
	}
	if t.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("%w: %s is a %s", ErrNotMonday, date, t.Weekday())
	}
	return t, nil
}

// ValidateDays checks an incoming week payload: exactly seven days in
// date order starting at startDate, slot structure intact, statuses
// limited to the known set.
func ValidateDays(startDate string, days []DayPlan, maxItemsPerSlot int) error {
	start, err := ParseMonday(startDate)
	if err != nil {
		return err
	}
	if len(days) != daysPerWeek {
		return fmt.Errorf("%w: expected %d days, got %d", ErrBadPayload, daysPerWeek, len(days))
	}
	for i, day := range days {
		wantDate := start.AddDate(0, 0, i).Format("2006-01-02")
		if day.Date != wantDate {
			return fmt.Errorf("%w: day %d has date %q, expected %q", ErrBadPayload, i, day.Date, wantDate)
		}
		switch day.Status {
		case StatusNoDiet, StatusNotSaved, StatusPublished, "":
		default:
			return fmt.Errorf("%w: unknown status %q", ErrBadPayload, day.Status)
		}
		for j, slot := range day.Meals {
			if slot.MealNumber != j+1 {
				return fmt.Errorf("%w: day %d slot %d has meal_number %d", ErrBadPayload, i, j, slot.MealNumber)
			}
			if maxItemsPerSlot > 0 && len(slot.FoodItems) > maxItemsPerSlot {
				return fmt.Errorf("%w: day %d slot %d has %d items, max %d", ErrBadPayload, i, j, len(slot.FoodItems), maxItemsPerSlot)
			}
			for _, item := range slot.FoodItems {
				if item.Name == "" {
					return fmt.Errorf("%w: food item without name in day %d slot %d", ErrBadPayload, i, j)
				}
				switch item.Category {
				case CategoryBreakfast, CategoryLunch, CategorySnack, CategoryDinner, "":
				default:
					return fmt.Errorf("%w: unknown category %q", ErrBadPayload, item.Category)
				}
			}
		}
	}
	return nil
}

func slotsFromTimings(timings []mealtimings.Timing) []MealSlot {
	slots := make([]MealSlot, len(timings))
	for i, t := range timings {
		slots[i] = MealSlot{Time: t.Time, MealNumber: t.MealNumber, FoodItems: []FoodItem{}}
	}
	return slots
}
