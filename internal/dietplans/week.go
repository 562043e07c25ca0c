package dietplans

import (
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/mealtimings"
)

// GenerateBlankWeek builds an empty seven-day plan starting at the given
// Monday, one empty slot per timing entry, every day NO_DIET.
func GenerateBlankWeek(clientID uuid.UUID, start time.Time, timings []mealtimings.Timing) *WeekPlan {
	days := make([]DayPlan, daysPerWeek)
	for i := range days {
		days[i] = DayPlan{
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Meals:  slotsFromTimings(timings),
			Status: StatusNoDiet,
		}
	}
	return &WeekPlan{
		ClientID:  clientID,
		StartDate: start.Format("2006-01-02"),
		EndDate:   start.AddDate(0, 0, daysPerWeek-1).Format("2006-01-02"),
		Days:      days,
		Revision:  0,
	}
}

// RebuildWeek merges persisted days into the effective timing structure.
// Food items are kept positionally by meal index; slots beyond the
// persisted length start empty. Slot time/meal_number always come from
// the effective timings, never from the stored payload.
func RebuildWeek(clientID uuid.UUID, start time.Time, saved []DayPlan, timings []mealtimings.Timing, revision int64) *WeekPlan {
	week := GenerateBlankWeek(clientID, start, timings)
	week.Revision = revision

	for i := range week.Days {
		if i >= len(saved) {
			break
		}
		day := &week.Days[i]
		for j := range day.Meals {
			if j < len(saved[i].Meals) {
				day.Meals[j].FoodItems = copyItems(saved[i].Meals[j].FoodItems)
			}
		}
		if saved[i].Status == StatusPublished {
			day.Status = StatusPublished
		}
		deriveStatus(day)
	}
	return week
}

// SavedTimings extracts the timing structure a persisted week was laid
// out against, taken from the first day's slots.
func SavedTimings(days []DayPlan) []mealtimings.Timing {
	if len(days) == 0 {
		return nil
	}
	timings := make([]mealtimings.Timing, 0, len(days[0].Meals))
	for _, slot := range days[0].Meals {
		timings = append(timings, mealtimings.Timing{MealNumber: slot.MealNumber, Time: slot.Time})
	}
	return timings
}

// Reproject rewrites every slot's time/meal_number from a new timing
// structure, keeping food items positionally. Used after a registry
// update so open weeks reflect the new structure immediately.
func Reproject(week *WeekPlan, timings []mealtimings.Timing) {
	for i := range week.Days {
		day := &week.Days[i]
		slots := slotsFromTimings(timings)
		for j := range slots {
			if j < len(day.Meals) {
				slots[j].FoodItems = day.Meals[j].FoodItems
			}
		}
		day.Meals = slots
		deriveStatus(day)
	}
}
