package dietplans

import "fmt"

// Grid scope types: a row is one meal index across all seven days, a
// column is one whole day, a cell is a single (day, meal) slot.
const (
	ScopeRow    = "row"
	ScopeColumn = "column"
	ScopeCell   = "cell"
)

// Grid action types.
const (
	ActionCopy = "copy"
	ActionSwap = "swap"
)

// Target addresses a grid scope. Row targets use Meal, column targets
// use Day, cell targets use both.
type Target struct {
	Scope string `json:"scope"`
	Day   int    `json:"day"`
	Meal  int    `json:"meal"`
}

func (t Target) equal(o Target) bool {
	if t.Scope != o.Scope {
		return false
	}
	switch t.Scope {
	case ScopeRow:
		return t.Meal == o.Meal
	case ScopeColumn:
		return t.Day == o.Day
	default:
		return t.Day == o.Day && t.Meal == o.Meal
	}
}

func (t Target) validate(week *WeekPlan) error {
	mealCount := 0
	if len(week.Days) > 0 {
		mealCount = len(week.Days[0].Meals)
	}
	switch t.Scope {
	case ScopeRow:
		if t.Meal < 0 || t.Meal >= mealCount {
			return fmt.Errorf("%w: meal index %d", ErrBadIndex, t.Meal)
		}
	case ScopeColumn:
		if t.Day < 0 || t.Day >= len(week.Days) {
			return fmt.Errorf("%w: day index %d", ErrBadIndex, t.Day)
		}
	case ScopeCell:
		if t.Day < 0 || t.Day >= len(week.Days) {
			return fmt.Errorf("%w: day index %d", ErrBadIndex, t.Day)
		}
		if t.Meal < 0 || t.Meal >= mealCount {
			return fmt.Errorf("%w: meal index %d", ErrBadIndex, t.Meal)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrBadIndex, t.Scope)
	}
	return nil
}

// Apply runs an armed copy or swap from src to dst. Guards are checked
// before anything mutates: a rejected operation leaves the week intact.
func Apply(week *WeekPlan, action string, src, dst Target) error {
	if err := src.validate(week); err != nil {
		return err
	}
	if err := dst.validate(week); err != nil {
		return err
	}
	if src.Scope != dst.Scope {
		return fmt.Errorf("%w: source is %s, destination is %s", ErrBadIndex, src.Scope, dst.Scope)
	}

	switch src.Scope {
	case ScopeRow:
		return applyRow(week, action, src.Meal, dst.Meal)
	case ScopeColumn:
		return applyColumn(week, action, src.Day, dst.Day)
	default:
		return applyCell(week, action, src, dst)
	}
}

// applyRow copies or swaps one meal index across all seven days. A row
// operation touches every day, so any published day rejects it whole.
func applyRow(week *WeekPlan, action string, srcMeal, dstMeal int) error {
	for i := range week.Days {
		if week.Days[i].Status == StatusPublished {
			return fmt.Errorf("%w: %s", ErrWeekPublished, week.Days[i].Date)
		}
	}

	for i := range week.Days {
		day := &week.Days[i]
		switch action {
		case ActionSwap:
			day.Meals[srcMeal].FoodItems, day.Meals[dstMeal].FoodItems =
				day.Meals[dstMeal].FoodItems, day.Meals[srcMeal].FoodItems
		default:
			day.Meals[dstMeal].FoodItems = copyItems(day.Meals[srcMeal].FoodItems)
		}
		deriveStatus(day)
	}
	return nil
}

// applyColumn copies or swaps whole days. The destination day must not
// be published; a swap also rewrites the source, so it guards both.
func applyColumn(week *WeekPlan, action string, srcDay, dstDay int) error {
	src, dst := &week.Days[srcDay], &week.Days[dstDay]
	if dst.Status == StatusPublished {
		return fmt.Errorf("%w: %s", ErrDayPublished, dst.Date)
	}
	if action == ActionSwap && src.Status == StatusPublished {
		return fmt.Errorf("%w: %s", ErrDayPublished, src.Date)
	}

	switch action {
	case ActionSwap:
		for j := range dst.Meals {
			if j < len(src.Meals) {
				src.Meals[j].FoodItems, dst.Meals[j].FoodItems =
					dst.Meals[j].FoodItems, src.Meals[j].FoodItems
			}
		}
		deriveStatus(src)
	default:
		for j := range dst.Meals {
			if j < len(src.Meals) {
				dst.Meals[j].FoodItems = copyItems(src.Meals[j].FoodItems)
			} else {
				dst.Meals[j].FoodItems = []FoodItem{}
			}
		}
	}
	deriveStatus(dst)
	return nil
}

// applyCell copies or swaps a single slot. Same guards as column,
// scoped to the two days touched.
func applyCell(week *WeekPlan, action string, src, dst Target) error {
	srcDay, dstDay := &week.Days[src.Day], &week.Days[dst.Day]
	if dstDay.Status == StatusPublished {
		return fmt.Errorf("%w: %s", ErrDayPublished, dstDay.Date)
	}
	if action == ActionSwap && srcDay.Status == StatusPublished {
		return fmt.Errorf("%w: %s", ErrDayPublished, srcDay.Date)
	}

	switch action {
	case ActionSwap:
		srcDay.Meals[src.Meal].FoodItems, dstDay.Meals[dst.Meal].FoodItems =
			dstDay.Meals[dst.Meal].FoodItems, srcDay.Meals[src.Meal].FoodItems
		deriveStatus(srcDay)
	default:
		dstDay.Meals[dst.Meal].FoodItems = copyItems(srcDay.Meals[src.Meal].FoodItems)
	}
	deriveStatus(dstDay)
	return nil
}

// Clear deletes food items in the targeted scope. Immediate, no
// arm/destination cycle; same publish guards as the matching transform.
func Clear(week *WeekPlan, t Target) error {
	if err := t.validate(week); err != nil {
		return err
	}

	switch t.Scope {
	case ScopeRow:
		for i := range week.Days {
			if week.Days[i].Status == StatusPublished {
				return fmt.Errorf("%w: %s", ErrWeekPublished, week.Days[i].Date)
			}
		}
		for i := range week.Days {
			week.Days[i].Meals[t.Meal].FoodItems = []FoodItem{}
			deriveStatus(&week.Days[i])
		}
	case ScopeColumn:
		day := &week.Days[t.Day]
		if day.Status == StatusPublished {
			return fmt.Errorf("%w: %s", ErrDayPublished, day.Date)
		}
		for j := range day.Meals {
			day.Meals[j].FoodItems = []FoodItem{}
		}
		deriveStatus(day)
	default:
		day := &week.Days[t.Day]
		if day.Status == StatusPublished {
			return fmt.Errorf("%w: %s", ErrDayPublished, day.Date)
		}
		day.Meals[t.Meal].FoodItems = []FoodItem{}
		deriveStatus(day)
	}
	return nil
}

// PasteWeek overwrites the target week's food from a buffered snapshot,
// mapped by meal index. Published days are skipped per day rather than
// rejecting the whole paste; the skipped dates are returned.
func PasteWeek(week *WeekPlan, buffer []DayPlan) []string {
	skipped := make([]string, 0)
	for i := range week.Days {
		day := &week.Days[i]
		if day.Status == StatusPublished {
			skipped = append(skipped, day.Date)
			continue
		}
		for j := range day.Meals {
			if i < len(buffer) && j < len(buffer[i].Meals) {
				day.Meals[j].FoodItems = copyItems(buffer[i].Meals[j].FoodItems)
			} else {
				day.Meals[j].FoodItems = []FoodItem{}
			}
		}
		deriveStatus(day)
	}
	return skipped
}

// Publish marks a day visible to the client. No content guard: an empty
// day can be published as a confirmed rest day.
func Publish(week *WeekPlan, dayIdx int) error {
	if dayIdx < 0 || dayIdx >= len(week.Days) {
		return fmt.Errorf("%w: day index %d", ErrBadIndex, dayIdx)
	}
	week.Days[dayIdx].Status = StatusPublished
	return nil
}

// Unpublish returns a day to draft state; its status falls back to the
// content-derived value.
func Unpublish(week *WeekPlan, dayIdx int) error {
	if dayIdx < 0 || dayIdx >= len(week.Days) {
		return fmt.Errorf("%w: day index %d", ErrBadIndex, dayIdx)
	}
	day := &week.Days[dayIdx]
	day.Status = StatusNotSaved
	deriveStatus(day)
	return nil
}

// PublishAll publishes every day that has food and is not yet
// published. Empty days are left untouched. Returns published dates.
func PublishAll(week *WeekPlan) []string {
	published := make([]string, 0)
	for i := range week.Days {
		day := &week.Days[i]
		if day.Status != StatusNotSaved {
			continue
		}
		day.Status = StatusPublished
		published = append(published, day.Date)
	}
	return published
}
