package mealtimings

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/nutrivibes/api/internal/storage"
)

var (
	ErrInvalidTime     = errors.New("invalid time, expected HH:MM")
	ErrBadMealNumber   = errors.New("meal numbers must be contiguous starting from 1")
	ErrTooManyTimings  = errors.New("too many meal timings")
	ErrEmptyTimingList = errors.New("timing list cannot be empty")
)

var timeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Timing is a single labelled meal time of a client's day.
type Timing struct {
	MealNumber int    `json:"meal_number"`
	Time       string `json:"time"` // HH:MM, 24h
}

// DefaultTimings returns the seven-meal template assigned to new clients.
func DefaultTimings() []Timing {
	times := []string{"07:30", "10:00", "12:30", "15:00", "17:30", "19:30", "21:00"}
	timings := make([]Timing, len(times))
	for i, t := range times {
		timings[i] = Timing{MealNumber: i + 1, Time: t}
	}
	return timings
}

// ValidateTimings checks a replacement timing list: non-empty, contiguous
// 1-based meal numbers, valid HH:MM times, bounded length.
func ValidateTimings(timings []Timing, maxMeals int) error {
	if len(timings) == 0 {
		return ErrEmptyTimingList
	}
	if maxMeals > 0 && len(timings) > maxMeals {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyTimings, len(timings), maxMeals)
	}
	for i, t := range timings {
		if t.MealNumber != i+1 {
			return fmt.Errorf("%w: position %d has meal_number %d", ErrBadMealNumber, i+1, t.MealNumber)
		}
		if !timeRe.MatchString(t.Time) {
			return fmt.Errorf("%w: %q", ErrInvalidTime, t.Time)
		}
	}
	return nil
}

// Minutes returns the time of day in minutes since midnight.
// Validate the timing first; invalid times return 0.
func (t Timing) Minutes() int {
	parsed, err := time.Parse("15:04", t.Time)
	if err != nil {
		return 0
	}
	return parsed.Hour()*60 + parsed.Minute()
}

func fromRows(rows []storage.MealTimingRow) []Timing {
	timings := make([]Timing, 0, len(rows))
	for _, r := range rows {
		timings = append(timings, Timing{MealNumber: r.MealNumber, Time: r.Time})
	}
	return timings
}

func toRows(clientID uuid.UUID, timings []Timing) []storage.MealTimingRow {
	rows := make([]storage.MealTimingRow, 0, len(timings))
	now := time.Now()
	for _, t := range timings {
		rows = append(rows, storage.MealTimingRow{
			ClientID:   clientID,
			MealNumber: t.MealNumber,
			Time:       t.Time,
			UpdatedAt:  now,
		})
	}
	return rows
}
