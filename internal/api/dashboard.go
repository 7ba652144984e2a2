package api

import (
	"fmt"
	"math"
	"time"

	"github.com/hyperengineering/keepsake/internal/types"
)

// AnniversaryLayout is how the next anniversary is rendered.
const AnniversaryLayout = "2006-01-02 15:04:05"

// DaysTogether counts whole days from start to now. start is taken as
// midnight in now's location.
func DaysTogether(start, now time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, now.Location())
	return int(math.Floor(now.Sub(s).Hours() / 24))
}

// DaysText renders n as "N day(s) together".
func DaysText(n int) string {
	if n == 1 {
		return "1 day together"
	}
	return fmt.Sprintf("%d days together", n)
}

// NextAnniversary returns this year's date of start, or when that has already
// passed, the same day of the following month. December rolls over into
// January of the next year.
func NextAnniversary(start, now time.Time) time.Time {
	loc := now.Location()
	next := time.Date(now.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	if !next.Before(now) {
		return next
	}
	if start.Month() == time.December {
		return time.Date(now.Year()+1, time.January, start.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(now.Year(), start.Month()+1, start.Day(), 0, 0, 0, 0, loc)
}

// BuildDashboard assembles the landing summary for name.
func BuildDashboard(name, bio string, start, now time.Time, preview []types.GalleryPreview) types.Dashboard {
	days := DaysTogether(start, now)
	return types.Dashboard{
		Name:              name,
		Bio:               bio,
		RelationshipStart: start.Format("2006-01-02"),
		DaysTogether:      days,
		DaysText:          DaysText(days),
		NextAnniversary:   NextAnniversary(start, now).Format(AnniversaryLayout),
		Gallery:           preview,
	}
}
