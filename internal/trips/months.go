package trips

import (
	"fmt"
	"time"
)

// Period is a year and the months of it whose trip files are wanted
type Period struct {
	Year   int
	Months []int
}

// MonthsOfInterest returns the current month plus the offset months before
// it, grouped by year in ascending order. Offsets outside 0..11 are clamped.
func MonthsOfInterest(now time.Time, offset int) []Period {
	if offset < 0 {
		offset = 0
	}
	if offset > 11 {
		offset = 11
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -offset, 0)

	var periods []Period
	for i := 0; i <= offset; i++ {
		m := first.AddDate(0, i, 0)
		if len(periods) == 0 || periods[len(periods)-1].Year != m.Year() {
			periods = append(periods, Period{Year: m.Year()})
		}
		last := &periods[len(periods)-1]
		last.Months = append(last.Months, int(m.Month()))
	}

	return periods
}

// MonthlyFileName is the name Divvy gives to a month's extracted CSV
func MonthlyFileName(year, month int) string {
	return fmt.Sprintf("%d%02d-divvy-tripdata.csv", year, month)
}
