package board

import (
	"strings"
	"time"

	"parrillas/internal/model"
)

const DateLayout = "2006-01-02"

// ItemsOnDate returns the items due on day (YYYY-MM-DD). Due dates carrying a time
// component still match by their date prefix.
func ItemsOnDate(items []model.ContentItemWithRelations, day string) []model.ContentItemWithRelations {
	var out []model.ContentItemWithRelations
	for _, it := range items {
		if it.DueDate != nil && strings.HasPrefix(*it.DueDate, day) {
			out = append(out, it)
		}
	}
	return out
}

type Day struct {
	Date  string                           `json:"date"`
	Items []model.ContentItemWithRelations `json:"items"`
}

// Month is a calendar page: Lead blank cells before the 1st (weeks start on
// Sunday) followed by one Day per day of the month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Lead  int        `json:"lead"`
	Days  []Day      `json:"days"`
}

func CalendarMonth(items []model.ContentItemWithRelations, year int, month time.Month) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	n := first.AddDate(0, 1, -1).Day()
	m := Month{Year: year, Month: month, Lead: int(first.Weekday()), Days: make([]Day, 0, n)}
	for d := 1; d <= n; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Format(DateLayout)
		m.Days = append(m.Days, Day{Date: date, Items: ItemsOnDate(items, date)})
	}
	return m
}
