package dataprocessing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"freightcli/pkg/contracts/domain"
)

// Spreadsheet serial dates count days from this epoch.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31 in spreadsheet serial days.
const maxSerial = 2958465

var textDateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	"20060102",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04:05",
}

// NormalizeDate converts a raw date cell into a calendar date and its
// "M月D日" label. Typed timestamps pass through, numbers are read as
// spreadsheet serials and text is tried against a list of layouts.
// ok is false, with a zero time and empty label, when nothing parses.
func NormalizeDate(c domain.Cell) (t time.Time, label string, ok bool) {
	switch c.Kind {
	case domain.CellTime:
		t = c.Time
	case domain.CellNumber:
		t, ok = fromSerial(c.Num)
		if !ok {
			return time.Time{}, "", false
		}
	case domain.CellText:
		t, ok = parseTextDate(c.Text)
		if !ok {
			return time.Time{}, "", false
		}
	default:
		return time.Time{}, "", false
	}
	if t.IsZero() {
		return time.Time{}, "", false
	}
	return t, DateLabel(t), true
}

// DateLabel formats t as "M月D日" without zero padding.
func DateLabel(t time.Time) string {
	return fmt.Sprintf("%d月%d日", int(t.Month()), t.Day())
}

// WeekLabel formats an ISO week number as "第W周".
func WeekLabel(week int) string {
	return fmt.Sprintf("第%d周", week)
}

// MondayIndex maps time.Weekday onto 0 = Monday ... 6 = Sunday.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func fromSerial(v float64) (time.Time, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -maxSerial || v > maxSerial {
		return time.Time{}, false
	}
	whole := math.Floor(v)
	frac := v - whole
	t := serialEpoch.AddDate(0, 0, int(whole))
	if frac > 0 {
		t = t.Add(time.Duration(math.Round(frac * float64(24*time.Hour))))
	}
	return t, true
}

func parseTextDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range textDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
