package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// MonthWindow is the half-open range [Start, End) of one calendar month.
type MonthWindow struct {
	Year  int
	Month time.Month
	Start time.Time
	End   time.Time
}

// ParseMonth resolves a YYYY-MM key into its window in loc.
func ParseMonth(key string, loc *time.Location) (MonthWindow, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 2 {
		return MonthWindow{}, &domain.ErrInvalidMonth{Input: key, Reason: "expected two components"}
	}
	if !allDigits(parts[0]) || !allDigits(parts[1]) {
		return MonthWindow{}, &domain.ErrInvalidMonth{Input: key, Reason: "components must be numeric"}
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthWindow{}, &domain.ErrInvalidMonth{Input: key, Reason: err.Error()}
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthWindow{}, &domain.ErrInvalidMonth{Input: key, Reason: err.Error()}
	}
	if m < 1 || m > 12 {
		return MonthWindow{}, &domain.ErrInvalidMonth{Input: key, Reason: "month must be between 01 and 12"}
	}
	return newWindow(y, time.Month(m), loc), nil
}

// CurrentMonth returns the window containing now, in loc.
func CurrentMonth(now time.Time, loc *time.Location) MonthWindow {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	return newWindow(now.Year(), now.Month(), loc)
}

func newWindow(y int, m time.Month, loc *time.Location) MonthWindow {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return MonthWindow{
		Year:  y,
		Month: m,
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// Contains reports whether t falls in [Start, End).
func (w MonthWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Prev returns the window of the preceding month.
func (w MonthWindow) Prev() MonthWindow {
	p := w.Start.AddDate(0, -1, 0)
	return newWindow(p.Year(), p.Month(), w.Start.Location())
}

// Key returns the canonical YYYY-MM form.
func (w MonthWindow) Key() string {
	return fmt.Sprintf("%04d-%02d", w.Year, int(w.Month))
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
