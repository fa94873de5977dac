package payroll

import (
	"fmt"
	"time"

	"workforce/apperror"
	"workforce/models"
)

const dateLayout = "2006-01-02"

// Period is a closed window [Start, End]. The zero Period is unbounded.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewPeriod builds a window from optional bounds. Bounds must be given
// together and in order.
func NewPeriod(start, end *time.Time) (Period, error) {
	if start == nil && end == nil {
		return Period{}, nil
	}
	if start == nil || end == nil {
		return Period{}, apperror.New(apperror.KindValidation, "start_date and end_date must be provided together")
	}
	p := Period{Start: *start, End: *end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// ParsePeriod parses YYYY-MM-DD bounds. The end date covers its whole day.
func ParsePeriod(start, end string) (Period, error) {
	if start == "" && end == "" {
		return Period{}, nil
	}
	if start == "" || end == "" {
		return Period{}, apperror.New(apperror.KindValidation, "start_date and end_date must be provided together")
	}
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return Period{}, apperror.Wrap(err, apperror.KindValidation, "invalid start_date format, use YYYY-MM-DD")
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return Period{}, apperror.Wrap(err, apperror.KindValidation, "invalid end_date format, use YYYY-MM-DD")
	}
	e = e.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return NewPeriod(&s, &e)
}

// MonthToDate is the window from the first instant of now's month up to now.
func MonthToDate(now time.Time) Period {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Period{Start: start, End: now}
}

// YearToDate is the window from January 1st of now's year up to now.
func YearToDate(now time.Time) Period {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return Period{Start: start, End: now}
}

// NextPayday returns the 15th of now's month if it is still ahead, otherwise
// the 15th of the following month.
func NextPayday(now time.Time) time.Time {
	if now.Day() < 15 {
		return time.Date(now.Year(), now.Month(), 15, 0, 0, 0, 0, now.Location())
	}
	return time.Date(now.Year(), now.Month()+1, 15, 0, 0, 0, 0, now.Location())
}

func (p Period) Unbounded() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

func (p Period) Validate() error {
	if p.Unbounded() {
		return nil
	}
	if p.Start.IsZero() || p.End.IsZero() {
		return apperror.New(apperror.KindValidation, "start_date and end_date must be provided together")
	}
	if p.Start.After(p.End) {
		return apperror.New(apperror.KindValidation,
			fmt.Sprintf("start_date %s is after end_date %s", p.Start.Format(dateLayout), p.End.Format(dateLayout)))
	}
	return nil
}

// Contains reports whether t falls inside the window, bounds included.
func (p Period) Contains(t time.Time) bool {
	if p.Unbounded() {
		return true
	}
	return !t.Before(p.Start) && !t.After(p.End)
}

func (p Period) filter(userID uint) models.CheckInFilter {
	return models.CheckInFilter{UserID: userID, Start: p.Start, End: p.End}
}
