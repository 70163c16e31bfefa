package scheduler

import (
	"fmt"
	"time"
)

// Cadence computes when a job runs next. All cadences evaluate in UTC.
type Cadence interface {
	// Next returns the first run time strictly after t.
	Next(t time.Time) time.Time
	String() string
}

type interval time.Duration

// Every runs a job every d, measured from its previous run. No wall-clock
// alignment.
func Every(d time.Duration) Cadence {
	if d <= 0 {
		panic("scheduler: Every requires a positive interval")
	}
	return interval(d)
}

func (c interval) Next(t time.Time) time.Time { return t.Add(time.Duration(c)) }
func (c interval) String() string             { return "every " + time.Duration(c).String() }

type daily struct {
	hour, minute int
}

// DailyAt runs a job once a day at hour:minute UTC.
func DailyAt(hour, minute int) Cadence {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		panic(fmt.Sprintf("scheduler: invalid daily time %02d:%02d", hour, minute))
	}
	return daily{hour: hour, minute: minute}
}

func (c daily) Next(t time.Time) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), c.hour, c.minute, 0, 0, time.UTC)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (c daily) String() string { return fmt.Sprintf("daily at %02d:%02d UTC", c.hour, c.minute) }

type hourly struct{}

// Hourly runs a job at minute 0 of every hour.
func Hourly() Cadence { return hourly{} }

func (hourly) Next(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour).Add(time.Hour)
}

func (hourly) String() string { return "hourly" }
