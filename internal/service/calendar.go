package service

import (
	"time"

	"yard_parking/internal/domain"
)

// Calendar answers "what time is it" and "which day is today" for the yard.
type Calendar struct {
	Location *time.Location
	Clock    func() time.Time
}

func NewCalendar(loc *time.Location) Calendar {
	return Calendar{Location: loc, Clock: time.Now}
}

func (c Calendar) Now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock().UTC()
}

// Today is the yard-local calendar date in domain.DateLayout.
func (c Calendar) Today() string {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return c.Now().In(loc).Format(domain.DateLayout)
}
