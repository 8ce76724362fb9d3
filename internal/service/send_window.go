// internal/service/send_window.go
package service

import (
	"strings"
	"time"

	"github.com/agencyflow/outreach-backend/internal/model"
)

// WithinSendWindow reports whether the campaign may send at the given
// instant. Fails closed: a day missing from sendDays or an unparseable bound
// means no sending. Both window bounds are inclusive.
func WithinSendWindow(sc model.ScheduleConfig, now time.Time) bool {
	now = localize(sc, now)

	day := now.Weekday().String()
	if !containsFold(sc.SendDays, day) {
		return false
	}

	start, err := model.ParseClock(sc.SendTimeStart)
	if err != nil {
		return false
	}
	end, err := model.ParseClock(sc.SendTimeEnd)
	if err != nil {
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	return cur >= start && cur <= end
}

// localize shifts now into the schedule's timezone when one is set and
// resolvable. An unknown zone keeps the server-local wall clock, matching
// the behavior campaigns had before timezones were honored.
func localize(sc model.ScheduleConfig, now time.Time) time.Time {
	if sc.Timezone == "" {
		return now
	}
	loc, err := time.LoadLocation(sc.Timezone)
	if err != nil {
		return now
	}
	return now.In(loc)
}

func containsFold(days []string, day string) bool {
	for _, d := range days {
		if strings.EqualFold(strings.TrimSpace(d), day) {
			return true
		}
	}
	return false
}
