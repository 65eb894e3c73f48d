package services

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
)

// ValidateQuietHours checks "HH:MM" bounds and that the timezone loads.
func ValidateQuietHours(q types.QuietHours) error {
	if strings.TrimSpace(q.Start) == "" && strings.TrimSpace(q.End) == "" {
		return nil
	}
	if _, ok := parseHour(q.Start); !ok {
		return errs.Validation("quiet hours start %q is not HH:MM", q.Start)
	}
	if _, ok := parseHour(q.End); !ok {
		return errs.Validation("quiet hours end %q is not HH:MM", q.End)
	}
	if tz := strings.TrimSpace(q.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return errs.Validation("unknown timezone %q", tz)
		}
	}
	return nil
}

// IsInQuietHours compares the wall-clock hour in the window's timezone with
// [start, end). start > end wraps past midnight; start == end is never quiet.
func IsInQuietHours(q *types.QuietHours, now time.Time) bool {
	if q == nil {
		return false
	}
	start, ok1 := parseHour(q.Start)
	end, ok2 := parseHour(q.End)
	if !ok1 || !ok2 {
		return false
	}
	h := now.In(location(q.Timezone)).Hour()
	if start > end {
		return h >= start || h < end
	}
	return h >= start && h < end
}

// QuietHoursEnd is the first instant at or after now when the window closes.
func QuietHoursEnd(q *types.QuietHours, now time.Time) time.Time {
	if !IsInQuietHours(q, now) {
		return now
	}
	end, _ := parseHour(q.End)
	local := now.In(location(q.Timezone))
	next := time.Date(local.Year(), local.Month(), local.Day(), end, 0, 0, 0, local.Location())
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC()
}

func parseHour(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	hh, mm, hasMinutes := strings.Cut(s, ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	if hasMinutes {
		m, err := strconv.Atoi(mm)
		if err != nil || m < 0 || m > 59 {
			return 0, false
		}
	}
	return h, true
}

func location(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
