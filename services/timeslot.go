package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/telecare/telehealth_api/apperr"
)

// MinSlotMinutes is the shortest bookable slot.
const MinSlotMinutes = 60

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ParseClock converts an HH:mm wall-clock string to minutes since midnight.
func ParseClock(s string) (int, error) {
	if !clockPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid time %q, expected HH:mm", s)
	}
	parts := strings.SplitN(s, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m, nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and [bStart, bEnd) share an instant.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// parseSlot validates a start/end pair and returns both bounds in minutes.
func parseSlot(startTime, endTime string) (int, int, error) {
	if strings.TrimSpace(startTime) == "" || strings.TrimSpace(endTime) == "" {
		return 0, 0, apperr.Validation("Start time and end time are required")
	}
	start, err := ParseClock(startTime)
	if err != nil {
		return 0, 0, apperr.Validation("Invalid time format, use HH:mm")
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return 0, 0, apperr.Validation("Invalid time format, use HH:mm")
	}

	duration := end - start
	if duration <= 0 {
		return 0, 0, apperr.Validation("End time must be after start time")
	}
	if duration < MinSlotMinutes {
		return 0, 0, apperr.Validation("A schedule must last at least 60 minutes").With("duration_minutes", duration)
	}
	return start, end, nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// At returns the instant minutes after midnight of day.
func At(day time.Time, minutes int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, day.Location())
}

// WeekBounds returns Monday 00:00:00 and Sunday 23:59:59 of the ISO week containing now.
func WeekBounds(now time.Time) (time.Time, time.Time) {
	offset := (int(now.Weekday()) + 6) % 7
	start := StartOfDay(now).AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 7).Add(-time.Second)
	return start, end
}

// NextReset is the Monday 00:00 strictly after now. On a Monday it is the following Monday.
func NextReset(now time.Time) time.Time {
	days := (1 + 7 - int(now.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return StartOfDay(now).AddDate(0, 0, days)
}
