package services

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		minutes int
		wantErr bool
	}{
		{in: "00:00", minutes: 0},
		{in: "09:05", minutes: 545},
		{in: "9:05", minutes: 545},
		{in: "14:35", minutes: 875},
		{in: "23:59", minutes: 1439},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "", wantErr: true},
		{in: "ab:cd", wantErr: true},
	}

	for _, c := range cases {
		got, err := ParseClock(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.minutes {
			t.Errorf("ParseClock(%q) = %d, want %d", c.in, got, c.minutes)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{
		0:    "00:00",
		15:   "00:15",
		545:  "09:05",
		1020: "17:00",
		1439: "23:59",
	}
	for minutes, want := range cases {
		if got := FormatClock(minutes); got != want {
			t.Errorf("FormatClock(%d) = %q, want %q", minutes, got, want)
		}
		back, err := ParseClock(want)
		if err != nil || back != minutes {
			t.Errorf("ParseClock(FormatClock(%d)) = %d, %v", minutes, back, err)
		}
	}
}

func TestOverlapsMatchesMinuteSweep(t *testing.T) {
	shares := func(aStart, aEnd, bStart, bEnd int) bool {
		for m := aStart; m < aEnd; m++ {
			if m >= bStart && m < bEnd {
				return true
			}
		}
		return false
	}

	bounds := []int{480, 510, 540, 570, 600, 660}
	for _, as := range bounds {
		for _, ae := range bounds {
			if ae <= as {
				continue
			}
			for _, bs := range bounds {
				for _, be := range bounds {
					if be <= bs {
						continue
					}
					want := shares(as, ae, bs, be)
					if got := Overlaps(as, ae, bs, be); got != want {
						t.Fatalf("Overlaps(%d,%d,%d,%d) = %v, want %v", as, ae, bs, be, got, want)
					}
				}
			}
		}
	}
}

func TestOverlapsTouchingSlots(t *testing.T) {
	if Overlaps(540, 600, 600, 660) {
		t.Fatal("09:00-10:00 and 10:00-11:00 must not overlap")
	}
	if !Overlaps(540, 600, 570, 630) {
		t.Fatal("09:00-10:00 and 09:30-10:30 must overlap")
	}
}

func TestParseSlot(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		wantErr    bool
	}{
		{name: "one hour", start: "09:00", end: "10:00"},
		{name: "two hours", start: "13:30", end: "15:30"},
		{name: "too short", start: "09:00", end: "09:59", wantErr: true},
		{name: "reversed", start: "10:00", end: "09:00", wantErr: true},
		{name: "equal", start: "10:00", end: "10:00", wantErr: true},
		{name: "missing end", start: "10:00", end: "", wantErr: true},
		{name: "bad format", start: "10h", end: "11:00", wantErr: true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := parseSlot(c.start, c.end)
			if (err != nil) != c.wantErr {
				t.Fatalf("parseSlot(%q, %q) error = %v, wantErr %v", c.start, c.end, err, c.wantErr)
			}
		})
	}
}

func TestWeekBounds(t *testing.T) {
	cases := []struct {
		now   time.Time
		start time.Time
	}{
		// Monday
		{now: time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC), start: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)},
		// Thursday
		{now: time.Date(2026, 10, 15, 23, 0, 0, 0, time.UTC), start: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)},
		// Sunday belongs to the week that started the previous Monday
		{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), start: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)},
	}

	for _, c := range cases {
		start, end := WeekBounds(c.now)
		if !start.Equal(c.start) {
			t.Errorf("WeekBounds(%s) start = %s, want %s", c.now, start, c.start)
		}
		wantEnd := c.start.AddDate(0, 0, 7).Add(-time.Second)
		if !end.Equal(wantEnd) {
			t.Errorf("WeekBounds(%s) end = %s, want %s", c.now, end, wantEnd)
		}
		if start.Weekday() != time.Monday || end.Weekday() != time.Sunday {
			t.Errorf("WeekBounds(%s) = %s..%s, want Monday..Sunday", c.now, start.Weekday(), end.Weekday())
		}
	}
}

func TestNextReset(t *testing.T) {
	want := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	for day := 12; day <= 18; day++ {
		now := time.Date(2026, 10, day, 15, 30, 0, 0, time.UTC)
		if got := NextReset(now); !got.Equal(want) {
			t.Errorf("NextReset(%s) = %s, want %s", now.Weekday(), got, want)
		}
	}
}

func TestAt(t *testing.T) {
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	got := At(day, 14*60+30)
	want := time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("At = %s, want %s", got, want)
	}
}
