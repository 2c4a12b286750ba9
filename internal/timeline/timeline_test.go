package timeline

import (
	"testing"
	"time"

	"github.com/volunteerapp/program-server/internal/model"
)

// at builds a wall-clock instant on an arbitrary fixed date; only the
// time-of-day component matters to the engine.
func at(hour, min int) time.Time {
	return time.Date(2025, 3, 9, hour, min, 0, 0, time.UTC)
}

func items(times ...string) []model.ProgramItem {
	out := make([]model.ProgramItem, len(times))
	for i, t := range times {
		out[i] = model.ProgramItem{ID: uint64(i + 1), Time: t, Order: uint32(i)}
	}
	return out
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:30", 510, false},
		{"23:59", 1439, false},
		{" 09:05 ", 545, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"nope", 0, true},
		{"", 0, true},
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
		if got != c.want {
			t.Errorf("ParseClock(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCurrentIndex(t *testing.T) {
	sheet := items("08:00", "08:30", "09:15")
	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before first item clamps to zero", at(7, 15), 0},
		{"exactly at first item", at(8, 0), 0},
		{"inside first item", at(8, 10), 0},
		{"exactly at second item", at(8, 30), 1},
		{"inside second item", at(9, 14), 1},
		{"at last item", at(9, 15), 2},
		{"well past last item stays on last", at(23, 0), 2},
	}
	for _, c := range cases {
		if got := CurrentIndex(sheet, c.now); got != c.want {
			t.Errorf("%s: CurrentIndex = %d, want %d", c.name, got, c.want)
		}
	}
}

// The current index must always be the greatest index whose start time
// is at or before now, or 0 when no item qualifies yet.
func TestCurrentIndexGreatestQualifying(t *testing.T) {
	sheet := items("06:00", "06:45", "07:30", "09:00", "12:00")
	for nowMins := 0; nowMins < 24*60; nowMins += 7 {
		now := at(nowMins/60, nowMins%60)
		got := CurrentIndex(sheet, now)
		want := 0
		for i, it := range sheet {
			m, err := ParseClock(it.Time)
			if err != nil {
				t.Fatalf("bad fixture time %q", it.Time)
			}
			if m <= nowMins {
				want = i
			}
		}
		if got != want {
			t.Fatalf("now=%02d:%02d: CurrentIndex = %d, want %d", nowMins/60, nowMins%60, got, want)
		}
	}
}

func TestCurrentIndexEmpty(t *testing.T) {
	if got := CurrentIndex(nil, at(10, 0)); got != -1 {
		t.Errorf("CurrentIndex(empty) = %d, want -1", got)
	}
}

func TestNextItem(t *testing.T) {
	sheet := items("08:00", "08:30")
	next, ok := NextItem(sheet, 0)
	if !ok || next.ID != 2 {
		t.Errorf("NextItem(0) = (%v, %v), want item 2", next.ID, ok)
	}
	if _, ok := NextItem(sheet, 1); ok {
		t.Error("NextItem on last index should report none")
	}
	if _, ok := NextItem(sheet, -1); ok {
		t.Error("NextItem(-1) should report none")
	}
}

func TestCountdownFormatting(t *testing.T) {
	cases := []struct {
		diff int
		want string
	}{
		{-5, "In progress"},
		{-1, "In progress"},
		{0, "Starting now"},
		{1, "1 minute"},
		{2, "2 minutes"},
		{59, "59 minutes"},
		{60, "1h 0m"},
		{95, "1h 35m"},
		{150, "2h 30m"},
	}
	for _, c := range cases {
		if got := Countdown(c.diff); got != c.want {
			t.Errorf("Countdown(%d) = %q, want %q", c.diff, got, c.want)
		}
	}
}

// As the clock advances toward an item's start, the rendered countdown
// must cross "Starting now" at exact equality and read "In progress"
// afterwards.
func TestTimeUntilProgression(t *testing.T) {
	sheet := items("08:00", "10:00")
	cases := []struct {
		now  time.Time
		want string
	}{
		{at(8, 25), "1h 35m"},
		{at(9, 30), "30 minutes"},
		{at(9, 59), "1 minute"},
		{at(10, 0), "Starting now"},
		{at(10, 1), "In progress"},
		{at(11, 0), "In progress"},
	}
	for _, c := range cases {
		if got := TimeUntil(sheet, 1, c.now); got != c.want {
			t.Errorf("TimeUntil at %v = %q, want %q", c.now.Format("15:04"), got, c.want)
		}
	}
}

// An upcoming item on the far side of midnight must count down through
// the rollover instead of reading as a large negative difference.
func TestTimeUntilAcrossMidnight(t *testing.T) {
	sheet := items("23:30", "00:15")
	if got := TimeUntil(sheet, 1, at(23, 0)); got != "1h 15m" {
		t.Errorf("countdown across midnight = %q, want %q", got, "1h 15m")
	}
	// Once the clock wraps, the item is simply upcoming on the same day.
	if got := TimeUntil(sheet, 1, at(0, 5)); got != "10 minutes" {
		t.Errorf("countdown after rollover = %q, want %q", got, "10 minutes")
	}
}

func TestSuggestNextStart(t *testing.T) {
	cases := []struct {
		prev string
		dur  int
		want string
	}{
		{"08:30", 45, "09:15"},
		{"08:00", 30, "08:30"},
		{"23:45", 30, "00:15"}, // wraps onto the next day's clock face
		{"23:00", 60, "00:00"},
		{"10:00", 0, "10:00"},
	}
	for _, c := range cases {
		got, err := SuggestNextStart(c.prev, c.dur)
		if err != nil {
			t.Errorf("SuggestNextStart(%q, %d): unexpected error %v", c.prev, c.dur, err)
			continue
		}
		if got != c.want {
			t.Errorf("SuggestNextStart(%q, %d) = %q, want %q", c.prev, c.dur, got, c.want)
		}
	}
	if _, err := SuggestNextStart("bogus", 10); err == nil {
		t.Error("SuggestNextStart with invalid time should error")
	}
}

func TestFormatSpan(t *testing.T) {
	cases := []struct {
		start, end, want string
	}{
		{"09:00", "11:30", "2 hours 30 minutes"},
		{"22:00", "01:00", "3 hours"}, // crosses midnight
		{"14:00", "14:00", "24 hours"},
		{"09:00", "09:01", "1 minute"},
		{"09:00", "09:45", "45 minutes"},
		{"09:00", "10:00", "1 hour"},
		{"08:00", "09:01", "1 hour 1 minute"},
	}
	for _, c := range cases {
		got, err := FormatSpan(c.start, c.end)
		if err != nil {
			t.Errorf("FormatSpan(%q, %q): unexpected error %v", c.start, c.end, err)
			continue
		}
		if got != c.want {
			t.Errorf("FormatSpan(%q, %q) = %q, want %q", c.start, c.end, got, c.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		mins int
		want string
	}{
		{0, "00:00"},
		{510, "08:30"},
		{1439, "23:59"},
		{1440, "00:00"},
		{1455, "00:15"},
		{-30, "23:30"},
	}
	for _, c := range cases {
		if got := FormatClock(c.mins); got != c.want {
			t.Errorf("FormatClock(%d) = %q, want %q", c.mins, got, c.want)
		}
	}
}
