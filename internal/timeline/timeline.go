// Package timeline computes the live position within a program's
// run-sheet.  It is a pure function of (items, now): no clocks, no
// I/O.  Item start times are local times of day with minute
// granularity, so every computation here works in minutes since
// midnight and callers re-run it at least once per minute while a
// live view is open.
package timeline

import (
    "fmt"
    "strconv"
    "strings"
    "time"

    "github.com/volunteerapp/program-server/internal/model"
)

// minutesPerDay is the size of the clock face all arithmetic wraps on.
const minutesPerDay = 24 * 60

// ParseClock converts a "HH:MM" time of day into minutes since
// midnight.  It rejects anything outside 00:00–23:59.
func ParseClock(s string) (int, error) {
    parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
    if len(parts) != 2 {
        return 0, fmt.Errorf("invalid time of day %q", s)
    }
    h, err := strconv.Atoi(parts[0])
    if err != nil {
        return 0, fmt.Errorf("invalid time of day %q", s)
    }
    m, err := strconv.Atoi(parts[1])
    if err != nil {
        return 0, fmt.Errorf("invalid time of day %q", s)
    }
    if h < 0 || h > 23 || m < 0 || m > 59 {
        return 0, fmt.Errorf("time of day %q out of range", s)
    }
    return h*60 + m, nil
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
// The value is first wrapped onto a single day's clock face.
func FormatClock(mins int) string {
    mins = ((mins % minutesPerDay) + minutesPerDay) % minutesPerDay
    return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// MinutesOfDay returns the minutes-since-midnight component of a
// wall-clock instant, discarding seconds.
func MinutesOfDay(now time.Time) int {
    return now.Hour()*60 + now.Minute()
}

// CurrentIndex returns the index of the item presumed in progress at
// the given instant: the last item whose start time is at or before
// now, clamped to 0 when now precedes the first item.  Once now is at
// or past the last item's start, the program stays in its final item
// indefinitely; there is no explicit "ended" state.  Items must be in
// playback order.  Items with unparseable times are skipped.
// Returns -1 for an empty list.
func CurrentIndex(items []model.ProgramItem, now time.Time) int {
    if len(items) == 0 {
        return -1
    }
    nowMins := MinutesOfDay(now)
    idx := 0
    for i, it := range items {
        t, err := ParseClock(it.Time)
        if err != nil {
            continue
        }
        if nowMins < t {
            if i > 0 {
                idx = i - 1
            }
            return idx
        }
        idx = i
    }
    return idx
}

// NextItem returns the item immediately following the current one,
// or false when the current item is the last (or the list is empty).
func NextItem(items []model.ProgramItem, current int) (model.ProgramItem, bool) {
    if current < 0 || current+1 >= len(items) {
        return model.ProgramItem{}, false
    }
    return items[current+1], true
}

// TimeUntil renders the countdown to the item at index idx as a human
// string.  An upcoming item whose time of day already lies behind the
// clock is treated as starting on the next calendar day, so run-sheets
// that cross midnight show a correct positive countdown instead of a
// large negative one.
func TimeUntil(items []model.ProgramItem, idx int, now time.Time) string {
    if idx < 0 || idx >= len(items) {
        return ""
    }
    t, err := ParseClock(items[idx].Time)
    if err != nil {
        return ""
    }
    diff := t - MinutesOfDay(now)
    if diff < 0 && idx > CurrentIndex(items, now) {
        diff += minutesPerDay
    }
    return Countdown(diff)
}

// Countdown formats a minute difference the way the participant view
// displays it.
func Countdown(diffMins int) string {
    switch {
    case diffMins < 0:
        return "In progress"
    case diffMins == 0:
        return "Starting now"
    case diffMins == 1:
        return "1 minute"
    case diffMins < 60:
        return fmt.Sprintf("%d minutes", diffMins)
    }
    return fmt.Sprintf("%dh %dm", diffMins/60, diffMins%60)
}

// SuggestNextStart derives a default start time for a newly appended
// item from the previous item's start plus its duration, wrapped onto
// a single day's clock face.  It is an authoring convenience only:
// nothing validates that authors keep the suggestion.
func SuggestNextStart(prevTime string, prevDurationMin int) (string, error) {
    t, err := ParseClock(prevTime)
    if err != nil {
        return "", err
    }
    return FormatClock(t + prevDurationMin), nil
}

// FormatSpan renders the duration between a program-level start and
// end time.  When end is at or before start the event is assumed to
// cross midnight and a full day is added before differencing, so
// equal endpoints read "24 hours".
func FormatSpan(start, end string) (string, error) {
    s, err := ParseClock(start)
    if err != nil {
        return "", err
    }
    e, err := ParseClock(end)
    if err != nil {
        return "", err
    }
    if e <= s {
        e += minutesPerDay
    }
    total := e - s
    hours := total / 60
    mins := total % 60
    switch {
    case hours == 0:
        return fmt.Sprintf("%d minute%s", mins, plural(mins)), nil
    case mins == 0:
        return fmt.Sprintf("%d hour%s", hours, plural(hours)), nil
    }
    return fmt.Sprintf("%d hour%s %d minute%s", hours, plural(hours), mins, plural(mins)), nil
}

func plural(n int) string {
    if n == 1 {
        return ""
    }
    return "s"
}
