// Package aitime resolves spoken date and time expressions ("next Friday",
// "half past 2", "eod") against a reference instant.
package aitime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultHour is used when no time of day can be resolved.
const DefaultHour = 9

// endOfDayHour is the hour "end of day" and "end of week" resolve to.
const endOfDayHour = 17

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

// TimeRange represents a time range.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls in [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

var (
	clockPattern    = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?(?:\s|$|\b)`)
	relativePattern = regexp.MustCompile(`\b(half|quarter)\s+(past|after|to|before)\s+(\d{1,2}|[a-z]+)\b`)
	oclockPattern   = regexp.MustCompile(`\b([a-z]+)\s+o'?clock\b`)
	ordinalPattern  = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
)

// weekdays maps spoken weekday names to time.Weekday.
var weekdays = []struct {
	names []string
	day   time.Weekday
}{
	{[]string{"monday", "mon"}, time.Monday},
	{[]string{"tuesday", "tues", "tue"}, time.Tuesday},
	{[]string{"wednesday", "wed"}, time.Wednesday},
	{[]string{"thursday", "thurs", "thu"}, time.Thursday},
	{[]string{"friday", "fri"}, time.Friday},
	{[]string{"saturday", "sat"}, time.Saturday},
	{[]string{"sunday", "sun"}, time.Sunday},
}

// periodClocks maps period words to typical hours. "afternoon" must be
// checked before "noon".
var periodClocks = []struct {
	word  string
	clock Clock
}{
	{"afternoon", Clock{14, 0}},
	{"midnight", Clock{0, 0}},
	{"midday", Clock{12, 0}},
	{"noon", Clock{12, 0}},
	{"morning", Clock{9, 0}},
	{"evening", Clock{18, 0}},
	{"tonight", Clock{18, 0}},
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

// dateLayouts are tried, in order, for expressions no keyword rule handles.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"January 2",
	"Jan 2",
	"2 January",
	"2 Jan",
}

// Resolve combines a date expression and a time expression into an instant
// relative to ref. It never fails: unknown dates keep ref's date and unknown
// times fall back to 09:00.
func Resolve(dateExpr, timeExpr string, ref time.Time) time.Time {
	day, dateClock, _ := ResolveDate(dateExpr, ref)

	clock, ok := ParseClock(timeExpr)
	if !ok {
		if dateClock != nil {
			clock = *dateClock
		} else {
			clock = Clock{Hour: DefaultHour}
		}
	}
	return at(day, clock)
}

// ResolveDate resolves a date expression to midnight of the target day.
// The returned clock is non-nil when the expression implies a time of day
// ("eod", "end of week", or a timestamp). ok is false when the expression
// was empty or not understood, in which case ref's day is returned.
func ResolveDate(dateExpr string, ref time.Time) (day time.Time, clock *Clock, ok bool) {
	today := StartOfDay(ref)
	s := normalize(dateExpr)
	if s == "" {
		return today, nil, false
	}

	day, clock, ok = resolveDay(s, strings.TrimSpace(dateExpr), today, ref)
	if strings.Contains(s, "end of day") || hasWord(s, "eod") {
		if clock == nil {
			clock = &Clock{Hour: endOfDayHour}
		}
		ok = true
	}
	return day, clock, ok
}

func resolveDay(s, raw string, today, ref time.Time) (time.Time, *Clock, bool) {
	switch {
	case strings.Contains(s, "day after tomorrow"):
		return today.AddDate(0, 0, 2), nil, true
	case strings.Contains(s, "tomorrow"):
		return today.AddDate(0, 0, 1), nil, true
	case strings.Contains(s, "today"), strings.Contains(s, "tonight"):
		return today, nil, true
	case strings.Contains(s, "end of week"), strings.Contains(s, "end of the week"), hasWord(s, "eow"):
		return nextWeekday(today, time.Friday), &Clock{Hour: endOfDayHour}, true
	case strings.Contains(s, "next week"):
		return today.AddDate(0, 0, 7), nil, true
	case strings.Contains(s, "next month"):
		return today.AddDate(0, 1, 0), nil, true
	}

	for _, wd := range weekdays {
		for _, name := range wd.names {
			if hasWord(s, name) {
				return nextWeekday(today, wd.day), nil, true
			}
		}
	}

	if t, hasTime, ok := parseDate(raw, ref); ok {
		if hasTime {
			return StartOfDay(t), &Clock{Hour: t.Hour(), Minute: t.Minute()}, true
		}
		return StartOfDay(t), nil, true
	}
	return today, nil, false
}

// ParseClock parses a spoken time of day. Bare hours 1-6 without am/pm are
// read as afternoon hours.
func ParseClock(timeExpr string) (Clock, bool) {
	s := normalize(timeExpr)
	if s == "" {
		return Clock{}, false
	}

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		hour, ok := hourValue(m[3])
		if ok {
			hour = businessHour(hour)
		}
		switch {
		case !ok:
		case m[1] == "half" && (m[2] == "past" || m[2] == "after"):
			return Clock{hour % 24, 30}, true
		case m[1] == "quarter" && (m[2] == "past" || m[2] == "after"):
			return Clock{hour % 24, 15}, true
		case m[1] == "quarter":
			return Clock{(hour + 23) % 24, 45}, true
		case m[1] == "half":
			return Clock{(hour + 23) % 24, 30}, true
		}
	}

	if m := clockPattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour <= 24 && minute < 60 {
			meridiem := strings.ReplaceAll(m[3], ".", "")
			switch {
			case meridiem == "pm" && hour < 12:
				hour += 12
			case meridiem == "am" && hour == 12:
				hour = 0
			case meridiem == "" && m[2] == "":
				hour = businessHour(hour)
			}
			return Clock{hour % 24, minute}, true
		}
	}

	if m := oclockPattern.FindStringSubmatch(s); m != nil {
		if hour, ok := numberWords[m[1]]; ok {
			return Clock{businessHour(hour), 0}, true
		}
	}

	for _, p := range periodClocks {
		if strings.Contains(s, p.word) {
			return p.clock, true
		}
	}
	return Clock{}, false
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayRange returns the whole calendar day containing t.
func DayRange(t time.Time) TimeRange {
	start := StartOfDay(t)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func at(day time.Time, c Clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// nextWeekday returns the next occurrence of wd strictly after today.
func nextWeekday(today time.Time, wd time.Weekday) time.Time {
	diff := (int(wd) - int(today.Weekday()) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return today.AddDate(0, 0, diff)
}

// businessHour maps a bare 1-6 to the afternoon.
func businessHour(hour int) int {
	if hour >= 1 && hour <= 6 {
		return hour + 12
	}
	return hour
}

func hourValue(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0 && n <= 24
	}
	switch s {
	case "noon", "midday":
		return 12, true
	case "midnight":
		return 0, true
	}
	n, ok := numberWords[s]
	return n, ok
}

func parseDate(s string, ref time.Time) (time.Time, bool, bool) {
	s = ordinalPattern.ReplaceAllString(s, "$1")
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, ref.Location())
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "2006") {
			t = time.Date(ref.Year(), t.Month(), t.Day(), 0, 0, 0, 0, ref.Location())
		}
		hasTime := strings.Contains(layout, "15:04")
		return t.In(ref.Location()), hasTime, true
	}
	return time.Time{}, false, false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func hasWord(s, word string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		if f == word {
			return true
		}
	}
	return false
}
