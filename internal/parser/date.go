package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/en"
)

// monthTable maps the first three letters of a month name to its number.
// Italian abbreviations come first; English ones fill in the rest.
var monthTable = map[string]time.Month{
	"gen": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"mag": time.May,
	"giu": time.June,
	"lug": time.July,
	"ago": time.August,
	"set": time.September,
	"ott": time.October,
	"nov": time.November,
	"dic": time.December,

	"jan": time.January,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"dec": time.December,
}

var (
	// day tokens must not continue a longer number, so "2025/05/12" is not read as 25/05/12
	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*[-\s./]\s*([a-zà-ù]{3,})\.?(?:\s*[-\s./]\s*(\d{2,4}))?`)
	slashRe    = regexp.MustCompile(`(?:^|[^\d/])(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?`)

	fallbackLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		time.RFC3339,
		"2 January 2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"02.01.2006",
	}

	fallbackParser = newFallbackParser()
)

func newFallbackParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	return w
}

// ParseDate reads a schedule cell into a UTC date. Tokens without a year take
// seasonYear. It returns nil for empty or unreadable input.
func ParseDate(text string, seasonYear int) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// A recognised day-month or slash token that does not form a real date is
	// rejected outright rather than handed to the fuzzy fallback.
	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		if month, ok := monthTable[strings.ToLower(m[2])[:3]]; ok {
			day, _ := strconv.Atoi(m[1])
			return makeDate(expandYear(m[3], seasonYear), month, day)
		}
	}

	if m := slashRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return nil
		}
		return makeDate(expandYear(m[3], seasonYear), time.Month(month), day)
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return makeDate(t.Year(), t.Month(), t.Day())
		}
	}

	base := time.Date(seasonYear, time.January, 1, 12, 0, 0, 0, time.UTC)
	if r, err := fallbackParser.Parse(text, base); err == nil && r != nil {
		return makeDate(r.Time.Year(), r.Time.Month(), r.Time.Day())
	}

	return nil
}

// expandYear turns "" into seasonYear and two-digit years into 20xx
func expandYear(s string, seasonYear int) int {
	if s == "" {
		return seasonYear
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return seasonYear
	}
	if y < 100 {
		return 2000 + y
	}
	return y
}

// makeDate rejects days that overflow the month instead of normalizing them
func makeDate(year int, month time.Month, day int) *time.Time {
	if year <= 0 || day < 1 || day > 31 {
		return nil
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != month || d.Day() != day {
		return nil
	}
	return &d
}
