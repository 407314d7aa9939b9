package core

import (
	"strings"
	"time"
)

// Period is the user's choice of date scope for the ledger view.
type Period string

const (
	PeriodAll    Period = "all"
	PeriodToday  Period = "today"
	Period7Days  Period = "7d"
	Period30Days Period = "30d"
	PeriodRange  Period = "range"
)

// ParsePeriod maps a query token to a Period. Unknown tokens fall back to today.
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodAll:
		return PeriodAll
	case Period7Days:
		return Period7Days
	case Period30Days:
		return Period30Days
	case PeriodRange:
		return PeriodRange
	default:
		return PeriodToday
	}
}

type DateFilterKind int

const (
	NoFilter DateFilterKind = iota
	ExactDay
	InclusiveRange
)

// DateFilter is the resolved form of a period selection.
// For ExactDay only Start is set.
type DateFilter struct {
	Kind  DateFilterKind
	Start Date
	End   Date
}

// Match reports whether d falls inside the filter, comparing calendar days only.
func (f DateFilter) Match(d Date) bool {
	switch f.Kind {
	case ExactDay:
		return d.SameDay(f.Start)
	case InclusiveRange:
		return !d.Before(f.Start) && !d.After(f.End)
	default:
		return true
	}
}

// Inverted is true for a range whose start is after its end. Such a range is
// legal and simply matches nothing.
func (f DateFilter) Inverted() bool {
	return f.Kind == InclusiveRange && f.Start.After(f.End)
}

// Bounds returns the first and last day covered, for filenames and labels.
// ok is false for NoFilter.
func (f DateFilter) Bounds() (from, to Date, ok bool) {
	switch f.Kind {
	case ExactDay:
		return f.Start, f.Start, true
	case InclusiveRange:
		return f.Start, f.End, true
	default:
		return Date{}, Date{}, false
	}
}

// ResolvePeriod turns a period selection into a DateFilter relative to now.
// from and to are only read for PeriodRange and are not reordered.
func ResolvePeriod(p Period, from, to Date, now time.Time) DateFilter {
	today := DateOf(now)
	switch p {
	case PeriodAll:
		return DateFilter{Kind: NoFilter}
	case Period7Days:
		return DateFilter{Kind: InclusiveRange, Start: today.AddDays(-6), End: today}
	case Period30Days:
		return DateFilter{Kind: InclusiveRange, Start: today.AddDays(-29), End: today}
	case PeriodRange:
		return DateFilter{Kind: InclusiveRange, Start: from.Day(), End: to.Day()}
	default:
		return DateFilter{Kind: ExactDay, Start: today}
	}
}
