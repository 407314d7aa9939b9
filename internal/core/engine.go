package core

import (
	"cmp"
	"slices"
	"strings"
)

// TypeFilter selects one payment type, or every type when empty.
type TypeFilter struct {
	Type PaymentType
}

// AllTypes matches every record, including those with unknown types.
var AllTypes = TypeFilter{}

// ParseTypeFilter accepts "all", "", or any token ParsePaymentType accepts.
// Anything else falls back to AllTypes.
func ParseTypeFilter(s string) TypeFilter {
	pt, err := ParsePaymentType(s)
	if err != nil {
		return AllTypes
	}
	return TypeFilter{Type: pt}
}

func (f TypeFilter) All() bool { return f.Type == "" }

func (f TypeFilter) Match(p PaymentType) bool {
	return f.All() || f.Type == p
}

// Value is the query-string token for the filter.
func (f TypeFilter) Value() string {
	if f.All() {
		return "all"
	}
	return string(f.Type)
}

type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByAmount SortKey = "amount"
	SortByType   SortKey = "type"
)

type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

type SortSpec struct {
	Key SortKey
	Dir SortDirection
}

// DefaultSort shows the most recent receipts first.
var DefaultSort = SortSpec{Key: SortByDate, Dir: Desc}

// ParseSort reads a key and direction, defaulting each independently.
func ParseSort(key, dir string) SortSpec {
	s := DefaultSort
	switch SortKey(strings.ToLower(strings.TrimSpace(key))) {
	case SortByAmount:
		s.Key = SortByAmount
	case SortByType:
		s.Key = SortByType
	case SortByDate:
		s.Key = SortByDate
	}
	switch SortDirection(strings.ToLower(strings.TrimSpace(dir))) {
	case Asc:
		s.Dir = Asc
	case Desc:
		s.Dir = Desc
	}
	return s
}

// Toggle returns the sort a column header click should produce:
// same key flips direction, a new key starts descending.
func (s SortSpec) Toggle(key SortKey) SortSpec {
	if s.Key == key {
		if s.Dir == Asc {
			return SortSpec{Key: key, Dir: Desc}
		}
		return SortSpec{Key: key, Dir: Asc}
	}
	return SortSpec{Key: key, Dir: Desc}
}

func (s SortSpec) compare(a, b Receipt) int {
	var c int
	switch s.Key {
	case SortByAmount:
		c = cmp.Compare(a.Amount.Cents, b.Amount.Cents)
	case SortByType:
		c = strings.Compare(a.PaymentType.Label(), b.PaymentType.Label())
	default:
		c = a.Date.Time.Compare(b.Date.Time)
	}
	if s.Dir == Asc {
		return c
	}
	return -c
}

// Totals holds the per-category sums of a filtered set, plus the overall total.
type Totals struct {
	ByType map[PaymentType]Money
	Total  Money
	Count  int
}

func newTotals() Totals {
	t := Totals{ByType: make(map[PaymentType]Money, len(paymentTypes))}
	for _, p := range paymentTypes {
		t.ByType[p.Type] = Money{}
	}
	return t
}

// Get returns the total for a category, zero for unknown ones.
func (t Totals) Get(p PaymentType) Money {
	return t.ByType[p]
}

// Uncategorized is the part of Total that belongs to no known category.
func (t Totals) Uncategorized() Money {
	sum := t.Total.Cents
	for _, m := range t.ByType {
		sum -= m.Cents
	}
	return Money{Cents: sum}
}

// Result is what the ledger view renders.
type Result struct {
	Visible []Receipt
	Totals  Totals
}

func (r Result) Empty() bool { return len(r.Visible) == 0 }

// Process filters records by date and payment type, sorts the survivors
// stably and sums them. records is not modified.
func Process(records []Receipt, df DateFilter, tf TypeFilter, sort SortSpec) Result {
	res := Result{Visible: make([]Receipt, 0, len(records)), Totals: newTotals()}
	for _, r := range records {
		if !df.Match(r.Date) || !tf.Match(r.PaymentType) {
			continue
		}
		res.Visible = append(res.Visible, r)
		res.Totals.Total = res.Totals.Total.Add(r.Amount)
		res.Totals.Count++
		if r.PaymentType.Known() {
			res.Totals.ByType[r.PaymentType] = res.Totals.ByType[r.PaymentType].Add(r.Amount)
		}
	}
	slices.SortStableFunc(res.Visible, sort.compare)
	return res
}

// Slice is one wedge of the payment-type pie chart.
type Slice struct {
	Type    PaymentType
	Label   string
	Color   string
	Amount  Money
	Percent float64
}

// ChartSlices returns one slice per category with a non-zero total,
// in declaration order. Unknown types are grouped under "Altro".
func ChartSlices(t Totals) []Slice {
	var out []Slice
	pct := func(m Money) float64 {
		if t.Total.Cents == 0 {
			return 0
		}
		return float64(m.Cents) * 100 / float64(t.Total.Cents)
	}
	for _, p := range paymentTypes {
		m := t.ByType[p.Type]
		if m.Cents == 0 {
			continue
		}
		out = append(out, Slice{Type: p.Type, Label: p.Label, Color: p.Color, Amount: m, Percent: pct(m)})
	}
	if u := t.Uncategorized(); u.Cents > 0 {
		out = append(out, Slice{Label: "Altro", Color: PaymentType("").Color(), Amount: u, Percent: pct(u)})
	}
	return out
}
