package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, y, m, d int, cents int64, pt PaymentType) Receipt {
	return Receipt{ID: id, OwnerID: "u1", Date: NewDate(y, m, d), Amount: Money{Cents: cents}, PaymentType: pt}
}

func ids(rs []Receipt) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestProcessScenario(t *testing.T) {
	records := []Receipt{
		rec("a", 2024, 1, 1, 1000, Cash),
		rec("b", 2024, 1, 2, 550, Card),
	}
	res := Process(records, DateFilter{Kind: NoFilter}, AllTypes, SortSpec{Key: SortByDate, Dir: Asc})

	assert.Equal(t, []string{"a", "b"}, ids(res.Visible))
	assert.Equal(t, int64(1000), res.Totals.Get(Cash).Cents)
	assert.Equal(t, int64(550), res.Totals.Get(Card).Cents)
	assert.Equal(t, int64(0), res.Totals.Get(App).Cents)
	assert.Equal(t, int64(0), res.Totals.Get(Globix).Cents)
	assert.Equal(t, "15.50", res.Totals.Total.String())
	assert.Len(t, res.Totals.ByType, len(PaymentTypes()))
}

func TestProcessDefaultSortIsMostRecentFirst(t *testing.T) {
	records := []Receipt{
		rec("old", 2024, 1, 1, 100, Cash),
		rec("new", 2024, 3, 1, 100, Cash),
		rec("mid", 2024, 2, 1, 100, Cash),
	}
	res := Process(records, DateFilter{}, AllTypes, DefaultSort)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(res.Visible))
}

func TestProcessTotalsInvariant(t *testing.T) {
	records := []Receipt{
		rec("a", 2024, 6, 1, 1010, Cash),
		rec("b", 2024, 6, 2, 2020, Card),
		rec("c", 2024, 6, 3, 333, "bonifico"),
		rec("d", 2024, 6, 4, 10, App),
		rec("e", 2024, 6, 5, 1, Globix),
	}
	res := Process(records, DateFilter{}, AllTypes, DefaultSort)

	var known int64
	for _, p := range PaymentTypes() {
		known += res.Totals.Get(p).Cents
	}
	assert.Equal(t, res.Totals.Total.Cents, known+333)
	assert.Equal(t, int64(333), res.Totals.Uncategorized().Cents)
	assert.Len(t, res.Visible, 5, "unknown types stay visible with the all filter")

	cardOnly := Process(records, DateFilter{}, TypeFilter{Type: Card}, DefaultSort)
	assert.Equal(t, []string{"b"}, ids(cardOnly.Visible))
	assert.Equal(t, int64(2020), cardOnly.Totals.Total.Cents)
	assert.Equal(t, int64(0), cardOnly.Totals.Get(Cash).Cents)
}

func TestProcessNoFloatDrift(t *testing.T) {
	var records []Receipt
	for i := 0; i < 10; i++ {
		records = append(records, rec("x", 2024, 1, 1, 10, Cash)) // 0.10 ten times
	}
	res := Process(records, DateFilter{}, AllTypes, DefaultSort)
	assert.Equal(t, "1.00", res.Totals.Total.String())
}

func TestProcessIsIdempotentAndDoesNotMutateInput(t *testing.T) {
	records := []Receipt{
		rec("a", 2024, 1, 3, 300, Cash),
		rec("b", 2024, 1, 1, 100, Card),
		rec("c", 2024, 1, 2, 200, App),
	}
	before := append([]Receipt(nil), records...)
	spec := SortSpec{Key: SortByAmount, Dir: Asc}

	first := Process(records, DateFilter{}, AllTypes, spec)
	second := Process(records, DateFilter{}, AllTypes, spec)

	assert.Equal(t, first, second)
	assert.Equal(t, before, records)
	assert.Equal(t, []string{"b", "c", "a"}, ids(first.Visible))
}

func TestProcessSortIsStable(t *testing.T) {
	records := []Receipt{
		rec("1", 2024, 1, 1, 500, Cash),
		rec("2", 2024, 1, 2, 500, Card),
		rec("3", 2024, 1, 3, 100, Cash),
		rec("4", 2024, 1, 4, 500, Cash),
	}
	tests := []struct {
		name string
		spec SortSpec
		want []string
	}{
		{"amount asc", SortSpec{SortByAmount, Asc}, []string{"3", "1", "2", "4"}},
		{"amount desc", SortSpec{SortByAmount, Desc}, []string{"1", "2", "4", "3"}},
		{"type asc", SortSpec{SortByType, Asc}, []string{"1", "3", "4", "2"}},
		{"type desc", SortSpec{SortByType, Desc}, []string{"2", "1", "3", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Process(records, DateFilter{}, AllTypes, tt.spec)
			assert.Equal(t, tt.want, ids(res.Visible))
		})
	}
}

func TestProcessTypeSortIsCaseSensitive(t *testing.T) {
	records := []Receipt{
		rec("lower", 2024, 1, 1, 1, "app"),
		rec("upper", 2024, 1, 1, 1, "APP"),
	}
	res := Process(records, DateFilter{}, AllTypes, SortSpec{SortByType, Asc})
	assert.Equal(t, []string{"upper", "lower"}, ids(res.Visible))
}

func TestProcessTypeSortFollowsLabels(t *testing.T) {
	records := []Receipt{
		rec("card", 2024, 1, 1, 1, Card),
		rec("cash", 2024, 1, 1, 1, Cash),
		rec("globix", 2024, 1, 1, 1, Globix),
		rec("app", 2024, 1, 1, 1, App),
	}
	res := Process(records, DateFilter{}, AllTypes, SortSpec{SortByType, Asc})
	// App, Contanti, Globix, POS
	assert.Equal(t, []string{"app", "cash", "globix", "card"}, ids(res.Visible))
}

func TestProcessDateFilters(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	at := func(id string, y, m, d, h, min int) Receipt {
		return Receipt{ID: id, Date: Date{Time: time.Date(y, time.Month(m), d, h, min, 0, 0, time.UTC)}, Amount: Money{Cents: 100}, PaymentType: Cash}
	}
	records := []Receipt{
		at("today-late", 2024, 6, 15, 23, 0),
		at("yesterday-late", 2024, 6, 14, 23, 59),
		at("d9", 2024, 6, 9, 0, 0),
		at("d8", 2024, 6, 8, 0, 0),
		at("d1", 2024, 6, 1, 12, 0),
		at("d10", 2024, 6, 10, 18, 0),
		at("d11", 2024, 6, 11, 0, 0),
	}
	run := func(df DateFilter) []string {
		return ids(Process(records, df, AllTypes, SortSpec{SortByDate, Asc}).Visible)
	}

	todayIDs := run(ResolvePeriod(PeriodToday, Date{}, Date{}, now))
	assert.Equal(t, []string{"today-late"}, todayIDs)

	week := run(ResolvePeriod(Period7Days, Date{}, Date{}, now))
	assert.Contains(t, week, "d9")
	assert.NotContains(t, week, "d8")

	explicit := run(ResolvePeriod(PeriodRange, NewDate(2024, 6, 1), NewDate(2024, 6, 10), now))
	assert.Equal(t, []string{"d1", "d8", "d9", "d10"}, explicit)

	inverted := Process(records, ResolvePeriod(PeriodRange, NewDate(2024, 6, 10), NewDate(2024, 6, 1), now), AllTypes, DefaultSort)
	assert.True(t, inverted.Empty())
	assert.Equal(t, int64(0), inverted.Totals.Total.Cents)
	assert.Len(t, inverted.Totals.ByType, len(PaymentTypes()))
}

func TestProcessDeleteDecrementsTotal(t *testing.T) {
	records := []Receipt{
		rec("a", 2024, 1, 1, 1000, Cash),
		rec("b", 2024, 1, 2, 550, Card),
		rec("c", 2024, 1, 3, 250, Card),
	}
	before := Process(records, DateFilter{}, AllTypes, DefaultSort)

	var remaining []Receipt
	for _, r := range records {
		if r.ID != "b" {
			remaining = append(remaining, r)
		}
	}
	after := Process(remaining, DateFilter{}, AllTypes, DefaultSort)

	require.Len(t, after.Visible, len(before.Visible)-1)
	assert.NotContains(t, ids(after.Visible), "b")
	assert.Equal(t, before.Totals.Total.Cents-550, after.Totals.Total.Cents)
}

func TestChartSlices(t *testing.T) {
	records := []Receipt{
		rec("a", 2024, 1, 1, 750, Cash),
		rec("b", 2024, 1, 2, 250, "bonifico"),
	}
	slices := ChartSlices(Process(records, DateFilter{}, AllTypes, DefaultSort).Totals)
	require.Len(t, slices, 2)
	assert.Equal(t, "Contanti", slices[0].Label)
	assert.InDelta(t, 75.0, slices[0].Percent, 0.001)
	assert.Equal(t, "Altro", slices[1].Label)
	assert.Empty(t, ChartSlices(newTotals()))
}

func TestParseSortAndToggle(t *testing.T) {
	assert.Equal(t, DefaultSort, ParseSort("", ""))
	assert.Equal(t, SortSpec{SortByAmount, Desc}, ParseSort("amount", "bogus"))
	assert.Equal(t, SortSpec{SortByType, Asc}, ParseSort("TYPE", "asc"))

	s := DefaultSort.Toggle(SortByDate)
	assert.Equal(t, SortSpec{SortByDate, Asc}, s)
	assert.Equal(t, SortSpec{SortByAmount, Desc}, s.Toggle(SortByAmount))
}

func TestParseTypeFilter(t *testing.T) {
	assert.True(t, ParseTypeFilter("all").All())
	assert.True(t, ParseTypeFilter("").All())
	assert.Equal(t, Card, ParseTypeFilter("pos").Type)
	assert.Equal(t, "card", ParseTypeFilter("card").Value())
}
