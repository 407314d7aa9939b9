package http

import (
	"strings"

	"golang.org/x/text/language"

	"incassi/internal/core"
	"incassi/internal/services"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type receiptRow struct {
	ID      string
	Date    string
	Amount  string
	Label   string
	Color   string
	Unknown bool
}

type totalCard struct {
	Label  string
	Amount string
	Color  string
}

type sortHeader struct {
	Key     string
	Label   string
	Active  bool
	Arrow   string
	NextDir string
}

// ledgerData is the model of the ledger partial.
type ledgerData struct {
	Rows       []receiptRow
	Total      totalCard
	Cards      []totalCard
	Count      int
	Empty      bool
	Inverted   bool
	Headers    []sortHeader
	Query      string
	ExportXLSX string
	ExportCSV  string
	RangeText  string
}

// pageData is the model of the main page.
type pageData struct {
	Email         string
	Today         string
	PaymentTypes  []option
	Periods       []option
	TypeFilters   []option
	Criteria      services.Criteria
	RangeSelected bool
	From          string
	To            string
	Ledger        ledgerData
}

var periodLabels = []struct {
	Period core.Period
	Label  string
}{
	{core.PeriodToday, "Oggi"},
	{core.Period7Days, "Ultimi 7 giorni"},
	{core.Period30Days, "Ultimi 30 giorni"},
	{core.PeriodAll, "Tutto"},
	{core.PeriodRange, "Intervallo"},
}

func periodOptions(selected core.Period) []option {
	out := make([]option, 0, len(periodLabels))
	for _, p := range periodLabels {
		out = append(out, option{Value: string(p.Period), Label: p.Label, Selected: p.Period == selected})
	}
	return out
}

// paymentOptions lists the known types; selected may be empty.
func paymentOptions(selected core.PaymentType) []option {
	out := make([]option, 0, len(core.PaymentTypes()))
	for _, p := range core.PaymentTypes() {
		out = append(out, option{Value: string(p), Label: p.Label(), Selected: p == selected})
	}
	return out
}

func typeFilterOptions(f core.TypeFilter) []option {
	out := []option{{Value: core.AllTypes.Value(), Label: "Tutti", Selected: f.All()}}
	return append(out, paymentOptions(f.Type)...)
}

var sortLabels = []struct {
	Key   core.SortKey
	Label string
}{
	{core.SortByDate, "Data"},
	{core.SortByAmount, "Importo"},
	{core.SortByType, "Tipo Pagamento"},
}

func sortHeaders(current core.SortSpec) []sortHeader {
	out := make([]sortHeader, 0, len(sortLabels))
	for _, s := range sortLabels {
		h := sortHeader{
			Key:     string(s.Key),
			Label:   s.Label,
			Active:  current.Key == s.Key,
			NextDir: string(current.Toggle(s.Key).Dir),
		}
		if h.Active {
			h.Arrow = "▼"
			if current.Dir == core.Asc {
				h.Arrow = "▲"
			}
		}
		out = append(out, h)
	}
	return out
}

// newLedgerData turns a processed view into display strings for lang.
func newLedgerData(v services.LedgerView, lang language.Tag) ledgerData {
	d := ledgerData{
		Rows:     make([]receiptRow, 0, len(v.Visible)),
		Total:    totalCard{Label: "Totale Incassato", Amount: v.Totals.Total.FormatEuro(lang)},
		Count:    v.Totals.Count,
		Empty:    v.Empty(),
		Inverted: v.Filter.Inverted(),
		Headers:  sortHeaders(v.Criteria.Sort),
	}
	q := CriteriaQuery(v.Criteria)
	d.Query = q.Encode()
	q.Set("format", "xlsx")
	d.ExportXLSX = "/export?" + q.Encode()
	q.Set("format", "csv")
	d.ExportCSV = "/export?" + q.Encode()
	for _, r := range v.Visible {
		d.Rows = append(d.Rows, receiptRow{
			ID:      r.ID,
			Date:    r.Date.Italian(),
			Amount:  r.Amount.FormatEuro(lang),
			Label:   r.PaymentType.Label(),
			Color:   r.PaymentType.Color(),
			Unknown: !r.PaymentType.Known(),
		})
	}
	for _, p := range core.PaymentTypes() {
		d.Cards = append(d.Cards, totalCard{
			Label:  p.Label(),
			Amount: v.Totals.Get(p).FormatEuro(lang),
			Color:  p.Color(),
		})
	}
	if from, to, ok := v.Filter.Bounds(); ok {
		if from.SameDay(to) {
			d.RangeText = from.Italian()
		} else {
			d.RangeText = from.Italian() + " - " + to.Italian()
		}
	}
	return d
}

// chartSlice is the JSON shape consumed by the pie chart.
type chartSlice struct {
	Type    string  `json:"type"`
	Label   string  `json:"label"`
	Color   string  `json:"color"`
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
	Percent float64 `json:"percent"`
}

func newChartSlices(t core.Totals, lang language.Tag) []chartSlice {
	slices := core.ChartSlices(t)
	out := make([]chartSlice, 0, len(slices))
	for _, s := range slices {
		out = append(out, chartSlice{
			Type:    string(s.Type),
			Label:   s.Label,
			Color:   s.Color,
			Amount:  s.Amount.Euros(),
			Display: s.Amount.FormatEuro(lang),
			Percent: s.Percent,
		})
	}
	return out
}
