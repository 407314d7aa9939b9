// Package export renders the visible ledger rows as a downloadable file.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"

	"incassi/internal/core"
	"incassi/internal/log"
)

// ErrNothingToExport is returned for an empty row set. No file is produced.
var ErrNothingToExport = errors.New("nothing to export")

const sheetName = "Incassi"

var headers = []string{"Data", "Importo", "Tipo Pagamento"}

// Format is the artifact type.
type Format string

const (
	XLSX Format = "xlsx"
	CSV  Format = "csv"
)

// ParseFormat defaults to XLSX.
func ParseFormat(s string) Format {
	if Format(s) == CSV {
		return CSV
	}
	return XLSX
}

func (f Format) ContentType() string {
	if f == CSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Exporter formats receipts for one locale.
type Exporter struct {
	lang   language.Tag
	logger *log.Logger
}

func NewExporter(lang language.Tag, logger *log.Logger) *Exporter {
	return &Exporter{lang: lang, logger: logger.WithComponent(log.ComponentExport)}
}

// Row is the three export columns of r: dd/mm/yyyy, two-decimal amount, label.
func (e *Exporter) Row(r core.Receipt) []string {
	return []string{r.Date.Italian(), r.Amount.Format(e.lang), r.PaymentType.Label()}
}

// Render produces the artifact for rows in the given order.
func (e *Exporter) Render(f Format, rows []core.Receipt) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNothingToExport
	}
	start := time.Now()

	var (
		b   []byte
		err error
	)
	switch f {
	case CSV:
		b, err = e.csv(rows)
	default:
		b, err = e.xlsx(rows)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("Export rendered",
		"format", string(f),
		log.FieldRows, len(rows),
		log.FieldDuration, time.Since(start).Milliseconds())
	return b, nil
}

func (e *Exporter) xlsx(rows []core.Receipt) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheetName, cell, v)
	}

	for i, h := range headers {
		if err := write(i+1, 1, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	for i, r := range rows {
		for j, v := range e.Row(r) {
			if err := write(j+1, i+2, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12) // date
	_ = f.SetColWidth(sheetName, "B", "B", 12) // amount
	_ = f.SetColWidth(sheetName, "C", "C", 18) // type

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// csv uses ';' so the comma decimal separator needs no quoting.
func (e *Exporter) csv(rows []core.Receipt) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write(e.Row(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename names the download after the period it covers.
func Filename(df core.DateFilter, f Format) string {
	from, to, ok := df.Bounds()
	if !ok {
		return fmt.Sprintf("incassi_completo.%s", f)
	}
	if from.SameDay(to) {
		return fmt.Sprintf("incassi_%s.%s", from.ISO(), f)
	}
	return fmt.Sprintf("incassi_%s_%s.%s", from.ISO(), to.ISO(), f)
}
