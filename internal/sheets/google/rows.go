package google

import (
	"fmt"
	"strings"

	"incassi/internal/core"
)

// Columns written to the mirror sheet, in order.
var header = []any{"ID", "Data", "Importo", "Tipo Pagamento", "Utente"}

const (
	colID    = 0
	lastCol  = "E"
	firstRow = 1
)

func rowValues(r core.Receipt) []any {
	return []any{r.ID, r.Date.Italian(), r.Amount.Euros(), r.PaymentType.Label(), r.OwnerID}
}

// findRow returns the zero-based row index holding receiptID in column A,
// or -1. The header row never matches.
func findRow(values [][]any, receiptID string) int {
	id := strings.TrimSpace(receiptID)
	if id == "" {
		return -1
	}
	for i, row := range values {
		if i < firstRow || len(row) <= colID {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[colID])) == id {
			return i
		}
	}
	return -1
}

func hasHeader(values [][]any) bool {
	if len(values) == 0 || len(values[0]) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(fmt.Sprint(values[0][colID])), header[colID].(string))
}
