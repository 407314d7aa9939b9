package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"incassi/internal/core"
	"incassi/internal/log"

	"google.golang.org/api/googleapi"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestNew_MissingSettings(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"no spreadsheet", Options{SheetName: "Incassi", CredentialsJSON: "{}"}, "missing spreadsheet id"},
		{"no sheet", Options{SpreadsheetID: "id", SheetName: "  ", CredentialsJSON: "{}"}, "missing sheet name"},
		{"no credentials", Options{SpreadsheetID: "id", SheetName: "Incassi"}, "missing service account credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.opts, quietLogger())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := loadCredentials(`{"inline":true}`, path)
	if err != nil || string(got) != `{"inline":true}` {
		t.Fatalf("inline should win: got %q err %v", got, err)
	}

	got, err = loadCredentials("", path)
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("file: got %q err %v", got, err)
	}

	if _, err := loadCredentials("", filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestClient_AppendRejectsBadReceipts(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Incassi", logger: quietLogger()}

	_, err := c.Append(context.Background(), core.Receipt{OwnerID: "u", Date: core.NewDate(2024, 1, 1), PaymentType: core.Cash})
	if err == nil {
		t.Fatal("expected error for a receipt without id")
	}

	_, err = c.Append(context.Background(), core.Receipt{ID: "r1", OwnerID: "u", Amount: core.Money{Cents: 100}, PaymentType: core.Cash})
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestRowValues(t *testing.T) {
	r := core.Receipt{
		ID:          "r1",
		OwnerID:     "u1",
		Date:        core.NewDate(2024, 3, 7),
		Amount:      core.Money{Cents: 1550},
		PaymentType: core.Card,
	}
	got := rowValues(r)
	want := []any{"r1", "07/03/2024", 15.5, "POS", "u1"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("col %d = %v, want %v", i, got[i], want[i])
		}
	}
	if len(header) != len(want) {
		t.Errorf("header has %d columns, rows have %d", len(header), len(want))
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"ID"},
		{"a"},
		{},
		{" b "},
	}
	if got := findRow(values, "b"); got != 3 {
		t.Errorf("findRow(b) = %d, want 3", got)
	}
	if got := findRow(values, "a"); got != 1 {
		t.Errorf("findRow(a) = %d, want 1", got)
	}
	if got := findRow(values, "ID"); got != -1 {
		t.Errorf("header must not match, got %d", got)
	}
	if got := findRow(values, ""); got != -1 {
		t.Errorf("empty id must not match, got %d", got)
	}
	if got := findRow(values, "zzz"); got != -1 {
		t.Errorf("findRow(zzz) = %d, want -1", got)
	}
}

func TestHasHeader(t *testing.T) {
	if hasHeader(nil) {
		t.Error("empty sheet has no header")
	}
	if !hasHeader([][]any{{"id", "Data"}}) {
		t.Error("header match is case-insensitive")
	}
	if hasHeader([][]any{{"r1", "01/01/2024"}}) {
		t.Error("data row is not a header")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"server error", &googleapi.Error{Code: http.StatusBadGateway}, true},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, false},
		{"bad request wrapped", fmt.Errorf("append: %w", &googleapi.Error{Code: http.StatusBadRequest}), false},
		{"network", errors.New("connection reset"), true},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
