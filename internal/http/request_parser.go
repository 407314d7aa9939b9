// This file implements utilities for parsing request data: the ledger
// criteria carried in the query string and the entry form body.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"incassi/internal/core"
	"incassi/internal/services"
)

// Query parameter names shared by the filter form, the chart and the export links.
const (
	paramPeriod = "period"
	paramFrom   = "from"
	paramTo     = "to"
	paramType   = "type"
	paramSort   = "sort"
	paramDir    = "dir"
)

// ParseCriteria reads the ledger selection from query values. Unknown values
// fall back to their defaults. A range bound that is missing or malformed
// becomes today.
func ParseCriteria(q url.Values, now time.Time) services.Criteria {
	c := services.Criteria{
		Period: core.ParsePeriod(q.Get(paramPeriod)),
		Type:   core.ParseTypeFilter(q.Get(paramType)),
		Sort:   core.ParseSort(q.Get(paramSort), q.Get(paramDir)),
	}
	if c.Period == core.PeriodRange {
		today := core.DateOf(now)
		c.From = parseDateOr(q.Get(paramFrom), today)
		c.To = parseDateOr(q.Get(paramTo), today)
	}
	return c
}

func parseDateOr(s string, fallback core.Date) core.Date {
	d, err := core.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return d
}

// CriteriaQuery is the inverse of ParseCriteria, used to build links that
// keep the current selection.
func CriteriaQuery(c services.Criteria) url.Values {
	q := url.Values{}
	q.Set(paramPeriod, string(c.Period))
	q.Set(paramType, c.Type.Value())
	q.Set(paramSort, string(c.Sort.Key))
	q.Set(paramDir, string(c.Sort.Dir))
	if c.Period == core.PeriodRange {
		q.Set(paramFrom, c.From.ISO())
		q.Set(paramTo, c.To.ISO())
	}
	return q
}

// ParseNewReceipt reads the entry form. The date defaults to today and the
// payment type to cash; the amount has no default.
func ParseNewReceipt(p *RequestBodyParser, now time.Time) services.NewReceipt {
	in := services.NewReceipt{
		Date:        p.Get("date"),
		Amount:      p.Get("amount"),
		PaymentType: p.Get("payment_type"),
	}
	if in.Date == "" {
		in.Date = core.DateOf(now).ISO()
	}
	if in.PaymentType == "" {
		in.PaymentType = string(core.Cash)
	}
	return in
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// maxBodyBytes bounds what the parser reads from a request.
const maxBodyBytes = 64 << 10

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Raw returns a value without trimming or sanitizing, for passwords.
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseBodyOrFail parses the request body and returns an error response on
// failure. Returns nil on success.
func ParseBodyOrFail(p *RequestBodyParser) *HTMXResponseBuilder {
	if err := p.Parse(); err != nil {
		return BadRequestError("Formato richiesta non valido")
	}
	return nil
}
