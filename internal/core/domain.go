package core

import (
	"errors"
	"strings"
	"time"
)

// Payment types. The string value is what gets stored.
const (
	Cash   PaymentType = "cash"
	Card   PaymentType = "card"
	App    PaymentType = "app"
	Globix PaymentType = "globix"
)

type (
	PaymentType string

	// Date is a calendar date. The time-of-day part is ignored in comparisons.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Receipt struct {
		ID          string
		OwnerID     string
		Date        Date
		Amount      Money
		PaymentType PaymentType
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidPaymentType = errors.New("invalid payment type")
	ErrEmptyOwner         = errors.New("empty owner")
)

// paymentTypes is the single place where categories are declared.
// Order matters: it drives totals cards, chart slices and select options.
var paymentTypes = []struct {
	Type  PaymentType
	Label string
	Color string
}{
	{Cash, "Contanti", "#16a34a"},
	{Card, "POS", "#2563eb"},
	{App, "App", "#d97706"},
	{Globix, "Globix", "#9333ea"},
}

// PaymentTypes returns the known categories in display order.
func PaymentTypes() []PaymentType {
	out := make([]PaymentType, len(paymentTypes))
	for i, p := range paymentTypes {
		out[i] = p.Type
	}
	return out
}

// ParsePaymentType matches case-insensitively on value or label, so the
// labels older rows were saved with ("contanti", "POS") resolve too.
func ParsePaymentType(s string) (PaymentType, error) {
	s = strings.TrimSpace(s)
	for _, p := range paymentTypes {
		if strings.EqualFold(s, string(p.Type)) || strings.EqualFold(s, p.Label) {
			return p.Type, nil
		}
	}
	return "", ErrInvalidPaymentType
}

// Known reports whether p belongs to the closed enumeration.
func (p PaymentType) Known() bool {
	for _, k := range paymentTypes {
		if k.Type == p {
			return true
		}
	}
	return false
}

// Label returns the display label, or the raw value for unknown types.
func (p PaymentType) Label() string {
	for _, k := range paymentTypes {
		if k.Type == p {
			return k.Label
		}
	}
	return string(p)
}

func (p PaymentType) Color() string {
	for _, k := range paymentTypes {
		if k.Type == p {
			return k.Color
		}
	}
	return "#6b7280"
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf strips the time-of-day from t, keeping its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// Day returns the date with any time-of-day stripped.
func (d Date) Day() Date {
	return DateOf(d.Time)
}

// AddDays shifts the calendar date by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Day().Time.AddDate(0, 0, n))
}

// Before compares calendar days only.
func (d Date) Before(o Date) bool {
	return d.Day().Time.Before(o.Day().Time)
}

func (d Date) After(o Date) bool {
	return d.Day().Time.After(o.Day().Time)
}

func (d Date) SameDay(o Date) bool {
	return d.Day().Time.Equal(o.Day().Time)
}

// ISO renders YYYY-MM-DD, the format used by the store and HTML date inputs.
func (d Date) ISO() string {
	return d.Time.Format("2006-01-02")
}

// Italian renders dd/mm/yyyy.
func (d Date) Italian() string {
	return d.Time.Format("02/01/2006")
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks a receipt about to be stored. The ID is assigned by the store.
func (r Receipt) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if !r.PaymentType.Known() {
		return ErrInvalidPaymentType
	}
	return nil
}
