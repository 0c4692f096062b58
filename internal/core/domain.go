package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	Frequency string

	TransactionType string

	Date struct {
		time.Time
	}

	// Workspace is the tenancy boundary scoping every other entity.
	// Currency is the unit generated transactions are converted into.
	Workspace struct {
		ID       string
		Name     string
		Currency string
	}

	BudgetCategory struct {
		ID          string
		WorkspaceID string
		Name        string
		Icon        string
		Color       string
		Default     bool
	}

	// MonthlyBudget is the planned amount for one (workspace, category,
	// year, month) cell. Read-only input to aggregation.
	MonthlyBudget struct {
		WorkspaceID string
		CategoryID  string
		Year        int
		Month       int // 1-12
		Planned     decimal.Decimal
		Currency    string
	}

	// RecurringDefinition is the template transactions are generated from.
	// NextDueDate and LastProcessedDate form a cursor that only the
	// materialization path advances; Version guards that advance against
	// concurrent reconciliation runs.
	RecurringDefinition struct {
		ID                string
		WorkspaceID       string
		CategoryID        string
		Amount            decimal.Decimal
		Currency          string
		Frequency         Frequency
		StartDate         Date
		EndDate           Date // zero when open-ended
		NextDueDate       Date
		LastProcessedDate Date // zero when never processed
		Version           int64
		Active            bool
		Note              string
	}

	Transaction struct {
		ID                    string
		WorkspaceID           string
		Type                  TransactionType
		CategoryID            string // empty for uncategorized rows
		IncomeSourceID        string
		Amount                decimal.Decimal
		Currency              string
		ConvertedAmount       decimal.Decimal // locked at creation, never recomputed
		ExchangeRate          decimal.Decimal // zero when no conversion was applied
		Description           string
		Date                  Date
		RecurringDefinitionID string // empty for manual entries
		Tags                  []string
	}
)

var (
	ErrRateUnavailable    = errors.New("exchange rate unavailable")
	ErrAlreadyProcessed   = errors.New("occurrence already processed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotFound           = errors.New("not found")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrEmptyWorkspace   = errors.New("empty workspace id")
)

// NewDate creates a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty reports whether the date is unset (used for optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// HasEndDate reports whether the definition is bounded.
func (rd RecurringDefinition) HasEndDate() bool {
	return !rd.EndDate.IsEmpty()
}

func (rd RecurringDefinition) Validate() error {
	if strings.TrimSpace(rd.WorkspaceID) == "" {
		return ErrEmptyWorkspace
	}
	if !rd.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if rd.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(rd.Currency) == "" {
		return ErrInvalidCurrency
	}
	if rd.StartDate.IsEmpty() {
		return errors.New("start date cannot be zero")
	}
	if rd.HasEndDate() && rd.EndDate.Before(rd.StartDate.Time) {
		return errors.New("end date must not precede start date")
	}
	if !rd.NextDueDate.IsEmpty() && rd.NextDueDate.Before(rd.StartDate.Time) {
		return errors.New("next due date must not precede start date")
	}
	return nil
}

// HasConversion reports whether a point-in-time conversion was recorded
// on the transaction at creation.
func (t Transaction) HasConversion() bool {
	return !t.ExchangeRate.IsZero()
}

// EffectiveAmount returns the amount to aggregate in the given currency:
// the locked converted amount when the row's own currency differs,
// otherwise the raw amount.
func (t Transaction) EffectiveAmount(inCurrency string) decimal.Decimal {
	if t.HasConversion() && !strings.EqualFold(t.Currency, inCurrency) {
		return t.ConvertedAmount
	}
	return t.Amount
}

// Generated reports whether the transaction originates from a recurring
// definition rather than manual entry.
func (t Transaction) Generated() bool {
	return t.RecurringDefinitionID != ""
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.WorkspaceID) == "" {
		return ErrEmptyWorkspace
	}
	if t.Type != Income && t.Type != Expense {
		return errors.New("invalid transaction type")
	}
	if t.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Currency) == "" {
		return ErrInvalidCurrency
	}
	if t.Date.IsEmpty() {
		return errors.New("date cannot be zero")
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}
