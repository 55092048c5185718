package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinInstallments = 2
	MaxInstallments = 60

	// MaxDescriptionLen caps what a user types, in characters.
	MaxDescriptionLen = 200
	// MaxRecordDescriptionLen caps a stored description, which may carry an
	// installment suffix or a transfer prefix on top of the user's text.
	MaxRecordDescriptionLen = MaxDescriptionLen + 80

	maxNameLen = 60
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Plan describes how an expense is paid. It is either SinglePayment or
	// Installment; a nil Plan is treated as SinglePayment.
	Plan interface {
		isPlan()
	}

	SinglePayment struct{}

	Installment struct {
		Total          int   // number of installments the purchase was split into
		Current        int   // 1-based position of this record
		OriginalAmount Money // amount entered by the user before splitting
	}

	Expense struct {
		ID          string
		UserID      string
		Amount      Money
		Category    string // category name, not id
		Description string
		Date        Date
		AccountID   string
		Plan        Plan
	}

	Income struct {
		ID          string
		UserID      string
		Amount      Money
		Description string
		Date        Date
		AccountID   string
	}

	Category struct {
		ID    string
		Name  string
		Color string
		Icon  string
	}

	// Account is what the UI calls a "project".
	Account struct {
		ID      string
		Name    string
		Color   string
		Default bool
	}
)

func (SinglePayment) isPlan() {}
func (Installment) isPlan()   {}

var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = errors.New("description too long")
	ErrEmptyCategory       = errors.New("empty category")
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 60 characters)")
	ErrInvalidInstallments = errors.New("installment count must be between 2 and 60")
	ErrDuplicateName       = errors.New("duplicate name")
	ErrHasDependents       = errors.New("has dependent expenses")
	ErrNotFound            = errors.New("not found")
	ErrNoUser              = errors.New("no user signed in")
	ErrSameAccount         = errors.New("source and destination accounts must differ")
	ErrDefaultAccount      = errors.New("the default account cannot be deleted")
)

// DependentsError reports that a category or account is still referenced by
// expenses. It matches ErrHasDependents with errors.Is.
type DependentsError struct {
	Kind  string // "category" or "account"
	Ref   string // category name or account id
	Count int
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("%s %q is referenced by %d expense(s)", e.Kind, e.Ref, e.Count)
}

func (e *DependentsError) Unwrap() error { return ErrHasDependents }

// InstallmentInfo returns the installment plan of the expense, if any.
func (e Expense) InstallmentInfo() (Installment, bool) {
	in, ok := e.Plan.(Installment)
	return in, ok
}

// IsInstallment reports whether the expense is one record of a split purchase.
func (e Expense) IsInstallment() bool {
	_, ok := e.InstallmentInfo()
	return ok
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (in Installment) Validate() error {
	if in.Total < MinInstallments || in.Total > MaxInstallments {
		return ErrInvalidInstallments
	}
	if in.Current < 1 || in.Current > in.Total {
		return fmt.Errorf("installment %d out of range 1..%d", in.Current, in.Total)
	}
	return in.OriginalAmount.Validate()
}

// ValidateDescription checks a description as entered by the user: not
// blank and at most MaxDescriptionLen characters.
func ValidateDescription(s string) error {
	return checkDescription(s, MaxDescriptionLen)
}

func checkDescription(s string, limit int) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(s) > limit {
		return ErrDescriptionTooLong
	}
	return nil
}

func validateName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(s) > maxNameLen {
		return ErrNameTooLong
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := checkDescription(e.Description, MaxRecordDescriptionLen); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if in, ok := e.InstallmentInfo(); ok {
		if err := in.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if err := checkDescription(i.Description, MaxRecordDescriptionLen); err != nil {
		return err
	}
	return i.Amount.Validate()
}

func (c Category) Validate() error {
	return validateName(c.Name)
}

func (a Account) Validate() error {
	return validateName(a.Name)
}
