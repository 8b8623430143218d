// Package fixtures builds the in-memory records that scenarios submit through
// page objects. Every default title and description embeds a uniqueness
// suffix so concurrent workers never collide on the shared application
// database.
package fixtures

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kuitang/lcm-e2e/internal/errs"
)

// CaseStatus is the lifecycle state of a case.
type CaseStatus string

const (
	CaseOpen    CaseStatus = "open"
	CaseClosed  CaseStatus = "closed"
	CasePending CaseStatus = "pending"
)

// BillingStatus is the payment state of an invoice.
type BillingStatus string

const (
	BillingUnpaid  BillingStatus = "unpaid"
	BillingPaid    BillingStatus = "paid"
	BillingOverdue BillingStatus = "overdue"
)

// DateLayout is the ISO date format used by due dates.
const DateLayout = "2006-01-02"

// CaseRecord is the input for the create-case form.
type CaseRecord struct {
	Client      string     `json:"client,omitempty"`
	Lawyer      string     `json:"lawyer,omitempty"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description" validate:"required"`
	Status      CaseStatus `json:"status,omitempty" validate:"omitempty,oneof=open closed pending"`
}

// BillingRecord is the input for the create-billing form. Description doubles
// as the search key because the UI returns no stable invoice ID.
type BillingRecord struct {
	CaseName    string        `json:"caseName" validate:"required"`
	Amount      string        `json:"amount" validate:"required,positive_amount"`
	Description string        `json:"description" validate:"required"`
	Status      BillingStatus `json:"status,omitempty" validate:"omitempty,oneof=unpaid paid overdue"`
	DueDate     string        `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ClientRecord is the input for the add-client form. Client and Lawyer are
// option labels; empty means the first available option.
type ClientRecord struct {
	Client  string `json:"client,omitempty"`
	Lawyer  string `json:"lawyer,omitempty"`
	Phone   string `json:"phone" validate:"required,phone_digits"`
	Address string `json:"address" validate:"required"`
}

// EffectiveStatus returns the status the application applies when none is chosen.
func (r BillingRecord) EffectiveStatus() BillingStatus {
	if r.Status == "" {
		return BillingUnpaid
	}
	return r.Status
}

// AmountValue parses Amount as a number.
func (r BillingRecord) AmountValue() (float64, error) {
	return ParseAmount(r.Amount)
}

// ParseAmount parses a displayed or submitted amount, tolerating thousands
// separators and a leading currency symbol.
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimLeft(cleaned, "$₱€£ ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return v, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("positive_amount", func(fl validator.FieldLevel) bool {
		amount, err := ParseAmount(fl.Field().String())
		return err == nil && amount > 0 && !math.IsInf(amount, 0)
	}); err != nil {
		panic(fmt.Sprintf("register positive_amount validation: %v", err))
	}
	if err := v.RegisterValidation("phone_digits", func(fl validator.FieldLevel) bool {
		n := len(fl.Field().String())
		return n >= 7 && n <= 15 && strings.Trim(fl.Field().String(), "0123456789") == ""
	}); err != nil {
		panic(fmt.Sprintf("register phone_digits validation: %v", err))
	}
	return v
}

// check validates a record and reports the first failing field in declaration order.
func check(record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errs.Wrap(errs.InvalidArgument, "record validation failed", err)
	}
	first := fieldErrs[0]
	switch first.Tag() {
	case "required":
		return errs.New(errs.InvalidArgument, first.Field()+" is required")
	case "positive_amount":
		return errs.New(errs.InvalidArgument, fmt.Sprintf("%s must be a positive number, got %q", first.Field(), first.Value()))
	case "phone_digits":
		return errs.New(errs.InvalidArgument, fmt.Sprintf("%s must be 7 to 15 digits, got %q", first.Field(), first.Value()))
	case "oneof":
		return errs.New(errs.InvalidArgument, fmt.Sprintf("%s must be one of [%s], got %q", first.Field(), first.Param(), first.Value()))
	case "datetime":
		return errs.New(errs.InvalidArgument, fmt.Sprintf("%s must be a YYYY-MM-DD date, got %q", first.Field(), first.Value()))
	default:
		return errs.New(errs.InvalidArgument, fmt.Sprintf("%s failed %s validation", first.Field(), first.Tag()))
	}
}

// nowFunc is swapped by tests that need a fixed clock.
var nowFunc = time.Now

// UniqueSuffix returns "<unix-millis>-<token>" where token is the first n hex
// characters of a random UUID. Two calls in the same millisecond still differ
// through the random token.
func UniqueSuffix(n int) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n <= 0 || n > len(token) {
		n = len(token)
	}
	return fmt.Sprintf("%d-%s", nowFunc().UnixMilli(), token[:n])
}
