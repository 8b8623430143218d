package fixtures

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

const (
	caseTokenLen    = 6
	billingTokenLen = 8
	clientTokenLen  = 6

	// DefaultMinAmount and DefaultMaxAmount bound the random invoice amount (inclusive).
	DefaultMinAmount = 1000
	DefaultMaxAmount = 9999
)

// CaseBuilder accumulates a CaseRecord. Setters return the same builder so
// calls chain; Build seals the record.
type CaseBuilder struct {
	data CaseRecord
}

// NewCaseBuilder returns a builder seeded with a unique title and description.
func NewCaseBuilder() *CaseBuilder {
	suffix := UniqueSuffix(caseTokenLen)
	return &CaseBuilder{data: CaseRecord{
		Title:       "Case " + suffix,
		Description: "Case description " + suffix,
		Status:      CaseOpen,
	}}
}

func (b *CaseBuilder) WithClient(client string) *CaseBuilder {
	b.data.Client = client
	return b
}

func (b *CaseBuilder) WithLawyer(lawyer string) *CaseBuilder {
	b.data.Lawyer = lawyer
	return b
}

func (b *CaseBuilder) WithTitle(title string) *CaseBuilder {
	b.data.Title = title
	return b
}

func (b *CaseBuilder) WithDescription(description string) *CaseBuilder {
	b.data.Description = description
	return b
}

func (b *CaseBuilder) WithStatus(status CaseStatus) *CaseBuilder {
	b.data.Status = status
	return b
}

// Build validates required fields and returns the record by value.
func (b *CaseBuilder) Build() (CaseRecord, error) {
	if err := check(b.data); err != nil {
		return CaseRecord{}, err
	}
	return b.data, nil
}

// MustBuild is Build for records whose required fields are known to be set.
func (b *CaseBuilder) MustBuild() CaseRecord {
	record, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("fixtures: %v", err))
	}
	return record
}

// CreateCase builds a case from defaults with the non-zero fields of overrides applied.
func CreateCase(overrides CaseRecord) (CaseRecord, error) {
	b := NewCaseBuilder()
	if overrides.Client != "" {
		b.data.Client = overrides.Client
	}
	if overrides.Lawyer != "" {
		b.data.Lawyer = overrides.Lawyer
	}
	if overrides.Title != "" {
		b.data.Title = overrides.Title
	}
	if overrides.Description != "" {
		b.data.Description = overrides.Description
	}
	if overrides.Status != "" {
		b.data.Status = overrides.Status
	}
	return b.Build()
}

// BillingBuilder accumulates a BillingRecord. Defaults cover amount,
// description, due date, and status; the case name is contextual and must
// always be supplied.
type BillingBuilder struct {
	data BillingRecord
}

// NewBillingBuilder returns a builder with a random amount, a unique
// description, tomorrow's due date and unpaid status.
func NewBillingBuilder() *BillingBuilder {
	suffix := UniqueSuffix(billingTokenLen)
	return &BillingBuilder{data: BillingRecord{
		Amount:      RandomAmount(DefaultMinAmount, DefaultMaxAmount),
		Description: "Legal consultation services " + suffix,
		DueDate:     Tomorrow(),
		Status:      BillingUnpaid,
	}}
}

func (b *BillingBuilder) WithCaseName(caseName string) *BillingBuilder {
	b.data.CaseName = caseName
	return b
}

func (b *BillingBuilder) WithAmount(amount string) *BillingBuilder {
	b.data.Amount = amount
	return b
}

// WithRandomAmount draws a uniform integer amount from [lo, hi].
func (b *BillingBuilder) WithRandomAmount(lo, hi int) *BillingBuilder {
	b.data.Amount = RandomAmount(lo, hi)
	return b
}

func (b *BillingBuilder) WithStatus(status BillingStatus) *BillingBuilder {
	b.data.Status = status
	return b
}

func (b *BillingBuilder) WithDescription(description string) *BillingBuilder {
	b.data.Description = description
	return b
}

func (b *BillingBuilder) WithDueDate(dueDate string) *BillingBuilder {
	b.data.DueDate = dueDate
	return b
}

// Build validates required fields (caseName, amount, description, in that
// order) and returns the record by value.
func (b *BillingBuilder) Build() (BillingRecord, error) {
	if err := check(b.data); err != nil {
		return BillingRecord{}, err
	}
	return b.data, nil
}

func (b *BillingBuilder) MustBuild() BillingRecord {
	record, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("fixtures: %v", err))
	}
	return record
}

// CreateBilling builds an invoice from defaults with the non-zero fields of overrides applied.
func CreateBilling(overrides BillingRecord) (BillingRecord, error) {
	b := NewBillingBuilder()
	if overrides.CaseName != "" {
		b.data.CaseName = overrides.CaseName
	}
	if overrides.Amount != "" {
		b.data.Amount = overrides.Amount
	}
	if overrides.Description != "" {
		b.data.Description = overrides.Description
	}
	if overrides.Status != "" {
		b.data.Status = overrides.Status
	}
	if overrides.DueDate != "" {
		b.data.DueDate = overrides.DueDate
	}
	return b.Build()
}

// ClientBuilder accumulates a ClientRecord with a unique address and a
// random local phone number.
type ClientBuilder struct {
	data ClientRecord
}

func NewClientBuilder() *ClientBuilder {
	return &ClientBuilder{data: ClientRecord{
		Phone:   RandomPhone(),
		Address: "Unit " + UniqueSuffix(clientTokenLen) + ", Calipso Street",
	}}
}

func (b *ClientBuilder) WithClient(client string) *ClientBuilder {
	b.data.Client = client
	return b
}

func (b *ClientBuilder) WithLawyer(lawyer string) *ClientBuilder {
	b.data.Lawyer = lawyer
	return b
}

func (b *ClientBuilder) WithPhone(phone string) *ClientBuilder {
	b.data.Phone = phone
	return b
}

func (b *ClientBuilder) WithAddress(address string) *ClientBuilder {
	b.data.Address = address
	return b
}

func (b *ClientBuilder) Build() (ClientRecord, error) {
	if err := check(b.data); err != nil {
		return ClientRecord{}, err
	}
	return b.data, nil
}

func (b *ClientBuilder) MustBuild() ClientRecord {
	record, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("fixtures: %v", err))
	}
	return record
}

// RandomPhone returns an 11-digit mobile number starting with 09.
func RandomPhone() string {
	return fmt.Sprintf("09%09d", rand.IntN(1_000_000_000))
}

// RandomAmount returns a uniformly distributed integer in [lo, hi] as a decimal string.
func RandomAmount(lo, hi int) string {
	if lo > hi {
		lo, hi = hi, lo
	}
	return strconv.Itoa(lo + rand.IntN(hi-lo+1))
}

// Tomorrow returns the date 24 hours from now in YYYY-MM-DD form (UTC).
func Tomorrow() string {
	return nowFunc().Add(24 * time.Hour).UTC().Format(DateLayout)
}

// User is a registration identity.
type User struct {
	Name     string
	Email    string
	Password string
}

// UniqueUser returns a registration identity that no other worker will generate.
func UniqueUser(prefix string) User {
	if prefix == "" {
		prefix = "TestUser"
	}
	suffix := UniqueSuffix(billingTokenLen)
	return User{
		Name:     prefix + "-" + suffix,
		Email:    "test+" + suffix + "@example.com",
		Password: "Password123!",
	}
}
