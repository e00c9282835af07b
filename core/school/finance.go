package school

import (
	"net/url"
	"time"
)

// Payment methods
const (
	PaymentCash         = "cash"
	PaymentBankTransfer = "bank_transfer"
	PaymentCheque       = "cheque"
	PaymentCard         = "card"
)

// Ledger transaction types
const (
	TransactionFee        = "fee"
	TransactionPayment    = "payment"
	TransactionDiscount   = "discount"
	TransactionRefund     = "refund"
	TransactionAdjustment = "adjustment"
)

type Expense struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Amount        float64 `json:"amount"`
	ExpenseDate   string  `json:"expense_date"`
	PaymentMethod string  `json:"payment_method"`
	Description   string  `json:"description"`
	SchoolID      int     `json:"school_id"`
}

func (e Expense) EntityID() int { return e.ID }

type ExpenseInput struct {
	Title         string  `json:"title" validate:"required,notblank,max=255"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	ExpenseDate   string  `json:"expense_date" validate:"required,date"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=cash bank_transfer cheque card"`
	Description   string  `json:"description" validate:"omitempty,max=1000"`
	SchoolID      int     `json:"school_id" validate:"required,gt=0"`
}

type ExpenseFilter struct {
	Paging
	SchoolID      int
	PaymentMethod string
	DateFrom      string
	DateTo        string
}

func (f ExpenseFilter) Values() url.Values {
	v := f.Paging.values()
	setInt(v, "school_id", f.SchoolID)
	setStr(v, "payment_method", f.PaymentMethod)
	setStr(v, "date_from", f.DateFrom)
	setStr(v, "date_to", f.DateTo)
	return v
}

type Revenue struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Amount        float64 `json:"amount"`
	RevenueDate   string  `json:"revenue_date"`
	PaymentMethod string  `json:"payment_method"`
	Description   string  `json:"description"`
	SchoolID      int     `json:"school_id"`
}

func (r Revenue) EntityID() int { return r.ID }

type RevenueInput struct {
	Title         string  `json:"title" validate:"required,notblank,max=255"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	RevenueDate   string  `json:"revenue_date" validate:"required,date"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=cash bank_transfer cheque card"`
	Description   string  `json:"description" validate:"omitempty,max=1000"`
	SchoolID      int     `json:"school_id" validate:"required,gt=0"`
}

type RevenueFilter struct {
	Paging
	SchoolID      int
	PaymentMethod string
	DateFrom      string
	DateTo        string
}

func (f RevenueFilter) Values() url.Values {
	v := f.Paging.values()
	setInt(v, "school_id", f.SchoolID)
	setStr(v, "payment_method", f.PaymentMethod)
	setStr(v, "date_from", f.DateFrom)
	setStr(v, "date_to", f.DateTo)
	return v
}

// LedgerEntry is an append-only financial transaction of a student enrollment.
type LedgerEntry struct {
	ID              int       `json:"id"`
	EnrollmentID    int       `json:"enrollment_id"`
	TransactionType string    `json:"transaction_type"`
	Amount          float64   `json:"amount"`
	BalanceAfter    float64   `json:"balance_after"`
	Description     string    `json:"description"`
	TransactionDate string    `json:"transaction_date"`
	PaymentMethod   string    `json:"payment_method"`
	ReferenceNumber string    `json:"reference_number"`
	CreatedBy       *Ref      `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (l LedgerEntry) EntityID() int { return l.ID }

type LedgerEntryInput struct {
	EnrollmentID    int     `json:"enrollment_id" validate:"required,gt=0"`
	TransactionType string  `json:"transaction_type" validate:"required,oneof=fee payment discount refund adjustment"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	Description     string  `json:"description" validate:"omitempty,max=1000"`
	TransactionDate string  `json:"transaction_date" validate:"required,date"`
	PaymentMethod   string  `json:"payment_method" validate:"required_if=TransactionType payment,omitempty,oneof=cash bank_transfer cheque card"`
	ReferenceNumber string  `json:"reference_number" validate:"omitempty,max=100"`
}

type LedgerFilter struct {
	Paging
	EnrollmentID    int
	TransactionType string
	PaymentMethod   string
	DateFrom        string
	DateTo          string
}

func (f LedgerFilter) Values() url.Values {
	v := f.Paging.values()
	setInt(v, "enrollment_id", f.EnrollmentID)
	setStr(v, "transaction_type", f.TransactionType)
	setStr(v, "payment_method", f.PaymentMethod)
	setStr(v, "date_from", f.DateFrom)
	setStr(v, "date_to", f.DateTo)
	return v
}

// LedgerDeletion is the audit trail record kept by the backend for every deleted ledger entry.
type LedgerDeletion struct {
	ID              int       `json:"id"`
	LedgerEntryID   int       `json:"ledger_entry_id"`
	EnrollmentID    int       `json:"enrollment_id"`
	TransactionType string    `json:"transaction_type"`
	Amount          float64   `json:"amount"`
	DeletionReason  string    `json:"deletion_reason"`
	DeletedBy       *Ref      `json:"deleted_by,omitempty"`
	DeletedAt       time.Time `json:"deleted_at"`
}

func (d LedgerDeletion) EntityID() int { return d.ID }

type LedgerDeletionRequest struct {
	Reason string `json:"deletion_reason" validate:"required,notblank,max=500"`
}

// PaymentMethodSummary aggregates ledger payments by payment method.
type PaymentMethodSummary struct {
	PaymentMethod string  `json:"payment_method"`
	TotalAmount   float64 `json:"total_amount"`
	Count         int     `json:"count"`
}
