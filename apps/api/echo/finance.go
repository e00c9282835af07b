package echoapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core/school"
)

func (s *server) registerFinanceRoutes(g *echo.Group) {
	expenses := &resource[school.Expense, school.ExpenseInput]{
		table:        s.db.Expenses,
		searchFields: []string{"title", "description"},
		prepare: func(_ echo.Context, _ school.ExpenseInput, rec *school.Expense) error {
			return s.checkSchool(rec.SchoolID)
		},
	}
	expenses.register(g, "/expenses")

	revenues := &resource[school.Revenue, school.RevenueInput]{
		table:        s.db.Revenues,
		searchFields: []string{"title", "description"},
		prepare: func(_ echo.Context, _ school.RevenueInput, rec *school.Revenue) error {
			return s.checkSchool(rec.SchoolID)
		},
	}
	revenues.register(g, "/revenues")

	g.GET("/student-ledgers", s.listLedger)
	g.POST("/student-ledgers", s.createLedgerEntry)
	g.GET("/student-ledgers/by-payment-method", s.ledgerByPaymentMethod)
	g.DELETE("/student-ledgers/:id", s.deleteLedgerEntry)
	g.GET("/student-ledger-deletions", s.listLedgerDeletions)
}

func (s *server) checkSchool(id int) error {
	if _, err := s.db.Schools.Get(id); err != nil {
		return fieldError("school_id", msgInvalidRef)
	}
	return nil
}

// balanceDelta is the effect of an entry on the amount owed by the student.
func balanceDelta(e school.LedgerEntry) float64 {
	switch e.TransactionType {
	case school.TransactionPayment, school.TransactionDiscount:
		return -e.Amount
	default:
		return e.Amount
	}
}

// ledgerOf returns the entries of an enrollment, oldest first.
func (s *server) ledgerOf(enrollmentID int) []school.LedgerEntry {
	return s.db.Ledgers.Filter(func(l school.LedgerEntry) bool { return l.EnrollmentID == enrollmentID })
}

// rebalance recomputes the running balance of every entry of an enrollment.
func (s *server) rebalance(enrollmentID int) {
	var balance float64
	for _, e := range s.ledgerOf(enrollmentID) {
		balance += balanceDelta(e)
		if e.BalanceAfter != balance {
			e.BalanceAfter = balance
			_ = s.db.Ledgers.Update(e)
		}
	}
}

func (s *server) ledgerEntries(ctx echo.Context) []school.LedgerEntry {
	from, to := ctx.QueryParam("date_from"), ctx.QueryParam("date_to")
	return s.db.Ledgers.Filter(func(l school.LedgerEntry) bool {
		return (from == "" || l.TransactionDate >= from) && (to == "" || l.TransactionDate <= to)
	})
}

func (s *server) listLedger(ctx echo.Context) error {
	return respondList(ctx, s.ledgerEntries(ctx), false, "description", "reference_number")
}

func (s *server) createLedgerEntry(ctx echo.Context) error {
	var in school.LedgerEntryInput
	if err := bindAndValidate(ctx, &in); err != nil {
		return err
	}
	if _, err := s.db.Enrollments.Get(in.EnrollmentID); err != nil {
		return fieldError("enrollment_id", msgInvalidRef)
	}

	var rec school.LedgerEntry
	if err := copyJSON(in, &rec); err != nil {
		return err
	}
	if entries := s.ledgerOf(in.EnrollmentID); len(entries) > 0 {
		rec.BalanceAfter = entries[len(entries)-1].BalanceAfter
	}
	rec.BalanceAfter += balanceDelta(rec)
	rec.CreatedBy = changedBy(ctx)
	rec.CreatedAt = time.Now().UTC()
	return created(ctx, s.db.Ledgers.Insert(rec))
}

// deleteLedgerEntry removes an entry and keeps the reason in the deletion audit trail.
func (s *server) deleteLedgerEntry(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	rec, err := s.db.Ledgers.Get(id)
	if err != nil {
		return err
	}
	var in school.LedgerDeletionRequest
	if err = bindAndValidate(ctx, &in); err != nil {
		return err
	}
	if err = s.db.Ledgers.Delete(id); err != nil {
		return err
	}
	s.db.LedgerDeletions.Insert(school.LedgerDeletion{
		LedgerEntryID:   rec.ID,
		EnrollmentID:    rec.EnrollmentID,
		TransactionType: rec.TransactionType,
		Amount:          rec.Amount,
		DeletionReason:  in.Reason,
		DeletedBy:       changedBy(ctx),
		DeletedAt:       time.Now().UTC(),
	})
	s.rebalance(rec.EnrollmentID)
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) ledgerByPaymentMethod(ctx echo.Context) error {
	enrollmentID := queryInt(ctx, "enrollment_id")
	byMethod := map[string]*school.PaymentMethodSummary{}
	for _, l := range s.ledgerEntries(ctx) {
		if l.TransactionType != school.TransactionPayment || (enrollmentID != 0 && l.EnrollmentID != enrollmentID) {
			continue
		}
		sum, found := byMethod[l.PaymentMethod]
		if !found {
			sum = &school.PaymentMethodSummary{PaymentMethod: l.PaymentMethod}
			byMethod[l.PaymentMethod] = sum
		}
		sum.TotalAmount += l.Amount
		sum.Count++
	}

	summaries := make([]school.PaymentMethodSummary, 0, len(byMethod))
	for _, sum := range byMethod {
		summaries = append(summaries, *sum)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].PaymentMethod < summaries[j].PaymentMethod })
	return ok(ctx, summaries)
}

func (s *server) listLedgerDeletions(ctx echo.Context) error {
	return respondList(ctx, s.db.LedgerDeletions.All(), true, "deletion_reason")
}
