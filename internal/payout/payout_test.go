package payout

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkhasanov/engagement-system/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateWithdrawal(t *testing.T) {
	summary := model.PayoutSummary{AvailableToWithdraw: dec("1200.00")}

	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{"zero", "0", ErrNonPositiveAmount},
		{"negative", "-5", ErrNonPositiveAmount},
		{"below minimum", "499.99", ErrBelowMinimum},
		{"at minimum", "500", nil},
		{"equal to available is accepted", "1200.00", nil},
		{"one paisa over available", "1200.01", ErrExceedsAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWithdrawal(dec(tt.amount), summary)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateWithdrawal(%s) = %v, want %v", tt.amount, err, tt.wantErr)
			}
		})
	}
}

func TestValidateWithdrawal_SmallAvailable(t *testing.T) {
	// Минимальный порог проверяется раньше доступного остатка.
	summary := model.PayoutSummary{AvailableToWithdraw: dec("100")}

	if err := ValidateWithdrawal(dec("100"), summary); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("err = %v, want ErrBelowMinimum", err)
	}
}

func TestGroupLedger(t *testing.T) {
	now := time.Now()
	entries := []model.LedgerEntry{
		{ID: 1, Amount: dec("800"), Direction: model.DirectionCredit, Reason: model.ReasonDailyEarned, CreatedAt: now},
		{ID: 2, Amount: dec("200"), Direction: model.DirectionCredit, Reason: model.ReasonDailyEarned, CreatedAt: now},
		{ID: 3, Amount: dec("500"), Direction: model.DirectionDebit, Reason: model.ReasonWithdrawal, CreatedAt: now},
		{ID: 4, Amount: dec("50"), Direction: model.DirectionDebit, Reason: model.ReasonServiceFee, CreatedAt: now},
	}

	view := GroupLedger(entries)

	if len(view.Credits) != 2 || len(view.Debits) != 2 {
		t.Fatalf("groups = %d/%d, want 2/2", len(view.Credits), len(view.Debits))
	}
	if !view.CreditTotal.Equal(dec("1000")) {
		t.Fatalf("CreditTotal = %s, want 1000", view.CreditTotal)
	}
	if !view.DebitTotal.Equal(dec("550")) {
		t.Fatalf("DebitTotal = %s, want 550", view.DebitTotal)
	}
	if !view.ByReason[model.ReasonDailyEarned].Equal(dec("1000")) {
		t.Fatalf("earned by reason = %s, want 1000", view.ByReason[model.ReasonDailyEarned])
	}
	if !view.ByReason[model.ReasonServiceFee].Equal(dec("50")) {
		t.Fatalf("fees by reason = %s, want 50", view.ByReason[model.ReasonServiceFee])
	}
}

func TestOutstandingFees(t *testing.T) {
	s := model.PayoutSummary{
		TotalEarned:         dec("10000"),
		TotalWithdrawn:      dec("4000"),
		AvailableToWithdraw: dec("5500"),
	}

	if got := OutstandingFees(s); !got.Equal(dec("500")) {
		t.Fatalf("OutstandingFees = %s, want 500", got)
	}

	// Расхождение серверных цифр не должно давать отрицательную оценку.
	s.AvailableToWithdraw = dec("7000")
	if got := OutstandingFees(s); !got.Equal(decimal.Zero) {
		t.Fatalf("OutstandingFees = %s, want 0", got)
	}
}
