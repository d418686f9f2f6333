// Package payout отвечает за сводку выплат и проверку заявок на вывод средств.
//
// Суммы total_earned / total_withdrawn / available_to_withdraw авторитетны на
// сервере: клиент группирует записи журнала исключительно для отображения и
// никогда не принимает решения о выводе по локально просуммированному журналу.
package payout

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mkhasanov/engagement-system/internal/model"
)

// MinWithdrawal — минимальная сумма заявки на вывод, фиксированная политика.
var MinWithdrawal = decimal.NewFromInt(500)

// Ошибки локальной валидации заявки; до сети не доходят.
var (
	ErrNonPositiveAmount = errors.New("withdrawal amount must be positive")
	ErrBelowMinimum      = errors.New("withdrawal amount is below the minimum threshold")
	ErrExceedsAvailable  = errors.New("withdrawal amount exceeds the available balance")
)

// ValidateWithdrawal проверяет сумму заявки против серверной сводки.
// Граница включительная: сумма, равная доступному остатку, принимается.
func ValidateWithdrawal(amount decimal.Decimal, summary model.PayoutSummary) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}
	if amount.LessThan(MinWithdrawal) {
		return ErrBelowMinimum
	}
	if amount.GreaterThan(summary.AvailableToWithdraw) {
		return ErrExceedsAvailable
	}
	return nil
}

// LedgerView — сгруппированный для отображения журнал движений.
type LedgerView struct {
	Credits     []model.LedgerEntry
	Debits      []model.LedgerEntry
	CreditTotal decimal.Decimal
	DebitTotal  decimal.Decimal
	ByReason    map[model.LedgerReason]decimal.Decimal
}

// GroupLedger раскладывает записи журнала по направлению и причине.
// Результат чисто презентационный.
func GroupLedger(entries []model.LedgerEntry) LedgerView {
	view := LedgerView{
		CreditTotal: decimal.Zero,
		DebitTotal:  decimal.Zero,
		ByReason:    make(map[model.LedgerReason]decimal.Decimal),
	}

	for _, e := range entries {
		switch e.Direction {
		case model.DirectionCredit:
			view.Credits = append(view.Credits, e)
			view.CreditTotal = view.CreditTotal.Add(e.Amount)
		case model.DirectionDebit:
			view.Debits = append(view.Debits, e)
			view.DebitTotal = view.DebitTotal.Add(e.Amount)
		}

		total, ok := view.ByReason[e.Reason]
		if !ok {
			total = decimal.Zero
		}
		view.ByReason[e.Reason] = total.Add(e.Amount)
	}

	return view
}

// OutstandingFees — отображаемая оценка удержанных комиссий.
// Формула наблюдается только в интерфейсе и контрактом не является:
// точный расчёт комиссий и депозита выполняет сервер выплат.
func OutstandingFees(s model.PayoutSummary) decimal.Decimal {
	fees := s.TotalEarned.Sub(s.TotalWithdrawn).Sub(s.AvailableToWithdraw)
	if fees.IsNegative() {
		return decimal.Zero
	}
	return fees
}
