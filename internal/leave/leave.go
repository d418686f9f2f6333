// Package leave проверяет заявки на отпуск внутри окна бронирования.
package leave

import (
	"fmt"
	"time"

	"github.com/mkhasanov/engagement-system/internal/model"
)

// MinDays — минимальная длительность отпуска в днях (включительно).
const MinDays = 10

// Коды локальных ошибок валидации; такие ошибки никогда не уходят в сеть.
const (
	CodeStartsBeforeWindow = "starts_before_window"
	CodeEndsAfterWindow    = "ends_after_window"
	CodeInvertedRange      = "inverted_range"
	CodeTooShort           = "too_short"
)

// ValidationError — ошибка проверки интервала отпуска.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Span — принятый интервал отпуска с подсчитанной длительностью.
// Days считается включительно; серверный расчёт возврата обязан совпасть,
// при расхождении авторитетна цифра сервера.
type Span struct {
	Start time.Time
	End   time.Time
	Days  int
}

// Days возвращает включительную длину интервала в днях.
func Days(start, end time.Time) int {
	return int(day(end).Sub(day(start)).Hours()/24) + 1
}

// Validate проверяет первичную заявку на отпуск. Правила применяются по
// порядку, побеждает первое нарушение:
//
//  1. начало не раньше max(начало бронирования, сегодня);
//  2. конец не позже конца бронирования;
//  3. конец не раньше начала;
//  4. включительная длительность не меньше MinDays.
func Validate(bookingStart, bookingEnd, proposedStart, proposedEnd, today time.Time) (Span, error) {
	earliest := day(bookingStart)
	if day(today).After(earliest) {
		earliest = day(today)
	}
	return validate(earliest, bookingEnd, proposedStart, proposedEnd)
}

// ValidateModification проверяет изменение уже оформленного отпуска.
// Правило нижней границы ослаблено: новый отпуск может начинаться с
// сегодняшнего дня, даже если исходный уже начался до начала окна изменений.
func ValidateModification(bookingEnd, proposedStart, proposedEnd, today time.Time) (Span, error) {
	return validate(day(today), bookingEnd, proposedStart, proposedEnd)
}

func validate(earliestStart, bookingEnd, proposedStart, proposedEnd time.Time) (Span, error) {
	start := day(proposedStart)
	end := day(proposedEnd)

	if start.Before(earliestStart) {
		return Span{}, &ValidationError{
			Code:    CodeStartsBeforeWindow,
			Message: "Leave cannot start before the booking window or in the past",
		}
	}

	if end.After(day(bookingEnd)) {
		return Span{}, &ValidationError{
			Code:    CodeEndsAfterWindow,
			Message: "Leave cannot end after the booking ends",
		}
	}

	if end.Before(start) {
		return Span{}, &ValidationError{
			Code:    CodeInvertedRange,
			Message: "Leave end date cannot be before its start date",
		}
	}

	days := Days(start, end)
	if days < MinDays {
		return Span{}, &ValidationError{
			Code:    CodeTooShort,
			Message: fmt.Sprintf("Leave must be at least %d days, got %d", MinDays, days),
		}
	}

	return Span{Start: start, End: end, Days: days}, nil
}

// CanCancel сообщает, есть ли что отменять: отмена отпуска — отдельное
// действие, а не заявка с нулевой длительностью.
func CanCancel(v *model.Vacation) bool {
	return v != nil && !v.StartDate.IsZero()
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
