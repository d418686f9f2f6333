package leave

import (
	"errors"
	"testing"
	"time"

	"github.com/mkhasanov/engagement-system/internal/model"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidate(t *testing.T) {
	bookingStart := date("2024-01-01")
	bookingEnd := date("2024-03-01")
	today := date("2024-01-10")

	tests := []struct {
		name     string
		start    string
		end      string
		wantDays int
		wantCode string
	}{
		{
			name:     "exactly ten days accepted",
			start:    "2024-01-15",
			end:      "2024-01-24",
			wantDays: 10,
		},
		{
			name:     "nine days rejected",
			start:    "2024-01-15",
			end:      "2024-01-23",
			wantCode: CodeTooShort,
		},
		{
			name:     "starts before today",
			start:    "2024-01-05",
			end:      "2024-01-20",
			wantCode: CodeStartsBeforeWindow,
		},
		{
			name:     "ends after booking window",
			start:    "2024-02-25",
			end:      "2024-03-10",
			wantCode: CodeEndsAfterWindow,
		},
		{
			name:     "inverted range",
			start:    "2024-02-20",
			end:      "2024-02-10",
			wantCode: CodeInvertedRange,
		},
		{
			name:     "full remaining window",
			start:    "2024-01-10",
			end:      "2024-03-01",
			wantDays: 52,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, err := Validate(bookingStart, bookingEnd, date(tt.start), date(tt.end), today)

			if tt.wantCode != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if verr.Code != tt.wantCode {
					t.Fatalf("Code = %s, want %s", verr.Code, tt.wantCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate error: %v", err)
			}
			if span.Days != tt.wantDays {
				t.Fatalf("Days = %d, want %d", span.Days, tt.wantDays)
			}
		})
	}
}

func TestValidate_TodayBeforeBookingStart(t *testing.T) {
	// Сегодня раньше начала бронирования: нижняя граница — начало окна.
	_, err := Validate(date("2024-02-01"), date("2024-04-01"), date("2024-01-20"), date("2024-02-15"), date("2024-01-10"))

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != CodeStartsBeforeWindow {
		t.Fatalf("expected starts_before_window, got %v", err)
	}
}

func TestValidateModification_RelaxesLowerBound(t *testing.T) {
	bookingEnd := date("2024-03-01")
	today := date("2024-01-20")

	// Первичная заявка с этим интервалом была бы отклонена из-за начала окна,
	// изменение существующего отпуска — нет.
	span, err := ValidateModification(bookingEnd, date("2024-01-20"), date("2024-02-05"), today)
	if err != nil {
		t.Fatalf("ValidateModification error: %v", err)
	}
	if span.Days != 17 {
		t.Fatalf("Days = %d, want 17", span.Days)
	}

	_, err = ValidateModification(bookingEnd, date("2024-01-19"), date("2024-02-05"), today)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Code != CodeStartsBeforeWindow {
		t.Fatalf("expected starts_before_window for past start, got %v", err)
	}
}

func TestDays_Inclusive(t *testing.T) {
	if got := Days(date("2024-01-15"), date("2024-01-24")); got != 10 {
		t.Fatalf("Days = %d, want 10", got)
	}
	if got := Days(date("2024-01-15"), date("2024-01-15")); got != 1 {
		t.Fatalf("single day = %d, want 1", got)
	}
}

func TestCanCancel(t *testing.T) {
	if CanCancel(nil) {
		t.Fatalf("nil vacation cannot be cancelled")
	}
	if CanCancel(&model.Vacation{}) {
		t.Fatalf("empty vacation cannot be cancelled")
	}
	if !CanCancel(&model.Vacation{StartDate: date("2024-02-01"), EndDate: date("2024-02-12")}) {
		t.Fatalf("existing vacation must be cancellable")
	}
}
