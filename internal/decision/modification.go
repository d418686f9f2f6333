package decision

import (
	"time"

	"github.com/mkhasanov/engagement-system/internal/model"
)

// ModificationLeadTime — минимальный запас до начала выхода, при котором
// перенос ещё разрешён. Внутри этого окна и после старта перенос закрыт
// навсегда для данного выхода.
const ModificationLeadTime = 30 * time.Minute

// Причины отказа в изменении расписания, пригодные для показа пользователю.
const (
	ReasonAlreadyModified = "This booking has already been rescheduled once and cannot be modified again"
	ReasonWindowClosed    = "Changes are no longer possible less than 30 minutes before the service starts"
	ReasonNotScheduled    = "The service start has not been scheduled yet, so it cannot be modified"
)

// Eligibility — решение о допустимости переноса с пояснением.
// Reason заполнен только при запрете.
type Eligibility struct {
	Allowed bool
	Reason  string
}

// ModificationEligibility решает, разрешён ли сейчас перенос даты или времени.
// Две независимые проверки, обе обязаны пройти:
//
//   - перенос допускается не более одного раза за жизнь бронирования;
//   - перенос возможен только строго раньше, чем за 30 минут до старта
//     (в точке start-30m уже запрещён).
//
// Причина «уже переносилось» важнее причины «окно закрыто»: обе могут быть
// истинны одновременно, но объяснять нужно более постоянную.
// Нулевой StartInstant означает, что старт ещё не назначен: запрет с
// отдельной причиной вместо молчаливого разрешения.
func ModificationEligibility(e model.Engagement, now time.Time) Eligibility {
	if e.Rescheduled() {
		return Eligibility{Reason: ReasonAlreadyModified}
	}

	if e.StartInstant.IsZero() {
		return Eligibility{Reason: ReasonNotScheduled}
	}

	if !now.Before(e.StartInstant.Add(-ModificationLeadTime)) {
		return Eligibility{Reason: ReasonWindowClosed}
	}

	return Eligibility{Allowed: true}
}
