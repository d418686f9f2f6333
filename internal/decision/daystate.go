// Package decision содержит общую логику принятия решений по бронированию:
// операционное состояние сегодняшнего выхода и допустимость изменения расписания.
// Все экраны обязаны пользоваться этим пакетом, а не сравнивать строки статусов
// на месте — расхождение приоритетов между экранами и есть устраняемый дефект.
package decision

import (
	"strings"

	"github.com/mkhasanov/engagement-system/internal/model"
)

// DayStateKind — операционное состояние сегодняшнего выхода.
type DayStateKind string

const (
	DayNotDue     DayStateKind = "NOT_DUE"
	DayScheduled  DayStateKind = "SCHEDULED"
	DayInProgress DayStateKind = "IN_PROGRESS"
	DayCompleted  DayStateKind = "COMPLETED"
)

// Отображаемые подписи состояний.
const (
	labelNotDue     = "Upcoming"
	labelScheduled  = "Not Started"
	labelInProgress = "Task In Progress"
	labelCompleted  = "Task Completed"
)

// DayState — решение о состоянии выхода вместе с подписью для отображения.
// CanStart имеет смысл только для DayScheduled.
type DayState struct {
	Kind     DayStateKind
	CanStart bool
	Label    string
}

// ResolveDayState выводит состояние сегодняшнего выхода из двух независимо
// обновляемых сигналов: статуса самого выхода и легаси-статуса задачи на
// уровне бронирования. Во время распространения изменений они могут
// расходиться, поэтому порядок правил фиксирован, побеждает первое совпадение:
//
//  1. выход IN_PROGRESS либо задача IN_PROGRESS/STARTED -> InProgress;
//  2. выход COMPLETED либо задача COMPLETED -> Completed;
//  3. выход SCHEDULED либо задача NOT_STARTED -> Scheduled;
//  4. иначе NotDue, действия не показываются.
func ResolveDayState(e model.Engagement) DayState {
	var dayStatus model.ServiceDayStatus
	canStart := false
	if e.TodayService != nil {
		dayStatus = e.TodayService.Status
		canStart = e.TodayService.CanStart
	}

	task := strings.ToUpper(strings.TrimSpace(string(e.TaskStatus)))

	switch {
	case dayStatus == model.DayInProgress || task == string(model.TaskInProgress) || task == "STARTED":
		return DayState{Kind: DayInProgress, Label: labelInProgress}
	case dayStatus == model.DayCompleted || task == string(model.TaskCompleted):
		return DayState{Kind: DayCompleted, Label: labelCompleted}
	case dayStatus == model.DayScheduled || task == string(model.TaskNotStarted):
		return DayState{Kind: DayScheduled, CanStart: canStart, Label: labelScheduled}
	default:
		return DayState{Kind: DayNotDue, Label: labelNotDue}
	}
}
