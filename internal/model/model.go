// Package model содержит доменные сущности сервиса бронирований.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role определяет роль пользователя в маркетплейсе.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleProvider Role = "PROVIDER"
)

// User представляет зарегистрированного пользователя мобильного приложения.
type User struct {
	ID           int64
	Login        string
	Role         Role
	PasswordHash []byte
	CreatedAt    time.Time
}

// BookingType описывает тип бронирования.
type BookingType string

const (
	BookingOnDemand  BookingType = "ON_DEMAND"
	BookingMonthly   BookingType = "MONTHLY"
	BookingShortTerm BookingType = "SHORT_TERM"
)

// TaskStatus описывает статус жизненного цикла бронирования целиком.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "NOT_STARTED"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

// ServiceDayStatus описывает статус одного календарного выхода на услугу.
type ServiceDayStatus string

const (
	DayScheduled  ServiceDayStatus = "SCHEDULED"
	DayInProgress ServiceDayStatus = "IN_PROGRESS"
	DayCompleted  ServiceDayStatus = "COMPLETED"
)

// ServiceDay описывает состояние сегодняшнего выхода по бронированию.
// Флаги возможностей приходят с сервера и определяют доступные действия.
type ServiceDay struct {
	ID           int64
	EngagementID int64
	Status       ServiceDayStatus
	CanStart     bool
	CanGenerate  bool
	CanComplete  bool
	OTPActive    bool
}

// ModificationKind — типизированный вид изменения бронирования.
// Присваивается при записи; легаси-строки из API разбирает нормализатор,
// нераспознанные значения получают ModificationUnknown.
type ModificationKind string

const (
	ModificationReschedule       ModificationKind = "RESCHEDULE"
	ModificationRescheduleDate   ModificationKind = "RESCHEDULE_DATE"
	ModificationRescheduleTime   ModificationKind = "RESCHEDULE_TIME"
	ModificationVacationApplied  ModificationKind = "VACATION_APPLIED"
	ModificationVacationModified ModificationKind = "VACATION_MODIFIED"
	ModificationVacationCanceled ModificationKind = "VACATION_CANCELLED"
	ModificationCancellation     ModificationKind = "CANCELLATION"
	ModificationUnknown          ModificationKind = "UNKNOWN"
)

// Reschedule сообщает, относится ли изменение к семейству переносов даты/времени.
func (k ModificationKind) Reschedule() bool {
	return k == ModificationReschedule || k == ModificationRescheduleDate || k == ModificationRescheduleTime
}

// Modification описывает одну запись истории изменений бронирования.
type Modification struct {
	Timestamp time.Time
	Kind      ModificationKind
	Label     string
	Before    string
	After     string
	Amount    *decimal.Decimal
}

// Vacation описывает оформленный отпуск внутри окна бронирования.
type Vacation struct {
	StartDate    time.Time
	EndDate      time.Time
	Days         int
	RefundAmount decimal.Decimal
}

// Responsibility описывает одну обязанность в составе бронирования.
type Responsibility struct {
	TaskType   string            `json:"task_type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Engagement — каноническое представление бронирования между заказчиком
// и исполнителем. Для временных расчётов авторитетен StartInstant;
// строковые дата/время служат только для отображения.
type Engagement struct {
	ID         int64
	CustomerID int64
	ProviderID int64

	BookingType BookingType
	TaskStatus  TaskStatus

	StartDate    time.Time
	EndDate      time.Time
	StartTime    string
	EndTime      string
	StartInstant time.Time
	TimeRange    string

	Amount       decimal.Decimal
	ProviderName string

	Responsibilities []Responsibility
	AddOns           []string
	Modifications    []Modification
	Vacation         *Vacation
	TodayService     *ServiceDay
}

// Rescheduled сообщает, был ли уже выполнен перенос даты или времени.
func (e *Engagement) Rescheduled() bool {
	for _, m := range e.Modifications {
		if m.Kind.Reschedule() {
			return true
		}
	}
	return false
}

// LedgerDirection — направление движения средств.
type LedgerDirection string

const (
	DirectionCredit LedgerDirection = "CREDIT"
	DirectionDebit  LedgerDirection = "DEBIT"
)

// LedgerReason — причина движения средств.
type LedgerReason string

const (
	ReasonDailyEarned     LedgerReason = "DAILY_EARNED"
	ReasonWithdrawal      LedgerReason = "WITHDRAWAL"
	ReasonServiceFee      LedgerReason = "SERVICE_FEE"
	ReasonSecurityDeposit LedgerReason = "SECURITY_DEPOSIT"
	ReasonRefund          LedgerReason = "REFUND"
	ReasonOther           LedgerReason = "OTHER"
)

// ParseLedgerReason приводит строку причины из API к известному значению.
func ParseLedgerReason(s string) LedgerReason {
	switch LedgerReason(strings.ToUpper(strings.TrimSpace(s))) {
	case ReasonDailyEarned:
		return ReasonDailyEarned
	case ReasonWithdrawal:
		return ReasonWithdrawal
	case ReasonServiceFee:
		return ReasonServiceFee
	case ReasonSecurityDeposit:
		return ReasonSecurityDeposit
	case ReasonRefund:
		return ReasonRefund
	default:
		return ReasonOther
	}
}

// LedgerEntry — одна запись о движении средств исполнителя.
// Записи только добавляются; выплата никогда не изменяет прежние записи.
type LedgerEntry struct {
	ID           int64
	ProviderID   int64
	EngagementID *int64
	Amount       decimal.Decimal
	Direction    LedgerDirection
	Reason       LedgerReason
	CreatedAt    time.Time
}

// PayoutSummary — сводка выплат исполнителя. Все суммы авторитетны на сервере:
// клиент не выводит их из записей журнала для решений о выводе средств.
type PayoutSummary struct {
	ProviderID            int64
	TotalEarned           decimal.Decimal
	TotalWithdrawn        decimal.Decimal
	AvailableToWithdraw   decimal.Decimal
	SecurityDepositPaid   bool
	SecurityDepositAmount decimal.Decimal
	RefreshedAt           time.Time
}

// WithdrawalStatus — статус заявки на вывод средств.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "PENDING"
	WithdrawalAccepted WithdrawalStatus = "ACCEPTED"
	WithdrawalRejected WithdrawalStatus = "REJECTED"
)

// WithdrawalRequest — локальная запись об отправленной заявке на вывод.
type WithdrawalRequest struct {
	ID         uuid.UUID
	ProviderID int64
	Amount     decimal.Decimal
	PayoutMode string
	Status     WithdrawalStatus
	CreatedAt  time.Time
}
