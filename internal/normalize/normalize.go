// Package normalize приводит разнородные сырые ответы API бронирований
// к каноническому представлению. Исторически сервер отдаёт поля то в
// snake_case, то в camelCase; предпочтение всегда отдаётся snake_case.
// Преобразование чистое и тотальное: отсутствующие или битые необязательные
// поля деградируют до документированных значений по умолчанию, ошибок нет.
package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkhasanov/engagement-system/internal/model"
)

const dateLayout = "2006-01-02"

// RawProvider — вложенный объект исполнителя в сыром ответе.
type RawProvider struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	FirstNameLegacy string `json:"firstName"`
	LastNameLegacy  string `json:"lastName"`
}

// RawServiceDay — сырое состояние сегодняшнего выхода.
type RawServiceDay struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	CanStart          bool   `json:"can_start"`
	CanStartLegacy    bool   `json:"canStart"`
	CanGenerateOTP    bool   `json:"can_generate_otp"`
	CanGenerateLegacy bool   `json:"canGenerateOtp"`
	CanComplete       bool   `json:"can_complete"`
	CanCompleteLegacy bool   `json:"canComplete"`
	OTPActive         bool   `json:"otp_active"`
	OTPActiveLegacy   bool   `json:"otpActive"`
}

// RawModification — сырая запись истории изменений.
type RawModification struct {
	Timestamp    int64            `json:"timestamp"`
	Kind         string           `json:"kind"`
	Action       string           `json:"action"`
	ActionLegacy string           `json:"actionType"`
	Before       string           `json:"before"`
	After        string           `json:"after"`
	Amount       *decimal.Decimal `json:"amount"`
}

// RawResponsibility — сырая обязанность в составе бронирования.
type RawResponsibility struct {
	TaskType       string            `json:"task_type"`
	TaskTypeLegacy string            `json:"taskType"`
	Attributes     map[string]string `json:"attributes"`
}

// RawEngagement — сырое бронирование со всеми историческими вариантами полей.
type RawEngagement struct {
	ID               int64 `json:"id"`
	CustomerID       int64 `json:"customer_id"`
	CustomerIDLegacy int64 `json:"customerId"`
	ProviderID       int64 `json:"provider_id"`
	ProviderIDLegacy int64 `json:"providerId"`

	BookingType       string `json:"booking_type"`
	ServiceType       string `json:"service_type"`
	ServiceTypeLegacy string `json:"serviceType"`

	TaskStatus       string `json:"task_status"`
	TaskStatusLegacy string `json:"taskStatus"`

	StartDate       string `json:"start_date"`
	StartDateLegacy string `json:"startDate"`
	EndDate         string `json:"end_date"`
	EndDateLegacy   string `json:"endDate"`
	StartTime       string `json:"start_time"`
	StartTimeLegacy string `json:"startTime"`
	EndTime         string `json:"end_time"`
	EndTimeLegacy   string `json:"endTime"`

	StartEpoch       int64 `json:"start_epoch"`
	StartEpochLegacy int64 `json:"startEpoch"`
	EndEpoch         int64 `json:"end_epoch"`
	EndEpochLegacy   int64 `json:"endEpoch"`

	BaseAmount    *decimal.Decimal `json:"base_amount"`
	MonthlyAmount *decimal.Decimal `json:"monthlyAmount"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`

	ServiceProvider    *RawProvider `json:"service_provider"`
	Provider           *RawProvider `json:"provider"`
	AssignmentStatus   string       `json:"assignment_status"`
	AssignmentLegacy   string       `json:"assignmentStatus"`
	ProviderName       string       `json:"provider_name"`
	ProviderNameLegacy string       `json:"serviceProviderName"`

	Responsibilities []RawResponsibility `json:"responsibilities"`
	AddOns           []string            `json:"add_ons"`
	AddOnsLegacy     []string            `json:"addOns"`

	Modifications []RawModification `json:"modifications"`

	LeaveStartDate  string           `json:"vacation_start_date"`
	LeaveStartCamel string           `json:"vacationStartDate"`
	LeaveEndDate    string           `json:"vacation_end_date"`
	LeaveEndCamel   string           `json:"vacationEndDate"`
	LeaveDays       int              `json:"vacation_days"`
	LeaveDaysCamel  int              `json:"vacationDays"`
	LeaveRefund     *decimal.Decimal `json:"vacation_refund_amount"`

	TodayService       *RawServiceDay `json:"today_service"`
	TodayServiceLegacy *RawServiceDay `json:"todayService"`
}

// Engagement превращает сырое бронирование в каноническое.
// Повторная нормализация уже канонической записи ничего не меняет.
func Engagement(raw RawEngagement) model.Engagement {
	e := model.Engagement{
		ID:         raw.ID,
		CustomerID: firstInt64(raw.CustomerID, raw.CustomerIDLegacy),
		ProviderID: raw.ProviderID,

		BookingType: bookingType(firstNonEmpty(raw.BookingType, raw.ServiceType, raw.ServiceTypeLegacy)),
		TaskStatus:  taskStatus(firstNonEmpty(raw.TaskStatus, raw.TaskStatusLegacy)),

		StartDate: parseDate(firstNonEmpty(raw.StartDate, raw.StartDateLegacy)),
		EndDate:   parseDate(firstNonEmpty(raw.EndDate, raw.EndDateLegacy)),

		Amount: amount(raw),
	}

	startEpoch := firstInt64(raw.StartEpoch, raw.StartEpochLegacy)
	endEpoch := firstInt64(raw.EndEpoch, raw.EndEpochLegacy)
	if startEpoch > 0 {
		e.StartInstant = time.Unix(startEpoch, 0).UTC()
	}

	// Отображаемое время: при наличии эпохи строки выводятся из неё,
	// отдельные строковые поля времени авторитетными не считаются.
	if startEpoch > 0 {
		e.StartTime = e.StartInstant.Format(time.Kitchen)
	} else {
		e.StartTime = clock12(firstNonEmpty(raw.StartTime, raw.StartTimeLegacy))
	}
	if endEpoch > 0 {
		e.EndTime = time.Unix(endEpoch, 0).UTC().Format(time.Kitchen)
	} else {
		e.EndTime = clock12(firstNonEmpty(raw.EndTime, raw.EndTimeLegacy))
	}
	e.TimeRange = timeRange(e.StartTime, e.EndTime)

	if p := pickProvider(raw); p != nil {
		if e.ProviderID == 0 {
			e.ProviderID = p.ID
		}
	}
	if e.ProviderID == 0 {
		e.ProviderID = raw.ProviderIDLegacy
	}
	e.ProviderName = providerName(raw)

	for _, r := range raw.Responsibilities {
		e.Responsibilities = append(e.Responsibilities, model.Responsibility{
			TaskType:   firstNonEmpty(r.TaskType, r.TaskTypeLegacy),
			Attributes: r.Attributes,
		})
	}
	if len(raw.AddOns) > 0 {
		e.AddOns = raw.AddOns
	} else if len(raw.AddOnsLegacy) > 0 {
		e.AddOns = raw.AddOnsLegacy
	}

	for _, m := range raw.Modifications {
		e.Modifications = append(e.Modifications, modification(m))
	}

	e.Vacation = vacation(raw)
	e.TodayService = serviceDay(raw, e.ID)

	return e
}

// Engagements нормализует срез сырых бронирований.
func Engagements(raw []RawEngagement) []model.Engagement {
	if len(raw) == 0 {
		return nil
	}
	res := make([]model.Engagement, 0, len(raw))
	for _, r := range raw {
		res = append(res, Engagement(r))
	}
	return res
}

// ModificationKind разбирает вид изменения: типизированное значение нового
// сервера либо легаси-строку действия. Нераспознанные строки получают
// ModificationUnknown и не считаются переносом.
func ModificationKind(kind, label string) model.ModificationKind {
	switch model.ModificationKind(strings.ToUpper(strings.TrimSpace(kind))) {
	case model.ModificationReschedule:
		return model.ModificationReschedule
	case model.ModificationRescheduleDate:
		return model.ModificationRescheduleDate
	case model.ModificationRescheduleTime:
		return model.ModificationRescheduleTime
	case model.ModificationVacationApplied:
		return model.ModificationVacationApplied
	case model.ModificationVacationModified:
		return model.ModificationVacationModified
	case model.ModificationVacationCanceled:
		return model.ModificationVacationCanceled
	case model.ModificationCancellation:
		return model.ModificationCancellation
	}

	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "rescheduled") || strings.Contains(l, "modified"):
		return model.ModificationReschedule
	case strings.Contains(l, "vacation") && strings.Contains(l, "cancel"):
		return model.ModificationVacationCanceled
	case strings.Contains(l, "vacation") || strings.Contains(l, "leave"):
		return model.ModificationVacationApplied
	case strings.Contains(l, "cancel"):
		return model.ModificationCancellation
	case l == "":
		return model.ModificationUnknown
	default:
		return model.ModificationUnknown
	}
}

func modification(m RawModification) model.Modification {
	label := firstNonEmpty(m.Action, m.ActionLegacy)
	res := model.Modification{
		Kind:   ModificationKind(m.Kind, label),
		Label:  label,
		Before: m.Before,
		After:  m.After,
		Amount: m.Amount,
	}
	if m.Timestamp > 0 {
		res.Timestamp = time.Unix(m.Timestamp, 0).UTC()
	}
	return res
}

func vacation(raw RawEngagement) *model.Vacation {
	start := parseDate(firstNonEmpty(raw.LeaveStartDate, raw.LeaveStartCamel))
	end := parseDate(firstNonEmpty(raw.LeaveEndDate, raw.LeaveEndCamel))
	if start.IsZero() && end.IsZero() {
		return nil
	}

	v := &model.Vacation{StartDate: start, EndDate: end}
	if raw.LeaveDays > 0 {
		v.Days = raw.LeaveDays
	} else {
		v.Days = raw.LeaveDaysCamel
	}
	if raw.LeaveRefund != nil {
		v.RefundAmount = *raw.LeaveRefund
	}
	return v
}

func serviceDay(raw RawEngagement, engagementID int64) *model.ServiceDay {
	day := raw.TodayService
	if day == nil {
		day = raw.TodayServiceLegacy
	}
	if day == nil {
		return nil
	}

	return &model.ServiceDay{
		ID:           day.ID,
		EngagementID: engagementID,
		Status:       model.ServiceDayStatus(strings.ToUpper(strings.TrimSpace(day.Status))),
		CanStart:     day.CanStart || day.CanStartLegacy,
		CanGenerate:  day.CanGenerateOTP || day.CanGenerateLegacy,
		CanComplete:  day.CanComplete || day.CanCompleteLegacy,
		OTPActive:    day.OTPActive || day.OTPActiveLegacy,
	}
}

func pickProvider(raw RawEngagement) *RawProvider {
	if raw.ServiceProvider != nil {
		return raw.ServiceProvider
	}
	return raw.Provider
}

func providerName(raw RawEngagement) string {
	if p := pickProvider(raw); p != nil {
		first := firstNonEmpty(p.FirstName, p.FirstNameLegacy)
		last := firstNonEmpty(p.LastName, p.LastNameLegacy)
		name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
		if name != "" {
			return name
		}
	}

	status := firstNonEmpty(raw.AssignmentStatus, raw.AssignmentLegacy)
	if strings.EqualFold(strings.TrimSpace(status), "UNASSIGNED") {
		return "Awaiting Assignment"
	}

	if legacy := strings.TrimSpace(firstNonEmpty(raw.ProviderName, raw.ProviderNameLegacy)); legacy != "" {
		return legacy
	}

	return "Not Assigned"
}

func amount(raw RawEngagement) decimal.Decimal {
	for _, v := range []*decimal.Decimal{raw.BaseAmount, raw.MonthlyAmount, raw.TotalAmount} {
		if v != nil {
			return *v
		}
	}
	return decimal.Zero
}

func bookingType(s string) model.BookingType {
	switch model.BookingType(strings.ToUpper(strings.TrimSpace(s))) {
	case model.BookingMonthly:
		return model.BookingMonthly
	case model.BookingShortTerm:
		return model.BookingShortTerm
	default:
		return model.BookingOnDemand
	}
}

func taskStatus(s string) model.TaskStatus {
	st := model.TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	if st == "" {
		return model.TaskNotStarted
	}
	return st
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// clock12 приводит строку времени к 12-часовому формату.
// Непонятный формат возвращается как есть: поле чисто отображаемое.
func clock12(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"15:04", "15:04:05", time.Kitchen, "3:04 PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.Kitchen)
		}
	}
	return s
}

func timeRange(start, end string) string {
	if start == "" || end == "" {
		return ""
	}
	return start + " - " + end
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstInt64(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
