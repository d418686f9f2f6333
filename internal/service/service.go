// Package service реализует бизнес-логику приложения: обновление кэша
// бронирований, решения по выходам и изменениям, отпуска и вывод средств.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkhasanov/engagement-system/internal/decision"
	"github.com/mkhasanov/engagement-system/internal/leave"
	"github.com/mkhasanov/engagement-system/internal/marketplace"
	"github.com/mkhasanov/engagement-system/internal/model"
	"github.com/mkhasanov/engagement-system/internal/normalize"
	"github.com/mkhasanov/engagement-system/internal/payout"
	"github.com/mkhasanov/engagement-system/internal/protocol"
	"github.com/mkhasanov/engagement-system/internal/repository"
)

// Корзины, по которым сервер группирует бронирования.
const (
	bucketCurrent  = "current"
	bucketUpcoming = "upcoming"
	bucketPast     = "past"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrNoVacation возвращается при попытке изменить или отменить
// неоформленный отпуск.
var ErrNoVacation = errors.New("no vacation is applied to this booking")

// ErrEmptySchedulePatch возвращается на запрос переноса без единого изменения.
var ErrEmptySchedulePatch = errors.New("no schedule changes requested")

// EligibilityError — запрет переноса правилами допустимости.
// Reason пригоден для показа пользователю дословно.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string {
	return e.Reason
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, role model.Role, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)

	UpsertEngagements(ctx context.Context, bucket string, engagements []model.Engagement) error
	ListEngagements(ctx context.Context, userID int64, bucket string) ([]model.Engagement, error)
	GetEngagement(ctx context.Context, id int64) (*model.Engagement, error)
	SaveEngagement(ctx context.Context, e *model.Engagement) error

	GetServiceDay(ctx context.Context, dayID int64) (*model.ServiceDay, error)
	SaveServiceDay(ctx context.Context, day *model.ServiceDay) error

	ReplaceLedger(ctx context.Context, providerID int64, entries []model.LedgerEntry) error
	ListLedger(ctx context.Context, providerID int64) ([]model.LedgerEntry, error)
	SavePayoutSummary(ctx context.Context, s model.PayoutSummary) error
	GetPayoutSummary(ctx context.Context, providerID int64) (*model.PayoutSummary, error)

	CreateWithdrawalRequest(ctx context.Context, req model.WithdrawalRequest) error
	UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, status model.WithdrawalStatus) error
	ListWithdrawalRequests(ctx context.Context, providerID int64) ([]model.WithdrawalRequest, error)
}

// MarketplaceClient описывает используемые сервисом операции API маркетплейса.
type MarketplaceClient interface {
	protocol.API
	Engagements(ctx context.Context, userID int64, month string) (*marketplace.EngagementsResponse, error)
	UpdateEngagement(ctx context.Context, engagementID int64, patch marketplace.EngagementPatch) (*marketplace.UpdateResult, error)
	Payouts(ctx context.Context, providerID int64, detailed, includeLedger bool) (*marketplace.PayoutsResponse, error)
	Withdraw(ctx context.Context, providerID int64, amount decimal.Decimal, payoutMode string) error
}

// EventType — вид события для подписчиков.
type EventType string

const (
	EventDayStarted        EventType = "DAY_STARTED"
	EventOTPIssued         EventType = "OTP_ISSUED"
	EventDayCompleted      EventType = "DAY_COMPLETED"
	EventEngagementUpdated EventType = "ENGAGEMENT_UPDATED"
	EventPayoutsRefreshed  EventType = "PAYOUTS_REFRESHED"
)

// Event уведомляет подписчиков об изменении состояния. События публикуются
// после записи в стор, поэтому подписчик всегда может перечитать актуальное
// состояние независимо от того, кто инициировал действие.
type Event struct {
	Type         EventType
	EngagementID int64
	DayID        int64
}

// Service содержит бизнес-логику приложения.
type Service struct {
	repo   Repository
	client MarketplaceClient
	runner *protocol.Runner
	guard  *protocol.Guard

	now func() time.Time

	mu      sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewService создаёт сервис поверх репозитория и клиента маркетплейса.
func NewService(repo Repository, client MarketplaceClient) *Service {
	return &Service{
		repo:   repo,
		client: client,
		runner: protocol.NewRunner(repo, client),
		guard:  protocol.NewGuard(),
		now:    time.Now,
		subs:   make(map[int]chan Event),
	}
}

// Close закрывает ресурсы сервиса и каналы подписчиков.
func (s *Service) Close() error {
	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Subscribe регистрирует подписчика на события. Возвращённая функция
// снимает подписку и закрывает канал.
func (s *Service) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 16)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// publish рассылает событие без блокировки: отставший подписчик
// теряет событие, но не тормозит остальных.
func (s *Service) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string, role model.Role) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, role, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// EngagementGroups — бронирования, сгруппированные по корзинам.
// Stale выставляется, когда сервер недоступен и отдана локальная копия.
type EngagementGroups struct {
	Current  []model.Engagement
	Upcoming []model.Engagement
	Past     []model.Engagement
	Stale    bool
}

// RefreshEngagements запрашивает бронирования за месяц, нормализует их и
// обновляет канонический стор. При временном сбое сети отдаётся кэш с
// пометкой Stale; локальная копия при этом не затирается.
func (s *Service) RefreshEngagements(ctx context.Context, userID int64, month string) (*EngagementGroups, error) {
	resp, err := s.client.Engagements(ctx, userID, month)
	if err != nil {
		if marketplace.IsRetryable(err) {
			cached, cerr := s.cachedEngagements(ctx, userID)
			if cerr == nil {
				cached.Stale = true
				return cached, nil
			}
		}
		return nil, err
	}

	groups := &EngagementGroups{
		Current:  normalize.Engagements(resp.Current),
		Upcoming: normalize.Engagements(resp.Upcoming),
		Past:     normalize.Engagements(resp.Past),
	}

	for bucket, list := range map[string][]model.Engagement{
		bucketCurrent:  groups.Current,
		bucketUpcoming: groups.Upcoming,
		bucketPast:     groups.Past,
	} {
		if err := s.repo.UpsertEngagements(ctx, bucket, list); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

func (s *Service) cachedEngagements(ctx context.Context, userID int64) (*EngagementGroups, error) {
	groups := &EngagementGroups{}
	for bucket, dst := range map[string]*[]model.Engagement{
		bucketCurrent:  &groups.Current,
		bucketUpcoming: &groups.Upcoming,
		bucketPast:     &groups.Past,
	} {
		list, err := s.repo.ListEngagements(ctx, userID, bucket)
		if err != nil {
			return nil, err
		}
		*dst = list
	}
	return groups, nil
}

// GetEngagement возвращает бронирование из канонического стора.
func (s *Service) GetEngagement(ctx context.Context, id int64) (*model.Engagement, error) {
	return s.repo.GetEngagement(ctx, id)
}

// DecisionBundle — все решения по одному бронированию за один вызов:
// экраны не собирают их по кускам и не расходятся в приоритетах.
type DecisionBundle struct {
	DayState       decision.DayState
	Modification   decision.Eligibility
	CanCancelLeave bool
	MinLeaveDays   int
}

// Decisions возвращает пакет решений по бронированию на текущий момент.
func (s *Service) Decisions(ctx context.Context, engagementID int64) (*DecisionBundle, error) {
	e, err := s.repo.GetEngagement(ctx, engagementID)
	if err != nil {
		return nil, err
	}

	return &DecisionBundle{
		DayState:       decision.ResolveDayState(*e),
		Modification:   decision.ModificationEligibility(*e, s.now()),
		CanCancelLeave: leave.CanCancel(e.Vacation),
		MinLeaveDays:   leave.MinDays,
	}, nil
}

// StartDay отмечает начало сегодняшнего выхода.
func (s *Service) StartDay(ctx context.Context, dayID int64) (*model.ServiceDay, error) {
	day, err := s.runner.Start(ctx, dayID)
	if err != nil {
		return day, err
	}
	s.publish(Event{Type: EventDayStarted, EngagementID: day.EngagementID, DayID: day.ID})
	return day, nil
}

// RequestDayOTP запрашивает одноразовый код завершения выхода.
func (s *Service) RequestDayOTP(ctx context.Context, dayID int64) (string, error) {
	otp, err := s.runner.RequestOTP(ctx, dayID)
	if err != nil {
		return "", err
	}
	s.publish(Event{Type: EventOTPIssued, DayID: dayID})
	return otp, nil
}

// CompleteDay завершает выход по коду. Успешное завершение двигает деньги,
// поэтому сводка выплат обновляется сразу же, в лучшем усилии.
func (s *Service) CompleteDay(ctx context.Context, dayID int64, otp string) (*model.ServiceDay, error) {
	day, err := s.runner.Complete(ctx, dayID, otp)
	if err != nil {
		return nil, err
	}

	s.publish(Event{Type: EventDayCompleted, EngagementID: day.EngagementID, DayID: day.ID})

	if e, gerr := s.repo.GetEngagement(ctx, day.EngagementID); gerr == nil {
		if _, _, rerr := s.RefreshPayouts(ctx, e.ProviderID); rerr == nil {
			s.publish(Event{Type: EventPayoutsRefreshed})
		}
	}

	return day, nil
}

// ApplyLeave оформляет отпуск по бронированию. Интервал проверяется локально,
// но длительность и сумма возврата в ответе сервера авторитетны.
func (s *Service) ApplyLeave(ctx context.Context, actor *model.User, engagementID int64, start, end time.Time) (*model.Vacation, error) {
	key := fmt.Sprintf("leave:%d", engagementID)
	if err := s.guard.TryAcquire(key); err != nil {
		return nil, err
	}
	defer s.guard.Release(key)

	e, err := s.repo.GetEngagement(ctx, engagementID)
	if err != nil {
		return nil, err
	}

	span, err := leave.Validate(e.StartDate, e.EndDate, start, end, s.now())
	if err != nil {
		return nil, err
	}

	return s.submitLeave(ctx, actor, e, span, model.ModificationVacationApplied, "Vacation applied")
}

// ModifyLeave заменяет интервал уже оформленного отпуска.
func (s *Service) ModifyLeave(ctx context.Context, actor *model.User, engagementID int64, start, end time.Time) (*model.Vacation, error) {
	key := fmt.Sprintf("leave:%d", engagementID)
	if err := s.guard.TryAcquire(key); err != nil {
		return nil, err
	}
	defer s.guard.Release(key)

	e, err := s.repo.GetEngagement(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if !leave.CanCancel(e.Vacation) {
		return nil, ErrNoVacation
	}

	span, err := leave.ValidateModification(e.EndDate, start, end, s.now())
	if err != nil {
		return nil, err
	}

	return s.submitLeave(ctx, actor, e, span, model.ModificationVacationModified, "Vacation modified")
}

func (s *Service) submitLeave(ctx context.Context, actor *model.User, e *model.Engagement, span leave.Span, kind model.ModificationKind, label string) (*model.Vacation, error) {
	startStr := span.Start.Format("2006-01-02")
	endStr := span.End.Format("2006-01-02")

	res, err := s.client.UpdateEngagement(ctx, e.ID, marketplace.EngagementPatch{
		VacationStartDate: &startStr,
		VacationEndDate:   &endStr,
		ModifiedByID:      actor.ID,
		ModifiedByRole:    string(actor.Role),
	})
	if err != nil {
		return nil, err
	}

	// Сервер пересчитывает длительность сам; при расхождении верим ему.
	days := span.Days
	if res.VacationDays != nil {
		days = *res.VacationDays
	}
	refund := decimal.Zero
	if res.RefundAmount != nil {
		refund = *res.RefundAmount
	}

	before := ""
	if e.Vacation != nil {
		before = vacationLabel(e.Vacation.StartDate, e.Vacation.EndDate)
	}

	e.Vacation = &model.Vacation{
		StartDate:    span.Start,
		EndDate:      span.End,
		Days:         days,
		RefundAmount: refund,
	}
	e.Modifications = append(e.Modifications, model.Modification{
		Timestamp: s.now(),
		Kind:      kind,
		Label:     label,
		Before:    before,
		After:     vacationLabel(span.Start, span.End),
		Amount:    &refund,
	})

	if err := s.repo.SaveEngagement(ctx, e); err != nil {
		return nil, err
	}
	s.publish(Event{Type: EventEngagementUpdated, EngagementID: e.ID})

	return e.Vacation, nil
}

// CancelLeave отменяет оформленный отпуск. Отдельное действие, а не заявка
// с нулевой длительностью.
func (s *Service) CancelLeave(ctx context.Context, actor *model.User, engagementID int64) error {
	key := fmt.Sprintf("leave:%d", engagementID)
	if err := s.guard.TryAcquire(key); err != nil {
		return err
	}
	defer s.guard.Release(key)

	e, err := s.repo.GetEngagement(ctx, engagementID)
	if err != nil {
		return err
	}
	if !leave.CanCancel(e.Vacation) {
		return ErrNoVacation
	}

	_, err = s.client.UpdateEngagement(ctx, e.ID, marketplace.EngagementPatch{
		CancelVacation: true,
		ModifiedByID:   actor.ID,
		ModifiedByRole: string(actor.Role),
	})
	if err != nil {
		return err
	}

	before := vacationLabel(e.Vacation.StartDate, e.Vacation.EndDate)
	e.Vacation = nil
	e.Modifications = append(e.Modifications, model.Modification{
		Timestamp: s.now(),
		Kind:      model.ModificationVacationCanceled,
		Label:     "Vacation cancelled",
		Before:    before,
	})

	if err := s.repo.SaveEngagement(ctx, e); err != nil {
		return err
	}
	s.publish(Event{Type: EventEngagementUpdated, EngagementID: e.ID})

	return nil
}

// Reschedule переносит дату или время бронирования. Перенос допускается не
// более одного раза и только заранее; запрещённый перенос не уходит в сеть.
func (s *Service) Reschedule(ctx context.Context, actor *model.User, engagementID int64, newDate *time.Time, newStartTime, newEndTime *string) (*model.Engagement, error) {
	if newDate == nil && newStartTime == nil && newEndTime == nil {
		return nil, ErrEmptySchedulePatch
	}

	key := fmt.Sprintf("reschedule:%d", engagementID)
	if err := s.guard.TryAcquire(key); err != nil {
		return nil, err
	}
	defer s.guard.Release(key)

	e, err := s.repo.GetEngagement(ctx, engagementID)
	if err != nil {
		return nil, err
	}

	eligibility := decision.ModificationEligibility(*e, s.now())
	if !eligibility.Allowed {
		return nil, &EligibilityError{Reason: eligibility.Reason}
	}

	patch := marketplace.EngagementPatch{
		StartTime:      newStartTime,
		EndTime:        newEndTime,
		ModifiedByID:   actor.ID,
		ModifiedByRole: string(actor.Role),
	}
	if newDate != nil {
		d := newDate.Format("2006-01-02")
		patch.StartDate = &d
	}

	if _, err := s.client.UpdateEngagement(ctx, engagementID, patch); err != nil {
		return nil, err
	}

	before := scheduleLabel(e.StartDate, e.TimeRange)

	dateChanged := newDate != nil && !sameDay(*newDate, e.StartDate)
	timeChanged := (newStartTime != nil && *newStartTime != e.StartTime) ||
		(newEndTime != nil && *newEndTime != e.EndTime)

	if newDate != nil {
		e.StartDate = *newDate
	}
	if newStartTime != nil {
		e.StartTime = *newStartTime
	}
	if newEndTime != nil {
		e.EndTime = *newEndTime
	}
	if e.StartTime != "" && e.EndTime != "" {
		e.TimeRange = e.StartTime + " - " + e.EndTime
	}
	if instant := combineInstant(e.StartDate, e.StartTime); !instant.IsZero() {
		e.StartInstant = instant
	}

	kind := model.ModificationReschedule
	switch {
	case dateChanged && !timeChanged:
		kind = model.ModificationRescheduleDate
	case timeChanged && !dateChanged:
		kind = model.ModificationRescheduleTime
	}

	e.Modifications = append(e.Modifications, model.Modification{
		Timestamp: s.now(),
		Kind:      kind,
		Label:     "Rescheduled",
		Before:    before,
		After:     scheduleLabel(e.StartDate, e.TimeRange),
	})

	if err := s.repo.SaveEngagement(ctx, e); err != nil {
		return nil, err
	}
	s.publish(Event{Type: EventEngagementUpdated, EngagementID: e.ID})

	return e, nil
}

// RefreshPayouts запрашивает у сервера сводку и журнал выплат и заменяет
// локальную копию. При временном сбое отдаётся кэш.
func (s *Service) RefreshPayouts(ctx context.Context, providerID int64) (*model.PayoutSummary, []model.LedgerEntry, error) {
	resp, err := s.client.Payouts(ctx, providerID, true, true)
	if err != nil {
		if marketplace.IsRetryable(err) {
			summary, serr := s.repo.GetPayoutSummary(ctx, providerID)
			if serr == nil {
				ledger, lerr := s.repo.ListLedger(ctx, providerID)
				if lerr == nil {
					return summary, ledger, nil
				}
			}
		}
		return nil, nil, err
	}

	summary := resp.ToSummary(providerID, s.now())
	if err := s.repo.SavePayoutSummary(ctx, summary); err != nil {
		return nil, nil, err
	}

	ledger := resp.ToLedger(providerID)
	if err := s.repo.ReplaceLedger(ctx, providerID, ledger); err != nil {
		return nil, nil, err
	}

	return &summary, ledger, nil
}

// LedgerView возвращает сгруппированный для отображения журнал движений.
func (s *Service) LedgerView(ctx context.Context, providerID int64) (payout.LedgerView, error) {
	entries, err := s.repo.ListLedger(ctx, providerID)
	if err != nil {
		return payout.LedgerView{}, err
	}
	return payout.GroupLedger(entries), nil
}

// Withdrawals возвращает историю заявок исполнителя на вывод.
func (s *Service) Withdrawals(ctx context.Context, providerID int64) ([]model.WithdrawalRequest, error) {
	return s.repo.ListWithdrawalRequests(ctx, providerID)
}

// Withdraw отправляет заявку на вывод средств. Заявка проверяется против
// последней серверной сводки, уходит в сеть ровно один раз и фиксируется
// локально до отправки. После успеха сводка перечитывается с сервера:
// ответ 402 всегда побеждает локальное представление об остатке.
func (s *Service) Withdraw(ctx context.Context, providerID int64, amount decimal.Decimal, payoutMode string) (*model.WithdrawalRequest, error) {
	key := fmt.Sprintf("withdraw:%d", providerID)
	if err := s.guard.TryAcquire(key); err != nil {
		return nil, err
	}
	defer s.guard.Release(key)

	summary, err := s.repo.GetPayoutSummary(ctx, providerID)
	if errors.Is(err, repository.ErrSummaryNotFound) {
		summary, _, err = s.RefreshPayouts(ctx, providerID)
	}
	if err != nil {
		return nil, err
	}

	if err := payout.ValidateWithdrawal(amount, *summary); err != nil {
		return nil, err
	}

	req := model.WithdrawalRequest{
		ID:         uuid.New(),
		ProviderID: providerID,
		Amount:     amount,
		PayoutMode: payoutMode,
		Status:     model.WithdrawalPending,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateWithdrawalRequest(ctx, req); err != nil {
		return nil, err
	}

	if err := s.client.Withdraw(ctx, providerID, amount, payoutMode); err != nil {
		// Исход временного сбоя неизвестен: заявка остаётся PENDING и не
		// переотправляется. Явный отказ сервера фиксируется сразу.
		if !marketplace.IsRetryable(err) {
			req.Status = model.WithdrawalRejected
			_ = s.repo.UpdateWithdrawalStatus(ctx, req.ID, model.WithdrawalRejected)
		}
		if errors.Is(err, marketplace.ErrInsufficientFunds) {
			if refreshed, _, rerr := s.RefreshPayouts(ctx, providerID); rerr == nil && refreshed != nil {
				s.publish(Event{Type: EventPayoutsRefreshed})
			}
		}
		return &req, err
	}

	req.Status = model.WithdrawalAccepted
	if err := s.repo.UpdateWithdrawalStatus(ctx, req.ID, model.WithdrawalAccepted); err != nil {
		return &req, err
	}

	if _, _, err := s.RefreshPayouts(ctx, providerID); err == nil {
		s.publish(Event{Type: EventPayoutsRefreshed})
	}

	return &req, nil
}

func vacationLabel(start, end time.Time) string {
	return start.Format("2006-01-02") + " - " + end.Format("2006-01-02")
}

func scheduleLabel(date time.Time, timeRange string) string {
	if date.IsZero() {
		return timeRange
	}
	return strings.TrimSpace(date.Format("2006-01-02") + " " + timeRange)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// combineInstant собирает момент старта из даты и отображаемого времени.
// Формат времени тот же, что в нормализаторе (3:04PM).
func combineInstant(date time.Time, clock string) time.Time {
	if date.IsZero() || clock == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.Kitchen, clock)
	if err != nil {
		return time.Time{}
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}
