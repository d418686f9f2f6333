// Package protocol реализует двухшаговый переход выхода на услугу:
// «начать» и «завершить по одноразовому коду».
//
// Машина состояний одного выхода:
//
//	SCHEDULED --start--> IN_PROGRESS                    [нужен can_start]
//	IN_PROGRESS --requestOtp--> IN_PROGRESS(otp_active) [нужен can_generate_otp]
//	IN_PROGRESS(otp_active) --complete(otp)--> COMPLETED [нужен can_complete]
//
// start выполняется оптимистично: локальный статус меняется сразу, при
// ошибке откатывается ровно к зафиксированному прежнему состоянию.
// complete никогда не меняет статус до подтверждения сервера: здесь
// двигаются деньги.
package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkhasanov/engagement-system/internal/model"
)

// OTPTTL — срок жизни кода. Применяет его сервер; клиент только показывает.
const OTPTTL = "10 minutes"

// Ошибки предусловий: обречённый запрос в сеть не отправляется.
var (
	ErrStartNotAllowed    = errors.New("service day cannot be started in its current state")
	ErrOTPNotAvailable    = errors.New("otp cannot be generated for this service day")
	ErrCompleteNotAllowed = errors.New("service day is not ready to be completed")
)

// DayStore — канонический локальный стор состояний выходов. Результат
// незавершённого запроса применяется сюда независимо от жизни экрана.
type DayStore interface {
	GetServiceDay(ctx context.Context, dayID int64) (*model.ServiceDay, error)
	SaveServiceDay(ctx context.Context, day *model.ServiceDay) error
}

// API — сетевые операции над выходом.
type API interface {
	StartServiceDay(ctx context.Context, dayID int64) error
	RequestOTP(ctx context.Context, dayID int64) (string, error)
	CompleteServiceDay(ctx context.Context, dayID int64, otp string) error
}

// command фиксирует оптимистичный переход: прежнее состояние запоминается
// до записи, чтобы откат был точным, а не сбросом к константе.
type command struct {
	previous model.ServiceDay
	pending  model.ServiceDayStatus
}

// Runner координирует переходы выходов с single-flight на каждое действие.
type Runner struct {
	store DayStore
	api   API
	guard *Guard
}

// NewRunner создаёт координатор переходов.
func NewRunner(store DayStore, api API) *Runner {
	return &Runner{store: store, api: api, guard: NewGuard()}
}

// Start переводит выход SCHEDULED -> IN_PROGRESS. Обновление оптимистичное,
// при отказе сервера состояние откатывается и ошибка отдаётся вызывающему.
func (r *Runner) Start(ctx context.Context, dayID int64) (*model.ServiceDay, error) {
	key := fmt.Sprintf("start:%d", dayID)
	if err := r.guard.TryAcquire(key); err != nil {
		return nil, err
	}
	defer r.guard.Release(key)

	day, err := r.store.GetServiceDay(ctx, dayID)
	if err != nil {
		return nil, err
	}
	if day.Status != model.DayScheduled || !day.CanStart {
		return nil, ErrStartNotAllowed
	}

	cmd := command{previous: *day, pending: model.DayInProgress}

	day.Status = cmd.pending
	day.CanStart = false
	day.CanGenerate = true
	if err := r.store.SaveServiceDay(ctx, day); err != nil {
		return nil, err
	}

	if err := r.api.StartServiceDay(ctx, dayID); err != nil {
		rollback := cmd.previous
		if saveErr := r.store.SaveServiceDay(ctx, &rollback); saveErr != nil {
			return nil, fmt.Errorf("rollback after failed start: %w", saveErr)
		}
		return &rollback, err
	}

	return day, nil
}

// RequestOTP запрашивает код завершения и помечает его активным локально.
func (r *Runner) RequestOTP(ctx context.Context, dayID int64) (string, error) {
	key := fmt.Sprintf("otp:%d", dayID)
	if err := r.guard.TryAcquire(key); err != nil {
		return "", err
	}
	defer r.guard.Release(key)

	day, err := r.store.GetServiceDay(ctx, dayID)
	if err != nil {
		return "", err
	}
	if day.Status != model.DayInProgress || !day.CanGenerate {
		return "", ErrOTPNotAvailable
	}

	otp, err := r.api.RequestOTP(ctx, dayID)
	if err != nil {
		return "", err
	}

	day.OTPActive = true
	day.CanComplete = true
	if err := r.store.SaveServiceDay(ctx, day); err != nil {
		return "", err
	}

	return otp, nil
}

// Complete завершает выход по коду. Никакого оптимизма: статус меняется
// только после успешного ответа. Отклонённый код оставляет выход
// IN_PROGRESS с нетронутым otp_active.
func (r *Runner) Complete(ctx context.Context, dayID int64, otp string) (*model.ServiceDay, error) {
	key := fmt.Sprintf("complete:%d", dayID)
	if err := r.guard.TryAcquire(key); err != nil {
		return nil, err
	}
	defer r.guard.Release(key)

	day, err := r.store.GetServiceDay(ctx, dayID)
	if err != nil {
		return nil, err
	}
	if day.Status != model.DayInProgress || !day.CanComplete || !day.OTPActive {
		return nil, ErrCompleteNotAllowed
	}

	if err := r.api.CompleteServiceDay(ctx, dayID, otp); err != nil {
		return nil, err
	}

	day.Status = model.DayCompleted
	day.OTPActive = false
	day.CanComplete = false
	day.CanGenerate = false
	if err := r.store.SaveServiceDay(ctx, day); err != nil {
		return nil, err
	}

	return day, nil
}
