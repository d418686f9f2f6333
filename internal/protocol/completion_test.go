package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mkhasanov/engagement-system/internal/model"
)

type memStore struct {
	mu   sync.Mutex
	days map[int64]model.ServiceDay
}

func newMemStore(days ...model.ServiceDay) *memStore {
	s := &memStore{days: make(map[int64]model.ServiceDay)}
	for _, d := range days {
		s.days[d.ID] = d
	}
	return s
}

func (s *memStore) GetServiceDay(ctx context.Context, dayID int64) (*model.ServiceDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.days[dayID]
	if !ok {
		return nil, errors.New("day not found")
	}
	cp := d
	return &cp, nil
}

func (s *memStore) SaveServiceDay(ctx context.Context, day *model.ServiceDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[day.ID] = *day
	return nil
}

func (s *memStore) day(id int64) model.ServiceDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.days[id]
}

type stubAPI struct {
	mu sync.Mutex

	startErr    error
	startCalls  int
	startBlock  chan struct{}
	otp         string
	otpErr      error
	completeErr error
}

func (a *stubAPI) StartServiceDay(ctx context.Context, dayID int64) error {
	a.mu.Lock()
	a.startCalls++
	block := a.startBlock
	a.mu.Unlock()

	if block != nil {
		<-block
	}
	return a.startErr
}

func (a *stubAPI) RequestOTP(ctx context.Context, dayID int64) (string, error) {
	return a.otp, a.otpErr
}

func (a *stubAPI) CompleteServiceDay(ctx context.Context, dayID int64, otp string) error {
	return a.completeErr
}

func (a *stubAPI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startCalls
}

func scheduledDay() model.ServiceDay {
	return model.ServiceDay{ID: 1, EngagementID: 10, Status: model.DayScheduled, CanStart: true}
}

func TestStart_OptimisticSuccess(t *testing.T) {
	store := newMemStore(scheduledDay())
	runner := NewRunner(store, &stubAPI{})

	day, err := runner.Start(context.Background(), 1)
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if day.Status != model.DayInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", day.Status)
	}
	if stored := store.day(1); stored.Status != model.DayInProgress || stored.CanStart {
		t.Fatalf("stored day = %+v, want in-progress without can_start", stored)
	}
}

func TestStart_RollbackIsExact(t *testing.T) {
	// Прежнее состояние с нетипичной комбинацией флагов: откат обязан
	// вернуть именно его, а не «состояние по умолчанию».
	initial := model.ServiceDay{ID: 1, EngagementID: 10, Status: model.DayScheduled, CanStart: true, CanGenerate: true}
	store := newMemStore(initial)
	api := &stubAPI{startErr: errors.New("boom")}
	runner := NewRunner(store, api)

	day, err := runner.Start(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected error from api")
	}
	if day == nil || day.Status != model.DayScheduled {
		t.Fatalf("returned day = %+v, want rolled back SCHEDULED", day)
	}

	if stored := store.day(1); stored != initial {
		t.Fatalf("stored day = %+v, want exact previous %+v", stored, initial)
	}
}

func TestStart_PreconditionBlocksNetworkCall(t *testing.T) {
	store := newMemStore(model.ServiceDay{ID: 1, Status: model.DayScheduled, CanStart: false})
	api := &stubAPI{}
	runner := NewRunner(store, api)

	_, err := runner.Start(context.Background(), 1)
	if !errors.Is(err, ErrStartNotAllowed) {
		t.Fatalf("err = %v, want ErrStartNotAllowed", err)
	}
	if api.calls() != 0 {
		t.Fatalf("network call made despite failed precondition")
	}
}

func TestStart_SingleFlight(t *testing.T) {
	store := newMemStore(scheduledDay())
	api := &stubAPI{startBlock: make(chan struct{})}
	runner := NewRunner(store, api)

	firstDone := make(chan error, 1)
	go func() {
		_, err := runner.Start(context.Background(), 1)
		firstDone <- err
	}()

	// Дожидаемся, пока первый запрос повиснет в сети.
	deadline := time.After(time.Second)
	for api.calls() == 0 {
		select {
		case <-deadline:
			t.Fatalf("first start never reached the network")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	_, err := runner.Start(context.Background(), 1)
	if !errors.Is(err, ErrActionInFlight) {
		t.Fatalf("second start err = %v, want ErrActionInFlight", err)
	}

	close(api.startBlock)
	if err := <-firstDone; err != nil {
		t.Fatalf("first start error: %v", err)
	}

	if got := api.calls(); got != 1 {
		t.Fatalf("network calls = %d, want exactly 1", got)
	}
	if stored := store.day(1); stored.Status != model.DayInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS after single transition", stored.Status)
	}
}

func TestRequestOTP_ActivatesCode(t *testing.T) {
	store := newMemStore(model.ServiceDay{ID: 1, Status: model.DayInProgress, CanGenerate: true})
	runner := NewRunner(store, &stubAPI{otp: "482913"})

	otp, err := runner.RequestOTP(context.Background(), 1)
	if err != nil {
		t.Fatalf("RequestOTP error: %v", err)
	}
	if otp != "482913" {
		t.Fatalf("otp = %q, want 482913", otp)
	}

	stored := store.day(1)
	if !stored.OTPActive || !stored.CanComplete {
		t.Fatalf("stored day = %+v, want otp_active and can_complete", stored)
	}
}

func TestRequestOTP_RequiresCapability(t *testing.T) {
	store := newMemStore(model.ServiceDay{ID: 1, Status: model.DayInProgress})
	runner := NewRunner(store, &stubAPI{otp: "1"})

	if _, err := runner.RequestOTP(context.Background(), 1); !errors.Is(err, ErrOTPNotAvailable) {
		t.Fatalf("err = %v, want ErrOTPNotAvailable", err)
	}
}

func TestComplete_NeverOptimistic(t *testing.T) {
	initial := model.ServiceDay{ID: 1, Status: model.DayInProgress, CanComplete: true, OTPActive: true}
	store := newMemStore(initial)
	runner := NewRunner(store, &stubAPI{completeErr: errors.New("otp rejected")})

	_, err := runner.Complete(context.Background(), 1, "0000")
	if err == nil {
		t.Fatalf("expected rejection")
	}

	// Отклонённый код: статус и otp_active не тронуты.
	if stored := store.day(1); stored != initial {
		t.Fatalf("stored day = %+v, want untouched %+v", stored, initial)
	}
}

func TestComplete_Success(t *testing.T) {
	store := newMemStore(model.ServiceDay{ID: 1, Status: model.DayInProgress, CanComplete: true, OTPActive: true})
	runner := NewRunner(store, &stubAPI{})

	day, err := runner.Complete(context.Background(), 1, "482913")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if day.Status != model.DayCompleted || day.OTPActive || day.CanComplete {
		t.Fatalf("day = %+v, want completed with cleared flags", day)
	}
}

func TestComplete_RequiresActiveOTP(t *testing.T) {
	store := newMemStore(model.ServiceDay{ID: 1, Status: model.DayInProgress, CanComplete: true})
	api := &stubAPI{}
	runner := NewRunner(store, api)

	if _, err := runner.Complete(context.Background(), 1, "1234"); !errors.Is(err, ErrCompleteNotAllowed) {
		t.Fatalf("err = %v, want ErrCompleteNotAllowed", err)
	}
}
