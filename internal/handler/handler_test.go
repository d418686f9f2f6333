package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mkhasanov/engagement-system/internal/decision"
	"github.com/mkhasanov/engagement-system/internal/leave"
	"github.com/mkhasanov/engagement-system/internal/marketplace"
	"github.com/mkhasanov/engagement-system/internal/middleware"
	"github.com/mkhasanov/engagement-system/internal/model"
	"github.com/mkhasanov/engagement-system/internal/protocol"
	"github.com/mkhasanov/engagement-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUser *model.User
	authErr  error

	groups     *service.EngagementGroups
	groupsErr  error
	engagement *model.Engagement
	decisions  *service.DecisionBundle

	day    *model.ServiceDay
	dayErr error
	otp    string
	otpErr error

	vacation *model.Vacation
	leaveErr error

	rescheduled   *model.Engagement
	rescheduleErr error

	summary    *model.PayoutSummary
	ledger     []model.LedgerEntry
	payoutsErr error

	withdrawal    *model.WithdrawalRequest
	withdrawErr   error
	withdrawCalls int

	withdrawals []model.WithdrawalRequest
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string, role model.Role) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) RefreshEngagements(ctx context.Context, userID int64, month string) (*service.EngagementGroups, error) {
	return s.groups, s.groupsErr
}

func (s *stubService) GetEngagement(ctx context.Context, id int64) (*model.Engagement, error) {
	return s.engagement, nil
}

func (s *stubService) Decisions(ctx context.Context, engagementID int64) (*service.DecisionBundle, error) {
	return s.decisions, nil
}

func (s *stubService) StartDay(ctx context.Context, dayID int64) (*model.ServiceDay, error) {
	return s.day, s.dayErr
}

func (s *stubService) RequestDayOTP(ctx context.Context, dayID int64) (string, error) {
	return s.otp, s.otpErr
}

func (s *stubService) CompleteDay(ctx context.Context, dayID int64, otp string) (*model.ServiceDay, error) {
	return s.day, s.dayErr
}

func (s *stubService) ApplyLeave(ctx context.Context, actor *model.User, engagementID int64, start, end time.Time) (*model.Vacation, error) {
	return s.vacation, s.leaveErr
}

func (s *stubService) ModifyLeave(ctx context.Context, actor *model.User, engagementID int64, start, end time.Time) (*model.Vacation, error) {
	return s.vacation, s.leaveErr
}

func (s *stubService) CancelLeave(ctx context.Context, actor *model.User, engagementID int64) error {
	return s.leaveErr
}

func (s *stubService) Reschedule(ctx context.Context, actor *model.User, engagementID int64, newDate *time.Time, newStartTime, newEndTime *string) (*model.Engagement, error) {
	return s.rescheduled, s.rescheduleErr
}

func (s *stubService) RefreshPayouts(ctx context.Context, providerID int64) (*model.PayoutSummary, []model.LedgerEntry, error) {
	return s.summary, s.ledger, s.payoutsErr
}

func (s *stubService) Withdrawals(ctx context.Context, providerID int64) ([]model.WithdrawalRequest, error) {
	return s.withdrawals, nil
}

func (s *stubService) Withdraw(ctx context.Context, providerID int64, amount decimal.Decimal, payoutMode string) (*model.WithdrawalRequest, error) {
	s.withdrawCalls++
	return s.withdrawal, s.withdrawErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

// authorizedRequest прогоняет запрос через роутер с валидной cookie исполнителя.
func authorizedRequest(t *testing.T, h *Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	cookieRec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(cookieRec, 7, "PROVIDER")
	cookies := cookieRec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no auth cookie set")
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.AddCookie(cookies[0])

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{registerUserID: 42}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "pass", Role: "PROVIDER"})
	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("auth cookie not set on register")
	}
}

func TestRegister_RejectsUnknownRole(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body := []byte(`{"login":"user","password":"pass","role":"ADMIN"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{authErr: service.ErrInvalidCredentials}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestGetEngagements_RequiresAuth(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/engagements?month=2026-08", nil)
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestGetEngagements_ReturnsGroups(t *testing.T) {
	svc := &stubService{
		groups: &service.EngagementGroups{
			Current: []model.Engagement{{
				ID:           42,
				BookingType:  model.BookingMonthly,
				TaskStatus:   model.TaskNotStarted,
				ProviderName: "Asha",
				TimeRange:    "9:30AM - 11:30AM",
				Amount:       decimal.NewFromInt(1500),
			}},
		},
	}
	h := newTestHandler(t, svc)

	rec := authorizedRequest(t, h, http.MethodGet, "/api/engagements?month=2026-08", nil)

	if rec.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusOK)
	}

	var resp engagementsResponse
	if err := json.NewDecoder(rec.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Current) != 1 || resp.Current[0].ID != 42 {
		t.Fatalf("current = %+v, want one engagement 42", resp.Current)
	}
	if resp.Current[0].TimeRange != "9:30AM - 11:30AM" {
		t.Fatalf("time range = %q", resp.Current[0].TimeRange)
	}
}

func TestGetEngagements_BadMonth(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := authorizedRequest(t, h, http.MethodGet, "/api/engagements?month=aug", nil)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestGetDecisions_ReturnsBundle(t *testing.T) {
	svc := &stubService{
		decisions: &service.DecisionBundle{
			DayState:     decision.DayState{Kind: decision.DayScheduled, CanStart: true, Label: "Not Started"},
			Modification: decision.Eligibility{Reason: decision.ReasonWindowClosed},
			MinLeaveDays: leave.MinDays,
		},
	}
	h := newTestHandler(t, svc)

	rec := authorizedRequest(t, h, http.MethodGet, "/api/engagements/42/decisions", nil)

	var resp decisionsResponse
	if err := json.NewDecoder(rec.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DayState != "SCHEDULED" || !resp.CanStart || resp.DayLabel != "Not Started" {
		t.Fatalf("day state = %+v", resp)
	}
	if resp.ModificationAllowed || resp.ModificationReason == "" {
		t.Fatalf("modification decision lost: %+v", resp)
	}
	if resp.MinLeaveDays != 10 {
		t.Fatalf("min leave days = %d, want 10", resp.MinLeaveDays)
	}
}

func TestCompleteDay_RejectsMalformedOTP(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	body := []byte(`{"otp":"12a4"}`)
	rec := authorizedRequest(t, h, http.MethodPost, "/api/days/5/complete", body)

	if rec.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestCompleteDay_ConflictWhenNotReady(t *testing.T) {
	svc := &stubService{dayErr: protocol.ErrCompleteNotAllowed}
	h := newTestHandler(t, svc)

	body := []byte(`{"otp":"1234"}`)
	rec := authorizedRequest(t, h, http.MethodPost, "/api/days/5/complete", body)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestStartDay_InFlightConflict(t *testing.T) {
	svc := &stubService{dayErr: protocol.ErrActionInFlight}
	h := newTestHandler(t, svc)

	rec := authorizedRequest(t, h, http.MethodPost, "/api/days/5/start", nil)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestUpdateEngagement_LeaveTooShort(t *testing.T) {
	svc := &stubService{leaveErr: &leave.ValidationError{Code: leave.CodeTooShort, Message: "Leave must be at least 10 days, got 9"}}
	h := newTestHandler(t, svc)

	body := []byte(`{"action":"apply_leave","leave_start":"2026-09-01","leave_end":"2026-09-09"}`)
	rec := authorizedRequest(t, h, http.MethodPut, "/api/engagements/42", body)

	if rec.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnprocessableEntity)
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != leave.CodeTooShort {
		t.Fatalf("code = %q, want %q", resp.Code, leave.CodeTooShort)
	}
}

func TestUpdateEngagement_RescheduleBlocked(t *testing.T) {
	svc := &stubService{rescheduleErr: &service.EligibilityError{Reason: decision.ReasonAlreadyModified}}
	h := newTestHandler(t, svc)

	body := []byte(`{"action":"reschedule","new_start_time":"4:00PM"}`)
	rec := authorizedRequest(t, h, http.MethodPut, "/api/engagements/42", body)

	if rec.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnprocessableEntity)
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != decision.ReasonAlreadyModified {
		t.Fatalf("message = %q, want verbatim eligibility reason", resp.Message)
	}
}

func TestUpdateEngagement_UnknownAction(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body := []byte(`{"action":"explode"}`)
	rec := authorizedRequest(t, h, http.MethodPut, "/api/engagements/42", body)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	svc := &stubService{
		withdrawal:  &model.WithdrawalRequest{Status: model.WithdrawalRejected},
		withdrawErr: marketplace.ErrInsufficientFunds,
	}
	h := newTestHandler(t, svc)

	body := []byte(`{"amount":1000,"payout_mode":"BANK"}`)
	rec := authorizedRequest(t, h, http.MethodPost, "/api/payouts/withdraw", body)

	if rec.Result().StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusPaymentRequired)
	}
}

func TestWithdraw_TransientMapsToBadGateway(t *testing.T) {
	svc := &stubService{withdrawErr: &marketplace.TransientError{Timeout: true}}
	h := newTestHandler(t, svc)

	body := []byte(`{"amount":1000,"payout_mode":"BANK"}`)
	rec := authorizedRequest(t, h, http.MethodPost, "/api/payouts/withdraw", body)

	if rec.Result().StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadGateway)
	}
}

func TestWithdraw_ServerRejectionVerbatim(t *testing.T) {
	svc := &stubService{withdrawErr: &marketplace.RejectionError{StatusCode: 403, Message: "KYC verification required"}}
	h := newTestHandler(t, svc)

	body := []byte(`{"amount":1000,"payout_mode":"BANK"}`)
	rec := authorizedRequest(t, h, http.MethodPost, "/api/payouts/withdraw", body)

	if rec.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusForbidden)
	}

	var resp errorResponse
	if err := json.NewDecoder(rec.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "KYC verification required" {
		t.Fatalf("message = %q, want verbatim server message", resp.Message)
	}
}

func TestGetPayouts_ReturnsSummaryAndLedger(t *testing.T) {
	svc := &stubService{
		summary: &model.PayoutSummary{
			TotalEarned:         decimal.NewFromInt(12000),
			TotalWithdrawn:      decimal.NewFromInt(4000),
			AvailableToWithdraw: decimal.NewFromInt(6500),
		},
		ledger: []model.LedgerEntry{{
			ID:        1,
			Amount:    decimal.NewFromInt(500),
			Direction: model.DirectionCredit,
			Reason:    model.ReasonDailyEarned,
			CreatedAt: time.Now(),
		}},
	}
	h := newTestHandler(t, svc)

	rec := authorizedRequest(t, h, http.MethodGet, "/api/payouts", nil)

	var resp payoutsResponse
	if err := json.NewDecoder(rec.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.AvailableToWithdraw.Equal(decimal.NewFromInt(6500)) {
		t.Fatalf("available = %s, want 6500", resp.AvailableToWithdraw)
	}
	// 12000 - 4000 - 6500
	if !resp.OutstandingFees.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("fees = %s, want 1500", resp.OutstandingFees)
	}
	if !resp.MinWithdrawal.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("min withdrawal = %s, want 500", resp.MinWithdrawal)
	}
	if len(resp.Ledger) != 1 || resp.Ledger[0].Reason != "DAILY_EARNED" {
		t.Fatalf("ledger = %+v", resp.Ledger)
	}
}

func TestGetWithdrawals_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := authorizedRequest(t, h, http.MethodGet, "/api/payouts/withdrawals", nil)

	if rec.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNoContent)
	}
}
