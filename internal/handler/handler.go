// Package handler содержит HTTP-обработчики API приложения.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mkhasanov/engagement-system/internal/leave"
	"github.com/mkhasanov/engagement-system/internal/marketplace"
	"github.com/mkhasanov/engagement-system/internal/middleware"
	"github.com/mkhasanov/engagement-system/internal/model"
	"github.com/mkhasanov/engagement-system/internal/payout"
	"github.com/mkhasanov/engagement-system/internal/protocol"
	"github.com/mkhasanov/engagement-system/internal/repository"
	"github.com/mkhasanov/engagement-system/internal/service"
	"github.com/mkhasanov/engagement-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string, role model.Role) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)

	RefreshEngagements(ctx context.Context, userID int64, month string) (*service.EngagementGroups, error)
	GetEngagement(ctx context.Context, id int64) (*model.Engagement, error)
	Decisions(ctx context.Context, engagementID int64) (*service.DecisionBundle, error)

	StartDay(ctx context.Context, dayID int64) (*model.ServiceDay, error)
	RequestDayOTP(ctx context.Context, dayID int64) (string, error)
	CompleteDay(ctx context.Context, dayID int64, otp string) (*model.ServiceDay, error)

	ApplyLeave(ctx context.Context, actor *model.User, engagementID int64, start, end time.Time) (*model.Vacation, error)
	ModifyLeave(ctx context.Context, actor *model.User, engagementID int64, start, end time.Time) (*model.Vacation, error)
	CancelLeave(ctx context.Context, actor *model.User, engagementID int64) error
	Reschedule(ctx context.Context, actor *model.User, engagementID int64, newDate *time.Time, newStartTime, newEndTime *string) (*model.Engagement, error)

	RefreshPayouts(ctx context.Context, providerID int64) (*model.PayoutSummary, []model.LedgerEntry, error)
	Withdrawals(ctx context.Context, providerID int64) ([]model.WithdrawalRequest, error)
	Withdraw(ctx context.Context, providerID int64, amount decimal.Decimal, payoutMode string) (*model.WithdrawalRequest, error)
}

// Handler реализует HTTP-обработчики API приложения.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		validate:       validator.New(),
	}
}

type credentialsRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=CUSTOMER PROVIDER"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	role := model.Role(req.Role)
	if role == "" {
		role = model.RoleProvider
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password, role)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, string(role))
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID, string(user.Role))
	w.WriteHeader(http.StatusOK)
}

type dayResponse struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	CanStart    bool   `json:"can_start"`
	CanGenerate bool   `json:"can_generate_otp"`
	CanComplete bool   `json:"can_complete"`
	OTPActive   bool   `json:"otp_active"`
}

type vacationResponse struct {
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	Days         int             `json:"days"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

type modificationResponse struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	Label     string `json:"label,omitempty"`
	Before    string `json:"before,omitempty"`
	After     string `json:"after,omitempty"`
}

type engagementResponse struct {
	ID            int64                  `json:"id"`
	BookingType   string                 `json:"booking_type"`
	TaskStatus    string                 `json:"task_status"`
	ProviderName  string                 `json:"provider_name"`
	StartDate     string                 `json:"start_date,omitempty"`
	EndDate       string                 `json:"end_date,omitempty"`
	TimeRange     string                 `json:"time_range,omitempty"`
	Amount        decimal.Decimal        `json:"amount"`
	Rescheduled   bool                   `json:"rescheduled"`
	Vacation      *vacationResponse      `json:"vacation,omitempty"`
	TodayService  *dayResponse           `json:"today_service,omitempty"`
	Modifications []modificationResponse `json:"modifications,omitempty"`
}

func toEngagementResponse(e model.Engagement) engagementResponse {
	resp := engagementResponse{
		ID:           e.ID,
		BookingType:  string(e.BookingType),
		TaskStatus:   string(e.TaskStatus),
		ProviderName: e.ProviderName,
		TimeRange:    e.TimeRange,
		Amount:       e.Amount,
		Rescheduled:  e.Rescheduled(),
	}
	if !e.StartDate.IsZero() {
		resp.StartDate = e.StartDate.Format("2006-01-02")
	}
	if !e.EndDate.IsZero() {
		resp.EndDate = e.EndDate.Format("2006-01-02")
	}
	if e.Vacation != nil {
		resp.Vacation = toVacationResponse(e.Vacation)
	}
	if e.TodayService != nil {
		resp.TodayService = toDayResponse(e.TodayService)
	}
	for _, m := range e.Modifications {
		resp.Modifications = append(resp.Modifications, modificationResponse{
			Timestamp: m.Timestamp.Format(time.RFC3339),
			Kind:      string(m.Kind),
			Label:     m.Label,
			Before:    m.Before,
			After:     m.After,
		})
	}
	return resp
}

func toVacationResponse(v *model.Vacation) *vacationResponse {
	return &vacationResponse{
		StartDate:    v.StartDate.Format("2006-01-02"),
		EndDate:      v.EndDate.Format("2006-01-02"),
		Days:         v.Days,
		RefundAmount: v.RefundAmount,
	}
}

func toDayResponse(d *model.ServiceDay) *dayResponse {
	return &dayResponse{
		ID:          d.ID,
		Status:      string(d.Status),
		CanStart:    d.CanStart,
		CanGenerate: d.CanGenerate,
		CanComplete: d.CanComplete,
		OTPActive:   d.OTPActive,
	}
}

type engagementsResponse struct {
	Current  []engagementResponse `json:"current"`
	Upcoming []engagementResponse `json:"upcoming"`
	Past     []engagementResponse `json:"past"`
	Stale    bool                 `json:"stale,omitempty"`
}

// GetEngagements возвращает бронирования пользователя за месяц,
// обновляя локальную копию с сервера маркетплейса.
func (h *Handler) GetEngagements(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		http.Error(w, "month must be in YYYY-MM format", http.StatusBadRequest)
		return
	}

	groups, err := h.service.RefreshEngagements(r.Context(), userID, month)
	if err != nil {
		h.writeError(w, err, "refresh engagements")
		return
	}

	resp := engagementsResponse{
		Current:  make([]engagementResponse, 0, len(groups.Current)),
		Upcoming: make([]engagementResponse, 0, len(groups.Upcoming)),
		Past:     make([]engagementResponse, 0, len(groups.Past)),
		Stale:    groups.Stale,
	}
	for _, e := range groups.Current {
		resp.Current = append(resp.Current, toEngagementResponse(e))
	}
	for _, e := range groups.Upcoming {
		resp.Upcoming = append(resp.Upcoming, toEngagementResponse(e))
	}
	for _, e := range groups.Past {
		resp.Past = append(resp.Past, toEngagementResponse(e))
	}

	h.writeJSON(w, resp)
}

// GetEngagement возвращает одно бронирование из локальной копии.
func (h *Handler) GetEngagement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	e, err := h.service.GetEngagement(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get engagement")
		return
	}

	h.writeJSON(w, toEngagementResponse(*e))
}

type decisionsResponse struct {
	DayState            string `json:"day_state"`
	DayLabel            string `json:"day_label"`
	CanStart            bool   `json:"can_start"`
	ModificationAllowed bool   `json:"modification_allowed"`
	ModificationReason  string `json:"modification_reason,omitempty"`
	CanCancelLeave      bool   `json:"can_cancel_leave"`
	MinLeaveDays        int    `json:"min_leave_days"`
}

// GetDecisions возвращает пакет решений по бронированию.
func (h *Handler) GetDecisions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	bundle, err := h.service.Decisions(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "decisions")
		return
	}

	h.writeJSON(w, decisionsResponse{
		DayState:            string(bundle.DayState.Kind),
		DayLabel:            bundle.DayState.Label,
		CanStart:            bundle.DayState.CanStart,
		ModificationAllowed: bundle.Modification.Allowed,
		ModificationReason:  bundle.Modification.Reason,
		CanCancelLeave:      bundle.CanCancelLeave,
		MinLeaveDays:        bundle.MinLeaveDays,
	})
}

// StartDay отмечает начало сегодняшнего выхода.
func (h *Handler) StartDay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	day, err := h.service.StartDay(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "start day")
		return
	}

	h.writeJSON(w, toDayResponse(day))
}

// RequestOTP запрашивает одноразовый код завершения выхода.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	otp, err := h.service.RequestDayOTP(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "request otp")
		return
	}

	h.writeJSON(w, map[string]string{"otp": otp, "ttl": protocol.OTPTTL})
}

type completeDayRequest struct {
	OTP string `json:"otp" validate:"required"`
}

// CompleteDay завершает выход по одноразовому коду.
func (h *Handler) CompleteDay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req completeDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if !validation.IsValidOTP(req.OTP) {
		http.Error(w, "otp must be 4 to 6 digits", http.StatusUnprocessableEntity)
		return
	}

	day, err := h.service.CompleteDay(r.Context(), id, req.OTP)
	if err != nil {
		h.writeError(w, err, "complete day")
		return
	}

	h.writeJSON(w, toDayResponse(day))
}

type updateEngagementRequest struct {
	Action string `json:"action" validate:"required,oneof=reschedule apply_leave modify_leave cancel_leave"`

	NewDate      *string `json:"new_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	NewStartTime *string `json:"new_start_time,omitempty"`
	NewEndTime   *string `json:"new_end_time,omitempty"`

	LeaveStart *string `json:"leave_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	LeaveEnd   *string `json:"leave_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateEngagement изменяет бронирование: перенос расписания либо
// оформление, изменение или отмена отпуска.
func (h *Handler) UpdateEngagement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req updateEngagementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch req.Action {
	case "reschedule":
		var newDate *time.Time
		if req.NewDate != nil {
			d, _ := time.Parse("2006-01-02", *req.NewDate)
			newDate = &d
		}
		e, err := h.service.Reschedule(r.Context(), actor, id, newDate, req.NewStartTime, req.NewEndTime)
		if err != nil {
			h.writeError(w, err, "reschedule")
			return
		}
		h.writeJSON(w, toEngagementResponse(*e))

	case "apply_leave", "modify_leave":
		if req.LeaveStart == nil || req.LeaveEnd == nil {
			http.Error(w, "leave_start and leave_end are required", http.StatusBadRequest)
			return
		}
		start, _ := time.Parse("2006-01-02", *req.LeaveStart)
		end, _ := time.Parse("2006-01-02", *req.LeaveEnd)

		var v *model.Vacation
		var err error
		if req.Action == "apply_leave" {
			v, err = h.service.ApplyLeave(r.Context(), actor, id, start, end)
		} else {
			v, err = h.service.ModifyLeave(r.Context(), actor, id, start, end)
		}
		if err != nil {
			h.writeError(w, err, req.Action)
			return
		}
		h.writeJSON(w, toVacationResponse(v))

	case "cancel_leave":
		if err := h.service.CancelLeave(r.Context(), actor, id); err != nil {
			h.writeError(w, err, "cancel leave")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

type ledgerEntryResponse struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"`
	Reason    string          `json:"reason"`
	CreatedAt string          `json:"created_at"`
}

type payoutsResponse struct {
	TotalEarned         decimal.Decimal       `json:"total_earned"`
	TotalWithdrawn      decimal.Decimal       `json:"total_withdrawn"`
	AvailableToWithdraw decimal.Decimal       `json:"available_to_withdraw"`
	OutstandingFees     decimal.Decimal       `json:"outstanding_fees"`
	SecurityDepositPaid bool                  `json:"security_deposit_paid"`
	MinWithdrawal       decimal.Decimal       `json:"min_withdrawal"`
	Ledger              []ledgerEntryResponse `json:"ledger"`
}

// GetPayouts возвращает сводку выплат и журнал движений исполнителя.
func (h *Handler) GetPayouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	summary, ledger, err := h.service.RefreshPayouts(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "refresh payouts")
		return
	}

	resp := payoutsResponse{
		TotalEarned:         summary.TotalEarned,
		TotalWithdrawn:      summary.TotalWithdrawn,
		AvailableToWithdraw: summary.AvailableToWithdraw,
		OutstandingFees:     payout.OutstandingFees(*summary),
		SecurityDepositPaid: summary.SecurityDepositPaid,
		MinWithdrawal:       payout.MinWithdrawal,
		Ledger:              make([]ledgerEntryResponse, 0, len(ledger)),
	}
	for _, e := range ledger {
		resp.Ledger = append(resp.Ledger, ledgerEntryResponse{
			ID:        e.ID,
			Amount:    e.Amount,
			Direction: string(e.Direction),
			Reason:    string(e.Reason),
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, resp)
}

type withdrawRequest struct {
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	PayoutMode string          `json:"payout_mode" validate:"required"`
}

type withdrawalResponse struct {
	ID         string          `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	PayoutMode string          `json:"payout_mode"`
	Status     string          `json:"status"`
	CreatedAt  string          `json:"created_at"`
}

// Withdraw отправляет заявку на вывод средств текущего исполнителя.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Withdraw(r.Context(), userID, req.Amount, req.PayoutMode)
	if err != nil {
		h.writeError(w, err, "withdraw")
		return
	}

	h.writeJSON(w, toWithdrawalResponse(*created))
}

// GetWithdrawals возвращает историю заявок на вывод текущего исполнителя.
func (h *Handler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	withdrawals, err := h.service.Withdrawals(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "withdrawals")
		return
	}

	if len(withdrawals) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]withdrawalResponse, 0, len(withdrawals))
	for _, wr := range withdrawals {
		resp = append(resp, toWithdrawalResponse(wr))
	}
	h.writeJSON(w, resp)
}

func toWithdrawalResponse(wr model.WithdrawalRequest) withdrawalResponse {
	return withdrawalResponse{
		ID:         wr.ID.String(),
		Amount:     wr.Amount,
		PayoutMode: wr.PayoutMode,
		Status:     string(wr.Status),
		CreatedAt:  wr.CreatedAt.Format(time.RFC3339),
	}
}

func actorFromContext(ctx context.Context) (*model.User, bool) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, false
	}
	role, ok := middleware.GetUserRoleFromContext(ctx)
	if !ok {
		return nil, false
	}
	return &model.User{ID: userID, Role: model.Role(role)}, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// writeError переводит доменные ошибки в HTTP-статусы единым для всех
// обработчиков способом: локальные отказы валидации — 422, занятое
// действие — 409, нехватка средств — 402, временный сбой сервера — 502.
func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	var (
		verr *leave.ValidationError
		eerr *service.EligibilityError
		rerr *marketplace.RejectionError
		terr *marketplace.TransientError
	)

	switch {
	case errors.Is(err, protocol.ErrActionInFlight):
		h.writeJSONError(w, http.StatusConflict, errorResponse{Message: err.Error()})
	case errors.Is(err, marketplace.ErrInsufficientFunds):
		h.writeJSONError(w, http.StatusPaymentRequired, errorResponse{Message: err.Error()})
	case errors.As(err, &verr):
		h.writeJSONError(w, http.StatusUnprocessableEntity, errorResponse{Message: verr.Message, Code: verr.Code})
	case errors.As(err, &eerr):
		h.writeJSONError(w, http.StatusUnprocessableEntity, errorResponse{Message: eerr.Reason})
	case errors.Is(err, payout.ErrNonPositiveAmount),
		errors.Is(err, payout.ErrBelowMinimum),
		errors.Is(err, payout.ErrExceedsAvailable),
		errors.Is(err, service.ErrNoVacation),
		errors.Is(err, service.ErrEmptySchedulePatch):
		h.writeJSONError(w, http.StatusUnprocessableEntity, errorResponse{Message: err.Error()})
	case errors.Is(err, protocol.ErrStartNotAllowed),
		errors.Is(err, protocol.ErrOTPNotAvailable),
		errors.Is(err, protocol.ErrCompleteNotAllowed):
		h.writeJSONError(w, http.StatusConflict, errorResponse{Message: err.Error()})
	case errors.Is(err, repository.ErrEngagementNotFound),
		errors.Is(err, repository.ErrServiceDayNotFound),
		errors.Is(err, repository.ErrSummaryNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.As(err, &rerr):
		h.writeJSONError(w, rerr.StatusCode, errorResponse{Message: rerr.Error()})
	case errors.As(err, &terr):
		h.writeJSONError(w, http.StatusBadGateway, errorResponse{Message: terr.Error()})
	default:
		h.logger.Error(op+" error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
