// Package marketplace предоставляет клиент удалённого API маркетплейса
// домашних услуг: бронирования, выходы на услугу, выплаты и вывод средств.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/mkhasanov/engagement-system/internal/model"
	"github.com/mkhasanov/engagement-system/internal/normalize"
)

// Client инкапсулирует HTTP-взаимодействие с API маркетплейса.
// Чтение идёт через клиент с повторами; изменяющие запросы отправляются
// ровно один раз — повторную отправку запрещает single-flight в сервисе.
type Client struct {
	baseURL    string
	getClient  *retryablehttp.Client
	postClient *http.Client
}

// NewClient создаёт клиент для API маркетплейса по указанному адресу.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		getClient:  rc,
		postClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EngagementsResponse — сырые бронирования, сгруппированные сервером.
type EngagementsResponse struct {
	Current  []normalize.RawEngagement `json:"current"`
	Upcoming []normalize.RawEngagement `json:"upcoming"`
	Past     []normalize.RawEngagement `json:"past"`
}

// RawLedgerEntry — запись журнала движений в ответе сервиса выплат.
type RawLedgerEntry struct {
	ID           int64           `json:"id"`
	EngagementID *int64          `json:"engagement_id"`
	Amount       decimal.Decimal `json:"amount"`
	Direction    string          `json:"direction"`
	Reason       string          `json:"reason"`
	CreatedAt    int64           `json:"created_at"`
}

// RawPayout — состоявшаяся выплата в ответе сервиса выплат.
type RawPayout struct {
	Amount     decimal.Decimal `json:"amount"`
	PayoutMode string          `json:"payout_mode"`
	CreatedAt  int64           `json:"created_at"`
}

// PayoutsResponse — сводка, журнал и история выплат исполнителя.
type PayoutsResponse struct {
	Summary struct {
		TotalEarned           decimal.Decimal `json:"total_earned"`
		TotalWithdrawn        decimal.Decimal `json:"total_withdrawn"`
		AvailableToWithdraw   decimal.Decimal `json:"available_to_withdraw"`
		SecurityDepositPaid   bool            `json:"security_deposit_paid"`
		SecurityDepositAmount decimal.Decimal `json:"security_deposit_amount"`
	} `json:"summary"`
	Ledger  []RawLedgerEntry `json:"ledger"`
	Payouts []RawPayout      `json:"payouts"`
}

// EngagementPatch — изменяемые поля бронирования для PUT-запроса.
type EngagementPatch struct {
	StartDate         *string `json:"start_date,omitempty"`
	EndDate           *string `json:"end_date,omitempty"`
	StartTime         *string `json:"start_time,omitempty"`
	EndTime           *string `json:"end_time,omitempty"`
	VacationStartDate *string `json:"vacation_start_date,omitempty"`
	VacationEndDate   *string `json:"vacation_end_date,omitempty"`
	CancelVacation    bool    `json:"cancel_vacation,omitempty"`
	ModifiedByID      int64   `json:"modified_by_id"`
	ModifiedByRole    string  `json:"modified_by_role"`
}

// UpdateResult — ответ сервера на изменение бронирования. Цифры сервера
// авторитетны: при расхождении с локальным расчётом принимаются они.
type UpdateResult struct {
	VacationDays *int             `json:"vacation_days"`
	RefundAmount *decimal.Decimal `json:"refund_amount"`
}

// Engagements запрашивает бронирования пользователя за месяц (формат YYYY-MM).
func (c *Client) Engagements(ctx context.Context, userID int64, month string) (*EngagementsResponse, error) {
	url := fmt.Sprintf("%s/api/engagements?user_id=%d&month=%s", c.base(), userID, month)

	var resp EngagementsResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartServiceDay отмечает начало сегодняшнего выхода.
func (c *Client) StartServiceDay(ctx context.Context, dayID int64) error {
	url := fmt.Sprintf("%s/api/service-days/%d/start", c.base(), dayID)
	return c.send(ctx, http.MethodPost, url, nil, nil)
}

// RequestOTP запрашивает одноразовый код завершения выхода.
func (c *Client) RequestOTP(ctx context.Context, dayID int64) (string, error) {
	url := fmt.Sprintf("%s/api/service-days/%d/otp", c.base(), dayID)

	var resp struct {
		OTP string `json:"otp"`
	}
	if err := c.send(ctx, http.MethodPost, url, nil, &resp); err != nil {
		return "", err
	}
	return resp.OTP, nil
}

// CompleteServiceDay завершает выход; код проверяет сервер.
func (c *Client) CompleteServiceDay(ctx context.Context, dayID int64, otp string) error {
	url := fmt.Sprintf("%s/api/service-days/%d/complete", c.base(), dayID)
	body := map[string]string{"otp": otp}
	return c.send(ctx, http.MethodPost, url, body, nil)
}

// UpdateEngagement изменяет расписание или отпуск бронирования.
func (c *Client) UpdateEngagement(ctx context.Context, engagementID int64, patch EngagementPatch) (*UpdateResult, error) {
	url := fmt.Sprintf("%s/api/engagements/%d", c.base(), engagementID)

	var res UpdateResult
	if err := c.send(ctx, http.MethodPut, url, patch, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Payouts запрашивает сводку выплат; журнал и история включаются по флагам.
func (c *Client) Payouts(ctx context.Context, providerID int64, detailed, includeLedger bool) (*PayoutsResponse, error) {
	url := fmt.Sprintf("%s/api/payouts?provider_id=%d&detailed=%t&include_ledger=%t",
		c.base(), providerID, detailed, includeLedger)

	var resp PayoutsResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Withdraw отправляет заявку на вывод средств. Запрос уходит ровно один раз.
func (c *Client) Withdraw(ctx context.Context, providerID int64, amount decimal.Decimal, payoutMode string) error {
	url := fmt.Sprintf("%s/api/providers/%d/withdraw", c.base(), providerID)
	body := map[string]any{
		"amount":      amount,
		"payout_mode": payoutMode,
	}
	return c.send(ctx, http.MethodPost, url, body, nil)
}

// ToSummary переводит сводку из ответа сервиса выплат в доменный вид.
func (r *PayoutsResponse) ToSummary(providerID int64, refreshedAt time.Time) model.PayoutSummary {
	return model.PayoutSummary{
		ProviderID:            providerID,
		TotalEarned:           r.Summary.TotalEarned,
		TotalWithdrawn:        r.Summary.TotalWithdrawn,
		AvailableToWithdraw:   r.Summary.AvailableToWithdraw,
		SecurityDepositPaid:   r.Summary.SecurityDepositPaid,
		SecurityDepositAmount: r.Summary.SecurityDepositAmount,
		RefreshedAt:           refreshedAt,
	}
}

// ToLedger переводит записи журнала в доменный вид.
func (r *PayoutsResponse) ToLedger(providerID int64) []model.LedgerEntry {
	if len(r.Ledger) == 0 {
		return nil
	}
	entries := make([]model.LedgerEntry, 0, len(r.Ledger))
	for _, e := range r.Ledger {
		entry := model.LedgerEntry{
			ID:           e.ID,
			ProviderID:   providerID,
			EngagementID: e.EngagementID,
			Amount:       e.Amount,
			Direction:    model.LedgerDirection(strings.ToUpper(e.Direction)),
			Reason:       model.ParseLedgerReason(e.Reason),
		}
		if e.CreatedAt > 0 {
			entry.CreatedAt = time.Unix(e.CreatedAt, 0).UTC()
		}
		entries = append(entries, entry)
	}
	return entries
}

func (c *Client) base() string {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("marketplace client not configured")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.getClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, url string, body, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("marketplace client not configured")
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.postClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// classify переводит статус ответа в ошибку: 2xx — успех, 402 — нехватка
// средств, прочие 4xx — отказ с сообщением сервера, 5xx — временный сбой.
func classify(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrInsufficientFunds
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &RejectionError{StatusCode: resp.StatusCode, Message: serverMessage(resp.Body)}
	default:
		return &TransientError{Err: fmt.Errorf("server returned status %d", resp.StatusCode)}
	}
}

func serverMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
