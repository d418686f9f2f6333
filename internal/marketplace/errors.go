package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrInsufficientFunds возвращается на ответ 402. Сервер всегда побеждает
// локальное представление о доступном остатке.
var ErrInsufficientFunds = errors.New("insufficient funds on the payout balance")

// RejectionError — отказ сервера с кодом 4xx. Message показывается
// пользователю дословно, когда сервер его прислал.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("marketplace rejected the request with status %d", e.StatusCode)
}

// TransientError — временный сбой (5xx или сетевой таймаут), запрос можно
// повторить. Таймаут отличается от отказа сервера отдельным сообщением.
type TransientError struct {
	Timeout bool
	Err     error
}

func (e *TransientError) Error() string {
	if e.Timeout {
		return "marketplace request timed out, please retry"
	}
	return fmt.Sprintf("marketplace is temporarily unavailable: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// wrapTransport классифицирует транспортную ошибку http-клиента.
func wrapTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Timeout: true, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Timeout: true, Err: err}
	}

	return &TransientError{Err: err}
}

// IsRetryable сообщает, стоит ли предлагать пользователю повтор.
func IsRetryable(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
