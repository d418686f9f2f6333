// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// Допустимая длина одноразового кода завершения выхода.
const (
	minOTPLength = 4
	maxOTPLength = 6
)

// IsValidOTP проверяет формат одноразового кода перед отправкой на сервер:
// только цифры, длина от 4 до 6. Содержимое кода проверяет сервер.
func IsValidOTP(otp string) bool {
	if len(otp) < minOTPLength || len(otp) > maxOTPLength {
		return false
	}

	for _, ch := range otp {
		if !unicode.IsDigit(ch) {
			return false
		}
	}

	return true
}
