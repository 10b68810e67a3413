// Package password реализует функции для безопасного хеширования,
// проверки и валидации паролей.
//
// Политика сложности едина для регистрации и сброса пароля:
// не менее 8 символов, минимум одна буква и одна цифра.
package password

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinLength — минимальная длина пароля.
const MinLength = 8

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil, если пароль соответствует хэшу, иначе — ошибку.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ValidatePolicy проверяет пароль на соответствие политике сложности.
func ValidatePolicy(password string) error {
	const op = "password.ValidatePolicy"
	if len(password) < MinLength {
		return fmt.Errorf("%s: password must be at least %d characters", op, MinLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%s: password must contain at least one letter and one digit", op)
	}
	return nil
}
