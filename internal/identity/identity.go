// Package identity определяет границу хранилища идентификации.
//
// Учётные записи живут за единым интерфейсом Store с двумя реализациями:
// локальной (собственная таблица accounts в PostgreSQL) и удалённой
// (управляемый провайдер по HTTP). Остальной код сервиса не знает,
// какая из них выбрана, и не делает запасных попыток «в обход» —
// выбор бэкенда фиксируется конфигурацией при старте.
package identity

import (
	"context"
	"errors"

	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// Ошибки хранилища идентификации.
var (
	// ErrDuplicateEmail — email уже занят другой учётной записью.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials — неизвестный email или неверный пароль.
	// Реализации обязаны возвращать одну и ту же ошибку в обоих случаях.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound — учётная запись не найдена.
	ErrNotFound = errors.New("account not found")
)

// Store описывает контракт хранилища идентификации.
type Store interface {
	// Register создаёт учётную запись и возвращает её с заполненным UID.
	Register(ctx context.Context, email, password, username, displayName, bio string) (*models.Account, error)

	// Authenticate проверяет пару email/пароль и возвращает учётную запись.
	// Неизвестный email и неверный пароль неразличимы для вызывающей стороны.
	Authenticate(ctx context.Context, email, password string) (*models.Account, error)

	// GetAccount возвращает учётную запись по UID.
	GetAccount(ctx context.Context, uid string) (*models.Account, error)

	// FindByEmail возвращает учётную запись по email или ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)

	// UpdatePassword заменяет пароль учётной записи.
	UpdatePassword(ctx context.Context, uid, newPassword string) error

	// SendPasswordReset инициирует письмо сброса пароля.
	SendPasswordReset(ctx context.Context, email string) error

	// SignOut аннулирует удалённую сессию учётной записи (best-effort).
	SignOut(ctx context.Context, uid string) error
}
