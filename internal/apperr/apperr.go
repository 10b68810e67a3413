// Package apperr определяет единую таксономию ошибок сервиса.
// Сервисы аутентификации и подписок не пропускают панику и «сырые» ошибки
// за свою границу: каждая операция возвращает либо результат, либо *Error
// с видом из перечисленных ниже. HTTP-слой переводит вид ошибки в статус ответа.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind — вид ошибки сервиса.
type Kind string

const (
	// KindValidation — некорректный ввод, исправляется вызывающей стороной.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindInvalidCredentials — неизвестный email или неверный пароль.
	// Эти два случая неразличимы для вызывающей стороны.
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	// KindDuplicateEmail — email уже занят другой учётной записью.
	KindDuplicateEmail Kind = "DUPLICATE_EMAIL"
	// KindRoleMismatch — запрошенная при входе роль не совпадает с фактической.
	KindRoleMismatch Kind = "ROLE_MISMATCH"
	// KindRoleForbidden — роль пользователя не входит в требуемый набор.
	KindRoleForbidden Kind = "ROLE_FORBIDDEN"
	// KindSubscriptionRequired — доступ требует активной подписки.
	KindSubscriptionRequired Kind = "SUBSCRIPTION_REQUIRED"
	// KindCreatorPending — учётная запись создателя ещё не одобрена.
	KindCreatorPending Kind = "CREATOR_PENDING"
	// KindProviderUnavailable — внешняя система недоступна, повтор безопасен.
	KindProviderUnavailable Kind = "PROVIDER_UNAVAILABLE"
	// KindPartialFailure — запись в двух хранилищах применена частично.
	// Ошибка несёт UID созданной учётной записи для идемпотентного повтора.
	KindPartialFailure Kind = "PARTIAL_FAILURE"
	// KindLedgerWriteFailed — проекция обновлена, запись в журнал не удалась.
	KindLedgerWriteFailed Kind = "LEDGER_WRITE_FAILED"
	// KindInvalidAccountID — идентификатор учётной записи некорректен.
	KindInvalidAccountID Kind = "INVALID_ACCOUNT_ID"
	// KindNotFound — запись не найдена.
	KindNotFound Kind = "NOT_FOUND"
	// KindInternal — прочие внутренние ошибки.
	KindInternal Kind = "INTERNAL"
)

// Error — структурированная ошибка сервиса.
type Error struct {
	Kind       Kind
	Message    string
	AccountUID string // Заполняется для PartialFailure
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable сообщает, безопасен ли повтор операции без изменений ввода.
func (e *Error) Retryable() bool {
	return e.Kind == KindProviderUnavailable || e.Kind == KindPartialFailure
}

// HTTPStatus возвращает код HTTP-ответа для вида ошибки.
// 401 означает «очистить локальную сессию и перейти к входу»,
// 403 — «сессия действительна, доступ запрещён».
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInvalidAccountID:
		return http.StatusBadRequest
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindRoleMismatch, KindRoleForbidden, KindSubscriptionRequired, KindCreatorPending:
		return http.StatusForbidden
	case KindDuplicateEmail:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindProviderUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New создаёт ошибку заданного вида.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap создаёт ошибку заданного вида, оборачивая исходную.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// PartialFailure создаёт ошибку частично применённой записи в двух хранилищах.
// UID созданной учётной записи позволяет повторить вторую запись идемпотентно.
func PartialFailure(accountUID string, err error) *Error {
	return &Error{
		Kind:       KindPartialFailure,
		Message:    "application record write failed after account creation",
		AccountUID: accountUID,
		Err:        err,
	}
}

// InvalidCredentials возвращает единое сообщение для неизвестного email
// и неверного пароля, исключая перебор учётных записей.
func InvalidCredentials() *Error {
	return New(KindInvalidCredentials, "invalid email or password")
}

// From извлекает *Error из цепочки ошибок. Для прочих ошибок
// возвращает KindInternal с тем же текстом.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindInternal, "internal error", err)
}

// IsKind сообщает, принадлежит ли ошибка заданному виду.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
