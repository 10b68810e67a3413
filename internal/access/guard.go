// Package access реализует решающую функцию доступа к защищённым
// разделам платформы. Функция чистая и идемпотентная: она только
// выносит решение, а редиректы, баннеры и таймеры — забота слоёв выше.
package access

import (
	"time"

	"github.com/cinexnema-cyber/projeto-xnema/internal/models"
)

// Пути перенаправления при отказе в доступе.
const (
	LoginPath     = "/login"
	SubscribePath = "/subscribe"
)

// Verdict — итог решения.
type Verdict int

const (
	// Pending — сессия ещё загружается, решение отложено.
	Pending Verdict = iota
	// Allow — доступ разрешён.
	Allow
	// Deny — доступ запрещён, причина в Decision.Reason.
	Deny
)

// Reason — причина отказа в доступе.
type Reason string

const (
	ReasonUnauthenticated      Reason = "unauthenticated"
	ReasonRoleForbidden        Reason = "role_forbidden"
	ReasonSubscriptionRequired Reason = "subscription_required"
)

// Requirement — декларативное требование к защищённому разделу.
type Requirement struct {
	Roles               []string // Пустой список — роль не проверяется
	RequireSubscription bool
}

// Decision — решение о доступе.
type Decision struct {
	Verdict    Verdict
	Reason     Reason
	RedirectTo string
}

// Evaluate выносит решение о доступе для текущего момента времени.
func Evaluate(session *models.SessionUser, loading bool, req Requirement) Decision {
	return EvaluateAt(session, loading, req, time.Now())
}

// EvaluateAt выносит решение о доступе на момент now.
//
// Порядок проверок фиксирован: загрузка, аутентификация, роль, подписка.
// Администратор удовлетворяет требованию подписки безусловно —
// это эксплуатационный обход, а не нарушение границы безопасности.
func EvaluateAt(session *models.SessionUser, loading bool, req Requirement, now time.Time) Decision {
	if loading {
		return Decision{Verdict: Pending}
	}
	if session == nil {
		return Decision{
			Verdict:    Deny,
			Reason:     ReasonUnauthenticated,
			RedirectTo: LoginPath,
		}
	}
	if len(req.Roles) > 0 && !containsRole(req.Roles, session.Role) {
		return Decision{
			Verdict: Deny,
			Reason:  ReasonRoleForbidden,
		}
	}
	if req.RequireSubscription && session.Role != models.RoleAdmin && !HasActiveSubscription(session, now) {
		return Decision{
			Verdict:    Deny,
			Reason:     ReasonSubscriptionRequired,
			RedirectTo: SubscribePath,
		}
	}
	return Decision{Verdict: Allow}
}

// HasActiveSubscription сообщает, действует ли подписка на момент now:
// статус active без даты окончания либо с датой в будущем, либо статус trial.
func HasActiveSubscription(session *models.SessionUser, now time.Time) bool {
	switch session.SubscriptionStatus {
	case models.SubscriptionActive:
		return session.SubscriptionEnd == nil || session.SubscriptionEnd.After(now)
	case models.SubscriptionTrial:
		return true
	default:
		return false
	}
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
