// Package models содержит доменную модель пользователя платформы:
// учётную запись в хранилище идентификации (Account), прикладную запись
// с ролью и состоянием подписки (AppUser) и объединённое представление
// для активной сессии (SessionUser).
package models

import "time"

// Роли пользователя платформы.
const (
	RoleUser       = "user"
	RoleSubscriber = "subscriber"
	RoleCreator    = "creator"
	RoleAdmin      = "admin"
)

// Статусы подписки пользователя.
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
	SubscriptionTrial    = "trial"
)

// Статусы заявки создателя контента.
const (
	CreatorNone     = "none"
	CreatorPending  = "pending"
	CreatorApproved = "approved"
)

// Account представляет учётную запись в хранилище идентификации.
// UID неизменяем на протяжении жизни учётной записи, email хранится
// в нижнем регистре и уникален. PasswordHash никогда не сериализуется.
type Account struct {
	UID          string // Уникальный идентификатор учётной записи (uuid)
	Email        string // Электронная почта (уникальная, нижний регистр)
	Username     string // Имя пользователя
	DisplayName  string // Отображаемое имя
	Bio          string // Описание профиля (опционально)
	PasswordHash string // Хэш пароля, не покидает серверную часть
	CreatedAt    time.Time
}

// AppUser представляет прикладную запись пользователя, ключом служит UID
// учётной записи. Хранит роль и проекцию состояния подписки, которыми
// хранилище идентификации не владеет.
type AppUser struct {
	AccountUID         string     // UID учётной записи
	Role               string     // user, subscriber, creator или admin
	SubscriptionStatus string     // active, inactive или trial
	SubscriptionStart  *time.Time // Дата начала подписки
	SubscriptionEnd    *time.Time // Дата окончания подписки
	SubscriptionPlan   *string    // monthly или yearly
	CreatorStatus      string     // none, pending или approved
	UpdatedAt          time.Time
}

// SessionUser — объединённое представление Account и AppUser,
// кэшируемое на время активной сессии.
type SessionUser struct {
	UID                string     `json:"uid"`
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	DisplayName        string     `json:"display_name"`
	Bio                string     `json:"bio,omitempty"`
	Role               string     `json:"role"`
	SubscriptionStatus string     `json:"subscription_status"`
	SubscriptionEnd    *time.Time `json:"subscription_end,omitempty"`
	SubscriptionPlan   *string    `json:"subscription_plan,omitempty"`
	IsSubscriber       bool       `json:"is_subscriber"`
}

// NewSessionUser собирает SessionUser из учётной записи и прикладной записи.
// IsSubscriber вычисляется как active или trial.
func NewSessionUser(acc *Account, app *AppUser) *SessionUser {
	return &SessionUser{
		UID:                acc.UID,
		Email:              acc.Email,
		Username:           acc.Username,
		DisplayName:        acc.DisplayName,
		Bio:                acc.Bio,
		Role:               app.Role,
		SubscriptionStatus: app.SubscriptionStatus,
		SubscriptionEnd:    app.SubscriptionEnd,
		SubscriptionPlan:   app.SubscriptionPlan,
		IsSubscriber: app.SubscriptionStatus == SubscriptionActive ||
			app.SubscriptionStatus == SubscriptionTrial,
	}
}
