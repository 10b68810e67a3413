// Package models содержит доменные структуры журнала подписок и событий оплаты.
package models

import "time"

// Планы подписки.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// Статусы записи журнала подписок.
const (
	RecordActive    = "active"
	RecordCancelled = "cancelled"
)

// SubscriptionRecord — запись журнала подписок (append-only).
// Создаётся по одной на каждое событие жизненного цикла подписки
// и никогда не изменяется после создания.
type SubscriptionRecord struct {
	ID            string     `json:"id"`
	AccountUID    string     `json:"account_uid"`
	Status        string     `json:"status"`    // active или cancelled
	PlanType      string     `json:"plan_type"` // monthly или yearly
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PaymentEvent — обработанное событие платёжного провайдера.
// TransactionID уникален: повторная доставка webhook с тем же
// идентификатором не создаёт второй активной подписки.
type PaymentEvent struct {
	TransactionID string    `json:"transaction_id"`
	AccountUID    string    `json:"account_uid"`
	PlanType      string    `json:"plan_type"`
	Status        string    `json:"status"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// SubscriptionEvent — сообщение о событии жизненного цикла подписки,
// публикуемое в очередь уведомлений.
type SubscriptionEvent struct {
	Event       string     `json:"event"` // subscription.created или subscription.cancelled
	AccountUID  string     `json:"account_uid"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	PlanType    string     `json:"plan_type,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}
