// Package paymentprovider реализует клиент платёжного провайдера:
// создание платежа с перенаправлением на страницу оплаты и разбор
// уведомлений webhook с проверкой подписи.
package paymentprovider

// Amount — сумма платежа.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Confirmation — способ подтверждения платежа. Для подписки используется
// redirect: пользователь переходит на страницу оплаты провайдера.
type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// Metadata — служебные поля платежа, возвращаются в webhook без изменений.
type Metadata struct {
	AccountUID string `json:"account_uid"`
	PlanType   string `json:"plan_type"`
}

// CreatePaymentRequest — запрос на создание платежа.
type CreatePaymentRequest struct {
	Amount       Amount       `json:"amount"`
	Capture      bool         `json:"capture"`
	Confirmation Confirmation `json:"confirmation"`
	Description  string       `json:"description"`
	Metadata     Metadata     `json:"metadata"`
}

// CreatePaymentResponse — ответ провайдера на создание платежа.
type CreatePaymentResponse struct {
	ID           string       `json:"id"`
	Status       string       `json:"status"`
	Amount       Amount       `json:"amount"`
	Confirmation Confirmation `json:"confirmation"`
	Metadata     Metadata     `json:"metadata"`
}

// WebhookNotification — уведомление провайдера о смене статуса платежа.
type WebhookNotification struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	Object struct {
		ID       string   `json:"id"`
		Status   string   `json:"status"`
		Amount   Amount   `json:"amount"`
		Metadata Metadata `json:"metadata"`
	} `json:"object"`
}

// События webhook, которые обрабатывает сервис подписок.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentCanceled  = "payment.canceled"
)

// Checkout — результат создания платежа для вызывающей стороны.
type Checkout struct {
	TransactionID   string
	ConfirmationURL string
}
