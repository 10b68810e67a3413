package paymentprovider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Цены планов подписки.
var planAmounts = map[string]Amount{
	"monthly": {Value: "19.90", Currency: "BRL"},
	"yearly":  {Value: "199.00", Currency: "BRL"},
}

// ErrUnknownPlan — для плана не задана цена.
var ErrUnknownPlan = errors.New("unknown plan type")

// Client — клиент HTTP API платёжного провайдера.
type Client struct {
	shopID        string
	secretKey     string
	webhookSecret string
	returnURL     string
	apiURL        string
	httpClient    *http.Client
}

// NewClient создаёт новый клиент платёжного провайдера.
func NewClient(shopID, secretKey, webhookSecret, returnURL string) *Client {
	return &Client{
		shopID:        shopID,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		returnURL:     returnURL,
		apiURL:        "https://api.yookassa.ru/v3",
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.shopID + ":" + c.secretKey))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	return req, nil
}

// CreateCheckout создаёт платёж за план подписки и возвращает ссылку
// на страницу оплаты. UID учётной записи и план кладутся в metadata
// и возвращаются провайдером в webhook.
func (c *Client) CreateCheckout(ctx context.Context, accountUID, planType string) (*Checkout, error) {
	const op = "paymentprovider.CreateCheckout"

	amount, ok := planAmounts[planType]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnknownPlan, planType)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/payments", CreatePaymentRequest{
		Amount:  amount,
		Capture: true,
		Confirmation: Confirmation{
			Type:      "redirect",
			ReturnURL: c.returnURL,
		},
		Description: "XNEMA subscription: " + planType,
		Metadata: Metadata{
			AccountUID: accountUID,
			PlanType:   planType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var paymentResp CreatePaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&paymentResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Checkout{
		TransactionID:   paymentResp.ID,
		ConfirmationURL: paymentResp.Confirmation.ConfirmationURL,
	}, nil
}

// VerifyWebhookSignature проверяет подпись тела уведомления.
// Подпись — HMAC-SHA256 от тела запроса, hex в заголовке X-Api-Signature.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhook разбирает тело уведомления webhook.
func ParseWebhook(body []byte) (*WebhookNotification, error) {
	const op = "paymentprovider.ParseWebhook"
	var n WebhookNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if n.Object.ID == "" {
		return nil, fmt.Errorf("%s: missing payment id", op)
	}
	return &n, nil
}
