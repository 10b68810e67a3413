// Package paymentwebhook реализует HTTP-обработчик уведомлений платёжного
// провайдера. Подпись тела проверяется до разбора, события обрабатываются
// идемпотентно по идентификатору транзакции: повторная доставка webhook
// не активирует вторую подписку.
package paymentwebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
	"github.com/cinexnema-cyber/projeto-xnema/internal/paymentprovider"
)

// Service описывает интерфейс бизнес-логики обработки платёжных событий.
type Service interface {
	ProcessPaymentEvent(ctx context.Context, n *paymentprovider.WebhookNotification) error
}

// SignatureVerifier проверяет подпись тела уведомления.
type SignatureVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Handler обрабатывает уведомления платёжного провайдера.
type Handler struct {
	log           *slog.Logger
	subscriptions Service
	verifier      SignatureVerifier
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, subscriptions Service, verifier SignatureVerifier) *Handler {
	return &Handler{
		log:           log,
		subscriptions: subscriptions,
		verifier:      verifier,
	}
}

// ServeHTTP godoc
// @Summary Webhook платёжного провайдера
// @Description Принимает уведомление о смене статуса платежа. Подпись в заголовке X-Api-Signature.
// @Tags Payment
// @Accept  json
// @Produce  json
// @Param X-Api-Signature header string true "HMAC-SHA256 подпись тела"
// @Success 200 {object} response.Response "Событие обработано"
// @Failure 400 {object} response.ErrorResponse "Некорректное тело уведомления"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	signature := r.Header.Get("X-Api-Signature")
	if !h.verifier.VerifyWebhookSignature(body, signature) {
		log.Error("webhook signature mismatch")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	notification, err := paymentprovider.ParseWebhook(body)
	if err != nil {
		log.Error("failed to parse webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid webhook body"))
		return
	}

	if err := h.subscriptions.ProcessPaymentEvent(r.Context(), notification); err != nil {
		log.Error("payment event processing failed", sl.Err(err))
		w.WriteHeader(apperr.From(err).HTTPStatus())
		render.JSON(w, r, response.AppError(err))
		return
	}

	log.Info("payment event processed",
		slog.String("transaction_id", notification.Object.ID),
		slog.String("event", notification.Event))
	render.JSON(w, r, response.OK())
}
