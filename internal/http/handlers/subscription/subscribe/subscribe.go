// Package subscribe реализует HTTP-обработчик оформления подписки.
//
// Обработчик создаёт платёж у платёжного провайдера и возвращает ссылку
// на страницу оплаты. Подписка активируется после подтверждения оплаты
// через webhook провайдера.
package subscribe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/cinexnema-cyber/projeto-xnema/internal/apperr"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/middlewarectx"
	"github.com/cinexnema-cyber/projeto-xnema/internal/http/response"
	"github.com/cinexnema-cyber/projeto-xnema/internal/lib/sl"
	"github.com/cinexnema-cyber/projeto-xnema/internal/paymentprovider"
)

// Request — структура входных данных оформления подписки.
type Request struct {
	PlanType string `json:"plan_type" validate:"required,oneof=monthly yearly"`
}

// Service описывает интерфейс бизнес-логики оформления подписки.
type Service interface {
	Checkout(ctx context.Context, accountUID, planType string) (*paymentprovider.Checkout, error)
}

// Handler обрабатывает HTTP-запросы оформления подписки.
type Handler struct {
	log           *slog.Logger
	subscriptions Service
	validate      *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, subscriptions Service) *Handler {
	return &Handler{
		log:           log,
		subscriptions: subscriptions,
		validate:      validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оформление подписки
// @Description Создаёт платёж за план подписки и возвращает ссылку на страницу оплаты.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "План подписки"
// @Success 200 {object} response.Response "Ссылка на оплату"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Платёжный провайдер недоступен"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscribe"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	checkout, err := h.subscriptions.Checkout(r.Context(), userUID, req.PlanType)
	if err != nil {
		log.Error("checkout failed", sl.Err(err))
		w.WriteHeader(apperr.From(err).HTTPStatus())
		render.JSON(w, r, response.AppError(err))
		return
	}

	log.Info("checkout created",
		slog.String("account_uid", userUID),
		slog.String("transaction_id", checkout.TransactionID))
	render.JSON(w, r, response.OKWithData(map[string]string{
		"transaction_id":   checkout.TransactionID,
		"confirmation_url": checkout.ConfirmationURL,
	}))
}
